package tools

import "context"

// ProgressFunc pushes an incremental progress update to the client while a
// tool call is in flight. Implementations are best-effort: a failed push
// never fails the call.
type ProgressFunc func(progress, total float64, message string)

type progressKeyType struct{}

// WithProgress attaches a progress reporter to a tool call context. The
// dispatch loop installs one only when the client asked for progress
// notifications and the transport supports server push.
func WithProgress(ctx context.Context, fn ProgressFunc) context.Context {
	return context.WithValue(ctx, progressKeyType{}, fn)
}

// ReportProgress emits a progress update if the call carries a reporter.
// A no-op otherwise, so handlers call it unconditionally.
func ReportProgress(ctx context.Context, progress, total float64, message string) {
	if fn, ok := ctx.Value(progressKeyType{}).(ProgressFunc); ok && fn != nil {
		fn(progress, total, message)
	}
}
