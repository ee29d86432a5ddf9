// Package stdio provides the stdio transport binding for MCP.
//
// Messages are newline-delimited JSON objects: requests arrive on stdin,
// responses and notifications leave on stdout. Anything that is not
// protocol traffic (logs included) must go to stderr.
package stdio

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/gps-prasad/aws-okta-mcp-server/internal/logging"
	"github.com/gps-prasad/aws-okta-mcp-server/pkg/protocol"
)

// Transport implements an MCP transport over a newline-delimited stream
// pair, stdin/stdout by default.
type Transport struct {
	reader *bufio.Reader
	writer io.Writer

	incoming chan []byte
	done     chan struct{}

	logger *slog.Logger

	writeMux  sync.Mutex
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Option configures a Transport.
type Option func(*Transport)

// WithIO replaces stdin/stdout with custom streams. Used by tests.
func WithIO(reader io.Reader, writer io.Writer) Option {
	return func(t *Transport) {
		t.reader = bufio.NewReader(reader)
		t.writer = writer
	}
}

// WithLogger sets the transport logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transport) {
		t.logger = logger
	}
}

// New creates a stdio transport bound to the process streams.
func New(options ...Option) *Transport {
	t := &Transport{
		reader:   bufio.NewReader(os.Stdin),
		writer:   os.Stdout,
		incoming: make(chan []byte, 16),
		done:     make(chan struct{}),
	}
	for _, option := range options {
		option(t)
	}
	return t
}

// Start launches the read loop. Must be called before the first Receive.
func (t *Transport) Start() {
	t.wg.Add(1)
	go t.readLoop()
}

func (t *Transport) readLoop() {
	defer t.wg.Done()
	defer close(t.incoming)

	for {
		line, err := t.reader.ReadBytes('\n')

		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			select {
			case t.incoming <- trimmed:
			case <-t.done:
				return
			}
		}

		if err != nil {
			if err != io.EOF {
				logging.Error(t.logger, "error reading from stdin", "error", err)
			}
			return
		}
	}
}

// Send writes one framed message to stdout. Safe for concurrent use:
// responses and async notifications interleave on the same stream.
func (t *Transport) Send(ctx context.Context, data []byte) error {
	t.writeMux.Lock()
	defer t.writeMux.Unlock()

	select {
	case <-t.done:
		return protocol.ErrTransportClosed
	default:
	}

	_, err := t.writer.Write(append(data, '\n'))
	return err
}

// Receive blocks until a message arrives, the stream ends, or the context
// is cancelled.
func (t *Transport) Receive(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.done:
		return nil, protocol.ErrTransportClosed
	case data, ok := <-t.incoming:
		if !ok {
			return nil, protocol.ErrTransportClosed
		}
		return data, nil
	}
}

// Close closes the transport connection.
func (t *Transport) Close() error {
	t.closeOnce.Do(func() { close(t.done) })
	return nil
}

// Creator is a factory for stdio transports, for registry registration.
func Creator(ctx context.Context, options map[string]any) (protocol.Transport, error) {
	t := New()
	t.Start()
	return t, nil
}

// Register registers the stdio transport in a transport registry.
func Register(registry *protocol.TransportRegistry) {
	registry.Register(protocol.TransportTypeStdio, Creator)
}
