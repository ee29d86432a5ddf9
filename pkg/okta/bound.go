package okta

import (
	"context"
)

// Window reports how a bounded listing ended.
type Window struct {
	// Truncated is true when the ceiling was reached before end of data.
	Truncated bool

	// NextCursor resumes the listing where this call stopped. Empty when
	// the remote listing is exhausted.
	NextCursor string
}

// CollectBounded drains a pager until either the entity ceiling is reached
// or the remote listing ends. When the ceiling is reached the collector
// stops immediately — it never fetches a page it cannot use — and surfaces
// the pager's current cursor so a follow-up call can resume.
//
// This is deliberate backpressure against an unbounded remote listing: the
// consumer is an LLM with a fixed context window, so a predictable payload
// size wins over completeness.
//
// The pager is always closed before returning, including on error and
// cancellation, so partially consumed listings release their resources.
func CollectBounded(ctx context.Context, pager Pager, ceiling int) ([]Entity, Window, error) {
	defer pager.Close()

	entities := make([]Entity, 0, ceiling)
	window := Window{}

	for len(entities) < ceiling && pager.HasNext() {
		if err := ctx.Err(); err != nil {
			return nil, Window{}, err
		}

		page, err := pager.Next(ctx)
		if err != nil {
			return nil, Window{}, err
		}
		if page == nil {
			break
		}

		remaining := ceiling - len(entities)
		if len(page.Entities) > remaining {
			// The page overflows the ceiling: keep what fits and report
			// truncation instead of silently dropping the tail.
			entities = append(entities, page.Entities[:remaining]...)
			window.Truncated = true
			window.NextCursor = page.NextCursor
			return entities, window, nil
		}

		entities = append(entities, page.Entities...)
		window.NextCursor = page.NextCursor
	}

	if pager.HasNext() && window.NextCursor != "" {
		// Ceiling reached exactly at a page boundary with more data behind.
		window.Truncated = true
	} else {
		window.NextCursor = ""
	}

	return entities, window, nil
}
