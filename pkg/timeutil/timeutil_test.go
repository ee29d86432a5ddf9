package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gps-prasad/aws-okta-mcp-server/internal/errors"
)

// Wednesday, 18 June 2025, 14:30:45.123456 UTC
var reference = time.Date(2025, time.June, 18, 14, 30, 45, 123456000, time.UTC)

func TestFormat(t *testing.T) {
	assert.Equal(t, "2025-06-18T14:30:45.123456Z", Format(reference))

	// Sub-microsecond precision is truncated, not rounded away to nothing.
	whole := time.Date(2025, time.June, 18, 14, 30, 45, 0, time.UTC)
	assert.Equal(t, "2025-06-18T14:30:45.000000Z", Format(whole))
}

func TestNowAt(t *testing.T) {
	assert.Equal(t, "2025-06-18T14:30:45.123456Z", NowAt(reference, 0))
	assert.Equal(t, "2025-06-18T12:30:45.123456Z", NowAt(reference, -2))
	assert.Equal(t, "2025-06-18T17:30:45.123456Z", NowAt(reference, 3))
}

func TestParseRelativeAt(t *testing.T) {
	tests := []struct {
		expression string
		want       string
	}{
		{"now", "2025-06-18T14:30:45.123456Z"},
		{"today", "2025-06-18T14:30:45.123456Z"},
		{"yesterday", "2025-06-17T14:30:45.123456Z"},
		{"2 hours ago", "2025-06-18T12:30:45.123456Z"},
		{"30 minutes ago", "2025-06-18T14:00:45.123456Z"},
		{"45 seconds ago", "2025-06-18T14:30:00.123456Z"},
		{"1 day ago", "2025-06-17T14:30:45.123456Z"},
		{"2 weeks ago", "2025-06-04T14:30:45.123456Z"},
		{"3 months ago", "2025-03-18T14:30:45.123456Z"},
		{"1 year ago", "2024-06-18T14:30:45.123456Z"},
		{"last 7 days", "2025-06-11T14:30:45.123456Z"},
		{"last 24 hours", "2025-06-17T14:30:45.123456Z"},
		{"last week", "2025-06-11T14:30:45.123456Z"},
		{"last month", "2025-05-18T14:30:45.123456Z"},
		{"last year", "2024-06-18T14:30:45.123456Z"},
		{"beginning of today", "2025-06-18T00:00:00.000000Z"},
		{"start of today", "2025-06-18T00:00:00.000000Z"},
		{"end of yesterday", "2025-06-17T23:59:59.999999Z"},
		// Reference is a Wednesday; the week starts on Monday.
		{"start of this week", "2025-06-16T00:00:00.000000Z"},
		{"end of last month", "2025-05-31T23:59:59.999999Z"},
		{"start of last month", "2025-05-01T00:00:00.000000Z"},
		{"since monday", "2025-06-16T00:00:00.000000Z"},
		{"since tuesday", "2025-06-17T00:00:00.000000Z"},
		// Same weekday as the reference means the previous occurrence.
		{"since wednesday", "2025-06-11T00:00:00.000000Z"},
	}
	for _, tt := range tests {
		t.Run(tt.expression, func(t *testing.T) {
			got, err := ParseRelativeAt(tt.expression, reference)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRelativeAt_Normalization(t *testing.T) {
	got, err := ParseRelativeAt("  2 Hours AGO  ", reference)
	require.NoError(t, err)
	assert.Equal(t, "2025-06-18T12:30:45.123456Z", got)

	// Singular units parse too.
	got, err = ParseRelativeAt("1 hour ago", reference)
	require.NoError(t, err)
	assert.Equal(t, "2025-06-18T13:30:45.123456Z", got)
}

func TestParseRelativeAt_Unparseable(t *testing.T) {
	for _, expression := range []string{"", "   ", "a fortnight ago", "next week", "hours 2 ago", "whenever"} {
		t.Run(expression, func(t *testing.T) {
			_, err := ParseRelativeAt(expression, reference)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.UnparseableExpression))
		})
	}
}

func TestParseRelative_UsesWallClock(t *testing.T) {
	got, err := ParseRelative("now")
	require.NoError(t, err)

	parsed, err := time.Parse(Layout, got)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), parsed, 5*time.Second)
}
