// Package timeutil converts relative time expressions into absolute Okta
// API timestamps. Both functions are pure: variants taking an explicit
// reference instant exist for deterministic tests.
package timeutil

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gps-prasad/aws-okta-mcp-server/internal/errors"
)

// Layout is the timestamp format expected by Okta API date parameters:
// ISO 8601 UTC with microseconds and an explicit Z suffix.
const Layout = "2006-01-02T15:04:05.000000Z"

// Format renders an instant in the Okta API layout.
func Format(t time.Time) string {
	return t.UTC().Format(Layout)
}

// Now returns the current UTC time shifted by bufferHours, formatted for
// Okta API usage. Negative buffers reach into the past.
func Now(bufferHours int) string {
	return NowAt(time.Now(), bufferHours)
}

// NowAt is Now with an explicit reference instant.
func NowAt(ref time.Time, bufferHours int) string {
	return Format(ref.Add(time.Duration(bufferHours) * time.Hour))
}

var (
	agoPattern     = regexp.MustCompile(`^(\d+)\s+(second|minute|hour|day|week|month|year)s?\s+ago$`)
	lastNPattern   = regexp.MustCompile(`^last\s+(\d+)\s+(second|minute|hour|day|week|month|year)s?$`)
	sincePattern   = regexp.MustCompile(`^since\s+(monday|tuesday|wednesday|thursday|friday|saturday|sunday)$`)
	weekdayNumbers = map[string]time.Weekday{
		"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
		"wednesday": time.Wednesday, "thursday": time.Thursday,
		"friday": time.Friday, "saturday": time.Saturday,
	}
)

// ParseRelative converts a natural-language relative time expression into an
// Okta API timestamp. Unrecognized input fails with an
// unparseable_expression error.
//
// Recognized grammar: "N <unit>s ago", "last N <unit>s", "yesterday",
// "today", "now", "last week", "last month", "last year",
// "beginning/start of today", "end of yesterday", "start of this week",
// "end of last month", and "since <weekday>".
func ParseRelative(expression string) (string, error) {
	return ParseRelativeAt(expression, time.Now())
}

// ParseRelativeAt is ParseRelative with an explicit reference instant.
func ParseRelativeAt(expression string, ref time.Time) (string, error) {
	expr := strings.ToLower(strings.TrimSpace(expression))
	if expr == "" {
		return "", errors.New(errors.UnparseableExpression, "time expression cannot be empty")
	}

	now := ref.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	switch expr {
	case "now", "today":
		return Format(now), nil
	case "yesterday":
		return Format(now.AddDate(0, 0, -1)), nil
	case "last week":
		return Format(now.AddDate(0, 0, -7)), nil
	case "last month":
		return Format(now.AddDate(0, -1, 0)), nil
	case "last year":
		return Format(now.AddDate(-1, 0, 0)), nil
	case "beginning of today", "start of today":
		return Format(midnight), nil
	case "end of yesterday":
		return Format(midnight.Add(-time.Microsecond)), nil
	case "start of this week", "beginning of this week":
		// Weeks start on Monday.
		offset := (int(now.Weekday()) + 6) % 7
		return Format(midnight.AddDate(0, 0, -offset)), nil
	case "end of last month":
		firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return Format(firstOfMonth.Add(-time.Microsecond)), nil
	case "start of last month", "beginning of last month":
		firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return Format(firstOfMonth.AddDate(0, -1, 0)), nil
	}

	if m := agoPattern.FindStringSubmatch(expr); m != nil {
		return Format(shiftBack(now, m[1], m[2])), nil
	}
	if m := lastNPattern.FindStringSubmatch(expr); m != nil {
		return Format(shiftBack(now, m[1], m[2])), nil
	}
	if m := sincePattern.FindStringSubmatch(expr); m != nil {
		target := weekdayNumbers[m[1]]
		offset := (int(now.Weekday()) - int(target) + 7) % 7
		if offset == 0 {
			offset = 7
		}
		return Format(midnight.AddDate(0, 0, -offset)), nil
	}

	return "", errors.Newf(errors.UnparseableExpression,
		"could not parse time expression: %q", expression)
}

func shiftBack(now time.Time, amount, unit string) time.Time {
	n, _ := strconv.Atoi(amount)
	switch unit {
	case "second":
		return now.Add(-time.Duration(n) * time.Second)
	case "minute":
		return now.Add(-time.Duration(n) * time.Minute)
	case "hour":
		return now.Add(-time.Duration(n) * time.Hour)
	case "day":
		return now.AddDate(0, 0, -n)
	case "week":
		return now.AddDate(0, 0, -7*n)
	case "month":
		return now.AddDate(0, -n, 0)
	case "year":
		return now.AddDate(-n, 0, 0)
	}
	return now
}
