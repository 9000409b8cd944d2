package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/matrixise/coinledger/internal/apperr"
)

const dateLayout = "2006-01-02"

// Filter narrows a ledger after the merge. Zero fields match everything; bounds are inclusive.
type Filter struct {
	Kind Kind
	From *time.Time
	To   *time.Time
}

// IsZero reports whether the filter matches every entry
func (f Filter) IsZero() bool {
	return f.Kind == "" && f.From == nil && f.To == nil
}

// Match reports whether e passes the filter
func (f Filter) Match(e Entry) bool {
	if f.Kind != "" && e.Kind != f.Kind {
		return false
	}
	if f.From != nil && e.Timestamp.Before(*f.From) {
		return false
	}
	if f.To != nil && e.Timestamp.After(*f.To) {
		return false
	}
	return true
}

// Filter returns the entries matching f, preserving order
func (l Ledger) Filter(f Filter) []Entry {
	if f.IsZero() {
		return l.Entries
	}
	out := make([]Entry, 0, len(l.Entries))
	for _, e := range l.Entries {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return out
}

// ParseFilter builds a filter from query-string values. Bounds accept RFC 3339
// or a bare date; a bare end date covers the whole day.
func ParseFilter(kind, start, end string) (Filter, error) {
	var f Filter

	if kind = strings.TrimSpace(kind); kind != "" {
		k, ok := ParseKind(kind)
		if !ok {
			return Filter{}, fmt.Errorf("%w: unknown transaction type %q", apperr.ErrMalformedInput, kind)
		}
		f.Kind = k
	}

	if start = strings.TrimSpace(start); start != "" {
		t, _, err := parseBound(start)
		if err != nil {
			return Filter{}, fmt.Errorf("%w: start: %v", apperr.ErrMalformedInput, err)
		}
		f.From = &t
	}

	if end = strings.TrimSpace(end); end != "" {
		t, dateOnly, err := parseBound(end)
		if err != nil {
			return Filter{}, fmt.Errorf("%w: end: %v", apperr.ErrMalformedInput, err)
		}
		if dateOnly {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		f.To = &t
	}

	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return Filter{}, fmt.Errorf("%w: start is after end", apperr.ErrMalformedInput)
	}

	return f, nil
}

func parseBound(s string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), false, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("expected RFC 3339 or YYYY-MM-DD, got %q", s)
	}
	return t.UTC(), true, nil
}
