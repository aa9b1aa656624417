package messaging

import (
	"fmt"
	"time"

	"github.com/opd-ai/xmtpcore/interfaces"
	"github.com/opd-ai/xmtpcore/limits"
)

// TimeBound is an optional instant used to bound a listing. The zero value
// means unbounded.
type TimeBound struct {
	ms  int64
	set bool
}

// AtMillis bounds a listing at an epoch-millisecond timestamp.
func AtMillis(ms int64) TimeBound {
	return TimeBound{ms: ms, set: true}
}

// AtTime bounds a listing at t. Precision below one millisecond is
// truncated; the zero time means unbounded.
func AtTime(t time.Time) TimeBound {
	if t.IsZero() {
		return TimeBound{}
	}
	return TimeBound{ms: t.UnixMilli(), set: true}
}

// IsSet reports whether the bound was given.
func (b TimeBound) IsSet() bool { return b.set }

// Millis returns the bound in epoch milliseconds, or 0 when unset.
func (b TimeBound) Millis() int64 {
	if !b.set {
		return 0
	}
	return b.ms
}

// ListOptions shapes a single-scope listing.
type ListOptions struct {
	Limit     int
	Before    TimeBound
	After     TimeBound
	Direction interfaces.SortDirection
}

// Query is one sub-request of a batch listing. StartTime is the lower
// bound and EndTime the upper bound.
type Query struct {
	Topic     string
	PageSize  int
	StartTime TimeBound
	EndTime   TimeBound
	Direction interfaces.SortDirection
}

// InvalidQueryError reports malformed listing arguments.
type InvalidQueryError struct {
	Field  string
	Reason string
}

func (e *InvalidQueryError) Error() string {
	return fmt.Sprintf("invalid query %s: %s", e.Field, e.Reason)
}

// Params validates the options and normalizes them for scope.
func (o ListOptions) Params(scope string) (interfaces.QueryParams, error) {
	return normalize(scope, o.Limit, o.Before, o.After, o.Direction)
}

// Params validates the query and normalizes it.
func (q Query) Params() (interfaces.QueryParams, error) {
	return normalize(q.Topic, q.PageSize, q.EndTime, q.StartTime, q.Direction)
}

func normalize(scope string, limit int, before, after TimeBound, direction interfaces.SortDirection) (interfaces.QueryParams, error) {
	if scope == "" {
		return interfaces.QueryParams{}, &InvalidQueryError{Field: "topic", Reason: "scope is required"}
	}
	if err := limits.ValidatePageSize(limit); err != nil {
		return interfaces.QueryParams{}, &InvalidQueryError{Field: "limit", Reason: err.Error()}
	}
	if before.Millis() < 0 {
		return interfaces.QueryParams{}, &InvalidQueryError{Field: "before", Reason: "must not be negative"}
	}
	if after.Millis() < 0 {
		return interfaces.QueryParams{}, &InvalidQueryError{Field: "after", Reason: "must not be negative"}
	}
	if before.IsSet() && after.IsSet() && after.Millis() > before.Millis() {
		return interfaces.QueryParams{}, &InvalidQueryError{
			Field:  "after",
			Reason: fmt.Sprintf("%d is later than before %d", after.Millis(), before.Millis()),
		}
	}

	switch direction {
	case "":
		direction = interfaces.SortDescending
	case interfaces.SortAscending, interfaces.SortDescending:
	default:
		return interfaces.QueryParams{}, &InvalidQueryError{Field: "direction", Reason: fmt.Sprintf("unknown direction %q", direction)}
	}

	return interfaces.QueryParams{
		Topic:     scope,
		Limit:     limit,
		Before:    before.Millis(),
		After:     after.Millis(),
		Direction: direction,
	}, nil
}
