package messaging

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/xmtpcore/interfaces"
)

func TestTimeBoundNormalizationEquivalence(t *testing.T) {
	millis := ListOptions{
		Before:    AtMillis(testBeforeMillis),
		After:     AtMillis(testAfterMillis),
		Direction: interfaces.SortAscending,
	}
	times := ListOptions{
		Before:    AtTime(time.UnixMilli(testBeforeMillis)),
		After:     AtTime(time.UnixMilli(testAfterMillis).In(time.FixedZone("UTC+9", 9*3600))),
		Direction: interfaces.SortAscending,
	}

	fromMillis, err := millis.Params("topic")
	require.NoError(t, err)
	fromTimes, err := times.Params("topic")
	require.NoError(t, err)

	assert.Equal(t, fromMillis, fromTimes)
	assert.Equal(t, interfaces.QueryParams{
		Topic:     "topic",
		Before:    testBeforeMillis,
		After:     testAfterMillis,
		Direction: interfaces.SortAscending,
	}, fromMillis)
}

func TestQueryParamsMatchListOptions(t *testing.T) {
	q := Query{
		Topic:     "topic",
		PageSize:  testPageSize,
		StartTime: AtTime(time.UnixMilli(testAfterMillis)),
		EndTime:   AtMillis(testBeforeMillis),
	}
	o := ListOptions{
		Limit:  testPageSize,
		After:  AtMillis(testAfterMillis),
		Before: AtMillis(testBeforeMillis),
	}

	fromQuery, err := q.Params()
	require.NoError(t, err)
	fromOptions, err := o.Params("topic")
	require.NoError(t, err)
	assert.Equal(t, fromOptions, fromQuery)
}

func TestDefaultDirectionIsDescending(t *testing.T) {
	params, err := ListOptions{}.Params("topic")
	require.NoError(t, err)
	assert.Equal(t, interfaces.SortDescending, params.Direction)
	assert.Zero(t, params.Before)
	assert.Zero(t, params.After)
}

func TestAtTimeZeroIsUnbounded(t *testing.T) {
	assert.False(t, AtTime(time.Time{}).IsSet())
	assert.True(t, AtMillis(0).IsSet())
	assert.Equal(t, int64(0), TimeBound{}.Millis())
}

func TestInvalidQueries(t *testing.T) {
	tests := []struct {
		name  string
		scope string
		opts  ListOptions
		field string
	}{
		{name: "empty scope", scope: "", field: "topic"},
		{name: "negative limit", scope: "t", opts: ListOptions{Limit: -1}, field: "limit"},
		{name: "after later than before", scope: "t", opts: ListOptions{Before: AtMillis(testAfterMillis), After: AtMillis(testBeforeMillis)}, field: "after"},
		{name: "negative before", scope: "t", opts: ListOptions{Before: AtMillis(-5)}, field: "before"},
		{name: "unknown direction", scope: "t", opts: ListOptions{Direction: "SIDEWAYS"}, field: "direction"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.opts.Params(tt.scope)
			var invalid *InvalidQueryError
			require.True(t, errors.As(err, &invalid))
			assert.Equal(t, tt.field, invalid.Field)
		})
	}
}

func TestEqualBoundsAreValid(t *testing.T) {
	_, err := ListOptions{Before: AtMillis(testBeforeMillis), After: AtMillis(testBeforeMillis)}.Params("t")
	assert.NoError(t, err)
}
