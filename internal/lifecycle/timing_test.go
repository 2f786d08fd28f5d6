package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		value string
		want  time.Time
	}{
		{name: "rfc3339 utc", value: "2024-01-10T08:30:00Z", want: time.Date(2024, 1, 10, 8, 30, 0, 0, time.UTC)},
		{name: "rfc3339 offset", value: "2024-01-10T08:30:00+02:00", want: time.Date(2024, 1, 10, 6, 30, 0, 0, time.UTC)},
		{name: "date only is utc midnight", value: "2024-01-10", want: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)},
		{name: "naive datetime is utc", value: "2024-01-10 15:04:05", want: time.Date(2024, 1, 10, 15, 4, 5, 0, time.UTC)},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseTimestamp(tc.value)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.True(t, tc.want.Equal(*got), "got %s", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}

	absent, err := ParseTimestamp("  ")
	require.NoError(t, err)
	assert.Nil(t, absent)

	_, err = ParseTimestamp("sometime last spring")
	assert.Error(t, err)
}

func TestApprovalTimeDays(t *testing.T) {
	t.Parallel()

	created := mustParse(t, "2024-01-01")
	merged := mustParse(t, "2024-01-10")
	closed := mustParse(t, "2024-01-20")

	got := ApprovalTimeDays(created, merged, closed)
	require.NotNil(t, got)
	assert.InDelta(t, 9.0, *got, 1e-9, "merge is preferred over close")

	got = ApprovalTimeDays(created, nil, closed)
	require.NotNil(t, got)
	assert.InDelta(t, 19.0, *got, 1e-9)

	assert.Nil(t, ApprovalTimeDays(created, nil, nil))
	assert.Nil(t, ApprovalTimeDays(nil, merged, closed))
}

func TestApprovalTimeDaysKeepsSubDayPrecisionAcrossOffsets(t *testing.T) {
	t.Parallel()

	created := mustParse(t, "2024-03-01T22:00:00-02:00")
	merged := mustParse(t, "2024-03-02T12:00:00+00:00")

	got := ApprovalTimeDays(created, merged, nil)
	require.NotNil(t, got)
	assert.InDelta(t, 0.5, *got, 1e-9)

	again := ApprovalTimeDays(created, merged, nil)
	assert.Equal(t, *got, *again)
}

func TestApprovalTimeDaysSurfacesSkew(t *testing.T) {
	t.Parallel()

	created := mustParse(t, "2024-01-10")
	closed := mustParse(t, "2024-01-08T12:00:00Z")

	got := ApprovalTimeDays(created, nil, closed)
	require.NotNil(t, got)
	assert.InDelta(t, -1.5, *got, 1e-9)
}

func mustParse(t *testing.T, value string) *time.Time {
	t.Helper()
	ts, err := ParseTimestamp(value)
	require.NoError(t, err)
	require.NotNil(t, ts)
	return ts
}
