package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseRunToken(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2018-11-01", time.Date(2018, 11, 1, 0, 0, 0, 0, time.UTC)},
		{" 2018-11-01 ", time.Date(2018, 11, 1, 0, 0, 0, 0, time.UTC)},
		{"2018-11-01T13:00:00", time.Date(2018, 11, 1, 13, 0, 0, 0, time.UTC)},
		{"2018-11-01T13:00:00+02:00", time.Date(2018, 11, 1, 11, 0, 0, 0, time.UTC)},
	}
	for _, tc := range tests {
		got, err := ParseRunToken(tc.in)
		require.NoError(t, err, tc.in)
		require.True(t, tc.want.Equal(got), "%s: got %s", tc.in, got)
	}

	for _, bad := range []string{"", "11/01/2018", "tomorrow"} {
		_, err := ParseRunToken(bad)
		require.Error(t, err, bad)
	}
}

func TestNewRun(t *testing.T) {
	now := time.Date(2018, 11, 1, 13, 45, 12, 500, time.UTC)
	id := func() string { return "abc" }

	r := NewRun("", now, id)
	require.Equal(t, "abc", r.ID)
	require.Equal(t, "2018-11-01T13:45:12Z", r.Token)
	require.Equal(t, now.Truncate(time.Second), r.LogicalDate)

	r = NewRun("2018-11-02", now, id)
	require.Equal(t, "2018-11-02", r.Token)
	require.Equal(t, 2, r.LogicalDate.Day())
}

func TestNewRun_OpaqueTokenKeptVerbatim(t *testing.T) {
	now := time.Date(2018, 11, 1, 13, 45, 12, 500, time.FixedZone("X", 3600))
	id := func() string { return "abc" }

	for _, token := range []string{"scheduled__2018-11-01T13:00:00+00:00", "manual-42"} {
		r := NewRun(token, now, id)
		require.Equal(t, token, r.Token)
		require.Equal(t, now.UTC().Truncate(time.Second), r.LogicalDate, token)
	}
}
