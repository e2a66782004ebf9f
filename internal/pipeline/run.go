package pipeline

import (
	"fmt"
	"strings"
	"time"

	"sparkify/internal/dag"
)

// Accepted run token layouts, tried in order.
var tokenLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// ParseRunToken reads the logical date from a run token. Dates without a
// zone are UTC.
func ParseRunToken(token string) (time.Time, error) {
	token = strings.TrimSpace(token)
	for _, layout := range tokenLayouts {
		if t, err := time.Parse(layout, token); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("run token %q: want YYYY-MM-DD or RFC 3339", token)
}

// NewRun builds the dag.Run for a token. An empty token runs for now,
// truncated to the second. A token that is not a date (for example a
// scheduler run id) is kept verbatim and the logical date is the wall clock.
func NewRun(token string, now time.Time, newID func() string) dag.Run {
	logical := now.UTC().Truncate(time.Second)
	if strings.TrimSpace(token) == "" {
		token = logical.Format(time.RFC3339)
	} else if t, err := ParseRunToken(token); err == nil {
		logical = t
	}
	return dag.Run{ID: newID(), Token: token, LogicalDate: logical}
}
