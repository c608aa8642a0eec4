package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/crewcall/crewcall/internal/config"
	"github.com/crewcall/crewcall/internal/timeline"
)

// openService loads config and opens the store. Callers must Close the store.
func openService() (*timeline.Store, *timeline.Service, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(cfg.Paths.DataDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create data dir: %w", err)
	}
	store, err := timeline.Open(cfg.Paths.DatabasePath())
	if err != nil {
		return nil, nil, err
	}
	return store, timeline.NewService(store), nil
}

// timeLayouts accepted by time flags, tried in order.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseTime parses a user-supplied time flag in local time (unless the value
// carries an explicit zone).
func parseTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("time value is required")
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q (expected e.g. 2026-03-14 09:00 or RFC3339)", value)
}

func printJSON(w io.Writer, payload any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
