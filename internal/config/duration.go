package config

import (
	"fmt"
	"strings"
	"time"
)

// ParseDurationField resolves a config duration string ("15s", "500ms").
// Empty means unset and resolves to 0; negatives are rejected. The path
// names the offending field in the error.
func ParseDurationField(path, raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: negative duration %q", path, raw)
	}
	return d, nil
}
