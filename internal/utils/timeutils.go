package utils

import (
	"fmt"
	"strconv"
	"time"
)

// ParseHubSpotTime parses a timestamp as emitted by the HubSpot CRM API.
// Object properties carry either RFC3339 strings or epoch milliseconds;
// both appear in the wild depending on API version.
func ParseHubSpotTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognised time value %q", value)
}

// OlderThan reports whether the property timestamp is before the cutoff.
// Missing or unparseable values never count as older, so records without
// activity data are not classified as stale.
func OlderThan(value string, cutoff time.Time) bool {
	t, err := ParseHubSpotTime(value)
	if err != nil {
		return false
	}
	return t.Before(cutoff)
}
