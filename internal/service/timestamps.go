package service

import (
	"fmt"
	"strings"
	"time"
)

// Source timestamps without an offset, e.g. "2024-01-01 06:00:00".
var naiveLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
}

var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05-0700",
	"2006-01-02T15:04:05-0700",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05 Z07:00",
}

// NormalizeTimestamp turns a source validity timestamp into a UTC instant.
// Values without an offset are taken as UTC; zoned values keep the instant
// they denote. Zone abbreviations such as "BRT" are rejected since their
// offset cannot be known. An empty value means unbounded and yields nil.
func NormalizeTimestamp(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			utc := t.UTC()
			return &utc, nil
		}
	}

	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return &t, nil
		}
	}

	return nil, fmt.Errorf("unrecognised timestamp %q", value)
}
