package domain

import (
	"fmt"
	"strings"
	"time"
)

// keyLayout is the identifier-safe timestamp form used for map keys, column
// names and map-name fragments. Keys sort chronologically.
const keyLayout = "20060102T150405"

// KeyPrefix precedes every timestamp key so the result is a valid identifier
// even when it starts a column name.
const KeyPrefix = "t"

// wireLayouts are the accepted observation timestamp forms. Offsets are
// honored and normalized to UTC rather than stripped, so bucket assignment
// is stable across timezones.
var wireLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05-07",
	"2006-01-02T15:04:05",
}

// ParseTimestamp parses a wire timestamp token. A token without an offset is
// taken as UTC.
func ParseTimestamp(token string) (time.Time, error) {
	token = strings.TrimSpace(token)
	for _, layout := range wireLayouts {
		if t, err := time.Parse(layout, token); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", token)
}

// EncodeKey returns the identifier-safe key for an instant, second precision,
// always in UTC.
func EncodeKey(t time.Time) string {
	return KeyPrefix + t.UTC().Format(keyLayout)
}

// DecodeKey parses a key produced by EncodeKey back into a UTC instant.
func DecodeKey(key string) (time.Time, error) {
	if !strings.HasPrefix(key, KeyPrefix) {
		return time.Time{}, fmt.Errorf("timestamp key %q lacks %q prefix", key, KeyPrefix)
	}
	t, err := time.Parse(keyLayout, key[len(KeyPrefix):])
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp key %q: %w", key, err)
	}
	return t.UTC(), nil
}

// ParseEventTime splits a start/end request range and parses both endpoints.
func ParseEventTime(eventTime string) (start, end time.Time, err error) {
	parts := strings.SplitN(eventTime, "/", 2)
	if len(parts) != 2 {
		return start, end, fmt.Errorf("event time %q is not of the form start/end", eventTime)
	}
	if start, err = ParseTimestamp(parts[0]); err != nil {
		return start, end, fmt.Errorf("event time start: %w", err)
	}
	if end, err = ParseTimestamp(parts[1]); err != nil {
		return start, end, fmt.Errorf("event time end: %w", err)
	}
	if end.Before(start) {
		return start, end, fmt.Errorf("event time %q ends before it starts", eventTime)
	}
	return start, end, nil
}

// RegisterStamp formats a bucket start the way the temporal store expects
// registration timestamps.
func RegisterStamp(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04")
}
