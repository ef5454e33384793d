// Package timeutil holds the UTC coercion, bucket alignment, and
// deterministic meeting-id hashing used throughout the engagement pipeline.
// Every timestamp that crosses a component boundary passes through EnsureUTC
// first — the rest of the codebase assumes it never has to think about
// timezones again.
package timeutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// EnsureUTC coerces t to a UTC-aware timestamp. A naive-looking timestamp
// (one already in a fixed-zero offset, which Go's time.Time can't actually
// represent — every time.Time carries a location) is accepted as-is; the
// only caller-visible effect is normalizing the Location to time.UTC.
func EnsureUTC(t time.Time) time.Time {
	if t.Location() != time.UTC {
		log.Warn().Str("input_zone", t.Location().String()).Msg("timeutil: coercing non-UTC timestamp to UTC")
	}
	return t.UTC()
}

// ISOFormatUTC renders t as ISO-8601 with a trailing "Z", e.g.
// "2025-01-01T14:00:00Z".
func ISOFormatUTC(t time.Time) string {
	return EnsureUTC(t).Format("2006-01-02T15:04:05Z")
}

// Bucketize truncates t to the minute, clearing seconds and sub-second
// precision. This is the key used for engagement samples and rollups.
func Bucketize(t time.Time) time.Time {
	t = EnsureUTC(t)
	return t.Truncate(time.Minute)
}

// GenerateBuckets returns the minute buckets from start to end inclusive,
// stepping by stepMinutes.
func GenerateBuckets(start, end time.Time, stepMinutes int) []time.Time {
	if stepMinutes <= 0 {
		stepMinutes = 1
	}
	step := time.Duration(stepMinutes) * time.Minute
	if end.Before(start) {
		return nil
	}
	n := int(end.Sub(start)/step) + 1
	buckets := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		buckets = append(buckets, start.Add(time.Duration(i)*step))
	}
	return buckets
}

// SnapToHalfHourLocal rounds tLocal to the nearest half-hour boundary in its
// own timezone, per the caller's clock:
//
//	minute in [0,15]  -> :00 of the current hour
//	minute in [16,44] -> :30 of the current hour
//	minute in [45,59] -> :00 of the next hour
func SnapToHalfHourLocal(tLocal time.Time) time.Time {
	base := tLocal.Truncate(time.Second)
	base = time.Date(base.Year(), base.Month(), base.Day(), base.Hour(), base.Minute(), 0, 0, base.Location())
	minute := base.Minute()

	switch {
	case minute <= 15:
		return base.Add(-time.Duration(minute) * time.Minute)
	case minute <= 44:
		return base.Add(time.Duration(30-minute) * time.Minute)
	default:
		return base.Add(time.Duration(60-minute) * time.Minute)
	}
}

// DeterministicMeetingID derives the 36-character meeting id from the
// meeting's start time and its context (Teams meeting takes precedence over
// room). At least one of teamsID/roomID must be non-empty.
func DeterministicMeetingID(startUTC time.Time, teamsID, roomID string) (string, error) {
	var context string
	switch {
	case teamsID != "":
		context = "teams:" + teamsID
	case roomID != "":
		context = "room:" + roomID
	default:
		return "", fmt.Errorf("timeutil: deterministic meeting id requires a teams id or room id")
	}

	key := fmt.Sprintf("%s|%s", ISOFormatUTC(startUTC), context)
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:36], nil
}
