// Package keyderiver extracts the earliest data timestamp from a recording
// and derives the deterministic, time-partitioned object key under which
// that recording is stored.
package keyderiver

import (
	"fmt"
	"time"
)

// minuteBucketWidth is the width, in minutes, of the bucket folder used in
// object keys.
const minuteBucketWidth = 10

// epochCutoff is the earliest timestamp considered valid. Anything strictly
// before this is almost always an unset/epoch-defaulted clock on the
// recording device, not a real 1980 recording.
var epochCutoff = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// IsValidTimestamp reports whether t is on or after the 1980-01-01 epoch
// cutoff used to reject clock-default timestamps.
func IsValidTimestamp(t time.Time) bool {
	return !t.Before(epochCutoff)
}

// MinuteBucket rounds a minute value down to the nearest 10-minute bucket,
// e.g. 35 -> 30, 59 -> 50.
func MinuteBucket(minute int) int {
	return (minute / minuteBucketWidth) * minuteBucketWidth
}

// KeyParts is the decomposition of an object key produced by ParseKey —
// the inverse of DeriveKey.
type KeyParts struct {
	Year         int
	Month        int
	Day          int
	Hour         int
	MinuteBucket int
	Filename     string
}

// DeriveKey computes the object key for a recording with data timestamp t
// and the given filename. It is a pure function of (t, filename): the same
// pair always yields the same key, which the dedup cache relies on as an
// invariant.
func DeriveKey(t time.Time, filename string) string {
	t = t.UTC()

	return fmt.Sprintf(
		"year=%04d/month=%02d/day=%02d/hour=%02d/minute=%02d/%s",
		t.Year(), t.Month(), t.Day(), t.Hour(), MinuteBucket(t.Minute()), filename,
	)
}

// ParseKey decomposes an object key produced by DeriveKey back into its
// components. It does not validate that the filename matches any recording
// on disk — it only parses the hive-partitioned key string.
func ParseKey(key string) (KeyParts, error) {
	var kp KeyParts

	var filename string

	n, err := fmt.Sscanf(key, "year=%04d/month=%02d/day=%02d/hour=%02d/minute=%02d/",
		&kp.Year, &kp.Month, &kp.Day, &kp.Hour, &kp.MinuteBucket)
	if err != nil || n != 5 {
		return KeyParts{}, fmt.Errorf("keyderiver: %q is not a valid object key", key)
	}

	// Sscanf can't capture "everything after the last literal /", so find
	// the filename by walking past the five fixed-width hive segments.
	filename, err = filenameSuffix(key)
	if err != nil {
		return KeyParts{}, err
	}

	kp.Filename = filename

	return kp, nil
}

// filenameSuffix returns the portion of key after the fifth "/", which is
// the original filename.
func filenameSuffix(key string) (string, error) {
	slashes := 0

	for i, r := range key {
		if r == '/' {
			slashes++

			if slashes == 5 {
				return key[i+1:], nil
			}
		}
	}

	return "", fmt.Errorf("keyderiver: %q does not contain five hive segments", key)
}
