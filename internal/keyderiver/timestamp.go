package keyderiver

import (
	"strings"
	"time"
)

// timestampColumnNames are the column/field names that carry a numeric
// Unix-epoch timestamp.
var timestampColumnNames = map[string]bool{
	"timestamp": true,
	"time":      true,
	"datetime":  true,
	"date":      true,
}

// IsTimestampColumnName reports whether name (case-insensitively) is one of
// the recognized timestamp-bearing column names.
func IsTimestampColumnName(name string) bool {
	return timestampColumnNames[strings.ToLower(name)]
}

// Unit auto-detection thresholds for numeric epoch values:
// > 1e18 is ns, > 1e15 is us, > 1e12 is ms, else seconds.
const (
	nanosecondThreshold  = 1e18
	microsecondThreshold = 1e15
	millisecondThreshold = 1e12
)

// EpochFromNumeric converts a bare numeric epoch value to a UTC time,
// auto-detecting its unit from magnitude.
func EpochFromNumeric(v float64) time.Time {
	switch {
	case v > nanosecondThreshold:
		return time.Unix(0, int64(v)).UTC()
	case v > microsecondThreshold:
		return time.Unix(0, int64(v)*int64(time.Microsecond)).UTC()
	case v > millisecondThreshold:
		return time.Unix(0, int64(v)*int64(time.Millisecond)).UTC()
	default:
		return time.Unix(int64(v), 0).UTC()
	}
}
