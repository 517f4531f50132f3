package keyderiver

import (
	"regexp"
	"strconv"
	"time"
)

// filenamePatterns are tried in order against a recording's base filename.
// The first pattern that matches wins.
var filenamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d{4})_(\d{2})_(\d{2})_(\d{2})_(\d{2})_(\d{2})`),
	regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})[-_](\d{2})-(\d{2})-(\d{2})`),
	regexp.MustCompile(`(\d{4})(\d{2})(\d{2})[-_](\d{2})(\d{2})(\d{2})`),
}

// ExtractFromFilename tries each filename regex in order and returns the
// first successfully parsed timestamp. The filename carries no timezone
// information, so the result is taken as UTC.
func ExtractFromFilename(filename string) (time.Time, bool) {
	for _, re := range filenamePatterns {
		m := re.FindStringSubmatch(filename)
		if m == nil {
			continue
		}

		t, ok := buildTime(m)
		if ok {
			return t, true
		}
	}

	return time.Time{}, false
}

// buildTime constructs a UTC time.Time from six regex capture groups
// (year, month, day, hour, minute, second), rejecting out-of-range values
// so a stray digit run like "9999_99_99" never produces a timestamp.
func buildTime(groups []string) (time.Time, bool) {
	vals := make([]int, 6)

	for i, g := range groups[1:] {
		n, err := strconv.Atoi(g)
		if err != nil {
			return time.Time{}, false
		}

		vals[i] = n
	}

	year, month, day, hour, minute, second := vals[0], vals[1], vals[2], vals[3], vals[4], vals[5]

	if month < 1 || month > 12 || day < 1 || day > 31 || hour > 23 || minute > 59 || second > 60 {
		return time.Time{}, false
	}

	t := time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)

	// time.Date normalizes overflowing fields (e.g. Feb 30) instead of
	// erroring — reject anything that didn't round-trip.
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}

	return t, true
}
