// Package bucket derives time-bucket keys and labels for grouping photos
// by capture date.
package bucket

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Granularity selects how wide a time bucket is.
type Granularity string

// Supported bucket granularities.
const (
	Day   Granularity = "day"
	Week  Granularity = "week"
	Month Granularity = "month"
	Year  Granularity = "year"
)

// ErrInvalidBucket is returned for an unsupported granularity.
var ErrInvalidBucket = errors.New("invalid bucket granularity")

// Bucket is a stable grouping key with a human-readable label.
type Bucket struct {
	Key   string
	Label string
}

// Parse validates a granularity string.
func Parse(s string) (Granularity, error) {
	switch Granularity(s) {
	case Day, Week, Month, Year:
		return Granularity(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidBucket, s)
}

// Derive maps a capture timestamp to its bucket for the given granularity.
// Week keys follow ISO-8601 week numbering (the week containing the year's
// first Thursday).
func Derive(t time.Time, g Granularity) (Bucket, error) {
	switch g {
	case Day:
		return Bucket{
			Key:   t.Format("2006-01-02"),
			Label: t.Format("Jan 02, 2006"),
		}, nil
	case Week:
		year, week := t.ISOWeek()
		return Bucket{
			Key:   fmt.Sprintf("%d-W%02d", year, week),
			Label: fmt.Sprintf("Week %d %d", week, year),
		}, nil
	case Month:
		return Bucket{
			Key:   t.Format("2006-01"),
			Label: t.Format("January 2006"),
		}, nil
	case Year:
		key := t.Format("2006")
		return Bucket{Key: key, Label: key}, nil
	}
	return Bucket{}, fmt.Errorf("%w: %q", ErrInvalidBucket, g)
}

// SortKey converts a bucket key into a pair that sorts chronologically.
// Day keys order by (year*100+month, day), week keys by (year, week),
// month keys by (year, month) and year keys by (year, 0), so day and month
// keys interleave correctly within the same year.
func SortKey(key string) (int, int) {
	if year, week, ok := strings.Cut(key, "-W"); ok {
		return atoi(year), atoi(week)
	}
	parts := strings.Split(key, "-")
	switch len(parts) {
	case 3:
		return atoi(parts[0])*100 + atoi(parts[1]), atoi(parts[2])
	case 2:
		return atoi(parts[0]), atoi(parts[1])
	}
	return atoi(key), 0
}

// Less reports whether bucket key a sorts chronologically before b.
func Less(a, b string) bool {
	aMajor, aMinor := SortKey(a)
	bMajor, bMinor := SortKey(b)
	if aMajor != bMajor {
		return aMajor < bMajor
	}
	return aMinor < bMinor
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
