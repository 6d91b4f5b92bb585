// Package exifmeta extracts capture timestamps from image metadata.
package exifmeta

import (
	"os"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// Skip reasons reported for files without a usable capture time.
const (
	ReasonMissing    = "missing_exif"
	ReasonInvalid    = "invalid_exif"
	ReasonUnreadable = "unreadable"
)

const exifTimeLayout = "2006:01:02 15:04:05"

// ReadCaptureTime returns the capture timestamp recorded in the file's EXIF
// data. When no timestamp can be extracted, the zero time is returned together
// with a skip reason; reason is empty on success.
func ReadCaptureTime(path string) (time.Time, string) {
	f, err := os.Open(path)
	if err != nil {
		return time.Time{}, ReasonUnreadable
	}
	defer f.Close()

	meta, err := exif.Decode(f)
	if err != nil {
		return time.Time{}, ReasonMissing
	}

	tag, err := meta.Get(exif.DateTimeOriginal)
	if err != nil {
		return time.Time{}, ReasonMissing
	}

	raw, err := tag.StringVal()
	if err != nil {
		return time.Time{}, ReasonInvalid
	}

	ts, err := time.Parse(exifTimeLayout, raw)
	if err != nil {
		return time.Time{}, ReasonInvalid
	}
	return ts, ""
}
