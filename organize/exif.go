package organize

import (
	"context"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"

	"github.com/luinbytes/dupesort/storage"
)

var exifExts = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"tif":  true,
	"tiff": true,
}

// captureTime reads the EXIF capture date of a JPEG or TIFF file. ok is false
// when the file has no usable date.
func captureTime(ctx context.Context, fs storage.Provider, f storage.FileInfo) (t time.Time, ok bool) {
	if !exifExts[strings.ToLower(Extension(f.Name))] {
		return time.Time{}, false
	}

	rc, err := fs.OpenFile(ctx, f.ID)
	if err != nil {
		return time.Time{}, false
	}
	defer rc.Close()

	x, err := exif.Decode(rc)
	if err != nil {
		return time.Time{}, false
	}

	// DateTime prefers DateTimeOriginal and falls back to the DateTime tag.
	dt, err := x.DateTime()
	if err != nil || dt.Year() < 1900 {
		return time.Time{}, false
	}
	return dt, true
}
