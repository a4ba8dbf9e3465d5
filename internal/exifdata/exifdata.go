// Package exifdata reads camera metadata out of image files. Extraction is
// best effort: files without EXIF segments (screenshots, scans, videos) yield
// nil rather than an error so ingestion proceeds with filename fallbacks.
package exifdata

import (
	"bytes"
	"io"

	"github.com/rwcarlsen/goexif/exif"

	"darkroom/internal/media"
)

// Extract decodes the EXIF block from raw image bytes, nil when absent.
func Extract(data []byte) *media.EXIFBlock {
	return ExtractReader(bytes.NewReader(data))
}

// ExtractReader decodes the EXIF block from a reader, nil when absent.
func ExtractReader(r io.Reader) *media.EXIFBlock {
	x, err := exif.Decode(r)
	if err != nil {
		return nil
	}

	block := &media.EXIFBlock{}
	populated := false

	if taken, err := x.DateTime(); err == nil && !taken.IsZero() {
		utc := taken.UTC()
		block.CaptureTime = &utc
		populated = true
	}
	if v := stringField(x, exif.Make); v != "" {
		block.CameraMake = v
		populated = true
	}
	if v := stringField(x, exif.Model); v != "" {
		block.CameraModel = v
		populated = true
	}
	if v := stringField(x, exif.LensModel); v != "" {
		block.LensModel = v
		populated = true
	}
	if v := intField(x, exif.ISOSpeedRatings); v > 0 {
		block.ISO = v
		populated = true
	}
	if w := intField(x, exif.PixelXDimension); w > 0 {
		block.Width = w
		populated = true
	}
	if h := intField(x, exif.PixelYDimension); h > 0 {
		block.Height = h
		populated = true
	}

	if !populated {
		return nil
	}
	return block
}

func stringField(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	value, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return value
}

func intField(x *exif.Exif, name exif.FieldName) int {
	tag, err := x.Get(name)
	if err != nil {
		return 0
	}
	value, err := tag.Int(0)
	if err != nil {
		return 0
	}
	return value
}
