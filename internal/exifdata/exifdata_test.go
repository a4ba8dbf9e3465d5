package exifdata_test

import (
	"bytes"
	"image/png"
	"testing"

	"darkroom/internal/exifdata"
	"darkroom/internal/testsupport"
)

func TestExtractReturnsNilWithoutEXIF(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, testsupport.GradientImage(32, 32, 0)); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	if block := exifdata.Extract(buf.Bytes()); block != nil {
		t.Fatalf("expected nil for EXIF-less image, got %+v", block)
	}
}

func TestExtractToleratesGarbage(t *testing.T) {
	if block := exifdata.Extract([]byte("not an image at all")); block != nil {
		t.Fatalf("expected nil for garbage input, got %+v", block)
	}
	if block := exifdata.Extract(nil); block != nil {
		t.Fatalf("expected nil for empty input, got %+v", block)
	}
}
