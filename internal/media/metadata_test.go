package media_test

import (
	"testing"
	"time"

	"darkroom/internal/media"
)

func TestTimestampFromFilename(t *testing.T) {
	cases := []struct {
		filename string
		want     time.Time
	}{
		{"IMG_20240131_154210.jpg", time.Date(2024, 1, 31, 15, 42, 10, 0, time.UTC)},
		{"2023-06-01 09.15.30.png", time.Date(2023, 6, 1, 9, 15, 30, 0, time.UTC)},
		{"20220505T101112.heic", time.Date(2022, 5, 5, 10, 11, 12, 0, time.UTC)},
		{"screenshot.png", time.Time{}},
		{"9999934_129912.jpg", time.Time{}},
	}
	for _, tc := range cases {
		got := media.TimestampFromFilename(tc.filename)
		if !got.Equal(tc.want) {
			t.Errorf("TimestampFromFilename(%q) = %v, want %v", tc.filename, got, tc.want)
		}
	}
}

func TestResolveCaptureTimePrefersEXIF(t *testing.T) {
	exifTime := time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)
	ingested := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	got := media.ResolveCaptureTime(&media.EXIFBlock{CaptureTime: &exifTime}, "IMG_20240131_154210.jpg", ingested)
	if !got.Equal(exifTime) {
		t.Fatalf("expected EXIF time, got %v", got)
	}

	got = media.ResolveCaptureTime(nil, "IMG_20240131_154210.jpg", ingested)
	if got.Year() != 2024 || got.Month() != time.January || got.Day() != 31 {
		t.Fatalf("expected filename time, got %v", got)
	}

	got = media.ResolveCaptureTime(nil, "screenshot.png", ingested)
	if !got.Equal(ingested) {
		t.Fatalf("expected ingestion time fallback, got %v", got)
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	captured := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	meta := media.Metadata{
		EXIF: &media.EXIFBlock{CaptureTime: &captured, CameraModel: "X100V"},
		AI:   &media.AIBlock{Provider: "local", ShortDescription: "beach", Confidence: 0.5},
	}
	encoded, err := meta.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded := media.ParseMetadata(encoded)
	if decoded.EXIF == nil || decoded.EXIF.CameraModel != "X100V" {
		t.Fatalf("EXIF block lost: %+v", decoded)
	}
	if decoded.AI == nil || decoded.AI.ShortDescription != "beach" {
		t.Fatalf("AI block lost: %+v", decoded)
	}
	if decoded.Faces != nil {
		t.Fatal("unset block should stay nil")
	}
}

func TestParseMetadataEmptyInput(t *testing.T) {
	meta := media.ParseMetadata("")
	if meta.EXIF != nil || meta.AI != nil || meta.Faces != nil {
		t.Fatalf("expected zero metadata, got %+v", meta)
	}
}

func TestPersonAgeAt(t *testing.T) {
	birth := time.Date(2000, 6, 15, 0, 0, 0, 0, time.UTC)
	person := media.Person{Name: "A", Birthdate: &birth}

	if got := person.AgeAt(time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC)); got != 23 {
		t.Fatalf("day before birthday: got %d", got)
	}
	if got := person.AgeAt(time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)); got != 24 {
		t.Fatalf("on birthday: got %d", got)
	}
	if got := (&media.Person{}).AgeAt(time.Now()); got != -1 {
		t.Fatalf("no birthdate: got %d", got)
	}
}

func TestParseHelpers(t *testing.T) {
	if tier, ok := media.ParseTier(" Gold "); !ok || tier != media.TierGold {
		t.Fatalf("ParseTier failed: %v %v", tier, ok)
	}
	if _, ok := media.ParseTier("bronze"); ok {
		t.Fatal("bronze is not a persisted tier")
	}
	if state, ok := media.ParseState("PROMOTED"); !ok || state != media.StatePromoted {
		t.Fatalf("ParseState failed: %v %v", state, ok)
	}
	if action, ok := media.ParseAction("ingested"); !ok || action != media.ActionIngested {
		t.Fatalf("ParseAction failed: %v %v", action, ok)
	}
	if media.TierGold.Rank() <= media.TierSilver.Rank() {
		t.Fatal("gold must outrank silver")
	}
}
