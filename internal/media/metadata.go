package media

import (
	"encoding/json"
	"regexp"
	"strconv"
	"time"
)

// EXIFBlock holds the camera-derived metadata darkroom reads from a file.
type EXIFBlock struct {
	CaptureTime *time.Time `json:"capture_time,omitempty"`
	CameraMake  string     `json:"camera_make,omitempty"`
	CameraModel string     `json:"camera_model,omitempty"`
	LensModel   string     `json:"lens_model,omitempty"`
	ISO         int        `json:"iso,omitempty"`
	Width       int        `json:"width,omitempty"`
	Height      int        `json:"height,omitempty"`
}

// AIBlock holds the structured description returned by a content
// understanding provider (or the deterministic local fallback).
type AIBlock struct {
	Provider         string             `json:"provider"`
	Tags             []string           `json:"tags,omitempty"`
	ShortDescription string             `json:"short_description,omitempty"`
	LongDescription  string             `json:"long_description,omitempty"`
	DetectedObjects  []string           `json:"detected_objects,omitempty"`
	ConfidenceScores map[string]float64 `json:"confidence_scores,omitempty"`
	Confidence       float64            `json:"confidence"`
	AnalyzedAt       time.Time          `json:"analyzed_at"`
}

// FaceBlock summarizes the face set attached to a version.
type FaceBlock struct {
	Count      int      `json:"count"`
	PersonIDs  []string `json:"person_ids,omitempty"`
	DetectedBy string   `json:"detected_by,omitempty"`
}

// Metadata is the structured metadata blob stored on a version. It is a
// closed set of known shapes rather than an open dictionary so consumers get
// exhaustiveness from the type system.
type Metadata struct {
	EXIF  *EXIFBlock `json:"exif,omitempty"`
	AI    *AIBlock   `json:"ai,omitempty"`
	Faces *FaceBlock `json:"faces,omitempty"`
}

// ParseMetadata decodes a stored metadata blob, tolerating empty input.
func ParseMetadata(data string) Metadata {
	var meta Metadata
	if data == "" {
		return meta
	}
	_ = json.Unmarshal([]byte(data), &meta)
	return meta
}

// Encode renders the blob for storage.
func (m Metadata) Encode() (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// filenameTimestampPattern matches camera-style embedded timestamps such as
// 20240131_154210 or 2024-01-31 15.42.10.
var filenameTimestampPattern = regexp.MustCompile(
	`(\d{4})[-_.]?(\d{2})[-_.]?(\d{2})[-_ T.]?(\d{2})[-_.:]?(\d{2})[-_.:]?(\d{2})`)

// TimestampFromFilename extracts an embedded capture timestamp from a
// filename, returning the zero time when none is present or plausible.
func TimestampFromFilename(filename string) time.Time {
	match := filenameTimestampPattern.FindStringSubmatch(filename)
	if match == nil {
		return time.Time{}
	}
	fields := make([]int, 6)
	for i := range fields {
		v, err := strconv.Atoi(match[i+1])
		if err != nil {
			return time.Time{}
		}
		fields[i] = v
	}
	ts := time.Date(fields[0], time.Month(fields[1]), fields[2], fields[3], fields[4], fields[5], 0, time.UTC)
	if ts.Year() < 1900 || ts.Year() > time.Now().Year()+1 ||
		ts.Month() != time.Month(fields[1]) || ts.Day() != fields[2] {
		return time.Time{}
	}
	return ts
}

// ResolveCaptureTime picks the best-known capture timestamp: EXIF first, the
// filename-embedded timestamp second, the ingestion time last.
func ResolveCaptureTime(exif *EXIFBlock, filename string, ingestedAt time.Time) time.Time {
	if exif != nil && exif.CaptureTime != nil && !exif.CaptureTime.IsZero() {
		return *exif.CaptureTime
	}
	if ts := TimestampFromFilename(filename); !ts.IsZero() {
		return ts
	}
	return ingestedAt
}
