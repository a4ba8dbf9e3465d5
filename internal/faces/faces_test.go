package faces_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/uuid"

	"darkroom/internal/faces"
	"darkroom/internal/media"
	"darkroom/internal/store"
	"darkroom/internal/testsupport"
)

type fakeDetector struct {
	detections []faces.Detection
	err        error
}

func (f *fakeDetector) Detect(ctx context.Context, data []byte) ([]faces.Detection, error) {
	return f.detections, f.err
}

// embeddingAt builds a unit vector whose cosine similarity against [1, 0]
// equals the given value.
func embeddingAt(similarity float64) []float32 {
	return []float32{float32(similarity), float32(math.Sqrt(1 - similarity*similarity))}
}

func seedAssignedFaces(t *testing.T, st *store.Store, personID string, count int, similarity float64) {
	t.Helper()
	_, version := testsupport.NewAsset(t, st, "IMG_"+personID+".jpg")
	set := make([]media.Face, 0, count)
	for i := 0; i < count; i++ {
		set = append(set, media.Face{
			ID:        uuid.NewString(),
			Box:       media.Rect{X: float64(i * 50), Y: 10, W: 40, H: 40},
			Embedding: embeddingAt(similarity),
			PersonID:  &personID,
		})
	}
	if err := st.ReplaceFaces(context.Background(), version.ID, set); err != nil {
		t.Fatalf("ReplaceFaces: %v", err)
	}
}

func TestSuggestionsMeetFloorAndSupport(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	matcher := faces.NewMatcher(st, nil, cfg.Faces, nil)
	ctx := context.Background()

	personA := &media.Person{ID: uuid.NewString(), Name: "A"}
	personB := &media.Person{ID: uuid.NewString(), Name: "B"}
	for _, p := range []*media.Person{personA, personB} {
		if err := st.CreatePerson(ctx, p); err != nil {
			t.Fatalf("CreatePerson: %v", err)
		}
	}

	// Three faces of A resembling the probe at 0.95, five faces of B at
	// 0.80. Only A clears the candidate floor.
	seedAssignedFaces(t, st, personA.ID, 3, 0.95)
	seedAssignedFaces(t, st, personB.ID, 5, 0.80)

	_, probeVersion := testsupport.NewAsset(t, st, "IMG_probe.jpg")
	probe := media.Face{
		ID:        uuid.NewString(),
		Box:       media.Rect{X: 0, Y: 0, W: 40, H: 40},
		Embedding: []float32{1, 0},
	}
	if err := st.ReplaceFaces(ctx, probeVersion.ID, []media.Face{probe}); err != nil {
		t.Fatalf("ReplaceFaces: %v", err)
	}

	suggestions, err := matcher.Suggestions(ctx)
	if err != nil {
		t.Fatalf("Suggestions: %v", err)
	}
	if len(suggestions) != 1 {
		t.Fatalf("expected 1 suggestion, got %d", len(suggestions))
	}
	got := suggestions[0]
	if got.FaceID != probe.ID {
		t.Fatalf("unexpected face %s", got.FaceID)
	}
	if len(got.Candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %+v", got.Candidates)
	}
	candidate := got.Candidates[0]
	if candidate.PersonID != personA.ID {
		t.Fatalf("expected person A, got %s", candidate.PersonID)
	}
	if candidate.Confidence != 95 {
		t.Fatalf("expected confidence 95, got %d", candidate.Confidence)
	}
	if candidate.Support != 3 {
		t.Fatalf("expected support 3, got %d", candidate.Support)
	}
}

func TestSuggestionsRequireMinSupport(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	matcher := faces.NewMatcher(st, nil, cfg.Faces, nil)
	ctx := context.Background()

	person := &media.Person{ID: uuid.NewString(), Name: "C"}
	if err := st.CreatePerson(ctx, person); err != nil {
		t.Fatalf("CreatePerson: %v", err)
	}
	// Two strong matches are still below the three-face support minimum.
	seedAssignedFaces(t, st, person.ID, 2, 0.97)

	_, probeVersion := testsupport.NewAsset(t, st, "IMG_probe2.jpg")
	probe := media.Face{ID: uuid.NewString(), Box: media.Rect{W: 40, H: 40}, Embedding: []float32{1, 0}}
	if err := st.ReplaceFaces(ctx, probeVersion.ID, []media.Face{probe}); err != nil {
		t.Fatalf("ReplaceFaces: %v", err)
	}

	suggestions, err := matcher.Suggestions(ctx)
	if err != nil {
		t.Fatalf("Suggestions: %v", err)
	}
	if len(suggestions) != 0 {
		t.Fatalf("expected no suggestions, got %+v", suggestions)
	}
}

func TestProcessCarriesAssignmentsForward(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	person := &media.Person{ID: uuid.NewString(), Name: "D"}
	if err := st.CreatePerson(ctx, person); err != nil {
		t.Fatalf("CreatePerson: %v", err)
	}

	_, version := testsupport.NewAsset(t, st, "IMG_carry.jpg")
	prior := media.Face{
		ID:        uuid.NewString(),
		Box:       media.Rect{X: 100, Y: 100, W: 80, H: 80},
		Embedding: []float32{1, 0},
		PersonID:  &person.ID,
	}
	if err := st.ReplaceFaces(ctx, version.ID, []media.Face{prior}); err != nil {
		t.Fatalf("ReplaceFaces: %v", err)
	}

	// The first detection overlaps the prior assigned face; the second is
	// somewhere else entirely.
	detector := &fakeDetector{detections: []faces.Detection{
		{Box: media.Rect{X: 110, Y: 105, W: 80, H: 80}, Confidence: 0.99, Embedding: []float32{1, 0}},
		{Box: media.Rect{X: 400, Y: 400, W: 60, H: 60}, Confidence: 0.95, Embedding: []float32{0, 1}},
	}}
	matcher := faces.NewMatcher(st, detector, cfg.Faces, nil)

	processed, err := matcher.Process(ctx, version, nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(processed) != 2 {
		t.Fatalf("expected 2 faces, got %d", len(processed))
	}

	stored, err := st.FacesForVersion(ctx, version.ID)
	if err != nil {
		t.Fatalf("FacesForVersion: %v", err)
	}
	var carried, fresh *media.Face
	for _, face := range stored {
		if face.Box.X < 200 {
			carried = face
		} else {
			fresh = face
		}
	}
	if carried == nil || !carried.Assigned() || *carried.PersonID != person.ID {
		t.Fatalf("overlapping face lost its assignment: %+v", carried)
	}
	if fresh == nil || fresh.Assigned() {
		t.Fatalf("non-overlapping face should be unassigned: %+v", fresh)
	}
}

func TestProcessDetectionFailureYieldsZeroFaces(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	_, version := testsupport.NewAsset(t, st, "IMG_fail.jpg")
	detector := &fakeDetector{err: errors.New("model crashed")}
	matcher := faces.NewMatcher(st, detector, cfg.Faces, nil)

	processed, err := matcher.Process(ctx, version, nil)
	if err != nil {
		t.Fatalf("Process should tolerate detector failure: %v", err)
	}
	if len(processed) != 0 {
		t.Fatalf("expected zero faces, got %d", len(processed))
	}
}

type recordingDetector struct {
	attempts    int
	hadDeadline bool
	err         error
}

func (r *recordingDetector) Detect(ctx context.Context, data []byte) ([]faces.Detection, error) {
	r.attempts++
	_, r.hadDeadline = ctx.Deadline()
	return nil, r.err
}

func TestProcessBoundsAndRetriesDetection(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	_, version := testsupport.NewAsset(t, st, "IMG_retry.jpg")
	detector := &recordingDetector{err: errors.New("model unavailable")}
	matcher := faces.NewMatcher(st, detector, cfg.Faces, nil)

	processed, err := matcher.Process(ctx, version, nil)
	if err != nil {
		t.Fatalf("Process should tolerate detector failure: %v", err)
	}
	if detector.attempts != 2 {
		t.Fatalf("expected a failed detection to be retried once, got %d attempts", detector.attempts)
	}
	if !detector.hadDeadline {
		t.Fatal("detector context should carry a deadline")
	}
	if len(processed) != 0 {
		t.Fatalf("expected zero faces, got %d", len(processed))
	}
}

func TestProcessSkipsVideo(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	_, version := testsupport.NewAsset(t, st, "clip.mp4", func(v *media.Version) {
		v.MIMEType = "video/mp4"
	})
	detector := &fakeDetector{detections: []faces.Detection{{Box: media.Rect{W: 10, H: 10}}}}
	matcher := faces.NewMatcher(st, detector, cfg.Faces, nil)

	processed, err := matcher.Process(context.Background(), version, nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if processed != nil {
		t.Fatalf("video should bypass detection, got %+v", processed)
	}
}

func TestBatchAssignCollectsPartialFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	matcher := faces.NewMatcher(st, nil, cfg.Faces, nil)
	ctx := context.Background()

	person := &media.Person{ID: uuid.NewString(), Name: "E"}
	if err := st.CreatePerson(ctx, person); err != nil {
		t.Fatalf("CreatePerson: %v", err)
	}
	_, version := testsupport.NewAsset(t, st, "IMG_batch.jpg")
	face := media.Face{ID: uuid.NewString(), Box: media.Rect{W: 40, H: 40}, Embedding: []float32{1, 0}}
	if err := st.ReplaceFaces(ctx, version.ID, []media.Face{face}); err != nil {
		t.Fatalf("ReplaceFaces: %v", err)
	}

	result, err := matcher.BatchAssign(ctx, []faces.Assignment{
		{FaceID: face.ID, PersonID: person.ID},
		{FaceID: "missing-face", PersonID: person.ID},
	})
	if err != nil {
		t.Fatalf("BatchAssign: %v", err)
	}
	if len(result.Applied) != 1 || result.Applied[0] != face.ID {
		t.Fatalf("unexpected applied %v", result.Applied)
	}
	if len(result.Failures) != 1 {
		t.Fatalf("expected 1 failure, got %v", result.Failures)
	}

	got, err := st.GetFace(ctx, face.ID)
	if err != nil {
		t.Fatalf("GetFace: %v", err)
	}
	if !got.Assigned() || *got.PersonID != person.ID {
		t.Fatalf("assignment not persisted: %+v", got)
	}
}

func TestIgnoreRemovesFaceFromSuggestions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	matcher := faces.NewMatcher(st, nil, cfg.Faces, nil)
	ctx := context.Background()

	person := &media.Person{ID: uuid.NewString(), Name: "F"}
	if err := st.CreatePerson(ctx, person); err != nil {
		t.Fatalf("CreatePerson: %v", err)
	}
	seedAssignedFaces(t, st, person.ID, 3, 0.96)

	_, probeVersion := testsupport.NewAsset(t, st, "IMG_ignore.jpg")
	probe := media.Face{ID: uuid.NewString(), Box: media.Rect{W: 40, H: 40}, Embedding: []float32{1, 0}}
	if err := st.ReplaceFaces(ctx, probeVersion.ID, []media.Face{probe}); err != nil {
		t.Fatalf("ReplaceFaces: %v", err)
	}

	if err := matcher.Ignore(ctx, probe.ID); err != nil {
		t.Fatalf("Ignore: %v", err)
	}
	suggestions, err := matcher.Suggestions(ctx)
	if err != nil {
		t.Fatalf("Suggestions: %v", err)
	}
	if len(suggestions) != 0 {
		t.Fatalf("ignored face should not be suggested: %+v", suggestions)
	}

	if err := matcher.Unignore(ctx, probe.ID); err != nil {
		t.Fatalf("Unignore: %v", err)
	}
	suggestions, err = matcher.Suggestions(ctx)
	if err != nil {
		t.Fatalf("Suggestions: %v", err)
	}
	if len(suggestions) != 1 {
		t.Fatalf("expected suggestion after unignore, got %d", len(suggestions))
	}
}
