// Package faces runs face detection results through the catalog: carrying
// assignments across reprocessing, suggesting identities for unknown faces,
// and applying manual assignment decisions.
package faces

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"darkroom/internal/config"
	"darkroom/internal/imagehash"
	"darkroom/internal/logging"
	"darkroom/internal/media"
	"darkroom/internal/services"
	"darkroom/internal/store"
)

// Detection is one face reported by a detector backend.
type Detection struct {
	Box        media.Rect
	Confidence float64
	Embedding  []float32
}

// Detector produces face detections for raw image bytes. Implementations
// wrap external models or services; tests inject fakes.
type Detector interface {
	Detect(ctx context.Context, data []byte) ([]Detection, error)
}

// PersonCandidate is one suggested identity for a face.
type PersonCandidate struct {
	PersonID string
	// Confidence is the mean cosine similarity expressed as a percentage.
	Confidence int
	// Support counts the assigned faces backing the suggestion.
	Support int
}

// Suggestion pairs an unassigned face with its ranked identity candidates.
type Suggestion struct {
	FaceID     string
	VersionID  string
	Candidates []PersonCandidate
}

// Assignment is one face-to-person decision in a batch.
type Assignment struct {
	FaceID   string
	PersonID string
}

// BatchResult collects per-assignment outcomes; one invalid assignment never
// blocks the rest.
type BatchResult struct {
	Applied  []string
	Failures map[string]error
}

// Matcher owns face persistence and identity suggestion.
type Matcher struct {
	store    *store.Store
	detector Detector
	cfg      config.Faces
	timeout  time.Duration
	logger   *slog.Logger
}

// NewMatcher builds a matcher around a detector backend. A nil logger is
// replaced with a no-op logger.
func NewMatcher(st *store.Store, detector Detector, cfg config.Faces, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	timeout := time.Duration(cfg.DetectTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Matcher{store: st, detector: detector, cfg: cfg, timeout: timeout, logger: logger}
}

// Process detects faces in the version's bytes and replaces its stored face
// set. Each detector call is bounded by the configured timeout and retried
// once; failure after that is non-fatal and the version simply keeps zero
// faces.
// Assignments and ignore flags from the previous face set carry forward to
// any new face whose box overlaps an old one at or above the configured IoU.
func (m *Matcher) Process(ctx context.Context, version *media.Version, data []byte) ([]media.Face, error) {
	if version.IsVideo() {
		return nil, nil
	}

	var detections []Detection
	if m.detector != nil {
		var err error
		detections, err = m.detect(ctx, data)
		if err != nil {
			m.logger.Warn("face detection failed",
				logging.String(logging.FieldAssetID, version.AssetID),
				logging.Error(err))
			detections = nil
		}
	}

	previous, err := m.store.FacesForVersion(ctx, version.ID)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "faces", "process", "load prior faces", err)
	}

	now := time.Now().UTC()
	next := make([]media.Face, 0, len(detections))
	for _, det := range detections {
		face := media.Face{
			ID:         uuid.NewString(),
			VersionID:  version.ID,
			Box:        det.Box,
			Confidence: det.Confidence,
			Embedding:  det.Embedding,
			CreatedAt:  now,
		}
		if prior := bestOverlap(previous, det.Box, m.cfg.OverlapThreshold); prior != nil {
			face.PersonID = prior.PersonID
			face.Ignored = prior.Ignored
		}
		next = append(next, face)
	}

	if err := m.store.ReplaceFaces(ctx, version.ID, next); err != nil {
		return nil, services.Wrap(services.ErrPersistence, "faces", "process", "replace faces", err)
	}
	return next, nil
}

// detect runs the detector with a bounded per-attempt timeout and one retry.
func (m *Matcher) detect(ctx context.Context, data []byte) ([]Detection, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, m.timeout)
		detections, err := m.detector.Detect(attemptCtx, data)
		cancel()
		if err == nil {
			return detections, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, services.Wrap(services.ErrDetectionFailure, "faces", "detect", "", lastErr)
}

// Suggestions proposes identities for every unassigned, non-ignored face.
// A person qualifies when enough of their assigned faces resemble the
// candidate and the mean similarity clears the suggestion floor.
func (m *Matcher) Suggestions(ctx context.Context) ([]Suggestion, error) {
	unassigned, err := m.store.UnassignedFaces(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "faces", "suggestions", "load unassigned", err)
	}
	assigned, err := m.store.AssignedFaces(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "faces", "suggestions", "load assigned", err)
	}

	var suggestions []Suggestion
	for _, face := range unassigned {
		if len(face.Embedding) == 0 {
			continue
		}
		candidates := m.rankCandidates(face, assigned)
		if len(candidates) == 0 {
			continue
		}
		suggestions = append(suggestions, Suggestion{
			FaceID:     face.ID,
			VersionID:  face.VersionID,
			Candidates: candidates,
		})
	}
	return suggestions, nil
}

func (m *Matcher) rankCandidates(face *media.Face, assigned []*media.Face) []PersonCandidate {
	type tally struct {
		sum   float64
		count int
	}
	byPerson := make(map[string]*tally)
	for _, other := range assigned {
		if !other.Assigned() || len(other.Embedding) == 0 {
			continue
		}
		sim := imagehash.Cosine(face.Embedding, other.Embedding)
		if sim < m.cfg.MatchThreshold {
			continue
		}
		entry := byPerson[*other.PersonID]
		if entry == nil {
			entry = &tally{}
			byPerson[*other.PersonID] = entry
		}
		entry.sum += sim
		entry.count++
	}

	var candidates []PersonCandidate
	for personID, entry := range byPerson {
		mean := entry.sum / float64(entry.count)
		if entry.count < m.cfg.MinSupport || mean < m.cfg.SuggestThreshold {
			continue
		}
		candidates = append(candidates, PersonCandidate{
			PersonID:   personID,
			Confidence: int(math.Round(mean * 100)),
			Support:    entry.count,
		})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		return candidates[i].PersonID < candidates[j].PersonID
	})
	if len(candidates) > m.cfg.MaxSuggestions {
		candidates = candidates[:m.cfg.MaxSuggestions]
	}
	return candidates
}

// Assign attaches a face to a person after validating both exist.
func (m *Matcher) Assign(ctx context.Context, faceID, personID string) error {
	face, err := m.store.GetFace(ctx, faceID)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "faces", "assign", faceID, err)
	}
	if face == nil {
		return services.Wrap(services.ErrNotFound, "faces", "assign", "face "+faceID, nil)
	}
	person, err := m.store.GetPerson(ctx, personID)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "faces", "assign", personID, err)
	}
	if person == nil {
		return services.Wrap(services.ErrNotFound, "faces", "assign", "person "+personID, nil)
	}
	if err := m.store.SetFaceAssignment(ctx, faceID, &personID); err != nil {
		return services.Wrap(services.ErrPersistence, "faces", "assign", faceID, err)
	}
	return nil
}

// Unassign clears a face's person reference.
func (m *Matcher) Unassign(ctx context.Context, faceID string) error {
	if err := m.store.SetFaceAssignment(ctx, faceID, nil); err != nil {
		return services.Wrap(services.ErrPersistence, "faces", "unassign", faceID, err)
	}
	return nil
}

// Ignore excludes a face from matching and suggestions.
func (m *Matcher) Ignore(ctx context.Context, faceID string) error {
	if err := m.store.SetFaceIgnored(ctx, faceID, true); err != nil {
		return services.Wrap(services.ErrPersistence, "faces", "ignore", faceID, err)
	}
	return nil
}

// Unignore returns a face to the matching pool.
func (m *Matcher) Unignore(ctx context.Context, faceID string) error {
	if err := m.store.SetFaceIgnored(ctx, faceID, false); err != nil {
		return services.Wrap(services.ErrPersistence, "faces", "unignore", faceID, err)
	}
	return nil
}

// BatchAssign applies assignments one by one, collecting per-item failures.
// Only persistence-layer unavailability aborts the batch.
func (m *Matcher) BatchAssign(ctx context.Context, assignments []Assignment) (*BatchResult, error) {
	result := &BatchResult{Failures: make(map[string]error)}
	for _, assignment := range assignments {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := m.Assign(ctx, assignment.FaceID, assignment.PersonID); err != nil {
			if services.IsFatal(err) {
				return result, err
			}
			result.Failures[assignment.FaceID] = err
			continue
		}
		result.Applied = append(result.Applied, assignment.FaceID)
	}
	return result, nil
}

// bestOverlap returns the prior face with the highest box overlap at or
// above the threshold, preferring faces that carry an assignment.
func bestOverlap(previous []*media.Face, box media.Rect, threshold float64) *media.Face {
	var best *media.Face
	bestScore := threshold
	for _, prior := range previous {
		if !prior.Assigned() && !prior.Ignored {
			continue
		}
		score := imagehash.IoU(prior.Box, box)
		if score >= bestScore {
			best = prior
			bestScore = score
		}
	}
	return best
}
