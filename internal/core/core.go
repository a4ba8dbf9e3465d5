// Package core is the facade the daemon and CLI drive: ingestion, tier
// transitions, burst analysis, face assignment, and history reads, all under
// a single-writer-per-asset discipline.
package core

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"darkroom/internal/aimeta"
	"darkroom/internal/burst"
	"darkroom/internal/config"
	"darkroom/internal/dedupe"
	"darkroom/internal/exifdata"
	"darkroom/internal/faces"
	"darkroom/internal/logging"
	"darkroom/internal/media"
	"darkroom/internal/notifications"
	"darkroom/internal/services"
	"darkroom/internal/store"
	"darkroom/internal/tiering"
	"darkroom/internal/workflow"
)

// Options carries the injectable collaborators of the service. Every field
// is optional; tests swap in fakes, the daemon wires real implementations.
type Options struct {
	Providers    []aimeta.Provider
	FaceDetector faces.Detector
	Notifier     notifications.Service
	Logger       *slog.Logger
}

// Service exposes the media-processing core.
type Service struct {
	cfg          *config.Config
	store        *store.Store
	detector     *dedupe.Detector
	grouper      *burst.Grouper
	matcher      *faces.Matcher
	orchestrator *aimeta.Orchestrator
	tiers        *tiering.Service
	locks        *workflow.AssetLocks
	notifier     notifications.Service
	logger       *slog.Logger
}

// New wires the full processing core. Call Warm before serving traffic so
// the duplicate detector sees existing versions.
func New(cfg *config.Config, st *store.Store, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}

	matcher := faces.NewMatcher(st, opts.FaceDetector, cfg.Faces,
		logging.NewComponentLogger(logger, "faces"))
	orchestrator := aimeta.NewOrchestrator(opts.Providers, cfg.AI,
		logging.NewComponentLogger(logger, "aimeta"))
	return &Service{
		cfg:          cfg,
		store:        st,
		detector:     dedupe.NewDetector(st, cfg.Ingest.ConflictThreshold),
		grouper:      burst.NewGrouper(st, cfg.Burst),
		matcher:      matcher,
		orchestrator: orchestrator,
		tiers: tiering.NewService(cfg, st, orchestrator, matcher,
			logging.NewComponentLogger(logger, "tiering")),
		locks:    workflow.NewAssetLocks(cfg.Workers.Shards),
		notifier: notifier,
		logger:   logger,
	}
}

// Warm loads the perceptual index from the store.
func (s *Service) Warm(ctx context.Context) error {
	return s.detector.Load(ctx)
}

// IngestStatus classifies the outcome of one ingestion.
type IngestStatus string

const (
	IngestAccepted IngestStatus = "accepted"
	IngestSkipped  IngestStatus = "skipped"
	IngestConflict IngestStatus = "conflict"
)

// IngestResult reports what happened to one uploaded file.
type IngestResult struct {
	Status    IngestStatus
	AssetID   string
	VersionID string
	// DuplicateOf names the existing version for exact duplicates.
	DuplicateOf string
	// Conflicts lists visually identical versions awaiting a human choice.
	Conflicts []dedupe.Conflict
}

// Ingest runs the full pipeline for one file: duplicate check, silver
// placement, metadata enrichment, face detection. Exact duplicates are
// skipped silently; visual conflicts are returned for human resolution
// without persisting anything.
func (s *Service) Ingest(ctx context.Context, data []byte, filename string) (*IngestResult, error) {
	check, err := s.detector.Check(ctx, data, filename)
	if err != nil {
		return nil, err
	}

	switch check.Status {
	case dedupe.StatusSkipped:
		return &IngestResult{
			Status:      IngestSkipped,
			AssetID:     check.DuplicateOf.AssetID,
			DuplicateOf: check.DuplicateOf.ID,
		}, nil
	case dedupe.StatusConflict:
		if err := s.notifier.NotifyReviewNeeded(ctx, filename, "visual duplicate conflict"); err != nil {
			s.logger.Warn("review notification failed", logging.Error(err))
		}
		return &IngestResult{Status: IngestConflict, Conflicts: check.Conflicts}, nil
	}

	exif := exifdata.Extract(data)
	now := time.Now().UTC()
	captureTime := media.ResolveCaptureTime(exif, filename, now)

	assetID := uuid.NewString()
	ctx = services.WithAssetID(ctx, assetID)
	var result *IngestResult
	err = s.locks.WithLock(assetID, func() error {
		path, err := s.tiers.PlaceSilver(data, filename, captureTime)
		if err != nil {
			return services.Wrap(nil, "core", "ingest", "place silver", err)
		}

		meta := media.Metadata{EXIF: exif}
		blob, err := meta.Encode()
		if err != nil {
			return services.Wrap(nil, "core", "ingest", "encode metadata", err)
		}

		asset := &media.Asset{ID: assetID, OriginalFilename: filename, CreatedAt: now}
		version := &media.Version{
			ID:             uuid.NewString(),
			AssetID:        assetID,
			Tier:           media.TierSilver,
			FilePath:       path,
			ContentHash:    check.ContentHash,
			PerceptualHash: check.PerceptualHash,
			Size:           int64(len(data)),
			MIMEType:       check.MIMEType,
			MetadataJSON:   blob,
			State:          media.StateUnprocessed,
			CaptureTime:    captureTime,
		}
		if err := s.store.CreateAssetWithVersion(ctx, asset, version, "ingested "+filename); err != nil {
			return services.Wrap(services.ErrPersistence, "core", "ingest", "create asset", err)
		}

		if err := s.enrich(ctx, version, data); err != nil {
			s.logger.Warn("enrichment failed",
				logging.String(logging.FieldAssetID, assetID),
				logging.Error(err))
		}

		s.detector.Publish(version)
		result = &IngestResult{Status: IngestAccepted, AssetID: assetID, VersionID: version.ID}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.WithContext(ctx, s.logger).Info("ingested file",
		logging.String("filename", filename))
	return result, nil
}

// enrich fills the AI and face blocks for a freshly ingested version.
// Failures leave the version with EXIF-only metadata; reprocess can fill in
// the rest later.
func (s *Service) enrich(ctx context.Context, version *media.Version, data []byte) error {
	meta := media.ParseMetadata(version.MetadataJSON)

	faceSet, err := s.matcher.Process(ctx, version, data)
	if err != nil {
		return err
	}
	if len(faceSet) > 0 {
		meta.Faces = &media.FaceBlock{Count: len(faceSet)}
	}

	if !version.IsVideo() {
		meta.AI = s.orchestrator.Analyze(ctx, aimeta.Request{
			Data:        data,
			MIMEType:    version.MIMEType,
			Filename:    filepath.Base(version.FilePath),
			CaptureTime: version.CaptureTime,
			EXIF:        meta.EXIF,
		})
		version.Keywords = meta.AI.Tags
	}

	blob, err := meta.Encode()
	if err != nil {
		return services.Wrap(nil, "core", "enrich", "encode metadata", err)
	}
	version.MetadataJSON = blob
	version.State = media.StateProcessed
	if err := s.store.UpdateVersion(ctx, version); err != nil {
		return services.Wrap(services.ErrPersistence, "core", "enrich", version.ID, err)
	}
	return nil
}

// IngestFile pairs bytes with their original filename for batch ingestion.
type IngestFile struct {
	Data     []byte
	Filename string
}

// BatchIngestResult collects per-file outcomes. Failures are keyed by the
// index into the input slice, since staged filenames are not unique.
type BatchIngestResult struct {
	Results  []*IngestResult
	Failures map[int]error
}

// IngestBatch ingests files concurrently across assets. Per-file failures
// are collected; only persistence unavailability aborts the batch.
func (s *Service) IngestBatch(ctx context.Context, files []IngestFile) (*BatchIngestResult, error) {
	batch := &BatchIngestResult{
		Results:  make([]*IngestResult, len(files)),
		Failures: make(map[int]error),
	}

	tasks := make([]workflow.Task, len(files))
	for i := range files {
		idx := i
		file := files[i]
		// Each file gets a synthetic lock key; the real asset id is only
		// known once accepted, and Ingest re-locks under it.
		tasks[i] = workflow.Task{
			AssetID: file.Filename,
			Run: func(taskCtx context.Context) error {
				result, err := s.Ingest(taskCtx, file.Data, file.Filename)
				if err != nil {
					return err
				}
				batch.Results[idx] = result
				return nil
			},
		}
	}

	pool := workflow.NewAssetLocks(s.cfg.Workers.Shards)
	for i, taskResult := range workflow.RunPool(ctx, s.cfg.Workers.Concurrency, pool, tasks) {
		if taskResult.Err == nil {
			continue
		}
		if services.IsFatal(taskResult.Err) {
			return batch, taskResult.Err
		}
		batch.Failures[i] = taskResult.Err
	}

	accepted, skipped, conflicts := 0, 0, 0
	for _, result := range batch.Results {
		if result == nil {
			continue
		}
		switch result.Status {
		case IngestAccepted:
			accepted++
		case IngestSkipped:
			skipped++
		case IngestConflict:
			conflicts++
		}
	}
	if err := s.notifier.NotifyIngestCompleted(ctx, accepted, skipped, conflicts); err != nil {
		s.logger.Warn("ingest notification failed", logging.Error(err))
	}
	return batch, nil
}

// Promote moves an asset's silver version to gold.
func (s *Service) Promote(ctx context.Context, assetID string) (*media.Version, error) {
	var gold *media.Version
	err := s.locks.WithLock(assetID, func() error {
		var err error
		gold, err = s.tiers.Promote(ctx, assetID)
		return err
	})
	if err != nil {
		return nil, err
	}

	asset, err := s.store.GetAsset(ctx, assetID)
	if err == nil && asset != nil {
		if notifyErr := s.notifier.NotifyPromotionCompleted(ctx, asset.OriginalFilename, filepath.Base(gold.FilePath)); notifyErr != nil {
			s.logger.Warn("promotion notification failed", logging.Error(notifyErr))
		}
	}
	return gold, nil
}

// BatchPromoteResult collects per-asset promotion outcomes.
type BatchPromoteResult struct {
	Promoted map[string]*media.Version
	Failures map[string]error
}

// PromoteAll promotes assets concurrently. Per-asset failures are collected;
// only persistence unavailability aborts the batch.
func (s *Service) PromoteAll(ctx context.Context, assetIDs []string) (*BatchPromoteResult, error) {
	batch := &BatchPromoteResult{
		Promoted: make(map[string]*media.Version, len(assetIDs)),
		Failures: make(map[string]error),
	}

	golds := make([]*media.Version, len(assetIDs))
	tasks := make([]workflow.Task, len(assetIDs))
	for i, assetID := range assetIDs {
		idx := i
		id := assetID
		tasks[i] = workflow.Task{
			AssetID: id,
			Run: func(taskCtx context.Context) error {
				gold, err := s.Promote(taskCtx, id)
				if err != nil {
					return err
				}
				golds[idx] = gold
				return nil
			},
		}
	}

	// Promote locks the shared per-asset table itself, so the pool runs on
	// a scratch table to avoid re-entering the same shard.
	pool := workflow.NewAssetLocks(s.cfg.Workers.Shards)
	for i, taskResult := range workflow.RunPool(ctx, s.cfg.Workers.Concurrency, pool, tasks) {
		if taskResult.Err != nil {
			if services.IsFatal(taskResult.Err) {
				return batch, taskResult.Err
			}
			batch.Failures[taskResult.AssetID] = taskResult.Err
			continue
		}
		batch.Promoted[taskResult.AssetID] = golds[i]
	}
	return batch, nil
}

// Demote removes an asset's gold version, falling back to silver.
func (s *Service) Demote(ctx context.Context, assetID string) error {
	return s.locks.WithLock(assetID, func() error {
		return s.tiers.Demote(ctx, assetID)
	})
}

// Reprocess re-runs enrichment against a version's existing bytes.
func (s *Service) Reprocess(ctx context.Context, versionID string) error {
	version, err := s.store.GetVersion(ctx, versionID)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "core", "reprocess", versionID, err)
	}
	if version == nil {
		return services.Wrap(services.ErrNotFound, "core", "reprocess", "version "+versionID, nil)
	}
	return s.locks.WithLock(version.AssetID, func() error {
		return s.tiers.Reprocess(ctx, versionID)
	})
}

// AnalyzeBurstCandidates clusters the given assets into burst groups. Each
// asset is represented by its highest-tier version.
func (s *Service) AnalyzeBurstCandidates(ctx context.Context, assetIDs []string) ([]burst.Group, error) {
	versions, err := s.store.VersionsForAssets(ctx, assetIDs)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "core", "bursts", "load versions", err)
	}

	best := make(map[string]*media.Version, len(assetIDs))
	for _, version := range versions {
		current := best[version.AssetID]
		if current == nil || version.Tier.Rank() > current.Tier.Rank() {
			best[version.AssetID] = version
		}
	}

	candidates := make([]burst.Candidate, 0, len(best))
	for _, version := range best {
		captureTime := version.CaptureTime
		if captureTime.IsZero() {
			captureTime = version.CreatedAt
		}
		meta := media.ParseMetadata(version.MetadataJSON)
		confidence := 0.0
		if meta.AI != nil {
			confidence = meta.AI.Confidence
		}
		candidates = append(candidates, burst.Candidate{
			AssetID:      version.AssetID,
			VersionID:    version.ID,
			Filename:     filepath.Base(version.FilePath),
			Tier:         version.Tier,
			CaptureTime:  captureTime,
			Tags:         append(append([]string{}, version.Keywords...), version.EventTags...),
			AIConfidence: confidence,
		})
	}

	return s.grouper.Analyze(candidates), nil
}

// ResolveBurst applies a keep/sweep decision to an analyzed group.
func (s *Service) ResolveBurst(ctx context.Context, groupID string, selectedAssetIDs []string) (*burst.ResolveResult, error) {
	return s.grouper.Resolve(ctx, groupID, selectedAssetIDs)
}

// SuggestFaceAssignments proposes identities for unassigned faces.
func (s *Service) SuggestFaceAssignments(ctx context.Context) ([]faces.Suggestion, error) {
	return s.matcher.Suggestions(ctx)
}

// AssignFace attaches or, with a nil person, detaches a face.
func (s *Service) AssignFace(ctx context.Context, faceID string, personID *string) error {
	if personID == nil {
		return s.matcher.Unassign(ctx, faceID)
	}
	return s.matcher.Assign(ctx, faceID, *personID)
}

// BatchAssignFaces applies assignments with per-item failure collection.
func (s *Service) BatchAssignFaces(ctx context.Context, assignments []faces.Assignment) (*faces.BatchResult, error) {
	return s.matcher.BatchAssign(ctx, assignments)
}

// IgnoreFace excludes a face from matching; UnignoreFace restores it.
func (s *Service) IgnoreFace(ctx context.Context, faceID string) error {
	return s.matcher.Ignore(ctx, faceID)
}

// UnignoreFace returns a face to the matching pool.
func (s *Service) UnignoreFace(ctx context.Context, faceID string) error {
	return s.matcher.Unignore(ctx, faceID)
}

// CreatePerson registers a new identity for face assignment.
func (s *Service) CreatePerson(ctx context.Context, name string, birthdate *time.Time) (*media.Person, error) {
	person := &media.Person{
		ID:        uuid.NewString(),
		Name:      name,
		Birthdate: birthdate,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreatePerson(ctx, person); err != nil {
		return nil, services.Wrap(services.ErrPersistence, "core", "persons", "create "+name, err)
	}
	return person, nil
}

// ListPersons returns all known identities ordered by name.
func (s *Service) ListPersons(ctx context.Context) ([]*media.Person, error) {
	return s.store.ListPersons(ctx)
}

// DeletePerson removes an identity. Faces assigned to it revert to
// unassigned rather than dangling.
func (s *Service) DeletePerson(ctx context.Context, personID string) error {
	return s.store.DeletePerson(ctx, personID)
}

// Versions lists an asset's stored versions ordered silver first.
func (s *Service) Versions(ctx context.Context, assetID string) ([]*media.Version, error) {
	return s.store.VersionsForAsset(ctx, assetID)
}

// History returns the asset's full ledger, oldest first.
func (s *Service) History(ctx context.Context, assetID string) ([]media.HistoryEntry, error) {
	return s.store.History(ctx, assetID)
}

// TestNotification sends a test push through the configured channel.
func (s *Service) TestNotification(ctx context.Context) error {
	return s.notifier.TestNotification(ctx)
}

// Status aggregates version counts per tier and state.
func (s *Service) Status(ctx context.Context) (map[media.Tier]map[media.State]int, error) {
	return s.store.TierStateCounts(ctx)
}
