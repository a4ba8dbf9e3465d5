// Package tiering owns the silver/gold state machine and the on-disk library
// layout. Silver files are immutable after ingest; promotion materializes a
// gold copy with metadata burned in, and demotion removes it again without
// ever touching the silver bytes.
package tiering

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"darkroom/internal/aimeta"
	"darkroom/internal/config"
	"darkroom/internal/exifdata"
	"darkroom/internal/faces"
	"darkroom/internal/imagehash"
	"darkroom/internal/logging"
	"darkroom/internal/media"
	"darkroom/internal/services"
	"darkroom/internal/store"
)

// Service moves versions between tiers and keeps the library layout
// consistent: <library>/<tier>/<year>/<month>/<filename>.
type Service struct {
	cfg          *config.Config
	store        *store.Store
	orchestrator *aimeta.Orchestrator
	matcher      *faces.Matcher
	logger       *slog.Logger
}

// NewService wires the tier state machine. Orchestrator and matcher may be
// nil for callers that only place files.
func NewService(cfg *config.Config, st *store.Store, orch *aimeta.Orchestrator, matcher *faces.Matcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{cfg: cfg, store: st, orchestrator: orch, matcher: matcher, logger: logger}
}

// TierDir returns the dated directory for a tier and capture time.
func (s *Service) TierDir(tier media.Tier, captureTime time.Time) string {
	return filepath.Join(s.cfg.Paths.LibraryDir, string(tier),
		captureTime.Format("2006"), captureTime.Format("01"))
}

// PlaceSilver writes incoming bytes into the silver layout, resolving name
// collisions with a numeric suffix. Returns the final path.
func (s *Service) PlaceSilver(data []byte, filename string, captureTime time.Time) (string, error) {
	dir := s.TierDir(media.TierSilver, captureTime)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create silver dir: %w", err)
	}
	name := aimeta.UniqueName(dir, "{original}", aimeta.NameContext{
		CaptureTime: captureTime,
		Original:    filename,
	})
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write silver file: %w", err)
	}
	return path, nil
}

// Promote copies an asset's silver version to gold with metadata burned in.
// Only a silver version that has not already been promoted qualifies.
func (s *Service) Promote(ctx context.Context, assetID string) (*media.Version, error) {
	silver, err := s.store.VersionForTier(ctx, assetID, media.TierSilver)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "tiering", "promote", assetID, err)
	}
	if silver == nil {
		return nil, services.Wrap(services.ErrInvalidTierTransition, "tiering", "promote",
			"no silver version for asset "+assetID, nil)
	}
	gold, err := s.store.VersionForTier(ctx, assetID, media.TierGold)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "tiering", "promote", assetID, err)
	}
	if gold != nil {
		return nil, services.Wrap(services.ErrInvalidTierTransition, "tiering", "promote",
			"asset "+assetID+" already has a gold version", nil)
	}

	data, err := os.ReadFile(silver.FilePath)
	if err != nil {
		return nil, services.Wrap(nil, "tiering", "promote", "read silver bytes", err)
	}

	meta := media.ParseMetadata(silver.MetadataJSON)
	captureTime := silver.CaptureTime
	if captureTime.IsZero() {
		captureTime = silver.CreatedAt
	}
	goldDir := s.TierDir(media.TierGold, captureTime)
	if err := os.MkdirAll(goldDir, 0o755); err != nil {
		return nil, services.Wrap(nil, "tiering", "promote", "create gold dir", err)
	}

	nc := aimeta.NameContext{
		CaptureTime: captureTime,
		Original:    filepath.Base(silver.FilePath),
	}
	if meta.AI != nil {
		nc.Description = meta.AI.ShortDescription
	}
	if meta.EXIF != nil {
		nc.Camera = meta.EXIF.CameraModel
	}
	goldName := aimeta.UniqueName(goldDir, s.cfg.AI.NamingPattern, nc)
	goldPath := filepath.Join(goldDir, goldName)

	goldBytes := burnIn(data, silver.MIMEType, silver.MetadataJSON)
	if err := os.WriteFile(goldPath, goldBytes, 0o644); err != nil {
		return nil, services.Wrap(nil, "tiering", "promote", "write gold file", err)
	}

	contentHash, err := imagehash.ContentHash(bytes.NewReader(goldBytes))
	if err != nil {
		_ = os.Remove(goldPath)
		return nil, services.Wrap(nil, "tiering", "promote", "hash gold bytes", err)
	}

	now := time.Now().UTC()
	goldVersion := &media.Version{
		ID:             uuid.NewString(),
		AssetID:        assetID,
		Tier:           media.TierGold,
		FilePath:       goldPath,
		ContentHash:    contentHash,
		PerceptualHash: silver.PerceptualHash,
		Size:           int64(len(goldBytes)),
		MIMEType:       silver.MIMEType,
		MetadataJSON:   silver.MetadataJSON,
		State:          media.StatePromoted,
		Rating:         silver.Rating,
		Keywords:       silver.Keywords,
		EventTags:      silver.EventTags,
		CaptureTime:    silver.CaptureTime,
	}
	entries := []media.HistoryEntry{
		{AssetID: assetID, Action: media.ActionPromoted, Detail: "promoted to gold as " + goldName, Timestamp: now},
		{AssetID: assetID, Action: media.ActionEmbedded, Detail: "metadata burned into gold copy", Timestamp: now},
	}
	silver.State = media.StatePromoted
	if err := s.store.PromoteVersions(ctx, goldVersion, silver, entries...); err != nil {
		_ = os.Remove(goldPath)
		return nil, services.Wrap(services.ErrPersistence, "tiering", "promote", "commit promotion", err)
	}

	s.logger.Info("promoted asset",
		logging.String(logging.FieldAssetID, assetID),
		logging.String("gold_path", goldPath))
	return goldVersion, nil
}

// Demote removes an asset's gold version and returns the silver version to
// the processed state. The silver metadata blob was never modified by
// promotion, so demotion restores it byte-for-byte by construction. An asset
// without a gold version has nothing to fall back to.
func (s *Service) Demote(ctx context.Context, assetID string) error {
	gold, err := s.store.VersionForTier(ctx, assetID, media.TierGold)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "tiering", "demote", assetID, err)
	}
	if gold == nil {
		return services.Wrap(services.ErrNoLowerVersionAvailable, "tiering", "demote",
			"asset "+assetID+" has no gold version", nil)
	}

	entry := media.HistoryEntry{
		AssetID: assetID,
		Action:  media.ActionDemoted,
		Detail:  "gold version removed, silver retained",
	}
	if err := s.store.DeleteVersion(ctx, gold.ID, entry); err != nil {
		return services.Wrap(services.ErrPersistence, "tiering", "demote", "delete gold version", err)
	}
	if err := os.Remove(gold.FilePath); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("gold file removal failed",
			logging.String(logging.FieldAssetID, assetID),
			logging.Error(err))
	}

	silver, err := s.store.VersionForTier(ctx, assetID, media.TierSilver)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "tiering", "demote", assetID, err)
	}
	if silver != nil && silver.State == media.StatePromoted {
		silver.State = media.StateProcessed
		if err := s.store.UpdateVersion(ctx, silver); err != nil {
			return services.Wrap(services.ErrPersistence, "tiering", "demote", "restore silver state", err)
		}
	}

	s.logger.Info("demoted asset", logging.String(logging.FieldAssetID, assetID))
	return nil
}

// Reprocess re-runs metadata extraction, AI analysis, and face matching
// against a version's existing bytes. The file path and bytes are untouched;
// only the metadata blob, review flag, and face set change.
func (s *Service) Reprocess(ctx context.Context, versionID string) error {
	version, err := s.store.GetVersion(ctx, versionID)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "tiering", "reprocess", versionID, err)
	}
	if version == nil {
		return services.Wrap(services.ErrNotFound, "tiering", "reprocess", "version "+versionID, nil)
	}

	data, err := os.ReadFile(version.FilePath)
	if err != nil {
		return services.Wrap(nil, "tiering", "reprocess", "read bytes", err)
	}

	meta := media.Metadata{EXIF: exifdata.Extract(data)}

	var faceSet []media.Face
	if s.matcher != nil {
		faceSet, err = s.matcher.Process(ctx, version, data)
		if err != nil {
			return err
		}
	}

	if s.orchestrator != nil && !version.IsVideo() {
		people, err := s.peopleContext(ctx, faceSet, version.CaptureTime)
		if err != nil {
			return err
		}
		meta.AI = s.orchestrator.Analyze(ctx, aimeta.Request{
			Data:        data,
			MIMEType:    version.MIMEType,
			Filename:    filepath.Base(version.FilePath),
			CaptureTime: version.CaptureTime,
			EXIF:        meta.EXIF,
			People:      people,
		})
		version.Keywords = meta.AI.Tags
	}

	meta.Faces = faceBlock(faceSet)

	encoded, err := meta.Encode()
	if err != nil {
		return services.Wrap(nil, "tiering", "reprocess", "encode metadata", err)
	}
	version.MetadataJSON = encoded
	version.NeedsReview = false
	if version.State == media.StateUnprocessed {
		version.State = media.StateProcessed
	}

	entry := media.HistoryEntry{
		AssetID: version.AssetID,
		Action:  media.ActionReprocessed,
		Detail:  "metadata and faces refreshed",
	}
	if err := s.store.UpdateVersion(ctx, version, entry); err != nil {
		return services.Wrap(services.ErrPersistence, "tiering", "reprocess", "update version", err)
	}
	return nil
}

// peopleContext resolves assigned faces to person names and ages at capture.
func (s *Service) peopleContext(ctx context.Context, faceSet []media.Face, captureTime time.Time) ([]aimeta.PersonContext, error) {
	var people []aimeta.PersonContext
	seen := make(map[string]bool)
	for i := range faceSet {
		face := &faceSet[i]
		if !face.Assigned() || seen[*face.PersonID] {
			continue
		}
		seen[*face.PersonID] = true
		person, err := s.store.GetPerson(ctx, *face.PersonID)
		if err != nil {
			return nil, services.Wrap(services.ErrPersistence, "tiering", "reprocess", "resolve person", err)
		}
		if person == nil {
			continue
		}
		age := -1
		if !captureTime.IsZero() {
			age = person.AgeAt(captureTime)
		}
		people = append(people, aimeta.PersonContext{Name: person.Name, Age: age})
	}
	return people, nil
}

func faceBlock(faceSet []media.Face) *media.FaceBlock {
	if len(faceSet) == 0 {
		return nil
	}
	block := &media.FaceBlock{Count: len(faceSet)}
	seen := make(map[string]bool)
	for i := range faceSet {
		face := &faceSet[i]
		if face.Assigned() && !seen[*face.PersonID] {
			seen[*face.PersonID] = true
			block.PersonIDs = append(block.PersonIDs, *face.PersonID)
		}
	}
	return block
}

// jpegMetaMarker introduces the metadata chunk appended after the JPEG end
// marker. Decoders stop at EOI, so trailing bytes are ignored.
var jpegMetaMarker = []byte("\nDARKROOM-META ")

// burnIn embeds the metadata blob into the gold copy for formats that
// tolerate trailing bytes; everything else gets a plain copy.
func burnIn(data []byte, mimeType, metadataJSON string) []byte {
	if mimeType != "image/jpeg" || metadataJSON == "" {
		return data
	}
	out := make([]byte, 0, len(data)+len(jpegMetaMarker)+len(metadataJSON))
	out = append(out, data...)
	out = append(out, jpegMetaMarker...)
	out = append(out, metadataJSON...)
	return out
}
