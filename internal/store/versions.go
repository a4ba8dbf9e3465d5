package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"darkroom/internal/media"
)

const versionColumns = `id, asset_id, tier, file_path, content_hash, perceptual_hash, size,
    mime_type, metadata_json, needs_review, state, rating, keywords, event_tags,
    capture_time, created_at, updated_at`

// InsertVersion inserts a version row, optionally appending ledger entries in
// the same transaction so the state change and its audit record commit
// together.
func (s *Store) InsertVersion(ctx context.Context, version *media.Version, entries ...media.HistoryEntry) error {
	if version == nil {
		return errors.New("version is nil")
	}
	now := time.Now().UTC()
	if version.CreatedAt.IsZero() {
		version.CreatedAt = now
	}
	version.UpdatedAt = now

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := insertVersionTx(ctx, tx, version); err != nil {
			return err
		}
		return appendHistoryTx(ctx, tx, entries)
	})
}

// CreateAssetWithVersion atomically inserts an asset, its first version, and
// the INGESTED ledger entry.
func (s *Store) CreateAssetWithVersion(ctx context.Context, asset *media.Asset, version *media.Version, detail string) error {
	if asset == nil || version == nil {
		return errors.New("asset and version are required")
	}
	now := time.Now().UTC()
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = now
	}
	if version.CreatedAt.IsZero() {
		version.CreatedAt = now
	}
	version.UpdatedAt = now
	version.AssetID = asset.ID

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO assets (id, original_filename, created_at) VALUES (?, ?, ?)`,
			asset.ID, asset.OriginalFilename, formatTime(asset.CreatedAt),
		); err != nil {
			return fmt.Errorf("insert asset: %w", err)
		}
		if err := insertVersionTx(ctx, tx, version); err != nil {
			return err
		}
		return appendHistoryTx(ctx, tx, []media.HistoryEntry{{
			AssetID:   asset.ID,
			Action:    media.ActionIngested,
			Detail:    detail,
			Timestamp: now,
		}})
	})
}

// UpdateVersion persists mutable version fields (metadata blob, flags, state,
// rating, tags). File path, hashes, and tier are fixed after insert.
func (s *Store) UpdateVersion(ctx context.Context, version *media.Version, entries ...media.HistoryEntry) error {
	if version == nil {
		return errors.New("version is nil")
	}
	version.UpdatedAt = time.Now().UTC()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := updateVersionTx(ctx, tx, version); err != nil {
			return err
		}
		return appendHistoryTx(ctx, tx, entries)
	})
}

// PromoteVersions commits a promotion atomically: the gold version insert, the
// silver state flip, and the ledger entries land in one transaction, so a
// failure on any step leaves the catalog unchanged.
func (s *Store) PromoteVersions(ctx context.Context, gold, silver *media.Version, entries ...media.HistoryEntry) error {
	if gold == nil || silver == nil {
		return errors.New("gold and silver versions are required")
	}
	now := time.Now().UTC()
	if gold.CreatedAt.IsZero() {
		gold.CreatedAt = now
	}
	gold.UpdatedAt = now
	silver.UpdatedAt = now

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := insertVersionTx(ctx, tx, gold); err != nil {
			return err
		}
		if err := updateVersionTx(ctx, tx, silver); err != nil {
			return err
		}
		return appendHistoryTx(ctx, tx, entries)
	})
}

// DeleteVersion removes a version row and its faces, appending ledger entries
// in the same transaction.
func (s *Store) DeleteVersion(ctx context.Context, versionID string, entries ...media.HistoryEntry) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM faces WHERE version_id = ?`, versionID); err != nil {
			return fmt.Errorf("delete faces: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM versions WHERE id = ?`, versionID)
		if err != nil {
			return fmt.Errorf("delete version: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("version %s not found", versionID)
		}
		return appendHistoryTx(ctx, tx, entries)
	})
}

// GetVersion fetches a version by identifier; nil when absent.
func (s *Store) GetVersion(ctx context.Context, id string) (*media.Version, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+versionColumns+` FROM versions WHERE id = ?`, id)
	version, err := scanVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get version: %w", err)
	}
	return version, nil
}

// VersionForTier returns the asset's version at the given tier, nil when absent.
func (s *Store) VersionForTier(ctx context.Context, assetID string, tier media.Tier) (*media.Version, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+versionColumns+` FROM versions WHERE asset_id = ? AND tier = ?`, assetID, string(tier))
	version, err := scanVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("version for tier: %w", err)
	}
	return version, nil
}

// VersionsForAsset returns all versions of one asset ordered by tier rank.
func (s *Store) VersionsForAsset(ctx context.Context, assetID string) ([]*media.Version, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+versionColumns+` FROM versions WHERE asset_id = ? ORDER BY tier`, assetID)
	if err != nil {
		return nil, fmt.Errorf("versions for asset: %w", err)
	}
	return collectVersions(rows)
}

// VersionsForAssets returns all versions for the given asset ids.
func (s *Store) VersionsForAssets(ctx context.Context, assetIDs []string) ([]*media.Version, error) {
	if len(assetIDs) == 0 {
		return nil, nil
	}
	args := make([]any, len(assetIDs))
	for i, id := range assetIDs {
		args[i] = id
	}
	query := `SELECT ` + versionColumns + ` FROM versions WHERE asset_id IN (` +
		makePlaceholders(len(assetIDs)) + `) ORDER BY capture_time, id`
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("versions for assets: %w", err)
	}
	return collectVersions(rows)
}

// FindVersionByContentHash returns the first version with an exact content
// hash match, nil when none exists.
func (s *Store) FindVersionByContentHash(ctx context.Context, hash string) (*media.Version, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+versionColumns+` FROM versions WHERE content_hash = ? ORDER BY created_at LIMIT 1`, hash)
	version, err := scanVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by content hash: %w", err)
	}
	return version, nil
}

// VersionsWithPerceptualHash returns every version carrying a perceptual hash.
func (s *Store) VersionsWithPerceptualHash(ctx context.Context) ([]*media.Version, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+versionColumns+` FROM versions WHERE perceptual_hash IS NOT NULL ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("versions with perceptual hash: %w", err)
	}
	return collectVersions(rows)
}

// TierStateCounts aggregates version counts keyed by tier then state.
func (s *Store) TierStateCounts(ctx context.Context) (map[media.Tier]map[media.State]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT tier, state, COUNT(1) FROM versions GROUP BY tier, state`)
	if err != nil {
		return nil, fmt.Errorf("tier state counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[media.Tier]map[media.State]int)
	for rows.Next() {
		var (
			tierStr  string
			stateStr string
			count    int
		)
		if err := rows.Scan(&tierStr, &stateStr, &count); err != nil {
			return nil, err
		}
		tier := media.Tier(tierStr)
		if counts[tier] == nil {
			counts[tier] = make(map[media.State]int)
		}
		counts[tier][media.State(stateStr)] = count
	}
	return counts, rows.Err()
}

func insertVersionTx(ctx context.Context, tx *sql.Tx, version *media.Version) error {
	keywords, eventTags, err := encodeTags(version)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO versions (
            id, asset_id, tier, file_path, content_hash, perceptual_hash, size,
            mime_type, metadata_json, needs_review, state, rating, keywords,
            event_tags, capture_time, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		version.ID,
		version.AssetID,
		string(version.Tier),
		version.FilePath,
		version.ContentHash,
		nullablePerceptual(version.PerceptualHash),
		version.Size,
		version.MIMEType,
		nullableString(version.MetadataJSON),
		boolToInt(version.NeedsReview),
		string(version.State),
		version.Rating,
		keywords,
		eventTags,
		nullableTime(captureTimePtr(version)),
		formatTime(version.CreatedAt),
		formatTime(version.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert version: %w", err)
	}
	return nil
}

func updateVersionTx(ctx context.Context, tx *sql.Tx, version *media.Version) error {
	keywords, eventTags, err := encodeTags(version)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE versions
         SET metadata_json = ?, needs_review = ?, state = ?, rating = ?,
             keywords = ?, event_tags = ?, capture_time = ?, updated_at = ?
         WHERE id = ?`,
		nullableString(version.MetadataJSON),
		boolToInt(version.NeedsReview),
		string(version.State),
		version.Rating,
		keywords,
		eventTags,
		nullableTime(captureTimePtr(version)),
		formatTime(version.UpdatedAt),
		version.ID,
	)
	if err != nil {
		return fmt.Errorf("update version: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("version %s not found", version.ID)
	}
	return nil
}

func collectVersions(rows *sql.Rows) ([]*media.Version, error) {
	defer rows.Close()
	var versions []*media.Version
	for rows.Next() {
		version, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, version)
	}
	return versions, rows.Err()
}

func scanVersion(scanner interface{ Scan(dest ...any) error }) (*media.Version, error) {
	var (
		id          string
		assetID     string
		tierStr     string
		filePath    string
		contentHash string
		perceptual  sql.NullInt64
		size        int64
		mimeType    string
		metadata    sql.NullString
		needsReview int
		stateStr    string
		rating      int
		keywords    sql.NullString
		eventTags   sql.NullString
		captureRaw  sql.NullString
		createdRaw  string
		updatedRaw  string
	)
	if err := scanner.Scan(
		&id, &assetID, &tierStr, &filePath, &contentHash, &perceptual, &size,
		&mimeType, &metadata, &needsReview, &stateStr, &rating, &keywords,
		&eventTags, &captureRaw, &createdRaw, &updatedRaw,
	); err != nil {
		return nil, err
	}

	version := &media.Version{
		ID:           id,
		AssetID:      assetID,
		Tier:         media.Tier(tierStr),
		FilePath:     filePath,
		ContentHash:  contentHash,
		Size:         size,
		MIMEType:     mimeType,
		MetadataJSON: metadata.String,
		NeedsReview:  needsReview != 0,
		State:        media.State(stateStr),
		Rating:       rating,
	}
	if perceptual.Valid {
		hash := uint64(perceptual.Int64)
		version.PerceptualHash = &hash
	}
	version.Keywords = decodeStringList(keywords.String)
	version.EventTags = decodeStringList(eventTags.String)
	if captureRaw.Valid {
		if captured, err := parseTimeString(captureRaw.String); err == nil {
			version.CaptureTime = captured
		}
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		version.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		version.UpdatedAt = updated
	}
	return version, nil
}

func encodeTags(version *media.Version) (any, any, error) {
	keywords, err := encodeStringList(version.Keywords)
	if err != nil {
		return nil, nil, fmt.Errorf("encode keywords: %w", err)
	}
	eventTags, err := encodeStringList(version.EventTags)
	if err != nil {
		return nil, nil, fmt.Errorf("encode event tags: %w", err)
	}
	return keywords, eventTags, nil
}

func encodeStringList(values []string) (any, error) {
	if len(values) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func decodeStringList(data string) []string {
	if data == "" {
		return nil
	}
	var values []string
	_ = json.Unmarshal([]byte(data), &values)
	return values
}

func nullablePerceptual(hash *uint64) any {
	if hash == nil {
		return nil
	}
	return int64(*hash)
}

func captureTimePtr(version *media.Version) *time.Time {
	if version.CaptureTime.IsZero() {
		return nil
	}
	t := version.CaptureTime
	return &t
}
