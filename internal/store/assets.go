package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"darkroom/internal/media"
)

// CreateAsset inserts a new media asset.
func (s *Store) CreateAsset(ctx context.Context, asset *media.Asset) error {
	if asset == nil {
		return errors.New("asset is nil")
	}
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = time.Now().UTC()
	}
	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO assets (id, original_filename, created_at) VALUES (?, ?, ?)`,
		asset.ID,
		asset.OriginalFilename,
		formatTime(asset.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert asset: %w", err)
	}
	return nil
}

// GetAsset fetches an asset by identifier; nil when absent.
func (s *Store) GetAsset(ctx context.Context, id string) (*media.Asset, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT id, original_filename, created_at FROM assets WHERE id = ?`, id)
	asset, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get asset: %w", err)
	}
	return asset, nil
}

// ListAssets returns all assets ordered by creation time.
func (s *Store) ListAssets(ctx context.Context) ([]*media.Asset, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT id, original_filename, created_at FROM assets ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var assets []*media.Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, asset)
	}
	return assets, rows.Err()
}

func scanAsset(scanner interface{ Scan(dest ...any) error }) (*media.Asset, error) {
	var (
		id         string
		filename   string
		createdRaw string
	)
	if err := scanner.Scan(&id, &filename, &createdRaw); err != nil {
		return nil, err
	}
	asset := &media.Asset{ID: id, OriginalFilename: filename}
	if created, err := parseTimeString(createdRaw); err == nil {
		asset.CreatedAt = created
	}
	return asset, nil
}
