package testsupport

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"darkroom/internal/config"
	"darkroom/internal/media"
	"darkroom/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewAsset inserts an asset with a single silver version and returns both.
// The version gets a unique content hash unless one is provided.
func NewAsset(t testing.TB, st *store.Store, filename string, mutate ...func(*media.Version)) (*media.Asset, *media.Version) {
	t.Helper()

	asset := &media.Asset{
		ID:               uuid.NewString(),
		OriginalFilename: filename,
		CreatedAt:        time.Now().UTC(),
	}
	version := &media.Version{
		ID:          uuid.NewString(),
		AssetID:     asset.ID,
		Tier:        media.TierSilver,
		FilePath:    "/library/silver/" + filename,
		ContentHash: uuid.NewString(),
		State:       media.StateUnprocessed,
	}
	for _, fn := range mutate {
		fn(version)
	}
	if err := st.CreateAssetWithVersion(context.Background(), asset, version, "test ingest"); err != nil {
		t.Fatalf("store.CreateAssetWithVersion: %v", err)
	}
	return asset, version
}
