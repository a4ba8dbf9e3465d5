package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"darkroom/internal/media"
	"darkroom/internal/store"
	"darkroom/internal/testsupport"
)

func TestCreateAssetWithVersionWritesIngestedLedgerEntry(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	asset, version := testsupport.NewAsset(t, st, "IMG_0101.jpg")

	got, err := st.GetVersion(ctx, version.ID)
	if err != nil {
		t.Fatalf("GetVersion: %v", err)
	}
	if got == nil {
		t.Fatal("expected version to exist")
	}
	if got.Tier != media.TierSilver || got.State != media.StateUnprocessed {
		t.Fatalf("unexpected version %q/%q", got.Tier, got.State)
	}

	history, err := st.History(ctx, asset.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 ledger entry, got %d", len(history))
	}
	if history[0].Action != media.ActionIngested {
		t.Fatalf("expected INGESTED, got %s", history[0].Action)
	}
}

func TestOneVersionPerTier(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	asset, _ := testsupport.NewAsset(t, st, "IMG_0102.jpg")

	dup := &media.Version{
		ID:          uuid.NewString(),
		AssetID:     asset.ID,
		Tier:        media.TierSilver,
		FilePath:    "/library/silver/dup.jpg",
		ContentHash: uuid.NewString(),
		State:       media.StateUnprocessed,
	}
	if err := st.InsertVersion(ctx, dup); err == nil {
		t.Fatal("expected second silver version to be rejected")
	}

	gold := &media.Version{
		ID:          uuid.NewString(),
		AssetID:     asset.ID,
		Tier:        media.TierGold,
		FilePath:    "/library/gold/IMG_0102.jpg",
		ContentHash: uuid.NewString(),
		State:       media.StatePromoted,
	}
	if err := st.InsertVersion(ctx, gold); err != nil {
		t.Fatalf("InsertVersion gold: %v", err)
	}
}

func TestUpdateVersionAppendsLedgerInSameTransaction(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	asset, version := testsupport.NewAsset(t, st, "IMG_0103.jpg")

	version.State = media.StateProcessed
	version.Keywords = []string{"beach", "sunset"}
	version.MetadataJSON = `{"source":"exif"}`
	entry := media.HistoryEntry{AssetID: asset.ID, Action: media.ActionReprocessed, Detail: "metadata refresh"}
	if err := st.UpdateVersion(ctx, version, entry); err != nil {
		t.Fatalf("UpdateVersion: %v", err)
	}

	got, err := st.GetVersion(ctx, version.ID)
	if err != nil {
		t.Fatalf("GetVersion: %v", err)
	}
	if got.State != media.StateProcessed {
		t.Fatalf("expected processed state, got %s", got.State)
	}
	if len(got.Keywords) != 2 || got.Keywords[0] != "beach" {
		t.Fatalf("unexpected keywords %v", got.Keywords)
	}

	history, err := st.History(ctx, asset.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 ledger entries, got %d", len(history))
	}
	if history[1].Action != media.ActionReprocessed {
		t.Fatalf("expected REPROCESSED last, got %s", history[1].Action)
	}
}

func TestPromoteVersionsRollsBackWhenSilverUpdateFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	asset, _ := testsupport.NewAsset(t, st, "IMG_0110.jpg")

	gold := &media.Version{
		ID:          uuid.NewString(),
		AssetID:     asset.ID,
		Tier:        media.TierGold,
		FilePath:    "/library/gold/IMG_0110.jpg",
		ContentHash: uuid.NewString(),
		State:       media.StatePromoted,
	}
	phantom := &media.Version{
		ID:      uuid.NewString(),
		AssetID: asset.ID,
		Tier:    media.TierSilver,
		State:   media.StatePromoted,
	}
	entry := media.HistoryEntry{AssetID: asset.ID, Action: media.ActionPromoted, Detail: "promoted to gold"}
	if err := st.PromoteVersions(ctx, gold, phantom, entry); err == nil {
		t.Fatal("expected promotion against an unknown silver version to fail")
	}

	leaked, err := st.VersionForTier(ctx, asset.ID, media.TierGold)
	if err != nil {
		t.Fatalf("VersionForTier: %v", err)
	}
	if leaked != nil {
		t.Fatalf("gold insert should have rolled back, found %+v", leaked)
	}

	history, err := st.History(ctx, asset.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected only the INGESTED entry, got %d", len(history))
	}
}

func TestHistoryOrderedOldestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	asset, _ := testsupport.NewAsset(t, st, "IMG_0104.jpg")
	for _, action := range []media.Action{media.ActionPromoted, media.ActionDemoted, media.ActionPromoted} {
		if err := st.AppendHistory(ctx, asset.ID, action, ""); err != nil {
			t.Fatalf("AppendHistory: %v", err)
		}
	}

	history, err := st.History(ctx, asset.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(history))
	}
	for i := 1; i < len(history); i++ {
		if history[i].Timestamp.Before(history[i-1].Timestamp) {
			t.Fatalf("entries out of order at %d", i)
		}
		if history[i].ID <= history[i-1].ID {
			t.Fatalf("ids not monotonic at %d", i)
		}
	}
}

func TestFindVersionByContentHash(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	_, version := testsupport.NewAsset(t, st, "IMG_0105.jpg", func(v *media.Version) {
		v.ContentHash = "abc123"
	})

	got, err := st.FindVersionByContentHash(ctx, "abc123")
	if err != nil {
		t.Fatalf("FindVersionByContentHash: %v", err)
	}
	if got == nil || got.ID != version.ID {
		t.Fatalf("expected version %s, got %+v", version.ID, got)
	}

	missing, err := st.FindVersionByContentHash(ctx, "nope")
	if err != nil {
		t.Fatalf("FindVersionByContentHash: %v", err)
	}
	if missing != nil {
		t.Fatal("expected nil for unknown hash")
	}
}

func TestReplaceFacesSwapsWholeSet(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	_, version := testsupport.NewAsset(t, st, "IMG_0106.jpg")

	first := []media.Face{
		{ID: uuid.NewString(), Box: media.Rect{X: 10, Y: 10, W: 40, H: 40}, Confidence: 0.97, Embedding: []float32{0.1, 0.2}},
		{ID: uuid.NewString(), Box: media.Rect{X: 80, Y: 12, W: 38, H: 41}, Confidence: 0.92, Embedding: []float32{0.3, 0.4}},
	}
	if err := st.ReplaceFaces(ctx, version.ID, first); err != nil {
		t.Fatalf("ReplaceFaces: %v", err)
	}

	replacement := []media.Face{
		{ID: uuid.NewString(), Box: media.Rect{X: 11, Y: 9, W: 39, H: 42}, Confidence: 0.98, Embedding: []float32{0.5, 0.6}},
	}
	if err := st.ReplaceFaces(ctx, version.ID, replacement); err != nil {
		t.Fatalf("ReplaceFaces: %v", err)
	}

	faces, err := st.FacesForVersion(ctx, version.ID)
	if err != nil {
		t.Fatalf("FacesForVersion: %v", err)
	}
	if len(faces) != 1 {
		t.Fatalf("expected 1 face after swap, got %d", len(faces))
	}
	if faces[0].ID != replacement[0].ID {
		t.Fatalf("unexpected face %s", faces[0].ID)
	}
	if len(faces[0].Embedding) != 2 || faces[0].Embedding[0] != 0.5 {
		t.Fatalf("embedding did not round-trip: %v", faces[0].Embedding)
	}
}

func TestDeletePersonClearsFaceReferences(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	_, version := testsupport.NewAsset(t, st, "IMG_0107.jpg")

	person := &media.Person{ID: uuid.NewString(), Name: "Ada"}
	if err := st.CreatePerson(ctx, person); err != nil {
		t.Fatalf("CreatePerson: %v", err)
	}

	face := media.Face{
		ID:        uuid.NewString(),
		Box:       media.Rect{X: 5, Y: 5, W: 30, H: 30},
		Embedding: []float32{0.9},
		PersonID:  &person.ID,
	}
	if err := st.ReplaceFaces(ctx, version.ID, []media.Face{face}); err != nil {
		t.Fatalf("ReplaceFaces: %v", err)
	}

	if err := st.DeletePerson(ctx, person.ID); err != nil {
		t.Fatalf("DeletePerson: %v", err)
	}

	got, err := st.GetFace(ctx, face.ID)
	if err != nil {
		t.Fatalf("GetFace: %v", err)
	}
	if got == nil {
		t.Fatal("face should survive person deletion")
	}
	if got.PersonID != nil {
		t.Fatalf("expected cleared assignment, got %q", *got.PersonID)
	}
}

func TestPersonBirthdateRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	birthdate := time.Date(2015, time.June, 3, 0, 0, 0, 0, time.UTC)
	person := &media.Person{ID: uuid.NewString(), Name: "Noor", Birthdate: &birthdate}
	if err := st.CreatePerson(ctx, person); err != nil {
		t.Fatalf("CreatePerson: %v", err)
	}

	got, err := st.GetPerson(ctx, person.ID)
	if err != nil {
		t.Fatalf("GetPerson: %v", err)
	}
	if got == nil || got.Birthdate == nil || !got.Birthdate.Equal(birthdate) {
		t.Fatalf("birthdate did not round-trip: %+v", got)
	}
}

func TestTierStateCounts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.NewAsset(t, st, "IMG_0108.jpg")
	testsupport.NewAsset(t, st, "IMG_0109.jpg", func(v *media.Version) {
		v.State = media.StateProcessed
	})

	counts, err := st.TierStateCounts(ctx)
	if err != nil {
		t.Fatalf("TierStateCounts: %v", err)
	}
	if counts[media.TierSilver][media.StateUnprocessed] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
	if counts[media.TierSilver][media.StateProcessed] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
}

func TestSchemaMismatchDetected(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	path := st.Path()
	st.Close()

	reopened, err := store.OpenPath(path)
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	reopened.Close()
}
