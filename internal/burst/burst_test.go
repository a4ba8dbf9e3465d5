package burst_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"darkroom/internal/burst"
	"darkroom/internal/media"
	"darkroom/internal/testsupport"
)

func candidateAt(name string, offset time.Duration, tags ...string) burst.Candidate {
	base := time.Date(2024, time.July, 14, 10, 30, 0, 0, time.UTC)
	return burst.Candidate{
		AssetID:     name,
		VersionID:   name + "-v",
		Filename:    name + ".jpg",
		Tier:        media.TierSilver,
		CaptureTime: base.Add(offset),
		Tags:        tags,
	}
}

func TestAnalyzeGroupsRapidShotsAndExcludesStraggler(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	grouper := burst.NewGrouper(nil, cfg.Burst)

	// Shared stem and tags push the composite score well past the join
	// threshold; the 40s shot falls outside the burst window.
	candidates := []burst.Candidate{
		candidateAt("IMG_2001", 0, "beach", "family"),
		candidateAt("IMG_2002", 2*time.Second, "beach", "family"),
		candidateAt("IMG_2003", 5*time.Second, "beach", "family"),
		candidateAt("IMG_2004", 40*time.Second, "beach", "family"),
	}

	groups := grouper.Analyze(candidates)
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	if len(groups[0].Members) != 3 {
		t.Fatalf("expected 3 members, got %d", len(groups[0].Members))
	}
	for _, member := range groups[0].Members {
		if member.AssetID == "IMG_2004" {
			t.Fatal("straggler should be excluded")
		}
	}
}

func TestAnalyzeWindowBoundsWholeGroupSpan(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	grouper := burst.NewGrouper(nil, cfg.Burst)

	// Each shot is within 5s of its neighbor, but the third sits 8s after the
	// first. Chaining would admit it and leave a group whose members can end
	// up more than a window apart once the middle shot is removed.
	candidates := []burst.Candidate{
		candidateAt("IMG_2101", 0, "beach", "family"),
		candidateAt("IMG_2102", 4*time.Second, "beach", "family"),
		candidateAt("IMG_2103", 8*time.Second, "beach", "family"),
	}

	groups := grouper.Analyze(candidates)
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	members := groups[0].Members
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}
	window := time.Duration(cfg.Burst.WindowSeconds) * time.Second
	span := members[len(members)-1].CaptureTime.Sub(members[0].CaptureTime)
	if span > window {
		t.Fatalf("group span %s exceeds window %s", span, window)
	}
}

func TestAnalyzeRejectsDissimilarNeighbors(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	grouper := burst.NewGrouper(nil, cfg.Burst)

	// Close in time but different stems and disjoint tags keeps the
	// composite score under the threshold.
	candidates := []burst.Candidate{
		candidateAt("IMG_3001", 0, "beach"),
		candidateAt("DSC_9999", 3*time.Second, "office"),
	}

	if groups := grouper.Analyze(candidates); len(groups) != 0 {
		t.Fatalf("expected no groups, got %d", len(groups))
	}
}

func TestAnalyzeSkipsCandidatesWithoutCaptureTime(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	grouper := burst.NewGrouper(nil, cfg.Burst)

	missing := candidateAt("IMG_4001", 0, "beach")
	missing.CaptureTime = time.Time{}
	candidates := []burst.Candidate{
		missing,
		candidateAt("IMG_4002", time.Second, "beach"),
	}

	if groups := grouper.Analyze(candidates); len(groups) != 0 {
		t.Fatalf("expected no groups, got %d", len(groups))
	}
}

func TestRepresentativePrefersTierThenConfidenceThenRecency(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	grouper := burst.NewGrouper(nil, cfg.Burst)

	gold := candidateAt("IMG_5001", 0, "hike")
	gold.Tier = media.TierGold
	gold.AIConfidence = 0.1
	confident := candidateAt("IMG_5002", time.Second, "hike")
	confident.AIConfidence = 0.9
	latest := candidateAt("IMG_5003", 2*time.Second, "hike")
	latest.AIConfidence = 0.9

	groups := grouper.Analyze([]burst.Candidate{gold, confident, latest})
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	if groups[0].Representative.AssetID != "IMG_5001" {
		t.Fatalf("expected gold representative, got %s", groups[0].Representative.AssetID)
	}

	groups = grouper.Analyze([]burst.Candidate{confident, latest})
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	if groups[0].Representative.AssetID != "IMG_5003" {
		t.Fatalf("expected latest high-confidence representative, got %s", groups[0].Representative.AssetID)
	}
}

func TestResolveSweepsUnselectedMembers(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	grouper := burst.NewGrouper(st, cfg.Burst)
	ctx := context.Background()

	base := time.Date(2024, time.July, 14, 10, 30, 0, 0, time.UTC)
	var candidates []burst.Candidate
	var assetIDs []string
	for i, name := range []string{"IMG_6001.jpg", "IMG_6002.jpg", "IMG_6003.jpg"} {
		capture := base.Add(time.Duration(i) * time.Second)
		asset, version := testsupport.NewAsset(t, st, name, func(v *media.Version) {
			v.CaptureTime = capture
			v.Keywords = []string{"park"}
		})
		assetIDs = append(assetIDs, asset.ID)
		candidates = append(candidates, burst.Candidate{
			AssetID:     asset.ID,
			VersionID:   version.ID,
			Filename:    name,
			Tier:        media.TierSilver,
			CaptureTime: capture,
			Tags:        []string{"park"},
		})
	}

	groups := grouper.Analyze(candidates)
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}

	result, err := grouper.Resolve(ctx, groups[0].ID, []string{assetIDs[0]})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(result.Kept) != 1 || result.Kept[0] != assetIDs[0] {
		t.Fatalf("unexpected kept %v", result.Kept)
	}
	if len(result.Swept) != 2 {
		t.Fatalf("expected 2 swept, got %v", result.Swept)
	}
	if len(result.Failures) != 0 {
		t.Fatalf("unexpected failures %v", result.Failures)
	}

	for _, assetID := range assetIDs[1:] {
		version, err := st.VersionForTier(ctx, assetID, media.TierSilver)
		if err != nil {
			t.Fatalf("VersionForTier: %v", err)
		}
		if version.State != media.StateProcessed {
			t.Fatalf("expected swept member processed, got %s", version.State)
		}
		history, err := st.History(ctx, assetID)
		if err != nil {
			t.Fatalf("History: %v", err)
		}
		last := history[len(history)-1]
		if last.Action != media.ActionBurstSwept {
			t.Fatalf("expected sweep ledger entry, got %s", last.Action)
		}
		if !strings.Contains(last.Detail, groups[0].ID) {
			t.Fatalf("sweep detail should name the group, got %q", last.Detail)
		}
	}

	kept, err := st.VersionForTier(ctx, assetIDs[0], media.TierSilver)
	if err != nil {
		t.Fatalf("VersionForTier: %v", err)
	}
	if kept.State != media.StateUnprocessed {
		t.Fatalf("kept member should be untouched, got %s", kept.State)
	}

	if _, ok := grouper.Group(groups[0].ID); ok {
		t.Fatal("resolved group should be forgotten")
	}
}

func TestResolveUnknownGroup(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	grouper := burst.NewGrouper(nil, cfg.Burst)

	if _, err := grouper.Resolve(context.Background(), "missing", nil); err == nil {
		t.Fatal("expected error for unknown group")
	}
}
