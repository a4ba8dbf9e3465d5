// Package burst groups rapid-fire shots of the same scene so review can keep
// the best frame and sweep the rest aside without deleting anything.
package burst

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"darkroom/internal/config"
	"darkroom/internal/media"
	"darkroom/internal/services"
	"darkroom/internal/store"
	"darkroom/internal/textutil"
)

// Candidate is one asset considered for burst membership. Each asset is
// represented by a single version, preferring the highest tier.
type Candidate struct {
	AssetID      string
	VersionID    string
	Filename     string
	Tier         media.Tier
	CaptureTime  time.Time
	Tags         []string
	AIConfidence float64
}

// Group is a detected burst. Members keep capture-time order; the
// representative is the member review should surface first.
type Group struct {
	ID             string
	Members        []Candidate
	Representative Candidate
}

// ResolveResult collects per-member outcomes of a burst resolution. One
// failing member never blocks its siblings.
type ResolveResult struct {
	GroupID  string
	Swept    []string
	Kept     []string
	Failures map[string]error
}

// Grouper detects and resolves bursts. Analyzed groups are held in memory
// until resolved; analysis is cheap enough to redo on restart.
type Grouper struct {
	cfg   config.Burst
	store *store.Store

	mu     sync.Mutex
	groups map[string]Group
}

// NewGrouper builds a grouper over the configured clustering parameters.
func NewGrouper(st *store.Store, cfg config.Burst) *Grouper {
	return &Grouper{cfg: cfg, store: st, groups: make(map[string]Group)}
}

// Analyze clusters candidates into burst groups. Candidates are walked in
// capture-time order; a shot joins the open cluster when it lands inside the
// burst window of the cluster's first member and its composite similarity
// against the previous member clears the join threshold. Anchoring the
// window to the first shot caps the whole group's span, so removing any
// member can never leave two remaining members further apart than the
// window. Clusters below the minimum size are discarded.
func (g *Grouper) Analyze(candidates []Candidate) []Group {
	sorted := make([]Candidate, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].CaptureTime.Equal(sorted[j].CaptureTime) {
			return sorted[i].AssetID < sorted[j].AssetID
		}
		return sorted[i].CaptureTime.Before(sorted[j].CaptureTime)
	})

	window := time.Duration(g.cfg.WindowSeconds) * time.Second
	var groups []Group
	var cluster []Candidate

	flush := func() {
		if len(cluster) >= g.cfg.MinGroupSize {
			members := make([]Candidate, len(cluster))
			copy(members, cluster)
			groups = append(groups, Group{
				ID:             uuid.NewString(),
				Members:        members,
				Representative: pickRepresentative(members),
			})
		}
		cluster = nil
	}

	for _, candidate := range sorted {
		if candidate.CaptureTime.IsZero() {
			continue
		}
		if len(cluster) == 0 {
			cluster = append(cluster, candidate)
			continue
		}
		last := cluster[len(cluster)-1]
		span := candidate.CaptureTime.Sub(cluster[0].CaptureTime)
		if span <= window && g.score(last, candidate) >= g.cfg.JoinThreshold {
			cluster = append(cluster, candidate)
			continue
		}
		flush()
		cluster = append(cluster, candidate)
	}
	flush()

	g.mu.Lock()
	for _, group := range groups {
		g.groups[group.ID] = group
	}
	g.mu.Unlock()

	return groups
}

// Group returns a previously analyzed group by id.
func (g *Grouper) Group(id string) (Group, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	group, ok := g.groups[id]
	return group, ok
}

// Resolve keeps the selected members and marks every unselected member's
// silver version processed so it drops out of review. Nothing is deleted.
func (g *Grouper) Resolve(ctx context.Context, groupID string, selectedAssetIDs []string) (*ResolveResult, error) {
	g.mu.Lock()
	group, ok := g.groups[groupID]
	g.mu.Unlock()
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "burst", "resolve", "group "+groupID, nil)
	}

	selected := make(map[string]bool, len(selectedAssetIDs))
	for _, id := range selectedAssetIDs {
		selected[id] = true
	}

	result := &ResolveResult{GroupID: groupID, Failures: make(map[string]error)}
	for _, member := range group.Members {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if selected[member.AssetID] {
			result.Kept = append(result.Kept, member.AssetID)
			continue
		}
		if err := g.sweep(ctx, member, groupID); err != nil {
			if services.IsFatal(err) {
				return result, err
			}
			result.Failures[member.AssetID] = err
			continue
		}
		result.Swept = append(result.Swept, member.AssetID)
	}

	g.mu.Lock()
	delete(g.groups, groupID)
	g.mu.Unlock()

	return result, nil
}

func (g *Grouper) sweep(ctx context.Context, member Candidate, groupID string) error {
	version, err := g.store.VersionForTier(ctx, member.AssetID, media.TierSilver)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "burst", "sweep", member.AssetID, err)
	}
	if version == nil {
		return services.Wrap(services.ErrNotFound, "burst", "sweep", "no silver version for "+member.AssetID, nil)
	}
	if version.State == media.StateProcessed {
		return nil
	}
	version.State = media.StateProcessed
	entry := media.HistoryEntry{
		AssetID: member.AssetID,
		Action:  media.ActionBurstSwept,
		Detail:  "not selected from burst group " + groupID,
	}
	if err := g.store.UpdateVersion(ctx, version, entry); err != nil {
		return services.Wrap(services.ErrPersistence, "burst", "sweep", member.AssetID, err)
	}
	return nil
}

// score blends filename, tag, and temporal similarity using the configured
// weights.
func (g *Grouper) score(a, b Candidate) float64 {
	nameScore := textutil.StemSimilarity(a.Filename, b.Filename)
	tagScore := jaccard(a.Tags, b.Tags)

	proximity := time.Duration(g.cfg.ProximityWindowSeconds) * time.Second
	var timeScore float64
	if proximity > 0 {
		delta := b.CaptureTime.Sub(a.CaptureTime)
		if delta < 0 {
			delta = -delta
		}
		if delta < proximity {
			timeScore = 1 - float64(delta)/float64(proximity)
		}
	}

	return g.cfg.FilenameWeight*nameScore + g.cfg.TagWeight*tagScore + g.cfg.TimeWeight*timeScore
}

func jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]bool, len(a))
	for _, tag := range a {
		set[tag] = true
	}
	intersection := 0
	union := len(set)
	seen := make(map[string]bool, len(b))
	for _, tag := range b {
		if seen[tag] {
			continue
		}
		seen[tag] = true
		if set[tag] {
			intersection++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// pickRepresentative prefers the highest tier, then the strongest AI
// confidence, then the latest shot.
func pickRepresentative(members []Candidate) Candidate {
	best := members[0]
	for _, candidate := range members[1:] {
		switch {
		case candidate.Tier.Rank() != best.Tier.Rank():
			if candidate.Tier.Rank() > best.Tier.Rank() {
				best = candidate
			}
		case candidate.AIConfidence != best.AIConfidence:
			if candidate.AIConfidence > best.AIConfidence {
				best = candidate
			}
		case candidate.CaptureTime.After(best.CaptureTime):
			best = candidate
		}
	}
	return best
}
