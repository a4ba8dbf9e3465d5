package media

import (
	"strings"
	"time"
)

// Tier is one of the ordered immutability levels a photo version occupies.
// Staged uploads live outside the store and are never persisted as a tier.
type Tier string

const (
	TierSilver Tier = "silver"
	TierGold   Tier = "gold"
)

var tierRank = map[Tier]int{
	TierSilver: 1,
	TierGold:   2,
}

// ParseTier converts a string into a known Tier.
func ParseTier(value string) (Tier, bool) {
	normalized := Tier(strings.ToLower(strings.TrimSpace(value)))
	_, ok := tierRank[normalized]
	return normalized, ok
}

// Rank returns the ordering of a tier; higher means more processed.
func (t Tier) Rank() int {
	return tierRank[t]
}

// State is the processing state of one file version.
type State string

const (
	StateUnprocessed State = "unprocessed"
	StateProcessed   State = "processed"
	StatePromoted    State = "promoted"
	StateRejected    State = "rejected"
)

var stateSet = map[State]struct{}{
	StateUnprocessed: {},
	StateProcessed:   {},
	StatePromoted:    {},
	StateRejected:    {},
}

// ParseState converts a string into a known State.
func ParseState(value string) (State, bool) {
	normalized := State(strings.ToLower(strings.TrimSpace(value)))
	_, ok := stateSet[normalized]
	return normalized, ok
}

// Asset is the stable identity for one logical photograph. Immutable once
// created; never deleted while any version exists.
type Asset struct {
	ID               string
	OriginalFilename string
	CreatedAt        time.Time
}

// Version is one materialized rendition of an asset at a tier.
//
// At most one silver and at most one gold version exist per asset. A silver
// version's path and bytes are immutable after creation; only the metadata
// blob and flags may change.
type Version struct {
	ID             string
	AssetID        string
	Tier           Tier
	FilePath       string
	ContentHash    string
	PerceptualHash *uint64
	Size           int64
	MIMEType       string
	MetadataJSON   string
	NeedsReview    bool
	State          State
	Rating         int
	Keywords       []string
	EventTags      []string
	CaptureTime    time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsVideo reports whether the version holds video content, which passes
// through AI and face analysis untouched.
func (v *Version) IsVideo() bool {
	return strings.HasPrefix(v.MIMEType, "video/")
}
