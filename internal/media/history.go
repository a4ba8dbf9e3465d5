package media

import (
	"strings"
	"time"
)

// Action is the kind of a ledger entry.
type Action string

const (
	ActionIngested    Action = "INGESTED"
	ActionPromoted    Action = "PROMOTED"
	ActionDemoted     Action = "DEMOTED"
	ActionReprocessed Action = "REPROCESSED"
	ActionEmbedded    Action = "EMBEDDED"
	ActionBurstSwept  Action = "BURST_SWEPT"
)

var actionSet = map[Action]struct{}{
	ActionIngested:    {},
	ActionPromoted:    {},
	ActionDemoted:     {},
	ActionReprocessed: {},
	ActionEmbedded:    {},
	ActionBurstSwept:  {},
}

// ParseAction converts a string into a known Action.
func ParseAction(value string) (Action, bool) {
	normalized := Action(strings.ToUpper(strings.TrimSpace(value)))
	_, ok := actionSet[normalized]
	return normalized, ok
}

// HistoryEntry is one append-only ledger record. Entries are never mutated or
// deleted; timestamp ordering is significant for audit replay.
type HistoryEntry struct {
	ID        int64
	AssetID   string
	Action    Action
	Detail    string
	Timestamp time.Time
}
