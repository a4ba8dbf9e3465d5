package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"darkroom/internal/media"
)

// AppendHistory records one ledger entry outside any other mutation. Entries
// are insert-only; there is deliberately no update or delete path.
func (s *Store) AppendHistory(ctx context.Context, assetID string, action media.Action, detail string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return appendHistoryTx(ctx, tx, []media.HistoryEntry{{
			AssetID: assetID,
			Action:  action,
			Detail:  detail,
		}})
	})
}

// History returns the full ledger for an asset, oldest first.
func (s *Store) History(ctx context.Context, assetID string) ([]media.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT id, asset_id, action, detail, timestamp
         FROM asset_history WHERE asset_id = ? ORDER BY timestamp, id`, assetID)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	defer rows.Close()

	var entries []media.HistoryEntry
	for rows.Next() {
		var (
			entry        media.HistoryEntry
			action       string
			timestampRaw string
		)
		if err := rows.Scan(&entry.ID, &entry.AssetID, &action, &entry.Detail, &timestampRaw); err != nil {
			return nil, err
		}
		entry.Action = media.Action(action)
		if ts, err := parseTimeString(timestampRaw); err == nil {
			entry.Timestamp = ts
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func appendHistoryTx(ctx context.Context, tx *sql.Tx, entries []media.HistoryEntry) error {
	for _, entry := range entries {
		if entry.Timestamp.IsZero() {
			entry.Timestamp = time.Now().UTC()
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO asset_history (asset_id, action, detail, timestamp) VALUES (?, ?, ?, ?)`,
			entry.AssetID,
			string(entry.Action),
			entry.Detail,
			formatTime(entry.Timestamp),
		); err != nil {
			return fmt.Errorf("append history: %w", err)
		}
	}
	return nil
}
