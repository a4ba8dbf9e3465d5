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

const faceColumns = `id, version_id, box_x, box_y, box_w, box_h, confidence,
    embedding, person_id, ignored, created_at`

// ReplaceFaces atomically swaps the face set of a version. Re-detection never
// edits faces in place; the whole set is replaced so carried-forward
// assignments arrive as part of the new rows.
func (s *Store) ReplaceFaces(ctx context.Context, versionID string, faces []media.Face) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM faces WHERE version_id = ?`, versionID); err != nil {
			return fmt.Errorf("clear faces: %w", err)
		}
		for i := range faces {
			face := &faces[i]
			face.VersionID = versionID
			if face.CreatedAt.IsZero() {
				face.CreatedAt = time.Now().UTC()
			}
			embedding, err := encodeEmbedding(face.Embedding)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO faces (
                    id, version_id, box_x, box_y, box_w, box_h, confidence,
                    embedding, person_id, ignored, created_at
                ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				face.ID,
				face.VersionID,
				face.Box.X, face.Box.Y, face.Box.W, face.Box.H,
				face.Confidence,
				embedding,
				nullablePtr(face.PersonID),
				boolToInt(face.Ignored),
				formatTime(face.CreatedAt),
			); err != nil {
				return fmt.Errorf("insert face: %w", err)
			}
		}
		return nil
	})
}

// GetFace fetches a face by identifier; nil when absent.
func (s *Store) GetFace(ctx context.Context, id string) (*media.Face, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+faceColumns+` FROM faces WHERE id = ?`, id)
	face, err := scanFace(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get face: %w", err)
	}
	return face, nil
}

// FacesForVersion returns the face set of one version.
func (s *Store) FacesForVersion(ctx context.Context, versionID string) ([]*media.Face, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+faceColumns+` FROM faces WHERE version_id = ? ORDER BY id`, versionID)
	if err != nil {
		return nil, fmt.Errorf("faces for version: %w", err)
	}
	return collectFaces(rows)
}

// AssignedFaces returns all non-ignored faces with a person assignment.
func (s *Store) AssignedFaces(ctx context.Context) ([]*media.Face, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+faceColumns+` FROM faces WHERE person_id IS NOT NULL AND ignored = 0 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("assigned faces: %w", err)
	}
	return collectFaces(rows)
}

// UnassignedFaces returns all non-ignored faces without a person assignment.
func (s *Store) UnassignedFaces(ctx context.Context) ([]*media.Face, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+faceColumns+` FROM faces WHERE person_id IS NULL AND ignored = 0 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("unassigned faces: %w", err)
	}
	return collectFaces(rows)
}

// SetFaceAssignment updates the person reference of one face; nil clears it.
func (s *Store) SetFaceAssignment(ctx context.Context, faceID string, personID *string) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE faces SET person_id = ? WHERE id = ?`, nullablePtr(personID), faceID)
	if err != nil {
		return fmt.Errorf("set face assignment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("face %s not found", faceID)
	}
	return nil
}

// SetFaceIgnored flags or unflags a face as excluded from matching.
func (s *Store) SetFaceIgnored(ctx context.Context, faceID string, ignored bool) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE faces SET ignored = ? WHERE id = ?`, boolToInt(ignored), faceID)
	if err != nil {
		return fmt.Errorf("set face ignored: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("face %s not found", faceID)
	}
	return nil
}

func collectFaces(rows *sql.Rows) ([]*media.Face, error) {
	defer rows.Close()
	var faces []*media.Face
	for rows.Next() {
		face, err := scanFace(rows)
		if err != nil {
			return nil, err
		}
		faces = append(faces, face)
	}
	return faces, rows.Err()
}

func scanFace(scanner interface{ Scan(dest ...any) error }) (*media.Face, error) {
	var (
		id         string
		versionID  string
		x, y, w, h float64
		confidence float64
		embedding  string
		personID   sql.NullString
		ignored    int
		createdRaw string
	)
	if err := scanner.Scan(&id, &versionID, &x, &y, &w, &h, &confidence, &embedding, &personID, &ignored, &createdRaw); err != nil {
		return nil, err
	}
	face := &media.Face{
		ID:         id,
		VersionID:  versionID,
		Box:        media.Rect{X: x, Y: y, W: w, H: h},
		Confidence: confidence,
		Ignored:    ignored != 0,
	}
	face.Embedding = decodeEmbedding(embedding)
	if personID.Valid && personID.String != "" {
		pid := personID.String
		face.PersonID = &pid
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		face.CreatedAt = created
	}
	return face, nil
}

func encodeEmbedding(embedding []float32) (string, error) {
	data, err := json.Marshal(embedding)
	if err != nil {
		return "", fmt.Errorf("encode embedding: %w", err)
	}
	return string(data), nil
}

func decodeEmbedding(data string) []float32 {
	if data == "" {
		return nil
	}
	var embedding []float32
	_ = json.Unmarshal([]byte(data), &embedding)
	return embedding
}

func nullablePtr(value *string) any {
	if value == nil || *value == "" {
		return nil
	}
	return *value
}
