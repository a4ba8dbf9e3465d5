package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"darkroom/internal/media"
)

const personColumns = `id, name, birthdate, representative_face_id, created_at`

// CreatePerson inserts a new curated identity.
func (s *Store) CreatePerson(ctx context.Context, person *media.Person) error {
	if person == nil {
		return errors.New("person is nil")
	}
	if person.CreatedAt.IsZero() {
		person.CreatedAt = time.Now().UTC()
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO persons (id, name, birthdate, representative_face_id, created_at)
         VALUES (?, ?, ?, ?, ?)`,
		person.ID,
		person.Name,
		nullableTime(person.Birthdate),
		nullablePtr(person.RepresentativeFaceID),
		formatTime(person.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert person: %w", err)
	}
	return nil
}

// UpdatePerson persists name, birthdate, and representative face changes.
func (s *Store) UpdatePerson(ctx context.Context, person *media.Person) error {
	if person == nil {
		return errors.New("person is nil")
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE persons SET name = ?, birthdate = ?, representative_face_id = ? WHERE id = ?`,
		person.Name,
		nullableTime(person.Birthdate),
		nullablePtr(person.RepresentativeFaceID),
		person.ID,
	)
	if err != nil {
		return fmt.Errorf("update person: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("person %s not found", person.ID)
	}
	return nil
}

// GetPerson fetches a person by identifier; nil when absent.
func (s *Store) GetPerson(ctx context.Context, id string) (*media.Person, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+personColumns+` FROM persons WHERE id = ?`, id)
	person, err := scanPerson(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get person: %w", err)
	}
	return person, nil
}

// ListPersons returns all curated identities ordered by name.
func (s *Store) ListPersons(ctx context.Context) ([]*media.Person, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+personColumns+` FROM persons ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list persons: %w", err)
	}
	defer rows.Close()

	var persons []*media.Person
	for rows.Next() {
		person, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		persons = append(persons, person)
	}
	return persons, rows.Err()
}

// DeletePerson removes an identity and nulls out every referencing face in
// the same transaction so no dangling person ids survive.
func (s *Store) DeletePerson(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE faces SET person_id = NULL WHERE person_id = ?`, id); err != nil {
			return fmt.Errorf("clear face references: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM persons WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete person: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("person %s not found", id)
		}
		return nil
	})
}

func scanPerson(scanner interface{ Scan(dest ...any) error }) (*media.Person, error) {
	var (
		id           string
		name         string
		birthdateRaw sql.NullString
		faceID       sql.NullString
		createdRaw   string
	)
	if err := scanner.Scan(&id, &name, &birthdateRaw, &faceID, &createdRaw); err != nil {
		return nil, err
	}
	person := &media.Person{ID: id, Name: name}
	if birthdateRaw.Valid {
		if birthdate, err := parseTimeString(birthdateRaw.String); err == nil {
			person.Birthdate = &birthdate
		}
	}
	if faceID.Valid && faceID.String != "" {
		fid := faceID.String
		person.RepresentativeFaceID = &fid
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		person.CreatedAt = created
	}
	return person, nil
}
