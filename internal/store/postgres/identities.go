package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/face-attendance/internal/store"
	"github.com/kozaktomas/face-attendance/internal/vector"
)

// ListIdentities returns all identities in enrollment order.
func (s *Store) ListIdentities(ctx context.Context) ([]store.Identity, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, embedding, enrolled_at
		FROM identities
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query identities: %w", err)
	}
	defer rows.Close()

	var identities []store.Identity
	for rows.Next() {
		ident, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		identities = append(identities, *ident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}
	return identities, nil
}

// GetIdentity retrieves one identity by ID.
func (s *Store) GetIdentity(ctx context.Context, id int64) (*store.Identity, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, embedding, enrolled_at
		FROM identities
		WHERE id = $1
	`, id)

	ident, err := scanIdentity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrIdentityNotFound
	}
	if err != nil {
		return nil, err
	}
	return ident, nil
}

// CountIdentities returns the number of enrolled identities.
func (s *Store) CountIdentities(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM identities").Scan(&count); err != nil {
		return 0, fmt.Errorf("count identities: %w", err)
	}
	return count, nil
}

// CreateIdentity stores a new identity and assigns its ID.
func (s *Store) CreateIdentity(ctx context.Context, name string, vec vector.FaceVector) (*store.Identity, error) {
	if err := vec.Validate(); err != nil {
		return nil, err
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO identities (name, embedding)
		VALUES ($1, $2)
		RETURNING id, name, embedding, enrolled_at
	`, name, pgvector.NewVector(vec))

	ident, err := scanIdentity(row)
	if err != nil {
		return nil, fmt.Errorf("insert identity: %w", err)
	}
	return ident, nil
}

// UpdateIdentityVector replaces the enrolled vector of an existing
// identity, keeping ID and name.
func (s *Store) UpdateIdentityVector(ctx context.Context, id int64, vec vector.FaceVector) error {
	if err := vec.Validate(); err != nil {
		return err
	}

	result, err := s.pool.Exec(ctx, `
		UPDATE identities SET embedding = $2 WHERE id = $1
	`, id, pgvector.NewVector(vec))
	if err != nil {
		return fmt.Errorf("update identity vector: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update identity vector: %w", err)
	}
	if affected == 0 {
		return store.ErrIdentityNotFound
	}
	return nil
}

// rowScanner covers both sql.Row and sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row rowScanner) (*store.Identity, error) {
	var ident store.Identity
	var embedding pgvector.Vector
	if err := row.Scan(&ident.ID, &ident.Name, &embedding, &ident.EnrolledAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan identity: %w", err)
	}

	ident.Vector = vector.FaceVector(embedding.Slice())
	if err := ident.Vector.Validate(); err != nil {
		return nil, fmt.Errorf("%w: identity %d: %v", store.ErrStorageInconsistent, ident.ID, err)
	}
	return &ident, nil
}
