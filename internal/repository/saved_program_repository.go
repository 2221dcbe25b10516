package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// SavedProgramRepository persists bookmarked program identifiers per user.
type SavedProgramRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewSavedProgramRepository constructs the repository.
func NewSavedProgramRepository(db *sqlx.DB) *SavedProgramRepository {
	return &SavedProgramRepository{db: db, now: time.Now}
}

// ListIDs returns the user's saved program ids in the order they were saved.
func (r *SavedProgramRepository) ListIDs(ctx context.Context, userID string) ([]string, error) {
	const query = `SELECT program_id FROM saved_programs WHERE user_id = $1 ORDER BY saved_at ASC, program_id ASC`
	ids := make([]string, 0)
	if err := r.db.SelectContext(ctx, &ids, query, userID); err != nil {
		return nil, fmt.Errorf("list saved programs: %w", err)
	}
	return ids, nil
}

// Add saves a program for the user. Saving twice is a no-op.
func (r *SavedProgramRepository) Add(ctx context.Context, userID, programID string) error {
	const query = `INSERT INTO saved_programs (user_id, program_id, saved_at) VALUES ($1, $2, $3) ON CONFLICT (user_id, program_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, userID, programID, r.now().UTC()); err != nil {
		return fmt.Errorf("save program: %w", err)
	}
	return nil
}

// Remove deletes a saved program for the user.
func (r *SavedProgramRepository) Remove(ctx context.Context, userID, programID string) error {
	const query = `DELETE FROM saved_programs WHERE user_id = $1 AND program_id = $2`
	if _, err := r.db.ExecContext(ctx, query, userID, programID); err != nil {
		return fmt.Errorf("remove saved program: %w", err)
	}
	return nil
}

// ReplaceAll makes the stored set equal to ids. The saved order follows ids:
// each row is stamped one microsecond after its predecessor.
func (r *SavedProgramRepository) ReplaceAll(ctx context.Context, userID string, ids []string) (err error) {
	ids = uniqueIDs(ids)
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin saved programs replace: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM saved_programs WHERE user_id = $1 AND NOT (program_id = ANY($2))`, userID, pq.Array(ids)); err != nil {
		return fmt.Errorf("prune saved programs: %w", err)
	}
	const insert = `INSERT INTO saved_programs (user_id, program_id, saved_at) ` +
		`SELECT $1, ids.program_id, $3::timestamptz + ids.ord * INTERVAL '1 microsecond' FROM unnest($2::text[]) WITH ORDINALITY AS ids(program_id, ord) ` +
		`ON CONFLICT (user_id, program_id) DO UPDATE SET saved_at = EXCLUDED.saved_at`
	if _, err = tx.ExecContext(ctx, insert, userID, pq.Array(ids), r.now().UTC()); err != nil {
		return fmt.Errorf("insert saved programs: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit saved programs replace: %w", err)
	}
	return nil
}

func uniqueIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
