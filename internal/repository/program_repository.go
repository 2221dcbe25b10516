package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/abroad-api/internal/models"
)

const programColumns = `id, name, country, field, university, duration, tuition_fee, scholarship, deadline, description, created_at, updated_at`

// ProgramRepository reads and writes the program catalog.
type ProgramRepository struct {
	db *sqlx.DB
}

// NewProgramRepository constructs the repository.
func NewProgramRepository(db *sqlx.DB) *ProgramRepository {
	return &ProgramRepository{db: db}
}

// List returns programs in catalog order narrowed by the filter.
func (r *ProgramRepository) List(ctx context.Context, filter models.ProgramFilter) ([]models.Program, error) {
	query := strings.Builder{}
	query.WriteString("SELECT " + programColumns + " FROM programs WHERE 1=1")

	args := []interface{}{}
	if filter.Country != "" {
		args = append(args, filter.Country)
		fmt.Fprintf(&query, " AND country = $%d", len(args))
	}
	if filter.Field != "" {
		args = append(args, filter.Field)
		fmt.Fprintf(&query, " AND field = $%d", len(args))
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+escapeLike(q)+"%")
		n := len(args)
		fmt.Fprintf(&query, " AND (name ILIKE $%d OR COALESCE(university, '') ILIKE $%d OR description ILIKE $%d)", n, n, n)
	}
	query.WriteString(" ORDER BY position ASC")

	programs := make([]models.Program, 0)
	if err := r.db.SelectContext(ctx, &programs, query.String(), args...); err != nil {
		return nil, fmt.Errorf("list programs: %w", err)
	}
	return programs, nil
}

// UpsertMany inserts or updates programs by identifier within one transaction.
func (r *ProgramRepository) UpsertMany(ctx context.Context, programs []models.Program) (err error) {
	if len(programs) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin program import: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `
INSERT INTO programs (id, name, country, field, university, duration, tuition_fee, scholarship, deadline, description, created_at, updated_at)
VALUES (:id, :name, :country, :field, :university, :duration, :tuition_fee, :scholarship, :deadline, :description, :created_at, :updated_at)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name,
	country = EXCLUDED.country,
	field = EXCLUDED.field,
	university = EXCLUDED.university,
	duration = EXCLUDED.duration,
	tuition_fee = EXCLUDED.tuition_fee,
	scholarship = EXCLUDED.scholarship,
	deadline = EXCLUDED.deadline,
	description = EXCLUDED.description,
	updated_at = EXCLUDED.updated_at`

	for i := range programs {
		if _, err = tx.NamedExecContext(ctx, query, &programs[i]); err != nil {
			return fmt.Errorf("upsert program %s: %w", programs[i].ID, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit program import: %w", err)
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
