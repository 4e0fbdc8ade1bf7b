package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/restaurant-oms/internal/domain"
)

type branchRepository struct {
	db *sql.DB
}

// NewBranchRepository создаёт PostgreSQL-реализацию BranchRepository.
func NewBranchRepository(store *Store) domain.BranchRepository {
	return &branchRepository{db: store.DB()}
}

func (r *branchRepository) Save(ctx context.Context, branch domain.Branch) (domain.Branch, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if branch.ID == "" {
		branch.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if branch.CreatedAt.IsZero() {
		branch.CreatedAt = now
	}
	branch.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO branches (id, name, location, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
		    location = EXCLUDED.location,
		    active = EXCLUDED.active,
		    updated_at = EXCLUDED.updated_at
	`,
		branch.ID, branch.Name, branch.Location, branch.Active, branch.CreatedAt, branch.UpdatedAt,
	)
	if err != nil {
		return domain.Branch{}, fmt.Errorf("upsert branch: %w", err)
	}

	return branch, nil
}

func (r *branchRepository) Get(ctx context.Context, id string) (domain.Branch, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var branch domain.Branch
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, location, active, created_at, updated_at
		FROM branches
		WHERE id = $1
	`, id).Scan(
		&branch.ID, &branch.Name, &branch.Location, &branch.Active, &branch.CreatedAt, &branch.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Branch{}, domain.ErrBranchNotFound
		}
		return domain.Branch{}, fmt.Errorf("select branch: %w", err)
	}

	return branch, nil
}

func (r *branchRepository) List(ctx context.Context) ([]domain.Branch, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, location, active, created_at, updated_at
		FROM branches
		ORDER BY name ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	defer rows.Close()

	branches := make([]domain.Branch, 0)
	for rows.Next() {
		var branch domain.Branch
		if err := rows.Scan(
			&branch.ID, &branch.Name, &branch.Location, &branch.Active, &branch.CreatedAt, &branch.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan branch row: %w", err)
		}
		branches = append(branches, branch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate branch rows: %w", err)
	}

	return branches, nil
}

func (r *branchRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM branches WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete branch: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrBranchNotFound
	}

	return nil
}

var _ domain.BranchRepository = (*branchRepository)(nil)
