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

type menuItemRepository struct {
	db *sql.DB
}

// NewMenuItemRepository создаёт PostgreSQL-реализацию MenuItemRepository.
func NewMenuItemRepository(store *Store) domain.MenuItemRepository {
	return &menuItemRepository{db: store.DB()}
}

func (r *menuItemRepository) Save(ctx context.Context, item domain.MenuItem) (domain.MenuItem, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO menu_items (
			id, branch_id, name, description, price_minor, prep_time_minutes,
			category, diet_type, menu_type, available, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (id) DO UPDATE
		SET branch_id = EXCLUDED.branch_id,
		    name = EXCLUDED.name,
		    description = EXCLUDED.description,
		    price_minor = EXCLUDED.price_minor,
		    prep_time_minutes = EXCLUDED.prep_time_minutes,
		    category = EXCLUDED.category,
		    diet_type = EXCLUDED.diet_type,
		    menu_type = EXCLUDED.menu_type,
		    available = EXCLUDED.available,
		    updated_at = EXCLUDED.updated_at
	`,
		item.ID, item.BranchID, item.Name, item.Description, item.PriceMinor, item.PrepTimeMinutes,
		string(item.Category), string(item.DietType), string(item.MenuType), item.Available,
		item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return domain.MenuItem{}, fmt.Errorf("upsert menu item: %w", err)
	}

	return item, nil
}

func (r *menuItemRepository) Get(ctx context.Context, id string) (domain.MenuItem, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var item domain.MenuItem
	var category, dietType, menuType string

	err := r.db.QueryRowContext(ctx, `
		SELECT id, branch_id, name, description, price_minor, prep_time_minutes,
		       category, diet_type, menu_type, available, created_at, updated_at
		FROM menu_items
		WHERE id = $1
	`, id).Scan(
		&item.ID, &item.BranchID, &item.Name, &item.Description, &item.PriceMinor, &item.PrepTimeMinutes,
		&category, &dietType, &menuType, &item.Available, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.MenuItem{}, domain.ErrMenuItemNotFound
		}
		return domain.MenuItem{}, fmt.Errorf("select menu item: %w", err)
	}
	item.Category = domain.Category(category)
	item.DietType = domain.DietType(dietType)
	item.MenuType = domain.MenuType(menuType)

	return item, nil
}

func (r *menuItemRepository) ListByBranch(ctx context.Context, branchID string) ([]domain.MenuItem, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, branch_id, name, description, price_minor, prep_time_minutes,
		       category, diet_type, menu_type, available, created_at, updated_at
		FROM menu_items
		WHERE branch_id = $1
		ORDER BY name ASC, id ASC
	`, branchID)
	if err != nil {
		return nil, fmt.Errorf("list menu items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.MenuItem, 0)
	for rows.Next() {
		var item domain.MenuItem
		var category, dietType, menuType string
		if err := rows.Scan(
			&item.ID, &item.BranchID, &item.Name, &item.Description, &item.PriceMinor, &item.PrepTimeMinutes,
			&category, &dietType, &menuType, &item.Available, &item.CreatedAt, &item.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan menu item row: %w", err)
		}
		item.Category = domain.Category(category)
		item.DietType = domain.DietType(dietType)
		item.MenuType = domain.MenuType(menuType)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate menu item rows: %w", err)
	}

	return items, nil
}

var _ domain.MenuItemRepository = (*menuItemRepository)(nil)
