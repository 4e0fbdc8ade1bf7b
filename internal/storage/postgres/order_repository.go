package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/restaurant-oms/internal/domain"
)

const (
	opTimeout = 5 * time.Second

	// lockNamespace отделяет блокировки заказов от других advisory locks
	// в той же базе (например, от блокировки мигратора).
	lockNamespace = int32(0x524F4D53) // "ROMS"
)

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

func (r *orderRepository) Create(ctx context.Context, order domain.Order) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (
			id, customer_name, branch_id, status, total_minor, paid_minor, version, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		order.ID, order.CustomerName, order.BranchID, string(order.Status),
		order.TotalMinor, order.PaidMinor, order.Version, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrOrderVersionConflict
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for _, item := range order.Items {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (
				id, order_id, menu_item_id, name, price_minor, qty, cancelled, instructions
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`,
			item.ID, order.ID, item.MenuItemID, item.Name,
			item.PriceMinor, item.Qty, item.Cancelled, item.Instructions,
		); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create order: %w", err)
	}

	return nil
}

func (r *orderRepository) Get(ctx context.Context, id string) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return r.getOrder(ctx, r.db, id)
}

// GetForUpdate берёт session-level advisory lock по ключу заказа на
// выделенном соединении и читает заказ. Блокировка живёт до вызова
// release независимо от транзакций, поэтому Save через общий пул не
// конфликтует с ней. Конкурирующие расчёты по тому же заказу ждут на
// pg_advisory_lock.
func (r *orderRepository) GetForUpdate(ctx context.Context, id string) (domain.Order, domain.ReleaseFunc, error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return domain.Order{}, nil, fmt.Errorf("acquire db connection: %w", err)
	}

	key := orderLockKey(id)
	if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_lock($1, $2)", lockNamespace, key); err != nil {
		_ = conn.Close()
		return domain.Order{}, nil, fmt.Errorf("acquire order lock: %w", err)
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			_, _ = conn.ExecContext(context.Background(), "SELECT pg_advisory_unlock($1, $2)", lockNamespace, key)
			_ = conn.Close()
		})
	}

	readCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	order, err := r.getOrder(readCtx, conn, id)
	if err != nil {
		release()
		return domain.Order{}, nil, err
	}

	return order, release, nil
}

func (r *orderRepository) ListByBranch(ctx context.Context, branchID string, limit int) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query := `
		SELECT id, customer_name, branch_id, status, total_minor, paid_minor, version, created_at, updated_at
		FROM orders
		WHERE branch_id = $1
		ORDER BY created_at DESC, id DESC
	`
	args := []interface{}{branchID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		var order domain.Order
		var status string
		if err := rows.Scan(
			&order.ID, &order.CustomerName, &order.BranchID, &status,
			&order.TotalMinor, &order.PaidMinor, &order.Version, &order.CreatedAt, &order.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		order.Status = domain.OrderStatus(status)

		items, err := r.loadItems(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		order.Items = items
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	return orders, nil
}

func (r *orderRepository) Save(ctx context.Context, order domain.Order) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET customer_name = $1,
		    branch_id = $2,
		    status = $3,
		    total_minor = $4,
		    paid_minor = $5,
		    version = version + 1,
		    updated_at = $6
		WHERE id = $7
		  AND version = $8
	`,
		order.CustomerName,
		order.BranchID,
		string(order.Status),
		order.TotalMinor,
		order.PaidMinor,
		order.UpdatedAt,
		order.ID,
		order.Version,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		exists, err := r.orderExistsTx(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrOrderNotFound
		}
		return domain.ErrOrderVersionConflict
	}

	for _, item := range order.Items {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (
				id, order_id, menu_item_id, name, price_minor, qty, cancelled, instructions
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			ON CONFLICT (id) DO UPDATE
			SET cancelled = EXCLUDED.cancelled,
			    instructions = EXCLUDED.instructions
		`,
			item.ID, order.ID, item.MenuItemID, item.Name,
			item.PriceMinor, item.Qty, item.Cancelled, item.Instructions,
		); err != nil {
			return fmt.Errorf("upsert order item: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit save order: %w", err)
	}

	return nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *orderRepository) getOrder(ctx context.Context, q queryer, id string) (domain.Order, error) {
	var order domain.Order
	var status string

	err := q.QueryRowContext(ctx, `
		SELECT id, customer_name, branch_id, status, total_minor, paid_minor, version, created_at, updated_at
		FROM orders
		WHERE id = $1
	`, id).Scan(
		&order.ID, &order.CustomerName, &order.BranchID, &status,
		&order.TotalMinor, &order.PaidMinor, &order.Version, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}
	order.Status = domain.OrderStatus(status)

	items, err := r.loadItems(ctx, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	order.Items = items

	return order, nil
}

func (r *orderRepository) loadItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, menu_item_id, name, price_minor, qty, cancelled, instructions
		FROM order_items
		WHERE order_id = $1
		ORDER BY id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0)
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(
			&item.ID, &item.MenuItemID, &item.Name,
			&item.PriceMinor, &item.Qty, &item.Cancelled, &item.Instructions,
		); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}

	return items, nil
}

func (r *orderRepository) orderExistsTx(ctx context.Context, tx *sql.Tx, orderID string) (bool, error) {
	var id string
	err := tx.QueryRowContext(ctx, `SELECT id FROM orders WHERE id = $1`, orderID).Scan(&id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("check order exists: %w", err)
}

// orderLockKey сворачивает идентификатор заказа в 32-битный ключ
// advisory lock. Коллизии безвредны: они лишь сериализуют чужие заказы.
func orderLockKey(id string) int32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return int32(h.Sum32())
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ domain.OrderRepository = (*orderRepository)(nil)
