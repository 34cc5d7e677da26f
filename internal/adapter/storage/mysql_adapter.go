package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/restocklabs/restock-dispatch/internal/core/domain"
)

// MySQLAdapter implements the engine stores over the relational schema in
// scripts/schema.sql. The conditional UPDATE in DecrementIfAvailable is the
// oversell guard: the row is only touched when enough stock remains.
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) GetProduct(ctx context.Context, productID int64) (*domain.Product, error) {
	var p domain.Product
	err := m.db.QueryRowContext(ctx, `
		SELECT id, restock_round FROM product WHERE id = ?`, productID,
	).Scan(&p.ID, &p.RestockRound)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}
	return &p, nil
}

func (m *MySQLAdapter) SaveProduct(ctx context.Context, product *domain.Product) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE product SET restock_round = ? WHERE id = ?`,
		product.RestockRound, product.ID,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("product %d not found", product.ID)
	}
	return nil
}

func (m *MySQLAdapter) GetStock(ctx context.Context, productID int64, forUpdate bool) (*domain.StockRecord, error) {
	query := `SELECT product_id, stock_quantity, updated_at FROM product_stock WHERE product_id = ?`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var rec domain.StockRecord
	err := m.db.QueryRowContext(ctx, query, productID).
		Scan(&rec.ProductID, &rec.Quantity, &rec.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query stock: %w", err)
	}
	return &rec, nil
}

func (m *MySQLAdapter) DecrementIfAvailable(ctx context.Context, productID int64, quantity int) (bool, error) {
	result, err := m.db.ExecContext(ctx, `
		UPDATE product_stock
		SET stock_quantity = stock_quantity - ?, updated_at = NOW()
		WHERE product_id = ? AND stock_quantity >= ?`,
		quantity, productID, quantity,
	)
	if err != nil {
		return false, fmt.Errorf("decrement stock: %w", err)
	}

	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

func (m *MySQLAdapter) IncreaseStock(ctx context.Context, productID int64, quantity int) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE product_stock
		SET stock_quantity = stock_quantity + ?, updated_at = NOW()
		WHERE product_id = ?`,
		quantity, productID,
	)
	if err != nil {
		return fmt.Errorf("increase stock: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("no stock record for product %d", productID)
	}
	return nil
}

func (m *MySQLAdapter) ActiveUserIDs(ctx context.Context, productID int64) ([]int64, error) {
	return m.queryUserIDs(ctx, `
		SELECT user_id FROM product_user_notification
		WHERE product_id = ? AND is_active = TRUE
		ORDER BY user_id ASC`, productID)
}

func (m *MySQLAdapter) ActiveUserIDsAfter(ctx context.Context, productID int64, afterUserID int64) ([]int64, error) {
	return m.queryUserIDs(ctx, `
		SELECT user_id FROM product_user_notification
		WHERE product_id = ? AND is_active = TRUE AND user_id > ?
		ORDER BY user_id ASC`, productID, afterUserID)
}

func (m *MySQLAdapter) queryUserIDs(ctx context.Context, query string, args ...any) ([]int64, error) {
	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query subscribers: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan subscriber id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscribers: %w", err)
	}
	return ids, nil
}

func (m *MySQLAdapter) LatestRun(ctx context.Context, productID int64) (*domain.DispatchRun, error) {
	var run domain.DispatchRun
	var cursor sql.NullInt64
	err := m.db.QueryRowContext(ctx, `
		SELECT id, product_id, restock_round, notification_status, last_notified_user_id, created_at
		FROM product_notification_history
		WHERE product_id = ?
		ORDER BY restock_round DESC
		LIMIT 1`, productID,
	).Scan(&run.ID, &run.ProductID, &run.RestockRound, &run.Status, &cursor, &run.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest run: %w", err)
	}
	if cursor.Valid {
		run.LastNotifiedUserID = &cursor.Int64
	}
	return &run, nil
}

func (m *MySQLAdapter) SaveRun(ctx context.Context, run *domain.DispatchRun) error {
	var cursor sql.NullInt64
	if run.LastNotifiedUserID != nil {
		cursor = sql.NullInt64{Int64: *run.LastNotifiedUserID, Valid: true}
	}

	_, err := m.db.ExecContext(ctx, `
		INSERT INTO product_notification_history
			(id, product_id, restock_round, notification_status, last_notified_user_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			notification_status = VALUES(notification_status),
			last_notified_user_id = VALUES(last_notified_user_id)`,
		run.ID, run.ProductID, run.RestockRound, run.Status, cursor, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) SaveDelivery(ctx context.Context, record *domain.DeliveryRecord) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO product_user_notification_history
			(id, user_id, product_id, restock_round, notified_at)
		VALUES (?, ?, ?, ?, ?)`,
		record.ID, record.UserID, record.ProductID, record.RestockRound, record.DeliveredAt,
	)
	if err != nil {
		return fmt.Errorf("save delivery: %w", err)
	}
	return nil
}
