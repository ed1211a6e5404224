package store

import (
	"context"
	"fmt"
	"time"

	"commerce-service/internal/apperr"
	"commerce-service/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// ErrInsufficientStock is returned when a batched inventory adjustment would
// take any product's quantity below zero.
var ErrInsufficientStock = apperr.New(apperr.ValidationFailed,
	"Insufficient stock for one or more products in the order")

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// AdjustInventory decrements quantity and increments sold for every item in
// one batched statement, and advances the checkout attempt to
// INVENTORY_ADJUSTED in the same transaction. Committing the decrement and
// the step record together means a crash can never leave the decrement
// applied but unrecorded, so a resumed checkout never re-applies it. The
// whole batch commits only if every product holds enough stock; a short
// affected-row count rolls back and fails with ErrInsufficientStock.
func (s *Store) AdjustInventory(ctx context.Context, attemptID int64, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	ids := make([]int64, len(items))
	qtys := make([]int64, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
		qtys[i] = int64(item.Quantity)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE products AS p
		SET quantity = p.quantity - u.qty,
		    sold = p.sold + u.qty,
		    updated_at = NOW()
		FROM (SELECT unnest($1::bigint[]) AS product_id, unnest($2::bigint[]) AS qty) AS u
		WHERE p.id = u.product_id AND p.quantity >= u.qty`,
		pq.Array(ids), pq.Array(qtys))
	if err != nil {
		return fmt.Errorf("failed to adjust inventory: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected != int64(len(items)) {
		return ErrInsufficientStock
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE checkout_attempts SET step = $1, updated_at = NOW() WHERE id = $2`,
		models.CheckoutStepInventoryAdjusted, attemptID)
	if err != nil {
		return fmt.Errorf("failed to record inventory adjustment: %w", err)
	}

	return tx.Commit()
}

// RecomputeProductRatings refreshes a product's rating aggregate from its
// reviews. Fired by the review resource's write hook.
func (s *Store) RecomputeProductRatings(ctx context.Context, productID int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET ratings_average = COALESCE(r.avg_rating, 0),
		    ratings_quantity = r.rating_count,
		    updated_at = NOW()
		FROM (
			SELECT AVG(rating)::float8 AS avg_rating, COUNT(*) AS rating_count
			FROM reviews WHERE product_id = $1
		) AS r
		WHERE products.id = $1`,
		productID)
	if err != nil {
		return fmt.Errorf("failed to recompute ratings for product %d: %w", productID, err)
	}
	return nil
}
