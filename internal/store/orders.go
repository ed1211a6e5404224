package store

import (
	"context"
	"fmt"

	"commerce-service/internal/apperr"
	"commerce-service/internal/models"
)

// GetCart retrieves a cart with its items
func (s *Store) GetCart(ctx context.Context, cartID int64) (*models.Cart, error) {
	var cart models.Cart
	err := s.db.GetContext(ctx, &cart, "SELECT * FROM carts WHERE id = $1", cartID)
	if err != nil {
		return nil, apperr.FromDB(err, "There is no cart with this id")
	}

	err = s.db.SelectContext(ctx, &cart.Items,
		"SELECT * FROM cart_items WHERE cart_id = $1 ORDER BY id", cartID)
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// DeleteCart removes a cart and its items. Deleting an already-deleted cart
// is a no-op so resumed checkouts stay idempotent.
func (s *Store) DeleteCart(ctx context.Context, cartID int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM carts WHERE id = $1", cartID)
	return err
}

// CreateOrderFromCart inserts an order plus its item snapshot in one
// transaction. The snapshot is copied from the cart items, never referenced.
func (s *Store) CreateOrderFromCart(ctx context.Context, order *models.Order, cartItems []models.CartItem) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO orders (user_id, tax_price, shipping_price, total_order_price,
		                    payment_method, shipping_address, is_paid, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	err = tx.GetContext(ctx, order, query,
		order.UserID, order.TaxPrice, order.ShippingPrice, order.TotalOrderPrice,
		order.PaymentMethod, order.ShippingAddress, order.IsPaid, order.PaidAt)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", apperr.FromDB(err, ""))
	}

	order.Items = make([]models.OrderItem, 0, len(cartItems))
	for _, item := range cartItems {
		orderItem := models.OrderItem{
			OrderID:   order.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Color:     item.Color,
			Price:     item.Price,
		}

		err = tx.GetContext(ctx, &orderItem.ID, `
			INSERT INTO order_items (order_id, product_id, quantity, color, price)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			orderItem.OrderID, orderItem.ProductID, orderItem.Quantity,
			orderItem.Color, orderItem.Price)
		if err != nil {
			return fmt.Errorf("failed to create order item: %w", err)
		}
		order.Items = append(order.Items, orderItem)
	}

	return tx.Commit()
}

// GetOrderByID retrieves an order with its item snapshot
func (s *Store) GetOrderByID(ctx context.Context, orderID int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", orderID)
	if err != nil {
		return nil, apperr.FromDB(err, "There is no order with this id")
	}

	items, err := s.GetOrderItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return &order, nil
}

// GetOrderItems retrieves the item snapshot of an order
func (s *Store) GetOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", orderID)
	return items, err
}

// MarkOrderPaid flips is_paid once. Re-invoking on an already-paid order is
// a no-op that keeps the original paid_at.
func (s *Store) MarkOrderPaid(ctx context.Context, orderID int64) (*models.Order, error) {
	_, err := s.db.ExecContext(ctx, `
		UPDATE orders SET is_paid = TRUE, paid_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND is_paid = FALSE`,
		orderID)
	if err != nil {
		return nil, err
	}
	return s.GetOrderByID(ctx, orderID)
}

// MarkOrderDelivered flips is_delivered once, with the same idempotency as
// MarkOrderPaid.
func (s *Store) MarkOrderDelivered(ctx context.Context, orderID int64) (*models.Order, error) {
	_, err := s.db.ExecContext(ctx, `
		UPDATE orders SET is_delivered = TRUE, delivered_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND is_delivered = FALSE`,
		orderID)
	if err != nil {
		return nil, err
	}
	return s.GetOrderByID(ctx, orderID)
}

// BeginCheckoutAttempt upserts the attempt record for a cart. The cart_id
// unique constraint makes concurrent and repeated checkouts converge on one
// row; the returned attempt carries the step the saga should resume from.
func (s *Store) BeginCheckoutAttempt(ctx context.Context, cartID int64, paymentMethod string) (*models.CheckoutAttempt, error) {
	var attempt models.CheckoutAttempt
	err := s.db.GetContext(ctx, &attempt, `
		INSERT INTO checkout_attempts (cart_id, step, payment_method)
		VALUES ($1, $2, $3)
		ON CONFLICT (cart_id) DO UPDATE SET updated_at = NOW()
		RETURNING *`,
		cartID, models.CheckoutStepStarted, paymentMethod)
	if err != nil {
		return nil, fmt.Errorf("failed to begin checkout attempt: %w", err)
	}
	return &attempt, nil
}

// SetCheckoutAttemptOrder records the created order and advances the step
func (s *Store) SetCheckoutAttemptOrder(ctx context.Context, attemptID, orderID int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE checkout_attempts SET order_id = $1, step = $2, updated_at = NOW()
		WHERE id = $3`,
		orderID, models.CheckoutStepOrderCreated, attemptID)
	return err
}

// SetCheckoutAttemptStep advances the attempt to the given step
func (s *Store) SetCheckoutAttemptStep(ctx context.Context, attemptID int64, step string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE checkout_attempts SET step = $1, updated_at = NOW() WHERE id = $2`,
		step, attemptID)
	return err
}

// IsEventProcessed checks if a gateway event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks a gateway event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
