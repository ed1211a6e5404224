package models

import "time"

// Event types
const (
	EventTypeOrderCreated     = "ORDER_CREATED"
	EventTypeOrderPaid        = "ORDER_PAID"
	EventTypePaymentSucceeded = "PAYMENT_SUCCEEDED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderCreatedEvent published when a checkout produces an order
type OrderCreatedEvent struct {
	BaseEvent
	OrderID         int64           `json:"order_id"`
	UserID          int64           `json:"user_id"`
	TotalOrderPrice int64           `json:"total_order_price"`
	PaymentMethod   string          `json:"payment_method"`
	Items           []OrderItemData `json:"items"`
}

// OrderPaidEvent published when an order flips to paid
type OrderPaidEvent struct {
	BaseEvent
	OrderID int64 `json:"order_id"`
	UserID  int64 `json:"user_id"`
	Amount  int64 `json:"amount"`
}

// PaymentSucceededEvent is produced by the webhook intake from a verified
// gateway notification and consumed by the checkout worker. The cart id is
// the correlation token carried through the gateway session.
type PaymentSucceededEvent struct {
	BaseEvent
	CartID          int64           `json:"cart_id"`
	SessionID       string          `json:"session_id"`
	CustomerEmail   string          `json:"customer_email"`
	AmountTotal     int64           `json:"amount_total"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
}

// OrderItemData represents item data in events
type OrderItemData struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
	UnitPrice int64 `json:"unit_price"`
}
