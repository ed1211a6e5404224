package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Product represents a product in the catalog. Prices are in the smallest
// currency unit.
type Product struct {
	ID                 int64          `db:"id" json:"id"`
	Title              string         `db:"title" json:"title"`
	Slug               string         `db:"slug" json:"slug"`
	Description        string         `db:"description" json:"description"`
	Quantity           int            `db:"quantity" json:"quantity"`
	Sold               int            `db:"sold" json:"sold"`
	Price              int64          `db:"price" json:"price"`
	PriceAfterDiscount *int64         `db:"price_after_discount" json:"price_after_discount,omitempty"`
	Colors             pq.StringArray `db:"colors" json:"colors,omitempty"`
	Images             pq.StringArray `db:"images" json:"images,omitempty"`
	ImageCover         string         `db:"image_cover" json:"image_cover"`
	CategoryID         int64          `db:"category_id" json:"category_id"`
	BrandID            *int64         `db:"brand_id" json:"brand_id,omitempty"`
	RatingsAverage     float64        `db:"ratings_average" json:"ratings_average"`
	RatingsQuantity    int            `db:"ratings_quantity" json:"ratings_quantity"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updated_at"`
}

// Category represents a top-level product category
type Category struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Slug      string    `db:"slug" json:"slug"`
	Image     string    `db:"image" json:"image,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SubCategory belongs to exactly one category
type SubCategory struct {
	ID         int64     `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	Slug       string    `db:"slug" json:"slug"`
	CategoryID int64     `db:"category_id" json:"category_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Brand represents a product brand
type Brand struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Slug      string    `db:"slug" json:"slug"`
	Image     string    `db:"image" json:"image,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Review is a user rating on a product. Writes trigger recomputation of the
// product's rating aggregate.
type Review struct {
	ID        int64     `db:"id" json:"id"`
	Title     string    `db:"title" json:"title,omitempty"`
	Rating    int       `db:"rating" json:"rating"`
	UserID    int64     `db:"user_id" json:"user_id"`
	ProductID int64     `db:"product_id" json:"product_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Cart is a mutable pre-order container. It is consumed and deleted exactly
// once by a successful checkout.
type Cart struct {
	ID                      int64      `db:"id" json:"id"`
	UserID                  int64      `db:"user_id" json:"user_id"`
	TotalCartPrice          int64      `db:"total_cart_price" json:"total_cart_price"`
	TotalPriceAfterDiscount *int64     `db:"total_price_after_discount" json:"total_price_after_discount,omitempty"`
	CreatedAt               time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt               time.Time  `db:"updated_at" json:"updated_at"`
	Items                   []CartItem `db:"-" json:"items,omitempty"`
}

// CartItem is one selected product inside a cart
type CartItem struct {
	ID        int64  `db:"id" json:"id"`
	CartID    int64  `db:"cart_id" json:"cart_id"`
	ProductID int64  `db:"product_id" json:"product_id"`
	Quantity  int    `db:"quantity" json:"quantity"`
	Color     string `db:"color" json:"color,omitempty"`
	Price     int64  `db:"price" json:"price"`
}

// ShippingAddress is stored on the order as a JSONB document.
type ShippingAddress struct {
	Details    string `json:"details,omitempty"`
	Phone      string `json:"phone,omitempty"`
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
}

func (a ShippingAddress) Value() (driver.Value, error) {
	return json.Marshal(a)
}

func (a *ShippingAddress) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*a = ShippingAddress{}
		return nil
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	default:
		return fmt.Errorf("cannot scan %T into ShippingAddress", src)
	}
}

// Order is the authoritative snapshot of a purchase at creation time. It is
// never recomputed from live product or cart data.
type Order struct {
	ID              int64           `db:"id" json:"id"`
	UserID          int64           `db:"user_id" json:"user_id"`
	TaxPrice        int64           `db:"tax_price" json:"tax_price"`
	ShippingPrice   int64           `db:"shipping_price" json:"shipping_price"`
	TotalOrderPrice int64           `db:"total_order_price" json:"total_order_price"`
	PaymentMethod   string          `db:"payment_method" json:"payment_method"`
	ShippingAddress ShippingAddress `db:"shipping_address" json:"shipping_address"`
	IsPaid          bool            `db:"is_paid" json:"is_paid"`
	PaidAt          *time.Time      `db:"paid_at" json:"paid_at,omitempty"`
	IsDelivered     bool            `db:"is_delivered" json:"is_delivered"`
	DeliveredAt     *time.Time      `db:"delivered_at" json:"delivered_at,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
	Items           []OrderItem     `db:"-" json:"items,omitempty"`
}

// OrderItem is a snapshot copy of a cart item, decoupled from the live cart
type OrderItem struct {
	ID        int64  `db:"id" json:"id"`
	OrderID   int64  `db:"order_id" json:"order_id"`
	ProductID int64  `db:"product_id" json:"product_id"`
	Quantity  int    `db:"quantity" json:"quantity"`
	Color     string `db:"color" json:"color,omitempty"`
	Price     int64  `db:"price" json:"price"`
}

// Payment methods
const (
	PaymentMethodCash = "cash"
	PaymentMethodCard = "card"
)

// Checkout attempt steps, in order. An attempt is unique per cart; resuming a
// checkout picks up after the last recorded step.
const (
	CheckoutStepStarted           = "STARTED"
	CheckoutStepOrderCreated      = "ORDER_CREATED"
	CheckoutStepInventoryAdjusted = "INVENTORY_ADJUSTED"
	CheckoutStepCompleted         = "COMPLETED"
	CheckoutStepFailed            = "FAILED"
)

// CheckoutAttempt is the persisted saga record for one cart's checkout.
type CheckoutAttempt struct {
	ID            int64     `db:"id" json:"id"`
	CartID        int64     `db:"cart_id" json:"cart_id"`
	OrderID       *int64    `db:"order_id" json:"order_id,omitempty"`
	Step          string    `db:"step" json:"step"`
	PaymentMethod string    `db:"payment_method" json:"payment_method"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// ProcessedEvent records consumed gateway events for idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
