package service

import (
	"commerce-service/config"
	"commerce-service/internal/models"
)

// PricingPolicy carries the tax and shipping inputs of the order total.
// Both default to zero but stay first-class inputs so a future policy can
// supply real values without touching the formula.
type PricingPolicy struct {
	TaxPrice      int64
	ShippingPrice int64
}

// NewPricingPolicy creates a pricing policy from configuration
func NewPricingPolicy(cfg config.PricingConfig) PricingPolicy {
	return PricingPolicy{
		TaxPrice:      cfg.TaxPrice,
		ShippingPrice: cfg.ShippingPrice,
	}
}

// TotalOrderPrice computes the order total from a cart snapshot: the
// discount-adjusted total when a coupon applied, otherwise the cart total,
// plus tax and shipping.
func (p PricingPolicy) TotalOrderPrice(cart *models.Cart) int64 {
	cartPrice := cart.TotalCartPrice
	if cart.TotalPriceAfterDiscount != nil {
		cartPrice = *cart.TotalPriceAfterDiscount
	}
	return cartPrice + p.TaxPrice + p.ShippingPrice
}
