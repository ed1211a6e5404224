package service

import (
	"testing"

	"commerce-service/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestTotalOrderPrice(t *testing.T) {
	policy := PricingPolicy{}

	cart := &models.Cart{
		TotalCartPrice: 100,
		Items: []models.CartItem{
			{ProductID: 1, Quantity: 2, Price: 50},
		},
	}

	assert.Equal(t, int64(100), policy.TotalOrderPrice(cart))
}

func TestTotalOrderPricePrefersDiscountedTotal(t *testing.T) {
	policy := PricingPolicy{}
	discounted := int64(80)

	cart := &models.Cart{
		TotalCartPrice:          100,
		TotalPriceAfterDiscount: &discounted,
	}

	assert.Equal(t, int64(80), policy.TotalOrderPrice(cart))
}

func TestTotalOrderPriceAddsTaxAndShipping(t *testing.T) {
	policy := PricingPolicy{TaxPrice: 14, ShippingPrice: 30}

	cart := &models.Cart{TotalCartPrice: 100}

	assert.Equal(t, int64(144), policy.TotalOrderPrice(cart))
}
