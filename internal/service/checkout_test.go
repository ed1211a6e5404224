package service

import (
	"testing"

	"commerce-service/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestStepRankOrdering(t *testing.T) {
	assert.Less(t, stepRank[models.CheckoutStepStarted], stepRank[models.CheckoutStepOrderCreated])
	assert.Less(t, stepRank[models.CheckoutStepOrderCreated], stepRank[models.CheckoutStepInventoryAdjusted])
	assert.Less(t, stepRank[models.CheckoutStepInventoryAdjusted], stepRank[models.CheckoutStepCompleted])
}

func TestStepRankFailedResumesAtInventory(t *testing.T) {
	// a failed attempt already has an order; retrying must redo the
	// inventory adjustment, not create a second order
	assert.Equal(t, stepRank[models.CheckoutStepOrderCreated], stepRank[models.CheckoutStepFailed])
}

func TestCashOrderEndToEnd(t *testing.T) {
	// cart [(productA, qty 2, price 50)] -> order total 100, productA
	// quantity -2, sold +2, cart deleted
	t.Skip("Integration test - requires database and redis")
}

func TestWebhookRedeliveryCreatesOneOrder(t *testing.T) {
	t.Skip("Integration test - requires database, redis and kafka")
}

func TestResumeAfterInventoryAdjustSkipsDecrement(t *testing.T) {
	// a crash after the adjustment committed leaves the attempt at
	// INVENTORY_ADJUSTED (recorded in the same transaction); re-running the
	// checkout must only delete the cart, never touch stock again
	t.Skip("Integration test - requires database and redis")
}

func TestCheckoutSessionMetadataCarriesCartOwner(t *testing.T) {
	// the session request's metadata must include the cart owner's user id
	// next to the shipping address fields
	t.Skip("Integration test - requires database and a gateway stub")
}
