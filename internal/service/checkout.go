package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"commerce-service/config"
	"commerce-service/internal/apperr"
	"commerce-service/internal/broker"
	"commerce-service/internal/gateway"
	"commerce-service/internal/models"
	"commerce-service/internal/redisclient"
	"commerce-service/internal/store"
	"commerce-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// checkoutLockTTL bounds how long a crashed checkout can block its cart.
const checkoutLockTTL = 30 * time.Second

// stepRank orders checkout attempt steps so a resumed attempt skips work
// already done. A failed attempt ranks with order-created: the order exists
// and a retry re-runs the inventory adjustment.
var stepRank = map[string]int{
	models.CheckoutStepStarted:           0,
	models.CheckoutStepOrderCreated:      1,
	models.CheckoutStepFailed:            1,
	models.CheckoutStepInventoryAdjusted: 2,
	models.CheckoutStepCompleted:         3,
}

// CheckoutService sequences cart-to-order conversion for both the cash path
// and the gateway-deferred path. Each checkout is tracked by a persisted
// attempt record keyed on the cart, so a crash mid-sequence resumes instead
// of duplicating the order, and webhook redeliveries converge on one order.
type CheckoutService struct {
	store          *store.Store
	redis          *redisclient.Client
	gateway        *gateway.Client
	eventPublisher *broker.EventPublisher
	pricing        PricingPolicy
	gatewayCfg     config.GatewayConfig
	logger         *zap.Logger
}

// NewCheckoutService creates a new checkout orchestrator
func NewCheckoutService(
	store *store.Store,
	redis *redisclient.Client,
	gatewayClient *gateway.Client,
	eventPublisher *broker.EventPublisher,
	pricing PricingPolicy,
	gatewayCfg config.GatewayConfig,
) *CheckoutService {
	return &CheckoutService{
		store:          store,
		redis:          redis,
		gateway:        gatewayClient,
		eventPublisher: eventPublisher,
		pricing:        pricing,
		gatewayCfg:     gatewayCfg,
		logger:         util.GetLogger(),
	}
}

// CreateCashOrder converts a cart into an unpaid cash-on-delivery order,
// adjusting inventory and deleting the cart.
func (s *CheckoutService) CreateCashOrder(ctx context.Context, cartID int64, address models.ShippingAddress) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.CreateCashOrder")
	defer span.End()

	return s.fulfillCart(ctx, cartID, address, models.PaymentMethodCash, false)
}

// CreateCheckoutSession requests a hosted payment session for a cart. No
// order is created here; the order is created when the gateway confirms
// payment through the webhook.
func (s *CheckoutService) CreateCheckoutSession(ctx context.Context, cartID int64, customerEmail string, address models.ShippingAddress) (*gateway.Session, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.CreateCheckoutSession")
	defer span.End()

	cart, err := s.store.GetCart(ctx, cartID)
	if err != nil {
		return nil, err
	}

	total := s.pricing.TotalOrderPrice(cart)

	session, err := s.gateway.CreateCheckoutSession(ctx, gateway.SessionParams{
		AmountTotal:       total,
		ProductName:       fmt.Sprintf("Order for %s", customerEmail),
		CustomerEmail:     customerEmail,
		ClientReferenceID: fmt.Sprintf("%d", cartID),
		SuccessURL:        s.gatewayCfg.SuccessURL,
		CancelURL:         s.gatewayCfg.CancelURL,
		Metadata: map[string]string{
			"user_id":     fmt.Sprintf("%d", cart.UserID),
			"details":     address.Details,
			"phone":       address.Phone,
			"city":        address.City,
			"postal_code": address.PostalCode,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	util.CheckoutSessionsTotal.Inc()
	s.logger.Info("Checkout session created",
		zap.Int64("cart_id", cartID),
		zap.String("session_id", session.ID))
	return session, nil
}

// FinalizeCheckout consumes a verified payment-success notification and runs
// the same fulfillment sequence as the cash path, creating the order already
// paid. Safe under at-least-once delivery: the gateway event id is recorded
// durably and the attempt record is unique per cart.
func (s *CheckoutService) FinalizeCheckout(ctx context.Context, event *models.PaymentSucceededEvent) error {
	ctx, span := util.StartSpan(ctx, "CheckoutService.FinalizeCheckout")
	defer span.End()

	if seen, err := s.redis.WasEventSeen(ctx, event.EventID); err == nil && seen {
		s.logger.Info("Duplicate gateway event skipped", zap.String("event_id", event.EventID))
		util.WebhookEventsTotal.WithLabelValues("duplicate").Inc()
		return nil
	}

	processed, err := s.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		s.logger.Info("Gateway event already processed", zap.String("event_id", event.EventID))
		util.WebhookEventsTotal.WithLabelValues("duplicate").Inc()
		return nil
	}

	s.logger.Info("Finalizing gateway checkout",
		zap.String("event_id", event.EventID),
		zap.Int64("cart_id", event.CartID))

	order, err := s.fulfillCart(ctx, event.CartID, event.ShippingAddress, models.PaymentMethodCard, true)
	if err != nil {
		util.WebhookEventsTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("failed to finalize checkout for cart %d: %w", event.CartID, err)
	}

	if err := s.store.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		s.logger.Error("Failed to mark event processed", zap.Error(err))
	}
	if err := s.redis.MarkEventSeen(ctx, event.EventID, 24*time.Hour); err != nil {
		s.logger.Warn("Failed to record event in dedupe cache", zap.Error(err))
	}

	util.WebhookEventsTotal.WithLabelValues("processed").Inc()
	s.logger.Info("Gateway checkout finalized",
		zap.Int64("order_id", order.ID),
		zap.Int64("cart_id", event.CartID))
	return nil
}

// fulfillCart is the shared fulfillment sequence: resolve cart, snapshot it
// into an order, adjust inventory in one batch, delete the cart. Each step
// is recorded on the attempt; a failure leaves the attempt at its last
// completed step and the next invocation resumes from there. Once the order
// exists it is never rolled back.
func (s *CheckoutService) fulfillCart(ctx context.Context, cartID int64, address models.ShippingAddress, paymentMethod string, paid bool) (*models.Order, error) {
	locked, err := s.redis.AcquireCheckoutLock(ctx, cartID, checkoutLockTTL)
	if err != nil {
		s.logger.Warn("Checkout lock unavailable, proceeding without it",
			zap.Int64("cart_id", cartID), zap.Error(err))
	} else if !locked {
		return nil, apperr.New(apperr.ValidationFailed, "A checkout for this cart is already in progress")
	} else {
		defer func() {
			if err := s.redis.ReleaseCheckoutLock(context.Background(), cartID); err != nil {
				s.logger.Warn("Failed to release checkout lock", zap.Int64("cart_id", cartID), zap.Error(err))
			}
		}()
	}

	attempt, err := s.store.BeginCheckoutAttempt(ctx, cartID, paymentMethod)
	if err != nil {
		return nil, err
	}
	rank := stepRank[attempt.Step]

	if attempt.Step == models.CheckoutStepCompleted {
		if attempt.OrderID == nil {
			return nil, fmt.Errorf("completed checkout attempt %d has no order", attempt.ID)
		}
		s.logger.Info("Checkout already completed, replaying order",
			zap.Int64("cart_id", cartID), zap.Int64("order_id", *attempt.OrderID))
		return s.store.GetOrderByID(ctx, *attempt.OrderID)
	}

	var order *models.Order
	if rank < stepRank[models.CheckoutStepOrderCreated] {
		cart, err := s.store.GetCart(ctx, cartID)
		if err != nil {
			return nil, err
		}
		if len(cart.Items) == 0 {
			return nil, apperr.New(apperr.ValidationFailed, "Cart is empty")
		}

		order = &models.Order{
			UserID:          cart.UserID,
			TaxPrice:        s.pricing.TaxPrice,
			ShippingPrice:   s.pricing.ShippingPrice,
			TotalOrderPrice: s.pricing.TotalOrderPrice(cart),
			PaymentMethod:   paymentMethod,
			ShippingAddress: address,
			IsPaid:          paid,
		}
		if paid {
			now := time.Now()
			order.PaidAt = &now
		}

		if err := s.store.CreateOrderFromCart(ctx, order, cart.Items); err != nil {
			util.CheckoutFailedTotal.WithLabelValues("order_create").Inc()
			return nil, err
		}
		if err := s.store.SetCheckoutAttemptOrder(ctx, attempt.ID, order.ID); err != nil {
			return nil, err
		}

		util.OrdersCreatedTotal.WithLabelValues(paymentMethod).Inc()
		if paid {
			util.OrdersPaidTotal.Inc()
		}
		s.logger.Info("Order created from cart",
			zap.Int64("order_id", order.ID),
			zap.Int64("cart_id", cartID),
			zap.Int64("total", order.TotalOrderPrice))
		s.publishOrderCreated(ctx, order)
	} else {
		if attempt.OrderID == nil {
			return nil, fmt.Errorf("checkout attempt %d at step %s has no order", attempt.ID, attempt.Step)
		}
		order, err = s.store.GetOrderByID(ctx, *attempt.OrderID)
		if err != nil {
			return nil, err
		}
		s.logger.Info("Resuming checkout",
			zap.Int64("cart_id", cartID),
			zap.String("step", attempt.Step))
	}

	if rank < stepRank[models.CheckoutStepInventoryAdjusted] {
		// the step record commits with the decrement inside AdjustInventory,
		// so a crash here cannot leave an applied-but-unrecorded adjustment
		// for the resume path to repeat
		start := time.Now()
		err := s.store.AdjustInventory(ctx, attempt.ID, order.Items)
		util.InventoryAdjustLatency.Observe(time.Since(start).Seconds())
		if err != nil {
			if errors.Is(err, store.ErrInsufficientStock) {
				// order is kept for manual reconciliation; a retry after
				// restock re-runs the adjustment
				_ = s.store.SetCheckoutAttemptStep(ctx, attempt.ID, models.CheckoutStepFailed)
				util.CheckoutFailedTotal.WithLabelValues("insufficient_stock").Inc()
			} else {
				util.CheckoutFailedTotal.WithLabelValues("inventory_error").Inc()
			}
			return nil, fmt.Errorf("inventory adjustment failed for order %d: %w", order.ID, err)
		}
		util.InventoryAdjustmentsTotal.Inc()
	}

	if err := s.store.DeleteCart(ctx, cartID); err != nil {
		util.CheckoutFailedTotal.WithLabelValues("cart_delete").Inc()
		return nil, fmt.Errorf("failed to delete cart %d: %w", cartID, err)
	}
	if err := s.store.SetCheckoutAttemptStep(ctx, attempt.ID, models.CheckoutStepCompleted); err != nil {
		return nil, err
	}

	return order, nil
}

func (s *CheckoutService) publishOrderCreated(ctx context.Context, order *models.Order) {
	items := make([]models.OrderItemData, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, models.OrderItemData{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.Price,
		})
	}

	event := &models.OrderCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderCreated,
			Timestamp: time.Now(),
		},
		OrderID:         order.ID,
		UserID:          order.UserID,
		TotalOrderPrice: order.TotalOrderPrice,
		PaymentMethod:   order.PaymentMethod,
		Items:           items,
	}

	if err := s.eventPublisher.PublishOrderCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderCreated event", zap.Error(err))
	}
}
