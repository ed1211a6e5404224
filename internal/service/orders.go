package service

import (
	"context"
	"time"

	"commerce-service/internal/broker"
	"commerce-service/internal/models"
	"commerce-service/internal/store"
	"commerce-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderService owns order lifecycle transitions after creation. Paid and
// delivered are one-way flips; re-invoking either on an order that already
// holds the flag is a no-op that preserves the original timestamp.
type OrderService struct {
	store          *store.Store
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(store *store.Store, eventPublisher *broker.EventPublisher) *OrderService {
	return &OrderService{
		store:          store,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// GetOrder retrieves an order with its item snapshot
func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	return s.store.GetOrderByID(ctx, orderID)
}

// MarkPaid transitions an order to paid
func (s *OrderService) MarkPaid(ctx context.Context, orderID int64) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.MarkPaid")
	defer span.End()

	existing, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if existing.IsPaid {
		return existing, nil
	}

	order, err := s.store.MarkOrderPaid(ctx, orderID)
	if err != nil {
		return nil, err
	}

	util.OrdersPaidTotal.Inc()
	s.logger.Info("Order marked paid", zap.Int64("order_id", orderID))

	event := &models.OrderPaidEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderPaid,
			Timestamp: time.Now(),
		},
		OrderID: order.ID,
		UserID:  order.UserID,
		Amount:  order.TotalOrderPrice,
	}
	if err := s.eventPublisher.PublishOrderPaid(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderPaid event", zap.Error(err))
	}

	return order, nil
}

// MarkDelivered transitions an order to delivered
func (s *OrderService) MarkDelivered(ctx context.Context, orderID int64) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.MarkDelivered")
	defer span.End()

	existing, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if existing.IsDelivered {
		return existing, nil
	}

	order, err := s.store.MarkOrderDelivered(ctx, orderID)
	if err != nil {
		return nil, err
	}

	util.OrdersDeliveredTotal.Inc()
	s.logger.Info("Order marked delivered", zap.Int64("order_id", orderID))
	return order, nil
}
