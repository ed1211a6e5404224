package worker

import (
	"context"

	"commerce-service/internal/broker"
	"commerce-service/internal/service"
	"commerce-service/internal/util"

	"go.uber.org/zap"
)

// CheckoutWorker consumes verified gateway payment events and finalizes the
// corresponding orders. Finalization is idempotent, so the at-least-once
// delivery of the topic is safe.
type CheckoutWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewCheckoutWorker creates a worker bound to the checkout orchestrator
func NewCheckoutWorker(consumer *broker.Consumer, checkout *service.CheckoutService) *CheckoutWorker {
	eventHandler := broker.NewEventHandler()
	eventHandler.OnPaymentSucceeded(checkout.FinalizeCheckout)

	return &CheckoutWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
		logger:       util.GetLogger(),
	}
}

// Start starts the worker
func (w *CheckoutWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting checkout worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *CheckoutWorker) Stop() error {
	w.logger.Info("Stopping checkout worker")
	return w.consumer.Close()
}
