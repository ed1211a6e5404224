package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ResourceOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resource_operations_total",
		Help: "Total number of generic resource operations",
	}, []string{"resource", "operation", "outcome"})

	OrdersCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Total number of orders created",
	}, []string{"payment_method"})

	OrdersPaidTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_paid_total",
		Help: "Total number of orders marked paid",
	})

	OrdersDeliveredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_delivered_total",
		Help: "Total number of orders marked delivered",
	})

	CheckoutFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_failed_total",
		Help: "Total number of failed checkout attempts",
	}, []string{"reason"})

	CheckoutSessionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_sessions_total",
		Help: "Total number of gateway checkout sessions created",
	})

	WebhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Total number of gateway webhook events received",
	}, []string{"result"})

	InventoryAdjustmentsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inventory_adjustments_total",
		Help: "Total number of batched inventory adjustments applied",
	})

	InventoryAdjustLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "inventory_adjust_latency_seconds",
		Help:    "Latency of batched inventory adjustments",
		Buckets: prometheus.DefBuckets,
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
