package api

import (
	"net/http"
	"strconv"
	"time"

	"commerce-service/config"
	"commerce-service/internal/apperr"
	"commerce-service/internal/broker"
	"commerce-service/internal/models"
	"commerce-service/internal/query"
	"commerce-service/internal/resource"
	"commerce-service/internal/service"
	"commerce-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// gatewayEventCompleted is the gateway notification type that finalizes a
// checkout.
const gatewayEventCompleted = "checkout.session.completed"

// Resources is the set of engines served through the generic CRUD surface.
type Resources struct {
	Products      resource.Operations
	Categories    resource.Operations
	SubCategories resource.Operations
	Brands        resource.Operations
	Reviews       resource.Operations
	Orders        resource.Operations
}

// Handler contains HTTP handlers
type Handler struct {
	resources      Resources
	orderService   *service.OrderService
	checkout       *service.CheckoutService
	eventPublisher *broker.EventPublisher
	devMode        bool
	logger         *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	resources Resources,
	orderService *service.OrderService,
	checkout *service.CheckoutService,
	eventPublisher *broker.EventPublisher,
	cfg config.ServerConfig,
) *Handler {
	return &Handler{
		resources:      resources,
		orderService:   orderService,
		checkout:       checkout,
		eventPublisher: eventPublisher,
		devMode:        cfg.Env != "production",
		logger:         util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// the gateway posts the raw signed payload here; signature verification
	// happens upstream, this consumes the verified event
	router.POST("/webhook-checkout", h.webhookCheckout)

	v1 := router.Group("/api/v1")

	products := resourceHandlers{ops: h.resources.Products, devMode: h.devMode}
	products.mount(v1)

	categories := resourceHandlers{ops: h.resources.Categories, devMode: h.devMode}
	categories.mount(v1)

	subcategories := resourceHandlers{ops: h.resources.SubCategories, devMode: h.devMode}
	subcategories.mount(v1)
	subcategories.mountNested(v1, "categories", "category_id")

	brands := resourceHandlers{ops: h.resources.Brands, devMode: h.devMode}
	brands.mount(v1)

	reviews := resourceHandlers{ops: h.resources.Reviews, devMode: h.devMode}
	reviews.mount(v1)
	reviews.mountNested(v1, "products", "product_id")

	orders := v1.Group("/orders")
	orders.GET("", h.listOrders)
	orders.GET("/checkout-session/:cartId", h.checkoutSession)
	orders.GET("/:id", h.getOrder)
	orders.POST("/:cartId", h.createCashOrder)
	orders.PATCH("/:id/pay", h.payOrder)
	orders.PATCH("/:id/deliver", h.deliverOrder)
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// identity reads the caller identity injected by the upstream auth
// middleware.
func identity(c *gin.Context) (int64, string, error) {
	raw := c.GetHeader("X-User-ID")
	if raw == "" {
		return 0, "", apperr.New(apperr.AuthTokenInvalid, "You are not logged in. Please log in to get access.")
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, "", apperr.New(apperr.AuthTokenInvalid, "Invalid user identity")
	}
	return userID, c.GetHeader("X-User-Role"), nil
}

// privilegedRole reports whether the role sees all orders.
func privilegedRole(role string) bool {
	return role == "admin" || role == "manager"
}

// orderVisible reports whether the caller may read the order. A foreign
// order reads as not found rather than forbidden, so identifiers leak
// nothing.
func orderVisible(order *models.Order, userID int64, role string) bool {
	return privilegedRole(role) || order.UserID == userID
}

// listOrders lists orders, scoped to the caller unless privileged
func (h *Handler) listOrders(c *gin.Context) {
	userID, role, err := identity(c)
	if err != nil {
		respondError(c, err, h.devMode)
		return
	}

	var scopes []query.Scope
	if !privilegedRole(role) {
		scopes = append(scopes, query.Scope{Column: "user_id", Value: userID})
	}

	result, err := h.resources.Orders.List(c.Request.Context(), c.Request.URL.Query(), scopes...)
	if err != nil {
		respondError(c, err, h.devMode)
		return
	}
	respondList(c, result)
}

// getOrder retrieves an order with its item snapshot, scoped to the caller
// unless privileged
func (h *Handler) getOrder(c *gin.Context) {
	userID, role, err := identity(c)
	if err != nil {
		respondError(c, err, h.devMode)
		return
	}

	id, err := pathID(c)
	if err != nil {
		respondError(c, err, h.devMode)
		return
	}

	order, err := h.orderService.GetOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, h.devMode)
		return
	}
	if !orderVisible(order, userID, role) {
		respondError(c, apperr.New(apperr.NotFound, "There is no order with this id"), h.devMode)
		return
	}
	respondData(c, http.StatusOK, order)
}

type shippingAddressRequest struct {
	ShippingAddress models.ShippingAddress `json:"shipping_address"`
}

// createCashOrder converts a cart into a cash-on-delivery order
func (h *Handler) createCashOrder(c *gin.Context) {
	if _, _, err := identity(c); err != nil {
		respondError(c, err, h.devMode)
		return
	}

	cartID, err := parseID(c.Param("cartId"))
	if err != nil {
		respondError(c, err, h.devMode)
		return
	}

	var req shippingAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Wrap(apperr.ValidationFailed, "Invalid request body", err), h.devMode)
		return
	}

	order, err := h.checkout.CreateCashOrder(c.Request.Context(), cartID, req.ShippingAddress)
	if err != nil {
		respondError(c, err, h.devMode)
		return
	}
	respondData(c, http.StatusCreated, order)
}

// checkoutSession requests a hosted payment session for a cart
func (h *Handler) checkoutSession(c *gin.Context) {
	if _, _, err := identity(c); err != nil {
		respondError(c, err, h.devMode)
		return
	}

	cartID, err := parseID(c.Param("cartId"))
	if err != nil {
		respondError(c, err, h.devMode)
		return
	}

	var req shippingAddressRequest
	_ = c.ShouldBindJSON(&req) // shipping address is optional here

	email := c.GetHeader("X-User-Email")
	session, err := h.checkout.CreateCheckoutSession(c.Request.Context(), cartID, email, req.ShippingAddress)
	if err != nil {
		respondError(c, err, h.devMode)
		return
	}
	respondData(c, http.StatusOK, session)
}

// payOrder marks an order as paid (idempotent)
func (h *Handler) payOrder(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		respondError(c, err, h.devMode)
		return
	}

	order, err := h.orderService.MarkPaid(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, h.devMode)
		return
	}
	respondData(c, http.StatusOK, order)
}

// deliverOrder marks an order as delivered (idempotent)
func (h *Handler) deliverOrder(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		respondError(c, err, h.devMode)
		return
	}

	order, err := h.orderService.MarkDelivered(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, h.devMode)
		return
	}
	respondData(c, http.StatusOK, order)
}

// gatewayEvent is the provider's webhook envelope. The cart identifier
// travels in client_reference_id; the shipping address in session metadata.
type gatewayEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID                string            `json:"id"`
			ClientReferenceID string            `json:"client_reference_id"`
			CustomerEmail     string            `json:"customer_email"`
			AmountTotal       int64             `json:"amount_total"`
			Metadata          map[string]string `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// webhookCheckout converts a verified gateway notification into a domain
// event and hands it to the checkout worker through the broker. Responding
// 200 quickly is what stops the gateway from retrying; the finalization
// itself is asynchronous and idempotent.
func (h *Handler) webhookCheckout(c *gin.Context) {
	var event gatewayEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		util.WebhookEventsTotal.WithLabelValues("malformed").Inc()
		respondError(c, apperr.Wrap(apperr.ValidationFailed, "Invalid webhook payload", err), h.devMode)
		return
	}

	if event.Type != gatewayEventCompleted {
		util.WebhookEventsTotal.WithLabelValues("ignored").Inc()
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	cartID, err := strconv.ParseInt(event.Data.Object.ClientReferenceID, 10, 64)
	if err != nil {
		util.WebhookEventsTotal.WithLabelValues("malformed").Inc()
		respondError(c, apperr.New(apperr.InvalidIdentifier, "Invalid cart reference in webhook payload"), h.devMode)
		return
	}

	meta := event.Data.Object.Metadata
	domainEvent := &models.PaymentSucceededEvent{
		BaseEvent: models.BaseEvent{
			EventID:   event.ID,
			EventType: models.EventTypePaymentSucceeded,
			Timestamp: time.Now(),
		},
		CartID:        cartID,
		SessionID:     event.Data.Object.ID,
		CustomerEmail: event.Data.Object.CustomerEmail,
		AmountTotal:   event.Data.Object.AmountTotal,
		ShippingAddress: models.ShippingAddress{
			Details:    meta["details"],
			Phone:      meta["phone"],
			City:       meta["city"],
			PostalCode: meta["postal_code"],
		},
	}

	if err := h.eventPublisher.PublishPaymentSucceeded(c.Request.Context(), domainEvent); err != nil {
		// a non-2xx makes the gateway redeliver, which is what we want here
		h.logger.Error("Failed to enqueue payment event", zap.Error(err))
		util.WebhookEventsTotal.WithLabelValues("enqueue_failed").Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"received": false})
		return
	}

	util.WebhookEventsTotal.WithLabelValues("accepted").Inc()
	c.JSON(http.StatusOK, gin.H{"received": true})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
