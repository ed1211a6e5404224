package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"commerce-service/config"
	"commerce-service/internal/api"
	"commerce-service/internal/broker"
	"commerce-service/internal/gateway"
	"commerce-service/internal/models"
	"commerce-service/internal/query"
	"commerce-service/internal/redisclient"
	"commerce-service/internal/resource"
	"commerce-service/internal/service"
	"commerce-service/internal/store"
	"commerce-service/internal/util"
	"commerce-service/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting commerce service")

	tp, err := util.InitTracer("commerce-service", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicCheckout)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	gatewayClient := gateway.NewClient(cfg.Gateway)
	pricing := service.NewPricingPolicy(cfg.Pricing)

	orderService := service.NewOrderService(db, eventPublisher)
	checkoutService := service.NewCheckoutService(db, redisClient, gatewayClient, eventPublisher, pricing, cfg.Gateway)

	engineOpts := resource.Options{
		Limits: query.Limits{
			DefaultLimit: cfg.API.DefaultPageSize,
			MaxLimit:     cfg.API.MaxPageSize,
		},
		EmptyListNotFound: cfg.API.EmptyListNotFound,
		BaseURL:           cfg.Server.BaseURL,
	}

	resources := api.Resources{
		Products:      resource.NewEngine[models.Product](db, resource.ProductsDef{}, engineOpts),
		Categories:    resource.NewEngine[models.Category](db, resource.CategoriesDef{}, engineOpts),
		SubCategories: resource.NewEngine[models.SubCategory](db, resource.SubCategoriesDef{}, engineOpts),
		Brands:        resource.NewEngine[models.Brand](db, resource.BrandsDef{}, engineOpts),
		Reviews:       resource.NewEngine[models.Review](db, resource.ReviewsDef{}, engineOpts),
		Orders:        resource.NewEngine[models.Order](db, resource.OrdersDef{}, engineOpts),
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	checkoutConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicCheckout, cfg.Kafka.ConsumerGroup)
	checkoutWorker := worker.NewCheckoutWorker(checkoutConsumer, checkoutService)
	go func() {
		if err := checkoutWorker.Start(workerCtx); err != nil {
			log.Printf("Checkout worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(resources, orderService, checkoutService, eventPublisher, cfg.Server)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	checkoutWorker.Stop()

	log.Println("Server exited")
}
