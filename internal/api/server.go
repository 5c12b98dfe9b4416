package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/SpideeCode/uberPharmaV2/internal/clients"
	"github.com/SpideeCode/uberPharmaV2/internal/config"
	"github.com/SpideeCode/uberPharmaV2/internal/database"
	"github.com/SpideeCode/uberPharmaV2/internal/handlers"
	"github.com/SpideeCode/uberPharmaV2/internal/outbox"
	"github.com/SpideeCode/uberPharmaV2/internal/repository"
	"github.com/SpideeCode/uberPharmaV2/internal/service"
	"github.com/SpideeCode/uberPharmaV2/pkg/kafka"
	"github.com/SpideeCode/uberPharmaV2/pkg/logger"
	"github.com/SpideeCode/uberPharmaV2/pkg/middleware"
	"github.com/SpideeCode/uberPharmaV2/pkg/retry"
)

type Server struct {
	config     *config.Config
	logger     logger.Logger
	router     *mux.Router
	httpServer *http.Server
	db         *database.Database

	orderRepo    *repository.OrderRepository
	productRepo  *repository.ProductRepository
	deliveryRepo *repository.DeliveryRepository
	cartRepo     *repository.CartRepository
	paymentRepo  *repository.PaymentRepository
	userRepo     *repository.UserRepository
	outboxRepo   *repository.OutboxRepository
	dlqRepo      *repository.DeadLetterRepository
	addressRepo  *repository.AddressRepository
	pharmacyRepo *repository.PharmacyRepository
	favoriteRepo *repository.FavoriteRepository
	reviewRepo   *repository.ReviewRepository

	orderService    *service.OrderService
	deliveryService *service.DeliveryService
	cartService     *service.CartService
	paymentService  *service.PaymentService
	addressService  *service.AddressService
	favoriteService *service.FavoriteService
	reviewService   *service.ReviewService
	paymentClient   *clients.PaymentClient

	kafkaProducer       *kafka.Producer
	kafkaConsumer       *kafka.Consumer
	outboxProcessor     *outbox.Processor
	deadLetterProcessor *outbox.DeadLetterProcessor
	rateLimiter         *middleware.RateLimiterMiddleware
}

// NewServer creates a new API server with the given configuration and logger.
func NewServer(cfg *config.Config, logger logger.Logger) *Server {
	r := mux.NewRouter()
	db, err := database.New(cfg, logger)

	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		panic(err)
	}

	if err := db.RunMigrations(); err != nil {
		logger.Error("Failed to run database migrations", "error", err)
		panic(err)
	}

	// Repositories
	orderRepo := repository.NewOrderRepository(db, logger)
	productRepo := repository.NewProductRepository(db, logger)
	deliveryRepo := repository.NewDeliveryRepository(db, logger)
	cartRepo := repository.NewCartRepository(db, logger)
	paymentRepo := repository.NewPaymentRepository(db, logger)
	userRepo := repository.NewUserRepository(db, logger)
	outboxRepo := repository.NewOutboxRepository(db, logger)
	dlqRepo := repository.NewDeadLetterRepository(db, logger)
	addressRepo := repository.NewAddressRepository(db, logger)
	pharmacyRepo := repository.NewPharmacyRepository(db, logger)
	favoriteRepo := repository.NewFavoriteRepository(db, logger)
	reviewRepo := repository.NewReviewRepository(db, logger)

	kafkaProducer, err := kafka.NewProducer(cfg.Kafka.Brokers, logger)

	if err != nil {
		logger.Error("Failed to create Kafka producer", "error", err)
		panic(err)
	}

	// Services
	paymentClient := clients.NewPaymentClient(cfg.Payment.GatewayURL, logger)
	orderService := service.NewOrderService(orderRepo, productRepo, deliveryRepo, paymentRepo, outboxRepo, logger)
	deliveryService := service.NewDeliveryService(deliveryRepo, orderRepo, userRepo, outboxRepo, logger)
	cartService := service.NewCartService(cartRepo, productRepo, orderService, logger)
	paymentService := service.NewPaymentService(paymentRepo, orderRepo, paymentClient, outboxRepo, logger)
	addressService := service.NewAddressService(addressRepo, pharmacyRepo, logger)
	subjects := service.NewSubjectDirectory(productRepo, pharmacyRepo, orderRepo)
	favoriteService := service.NewFavoriteService(favoriteRepo, subjects, logger)
	reviewService := service.NewReviewService(reviewRepo, orderRepo, subjects, logger)

	// Outbox processor
	outboxProcessor := outbox.NewProcessor(outboxRepo, dlqRepo, outbox.ProcessorConfig{
		PollingInterval: 5 * time.Second,
		BatchSize:       10,
		MaxRetries:      3,
	}, logger)

	// Dead letter processor polls less often, with a wider backoff
	deadLetterProcessor := outbox.NewDeadLetterProcessor(dlqRepo, logger, &outbox.DeadLetterProcessorConfig{
		PollingInterval: 30 * time.Second,
		BatchSize:       5,
		MaxRetries:      5,
		BackoffStrategy: &retry.ExponentialBackoff{
			InitialInterval: 1 * time.Second,
			MaxInterval:     2 * time.Minute,
			Multiplier:      2.0,
			JitterFactor:    0.1,
		},
	})

	// Every lifecycle event goes through the same Kafka handler; the topic
	// is keyed by order so consumers see events in order.
	kafkaHandler := outbox.NewKafkaHandler(kafkaProducer, cfg.Kafka.EventsTopic, logger)

	for _, eventType := range []string{
		"order_created",
		"order_status_changed",
		"delivery_status_changed",
		"payment_processed",
	} {
		outboxProcessor.RegisterHandler(eventType, kafkaHandler)
		deadLetterProcessor.RegisterHandler(eventType, kafkaHandler)
	}

	kafkaConsumer, err := kafka.NewConsumer(&kafka.ConsumerConfig{
		Brokers:       cfg.Kafka.Brokers,
		Topics:        []string{cfg.Kafka.EventsTopic},
		ConsumerGroup: cfg.Kafka.ConsumerGroup,
	}, logger)

	if err != nil {
		logger.Error("Failed to create Kafka consumer", "error", err)
		panic(err)
	}

	notificationHandler := handlers.NewNotificationHandler(logger)
	kafkaConsumer.RegisterHandler(cfg.Kafka.EventsTopic, notificationHandler)

	rateLimiter := middleware.NewRateLimiterMiddleware(&middleware.RateLimiterConfig{
		GlobalMaxTokens:   cfg.RateLimit.GlobalMaxTokens,
		GlobalRefillRate:  cfg.RateLimit.GlobalRefillRate,
		IPMaxTokens:       cfg.RateLimit.IPMaxTokens,
		IPRefillRate:      cfg.RateLimit.IPRefillRate,
		TrustForwardedFor: cfg.Env != "production",
	}, logger)

	server := &Server{
		config: cfg,
		logger: logger,
		router: r,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      r,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		db:                  db,
		orderRepo:           orderRepo,
		productRepo:         productRepo,
		deliveryRepo:        deliveryRepo,
		cartRepo:            cartRepo,
		paymentRepo:         paymentRepo,
		userRepo:            userRepo,
		outboxRepo:          outboxRepo,
		dlqRepo:             dlqRepo,
		addressRepo:         addressRepo,
		pharmacyRepo:        pharmacyRepo,
		favoriteRepo:        favoriteRepo,
		reviewRepo:          reviewRepo,
		orderService:        orderService,
		deliveryService:     deliveryService,
		cartService:         cartService,
		paymentService:      paymentService,
		addressService:      addressService,
		favoriteService:     favoriteService,
		reviewService:       reviewService,
		paymentClient:       paymentClient,
		kafkaProducer:       kafkaProducer,
		kafkaConsumer:       kafkaConsumer,
		outboxProcessor:     outboxProcessor,
		deadLetterProcessor: deadLetterProcessor,
		rateLimiter:         rateLimiter,
	}

	server.setupRoutes()

	outboxProcessor.Start()
	deadLetterProcessor.Start()

	if err := kafkaConsumer.Start(); err != nil {
		logger.Error("Failed to start Kafka consumer", "error", err)
		// Non-fatal, continue without the consumer
	}

	return server
}

// Start starts the HTTP server
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.outboxProcessor.Stop()
	s.deadLetterProcessor.Stop()
	s.rateLimiter.Stop()

	if s.kafkaConsumer != nil {
		if err := s.kafkaConsumer.Stop(); err != nil {
			s.logger.Error("Error stopping Kafka consumer", "error", err)
		}
	}

	if s.kafkaProducer != nil {
		if err := s.kafkaProducer.Close(); err != nil {
			s.logger.Error("Error closing Kafka producer", "error", err)
		}
	}

	if err := s.db.Close(); err != nil {
		s.logger.Error("Error closing database connection", "error", err)
	}

	return s.httpServer.Shutdown(ctx)
}

// setupRoutes configures all the routes for our API
func (s *Server) setupRoutes() {
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.rateLimiter.Middleware)

	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/health", s.healthCheckHandler).Methods(http.MethodGet)

	// Orders
	api.HandleFunc("/orders", s.createOrderHandler).Methods(http.MethodPost)
	api.HandleFunc("/orders", s.listOrdersHandler).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}", s.getOrderHandler).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}/status", s.updateOrderStatusHandler).Methods(http.MethodPatch)
	api.HandleFunc("/orders/{id}/accept", s.acceptOrderHandler).Methods(http.MethodPost)
	api.HandleFunc("/orders/{id}/pickup", s.pickUpOrderHandler).Methods(http.MethodPost)
	api.HandleFunc("/orders/{id}/complete", s.completeOrderHandler).Methods(http.MethodPost)

	// Payments
	api.HandleFunc("/orders/{id}/payments", s.processPaymentHandler).Methods(http.MethodPost)
	api.HandleFunc("/orders/{id}/payments", s.getPaymentHandler).Methods(http.MethodGet)

	// Deliveries
	api.HandleFunc("/deliveries/available", s.listAvailableDeliveriesHandler).Methods(http.MethodGet)
	api.HandleFunc("/deliveries", s.listDeliveriesHandler).Methods(http.MethodGet)
	api.HandleFunc("/deliveries/{id}/claim", s.claimDeliveryHandler).Methods(http.MethodPost)
	api.HandleFunc("/deliveries/{id}/status", s.advanceDeliveryHandler).Methods(http.MethodPatch)
	api.HandleFunc("/deliveries/{id}/tracking", s.trackDeliveryHandler).Methods(http.MethodGet)

	// Catalog
	api.HandleFunc("/pharmacies/{pharmacyId}/products", s.listProductsHandler).Methods(http.MethodGet)
	api.HandleFunc("/products/{id}", s.getProductHandler).Methods(http.MethodGet)

	// Carts, scoped per pharmacy
	api.HandleFunc("/pharmacies/{pharmacyId}/cart", s.getCartHandler).Methods(http.MethodGet)
	api.HandleFunc("/pharmacies/{pharmacyId}/cart", s.clearCartHandler).Methods(http.MethodDelete)
	api.HandleFunc("/pharmacies/{pharmacyId}/cart/items", s.addCartItemHandler).Methods(http.MethodPost)
	api.HandleFunc("/pharmacies/{pharmacyId}/cart/items/{itemId}", s.updateCartItemHandler).Methods(http.MethodPatch)
	api.HandleFunc("/pharmacies/{pharmacyId}/cart/items/{itemId}", s.removeCartItemHandler).Methods(http.MethodDelete)
	api.HandleFunc("/pharmacies/{pharmacyId}/cart/checkout", s.checkoutCartHandler).Methods(http.MethodPost)

	// Address book
	api.HandleFunc("/addresses", s.listAddressesHandler).Methods(http.MethodGet)
	api.HandleFunc("/addresses", s.createAddressHandler).Methods(http.MethodPost)
	api.HandleFunc("/addresses/default", s.getDefaultAddressHandler).Methods(http.MethodGet)
	api.HandleFunc("/addresses/{id}", s.getAddressHandler).Methods(http.MethodGet)
	api.HandleFunc("/addresses/{id}", s.updateAddressHandler).Methods(http.MethodPatch)
	api.HandleFunc("/addresses/{id}", s.deleteAddressHandler).Methods(http.MethodDelete)
	api.HandleFunc("/addresses/{id}/default", s.setDefaultAddressHandler).Methods(http.MethodPost)
	api.HandleFunc("/addresses/{id}/nearby-pharmacies", s.nearbyPharmaciesHandler).Methods(http.MethodGet)

	// Favorites
	api.HandleFunc("/favorites", s.listFavoritesHandler).Methods(http.MethodGet)
	api.HandleFunc("/favorites", s.addFavoriteHandler).Methods(http.MethodPost)
	api.HandleFunc("/favorites/check", s.checkFavoriteHandler).Methods(http.MethodGet)
	api.HandleFunc("/favorites/{id}", s.removeFavoriteHandler).Methods(http.MethodDelete)

	// Reviews, addressed by tagged subject
	api.HandleFunc("/reviews/{subjectKind}/{subjectId}", s.listReviewsHandler).Methods(http.MethodGet)
	api.HandleFunc("/reviews/{subjectKind}/{subjectId}", s.createReviewHandler).Methods(http.MethodPost)
	api.HandleFunc("/reviews/{id}", s.updateReviewHandler).Methods(http.MethodPatch)
	api.HandleFunc("/reviews/{id}", s.deleteReviewHandler).Methods(http.MethodDelete)

	// Admin API for monitoring and management
	admin := s.router.PathPrefix("/api/v1/admin").Subrouter()
	admin.Use(s.requireAdminMiddleware)
	admin.HandleFunc("/dead-letters", s.getDeadLettersHandler).Methods(http.MethodGet)
	admin.HandleFunc("/dead-letters/{id}/retry", s.retryDeadLetterHandler).Methods(http.MethodPost)
	admin.HandleFunc("/dead-letters/{id}/discard", s.discardDeadLetterHandler).Methods(http.MethodPost)
	admin.HandleFunc("/circuit-breakers", s.getCircuitBreakersHandler).Methods(http.MethodGet)
	admin.HandleFunc("/reviews/{id}/moderate", s.moderateReviewHandler).Methods(http.MethodPost)
}

// Middleware for logging requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		s.logger.Info("Request processed",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
			"remoteAddr", r.RemoteAddr,
		)
	})
}

func (s *Server) requireAdminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := s.actorFromRequest(w, r)

		if !ok {
			return
		}

		if !actor.IsAdmin() {
			s.respondWithError(w, http.StatusForbidden, "Admin access required")
			return
		}

		next.ServeHTTP(w, r)
	})
}
