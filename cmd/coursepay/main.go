package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chi_middleware "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"coursepay/internal/app/cart"
	"coursepay/internal/app/payments"
	"coursepay/internal/cache"
	"coursepay/internal/config"
	"coursepay/internal/gateway"
	cart_http "coursepay/internal/handler/http/cart"
	"coursepay/internal/handler/http/middleware"
	payments_http "coursepay/internal/handler/http/payments"
	"coursepay/internal/infrastructure/database"
	kafka_infra "coursepay/internal/infrastructure/kafka"
	"coursepay/internal/notification"
	"coursepay/internal/outbox"
	"coursepay/internal/repository/carts_repo"
	"coursepay/internal/repository/courses_repo"
	"coursepay/internal/repository/enrollments_repo"
	"coursepay/internal/repository/outbox_repo"
	"coursepay/internal/repository/payment_items_repo"
	"coursepay/internal/repository/payments_repo"
	"coursepay/internal/repository/users_repo"
	"coursepay/internal/repository/webhook_deliveries_repo"
	"coursepay/internal/webhook"
)

func ensureKafkaTopics(ctx context.Context, brokerURLs []string, topics []string, logger *zap.Logger) error {
	conn, err := kafka.DialContext(ctx, "tcp", brokerURLs[0])
	if err != nil {
		return fmt.Errorf("failed to dial kafka broker for admin operations: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("failed to get kafka controller: %w", err)
	}
	controllerConn, err := kafka.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	if err != nil {
		return fmt.Errorf("failed to dial kafka controller: %w", err)
	}
	defer controllerConn.Close()

	topicConfigs := make([]kafka.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafka.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}

	if err := controllerConn.CreateTopics(topicConfigs...); err != nil {
		if err == kafka.TopicAlreadyExists {
			logger.Info("One or more Kafka topics already exist, skipping creation.")
			return nil
		}
		return fmt.Errorf("failed to create Kafka topics: %w", err)
	}
	logger.Info("Kafka topics ensured successfully.", zap.Strings("topics", topics))
	return nil
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapConfig.EncoderConfig.TimeKey = "timestamp"

	appLogger, err := zapConfig.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create zap logger: %v\n", err)
		os.Exit(1)
	}
	appLogger.Info("Coursepay service starting...")

	appLogger.Info("Waiting for database to be available...")
	dbConfig := database.DBConfig{
		Host:     cfg.DBConfig.Host,
		Port:     cfg.DBConfig.Port,
		User:     cfg.DBConfig.User,
		Password: cfg.DBConfig.Password,
		DBName:   cfg.DBConfig.Name,
		SSLMode:  cfg.DBConfig.SSLMode,
	}

	var db *sql.DB
	maxRetries := 10
	retryDelay := 5 * time.Second

	for i := 0; i < maxRetries; i++ {
		db, err = database.NewPostgresDB(dbConfig)
		if err == nil {
			appLogger.Info("Successfully connected to PostgreSQL database!")
			break
		}
		appLogger.Warn(fmt.Sprintf("Failed to connect to database (attempt %d/%d): %v. Retrying in %s...", i+1, maxRetries, err, retryDelay))
		time.Sleep(retryDelay)
	}

	if db == nil {
		appLogger.Fatal("Could not connect to database after multiple retries. Exiting.", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			appLogger.Error("Error closing database connection", zap.Error(err))
		}
	}()

	appLogger.Info("Running database migrations...")
	m, err := migrate.New(cfg.MigrationsPath, cfg.GetDBMigrationConnectionString())
	if err != nil {
		appLogger.Fatal("Failed to create migrate instance", zap.Error(err))
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		appLogger.Fatal("Failed to run database migrations", zap.Error(err))
	}
	appLogger.Info("Database migrations completed successfully (or no new migrations).")

	kafkaBrokers := cfg.GetKafkaBrokers()
	topicCtx, topicCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer topicCancel()
	if err := ensureKafkaTopics(topicCtx, kafkaBrokers, []string{cfg.KafkaNotificationTopic}, appLogger); err != nil {
		appLogger.Fatal("Failed to ensure Kafka topics", zap.Error(err))
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			appLogger.Error("Error closing Redis client", zap.Error(err))
		}
	}()

	paymentRepository := payments_repo.NewPaymentRepository(db)
	paymentItemRepository := payment_items_repo.NewPaymentItemRepository(db)
	enrollmentRepository := enrollments_repo.NewEnrollmentRepository(db)
	courseRepository := courses_repo.NewCourseRepository(db)
	userRepository := users_repo.NewUserRepository(db)
	cartRepository := carts_repo.NewCartRepository(db)
	outboxRepository := outbox_repo.NewOutboxRepository(db)
	deliveryRepository := webhook_deliveries_repo.NewWebhookDeliveryRepository(db)

	gatewayClient := gateway.NewHTTPClient(
		cfg.GatewayBaseURL,
		cfg.GatewayAPIKey,
		cfg.GatewayTimeout,
		appLogger.With(zap.String("component", "GatewayClient")),
	)
	secretCache := cache.NewRedisSecretCache(
		redisClient,
		cfg.SecretCacheTTL,
		appLogger.With(zap.String("component", "SecretCache")),
	)
	notifier := notification.NewOutboxNotifier(
		outboxRepository,
		appLogger.With(zap.String("component", "Notifier")),
	)

	paymentService := payments.NewPaymentService(
		db,
		paymentRepository,
		paymentItemRepository,
		enrollmentRepository,
		courseRepository,
		userRepository,
		cartRepository,
		deliveryRepository,
		gatewayClient,
		secretCache,
		notifier,
		appLogger.With(zap.String("component", "PaymentService")),
	)
	cartService := cart.NewCartService(
		db,
		cartRepository,
		courseRepository,
		enrollmentRepository,
		appLogger.With(zap.String("component", "CartService")),
	)
	appLogger.Info("Application services initialized.")

	authenticator := middleware.NewAuthenticator(cfg.JWTSecret, appLogger.With(zap.String("component", "Authenticator")))
	if cfg.WebhookSharedSecret == "" {
		appLogger.Fatal("WEBHOOK_SHARED_SECRET is not set; refusing to start with unauthenticated webhooks")
	}
	genericVerifier := webhook.NewHMACVerifier(cfg.WebhookSharedSecret)
	stripeVerifier := webhook.NewStripeVerifier(cfg.StripeWebhookSecret, cfg.StripeTolerance)

	router := chi.NewRouter()
	router.Use(chi_middleware.Logger)
	router.Use(chi_middleware.Recoverer)
	payments_http.RegisterRoutes(router, paymentService, authenticator, genericVerifier, stripeVerifier, appLogger)
	cart_http.RegisterRoutes(router, cartService, authenticator, appLogger)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: router,
	}
	appLogger.Info("HTTP server configured.")

	kafkaProducer := kafka_infra.NewProducer(
		kafkaBrokers,
		appLogger.With(zap.String("component", "KafkaProducer")),
	)
	defer func() {
		if err := kafkaProducer.Close(); err != nil {
			appLogger.Error("Error closing Kafka producer", zap.Error(err))
		}
	}()

	outboxProcessor := outbox.NewProcessor(
		db,
		outboxRepository,
		kafkaProducer,
		cfg.KafkaNotificationTopic,
		cfg.OutboxPollInterval,
		cfg.OutboxPollTimeout,
		appLogger.With(zap.String("component", "OutboxProcessor")),
	)
	appLogger.Info("Outbox Processor initialized.")

	ctxMain, cancelMain := context.WithCancel(context.Background())

	go func() {
		appLogger.Info("Starting HTTP server", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	go func() {
		appLogger.Info("Starting Outbox Processor...")
		outboxProcessor.Start(ctxMain)
		appLogger.Info("Outbox Processor stopped.")
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	appLogger.Info("Shutting down application...")

	cancelMain()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("HTTP server graceful shutdown failed", zap.Error(err))
	} else {
		appLogger.Info("HTTP server gracefully shut down.")
	}

	appLogger.Info("Application gracefully shut down.")
}
