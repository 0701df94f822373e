package main

import (
	"context"   // Context for startup and shutdown
	"errors"    // Server close detection
	"net/http"  // HTTP server
	"os"        // Signal channel
	"os/signal" // Graceful shutdown
	"strings"   // Redis URL detection
	"syscall"   // SIGTERM
	"time"      // Shutdown timeout

	"art_market/internal/api"     // Custom package for API handlers
	"art_market/internal/auth"    // Account service
	"art_market/internal/blob"    // Image storage
	"art_market/internal/config"  // Custom package for configuration
	"art_market/internal/db"      // Database connection
	"art_market/internal/events"  // Listing notifications
	"art_market/internal/listing" // Listing service
	"art_market/internal/mailer"  // Reset code delivery
	"art_market/internal/store"   // Repositories

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
)

// Main function to set up and run the server
func main() {
	cfg, err := config.LoadConfig() // Load configuration
	if err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}
	setupLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to the database with the configured driver
	database, err := db.Open(cfg)
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}
	if cfg.DBDriver == config.DriverSQLite {
		if err := db.Migrate(database); err != nil { // Local databases are migrated on start
			logrus.Fatal(err)
		}
	}

	redisClient, err := newRedis(cfg)
	if err != nil {
		logrus.Fatalf("invalid Redis configuration: %v", err)
	}
	// Test Redis connection
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}

	blobs, uploadDir, err := newBlobStore(ctx, cfg)
	if err != nil {
		logrus.Fatalf("failed to set up image storage: %v", err)
	}

	// Local subscribers are fed by the Redis relay so every instance sees every listing
	bus := events.NewBus()
	relay := events.NewRedisRelay(redisClient, cfg.EventsChannel, bus)
	if err := relay.Start(ctx); err != nil {
		logrus.Fatalf("failed to start event relay: %v", err)
	}
	notifier := events.Fanout{relay}
	if len(cfg.KafkaBrokers) > 0 {
		sink, err := events.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			logrus.Fatalf("failed to set up Kafka sink: %v", err)
		}
		defer sink.Close()
		notifier = append(notifier, sink)
	}

	var sender mailer.Sender = mailer.LogSender{Logger: logrus.StandardLogger()}
	if cfg.SMTPHost != "" {
		sender = mailer.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom)
	} else {
		logrus.Warn("SMTP_HOST not set, reset codes will only be logged")
	}

	users := store.NewUserStore(database)
	listings := listing.NewService(store.NewListingStore(database), blobs, notifier)
	accounts := auth.NewService(users, store.NewOTPStore(redisClient), sender, cfg.JWTSecret)

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}
	router, err := api.NewRouter(api.Deps{
		DB:          database,
		Redis:       redisClient,
		Users:       users,
		Auth:        accounts,
		Listings:    listings,
		Bus:         bus,
		JWTSecret:   cfg.JWTSecret,
		CORSOrigins: cfg.CORSOrigins,
		UploadDir:   uploadDir,
	})
	if err != nil {
		logrus.Fatalf("failed to set up router: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logrus.WithField("port", cfg.AppPort).Info("Server running") // Log server start
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithField("error", err.Error()).Warn("Forced shutdown")
	}
	listings.Wait() // Let in-flight notifications finish
	_ = redisClient.Close()
}

// setupLogger picks the formatter and level for the environment
func setupLogger(cfg *config.Config) {
	if cfg.IsProd {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	if cfg.LogLevel == "" {
		return
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logrus.WithField("level", cfg.LogLevel).Warn("Unknown log level, keeping info")
		return
	}
	logrus.SetLevel(level)
}

// newRedis accepts either a host:port address or a redis:// URL
func newRedis(cfg *config.Config) (*redis.Client, error) {
	if strings.HasPrefix(cfg.RedisAddr, "redis://") || strings.HasPrefix(cfg.RedisAddr, "rediss://") {
		opts, err := redis.ParseURL(cfg.RedisAddr)
		if err != nil {
			return nil, err
		}
		return redis.NewClient(opts), nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	}), nil
}

// newBlobStore uses S3 when a bucket is configured, local disk otherwise.
// The returned directory is non-empty only for the disk store.
func newBlobStore(ctx context.Context, cfg *config.Config) (blob.Store, string, error) {
	if cfg.S3Bucket != "" {
		s, err := blob.NewS3Store(ctx, blob.S3Options{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			PublicURL: cfg.S3PublicURL,
		})
		if err != nil {
			return nil, "", err
		}
		return s, "", nil
	}
	s, err := blob.NewDiskStore(cfg.UploadDir, cfg.PublicBaseURL)
	if err != nil {
		return nil, "", err
	}
	return s, s.Dir(), nil
}
