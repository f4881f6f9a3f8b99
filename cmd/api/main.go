package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/VaibhavGIT5048/Vaibhav-gupta7047/internal/app"
	"github.com/VaibhavGIT5048/Vaibhav-gupta7047/internal/blob"
	"github.com/VaibhavGIT5048/Vaibhav-gupta7047/internal/bus"
	"github.com/VaibhavGIT5048/Vaibhav-gupta7047/internal/config"
	"github.com/VaibhavGIT5048/Vaibhav-gupta7047/internal/feed"
	"github.com/VaibhavGIT5048/Vaibhav-gupta7047/internal/gateway"
	"github.com/VaibhavGIT5048/Vaibhav-gupta7047/internal/provider"
	"github.com/VaibhavGIT5048/Vaibhav-gupta7047/internal/session"
	"github.com/VaibhavGIT5048/Vaibhav-gupta7047/internal/store"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}
	dataStore := store.NewPostgresStore(db)

	blobStore, err := blob.NewMinioStore(blob.MinioConfig{
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.S3Bucket,
		UseSSL:    cfg.S3UseSSL,
		PublicURL: cfg.S3PublicURL,
	})
	if err != nil {
		log.Fatalf("object storage client failed: %v", err)
	}
	if err := blobStore.EnsureBucket(ctx); err != nil {
		log.Printf("WARNING: could not ensure bucket (will retry on first upload): %v", err)
	}

	events := bus.New()

	var slotStore session.SlotStore
	var changeFeed feed.Feed
	if strings.TrimSpace(cfg.RedisURL) != "" {
		log.Printf("Using Redis for the session slot and change feed")
		redisStore, err := session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer redisStore.Close()
		redisFeed, err := feed.NewRedisFeed(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis feed connection failed: %v", err)
		}
		slotStore = redisStore
		changeFeed = redisFeed
	} else {
		log.Printf("Using in-memory session slot and change feed")
		slotStore = session.NewMemoryStore()
		changeFeed = feed.NewMemoryFeed()
	}

	authClient := provider.NewClient(cfg.AuthProviderURL, cfg.AuthProviderKey)
	manager := session.NewManager(slotStore, session.NewProviderClient(authClient), events, session.Config{
		Email:        cfg.AdminEmail,
		Password:     cfg.AdminPassword,
		PasswordHash: cfg.AdminPasswordHash,
		TTL:          cfg.SessionTTL,
	})

	gw := gateway.New(dataStore, blobStore, manager, changeFeed, events)

	service := app.New(cfg, gw, manager, changeFeed, events)
	if err := service.Open(ctx); err != nil {
		log.Fatalf("opening content views failed: %v", err)
	}
	defer service.Close()

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Portfolio API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
