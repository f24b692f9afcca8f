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

	"github.com/redis/go-redis/v9"

	"brandhub/api/internal/app"
	"brandhub/api/internal/branding"
	"brandhub/api/internal/broadcast"
	"brandhub/api/internal/cache"
	"brandhub/api/internal/config"
	"brandhub/api/internal/export"
	"brandhub/api/internal/search"
	"brandhub/api/internal/storage"
	"brandhub/api/internal/store"
	"brandhub/api/internal/util"
)

func main() {
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

	// Redis is optional: without it the cache is memory-only and instances
	// do not see each other's changes.
	var redisClient *redis.Client
	if strings.TrimSpace(cfg.RedisURL) != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("invalid redis url: %v", err)
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Printf("WARNING: redis unreachable, running without cache mirror and sync: %v", err)
			_ = redisClient.Close()
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	instanceID := util.NewID("inst")
	bus := broadcast.New(ctx, redisClient, instanceID, cfg.SyncPollInterval)
	defer bus.Close()

	var objects storage.ObjectStorage
	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		minioStorage, err := storage.NewMinioStorage(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			log.Fatalf("object storage failed: %v", err)
		}
		objects = minioStorage
	} else {
		log.Printf("WARNING: no object storage configured, logo files are held in memory")
		objects = storage.NewMemStorage()
	}

	configCache := cache.New[branding.Config](redisClient, "branding:", cache.DefaultTTL)
	brandingService := branding.NewService(dataStore, configCache, bus, objects, log.Default())
	stopListener := brandingService.StartSyncListener()
	defer stopListener()

	exportService := export.NewService(brandingService)

	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, search.NewPgSearch(db))

	service := app.NewService(app.ServiceConfig{
		Branding:     brandingService,
		Exporter:     exportService,
		Searcher:     searchService,
		DB:           dataStore,
		Redis:        redisClient,
		TokenSecret:  []byte(cfg.TokenSecret),
		ServiceToken: cfg.ServiceToken,
		TokenTTLSecs: int(cfg.TokenTTL.Seconds()),
	})

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
		log.Printf("BrandHub API listening on %s", cfg.Addr)
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
