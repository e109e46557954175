package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	insightengine "github.com/mat-labs/insight-engine"
	"github.com/mat-labs/insight-engine/internal/availability"
	"github.com/mat-labs/insight-engine/internal/cache"
	"github.com/mat-labs/insight-engine/internal/logging"
	"github.com/mat-labs/insight-engine/internal/providerlog"
	"github.com/mat-labs/insight-engine/internal/ratelimit"
	"github.com/mat-labs/insight-engine/internal/store"
	"github.com/mat-labs/insight-engine/internal/version"
	"github.com/mat-labs/insight-engine/providers"
)

func main() {
	// Load and validate config if INSIGHT_CONFIG is set; otherwise run
	// with defaults (mock generator, memory fast tier, local sqlite).
	cfg := &insightengine.Config{}
	if cfgPath := os.Getenv("INSIGHT_CONFIG"); cfgPath != "" {
		loaded, err := insightengine.LoadConfig(cfgPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		if err := insightengine.ValidateConfig(*loaded); err != nil {
			log.Fatalf("Invalid config: %v", err)
		}
		cfg = loaded
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	// Durable tier.
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Backend {
	case insightengine.StorePostgres:
		st, err = store.NewPostgres(cfg.Store.DSN)
	default:
		st, err = store.NewSQLite(cfg.Store.DSN)
	}
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	// Fast tier.
	ttl := time.Duration(cfg.Cache.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = time.Hour
	}
	var fast cache.FastCache
	switch cfg.Cache.FastTier {
	case insightengine.FastTierRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		defer client.Close()
		fast = cache.NewRedis(client, ttl)
		log.Printf("Fast tier: redis (%s)", cfg.Cache.RedisAddr)
	default:
		capacity := cfg.Cache.MemoryCapacity
		if capacity <= 0 {
			capacity = 4096
		}
		fast = cache.NewMemory(capacity, ttl)
		log.Printf("Fast tier: memory (%d entries)", capacity)
	}
	tracker := availability.New(cfg.Cache.FailureThreshold,
		time.Duration(cfg.Cache.CooldownSeconds)*time.Second)
	tiered := cache.NewTiered(fast, st, tracker, ttl, logging.Logger)

	// Generator.
	var gen providers.Generator
	switch cfg.Generator.Kind {
	case insightengine.GeneratorOpenAI:
		gen, err = providers.NewOpenAI(cfg.Generator.APIKey, cfg.Generator.Model, cfg.Generator.BaseURL)
	case insightengine.GeneratorBedrock:
		gen, err = providers.NewBedrock(cfg.Generator.Region, cfg.Generator.Model)
	default:
		gen = providers.NewMock()
	}
	if err != nil {
		log.Fatalf("Failed to create generator: %v", err)
	}
	registry := providers.NewRegistry()
	registry.Register(gen)
	log.Printf("Generator registered: %s", gen.Name())

	// Generator audit log.
	var audit providerlog.Writer = providerlog.NoopWriter{}
	switch cfg.ProviderLog.Backend {
	case insightengine.StoreSQLite:
		w, err := providerlog.NewSQLiteWriter(cfg.ProviderLog.DSN)
		if err != nil {
			log.Fatalf("Failed to open provider log: %v", err)
		}
		defer w.Close()
		audit = w
	case insightengine.StorePostgres:
		w, err := providerlog.NewPostgresWriter(cfg.ProviderLog.DSN)
		if err != nil {
			log.Fatalf("Failed to open provider log: %v", err)
		}
		defer w.Close()
		audit = w
	}

	engine := insightengine.NewEngine(insightengine.EngineOptions{
		Cache:            tiered,
		Generator:        gen,
		Store:            st,
		Audit:            audit,
		GeneratorTimeout: time.Duration(cfg.Generator.TimeoutSeconds) * time.Second,
	})

	perMinute := cfg.RateLimit.AIRequestsPerMinute
	if perMinute == 0 {
		perMinute = 10
	}
	limiter := ratelimit.NewPerUser(perMinute)

	r := newRouter(engine, limiter)

	addr := cfg.Server.Addr
	if addr == "" {
		addr = ":8080"
	}
	if p := os.Getenv("PORT"); p != "" {
		addr = ":" + p
	}
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		log.Println("Shutting down gracefully…")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	log.Printf("insightd %s listening on %s (generator: %s)", version.Short(), addr, gen.Name())
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		stop()
		log.Fatalf("Server error: %v", err) //nolint:gocritic
	}
	log.Println("Server stopped.")
}
