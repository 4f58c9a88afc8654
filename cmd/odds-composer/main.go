package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/XavierBriggs/fortuna/services/odds-composer/internal/broadcast"
	"github.com/XavierBriggs/fortuna/services/odds-composer/internal/config"
	"github.com/XavierBriggs/fortuna/services/odds-composer/internal/consumer"
	"github.com/XavierBriggs/fortuna/services/odds-composer/internal/fixture"
	"github.com/XavierBriggs/fortuna/services/odds-composer/internal/handlers"
	"github.com/XavierBriggs/fortuna/services/odds-composer/internal/ingest"
	"github.com/XavierBriggs/fortuna/services/odds-composer/internal/metrics"
	"github.com/XavierBriggs/fortuna/services/odds-composer/internal/registry"
	"github.com/redis/go-redis/v9"
)

func main() {
	fmt.Println("🚀 Starting Odds Composer...")

	// Load config
	cfg := config.LoadConfig()

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Core pipeline: store -> ingestor -> broadcaster -> registry
	m := metrics.New()
	reg := registry.NewRegistry()
	bc := broadcast.New(reg, m)
	store := fixture.NewStore()
	ing := ingest.New(store, bc, m)

	// Optional Redis Streams ingestion path
	if cfg.Redis.URL != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.URL,
			Password: cfg.Redis.Password,
			DB:       0,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			fmt.Printf("❌ Failed to connect to Redis: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("✓ Connected to Redis")
		defer redisClient.Close()

		streamConsumer := consumer.NewStreamConsumer(redisClient, ing, cfg.Stream)
		go streamConsumer.Start(ctx)
	}

	// HTTP surface
	handler := handlers.NewHandler(ctx, ing, reg, bc, m)

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: handler.Router(cfg.Server.CORSOrigins),
	}

	go func() {
		fmt.Printf("✓ Odds Composer listening on %s\n", cfg.Server.Addr)
		fmt.Printf("  SSE URL: http://localhost%s/api/events\n", cfg.Server.Addr)
		fmt.Printf("  WebSocket URL: ws://localhost%s/ws\n", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("❌ Server error: %v\n", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	fmt.Println("\n🛑 Shutting down...")

	// Cancel context to stop streams, pumps and the consumer
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		fmt.Printf("⚠️  Server shutdown error: %v\n", err)
	}

	fmt.Println("✓ Shutdown complete")
}
