package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Pitonico/trilha-net-tecnico-microservicos-desafio/internal/gateway"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "[api-gateway] ", log.LstdFlags|log.Lmicroseconds)

	tokens := gateway.NewTokenIssuer([]byte(cfg.JWTKey), cfg.JWTIssuer, cfg.JWTAudience, 2*time.Hour)

	orders, err := gateway.NewForwarder(cfg.OrderURL, tokens, logger)
	if err != nil {
		logger.Fatalf("order forwarder: %v", err)
	}
	inventory, err := gateway.NewForwarder(cfg.InventoryURL, tokens, logger)
	if err != nil {
		logger.Fatalf("inventory forwarder: %v", err)
	}

	router := gateway.NewRouter(gateway.RouterDeps{
		Tokens:    tokens,
		Orders:    orders,
		Inventory: inventory,
		Logger:    logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Printf("listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Printf("shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("shutdown error: %v", err)
	}
	logger.Printf("shutdown complete")
}

type config struct {
	Port         string
	OrderURL     string
	InventoryURL string
	JWTKey       string
	JWTIssuer    string
	JWTAudience  string
}

func loadConfig() config {
	return config{
		Port:         env("PORT", "8080"),
		OrderURL:     env("ORDER_URL", "http://order-service:8082"),
		InventoryURL: env("INVENTORY_URL", "http://inventory-service:8083"),
		JWTKey:       env("JWT_KEY", "dev-secret-key-change-me"),
		JWTIssuer:    env("JWT_ISSUER", "api-gateway"),
		JWTAudience:  env("JWT_AUDIENCE", "storefront"),
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
