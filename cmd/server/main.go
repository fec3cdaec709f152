package main

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/tinylink-io/tinylink/pkg/adapters/cache"
	"github.com/tinylink-io/tinylink/pkg/adapters/handler"
	"github.com/tinylink-io/tinylink/pkg/adapters/repository/postgres"
	"github.com/tinylink-io/tinylink/pkg/adapters/repository/sqlite"
	"github.com/tinylink-io/tinylink/pkg/config"
	"github.com/tinylink-io/tinylink/pkg/core/services"
	"github.com/tinylink-io/tinylink/pkg/ports"
)

func main() {
	cfg := config.Load()

	repo, err := newRepository(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	redirectCache, err := newRedirectCache(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to cache: %v", err)
	}

	gen := services.NewRandomCodeGenerator()
	validator := services.NewAliasValidator(cfg.ReservedCodes)
	service := services.NewLinkService(repo, gen, validator, redirectCache, cfg.CodeLength, cfg.MaxAllocAttempts)

	mux := handler.NewRouter(cfg, service)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	log.Printf("Server starting on port %s", cfg.Port)
	if err := server.ListenAndServe(); err != nil {
		log.Fatal(err)
	}
}

func newRepository(cfg *config.Config) (ports.LinkRepository, error) {
	if strings.HasPrefix(cfg.DatabaseURL, "postgres://") || strings.HasPrefix(cfg.DatabaseURL, "postgresql://") {
		return postgres.NewPostgresRepository(cfg.DatabaseURL)
	}
	return sqlite.NewSQLiteRepository(cfg.DatabaseURL)
}

func newRedirectCache(cfg *config.Config) (ports.RedirectCache, error) {
	if cfg.RedisAddr != "" {
		return cache.NewRedisCache(cfg.RedisAddr, 10*time.Minute)
	}
	return cache.NewLRUCache(1024)
}
