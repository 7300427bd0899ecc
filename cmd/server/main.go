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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/tendant/simple-munki/pkg/simplemunki"
	"github.com/tendant/simple-munki/pkg/simplemunki/api"
	"github.com/tendant/simple-munki/pkg/simplemunki/config"
)

func main() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()

	cfg, err := config.Load(config.WithEnv())
	if err != nil {
		log.Fatalf("Failed to load server configuration: %v", err)
	}

	if cfg.StatusDatabaseURL != "" {
		if err := config.PingPostgres(cfg.StatusDatabaseURL, cfg.StatusDBSchema); err != nil {
			log.Fatalf("Failed to connect to status database: %v", err)
		}
	}

	stores, err := cfg.BuildStores()
	if err != nil {
		log.Fatalf("Failed to build repo stores: %v", err)
	}
	defer stores.Close()

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: routes(cfg, stores),
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Simple Munki server starting on port %s (env: %s)", cfg.Port, cfg.Environment)
		log.Printf("Serving repo at %s (git mirror: %t)", cfg.RepoDir, cfg.GitEnabled)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}

// routes assembles the HTTP surface of the repo server
func routes(cfg *config.ServerConfig, stores *config.Stores) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS for development
	if cfg.Environment == "development" {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Access-Control-Allow-Origin", "*")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, X-Remote-User")

				if r.Method == "OPTIONS" {
					w.WriteHeader(http.StatusOK)
					return
				}

				next.ServeHTTP(w, r)
			})
		})
	}

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Mount("/manifests", api.NewDocumentsHandler(stores.Documents, simplemunki.KindManifests).Routes())
		r.Mount("/pkgsinfo", api.NewDocumentsHandler(stores.Documents, simplemunki.KindPkgsinfo).Routes())
		r.Mount("/catalogs", api.NewReadOnlyDocumentsHandler(stores.Documents, simplemunki.KindCatalogs).Routes())
		r.Mount("/files", api.NewFilesHandler(stores.Files).Routes())
		r.Mount("/status", api.NewStatusHandler(stores.Status).Routes())
	})

	return r
}
