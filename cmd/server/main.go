package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ordersync/ordersync/internal/server/handlers"
	"github.com/ordersync/ordersync/internal/server/middleware"
	"github.com/ordersync/ordersync/internal/server/storage/sqlite"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	addr := flag.String("addr", ":8080", "HTTP listen address")
	dbPath := flag.String("db", "ordersync-server.db", "Path to SQLite database")
	issueToken := flag.String("issue-token", "", "Issue an access token for the given node ID and exit")
	tokenTTL := flag.Duration("token-ttl", 30*24*time.Hour, "Access token lifetime")
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	secret := os.Getenv("ORDERSYNC_JWT_SECRET")
	if secret == "" {
		fmt.Fprintln(os.Stderr, "ORDERSYNC_JWT_SECRET environment variable is required")
		os.Exit(1)
	}

	jwtConfig := handlers.JWTConfig{
		Secret:         []byte(secret),
		AccessTokenTTL: *tokenTTL,
	}

	// Утилитарный режим: выписать токен для узла и выйти
	if *issueToken != "" {
		token, expiresIn, err := handlers.GenerateAccessToken(jwtConfig, "default", *issueToken)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to issue token: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s\n", token)
		fmt.Fprintf(os.Stderr, "expires in %d seconds\n", expiresIn)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.New(ctx, *dbPath)
	if err != nil {
		logger.Error("Failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage", "error", err)
		}
	}()

	mutationHandler := handlers.NewMutationHandler(logger, store, store)
	healthHandler := handlers.NewHealthHandler(logger, Version)

	auth := middleware.AuthMiddleware(logger, jwtConfig)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", healthHandler.Health)
	mux.Handle("POST /api/sync/{action}", auth(http.HandlerFunc(mutationHandler.HandleMutation)))

	var handler http.Handler = mux
	handler = middleware.RateLimitMiddleware(300, time.Minute, logger)(handler)
	handler = middleware.LoggingWithSkip(logger, []string{"/api/health"})(handler)
	handler = middleware.RecoveryMiddleware(logger)(handler)

	server := &http.Server{
		Addr:              *addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown failed", "error", err)
		}
	}()

	logger.Info("Server starting", "addr", *addr, "version", Version)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Server stopped")
}

func printVersion() {
	fmt.Printf("OrderSync Server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
