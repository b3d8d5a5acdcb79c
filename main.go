package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/danielhkuo/pollspree/auth"
	"github.com/danielhkuo/pollspree/avatars"
	"github.com/danielhkuo/pollspree/cliparse"
	"github.com/danielhkuo/pollspree/db"
	"github.com/danielhkuo/pollspree/idempotency"
	"github.com/danielhkuo/pollspree/identity"
	"github.com/danielhkuo/pollspree/router"
	"github.com/danielhkuo/pollspree/textfilter"
)

func main() {
	var err error
	ctx := context.Background()

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	// Connect and verify
	dbConn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	// Create schema (tables)
	if err := db.CreateSchema(dbConn); err != nil {
		slog.Error("schema creation failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database schema ready", "type", cfg.DatabaseType)

	deps := router.Dependencies{
		Filter:   textfilter.Default(),
		Verifier: auth.NewVerifier(cfg.JWTSecret),
		Identity: identity.New(cfg.IdentityAPIURL, cfg.IdentitySecretKey),
	}
	if cfg.IdentitySecretKey == "" {
		slog.Warn("identity provider secret not set, account deletion will fail at the provider step")
	}

	// Vote idempotency records live in Redis when configured
	if cfg.RedisURL != "" {
		rdb, err := idempotency.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			slog.Error("redis connection failed", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		deps.Idempotency = idempotency.NewRedisStore(rdb, idempotency.DefaultTTL)
		slog.Info("Idempotency store ready", "backend", "redis")
	} else {
		store := idempotency.NewSQLStore(dbConn, idempotency.DefaultTTL)
		purged, err := store.PurgeExpired(ctx)
		if err != nil {
			slog.Warn("failed to purge expired idempotency records", "error", err)
		}
		deps.Idempotency = store
		slog.Info("Idempotency store ready", "backend", "sql", "purged", purged)
	}

	if cfg.AvatarBucket != "" {
		presigner, err := avatars.New(ctx, cfg.AvatarBucket, cfg.AWSRegion)
		if err != nil {
			slog.Error("avatar presigner setup failed", "error", err)
			os.Exit(1)
		}
		deps.Avatars = presigner
		slog.Info("Avatar uploads enabled", "bucket", cfg.AvatarBucket, "region", cfg.AWSRegion)
	}

	// Create router
	handler := router.NewRouter(dbConn, cfg, deps)

	// Create server
	server := &http.Server{
		Handler: handler,
		Addr:    ":" + strconv.Itoa(cfg.Port),
	}

	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		slog.Error("Failed to listen", "error", err)
		os.Exit(1)
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)

	// Start server
	slog.Info("Listening", "port", cfg.Port)
	if err := serve(server, ln, ctrlc, shutdownGrace); err != nil {
		slog.Error("Server closed", "error", err)
		return
	}
	slog.Info("Server closed")
}

const shutdownGrace = 10 * time.Second

// serve runs server on ln until stop fires, then waits up to grace for
// in-flight requests before returning.
func serve(server *http.Server, ln net.Listener, stop <-chan os.Signal, grace time.Duration) error {
	shutdownErr := make(chan error, 1)
	go func() {
		<-stop
		ctx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()
		shutdownErr <- server.Shutdown(ctx)
	}()

	if err := server.Serve(ln); err != http.ErrServerClosed {
		return err
	}
	return <-shutdownErr
}
