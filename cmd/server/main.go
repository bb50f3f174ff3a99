package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Roquverse/flow-invoice-nexus/internal/config"
	"github.com/Roquverse/flow-invoice-nexus/internal/credentials"
	"github.com/Roquverse/flow-invoice-nexus/internal/db"
	"github.com/Roquverse/flow-invoice-nexus/internal/logger"
	"github.com/Roquverse/flow-invoice-nexus/internal/models"
)

var (
	migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")
	seedOnlyFlag    = flag.Bool("seed-only", false, "Run DB seed and exit")
	createAdminFlag = flag.String("create-admin", "", "Create an admin account (user:password[:role]) and exit")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbConn, err := db.Open(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	if sqlDB, err := dbConn.DB(); err == nil {
		defer sqlDB.Close()
	}

	if err := db.Migrate(dbConn, cfg, log); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if *migrateOnlyFlag {
		log.Info("migrations completed")
		return nil
	}

	if *seedOnlyFlag || cfg.App.Seed {
		if err := db.Seed(dbConn, log); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		if *seedOnlyFlag {
			log.Info("seeding completed")
			return nil
		}
	}

	if *createAdminFlag != "" {
		return createAdmin(ctx, credentials.NewVerifier(dbConn, log), *createAdminFlag, log)
	}

	app, err := newApp(ctx, cfg, dbConn, log)
	if err != nil {
		return err
	}
	defer app.Close()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      app.handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("port", cfg.Server.Port), zap.Bool("dev", cfg.App.Dev))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("error during shutdown", zap.Error(err))
	}
	log.Info("server stopped gracefully")
	return nil
}

// parseAdminFlag splits "user:password[:role]"; the role defaults to admin.
func parseAdminFlag(value string) (username, password string, role models.AdminRole, err error) {
	parts := strings.SplitN(value, ":", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", "", errors.New("create-admin expects user:password[:role]")
	}
	role = models.AdminRoleAdmin
	if len(parts) == 3 {
		if role, err = models.ParseAdminRole(parts[2]); err != nil {
			return "", "", "", err
		}
	}
	return parts[0], parts[1], role, nil
}

func createAdmin(ctx context.Context, v *credentials.Verifier, value string, log *zap.Logger) error {
	username, password, role, err := parseAdminFlag(value)
	if err != nil {
		return err
	}
	admin, err := v.CreateAdmin(ctx, username, password, role)
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	log.Info("admin created", zap.String("username", admin.Username), zap.String("role", string(admin.Role)))
	return nil
}
