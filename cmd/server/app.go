package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Roquverse/flow-invoice-nexus/auth"
	"github.com/Roquverse/flow-invoice-nexus/gate"
	"github.com/Roquverse/flow-invoice-nexus/internal/adminauth"
	"github.com/Roquverse/flow-invoice-nexus/internal/config"
	"github.com/Roquverse/flow-invoice-nexus/internal/credentials"
	"github.com/Roquverse/flow-invoice-nexus/internal/export"
	"github.com/Roquverse/flow-invoice-nexus/internal/server"
	"github.com/Roquverse/flow-invoice-nexus/internal/services"
)

// app owns the wired handler and the external clients it must release.
type app struct {
	handler http.Handler
	redis   *redis.Client
}

func newApp(ctx context.Context, cfg *config.Config, dbConn *gorm.DB, log *zap.Logger) (*app, error) {
	a := &app{}

	svc, err := services.New(dbConn, cfg, log)
	if err != nil {
		return nil, err
	}

	var revoker adminauth.Revoker
	if cfg.Redis.Addr != "" {
		a.redis = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable, admin logout will fail until it recovers", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		revoker = adminauth.NewRedisRevoker(a.redis, adminauth.DefaultKeyPrefix)
	} else {
		log.Info("REDIS_ADDR not set, admin token revocation is process-local")
	}

	var archiver export.Archiver
	if cfg.Storage.Enabled {
		client, err := export.NewS3Client(ctx, cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("storage: %w", err)
		}
		archiver = export.NewS3Archiver(client, cfg.Storage.Bucket, cfg.Storage.Prefix, log)
	}

	h := server.New(server.Deps{
		DB:            dbConn,
		Services:      svc,
		Exports:       export.NewService(svc, archiver, log.Named("export")),
		Sessions:      auth.NewSessions(cfg.Auth, server.UserExists(dbConn)),
		Admin:         adminauth.NewService(credentials.NewVerifier(dbConn, log), adminauth.NewTokenService(cfg.Auth), revoker, log.Named("adminauth")),
		Gate:          gate.ForRoles(),
		SecureCookies: cfg.Auth.SecureCookies,
		Log:           log,
	})
	a.handler = h
	return a, nil
}

func (a *app) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
