// Package server assembles the HTTP routes and middleware.
package server

import (
	"context"
	"net/http"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Roquverse/flow-invoice-nexus/auth"
	"github.com/Roquverse/flow-invoice-nexus/gate"
	"github.com/Roquverse/flow-invoice-nexus/httpx"
	"github.com/Roquverse/flow-invoice-nexus/internal/adminauth"
	"github.com/Roquverse/flow-invoice-nexus/internal/export"
	"github.com/Roquverse/flow-invoice-nexus/internal/handlers"
	"github.com/Roquverse/flow-invoice-nexus/internal/models"
	"github.com/Roquverse/flow-invoice-nexus/internal/services"
)

// Deps are the collaborators the router needs.
type Deps struct {
	DB            *gorm.DB
	Services      *services.Services
	Exports       *export.Service
	Sessions      *auth.Sessions
	Admin         *adminauth.Service
	Gate          *gate.Gate[models.AdminRole]
	SecureCookies bool
	Log           *zap.Logger
}

// UserExists reports whether a session's user is still registered.
func UserExists(db *gorm.DB) auth.UserVerifier {
	return func(ctx context.Context, uid uint) bool {
		var count int64
		if err := db.WithContext(ctx).Model(&models.User{}).Where("id = ?", uid).Limit(1).Count(&count).Error; err != nil {
			return false
		}
		return count > 0
	}
}

// New constructs the root http.Handler with all routes and middlewares applied.
func New(d Deps) http.Handler {
	mux := http.NewServeMux()
	log := d.Log.Named("http")

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := d.DB.WithContext(r.Context()).Exec("SELECT 1").Error; err != nil {
			log.Warn("health check failed", zap.Error(err))
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	handlers.NewAuthHandler(d.DB, d.Sessions, d.Log).Register(mux, d.Sessions.RequireAuth)

	g := d.Gate
	if g == nil {
		g = gate.ForRoles()
	}
	handlers.NewAdminHandler(d.DB, d.Admin, g, d.Services.Dashboard, d.SecureCookies, d.Log).Register(mux)

	api := http.NewServeMux()
	handlers.NewAPI(d.Services, d.Exports, d.Log).Register(api)
	mux.Handle("/", d.Sessions.RequireAuth(api))

	return withRecover(log, withRequestID(withLogging(log, d.Sessions.Middleware(mux))))
}
