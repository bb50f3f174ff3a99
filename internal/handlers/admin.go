package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Roquverse/flow-invoice-nexus/gate"
	"github.com/Roquverse/flow-invoice-nexus/httpx"
	"github.com/Roquverse/flow-invoice-nexus/internal/adminauth"
	"github.com/Roquverse/flow-invoice-nexus/internal/models"
	"github.com/Roquverse/flow-invoice-nexus/internal/services"
	"github.com/Roquverse/flow-invoice-nexus/internal/store"
	"github.com/Roquverse/flow-invoice-nexus/validation"
)

// AdminHandler serves the back-office routes under /admin.
type AdminHandler struct {
	db        *gorm.DB
	auth      *adminauth.Service
	gate      *gate.Gate[models.AdminRole]
	dashboard *services.DashboardService
	secure    bool
	log       *zap.Logger
}

func NewAdminHandler(db *gorm.DB, svc *adminauth.Service, g *gate.Gate[models.AdminRole], dashboard *services.DashboardService, secureCookies bool, log *zap.Logger) *AdminHandler {
	return &AdminHandler{db: db, auth: svc, gate: g, dashboard: dashboard, secure: secureCookies, log: log.Named("admin")}
}

type adminLoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type adminSession struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	Username  string           `json:"username"`
	Role      models.AdminRole `json:"role"`
}

func (h *AdminHandler) Register(mux *http.ServeMux) {
	authed := h.auth.Require(h.gate, "", "")
	mux.HandleFunc("POST /admin/login", h.Login)
	mux.Handle("POST /admin/logout", authed(http.HandlerFunc(h.Logout)))
	mux.Handle("GET /admin/me", h.auth.Require(h.gate, gate.ResourceAdmin, gate.ActionView)(http.HandlerFunc(h.Me)))
	mux.Handle("GET /admin/stats", h.auth.Require(h.gate, gate.ResourceStats, gate.ActionView)(http.HandlerFunc(h.Stats)))
	mux.Handle("GET /admin/users", h.auth.Require(h.gate, gate.ResourceUser, gate.ActionList)(http.HandlerFunc(h.Users)))
}

func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in adminLoginInput
	if err := httpx.Decode(w, r, &in); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	if err := validation.Struct(in).Err(); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	token, claims, err := h.auth.Login(r.Context(), in.Username, in.Password)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	expires := claims.ExpiresAt.Time
	adminauth.SetCookie(w, token, expires, h.secure)
	httpx.JSON(w, http.StatusOK, adminSession{Token: token, ExpiresAt: expires, Username: claims.Username, Role: claims.Role})
}

func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, _ := adminauth.ClaimsFromContext(r.Context())
	if err := h.auth.Logout(r.Context(), claims); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	adminauth.ClearCookie(w, h.secure)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, _ := adminauth.ClaimsFromContext(r.Context())
	httpx.JSON(w, http.StatusOK, map[string]any{
		"id":          claims.AdminID(),
		"username":    claims.Username,
		"role":        claims.Role,
		"expires_at":  claims.ExpiresAt.Time,
		"permissions": h.gate.Permissions(r.Context(), claims.Role),
	})
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.dashboard.Platform(r.Context())
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}

func (h *AdminHandler) Users(w http.ResponseWriter, r *http.Request) {
	opts, err := listOptions(r, nil)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = store.DefaultLimit
	}
	limit = min(limit, store.MaxLimit)

	db := h.db.WithContext(r.Context()).Model(&models.User{})
	var total int64
	if err := db.Count(&total).Error; err != nil {
		httpx.Error(w, r, h.log, store.Translate(err, "user"))
		return
	}
	users := []models.User{}
	if err := db.Order("id").Limit(limit).Offset(opts.Offset).Find(&users).Error; err != nil {
		httpx.Error(w, r, h.log, store.Translate(err, "user"))
		return
	}
	httpx.JSON(w, http.StatusOK, Page[models.User]{Data: users, Total: total, Limit: limit, Offset: opts.Offset})
}
