package handlers

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Roquverse/flow-invoice-nexus/auth"
	"github.com/Roquverse/flow-invoice-nexus/httpx"
	"github.com/Roquverse/flow-invoice-nexus/internal/apperr"
	"github.com/Roquverse/flow-invoice-nexus/internal/models"
	"github.com/Roquverse/flow-invoice-nexus/internal/store"
	"github.com/Roquverse/flow-invoice-nexus/validation"
)

type AuthHandler struct {
	db       *gorm.DB
	sessions *auth.Sessions
	log      *zap.Logger
}

func NewAuthHandler(db *gorm.DB, sessions *auth.Sessions, log *zap.Logger) *AuthHandler {
	return &AuthHandler{db: db, sessions: sessions, log: log.Named("auth")}
}

type signupInput struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Name     string `json:"name" validate:"max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type loginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Register mounts the session routes. Only /me goes through protect.
func (h *AuthHandler) Register(mux *http.ServeMux, protect func(http.Handler) http.Handler) {
	mux.HandleFunc("POST /signup", h.Signup)
	mux.HandleFunc("POST /login", h.Login)
	mux.HandleFunc("POST /logout", h.Logout)
	mux.Handle("GET /me", protect(http.HandlerFunc(h.Me)))
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var in signupInput
	if err := httpx.Decode(w, r, &in); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	in.Email = normalizeEmail(in.Email)
	if err := validation.Struct(in).Err(); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		httpx.Error(w, r, h.log, apperr.Internal(err))
		return
	}
	user := models.User{Email: in.Email, Name: strings.TrimSpace(in.Name), Password: string(hash)}
	if err := h.db.WithContext(r.Context()).Create(&user).Error; err != nil {
		err = store.Translate(err, "user")
		if apperr.KindOf(err) == apperr.KindConflict {
			err = apperr.Conflict("email_taken", "email already registered")
		}
		httpx.Error(w, r, h.log, err)
		return
	}
	h.sessions.Create(w, user.ID)
	h.log.Info("user signed up", zap.Uint("user_id", user.ID))
	httpx.JSON(w, http.StatusCreated, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in loginInput
	if err := httpx.Decode(w, r, &in); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	if err := validation.Struct(in).Err(); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	var user models.User
	err := h.db.WithContext(r.Context()).Where("email = ?", normalizeEmail(in.Email)).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		httpx.Error(w, r, h.log, store.Translate(err, "user"))
		return
	}
	if err != nil || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)) != nil {
		httpx.Error(w, r, h.log, apperr.ErrAuthFailure)
		return
	}
	h.sessions.Create(w, user.ID)
	httpx.JSON(w, http.StatusOK, user)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, _ *http.Request) {
	h.sessions.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	uid, ok := owner(w, r)
	if !ok {
		return
	}
	var user models.User
	if err := h.db.WithContext(r.Context()).First(&user, uid).Error; err != nil {
		httpx.Error(w, r, h.log, store.Translate(err, "user"))
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}
