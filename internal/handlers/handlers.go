// Package handlers exposes the invoicing services as a JSON API.
package handlers

import (
	"context"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/Roquverse/flow-invoice-nexus/auth"
	"github.com/Roquverse/flow-invoice-nexus/httpx"
	"github.com/Roquverse/flow-invoice-nexus/internal/apperr"
	"github.com/Roquverse/flow-invoice-nexus/internal/export"
	"github.com/Roquverse/flow-invoice-nexus/internal/services"
	"github.com/Roquverse/flow-invoice-nexus/internal/store"
)

// Page is the envelope of every list response.
type Page[T any] struct {
	Data   []T   `json:"data"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

// API serves the owner-scoped resources. Every route expects the session
// middleware to have put the user id in the request context.
type API struct {
	svc     *services.Services
	exports *export.Service
	log     *zap.Logger
}

func NewAPI(svc *services.Services, exports *export.Service, log *zap.Logger) *API {
	return &API{svc: svc, exports: exports, log: log.Named("api")}
}

func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	httpx.Error(w, r, a.log, err)
}

// owner returns the authenticated user id or answers 401.
func owner(w http.ResponseWriter, r *http.Request) (uint, bool) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
	}
	return uid, ok
}

func pathID(r *http.Request) (uint, error) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Field("id", "invalid")
	}
	return uint(id), nil
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperr.Field(name, "invalid")
	}
	return n, nil
}

func queryID(r *http.Request, name string) (uint, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || n == 0 {
		return 0, apperr.Field(name, "invalid")
	}
	return uint(n), nil
}

// listOptions reads limit, offset or page, client_id and, when parse is
// given, status. A page (1-based) overrides offset.
func listOptions(r *http.Request, parse func(string) (string, error)) (store.ListOptions, error) {
	var opts store.ListOptions
	var err error
	if opts.Limit, err = queryInt(r, "limit"); err != nil {
		return opts, err
	}
	if opts.Offset, err = queryInt(r, "offset"); err != nil {
		return opts, err
	}
	page, err := queryInt(r, "page")
	if err != nil {
		return opts, err
	}
	if page > 0 {
		limit := opts.Limit
		if limit <= 0 {
			limit = store.DefaultLimit
		}
		opts.Offset = (page - 1) * min(limit, store.MaxLimit)
	}
	opts.Filters = map[string]any{}
	clientID, err := queryID(r, "client_id")
	if err != nil {
		return opts, err
	}
	if clientID != 0 {
		opts.Filters["client_id"] = clientID
	}
	if raw := r.URL.Query().Get("status"); raw != "" && parse != nil {
		status, err := parse(raw)
		if err != nil {
			return opts, err
		}
		opts.Filters["status"] = status
	}
	return opts, nil
}

// resource is the CRUD surface shared by every owner-scoped entity.
type resource[T, In any] struct {
	list   func(ctx context.Context, ownerID uint, opts store.ListOptions) ([]T, int64, error)
	get    func(ctx context.Context, ownerID, id uint) (*T, error)
	create func(ctx context.Context, ownerID uint, in In) (*T, error)
	update func(ctx context.Context, ownerID, id uint, in In) (*T, error)
	remove func(ctx context.Context, ownerID, id uint) error
	status func(string) (string, error)
}

func registerResource[T, In any](a *API, mux *http.ServeMux, base string, res resource[T, In]) {
	mux.HandleFunc("GET "+base, func(w http.ResponseWriter, r *http.Request) {
		uid, ok := owner(w, r)
		if !ok {
			return
		}
		opts, err := listOptions(r, res.status)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		items, total, err := res.list(r.Context(), uid, opts)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		limit := opts.Limit
		if limit <= 0 {
			limit = store.DefaultLimit
		}
		httpx.JSON(w, http.StatusOK, Page[T]{Data: items, Total: total, Limit: min(limit, store.MaxLimit), Offset: opts.Offset})
	})
	mux.HandleFunc("POST "+base, func(w http.ResponseWriter, r *http.Request) {
		uid, ok := owner(w, r)
		if !ok {
			return
		}
		var in In
		if err := httpx.Decode(w, r, &in); err != nil {
			a.fail(w, r, err)
			return
		}
		out, err := res.create(r.Context(), uid, in)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		httpx.JSON(w, http.StatusCreated, out)
	})
	mux.HandleFunc("GET "+base+"/{id}", func(w http.ResponseWriter, r *http.Request) {
		a.withID(w, r, func(uid, id uint) (any, error) { return res.get(r.Context(), uid, id) })
	})
	mux.HandleFunc("PUT "+base+"/{id}", func(w http.ResponseWriter, r *http.Request) {
		var in In
		a.withID(w, r, func(uid, id uint) (any, error) {
			if err := httpx.Decode(w, r, &in); err != nil {
				return nil, err
			}
			return res.update(r.Context(), uid, id, in)
		})
	})
	mux.HandleFunc("DELETE "+base+"/{id}", func(w http.ResponseWriter, r *http.Request) {
		a.withID(w, r, func(uid, id uint) (any, error) { return nil, res.remove(r.Context(), uid, id) })
	})
}

// withID resolves the owner and path id, runs fn and writes its result.
// A nil result answers 204.
func (a *API) withID(w http.ResponseWriter, r *http.Request, fn func(ownerID, id uint) (any, error)) {
	uid, ok := owner(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	out, err := fn(uid, id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if out == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

// action adapts a lifecycle operation to a POST handler.
func action[T any](a *API, fn func(ctx context.Context, ownerID, id uint) (*T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.withID(w, r, func(uid, id uint) (any, error) { return fn(r.Context(), uid, id) })
	}
}

func stringStatus[S ~string](parse func(string) (S, error)) func(string) (string, error) {
	return func(raw string) (string, error) {
		s, err := parse(raw)
		return string(s), err
	}
}

// Register mounts every owner-scoped route on mux.
func (a *API) Register(mux *http.ServeMux) {
	a.registerClients(mux)
	a.registerProjects(mux)
	a.registerInvoices(mux)
	a.registerQuotes(mux)
	a.registerReceipts(mux)
	a.registerMisc(mux)
}
