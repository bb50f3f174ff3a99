package handlers

import (
	"net/http"

	"github.com/Roquverse/flow-invoice-nexus/httpx"
	"github.com/Roquverse/flow-invoice-nexus/internal/models"
)

func (a *API) registerMisc(mux *http.ServeMux) {
	mux.HandleFunc("GET /dashboard", func(w http.ResponseWriter, r *http.Request) {
		uid, ok := owner(w, r)
		if !ok {
			return
		}
		d, err := a.svc.Dashboard.Get(r.Context(), uid)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		httpx.JSON(w, http.StatusOK, d)
	})

	// The previewed number is not reserved; a concurrent create may take it.
	mux.HandleFunc("GET /numbers/next", func(w http.ResponseWriter, r *http.Request) {
		uid, ok := owner(w, r)
		if !ok {
			return
		}
		docType, err := models.ParseDocumentType(r.URL.Query().Get("type"))
		if err != nil {
			a.fail(w, r, err)
			return
		}
		next, err := a.svc.Numbers.Peek(r.Context(), uid, docType)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"type": string(docType), "number": next})
	})
}
