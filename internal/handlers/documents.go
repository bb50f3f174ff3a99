package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Roquverse/flow-invoice-nexus/httpx"
	"github.com/Roquverse/flow-invoice-nexus/internal/export"
	"github.com/Roquverse/flow-invoice-nexus/internal/models"
	"github.com/Roquverse/flow-invoice-nexus/internal/services"
)

func (a *API) registerClients(mux *http.ServeMux) {
	c := a.svc.Clients
	registerResource(a, mux, "/clients", resource[models.Client, services.ClientInput]{
		list: c.List, get: c.Get, create: c.Create, update: c.Update, remove: c.Delete,
		status: stringStatus(models.ParseClientStatus),
	})
	mux.HandleFunc("GET /clients/{id}/references", func(w http.ResponseWriter, r *http.Request) {
		a.withID(w, r, func(uid, id uint) (any, error) {
			refs, err := c.References(r.Context(), uid, id)
			if err != nil {
				return nil, err
			}
			return map[string]any{"references": refs, "delete_policy": c.Policy()}, nil
		})
	})
}

func (a *API) registerProjects(mux *http.ServeMux) {
	p := a.svc.Projects
	registerResource(a, mux, "/projects", resource[models.Project, services.ProjectInput]{
		list: p.List, get: p.Get, create: p.Create, update: p.Update, remove: p.Delete,
		status: stringStatus(models.ParseProjectStatus),
	})
}

func (a *API) registerInvoices(mux *http.ServeMux) {
	inv := a.svc.Invoices
	registerResource(a, mux, "/invoices", resource[models.Invoice, services.InvoiceInput]{
		list: inv.List, get: inv.Get, create: inv.Create, update: inv.Update, remove: inv.Delete,
		status: stringStatus(models.ParseInvoiceStatus),
	})
	mux.HandleFunc("POST /invoices/{id}/send", action(a, inv.MarkSent))
	mux.HandleFunc("POST /invoices/{id}/view", action(a, inv.MarkViewed))
	mux.HandleFunc("POST /invoices/{id}/pay", action(a, inv.MarkPaid))
	mux.HandleFunc("POST /invoices/{id}/overdue", action(a, inv.MarkOverdue))
	mux.HandleFunc("POST /invoices/{id}/cancel", action(a, inv.Cancel))
	mux.HandleFunc("POST /invoices/refresh-overdue", a.refresh("overdue", inv.RefreshOverdue))
	mux.HandleFunc("GET /invoices/{id}/pdf", a.pdf(a.exports.Invoice))
}

func (a *API) registerQuotes(mux *http.ServeMux) {
	q := a.svc.Quotes
	registerResource(a, mux, "/quotes", resource[models.Quote, services.QuoteInput]{
		list: q.List, get: q.Get, create: q.Create, update: q.Update, remove: q.Delete,
		status: stringStatus(models.ParseQuoteStatus),
	})
	mux.HandleFunc("POST /quotes/{id}/send", action(a, q.MarkSent))
	mux.HandleFunc("POST /quotes/{id}/view", action(a, q.MarkViewed))
	mux.HandleFunc("POST /quotes/{id}/accept", action(a, q.Accept))
	mux.HandleFunc("POST /quotes/{id}/reject", action(a, q.Reject))
	mux.HandleFunc("POST /quotes/{id}/expire", action(a, q.Expire))
	mux.HandleFunc("POST /quotes/{id}/convert", func(w http.ResponseWriter, r *http.Request) {
		uid, ok := owner(w, r)
		if !ok {
			return
		}
		id, err := pathID(r)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		invoice, err := q.ConvertToInvoice(r.Context(), uid, id)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		httpx.JSON(w, http.StatusCreated, invoice)
	})
	mux.HandleFunc("POST /quotes/refresh-expired", a.refresh("expired", q.RefreshExpired))
	mux.HandleFunc("GET /quotes/{id}/pdf", a.pdf(a.exports.Quote))
}

func (a *API) registerReceipts(mux *http.ServeMux) {
	rc := a.svc.Receipts
	registerResource(a, mux, "/receipts", resource[models.Receipt, services.ReceiptInput]{
		list: rc.List, get: rc.Get, create: rc.Create, update: rc.Update, remove: rc.Delete,
	})
	mux.HandleFunc("GET /receipts/{id}/pdf", a.pdf(a.exports.Receipt))
}

// refresh runs a bulk status sweep for the caller and reports how many
// documents moved.
func (a *API) refresh(key string, fn func(ctx context.Context, ownerID uint) (int, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := owner(w, r)
		if !ok {
			return
		}
		n, err := fn(r.Context(), uid)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]int{key: n})
	}
}

func (a *API) pdf(render func(ctx context.Context, ownerID, id uint) (*export.File, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := owner(w, r)
		if !ok {
			return
		}
		id, err := pathID(r)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		f, err := render(r.Context(), uid, id)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.Name))
		w.Header().Set("Content-Length", strconv.Itoa(len(f.Body)))
		if f.ArchiveKey != "" {
			w.Header().Set("X-Archive-Key", f.ArchiveKey)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(f.Body)
	}
}
