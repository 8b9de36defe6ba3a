package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"shopkeep/m/domain"
)

// expiryWindow is how far ahead /stock/expiring looks when no date is given.
const expiryWindow = 30 * 24 * time.Hour

// productView is a stock row as the stock screens show it.
type productView struct {
	domain.Product
	Margin decimal.Decimal `json:"margin"`
}

func viewOf(p domain.Product) productView {
	return productView{Product: p, Margin: p.Margin().Round(4)}
}

func viewsOf(products []domain.Product) []productView {
	views := make([]productView, len(products))
	for i, p := range products {
		views[i] = viewOf(p)
	}
	return views
}

func (h *Handler) listStock(w http.ResponseWriter, r *http.Request) {
	products, err := h.Stock.List(r.Context())
	if err != nil {
		h.fail(w, r, err, "unable to fetch stock")
		return
	}
	respondJSON(w, http.StatusOK, viewsOf(products))
}

func (h *Handler) listStaples(w http.ResponseWriter, r *http.Request) {
	products, err := h.Stock.ListStaples(r.Context())
	if err != nil {
		h.fail(w, r, err, "unable to fetch staple stock")
		return
	}
	respondJSON(w, http.StatusOK, viewsOf(products))
}

func (h *Handler) expiringStock(w http.ResponseWriter, r *http.Request) {
	before := domain.NewDate(time.Now().Add(expiryWindow))
	if raw := strings.TrimSpace(r.URL.Query().Get("before")); raw != "" {
		parsed, err := domain.ParseDate(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "before must be in YYYY-MM-DD format")
			return
		}
		before = parsed
	}
	products, err := h.Stock.ExpiringBefore(r.Context(), before)
	if err != nil {
		h.fail(w, r, err, "unable to fetch expiring stock")
		return
	}
	respondJSON(w, http.StatusOK, viewsOf(products))
}

func (h *Handler) getStock(w http.ResponseWriter, r *http.Request) {
	p, err := h.Stock.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err, "unable to fetch product")
		return
	}
	respondJSON(w, http.StatusOK, viewOf(p))
}

func decodeProduct(r *http.Request) (domain.Product, error) {
	var p domain.Product
	if err := decodeJSON(r, &p); err != nil {
		return p, domain.InvalidInput("invalid request body: %v", err)
	}
	p.ProductID = strings.TrimSpace(p.ProductID)
	p.ProductName = strings.TrimSpace(p.ProductName)
	return p, nil
}

func (h *Handler) createStock(w http.ResponseWriter, r *http.Request) {
	p, err := decodeProduct(r)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	created, err := h.Stock.Create(r.Context(), p)
	if err != nil {
		h.fail(w, r, err, "unable to create product")
		return
	}
	respondJSON(w, http.StatusCreated, viewOf(created))
}

func (h *Handler) receiveStock(w http.ResponseWriter, r *http.Request) {
	p, err := decodeProduct(r)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	stored, err := h.Stock.UpsertOnReceive(r.Context(), p)
	if err != nil {
		h.fail(w, r, err, "unable to receive stock")
		return
	}
	h.Logger.Info("stock received",
		zap.String("product_id", stored.ProductID),
		zap.Int64("received", p.Quantity),
		zap.Int64("on_hand", stored.Quantity))
	respondJSON(w, http.StatusOK, viewOf(stored))
}

func (h *Handler) updateStock(w http.ResponseWriter, r *http.Request) {
	p, err := decodeProduct(r)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	updated, err := h.Stock.Update(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		h.fail(w, r, err, "unable to update product")
		return
	}
	respondJSON(w, http.StatusOK, viewOf(updated))
}

func (h *Handler) deleteStock(w http.ResponseWriter, r *http.Request) {
	n, err := h.Stock.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err, "unable to delete product")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "deletedRows": n})
}
