package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/juju/errors"

	"shopkeep/m/domain"
)

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	sales, err := h.Sales.List(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err, "unable to fetch sales")
		return
	}
	respondJSON(w, http.StatusOK, sales)
}

func (h *Handler) newSaleID(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"saleId": h.NewSaleID()})
}

func (h *Handler) getSale(w http.ResponseWriter, r *http.Request) {
	detail, err := h.Sales.Get(r.Context(), chi.URLParam(r, "saleId"))
	if err != nil {
		h.fail(w, r, err, "unable to fetch sale")
		return
	}
	respondJSON(w, http.StatusOK, detail)
}

func (h *Handler) createSale(w http.ResponseWriter, r *http.Request) {
	var req domain.SaleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ack, err := h.Checkout.RecordSale(r.Context(), req)
	if errors.Is(err, domain.ErrProductNotFound) {
		// The cart referenced a product that is not stocked.
		h.failWith(w, r, http.StatusBadRequest, err, "")
		return
	}
	if err != nil {
		h.fail(w, r, err, "unable to record sale")
		return
	}
	respondJSON(w, http.StatusOK, ack)
}

func (h *Handler) deleteSale(w http.ResponseWriter, r *http.Request) {
	n, err := h.Sales.Delete(r.Context(), chi.URLParam(r, "saleId"))
	if err != nil {
		h.fail(w, r, err, "unable to delete sale")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "deletedRows": n})
}

func (h *Handler) profitReport(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	summary, err := h.Sales.Summary(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err, "unable to build profit report")
		return
	}
	respondJSON(w, http.StatusOK, summary)
}
