package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"
	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"shopkeep/m/domain"
	"shopkeep/m/internal/auth"
)

func init() {
	// Money goes out as JSON numbers, the way the stock screens expect.
	decimal.MarshalJSONWithoutQuotes = true
}

// Stock is the ledger surface used by the stock routes.
type Stock interface {
	List(ctx context.Context) ([]domain.Product, error)
	ListStaples(ctx context.Context) ([]domain.Product, error)
	ExpiringBefore(ctx context.Context, date domain.Date) ([]domain.Product, error)
	Get(ctx context.Context, productID string) (domain.Product, error)
	Create(ctx context.Context, p domain.Product) (domain.Product, error)
	Update(ctx context.Context, originalID string, p domain.Product) (domain.Product, error)
	Delete(ctx context.Context, productID string) (int64, error)
	UpsertOnReceive(ctx context.Context, p domain.Product) (domain.Product, error)
}

// Checkout records sales atomically.
type Checkout interface {
	RecordSale(ctx context.Context, req domain.SaleRequest) (domain.SaleAck, error)
}

// SaleHistory reads and deletes recorded sales.
type SaleHistory interface {
	Get(ctx context.Context, saleID string) (domain.SaleDetail, error)
	List(ctx context.Context, filter domain.SaleFilter) ([]domain.Sale, error)
	Delete(ctx context.Context, saleID string) (int64, error)
	Summary(ctx context.Context, filter domain.SaleFilter) (domain.ProfitSummary, error)
}

// Deps are the collaborators of the HTTP handlers.
type Deps struct {
	DB          *sqlx.DB
	Stock       Stock
	Checkout    Checkout
	Sales       SaleHistory
	Verifier    auth.Verifier
	Issuer      *auth.Issuer
	Gatherer    prometheus.Gatherer
	CORSOrigins []string
	NewSaleID   func() string
	Logger      *zap.Logger
}

// Handler bundles dependencies for HTTP handlers.
type Handler struct {
	Deps
}

// New constructs a Handler.
func New(deps Deps) *Handler {
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Handler{Deps: deps}
}

// Router wires up the HTTP API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(accessLog(h.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", h.root)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(h.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health/db", h.healthDB)
		r.Post("/auth/login", h.login)

		r.Group(func(pr chi.Router) {
			pr.Use(auth.Middleware(h.Issuer))

			pr.Get("/auth/me", h.me)

			pr.Route("/stock", func(r chi.Router) {
				r.Get("/", h.listStock)
				r.Post("/", h.createStock)
				r.Get("/staple", h.listStaples)
				r.Get("/expiring", h.expiringStock)
				r.Post("/receive", h.receiveStock)
				r.Get("/{id}", h.getStock)
				r.Put("/{id}", h.updateStock)
				r.Delete("/{id}", h.deleteStock)
			})

			pr.Route("/sales", func(r chi.Router) {
				r.Get("/", h.listSales)
				r.Post("/", h.createSale)
				r.Get("/new-id", h.newSaleID)
				r.Get("/{saleId}", h.getSale)
				r.Delete("/{saleId}", h.deleteSale)
			})

			pr.Get("/reports/profit", h.profitReport)
		})
	})

	return r
}

func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("shopkeep backend is running"))
}

func (h *Handler) healthDB(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.DB.PingContext(ctx); err != nil {
		h.Logger.Error("database ping failed", zap.Error(err))
		respondError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Authentication

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "username and password are required")
		return
	}
	principal, err := h.Verifier.Verify(r.Context(), req.Username, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		h.fail(w, r, err, "unable to verify credentials")
		return
	}
	token, err := h.Issuer.Issue(principal)
	if err != nil {
		h.fail(w, r, err, "unable to issue token")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"token": token, "user": principal})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.FromContext(r.Context())
	respondJSON(w, http.StatusOK, principal)
}

// Helpers

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, errors.NotValid):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrDuplicateSale), errors.Is(err, domain.ErrInsufficientStock), errors.Is(err, errors.AlreadyExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrSaleNotFound), errors.Is(err, domain.ErrProductNotFound), errors.Is(err, errors.NotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// fail writes err with its mapped status. Server errors are logged and
// replaced by message so storage details do not leak.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, message string) {
	h.failWith(w, r, statusFor(err), err, message)
}

func (h *Handler) failWith(w http.ResponseWriter, r *http.Request, status int, err error, message string) {
	if status >= http.StatusInternalServerError {
		h.Logger.Error(message,
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
		respondError(w, status, message)
		return
	}
	respondError(w, status, err.Error())
}

func parseFilter(r *http.Request) (domain.SaleFilter, error) {
	var (
		filter domain.SaleFilter
		err    error
	)
	if filter.From, err = domain.ParseDate(r.URL.Query().Get("start_date")); err != nil {
		return filter, domain.InvalidInput("start_date must be in YYYY-MM-DD format")
	}
	if filter.To, err = domain.ParseDate(r.URL.Query().Get("end_date")); err != nil {
		return filter, domain.InvalidInput("end_date must be in YYYY-MM-DD format")
	}
	return filter, nil
}

func accessLog(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("http request",
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("took", time.Since(start)))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

func decodeJSON(r *http.Request, dest interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
