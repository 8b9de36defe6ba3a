// Package sales records checkouts. The Coordinator runs the header insert,
// the item inserts and the stock decrements as one transaction.
package sales

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/juju/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"shopkeep/m/domain"
	"shopkeep/m/internal/metrics"
)

// StockLedger applies stock decrements inside the sale transaction.
type StockLedger interface {
	Decrement(ctx context.Context, ext sqlx.ExtContext, productID string, amount int64) error
}

// SaleWriter persists the header and the items inside the sale transaction.
type SaleWriter interface {
	Exists(ctx context.Context, ext sqlx.ExtContext, saleID string) (bool, error)
	InsertHeader(ctx context.Context, ext sqlx.ExtContext, saleID string, amount decimal.Decimal, items int64) error
	InsertItems(ctx context.Context, ext sqlx.ExtContext, saleID string, lines []domain.SaleLine) error
}

// Coordinator owns one transaction per sale and releases it on every path.
type Coordinator struct {
	db      *sqlx.DB
	ledger  StockLedger
	writer  SaleWriter
	timeout time.Duration
	metrics *metrics.Collector
	logger  *zap.Logger
}

// NewCoordinator constructs a Coordinator. A zero timeout leaves the
// transaction bounded only by ctx. A nil collector or logger is replaced by
// an unregistered collector and a no-op logger.
func NewCoordinator(db *sqlx.DB, ledger StockLedger, writer SaleWriter, timeout time.Duration, collector *metrics.Collector, logger *zap.Logger) *Coordinator {
	if collector == nil {
		collector = metrics.NewCollector()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		db:      db,
		ledger:  ledger,
		writer:  writer,
		timeout: timeout,
		metrics: collector,
		logger:  logger,
	}
}

// NewSaleID mints a sale id for clients that do not generate their own.
func NewSaleID() string {
	return "SALE_" + uuid.NewString()
}

// RecordSale validates the cart and then, in order, inserts the header,
// inserts the items and decrements stock for each line before committing.
// Any failure rolls the whole unit back and the triggering error is
// returned; a failed rollback is only logged.
func (c *Coordinator) RecordSale(ctx context.Context, req domain.SaleRequest) (domain.SaleAck, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		c.metrics.SaleFailed(Kind(err), 0)
		return domain.SaleAck{}, err
	}
	amount, units := req.Totals()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	start := time.Now()

	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return c.fail(req.SaleID, domain.Persistence(err, "starting sale transaction"), start)
	}
	if err := c.write(ctx, tx, req, amount, units); err != nil {
		c.rollback(tx, req.SaleID, err)
		return c.fail(req.SaleID, err, start)
	}
	if err := tx.Commit(); err != nil {
		err = domain.Persistence(err, "committing sale "+req.SaleID)
		c.rollback(tx, req.SaleID, err)
		return c.fail(req.SaleID, err, start)
	}

	took := time.Since(start)
	c.metrics.SaleCommitted(units, took)
	c.logger.Info("sale recorded",
		zap.String("sale_id", req.SaleID),
		zap.Int("lines", len(req.Items)),
		zap.Int64("units", units),
		zap.String("total_amount", amount.StringFixed(2)),
		zap.Duration("took", took))
	return domain.SaleAck{Success: true, SaleID: req.SaleID}, nil
}

func (c *Coordinator) write(ctx context.Context, tx *sqlx.Tx, req domain.SaleRequest, amount decimal.Decimal, units int64) error {
	exists, err := c.writer.Exists(ctx, tx, req.SaleID)
	if err != nil {
		return err
	}
	if exists {
		return duplicateSale(req.SaleID)
	}
	if err := c.writer.InsertHeader(ctx, tx, req.SaleID, amount, units); err != nil {
		return err
	}
	if err := c.writer.InsertItems(ctx, tx, req.SaleID, req.Items); err != nil {
		return err
	}
	for _, line := range req.Items {
		if err := c.ledger.Decrement(ctx, tx, line.ProductID, line.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func (c *Coordinator) rollback(tx *sqlx.Tx, saleID string, cause error) {
	err := tx.Rollback()
	if err == nil || errors.Is(err, sql.ErrTxDone) {
		return
	}
	c.metrics.RollbackFailed()
	c.logger.Error("sale rollback failed",
		zap.String("sale_id", saleID),
		zap.NamedError("cause", cause),
		zap.Error(domain.WithKind(err, domain.ErrRollbackFailed)))
}

func (c *Coordinator) fail(saleID string, err error, start time.Time) (domain.SaleAck, error) {
	kind := Kind(err)
	c.metrics.SaleFailed(kind, time.Since(start))
	c.logger.Warn("sale rolled back", zap.String("sale_id", saleID), zap.String("kind", kind), zap.Error(err))
	return domain.SaleAck{}, err
}

// Kind names the failure class of a sale error for logs and metrics.
func Kind(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, domain.ErrDuplicateSale):
		return "duplicate_sale"
	case errors.Is(err, domain.ErrProductNotFound):
		return "product_not_found"
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	default:
		return "persistence"
	}
}
