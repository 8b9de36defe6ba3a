package sales

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/juju/errors"
	"github.com/shopspring/decimal"

	"shopkeep/m/domain"
	"shopkeep/m/internal/database"
)

const (
	saleColumns = `id, sale_id, sale_date, total_amount, total_items, created_at`
	itemColumns = `id, sale_id, product_id, product_name, quantity, unit_price, cost_price, total_price`
)

// Recorder persists sale headers and their line items.
type Recorder struct {
	db *sqlx.DB
}

// NewRecorder constructs a Recorder.
func NewRecorder(db *sqlx.DB) *Recorder {
	return &Recorder{db: db}
}

// Exists reports whether saleID has already been recorded.
func (r *Recorder) Exists(ctx context.Context, ext sqlx.ExtContext, saleID string) (bool, error) {
	var n int
	if err := sqlx.GetContext(ctx, ext, &n, ext.Rebind(`SELECT COUNT(*) FROM sales WHERE sale_id = ?`), saleID); err != nil {
		return false, domain.Persistence(err, "checking sale "+saleID)
	}
	return n > 0, nil
}

// InsertHeader writes the sale header. A taken sale id is ErrDuplicateSale.
func (r *Recorder) InsertHeader(ctx context.Context, ext sqlx.ExtContext, saleID string, amount decimal.Decimal, items int64) error {
	_, err := ext.ExecContext(ctx, ext.Rebind(`INSERT INTO sales (sale_id, total_amount, total_items) VALUES (?, ?, ?)`), saleID, amount, items)
	if database.IsUniqueViolation(err) {
		return duplicateSale(saleID)
	}
	if err != nil {
		return domain.Persistence(err, "inserting sale "+saleID)
	}
	return nil
}

// InsertItems writes one row per cart line, in cart order.
func (r *Recorder) InsertItems(ctx context.Context, ext sqlx.ExtContext, saleID string, lines []domain.SaleLine) error {
	query := ext.Rebind(`INSERT INTO sale_items (sale_id, product_id, product_name, quantity, unit_price, cost_price, total_price) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	for _, line := range lines {
		if _, err := ext.ExecContext(ctx, query, saleID, line.ProductID, line.ProductName, line.Quantity, line.UnitPrice, line.CostPrice, line.TotalPrice); err != nil {
			return domain.Persistence(err, "inserting item "+line.ProductID+" of sale "+saleID)
		}
	}
	return nil
}

// Get loads a sale with its items.
func (r *Recorder) Get(ctx context.Context, saleID string) (domain.SaleDetail, error) {
	var detail domain.SaleDetail
	err := r.db.GetContext(ctx, &detail.Sale, r.db.Rebind(`SELECT `+saleColumns+` FROM sales WHERE sale_id = ?`), saleID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return domain.SaleDetail{}, saleNotFound(saleID)
	case err != nil:
		return domain.SaleDetail{}, domain.Persistence(err, "loading sale "+saleID)
	}
	detail.Items = []domain.SaleItem{}
	if err := r.db.SelectContext(ctx, &detail.Items, r.db.Rebind(`SELECT `+itemColumns+` FROM sale_items WHERE sale_id = ? ORDER BY id`), saleID); err != nil {
		return domain.SaleDetail{}, domain.Persistence(err, "loading items of sale "+saleID)
	}
	return detail, nil
}

// List returns sale headers, newest first.
func (r *Recorder) List(ctx context.Context, filter domain.SaleFilter) ([]domain.Sale, error) {
	where, args := filterClause(filter, "sale_date")
	sales := []domain.Sale{}
	query := r.db.Rebind(`SELECT ` + saleColumns + ` FROM sales` + where + ` ORDER BY sale_date DESC, id DESC`)
	if err := r.db.SelectContext(ctx, &sales, query, args...); err != nil {
		return nil, domain.Persistence(err, "listing sales")
	}
	return sales, nil
}

// Delete removes a sale; its items go with it through the foreign key.
func (r *Recorder) Delete(ctx context.Context, saleID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM sales WHERE sale_id = ?`), saleID)
	if err != nil {
		return 0, domain.Persistence(err, "deleting sale "+saleID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, domain.Persistence(err, "deleting sale "+saleID)
	}
	if n == 0 {
		return 0, saleNotFound(saleID)
	}
	return n, nil
}

// Summary totals revenue and cost from stored line prices.
func (r *Recorder) Summary(ctx context.Context, filter domain.SaleFilter) (domain.ProfitSummary, error) {
	where, args := filterClause(filter, "s.sale_date")
	query := r.db.Rebind(`SELECT COUNT(DISTINCT s.sale_id) AS sales,
            COALESCE(SUM(i.quantity), 0) AS units,
            COALESCE(SUM(i.total_price), 0) AS revenue,
            COALESCE(SUM(i.cost_price * i.quantity), 0) AS cost
        FROM sales s
        JOIN sale_items i ON i.sale_id = s.sale_id` + where)

	var summary domain.ProfitSummary
	if err := r.db.GetContext(ctx, &summary, query, args...); err != nil {
		return domain.ProfitSummary{}, domain.Persistence(err, "summarising sales")
	}
	summary.Revenue = summary.Revenue.Round(2)
	summary.Cost = summary.Cost.Round(2)
	summary.Derive()
	return summary, nil
}

func filterClause(filter domain.SaleFilter, column string) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if filter.From.Valid {
		clauses = append(clauses, "DATE("+column+") >= ?")
		args = append(args, filter.From.String())
	}
	if filter.To.Valid {
		clauses = append(clauses, "DATE("+column+") <= ?")
		args = append(args, filter.To.String())
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func duplicateSale(saleID string) error {
	return domain.WithKind(errors.AlreadyExistsf("sale %q", saleID), domain.ErrDuplicateSale)
}

func saleNotFound(saleID string) error {
	return domain.WithKind(errors.NotFoundf("sale %q", saleID), domain.ErrSaleNotFound)
}
