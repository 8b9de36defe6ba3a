// Package ledger holds the authoritative quantity on hand per product.
package ledger

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/juju/errors"
	"go.uber.org/zap"

	"shopkeep/m/domain"
	"shopkeep/m/internal/config"
	"shopkeep/m/internal/database"
)

const productColumns = `id, product_id, product_name, quantity, cost_price, selling_price, staple, expiry_date`

// Ledger reads and writes the stock table.
type Ledger struct {
	db         *sqlx.DB
	allowBelow bool
	logger     *zap.Logger
}

// New constructs a Ledger. oversell is config.OversellAllow or
// config.OversellReject.
func New(db *sqlx.DB, oversell string, logger *zap.Logger) *Ledger {
	return &Ledger{db: db, allowBelow: oversell != config.OversellReject, logger: logger}
}

// Decrement subtracts amount from the product's quantity within the caller's
// transaction. A missing product aborts with ErrProductNotFound. Under the
// reject policy a decrement that would leave the quantity negative fails
// with ErrInsufficientStock.
func (l *Ledger) Decrement(ctx context.Context, ext sqlx.ExtContext, productID string, amount int64) error {
	query := `UPDATE stock SET quantity = quantity - ? WHERE product_id = ?`
	args := []any{amount, productID}
	if !l.allowBelow {
		query += ` AND quantity >= ?`
		args = append(args, amount)
	}
	res, err := ext.ExecContext(ctx, ext.Rebind(query), args...)
	if err != nil {
		return domain.Persistence(err, "decrementing stock for "+productID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.Persistence(err, "decrementing stock for "+productID)
	}
	if n > 0 {
		return nil
	}

	var onHand int64
	err = sqlx.GetContext(ctx, ext, &onHand, ext.Rebind(`SELECT quantity FROM stock WHERE product_id = ?`), productID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return domain.WithKind(errors.NotFoundf("product %q", productID), domain.ErrProductNotFound)
	case err != nil:
		return domain.Persistence(err, "checking stock for "+productID)
	}
	l.logger.Info("rejected decrement below zero",
		zap.String("product_id", productID), zap.Int64("on_hand", onHand), zap.Int64("requested", amount))
	return domain.WithKind(errors.Errorf("only %d of %q on hand, %d requested", onHand, productID, amount), domain.ErrInsufficientStock)
}

// UpsertOnReceive books incoming stock in its own transaction.
func (l *Ledger) UpsertOnReceive(ctx context.Context, p domain.Product) (domain.Product, error) {
	if err := p.Validate(); err != nil {
		return domain.Product{}, err
	}
	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.Product{}, domain.Persistence(err, "starting stock receipt")
	}
	defer tx.Rollback()

	stored, err := l.Receive(ctx, tx, p)
	if err != nil {
		return domain.Product{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Product{}, domain.Persistence(err, "committing stock receipt")
	}
	return stored, nil
}

// Receive adds p.Quantity to an existing product and overwrites its
// descriptive fields, or creates the product. It runs inside ext.
func (l *Ledger) Receive(ctx context.Context, ext sqlx.ExtContext, p domain.Product) (domain.Product, error) {
	var current domain.Product
	err := sqlx.GetContext(ctx, ext, &current, ext.Rebind(`SELECT `+productColumns+` FROM stock WHERE product_id = ?`), p.ProductID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := ext.ExecContext(ctx, ext.Rebind(`INSERT INTO stock (product_id, product_name, quantity, cost_price, selling_price, staple, expiry_date) VALUES (?, ?, ?, ?, ?, ?, ?)`),
			p.ProductID, p.ProductName, p.Quantity, p.CostPrice, p.SellingPrice, p.Staple, p.ExpiryDate); err != nil {
			return domain.Product{}, domain.Persistence(err, "inserting received product "+p.ProductID)
		}
	case err != nil:
		return domain.Product{}, domain.Persistence(err, "loading product "+p.ProductID)
	default:
		if _, err := ext.ExecContext(ctx, ext.Rebind(`UPDATE stock SET product_name = ?, quantity = quantity + ?, cost_price = ?, selling_price = ?, staple = ?, expiry_date = ? WHERE product_id = ?`),
			p.ProductName, p.Quantity, p.CostPrice, p.SellingPrice, p.Staple, p.ExpiryDate, p.ProductID); err != nil {
			return domain.Product{}, domain.Persistence(err, "restocking product "+p.ProductID)
		}
	}

	var stored domain.Product
	if err := sqlx.GetContext(ctx, ext, &stored, ext.Rebind(`SELECT `+productColumns+` FROM stock WHERE product_id = ?`), p.ProductID); err != nil {
		return domain.Product{}, domain.Persistence(err, "reloading product "+p.ProductID)
	}
	return stored, nil
}

// List returns all products ordered by product id.
func (l *Ledger) List(ctx context.Context) ([]domain.Product, error) {
	products := []domain.Product{}
	if err := l.db.SelectContext(ctx, &products, `SELECT `+productColumns+` FROM stock ORDER BY product_id ASC`); err != nil {
		return nil, domain.Persistence(err, "listing stock")
	}
	return products, nil
}

// ListStaples returns staple products, soonest expiry first.
func (l *Ledger) ListStaples(ctx context.Context) ([]domain.Product, error) {
	products := []domain.Product{}
	query := l.db.Rebind(`SELECT ` + productColumns + ` FROM stock WHERE staple = ? ORDER BY expiry_date ASC, product_id ASC`)
	if err := l.db.SelectContext(ctx, &products, query, true); err != nil {
		return nil, domain.Persistence(err, "listing staple products")
	}
	return products, nil
}

// ExpiringBefore returns products whose expiry falls on or before date.
func (l *Ledger) ExpiringBefore(ctx context.Context, date domain.Date) ([]domain.Product, error) {
	if !date.Valid {
		return nil, domain.InvalidInput("an expiry date is required")
	}
	products := []domain.Product{}
	query := l.db.Rebind(`SELECT ` + productColumns + ` FROM stock WHERE expiry_date IS NOT NULL AND expiry_date <= ? ORDER BY expiry_date ASC, product_id ASC`)
	if err := l.db.SelectContext(ctx, &products, query, date); err != nil {
		return nil, domain.Persistence(err, "listing expiring stock")
	}
	return products, nil
}

// Get loads one product by its business id.
func (l *Ledger) Get(ctx context.Context, productID string) (domain.Product, error) {
	var p domain.Product
	err := l.db.GetContext(ctx, &p, l.db.Rebind(`SELECT `+productColumns+` FROM stock WHERE product_id = ?`), productID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return domain.Product{}, domain.WithKind(errors.NotFoundf("product %q", productID), domain.ErrProductNotFound)
	case err != nil:
		return domain.Product{}, domain.Persistence(err, "loading product "+productID)
	}
	return p, nil
}

// Create inserts a new product. A taken product id is AlreadyExists.
func (l *Ledger) Create(ctx context.Context, p domain.Product) (domain.Product, error) {
	if err := p.Validate(); err != nil {
		return domain.Product{}, err
	}
	_, err := l.db.ExecContext(ctx, l.db.Rebind(`INSERT INTO stock (product_id, product_name, quantity, cost_price, selling_price, staple, expiry_date) VALUES (?, ?, ?, ?, ?, ?, ?)`),
		p.ProductID, p.ProductName, p.Quantity, p.CostPrice, p.SellingPrice, p.Staple, p.ExpiryDate)
	if database.IsUniqueViolation(err) {
		return domain.Product{}, errors.AlreadyExistsf("product %q", p.ProductID)
	}
	if err != nil {
		return domain.Product{}, domain.Persistence(err, "inserting product "+p.ProductID)
	}
	return l.Get(ctx, p.ProductID)
}

// Update replaces the product stored under originalID, which may rename it.
// Renaming onto an existing product id is AlreadyExists.
func (l *Ledger) Update(ctx context.Context, originalID string, p domain.Product) (domain.Product, error) {
	if err := p.Validate(); err != nil {
		return domain.Product{}, err
	}
	if p.ProductID != originalID {
		var taken bool
		if err := l.db.GetContext(ctx, &taken, l.db.Rebind(`SELECT COUNT(*) > 0 FROM stock WHERE product_id = ?`), p.ProductID); err != nil {
			return domain.Product{}, domain.Persistence(err, "checking product "+p.ProductID)
		}
		if taken {
			return domain.Product{}, errors.AlreadyExistsf("product %q", p.ProductID)
		}
	}
	res, err := l.db.ExecContext(ctx, l.db.Rebind(`UPDATE stock SET product_id = ?, product_name = ?, quantity = ?, cost_price = ?, selling_price = ?, staple = ?, expiry_date = ? WHERE product_id = ?`),
		p.ProductID, p.ProductName, p.Quantity, p.CostPrice, p.SellingPrice, p.Staple, p.ExpiryDate, originalID)
	if database.IsUniqueViolation(err) {
		return domain.Product{}, errors.AlreadyExistsf("product %q", p.ProductID)
	}
	if err != nil {
		return domain.Product{}, domain.Persistence(err, "updating product "+originalID)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Either the product is missing or, on MySQL, nothing changed.
		return l.Get(ctx, originalID)
	}
	return l.Get(ctx, p.ProductID)
}

// Delete removes a product. Historical sale items keep their copy of the
// product and are not touched.
func (l *Ledger) Delete(ctx context.Context, productID string) (int64, error) {
	res, err := l.db.ExecContext(ctx, l.db.Rebind(`DELETE FROM stock WHERE product_id = ?`), productID)
	if err != nil {
		return 0, domain.Persistence(err, "deleting product "+productID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, domain.Persistence(err, "deleting product "+productID)
	}
	if n == 0 {
		return 0, domain.WithKind(errors.NotFoundf("product %q", productID), domain.ErrProductNotFound)
	}
	return n, nil
}
