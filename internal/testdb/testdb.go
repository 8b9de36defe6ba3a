// Package testdb provides migrated in-memory databases for tests.
package testdb

import (
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"shopkeep/m/domain"
	"shopkeep/m/internal/database"
	"shopkeep/m/internal/migrations"
)

// T is satisfied by *testing.T and *rapid.T.
type T interface {
	require.TestingT
	Helper()
}

// Open returns a migrated in-memory SQLite database closed with the test.
func Open(t testing.TB) *sqlx.DB {
	t.Helper()
	db, err := database.Connect(database.SQLite, ":memory:", 1)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migrations.Run(db))
	return db
}

// Product returns a non-staple product with whole prices.
func Product(id, name string, quantity, cost, price int64) domain.Product {
	return domain.Product{
		ProductID:    id,
		ProductName:  name,
		Quantity:     quantity,
		CostPrice:    decimal.NewFromInt(cost),
		SellingPrice: decimal.NewFromInt(price),
	}
}

// Stock inserts products directly.
func Stock(t T, db *sqlx.DB, products ...domain.Product) {
	t.Helper()
	for _, p := range products {
		_, err := db.Exec(`INSERT INTO stock (product_id, product_name, quantity, cost_price, selling_price, staple, expiry_date) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			p.ProductID, p.ProductName, p.Quantity, p.CostPrice, p.SellingPrice, p.Staple, p.ExpiryDate)
		require.NoError(t, err)
	}
}

// Quantity reads the quantity on hand for productID.
func Quantity(t T, db *sqlx.DB, productID string) int64 {
	t.Helper()
	var q int64
	require.NoError(t, db.Get(&q, `SELECT quantity FROM stock WHERE product_id = ?`, productID))
	return q
}

// Count returns the number of rows in table matching saleID.
func Count(t T, db *sqlx.DB, table, saleID string) int {
	t.Helper()
	var n int
	require.NoError(t, db.Get(&n, `SELECT COUNT(*) FROM `+table+` WHERE sale_id = ?`, saleID))
	return n
}

// OpenFile returns a migrated SQLite database backed by a file in a
// temporary directory. Use it when a test may cause a connection to be
// discarded, which would lose an in-memory database.
func OpenFile(t testing.TB) *sqlx.DB {
	t.Helper()
	db, err := database.Connect(database.SQLite, filepath.Join(t.TempDir(), "shopkeep.db"), 1)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migrations.Run(db))
	return db
}

// Reset empties every table.
func Reset(t T, db *sqlx.DB) {
	t.Helper()
	for _, table := range []string{"sale_items", "sales", "stock"} {
		_, err := db.Exec(`DELETE FROM ` + table)
		require.NoError(t, err)
	}
}
