package migrations

import (
	"github.com/jmoiron/sqlx"
	"github.com/juju/errors"
)

var schemas = map[string][]string{
	"sqlite": {
		`CREATE TABLE IF NOT EXISTS stock (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            product_id TEXT NOT NULL UNIQUE,
            product_name TEXT NOT NULL,
            quantity INTEGER NOT NULL,
            cost_price DECIMAL(10,2) NOT NULL,
            selling_price DECIMAL(10,2) NOT NULL,
            staple BOOLEAN NOT NULL DEFAULT 0,
            expiry_date DATE NULL
        );`,
		`CREATE TABLE IF NOT EXISTS sales (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            sale_id TEXT NOT NULL UNIQUE,
            sale_date DATETIME DEFAULT CURRENT_TIMESTAMP,
            total_amount DECIMAL(10,2) NOT NULL,
            total_items INTEGER NOT NULL,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP
        );`,
		`CREATE TABLE IF NOT EXISTS sale_items (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            sale_id TEXT NOT NULL,
            product_id TEXT NOT NULL,
            product_name TEXT NOT NULL,
            quantity INTEGER NOT NULL,
            unit_price DECIMAL(10,2) NOT NULL,
            total_price DECIMAL(10,2) NOT NULL,
            FOREIGN KEY(sale_id) REFERENCES sales(sale_id) ON DELETE CASCADE
        );`,
	},
	"pgx": {
		`CREATE TABLE IF NOT EXISTS stock (
            id SERIAL PRIMARY KEY,
            product_id TEXT NOT NULL UNIQUE,
            product_name TEXT NOT NULL,
            quantity INTEGER NOT NULL,
            cost_price NUMERIC(10,2) NOT NULL,
            selling_price NUMERIC(10,2) NOT NULL,
            staple BOOLEAN NOT NULL DEFAULT FALSE,
            expiry_date DATE
        );`,
		`CREATE TABLE IF NOT EXISTS sales (
            id SERIAL PRIMARY KEY,
            sale_id TEXT NOT NULL UNIQUE,
            sale_date TIMESTAMPTZ DEFAULT NOW(),
            total_amount NUMERIC(10,2) NOT NULL,
            total_items INTEGER NOT NULL,
            created_at TIMESTAMPTZ DEFAULT NOW()
        );`,
		`CREATE TABLE IF NOT EXISTS sale_items (
            id SERIAL PRIMARY KEY,
            sale_id TEXT NOT NULL REFERENCES sales(sale_id) ON DELETE CASCADE,
            product_id TEXT NOT NULL,
            product_name TEXT NOT NULL,
            quantity INTEGER NOT NULL,
            unit_price NUMERIC(10,2) NOT NULL,
            total_price NUMERIC(10,2) NOT NULL
        );`,
	},
	"mysql": {
		`CREATE TABLE IF NOT EXISTS stock (
            id INT AUTO_INCREMENT PRIMARY KEY,
            product_id VARCHAR(255) NOT NULL UNIQUE,
            product_name VARCHAR(255) NOT NULL,
            quantity INT NOT NULL,
            cost_price DECIMAL(10,2) NOT NULL,
            selling_price DECIMAL(10,2) NOT NULL,
            staple BOOLEAN NOT NULL DEFAULT FALSE,
            expiry_date DATE NULL
        )`,
		`CREATE TABLE IF NOT EXISTS sales (
            id INT AUTO_INCREMENT PRIMARY KEY,
            sale_id VARCHAR(255) NOT NULL UNIQUE,
            sale_date TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            total_amount DECIMAL(10,2) NOT NULL,
            total_items INT NOT NULL,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS sale_items (
            id INT AUTO_INCREMENT PRIMARY KEY,
            sale_id VARCHAR(255) NOT NULL,
            product_id VARCHAR(255) NOT NULL,
            product_name VARCHAR(255) NOT NULL,
            quantity INT NOT NULL,
            unit_price DECIMAL(10,2) NOT NULL,
            total_price DECIMAL(10,2) NOT NULL,
            FOREIGN KEY (sale_id) REFERENCES sales(sale_id) ON DELETE CASCADE
        )`,
	},
}

// Line cost arrived after the first sales were recorded; legacy rows are
// backfilled from the current stock cost.
const (
	addItemCost      = `ALTER TABLE sale_items ADD COLUMN cost_price DECIMAL(10,2) NOT NULL DEFAULT 0`
	backfillItemCost = `UPDATE sale_items SET cost_price = COALESCE(
            (SELECT s.cost_price FROM stock s WHERE s.product_id = sale_items.product_id), 0)`
)

// Run creates the schema required for the stock and sales backend. It is
// safe to run on every start.
func Run(db *sqlx.DB) error {
	schema, ok := schemas[db.DriverName()]
	if !ok {
		return errors.NotSupportedf("migrations for driver %q", db.DriverName())
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return errors.Annotate(err, "migration failed")
		}
	}
	return errors.Trace(ensureItemCost(db))
}

func ensureItemCost(db *sqlx.DB) error {
	if hasColumn(db, "sale_items", "cost_price") {
		return nil
	}
	tx, err := db.Beginx()
	if err != nil {
		return errors.Annotate(err, "starting sale_items migration")
	}
	defer tx.Rollback()
	if _, err := tx.Exec(addItemCost); err != nil {
		return errors.Annotate(err, "adding sale_items.cost_price")
	}
	if _, err := tx.Exec(backfillItemCost); err != nil {
		return errors.Annotate(err, "backfilling sale_items.cost_price")
	}
	return errors.Annotate(tx.Commit(), "committing sale_items migration")
}

func hasColumn(db *sqlx.DB, table, column string) bool {
	rows, err := db.Query(`SELECT ` + column + ` FROM ` + table + ` WHERE 1 = 0`)
	if err != nil {
		return false
	}
	rows.Close()
	return true
}
