package database

import (
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/juju/errors"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Supported database/sql driver names.
const (
	SQLite   = "sqlite"
	Postgres = "pgx"
	MySQL    = "mysql"
)

// Connect opens the database for driver using the provided DSN.
func Connect(driver, dsn string, maxOpenConns int) (*sqlx.DB, error) {
	switch driver {
	case SQLite, Postgres, MySQL:
	default:
		return nil, errors.NotSupportedf("database driver %q", driver)
	}
	if driver == SQLite {
		dsn = sqliteDSN(dsn)
	}
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, errors.Annotatef(err, "connecting to %s database", driver)
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}
	return db, nil
}

// sqliteDSN asks the driver to enable foreign keys on every connection it
// opens. The pragma is per connection and sale_items cascades rely on it.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "foreign_keys") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)"
}

// IsUniqueViolation reports whether err is a unique or primary key
// constraint failure for any supported driver.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key") || strings.Contains(msg, "duplicate entry")
}
