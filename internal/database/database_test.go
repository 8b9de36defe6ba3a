package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectRejectsUnknownDriver(t *testing.T) {
	_, err := Connect("oracle", "dsn", 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.NotSupported))
}

func TestIsUniqueViolationSQLite(t *testing.T) {
	db, err := Connect(SQLite, ":memory:", 1)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE t (k TEXT NOT NULL UNIQUE)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO t (k) VALUES ('a')`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO t (k) VALUES ('a')`)
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.True(t, IsUniqueViolation(errors.Annotate(err, "inserting")))
}

func TestIsUniqueViolationOtherDrivers(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.True(t, IsUniqueViolation(&mysql.MySQLError{Number: 1062}))
	assert.False(t, IsUniqueViolation(&mysql.MySQLError{Number: 1452}))
	assert.False(t, IsUniqueViolation(nil))
	assert.False(t, IsUniqueViolation(errors.New("connection refused")))
}

func TestSQLiteEnforcesForeignKeys(t *testing.T) {
	db, err := Connect(SQLite, ":memory:", 1)
	require.NoError(t, err)
	defer db.Close()

	var enabled int
	require.NoError(t, db.Get(&enabled, `PRAGMA foreign_keys`))
	assert.Equal(t, 1, enabled)
}

func TestSQLiteForeignKeysOnEveryConnection(t *testing.T) {
	db, err := Connect(SQLite, filepath.Join(t.TempDir(), "fk.db"), 2)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	first, err := db.Connx(ctx)
	require.NoError(t, err)
	defer first.Close()
	second, err := db.Connx(ctx)
	require.NoError(t, err)
	defer second.Close()

	for _, conn := range []interface {
		GetContext(context.Context, interface{}, string, ...interface{}) error
	}{first, second} {
		var enabled int
		require.NoError(t, conn.GetContext(ctx, &enabled, `PRAGMA foreign_keys`))
		assert.Equal(t, 1, enabled)
	}
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, ":memory:?_pragma=foreign_keys(1)", sqliteDSN(":memory:"))
	assert.Equal(t, "shop.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", sqliteDSN("shop.db?_pragma=busy_timeout(5000)"))
	assert.Equal(t, "shop.db?_pragma=foreign_keys(0)", sqliteDSN("shop.db?_pragma=foreign_keys(0)"))
}
