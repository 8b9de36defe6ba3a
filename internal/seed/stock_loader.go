// Package seed books an initial stock list into the ledger at start-up.
package seed

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/juju/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"shopkeep/m/domain"
)

// Receiver books received stock inside a transaction.
type Receiver interface {
	Receive(ctx context.Context, ext sqlx.ExtContext, p domain.Product) (domain.Product, error)
}

var columns = []string{"product_id", "product_name", "quantity", "cost_price", "selling_price", "staple", "expiry_date"}

// LoadStockFile opens csvPath and passes it to LoadStock.
func LoadStockFile(ctx context.Context, db *sqlx.DB, recv Receiver, csvPath string, logger *zap.Logger) (int, error) {
	file, err := os.Open(csvPath)
	if err != nil {
		return 0, errors.Annotatef(err, "opening stock seed %s", csvPath)
	}
	defer file.Close()
	return LoadStock(ctx, db, recv, file, logger)
}

// LoadStock receives every well-formed row of the CSV in one transaction
// and returns the number of rows booked. Malformed rows are logged and
// skipped; a storage failure aborts the whole load.
func LoadStock(ctx context.Context, db *sqlx.DB, recv Receiver, src io.Reader, logger *zap.Logger) (int, error) {
	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return 0, errors.Annotate(err, "reading stock header")
	}
	index, err := headerIndex(header)
	if err != nil {
		return 0, err
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, errors.Annotate(err, "starting stock seed transaction")
	}
	defer tx.Rollback()

	rows := 0
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Warn("skipping unreadable stock row", zap.Int("line", line), zap.Error(err))
			continue
		}
		p, err := parseRow(record, index)
		if err == nil {
			err = p.Validate()
		}
		if err != nil {
			logger.Warn("skipping stock row", zap.Int("line", line), zap.Error(err))
			continue
		}
		if _, err := recv.Receive(ctx, tx, p); err != nil {
			return 0, errors.Annotatef(err, "seeding %s", p.ProductID)
		}
		rows++
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Annotate(err, "committing stock seed")
	}
	logger.Info("seeded stock", zap.Int("rows", rows))
	return rows, nil
}

func headerIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	for _, col := range columns[:5] {
		if _, ok := index[col]; !ok {
			return nil, errors.NotValidf("stock header without %q column", col)
		}
	}
	return index, nil
}

func parseRow(record []string, index map[string]int) (domain.Product, error) {
	field := func(name string) string {
		i, ok := index[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var (
		p   domain.Product
		err error
	)
	p.ProductID = field("product_id")
	p.ProductName = field("product_name")
	if p.Quantity, err = strconv.ParseInt(field("quantity"), 10, 64); err != nil {
		return p, errors.NotValidf("quantity %q", field("quantity"))
	}
	if p.CostPrice, err = decimal.NewFromString(field("cost_price")); err != nil {
		return p, errors.NotValidf("cost_price %q", field("cost_price"))
	}
	if p.SellingPrice, err = decimal.NewFromString(field("selling_price")); err != nil {
		return p, errors.NotValidf("selling_price %q", field("selling_price"))
	}
	if s := field("staple"); s != "" {
		if p.Staple, err = parseBool(s); err != nil {
			return p, err
		}
	}
	if s := field("expiry_date"); s != "" {
		if p.ExpiryDate, err = domain.ParseDate(s); err != nil {
			return p, errors.NotValidf("expiry_date %q", s)
		}
	}
	return p, nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "y":
		return true, nil
	case "0", "false", "no", "n":
		return false, nil
	}
	return false, errors.NotValidf("staple %q", s)
}
