package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.True(t, d.Valid)
	assert.Equal(t, "2024-02-29", d.String())

	d, err = ParseDate("2024-02-29T13:45:00Z")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", d.String())

	d, err = ParseDate("2024-02-29 13:45:00")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", d.String())

	d, err = ParseDate("  ")
	require.NoError(t, err)
	assert.False(t, d.Valid)

	_, err = ParseDate("29/02/2024")
	assert.Error(t, err)
}

func TestDateScanAndValue(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(2025, 3, 9, 18, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2025-03-09", d.String())

	require.NoError(t, d.Scan([]byte("2025-04-01")))
	v, err := d.Value()
	require.NoError(t, err)
	assert.Equal(t, "2025-04-01", v)

	require.NoError(t, d.Scan(nil))
	v, err = d.Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	assert.Error(t, d.Scan(42))
}

func TestDateJSON(t *testing.T) {
	var p struct {
		Expiry Date `json:"expiry"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"expiry":"2025-12-31"}`), &p))
	assert.Equal(t, "2025-12-31", p.Expiry.String())

	out, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"expiry":"2025-12-31"}`, string(out))

	require.NoError(t, json.Unmarshal([]byte(`{"expiry":null}`), &p))
	assert.False(t, p.Expiry.Valid)
	out, err = json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"expiry":null}`, string(out))
}

func TestWithKind(t *testing.T) {
	cause := errors.New("disk full")
	err := Persistence(cause, "inserting sale")
	assert.True(t, errors.Is(err, ErrPersistence))
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "inserting sale")
	assert.Contains(t, err.Error(), "disk full")

	assert.Same(t, err, WithKind(err, ErrPersistence))
	assert.Nil(t, WithKind(nil, ErrDuplicateSale))

	invalid := InvalidInput("item %d: quantity must be greater than zero", 1)
	assert.True(t, errors.Is(invalid, ErrInvalidInput))
	assert.True(t, errors.Is(invalid, errors.NotValid))
	assert.Contains(t, invalid.Error(), "item 1: quantity must be greater than zero")
}

func TestProductValidate(t *testing.T) {
	valid := Product{ProductID: "001", ProductName: "Rice", Quantity: 1, CostPrice: decimal.NewFromInt(1), SellingPrice: decimal.NewFromInt(2)}
	assert.NoError(t, valid.Validate())

	staple := valid
	staple.Staple = true
	assert.True(t, errors.Is(staple.Validate(), ErrInvalidInput))
	staple.ExpiryDate = NewDate(time.Now())
	assert.NoError(t, staple.Validate())

	negative := valid
	negative.Quantity = -1
	assert.Error(t, negative.Validate())

	assert.Equal(t, "0.5", valid.Margin().String())
	assert.True(t, Product{}.Margin().IsZero())
}

func TestSaleRequestTotals(t *testing.T) {
	req := SaleRequest{Items: []SaleLine{
		{Quantity: 2, TotalPrice: decimal.RequireFromString("150.10")},
		{Quantity: 3, TotalPrice: decimal.RequireFromString("0.20")},
	}}
	amount, units := req.Totals()
	assert.Equal(t, "150.3", amount.String())
	assert.Equal(t, int64(5), units)
}

func TestSaleRequestNormalize(t *testing.T) {
	req := SaleRequest{SaleID: " S1 ", Items: []SaleLine{{ProductID: " 001\t", ProductName: " Rice "}}}
	req.Normalize()
	assert.Equal(t, "S1", req.SaleID)
	assert.Equal(t, "001", req.Items[0].ProductID)
	assert.Equal(t, "Rice", req.Items[0].ProductName)
}

func TestProfitSummaryDerive(t *testing.T) {
	s := ProfitSummary{Revenue: decimal.NewFromInt(300), Cost: decimal.NewFromInt(100)}
	s.Derive()
	assert.Equal(t, "200", s.Profit.String())
	assert.Equal(t, "0.6667", s.Margin.String())

	empty := ProfitSummary{}
	empty.Derive()
	assert.True(t, empty.Margin.IsZero())
}
