package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Sale is the header of one checkout.
type Sale struct {
	ID          int64           `db:"id" json:"id"`
	SaleID      string          `db:"sale_id" json:"sale_id"`
	SaleDate    string          `db:"sale_date" json:"sale_date"`
	TotalAmount decimal.Decimal `db:"total_amount" json:"total_amount"`
	TotalItems  int64           `db:"total_items" json:"total_items"`
	CreatedAt   string          `db:"created_at" json:"created_at"`
}

// SaleItem is one stored line of a sale. ProductID is kept by value; there is
// no reference to the stock row.
type SaleItem struct {
	ID          int64           `db:"id" json:"id"`
	SaleID      string          `db:"sale_id" json:"sale_id"`
	ProductID   string          `db:"product_id" json:"product_id"`
	ProductName string          `db:"product_name" json:"product_name"`
	Quantity    int64           `db:"quantity" json:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price" json:"unit_price"`
	CostPrice   decimal.Decimal `db:"cost_price" json:"cost_price"`
	TotalPrice  decimal.Decimal `db:"total_price" json:"total_price"`
}

// SaleDetail is a header together with its lines.
type SaleDetail struct {
	Sale  Sale       `json:"sale"`
	Items []SaleItem `json:"items"`
}

// SaleLine is one cart entry submitted for checkout.
type SaleLine struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	CostPrice   decimal.Decimal `json:"cost_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

// SaleRequest is a cart submitted for checkout. The aggregates are optional;
// when present they must agree with the lines.
type SaleRequest struct {
	SaleID      string           `json:"sale_id"`
	Items       []SaleLine       `json:"items"`
	TotalAmount *decimal.Decimal `json:"total_amount"`
	TotalItems  *int64           `json:"total_items"`
}

// SaleAck acknowledges a committed sale.
type SaleAck struct {
	Success bool   `json:"success"`
	SaleID  string `json:"saleId"`
}

// Totals returns the amount and unit count implied by the lines.
func (r SaleRequest) Totals() (decimal.Decimal, int64) {
	amount := decimal.Zero
	var units int64
	for _, line := range r.Items {
		amount = amount.Add(line.TotalPrice)
		units += line.Quantity
	}
	return amount, units
}

// Normalize trims identifiers in place.
func (r *SaleRequest) Normalize() {
	r.SaleID = strings.TrimSpace(r.SaleID)
	for i := range r.Items {
		r.Items[i].ProductID = strings.TrimSpace(r.Items[i].ProductID)
		r.Items[i].ProductName = strings.TrimSpace(r.Items[i].ProductName)
	}
}

// Validate rejects malformed carts and aggregates that disagree with the lines.
func (r SaleRequest) Validate() error {
	if r.SaleID == "" {
		return InvalidInput("sale_id is required")
	}
	if len(r.Items) == 0 {
		return InvalidInput("sale must contain at least one item")
	}
	for i, line := range r.Items {
		switch {
		case line.ProductID == "":
			return InvalidInput("item %d: product_id is required", i)
		case line.ProductName == "":
			return InvalidInput("item %d: product_name is required", i)
		case line.Quantity <= 0:
			return InvalidInput("item %d: quantity must be greater than zero", i)
		case line.UnitPrice.IsNegative():
			return InvalidInput("item %d: unit_price must not be negative", i)
		case line.CostPrice.IsNegative():
			return InvalidInput("item %d: cost_price must not be negative", i)
		case line.TotalPrice.IsNegative():
			return InvalidInput("item %d: total_price must not be negative", i)
		}
	}
	amount, units := r.Totals()
	if r.TotalAmount != nil && !r.TotalAmount.Equal(amount) {
		return InvalidInput("total_amount %s does not match item totals %s", r.TotalAmount.String(), amount.String())
	}
	if r.TotalItems != nil && *r.TotalItems != units {
		return InvalidInput("total_items %d does not match item quantities %d", *r.TotalItems, units)
	}
	return nil
}

// SaleFilter restricts listings and reports to an inclusive date range.
type SaleFilter struct {
	From Date
	To   Date
}

// ProfitSummary aggregates stored line prices over a set of sales.
type ProfitSummary struct {
	Sales   int64           `db:"sales" json:"sales"`
	Units   int64           `db:"units" json:"units"`
	Revenue decimal.Decimal `db:"revenue" json:"revenue"`
	Cost    decimal.Decimal `db:"cost" json:"cost"`
	Profit  decimal.Decimal `json:"profit"`
	Margin  decimal.Decimal `json:"margin"`
}

// Derive fills Profit and Margin from Revenue and Cost.
func (s *ProfitSummary) Derive() {
	s.Profit = s.Revenue.Sub(s.Cost)
	if s.Revenue.IsZero() {
		s.Margin = decimal.Zero
		return
	}
	s.Margin = s.Profit.Div(s.Revenue).Round(4)
}
