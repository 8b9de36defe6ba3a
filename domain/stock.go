package domain

import "github.com/shopspring/decimal"

// Product is one row of the stock ledger keyed by its business id.
type Product struct {
	ID           int64           `db:"id" json:"id"`
	ProductID    string          `db:"product_id" json:"product_id"`
	ProductName  string          `db:"product_name" json:"product_name"`
	Quantity     int64           `db:"quantity" json:"quantity"`
	CostPrice    decimal.Decimal `db:"cost_price" json:"cost_price"`
	SellingPrice decimal.Decimal `db:"selling_price" json:"selling_price"`
	Staple       bool            `db:"staple" json:"staple"`
	ExpiryDate   Date            `db:"expiry_date" json:"expiry_date"`
}

// Validate checks the fields a stock entry form requires.
func (p Product) Validate() error {
	switch {
	case p.ProductID == "":
		return InvalidInput("product_id is required")
	case p.ProductName == "":
		return InvalidInput("product_name is required")
	case p.Quantity < 0:
		return InvalidInput("quantity must not be negative")
	case p.CostPrice.IsNegative():
		return InvalidInput("cost_price must not be negative")
	case p.SellingPrice.IsNegative():
		return InvalidInput("selling_price must not be negative")
	case p.Staple && !p.ExpiryDate.Valid:
		return InvalidInput("expiry_date is required for staple products")
	}
	return nil
}

// Margin is the profit share of the selling price, zero when the product is given away.
func (p Product) Margin() decimal.Decimal {
	if p.SellingPrice.IsZero() {
		return decimal.Zero
	}
	return p.SellingPrice.Sub(p.CostPrice).Div(p.SellingPrice)
}
