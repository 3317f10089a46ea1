package model

import "github.com/shopspring/decimal"

// Asset is replaced wholesale on every price refresh.
type Asset struct {
	ID    int64
	Name  string
	Price decimal.NullDecimal // invalid until the first successful fetch
}

type PricePoint struct {
	Date       string
	ClosePrice decimal.Decimal
}
