package model

import "github.com/shopspring/decimal"

// Holding is a portfolio position. Negative Quantity is a short position.
type Holding struct {
	PortfolioID   int64
	PortfolioName string
	AssetName     string
	Quantity      int64
	BuyPrice      decimal.NullDecimal
	CurrentPrice  decimal.NullDecimal
}

func (h Holding) IsShort() bool {
	return h.Quantity < 0
}
