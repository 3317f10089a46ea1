package model

import "github.com/shopspring/decimal"

type User struct {
	ID             int64
	Name           string
	Email          string
	EquityFunds    decimal.Decimal
	CommodityFunds decimal.Decimal
}
