package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// HoldingValuation is a holding with its computed figures. Profit and
// ProfitPercentage are meaningful only when Available.
type HoldingValuation struct {
	Holding
	Value            decimal.NullDecimal
	Profit           decimal.Decimal
	ProfitPercentage decimal.Decimal
	Available        bool
}

type PortfolioReport struct {
	AccountID        int64
	UserName         string
	Currency         string
	GeneratedAt      time.Time
	Holdings         []HoldingValuation
	TotalValue       decimal.Decimal
	TotalInvestment  decimal.Decimal
	TotalProfit      decimal.Decimal
	ProfitPercentage decimal.Decimal
	Funds            FundsRecord
}
