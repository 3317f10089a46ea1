package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PortfolioSnapshot is one sample of the time-ascending value series.
type PortfolioSnapshot struct {
	Date  time.Time
	Value decimal.Decimal
}

type PortfolioSummary struct {
	TotalProfit      decimal.Decimal
	ProfitPercentage decimal.Decimal
}
