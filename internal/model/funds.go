package model

import "github.com/shopspring/decimal"

type FundType string

const (
	Equity    FundType = "equity"
	Commodity FundType = "commodity"
)

type FundsOperation string

const (
	AddFunds      FundsOperation = "add"
	WithdrawFunds FundsOperation = "withdraw"
)

// FundsAction is the only way funds change from the client side.
type FundsAction struct {
	Type        FundType
	Operation   FundsOperation
	Amount      decimal.Decimal
	PaymentMode string
}

// FundsStatus is the backend margin view of an account.
type FundsStatus struct {
	AvailableMarginEquity     decimal.Decimal
	AvailableMarginCommodity  decimal.Decimal
	UtilizedMarginEquity      decimal.Decimal
	UtilizedMarginCommodity   decimal.Decimal
	PendingCostEquity         decimal.Decimal
	PendingCostCommodity      decimal.Decimal
	HasAvailableMarginFigures bool
}

type AccountFunds struct {
	AvailableFunds  decimal.Decimal
	UtilizedMargin  decimal.Decimal
	AvailableMargin decimal.Decimal
}

// FundsState fields are never negative.
type FundsState struct {
	Equity    AccountFunds
	Commodity AccountFunds
}

type Allocation struct {
	EquityValue    decimal.Decimal
	CommodityValue decimal.Decimal
}

// FundsRecord is the merged presentation record for the home view.
type FundsRecord struct {
	AccountID        int64
	Funds            FundsState
	PortfolioValue   decimal.Decimal
	TotalProfit      decimal.Decimal
	ProfitPercentage decimal.Decimal
	Allocation       Allocation
	Warnings         map[string]string
}
