// Package fundsAggregator merges the independently fetched account figures
// into one presentation record per account.
package fundsAggregator

import (
	"sync"

	"github.com/KotFed0t/trading_terminal/internal/model"
	"github.com/shopspring/decimal"
)

// Fetched is the outcome of one sub-fetch. Ok=false with a nil Err means
// the figure was not requested in this round. Ok=true with an Err carries
// the last good value of a sub-fetch that is failing now.
type Fetched[T any] struct {
	Value T
	Ok    bool
	Err   error
}

func Ok[T any](v T) Fetched[T] {
	return Fetched[T]{Value: v, Ok: true}
}

func Failed[T any](err error) Fetched[T] {
	return Fetched[T]{Err: err}
}

func Stale[T any](last T, err error) Fetched[T] {
	return Fetched[T]{Value: last, Ok: true, Err: err}
}

type Inputs struct {
	User       Fetched[model.User]
	Status     Fetched[model.FundsStatus]
	Value      Fetched[decimal.Decimal]
	Summary    Fetched[model.PortfolioSummary]
	Allocation Fetched[model.Allocation]
}

// warning keys of FundsRecord.Warnings
const (
	FieldFunds          = "funds"
	FieldMargin         = "margin"
	FieldPortfolioValue = "portfolio_value"
	FieldSummary        = "summary"
	FieldAllocation     = "allocation"
)

type known struct {
	user       model.User
	status     model.FundsStatus
	value      decimal.Decimal
	summary    model.PortfolioSummary
	allocation model.Allocation
}

type Aggregator struct {
	baseCredit decimal.Decimal

	mu       sync.Mutex
	accounts map[int64]*known
}

func New(baseCredit decimal.Decimal) *Aggregator {
	return &Aggregator{
		baseCredit: baseCredit,
		accounts:   make(map[int64]*known),
	}
}

func pick[T any](in Fetched[T], last *T, field string, warnings map[string]string) {
	if in.Ok {
		*last = in.Value
	}
	if in.Err != nil {
		warnings[field] = in.Err.Error()
	}
}

// Merge folds inputs into the last-known figures of accountID and returns
// the resulting record. A failed sub-fetch leaves its field at the previous
// value (0 when there is none) and adds a warning for that field only.
func (a *Aggregator) Merge(accountID int64, in Inputs) model.FundsRecord {
	a.mu.Lock()
	defer a.mu.Unlock()

	k, ok := a.accounts[accountID]
	if !ok {
		k = &known{}
		a.accounts[accountID] = k
	}

	warnings := make(map[string]string)
	pick(in.User, &k.user, FieldFunds, warnings)
	pick(in.Status, &k.status, FieldMargin, warnings)
	pick(in.Value, &k.value, FieldPortfolioValue, warnings)
	pick(in.Summary, &k.summary, FieldSummary, warnings)
	pick(in.Allocation, &k.allocation, FieldAllocation, warnings)

	return a.record(accountID, k, warnings)
}

func (a *Aggregator) record(accountID int64, k *known, warnings map[string]string) model.FundsRecord {
	equity := model.AccountFunds{
		AvailableFunds: clamp(k.user.EquityFunds),
		UtilizedMargin: clamp(k.status.UtilizedMarginEquity),
	}
	commodity := model.AccountFunds{
		AvailableFunds: clamp(k.user.CommodityFunds),
		UtilizedMargin: clamp(k.status.UtilizedMarginCommodity),
	}

	if k.status.HasAvailableMarginFigures {
		equity.AvailableMargin = clamp(k.status.AvailableMarginEquity)
		commodity.AvailableMargin = clamp(k.status.AvailableMarginCommodity)
	} else {
		equity.AvailableMargin = AvailableMargin(a.baseCredit, k.user.EquityFunds, k.status.PendingCostEquity)
		commodity.AvailableMargin = AvailableMargin(a.baseCredit, k.user.CommodityFunds, k.status.PendingCostCommodity)
	}

	if len(warnings) == 0 {
		warnings = nil
	}

	return model.FundsRecord{
		AccountID:        accountID,
		Funds:            model.FundsState{Equity: equity, Commodity: commodity},
		PortfolioValue:   k.value,
		TotalProfit:      k.summary.TotalProfit,
		ProfitPercentage: k.summary.ProfitPercentage,
		Allocation:       k.allocation,
		Warnings:         warnings,
	}
}

// AvailableMargin is baseCredit + funds - pendingCost, never below zero.
func AvailableMargin(baseCredit, funds, pendingCost decimal.Decimal) decimal.Decimal {
	return clamp(baseCredit.Add(funds).Sub(pendingCost))
}

func clamp(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
