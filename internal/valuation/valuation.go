// Package valuation derives profit, percentage return and totals from
// prices and holdings. It does no I/O and never rounds.
package valuation

import (
	"github.com/KotFed0t/trading_terminal/internal/model"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Result is unavailable when either price is unknown; callers must not read
// Profit or ProfitPercentage as zero in that case.
type Result struct {
	Profit           decimal.Decimal
	ProfitPercentage decimal.Decimal
	Available        bool
}

type Summary struct {
	TotalProfit      decimal.Decimal
	TotalInvestment  decimal.Decimal
	ProfitPercentage decimal.Decimal
	Counted          int // holdings with both prices known
}

// Calculate returns profit and percentage return of a position.
// A short position (quantity < 0) earns when the price falls.
func Calculate(buyPrice, currentPrice decimal.NullDecimal, quantity int64) Result {
	if !buyPrice.Valid || !currentPrice.Valid {
		return Result{}
	}

	buy, cur := buyPrice.Decimal, currentPrice.Decimal
	qty := decimal.NewFromInt(quantity)

	var diff decimal.Decimal
	if quantity < 0 {
		diff = buy.Sub(cur)
		qty = qty.Abs()
	} else {
		diff = cur.Sub(buy)
	}

	res := Result{Profit: diff.Mul(qty), Available: true}
	if !buy.IsZero() {
		res.ProfitPercentage = diff.Div(buy).Mul(hundred)
	}
	return res
}

func CalculateHolding(h model.Holding) Result {
	return Calculate(h.BuyPrice, h.CurrentPrice, h.Quantity)
}

// CurrentValue is quantity * price regardless of sign.
func CurrentValue(quantity int64, price decimal.NullDecimal) decimal.NullDecimal {
	if !price.Valid {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(price.Decimal.Mul(decimal.NewFromInt(quantity)))
}

// Notional is the monetary size of an order.
func Notional(quantity int64, price decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(quantity))
}

// Summarize aggregates holdings with known prices. Investment is the signed
// sum of buyPrice*quantity; the percentage is 0 when it sums to zero.
func Summarize(holdings []model.Holding) Summary {
	s := Summary{}
	for _, h := range holdings {
		res := CalculateHolding(h)
		if !res.Available {
			continue
		}
		s.TotalProfit = s.TotalProfit.Add(res.Profit)
		s.TotalInvestment = s.TotalInvestment.Add(h.BuyPrice.Decimal.Mul(decimal.NewFromInt(h.Quantity)))
		s.Counted++
	}

	if !s.TotalInvestment.IsZero() {
		s.ProfitPercentage = s.TotalProfit.Div(s.TotalInvestment).Mul(hundred)
	}
	return s
}

// TotalValue sums current values of holdings with a known price.
func TotalValue(holdings []model.Holding) decimal.Decimal {
	total := decimal.Zero
	for _, h := range holdings {
		if v := CurrentValue(h.Quantity, h.CurrentPrice); v.Valid {
			total = total.Add(v.Decimal)
		}
	}
	return total
}

// Evaluate attaches value and profit figures to a holding.
func Evaluate(h model.Holding) model.HoldingValuation {
	res := CalculateHolding(h)
	return model.HoldingValuation{
		Holding:          h,
		Value:            CurrentValue(h.Quantity, h.CurrentPrice),
		Profit:           res.Profit,
		ProfitPercentage: res.ProfitPercentage,
		Available:        res.Available,
	}
}
