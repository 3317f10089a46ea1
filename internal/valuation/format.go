package valuation

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

const Unavailable = "N/A"

type Direction int

const (
	Flat Direction = iota
	Gain
	Loss
)

func Sign(d decimal.Decimal) Direction {
	switch d.Sign() {
	case 1:
		return Gain
	case -1:
		return Loss
	default:
		return Flat
	}
}

// Round2 is the only place monetary figures are rounded.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// FormatMoney renders d in currency, rounded to the currency's minor unit.
// Unknown currency codes fall back to two decimal places.
func FormatMoney(d decimal.Decimal, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return Round2(d).StringFixed(2)
	}
	minor := d.Shift(int32(cur.Fraction)).Round(0)
	return money.New(minor.IntPart(), cur.Code).Display()
}

func FormatNullMoney(d decimal.NullDecimal, currency string) string {
	if !d.Valid {
		return Unavailable
	}
	return FormatMoney(d.Decimal, currency)
}

func FormatPercent(d decimal.Decimal) string {
	return Round2(d).StringFixed(2) + "%"
}

func FormatResult(res Result, currency string) (profit, percentage string) {
	if !res.Available {
		return Unavailable, Unavailable
	}
	return FormatMoney(res.Profit, currency), FormatPercent(res.ProfitPercentage)
}
