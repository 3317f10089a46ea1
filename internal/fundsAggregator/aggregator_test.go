package fundsAggregator

import (
	"errors"
	"testing"

	"github.com/KotFed0t/trading_terminal/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = decimal.NewFromInt(100000)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func fullInputs() Inputs {
	return Inputs{
		User: Ok(model.User{ID: 1, EquityFunds: d(5000), CommodityFunds: d(2000)}),
		Status: Ok(model.FundsStatus{
			AvailableMarginEquity:     d(104000),
			AvailableMarginCommodity:  d(102000),
			UtilizedMarginEquity:      d(1000),
			UtilizedMarginCommodity:   d(0),
			HasAvailableMarginFigures: true,
		}),
		Value:      Ok(d(25000)),
		Summary:    Ok(model.PortfolioSummary{TotalProfit: d(1500), ProfitPercentage: decimal.RequireFromString("6.38")}),
		Allocation: Ok(model.Allocation{EquityValue: d(20000), CommodityValue: d(5000)}),
	}
}

func TestMergeAllOk(t *testing.T) {
	a := New(base)

	rec := a.Merge(1, fullInputs())

	assert.Equal(t, int64(1), rec.AccountID)
	assert.Nil(t, rec.Warnings)
	assert.True(t, rec.Funds.Equity.AvailableFunds.Equal(d(5000)))
	assert.True(t, rec.Funds.Equity.AvailableMargin.Equal(d(104000)))
	assert.True(t, rec.Funds.Equity.UtilizedMargin.Equal(d(1000)))
	assert.True(t, rec.Funds.Commodity.AvailableMargin.Equal(d(102000)))
	assert.True(t, rec.PortfolioValue.Equal(d(25000)))
	assert.True(t, rec.TotalProfit.Equal(d(1500)))
	assert.True(t, rec.Allocation.CommodityValue.Equal(d(5000)))
}

func TestMergeFailedSubFetchKeepsLastKnown(t *testing.T) {
	a := New(base)
	a.Merge(1, fullInputs())

	in := fullInputs()
	in.Value = Failed[decimal.Decimal](errors.New("timeout"))
	in.Summary = Ok(model.PortfolioSummary{TotalProfit: d(1700), ProfitPercentage: d(7)})

	rec := a.Merge(1, in)

	assert.True(t, rec.PortfolioValue.Equal(d(25000)), "failed field keeps last-known value")
	assert.True(t, rec.TotalProfit.Equal(d(1700)), "sibling field is updated")
	assert.True(t, rec.Funds.Equity.AvailableFunds.Equal(d(5000)))
	require.Len(t, rec.Warnings, 1)
	assert.Equal(t, "timeout", rec.Warnings[FieldPortfolioValue])
}

func TestMergeFallbackZero(t *testing.T) {
	a := New(base)
	in := fullInputs()
	in.Value = Failed[decimal.Decimal](errors.New("boom"))
	in.Allocation = Failed[model.Allocation](errors.New("boom"))

	rec := a.Merge(7, in)

	assert.True(t, rec.PortfolioValue.IsZero())
	assert.True(t, rec.Allocation.EquityValue.IsZero())
	assert.Len(t, rec.Warnings, 2)
	assert.True(t, rec.TotalProfit.Equal(d(1500)))
}

func TestMergeComputesMarginWhenMissing(t *testing.T) {
	a := New(base)
	in := fullInputs()
	in.Status = Ok(model.FundsStatus{
		PendingCostEquity:    d(3000),
		PendingCostCommodity: d(500000),
	})

	rec := a.Merge(1, in)

	assert.True(t, rec.Funds.Equity.AvailableMargin.Equal(d(102000)), "got %s", rec.Funds.Equity.AvailableMargin)
	assert.True(t, rec.Funds.Commodity.AvailableMargin.IsZero(), "clamped at zero")
}

func TestMergeClampsNegatives(t *testing.T) {
	a := New(base)
	in := fullInputs()
	in.User = Ok(model.User{EquityFunds: d(-10), CommodityFunds: d(3)})
	in.Status = Ok(model.FundsStatus{
		UtilizedMarginEquity:      d(-5),
		AvailableMarginEquity:     d(-1),
		AvailableMarginCommodity:  d(4),
		HasAvailableMarginFigures: true,
	})

	rec := a.Merge(1, in)

	for _, v := range []decimal.Decimal{
		rec.Funds.Equity.AvailableFunds,
		rec.Funds.Equity.UtilizedMargin,
		rec.Funds.Equity.AvailableMargin,
		rec.Funds.Commodity.AvailableFunds,
		rec.Funds.Commodity.UtilizedMargin,
		rec.Funds.Commodity.AvailableMargin,
	} {
		assert.False(t, v.IsNegative())
	}
}

func TestMergeNoCrossAccountLeakage(t *testing.T) {
	a := New(base)
	a.Merge(1, fullInputs())

	in := fullInputs()
	in.Value = Failed[decimal.Decimal](errors.New("down"))
	rec := a.Merge(2, in)

	assert.True(t, rec.PortfolioValue.IsZero(), "account 2 must not see account 1 value")

	rec = a.Merge(1, Inputs{})
	assert.True(t, rec.PortfolioValue.Equal(d(25000)), "account 1 keeps its own figures")
}

func TestMergeStaleInputOnFirstMerge(t *testing.T) {
	a := New(base)
	in := fullInputs()
	in.Status = Stale(model.FundsStatus{
		AvailableMarginEquity:     d(104000),
		UtilizedMarginEquity:      d(2500),
		HasAvailableMarginFigures: true,
	}, errors.New("status 500"))

	rec := a.Merge(1, in)

	assert.True(t, rec.Funds.Equity.UtilizedMargin.Equal(d(2500)))
	assert.True(t, rec.Funds.Equity.AvailableMargin.Equal(d(104000)), "backend margin figure is kept")
	require.Len(t, rec.Warnings, 1)
	assert.Equal(t, "status 500", rec.Warnings[FieldMargin])
}

func TestMergeNotRequestedIsNotAWarning(t *testing.T) {
	a := New(base)
	a.Merge(1, fullInputs())

	rec := a.Merge(1, Inputs{Value: Ok(d(30000))})

	assert.Nil(t, rec.Warnings)
	assert.True(t, rec.PortfolioValue.Equal(d(30000)))
	assert.True(t, rec.TotalProfit.Equal(d(1500)))
}

func TestAvailableMargin(t *testing.T) {
	tests := []struct {
		funds, pending, want int64
	}{
		{funds: 0, pending: 0, want: 100000},
		{funds: 5000, pending: 2000, want: 103000},
		{funds: 0, pending: 100000, want: 0},
		{funds: 0, pending: 150000, want: 0},
	}
	for _, tt := range tests {
		got := AvailableMargin(base, d(tt.funds), d(tt.pending))
		assert.True(t, got.Equal(d(tt.want)), "funds=%d pending=%d got=%s", tt.funds, tt.pending, got)
	}
}
