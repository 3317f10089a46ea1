package orderChecker

import (
	"errors"
	"testing"

	"github.com/KotFed0t/trading_terminal/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdmit(t *testing.T) {
	checker := New(50, decimal.NewFromInt(100000))

	price := func(s string) decimal.NullDecimal {
		return decimal.NewNullDecimal(decimal.RequireFromString(s))
	}

	tests := []struct {
		name       string
		qty        int64
		side       model.OrderSide
		assetID    int64
		price      decimal.NullDecimal
		wantReason string
	}{
		{name: "accepted", qty: 10, side: model.Buy, assetID: 1, price: price("5")},
		{name: "sell accepted", qty: 50, side: model.Sell, assetID: 1, price: price("2000")},
		{name: "notional at the limit", qty: 5, side: model.Buy, assetID: 1, price: price("20000")},
		{name: "zero quantity", qty: 0, side: model.Buy, assetID: 1, price: price("5"), wantReason: ReasonInvalidQuantity},
		{name: "negative quantity", qty: -3, side: model.Sell, assetID: 1, price: price("5"), wantReason: ReasonInvalidQuantity},
		{name: "above max quantity", qty: 51, side: model.Buy, assetID: 1, price: price("10"), wantReason: ReasonExceedsMaxQuantity},
		{name: "above max notional", qty: 10, side: model.Buy, assetID: 1, price: price("20000"), wantReason: ReasonExceedsMaxNotional},
		{name: "notional just above", qty: 1, side: model.Buy, assetID: 1, price: price("100000.01"), wantReason: ReasonExceedsMaxNotional},
		{name: "quantity checked before price", qty: 51, side: model.Buy, assetID: 1, price: decimal.NullDecimal{}, wantReason: ReasonExceedsMaxQuantity},
		{name: "price unknown", qty: 10, side: model.Buy, assetID: 1, price: decimal.NullDecimal{}, wantReason: ReasonPriceUnavailable},
		{name: "no asset", qty: 10, side: model.Buy, assetID: 0, price: price("5"), wantReason: ReasonUnknownAsset},
		{name: "bad side", qty: 10, side: model.OrderSide("Hold"), assetID: 1, price: price("5"), wantReason: ReasonInvalidSide},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checker.Admit(model.OrderRequest{UserID: 1, AssetID: tt.assetID, Quantity: tt.qty, Side: tt.side}, tt.price)

			if tt.wantReason == "" {
				assert.NoError(t, err)
				return
			}

			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tt.wantReason, vErr.Reason)
		})
	}
}

func TestAdmitQuantityRange(t *testing.T) {
	checker := New(50, decimal.NewFromInt(100000))
	one := decimal.NewNullDecimal(decimal.NewFromInt(1))

	for q := int64(-5); q <= 60; q++ {
		err := checker.Admit(model.OrderRequest{AssetID: 1, Quantity: q, Side: model.Buy}, one)
		if q >= 1 && q <= 50 {
			assert.NoError(t, err, "qty=%d", q)
		} else {
			assert.Error(t, err, "qty=%d", q)
		}
	}
}
