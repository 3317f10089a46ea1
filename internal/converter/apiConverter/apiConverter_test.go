package apiConverter

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/KotFed0t/trading_terminal/internal/externalApi"
	"github.com/KotFed0t/trading_terminal/internal/model"
	"github.com/KotFed0t/trading_terminal/internal/model/apiModel"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestParseDate(t *testing.T) {
	tests := []struct {
		raw     string
		want    time.Time
		wantErr bool
	}{
		{raw: "2024-03-01", want: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{raw: "2024-03-01 10:30:00", want: time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)},
		{raw: "2024-03-01T10:30:00Z", want: time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)},
		{raw: "Fri, 01 Mar 2024 10:30:00 GMT", want: time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)},
		{raw: "yesterday", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseDate(tt.raw)
			if tt.wantErr {
				assert.True(t, errors.Is(err, externalApi.ErrBadPayload))
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestConvertAssetFallbackID(t *testing.T) {
	asset, err := ConvertAsset(apiModel.Asset{Name: "TCS", Price: apiModel.NullableDecimal{Present: true}}, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), asset.ID)
	assert.False(t, asset.Price.Valid)

	_, err = ConvertAssets([]apiModel.Asset{{Name: "no id"}})
	assert.True(t, errors.Is(err, externalApi.ErrBadPayload))
}

func TestConvertAssetRequiresPriceKey(t *testing.T) {
	var raw apiModel.Asset
	require.NoError(t, json.Unmarshal([]byte(`{"aid":1,"name":"TCS"}`), &raw))
	_, err := ConvertAsset(raw, 1)
	assert.True(t, errors.Is(err, externalApi.ErrBadPayload))

	var null apiModel.Asset
	require.NoError(t, json.Unmarshal([]byte(`{"aid":1,"name":"TCS","price":null}`), &null))
	asset, err := ConvertAsset(null, 1)
	require.NoError(t, err)
	assert.False(t, asset.Price.Valid)

	var search []apiModel.Asset
	require.NoError(t, json.Unmarshal([]byte(`[{"aid":2,"name":"GOLD"}]`), &search))
	assets, err := ConvertAssets(search)
	require.NoError(t, err)
	assert.False(t, assets[0].Price.Valid)
}

func TestConvertUserRequiresFunds(t *testing.T) {
	uid := int64(7)
	_, err := ConvertUser(apiModel.User{UID: &uid, Uname: "Asha"})
	assert.True(t, errors.Is(err, externalApi.ErrBadPayload))

	eq, com := decimal.NewFromInt(5000), decimal.Zero
	user, err := ConvertUser(apiModel.User{UID: &uid, EquityFunds: &eq, CommodityFunds: &com})
	require.NoError(t, err)
	assert.True(t, user.EquityFunds.Equal(eq))
}

func TestConvertHoldingsRequiresQuantity(t *testing.T) {
	holdings, err := ConvertHoldings([]apiModel.Holding{{AssetName: "TCS", Qty: ptr(int64(-3))}})
	require.NoError(t, err)
	assert.True(t, holdings[0].IsShort())

	_, err = ConvertHoldings([]apiModel.Holding{{AssetName: "TCS"}})
	assert.True(t, errors.Is(err, externalApi.ErrBadPayload))
}

func TestSplitOrders(t *testing.T) {
	orders := []model.Order{
		{ID: 1, Status: model.OrderPending},
		{ID: 2, Status: model.OrderCompleted},
		{ID: 3, Status: model.OrderPending},
	}

	book := SplitOrders(orders)

	require.Len(t, book.Pending, 2)
	assert.Equal(t, int64(1), book.Pending[0].ID)
	assert.Equal(t, int64(3), book.Pending[1].ID)
	require.Len(t, book.Completed, 1)
	assert.Equal(t, int64(2), book.Completed[0].ID)
}

func TestConvertFundsStatusHalfFilled(t *testing.T) {
	_, err := ConvertFundsStatus(apiModel.FundsStatus{
		AvailableMarginEquity:   ptr(decimal.NewFromInt(1)),
		UtilizedMarginEquity:    ptr(decimal.Zero),
		UtilizedMarginCommodity: ptr(decimal.Zero),
	})
	assert.True(t, errors.Is(err, externalApi.ErrBadPayload))
}

func TestConvertPortfolioHistoryStableOrder(t *testing.T) {
	res, err := ConvertPortfolioHistory([]apiModel.PortfolioSnapshot{
		{Date: ptr("2024-01-02"), Value: ptr(decimal.NewFromInt(2))},
		{Date: ptr("2024-01-01"), Value: ptr(decimal.NewFromInt(1))},
		{Date: ptr("2024-01-02"), Value: ptr(decimal.NewFromInt(3))},
	})
	require.NoError(t, err)

	got := make([]int64, 0, len(res))
	for _, p := range res {
		got = append(got, p.Value.IntPart())
	}
	assert.Equal(t, []int64{1, 2, 3}, got)
}

func TestRequests(t *testing.T) {
	assert.Equal(t,
		apiModel.PlaceOrderRequest{UID: 7, Aid: 2, Qty: 4, Otype: "Sell"},
		PlaceOrderRequest(model.OrderRequest{UserID: 7, AssetID: 2, Quantity: 4, Side: model.Sell}),
	)
	assert.Equal(t,
		apiModel.FundsRequest{Type: "commodity", Action: "withdraw", Amount: 12.5},
		FundsActionRequest(model.FundsAction{Type: model.Commodity, Operation: model.WithdrawFunds, Amount: decimal.RequireFromString("12.5")}),
	)
}
