package tradeApi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/KotFed0t/trading_terminal/config"
	"github.com/KotFed0t/trading_terminal/internal/externalApi"
	"github.com/KotFed0t/trading_terminal/internal/model"
	"github.com/KotFed0t/trading_terminal/internal/model/apiModel"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApi(t *testing.T, handler http.Handler) *TradeApi {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{}
	cfg.API.BackendApi.Url = srv.URL
	cfg.API.Timeout = 2 * time.Second
	return New(cfg)
}

func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func TestGetAsset(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /assets/1", respond(http.StatusOK, `{"aid":1,"name":"TCS","price":10.5}`))
	mux.HandleFunc("GET /assets/3", respond(http.StatusOK, `{"name":"NEWCO","price":null}`))
	mux.HandleFunc("GET /assets/4", respond(http.StatusOK, `{"aid":4,"name":"NOPRICE"}`))
	mux.HandleFunc("GET /assets/9", respond(http.StatusNotFound, `{"error":"asset not found"}`))
	api := newTestApi(t, mux)
	ctx := context.Background()

	asset, err := api.GetAsset(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "TCS", asset.Name)
	require.True(t, asset.Price.Valid)
	assert.True(t, decimal.RequireFromString("10.5").Equal(asset.Price.Decimal))

	asset, err = api.GetAsset(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), asset.ID)
	assert.False(t, asset.Price.Valid)

	_, err = api.GetAsset(ctx, 4)
	assert.True(t, errors.Is(err, externalApi.ErrBadPayload))

	_, err = api.GetAsset(ctx, 9)
	require.Error(t, err)
	assert.True(t, errors.Is(err, externalApi.ErrNotFound))
	var netErr *externalApi.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, http.StatusNotFound, netErr.StatusCode)
	assert.Equal(t, "asset not found", netErr.Message)
}

func TestPlaceOrder(t *testing.T) {
	var got apiModel.PlaceOrderRequest
	mux := http.NewServeMux()
	mux.HandleFunc("POST /place_order", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		if got.Qty > 5 {
			respond(http.StatusBadRequest, `{"error":"Insufficient funds"}`)(w, r)
			return
		}
		respond(http.StatusOK, `{"message":"ok"}`)(w, r)
	})
	api := newTestApi(t, mux)

	err := api.PlaceOrder(context.Background(), model.OrderRequest{UserID: 7, AssetID: 1, Quantity: 2, Side: model.Buy})
	require.NoError(t, err)
	assert.Equal(t, apiModel.PlaceOrderRequest{UID: 7, Aid: 1, Qty: 2, Otype: "Buy"}, got)

	err = api.PlaceOrder(context.Background(), model.OrderRequest{UserID: 7, AssetID: 1, Quantity: 6, Side: model.Sell})
	var netErr *externalApi.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, "Insufficient funds", netErr.Message)
	assert.Equal(t, http.StatusBadRequest, netErr.StatusCode)
}

func TestGetOrders(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /orders/7", respond(http.StatusOK, `[
		{"oid":1,"otype":"Buy","qty":2,"price":10,"status":"Pending","date":"2024-03-01 10:00:00","asset_name":"TCS"},
		{"oid":2,"otype":"Sell","qty":1,"price":20000,"status":"Completed","date":"2024-03-02T11:00:00Z","asset_name":"GOLD"}
	]`))
	mux.HandleFunc("GET /orders/8", respond(http.StatusOK, `[{"oid":3,"otype":"Buy","qty":1,"status":"Cancelled"}]`))
	api := newTestApi(t, mux)

	orders, err := api.GetOrders(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, model.OrderPending, orders[0].Status)
	assert.Equal(t, int64(7), orders[0].UserID)
	assert.Equal(t, 2024, orders[1].Date.Year())

	_, err = api.GetOrders(context.Background(), 8)
	assert.True(t, errors.Is(err, externalApi.ErrBadPayload))
}

func TestGetUserBadPayload(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /user/7", respond(http.StatusOK, `{"uname":"Alice"}`))
	mux.HandleFunc("GET /user/9", respond(http.StatusOK, `{"uid":9,"uname":"Ravi"}`))
	mux.HandleFunc("GET /user/8", respond(http.StatusOK, `not json`))
	api := newTestApi(t, mux)

	_, err := api.GetUser(context.Background(), 7)
	assert.True(t, errors.Is(err, externalApi.ErrBadPayload))
	assert.True(t, externalApi.IsNetworkError(err))

	_, err = api.GetUser(context.Background(), 8)
	assert.True(t, errors.Is(err, externalApi.ErrBadPayload))

	_, err = api.GetUser(context.Background(), 9)
	assert.True(t, errors.Is(err, externalApi.ErrBadPayload), "fund balances are required")
}

func TestGetFundsStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /user/7/funds_status", respond(http.StatusOK, `{
		"available_margin_equity": 100, "available_margin_commodity": 50,
		"utilized_margin_equity": 10, "utilized_margin_commodity": 5
	}`))
	mux.HandleFunc("GET /user/8/funds_status", respond(http.StatusOK, `{
		"utilized_margin_equity": 10, "utilized_margin_commodity": 5,
		"total_pending_cost_equity": 30
	}`))
	api := newTestApi(t, mux)

	status, err := api.GetFundsStatus(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, status.HasAvailableMarginFigures)
	assert.True(t, decimal.NewFromInt(100).Equal(status.AvailableMarginEquity))

	status, err = api.GetFundsStatus(context.Background(), 8)
	require.NoError(t, err)
	assert.False(t, status.HasAvailableMarginFigures)
	assert.True(t, decimal.NewFromInt(30).Equal(status.PendingCostEquity))
}

func TestManageFunds(t *testing.T) {
	var got apiModel.FundsRequest
	mux := http.NewServeMux()
	mux.HandleFunc("POST /user/7/funds", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		respond(http.StatusOK, `{"message":"ok","equity_funds":1500,"commodity_funds":0}`)(w, r)
	})
	mux.HandleFunc("POST /user/8/funds", respond(http.StatusOK, `{"message":"ok"}`))
	api := newTestApi(t, mux)

	equity, commodity, err := api.ManageFunds(context.Background(), 7, model.FundsAction{
		Type: model.Equity, Operation: model.AddFunds, Amount: decimal.NewFromInt(500), PaymentMode: "UPI",
	})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1500).Equal(equity))
	assert.True(t, commodity.IsZero())
	assert.Equal(t, apiModel.FundsRequest{Type: "equity", Action: "add", Amount: 500, PaymentMode: "UPI"}, got)

	_, _, err = api.ManageFunds(context.Background(), 8, model.FundsAction{Type: model.Equity, Operation: model.AddFunds, Amount: decimal.NewFromInt(1)})
	assert.True(t, errors.Is(err, externalApi.ErrBadPayload))
}

func TestGetPortfolioHistorySorted(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /user/7/portfolio_history", respond(http.StatusOK, `[
		{"date":"2024-01-03","value":30},
		{"date":"2024-01-01","value":10},
		{"date":"2024-01-02","value":20}
	]`))
	api := newTestApi(t, mux)

	history, err := api.GetPortfolioHistory(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, history, 3)
	for i, want := range []int64{10, 20, 30} {
		assert.True(t, decimal.NewFromInt(want).Equal(history[i].Value), "point %d", i)
	}
}

func TestWatchlistEndpoints(t *testing.T) {
	var created apiModel.CreateWatchlistRequest
	var removed string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /watchlists", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&created))
		respond(http.StatusCreated, `{"message":"created","wid":12,"wname":"metals"}`)(w, r)
	})
	mux.HandleFunc("GET /watchlists/7", respond(http.StatusOK, `[{"wid":11,"wname":"tech"},{"wid":12,"wname":"metals"}]`))
	mux.HandleFunc("DELETE /watchlists/12/assets/2", func(w http.ResponseWriter, r *http.Request) {
		removed = r.URL.Path
		respond(http.StatusOK, `{}`)(w, r)
	})
	api := newTestApi(t, mux)
	ctx := context.Background()

	wid, err := api.CreateWatchlist(ctx, 7, "metals")
	require.NoError(t, err)
	assert.Equal(t, int64(12), wid)
	assert.Equal(t, apiModel.CreateWatchlistRequest{Name: "metals", UID: 7}, created)

	lists, err := api.GetWatchlists(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []model.Watchlist{{ID: 11, Name: "tech"}, {ID: 12, Name: "metals"}}, lists)

	require.NoError(t, api.RemoveWatchlistAsset(ctx, 12, 2))
	assert.Equal(t, "/watchlists/12/assets/2", removed)
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	cfg := &config.Config{}
	cfg.API.BackendApi.Url = srv.URL
	cfg.API.Timeout = time.Second
	api := New(cfg)
	srv.Close()

	_, err := api.GetPortfolioValue(context.Background(), 7)

	var netErr *externalApi.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Zero(t, netErr.StatusCode)
	assert.False(t, errors.Is(err, externalApi.ErrBadPayload))
}

func TestRateLimitRespectsContext(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /user/7/portfolio_value", respond(http.StatusOK, `{"total_portfolio_value":10}`))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := &config.Config{}
	cfg.API.BackendApi.Url = srv.URL
	cfg.API.Timeout = time.Second
	cfg.API.RateLimit = 0.01
	cfg.API.RateBurst = 1
	api := New(cfg)

	_, err := api.GetPortfolioValue(context.Background(), 7)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = api.GetPortfolioValue(ctx, 7)
	assert.True(t, externalApi.IsNetworkError(err))
}
