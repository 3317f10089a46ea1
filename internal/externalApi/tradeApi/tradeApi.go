package tradeApi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/KotFed0t/trading_terminal/config"
	"github.com/KotFed0t/trading_terminal/internal/converter/apiConverter"
	"github.com/KotFed0t/trading_terminal/internal/externalApi"
	"github.com/KotFed0t/trading_terminal/internal/model"
	"github.com/KotFed0t/trading_terminal/internal/model/apiModel"
	"github.com/KotFed0t/trading_terminal/utils"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

type TradeApi struct {
	client  *resty.Client
	limiter *rate.Limiter
}

func New(cfg *config.Config) *TradeApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.BackendApi.Url).
		SetHeader("Accept", "application/json")

	// every topic polls on the same tick, the limiter spreads the burst
	limit := rate.Inf
	if cfg.API.RateLimit > 0 {
		limit = rate.Limit(cfg.API.RateLimit)
	}

	return &TradeApi{client: client, limiter: rate.NewLimiter(limit, cfg.API.RateBurst)}
}

func id(v int64) string {
	return strconv.FormatInt(v, 10)
}

// do executes the request and decodes a 2xx body into out (when out != nil).
func (a *TradeApi) do(ctx context.Context, op string, rq *resty.Request, method, url string, out any) error {
	rqID := utils.GetRequestIDFromCtx(ctx)

	slog.Debug("start TradeApi request", slog.String("rqID", rqID), slog.String("op", op))

	if err := a.limiter.Wait(ctx); err != nil {
		slog.Error("rate limit wait failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return &externalApi.NetworkError{Op: op, Err: err}
	}

	resp, err := rq.SetContext(ctx).Execute(method, url)
	if err != nil {
		slog.Error("error while dialing TradeApi", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return &externalApi.NetworkError{Op: op, Err: err}
	}

	if !resp.IsSuccess() {
		netErr := &externalApi.NetworkError{Op: op, StatusCode: resp.StatusCode()}
		errResp := apiModel.ErrorResponse{}
		if json.Unmarshal(resp.Body(), &errResp) == nil {
			netErr.Message = errResp.Error
			if netErr.Message == "" {
				netErr.Message = errResp.Message
			}
		}
		if resp.StatusCode() == http.StatusNotFound {
			netErr.Err = externalApi.ErrNotFound
		}
		slog.Error(
			"TradeApi responded with error status",
			slog.String("rqID", rqID),
			slog.String("op", op),
			slog.Int("status", resp.StatusCode()),
			slog.String("message", netErr.Message),
		)
		return netErr
	}

	if out != nil {
		if err = json.Unmarshal(resp.Body(), out); err != nil {
			slog.Error("can't unmarshall TradeApi response", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return &externalApi.NetworkError{
				Op:         op,
				StatusCode: resp.StatusCode(),
				Err:        fmt.Errorf("%w: %s", externalApi.ErrBadPayload, err),
			}
		}
	}

	slog.Debug("TradeApi request complete", slog.String("rqID", rqID), slog.String("op", op))

	return nil
}

// shapeErr reports a converter failure as a network failure of op.
func shapeErr(ctx context.Context, op string, err error) error {
	slog.Error("can't parse TradeApi payload", slog.String("rqID", utils.GetRequestIDFromCtx(ctx)), slog.String("op", op), slog.String("err", err.Error()))
	if !errors.Is(err, externalApi.ErrBadPayload) {
		err = fmt.Errorf("%w: %s", externalApi.ErrBadPayload, err)
	}
	return &externalApi.NetworkError{Op: op, Err: err}
}

func (a *TradeApi) GetAsset(ctx context.Context, assetID int64) (model.Asset, error) {
	op := "TradeApi.GetAsset"
	raw := apiModel.Asset{}

	err := a.do(ctx, op, a.client.R().SetPathParam("aid", id(assetID)), http.MethodGet, "/assets/{aid}", &raw)
	if err != nil {
		return model.Asset{}, err
	}

	asset, err := apiConverter.ConvertAsset(raw, assetID)
	if err != nil {
		return model.Asset{}, shapeErr(ctx, op, err)
	}
	return asset, nil
}

func (a *TradeApi) GetPriceHistory(ctx context.Context, assetID int64) ([]model.PricePoint, error) {
	op := "TradeApi.GetPriceHistory"
	var raw []apiModel.PricePoint

	err := a.do(ctx, op, a.client.R().SetPathParam("aid", id(assetID)), http.MethodGet, "/assets/prices/{aid}", &raw)
	if err != nil {
		return nil, err
	}

	res, err := apiConverter.ConvertPriceHistory(raw)
	if err != nil {
		return nil, shapeErr(ctx, op, err)
	}
	return res, nil
}

func (a *TradeApi) SearchAssets(ctx context.Context, query string) ([]model.Asset, error) {
	op := "TradeApi.SearchAssets"
	var raw []apiModel.Asset

	err := a.do(ctx, op, a.client.R().SetQueryParam("q", query), http.MethodGet, "/assets/search", &raw)
	if err != nil {
		return nil, err
	}

	res, err := apiConverter.ConvertAssets(raw)
	if err != nil {
		return nil, shapeErr(ctx, op, err)
	}
	return res, nil
}

func (a *TradeApi) PlaceOrder(ctx context.Context, order model.OrderRequest) error {
	op := "TradeApi.PlaceOrder"
	rq := a.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(apiConverter.PlaceOrderRequest(order))

	return a.do(ctx, op, rq, http.MethodPost, "/place_order", nil)
}

func (a *TradeApi) GetOrders(ctx context.Context, userID int64) ([]model.Order, error) {
	op := "TradeApi.GetOrders"
	var raw []apiModel.Order

	err := a.do(ctx, op, a.client.R().SetPathParam("uid", id(userID)), http.MethodGet, "/orders/{uid}", &raw)
	if err != nil {
		return nil, err
	}

	res, err := apiConverter.ConvertOrders(raw, userID)
	if err != nil {
		return nil, shapeErr(ctx, op, err)
	}
	return res, nil
}

func (a *TradeApi) DeleteOrder(ctx context.Context, orderID int64) error {
	op := "TradeApi.DeleteOrder"
	return a.do(ctx, op, a.client.R().SetPathParam("oid", id(orderID)), http.MethodDelete, "/orders/{oid}", nil)
}

func (a *TradeApi) GetUser(ctx context.Context, userID int64) (model.User, error) {
	op := "TradeApi.GetUser"
	raw := apiModel.User{}

	err := a.do(ctx, op, a.client.R().SetPathParam("uid", id(userID)), http.MethodGet, "/user/{uid}", &raw)
	if err != nil {
		return model.User{}, err
	}

	user, err := apiConverter.ConvertUser(raw)
	if err != nil {
		return model.User{}, shapeErr(ctx, op, err)
	}
	return user, nil
}

func (a *TradeApi) GetFundsStatus(ctx context.Context, userID int64) (model.FundsStatus, error) {
	op := "TradeApi.GetFundsStatus"
	raw := apiModel.FundsStatus{}

	err := a.do(ctx, op, a.client.R().SetPathParam("uid", id(userID)), http.MethodGet, "/user/{uid}/funds_status", &raw)
	if err != nil {
		return model.FundsStatus{}, err
	}

	status, err := apiConverter.ConvertFundsStatus(raw)
	if err != nil {
		return model.FundsStatus{}, shapeErr(ctx, op, err)
	}
	return status, nil
}

// ManageFunds adds or withdraws funds and returns the updated balances.
func (a *TradeApi) ManageFunds(ctx context.Context, userID int64, action model.FundsAction) (equity, commodity decimal.Decimal, err error) {
	op := "TradeApi.ManageFunds"
	raw := apiModel.FundsResponse{}
	rq := a.client.R().
		SetPathParam("uid", id(userID)).
		SetHeader("Content-Type", "application/json").
		SetBody(apiConverter.FundsActionRequest(action))

	err = a.do(ctx, op, rq, http.MethodPost, "/user/{uid}/funds", &raw)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	if raw.EquityFunds == nil || raw.CommodityFunds == nil {
		return decimal.Zero, decimal.Zero, shapeErr(ctx, op, errors.New("missing funds balances"))
	}
	return *raw.EquityFunds, *raw.CommodityFunds, nil
}

func (a *TradeApi) GetPortfolio(ctx context.Context, userID int64) ([]model.Holding, error) {
	op := "TradeApi.GetPortfolio"
	var raw []apiModel.Holding

	err := a.do(ctx, op, a.client.R().SetPathParam("uid", id(userID)), http.MethodGet, "/portfolio/{uid}", &raw)
	if err != nil {
		return nil, err
	}

	res, err := apiConverter.ConvertHoldings(raw)
	if err != nil {
		return nil, shapeErr(ctx, op, err)
	}
	return res, nil
}

func (a *TradeApi) GetPortfolioValue(ctx context.Context, userID int64) (decimal.Decimal, error) {
	op := "TradeApi.GetPortfolioValue"
	raw := apiModel.PortfolioValue{}

	err := a.do(ctx, op, a.client.R().SetPathParam("uid", id(userID)), http.MethodGet, "/user/{uid}/portfolio_value", &raw)
	if err != nil {
		return decimal.Zero, err
	}

	value, err := apiConverter.ConvertPortfolioValue(raw)
	if err != nil {
		return decimal.Zero, shapeErr(ctx, op, err)
	}
	return value, nil
}

func (a *TradeApi) GetPortfolioSummary(ctx context.Context, userID int64) (model.PortfolioSummary, error) {
	op := "TradeApi.GetPortfolioSummary"
	raw := apiModel.PortfolioSummary{}

	err := a.do(ctx, op, a.client.R().SetPathParam("uid", id(userID)), http.MethodGet, "/portfolio/summary/{uid}", &raw)
	if err != nil {
		return model.PortfolioSummary{}, err
	}

	summary, err := apiConverter.ConvertPortfolioSummary(raw)
	if err != nil {
		return model.PortfolioSummary{}, shapeErr(ctx, op, err)
	}
	return summary, nil
}

func (a *TradeApi) GetPortfolioHistory(ctx context.Context, userID int64) ([]model.PortfolioSnapshot, error) {
	op := "TradeApi.GetPortfolioHistory"
	var raw []apiModel.PortfolioSnapshot

	err := a.do(ctx, op, a.client.R().SetPathParam("uid", id(userID)), http.MethodGet, "/user/{uid}/portfolio_history", &raw)
	if err != nil {
		return nil, err
	}

	res, err := apiConverter.ConvertPortfolioHistory(raw)
	if err != nil {
		return nil, shapeErr(ctx, op, err)
	}
	return res, nil
}

func (a *TradeApi) GetTotalValues(ctx context.Context, userID int64) (model.Allocation, error) {
	op := "TradeApi.GetTotalValues"
	raw := apiModel.TotalValues{}

	err := a.do(ctx, op, a.client.R().SetPathParam("uid", id(userID)), http.MethodGet, "/user/{uid}/total_values", &raw)
	if err != nil {
		return model.Allocation{}, err
	}

	res, err := apiConverter.ConvertTotalValues(raw)
	if err != nil {
		return model.Allocation{}, shapeErr(ctx, op, err)
	}
	return res, nil
}

func (a *TradeApi) GetWatchlists(ctx context.Context, userID int64) ([]model.Watchlist, error) {
	op := "TradeApi.GetWatchlists"
	var raw []apiModel.Watchlist

	err := a.do(ctx, op, a.client.R().SetPathParam("uid", id(userID)), http.MethodGet, "/watchlists/{uid}", &raw)
	if err != nil {
		return nil, err
	}

	res, err := apiConverter.ConvertWatchlists(raw)
	if err != nil {
		return nil, shapeErr(ctx, op, err)
	}
	return res, nil
}

func (a *TradeApi) GetWatchlistAssets(ctx context.Context, watchlistID int64) ([]model.WatchlistAsset, error) {
	op := "TradeApi.GetWatchlistAssets"
	var raw []apiModel.WatchlistAsset

	err := a.do(ctx, op, a.client.R().SetPathParam("wid", id(watchlistID)), http.MethodGet, "/watchlists/{wid}/assets", &raw)
	if err != nil {
		return nil, err
	}

	res, err := apiConverter.ConvertWatchlistAssets(raw)
	if err != nil {
		return nil, shapeErr(ctx, op, err)
	}
	return res, nil
}

// CreateWatchlist returns the new watchlist id, or 0 when the backend does not report it.
func (a *TradeApi) CreateWatchlist(ctx context.Context, userID int64, name string) (int64, error) {
	op := "TradeApi.CreateWatchlist"
	raw := apiModel.CreateWatchlistResponse{}
	rq := a.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(apiModel.CreateWatchlistRequest{Name: name, UID: userID})

	err := a.do(ctx, op, rq, http.MethodPost, "/watchlists", &raw)
	if err != nil {
		return 0, err
	}
	return raw.Wid, nil
}

func (a *TradeApi) DeleteWatchlist(ctx context.Context, watchlistID int64) error {
	op := "TradeApi.DeleteWatchlist"
	return a.do(ctx, op, a.client.R().SetPathParam("wid", id(watchlistID)), http.MethodDelete, "/watchlists/{wid}", nil)
}

func (a *TradeApi) AddWatchlistAsset(ctx context.Context, watchlistID, assetID int64) error {
	op := "TradeApi.AddWatchlistAsset"
	rq := a.client.R().
		SetPathParam("wid", id(watchlistID)).
		SetHeader("Content-Type", "application/json").
		SetBody(apiModel.AddWatchlistAssetRequest{Aid: assetID})

	return a.do(ctx, op, rq, http.MethodPost, "/watchlists/{wid}/assets", nil)
}

func (a *TradeApi) RemoveWatchlistAsset(ctx context.Context, watchlistID, assetID int64) error {
	op := "TradeApi.RemoveWatchlistAsset"
	rq := a.client.R().
		SetPathParam("wid", id(watchlistID)).
		SetPathParam("aid", id(assetID))

	return a.do(ctx, op, rq, http.MethodDelete, "/watchlists/{wid}/assets/{aid}", nil)
}
