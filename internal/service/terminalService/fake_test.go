package terminalService

import (
	"bytes"
	"context"
	"sync"

	"github.com/KotFed0t/trading_terminal/internal/externalApi"
	"github.com/KotFed0t/trading_terminal/internal/model"
	"github.com/shopspring/decimal"
)

// fakeApi serves canned data per account and records writes.
type fakeApi struct {
	mu sync.Mutex

	assets      map[int64]model.Asset
	users       map[int64]model.User
	status      map[int64]model.FundsStatus
	values      map[int64]decimal.Decimal
	summaries   map[int64]model.PortfolioSummary
	holdings    map[int64][]model.Holding
	history     map[int64][]model.PortfolioSnapshot
	orders      map[int64][]model.Order
	watchlists  map[int64][]model.Watchlist
	wlAssets    map[int64][]model.WatchlistAsset
	nextWid     int64
	reportWid   bool
	failStatus  error
	failValue   error
	placeErr    error
	calls       map[string]int
	placed      []model.OrderRequest
	deleted     []int64
	fundActions []model.FundsAction
}

func newFakeApi() *fakeApi {
	return &fakeApi{
		assets:     map[int64]model.Asset{},
		users:      map[int64]model.User{},
		status:     map[int64]model.FundsStatus{},
		values:     map[int64]decimal.Decimal{},
		summaries:  map[int64]model.PortfolioSummary{},
		holdings:   map[int64][]model.Holding{},
		history:    map[int64][]model.PortfolioSnapshot{},
		orders:     map[int64][]model.Order{},
		watchlists: map[int64][]model.Watchlist{},
		wlAssets:   map[int64][]model.WatchlistAsset{},
		nextWid:    100,
		reportWid:  true,
		calls:      map[string]int{},
	}
}

func (f *fakeApi) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeApi) hit(name string) {
	f.calls[name]++
}

func (f *fakeApi) set(fn func(f *fakeApi)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func notFound(op string) error {
	return &externalApi.NetworkError{Op: op, StatusCode: 404, Err: externalApi.ErrNotFound}
}

func (f *fakeApi) GetAsset(ctx context.Context, assetID int64) (model.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hit("GetAsset")
	a, ok := f.assets[assetID]
	if !ok {
		return model.Asset{}, notFound("GetAsset")
	}
	return a, nil
}

func (f *fakeApi) GetPriceHistory(ctx context.Context, assetID int64) ([]model.PricePoint, error) {
	return []model.PricePoint{{Date: "2024-01-01", ClosePrice: decimal.NewFromInt(10)}}, nil
}

func (f *fakeApi) SearchAssets(ctx context.Context, query string) ([]model.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hit("SearchAssets")
	var res []model.Asset
	for _, a := range f.assets {
		if bytes.Contains([]byte(a.Name), []byte(query)) {
			res = append(res, a)
		}
	}
	return res, nil
}

func (f *fakeApi) PlaceOrder(ctx context.Context, order model.OrderRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hit("PlaceOrder")
	if f.placeErr != nil {
		return f.placeErr
	}
	f.placed = append(f.placed, order)
	return nil
}

func (f *fakeApi) GetOrders(ctx context.Context, userID int64) ([]model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hit("GetOrders")
	return append([]model.Order(nil), f.orders[userID]...), nil
}

func (f *fakeApi) DeleteOrder(ctx context.Context, orderID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hit("DeleteOrder")
	f.deleted = append(f.deleted, orderID)
	return nil
}

func (f *fakeApi) GetUser(ctx context.Context, userID int64) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hit("GetUser")
	return f.users[userID], nil
}

func (f *fakeApi) GetFundsStatus(ctx context.Context, userID int64) (model.FundsStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hit("GetFundsStatus")
	if f.failStatus != nil {
		return model.FundsStatus{}, f.failStatus
	}
	return f.status[userID], nil
}

func (f *fakeApi) ManageFunds(ctx context.Context, userID int64, action model.FundsAction) (decimal.Decimal, decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hit("ManageFunds")
	f.fundActions = append(f.fundActions, action)
	u := f.users[userID]
	if action.Type == model.Equity {
		u.EquityFunds = u.EquityFunds.Add(action.Amount)
	} else {
		u.CommodityFunds = u.CommodityFunds.Add(action.Amount)
	}
	f.users[userID] = u
	return u.EquityFunds, u.CommodityFunds, nil
}

func (f *fakeApi) GetPortfolio(ctx context.Context, userID int64) ([]model.Holding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hit("GetPortfolio")
	return append([]model.Holding(nil), f.holdings[userID]...), nil
}

func (f *fakeApi) GetPortfolioValue(ctx context.Context, userID int64) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hit("GetPortfolioValue")
	if f.failValue != nil {
		return decimal.Zero, f.failValue
	}
	return f.values[userID], nil
}

func (f *fakeApi) GetPortfolioSummary(ctx context.Context, userID int64) (model.PortfolioSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.summaries[userID], nil
}

func (f *fakeApi) GetPortfolioHistory(ctx context.Context, userID int64) ([]model.PortfolioSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.PortfolioSnapshot(nil), f.history[userID]...), nil
}

func (f *fakeApi) GetTotalValues(ctx context.Context, userID int64) (model.Allocation, error) {
	return model.Allocation{}, nil
}

func (f *fakeApi) GetWatchlists(ctx context.Context, userID int64) ([]model.Watchlist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hit("GetWatchlists")
	return append([]model.Watchlist(nil), f.watchlists[userID]...), nil
}

func (f *fakeApi) GetWatchlistAssets(ctx context.Context, watchlistID int64) ([]model.WatchlistAsset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hit("GetWatchlistAssets")
	return append([]model.WatchlistAsset(nil), f.wlAssets[watchlistID]...), nil
}

func (f *fakeApi) CreateWatchlist(ctx context.Context, userID int64, name string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextWid++
	f.watchlists[userID] = append(f.watchlists[userID], model.Watchlist{ID: f.nextWid, Name: name})
	if !f.reportWid {
		return 0, nil
	}
	return f.nextWid, nil
}

func (f *fakeApi) DeleteWatchlist(ctx context.Context, watchlistID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for uid, lists := range f.watchlists {
		for i, w := range lists {
			if w.ID == watchlistID {
				f.watchlists[uid] = append(lists[:i:i], lists[i+1:]...)
				return nil
			}
		}
	}
	return notFound("DeleteWatchlist")
}

func (f *fakeApi) AddWatchlistAsset(ctx context.Context, watchlistID, assetID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.assets[assetID]
	f.wlAssets[watchlistID] = append(f.wlAssets[watchlistID], model.WatchlistAsset{AssetID: assetID, Name: a.Name, CurrentPrice: a.Price})
	return nil
}

func (f *fakeApi) RemoveWatchlistAsset(ctx context.Context, watchlistID, assetID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.wlAssets[watchlistID]
	for i, a := range list {
		if a.AssetID == assetID {
			f.wlAssets[watchlistID] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return notFound("RemoveWatchlistAsset")
}

type fakeReport struct {
	mu     sync.Mutex
	got    []model.PortfolioReport
	charts [][]model.PortfolioSnapshot
}

func (r *fakeReport) GeneratePortfolioReport(ctx context.Context, report model.PortfolioReport) (*bytes.Buffer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, report)
	return bytes.NewBufferString("xlsx"), nil
}

func (r *fakeReport) PortfolioHistoryChart(ctx context.Context, history []model.PortfolioSnapshot, currency string) (*bytes.Buffer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.charts = append(r.charts, history)
	return bytes.NewBufferString("png"), nil
}
