package terminalService

import (
	"context"
	"log/slog"
	"slices"

	"github.com/KotFed0t/trading_terminal/internal/converter/apiConverter"
	"github.com/KotFed0t/trading_terminal/internal/fundsAggregator"
	"github.com/KotFed0t/trading_terminal/internal/model"
	"github.com/KotFed0t/trading_terminal/internal/scheduler"
	"github.com/KotFed0t/trading_terminal/internal/service"
	"github.com/KotFed0t/trading_terminal/internal/valuation"
	"github.com/KotFed0t/trading_terminal/utils"
	"github.com/shopspring/decimal"
)

type PortfolioView struct {
	Rows    []model.HoldingValuation
	Summary valuation.Summary
	Total   decimal.Decimal
	History []model.PortfolioSnapshot
	Loaded  bool
	Warning *service.StaleDataWarning
}

type AssetView struct {
	Asset          model.Asset
	History        []model.PricePoint
	Loaded         bool
	PriceWarning   *service.StaleDataWarning
	HistoryWarning *service.StaleDataWarning
}

type SearchView struct {
	Query   string
	Results []model.Asset
	Loaded  bool
	Warning *service.StaleDataWarning
}

type WatchlistsView struct {
	Watchlists    []model.Watchlist
	SelectedID    int64
	Assets        []model.WatchlistAsset
	Loaded        bool
	AssetsLoaded  bool
	Warning       *service.StaleDataWarning
	AssetsWarning *service.StaleDataWarning
}

// fetched turns a topic snapshot into an aggregator input.
func fetched[T any](sched Scheduler, name string) fundsAggregator.Fetched[T] {
	snap, ok := sched.Get(name)
	if !ok {
		return fundsAggregator.Fetched[T]{}
	}
	v, hasValue := scheduler.Value[T](snap)
	hasValue = hasValue && snap.Loaded
	if snap.Warning != nil {
		if hasValue {
			return fundsAggregator.Stale(v, snap.Warning.Err)
		}
		return fundsAggregator.Failed[T](snap.Warning.Err)
	}
	if !hasValue {
		return fundsAggregator.Fetched[T]{}
	}
	return fundsAggregator.Ok(v)
}

// Home merges the account topics into the funds record.
func (s *TerminalService) Home() (model.FundsRecord, error) {
	uid := s.Session().UserID
	if uid == 0 {
		return model.FundsRecord{}, service.ErrNoAccount
	}

	return s.aggregator.Merge(uid, fundsAggregator.Inputs{
		User:       fetched[model.User](s.sched, TopicUser),
		Status:     fetched[model.FundsStatus](s.sched, TopicFunds),
		Value:      fetched[decimal.Decimal](s.sched, TopicValue),
		Summary:    fetched[model.PortfolioSummary](s.sched, TopicSummary),
		Allocation: fetched[model.Allocation](s.sched, TopicAllocation),
	}), nil
}

// User returns the cached profile of the current account.
func (s *TerminalService) User() (model.User, bool) {
	snap, ok := s.sched.Get(TopicUser)
	if !ok {
		return model.User{}, false
	}
	return scheduler.Value[model.User](snap)
}

// Portfolio values every cached holding. Rows with an unknown price stay in
// the view with Available=false.
func (s *TerminalService) Portfolio() (PortfolioView, error) {
	if s.Session().UserID == 0 {
		return PortfolioView{}, service.ErrNoAccount
	}

	view := PortfolioView{}
	snap, ok := s.sched.Get(TopicHoldings)
	if ok {
		view.Loaded = snap.Loaded
		view.Warning = snap.Warning
		holdings, _ := scheduler.Value[[]model.Holding](snap)
		view.Rows = make([]model.HoldingValuation, 0, len(holdings))
		for _, h := range holdings {
			view.Rows = append(view.Rows, valuation.Evaluate(h))
		}
		view.Summary = valuation.Summarize(holdings)
		view.Total = valuation.TotalValue(holdings)
	}

	if hSnap, ok := s.sched.Get(TopicHistory); ok {
		view.History, _ = scheduler.Value[[]model.PortfolioSnapshot](hSnap)
	}

	return view, nil
}

func (s *TerminalService) Asset() (AssetView, error) {
	if s.Session().SelectedAssetID == 0 {
		return AssetView{}, service.ErrNoAssetSelected
	}

	view := AssetView{}
	if snap, ok := s.sched.Get(TopicAssetPrice); ok {
		view.Asset, _ = scheduler.Value[model.Asset](snap)
		view.Loaded = snap.Loaded
		view.PriceWarning = snap.Warning
	}
	if snap, ok := s.sched.Get(TopicAssetHistory); ok {
		view.History, _ = scheduler.Value[[]model.PricePoint](snap)
		view.HistoryWarning = snap.Warning
	}
	return view, nil
}

func (s *TerminalService) SearchResults() SearchView {
	view := SearchView{Query: s.Session().SearchQuery}
	if snap, ok := s.sched.Get(TopicSearch); ok {
		view.Results, _ = scheduler.Value[[]model.Asset](snap)
		view.Loaded = snap.Loaded
		view.Warning = snap.Warning
	}
	return view
}

func (s *TerminalService) Watchlists() (WatchlistsView, error) {
	sess := s.Session()
	if sess.UserID == 0 {
		return WatchlistsView{}, service.ErrNoAccount
	}

	view := WatchlistsView{SelectedID: sess.SelectedWatchlistID}
	if snap, ok := s.sched.Get(TopicWatchlists); ok {
		view.Watchlists, _ = scheduler.Value[[]model.Watchlist](snap)
		view.Loaded = snap.Loaded
		view.Warning = snap.Warning
	}
	if snap, ok := s.sched.Get(TopicWatchlistAssets); ok {
		view.Assets, _ = scheduler.Value[[]model.WatchlistAsset](snap)
		view.AssetsLoaded = snap.Loaded
		view.AssetsWarning = snap.Warning
	}
	return view, nil
}

// Orders fetches the order book of the current account.
func (s *TerminalService) Orders(ctx context.Context) (model.OrdersBook, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TerminalService.Orders"

	slog.Debug("Orders start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("Orders finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	uid := s.Session().UserID
	if uid == 0 {
		return model.OrdersBook{}, service.ErrNoAccount
	}

	orders, err := s.api.GetOrders(ctx, uid)
	if err != nil {
		slog.Error("got error from api.GetOrders", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.OrdersBook{}, err
	}

	s.mu.Lock()
	if s.session.UserID == uid {
		s.orders = slices.Clone(orders)
	}
	s.mu.Unlock()

	return apiConverter.SplitOrders(orders), nil
}
