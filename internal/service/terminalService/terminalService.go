package terminalService

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/KotFed0t/trading_terminal/internal/externalApi"
	"github.com/KotFed0t/trading_terminal/internal/fundsAggregator"
	"github.com/KotFed0t/trading_terminal/internal/model"
	"github.com/KotFed0t/trading_terminal/internal/scheduler"
	"github.com/KotFed0t/trading_terminal/internal/service"
	"github.com/KotFed0t/trading_terminal/utils"
	"github.com/shopspring/decimal"
)

const (
	TopicUser            = "account.user"
	TopicFunds           = "account.funds"
	TopicValue           = "account.value"
	TopicSummary         = "account.summary"
	TopicHistory         = "account.history"
	TopicHoldings        = "account.holdings"
	TopicAllocation      = "account.allocation"
	TopicWatchlists      = "account.watchlists"
	TopicAssetPrice      = "asset.price"
	TopicAssetHistory    = "asset.history"
	TopicSearch          = "search"
	TopicWatchlistAssets = "watchlist.assets"
)

var allTopics = []string{
	TopicUser, TopicFunds, TopicValue, TopicSummary, TopicHistory, TopicHoldings,
	TopicAllocation, TopicWatchlists, TopicAssetPrice, TopicAssetHistory, TopicSearch,
	TopicWatchlistAssets,
}

// topics refreshed after a write that moves money or positions
var fundsTopics = []string{TopicUser, TopicFunds, TopicValue, TopicSummary, TopicHoldings, TopicAllocation, TopicHistory}

type TradeApi interface {
	GetAsset(ctx context.Context, assetID int64) (model.Asset, error)
	GetPriceHistory(ctx context.Context, assetID int64) ([]model.PricePoint, error)
	SearchAssets(ctx context.Context, query string) ([]model.Asset, error)
	PlaceOrder(ctx context.Context, order model.OrderRequest) error
	GetOrders(ctx context.Context, userID int64) ([]model.Order, error)
	DeleteOrder(ctx context.Context, orderID int64) error
	GetUser(ctx context.Context, userID int64) (model.User, error)
	GetFundsStatus(ctx context.Context, userID int64) (model.FundsStatus, error)
	ManageFunds(ctx context.Context, userID int64, action model.FundsAction) (equity, commodity decimal.Decimal, err error)
	GetPortfolio(ctx context.Context, userID int64) ([]model.Holding, error)
	GetPortfolioValue(ctx context.Context, userID int64) (decimal.Decimal, error)
	GetPortfolioSummary(ctx context.Context, userID int64) (model.PortfolioSummary, error)
	GetPortfolioHistory(ctx context.Context, userID int64) ([]model.PortfolioSnapshot, error)
	GetTotalValues(ctx context.Context, userID int64) (model.Allocation, error)
	GetWatchlists(ctx context.Context, userID int64) ([]model.Watchlist, error)
	GetWatchlistAssets(ctx context.Context, watchlistID int64) ([]model.WatchlistAsset, error)
	CreateWatchlist(ctx context.Context, userID int64, name string) (int64, error)
	DeleteWatchlist(ctx context.Context, watchlistID int64) error
	AddWatchlistAsset(ctx context.Context, watchlistID, assetID int64) error
	RemoveWatchlistAsset(ctx context.Context, watchlistID, assetID int64) error
}

type Scheduler interface {
	Subscribe(name, key string, fetch scheduler.FetchFn) (*scheduler.Subscription, error)
	Unsubscribe(name string)
	Refresh(name string)
	RefreshAll()
	Get(name string) (scheduler.Snapshot, bool)
	OnUpdate(l scheduler.Listener)
}

type OrderChecker interface {
	Admit(order model.OrderRequest, price decimal.NullDecimal) error
}

type ReportGenerator interface {
	GeneratePortfolioReport(ctx context.Context, report model.PortfolioReport) (*bytes.Buffer, error)
}

type ChartGenerator interface {
	PortfolioHistoryChart(ctx context.Context, history []model.PortfolioSnapshot, currency string) (*bytes.Buffer, error)
}

type TerminalService struct {
	api        TradeApi
	sched      Scheduler
	checker    OrderChecker
	aggregator *fundsAggregator.Aggregator
	reportGen  ReportGenerator
	chartGen   ChartGenerator
	currency   string

	mu               sync.Mutex
	session          model.Session
	orders           []model.Order
	pendingWatchlist string
}

func New(
	api TradeApi,
	sched Scheduler,
	checker OrderChecker,
	aggregator *fundsAggregator.Aggregator,
	reportGen ReportGenerator,
	chartGen ChartGenerator,
	currency string,
) *TerminalService {
	s := &TerminalService{
		api:        api,
		sched:      sched,
		checker:    checker,
		aggregator: aggregator,
		reportGen:  reportGen,
		chartGen:   chartGen,
		currency:   currency,
	}
	sched.OnUpdate(s.onSnapshot)
	return s
}

func key(v int64) string {
	return strconv.FormatInt(v, 10)
}

// Session returns a copy of the current application context.
func (s *TerminalService) Session() model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

func (s *TerminalService) Currency() string {
	return s.currency
}

// OnUpdate forwards every replaced topic snapshot to fn.
func (s *TerminalService) OnUpdate(fn func(scheduler.Snapshot)) {
	s.sched.OnUpdate(fn)
}

// SetAccount switches every account topic to uid. Fetches still running for
// the previous account are cancelled and their results dropped.
func (s *TerminalService) SetAccount(ctx context.Context, uid int64) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TerminalService.SetAccount"

	slog.Debug("SetAccount start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("uid", uid))
	defer func() {
		slog.Debug("SetAccount finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("uid", uid))
	}()

	if uid <= 0 {
		return service.ErrNoAccount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session.UserID != uid {
		s.session.UserID = uid
		s.session.SelectedWatchlistID = 0
		s.orders = nil
		s.pendingWatchlist = ""
		s.sched.Unsubscribe(TopicWatchlistAssets)
	}

	k := key(uid)
	for _, t := range s.accountTopics(uid) {
		if _, err := s.sched.Subscribe(t.name, k, t.fetch); err != nil {
			slog.Error("can't subscribe account topic", slog.String("rqID", rqID), slog.String("op", op), slog.String("topic", t.name), slog.String("err", err.Error()))
			return err
		}
	}

	return nil
}

type topicDef struct {
	name  string
	fetch scheduler.FetchFn
}

func (s *TerminalService) accountTopics(uid int64) []topicDef {
	return []topicDef{
		{TopicUser, func(ctx context.Context) (any, error) { return s.api.GetUser(ctx, uid) }},
		{TopicFunds, func(ctx context.Context) (any, error) { return s.api.GetFundsStatus(ctx, uid) }},
		{TopicValue, func(ctx context.Context) (any, error) { return s.api.GetPortfolioValue(ctx, uid) }},
		{TopicSummary, func(ctx context.Context) (any, error) { return s.api.GetPortfolioSummary(ctx, uid) }},
		{TopicHistory, func(ctx context.Context) (any, error) { return s.api.GetPortfolioHistory(ctx, uid) }},
		{TopicHoldings, func(ctx context.Context) (any, error) { return s.api.GetPortfolio(ctx, uid) }},
		{TopicAllocation, func(ctx context.Context) (any, error) { return s.api.GetTotalValues(ctx, uid) }},
		{TopicWatchlists, func(ctx context.Context) (any, error) { return s.api.GetWatchlists(ctx, uid) }},
	}
}

// SelectAsset loads the asset once to confirm it exists, then keeps its
// price and history refreshed.
func (s *TerminalService) SelectAsset(ctx context.Context, aid int64) (model.Asset, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TerminalService.SelectAsset"

	slog.Debug("SelectAsset start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("aid", aid))
	defer func() {
		slog.Debug("SelectAsset finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("aid", aid))
	}()

	if aid <= 0 {
		return model.Asset{}, service.ErrNotFound
	}

	asset, err := s.api.GetAsset(ctx, aid)
	if err != nil {
		if errors.Is(err, externalApi.ErrNotFound) {
			slog.Warn("asset not found", slog.String("rqID", rqID), slog.String("op", op))
			return model.Asset{}, service.ErrNotFound
		}
		slog.Error("got error from api.GetAsset", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Asset{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(aid)
	_, err = s.sched.Subscribe(TopicAssetPrice, k, func(ctx context.Context) (any, error) {
		return s.api.GetAsset(ctx, aid)
	})
	if err != nil {
		return model.Asset{}, err
	}
	_, err = s.sched.Subscribe(TopicAssetHistory, k, func(ctx context.Context) (any, error) {
		return s.api.GetPriceHistory(ctx, aid)
	})
	if err != nil {
		return model.Asset{}, err
	}

	s.session.SelectedAssetID = aid
	return asset, nil
}

// Search arms the search topic with query. Every new query supersedes the
// previous one; an empty query clears the results.
func (s *TerminalService) Search(ctx context.Context, query string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TerminalService.Search"
	query = strings.TrimSpace(query)

	slog.Debug("Search start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		slog.Debug("Search finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.session.SearchQuery = query
	if query == "" {
		s.sched.Unsubscribe(TopicSearch)
		return nil
	}

	_, err := s.sched.Subscribe(TopicSearch, query, func(ctx context.Context) (any, error) {
		return s.api.SearchAssets(ctx, query)
	})
	return err
}

// SelectWatchlist switches the selected watchlist. wid must belong to the
// loaded watchlist set.
func (s *TerminalService) SelectWatchlist(ctx context.Context, wid int64) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TerminalService.SelectWatchlist"

	slog.Debug("SelectWatchlist start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("wid", wid))
	defer func() {
		slog.Debug("SelectWatchlist finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("wid", wid))
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session.UserID == 0 {
		return service.ErrNoAccount
	}

	lists, _ := s.watchlists()
	if !containsWatchlist(lists, wid) {
		return service.ErrNotFound
	}

	return s.selectWatchlistLocked(wid)
}

func (s *TerminalService) selectWatchlistLocked(wid int64) error {
	if wid == 0 {
		s.session.SelectedWatchlistID = 0
		s.sched.Unsubscribe(TopicWatchlistAssets)
		return nil
	}

	_, err := s.sched.Subscribe(TopicWatchlistAssets, key(wid), func(ctx context.Context) (any, error) {
		return s.api.GetWatchlistAssets(ctx, wid)
	})
	if err != nil {
		return err
	}
	s.session.SelectedWatchlistID = wid
	return nil
}

func containsWatchlist(lists []model.Watchlist, wid int64) bool {
	for _, w := range lists {
		if w.ID == wid {
			return true
		}
	}
	return false
}

func (s *TerminalService) watchlists() ([]model.Watchlist, bool) {
	snap, ok := s.sched.Get(TopicWatchlists)
	if !ok || !snap.Loaded {
		return nil, false
	}
	return scheduler.Value[[]model.Watchlist](snap)
}

// onSnapshot keeps a watchlist selected while the set is non-empty.
func (s *TerminalService) onSnapshot(snap scheduler.Snapshot) {
	if snap.Name != TopicWatchlists {
		return
	}
	lists, ok := scheduler.Value[[]model.Watchlist](snap)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if snap.Key != key(s.session.UserID) {
		return
	}
	s.reconcileWatchlistLocked(lists)
}

func (s *TerminalService) reconcileWatchlistLocked(lists []model.Watchlist) {
	next := int64(0)
	if s.pendingWatchlist != "" {
		for _, w := range lists {
			if w.Name == s.pendingWatchlist && w.ID > next {
				next = w.ID
			}
		}
		if next != 0 {
			s.pendingWatchlist = ""
		}
	}

	if next == 0 {
		if containsWatchlist(lists, s.session.SelectedWatchlistID) {
			return
		}
		if len(lists) > 0 {
			next = lists[0].ID
		}
	}
	if err := s.selectWatchlistLocked(next); err != nil {
		slog.Error("can't select watchlist", slog.Int64("wid", next), slog.String("err", err.Error()))
	}
}

// Foreground refreshes every active topic once, as on regaining visibility.
func (s *TerminalService) Foreground(ctx context.Context) {
	slog.Debug("Foreground", slog.String("rqID", utils.GetRequestIDFromCtx(ctx)), slog.String("op", "TerminalService.Foreground"))
	s.sched.RefreshAll()
}

// Close unsubscribes every topic.
func (s *TerminalService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range allTopics {
		s.sched.Unsubscribe(name)
	}
}

func (s *TerminalService) refresh(names ...string) {
	for _, name := range names {
		s.sched.Refresh(name)
	}
}

func (s *TerminalService) now() time.Time {
	return time.Now()
}
