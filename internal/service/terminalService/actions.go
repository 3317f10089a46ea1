package terminalService

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/KotFed0t/trading_terminal/internal/externalApi"
	"github.com/KotFed0t/trading_terminal/internal/model"
	"github.com/KotFed0t/trading_terminal/internal/scheduler"
	"github.com/KotFed0t/trading_terminal/internal/service"
	"github.com/KotFed0t/trading_terminal/utils"
	"github.com/shopspring/decimal"
)

// PlaceOrder admits an order for the selected asset against its cached
// price and sends it to the backend. Backend rejections are returned as is.
func (s *TerminalService) PlaceOrder(ctx context.Context, side model.OrderSide, qty int64) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TerminalService.PlaceOrder"

	slog.Debug("PlaceOrder start", slog.String("rqID", rqID), slog.String("op", op), slog.String("side", string(side)), slog.Int64("qty", qty))
	defer func() {
		slog.Debug("PlaceOrder finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	sess := s.Session()
	if sess.UserID == 0 {
		return service.ErrNoAccount
	}
	if sess.SelectedAssetID == 0 {
		return service.ErrNoAssetSelected
	}

	price := decimal.NullDecimal{}
	if snap, ok := s.sched.Get(TopicAssetPrice); ok && snap.Loaded {
		if asset, ok := scheduler.Value[model.Asset](snap); ok && asset.ID == sess.SelectedAssetID {
			price = asset.Price
		}
	}

	order := model.OrderRequest{
		UserID:   sess.UserID,
		AssetID:  sess.SelectedAssetID,
		Quantity: qty,
		Side:     side,
	}

	if err := s.checker.Admit(order, price); err != nil {
		slog.Info("order not admitted", slog.String("rqID", rqID), slog.String("op", op), slog.String("reason", err.Error()))
		return err
	}

	if err := s.api.PlaceOrder(ctx, order); err != nil {
		slog.Error("got error from api.PlaceOrder", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	s.refresh(fundsTopics...)
	return nil
}

// DeleteOrder cancels a pending order. Completed orders are refused without
// contacting the backend.
func (s *TerminalService) DeleteOrder(ctx context.Context, oid int64) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TerminalService.DeleteOrder"

	slog.Debug("DeleteOrder start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("oid", oid))
	defer func() {
		slog.Debug("DeleteOrder finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("oid", oid))
	}()

	if s.Session().UserID == 0 {
		return service.ErrNoAccount
	}

	order, ok := s.cachedOrder(oid)
	if !ok {
		if _, err := s.Orders(ctx); err != nil {
			return err
		}
		if order, ok = s.cachedOrder(oid); !ok {
			return service.ErrNotFound
		}
	}

	if order.Status == model.OrderCompleted {
		slog.Info("completed order can't be deleted", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("oid", oid))
		return service.ErrOrderCompleted
	}

	if err := s.api.DeleteOrder(ctx, oid); err != nil {
		if errors.Is(err, externalApi.ErrNotFound) {
			s.forgetOrder(oid)
			return service.ErrNotFound
		}
		slog.Error("got error from api.DeleteOrder", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	s.forgetOrder(oid)
	s.refresh(fundsTopics...)
	return nil
}

func (s *TerminalService) cachedOrder(oid int64) (model.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.ID == oid {
			return o, true
		}
	}
	return model.Order{}, false
}

func (s *TerminalService) forgetOrder(oid int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, o := range s.orders {
		if o.ID == oid {
			s.orders = append(s.orders[:i], s.orders[i+1:]...)
			return
		}
	}
}

// ManageFunds adds or withdraws funds and returns the new balances.
func (s *TerminalService) ManageFunds(ctx context.Context, action model.FundsAction) (equity, commodity decimal.Decimal, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TerminalService.ManageFunds"

	slog.Debug("ManageFunds start", slog.String("rqID", rqID), slog.String("op", op), slog.String("type", string(action.Type)), slog.String("operation", string(action.Operation)))
	defer func() {
		slog.Debug("ManageFunds finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	uid := s.Session().UserID
	if uid == 0 {
		return decimal.Zero, decimal.Zero, service.ErrNoAccount
	}

	switch {
	case action.Type != model.Equity && action.Type != model.Commodity,
		action.Operation != model.AddFunds && action.Operation != model.WithdrawFunds,
		!action.Amount.IsPositive():
		return decimal.Zero, decimal.Zero, service.ErrInvalidFunds
	}

	equity, commodity, err = s.api.ManageFunds(ctx, uid, action)
	if err != nil {
		slog.Error("got error from api.ManageFunds", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return decimal.Zero, decimal.Zero, err
	}

	s.refresh(TopicUser, TopicFunds)
	return equity, commodity, nil
}

// CreateWatchlist creates a watchlist and selects it. The returned id is 0
// when the backend did not report it; the new watchlist is then selected by
// name once the watchlists topic reloads.
func (s *TerminalService) CreateWatchlist(ctx context.Context, name string) (int64, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TerminalService.CreateWatchlist"
	name = strings.TrimSpace(name)

	slog.Debug("CreateWatchlist start", slog.String("rqID", rqID), slog.String("op", op), slog.String("name", name))
	defer func() {
		slog.Debug("CreateWatchlist finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("name", name))
	}()

	uid := s.Session().UserID
	if uid == 0 {
		return 0, service.ErrNoAccount
	}
	if name == "" {
		return 0, service.ErrEmptyName
	}

	wid, err := s.api.CreateWatchlist(ctx, uid, name)
	if err != nil {
		slog.Error("got error from api.CreateWatchlist", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return 0, err
	}

	s.mu.Lock()
	if wid != 0 {
		err = s.selectWatchlistLocked(wid)
	} else {
		s.pendingWatchlist = name
	}
	s.mu.Unlock()
	if err != nil {
		return wid, err
	}

	s.refresh(TopicWatchlists)
	return wid, nil
}

func (s *TerminalService) DeleteWatchlist(ctx context.Context, wid int64) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TerminalService.DeleteWatchlist"

	slog.Debug("DeleteWatchlist start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("wid", wid))
	defer func() {
		slog.Debug("DeleteWatchlist finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("wid", wid))
	}()

	if s.Session().UserID == 0 {
		return service.ErrNoAccount
	}
	if wid == 0 {
		return service.ErrNotFound
	}

	if err := s.api.DeleteWatchlist(ctx, wid); err != nil {
		if errors.Is(err, externalApi.ErrNotFound) {
			return service.ErrNotFound
		}
		slog.Error("got error from api.DeleteWatchlist", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	s.mu.Lock()
	if s.session.SelectedWatchlistID == wid {
		_ = s.selectWatchlistLocked(0)
	}
	s.mu.Unlock()

	s.refresh(TopicWatchlists)
	return nil
}

func (s *TerminalService) AddToWatchlist(ctx context.Context, wid, aid int64) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TerminalService.AddToWatchlist"

	slog.Debug("AddToWatchlist start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("wid", wid), slog.Int64("aid", aid))
	defer func() {
		slog.Debug("AddToWatchlist finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	if wid == 0 {
		return service.ErrNotFound
	}
	if aid == 0 {
		return service.ErrNoAssetSelected
	}

	if err := s.api.AddWatchlistAsset(ctx, wid, aid); err != nil {
		slog.Error("got error from api.AddWatchlistAsset", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	s.refreshWatchlistAssets(wid)
	return nil
}

func (s *TerminalService) RemoveFromWatchlist(ctx context.Context, wid, aid int64) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TerminalService.RemoveFromWatchlist"

	slog.Debug("RemoveFromWatchlist start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("wid", wid), slog.Int64("aid", aid))
	defer func() {
		slog.Debug("RemoveFromWatchlist finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	if wid == 0 || aid == 0 {
		return service.ErrNotFound
	}

	if err := s.api.RemoveWatchlistAsset(ctx, wid, aid); err != nil {
		if errors.Is(err, externalApi.ErrNotFound) {
			return service.ErrNotFound
		}
		slog.Error("got error from api.RemoveWatchlistAsset", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	s.refreshWatchlistAssets(wid)
	return nil
}

func (s *TerminalService) refreshWatchlistAssets(wid int64) {
	if s.Session().SelectedWatchlistID == wid {
		s.refresh(TopicWatchlistAssets)
	}
}

// PortfolioReport renders the cached portfolio and funds of the current
// account into a spreadsheet.
func (s *TerminalService) PortfolioReport(ctx context.Context) (*bytes.Buffer, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TerminalService.PortfolioReport"

	slog.Debug("PortfolioReport start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("PortfolioReport finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	view, err := s.Portfolio()
	if err != nil {
		return nil, err
	}
	funds, err := s.Home()
	if err != nil {
		return nil, err
	}

	report := model.PortfolioReport{
		AccountID:        funds.AccountID,
		Currency:         s.currency,
		GeneratedAt:      s.now(),
		Holdings:         view.Rows,
		TotalValue:       view.Total,
		TotalInvestment:  view.Summary.TotalInvestment,
		TotalProfit:      view.Summary.TotalProfit,
		ProfitPercentage: view.Summary.ProfitPercentage,
		Funds:            funds,
	}
	if user, ok := s.User(); ok {
		report.UserName = user.Name
	}

	buf, err := s.reportGen.GeneratePortfolioReport(ctx, report)
	if err != nil {
		slog.Error("got error from reportGen.GeneratePortfolioReport", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}
	return buf, nil
}

// PortfolioChart renders the cached portfolio value series.
func (s *TerminalService) PortfolioChart(ctx context.Context) (*bytes.Buffer, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TerminalService.PortfolioChart"

	view, err := s.Portfolio()
	if err != nil {
		return nil, err
	}

	buf, err := s.chartGen.PortfolioHistoryChart(ctx, view.History, s.currency)
	if err != nil {
		slog.Error("got error from chartGen.PortfolioHistoryChart", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}
	return buf, nil
}
