package telegram

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/KotFed0t/trading_terminal/config"
	"github.com/KotFed0t/trading_terminal/internal/converter/telebotConverter"
	"github.com/KotFed0t/trading_terminal/internal/model"
	"github.com/KotFed0t/trading_terminal/internal/model/tg/tgCallback"
	"github.com/KotFed0t/trading_terminal/internal/service/terminalService"
	"github.com/KotFed0t/trading_terminal/utils"
	"github.com/shopspring/decimal"
	tele "gopkg.in/telebot.v4"
)

type TerminalService interface {
	SetAccount(ctx context.Context, uid int64) error
	SelectAsset(ctx context.Context, aid int64) (model.Asset, error)
	Search(ctx context.Context, query string) error
	SelectWatchlist(ctx context.Context, wid int64) error
	Foreground(ctx context.Context)
	Session() model.Session
	User() (model.User, bool)
	Home() (model.FundsRecord, error)
	Portfolio() (terminalService.PortfolioView, error)
	Asset() (terminalService.AssetView, error)
	SearchResults() terminalService.SearchView
	Watchlists() (terminalService.WatchlistsView, error)
	Orders(ctx context.Context) (model.OrdersBook, error)
	PlaceOrder(ctx context.Context, side model.OrderSide, qty int64) error
	DeleteOrder(ctx context.Context, oid int64) error
	CreateWatchlist(ctx context.Context, name string) (int64, error)
	DeleteWatchlist(ctx context.Context, wid int64) error
	AddToWatchlist(ctx context.Context, wid, aid int64) error
	RemoveFromWatchlist(ctx context.Context, wid, aid int64) error
	ManageFunds(ctx context.Context, action model.FundsAction) (equity, commodity decimal.Decimal, err error)
	PortfolioReport(ctx context.Context) (*bytes.Buffer, error)
	PortfolioChart(ctx context.Context) (*bytes.Buffer, error)
}

type CloudStorage interface {
	UploadFile(ctx context.Context, reader io.Reader, filename string) (downloadLink string, err error)
}

type Controller struct {
	svc        TerminalService
	storage    CloudStorage
	accountUID int64
	currency   string
	fileLimit  int
}

// NewController builds the chat handlers. storage may be nil, then reports
// over the file limit are refused.
func NewController(cfg *config.Config, svc TerminalService, storage CloudStorage) *Controller {
	return &Controller{
		svc:        svc,
		storage:    storage,
		accountUID: cfg.Account.UID,
		currency:   cfg.Currency,
		fileLimit:  cfg.Telegram.FileLimitInBytes,
	}
}

func (ctrl *Controller) fail(c tele.Context, ctx context.Context, op string, err error) error {
	slog.Error("request failed", slog.String("rqID", utils.GetRequestIDFromCtx(ctx)), slog.String("op", op), slog.String("err", err.Error()))
	return c.Send(telebotConverter.ErrorResponse(err))
}

func argInt(c tele.Context, idx int) (int64, bool) {
	args := c.Args()
	if len(args) <= idx {
		return 0, false
	}
	v, err := strconv.ParseInt(args[idx], 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func payload(c tele.Context) string {
	if c.Message() == nil {
		return ""
	}
	return strings.TrimSpace(c.Message().Payload)
}

func (ctrl *Controller) Start(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	if err := ctrl.svc.SetAccount(ctx, ctrl.accountUID); err != nil {
		return ctrl.fail(c, ctx, "Controller.Start", err)
	}
	return c.Reply(fmt.Sprintf("Hello! Account #%d connected.\n/home /portfolio /orders /watchlists\n/search <query> or just type an asset name", ctrl.accountUID))
}

func (ctrl *Controller) Home(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rec, err := ctrl.svc.Home()
	if err != nil {
		return ctrl.fail(c, ctx, "Controller.Home", err)
	}
	userName := ""
	if user, ok := ctrl.svc.User(); ok {
		userName = user.Name
	}
	return c.Send(telebotConverter.HomeResponse(rec, userName, ctrl.currency))
}

func (ctrl *Controller) Portfolio(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	view, err := ctrl.svc.Portfolio()
	if err != nil {
		return ctrl.fail(c, ctx, "Controller.Portfolio", err)
	}
	return c.Send(telebotConverter.PortfolioResponse(view, ctrl.currency))
}

// PortfolioHistory sends the value chart followed by the most recent points.
func (ctrl *Controller) PortfolioHistory(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	view, err := ctrl.svc.Portfolio()
	if err != nil {
		return ctrl.fail(c, ctx, "Controller.PortfolioHistory", err)
	}

	if png, err := ctrl.svc.PortfolioChart(ctx); err == nil {
		if err = c.Send(&tele.Photo{File: tele.FromReader(png)}); err != nil {
			slog.Error("can't send chart", slog.String("rqID", utils.GetRequestIDFromCtx(ctx)), slog.String("err", err.Error()))
		}
	}

	return c.Send(telebotConverter.PortfolioHistoryResponse(view.History, ctrl.currency))
}

func (ctrl *Controller) Asset(c tele.Context) error {
	aid, ok := argInt(c, 0)
	if !ok {
		return ctrl.showAsset(c)
	}
	return ctrl.selectAsset(c, aid)
}

func (ctrl *Controller) selectAsset(c tele.Context, aid int64) error {
	ctx := utils.CreateCtxWithRqID(c)
	asset, err := ctrl.svc.SelectAsset(ctx, aid)
	if err != nil {
		return ctrl.fail(c, ctx, "Controller.selectAsset", err)
	}

	view, err := ctrl.svc.Asset()
	if err != nil || !view.Loaded || view.Asset.ID != aid {
		view = terminalService.AssetView{Asset: asset, Loaded: true}
	}
	return c.Send(telebotConverter.AssetResponse(view, ctrl.currency))
}

func (ctrl *Controller) showAsset(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	view, err := ctrl.svc.Asset()
	if err != nil {
		return ctrl.fail(c, ctx, "Controller.showAsset", err)
	}
	return c.Send(telebotConverter.AssetResponse(view, ctrl.currency))
}

func (ctrl *Controller) AssetHistory(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	view, err := ctrl.svc.Asset()
	if err != nil {
		return ctrl.fail(c, ctx, "Controller.AssetHistory", err)
	}
	return c.Send(telebotConverter.AssetHistoryResponse(view, ctrl.currency))
}

// Search arms the query; results are pushed when they arrive.
func (ctrl *Controller) Search(c tele.Context) error {
	return ctrl.search(c, payload(c))
}

// Text treats any plain message as the next search query.
func (ctrl *Controller) Text(c tele.Context) error {
	return ctrl.search(c, c.Text())
}

func (ctrl *Controller) search(c tele.Context, query string) error {
	ctx := utils.CreateCtxWithRqID(c)
	if strings.TrimSpace(query) == "" {
		return c.Send("Usage: /search <query>")
	}
	if err := ctrl.svc.Search(ctx, query); err != nil {
		return ctrl.fail(c, ctx, "Controller.search", err)
	}

	view := ctrl.svc.SearchResults()
	if view.Loaded && view.Query == strings.TrimSpace(query) {
		return c.Send(telebotConverter.SearchResponse(view, ctrl.currency))
	}
	return c.Send("🔎 searching…")
}

func (ctrl *Controller) Buy(c tele.Context) error {
	return ctrl.placeOrder(c, model.Buy)
}

func (ctrl *Controller) Sell(c tele.Context) error {
	return ctrl.placeOrder(c, model.Sell)
}

func (ctrl *Controller) placeOrder(c tele.Context, side model.OrderSide) error {
	qty, ok := argInt(c, 0)
	if !ok {
		return c.Send(fmt.Sprintf("Usage: /%s <quantity>", strings.ToLower(string(side))))
	}
	return ctrl.sendOrder(c, side, qty)
}

func (ctrl *Controller) sendOrder(c tele.Context, side model.OrderSide, qty int64) error {
	ctx := utils.CreateCtxWithRqID(c)
	if err := ctrl.svc.PlaceOrder(ctx, side, qty); err != nil {
		return ctrl.fail(c, ctx, "Controller.sendOrder", err)
	}

	name := ""
	if view, err := ctrl.svc.Asset(); err == nil {
		name = view.Asset.Name
	}
	return c.Send(telebotConverter.OrderPlacedResponse(side, qty, name))
}

func (ctrl *Controller) Orders(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	book, err := ctrl.svc.Orders(ctx)
	if err != nil {
		return ctrl.fail(c, ctx, "Controller.Orders", err)
	}
	return c.Send(telebotConverter.OrdersResponse(book, ctrl.currency))
}

func (ctrl *Controller) Cancel(c tele.Context) error {
	oid, ok := argInt(c, 0)
	if !ok {
		return c.Send("Usage: /cancel <order id>")
	}
	return ctrl.cancelOrder(c, oid)
}

func (ctrl *Controller) cancelOrder(c tele.Context, oid int64) error {
	ctx := utils.CreateCtxWithRqID(c)
	if err := ctrl.svc.DeleteOrder(ctx, oid); err != nil {
		return ctrl.fail(c, ctx, "Controller.cancelOrder", err)
	}
	return c.Send(fmt.Sprintf("✅ Order #%d cancelled", oid))
}

func (ctrl *Controller) Watchlists(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	view, err := ctrl.svc.Watchlists()
	if err != nil {
		return ctrl.fail(c, ctx, "Controller.Watchlists", err)
	}
	return c.Send(telebotConverter.WatchlistsResponse(view, ctrl.currency))
}

func (ctrl *Controller) Watchlist(c tele.Context) error {
	wid, ok := argInt(c, 0)
	if !ok {
		return ctrl.Watchlists(c)
	}
	return ctrl.selectWatchlist(c, wid)
}

func (ctrl *Controller) selectWatchlist(c tele.Context, wid int64) error {
	ctx := utils.CreateCtxWithRqID(c)
	if err := ctrl.svc.SelectWatchlist(ctx, wid); err != nil {
		return ctrl.fail(c, ctx, "Controller.selectWatchlist", err)
	}
	return ctrl.Watchlists(c)
}

func (ctrl *Controller) WatchAdd(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	sess := ctrl.svc.Session()
	if err := ctrl.svc.AddToWatchlist(ctx, sess.SelectedWatchlistID, sess.SelectedAssetID); err != nil {
		return ctrl.fail(c, ctx, "Controller.WatchAdd", err)
	}
	return c.Send("⭐ Added to watchlist")
}

func (ctrl *Controller) WatchRemove(c tele.Context) error {
	aid, ok := argInt(c, 0)
	if !ok {
		return c.Send("Usage: /watch_remove <asset id>")
	}
	return ctrl.watchRemove(c, aid)
}

func (ctrl *Controller) watchRemove(c tele.Context, aid int64) error {
	ctx := utils.CreateCtxWithRqID(c)
	if err := ctrl.svc.RemoveFromWatchlist(ctx, ctrl.svc.Session().SelectedWatchlistID, aid); err != nil {
		return ctrl.fail(c, ctx, "Controller.watchRemove", err)
	}
	return c.Send("Removed from watchlist")
}

func (ctrl *Controller) WatchlistNew(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	name := payload(c)
	wid, err := ctrl.svc.CreateWatchlist(ctx, name)
	if err != nil {
		return ctrl.fail(c, ctx, "Controller.WatchlistNew", err)
	}
	if wid == 0 {
		return c.Send(fmt.Sprintf("✅ Watchlist %q created", name))
	}
	return c.Send(fmt.Sprintf("✅ Watchlist %q created (#%d)", name, wid))
}

func (ctrl *Controller) WatchlistDelete(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	wid, ok := argInt(c, 0)
	if !ok {
		wid = ctrl.svc.Session().SelectedWatchlistID
	}
	if err := ctrl.svc.DeleteWatchlist(ctx, wid); err != nil {
		return ctrl.fail(c, ctx, "Controller.WatchlistDelete", err)
	}
	return c.Send("🗑 Watchlist deleted")
}

// Funds handles /funds add|withdraw equity|commodity <amount> [UPI|Card].
func (ctrl *Controller) Funds(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	action, ok := parseFundsAction(c.Args())
	if !ok {
		return c.Send("Usage: /funds add|withdraw equity|commodity <amount> [UPI|Card]")
	}

	equity, commodity, err := ctrl.svc.ManageFunds(ctx, action)
	if err != nil {
		return ctrl.fail(c, ctx, "Controller.Funds", err)
	}
	return c.Send(telebotConverter.FundsResponse(equity, commodity, ctrl.currency))
}

func parseFundsAction(args []string) (model.FundsAction, bool) {
	if len(args) < 3 || len(args) > 4 {
		return model.FundsAction{}, false
	}

	action := model.FundsAction{
		Operation: model.FundsOperation(strings.ToLower(args[0])),
		Type:      model.FundType(strings.ToLower(args[1])),
	}
	amount, err := decimal.NewFromString(args[2])
	if err != nil {
		return model.FundsAction{}, false
	}
	action.Amount = amount

	if len(args) == 4 {
		switch strings.ToLower(args[3]) {
		case "upi":
			action.PaymentMode = "UPI"
		case "card":
			action.PaymentMode = "Card"
		default:
			return model.FundsAction{}, false
		}
	}
	return action, true
}

// Refresh is the visibility regain of the chat: every topic is fetched once.
func (ctrl *Controller) Refresh(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	ctrl.svc.Foreground(ctx)
	return c.Send("🔄 refreshing…")
}

func (ctrl *Controller) Report(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	buf, err := ctrl.svc.PortfolioReport(ctx)
	if err != nil {
		return ctrl.fail(c, ctx, "Controller.Report", err)
	}

	fileName := fmt.Sprintf("portfolio_%s.xlsx", time.Now().Format("2006-01-02_15-04"))

	if buf.Len() > ctrl.fileLimit {
		slog.Warn("report exceeds file limit", slog.String("rqID", rqID), slog.Int("size", buf.Len()))
		if ctrl.storage == nil {
			return c.Send("Report is too large to send")
		}

		link, err := ctrl.storage.UploadFile(ctx, buf, fileName)
		if err != nil {
			return ctrl.fail(c, ctx, "Controller.Report", err)
		}
		return c.Send(fmt.Sprintf("📄 Report is too large for a message, download it here:\n%s", link))
	}

	doc := &tele.Document{
		File:     tele.FromReader(buf),
		FileName: fileName,
		MIME:     "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	}
	return c.Send(doc)
}

// Callback dispatches inline button presses.
func (ctrl *Controller) Callback(c tele.Context) error {
	cb := c.Callback()
	if cb == nil {
		return nil
	}
	_ = c.Respond()

	data := strings.TrimPrefix(cb.Data, "\f")
	if i := strings.IndexByte(data, '|'); i >= 0 {
		data = data[:i]
	}

	id := func(prefix string) (int64, bool) {
		v, err := strconv.ParseInt(strings.TrimPrefix(data, prefix), 10, 64)
		return v, err == nil
	}

	switch {
	case data == tgCallback.Refresh:
		return ctrl.Refresh(c)
	case data == tgCallback.Report:
		return ctrl.Report(c)
	case data == tgCallback.BuyOne:
		return ctrl.sendOrder(c, model.Buy, 1)
	case data == tgCallback.SellOne:
		return ctrl.sendOrder(c, model.Sell, 1)
	case data == tgCallback.WatchAdd:
		return ctrl.WatchAdd(c)
	case data == tgCallback.AssetHistory:
		return ctrl.AssetHistory(c)
	case data == tgCallback.PortfolioChart:
		return ctrl.PortfolioHistory(c)
	case strings.HasPrefix(data, tgCallback.SelectAssetPrefix):
		if aid, ok := id(tgCallback.SelectAssetPrefix); ok {
			return ctrl.selectAsset(c, aid)
		}
	case strings.HasPrefix(data, tgCallback.SelectWatchlistPrefix):
		if wid, ok := id(tgCallback.SelectWatchlistPrefix); ok {
			return ctrl.selectWatchlist(c, wid)
		}
	case strings.HasPrefix(data, tgCallback.CancelOrderPrefix):
		if oid, ok := id(tgCallback.CancelOrderPrefix); ok {
			return ctrl.cancelOrder(c, oid)
		}
	case strings.HasPrefix(data, tgCallback.WatchRemovePrefix):
		if aid, ok := id(tgCallback.WatchRemovePrefix); ok {
			return ctrl.watchRemove(c, aid)
		}
	}

	slog.Warn("unexpected callback", slog.String("data", cb.Data))
	return nil
}
