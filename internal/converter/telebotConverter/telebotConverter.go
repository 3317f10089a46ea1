package telebotConverter

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/KotFed0t/trading_terminal/internal/externalApi"
	"github.com/KotFed0t/trading_terminal/internal/fundsAggregator"
	"github.com/KotFed0t/trading_terminal/internal/model"
	"github.com/KotFed0t/trading_terminal/internal/model/tg/tgCallback"
	"github.com/KotFed0t/trading_terminal/internal/orderChecker"
	"github.com/KotFed0t/trading_terminal/internal/service"
	"github.com/KotFed0t/trading_terminal/internal/service/terminalService"
	"github.com/KotFed0t/trading_terminal/internal/valuation"
	"github.com/shopspring/decimal"
	tele "gopkg.in/telebot.v4"
)

const (
	InternalErrMsg = "something went wrong..."
	LoadingMsg     = "⏳ loading, try again in a moment"

	// telegram message limit with a margin for the footer
	maxMessageLen = 3800
)

func directionEmoji(d decimal.Decimal) string {
	switch valuation.Sign(d) {
	case valuation.Gain:
		return "🟢"
	case valuation.Loss:
		return "🔴"
	default:
		return "⚪"
	}
}

func money(d decimal.Decimal, currency string) string {
	return valuation.FormatMoney(d, currency)
}

// StaleLine renders the warning shown above a view whose data is outdated.
func StaleLine(w *service.StaleDataWarning) string {
	if w == nil {
		return ""
	}
	return fmt.Sprintf("⚠️ data may be outdated (failing since %s): %s\n\n", w.Since.Format(time.TimeOnly), w.Err)
}

func HomeResponse(rec model.FundsRecord, userName string, currency string) (text string, markup *tele.ReplyMarkup) {
	markup = &tele.ReplyMarkup{}
	var sb strings.Builder

	if userName != "" {
		sb.WriteString(fmt.Sprintf("👤 %s\n\n", userName))
	}

	sb.WriteString(fmt.Sprintf("💼 Portfolio value: %s\n", money(rec.PortfolioValue, currency)))
	sb.WriteString(fmt.Sprintf("%s Total profit: %s (%s)\n\n",
		directionEmoji(rec.TotalProfit), money(rec.TotalProfit, currency), valuation.FormatPercent(rec.ProfitPercentage)))

	writeFunds := func(title string, f model.AccountFunds) {
		sb.WriteString(fmt.Sprintf("%s\n", title))
		sb.WriteString(fmt.Sprintf("   ▸ Available funds: %s\n", money(f.AvailableFunds, currency)))
		sb.WriteString(fmt.Sprintf("   ▸ Utilized margin: %s\n", money(f.UtilizedMargin, currency)))
		sb.WriteString(fmt.Sprintf("   ▸ Available margin: %s\n\n", money(f.AvailableMargin, currency)))
	}
	writeFunds("📈 Equity", rec.Funds.Equity)
	writeFunds("🛢 Commodity", rec.Funds.Commodity)

	sb.WriteString("📊 Allocation\n")
	sb.WriteString(fmt.Sprintf("   ▸ Equity: %s\n", money(rec.Allocation.EquityValue, currency)))
	sb.WriteString(fmt.Sprintf("   ▸ Commodity: %s\n", money(rec.Allocation.CommodityValue, currency)))

	if len(rec.Warnings) > 0 {
		sb.WriteString("\n⚠️ outdated: ")
		fields := make([]string, 0, len(rec.Warnings))
		for _, field := range []string{
			fundsAggregator.FieldFunds,
			fundsAggregator.FieldMargin,
			fundsAggregator.FieldPortfolioValue,
			fundsAggregator.FieldSummary,
			fundsAggregator.FieldAllocation,
		} {
			if _, ok := rec.Warnings[field]; ok {
				fields = append(fields, strings.ReplaceAll(field, "_", " "))
			}
		}
		sb.WriteString(strings.Join(fields, ", "))
		sb.WriteString("\n")
	}

	markup.Inline(
		markup.Row(
			markup.Data("🔄 Refresh", tgCallback.Refresh),
			markup.Data("📄 Report", tgCallback.Report),
		),
	)

	return sb.String(), markup
}

func PortfolioResponse(view terminalService.PortfolioView, currency string) (text string, markup *tele.ReplyMarkup) {
	markup = &tele.ReplyMarkup{}
	var sb strings.Builder

	sb.WriteString(StaleLine(view.Warning))
	if !view.Loaded {
		sb.WriteString(LoadingMsg)
		return sb.String(), nil
	}

	sb.WriteString(fmt.Sprintf("📊 Portfolio: %s\n", money(view.Total, currency)))
	sb.WriteString(fmt.Sprintf("%s Profit: %s (%s)\n\n",
		directionEmoji(view.Summary.TotalProfit), money(view.Summary.TotalProfit, currency), valuation.FormatPercent(view.Summary.ProfitPercentage)))

	if len(view.Rows) == 0 {
		sb.WriteString("No holdings yet.\n")
	}

	for i, row := range view.Rows {
		side := ""
		if row.IsShort() {
			side = " (short)"
		}
		profit, pct := valuation.FormatResult(valuation.Result{
			Profit:           row.Profit,
			ProfitPercentage: row.ProfitPercentage,
			Available:        row.Available,
		}, currency)

		sb.WriteString(fmt.Sprintf("%d. %s%s\n", i+1, row.AssetName, side))
		sb.WriteString(fmt.Sprintf("   ▸ Qty: %d\n", row.Quantity))
		sb.WriteString(fmt.Sprintf("   ▸ Buy price: %s\n", valuation.FormatNullMoney(row.BuyPrice, currency)))
		sb.WriteString(fmt.Sprintf("   ▸ Current price: %s\n", valuation.FormatNullMoney(row.CurrentPrice, currency)))
		sb.WriteString(fmt.Sprintf("   ▸ Value: %s\n", valuation.FormatNullMoney(row.Value, currency)))
		if row.Available {
			sb.WriteString(fmt.Sprintf("   ▸ %s %s (%s)\n\n", directionEmoji(row.Profit), profit, pct))
		} else {
			sb.WriteString(fmt.Sprintf("   ▸ Profit: %s\n\n", profit))
		}
	}

	markup.Inline(
		markup.Row(
			markup.Data("📈 History", tgCallback.PortfolioChart),
			markup.Data("📄 Report", tgCallback.Report),
		),
	)

	return sb.String(), markup
}

func PortfolioHistoryResponse(history []model.PortfolioSnapshot, currency string) string {
	if len(history) == 0 {
		return "No portfolio history yet."
	}

	lines := make([]string, 0, len(history))
	for _, p := range history {
		lines = append(lines, fmt.Sprintf("%s  %s", p.Date.Format(time.DateOnly), money(p.Value, currency)))
	}
	return "📈 Portfolio value\n\n" + tail(lines)
}

// tail keeps the most recent lines that fit into one message.
func tail(lines []string) string {
	size := 0
	from := len(lines)
	for from > 0 && size+len(lines[from-1])+1 < maxMessageLen {
		from--
		size += len(lines[from]) + 1
	}

	var sb strings.Builder
	if from > 0 {
		sb.WriteString(fmt.Sprintf("… %d earlier points\n", from))
	}
	sb.WriteString(strings.Join(lines[from:], "\n"))
	return sb.String()
}

func AssetResponse(view terminalService.AssetView, currency string) (text string, markup *tele.ReplyMarkup) {
	markup = &tele.ReplyMarkup{}
	var sb strings.Builder

	sb.WriteString(StaleLine(view.PriceWarning))
	if !view.Loaded {
		sb.WriteString(LoadingMsg)
		return sb.String(), nil
	}

	sb.WriteString(fmt.Sprintf("🏷 %s (#%d)\n", view.Asset.Name, view.Asset.ID))
	sb.WriteString(fmt.Sprintf("💰 Price: %s\n", valuation.FormatNullMoney(view.Asset.Price, currency)))

	if n := len(view.History); n > 1 {
		first, last := view.History[0].ClosePrice, view.History[n-1].ClosePrice
		if !first.IsZero() {
			change := last.Sub(first).Div(first).Mul(decimal.NewFromInt(100))
			sb.WriteString(fmt.Sprintf("%s Change since %s: %s\n", directionEmoji(change), view.History[0].Date, valuation.FormatPercent(change)))
		}
	}

	markup.Inline(
		markup.Row(
			markup.Data("Buy 1", tgCallback.BuyOne),
			markup.Data("Sell 1", tgCallback.SellOne),
		),
		markup.Row(
			markup.Data("⭐ Watch", tgCallback.WatchAdd),
			markup.Data("📈 History", tgCallback.AssetHistory),
		),
	)

	return sb.String(), markup
}

func AssetHistoryResponse(view terminalService.AssetView, currency string) string {
	var sb strings.Builder
	sb.WriteString(StaleLine(view.HistoryWarning))

	if len(view.History) == 0 {
		sb.WriteString("No price history.")
		return sb.String()
	}

	lines := make([]string, 0, len(view.History))
	for _, p := range view.History {
		lines = append(lines, fmt.Sprintf("%s  %s", p.Date, money(p.ClosePrice, currency)))
	}
	sb.WriteString(fmt.Sprintf("📈 %s\n\n", view.Asset.Name))
	sb.WriteString(tail(lines))
	return sb.String()
}

func SearchResponse(view terminalService.SearchView, currency string) (text string, markup *tele.ReplyMarkup) {
	markup = &tele.ReplyMarkup{}
	var sb strings.Builder

	sb.WriteString(StaleLine(view.Warning))
	if !view.Loaded {
		sb.WriteString(LoadingMsg)
		return sb.String(), nil
	}

	if len(view.Results) == 0 {
		sb.WriteString(fmt.Sprintf("Nothing found for %q", view.Query))
		return sb.String(), nil
	}

	sb.WriteString(fmt.Sprintf("🔎 %q\n\n", view.Query))
	rows := make([]tele.Row, 0, len(view.Results))
	for _, a := range view.Results {
		sb.WriteString(fmt.Sprintf("#%d %s  %s\n", a.ID, a.Name, valuation.FormatNullMoney(a.Price, currency)))
		rows = append(rows, markup.Row(markup.Data(a.Name, tgCallback.SelectAssetPrefix+strconv.FormatInt(a.ID, 10))))
	}
	markup.Inline(rows...)

	return sb.String(), markup
}

func WatchlistsResponse(view terminalService.WatchlistsView, currency string) (text string, markup *tele.ReplyMarkup) {
	markup = &tele.ReplyMarkup{}
	var sb strings.Builder

	sb.WriteString(StaleLine(view.Warning))
	if !view.Loaded {
		sb.WriteString(LoadingMsg)
		return sb.String(), nil
	}
	if len(view.Watchlists) == 0 {
		sb.WriteString("No watchlists. Create one with /watchlist_new <name>")
		return sb.String(), nil
	}

	listBtns := make([]tele.Btn, 0, len(view.Watchlists))
	for _, w := range view.Watchlists {
		mark := ""
		if w.ID == view.SelectedID {
			mark = "✅ "
		}
		sb.WriteString(fmt.Sprintf("%s#%d %s\n", mark, w.ID, w.Name))
		listBtns = append(listBtns, markup.Data(mark+w.Name, tgCallback.SelectWatchlistPrefix+strconv.FormatInt(w.ID, 10)))
	}
	sb.WriteString("\n")

	rows := []tele.Row{markup.Row(listBtns...)}

	sb.WriteString(StaleLine(view.AssetsWarning))
	switch {
	case !view.AssetsLoaded:
		sb.WriteString(LoadingMsg)
	case len(view.Assets) == 0:
		sb.WriteString("Watchlist is empty.")
	default:
		for _, a := range view.Assets {
			sb.WriteString(fmt.Sprintf("⭐ #%d %s  %s\n", a.AssetID, a.Name, valuation.FormatNullMoney(a.CurrentPrice, currency)))
			rows = append(rows, markup.Row(
				markup.Data(a.Name, tgCallback.SelectAssetPrefix+strconv.FormatInt(a.AssetID, 10)),
				markup.Data("✖", tgCallback.WatchRemovePrefix+strconv.FormatInt(a.AssetID, 10)),
			))
		}
	}

	markup.Inline(rows...)
	return sb.String(), markup
}

func OrdersResponse(book model.OrdersBook, currency string) (text string, markup *tele.ReplyMarkup) {
	markup = &tele.ReplyMarkup{}
	var sb strings.Builder

	writeOrder := func(o model.Order) {
		sb.WriteString(fmt.Sprintf("#%d %s %s x%d @ %s  %s\n",
			o.ID, o.Side, o.AssetName, o.Quantity, money(o.Price, currency), o.Date.Format(time.DateOnly)))
	}

	sb.WriteString("⏳ Pending\n")
	if len(book.Pending) == 0 {
		sb.WriteString("none\n")
	}
	cancelBtns := make([]tele.Row, 0, len(book.Pending))
	for _, o := range book.Pending {
		writeOrder(o)
		cancelBtns = append(cancelBtns, markup.Row(
			markup.Data(fmt.Sprintf("Cancel #%d", o.ID), tgCallback.CancelOrderPrefix+strconv.FormatInt(o.ID, 10)),
		))
	}

	sb.WriteString("\n✅ Completed\n")
	if len(book.Completed) == 0 {
		sb.WriteString("none\n")
	}
	for _, o := range book.Completed {
		writeOrder(o)
	}

	if len(cancelBtns) == 0 {
		return sb.String(), nil
	}
	markup.Inline(cancelBtns...)
	return sb.String(), markup
}

func FundsResponse(equity, commodity decimal.Decimal, currency string) string {
	return fmt.Sprintf("✅ Funds updated\n📈 Equity: %s\n🛢 Commodity: %s", money(equity, currency), money(commodity, currency))
}

func OrderPlacedResponse(side model.OrderSide, qty int64, assetName string) string {
	return fmt.Sprintf("✅ %s order for %d %s sent", side, qty, assetName)
}

// ErrorResponse maps an error to the text shown to the user.
func ErrorResponse(err error) string {
	var vErr *orderChecker.ValidationError
	var netErr *externalApi.NetworkError

	switch {
	case errors.As(err, &vErr):
		return "❌ Order rejected: " + vErr.Reason
	case errors.Is(err, service.ErrNoAccount):
		return "No account selected. Use /start"
	case errors.Is(err, service.ErrNoAssetSelected):
		return "Select an asset first: /asset <id> or /search <query>"
	case errors.Is(err, service.ErrOrderCompleted):
		return "Completed orders can't be cancelled"
	case errors.Is(err, service.ErrNotFound):
		return "Not found"
	case errors.Is(err, service.ErrInvalidFunds):
		return "Usage: /funds add|withdraw equity|commodity <amount> [UPI|Card]"
	case errors.Is(err, service.ErrEmptyName):
		return "Name can't be empty"
	case errors.As(err, &netErr):
		if netErr.Message != "" {
			return "❌ " + netErr.Message
		}
		if errors.Is(err, externalApi.ErrBadPayload) {
			return "❌ unexpected response from the server"
		}
		return "❌ server is unavailable, try again later"
	default:
		return InternalErrMsg
	}
}
