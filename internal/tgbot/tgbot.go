package tgbot

import (
	"log/slog"

	"github.com/KotFed0t/trading_terminal/config"
	"github.com/KotFed0t/trading_terminal/internal/converter/telebotConverter"
	"github.com/KotFed0t/trading_terminal/internal/scheduler"
	"github.com/KotFed0t/trading_terminal/internal/service/terminalService"
	"github.com/KotFed0t/trading_terminal/internal/transport/telegram"
	customMW "github.com/KotFed0t/trading_terminal/internal/transport/telegram/middleware"
	tele "gopkg.in/telebot.v4"
	"gopkg.in/telebot.v4/middleware"
)

type TGBot struct {
	bot    *tele.Bot
	ctrl   *telegram.Controller
	view   telegram.TerminalService
	chat   tele.ChatID
	cur    string
	notify *Notifier
}

func New(cfg *config.Config, ctrl *telegram.Controller, view telegram.TerminalService) *TGBot {
	settings := tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: &tele.LongPoller{Timeout: cfg.Telegram.UpdTimeout},
	}

	b, err := tele.NewBot(settings)
	if err != nil {
		slog.Error("error while tele.NewBot", slog.String("err", err.Error()))
		panic(err)
	}

	chat := tele.ChatID(cfg.Telegram.AllowedChatID)
	return &TGBot{
		bot:    b,
		ctrl:   ctrl,
		view:   view,
		chat:   chat,
		cur:    cfg.Currency,
		notify: NewNotifier(b, chat, view, cfg.Currency),
	}
}

// Notify is registered as a snapshot listener.
func (b *TGBot) Notify(snap scheduler.Snapshot) {
	b.notify.Handle(snap)
}

func (b *TGBot) Start() {
	b.bot.Use(middleware.Recover(), middleware.Whitelist(int64(b.chat)), customMW.Logger())

	b.setupRoutes()

	go b.bot.Start()
	slog.Info("tgbot started!")
}

func (b *TGBot) Stop() {
	slog.Info("start stopping tgbot")
	b.bot.Stop()
	slog.Info("tgbot stopped")
}

func (b *TGBot) setupRoutes() {
	b.bot.Handle("/start", b.ctrl.Start)
	b.bot.Handle("/home", b.ctrl.Home)
	b.bot.Handle("/portfolio", b.ctrl.Portfolio)
	b.bot.Handle("/history", b.ctrl.PortfolioHistory)
	b.bot.Handle("/asset", b.ctrl.Asset)
	b.bot.Handle("/search", b.ctrl.Search)
	b.bot.Handle("/buy", b.ctrl.Buy)
	b.bot.Handle("/sell", b.ctrl.Sell)
	b.bot.Handle("/orders", b.ctrl.Orders)
	b.bot.Handle("/cancel", b.ctrl.Cancel)
	b.bot.Handle("/watchlists", b.ctrl.Watchlists)
	b.bot.Handle("/watchlist", b.ctrl.Watchlist)
	b.bot.Handle("/watch_add", b.ctrl.WatchAdd)
	b.bot.Handle("/watch_remove", b.ctrl.WatchRemove)
	b.bot.Handle("/watchlist_new", b.ctrl.WatchlistNew)
	b.bot.Handle("/watchlist_delete", b.ctrl.WatchlistDelete)
	b.bot.Handle("/funds", b.ctrl.Funds)
	b.bot.Handle("/refresh", b.ctrl.Refresh)
	b.bot.Handle("/report", b.ctrl.Report)

	b.bot.Handle(tele.OnCallback, b.ctrl.Callback)
	b.bot.Handle(tele.OnText, b.ctrl.Text)
}

// Sender is the part of *tele.Bot the notifier pushes through.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Notifier pushes unsolicited updates to the chat: search results once they
// arrive and the first failure of a topic.
type Notifier struct {
	sender   Sender
	chat     tele.ChatID
	view     telegram.TerminalService
	currency string
}

func NewNotifier(sender Sender, chat tele.ChatID, view telegram.TerminalService, currency string) *Notifier {
	return &Notifier{sender: sender, chat: chat, view: view, currency: currency}
}

func (n *Notifier) Handle(snap scheduler.Snapshot) {
	if n.chat == 0 {
		return
	}

	var (
		text   string
		markup *tele.ReplyMarkup
	)

	switch {
	case snap.Warning != nil:
		// only the first failure of an outage reaches listeners
		text = telebotConverter.StaleLine(snap.Warning)
	case snap.Name == terminalService.TopicSearch:
		view := n.view.SearchResults()
		if !view.Loaded || view.Query != snap.Key {
			return
		}
		text, markup = telebotConverter.SearchResponse(view, n.currency)
	default:
		return
	}

	if _, err := n.sender.Send(n.chat, text, markup); err != nil {
		slog.Error("notify failed", slog.String("topic", snap.Name), slog.String("err", err.Error()))
	}
}
