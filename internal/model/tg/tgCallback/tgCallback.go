package tgCallback

// Callback buttons prefixes
const (
	Refresh        string = "refresh"
	Report         string = "report"
	BuyOne         string = "buy_one"
	SellOne        string = "sell_one"
	WatchAdd       string = "watch_add"
	AssetHistory   string = "asset_history"
	PortfolioChart string = "portfolio_history"

	SelectAssetPrefix     string = "asset:"
	SelectWatchlistPrefix string = "watchlist:"
	CancelOrderPrefix     string = "cancel_order:"
	WatchRemovePrefix     string = "watch_remove:"
)
