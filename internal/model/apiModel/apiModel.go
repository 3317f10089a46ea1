package apiModel

import "github.com/shopspring/decimal"

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type Asset struct {
	Aid   *int64          `json:"aid"`
	Name  string          `json:"name"`
	Price NullableDecimal `json:"price"`
}

// NullableDecimal tells an explicit null apart from a missing key.
type NullableDecimal struct {
	decimal.NullDecimal
	Present bool
}

func (n *NullableDecimal) UnmarshalJSON(b []byte) error {
	n.Present = true
	return n.NullDecimal.UnmarshalJSON(b)
}

type PricePoint struct {
	Date       *string          `json:"date"`
	ClosePrice *decimal.Decimal `json:"close_price"`
}

type Holding struct {
	Pid          int64               `json:"pid"`
	Pname        string              `json:"pname"`
	AssetName    string              `json:"asset_name"`
	Qty          *int64              `json:"qty"`
	BuyPrice     decimal.NullDecimal `json:"buy_price"`
	CurrentPrice decimal.NullDecimal `json:"current_price"`
}

type Order struct {
	Oid       *int64           `json:"oid"`
	Otype     string           `json:"otype"`
	Qty       *int64           `json:"qty"`
	Price     *decimal.Decimal `json:"price"`
	Status    string           `json:"status"`
	Date      string           `json:"date"`
	AssetName string           `json:"asset_name"`
}

type PlaceOrderRequest struct {
	UID   int64  `json:"uid"`
	Aid   int64  `json:"aid"`
	Qty   int64  `json:"qty"`
	Otype string `json:"otype"`
}

type User struct {
	UID            *int64           `json:"uid"`
	Uname          string           `json:"uname"`
	Uemail         string           `json:"uemail"`
	EquityFunds    *decimal.Decimal `json:"equity_funds"`
	CommodityFunds *decimal.Decimal `json:"commodity_funds"`
}

type FundsStatus struct {
	AvailableMarginEquity     *decimal.Decimal    `json:"available_margin_equity"`
	AvailableMarginCommodity  *decimal.Decimal    `json:"available_margin_commodity"`
	UtilizedMarginEquity      *decimal.Decimal    `json:"utilized_margin_equity"`
	UtilizedMarginCommodity   *decimal.Decimal    `json:"utilized_margin_commodity"`
	TotalPendingCostEquity    decimal.NullDecimal `json:"total_pending_cost_equity"`
	TotalPendingCostCommodity decimal.NullDecimal `json:"total_pending_cost_commodity"`
}

type FundsRequest struct {
	Type        string  `json:"type"`
	Action      string  `json:"action"`
	Amount      float64 `json:"amount"`
	PaymentMode string  `json:"payment_mode,omitempty"`
}

type FundsResponse struct {
	Message        string           `json:"message"`
	EquityFunds    *decimal.Decimal `json:"equity_funds"`
	CommodityFunds *decimal.Decimal `json:"commodity_funds"`
}

type PortfolioValue struct {
	TotalPortfolioValue *decimal.Decimal `json:"total_portfolio_value"`
}

type PortfolioSummary struct {
	TotalProfit           *decimal.Decimal `json:"total_profit"`
	TotalProfitPercentage *decimal.Decimal `json:"total_profit_percentage"`
}

type PortfolioSnapshot struct {
	Date  *string          `json:"date"`
	Value *decimal.Decimal `json:"value"`
}

type TotalValues struct {
	TotalEquityValue    *decimal.Decimal `json:"total_equity_value"`
	TotalCommodityValue *decimal.Decimal `json:"total_commodity_value"`
}

type Watchlist struct {
	Wid   *int64 `json:"wid"`
	Wname string `json:"wname"`
}

type WatchlistAsset struct {
	Aid          *int64              `json:"aid"`
	Name         string              `json:"name"`
	CurrentPrice decimal.NullDecimal `json:"current_price"`
}

type CreateWatchlistRequest struct {
	Name string `json:"name"`
	UID  int64  `json:"uid"`
}

type CreateWatchlistResponse struct {
	Message string `json:"message"`
	Wid     int64  `json:"wid"`
	Wname   string `json:"wname"`
}

type AddWatchlistAssetRequest struct {
	Aid int64 `json:"aid"`
}
