package apiConverter

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/KotFed0t/trading_terminal/internal/externalApi"
	"github.com/KotFed0t/trading_terminal/internal/model"
	"github.com/KotFed0t/trading_terminal/internal/model/apiModel"
	"github.com/shopspring/decimal"
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC1123,
	"2006-01-02",
}

func missing(field string) error {
	return fmt.Errorf("%w: missing %s", externalApi.ErrBadPayload, field)
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: invalid date %q", externalApi.ErrBadPayload, raw)
}

// ConvertAsset converts the single-asset payload, which must carry the price
// key (null is an unknown price).
func ConvertAsset(raw apiModel.Asset, fallbackID int64) (model.Asset, error) {
	if !raw.Price.Present {
		return model.Asset{}, missing("price")
	}
	return convertAsset(raw, fallbackID)
}

func convertAsset(raw apiModel.Asset, fallbackID int64) (model.Asset, error) {
	id := fallbackID
	if raw.Aid != nil {
		id = *raw.Aid
	}
	if id == 0 {
		return model.Asset{}, missing("aid")
	}
	return model.Asset{ID: id, Name: raw.Name, Price: raw.Price.NullDecimal}, nil
}

func ConvertAssets(raw []apiModel.Asset) ([]model.Asset, error) {
	res := make([]model.Asset, 0, len(raw))
	for _, r := range raw {
		asset, err := convertAsset(r, 0)
		if err != nil {
			return nil, err
		}
		res = append(res, asset)
	}
	return res, nil
}

func ConvertPriceHistory(raw []apiModel.PricePoint) ([]model.PricePoint, error) {
	res := make([]model.PricePoint, 0, len(raw))
	for _, r := range raw {
		if r.Date == nil {
			return nil, missing("date")
		}
		if r.ClosePrice == nil {
			return nil, missing("close_price")
		}
		res = append(res, model.PricePoint{Date: *r.Date, ClosePrice: *r.ClosePrice})
	}
	return res, nil
}

func ConvertHoldings(raw []apiModel.Holding) ([]model.Holding, error) {
	res := make([]model.Holding, 0, len(raw))
	for _, r := range raw {
		if r.Qty == nil {
			return nil, missing("qty")
		}
		res = append(res, model.Holding{
			PortfolioID:   r.Pid,
			PortfolioName: r.Pname,
			AssetName:     r.AssetName,
			Quantity:      *r.Qty,
			BuyPrice:      r.BuyPrice,
			CurrentPrice:  r.CurrentPrice,
		})
	}
	return res, nil
}

func ConvertOrders(raw []apiModel.Order, userID int64) ([]model.Order, error) {
	res := make([]model.Order, 0, len(raw))
	for _, r := range raw {
		if r.Oid == nil {
			return nil, missing("oid")
		}
		if r.Qty == nil {
			return nil, missing("qty")
		}

		order := model.Order{
			ID:        *r.Oid,
			UserID:    userID,
			AssetName: r.AssetName,
			Quantity:  *r.Qty,
			Side:      model.OrderSide(r.Otype),
			Status:    model.OrderStatus(r.Status),
		}
		if r.Price != nil {
			order.Price = *r.Price
		}

		switch order.Status {
		case model.OrderPending, model.OrderCompleted:
		default:
			return nil, fmt.Errorf("%w: unknown order status %q", externalApi.ErrBadPayload, r.Status)
		}

		if r.Date != "" {
			date, err := parseDate(r.Date)
			if err != nil {
				return nil, err
			}
			order.Date = date
		}

		res = append(res, order)
	}
	return res, nil
}

// SplitOrders separates orders by status keeping the backend order.
func SplitOrders(orders []model.Order) model.OrdersBook {
	book := model.OrdersBook{}
	for _, order := range orders {
		if order.Status == model.OrderCompleted {
			book.Completed = append(book.Completed, order)
		} else {
			book.Pending = append(book.Pending, order)
		}
	}
	return book
}

func ConvertUser(raw apiModel.User) (model.User, error) {
	if raw.UID == nil {
		return model.User{}, missing("uid")
	}
	if raw.EquityFunds == nil {
		return model.User{}, missing("equity_funds")
	}
	if raw.CommodityFunds == nil {
		return model.User{}, missing("commodity_funds")
	}
	return model.User{
		ID:             *raw.UID,
		Name:           raw.Uname,
		Email:          raw.Uemail,
		EquityFunds:    *raw.EquityFunds,
		CommodityFunds: *raw.CommodityFunds,
	}, nil
}

func ConvertFundsStatus(raw apiModel.FundsStatus) (model.FundsStatus, error) {
	if raw.UtilizedMarginEquity == nil {
		return model.FundsStatus{}, missing("utilized_margin_equity")
	}
	if raw.UtilizedMarginCommodity == nil {
		return model.FundsStatus{}, missing("utilized_margin_commodity")
	}

	status := model.FundsStatus{
		UtilizedMarginEquity:    *raw.UtilizedMarginEquity,
		UtilizedMarginCommodity: *raw.UtilizedMarginCommodity,
		PendingCostEquity:       raw.TotalPendingCostEquity.Decimal,
		PendingCostCommodity:    raw.TotalPendingCostCommodity.Decimal,
	}

	// both margin figures or none, a half-filled payload is a shape error
	switch {
	case raw.AvailableMarginEquity != nil && raw.AvailableMarginCommodity != nil:
		status.AvailableMarginEquity = *raw.AvailableMarginEquity
		status.AvailableMarginCommodity = *raw.AvailableMarginCommodity
		status.HasAvailableMarginFigures = true
	case raw.AvailableMarginEquity == nil && raw.AvailableMarginCommodity == nil:
	default:
		return model.FundsStatus{}, missing("available_margin")
	}

	return status, nil
}

func ConvertPortfolioValue(raw apiModel.PortfolioValue) (decimal.Decimal, error) {
	if raw.TotalPortfolioValue == nil {
		return decimal.Zero, missing("total_portfolio_value")
	}
	return *raw.TotalPortfolioValue, nil
}

func ConvertPortfolioSummary(raw apiModel.PortfolioSummary) (model.PortfolioSummary, error) {
	if raw.TotalProfit == nil {
		return model.PortfolioSummary{}, missing("total_profit")
	}
	if raw.TotalProfitPercentage == nil {
		return model.PortfolioSummary{}, missing("total_profit_percentage")
	}
	return model.PortfolioSummary{
		TotalProfit:      *raw.TotalProfit,
		ProfitPercentage: *raw.TotalProfitPercentage,
	}, nil
}

// ConvertPortfolioHistory returns the series sorted by time ascending.
func ConvertPortfolioHistory(raw []apiModel.PortfolioSnapshot) ([]model.PortfolioSnapshot, error) {
	res := make([]model.PortfolioSnapshot, 0, len(raw))
	for _, r := range raw {
		if r.Date == nil {
			return nil, missing("date")
		}
		if r.Value == nil {
			return nil, missing("value")
		}
		date, err := parseDate(*r.Date)
		if err != nil {
			return nil, err
		}
		res = append(res, model.PortfolioSnapshot{Date: date, Value: *r.Value})
	}

	slices.SortStableFunc(res, func(a, b model.PortfolioSnapshot) int {
		return a.Date.Compare(b.Date)
	})

	return res, nil
}

func ConvertTotalValues(raw apiModel.TotalValues) (model.Allocation, error) {
	if raw.TotalEquityValue == nil {
		return model.Allocation{}, missing("total_equity_value")
	}
	if raw.TotalCommodityValue == nil {
		return model.Allocation{}, missing("total_commodity_value")
	}
	return model.Allocation{
		EquityValue:    *raw.TotalEquityValue,
		CommodityValue: *raw.TotalCommodityValue,
	}, nil
}

func ConvertWatchlists(raw []apiModel.Watchlist) ([]model.Watchlist, error) {
	res := make([]model.Watchlist, 0, len(raw))
	for _, r := range raw {
		if r.Wid == nil {
			return nil, missing("wid")
		}
		res = append(res, model.Watchlist{ID: *r.Wid, Name: r.Wname})
	}
	return res, nil
}

func ConvertWatchlistAssets(raw []apiModel.WatchlistAsset) ([]model.WatchlistAsset, error) {
	res := make([]model.WatchlistAsset, 0, len(raw))
	for _, r := range raw {
		if r.Aid == nil {
			return nil, missing("aid")
		}
		res = append(res, model.WatchlistAsset{AssetID: *r.Aid, Name: r.Name, CurrentPrice: r.CurrentPrice})
	}
	return res, nil
}

func FundsActionRequest(action model.FundsAction) apiModel.FundsRequest {
	return apiModel.FundsRequest{
		Type:        string(action.Type),
		Action:      string(action.Operation),
		Amount:      action.Amount.InexactFloat64(),
		PaymentMode: action.PaymentMode,
	}
}

func PlaceOrderRequest(order model.OrderRequest) apiModel.PlaceOrderRequest {
	return apiModel.PlaceOrderRequest{
		UID:   order.UserID,
		Aid:   order.AssetID,
		Qty:   order.Quantity,
		Otype: string(order.Side),
	}
}
