package orderChecker

import (
	"fmt"

	"github.com/KotFed0t/trading_terminal/internal/model"
	"github.com/KotFed0t/trading_terminal/internal/valuation"
	"github.com/shopspring/decimal"
)

const (
	ReasonInvalidQuantity    = "invalid quantity"
	ReasonExceedsMaxQuantity = "exceeds max quantity"
	ReasonExceedsMaxNotional = "exceeds max notional"
	ReasonPriceUnavailable   = "price unavailable"
	ReasonUnknownAsset       = "unknown asset"
	ReasonInvalidSide        = "invalid side"
)

type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("order rejected: %s", e.Reason)
}

func reject(reason string) error {
	return &ValidationError{Reason: reason}
}

// Checker holds the client-side admission limits. It keeps no state
// between calls.
type Checker struct {
	MaxQuantity int64
	MaxNotional decimal.Decimal
}

func New(maxQuantity int64, maxNotional decimal.Decimal) *Checker {
	return &Checker{MaxQuantity: maxQuantity, MaxNotional: maxNotional}
}

// Admit returns nil when the order may be sent to the backend, otherwise
// the first failed check as *ValidationError.
func (c *Checker) Admit(order model.OrderRequest, price decimal.NullDecimal) error {
	if order.Quantity <= 0 {
		return reject(ReasonInvalidQuantity)
	}
	if order.Quantity > c.MaxQuantity {
		return reject(ReasonExceedsMaxQuantity)
	}

	if !price.Valid {
		return reject(ReasonPriceUnavailable)
	}
	if valuation.Notional(order.Quantity, price.Decimal).GreaterThan(c.MaxNotional) {
		return reject(ReasonExceedsMaxNotional)
	}

	if order.AssetID <= 0 {
		return reject(ReasonUnknownAsset)
	}
	if order.Side != model.Buy && order.Side != model.Sell {
		return reject(ReasonInvalidSide)
	}

	return nil
}
