package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderSide string

const (
	Buy  OrderSide = "Buy"
	Sell OrderSide = "Sell"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "Pending"
	OrderCompleted OrderStatus = "Completed"
)

type Order struct {
	ID        int64
	UserID    int64
	AssetID   int64
	AssetName string
	Quantity  int64
	Side      OrderSide
	Status    OrderStatus
	Date      time.Time
	Price     decimal.Decimal
}

// OrderRequest is a prospective order before admission.
type OrderRequest struct {
	UserID   int64
	AssetID  int64
	Quantity int64
	Side     OrderSide
}

type OrdersBook struct {
	Pending   []Order
	Completed []Order
}
