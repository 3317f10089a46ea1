package model

import "github.com/shopspring/decimal"

type Watchlist struct {
	ID   int64
	Name string
}

type WatchlistAsset struct {
	AssetID      int64
	Name         string
	CurrentPrice decimal.NullDecimal
}
