package model

// Session is the application context of the single signed-in user.
// Zero ids mean "nothing selected".
type Session struct {
	UserID              int64
	SelectedAssetID     int64
	SelectedWatchlistID int64
	SearchQuery         string
}
