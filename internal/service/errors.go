package service

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound        = errors.New("error not found")
	ErrNoAccount       = errors.New("error no account selected")
	ErrNoAssetSelected = errors.New("error no asset selected")
	ErrOrderCompleted  = errors.New("error order already completed")
	ErrInvalidFunds    = errors.New("error invalid funds action")
	ErrEmptyName       = errors.New("error empty name")
)

// StaleDataWarning means the topic's last fetch failed and the shown value
// is the last good one.
type StaleDataWarning struct {
	Topic string
	Err   error
	Since time.Time
}

func (w *StaleDataWarning) Error() string {
	return fmt.Sprintf("stale %s since %s: %v", w.Topic, w.Since.Format(time.TimeOnly), w.Err)
}

func (w *StaleDataWarning) Unwrap() error {
	return w.Err
}
