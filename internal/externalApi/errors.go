package externalApi

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("error not found")
	ErrBadPayload = errors.New("error unexpected payload shape")
)

// NetworkError is returned for a rejected request, a non-2xx response or a
// payload that does not match the expected shape.
type NetworkError struct {
	Op         string
	StatusCode int
	Message    string // backend "error" text when present
	Err        error
}

func (e *NetworkError) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s", e.Op, e.Err)
	default:
		return e.Op + ": network failure"
	}
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func IsNetworkError(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}
