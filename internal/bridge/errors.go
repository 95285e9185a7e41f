package bridge

import "fmt"

// Error is a rejected state transition. The set below is closed: every
// failure a ledger operation can report is one of these values, each with a
// stable numeric code, and a failed operation leaves state untouched.
type Error struct {
	Code int
	Name string
}

func (e *Error) Error() string {
	return fmt.Sprintf("bridge: %s (err u%d)", e.Name, e.Code)
}

var (
	ErrUnauthorized              = &Error{Code: 100, Name: "unauthorized"}
	ErrInvalidAmount             = &Error{Code: 101, Name: "invalid amount"}
	ErrTransferNotFound          = &Error{Code: 102, Name: "transfer not found"}
	ErrAlreadyProcessed          = &Error{Code: 103, Name: "already processed"}
	ErrInsufficientConfirmations = &Error{Code: 104, Name: "insufficient confirmations"}
	ErrUnsupportedNetwork        = &Error{Code: 105, Name: "unsupported network"}
	ErrBridgePaused              = &Error{Code: 106, Name: "bridge paused"}
	ErrInsufficientFunds         = &Error{Code: 107, Name: "insufficient funds"}
)
