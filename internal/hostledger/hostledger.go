// Package hostledger models the home ledger's native asset-transfer
// primitive: a single atomic, fallible debit/credit with no partial effect,
// plus balance lookup and an opaque, monotonically non-decreasing height
// counter. The bridge treats any failure of the primitive as fatal to the
// whole operation.
package hostledger

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("invalid amount")
)

// Account identifies a balance on the home ledger.
type Account string

// Output is one credit leg of a transfer.
type Output struct {
	To     Account
	Amount uint64
}

// Ledger is the host environment's transfer primitive. Transfer debits the
// sum of all outputs from one account and credits each output, atomically:
// either every leg applies or none does.
type Ledger interface {
	Transfer(ctx context.Context, from Account, outs ...Output) error
	BalanceOf(ctx context.Context, acct Account) uint64
	Height(ctx context.Context) uint64
}

// InMemory is an in-process account book implementing Ledger. Each committed
// transfer advances the height counter by one, standing in for the host
// chain's block height.
type InMemory struct {
	mu       sync.Mutex
	balances map[Account]uint64
	height   uint64
}

// NewInMemory creates a ledger seeded with the given genesis allocations.
func NewInMemory(genesis map[Account]uint64) *InMemory {
	balances := make(map[Account]uint64, len(genesis))
	for acct, amount := range genesis {
		balances[acct] = amount
	}
	return &InMemory{balances: balances}
}

func (l *InMemory) Transfer(_ context.Context, from Account, outs ...Output) error {
	if len(outs) == 0 {
		return ErrInvalidAmount
	}

	var total uint64
	for _, out := range outs {
		if out.Amount == 0 {
			return ErrInvalidAmount
		}
		next := total + out.Amount
		if next < total {
			return ErrInvalidAmount
		}
		total = next
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balances[from] < total {
		return ErrInsufficientFunds
	}

	l.balances[from] -= total
	for _, out := range outs {
		l.balances[out.To] += out.Amount
	}
	l.height++

	return nil
}

func (l *InMemory) BalanceOf(_ context.Context, acct Account) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[acct]
}

func (l *InMemory) Height(_ context.Context) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.height
}
