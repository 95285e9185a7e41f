package hostledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryTransfer(t *testing.T) {
	ctx := context.Background()

	t.Run("single output moves funds", func(t *testing.T) {
		l := NewInMemory(map[Account]uint64{"alice": 100})

		err := l.Transfer(ctx, "alice", Output{To: "bob", Amount: 40})
		require.NoError(t, err)

		assert.Equal(t, uint64(60), l.BalanceOf(ctx, "alice"))
		assert.Equal(t, uint64(40), l.BalanceOf(ctx, "bob"))
	})

	t.Run("multi output is all or nothing", func(t *testing.T) {
		l := NewInMemory(map[Account]uint64{"alice": 100})

		err := l.Transfer(ctx, "alice",
			Output{To: "custody", Amount: 90},
			Output{To: "fees", Amount: 20},
		)
		require.ErrorIs(t, err, ErrInsufficientFunds)

		assert.Equal(t, uint64(100), l.BalanceOf(ctx, "alice"))
		assert.Zero(t, l.BalanceOf(ctx, "custody"))
		assert.Zero(t, l.BalanceOf(ctx, "fees"))
	})

	t.Run("multi output debits the sum", func(t *testing.T) {
		l := NewInMemory(map[Account]uint64{"alice": 100})

		err := l.Transfer(ctx, "alice",
			Output{To: "custody", Amount: 70},
			Output{To: "fees", Amount: 30},
		)
		require.NoError(t, err)

		assert.Zero(t, l.BalanceOf(ctx, "alice"))
		assert.Equal(t, uint64(70), l.BalanceOf(ctx, "custody"))
		assert.Equal(t, uint64(30), l.BalanceOf(ctx, "fees"))
	})

	t.Run("zero amount rejected", func(t *testing.T) {
		l := NewInMemory(map[Account]uint64{"alice": 100})

		err := l.Transfer(ctx, "alice", Output{To: "bob", Amount: 0})
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("no outputs rejected", func(t *testing.T) {
		l := NewInMemory(map[Account]uint64{"alice": 100})

		err := l.Transfer(ctx, "alice")
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("unknown sender has zero balance", func(t *testing.T) {
		l := NewInMemory(nil)

		err := l.Transfer(ctx, "ghost", Output{To: "bob", Amount: 1})
		assert.ErrorIs(t, err, ErrInsufficientFunds)
	})
}

func TestInMemoryHeight(t *testing.T) {
	ctx := context.Background()
	l := NewInMemory(map[Account]uint64{"alice": 100})

	assert.Zero(t, l.Height(ctx))

	require.NoError(t, l.Transfer(ctx, "alice", Output{To: "bob", Amount: 1}))
	assert.Equal(t, uint64(1), l.Height(ctx))

	// Failed transfers do not advance the height.
	require.Error(t, l.Transfer(ctx, "alice", Output{To: "bob", Amount: 10_000}))
	assert.Equal(t, uint64(1), l.Height(ctx))

	require.NoError(t, l.Transfer(ctx, "alice", Output{To: "bob", Amount: 2}))
	assert.Equal(t, uint64(2), l.Height(ctx))
}
