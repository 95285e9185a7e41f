package bridge

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Rebeccayomide/BitcoinBridge/internal/hostledger"
	"github.com/Rebeccayomide/BitcoinBridge/pkg/kv/memory"
)

const (
	testOperator Address = "operator"
	testUser     Address = "alice"
	testUser2    Address = "bob"
)

func testRecipient() []byte {
	return []byte{0xde, 0xad, 0xbe, 0xef}
}

func newTestHost() *hostledger.InMemory {
	return hostledger.NewInMemory(map[hostledger.Account]uint64{
		hostledger.Account(testUser):  1_000_000_000,
		hostledger.Account(testUser2): 1_000_000_000,
	})
}

func newTestLedger(opts ...Option) (*Ledger, *hostledger.InMemory) {
	host := newTestHost()
	l := NewLedger(host, testOperator, zap.NewNop().Sugar(), opts...)
	return l, host
}

func TestInitiateTransfer(t *testing.T) {
	ctx := context.Background()

	t.Run("success locks funds and assigns ids in order", func(t *testing.T) {
		l, host := newTestLedger()

		id, err := l.InitiateTransfer(ctx, testUser, 50_000_000, testRecipient(), "ethereum")
		require.NoError(t, err)
		assert.Equal(t, uint64(0), id)

		id, err = l.InitiateTransfer(ctx, testUser, 1_000_000, testRecipient(), "bitcoin")
		require.NoError(t, err)
		assert.Equal(t, uint64(1), id)

		assert.Equal(t, uint64(51_000_000), l.GetUserBalance(testUser))

		stats := l.Stats()
		assert.Equal(t, uint64(51_000_000), stats.TotalLocked)
		assert.Equal(t, uint64(2), stats.NextTransferID)

		// amount to custody, fee to the fee recipient, both debited from the caller
		assert.Equal(t, uint64(51_000_000), host.BalanceOf(ctx, "bridge:custody"))
		assert.Equal(t, 2*BridgeFee, host.BalanceOf(ctx, "bridge:fees"))
		assert.Equal(t, uint64(1_000_000_000-51_000_000)-2*BridgeFee,
			host.BalanceOf(ctx, hostledger.Account(testUser)))
	})

	t.Run("new transfer starts unprocessed", func(t *testing.T) {
		l, _ := newTestLedger()

		id, err := l.InitiateTransfer(ctx, testUser, 100, testRecipient(), "bitcoin")
		require.NoError(t, err)

		transfer, err := l.GetTransfer(id)
		require.NoError(t, err)
		assert.False(t, transfer.Processed)
		assert.Equal(t, testUser, transfer.Sender)
		assert.Equal(t, uint64(100), transfer.Amount)
		assert.Equal(t, "bitcoin", transfer.TargetNetwork)
		assert.Equal(t, testRecipient(), transfer.RecipientAddress)
	})

	t.Run("validation order and error codes", func(t *testing.T) {
		tests := []struct {
			name    string
			caller  Address
			amount  uint64
			network string
			wantErr *Error
		}{
			{"zero amount", testUser, 0, "bitcoin", ErrInvalidAmount},
			{"amount above cap", testUser, MaxTransferAmount + 1, "bitcoin", ErrInvalidAmount},
			{"unknown network", testUser, 100, "dogecoin", ErrUnsupportedNetwork},
			{"insufficient funds", "pauper", 100, "bitcoin", ErrInsufficientFunds},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				l, _ := newTestLedger()

				_, err := l.InitiateTransfer(ctx, tt.caller, tt.amount, testRecipient(), tt.network)
				assert.ErrorIs(t, err, tt.wantErr)

				// rejected attempts never allocate an id or move funds
				stats := l.Stats()
				assert.Zero(t, stats.NextTransferID)
				assert.Zero(t, stats.TotalLocked)
				assert.Zero(t, l.GetUserBalance(tt.caller))
			})
		}
	})

	t.Run("amount at cap succeeds", func(t *testing.T) {
		l, _ := newTestLedger()

		_, err := l.InitiateTransfer(ctx, testUser, MaxTransferAmount, testRecipient(), "bitcoin")
		assert.NoError(t, err)
	})

	t.Run("disabled network rejected", func(t *testing.T) {
		l, _ := newTestLedger()
		require.NoError(t, l.UpdateNetworkSupport(ctx, testOperator, "ethereum", false))

		_, err := l.InitiateTransfer(ctx, testUser, 100, testRecipient(), "ethereum")
		assert.ErrorIs(t, err, ErrUnsupportedNetwork)
	})

	t.Run("paused rejects regardless of validity", func(t *testing.T) {
		l, _ := newTestLedger()
		_, err := l.TogglePause(ctx, testOperator)
		require.NoError(t, err)

		_, err = l.InitiateTransfer(ctx, testUser, 100, testRecipient(), "bitcoin")
		assert.ErrorIs(t, err, ErrBridgePaused)

		// even an otherwise-invalid call reports the pause first
		_, err = l.InitiateTransfer(ctx, testUser, 0, testRecipient(), "dogecoin")
		assert.ErrorIs(t, err, ErrBridgePaused)
	})

	t.Run("funds check covers the fee", func(t *testing.T) {
		host := hostledger.NewInMemory(map[hostledger.Account]uint64{
			hostledger.Account(testUser): 100, // exactly the amount, nothing for the fee
		})
		l := NewLedger(host, testOperator, zap.NewNop().Sugar())

		_, err := l.InitiateTransfer(ctx, testUser, 100, testRecipient(), "bitcoin")
		assert.ErrorIs(t, err, ErrInsufficientFunds)
		assert.Equal(t, uint64(100), host.BalanceOf(ctx, hostledger.Account(testUser)))
	})
}

func TestCompleteIncomingTransfer(t *testing.T) {
	ctx := context.Background()

	fundCustody := func(t *testing.T, l *Ledger) {
		t.Helper()
		_, err := l.InitiateTransfer(ctx, testUser2, 10_000_000, testRecipient(), "bitcoin")
		require.NoError(t, err)
	}

	txHash := func(b byte) TxHash {
		var h TxHash
		h[0] = b
		return h
	}

	t.Run("credits recipient from custody", func(t *testing.T) {
		l, host := newTestLedger()
		fundCustody(t, l)

		before := host.BalanceOf(ctx, hostledger.Account(testUser))
		err := l.CompleteIncomingTransfer(ctx, testOperator, txHash(1), 500_000, testUser, MinConfirmations)
		require.NoError(t, err)

		assert.Equal(t, before+500_000, host.BalanceOf(ctx, hostledger.Account(testUser)))
		assert.Equal(t, uint64(9_500_000), l.CustodyBalance(ctx))

		record, err := l.GetCompletedTransfer(txHash(1))
		require.NoError(t, err)
		assert.Equal(t, uint64(500_000), record.Amount)
		assert.Equal(t, testUser, record.Recipient)
	})

	t.Run("replay returns AlreadyProcessed without double credit", func(t *testing.T) {
		l, host := newTestLedger()
		fundCustody(t, l)

		require.NoError(t, l.CompleteIncomingTransfer(ctx, testOperator, txHash(2), 500_000, testUser, MinConfirmations))
		after := host.BalanceOf(ctx, hostledger.Account(testUser))

		err := l.CompleteIncomingTransfer(ctx, testOperator, txHash(2), 500_000, testUser, MinConfirmations)
		assert.ErrorIs(t, err, ErrAlreadyProcessed)
		assert.Equal(t, after, host.BalanceOf(ctx, hostledger.Account(testUser)))
	})

	t.Run("non-operator always unauthorized", func(t *testing.T) {
		l, _ := newTestLedger()
		fundCustody(t, l)

		err := l.CompleteIncomingTransfer(ctx, testUser, txHash(3), 500_000, testUser, MinConfirmations)
		assert.ErrorIs(t, err, ErrUnauthorized)

		// even with garbage arguments the authorization check wins
		err = l.CompleteIncomingTransfer(ctx, testUser, txHash(3), 0, testUser, 0)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("insufficient confirmations", func(t *testing.T) {
		l, _ := newTestLedger()
		fundCustody(t, l)

		err := l.CompleteIncomingTransfer(ctx, testOperator, txHash(4), 500_000, testUser, MinConfirmations-1)
		assert.ErrorIs(t, err, ErrInsufficientConfirmations)
	})

	t.Run("zero amount", func(t *testing.T) {
		l, _ := newTestLedger()
		fundCustody(t, l)

		err := l.CompleteIncomingTransfer(ctx, testOperator, txHash(5), 0, testUser, MinConfirmations)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("empty custody cannot credit", func(t *testing.T) {
		l, _ := newTestLedger()

		err := l.CompleteIncomingTransfer(ctx, testOperator, txHash(6), 500_000, testUser, MinConfirmations)
		assert.ErrorIs(t, err, ErrInsufficientFunds)

		_, err = l.GetCompletedTransfer(txHash(6))
		assert.ErrorIs(t, err, ErrTransferNotFound)
	})

	t.Run("record snapshots the nonce, not a transfer reference", func(t *testing.T) {
		l, _ := newTestLedger()
		fundCustody(t, l) // allocates transfer id 0, nonce is now 1

		require.NoError(t, l.CompleteIncomingTransfer(ctx, testOperator, txHash(7), 100, testUser, MinConfirmations))

		record, err := l.GetCompletedTransfer(txHash(7))
		require.NoError(t, err)
		assert.Equal(t, uint64(1), record.TransferID)

		// completing does not advance the nonce
		assert.Equal(t, uint64(1), l.Stats().NextTransferID)
	})
}

func TestMarkProcessed(t *testing.T) {
	ctx := context.Background()

	t.Run("flips the flag exactly once", func(t *testing.T) {
		l, _ := newTestLedger()

		id, err := l.InitiateTransfer(ctx, testUser, 100, testRecipient(), "bitcoin")
		require.NoError(t, err)

		require.NoError(t, l.MarkProcessed(ctx, testOperator, id))

		transfer, err := l.GetTransfer(id)
		require.NoError(t, err)
		assert.True(t, transfer.Processed)

		err = l.MarkProcessed(ctx, testOperator, id)
		assert.ErrorIs(t, err, ErrAlreadyProcessed)
	})

	t.Run("unknown id", func(t *testing.T) {
		l, _ := newTestLedger()

		err := l.MarkProcessed(ctx, testOperator, 42)
		assert.ErrorIs(t, err, ErrTransferNotFound)
	})

	t.Run("operator only", func(t *testing.T) {
		l, _ := newTestLedger()

		id, err := l.InitiateTransfer(ctx, testUser, 100, testRecipient(), "bitcoin")
		require.NoError(t, err)

		err = l.MarkProcessed(ctx, testUser, id)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}

func TestTogglePause(t *testing.T) {
	ctx := context.Background()

	t.Run("is its own inverse", func(t *testing.T) {
		l, _ := newTestLedger()

		paused, err := l.TogglePause(ctx, testOperator)
		require.NoError(t, err)
		assert.True(t, paused)

		paused, err = l.TogglePause(ctx, testOperator)
		require.NoError(t, err)
		assert.False(t, paused)
		assert.False(t, l.Stats().Paused)
	})

	t.Run("operator only", func(t *testing.T) {
		l, _ := newTestLedger()

		_, err := l.TogglePause(ctx, testUser)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}

func TestUpdateNetworkSupport(t *testing.T) {
	ctx := context.Background()

	t.Run("upserts and disables", func(t *testing.T) {
		l, _ := newTestLedger()

		assert.False(t, l.IsNetworkSupported("solana"))

		require.NoError(t, l.UpdateNetworkSupport(ctx, testOperator, "solana", true))
		assert.True(t, l.IsNetworkSupported("solana"))

		require.NoError(t, l.UpdateNetworkSupport(ctx, testOperator, "solana", false))
		assert.False(t, l.IsNetworkSupported("solana"))
	})

	t.Run("name length bounds", func(t *testing.T) {
		l, _ := newTestLedger()

		err := l.UpdateNetworkSupport(ctx, testOperator, "", true)
		assert.ErrorIs(t, err, ErrUnsupportedNetwork)

		err = l.UpdateNetworkSupport(ctx, testOperator, "way-too-long-network-name", true)
		assert.ErrorIs(t, err, ErrUnsupportedNetwork)
	})

	t.Run("operator only", func(t *testing.T) {
		l, _ := newTestLedger()

		err := l.UpdateNetworkSupport(ctx, testUser, "solana", true)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("default networks seeded", func(t *testing.T) {
		l, _ := newTestLedger()

		assert.True(t, l.IsNetworkSupported("bitcoin"))
		assert.True(t, l.IsNetworkSupported("ethereum"))
	})
}

func TestEmergencyWithdraw(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*Ledger, *hostledger.InMemory) {
		t.Helper()
		l, host := newTestLedger()
		_, err := l.InitiateTransfer(ctx, testUser, 1_000_000, testRecipient(), "bitcoin")
		require.NoError(t, err)
		return l, host
	}

	t.Run("requires pause", func(t *testing.T) {
		l, host := setup(t)
		before := host.BalanceOf(ctx, "bridge:custody")

		err := l.EmergencyWithdraw(ctx, testOperator, 500_000)
		assert.ErrorIs(t, err, ErrBridgePaused)
		assert.Equal(t, before, host.BalanceOf(ctx, "bridge:custody"))
	})

	t.Run("operator only", func(t *testing.T) {
		l, host := setup(t)
		_, err := l.TogglePause(ctx, testOperator)
		require.NoError(t, err)
		before := host.BalanceOf(ctx, "bridge:custody")

		err = l.EmergencyWithdraw(ctx, testUser, 500_000)
		assert.ErrorIs(t, err, ErrUnauthorized)
		assert.Equal(t, before, host.BalanceOf(ctx, "bridge:custody"))
	})

	t.Run("moves custody without touching bookkeeping", func(t *testing.T) {
		l, host := setup(t)
		_, err := l.TogglePause(ctx, testOperator)
		require.NoError(t, err)

		require.NoError(t, l.EmergencyWithdraw(ctx, testOperator, 400_000))

		assert.Equal(t, uint64(600_000), host.BalanceOf(ctx, "bridge:custody"))
		assert.Equal(t, uint64(400_000), host.BalanceOf(ctx, hostledger.Account(testOperator)))

		// totalLocked and user balances deliberately keep their old values
		assert.Equal(t, uint64(1_000_000), l.Stats().TotalLocked)
		assert.Equal(t, uint64(1_000_000), l.GetUserBalance(testUser))
	})

	t.Run("custody shortfall", func(t *testing.T) {
		l, _ := setup(t)
		_, err := l.TogglePause(ctx, testOperator)
		require.NoError(t, err)

		err = l.EmergencyWithdraw(ctx, testOperator, 2_000_000)
		assert.ErrorIs(t, err, ErrInsufficientFunds)
	})
}

func TestQueries(t *testing.T) {
	l, _ := newTestLedger()

	t.Run("unknown transfer", func(t *testing.T) {
		_, err := l.GetTransfer(99)
		assert.ErrorIs(t, err, ErrTransferNotFound)
	})

	t.Run("unknown completion", func(t *testing.T) {
		_, err := l.GetCompletedTransfer(TxHash{})
		assert.ErrorIs(t, err, ErrTransferNotFound)
	})

	t.Run("absent balance defaults to zero", func(t *testing.T) {
		assert.Zero(t, l.GetUserBalance("nobody"))
	})

	t.Run("stats carry the constants", func(t *testing.T) {
		stats := l.Stats()
		assert.Equal(t, MinConfirmations, stats.MinConfirmations)
		assert.Equal(t, BridgeFee, stats.BridgeFee)
	})
}

func TestErrorCodes(t *testing.T) {
	tests := []struct {
		err  *Error
		code int
	}{
		{ErrUnauthorized, 100},
		{ErrInvalidAmount, 101},
		{ErrTransferNotFound, 102},
		{ErrAlreadyProcessed, 103},
		{ErrInsufficientConfirmations, 104},
		{ErrUnsupportedNetwork, 105},
		{ErrBridgePaused, 106},
		{ErrInsufficientFunds, 107},
	}

	for _, tt := range tests {
		t.Run(tt.err.Name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Contains(t, tt.err.Error(), fmt.Sprintf("u%d", tt.code))
		})
	}
}

type captureNotifier struct {
	events []string
}

func (c *captureNotifier) Notify(eventType string, payload any) {
	c.events = append(c.events, eventType)
}

func TestEventsEmittedOnSuccessOnly(t *testing.T) {
	ctx := context.Background()
	notifier := &captureNotifier{}
	host := newTestHost()
	l := NewLedger(host, testOperator, zap.NewNop().Sugar(), WithNotifier(notifier))

	_, err := l.InitiateTransfer(ctx, testUser, 0, testRecipient(), "bitcoin")
	require.ErrorIs(t, err, ErrInvalidAmount)
	assert.Empty(t, notifier.events)

	id, err := l.InitiateTransfer(ctx, testUser, 100, testRecipient(), "bitcoin")
	require.NoError(t, err)
	require.NoError(t, l.MarkProcessed(ctx, testOperator, id))
	_, err = l.TogglePause(ctx, testOperator)
	require.NoError(t, err)

	assert.Equal(t, []string{
		EventTransferInitiated,
		EventTransferProcessed,
		EventPauseToggled,
	}, notifier.events)
}

func TestEndToEndScenario(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger()

	id, err := l.InitiateTransfer(ctx, testUser, 50_000_000, testRecipient(), "ethereum")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), id)

	assert.Equal(t, uint64(50_000_000), l.GetUserBalance(testUser))
	assert.Equal(t, uint64(50_000_000), l.Stats().TotalLocked)

	require.NoError(t, l.MarkProcessed(ctx, testOperator, 0))

	transfer, err := l.GetTransfer(0)
	require.NoError(t, err)
	assert.True(t, transfer.Processed)

	err = l.MarkProcessed(ctx, testOperator, 0)
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
}

func TestRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	backend := memory.New(0)
	defer backend.Close()
	store := NewStore(backend)

	host := newTestHost()
	l := NewLedger(host, testOperator, zap.NewNop().Sugar(), WithStore(store))

	id, err := l.InitiateTransfer(ctx, testUser, 123_456, testRecipient(), "ethereum")
	require.NoError(t, err)
	var h TxHash
	h[0] = 9
	require.NoError(t, l.CompleteIncomingTransfer(ctx, testOperator, h, 1_000, testUser2, MinConfirmations))
	require.NoError(t, l.UpdateNetworkSupport(ctx, testOperator, "solana", true))
	_, err = l.TogglePause(ctx, testOperator)
	require.NoError(t, err)

	// a second ledger over the same backend picks up where the first stopped
	restored := NewLedger(newTestHost(), testOperator, zap.NewNop().Sugar(), WithStore(store))
	require.NoError(t, restored.Restore(ctx))

	transfer, err := restored.GetTransfer(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(123_456), transfer.Amount)
	assert.Equal(t, testUser, transfer.Sender)

	record, err := restored.GetCompletedTransfer(h)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000), record.Amount)

	assert.Equal(t, uint64(123_456), restored.GetUserBalance(testUser))
	assert.True(t, restored.IsNetworkSupported("solana"))
	assert.True(t, restored.Stats().Paused)
	assert.Equal(t, uint64(1), restored.Stats().NextTransferID)
	assert.Equal(t, uint64(123_456), restored.Stats().TotalLocked)
}
