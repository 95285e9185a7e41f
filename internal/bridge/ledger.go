// Package bridge implements the custodial ledger for a bridge between the
// home ledger and external networks: locked balances, outbound transfer
// records, operator-attested inbound completions, and the admin controls
// gating them.
package bridge

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/Rebeccayomide/BitcoinBridge/internal/hostledger"
)

// Ledger owns all bridge state. Every operation runs under a single lock and
// either commits in full or returns one of the package's Error values with
// state untouched. Funds movement is delegated to the host ledger's atomic
// transfer primitive; its failure aborts the whole operation.
type Ledger struct {
	mu sync.Mutex

	operator     Address
	custody      hostledger.Account
	feeRecipient hostledger.Account

	host     hostledger.Ledger
	store    *Store
	notifier Notifier
	logger   *zap.SugaredLogger

	paused         bool
	totalLocked    uint64
	nextTransferID uint64
	pending        map[uint64]*OutboundTransfer
	completed      map[TxHash]*InboundRecord
	networks       map[string]bool
	balances       map[Address]uint64
}

// Option configures a Ledger at construction time.
type Option func(*Ledger)

// WithCustodyAccount overrides the host-ledger account holding locked funds.
func WithCustodyAccount(acct hostledger.Account) Option {
	return func(l *Ledger) { l.custody = acct }
}

// WithFeeRecipient overrides the host-ledger account receiving bridge fees.
func WithFeeRecipient(acct hostledger.Account) Option {
	return func(l *Ledger) { l.feeRecipient = acct }
}

// WithSupportedNetworks replaces the seeded network allow-list.
func WithSupportedNetworks(networks []string) Option {
	return func(l *Ledger) {
		l.networks = make(map[string]bool, len(networks))
		for _, n := range networks {
			l.networks[n] = true
		}
	}
}

// WithStore enables write-through persistence and startup recovery.
func WithStore(store *Store) Option {
	return func(l *Ledger) { l.store = store }
}

// WithNotifier sets the event sink for successful mutations.
func WithNotifier(n Notifier) Option {
	return func(l *Ledger) { l.notifier = n }
}

// NewLedger creates a bridge ledger with zeroed counters and the default
// supported-network set.
func NewLedger(host hostledger.Ledger, operator Address, logger *zap.SugaredLogger, opts ...Option) *Ledger {
	l := &Ledger{
		operator:     operator,
		custody:      "bridge:custody",
		feeRecipient: "bridge:fees",
		host:         host,
		logger:       logger,
		pending:      make(map[uint64]*OutboundTransfer),
		completed:    make(map[TxHash]*InboundRecord),
		networks:     make(map[string]bool, len(DefaultNetworks)),
		balances:     make(map[Address]uint64),
	}
	for _, n := range DefaultNetworks {
		l.networks[n] = true
	}
	if l.logger == nil {
		l.logger = zap.NewNop().Sugar()
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Restore replays persisted state from the configured store. Call once at
// startup, before serving traffic. A fresh backend leaves the ledger in its
// seeded state.
func (l *Ledger) Restore(ctx context.Context) error {
	if l.store == nil {
		return nil
	}

	state, err := l.store.Load(ctx)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.pending = state.Transfers
	l.completed = state.Completions
	l.balances = state.Balances
	if len(state.Networks) > 0 {
		l.networks = state.Networks
	}
	l.nextTransferID = state.Nonce
	l.totalLocked = state.TotalLocked
	l.paused = state.Paused

	l.logger.Infow("bridge state restored",
		"transfers", len(l.pending),
		"completions", len(l.completed),
		"nextTransferId", l.nextTransferID,
		"totalLocked", l.totalLocked,
		"paused", l.paused,
	)
	return nil
}

// InitiateTransfer locks amount from the caller into custody, routes the
// bridge fee to the fee recipient, and records a new outbound transfer.
// Returns the assigned transfer id.
func (l *Ledger) InitiateTransfer(ctx context.Context, caller Address, amount uint64, recipient []byte, network string) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.paused {
		return 0, ErrBridgePaused
	}
	if amount == 0 || amount > MaxTransferAmount {
		return 0, ErrInvalidAmount
	}
	if !l.networks[network] {
		return 0, ErrUnsupportedNetwork
	}

	err := l.host.Transfer(ctx, hostledger.Account(caller),
		hostledger.Output{To: l.custody, Amount: amount},
		hostledger.Output{To: l.feeRecipient, Amount: BridgeFee},
	)
	if err != nil {
		return 0, mapHostError(err)
	}

	id := l.nextTransferID
	l.nextTransferID++
	l.totalLocked += amount
	l.balances[caller] += amount

	transfer := &OutboundTransfer{
		ID:               id,
		Sender:           caller,
		RecipientAddress: recipient,
		Amount:           amount,
		TargetNetwork:    network,
		CreatedAtHeight:  l.host.Height(ctx),
		Processed:        false,
	}
	l.pending[id] = transfer

	l.persist(ctx, "transfer", func() error { return l.store.SaveTransfer(ctx, transfer) })
	l.persist(ctx, "balance", func() error { return l.store.SaveBalance(ctx, caller, l.balances[caller]) })
	l.persist(ctx, "counters", func() error { return l.store.SaveCounters(ctx, l.nextTransferID, l.totalLocked) })

	l.notify(EventTransferInitiated, TransferInitiatedEvent{
		TransferID:    id,
		Amount:        amount,
		TargetNetwork: network,
	})
	l.logger.Infow("outbound transfer initiated",
		"transferId", id,
		"sender", caller,
		"amount", amount,
		"network", network,
	)

	return id, nil
}

// CompleteIncomingTransfer credits an operator-attested external-chain event
// to the recipient from custody. The external tx hash is the replay guard: a
// second call with the same hash returns ErrAlreadyProcessed and credits
// nothing.
func (l *Ledger) CompleteIncomingTransfer(ctx context.Context, caller Address, txHash TxHash, amount uint64, recipient Address, confirmations uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.operator {
		return ErrUnauthorized
	}
	if confirmations < MinConfirmations {
		return ErrInsufficientConfirmations
	}
	if _, exists := l.completed[txHash]; exists {
		return ErrAlreadyProcessed
	}
	if amount == 0 {
		return ErrInvalidAmount
	}

	err := l.host.Transfer(ctx, l.custody, hostledger.Output{To: hostledger.Account(recipient), Amount: amount})
	if err != nil {
		return mapHostError(err)
	}

	// TransferID is the nonce snapshot at call time. It does not reference
	// any pending transfer; inbound and outbound flows are unlinked.
	record := &InboundRecord{
		TxHash:           txHash,
		TransferID:       l.nextTransferID,
		Amount:           amount,
		Recipient:        recipient,
		RecordedAtHeight: l.host.Height(ctx),
	}
	l.completed[txHash] = record

	l.persist(ctx, "completion", func() error { return l.store.SaveCompletion(ctx, record) })

	l.notify(EventTransferCompleted, TransferCompletedEvent{
		TxHash:    txHash,
		Amount:    amount,
		Recipient: recipient,
	})
	l.logger.Infow("inbound transfer completed",
		"txHash", txHash,
		"amount", amount,
		"recipient", recipient,
		"confirmations", confirmations,
	)

	return nil
}

// MarkProcessed acknowledges that the off-ledger relay delivered the asset
// for an outbound transfer on its target network. Bookkeeping only; no funds
// move. The flag flips false to true exactly once.
func (l *Ledger) MarkProcessed(ctx context.Context, caller Address, transferID uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.operator {
		return ErrUnauthorized
	}
	transfer, exists := l.pending[transferID]
	if !exists {
		return ErrTransferNotFound
	}
	if transfer.Processed {
		return ErrAlreadyProcessed
	}

	transfer.Processed = true

	l.persist(ctx, "transfer", func() error { return l.store.SaveTransfer(ctx, transfer) })

	l.notify(EventTransferProcessed, TransferProcessedEvent{TransferID: transferID})
	l.logger.Infow("outbound transfer marked processed", "transferId", transferID)

	return nil
}

// TogglePause flips the pause flag and returns the new state.
func (l *Ledger) TogglePause(ctx context.Context, caller Address) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.operator {
		return false, ErrUnauthorized
	}

	l.paused = !l.paused

	l.persist(ctx, "paused", func() error { return l.store.SavePaused(ctx, l.paused) })

	l.notify(EventPauseToggled, PauseToggledEvent{Paused: l.paused})
	l.logger.Infow("pause toggled", "paused", l.paused)

	return l.paused, nil
}

// UpdateNetworkSupport upserts the allow-list entry for a network. Adding and
// disabling are the same operation.
func (l *Ledger) UpdateNetworkSupport(ctx context.Context, caller Address, network string, active bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.operator {
		return ErrUnauthorized
	}
	if len(network) == 0 || len(network) > MaxNetworkNameLen {
		return ErrUnsupportedNetwork
	}

	l.networks[network] = active

	l.persist(ctx, "network", func() error { return l.store.SaveNetwork(ctx, network, active) })

	l.notify(EventNetworkUpdated, NetworkUpdatedEvent{Network: network, Active: active})
	l.logger.Infow("network support updated", "network", network, "active", active)

	return nil
}

// EmergencyWithdraw moves amount from custody to the operator while the
// bridge is paused. It deliberately does not touch totalLocked or any user
// balance, so custody and totalLocked diverge permanently afterwards; the
// divergence is logged and reported by Stats rather than reconciled.
func (l *Ledger) EmergencyWithdraw(ctx context.Context, caller Address, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.operator {
		return ErrUnauthorized
	}
	if !l.paused {
		return ErrBridgePaused
	}

	err := l.host.Transfer(ctx, l.custody, hostledger.Output{To: hostledger.Account(caller), Amount: amount})
	if err != nil {
		return mapHostError(err)
	}

	l.notify(EventEmergencyWithdrawal, EmergencyWithdrawalEvent{Amount: amount, To: caller})
	l.logger.Warnw("emergency withdrawal executed",
		"amount", amount,
		"to", caller,
		"totalLocked", l.totalLocked,
		"custodyBalance", l.host.BalanceOf(ctx, l.custody),
	)

	return nil
}

// GetTransfer returns a copy of the outbound transfer with the given id.
func (l *Ledger) GetTransfer(transferID uint64) (OutboundTransfer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	transfer, exists := l.pending[transferID]
	if !exists {
		return OutboundTransfer{}, ErrTransferNotFound
	}
	return *transfer, nil
}

// GetCompletedTransfer returns a copy of the inbound record for the given
// external tx hash.
func (l *Ledger) GetCompletedTransfer(txHash TxHash) (InboundRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	record, exists := l.completed[txHash]
	if !exists {
		return InboundRecord{}, ErrTransferNotFound
	}
	return *record, nil
}

// GetUserBalance returns the user's recorded locked balance, zero when
// absent.
func (l *Ledger) GetUserBalance(user Address) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[user]
}

// IsNetworkSupported reports whether a network is present and active.
func (l *Ledger) IsNetworkSupported(network string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.networks[network]
}

// Stats returns the aggregate bridge counters.
func (l *Ledger) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	return Stats{
		TotalLocked:      l.totalLocked,
		NextTransferID:   l.nextTransferID,
		Paused:           l.paused,
		MinConfirmations: MinConfirmations,
		BridgeFee:        BridgeFee,
	}
}

// CustodyBalance returns the host-ledger balance of the custody account.
func (l *Ledger) CustodyBalance(ctx context.Context) uint64 {
	return l.host.BalanceOf(ctx, l.custody)
}

// Operator returns the configured operator identity.
func (l *Ledger) Operator() Address {
	return l.operator
}

func (l *Ledger) persist(ctx context.Context, what string, fn func() error) {
	if l.store == nil {
		return
	}
	if err := fn(); err != nil {
		l.logger.Warnw("state write-through failed", "what", what, "error", err)
	}
}

func (l *Ledger) notify(eventType string, payload any) {
	if l.notifier == nil {
		return
	}
	l.notifier.Notify(eventType, payload)
}

func mapHostError(err error) error {
	if errors.Is(err, hostledger.ErrInvalidAmount) {
		return ErrInvalidAmount
	}
	return ErrInsufficientFunds
}
