package bridge

// Event types emitted after each committed mutation. Events are
// fire-and-forget notifications for external observers and relays; they are
// not part of the state machine's correctness.
const (
	EventTransferInitiated   = "transfer_initiated"
	EventTransferCompleted   = "transfer_completed"
	EventTransferProcessed   = "transfer_processed"
	EventPauseToggled        = "pause_toggled"
	EventNetworkUpdated      = "network_updated"
	EventEmergencyWithdrawal = "emergency_withdrawal"
)

// Notifier receives event payloads from the ledger. Implementations must not
// block: the ledger calls Notify while holding its lock.
type Notifier interface {
	Notify(eventType string, payload any)
}

type TransferInitiatedEvent struct {
	TransferID    uint64 `json:"transferId"`
	Amount        uint64 `json:"amount"`
	TargetNetwork string `json:"targetNetwork"`
}

type TransferCompletedEvent struct {
	TxHash    TxHash  `json:"txHash"`
	Amount    uint64  `json:"amount"`
	Recipient Address `json:"recipient"`
}

type TransferProcessedEvent struct {
	TransferID uint64 `json:"transferId"`
}

type PauseToggledEvent struct {
	Paused bool `json:"paused"`
}

type NetworkUpdatedEvent struct {
	Network string `json:"network"`
	Active  bool   `json:"active"`
}

type EmergencyWithdrawalEvent struct {
	Amount uint64  `json:"amount"`
	To     Address `json:"to"`
}
