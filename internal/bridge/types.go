package bridge

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Address identifies an account on the home ledger (users and the operator).
type Address string

// TxHash is an external-chain transaction hash. The fixed length is part of
// the wire contract; anything that is not exactly 32 bytes never becomes a
// TxHash.
type TxHash [32]byte

// Protocol constants. Amounts are in satoshi-equivalent units, the fee in
// fee-token smallest units.
const (
	MinConfirmations  uint64 = 6
	BridgeFee         uint64 = 1000
	MaxTransferAmount uint64 = 100_000_000

	// Network names are short ASCII identifiers.
	MaxNetworkNameLen = 20
)

// DefaultNetworks is the supported-network set seeded at deployment when the
// configuration does not override it.
var DefaultNetworks = []string{"bitcoin", "ethereum"}

// OutboundTransfer is a user-initiated lock of funds destined for an external
// network. Created once by InitiateTransfer; the only mutation it ever sees
// is the one-way Processed flip via MarkProcessed.
type OutboundTransfer struct {
	ID               uint64  `json:"id"`
	Sender           Address `json:"sender"`
	RecipientAddress []byte  `json:"recipientAddress"`
	Amount           uint64  `json:"amount"`
	TargetNetwork    string  `json:"targetNetwork"`
	CreatedAtHeight  uint64  `json:"createdAtHeight"`
	Processed        bool    `json:"processed"`
}

// InboundRecord is an operator-attested credit for an event observed on an
// external network, keyed by that network's transaction hash. Its presence in
// the completed set is the replay guard; the record itself is immutable.
//
// TransferID is the global nonce snapshot taken when the record was written.
// It is descriptive metadata only and does not reference any outbound
// transfer.
type InboundRecord struct {
	TxHash           TxHash  `json:"txHash"`
	TransferID       uint64  `json:"transferId"`
	Amount           uint64  `json:"amount"`
	Recipient        Address `json:"recipient"`
	RecordedAtHeight uint64  `json:"recordedAtHeight"`
}

// Stats is the aggregate view returned by the stats query.
type Stats struct {
	TotalLocked      uint64
	NextTransferID   uint64
	Paused           bool
	MinConfirmations uint64
	BridgeFee        uint64
}

// ParseTxHash decodes a hex string (with or without 0x prefix) into a TxHash.
func ParseTxHash(s string) (TxHash, error) {
	var h TxHash
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("decode tx hash: %w", err)
	}
	if len(raw) != len(h) {
		return h, fmt.Errorf("tx hash must be %d bytes, got %d", len(h), len(raw))
	}
	copy(h[:], raw)
	return h, nil
}

func (h TxHash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

func (h TxHash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

func (h *TxHash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTxHash(s)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
