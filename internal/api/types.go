package api

import (
	"math/big"

	"github.com/shopspring/decimal"
)

type InitiateTransferRequest struct {
	Amount           uint64 `json:"amount"`
	RecipientAddress string `json:"recipientAddress"`
	TargetNetwork    string `json:"targetNetwork"`
}

type InitiateTransferResponse struct {
	TransferID uint64 `json:"transferId"`
}

type CompleteTransferRequest struct {
	TxHash        string `json:"txHash"`
	Amount        uint64 `json:"amount"`
	Recipient     string `json:"recipient"`
	Confirmations uint64 `json:"confirmations"`
}

type UpdateNetworkRequest struct {
	Network string `json:"network"`
	Active  bool   `json:"active"`
}

type EmergencyWithdrawRequest struct {
	Amount uint64 `json:"amount"`
}

type TransferDTO struct {
	ID               uint64 `json:"id"`
	Sender           string `json:"sender"`
	RecipientAddress string `json:"recipientAddress"`
	Amount           uint64 `json:"amount"`
	AmountBTC        string `json:"amountBtc"`
	TargetNetwork    string `json:"targetNetwork"`
	CreatedAtHeight  uint64 `json:"createdAtHeight"`
	Processed        bool   `json:"processed"`
}

type CompletionDTO struct {
	TxHash           string `json:"txHash"`
	TransferID       uint64 `json:"transferId"`
	Amount           uint64 `json:"amount"`
	AmountBTC        string `json:"amountBtc"`
	Recipient        string `json:"recipient"`
	RecordedAtHeight uint64 `json:"recordedAtHeight"`
}

type BalanceDTO struct {
	Address    string `json:"address"`
	Balance    uint64 `json:"balance"`
	BalanceBTC string `json:"balanceBtc"`
}

type NetworkDTO struct {
	Network   string `json:"network"`
	Supported bool   `json:"supported"`
}

type PauseDTO struct {
	Paused bool `json:"paused"`
}

type StatusDTO struct {
	Success bool `json:"success"`
}

// StatsDTO is the aggregate bridge view. Divergence is totalLocked minus the
// actual custody balance; it goes positive after emergency withdrawals and
// stays there (the bookkeeping gap is reported, not reconciled).
type StatsDTO struct {
	TotalLocked       uint64 `json:"totalLocked"`
	TotalLockedBTC    string `json:"totalLockedBtc"`
	NextTransferID    uint64 `json:"nextTransferId"`
	Paused            bool   `json:"paused"`
	MinConfirmations  uint64 `json:"minConfirmations"`
	BridgeFee         uint64 `json:"bridgeFee"`
	CustodyBalance    uint64 `json:"custodyBalance"`
	CustodyBalanceBTC string `json:"custodyBalanceBtc"`
	Divergence        int64  `json:"divergence"`
}

type CustodyDTO struct {
	Balance    uint64 `json:"balance"`
	BalanceBTC string `json:"balanceBtc"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// satsToBTC renders a satoshi amount as a BTC-denominated decimal string.
func satsToBTC(sats uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(sats), -8).String()
}
