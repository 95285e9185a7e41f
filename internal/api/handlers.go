package api

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Rebeccayomide/BitcoinBridge/internal/bridge"
	"github.com/Rebeccayomide/BitcoinBridge/internal/events"
)

// MetricsRecorder is the subset of metrics the handlers record.
type MetricsRecorder interface {
	RecordHTTPRequest(ctx context.Context, method, path string, status int, duration time.Duration)
	RecordTransferInitiated(ctx context.Context, network string)
	RecordInboundCredit(ctx context.Context)
	RecordRejection(ctx context.Context, operation string, code int)
	IncrementSubscribers(ctx context.Context)
	DecrementSubscribers(ctx context.Context)
}

type Handler struct {
	ledger  *bridge.Ledger
	hub     *events.Hub
	logger  *zap.SugaredLogger
	metrics MetricsRecorder
}

func NewHandler(ledger *bridge.Ledger, hub *events.Hub, logger *zap.SugaredLogger, metrics MetricsRecorder) *Handler {
	return &Handler{
		ledger:  ledger,
		hub:     hub,
		logger:  logger,
		metrics: metrics,
	}
}

// callerAddress extracts the caller identity from the X-User-Address header.
func callerAddress(r *http.Request) bridge.Address {
	return bridge.Address(strings.TrimSpace(r.Header.Get("X-User-Address")))
}

// InitiateTransfer handles POST /v1/bridge/transfers.
func (h *Handler) InitiateTransfer(w http.ResponseWriter, r *http.Request) {
	caller := callerAddress(r)
	if caller == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_ADDRESS", "X-User-Address header is required")
		return
	}

	var req InitiateTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}

	recipient, err := decodeRecipient(req.RecipientAddress)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_RECIPIENT", err.Error())
		return
	}

	id, err := h.ledger.InitiateTransfer(r.Context(), caller, req.Amount, recipient, req.TargetNetwork)
	if err != nil {
		h.writeBridgeError(w, r, "initiate_transfer", err)
		return
	}

	h.metrics.RecordTransferInitiated(r.Context(), req.TargetNetwork)
	h.writeJSON(w, http.StatusCreated, InitiateTransferResponse{TransferID: id})
}

// CompleteTransfer handles POST /v1/bridge/completions.
func (h *Handler) CompleteTransfer(w http.ResponseWriter, r *http.Request) {
	caller := callerAddress(r)
	if caller == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_ADDRESS", "X-User-Address header is required")
		return
	}

	var req CompleteTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}

	txHash, err := bridge.ParseTxHash(req.TxHash)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_TX_HASH", err.Error())
		return
	}

	err = h.ledger.CompleteIncomingTransfer(r.Context(), caller, txHash, req.Amount,
		bridge.Address(req.Recipient), req.Confirmations)
	if err != nil {
		h.writeBridgeError(w, r, "complete_incoming_transfer", err)
		return
	}

	h.metrics.RecordInboundCredit(r.Context())
	h.writeJSON(w, http.StatusOK, StatusDTO{Success: true})
}

// MarkProcessed handles POST /v1/bridge/transfers/{id}/processed.
func (h *Handler) MarkProcessed(w http.ResponseWriter, r *http.Request) {
	caller := callerAddress(r)
	if caller == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_ADDRESS", "X-User-Address header is required")
		return
	}

	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_TRANSFER_ID", "transfer id must be an unsigned integer")
		return
	}

	if err := h.ledger.MarkProcessed(r.Context(), caller, id); err != nil {
		h.writeBridgeError(w, r, "mark_processed", err)
		return
	}

	h.writeJSON(w, http.StatusOK, StatusDTO{Success: true})
}

// TogglePause handles POST /v1/bridge/pause.
func (h *Handler) TogglePause(w http.ResponseWriter, r *http.Request) {
	caller := callerAddress(r)
	if caller == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_ADDRESS", "X-User-Address header is required")
		return
	}

	paused, err := h.ledger.TogglePause(r.Context(), caller)
	if err != nil {
		h.writeBridgeError(w, r, "toggle_pause", err)
		return
	}

	h.writeJSON(w, http.StatusOK, PauseDTO{Paused: paused})
}

// UpdateNetwork handles PUT /v1/bridge/networks.
func (h *Handler) UpdateNetwork(w http.ResponseWriter, r *http.Request) {
	caller := callerAddress(r)
	if caller == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_ADDRESS", "X-User-Address header is required")
		return
	}

	var req UpdateNetworkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}

	if err := h.ledger.UpdateNetworkSupport(r.Context(), caller, req.Network, req.Active); err != nil {
		h.writeBridgeError(w, r, "update_network_support", err)
		return
	}

	h.writeJSON(w, http.StatusOK, NetworkDTO{Network: req.Network, Supported: req.Active})
}

// EmergencyWithdraw handles POST /v1/bridge/withdrawals/emergency.
func (h *Handler) EmergencyWithdraw(w http.ResponseWriter, r *http.Request) {
	caller := callerAddress(r)
	if caller == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_ADDRESS", "X-User-Address header is required")
		return
	}

	var req EmergencyWithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}

	if err := h.ledger.EmergencyWithdraw(r.Context(), caller, req.Amount); err != nil {
		h.writeBridgeError(w, r, "emergency_withdraw", err)
		return
	}

	h.writeJSON(w, http.StatusOK, StatusDTO{Success: true})
}

// GetTransfer handles GET /v1/bridge/transfers/{id}.
func (h *Handler) GetTransfer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_TRANSFER_ID", "transfer id must be an unsigned integer")
		return
	}

	transfer, err := h.ledger.GetTransfer(id)
	if err != nil {
		h.writeBridgeError(w, r, "get_transfer", err)
		return
	}

	h.writeJSON(w, http.StatusOK, TransferDTO{
		ID:               transfer.ID,
		Sender:           string(transfer.Sender),
		RecipientAddress: "0x" + hex.EncodeToString(transfer.RecipientAddress),
		Amount:           transfer.Amount,
		AmountBTC:        satsToBTC(transfer.Amount),
		TargetNetwork:    transfer.TargetNetwork,
		CreatedAtHeight:  transfer.CreatedAtHeight,
		Processed:        transfer.Processed,
	})
}

// GetCompletion handles GET /v1/bridge/completions/{txHash}.
func (h *Handler) GetCompletion(w http.ResponseWriter, r *http.Request) {
	txHash, err := bridge.ParseTxHash(chi.URLParam(r, "txHash"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_TX_HASH", err.Error())
		return
	}

	record, err := h.ledger.GetCompletedTransfer(txHash)
	if err != nil {
		h.writeBridgeError(w, r, "get_completed_transfer", err)
		return
	}

	h.writeJSON(w, http.StatusOK, CompletionDTO{
		TxHash:           record.TxHash.String(),
		TransferID:       record.TransferID,
		Amount:           record.Amount,
		AmountBTC:        satsToBTC(record.Amount),
		Recipient:        string(record.Recipient),
		RecordedAtHeight: record.RecordedAtHeight,
	})
}

// GetBalance handles GET /v1/bridge/balances/{address}.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	balance := h.ledger.GetUserBalance(bridge.Address(address))

	h.writeJSON(w, http.StatusOK, BalanceDTO{
		Address:    address,
		Balance:    balance,
		BalanceBTC: satsToBTC(balance),
	})
}

// GetNetwork handles GET /v1/bridge/networks/{name}.
func (h *Handler) GetNetwork(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	h.writeJSON(w, http.StatusOK, NetworkDTO{
		Network:   name,
		Supported: h.ledger.IsNetworkSupported(name),
	})
}

// GetStats handles GET /v1/bridge/stats.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := h.ledger.Stats()
	custody := h.ledger.CustodyBalance(r.Context())

	h.writeJSON(w, http.StatusOK, StatsDTO{
		TotalLocked:       stats.TotalLocked,
		TotalLockedBTC:    satsToBTC(stats.TotalLocked),
		NextTransferID:    stats.NextTransferID,
		Paused:            stats.Paused,
		MinConfirmations:  stats.MinConfirmations,
		BridgeFee:         stats.BridgeFee,
		CustodyBalance:    custody,
		CustodyBalanceBTC: satsToBTC(custody),
		Divergence:        int64(stats.TotalLocked) - int64(custody),
	})
}

// GetCustody handles GET /v1/bridge/custody.
func (h *Handler) GetCustody(w http.ResponseWriter, r *http.Request) {
	balance := h.ledger.CustodyBalance(r.Context())

	h.writeJSON(w, http.StatusOK, CustodyDTO{
		Balance:    balance,
		BalanceBTC: satsToBTC(balance),
	})
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("READY"))
}

func decodeRecipient(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" {
		return nil, errors.New("recipient address is required")
	}
	return hex.DecodeString(s)
}

// Utility methods
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	h.logger.Errorw("API error", "code", code, "message", message, "status", status)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := ErrorResponse{
		Code:    code,
		Message: message,
	}
	json.NewEncoder(w).Encode(err)
}

// writeBridgeError maps a rejected ledger transition to its HTTP shape and
// records the rejection.
func (h *Handler) writeBridgeError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	var bridgeErr *bridge.Error
	if !errors.As(err, &bridgeErr) {
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}

	h.metrics.RecordRejection(r.Context(), operation, bridgeErr.Code)
	h.writeError(w, statusForBridgeError(bridgeErr), codeForBridgeError(bridgeErr), bridgeErr.Error())
}

func statusForBridgeError(err *bridge.Error) int {
	switch err {
	case bridge.ErrUnauthorized:
		return http.StatusForbidden
	case bridge.ErrTransferNotFound:
		return http.StatusNotFound
	case bridge.ErrAlreadyProcessed, bridge.ErrBridgePaused:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func codeForBridgeError(err *bridge.Error) string {
	return strings.ToUpper(strings.ReplaceAll(err.Name, " ", "_"))
}
