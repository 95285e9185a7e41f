package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/Rebeccayomide/BitcoinBridge/pkg/kv"
)

// Keys under which ledger state lives in the kv backend. Records go into one
// hash per collection; counters and flags are plain string keys.
const (
	keyTransfers   = "bridge:transfers"
	keyCompletions = "bridge:completions"
	keyBalances    = "bridge:balances"
	keyNetworks    = "bridge:networks"
	keyNonce       = "bridge:nonce"
	keyTotalLocked = "bridge:total_locked"
	keyPaused      = "bridge:paused"
)

// Store write-throughs ledger state to a kv backend and restores it at
// startup. The in-memory ledger stays authoritative; callers treat write
// failures as log-and-continue, not as transition failures.
type Store struct {
	kv kv.Store
}

func NewStore(backend kv.Store) *Store {
	return &Store{kv: backend}
}

func (s *Store) SaveTransfer(ctx context.Context, t *OutboundTransfer) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal transfer %d: %w", t.ID, err)
	}
	return s.kv.HSet(ctx, keyTransfers, strconv.FormatUint(t.ID, 10), data)
}

func (s *Store) SaveCompletion(ctx context.Context, rec *InboundRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal completion %s: %w", rec.TxHash, err)
	}
	return s.kv.HSet(ctx, keyCompletions, rec.TxHash.String(), data)
}

func (s *Store) SaveBalance(ctx context.Context, addr Address, amount uint64) error {
	return s.kv.HSet(ctx, keyBalances, string(addr), []byte(strconv.FormatUint(amount, 10)))
}

func (s *Store) SaveNetwork(ctx context.Context, network string, active bool) error {
	return s.kv.HSet(ctx, keyNetworks, network, []byte(strconv.FormatBool(active)))
}

func (s *Store) SaveCounters(ctx context.Context, nonce, totalLocked uint64) error {
	if err := s.kv.SetString(ctx, keyNonce, strconv.FormatUint(nonce, 10)); err != nil {
		return err
	}
	return s.kv.SetString(ctx, keyTotalLocked, strconv.FormatUint(totalLocked, 10))
}

func (s *Store) SavePaused(ctx context.Context, paused bool) error {
	return s.kv.SetString(ctx, keyPaused, strconv.FormatBool(paused))
}

// State is the persisted snapshot loaded at startup.
type State struct {
	Transfers   map[uint64]*OutboundTransfer
	Completions map[TxHash]*InboundRecord
	Balances    map[Address]uint64
	Networks    map[string]bool
	Nonce       uint64
	TotalLocked uint64
	Paused      bool
}

// Load reads the full persisted snapshot. Missing collections and keys are
// treated as empty, so a fresh backend yields a zero State.
func (s *Store) Load(ctx context.Context) (*State, error) {
	state := &State{
		Transfers:   make(map[uint64]*OutboundTransfer),
		Completions: make(map[TxHash]*InboundRecord),
		Balances:    make(map[Address]uint64),
		Networks:    make(map[string]bool),
	}

	transfers, err := s.hGetAll(ctx, keyTransfers)
	if err != nil {
		return nil, err
	}
	for field, raw := range transfers {
		var t OutboundTransfer
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, fmt.Errorf("unmarshal transfer %s: %w", field, err)
		}
		state.Transfers[t.ID] = &t
	}

	completions, err := s.hGetAll(ctx, keyCompletions)
	if err != nil {
		return nil, err
	}
	for field, raw := range completions {
		var rec InboundRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("unmarshal completion %s: %w", field, err)
		}
		state.Completions[rec.TxHash] = &rec
	}

	balances, err := s.hGetAll(ctx, keyBalances)
	if err != nil {
		return nil, err
	}
	for addr, raw := range balances {
		amount, err := strconv.ParseUint(string(raw), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse balance for %s: %w", addr, err)
		}
		state.Balances[Address(addr)] = amount
	}

	networks, err := s.hGetAll(ctx, keyNetworks)
	if err != nil {
		return nil, err
	}
	for name, raw := range networks {
		active, err := strconv.ParseBool(string(raw))
		if err != nil {
			return nil, fmt.Errorf("parse network flag for %s: %w", name, err)
		}
		state.Networks[name] = active
	}

	if state.Nonce, err = s.getUint(ctx, keyNonce); err != nil {
		return nil, err
	}
	if state.TotalLocked, err = s.getUint(ctx, keyTotalLocked); err != nil {
		return nil, err
	}
	if state.Paused, err = s.getBool(ctx, keyPaused); err != nil {
		return nil, err
	}

	return state, nil
}

func (s *Store) hGetAll(ctx context.Context, key string) (map[string][]byte, error) {
	fields, err := s.kv.HGetAll(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	return fields, nil
}

func (s *Store) getUint(ctx context.Context, key string) (uint64, error) {
	raw, err := s.kv.GetString(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load %s: %w", key, err)
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return v, nil
}

func (s *Store) getBool(ctx context.Context, key string) (bool, error) {
	raw, err := s.kv.GetString(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load %s: %w", key, err)
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return v, nil
}
