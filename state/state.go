// Copyright (c) 2025 The Horizon Ledger developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/horizonledger/horizon/horizon"
	"github.com/horizonledger/horizon/kv"
	"github.com/horizonledger/horizon/stackedmap"
)

// Error is the error caused by state access failure.
type Error struct {
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("state: %v", e.cause)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// State manages the ledger world state: per-account token balances and
// per-account keyed storage. All mutations are journaled, so an operation
// can be checkpointed and reverted as a whole.
type State struct {
	store kv.Store
	sm    *stackedmap.StackedMap
}

type (
	balanceKey horizon.Address
	storageKey struct {
		addr horizon.Address
		key  horizon.Bytes32
	}
)

// New create a state object backed by the given store.
func New(store kv.Store) *State {
	st := &State{store: store}
	st.sm = stackedmap.New(func(key any) (any, bool, error) {
		return st.storeGetter(key)
	})
	// the bottom level holds all uncommitted writes
	st.sm.Push()
	return st
}

func (s *State) storeGetter(key any) (value any, exist bool, err error) {
	switch k := key.(type) {
	case balanceKey:
		raw, err := s.store.Get(persistBalanceKey(horizon.Address(k)))
		if err != nil {
			if s.store.IsNotFound(err) {
				return &big.Int{}, true, nil
			}
			return nil, false, &Error{err}
		}
		var bal big.Int
		if err := rlp.DecodeBytes(raw, &bal); err != nil {
			return nil, false, &Error{err}
		}
		return &bal, true, nil
	case storageKey:
		raw, err := s.store.Get(persistStorageKey(k.addr, k.key))
		if err != nil {
			if s.store.IsNotFound(err) {
				return rlp.RawValue(nil), true, nil
			}
			return nil, false, &Error{err}
		}
		return rlp.RawValue(raw), true, nil
	}
	panic(fmt.Errorf("unexpected key type %+v", key))
}

// GetBalance returns the token balance of the given account.
func (s *State) GetBalance(addr horizon.Address) (*big.Int, error) {
	v, _, err := s.sm.Get(balanceKey(addr))
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(v.(*big.Int)), nil
}

// SetBalance sets the token balance of the given account.
func (s *State) SetBalance(addr horizon.Address, balance *big.Int) {
	s.sm.Put(balanceKey(addr), new(big.Int).Set(balance))
}

// GetRawStorage returns the RLP encoded storage value for the given key.
func (s *State) GetRawStorage(addr horizon.Address, key horizon.Bytes32) (rlp.RawValue, error) {
	v, _, err := s.sm.Get(storageKey{addr, key})
	if err != nil {
		return nil, err
	}
	return v.(rlp.RawValue), nil
}

// SetRawStorage sets the RLP encoded storage value for the given key.
func (s *State) SetRawStorage(addr horizon.Address, key horizon.Bytes32, raw rlp.RawValue) {
	s.sm.Put(storageKey{addr, key}, raw)
}

// EncodeStorage sets the storage value encoded by the given enc method.
// An empty encoded value means deletion.
func (s *State) EncodeStorage(addr horizon.Address, key horizon.Bytes32, enc func() ([]byte, error)) error {
	raw, err := enc()
	if err != nil {
		return &Error{err}
	}
	s.SetRawStorage(addr, key, raw)
	return nil
}

// DecodeStorage decodes the storage value via the given dec method.
// An empty raw value is passed through for a missing key.
func (s *State) DecodeStorage(addr horizon.Address, key horizon.Bytes32, dec func([]byte) error) error {
	raw, err := s.GetRawStorage(addr, key)
	if err != nil {
		return err
	}
	if err := dec(raw); err != nil {
		return &Error{err}
	}
	return nil
}

// GetStorage returns storage value for the given key.
func (s *State) GetStorage(addr horizon.Address, key horizon.Bytes32) (horizon.Bytes32, error) {
	raw, err := s.GetRawStorage(addr, key)
	if err != nil {
		return horizon.Bytes32{}, err
	}
	if len(raw) == 0 {
		return horizon.Bytes32{}, nil
	}
	var value []byte
	if err := rlp.DecodeBytes(raw, &value); err != nil {
		return horizon.Bytes32{}, &Error{err}
	}
	return horizon.BytesToBytes32(value), nil
}

// SetStorage sets storage value for the given key.
// Setting the zero value deletes the key.
func (s *State) SetStorage(addr horizon.Address, key, value horizon.Bytes32) {
	if value.IsZero() {
		s.SetRawStorage(addr, key, nil)
		return
	}
	trimmed := value.Bytes()
	for len(trimmed) > 0 && trimmed[0] == 0 {
		trimmed = trimmed[1:]
	}
	raw, _ := rlp.EncodeToBytes(trimmed)
	s.SetRawStorage(addr, key, raw)
}

// NewCheckpoint makes a checkpoint of the current state.
// It returns the checkpoint to be passed to RevertTo.
func (s *State) NewCheckpoint() int {
	return s.sm.Push()
}

// RevertTo reverts the state to the given checkpoint.
func (s *State) RevertTo(checkpoint int) {
	s.sm.PopTo(checkpoint)
}

// Stage collects all journaled writes into a commitable stage.
func (s *State) Stage() (*Stage, error) {
	batch := s.store.NewBatch()
	var jerr error
	s.sm.Journal(func(key, value any) bool {
		switch k := key.(type) {
		case balanceKey:
			bal := value.(*big.Int)
			if bal.Sign() == 0 {
				jerr = batch.Delete(persistBalanceKey(horizon.Address(k)))
			} else {
				var raw []byte
				if raw, jerr = rlp.EncodeToBytes(bal); jerr == nil {
					jerr = batch.Put(persistBalanceKey(horizon.Address(k)), raw)
				}
			}
		case storageKey:
			raw := value.(rlp.RawValue)
			if len(raw) == 0 {
				jerr = batch.Delete(persistStorageKey(k.addr, k.key))
			} else {
				jerr = batch.Put(persistStorageKey(k.addr, k.key), raw)
			}
		}
		return jerr == nil
	})
	if jerr != nil {
		return nil, &Error{jerr}
	}
	return &Stage{batch}, nil
}

func persistBalanceKey(addr horizon.Address) []byte {
	return append([]byte("b"), addr.Bytes()...)
}

func persistStorageKey(addr horizon.Address, key horizon.Bytes32) []byte {
	k := make([]byte, 0, 1+horizon.AddressLength+32)
	k = append(k, 's')
	k = append(k, addr.Bytes()...)
	return append(k, key.Bytes()...)
}
