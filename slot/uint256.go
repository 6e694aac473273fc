// Copyright (c) 2025 The Horizon Ledger developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package slot

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/horizonledger/horizon/horizon"
)

// Uint256 is a wrapper for storage and retrieval of an unsigned 256-bit
// integer at a fixed slot. Values larger than 256 bits are rejected.
type Uint256 struct {
	context *Context
	pos     horizon.Bytes32
}

// NewUint256 creates a uint256 accessor at the given slot.
func NewUint256(context *Context, pos horizon.Bytes32) *Uint256 {
	return &Uint256{context: context, pos: pos}
}

// Get returns the stored value, zero if unset.
func (u *Uint256) Get() (*big.Int, error) {
	storage, err := u.context.state.GetStorage(u.context.address, u.pos)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(storage.Bytes()), nil
}

// Set stores the value.
func (u *Uint256) Set(value *big.Int) error {
	if value.Sign() < 0 || value.BitLen() > 256 {
		return errors.New("value out of uint256 range")
	}
	u.context.state.SetStorage(u.context.address, u.pos, horizon.BytesToBytes32(value.Bytes()))
	return nil
}

// Add increases the stored value.
func (u *Uint256) Add(value *big.Int) error {
	storage, err := u.Get()
	if err != nil {
		return err
	}
	return u.Set(storage.Add(storage, value))
}

// Sub decreases the stored value. It fails on underflow.
func (u *Uint256) Sub(value *big.Int) error {
	storage, err := u.Get()
	if err != nil {
		return err
	}
	if storage.Cmp(value) < 0 {
		return errors.New("uint256 underflow")
	}
	return u.Set(storage.Sub(storage, value))
}
