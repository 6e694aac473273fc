// Copyright (c) 2025 The Horizon Ledger developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package slot

import (
	"github.com/horizonledger/horizon/horizon"
)

// AddressSlot is a wrapper for storage and retrieval of an address at a
// fixed slot.
type AddressSlot struct {
	context *Context
	pos     horizon.Bytes32
}

// NewAddress creates an address accessor at the given slot.
func NewAddress(context *Context, pos horizon.Bytes32) *AddressSlot {
	return &AddressSlot{context: context, pos: pos}
}

// Get returns the stored address, the zero address if unset.
func (a *AddressSlot) Get() (horizon.Address, error) {
	storage, err := a.context.state.GetStorage(a.context.address, a.pos)
	if err != nil {
		return horizon.Address{}, err
	}
	return horizon.BytesToAddress(storage.Bytes()), nil
}

// Set stores the address. The zero address clears the slot.
func (a *AddressSlot) Set(addr horizon.Address) {
	a.context.state.SetStorage(a.context.address, a.pos, horizon.BytesToBytes32(addr.Bytes()))
}
