// Copyright (c) 2025 The Horizon Ledger developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package slot provides typed, slot-addressed views over ledger state,
// in the manner of contract storage: fixed slots for scalars and
// hashed (key, base-slot) positions for mappings.
package slot

import (
	"github.com/horizonledger/horizon/horizon"
	"github.com/horizonledger/horizon/state"
)

// Context binds a storage namespace (an account address) to the state.
type Context struct {
	address horizon.Address
	state   *state.State
}

// NewContext creates a storage context for the given namespace address.
func NewContext(address horizon.Address, state *state.State) *Context {
	return &Context{
		address: address,
		state:   state,
	}
}

// Address returns the namespace address.
func (c *Context) Address() horizon.Address {
	return c.address
}

// State returns the backing state.
func (c *Context) State() *state.State {
	return c.state
}
