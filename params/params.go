// Copyright (c) 2025 The Horizon Ledger developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package params is the global parameter registry: protocol ceilings,
// cuts and the rebate curve shape, settable by the governor account.
package params

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/horizonledger/horizon/horizon"
	"github.com/horizonledger/horizon/slot"
	"github.com/horizonledger/horizon/state"
)

// Params provides access to governance parameters.
type Params struct {
	context *slot.Context
}

// New create a new instance.
func New(addr horizon.Address, state *state.State) *Params {
	return &Params{context: slot.NewContext(addr, state)}
}

// Get returns the numeric param for the given key, zero if unset.
func (p *Params) Get(key horizon.Bytes32) (*big.Int, error) {
	return slot.NewUint256(p.context, key).Get()
}

// Set sets the numeric param for the given key without an authority
// check. It is meant for genesis initialization.
func (p *Params) Set(key horizon.Bytes32, value *big.Int) error {
	return slot.NewUint256(p.context, key).Set(value)
}

// SetByGovernor sets the numeric param for the given key on behalf of
// the caller, which must be the governor.
func (p *Params) SetByGovernor(caller horizon.Address, key horizon.Bytes32, value *big.Int) error {
	governor, err := p.GetAddress(horizon.KeyGovernor)
	if err != nil {
		return err
	}
	if caller != governor {
		return errors.New("params: caller is not the governor")
	}
	return p.Set(key, value)
}

// GetAddress returns the address param for the given key.
func (p *Params) GetAddress(key horizon.Bytes32) (horizon.Address, error) {
	return slot.NewAddress(p.context, key).Get()
}

// SetAddress sets the address param for the given key without an
// authority check. It is meant for genesis initialization.
func (p *Params) SetAddress(key horizon.Bytes32, addr horizon.Address) error {
	slot.NewAddress(p.context, key).Set(addr)
	return nil
}
