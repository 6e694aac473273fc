// Copyright (c) 2025 The Horizon Ledger developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package allocation keeps the legacy collection path: a service
// provider commits tokens to a deployment under an allocation id, fees
// are collected against it while open, and closing it settles indexing
// rewards. The lifecycle is Active to Closed, once, terminal.
package allocation

import (
	"math/big"

	"github.com/horizonledger/horizon/horizon"
	"github.com/horizonledger/horizon/ledger/reverts"
	"github.com/horizonledger/horizon/slot"
)

var (
	slotAllocations  = horizon.BytesToBytes32([]byte("allocations"))
	slotDestinations = horizon.BytesToBytes32([]byte("rewards-destinations"))
)

// Allocation is one commitment of tokens to a deployment. An id with a
// zero service provider has never been allocated.
type Allocation struct {
	ServiceProvider horizon.Address
	DeploymentID    horizon.Bytes32
	Tokens          *big.Int
	CreatedAtEpoch  uint64
	ClosedAtEpoch   uint64
	Closed          bool
}

// Exists returns whether the allocation was ever created.
func (a *Allocation) Exists() bool {
	return a != nil && !a.ServiceProvider.IsZero()
}

// IsActive returns whether the allocation can still collect.
func (a *Allocation) IsActive() bool {
	return a.Exists() && !a.Closed
}

// Service is the allocation storage service.
type Service struct {
	allocations  *slot.Mapping[horizon.Bytes32, *Allocation]
	destinations *slot.Mapping[horizon.Address, horizon.Address]
}

// New create a new instance.
func New(sctx *slot.Context) *Service {
	return &Service{
		allocations:  slot.NewMapping[horizon.Bytes32, *Allocation](sctx, slotAllocations),
		destinations: slot.NewMapping[horizon.Address, horizon.Address](sctx, slotDestinations),
	}
}

// Get returns the allocation record; check Exists.
func (s *Service) Get(id horizon.Bytes32) (*Allocation, error) {
	return s.allocations.Get(id)
}

// GetExisting returns the allocation, failing on an unknown id.
func (s *Service) GetExisting(id horizon.Bytes32) (*Allocation, error) {
	alloc, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if !alloc.Exists() {
		return nil, reverts.Precondition("allocation %s does not exist", id.AbbrevString())
	}
	return alloc, nil
}

// Set stores the allocation record.
func (s *Service) Set(id horizon.Bytes32, alloc *Allocation) error {
	return s.allocations.Set(id, alloc)
}

// Create opens a new allocation.
func (s *Service) Create(id horizon.Bytes32, provider horizon.Address, deployment horizon.Bytes32, tokens *big.Int, epoch uint64) (*Allocation, error) {
	if tokens.Sign() <= 0 {
		return nil, reverts.ZeroTokens("allocate")
	}
	existing, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if existing.Exists() {
		return nil, reverts.Precondition("allocation %s already exists", id.AbbrevString())
	}
	alloc := &Allocation{
		ServiceProvider: provider,
		DeploymentID:    deployment,
		Tokens:          new(big.Int).Set(tokens),
		CreatedAtEpoch:  epoch,
	}
	return alloc, s.Set(id, alloc)
}

// Close marks the allocation closed. Closing twice fails.
func (s *Service) Close(id horizon.Bytes32, epoch uint64) (*Allocation, error) {
	alloc, err := s.GetExisting(id)
	if err != nil {
		return nil, err
	}
	if alloc.Closed {
		return nil, reverts.Precondition("allocation %s is already closed", id.AbbrevString())
	}
	alloc.Closed = true
	alloc.ClosedAtEpoch = epoch
	return alloc, s.Set(id, alloc)
}

// GetRewardsDestination returns the provider's beneficiary address, the
// zero address meaning income is restaked instead of paid out.
func (s *Service) GetRewardsDestination(provider horizon.Address) (horizon.Address, error) {
	return s.destinations.Get(provider)
}

// SetRewardsDestination sets the provider's beneficiary address. The
// zero address clears it.
func (s *Service) SetRewardsDestination(provider, destination horizon.Address) error {
	if destination.IsZero() {
		return s.destinations.Delete(provider)
	}
	return s.destinations.Set(provider, destination)
}
