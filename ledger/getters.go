// Copyright (c) 2025 The Horizon Ledger developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"math/big"

	"github.com/horizonledger/horizon/horizon"
	"github.com/horizonledger/horizon/ledger/allocation"
	"github.com/horizonledger/horizon/ledger/delegation"
	"github.com/horizonledger/horizon/ledger/provision"
	"github.com/horizonledger/horizon/ledger/thawing"
)

// GetBalance returns the token balance of an account.
func (l *Ledger) GetBalance(addr horizon.Address) (*big.Int, error) {
	return l.state.GetBalance(addr)
}

// GetServiceProvider returns the provider's stake record.
func (l *Ledger) GetServiceProvider(serviceProvider horizon.Address) (*provision.ServiceProvider, error) {
	return l.providers.GetServiceProvider(serviceProvider)
}

// GetProvision returns the provision record; check IsEmpty.
func (l *Ledger) GetProvision(serviceProvider, verifier horizon.Address) (*provision.Provision, error) {
	return l.providers.GetProvision(provision.Key{ServiceProvider: serviceProvider, Verifier: verifier})
}

// GetThawRequests returns the provision's queued thaw requests, front
// to back.
func (l *Ledger) GetThawRequests(serviceProvider, verifier horizon.Address) ([]*thawing.ThawRequest, error) {
	return l.thawing.List(provision.Key{ServiceProvider: serviceProvider, Verifier: verifier})
}

// GetDelegationPool returns the provision's delegation pool.
func (l *Ledger) GetDelegationPool(serviceProvider, verifier horizon.Address) (*delegation.Pool, error) {
	return l.delegations.GetPool(provision.Key{ServiceProvider: serviceProvider, Verifier: verifier})
}

// GetDelegation returns a delegator's stake in the provision's pool.
func (l *Ledger) GetDelegation(serviceProvider, verifier, delegator horizon.Address) (*delegation.Delegation, error) {
	return l.delegations.GetDelegation(provision.Key{ServiceProvider: serviceProvider, Verifier: verifier}, delegator)
}

// GetAllocation returns the allocation record; check Exists.
func (l *Ledger) GetAllocation(id horizon.Bytes32) (*allocation.Allocation, error) {
	return l.allocations.Get(id)
}

// GetRewardsDestination returns the provider's payout beneficiary, the
// zero address meaning income restakes.
func (l *Ledger) GetRewardsDestination(serviceProvider horizon.Address) (horizon.Address, error) {
	return l.allocations.GetRewardsDestination(serviceProvider)
}

// IsAuthorized reports whether the caller may act for the provider
// towards the verifier.
func (l *Ledger) IsAuthorized(caller, serviceProvider, verifier horizon.Address) (bool, error) {
	return l.auth.IsAuthorized(caller, serviceProvider, verifier)
}
