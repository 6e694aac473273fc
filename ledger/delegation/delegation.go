// Copyright (c) 2025 The Horizon Ledger developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package delegation manages the per-provision pools of third-party
// delegated capital. A pool is a share-price vault like the thawing
// pool, but its tokens are always active: they back collection
// immediately and carry no maturation delay. Fee income credited to a
// pool raises the share price for every delegator.
package delegation

import (
	"math/big"

	"github.com/horizonledger/horizon/horizon"
	"github.com/horizonledger/horizon/ledger/provision"
	"github.com/horizonledger/horizon/ledger/reverts"
	"github.com/horizonledger/horizon/ledger/vault"
	"github.com/horizonledger/horizon/slot"
)

var (
	slotPools       = horizon.BytesToBytes32([]byte("delegation-pools"))
	slotDelegations = horizon.BytesToBytes32([]byte("delegations"))
)

// Pool is the delegated capital behind one provision, with the cut
// parameters deciding how much collected income flows to delegators.
type Pool struct {
	Vault             vault.Pool
	QueryFeeCut       uint64 // PPM of the post-rebate payment
	IndexingRewardCut uint64 // PPM of indexing rewards
}

// Delegation is one delegator's share claim on a pool.
type Delegation struct {
	Shares *big.Int
}

func (d *Delegation) normalize() {
	if d.Shares == nil {
		d.Shares = new(big.Int)
	}
}

// delegationKey keys a delegation by (provider, verifier, delegator).
type delegationKey struct {
	provKey   provision.Key
	delegator horizon.Address
}

func (k delegationKey) Bytes() []byte {
	b := make([]byte, 0, 3*horizon.AddressLength)
	b = append(b, k.provKey.Bytes()...)
	return append(b, k.delegator.Bytes()...)
}

// Service is the delegation storage service.
type Service struct {
	pools       *slot.Mapping[provision.Key, *Pool]
	delegations *slot.Mapping[delegationKey, *Delegation]
}

// New create a new instance.
func New(sctx *slot.Context) *Service {
	return &Service{
		pools:       slot.NewMapping[provision.Key, *Pool](sctx, slotPools),
		delegations: slot.NewMapping[delegationKey, *Delegation](sctx, slotDelegations),
	}
}

// GetPool returns the delegation pool for the provision, an empty pool
// if nobody delegated yet.
func (s *Service) GetPool(key provision.Key) (*Pool, error) {
	pool, err := s.pools.Get(key)
	if err != nil {
		return nil, err
	}
	return pool, nil
}

// SetPool stores the delegation pool.
func (s *Service) SetPool(key provision.Key, pool *Pool) error {
	return s.pools.Set(key, pool)
}

// GetDelegation returns the delegator's stake in the pool.
func (s *Service) GetDelegation(key provision.Key, delegator horizon.Address) (*Delegation, error) {
	del, err := s.delegations.Get(delegationKey{key, delegator})
	if err != nil {
		return nil, err
	}
	del.normalize()
	return del, nil
}

// Delegate deposits tokens into the pool, minting shares for the
// delegator at the current price.
func (s *Service) Delegate(key provision.Key, delegator horizon.Address, tokens *big.Int) (*big.Int, error) {
	if tokens.Sign() <= 0 {
		return nil, reverts.ZeroTokens("delegate")
	}
	pool, err := s.GetPool(key)
	if err != nil {
		return nil, err
	}
	if !pool.Vault.IsEmpty() && pool.Vault.Tokens.Sign() == 0 {
		// slashing drained the pool but left shares outstanding; the
		// vault would mint 1:1 here and the stranded shares would
		// claim part of the deposit
		return nil, reverts.Precondition("delegation pool for %s/%s is fully diluted",
			key.ServiceProvider, key.Verifier)
	}
	shares := pool.Vault.Mint(tokens)
	if shares.Sign() == 0 {
		// share price too high for the deposit to mint a whole share
		return nil, reverts.Precondition("delegation pool for %s/%s prices deposits at zero shares",
			key.ServiceProvider, key.Verifier)
	}
	if err := s.SetPool(key, pool); err != nil {
		return nil, err
	}
	del, err := s.GetDelegation(key, delegator)
	if err != nil {
		return nil, err
	}
	del.Shares = new(big.Int).Add(del.Shares, shares)
	return shares, s.delegations.Set(delegationKey{key, delegator}, del)
}

// Undelegate burns the delegator's shares, returning their token value
// at the current price.
func (s *Service) Undelegate(key provision.Key, delegator horizon.Address, shares *big.Int) (*big.Int, error) {
	if shares.Sign() <= 0 {
		return nil, reverts.ZeroTokens("undelegate")
	}
	del, err := s.GetDelegation(key, delegator)
	if err != nil {
		return nil, err
	}
	if shares.Cmp(del.Shares) > 0 {
		return nil, reverts.Insufficient("delegation shares", shares, del.Shares)
	}
	pool, err := s.GetPool(key)
	if err != nil {
		return nil, err
	}
	tokens, err := pool.Vault.Burn(shares)
	if err != nil {
		return nil, err
	}
	if err := s.SetPool(key, pool); err != nil {
		return nil, err
	}
	del.Shares = new(big.Int).Sub(del.Shares, shares)
	dk := delegationKey{key, delegator}
	if del.Shares.Sign() == 0 {
		return tokens, s.delegations.Delete(dk)
	}
	return tokens, s.delegations.Set(dk, del)
}

// AddToPool credits tokens to the pool without minting shares, raising
// the share price. Used for the delegators' slice of collected income.
// Income for an empty pool cannot be attributed and is rejected.
func (s *Service) AddToPool(key provision.Key, tokens *big.Int) error {
	pool, err := s.GetPool(key)
	if err != nil {
		return err
	}
	if pool.Vault.Shares == nil || pool.Vault.Shares.Sign() == 0 {
		return reverts.Precondition("delegation pool for %s/%s has no shares",
			key.ServiceProvider, key.Verifier)
	}
	pool.Vault.Tokens = new(big.Int).Add(pool.Vault.Tokens, tokens)
	return s.SetPool(key, pool)
}

// SetParameters updates the pool's fee cut parameters.
func (s *Service) SetParameters(key provision.Key, queryFeeCut, indexingRewardCut uint64) (*Pool, error) {
	if queryFeeCut > horizon.PPM {
		return nil, reverts.ParameterTooLarge("queryFeeCut",
			new(big.Int).SetUint64(queryFeeCut), new(big.Int).SetUint64(horizon.PPM))
	}
	if indexingRewardCut > horizon.PPM {
		return nil, reverts.ParameterTooLarge("indexingRewardCut",
			new(big.Int).SetUint64(indexingRewardCut), new(big.Int).SetUint64(horizon.PPM))
	}
	pool, err := s.GetPool(key)
	if err != nil {
		return nil, err
	}
	pool.QueryFeeCut = queryFeeCut
	pool.IndexingRewardCut = indexingRewardCut
	return pool, s.SetPool(key, pool)
}
