// Copyright (c) 2025 The Horizon Ledger developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package provision manages service-provider stake and the provisions
// backing verifiers. Stake accounting follows a two-level model: a
// provider stakes tokens into the ledger, then commits idle stake to
// per-verifier provisions that can be slashed.
package provision

import (
	"math/big"

	"github.com/horizonledger/horizon/horizon"
	"github.com/horizonledger/horizon/ledger/reverts"
	"github.com/horizonledger/horizon/slot"
)

var (
	slotProviders  = horizon.BytesToBytes32([]byte("service-providers"))
	slotProvisions = horizon.BytesToBytes32([]byte("provisions"))
)

// Service is the provision storage service.
type Service struct {
	providers  *slot.Mapping[horizon.Address, *ServiceProvider]
	provisions *slot.Mapping[Key, *Provision]
}

// New create a new instance.
func New(sctx *slot.Context) *Service {
	return &Service{
		providers:  slot.NewMapping[horizon.Address, *ServiceProvider](sctx, slotProviders),
		provisions: slot.NewMapping[Key, *Provision](sctx, slotProvisions),
	}
}

// GetServiceProvider returns the provider record, a zeroed record if
// the provider never staked.
func (s *Service) GetServiceProvider(provider horizon.Address) (*ServiceProvider, error) {
	sp, err := s.providers.Get(provider)
	if err != nil {
		return nil, err
	}
	sp.normalize()
	return sp, nil
}

// SetServiceProvider stores the provider record.
func (s *Service) SetServiceProvider(provider horizon.Address, sp *ServiceProvider) error {
	return s.providers.Set(provider, sp)
}

// GetProvision returns the provision record. Check IsEmpty to tell a
// never-created provision apart from a dormant one.
func (s *Service) GetProvision(key Key) (*Provision, error) {
	prov, err := s.provisions.Get(key)
	if err != nil {
		return nil, err
	}
	if prov.Tokens == nil {
		prov.Tokens = new(big.Int)
	}
	return prov, nil
}

// GetExistingProvision returns the provision record, failing if it was
// never created.
func (s *Service) GetExistingProvision(key Key) (*Provision, error) {
	prov, err := s.GetProvision(key)
	if err != nil {
		return nil, err
	}
	if prov.IsEmpty() {
		return nil, reverts.Precondition("provision %s/%s does not exist", key.ServiceProvider, key.Verifier)
	}
	return prov, nil
}

// SetProvision stores the provision record.
func (s *Service) SetProvision(key Key, prov *Provision) error {
	return s.provisions.Set(key, prov)
}

// AddStake credits staked tokens to the provider record.
func (s *Service) AddStake(provider horizon.Address, tokens *big.Int) error {
	sp, err := s.GetServiceProvider(provider)
	if err != nil {
		return err
	}
	sp.TokensStaked = new(big.Int).Add(sp.TokensStaked, tokens)
	return s.SetServiceProvider(provider, sp)
}

// WithdrawIdle debits staked tokens from the provider record. Only idle
// stake, not backing any provision, can leave.
func (s *Service) WithdrawIdle(provider horizon.Address, tokens *big.Int) error {
	sp, err := s.GetServiceProvider(provider)
	if err != nil {
		return err
	}
	if idle := sp.IdleStake(); tokens.Cmp(idle) > 0 {
		return reverts.Insufficient("idle stake", tokens, idle)
	}
	sp.TokensStaked = new(big.Int).Sub(sp.TokensStaked, tokens)
	return s.SetServiceProvider(provider, sp)
}

// CreateProvision creates a provision backed by the provider's idle
// stake. minTokens and maxThawingPeriod come from the parameter
// registry; now must be a positive timestamp.
func (s *Service) CreateProvision(
	key Key,
	tokens *big.Int,
	maxVerifierCut uint64,
	thawingPeriod uint64,
	now uint64,
	minTokens *big.Int,
	maxThawingPeriod uint64,
) (*Provision, error) {
	if tokens.Sign() <= 0 {
		return nil, reverts.ZeroTokens("provision")
	}
	if tokens.Cmp(minTokens) < 0 {
		return nil, reverts.Insufficient("provision below minimum", minTokens, tokens)
	}
	if maxVerifierCut > horizon.PPM {
		return nil, reverts.ParameterTooLarge("maxVerifierCut",
			new(big.Int).SetUint64(maxVerifierCut), new(big.Int).SetUint64(horizon.PPM))
	}
	if thawingPeriod > maxThawingPeriod {
		return nil, reverts.ParameterTooLarge("thawingPeriod",
			new(big.Int).SetUint64(thawingPeriod), new(big.Int).SetUint64(maxThawingPeriod))
	}
	if now == 0 {
		return nil, reverts.Precondition("creation timestamp must be positive")
	}

	prov, err := s.GetProvision(key)
	if err != nil {
		return nil, err
	}
	if !prov.IsEmpty() {
		return nil, reverts.Precondition("provision %s/%s already exists", key.ServiceProvider, key.Verifier)
	}

	if err := s.commitIdle(key.ServiceProvider, tokens); err != nil {
		return nil, err
	}
	prov = &Provision{
		Tokens:                new(big.Int).Set(tokens),
		MaxVerifierCut:        maxVerifierCut,
		ThawingPeriod:         thawingPeriod,
		PendingMaxVerifierCut: maxVerifierCut,
		PendingThawingPeriod:  thawingPeriod,
		CreatedAt:             now,
	}
	return prov, s.SetProvision(key, prov)
}

// AddToProvision moves more idle stake into an existing provision.
func (s *Service) AddToProvision(key Key, tokens *big.Int) (*Provision, error) {
	if tokens.Sign() <= 0 {
		return nil, reverts.ZeroTokens("addToProvision")
	}
	prov, err := s.GetExistingProvision(key)
	if err != nil {
		return nil, err
	}
	if err := s.commitIdle(key.ServiceProvider, tokens); err != nil {
		return nil, err
	}
	prov.Tokens = new(big.Int).Add(prov.Tokens, tokens)
	return prov, s.SetProvision(key, prov)
}

// commitIdle moves idle stake into the provisioned total.
func (s *Service) commitIdle(provider horizon.Address, tokens *big.Int) error {
	sp, err := s.GetServiceProvider(provider)
	if err != nil {
		return err
	}
	if idle := sp.IdleStake(); tokens.Cmp(idle) > 0 {
		return reverts.Insufficient("idle stake", tokens, idle)
	}
	sp.TokensProvisioned = new(big.Int).Add(sp.TokensProvisioned, tokens)
	return s.SetServiceProvider(provider, sp)
}

// ReleaseProvisioned returns provisioned tokens to the idle pool, after
// a withdrawal or slash took them out of the provision.
func (s *Service) ReleaseProvisioned(provider horizon.Address, tokens *big.Int) error {
	sp, err := s.GetServiceProvider(provider)
	if err != nil {
		return err
	}
	if tokens.Cmp(sp.TokensProvisioned) > 0 {
		return reverts.Insufficient("provisioned tokens", tokens, sp.TokensProvisioned)
	}
	sp.TokensProvisioned = new(big.Int).Sub(sp.TokensProvisioned, tokens)
	return s.SetServiceProvider(provider, sp)
}

// RemoveStaked burns staked tokens out of the provider record entirely,
// used when a slash destroys provisioned collateral.
func (s *Service) RemoveStaked(provider horizon.Address, tokens *big.Int) error {
	sp, err := s.GetServiceProvider(provider)
	if err != nil {
		return err
	}
	if tokens.Cmp(sp.TokensStaked) > 0 {
		return reverts.Insufficient("staked tokens", tokens, sp.TokensStaked)
	}
	if tokens.Cmp(sp.TokensProvisioned) > 0 {
		return reverts.Insufficient("provisioned tokens", tokens, sp.TokensProvisioned)
	}
	sp.TokensStaked = new(big.Int).Sub(sp.TokensStaked, tokens)
	sp.TokensProvisioned = new(big.Int).Sub(sp.TokensProvisioned, tokens)
	return s.SetServiceProvider(provider, sp)
}

// StageParameters stores pending provision parameters for the verifier
// to accept. Values take effect only on acceptance.
func (s *Service) StageParameters(key Key, maxVerifierCut, thawingPeriod, maxThawingPeriod uint64) (*Provision, error) {
	if maxVerifierCut > horizon.PPM {
		return nil, reverts.ParameterTooLarge("maxVerifierCut",
			new(big.Int).SetUint64(maxVerifierCut), new(big.Int).SetUint64(horizon.PPM))
	}
	if thawingPeriod > maxThawingPeriod {
		return nil, reverts.ParameterTooLarge("thawingPeriod",
			new(big.Int).SetUint64(thawingPeriod), new(big.Int).SetUint64(maxThawingPeriod))
	}
	prov, err := s.GetExistingProvision(key)
	if err != nil {
		return nil, err
	}
	prov.PendingMaxVerifierCut = maxVerifierCut
	prov.PendingThawingPeriod = thawingPeriod
	return prov, s.SetProvision(key, prov)
}

// AcceptParameters promotes the pending parameters to active. Returns
// whether anything actually changed; accepting twice is a no-op.
func (s *Service) AcceptParameters(key Key) (*Provision, bool, error) {
	prov, err := s.GetExistingProvision(key)
	if err != nil {
		return nil, false, err
	}
	changed := prov.MaxVerifierCut != prov.PendingMaxVerifierCut ||
		prov.ThawingPeriod != prov.PendingThawingPeriod
	if !changed {
		return prov, false, nil
	}
	prov.MaxVerifierCut = prov.PendingMaxVerifierCut
	prov.ThawingPeriod = prov.PendingThawingPeriod
	return prov, true, s.SetProvision(key, prov)
}
