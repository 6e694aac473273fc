// Copyright (c) 2025 The Horizon Ledger developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package provision

import (
	"math/big"

	"github.com/horizonledger/horizon/horizon"
	"github.com/horizonledger/horizon/ledger/vault"
)

// Key identifies a provision by (service provider, verifier).
type Key struct {
	ServiceProvider horizon.Address
	Verifier        horizon.Address
}

// Bytes returns the mapping key bytes.
func (k Key) Bytes() []byte {
	b := make([]byte, 0, 2*horizon.AddressLength)
	b = append(b, k.ServiceProvider.Bytes()...)
	return append(b, k.Verifier.Bytes()...)
}

// Provision is the collateral relationship between a service provider
// and a verifier. Tokens is the active backing; Thawing holds the
// token value and shares of queued withdrawals. A provision is never
// deleted: one with zero tokens is dormant.
type Provision struct {
	Tokens  *big.Int
	Thawing vault.Pool

	MaxVerifierCut uint64 // PPM
	ThawingPeriod  uint64 // seconds

	// staged values awaiting acceptance by the verifier
	PendingMaxVerifierCut uint64
	PendingThawingPeriod  uint64

	CreatedAt uint64
}

// IsEmpty returns true if the provision has never been created.
// CreatedAt is set from a strictly positive timestamp at creation.
func (p *Provision) IsEmpty() bool {
	return p == nil || p.CreatedAt == 0
}

// TotalTokens returns active plus thawing tokens.
func (p *Provision) TotalTokens() *big.Int {
	total := new(big.Int)
	if p.Tokens != nil {
		total.Add(total, p.Tokens)
	}
	if p.Thawing.Tokens != nil {
		total.Add(total, p.Thawing.Tokens)
	}
	return total
}

// AvailableTokens returns the tokens that can still be thawed.
func (p *Provision) AvailableTokens() *big.Int {
	if p.Tokens == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(p.Tokens)
}

// Slash removes tokens from the provision: the active backing first,
// spilling into the thawing pool without touching its shares. Returns
// how much came out of each side.
func (p *Provision) Slash(tokens *big.Int) (fromActive, fromThawing *big.Int, err error) {
	fromActive = new(big.Int).Set(tokens)
	fromThawing = new(big.Int)
	if fromActive.Cmp(p.Tokens) > 0 {
		fromActive.Set(p.Tokens)
		fromThawing.Sub(tokens, fromActive)
	}
	p.Tokens = new(big.Int).Sub(p.Tokens, fromActive)
	if fromThawing.Sign() > 0 {
		if err := p.Thawing.Dilute(fromThawing); err != nil {
			return nil, nil, err
		}
	}
	return fromActive, fromThawing, nil
}

// ServiceProvider tracks a provider's staked tokens and how much of
// them currently backs provisions (active or thawing).
type ServiceProvider struct {
	TokensStaked      *big.Int
	TokensProvisioned *big.Int
}

// normalize guards against nil fields after an RLP decode of an empty value.
func (sp *ServiceProvider) normalize() {
	if sp.TokensStaked == nil {
		sp.TokensStaked = new(big.Int)
	}
	if sp.TokensProvisioned == nil {
		sp.TokensProvisioned = new(big.Int)
	}
}

// IdleStake returns staked tokens not backing any provision.
func (sp *ServiceProvider) IdleStake() *big.Int {
	sp.normalize()
	return new(big.Int).Sub(sp.TokensStaked, sp.TokensProvisioned)
}
