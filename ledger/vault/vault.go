// Copyright (c) 2025 The Horizon Ledger developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package vault implements share-accounted token pools. A pool holds a
// token total and a share total; depositors mint shares at the current
// price and redeem them pro rata. Removing tokens without removing
// shares (Dilute) lowers the price for every outstanding share, which
// is how a slash is socialized across queued withdrawals.
package vault

import (
	"math/big"

	"github.com/pkg/errors"
)

// Pool is a shares-to-tokens vault. The zero value is not usable;
// construct with NewPool or decode from storage.
type Pool struct {
	Tokens *big.Int
	Shares *big.Int
}

// NewPool creates an empty pool.
func NewPool() Pool {
	return Pool{Tokens: new(big.Int), Shares: new(big.Int)}
}

// normalize guards against nil fields after an RLP decode of an empty value.
func (p *Pool) normalize() {
	if p.Tokens == nil {
		p.Tokens = new(big.Int)
	}
	if p.Shares == nil {
		p.Shares = new(big.Int)
	}
}

// IsEmpty returns true if the pool holds neither tokens nor shares.
func (p *Pool) IsEmpty() bool {
	p.normalize()
	return p.Tokens.Sign() == 0 && p.Shares.Sign() == 0
}

// SharesFor returns the shares minted for a token deposit at the
// current price. An empty-token pool mints 1:1.
func (p *Pool) SharesFor(tokens *big.Int) *big.Int {
	p.normalize()
	if p.Tokens.Sign() == 0 {
		return new(big.Int).Set(tokens)
	}
	out := new(big.Int).Mul(tokens, p.Shares)
	return out.Div(out, p.Tokens)
}

// TokensFor returns the token value of the given shares at the current
// price, rounding down.
func (p *Pool) TokensFor(shares *big.Int) *big.Int {
	p.normalize()
	if p.Shares.Sign() == 0 {
		return new(big.Int)
	}
	out := new(big.Int).Mul(shares, p.Tokens)
	return out.Div(out, p.Shares)
}

// Mint deposits tokens and returns the shares minted at the current price.
func (p *Pool) Mint(tokens *big.Int) *big.Int {
	shares := p.SharesFor(tokens)
	p.Tokens = new(big.Int).Add(p.Tokens, tokens)
	p.Shares = new(big.Int).Add(p.Shares, shares)
	return shares
}

// Burn redeems shares and returns their token value at the current price.
func (p *Pool) Burn(shares *big.Int) (*big.Int, error) {
	p.normalize()
	if shares.Cmp(p.Shares) > 0 {
		return nil, errors.Errorf("burn %s shares exceeds pool total %s", shares, p.Shares)
	}
	tokens := p.TokensFor(shares)
	p.Tokens = new(big.Int).Sub(p.Tokens, tokens)
	p.Shares = new(big.Int).Sub(p.Shares, shares)
	return tokens, nil
}

// Dilute removes tokens while leaving shares outstanding, lowering the
// share price pro rata. The pool may be diluted to exactly zero tokens
// with shares remaining; those shares then redeem for nothing.
func (p *Pool) Dilute(tokens *big.Int) error {
	p.normalize()
	if tokens.Cmp(p.Tokens) > 0 {
		return errors.Errorf("dilute %s tokens exceeds pool total %s", tokens, p.Tokens)
	}
	p.Tokens = new(big.Int).Sub(p.Tokens, tokens)
	return nil
}
