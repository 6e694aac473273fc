// Copyright (c) 2025 The Horizon Ledger developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package rebates computes the fee-collection splits: PPM cut helpers
// and the exponential rebate curve that caps what a provider can take
// out relative to the stake backing the collection.
package rebates

import (
	"math/big"

	"github.com/horizonledger/horizon/horizon"
)

var ppm = new(big.Int).SetUint64(horizon.PPM)

// MulPPM returns value * cut / PPM, rounded down.
func MulPPM(value *big.Int, cut uint64) *big.Int {
	out := new(big.Int).Mul(value, new(big.Int).SetUint64(cut))
	return out.Div(out, ppm)
}

// CeilPPM returns value * cut / PPM, rounded up. Protocol cuts round in
// the protocol's favor.
func CeilPPM(value *big.Int, cut uint64) *big.Int {
	out := new(big.Int).Mul(value, new(big.Int).SetUint64(cut))
	rem := new(big.Int)
	out.DivMod(out, ppm, rem)
	if rem.Sign() > 0 {
		out.Add(out, big.NewInt(1))
	}
	return out
}

// ExponentialRebate returns fees * (1 - alpha * e^(-lambda * stake / fees)),
// with alpha and lambda PPM-scaled. The curve pays nearly everything
// when stake is large relative to fees and asymptotically withholds
// alpha of the fees as stake tends to zero. Never exceeds fees.
func ExponentialRebate(fees, stake *big.Int, alphaPPM, lambdaPPM uint64) *big.Int {
	if fees.Sign() == 0 {
		return new(big.Int)
	}
	if alphaPPM == 0 {
		return new(big.Int).Set(fees)
	}

	// exponent = lambda * stake / fees, in wad fixed point
	exponent := new(big.Int).Mul(stake, new(big.Int).SetUint64(lambdaPPM))
	exponent.Mul(exponent, wad)
	exponent.Div(exponent, new(big.Int).Mul(fees, ppm))

	// e^-x below resolution: the withheld share vanishes
	if exponent.Cmp(maxExponentWad) > 0 {
		return new(big.Int).Set(fees)
	}

	alpha := new(big.Int).SetUint64(alphaPPM)
	alpha.Mul(alpha, wad)
	alpha.Div(alpha, ppm)

	factor := new(big.Int).Mul(alpha, expNegWad(exponent))
	factor.Div(factor, wad)
	factor.Sub(wad, factor)
	if factor.Sign() < 0 {
		// alpha above 1 can withhold everything
		return new(big.Int)
	}

	out := new(big.Int).Mul(fees, factor)
	return out.Div(out, wad)
}
