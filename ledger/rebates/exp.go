// Copyright (c) 2025 The Horizon Ledger developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package rebates

import "math/big"

// wad is the 1e18 fixed-point scale the exponential is evaluated in.
var (
	wad            = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	halfWad        = new(big.Int).Div(wad, big.NewInt(2))
	maxExponentWad = new(big.Int).Mul(big.NewInt(15), wad)
)

// taylorTerms bounds the series; at |x| <= 0.5 the 20th term is below
// wad resolution.
const taylorTerms = 20

// expNegWad returns e^-x for x >= 0 in wad fixed point. The argument is
// halved until it is at most 0.5, the series is summed there, and the
// result squared back up. Deterministic: no floats anywhere.
func expNegWad(x *big.Int) *big.Int {
	if x.Sign() == 0 {
		return new(big.Int).Set(wad)
	}

	halvings := 0
	y := new(big.Int).Set(x)
	for y.Cmp(halfWad) > 0 {
		y.Rsh(y, 1)
		halvings++
	}

	// sum_{i} (-y)^i / i!
	sum := new(big.Int).Set(wad)
	term := new(big.Int).Set(wad)
	negY := new(big.Int).Neg(y)
	for i := int64(1); i <= taylorTerms; i++ {
		term.Mul(term, negY)
		term.Div(term, wad)
		term.Div(term, big.NewInt(i))
		if term.Sign() == 0 {
			break
		}
		sum.Add(sum, term)
	}
	if sum.Sign() < 0 {
		sum.SetInt64(0)
	}

	for ; halvings > 0; halvings-- {
		sum.Mul(sum, sum)
		sum.Div(sum, wad)
	}
	return sum
}
