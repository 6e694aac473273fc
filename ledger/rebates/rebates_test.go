// Copyright (c) 2025 The Horizon Ledger developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package rebates

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/horizonledger/horizon/horizon"
)

func TestMulPPM(t *testing.T) {
	assert.Equal(t, big.NewInt(10), MulPPM(big.NewInt(1000), 10_000)) // 1%
	assert.Zero(t, MulPPM(big.NewInt(99), 10_000).Sign()) // rounds down
	assert.Equal(t, big.NewInt(1000), MulPPM(big.NewInt(1000), horizon.PPM))
}

func TestCeilPPM(t *testing.T) {
	assert.Equal(t, big.NewInt(10), CeilPPM(big.NewInt(1000), 10_000))
	assert.Equal(t, big.NewInt(1), CeilPPM(big.NewInt(99), 10_000)) // rounds up
	assert.Equal(t, big.NewInt(0), CeilPPM(big.NewInt(0), 10_000))
}

func TestExpNegWad(t *testing.T) {
	one := new(big.Int).Set(wad)

	assert.Equal(t, one, expNegWad(big.NewInt(0)))

	// e^-1 = 0.3678794411714423...
	got := expNegWad(one)
	want, _ := new(big.Int).SetString("367879441171442321", 10)
	diff := new(big.Int).Sub(got, want)
	assert.True(t, diff.CmpAbs(big.NewInt(1e9)) < 0, "e^-1 = %s, want ~%s", got, want)

	// e^-5 = 0.006737946999085467...
	got = expNegWad(new(big.Int).Mul(big.NewInt(5), wad))
	want, _ = new(big.Int).SetString("6737946999085467", 10)
	diff = new(big.Int).Sub(got, want)
	assert.True(t, diff.CmpAbs(big.NewInt(1e9)) < 0, "e^-5 = %s, want ~%s", got, want)
}

func TestExpNegWadMonotonic(t *testing.T) {
	prev := expNegWad(big.NewInt(0))
	for x := int64(1); x <= 10; x++ {
		cur := expNegWad(new(big.Int).Mul(big.NewInt(x), wad))
		assert.True(t, cur.Cmp(prev) < 0, "e^-%d should be below e^-%d", x, x-1)
		prev = cur
	}
}

func TestExponentialRebateEdges(t *testing.T) {
	fees := big.NewInt(1000)

	// zero fees pay nothing
	assert.Equal(t, big.NewInt(0), ExponentialRebate(big.NewInt(0), big.NewInt(100), horizon.PPM, 600_000))

	// zero alpha disables the curve entirely
	assert.Equal(t, fees, ExponentialRebate(fees, big.NewInt(0), 0, 600_000))

	// alpha 1, zero stake: e^0 = 1, everything withheld
	assert.Equal(t, big.NewInt(0), ExponentialRebate(fees, big.NewInt(0), horizon.PPM, 600_000))
}

func TestExponentialRebateCap(t *testing.T) {
	// fees vastly above stake: payment approaches fees*(1-alpha*e^-~0)
	// and must never exceed fees
	fees := new(big.Int).Mul(big.NewInt(1_000_000), big.NewInt(1e18))
	stake := big.NewInt(1)
	got := ExponentialRebate(fees, stake, horizon.PPM, 600_000)
	require.True(t, got.Cmp(fees) <= 0, "rebate %s exceeds fees %s", got, fees)

	// huge stake relative to fees: the exponent saturates and the
	// provider keeps everything
	fees = big.NewInt(1000)
	stake = new(big.Int).Mul(big.NewInt(1_000_000), big.NewInt(1e18))
	assert.Equal(t, fees, ExponentialRebate(fees, stake, horizon.PPM, 600_000))
}

func TestExponentialRebateGrowsWithStake(t *testing.T) {
	fees := big.NewInt(1_000_000)
	prev := ExponentialRebate(fees, big.NewInt(0), horizon.PPM, 600_000)
	for _, stake := range []int64{100_000, 500_000, 1_000_000, 5_000_000, 20_000_000} {
		cur := ExponentialRebate(fees, big.NewInt(stake), horizon.PPM, 600_000)
		assert.True(t, cur.Cmp(prev) >= 0, "rebate should not shrink as stake grows")
		assert.True(t, cur.Cmp(fees) <= 0)
		prev = cur
	}
}
