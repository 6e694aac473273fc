// Copyright (c) 2025 The Horizon Ledger developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package slot_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/horizonledger/horizon/horizon"
	"github.com/horizonledger/horizon/lvldb"
	"github.com/horizonledger/horizon/slot"
	"github.com/horizonledger/horizon/state"
)

var contractAddr = horizon.BytesToAddress([]byte("contract"))

func newTestContext(t *testing.T) *slot.Context {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return slot.NewContext(contractAddr, state.New(db))
}

type record struct {
	Amount *big.Int
	Count  uint64
}

func TestMapping(t *testing.T) {
	sctx := newTestContext(t)
	pos := horizon.BytesToBytes32([]byte("records"))
	m := slot.NewMapping[horizon.Address, *record](sctx, pos)

	k := horizon.BytesToAddress([]byte("k1"))

	// missing entries decode to an allocated zero value
	v, err := m.Get(k)
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Nil(t, v.Amount)

	require.NoError(t, m.Set(k, &record{Amount: big.NewInt(7), Count: 3}))
	v, err = m.Get(k)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(7), v.Amount)
	assert.Equal(t, uint64(3), v.Count)

	// a different key is untouched
	other, err := m.Get(horizon.BytesToAddress([]byte("k2")))
	require.NoError(t, err)
	assert.Nil(t, other.Amount)

	require.NoError(t, m.Delete(k))
	v, err = m.Get(k)
	require.NoError(t, err)
	assert.Nil(t, v.Amount)
}

func TestMappingBoolValues(t *testing.T) {
	sctx := newTestContext(t)
	pos := horizon.BytesToBytes32([]byte("flags"))
	m := slot.NewMapping[horizon.Address, bool](sctx, pos)

	k := horizon.BytesToAddress([]byte("k"))
	v, err := m.Get(k)
	require.NoError(t, err)
	assert.False(t, v)

	require.NoError(t, m.Set(k, true))
	v, err = m.Get(k)
	require.NoError(t, err)
	assert.True(t, v)
}

func TestUint256(t *testing.T) {
	sctx := newTestContext(t)
	u := slot.NewUint256(sctx, horizon.BytesToBytes32([]byte("total")))

	v, err := u.Get()
	require.NoError(t, err)
	assert.Zero(t, v.Sign())

	require.NoError(t, u.Set(big.NewInt(10)))
	require.NoError(t, u.Add(big.NewInt(5)))
	require.NoError(t, u.Sub(big.NewInt(3)))

	v, err = u.Get()
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(12), v)

	assert.Error(t, u.Sub(big.NewInt(13)), "underflow must fail")
	assert.Error(t, u.Set(big.NewInt(-1)))
}

func TestAddressSlot(t *testing.T) {
	sctx := newTestContext(t)
	a := slot.NewAddress(sctx, horizon.BytesToBytes32([]byte("owner")))

	v, err := a.Get()
	require.NoError(t, err)
	assert.True(t, v.IsZero())

	want := horizon.BytesToAddress([]byte("gov"))
	a.Set(want)
	v, err = a.Get()
	require.NoError(t, err)
	assert.Equal(t, want, v)
}

func TestRaw(t *testing.T) {
	sctx := newTestContext(t)
	r := slot.NewRaw[*record](sctx, horizon.BytesToBytes32([]byte("head")))

	v, err := r.Get()
	require.NoError(t, err)
	require.NotNil(t, v)

	require.NoError(t, r.Set(&record{Amount: big.NewInt(1), Count: 9}))
	v, err = r.Get()
	require.NoError(t, err)
	assert.Equal(t, uint64(9), v.Count)
}
