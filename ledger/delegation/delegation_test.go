// Copyright (c) 2025 The Horizon Ledger developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package delegation

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/horizonledger/horizon/horizon"
	"github.com/horizonledger/horizon/ledger/provision"
	"github.com/horizonledger/horizon/ledger/reverts"
	"github.com/horizonledger/horizon/lvldb"
	"github.com/horizonledger/horizon/slot"
	"github.com/horizonledger/horizon/state"
)

var (
	testKey = provision.Key{
		ServiceProvider: horizon.BytesToAddress([]byte("provider")),
		Verifier:        horizon.BytesToAddress([]byte("verifier")),
	}
	alice = horizon.BytesToAddress([]byte("alice"))
	bob   = horizon.BytesToAddress([]byte("bob"))
)

func newTestService(t *testing.T) *Service {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	sctx := slot.NewContext(horizon.BytesToAddress([]byte("ledger")), state.New(db))
	return New(sctx)
}

func TestDelegateAndUndelegate(t *testing.T) {
	s := newTestService(t)

	shares, err := s.Delegate(testKey, alice, big.NewInt(100))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100), shares, "first deposit mints 1:1")

	del, err := s.GetDelegation(testKey, alice)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100), del.Shares)

	tokens, err := s.Undelegate(testKey, alice, big.NewInt(40))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(40), tokens)

	_, err = s.Undelegate(testKey, alice, big.NewInt(61))
	assert.ErrorIs(t, err, reverts.ErrInsufficient)

	// burning the rest removes the record
	_, err = s.Undelegate(testKey, alice, big.NewInt(60))
	require.NoError(t, err)
	del, err = s.GetDelegation(testKey, alice)
	require.NoError(t, err)
	assert.Zero(t, del.Shares.Sign())
}

func TestIncomeRaisesSharePrice(t *testing.T) {
	s := newTestService(t)

	_, err := s.Delegate(testKey, alice, big.NewInt(100))
	require.NoError(t, err)
	require.NoError(t, s.AddToPool(testKey, big.NewInt(50)))

	// bob now pays the higher price
	shares, err := s.Delegate(testKey, bob, big.NewInt(150))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100), shares)

	// alice's claim grew by her slice of the income
	tokens, err := s.Undelegate(testKey, alice, big.NewInt(100))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(150), tokens)
}

func TestAddToEmptyPoolRejected(t *testing.T) {
	s := newTestService(t)

	err := s.AddToPool(testKey, big.NewInt(10))
	assert.ErrorIs(t, err, reverts.ErrPrecondition)
}

func TestDelegateIntoDilutedPoolRejected(t *testing.T) {
	s := newTestService(t)

	// slash the pool to zero tokens with shares outstanding
	_, err := s.Delegate(testKey, alice, big.NewInt(100))
	require.NoError(t, err)
	pool, err := s.GetPool(testKey)
	require.NoError(t, err)
	require.NoError(t, pool.Vault.Dilute(big.NewInt(100)))
	require.NoError(t, s.SetPool(testKey, pool))

	// a deposit here would be claimed pro rata by the stranded shares
	_, err = s.Delegate(testKey, bob, big.NewInt(100))
	assert.ErrorIs(t, err, reverts.ErrPrecondition)

	// nothing moved: the pool is unchanged and bob holds no shares
	pool, err = s.GetPool(testKey)
	require.NoError(t, err)
	assert.Zero(t, pool.Vault.Tokens.Sign())
	assert.Equal(t, big.NewInt(100), pool.Vault.Shares)
	del, err := s.GetDelegation(testKey, bob)
	require.NoError(t, err)
	assert.Zero(t, del.Shares.Sign())

	_, err = s.Delegate(testKey, bob, new(big.Int))
	assert.ErrorIs(t, err, reverts.ErrParameter)
}

func TestDelegateZeroShareMintRejected(t *testing.T) {
	s := newTestService(t)

	// income pushes the share price above the whole deposit
	_, err := s.Delegate(testKey, alice, big.NewInt(1))
	require.NoError(t, err)
	require.NoError(t, s.AddToPool(testKey, big.NewInt(999)))

	_, err = s.Delegate(testKey, bob, big.NewInt(999))
	assert.ErrorIs(t, err, reverts.ErrPrecondition)
}

func TestSetParameters(t *testing.T) {
	s := newTestService(t)

	pool, err := s.SetParameters(testKey, 300_000, 200_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(300_000), pool.QueryFeeCut)
	assert.Equal(t, uint64(200_000), pool.IndexingRewardCut)

	_, err = s.SetParameters(testKey, horizon.PPM+1, 0)
	assert.ErrorIs(t, err, reverts.ErrParameter)
	_, err = s.SetParameters(testKey, 0, horizon.PPM+1)
	assert.ErrorIs(t, err, reverts.ErrParameter)
}
