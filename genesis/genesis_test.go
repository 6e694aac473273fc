// Copyright (c) 2025 The Horizon Ledger developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis

import (
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/horizonledger/horizon/horizon"
	"github.com/horizonledger/horizon/ledger"
	"github.com/horizonledger/horizon/lvldb"
	"github.com/horizonledger/horizon/state"
)

const testSpec = `
name: test
governor: "0x7567d83b7b8d80addcb281a71d54fc7b3364ffed"
subgraphService: "0x0000000000000000000000000000000073756273"
params:
  minimumProvisionTokens: "100"
  maxThawingPeriod: 3600
  protocolTaxCut: 10000
accounts:
  - address: "0xf077b491b355e64048ce21e3a6fc4751eeea77fa"
    balance: "1000000"
allowedVerifiers:
  - "0x0000000000000000000000000000000073756273"
`

func TestLoad(t *testing.T) {
	spec, err := Load(strings.NewReader(testSpec))
	require.NoError(t, err)
	assert.Equal(t, "test", spec.Name)
	assert.Equal(t, uint64(3600), spec.Params.MaxThawingPeriod)
	assert.Len(t, spec.Accounts, 1)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	_, err := Load(strings.NewReader("governor: \"0x7567d83b7b8d80addcb281a71d54fc7b3364ffed\"\nbogus: 1\n"))
	assert.Error(t, err)
}

func TestLoadRequiresGovernor(t *testing.T) {
	_, err := Load(strings.NewReader("name: test\n"))
	assert.EqualError(t, err, "genesis: governor must be set")
}

func TestBuild(t *testing.T) {
	spec, err := Load(strings.NewReader(testSpec))
	require.NoError(t, err)

	db, err := lvldb.NewMem()
	require.NoError(t, err)
	defer db.Close()
	st := state.New(db)
	require.NoError(t, spec.Build(st))

	l := ledger.New(st)
	p := l.Params()

	governor, err := p.GetAddress(horizon.KeyGovernor)
	require.NoError(t, err)
	assert.Equal(t, horizon.MustParseAddress("0x7567d83b7b8d80addcb281a71d54fc7b3364ffed"), governor)

	minTokens, err := p.Get(horizon.KeyMinimumProvisionTokens)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100), minTokens)

	// unset params fall back to protocol defaults
	lambda, err := p.Get(horizon.KeyRebateLambda)
	require.NoError(t, err)
	assert.Equal(t, new(big.Int).SetUint64(DefaultRebateLambda), lambda)

	maxEpochs, err := p.Get(horizon.KeyMaxAllocationEpochs)
	require.NoError(t, err)
	assert.Equal(t, new(big.Int).SetUint64(DefaultMaxAllocationEpochs), maxEpochs)

	balance, err := st.GetBalance(horizon.MustParseAddress("0xf077b491b355e64048ce21e3a6fc4751eeea77fa"))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1_000_000), balance)

	verifier := horizon.MustParseAddress("0x0000000000000000000000000000000073756273")
	operator := horizon.BytesToAddress([]byte("op"))
	provider := horizon.BytesToAddress([]byte("sp"))
	require.NoError(t, l.SetOperatorLocked(provider, verifier, operator, true),
		"allow-listed verifier usable by locked operators")
}

func TestDevnet(t *testing.T) {
	spec := Devnet()

	db, err := lvldb.NewMem()
	require.NoError(t, err)
	defer db.Close()
	st := state.New(db)
	require.NoError(t, spec.Build(st))

	for _, a := range spec.Accounts {
		balance, err := st.GetBalance(horizon.MustParseAddress(a.Address))
		require.NoError(t, err)
		assert.True(t, balance.Sign() > 0)
	}
}
