// Copyright (c) 2025 The Horizon Ledger developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/horizonledger/horizon/eventdb"
	"github.com/horizonledger/horizon/horizon"
	"github.com/horizonledger/horizon/ledger"
	"github.com/horizonledger/horizon/lvldb"
	"github.com/horizonledger/horizon/state"
)

var (
	governor = horizon.BytesToAddress([]byte("governor"))
	provider = horizon.BytesToAddress([]byte("provider"))
	verifier = horizon.BytesToAddress([]byte("verifier"))
)

func newTestServer(t *testing.T) (*httptest.Server, *ledger.Ledger, *eventdb.EventDB) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	st := state.New(db)

	edb, err := eventdb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { edb.Close() })

	l := ledger.New(st, ledger.WithEventSink(edb))
	p := l.Params()
	require.NoError(t, p.SetAddress(horizon.KeyGovernor, governor))
	require.NoError(t, p.Set(horizon.KeyMinimumProvisionTokens, big.NewInt(100)))
	require.NoError(t, p.Set(horizon.KeyMaxThawingPeriod, big.NewInt(1000)))
	st.SetBalance(provider, big.NewInt(1_000_000))

	srv := httptest.NewServer(New(l, edb, Options{AllowedOrigins: "*", EventsLimit: 100}))
	t.Cleanup(srv.Close)
	return srv, l, edb
}

func httpGet(t *testing.T, url string) (int, []byte) {
	t.Helper()
	res, err := http.Get(url)
	require.NoError(t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res.StatusCode, body
}

func TestGetAccount(t *testing.T) {
	srv, _, _ := newTestServer(t)

	status, body := httpGet(t, srv.URL+"/accounts/"+provider.String())
	require.Equal(t, http.StatusOK, status)

	var account Account
	require.NoError(t, json.Unmarshal(body, &account))
	assert.Equal(t, provider, account.Address)
	assert.Equal(t, "1000000", account.Balance)

	status, _ = httpGet(t, srv.URL+"/accounts/not-an-address")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestGetProviderAndProvision(t *testing.T) {
	srv, l, _ := newTestServer(t)

	require.NoError(t, l.Stake(provider, big.NewInt(1000)))
	require.NoError(t, l.Provision(provider, provider, verifier, big.NewInt(500), 100_000, 50, 1))
	require.NoError(t, l.Thaw(provider, provider, verifier, big.NewInt(200), 10))

	status, body := httpGet(t, srv.URL+"/providers/"+provider.String())
	require.Equal(t, http.StatusOK, status)
	var sp ServiceProvider
	require.NoError(t, json.Unmarshal(body, &sp))
	assert.Equal(t, "1000", sp.TokensStaked)
	assert.Equal(t, "500", sp.TokensProvisioned)
	assert.Equal(t, "500", sp.IdleStake)

	status, body = httpGet(t, srv.URL+"/providers/"+provider.String()+"/provisions/"+verifier.String())
	require.Equal(t, http.StatusOK, status)
	var prov Provision
	require.NoError(t, json.Unmarshal(body, &prov))
	assert.Equal(t, "300", prov.Tokens)
	assert.Equal(t, "200", prov.TokensThawing)
	assert.Equal(t, uint64(100_000), prov.MaxVerifierCut)
	require.Len(t, prov.ThawRequests, 1)
	assert.Equal(t, uint64(60), prov.ThawRequests[0].ThawingUntil)

	// unknown provision
	other := horizon.BytesToAddress([]byte("other"))
	status, _ = httpGet(t, srv.URL+"/providers/"+provider.String()+"/provisions/"+other.String())
	assert.Equal(t, http.StatusNotFound, status)
}

func TestGetDelegation(t *testing.T) {
	srv, l, _ := newTestServer(t)

	delegator := horizon.BytesToAddress([]byte("delegator"))

	require.NoError(t, l.Stake(provider, big.NewInt(1000)))
	require.NoError(t, l.Provision(provider, provider, verifier, big.NewInt(500), 0, 50, 1))
	require.NoError(t, l.SetDelegationParameters(provider, provider, verifier, 300_000, 0))

	status, body := httpGet(t, srv.URL+"/providers/"+provider.String()+"/provisions/"+verifier.String()+"/pool")
	require.Equal(t, http.StatusOK, status)
	var pool DelegationPool
	require.NoError(t, json.Unmarshal(body, &pool))
	assert.Equal(t, "0", pool.Tokens)
	assert.Equal(t, uint64(300_000), pool.QueryFeeCut)

	status, body = httpGet(t, srv.URL+"/providers/"+provider.String()+"/provisions/"+verifier.String()+"/delegations/"+delegator.String())
	require.Equal(t, http.StatusOK, status)
	var del Delegation
	require.NoError(t, json.Unmarshal(body, &del))
	assert.Equal(t, "0", del.Shares)
}

func TestGetEvents(t *testing.T) {
	srv, l, _ := newTestServer(t)

	require.NoError(t, l.Stake(provider, big.NewInt(1000)))
	require.NoError(t, l.Stake(provider, big.NewInt(500)))

	status, body := httpGet(t, srv.URL+"/events?name=StakeDeposited")
	require.Equal(t, http.StatusOK, status)
	var events []*eventdb.Event
	require.NoError(t, json.Unmarshal(body, &events))
	require.Len(t, events, 2)
	assert.Equal(t, ledger.EventStakeDeposited, events[0].Name)

	status, body = httpGet(t, srv.URL+"/events?limit=1")
	require.Equal(t, http.StatusOK, status)
	events = nil
	require.NoError(t, json.Unmarshal(body, &events))
	assert.Len(t, events, 1)

	// the configured ceiling bounds the limit
	status, _ = httpGet(t, srv.URL+"/events?limit=101")
	assert.Equal(t, http.StatusBadRequest, status)
}
