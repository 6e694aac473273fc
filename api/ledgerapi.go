// Copyright (c) 2025 The Horizon Ledger developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/horizonledger/horizon/api/restutil"
	"github.com/horizonledger/horizon/horizon"
	"github.com/horizonledger/horizon/ledger"
)

type ledgerAPI struct {
	ledger *ledger.Ledger
}

func newLedgerAPI(l *ledger.Ledger) *ledgerAPI {
	return &ledgerAPI{l}
}

// Account is the balance view of an account.
type Account struct {
	Address horizon.Address `json:"address"`
	Balance string          `json:"balance"`
}

// ServiceProvider is the stake view of a provider.
type ServiceProvider struct {
	Address           horizon.Address `json:"address"`
	TokensStaked      string          `json:"tokensStaked"`
	TokensProvisioned string          `json:"tokensProvisioned"`
	IdleStake         string          `json:"idleStake"`
}

// Provision is the provision view including its thaw queue.
type Provision struct {
	ServiceProvider       horizon.Address `json:"serviceProvider"`
	Verifier              horizon.Address `json:"verifier"`
	Tokens                string          `json:"tokens"`
	TokensThawing         string          `json:"tokensThawing"`
	SharesThawing         string          `json:"sharesThawing"`
	MaxVerifierCut        uint64          `json:"maxVerifierCut"`
	ThawingPeriod         uint64          `json:"thawingPeriod"`
	PendingMaxVerifierCut uint64          `json:"pendingMaxVerifierCut"`
	PendingThawingPeriod  uint64          `json:"pendingThawingPeriod"`
	CreatedAt             uint64          `json:"createdAt"`
	ThawRequests          []ThawRequest   `json:"thawRequests"`
}

// ThawRequest is one queued withdrawal.
type ThawRequest struct {
	Shares       string `json:"shares"`
	CreatedAt    uint64 `json:"createdAt"`
	ThawingUntil uint64 `json:"thawingUntil"`
}

// DelegationPool is the delegation view of a provision.
type DelegationPool struct {
	Tokens            string `json:"tokens"`
	Shares            string `json:"shares"`
	QueryFeeCut       uint64 `json:"queryFeeCut"`
	IndexingRewardCut uint64 `json:"indexingRewardCut"`
}

// Delegation is one delegator's stake in a pool.
type Delegation struct {
	Delegator horizon.Address `json:"delegator"`
	Shares    string          `json:"shares"`
	Tokens    string          `json:"tokens"`
}

// Allocation is the allocation view.
type Allocation struct {
	ID              horizon.Bytes32 `json:"id"`
	ServiceProvider horizon.Address `json:"serviceProvider"`
	Deployment      horizon.Bytes32 `json:"deployment"`
	Tokens          string          `json:"tokens"`
	CreatedAtEpoch  uint64          `json:"createdAtEpoch"`
	ClosedAtEpoch   uint64          `json:"closedAtEpoch"`
	Closed          bool            `json:"closed"`
}

func (a *ledgerAPI) handleGetAccount(w http.ResponseWriter, req *http.Request) error {
	addr, err := horizon.ParseAddress(mux.Vars(req)["address"])
	if err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "address"))
	}
	balance, err := a.ledger.GetBalance(*addr)
	if err != nil {
		return err
	}
	return restutil.WriteJSON(w, &Account{Address: *addr, Balance: balance.String()})
}

func (a *ledgerAPI) handleGetProvider(w http.ResponseWriter, req *http.Request) error {
	addr, err := horizon.ParseAddress(mux.Vars(req)["address"])
	if err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "address"))
	}
	sp, err := a.ledger.GetServiceProvider(*addr)
	if err != nil {
		return err
	}
	return restutil.WriteJSON(w, &ServiceProvider{
		Address:           *addr,
		TokensStaked:      sp.TokensStaked.String(),
		TokensProvisioned: sp.TokensProvisioned.String(),
		IdleStake:         sp.IdleStake().String(),
	})
}

func (a *ledgerAPI) handleGetProvision(w http.ResponseWriter, req *http.Request) error {
	vars := mux.Vars(req)
	provider, err := horizon.ParseAddress(vars["address"])
	if err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "address"))
	}
	verifier, err := horizon.ParseAddress(vars["verifier"])
	if err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "verifier"))
	}
	prov, err := a.ledger.GetProvision(*provider, *verifier)
	if err != nil {
		return err
	}
	if prov.IsEmpty() {
		return restutil.NotFound(errors.New("provision not found"))
	}
	requests, err := a.ledger.GetThawRequests(*provider, *verifier)
	if err != nil {
		return err
	}
	out := &Provision{
		ServiceProvider:       *provider,
		Verifier:              *verifier,
		Tokens:                prov.Tokens.String(),
		TokensThawing:         prov.Thawing.Tokens.String(),
		SharesThawing:         prov.Thawing.Shares.String(),
		MaxVerifierCut:        prov.MaxVerifierCut,
		ThawingPeriod:         prov.ThawingPeriod,
		PendingMaxVerifierCut: prov.PendingMaxVerifierCut,
		PendingThawingPeriod:  prov.PendingThawingPeriod,
		CreatedAt:             prov.CreatedAt,
		ThawRequests:          make([]ThawRequest, 0, len(requests)),
	}
	for _, r := range requests {
		out.ThawRequests = append(out.ThawRequests, ThawRequest{
			Shares:       r.Shares.String(),
			CreatedAt:    r.CreatedAt,
			ThawingUntil: r.ThawingUntil,
		})
	}
	return restutil.WriteJSON(w, out)
}

func (a *ledgerAPI) handleGetDelegationPool(w http.ResponseWriter, req *http.Request) error {
	vars := mux.Vars(req)
	provider, err := horizon.ParseAddress(vars["address"])
	if err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "address"))
	}
	verifier, err := horizon.ParseAddress(vars["verifier"])
	if err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "verifier"))
	}
	pool, err := a.ledger.GetDelegationPool(*provider, *verifier)
	if err != nil {
		return err
	}
	out := &DelegationPool{
		Tokens:            "0",
		Shares:            "0",
		QueryFeeCut:       pool.QueryFeeCut,
		IndexingRewardCut: pool.IndexingRewardCut,
	}
	if pool.Vault.Tokens != nil {
		out.Tokens = pool.Vault.Tokens.String()
	}
	if pool.Vault.Shares != nil {
		out.Shares = pool.Vault.Shares.String()
	}
	return restutil.WriteJSON(w, out)
}

func (a *ledgerAPI) handleGetDelegation(w http.ResponseWriter, req *http.Request) error {
	vars := mux.Vars(req)
	provider, err := horizon.ParseAddress(vars["address"])
	if err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "address"))
	}
	verifier, err := horizon.ParseAddress(vars["verifier"])
	if err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "verifier"))
	}
	delegator, err := horizon.ParseAddress(vars["delegator"])
	if err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "delegator"))
	}
	del, err := a.ledger.GetDelegation(*provider, *verifier, *delegator)
	if err != nil {
		return err
	}
	pool, err := a.ledger.GetDelegationPool(*provider, *verifier)
	if err != nil {
		return err
	}
	return restutil.WriteJSON(w, &Delegation{
		Delegator: *delegator,
		Shares:    del.Shares.String(),
		Tokens:    pool.Vault.TokensFor(del.Shares).String(),
	})
}

func (a *ledgerAPI) handleGetAllocation(w http.ResponseWriter, req *http.Request) error {
	id, err := horizon.ParseBytes32(mux.Vars(req)["id"])
	if err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "id"))
	}
	alloc, err := a.ledger.GetAllocation(id)
	if err != nil {
		return err
	}
	if !alloc.Exists() {
		return restutil.NotFound(errors.New("allocation not found"))
	}
	return restutil.WriteJSON(w, &Allocation{
		ID:              id,
		ServiceProvider: alloc.ServiceProvider,
		Deployment:      alloc.DeploymentID,
		Tokens:          alloc.Tokens.String(),
		CreatedAtEpoch:  alloc.CreatedAtEpoch,
		ClosedAtEpoch:   alloc.ClosedAtEpoch,
		Closed:          alloc.Closed,
	})
}

func (a *ledgerAPI) mount(router *mux.Router) {
	sub := router.PathPrefix("/").Subrouter()
	sub.Path("/accounts/{address}").
		Methods(http.MethodGet).
		HandlerFunc(restutil.WrapHandlerFunc(a.handleGetAccount))
	sub.Path("/providers/{address}").
		Methods(http.MethodGet).
		HandlerFunc(restutil.WrapHandlerFunc(a.handleGetProvider))
	sub.Path("/providers/{address}/provisions/{verifier}").
		Methods(http.MethodGet).
		HandlerFunc(restutil.WrapHandlerFunc(a.handleGetProvision))
	sub.Path("/providers/{address}/provisions/{verifier}/pool").
		Methods(http.MethodGet).
		HandlerFunc(restutil.WrapHandlerFunc(a.handleGetDelegationPool))
	sub.Path("/providers/{address}/provisions/{verifier}/delegations/{delegator}").
		Methods(http.MethodGet).
		HandlerFunc(restutil.WrapHandlerFunc(a.handleGetDelegation))
	sub.Path("/allocations/{id}").
		Methods(http.MethodGet).
		HandlerFunc(restutil.WrapHandlerFunc(a.handleGetAllocation))
}
