// Copyright (c) 2025 The Horizon Ledger developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/horizonledger/horizon/horizon"
	"github.com/horizonledger/horizon/ledger/rebates"
	"github.com/horizonledger/horizon/ledger/reverts"
	"github.com/horizonledger/horizon/lvldb"
	"github.com/horizonledger/horizon/state"
)

var (
	governor  = horizon.BytesToAddress([]byte("governor"))
	subgraph  = horizon.BytesToAddress([]byte("subgraph-service"))
	provider  = horizon.BytesToAddress([]byte("provider"))
	verifier  = horizon.BytesToAddress([]byte("verifier"))
	verifier2 = horizon.BytesToAddress([]byte("verifier2"))
	operator  = horizon.BytesToAddress([]byte("operator"))
	delegator = horizon.BytesToAddress([]byte("delegator"))
	payer     = horizon.BytesToAddress([]byte("payer"))

	allocID    = horizon.BytesToBytes32([]byte("alloc-1"))
	deployment = horizon.BytesToBytes32([]byte("deployment-1"))
)

// recordingSink collects events of committed operations.
type recordingSink struct {
	events []Event
}

func (s *recordingSink) Emit(ev Event) {
	s.events = append(s.events, ev)
}

func (s *recordingSink) named(name string) []Event {
	var out []Event
	for _, ev := range s.events {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

// curationStub answers curation signal per deployment.
type curationStub struct {
	signal map[horizon.Bytes32]*big.Int
}

func (c *curationStub) SignalledTokens(deployment horizon.Bytes32) (*big.Int, error) {
	if v, ok := c.signal[deployment]; ok {
		return v, nil
	}
	return new(big.Int), nil
}

// rewardsStub hands out a fixed reward per close.
type rewardsStub struct {
	rewards *big.Int
}

func (r *rewardsStub) TakeRewards(_ horizon.Bytes32) (*big.Int, error) {
	return new(big.Int).Set(r.rewards), nil
}

func newTestLedger(t *testing.T, opts ...Option) (*Ledger, *state.State, *recordingSink) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	st := state.New(db)

	sink := &recordingSink{}
	l := New(st, append([]Option{WithEventSink(sink)}, opts...)...)

	p := l.Params()
	require.NoError(t, p.SetAddress(horizon.KeyGovernor, governor))
	require.NoError(t, p.SetAddress(horizon.KeySubgraphService, subgraph))
	require.NoError(t, p.Set(horizon.KeyMinimumProvisionTokens, big.NewInt(100)))
	require.NoError(t, p.Set(horizon.KeyMaxThawingPeriod, big.NewInt(1000)))
	require.NoError(t, p.Set(horizon.KeyProtocolTaxCut, big.NewInt(10_000))) // 1%
	require.NoError(t, p.Set(horizon.KeyCurationCut, big.NewInt(100_000)))  // 10%
	require.NoError(t, p.Set(horizon.KeyRebateAlpha, new(big.Int).SetUint64(horizon.PPM)))
	require.NoError(t, p.Set(horizon.KeyRebateLambda, big.NewInt(600_000)))
	require.NoError(t, p.Set(horizon.KeyMaxAllocationEpochs, big.NewInt(5)))

	for _, addr := range []horizon.Address{provider, delegator, payer, operator} {
		st.SetBalance(addr, big.NewInt(1_000_000))
	}
	return l, st, sink
}

func balanceOf(t *testing.T, l *Ledger, addr horizon.Address) *big.Int {
	t.Helper()
	b, err := l.GetBalance(addr)
	require.NoError(t, err)
	return b
}

func TestStakeAndUnstake(t *testing.T) {
	l, _, sink := newTestLedger(t)

	require.NoError(t, l.Stake(provider, big.NewInt(1000)))
	assert.Equal(t, big.NewInt(999_000), balanceOf(t, l, provider))
	assert.Equal(t, big.NewInt(1000), balanceOf(t, l, Address))

	sp, err := l.GetServiceProvider(provider)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1000), sp.TokensStaked)

	// anyone may fund anyone's stake
	require.NoError(t, l.StakeTo(payer, provider, big.NewInt(500)))
	sp, err = l.GetServiceProvider(provider)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1500), sp.TokensStaked)

	require.NoError(t, l.Unstake(provider, big.NewInt(1500)))
	assert.Equal(t, big.NewInt(1_000_500), balanceOf(t, l, provider))
	assert.Zero(t, balanceOf(t, l, Address).Sign())

	assert.ErrorIs(t, l.Unstake(provider, big.NewInt(1)), reverts.ErrInsufficient)
	assert.ErrorIs(t, l.Stake(provider, new(big.Int)), reverts.ErrParameter)

	assert.Len(t, sink.named(EventStakeDeposited), 2)
	assert.Len(t, sink.named(EventStakeWithdrawn), 1)
}

func TestProvisionThawDeprovision(t *testing.T) {
	l, _, sink := newTestLedger(t)

	require.NoError(t, l.Stake(provider, big.NewInt(1000)))
	require.NoError(t, l.Provision(provider, provider, verifier, big.NewInt(500), 500_000, 100, 1))

	// provisioned stake is not idle
	assert.ErrorIs(t, l.Unstake(provider, big.NewInt(600)), reverts.ErrInsufficient)
	require.NoError(t, l.Unstake(provider, big.NewInt(500)))

	require.NoError(t, l.Thaw(provider, provider, verifier, big.NewInt(200), 100))
	prov, err := l.GetProvision(provider, verifier)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(300), prov.Tokens)
	assert.Equal(t, big.NewInt(200), prov.Thawing.Tokens)

	reqs, err := l.GetThawRequests(provider, verifier)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, uint64(200), reqs[0].ThawingUntil)

	// still thawing at t=150
	err = l.Deprovision(provider, provider, verifier, 0, 150)
	assert.ErrorIs(t, err, reverts.ErrPrecondition)

	require.NoError(t, l.Deprovision(provider, provider, verifier, 0, 200))
	sp, err := l.GetServiceProvider(provider)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(300), sp.TokensProvisioned)
	assert.Equal(t, big.NewInt(200), sp.IdleStake())
	require.NoError(t, l.Unstake(provider, big.NewInt(200)))

	assert.Len(t, sink.named(EventTokensDeprovisioned), 1)
}

func TestThawingPeriodFrozenAtRequest(t *testing.T) {
	l, _, _ := newTestLedger(t)

	require.NoError(t, l.Stake(provider, big.NewInt(1000)))
	require.NoError(t, l.Provision(provider, provider, verifier, big.NewInt(500), 0, 100, 1))
	require.NoError(t, l.Thaw(provider, provider, verifier, big.NewInt(100), 10))

	// shortening the period later does not move the queued request
	require.NoError(t, l.SetProvisionParameters(provider, provider, verifier, 0, 10))
	require.NoError(t, l.AcceptProvisionParameters(verifier, provider))

	reqs, err := l.GetThawRequests(provider, verifier)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, uint64(110), reqs[0].ThawingUntil)

	// a new request picks up the accepted period
	require.NoError(t, l.Thaw(provider, provider, verifier, big.NewInt(100), 20))
	reqs, err = l.GetThawRequests(provider, verifier)
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	assert.Equal(t, uint64(30), reqs[1].ThawingUntil)
}

func TestDeprovisionPartialResolution(t *testing.T) {
	l, _, _ := newTestLedger(t)

	require.NoError(t, l.Stake(provider, big.NewInt(1000)))
	require.NoError(t, l.Provision(provider, provider, verifier, big.NewInt(600), 0, 100, 1))
	require.NoError(t, l.Thaw(provider, provider, verifier, big.NewInt(100), 10))
	require.NoError(t, l.Thaw(provider, provider, verifier, big.NewInt(100), 20))
	require.NoError(t, l.Thaw(provider, provider, verifier, big.NewInt(100), 30))

	// limit to one resolution even though two have matured
	require.NoError(t, l.Deprovision(provider, provider, verifier, 1, 125))
	reqs, err := l.GetThawRequests(provider, verifier)
	require.NoError(t, err)
	assert.Len(t, reqs, 2)

	// the rest resolves up to the first unmatured request
	require.NoError(t, l.Deprovision(provider, provider, verifier, 0, 125))
	reqs, err = l.GetThawRequests(provider, verifier)
	require.NoError(t, err)
	assert.Len(t, reqs, 1)

	sp, err := l.GetServiceProvider(provider)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(600), sp.IdleStake())
}

func TestSlashDilutesThawing(t *testing.T) {
	l, _, sink := newTestLedger(t)

	require.NoError(t, l.Stake(provider, big.NewInt(1000)))
	require.NoError(t, l.Provision(provider, provider, verifier, big.NewInt(200), 500_000, 100, 1))
	require.NoError(t, l.Thaw(provider, provider, verifier, big.NewInt(100), 10))

	// 150 slashed: the 100 active tokens burn first, the thawing pool
	// loses the other 50 while its shares stay put
	require.NoError(t, l.Slash(verifier, provider, big.NewInt(150), big.NewInt(60), horizon.Address{}))

	prov, err := l.GetProvision(provider, verifier)
	require.NoError(t, err)
	assert.Zero(t, prov.Tokens.Sign())
	assert.Equal(t, big.NewInt(50), prov.Thawing.Tokens)
	assert.Equal(t, big.NewInt(100), prov.Thawing.Shares)

	sp, err := l.GetServiceProvider(provider)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(850), sp.TokensStaked)
	assert.Equal(t, big.NewInt(50), sp.TokensProvisioned)

	// a zero destination pays the verifier itself
	assert.Equal(t, big.NewInt(60), balanceOf(t, l, verifier))
	assert.Equal(t, big.NewInt(90), balanceOf(t, l, horizon.BurnAddress))

	// the queued request resolves to its diluted value
	require.NoError(t, l.Deprovision(provider, provider, verifier, 0, 110))
	sp, err = l.GetServiceProvider(provider)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(850), sp.IdleStake())

	assert.Len(t, sink.named(EventProvisionSlashed), 1)
	assert.Len(t, sink.named(EventVerifierTokensSent), 1)
}

func TestSlashGuards(t *testing.T) {
	l, _, _ := newTestLedger(t)

	require.NoError(t, l.Stake(provider, big.NewInt(1000)))
	require.NoError(t, l.Provision(provider, provider, verifier, big.NewInt(500), 100_000, 100, 1))

	// only the provision's verifier can slash, operators do not apply
	err := l.Slash(verifier2, provider, big.NewInt(100), new(big.Int), horizon.Address{})
	assert.ErrorIs(t, err, reverts.ErrPrecondition)

	// the verifier cut is capped by maxVerifierCut of the slashed amount
	maxCut := rebates.MulPPM(big.NewInt(100), 100_000)
	err = l.Slash(verifier, provider, big.NewInt(100), new(big.Int).Add(maxCut, big.NewInt(1)), horizon.Address{})
	assert.ErrorIs(t, err, reverts.ErrParameter)

	err = l.Slash(verifier, provider, big.NewInt(501), new(big.Int), horizon.Address{})
	assert.ErrorIs(t, err, reverts.ErrInsufficient)

	err = l.Slash(verifier, provider, big.NewInt(100), big.NewInt(-1), horizon.Address{})
	assert.ErrorIs(t, err, reverts.ErrPrecondition)
}

func TestReprovision(t *testing.T) {
	l, _, _ := newTestLedger(t)

	require.NoError(t, l.Stake(provider, big.NewInt(1000)))
	require.NoError(t, l.Provision(provider, provider, verifier, big.NewInt(500), 0, 100, 1))
	require.NoError(t, l.Provision(provider, provider, verifier2, big.NewInt(400), 0, 100, 1))
	require.NoError(t, l.Thaw(provider, provider, verifier, big.NewInt(100), 10))

	// 100 resolved plus 50 of the remaining idle stake
	require.NoError(t, l.Reprovision(provider, provider, verifier, verifier2, big.NewInt(150), 0, 110))

	prov, err := l.GetProvision(provider, verifier2)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(550), prov.Tokens)

	sp, err := l.GetServiceProvider(provider)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(950), sp.TokensProvisioned)
	assert.Equal(t, big.NewInt(50), sp.IdleStake())
}

func TestReprovisionRevertsAtomically(t *testing.T) {
	l, _, sink := newTestLedger(t)

	require.NoError(t, l.Stake(provider, big.NewInt(600)))
	require.NoError(t, l.Provision(provider, provider, verifier, big.NewInt(500), 0, 100, 1))
	require.NoError(t, l.Provision(provider, provider, verifier2, big.NewInt(100), 0, 100, 1))
	require.NoError(t, l.Thaw(provider, provider, verifier, big.NewInt(100), 10))
	emitted := len(sink.events)

	// resolved 100 plus idle 0 cannot cover 200: the whole operation,
	// including the queue pop, must roll back
	err := l.Reprovision(provider, provider, verifier, verifier2, big.NewInt(200), 0, 110)
	assert.ErrorIs(t, err, reverts.ErrInsufficient)

	reqs, err := l.GetThawRequests(provider, verifier)
	require.NoError(t, err)
	assert.Len(t, reqs, 1, "thaw request restored on revert")
	prov, err := l.GetProvision(provider, verifier)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100), prov.Thawing.Tokens)
	assert.Len(t, sink.events, emitted, "no events on revert")
}

func TestOperatorAuthorization(t *testing.T) {
	l, _, _ := newTestLedger(t)

	require.NoError(t, l.Stake(provider, big.NewInt(1000)))

	err := l.Provision(operator, provider, verifier, big.NewInt(500), 0, 100, 1)
	assert.ErrorIs(t, err, reverts.ErrUnauthorized)

	require.NoError(t, l.SetOperator(provider, verifier, operator, true))
	require.NoError(t, l.Provision(operator, provider, verifier, big.NewInt(500), 0, 100, 1))
	require.NoError(t, l.Thaw(operator, provider, verifier, big.NewInt(100), 10))

	// approvals are per verifier
	err = l.Provision(operator, provider, verifier2, big.NewInt(100), 0, 100, 1)
	assert.ErrorIs(t, err, reverts.ErrUnauthorized)

	require.NoError(t, l.SetOperator(provider, verifier, operator, false))
	err = l.Thaw(operator, provider, verifier, big.NewInt(100), 20)
	assert.ErrorIs(t, err, reverts.ErrUnauthorized)
}

func TestLockedOperatorNeedsAllowedVerifier(t *testing.T) {
	l, _, _ := newTestLedger(t)

	err := l.SetOperatorLocked(provider, verifier, operator, true)
	assert.Error(t, err, "verifier not allow-listed yet")

	assert.ErrorIs(t, l.SetAllowedVerifier(provider, verifier, true), reverts.ErrUnauthorized)
	require.NoError(t, l.SetAllowedVerifier(governor, verifier, true))
	require.NoError(t, l.SetOperatorLocked(provider, verifier, operator, true))

	ok, err := l.IsAuthorized(operator, provider, verifier)
	require.NoError(t, err)
	assert.True(t, ok)

	// dropping the verifier from the allow-list disables the approval
	require.NoError(t, l.SetAllowedVerifier(governor, verifier, false))
	ok, err = l.IsAuthorized(operator, provider, verifier)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetParamGovernorOnly(t *testing.T) {
	l, _, _ := newTestLedger(t)

	err := l.SetParam(provider, horizon.KeyCurationCut, big.NewInt(1))
	assert.ErrorIs(t, err, reverts.ErrUnauthorized)

	require.NoError(t, l.SetParam(governor, horizon.KeyCurationCut, big.NewInt(200_000)))
	v, err := l.Params().Get(horizon.KeyCurationCut)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(200_000), v)
}

func TestAcceptProvisionParameters(t *testing.T) {
	l, _, sink := newTestLedger(t)

	require.NoError(t, l.Stake(provider, big.NewInt(1000)))
	require.NoError(t, l.Provision(provider, provider, verifier, big.NewInt(500), 100_000, 50, 1))

	require.NoError(t, l.SetProvisionParameters(provider, provider, verifier, 200_000, 80))
	prov, err := l.GetProvision(provider, verifier)
	require.NoError(t, err)
	assert.Equal(t, uint64(100_000), prov.MaxVerifierCut, "staged values inactive")

	require.NoError(t, l.AcceptProvisionParameters(verifier, provider))
	prov, err = l.GetProvision(provider, verifier)
	require.NoError(t, err)
	assert.Equal(t, uint64(200_000), prov.MaxVerifierCut)
	assert.Equal(t, uint64(80), prov.ThawingPeriod)
	assert.Len(t, sink.named(EventParametersSet), 1)

	// accepting with nothing staged succeeds and emits nothing
	require.NoError(t, l.AcceptProvisionParameters(verifier, provider))
	assert.Len(t, sink.named(EventParametersSet), 1)
}

func TestDelegateAndUndelegate(t *testing.T) {
	l, _, _ := newTestLedger(t)

	err := l.Delegate(delegator, provider, verifier, big.NewInt(100))
	assert.ErrorIs(t, err, reverts.ErrPrecondition, "provision must exist")

	require.NoError(t, l.Stake(provider, big.NewInt(1000)))
	require.NoError(t, l.Provision(provider, provider, verifier, big.NewInt(500), 0, 100, 1))

	require.NoError(t, l.Delegate(delegator, provider, verifier, big.NewInt(100)))
	assert.Equal(t, big.NewInt(999_900), balanceOf(t, l, delegator))

	del, err := l.GetDelegation(provider, verifier, delegator)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100), del.Shares)

	require.NoError(t, l.Undelegate(delegator, provider, verifier, big.NewInt(100)))
	assert.Equal(t, big.NewInt(1_000_000), balanceOf(t, l, delegator))
}

func TestCollectSplit(t *testing.T) {
	curation := &curationStub{signal: map[horizon.Bytes32]*big.Int{
		deployment: big.NewInt(1000),
	}}
	l, _, sink := newTestLedger(t, WithCurationOracle(curation))

	require.NoError(t, l.Stake(provider, big.NewInt(10_000)))
	require.NoError(t, l.Provision(provider, provider, subgraph, big.NewInt(5000), 0, 100, 1))
	require.NoError(t, l.Delegate(delegator, provider, subgraph, big.NewInt(1000)))
	require.NoError(t, l.SetDelegationParameters(provider, provider, subgraph, 500_000, 0))
	require.NoError(t, l.Allocate(provider, provider, allocID, deployment, big.NewInt(2000), 1))

	tokens := big.NewInt(10_000)
	require.NoError(t, l.Collect(payer, tokens, allocID))

	// 1% protocol tax, then 10% curation on the remainder
	tax := big.NewInt(100)
	curationCut := big.NewInt(990)
	remaining := big.NewInt(8910)
	payment := rebates.ExponentialRebate(remaining, big.NewInt(2000), horizon.PPM, 600_000)
	assert.True(t, payment.Cmp(remaining) < 0, "rebate cap withholds part of the fees")
	withheld := new(big.Int).Sub(remaining, payment)

	assert.Equal(t, curationCut, balanceOf(t, l, horizon.CurationAddress))
	assert.Equal(t, new(big.Int).Add(tax, withheld), balanceOf(t, l, horizon.BurnAddress))

	// half of the payment went to the delegation pool
	delegated := rebates.MulPPM(payment, 500_000)
	pool, err := l.GetDelegationPool(provider, subgraph)
	require.NoError(t, err)
	assert.Equal(t, new(big.Int).Add(big.NewInt(1000), delegated), pool.Vault.Tokens)

	// the rest restaked as idle stake
	sp, err := l.GetServiceProvider(provider)
	require.NoError(t, err)
	rest := new(big.Int).Sub(payment, delegated)
	assert.Equal(t, new(big.Int).Add(big.NewInt(10_000), rest), sp.TokensStaked)

	events := sink.named(EventFeesCollected)
	require.Len(t, events, 1)
	attrs := events[0].Attrs
	assert.Equal(t, tax, attrs["protocolTax"])
	assert.Equal(t, curationCut, attrs["curation"])
	assert.Equal(t, payment, attrs["payment"])
	assert.Equal(t, withheld, attrs["burned"])

	// conservation: every fee token is accounted for
	total := new(big.Int).Add(tax, curationCut)
	total.Add(total, withheld)
	total.Add(total, payment)
	assert.Equal(t, tokens, total)
}

func TestCollectWithoutSignalSkipsCuration(t *testing.T) {
	curation := &curationStub{signal: map[horizon.Bytes32]*big.Int{}}
	l, _, _ := newTestLedger(t, WithCurationOracle(curation))

	require.NoError(t, l.Stake(provider, big.NewInt(10_000)))
	require.NoError(t, l.Provision(provider, provider, subgraph, big.NewInt(5000), 0, 100, 1))
	// a big allocation saturates the rebate so nothing is withheld
	require.NoError(t, l.Allocate(provider, provider, allocID, deployment, big.NewInt(5000), 1))

	require.NoError(t, l.Collect(payer, big.NewInt(100), allocID))

	assert.Zero(t, balanceOf(t, l, horizon.CurationAddress).Sign())
	assert.Equal(t, big.NewInt(1), balanceOf(t, l, horizon.BurnAddress), "only the protocol tax burned")

	sp, err := l.GetServiceProvider(provider)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(10_099), sp.TokensStaked)
}

func TestCollectToRewardsDestination(t *testing.T) {
	l, _, _ := newTestLedger(t)

	beneficiary := horizon.BytesToAddress([]byte("beneficiary"))
	require.NoError(t, l.Stake(provider, big.NewInt(10_000)))
	require.NoError(t, l.Provision(provider, provider, subgraph, big.NewInt(5000), 0, 100, 1))
	require.NoError(t, l.Allocate(provider, provider, allocID, deployment, big.NewInt(5000), 1))
	require.NoError(t, l.SetRewardsDestination(provider, beneficiary))

	require.NoError(t, l.Collect(payer, big.NewInt(100), allocID))

	assert.Equal(t, big.NewInt(99), balanceOf(t, l, beneficiary))
	sp, err := l.GetServiceProvider(provider)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(10_000), sp.TokensStaked, "nothing restaked")
}

func TestAllocateGuards(t *testing.T) {
	l, _, _ := newTestLedger(t)

	require.NoError(t, l.Stake(provider, big.NewInt(1000)))
	require.NoError(t, l.Provision(provider, provider, subgraph, big.NewInt(500), 0, 100, 1))

	err := l.Allocate(provider, provider, allocID, deployment, big.NewInt(501), 1)
	assert.ErrorIs(t, err, reverts.ErrInsufficient, "capped by the provision")

	require.NoError(t, l.Allocate(provider, provider, allocID, deployment, big.NewInt(500), 1))
	err = l.Allocate(provider, provider, allocID, deployment, big.NewInt(1), 2)
	assert.ErrorIs(t, err, reverts.ErrPrecondition, "duplicate id")

	err = l.Collect(payer, new(big.Int), allocID)
	assert.ErrorIs(t, err, reverts.ErrParameter)
}

func TestCloseAllocation(t *testing.T) {
	rewards := &rewardsStub{rewards: big.NewInt(1000)}
	l, _, sink := newTestLedger(t, WithRewardsOracle(rewards))

	require.NoError(t, l.Stake(provider, big.NewInt(10_000)))
	require.NoError(t, l.Provision(provider, provider, subgraph, big.NewInt(5000), 0, 100, 1))
	require.NoError(t, l.Delegate(delegator, provider, subgraph, big.NewInt(1000)))
	require.NoError(t, l.SetDelegationParameters(provider, provider, subgraph, 0, 250_000))
	require.NoError(t, l.Allocate(provider, provider, allocID, deployment, big.NewInt(2000), 1))

	poi := horizon.BytesToBytes32([]byte("poi"))

	// a stranger cannot close a fresh allocation
	err := l.CloseAllocation(payer, allocID, poi, 3)
	assert.ErrorIs(t, err, reverts.ErrUnauthorized)

	require.NoError(t, l.CloseAllocation(provider, allocID, poi, 3))
	alloc, err := l.GetAllocation(allocID)
	require.NoError(t, err)
	assert.True(t, alloc.Closed)
	assert.Equal(t, uint64(3), alloc.ClosedAtEpoch)

	// minted rewards: a quarter to the delegation pool, the rest restaked
	pool, err := l.GetDelegationPool(provider, subgraph)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1250), pool.Vault.Tokens)
	sp, err := l.GetServiceProvider(provider)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(10_750), sp.TokensStaked)

	err = l.CloseAllocation(provider, allocID, poi, 4)
	assert.ErrorIs(t, err, reverts.ErrPrecondition, "closing is terminal")

	assert.Len(t, sink.named(EventAllocationClosed), 1)
}

func TestCloseAllocationPermissionlessWhenExpired(t *testing.T) {
	l, _, _ := newTestLedger(t)

	require.NoError(t, l.Stake(provider, big.NewInt(10_000)))
	require.NoError(t, l.Provision(provider, provider, subgraph, big.NewInt(5000), 0, 100, 1))
	require.NoError(t, l.Allocate(provider, provider, allocID, deployment, big.NewInt(2000), 1))

	poi := horizon.BytesToBytes32([]byte("poi"))

	// maxAllocationEpochs is 5: at epoch 6 the owner gate still applies
	err := l.CloseAllocation(payer, allocID, poi, 6)
	assert.ErrorIs(t, err, reverts.ErrUnauthorized)

	require.NoError(t, l.CloseAllocation(payer, allocID, poi, 7))
}

func TestSlashThenResolveRemainder(t *testing.T) {
	l, _, _ := newTestLedger(t)

	require.NoError(t, l.Stake(provider, big.NewInt(1000)))
	require.NoError(t, l.Provision(provider, provider, verifier, big.NewInt(500), 0, 100, 1))
	require.NoError(t, l.Thaw(provider, provider, verifier, big.NewInt(200), 10))

	// everything active is slashed plus half of the thawing pool
	require.NoError(t, l.Slash(verifier, provider, big.NewInt(400), new(big.Int), horizon.Address{}))

	require.NoError(t, l.Deprovision(provider, provider, verifier, 0, 110))
	sp, err := l.GetServiceProvider(provider)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(600), sp.TokensStaked)
	assert.Equal(t, big.NewInt(600), sp.IdleStake())
}
