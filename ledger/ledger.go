// Copyright (c) 2025 The Horizon Ledger developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package ledger is the staking and collateral-provisioning ledger. The
// Ledger facade owns every state-mutating entry point: it gates callers
// through the authorization registry, runs each operation against a
// state checkpoint so failures leave nothing behind, and emits events
// for the ones that commit. Token custody is plain balance accounting:
// staked value sits on the ledger's own account until it is unstaked,
// slashed or paid out.
package ledger

import (
	"math/big"

	"github.com/horizonledger/horizon/horizon"
	"github.com/horizonledger/horizon/ledger/allocation"
	"github.com/horizonledger/horizon/ledger/authority"
	"github.com/horizonledger/horizon/ledger/delegation"
	"github.com/horizonledger/horizon/ledger/provision"
	"github.com/horizonledger/horizon/ledger/reverts"
	"github.com/horizonledger/horizon/ledger/thawing"
	"github.com/horizonledger/horizon/log"
	"github.com/horizonledger/horizon/params"
	"github.com/horizonledger/horizon/slot"
	"github.com/horizonledger/horizon/state"
)

var logger = log.WithContext("pkg", "ledger")

// Well known ledger accounts.
var (
	// Address holds the ledger's storage and custodies all staked and
	// delegated tokens.
	Address = horizon.BytesToAddress([]byte("horizon-ledger"))

	// ParamsAddress holds the governance parameter registry storage.
	ParamsAddress = horizon.BytesToAddress([]byte("horizon-params"))
)

// Ledger is the facade over the staking services.
type Ledger struct {
	state       *state.State
	params      *params.Params
	auth        *authority.Service
	providers   *provision.Service
	thawing     *thawing.Service
	delegations *delegation.Service
	allocations *allocation.Service

	curation CurationOracle
	rewards  RewardsOracle
	sink     EventSink
}

// Option configures optional collaborators.
type Option func(*Ledger)

// WithCurationOracle wires the curation-signal oracle consulted during
// fee collection.
func WithCurationOracle(o CurationOracle) Option {
	return func(l *Ledger) { l.curation = o }
}

// WithRewardsOracle wires the indexing-rewards oracle consulted when
// allocations close.
func WithRewardsOracle(o RewardsOracle) Option {
	return func(l *Ledger) { l.rewards = o }
}

// WithEventSink wires the sink receiving events of committed operations.
func WithEventSink(s EventSink) Option {
	return func(l *Ledger) { l.sink = s }
}

// New create a ledger over the given state.
func New(st *state.State, opts ...Option) *Ledger {
	sctx := slot.NewContext(Address, st)
	l := &Ledger{
		state:       st,
		params:      params.New(ParamsAddress, st),
		auth:        authority.New(sctx),
		providers:   provision.New(sctx),
		thawing:     thawing.New(sctx),
		delegations: delegation.New(sctx),
		allocations: allocation.New(sctx),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Params exposes the governance parameter registry.
func (l *Ledger) Params() *params.Params {
	return l.params
}

// run executes one entry point atomically: state mutations revert and
// collected events are dropped if fn fails.
func (l *Ledger) run(op string, fn func(ev *eventCollector) error) error {
	checkpoint := l.state.NewCheckpoint()
	ev := &eventCollector{}
	if err := fn(ev); err != nil {
		l.state.RevertTo(checkpoint)
		metricOperations().AddWithLabel(1, map[string]string{"op": op, "status": "reverted"})
		logger.Debug("operation reverted", "op", op, "err", err)
		return err
	}
	metricOperations().AddWithLabel(1, map[string]string{"op": op, "status": "committed"})
	ev.flush(l.sink)
	return nil
}

// authorize gates an operation on the caller acting for the provider
// towards the verifier.
func (l *Ledger) authorize(caller, serviceProvider, verifier horizon.Address) error {
	ok, err := l.auth.IsAuthorized(caller, serviceProvider, verifier)
	if err != nil {
		return err
	}
	if !ok {
		return reverts.Unauthorized(caller, serviceProvider, verifier)
	}
	return nil
}

// transfer moves token balance between accounts.
func (l *Ledger) transfer(from, to horizon.Address, tokens *big.Int) error {
	if tokens.Sign() == 0 {
		return nil
	}
	balance, err := l.state.GetBalance(from)
	if err != nil {
		return err
	}
	if balance.Cmp(tokens) < 0 {
		return reverts.Insufficient("token balance of "+from.String(), tokens, balance)
	}
	l.state.SetBalance(from, balance.Sub(balance, tokens))
	balance, err = l.state.GetBalance(to)
	if err != nil {
		return err
	}
	l.state.SetBalance(to, balance.Add(balance, tokens))
	return nil
}

// mint credits freshly issued tokens (indexing rewards) to the ledger's
// custody account.
func (l *Ledger) mint(tokens *big.Int) error {
	balance, err := l.state.GetBalance(Address)
	if err != nil {
		return err
	}
	l.state.SetBalance(Address, balance.Add(balance, tokens))
	return nil
}

// paramUint64 reads a numeric governance param clamped to uint64.
func (l *Ledger) paramUint64(key horizon.Bytes32) (uint64, error) {
	v, err := l.params.Get(key)
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() {
		return 0, reverts.Precondition("param %x does not fit uint64", key.Bytes()[:8])
	}
	return v.Uint64(), nil
}

// governorOnly gates governance operations.
func (l *Ledger) governorOnly(caller horizon.Address) error {
	governor, err := l.params.GetAddress(horizon.KeyGovernor)
	if err != nil {
		return err
	}
	if caller != governor {
		return reverts.NotGovernor(caller)
	}
	return nil
}

// Stake deposits tokens from the caller's balance into its own stake.
func (l *Ledger) Stake(caller horizon.Address, tokens *big.Int) error {
	return l.StakeTo(caller, caller, tokens)
}

// StakeTo deposits tokens from the caller's balance into the service
// provider's stake. Anyone may fund anyone's stake.
func (l *Ledger) StakeTo(caller, serviceProvider horizon.Address, tokens *big.Int) error {
	return l.run("stake", func(ev *eventCollector) error {
		if tokens.Sign() <= 0 {
			return reverts.ZeroTokens("stake")
		}
		if err := l.transfer(caller, Address, tokens); err != nil {
			return err
		}
		if err := l.providers.AddStake(serviceProvider, tokens); err != nil {
			return err
		}
		ev.add(EventStakeDeposited, map[string]any{
			"caller":          caller,
			"serviceProvider": serviceProvider,
			"tokens":          tokens,
		})
		logger.Debug("stake deposited", "provider", serviceProvider, "tokens", tokens)
		return nil
	})
}

// Unstake returns idle stake to the caller's balance, immediately.
// Provisioned and thawing tokens cannot leave this way.
func (l *Ledger) Unstake(caller horizon.Address, tokens *big.Int) error {
	return l.run("unstake", func(ev *eventCollector) error {
		if tokens.Sign() <= 0 {
			return reverts.ZeroTokens("unstake")
		}
		if err := l.providers.WithdrawIdle(caller, tokens); err != nil {
			return err
		}
		if err := l.transfer(Address, caller, tokens); err != nil {
			return err
		}
		ev.add(EventStakeWithdrawn, map[string]any{
			"serviceProvider": caller,
			"tokens":          tokens,
		})
		logger.Debug("stake withdrawn", "provider", caller, "tokens", tokens)
		return nil
	})
}

// SetOperator approves or revokes an operator for the caller's
// provisions towards the verifier.
func (l *Ledger) SetOperator(caller, verifier, operator horizon.Address, allowed bool) error {
	return l.run("setOperator", func(ev *eventCollector) error {
		if err := l.auth.SetOperator(caller, verifier, operator, allowed); err != nil {
			return err
		}
		ev.add(EventOperatorSet, map[string]any{
			"serviceProvider": caller,
			"verifier":        verifier,
			"operator":        operator,
			"allowed":         allowed,
		})
		return nil
	})
}

// SetOperatorLocked approves or revokes a locked-class operator, only
// usable towards allow-listed verifiers.
func (l *Ledger) SetOperatorLocked(caller, verifier, operator horizon.Address, allowed bool) error {
	return l.run("setOperatorLocked", func(ev *eventCollector) error {
		if err := l.auth.SetLockedOperator(caller, verifier, operator, allowed); err != nil {
			return err
		}
		ev.add(EventOperatorSet, map[string]any{
			"serviceProvider": caller,
			"verifier":        verifier,
			"operator":        operator,
			"allowed":         allowed,
			"locked":          true,
		})
		return nil
	})
}

// SetAllowedVerifier updates the governance allow-list of verifiers for
// locked operators. Governor only.
func (l *Ledger) SetAllowedVerifier(caller, verifier horizon.Address, allowed bool) error {
	return l.run("setAllowedVerifier", func(ev *eventCollector) error {
		if err := l.governorOnly(caller); err != nil {
			return err
		}
		if err := l.auth.SetAllowedVerifier(verifier, allowed); err != nil {
			return err
		}
		ev.add(EventAllowedVerifierSet, map[string]any{
			"verifier": verifier,
			"allowed":  allowed,
		})
		return nil
	})
}

// SetParam updates a governance parameter. Governor only.
func (l *Ledger) SetParam(caller horizon.Address, key horizon.Bytes32, value *big.Int) error {
	return l.run("setParam", func(ev *eventCollector) error {
		if err := l.governorOnly(caller); err != nil {
			return err
		}
		if err := l.params.Set(key, value); err != nil {
			return err
		}
		ev.add(EventParamSet, map[string]any{
			"key":   key,
			"value": value,
		})
		return nil
	})
}
