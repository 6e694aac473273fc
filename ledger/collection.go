// Copyright (c) 2025 The Horizon Ledger developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"math/big"

	"github.com/horizonledger/horizon/horizon"
	"github.com/horizonledger/horizon/ledger/provision"
	"github.com/horizonledger/horizon/ledger/rebates"
	"github.com/horizonledger/horizon/ledger/reverts"
)

// Delegate deposits tokens from the caller's balance into the
// provision's delegation pool, minting shares at the current price.
// Delegated capital is active immediately: it backs collection and
// carries no maturation delay.
func (l *Ledger) Delegate(caller, serviceProvider, verifier horizon.Address, tokens *big.Int) error {
	return l.run("delegate", func(ev *eventCollector) error {
		key := provision.Key{ServiceProvider: serviceProvider, Verifier: verifier}
		if _, err := l.providers.GetExistingProvision(key); err != nil {
			return err
		}
		if tokens.Sign() <= 0 {
			return reverts.ZeroTokens("delegate")
		}
		if err := l.transfer(caller, Address, tokens); err != nil {
			return err
		}
		shares, err := l.delegations.Delegate(key, caller, tokens)
		if err != nil {
			return err
		}
		ev.add(EventTokensDelegated, map[string]any{
			"serviceProvider": serviceProvider,
			"verifier":        verifier,
			"delegator":       caller,
			"tokens":          tokens,
			"shares":          shares,
		})
		return nil
	})
}

// Undelegate burns the caller's delegation shares and returns their
// token value to the caller's balance.
func (l *Ledger) Undelegate(caller, serviceProvider, verifier horizon.Address, shares *big.Int) error {
	return l.run("undelegate", func(ev *eventCollector) error {
		key := provision.Key{ServiceProvider: serviceProvider, Verifier: verifier}
		tokens, err := l.delegations.Undelegate(key, caller, shares)
		if err != nil {
			return err
		}
		if err := l.transfer(Address, caller, tokens); err != nil {
			return err
		}
		ev.add(EventTokensUndelegated, map[string]any{
			"serviceProvider": serviceProvider,
			"verifier":        verifier,
			"delegator":       caller,
			"tokens":          tokens,
			"shares":          shares,
		})
		return nil
	})
}

// SetDelegationParameters updates the cuts routing collected income to
// the provision's delegation pool.
func (l *Ledger) SetDelegationParameters(
	caller, serviceProvider, verifier horizon.Address,
	queryFeeCut, indexingRewardCut uint64,
) error {
	return l.run("setDelegationParameters", func(ev *eventCollector) error {
		if err := l.authorize(caller, serviceProvider, verifier); err != nil {
			return err
		}
		key := provision.Key{ServiceProvider: serviceProvider, Verifier: verifier}
		if _, err := l.providers.GetExistingProvision(key); err != nil {
			return err
		}
		if _, err := l.delegations.SetParameters(key, queryFeeCut, indexingRewardCut); err != nil {
			return err
		}
		ev.add(EventDelegationParamsSet, map[string]any{
			"serviceProvider":   serviceProvider,
			"verifier":          verifier,
			"queryFeeCut":       queryFeeCut,
			"indexingRewardCut": indexingRewardCut,
		})
		return nil
	})
}

// SetRewardsDestination sets where the caller's collected income is
// paid out. The zero address clears it, restaking income instead.
func (l *Ledger) SetRewardsDestination(caller, destination horizon.Address) error {
	return l.run("setRewardsDestination", func(ev *eventCollector) error {
		if err := l.allocations.SetRewardsDestination(caller, destination); err != nil {
			return err
		}
		ev.add(EventRewardsDestinationSet, map[string]any{
			"serviceProvider": caller,
			"destination":     destination,
		})
		return nil
	})
}

// Allocate opens an allocation of tokens to a deployment, backed by the
// provider's provision towards the subgraph service.
func (l *Ledger) Allocate(
	caller, serviceProvider horizon.Address,
	allocationID horizon.Bytes32,
	deployment horizon.Bytes32,
	tokens *big.Int,
	epoch uint64,
) error {
	return l.run("allocate", func(ev *eventCollector) error {
		verifier, err := l.params.GetAddress(horizon.KeySubgraphService)
		if err != nil {
			return err
		}
		if err := l.authorize(caller, serviceProvider, verifier); err != nil {
			return err
		}
		key := provision.Key{ServiceProvider: serviceProvider, Verifier: verifier}
		prov, err := l.providers.GetExistingProvision(key)
		if err != nil {
			return err
		}
		if tokens.Cmp(prov.Tokens) > 0 {
			return reverts.Insufficient("provision tokens", tokens, prov.Tokens)
		}
		if _, err := l.allocations.Create(allocationID, serviceProvider, deployment, tokens, epoch); err != nil {
			return err
		}
		ev.add(EventAllocationCreated, map[string]any{
			"serviceProvider": serviceProvider,
			"allocationID":    allocationID,
			"deployment":      deployment,
			"tokens":          tokens,
			"epoch":           epoch,
		})
		return nil
	})
}

// Collect settles fees against an active allocation. The caller funds
// the fees from its balance; anyone may collect. The split, in order:
// protocol tax, curation cut when the deployment has signal, the
// exponential rebate cap, the delegation query-fee cut, and the
// remainder to the provider's rewards destination or back into its
// stake. Fees withheld by the rebate cap are burned.
func (l *Ledger) Collect(caller horizon.Address, tokens *big.Int, allocationID horizon.Bytes32) error {
	return l.run("collect", func(ev *eventCollector) error {
		if tokens.Sign() <= 0 {
			return reverts.ZeroTokens("collect")
		}
		alloc, err := l.allocations.GetExisting(allocationID)
		if err != nil {
			return err
		}
		if !alloc.IsActive() {
			return reverts.Precondition("allocation %s is not active", allocationID.AbbrevString())
		}
		verifier, err := l.params.GetAddress(horizon.KeySubgraphService)
		if err != nil {
			return err
		}
		key := provision.Key{ServiceProvider: alloc.ServiceProvider, Verifier: verifier}
		prov, err := l.providers.GetProvision(key)
		if err != nil {
			return err
		}
		if prov.IsEmpty() {
			return reverts.Precondition("nothing to collect against for %s", alloc.ServiceProvider)
		}

		if err := l.transfer(caller, Address, tokens); err != nil {
			return err
		}

		taxCut, err := l.paramUint64(horizon.KeyProtocolTaxCut)
		if err != nil {
			return err
		}
		tax := rebates.CeilPPM(tokens, taxCut)
		if err := l.transfer(Address, horizon.BurnAddress, tax); err != nil {
			return err
		}
		remaining := new(big.Int).Sub(tokens, tax)

		curation := new(big.Int)
		if l.curation != nil {
			signal, err := l.curation.SignalledTokens(alloc.DeploymentID)
			if err != nil {
				return err
			}
			if signal.Sign() > 0 {
				curationCut, err := l.paramUint64(horizon.KeyCurationCut)
				if err != nil {
					return err
				}
				curation = rebates.CeilPPM(remaining, curationCut)
				if err := l.transfer(Address, horizon.CurationAddress, curation); err != nil {
					return err
				}
				remaining.Sub(remaining, curation)
			}
		}

		alpha, err := l.paramUint64(horizon.KeyRebateAlpha)
		if err != nil {
			return err
		}
		lambda, err := l.paramUint64(horizon.KeyRebateLambda)
		if err != nil {
			return err
		}
		payment := rebates.ExponentialRebate(remaining, alloc.Tokens, alpha, lambda)
		if payment.Cmp(remaining) > 0 {
			payment = new(big.Int).Set(remaining)
		}
		burned := new(big.Int).Sub(remaining, payment)
		if err := l.transfer(Address, horizon.BurnAddress, burned); err != nil {
			return err
		}

		delegated, err := l.payOut(alloc.ServiceProvider, key, payment, queryFeeCut)
		if err != nil {
			return err
		}

		metricCollects().Add(1)
		ev.add(EventFeesCollected, map[string]any{
			"serviceProvider": alloc.ServiceProvider,
			"allocationID":    allocationID,
			"tokens":          tokens,
			"protocolTax":     tax,
			"curation":        curation,
			"payment":         payment,
			"delegated":       delegated,
			"burned":          burned,
		})
		logger.Debug("fees collected",
			"provider", alloc.ServiceProvider, "allocation", allocationID, "tokens", tokens, "payment", payment)
		return nil
	})
}

// CloseAllocation closes an active allocation and settles its indexing
// rewards. Only the allocation's owner (or an operator) may close it
// until it exceeds the maximum open age; then anyone may.
func (l *Ledger) CloseAllocation(caller horizon.Address, allocationID, poi horizon.Bytes32, epoch uint64) error {
	return l.run("closeAllocation", func(ev *eventCollector) error {
		alloc, err := l.allocations.GetExisting(allocationID)
		if err != nil {
			return err
		}
		if !alloc.IsActive() {
			return reverts.Precondition("allocation %s is not active", allocationID.AbbrevString())
		}
		verifier, err := l.params.GetAddress(horizon.KeySubgraphService)
		if err != nil {
			return err
		}
		maxEpochs, err := l.paramUint64(horizon.KeyMaxAllocationEpochs)
		if err != nil {
			return err
		}
		if epoch <= alloc.CreatedAtEpoch+maxEpochs {
			if err := l.authorize(caller, alloc.ServiceProvider, verifier); err != nil {
				return err
			}
		}
		if _, err := l.allocations.Close(allocationID, epoch); err != nil {
			return err
		}

		rewards := new(big.Int)
		delegated := new(big.Int)
		if l.rewards != nil {
			rewards, err = l.rewards.TakeRewards(allocationID)
			if err != nil {
				return err
			}
			if rewards.Sign() > 0 {
				if err := l.mint(rewards); err != nil {
					return err
				}
				key := provision.Key{ServiceProvider: alloc.ServiceProvider, Verifier: verifier}
				delegated, err = l.payOut(alloc.ServiceProvider, key, rewards, indexingRewardCut)
				if err != nil {
					return err
				}
			}
		}

		ev.add(EventAllocationClosed, map[string]any{
			"serviceProvider": alloc.ServiceProvider,
			"allocationID":    allocationID,
			"poi":             poi,
			"epoch":           epoch,
			"rewards":         rewards,
			"delegated":       delegated,
		})
		logger.Debug("allocation closed",
			"provider", alloc.ServiceProvider, "allocation", allocationID, "epoch", epoch, "rewards", rewards)
		return nil
	})
}

// cutKind selects which delegation cut applies to a payout.
type cutKind int

const (
	queryFeeCut cutKind = iota
	indexingRewardCut
)

// payOut routes income already held in custody: the delegation cut to
// the provision's pool, the rest to the provider's rewards destination
// or back into its stake. Returns the delegated slice.
func (l *Ledger) payOut(serviceProvider horizon.Address, key provision.Key, tokens *big.Int, kind cutKind) (*big.Int, error) {
	rest := new(big.Int).Set(tokens)
	delegated := new(big.Int)

	pool, err := l.delegations.GetPool(key)
	if err != nil {
		return nil, err
	}
	if pool.Vault.Shares != nil && pool.Vault.Shares.Sign() > 0 {
		cut := pool.QueryFeeCut
		if kind == indexingRewardCut {
			cut = pool.IndexingRewardCut
		}
		delegated = rebates.MulPPM(tokens, cut)
		if delegated.Sign() > 0 {
			if err := l.delegations.AddToPool(key, delegated); err != nil {
				return nil, err
			}
			rest.Sub(rest, delegated)
		}
	}

	if rest.Sign() == 0 {
		return delegated, nil
	}
	destination, err := l.allocations.GetRewardsDestination(serviceProvider)
	if err != nil {
		return nil, err
	}
	if !destination.IsZero() {
		return delegated, l.transfer(Address, destination, rest)
	}
	// restake: the tokens stay in custody and become idle stake
	return delegated, l.providers.AddStake(serviceProvider, rest)
}
