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

// Provision commits idle stake of the service provider to a new
// provision towards the verifier.
func (l *Ledger) Provision(
	caller, serviceProvider, verifier horizon.Address,
	tokens *big.Int,
	maxVerifierCut uint64,
	thawingPeriod uint64,
	now uint64,
) error {
	return l.run("provision", func(ev *eventCollector) error {
		if err := l.authorize(caller, serviceProvider, verifier); err != nil {
			return err
		}
		minTokens, err := l.params.Get(horizon.KeyMinimumProvisionTokens)
		if err != nil {
			return err
		}
		maxThawingPeriod, err := l.paramUint64(horizon.KeyMaxThawingPeriod)
		if err != nil {
			return err
		}
		key := provision.Key{ServiceProvider: serviceProvider, Verifier: verifier}
		if _, err := l.providers.CreateProvision(key, tokens, maxVerifierCut, thawingPeriod, now, minTokens, maxThawingPeriod); err != nil {
			return err
		}
		ev.add(EventProvisionCreated, map[string]any{
			"serviceProvider": serviceProvider,
			"verifier":        verifier,
			"tokens":          tokens,
			"maxVerifierCut":  maxVerifierCut,
			"thawingPeriod":   thawingPeriod,
		})
		logger.Debug("provision created",
			"provider", serviceProvider, "verifier", verifier, "tokens", tokens)
		return nil
	})
}

// AddToProvision moves more idle stake into an existing provision.
func (l *Ledger) AddToProvision(caller, serviceProvider, verifier horizon.Address, tokens *big.Int) error {
	return l.run("addToProvision", func(ev *eventCollector) error {
		if err := l.authorize(caller, serviceProvider, verifier); err != nil {
			return err
		}
		key := provision.Key{ServiceProvider: serviceProvider, Verifier: verifier}
		if _, err := l.providers.AddToProvision(key, tokens); err != nil {
			return err
		}
		ev.add(EventProvisionIncreased, map[string]any{
			"serviceProvider": serviceProvider,
			"verifier":        verifier,
			"tokens":          tokens,
		})
		return nil
	})
}

// SetProvisionParameters stages new provision parameters. They take no
// effect until the verifier accepts them; a later call before
// acceptance overwrites the staged values.
func (l *Ledger) SetProvisionParameters(
	caller, serviceProvider, verifier horizon.Address,
	maxVerifierCut uint64,
	thawingPeriod uint64,
) error {
	return l.run("setProvisionParameters", func(ev *eventCollector) error {
		if err := l.authorize(caller, serviceProvider, verifier); err != nil {
			return err
		}
		maxThawingPeriod, err := l.paramUint64(horizon.KeyMaxThawingPeriod)
		if err != nil {
			return err
		}
		key := provision.Key{ServiceProvider: serviceProvider, Verifier: verifier}
		if _, err := l.providers.StageParameters(key, maxVerifierCut, thawingPeriod, maxThawingPeriod); err != nil {
			return err
		}
		ev.add(EventParametersStaged, map[string]any{
			"serviceProvider": serviceProvider,
			"verifier":        verifier,
			"maxVerifierCut":  maxVerifierCut,
			"thawingPeriod":   thawingPeriod,
		})
		return nil
	})
}

// AcceptProvisionParameters promotes staged provision parameters to
// active. Only the provision's verifier may accept; accepting with
// nothing staged succeeds and emits nothing.
func (l *Ledger) AcceptProvisionParameters(caller, serviceProvider horizon.Address) error {
	return l.run("acceptProvisionParameters", func(ev *eventCollector) error {
		key := provision.Key{ServiceProvider: serviceProvider, Verifier: caller}
		prov, changed, err := l.providers.AcceptParameters(key)
		if err != nil {
			return err
		}
		if changed {
			ev.add(EventParametersSet, map[string]any{
				"serviceProvider": serviceProvider,
				"verifier":        caller,
				"maxVerifierCut":  prov.MaxVerifierCut,
				"thawingPeriod":   prov.ThawingPeriod,
			})
		}
		return nil
	})
}

// Thaw starts withdrawing tokens from a provision: the tokens move into
// the thawing pool and a thaw request is queued, maturing after the
// provision's thawing period.
func (l *Ledger) Thaw(caller, serviceProvider, verifier horizon.Address, tokens *big.Int, now uint64) error {
	return l.run("thaw", func(ev *eventCollector) error {
		if err := l.authorize(caller, serviceProvider, verifier); err != nil {
			return err
		}
		if tokens.Sign() <= 0 {
			return reverts.ZeroTokens("thaw")
		}
		key := provision.Key{ServiceProvider: serviceProvider, Verifier: verifier}
		prov, err := l.providers.GetExistingProvision(key)
		if err != nil {
			return err
		}
		if tokens.Cmp(prov.Tokens) > 0 {
			return reverts.Insufficient("provision tokens", tokens, prov.Tokens)
		}
		shares := prov.Thawing.Mint(tokens)
		prov.Tokens = new(big.Int).Sub(prov.Tokens, tokens)
		thawingUntil := now + prov.ThawingPeriod
		if err := l.thawing.Enqueue(key, shares, now, thawingUntil); err != nil {
			return err
		}
		if err := l.providers.SetProvision(key, prov); err != nil {
			return err
		}
		ev.add(EventProvisionThawed, map[string]any{
			"serviceProvider": serviceProvider,
			"verifier":        verifier,
			"tokens":          tokens,
			"shares":          shares,
			"thawingUntil":    thawingUntil,
		})
		logger.Debug("provision thawed",
			"provider", serviceProvider, "verifier", verifier, "tokens", tokens, "until", thawingUntil)
		return nil
	})
}

// Deprovision resolves up to nThawRequests matured thaw requests (zero
// meaning all matured) back into the provider's idle stake.
func (l *Ledger) Deprovision(caller, serviceProvider, verifier horizon.Address, nThawRequests uint64, now uint64) error {
	return l.run("deprovision", func(ev *eventCollector) error {
		if err := l.authorize(caller, serviceProvider, verifier); err != nil {
			return err
		}
		key := provision.Key{ServiceProvider: serviceProvider, Verifier: verifier}
		tokens, _, err := l.resolveThawed(key, nThawRequests, now)
		if err != nil {
			return err
		}
		if err := l.providers.ReleaseProvisioned(serviceProvider, tokens); err != nil {
			return err
		}
		ev.add(EventTokensDeprovisioned, map[string]any{
			"serviceProvider": serviceProvider,
			"verifier":        verifier,
			"tokens":          tokens,
		})
		logger.Debug("tokens deprovisioned",
			"provider", serviceProvider, "verifier", verifier, "tokens", tokens)
		return nil
	})
}

// Reprovision moves tokens from a provision with matured thaw requests
// into an existing provision towards another verifier, in one atomic
// step. Resolved tokens return to idle stake first; if they fall short
// of the requested amount the provider's remaining idle stake covers
// the gap or the whole operation fails.
func (l *Ledger) Reprovision(
	caller, serviceProvider, fromVerifier, toVerifier horizon.Address,
	tokens *big.Int,
	nThawRequests uint64,
	now uint64,
) error {
	return l.run("reprovision", func(ev *eventCollector) error {
		if err := l.authorize(caller, serviceProvider, fromVerifier); err != nil {
			return err
		}
		if err := l.authorize(caller, serviceProvider, toVerifier); err != nil {
			return err
		}
		if tokens.Sign() <= 0 {
			return reverts.ZeroTokens("reprovision")
		}
		fromKey := provision.Key{ServiceProvider: serviceProvider, Verifier: fromVerifier}
		toKey := provision.Key{ServiceProvider: serviceProvider, Verifier: toVerifier}

		resolved, _, err := l.resolveThawed(fromKey, nThawRequests, now)
		if err != nil {
			return err
		}
		if err := l.providers.ReleaseProvisioned(serviceProvider, resolved); err != nil {
			return err
		}
		if _, err := l.providers.AddToProvision(toKey, tokens); err != nil {
			return err
		}
		ev.add(EventTokensReprovisioned, map[string]any{
			"serviceProvider": serviceProvider,
			"fromVerifier":    fromVerifier,
			"toVerifier":      toVerifier,
			"tokens":          tokens,
			"resolved":        resolved,
		})
		logger.Debug("tokens reprovisioned",
			"provider", serviceProvider, "from", fromVerifier, "to", toVerifier, "tokens", tokens)
		return nil
	})
}

// resolveThawed burns matured thaw requests against the provision's
// thawing pool and stores the updated provision.
func (l *Ledger) resolveThawed(key provision.Key, n uint64, now uint64) (*big.Int, uint64, error) {
	prov, err := l.providers.GetExistingProvision(key)
	if err != nil {
		return nil, 0, err
	}
	tokens, resolved, err := l.thawing.ResolveMatured(key, n, now, &prov.Thawing)
	if err != nil {
		return nil, 0, err
	}
	if err := l.providers.SetProvision(key, prov); err != nil {
		return nil, 0, err
	}
	return tokens, resolved, nil
}

// Slash removes tokens from the provision as a penalty. Only the
// provision's verifier may slash; operator approvals do not apply. The
// verifier cut, capped by the provision's maxVerifierCut, is paid to
// the destination (the verifier itself when zero) and the remainder is
// burned. Active tokens go first, then the thawing pool is diluted.
func (l *Ledger) Slash(
	caller, serviceProvider horizon.Address,
	tokens, verifierCut *big.Int,
	destination horizon.Address,
) error {
	return l.run("slash", func(ev *eventCollector) error {
		if tokens.Sign() <= 0 {
			return reverts.ZeroTokens("slash")
		}
		if verifierCut.Sign() < 0 {
			return reverts.Precondition("verifier cut must not be negative")
		}
		key := provision.Key{ServiceProvider: serviceProvider, Verifier: caller}
		prov, err := l.providers.GetExistingProvision(key)
		if err != nil {
			return err
		}
		if total := prov.TotalTokens(); tokens.Cmp(total) > 0 {
			return reverts.Insufficient("provision backing", tokens, total)
		}
		maxCut := rebates.MulPPM(tokens, prov.MaxVerifierCut)
		if verifierCut.Cmp(maxCut) > 0 {
			return reverts.ParameterTooLarge("verifierCut", verifierCut, maxCut)
		}

		if _, _, err := prov.Slash(tokens); err != nil {
			return err
		}
		if err := l.providers.SetProvision(key, prov); err != nil {
			return err
		}
		if err := l.providers.RemoveStaked(serviceProvider, tokens); err != nil {
			return err
		}

		if destination.IsZero() {
			destination = caller
		}
		if err := l.transfer(Address, destination, verifierCut); err != nil {
			return err
		}
		burned := new(big.Int).Sub(tokens, verifierCut)
		if err := l.transfer(Address, horizon.BurnAddress, burned); err != nil {
			return err
		}

		metricSlashes().Add(1)
		ev.add(EventProvisionSlashed, map[string]any{
			"serviceProvider": serviceProvider,
			"verifier":        caller,
			"tokens":          tokens,
		})
		if verifierCut.Sign() > 0 {
			ev.add(EventVerifierTokensSent, map[string]any{
				"verifier":    caller,
				"destination": destination,
				"tokens":      verifierCut,
			})
		}
		logger.Info("provision slashed",
			"provider", serviceProvider, "verifier", caller, "tokens", tokens, "verifierCut", verifierCut)
		return nil
	})
}
