// Copyright (c) 2025 The Horizon Ledger developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package authority resolves whether a caller may act on behalf of a
// service provider towards a given verifier. Providers delegate to
// operators per verifier. A second, locked operator class exists for
// accounts under vesting constraints: those approvals only take effect
// towards verifiers on a governance allow-list.
package authority

import (
	"github.com/pkg/errors"

	"github.com/horizonledger/horizon/horizon"
	"github.com/horizonledger/horizon/slot"
)

var (
	slotOperators        = horizon.BytesToBytes32([]byte("operators"))
	slotLockedOperators  = horizon.BytesToBytes32([]byte("locked-operators"))
	slotAllowedVerifiers = horizon.BytesToBytes32([]byte("allowed-verifiers"))
)

// approvalKey keys an operator approval by (operator, provider, verifier).
type approvalKey struct {
	operator        horizon.Address
	serviceProvider horizon.Address
	verifier        horizon.Address
}

func (k approvalKey) Bytes() []byte {
	b := make([]byte, 0, 3*horizon.AddressLength)
	b = append(b, k.operator.Bytes()...)
	b = append(b, k.serviceProvider.Bytes()...)
	return append(b, k.verifier.Bytes()...)
}

// Service is the authorization registry.
type Service struct {
	operators        *slot.Mapping[approvalKey, bool]
	lockedOperators  *slot.Mapping[approvalKey, bool]
	allowedVerifiers *slot.Mapping[horizon.Address, bool]
}

// New create a new instance.
func New(sctx *slot.Context) *Service {
	return &Service{
		operators:        slot.NewMapping[approvalKey, bool](sctx, slotOperators),
		lockedOperators:  slot.NewMapping[approvalKey, bool](sctx, slotLockedOperators),
		allowedVerifiers: slot.NewMapping[horizon.Address, bool](sctx, slotAllowedVerifiers),
	}
}

// SetOperator records an operator approval of the service provider for
// the given verifier.
func (s *Service) SetOperator(serviceProvider, verifier, operator horizon.Address, allowed bool) error {
	if operator == serviceProvider {
		return errors.New("provider cannot be its own operator")
	}
	return s.operators.Set(approvalKey{operator, serviceProvider, verifier}, allowed)
}

// SetLockedOperator records a locked-class operator approval. It only
// ever takes effect towards allow-listed verifiers, enforced at
// authorization time so an allow-list change applies retroactively.
func (s *Service) SetLockedOperator(serviceProvider, verifier, operator horizon.Address, allowed bool) error {
	if operator == serviceProvider {
		return errors.New("provider cannot be its own operator")
	}
	allowedVerifier, err := s.allowedVerifiers.Get(verifier)
	if err != nil {
		return err
	}
	if !allowedVerifier {
		return errors.New("verifier is not allow-listed for locked operators")
	}
	return s.lockedOperators.Set(approvalKey{operator, serviceProvider, verifier}, allowed)
}

// SetAllowedVerifier updates the governance allow-list of verifiers
// usable by locked operators.
func (s *Service) SetAllowedVerifier(verifier horizon.Address, allowed bool) error {
	return s.allowedVerifiers.Set(verifier, allowed)
}

// IsAllowedVerifier returns whether the verifier is allow-listed.
func (s *Service) IsAllowedVerifier(verifier horizon.Address) (bool, error) {
	return s.allowedVerifiers.Get(verifier)
}

// IsAuthorized reports whether the caller may act for the service
// provider towards the verifier: the provider itself, an approved
// operator, or an approved locked operator with an allow-listed verifier.
func (s *Service) IsAuthorized(caller, serviceProvider, verifier horizon.Address) (bool, error) {
	if caller == serviceProvider {
		return true, nil
	}
	ok, err := s.operators.Get(approvalKey{caller, serviceProvider, verifier})
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}
	locked, err := s.lockedOperators.Get(approvalKey{caller, serviceProvider, verifier})
	if err != nil {
		return false, err
	}
	if !locked {
		return false, nil
	}
	return s.allowedVerifiers.Get(verifier)
}
