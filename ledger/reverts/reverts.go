// Copyright (c) 2025 The Horizon Ledger developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package reverts defines the typed errors an operation can fail with.
// Every failure carries enough structured detail (addresses, amounts,
// ceilings) to diagnose without replaying the call. The four kinds map
// to how a caller recovers: authorization failures are final,
// insufficient-token failures need a smaller request or more stake,
// precondition failures need state to change first, and parameter
// failures need a value within bounds.
package reverts

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/horizonledger/horizon/horizon"
)

// Error kinds, matchable via errors.Is.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrInsufficient = errors.New("insufficient tokens")
	ErrPrecondition = errors.New("precondition failed")
	ErrParameter    = errors.New("parameter out of bounds")
)

// RevertError is a failed operation outcome. The whole operation's
// state mutations are rolled back when one is returned.
type RevertError struct {
	kind   error
	detail string
}

func (e *RevertError) Error() string {
	return fmt.Sprintf("%s: %s", e.kind, e.detail)
}

// Is reports whether the error matches one of the kind sentinels.
func (e *RevertError) Is(target error) bool {
	return target == e.kind
}

// Unwrap returns the kind sentinel.
func (e *RevertError) Unwrap() error {
	return e.kind
}

// IsRevert reports whether err is a revert produced by this package.
func IsRevert(err error) bool {
	var re *RevertError
	return errors.As(err, &re)
}

// Unauthorized reports a caller that may not act for the given
// provider/verifier pair.
func Unauthorized(caller, serviceProvider, verifier horizon.Address) *RevertError {
	return &RevertError{
		kind:   ErrUnauthorized,
		detail: fmt.Sprintf("caller %s is not authorized for provider %s verifier %s", caller, serviceProvider, verifier),
	}
}

// NotVerifier reports a caller of a verifier-only operation that is not
// the provision's verifier.
func NotVerifier(caller, verifier horizon.Address) *RevertError {
	return &RevertError{
		kind:   ErrUnauthorized,
		detail: fmt.Sprintf("caller %s is not the verifier %s", caller, verifier),
	}
}

// NotGovernor reports a caller of a governance-only operation.
func NotGovernor(caller horizon.Address) *RevertError {
	return &RevertError{
		kind:   ErrUnauthorized,
		detail: fmt.Sprintf("caller %s is not the governor", caller),
	}
}

// Insufficient reports that the named balance cannot cover the request.
func Insufficient(what string, requested, available *big.Int) *RevertError {
	return &RevertError{
		kind:   ErrInsufficient,
		detail: fmt.Sprintf("%s: requested %s, available %s", what, requested, available),
	}
}

// Precondition reports state that does not admit the operation.
func Precondition(format string, args ...any) *RevertError {
	return &RevertError{
		kind:   ErrPrecondition,
		detail: fmt.Sprintf(format, args...),
	}
}

// ParameterTooLarge reports a value above its configured ceiling.
func ParameterTooLarge(name string, value, ceiling *big.Int) *RevertError {
	return &RevertError{
		kind:   ErrParameter,
		detail: fmt.Sprintf("%s: value %s exceeds ceiling %s", name, value, ceiling),
	}
}

// ZeroTokens reports a zero token amount where a positive one is required.
func ZeroTokens(op string) *RevertError {
	return &RevertError{
		kind:   ErrParameter,
		detail: fmt.Sprintf("%s: tokens must be greater than zero", op),
	}
}
