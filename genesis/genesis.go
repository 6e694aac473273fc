// Copyright (c) 2025 The Horizon Ledger developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package genesis builds the ledger's initial state from a yaml spec:
// governance parameters, funded accounts and the verifier allow-list.
package genesis

import (
	"io"
	"math/big"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/horizonledger/horizon/horizon"
	"github.com/horizonledger/horizon/ledger"
	"github.com/horizonledger/horizon/ledger/authority"
	"github.com/horizonledger/horizon/params"
	"github.com/horizonledger/horizon/slot"
	"github.com/horizonledger/horizon/state"
)

// Spec is a user customized genesis.
type Spec struct {
	Name             string    `yaml:"name"`
	Governor         string    `yaml:"governor"`
	SubgraphService  string    `yaml:"subgraphService"`
	Params           Params    `yaml:"params"`
	Accounts         []Account `yaml:"accounts"`
	AllowedVerifiers []string  `yaml:"allowedVerifiers"`
}

// Params are the initial governance parameters. Zero values fall back
// to protocol defaults.
type Params struct {
	MinimumProvisionTokens string `yaml:"minimumProvisionTokens"` // decimal string
	MaxThawingPeriod       uint64 `yaml:"maxThawingPeriod"`       // seconds
	ProtocolTaxCut         uint64 `yaml:"protocolTaxCut"`         // PPM
	CurationCut            uint64 `yaml:"curationCut"`            // PPM
	RebateAlpha            uint64 `yaml:"rebateAlpha"`            // PPM
	RebateLambda           uint64 `yaml:"rebateLambda"`           // PPM
	MaxAllocationEpochs    uint64 `yaml:"maxAllocationEpochs"`
}

// Account is an account funded at genesis.
type Account struct {
	Address string `yaml:"address"`
	Balance string `yaml:"balance"` // decimal string
}

// Protocol defaults applied when the spec leaves a param zero.
const (
	DefaultMaxThawingPeriod    = uint64(28 * 24 * 60 * 60)
	DefaultRebateAlpha         = horizon.PPM          // 1.0
	DefaultRebateLambda        = uint64(600_000)      // 0.6
	DefaultMaxAllocationEpochs = uint64(28)
)

// Load decodes a yaml genesis spec.
func Load(r io.Reader) (*Spec, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var spec Spec
	if err := dec.Decode(&spec); err != nil {
		return nil, errors.Wrap(err, "decode genesis spec")
	}
	if spec.Governor == "" {
		return nil, errors.New("genesis: governor must be set")
	}
	return &spec, nil
}

// LoadFile decodes a yaml genesis spec from a file.
func LoadFile(path string) (*Spec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Build applies the spec to a fresh state.
func (s *Spec) Build(st *state.State) error {
	governor, err := horizon.ParseAddress(s.Governor)
	if err != nil {
		return errors.Wrap(err, "governor")
	}

	prms := params.New(ledger.ParamsAddress, st)
	if err := prms.SetAddress(horizon.KeyGovernor, *governor); err != nil {
		return err
	}
	if s.SubgraphService != "" {
		svc, err := horizon.ParseAddress(s.SubgraphService)
		if err != nil {
			return errors.Wrap(err, "subgraphService")
		}
		if err := prms.SetAddress(horizon.KeySubgraphService, *svc); err != nil {
			return err
		}
	}

	minTokens := horizon.InitialMinimumProvisionTokens
	if s.Params.MinimumProvisionTokens != "" {
		v, ok := new(big.Int).SetString(s.Params.MinimumProvisionTokens, 10)
		if !ok {
			return errors.Errorf("invalid minimumProvisionTokens %q", s.Params.MinimumProvisionTokens)
		}
		minTokens = v
	}
	numeric := []struct {
		key   horizon.Bytes32
		value *big.Int
	}{
		{horizon.KeyMinimumProvisionTokens, minTokens},
		{horizon.KeyMaxThawingPeriod, new(big.Int).SetUint64(orDefault(s.Params.MaxThawingPeriod, DefaultMaxThawingPeriod))},
		{horizon.KeyProtocolTaxCut, new(big.Int).SetUint64(s.Params.ProtocolTaxCut)},
		{horizon.KeyCurationCut, new(big.Int).SetUint64(s.Params.CurationCut)},
		{horizon.KeyRebateAlpha, new(big.Int).SetUint64(orDefault(s.Params.RebateAlpha, DefaultRebateAlpha))},
		{horizon.KeyRebateLambda, new(big.Int).SetUint64(orDefault(s.Params.RebateLambda, DefaultRebateLambda))},
		{horizon.KeyMaxAllocationEpochs, new(big.Int).SetUint64(orDefault(s.Params.MaxAllocationEpochs, DefaultMaxAllocationEpochs))},
	}
	for _, p := range numeric {
		if err := prms.Set(p.key, p.value); err != nil {
			return err
		}
	}

	for _, a := range s.Accounts {
		addr, err := horizon.ParseAddress(a.Address)
		if err != nil {
			return errors.Wrapf(err, "account %q", a.Address)
		}
		balance, ok := new(big.Int).SetString(a.Balance, 10)
		if !ok || balance.Sign() < 0 {
			return errors.Errorf("%s: balance must be a non-negative integer", a.Address)
		}
		st.SetBalance(*addr, balance)
	}

	auth := authority.New(slot.NewContext(ledger.Address, st))
	for _, v := range s.AllowedVerifiers {
		addr, err := horizon.ParseAddress(v)
		if err != nil {
			return errors.Wrapf(err, "allowed verifier %q", v)
		}
		if err := auth.SetAllowedVerifier(*addr, true); err != nil {
			return err
		}
	}
	return nil
}

func orDefault(v, def uint64) uint64 {
	if v == 0 {
		return def
	}
	return v
}
