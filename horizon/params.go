// Copyright (c) 2025 The Horizon Ledger developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package horizon

import "math/big"

// Protocol-wide constants.
const (
	// PPM is the parts-per-million scale for percentage-like parameters.
	// A cut of 1e6 means 100%.
	PPM = uint64(1_000_000)

	// MaxThawRequests is the capacity of a provision's thaw request queue.
	MaxThawRequests = uint64(100)
)

// Keys of governance params.
var (
	// KeyGovernor is the account allowed to update params and the
	// locked-verifier allow-list.
	KeyGovernor = BytesToBytes32([]byte("governor"))

	// KeyMinimumProvisionTokens is the global minimum for creating a provision.
	KeyMinimumProvisionTokens = BytesToBytes32([]byte("minimum-provision-tokens"))

	// KeyMaxThawingPeriod is the ceiling for a provision's thawing period, in seconds.
	KeyMaxThawingPeriod = BytesToBytes32([]byte("max-thawing-period"))

	// KeyProtocolTaxCut is the PPM fraction of collected fees taken as protocol tax.
	KeyProtocolTaxCut = BytesToBytes32([]byte("protocol-tax-cut"))

	// KeyCurationCut is the PPM fraction of post-tax fees routed to curation.
	KeyCurationCut = BytesToBytes32([]byte("curation-cut"))

	// KeyRebateAlpha is the PPM-scaled alpha of the exponential rebate curve.
	KeyRebateAlpha = BytesToBytes32([]byte("rebate-alpha"))

	// KeyRebateLambda is the PPM-scaled lambda of the exponential rebate curve.
	KeyRebateLambda = BytesToBytes32([]byte("rebate-lambda"))

	// KeyMaxAllocationEpochs is the age after which anyone may close an allocation.
	KeyMaxAllocationEpochs = BytesToBytes32([]byte("max-allocation-epochs"))

	// KeySubgraphService is the verifier address backing legacy allocations.
	KeySubgraphService = BytesToBytes32([]byte("subgraph-service"))
)

// Well known accounts.
var (
	// BurnAddress accrues burned value: slash remainders and unclaimed rebates.
	BurnAddress = MustParseAddress("0x000000000000000000000000000000000000dEaD")

	// CurationAddress accrues curation cuts taken during fee collection.
	// The curation subsystem drains it out of band.
	CurationAddress = BytesToAddress([]byte("curation"))
)

// InitialMinimumProvisionTokens is the default minimum provision size
// before governance overrides it.
var InitialMinimumProvisionTokens = new(big.Int).Mul(big.NewInt(1), big.NewInt(1e18))
