// Copyright (c) 2025 The Horizon Ledger developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"math/big"

	"github.com/horizonledger/horizon/horizon"
)

// CurationOracle reports how much curation signal a deployment carries.
// The curation cut is only taken when the signal is positive.
type CurationOracle interface {
	SignalledTokens(deployment horizon.Bytes32) (*big.Int, error)
}

// RewardsOracle settles the indexing rewards owed to an allocation when
// it closes. The returned tokens are freshly issued.
type RewardsOracle interface {
	TakeRewards(allocationID horizon.Bytes32) (*big.Int, error)
}
