// Copyright (c) 2025 The Horizon Ledger developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import "github.com/horizonledger/horizon/metrics"

var (
	metricOperations = metrics.LazyLoadCounterVec("ledger_operation_count", []string{"op", "status"})
	metricSlashes    = metrics.LazyLoadCounter("ledger_slash_count")
	metricCollects   = metrics.LazyLoadCounter("ledger_collect_count")
)
