// Copyright (c) 2025 The Horizon Ledger developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package metrics

import "net/http"

// noopMetrics implements a no operations metrics service.
type noopMetrics struct{}

func defaultNoopMetrics() Metrics { return &noopMetrics{} }

func (n *noopMetrics) GetOrCreateCountMeter(string) CountMeter { return &noopMetric }

func (n *noopMetrics) GetOrCreateCountVecMeter(string, []string) CountVecMeter { return &noopMetric }

func (n *noopMetrics) GetOrCreateGaugeMeter(string) GaugeMeter { return &noopMetric }

func (n *noopMetrics) GetOrCreateGaugeVecMeter(string, []string) GaugeVecMeter { return &noopMetric }

func (n *noopMetrics) GetOrCreateHandler() http.Handler { return nil }

var noopMetric = noopMeters{}

type noopMeters struct{}

func (n noopMeters) Add(int64) {}

func (n noopMeters) Set(int64) {}

func (n noopMeters) AddWithLabel(int64, map[string]string) {}

func (n noopMeters) SetWithLabel(int64, map[string]string) {}
