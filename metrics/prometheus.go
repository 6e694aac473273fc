// Copyright (c) 2025 The Horizon Ledger developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/horizonledger/horizon/log"
)

const namespace = "horizon_metrics"

var logger = log.WithContext("pkg", "metrics")

// InitializePrometheusMetrics sets the prometheus implementation as the
// default metrics service.
func InitializePrometheusMetrics() {
	// don't allow for reset
	if _, ok := metrics.(*prometheusMetrics); !ok {
		metrics = newPrometheusMetrics()
	}
}

type prometheusMetrics struct {
	counters    sync.Map
	counterVecs sync.Map
	gauges      sync.Map
	gaugeVecs   sync.Map
}

func newPrometheusMetrics() Metrics {
	return &prometheusMetrics{}
}

func (o *prometheusMetrics) GetOrCreateCountMeter(name string) CountMeter {
	mapItem, ok := o.counters.Load(name)
	if !ok {
		meter := o.newCountMeter(name)
		o.counters.Store(name, meter)
		return meter
	}
	return mapItem.(CountMeter)
}

func (o *prometheusMetrics) GetOrCreateCountVecMeter(name string, labels []string) CountVecMeter {
	mapItem, ok := o.counterVecs.Load(name)
	if !ok {
		meter := o.newCountVecMeter(name, labels)
		o.counterVecs.Store(name, meter)
		return meter
	}
	return mapItem.(CountVecMeter)
}

func (o *prometheusMetrics) GetOrCreateGaugeMeter(name string) GaugeMeter {
	mapItem, ok := o.gauges.Load(name)
	if !ok {
		meter := o.newGaugeMeter(name)
		o.gauges.Store(name, meter)
		return meter
	}
	return mapItem.(GaugeMeter)
}

func (o *prometheusMetrics) GetOrCreateGaugeVecMeter(name string, labels []string) GaugeVecMeter {
	mapItem, ok := o.gaugeVecs.Load(name)
	if !ok {
		meter := o.newGaugeVecMeter(name, labels)
		o.gaugeVecs.Store(name, meter)
		return meter
	}
	return mapItem.(GaugeVecMeter)
}

func (o *prometheusMetrics) GetOrCreateHandler() http.Handler {
	return promhttp.Handler()
}

func (o *prometheusMetrics) newCountMeter(name string) CountMeter {
	meter := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
		},
	)
	if err := prometheus.Register(meter); err != nil {
		logger.Warn("unable to register metric", "err", err)
	}
	return &promCountMeter{counter: meter}
}

func (o *prometheusMetrics) newCountVecMeter(name string, labels []string) CountVecMeter {
	meter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
		},
		labels,
	)
	if err := prometheus.Register(meter); err != nil {
		logger.Warn("unable to register metric", "err", err)
	}
	return &promCountVecMeter{counter: meter}
}

func (o *prometheusMetrics) newGaugeMeter(name string) GaugeMeter {
	meter := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
		},
	)
	if err := prometheus.Register(meter); err != nil {
		logger.Warn("unable to register metric", "err", err)
	}
	return &promGaugeMeter{gauge: meter}
}

func (o *prometheusMetrics) newGaugeVecMeter(name string, labels []string) GaugeVecMeter {
	meter := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
		},
		labels,
	)
	if err := prometheus.Register(meter); err != nil {
		logger.Warn("unable to register metric", "err", err)
	}
	return &promGaugeVecMeter{gauge: meter}
}

type promCountMeter struct {
	counter prometheus.Counter
}

func (c *promCountMeter) Add(i int64) {
	c.counter.Add(float64(i))
}

type promCountVecMeter struct {
	counter *prometheus.CounterVec
}

func (c *promCountVecMeter) AddWithLabel(i int64, labels map[string]string) {
	c.counter.With(labels).Add(float64(i))
}

type promGaugeMeter struct {
	gauge prometheus.Gauge
}

func (c *promGaugeMeter) Add(i int64) {
	c.gauge.Add(float64(i))
}

func (c *promGaugeMeter) Set(i int64) {
	c.gauge.Set(float64(i))
}

type promGaugeVecMeter struct {
	gauge *prometheus.GaugeVec
}

func (c *promGaugeVecMeter) AddWithLabel(i int64, labels map[string]string) {
	c.gauge.With(labels).Add(float64(i))
}

func (c *promGaugeVecMeter) SetWithLabel(i int64, labels map[string]string) {
	c.gauge.With(labels).Set(float64(i))
}
