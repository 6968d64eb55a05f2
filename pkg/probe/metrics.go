// sitecheck
// (C) 2024, Deutsche Telekom IT GmbH
//
// Deutsche Telekom IT GmbH and all other contributors /
// copyright owners license this file to you under the Apache
// License, Version 2.0 (the "License"); you may not use this
// file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package probe

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors of the accessibility check
type Metrics struct {
	responses *prometheus.CounterVec
	failures  prometheus.Counter
	duration  *prometheus.HistogramVec
	ratio     prometheus.Gauge
}

// NewMetrics creates the collectors of the accessibility check
func NewMetrics() *Metrics {
	return &Metrics{
		responses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitecheck_probe_responses_total",
				Help: "Probe responses by status code",
			},
			[]string{"code"},
		),
		failures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sitecheck_probe_failures_total",
				Help: "Probes without a valid response",
			},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sitecheck_probe_duration_seconds",
				Help:    "Duration of the probes in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		ratio: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "sitecheck_probe_success_ratio",
				Help: "Share of successful probes of the last run",
			},
		),
	}
}

// GetMetricCollectors returns all metric collectors of the check
func (m *Metrics) GetMetricCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.responses,
		m.failures,
		m.duration,
		m.ratio,
	}
}

// Record adds the outcomes of report
func (m *Metrics) Record(r *Report) {
	for _, o := range r.Outcomes {
		m.duration.WithLabelValues(o.Spec.Method).Observe(o.Duration.Seconds())
		if !o.Success() {
			m.failures.Inc()
			continue
		}
		m.responses.WithLabelValues(strconv.Itoa(o.Status)).Inc()
	}
	m.ratio.Set(r.Rate)
}
