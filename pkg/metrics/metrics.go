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

// Package metrics collects the metrics of a sitecheck run and writes them in
// the Prometheus text format.
package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/caas-team/sitecheck/internal/logger"
	"github.com/caas-team/sitecheck/pkg/suite"
)

var _ Provider = (*manager)(nil)

// Provider holds the registry of a run
type Provider interface {
	// Register adds collectors to the registry
	Register(cs ...prometheus.Collector) error
	// RecordSummary sets the assertion counts of a finished run
	RecordSummary(s suite.Summary)
	// WriteToTextfile writes all gathered metrics to path
	WriteToTextfile(ctx context.Context, path string) error
}

type manager struct {
	registry   *prometheus.Registry
	assertions *prometheus.GaugeVec
}

// New initializes the registry with the runtime collectors
func New() Provider {
	registry := prometheus.NewRegistry()
	assertions := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sitecheck_assertions",
			Help: "Number of assertions of the last run by result",
		},
		[]string{"result"},
	)

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		assertions,
	)

	return &manager{registry: registry, assertions: assertions}
}

// Register adds collectors to the registry
func (m *manager) Register(cs ...prometheus.Collector) error {
	for _, c := range cs {
		if err := m.registry.Register(c); err != nil {
			return fmt.Errorf("failed to register collector: %w", err)
		}
	}
	return nil
}

// RecordSummary sets the assertion counts
func (m *manager) RecordSummary(s suite.Summary) {
	m.assertions.WithLabelValues("passed").Set(float64(s.Passed))
	m.assertions.WithLabelValues("failed").Set(float64(s.Failed))
}

// WriteToTextfile writes the metrics atomically to path
func (m *manager) WriteToTextfile(ctx context.Context, path string) error {
	log := logger.FromContext(ctx)
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		log.ErrorContext(ctx, "Failed to write metrics", "path", path, "error", err)
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	log.DebugContext(ctx, "Metrics written", "path", path)
	return nil
}
