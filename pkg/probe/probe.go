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
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/caas-team/sitecheck/internal/logger"
	"github.com/caas-team/sitecheck/pkg/suite"
)

const (
	// DefaultThreshold is the minimum share of successful probes
	DefaultThreshold = 0.95
	// DefaultWorkers is the number of concurrent probes
	DefaultWorkers = 3
)

// ErrNoIterations is returned when a check is configured without probes
var ErrNoIterations = errors.New("probe iterations must be positive")

// Config configures a check run
type Config struct {
	Iterations int
	Workers    int
	Seed       uint64
	Threshold  float64
	// Metrics records the outcomes when set
	Metrics *Metrics
}

// Bucket is the number of responses with one status code
type Bucket struct {
	Code    int
	Count   int
	Percent float64
}

// Report is the aggregated result of a check run
type Report struct {
	Seed      uint64
	Total     int
	Successes int
	Failures  int
	// Rate is the share of successful probes in [0, 1]
	Rate      float64
	Threshold float64
	Passed    bool
	// Distribution holds the status codes of the successful probes, ordered by code
	Distribution []Bucket
	Outcomes     []Outcome
}

// Check generates cfg.Iterations probes from cfg.Seed, executes them on a bounded
// worker pool and aggregates the outcomes. A canceled ctx fails the probes not yet
// executed and is returned together with the partial report.
func Check(ctx context.Context, exec Executor, cfg Config) (*Report, error) {
	log := logger.FromContext(ctx)
	if cfg.Iterations <= 0 {
		return nil, ErrNoIterations
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}

	specs := Generate(cfg.Seed, cfg.Iterations)
	outcomes := make([]Outcome, len(specs))
	log.InfoContext(ctx, "Running probes", "iterations", cfg.Iterations, "workers", cfg.Workers, "seed", cfg.Seed)

	var g errgroup.Group
	g.SetLimit(cfg.Workers)
	for i, spec := range specs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				outcomes[i] = Outcome{Spec: spec, Err: err}
				return nil
			}
			outcomes[i] = exec.Execute(ctx, spec)
			return nil
		})
	}
	_ = g.Wait()

	report := aggregate(outcomes, cfg)
	report.Seed = cfg.Seed
	if cfg.Metrics != nil {
		cfg.Metrics.Record(report)
	}
	log.InfoContext(ctx, "Probes finished", "successes", report.Successes, "failures", report.Failures, "rate", report.Rate, "passed", report.Passed)
	return report, ctx.Err()
}

func aggregate(outcomes []Outcome, cfg Config) *Report {
	r := &Report{Total: len(outcomes), Threshold: cfg.Threshold, Outcomes: outcomes}
	counts := map[int]int{}
	for _, o := range outcomes {
		if o.Success() {
			r.Successes++
			counts[o.Status]++
			continue
		}
		r.Failures++
	}

	codes := make([]int, 0, len(counts))
	for code := range counts {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	for _, code := range codes {
		r.Distribution = append(r.Distribution, Bucket{
			Code:    code,
			Count:   counts[code],
			Percent: percent(counts[code], r.Total),
		})
	}

	if r.Total > 0 {
		r.Rate = float64(r.Successes) / float64(r.Total)
	}
	r.Passed = r.Rate >= r.Threshold
	return r
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) * 100 / float64(total)
}

// Count returns the number of responses with code
func (r *Report) Count(code int) int {
	for _, b := range r.Distribution {
		if b.Code == code {
			return b.Count
		}
	}
	return 0
}

// Failed returns the outcomes without a valid response
func (r *Report) Failed() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if !o.Success() {
			failed = append(failed, o)
		}
	}
	return failed
}

// Bars returns the distribution as histogram rows
func (r *Report) Bars() []suite.Bar {
	bars := make([]suite.Bar, 0, len(r.Distribution)+1)
	for _, b := range r.Distribution {
		bars = append(bars, suite.Bar{
			Label:   strconv.Itoa(b.Code) + " " + http.StatusText(b.Code),
			Count:   b.Count,
			Percent: b.Percent,
		})
	}
	if r.Failures > 0 {
		bars = append(bars, suite.Bar{Label: "failed", Count: r.Failures, Percent: percent(r.Failures, r.Total)})
	}
	return bars
}

// Results returns the named assertion of the check
func (r *Report) Results() *suite.Report {
	res := suite.NewReport()
	res.Add(suite.Check("accessibility rate", r.Passed,
		"%.2f%% of %d probes succeeded, %.2f%% required", r.Rate*100, r.Total, r.Threshold*100))
	return res
}

// String summarizes the report
func (r *Report) String() string {
	return fmt.Sprintf("%d/%d probes succeeded (%.2f%%, threshold %.2f%%)", r.Successes, r.Total, r.Rate*100, r.Threshold*100)
}
