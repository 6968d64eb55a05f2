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
	"io"
	"math/rand/v2"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/caas-team/sitecheck/internal/logger"
)

// ErrSimulatedFailure is the transport error produced by the simulated executor
var ErrSimulatedFailure = errors.New("simulated transport failure")

// Outcome is the result of executing a single probe
type Outcome struct {
	Spec Spec
	// Status is the response status code, zero when no response arrived
	Status   int
	Err      error
	Duration time.Duration
}

// Success reports whether a response with a status in [200, 600) arrived
func (o Outcome) Success() bool {
	return o.Err == nil && o.Status >= 200 && o.Status < 600
}

// Executor performs a probe against the service
type Executor interface {
	Execute(ctx context.Context, spec Spec) Outcome
}

var _ Executor = (*HTTPExecutor)(nil)

// HTTPExecutor sends probes as HTTP requests
type HTTPExecutor struct {
	baseURL string
	client  *http.Client
}

// NewHTTPExecutor creates an executor sending probes to baseURL with client
func NewHTTPExecutor(baseURL string, client *http.Client) *HTTPExecutor {
	return &HTTPExecutor{baseURL: strings.TrimSuffix(baseURL, "/"), client: client}
}

// Execute sends the request of spec. Bodies are drained and discarded.
func (e *HTTPExecutor) Execute(ctx context.Context, spec Spec) Outcome {
	log := logger.FromContext(ctx)
	out := Outcome{Spec: spec}
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, spec.Method, e.baseURL+spec.Path, http.NoBody)
	if err != nil {
		out.Err = fmt.Errorf("failed to create request: %w", err)
		return out
	}
	req.Header.Set("User-Agent", spec.UserAgent)

	resp, err := e.client.Do(req) //nolint:bodyclose // closed below
	if err != nil {
		log.DebugContext(ctx, "Probe failed", "index", spec.Index, "path", spec.Path, "error", err)
		out.Err = err
		out.Duration = time.Since(start)
		return out
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		if cErr := resp.Body.Close(); cErr != nil {
			log.DebugContext(ctx, "Failed to close response body", "error", cErr)
		}
	}()

	out.Status = resp.StatusCode
	out.Duration = time.Since(start)
	return out
}

var _ Executor = (*Simulated)(nil)

// Simulated answers probes without a network. Identical seed and index always
// yield the identical outcome.
type Simulated struct {
	Seed uint64
	// Statuses weights the returned status codes. When empty the executor answers
	// like the site does: 200 for valid paths and 404 otherwise.
	Statuses map[int]float64
	// FailureRate is the share of probes failing without a response
	FailureRate float64
}

// Execute returns the simulated outcome of spec
func (s *Simulated) Execute(ctx context.Context, spec Spec) Outcome {
	out := Outcome{Spec: spec}
	if err := ctx.Err(); err != nil {
		out.Err = err
		return out
	}

	// the stream differs from the generator's stream for the same seed
	r := rand.New(rand.NewPCG(^s.Seed, uint64(spec.Index))) //nolint:gosec // not used for security
	out.Duration = time.Duration(1+r.IntN(50)) * time.Millisecond
	if r.Float64() < s.FailureRate {
		out.Err = ErrSimulatedFailure
		return out
	}

	if len(s.Statuses) == 0 {
		out.Status = http.StatusNotFound
		if spec.Valid() {
			out.Status = http.StatusOK
		}
		return out
	}
	out.Status = s.pick(r.Float64())
	return out
}

// pick selects the status for u in [0, 1) by cumulative weight
func (s *Simulated) pick(u float64) int {
	codes := make([]int, 0, len(s.Statuses))
	var total float64
	for code, w := range s.Statuses {
		if w > 0 {
			codes = append(codes, code)
			total += w
		}
	}
	if len(codes) == 0 {
		return http.StatusOK
	}
	slices.Sort(codes)

	target := u * total
	var acc float64
	for _, code := range codes {
		acc += s.Statuses[code]
		if target < acc {
			return code
		}
	}
	return codes[len(codes)-1]
}
