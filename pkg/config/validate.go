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

package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/caas-team/sitecheck/internal/helper"
	"github.com/caas-team/sitecheck/internal/logger"
)

// MinIterations is the smallest probe population the property is evaluated on
const MinIterations = 100

// Validate validates the config. All invalid fields are reported at once.
func (c *Config) Validate(ctx context.Context) error {
	ctx, cancel := logger.NewContextWithLogger(ctx, "configValidation")
	defer cancel()
	log := logger.FromContext(ctx)

	var errs []error
	if u, err := url.Parse(c.Target.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		log.ErrorContext(ctx, "The target base url is not a valid http url", "url", c.Target.BaseURL)
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidBaseURL, c.Target.BaseURL))
	}

	if c.Probe.Iterations < MinIterations {
		log.ErrorContext(ctx, "The amount of probes is too small", "iterations", c.Probe.Iterations, "minimum", MinIterations)
		errs = append(errs, fmt.Errorf("%w: %d is below %d", ErrInvalidIterations, c.Probe.Iterations, MinIterations))
	}
	if c.Probe.Workers < 1 {
		log.ErrorContext(ctx, "The probe worker pool needs at least one worker", "workers", c.Probe.Workers)
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidWorkers, c.Probe.Workers))
	}
	if c.Probe.Threshold <= 0 || c.Probe.Threshold > 1 {
		log.ErrorContext(ctx, "The probe threshold must be within (0, 1]", "threshold", c.Probe.Threshold)
		errs = append(errs, fmt.Errorf("%w: %v", ErrInvalidThreshold, c.Probe.Threshold))
	}
	if c.Probe.ConnectTimeout <= 0 || c.Probe.Timeout <= 0 {
		log.ErrorContext(ctx, "The probe timeouts must be positive", "connectTimeout", c.Probe.ConnectTimeout, "timeout", c.Probe.Timeout)
		errs = append(errs, fmt.Errorf("%w: probe timeouts must be positive", ErrInvalidTimeout))
	}
	if c.Runtime.Timeout <= 0 || c.Runtime.Teardown <= 0 {
		log.ErrorContext(ctx, "The runtime timeouts must be positive", "timeout", c.Runtime.Timeout, "teardown", c.Runtime.Teardown)
		errs = append(errs, fmt.Errorf("%w: runtime timeouts must be positive", ErrInvalidTimeout))
	}

	for name, pc := range map[string]helper.PollConfig{
		"readiness": c.Readiness,
		"shutdown":  c.Shutdown,
		"health":    c.Runtime.HealthTry,
	} {
		if pc.Attempts < 1 || pc.Interval <= 0 {
			log.ErrorContext(ctx, "Polling loop must be bounded", "loop", name, "attempts", pc.Attempts, "interval", pc.Interval)
			errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidPoll, name))
		}
	}

	switch c.Runtime.Simulate {
	case SimulateAuto, SimulateAlways, SimulateNever:
	default:
		log.ErrorContext(ctx, "Unknown simulation mode", "simulate", c.Runtime.Simulate)
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidSimulate, c.Runtime.Simulate))
	}

	if c.Files.Nginx == "" || c.Files.Compose == "" {
		log.ErrorContext(ctx, "Descriptor file paths must be set", "nginx", c.Files.Nginx, "compose", c.Files.Compose)
		errs = append(errs, ErrInvalidFilePath)
	}

	return errors.Join(errs...)
}
