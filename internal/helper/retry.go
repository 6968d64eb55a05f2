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

package helper

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/caas-team/sitecheck/internal/logger"
)

// ErrPollExhausted is returned when a polling loop used up its attempts
var ErrPollExhausted = errors.New("poll attempts exhausted")

type RetryConfig struct {
	Count int           `json:"count" yaml:"count" mapstructure:"count"`
	Delay time.Duration `json:"delay" yaml:"delay" mapstructure:"delay"`
}

// PollConfig bounds a fixed interval polling loop
type PollConfig struct {
	Interval time.Duration `json:"interval" yaml:"interval" mapstructure:"interval"`
	Attempts int           `json:"attempts" yaml:"attempts" mapstructure:"attempts"`
}

// Effector will be the function that is called by the Retry function
type Effector func(context.Context) error

// Condition is evaluated by Poll. It reports whether the awaited state was reached.
// A returned error does not stop the loop, it is kept as the last observed cause.
type Condition func(context.Context) (bool, error)

// Retry will retry the run the effector function in an exponential backoff
func Retry(effector Effector, rc RetryConfig) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		log := logger.FromContext(ctx)
		for r := 1; ; r++ {
			err := effector(ctx)
			if err == nil || r > rc.Count {
				return err
			}

			delay := getExpBackoff(rc.Delay, r)
			log.DebugContext(ctx, "Effector call failed, retrying", "delay", delay.String(), "error", err)

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
}

// Poll evaluates cond once per interval, starting immediately, until it reports
// true, the attempts are used up or ctx is done. On success the number of the
// successful attempt is returned.
func Poll(ctx context.Context, pc PollConfig, cond Condition) (int, error) {
	attempts := max(pc.Attempts, 1)
	var lastErr error
	for a := 1; a <= attempts; a++ {
		ok, err := cond(ctx)
		if ok {
			return a, nil
		}
		lastErr = err

		if a == attempts {
			break
		}

		timer := time.NewTimer(pc.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return a, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr != nil {
		return attempts, fmt.Errorf("%w after %d attempts: %w", ErrPollExhausted, attempts, lastErr)
	}
	return attempts, fmt.Errorf("%w after %d attempts", ErrPollExhausted, attempts)
}

// calculate the exponential delay for a given iteration
// first iteration is 1
func getExpBackoff(initialDelay time.Duration, iteration int) time.Duration {
	if iteration <= 1 {
		return initialDelay
	}
	return time.Duration(math.Pow(2, float64(iteration-1))) * initialDelay
}
