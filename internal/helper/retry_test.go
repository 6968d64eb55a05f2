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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetry(t *testing.T) {
	effectorFuncCallCounter := 0
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type args struct {
		effector Effector
		rc       RetryConfig
	}
	tests := []struct {
		name        string
		args        args
		ctx         context.Context
		wantRetries int
		wantError   bool
	}{
		{
			name: "success after first call",
			args: args{
				effector: func(ctx context.Context) error {
					effectorFuncCallCounter++
					return nil
				},
				rc: RetryConfig{Count: 2, Delay: 10 * time.Millisecond},
			},
			ctx:         context.Background(),
			wantError:   false,
			wantRetries: 0,
		},
		{
			name: "success after first retry",
			args: args{
				effector: func(ctx context.Context) error {
					effectorFuncCallCounter++
					if effectorFuncCallCounter > 1 {
						return nil
					}
					return fmt.Errorf("inspect not ready")
				},
				rc: RetryConfig{Count: 2, Delay: 10 * time.Millisecond},
			},
			ctx:         context.Background(),
			wantError:   false,
			wantRetries: 1,
		},
		{
			name: "error",
			args: args{
				effector: func(ctx context.Context) error {
					effectorFuncCallCounter++
					return fmt.Errorf("inspect not ready")
				},
				rc: RetryConfig{Count: 2, Delay: 10 * time.Millisecond},
			},
			ctx:         context.Background(),
			wantError:   true,
			wantRetries: 2,
		},
		{
			name: "context canceled",
			args: args{
				effector: func(ctx context.Context) error {
					effectorFuncCallCounter++
					cancel()
					return errors.New("inspect not ready")
				},
				rc: RetryConfig{Count: 2, Delay: time.Second},
			},
			ctx:         ctx,
			wantError:   true,
			wantRetries: 0,
		},
	}
	for _, tt := range tests {
		effectorFuncCallCounter = 0
		t.Run(tt.name, func(t *testing.T) {
			retry := Retry(tt.args.effector, tt.args.rc)
			err := retry(tt.ctx)
			if (err != nil) != tt.wantError {
				t.Errorf("Retry() error = %v, wantErr %v", err, tt.wantError)
				return
			}
			if effectorFuncCallCounter-1 != tt.wantRetries {
				t.Errorf("Retry() gotRetries = %v, want %v", effectorFuncCallCounter-1, tt.wantRetries)
			}
		})
	}
}

func TestPoll(t *testing.T) {
	errRefused := errors.New("connection refused")

	tests := []struct {
		name         string
		pc           PollConfig
		readyAt      int
		wantAttempts int
		wantErr      error
	}{
		{
			name:         "ready on first attempt",
			pc:           PollConfig{Interval: 5 * time.Millisecond, Attempts: 3},
			readyAt:      1,
			wantAttempts: 1,
		},
		{
			name:         "ready on third attempt",
			pc:           PollConfig{Interval: 5 * time.Millisecond, Attempts: 5},
			readyAt:      3,
			wantAttempts: 3,
		},
		{
			name:         "never ready",
			pc:           PollConfig{Interval: 5 * time.Millisecond, Attempts: 4},
			readyAt:      0,
			wantAttempts: 4,
			wantErr:      ErrPollExhausted,
		},
		{
			name:         "zero attempts still polls once",
			pc:           PollConfig{Interval: 5 * time.Millisecond},
			readyAt:      1,
			wantAttempts: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			got, err := Poll(context.Background(), tt.pc, func(context.Context) (bool, error) {
				calls++
				if tt.readyAt > 0 && calls >= tt.readyAt {
					return true, nil
				}
				return false, errRefused
			})

			assert.Equal(t, tt.wantAttempts, got)
			assert.Equal(t, tt.wantAttempts, calls, "condition must be evaluated sequentially once per attempt")
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.ErrorIs(t, err, errRefused)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestPoll_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Poll(ctx, PollConfig{Interval: time.Minute, Attempts: 10}, func(context.Context) (bool, error) {
		calls++
		cancel()
		return false, nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func Test_getExpBackoff(t *testing.T) {
	tests := []struct {
		name         string
		initialDelay time.Duration
		iteration    int
		want         time.Duration
	}{
		{name: "1 sec and 1. iteration", initialDelay: time.Second, iteration: 1, want: time.Second},
		{name: "1 sec and 2. iteration", initialDelay: time.Second, iteration: 2, want: 2 * time.Second},
		{name: "1 sec and 3. iteration", initialDelay: time.Second, iteration: 3, want: 4 * time.Second},
		{name: "1 sec and 4. iteration", initialDelay: time.Second, iteration: 4, want: 8 * time.Second},
		{name: "1 sec and unknown iteration", initialDelay: time.Second, iteration: -12, want: time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := getExpBackoff(tt.initialDelay, tt.iteration); got != tt.want {
				t.Errorf("getExpBackoff() = %v, want %v", got, tt.want)
			}
		})
	}
}
