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
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		wantErrs []error
	}{
		{
			name:   "defaults",
			mutate: func(*Config) {},
		},
		{
			name:     "invalid base url",
			mutate:   func(c *Config) { c.Target.BaseURL = "localhost:8080" },
			wantErrs: []error{ErrInvalidBaseURL},
		},
		{
			name:     "too few iterations",
			mutate:   func(c *Config) { c.Probe.Iterations = 20 },
			wantErrs: []error{ErrInvalidIterations},
		},
		{
			name: "several invalid fields",
			mutate: func(c *Config) {
				c.Probe.Threshold = 1.5
				c.Probe.Workers = 0
				c.Readiness.Attempts = 0
				c.Runtime.Simulate = "sometimes"
			},
			wantErrs: []error{ErrInvalidThreshold, ErrInvalidWorkers, ErrInvalidPoll, ErrInvalidSimulate},
		},
		{
			name: "zero timeouts",
			mutate: func(c *Config) {
				c.Probe.Timeout = 0
				c.Runtime.Teardown = 0
			},
			wantErrs: []error{ErrInvalidTimeout},
		},
		{
			name:     "missing file path",
			mutate:   func(c *Config) { c.Files.Compose = "" },
			wantErrs: []error{ErrInvalidFilePath},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate(context.Background())
			if len(tt.wantErrs) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, want := range tt.wantErrs {
				assert.ErrorIs(t, err, want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		settings map[string]any
		want     func() *Config
		wantErr  bool
	}{
		{
			name:     "no settings keeps defaults",
			settings: map[string]any{},
			want:     Default,
		},
		{
			name: "nested settings as produced by viper",
			settings: map[string]any{
				"verbose": true,
				"probe": map[string]any{
					"iterations":     "200",
					"connecttimeout": "1s",
					"seed":           42,
				},
				"target": map[string]any{
					"baseurl": "http://127.0.0.1:9090",
				},
				"runtime": map[string]any{
					"simulate": "always",
				},
			},
			want: func() *Config {
				c := Default()
				c.Verbose = true
				c.Probe.Iterations = 200
				c.Probe.ConnectTimeout = time.Second
				c.Probe.Seed = 42
				c.Target.BaseURL = "http://127.0.0.1:9090"
				c.Runtime.Simulate = SimulateAlways
				return c
			},
		},
		{
			name:     "malformed duration",
			settings: map[string]any{"probe": map[string]any{"timeout": "soon"}},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.settings)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want(), got); diff != "" {
				t.Errorf("Load() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
