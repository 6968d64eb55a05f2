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
	"time"

	"github.com/caas-team/sitecheck/internal/helper"
)

// Simulation modes of the orchestrator selection
const (
	SimulateAuto   = "auto"
	SimulateAlways = "always"
	SimulateNever  = "never"
)

// Config is the configuration of a sitecheck run
type Config struct {
	Verbose     bool              `yaml:"verbose" mapstructure:"verbose"`
	MetricsFile string            `yaml:"metricsFile" mapstructure:"metricsFile"`
	Files       FilesConfig       `yaml:"files" mapstructure:"files"`
	Target      TargetConfig      `yaml:"target" mapstructure:"target"`
	Runtime     RuntimeConfig     `yaml:"runtime" mapstructure:"runtime"`
	Readiness   helper.PollConfig `yaml:"readiness" mapstructure:"readiness"`
	Shutdown    helper.PollConfig `yaml:"shutdown" mapstructure:"shutdown"`
	Probe       ProbeConfig       `yaml:"probe" mapstructure:"probe"`
	Restart     bool              `yaml:"restart" mapstructure:"restart"`
	Serve       ServeConfig       `yaml:"serve" mapstructure:"serve"`
}

// ServeConfig configures the in-process site server
type ServeConfig struct {
	Address string `yaml:"address" mapstructure:"address"`
}

// FilesConfig locates the descriptor files
type FilesConfig struct {
	Nginx   string `yaml:"nginx" mapstructure:"nginx"`
	Compose string `yaml:"compose" mapstructure:"compose"`
	// Strict enables the structural compose checks
	Strict bool `yaml:"strict" mapstructure:"strict"`
}

// TargetConfig describes where the service answers
type TargetConfig struct {
	BaseURL     string `yaml:"baseUrl" mapstructure:"baseUrl"`
	WelcomeText string `yaml:"welcomeText" mapstructure:"welcomeText"`
}

// RuntimeConfig configures the container orchestrator
type RuntimeConfig struct {
	Binary    string             `yaml:"binary" mapstructure:"binary"`
	Project   string             `yaml:"project" mapstructure:"project"`
	Service   string             `yaml:"service" mapstructure:"service"`
	Simulate  string             `yaml:"simulate" mapstructure:"simulate"`
	Timeout   time.Duration      `yaml:"timeout" mapstructure:"timeout"`
	Retry     helper.RetryConfig `yaml:"retry" mapstructure:"retry"`
	Teardown  time.Duration      `yaml:"teardown" mapstructure:"teardown"`
	HealthTry helper.PollConfig  `yaml:"health" mapstructure:"health"`
}

// ProbeConfig configures the accessibility property check
type ProbeConfig struct {
	Iterations     int           `yaml:"iterations" mapstructure:"iterations"`
	Workers        int           `yaml:"workers" mapstructure:"workers"`
	Seed           uint64        `yaml:"seed" mapstructure:"seed"`
	Threshold      float64       `yaml:"threshold" mapstructure:"threshold"`
	ConnectTimeout time.Duration `yaml:"connectTimeout" mapstructure:"connectTimeout"`
	Timeout        time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Simulate       bool          `yaml:"simulate" mapstructure:"simulate"`
}

// Default returns the configuration matching the repository's compose setup
func Default() *Config {
	return &Config{
		Files: FilesConfig{
			Nginx:   "web/nginx.conf",
			Compose: "docker-compose.yml",
		},
		Target: TargetConfig{
			BaseURL:     "http://localhost:8080",
			WelcomeText: "Welcome",
		},
		Runtime: RuntimeConfig{
			Binary:    "docker",
			Project:   "sitecheck",
			Service:   "web",
			Simulate:  SimulateAuto,
			Timeout:   2 * time.Minute,
			Retry:     helper.RetryConfig{Count: 3, Delay: 500 * time.Millisecond},
			Teardown:  time.Minute,
			HealthTry: helper.PollConfig{Interval: 2 * time.Second, Attempts: 30},
		},
		Readiness: helper.PollConfig{Interval: time.Second, Attempts: 30},
		Shutdown:  helper.PollConfig{Interval: time.Second, Attempts: 10},
		Probe: ProbeConfig{
			Iterations:     120,
			Workers:        3,
			Threshold:      0.95,
			ConnectTimeout: 3 * time.Second,
			Timeout:        5 * time.Second,
		},
		Serve: ServeConfig{Address: ":8080"},
	}
}
