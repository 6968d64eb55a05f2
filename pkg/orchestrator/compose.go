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

package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/caas-team/sitecheck/internal/helper"
	"github.com/caas-team/sitecheck/internal/logger"
)

var _ Orchestrator = (*Compose)(nil)

// ComposeConfig configures the compose based orchestrator
type ComposeConfig struct {
	// Binary is the container runtime CLI, e.g. docker
	Binary string
	// File is the compose file
	File string
	// Project is the compose project name
	Project string
	// Service is the compose service under test
	Service string
	// ContainerName is the name of the service container. When empty the
	// compose naming scheme <project>-<service>-1 is assumed.
	ContainerName string
	// Timeout bounds every single command
	Timeout time.Duration
	// Retry configures retries of the inspect command
	Retry helper.RetryConfig
}

// Compose drives the service through the compose plugin of the container runtime CLI
type Compose struct {
	cfg    ComposeConfig
	runner Runner
}

// NewCompose creates a compose orchestrator executing commands with runner
func NewCompose(cfg ComposeConfig, runner Runner) *Compose {
	if cfg.Binary == "" {
		cfg.Binary = "docker"
	}
	if cfg.ContainerName == "" {
		cfg.ContainerName = fmt.Sprintf("%s-%s-1", cfg.Project, cfg.Service)
	}
	return &Compose{cfg: cfg, runner: runner}
}

// Container returns the name of the service container
func (c *Compose) Container() string {
	return c.cfg.ContainerName
}

// Available checks that the runtime daemon and its compose plugin answer
func (c *Compose) Available(ctx context.Context) error {
	if _, err := c.run(ctx, "version", "--format", "{{.Server.Version}}"); err != nil {
		return wrapUnavailable(err)
	}
	if _, err := c.run(ctx, "compose", "version"); err != nil {
		return wrapUnavailable(err)
	}
	return nil
}

// Up creates and starts the service detached
func (c *Compose) Up(ctx context.Context) error {
	_, err := c.compose(ctx, "up", "-d")
	return err
}

// Down stops and removes the service
func (c *Compose) Down(ctx context.Context) error {
	_, err := c.compose(ctx, "down", "--remove-orphans")
	return err
}

// Restart restarts the service
func (c *Compose) Restart(ctx context.Context) error {
	_, err := c.compose(ctx, "restart")
	return err
}

// Running reports whether the service container is listed by the runtime
func (c *Compose) Running(ctx context.Context) (bool, error) {
	res, err := c.run(ctx, "ps", "--filter", "name=^/?"+c.cfg.ContainerName+"$", "--format", "{{.Names}}")
	if err != nil {
		return false, err
	}
	return slices.Contains(strings.Fields(res.Stdout), c.cfg.ContainerName), nil
}

// Inspect returns the metadata of the service container. Failures are retried.
func (c *Compose) Inspect(ctx context.Context) (*ContainerInfo, error) {
	var info *ContainerInfo
	err := helper.Retry(func(ctx context.Context) error {
		res, err := c.run(ctx, "inspect", c.cfg.ContainerName)
		if err != nil {
			return err
		}
		info, err = decodeInspect([]byte(res.Stdout))
		return err
	}, c.cfg.Retry)(ctx)
	if err != nil {
		logger.FromContext(ctx).ErrorContext(ctx, "Failed to inspect container", "container", c.cfg.ContainerName, "error", err)
		return nil, err
	}
	return info, nil
}

func (c *Compose) compose(ctx context.Context, args ...string) (*RunResult, error) {
	base := []string{"compose", "-f", c.cfg.File, "-p", c.cfg.Project}
	return c.run(ctx, append(base, args...)...)
}

func (c *Compose) run(ctx context.Context, args ...string) (*RunResult, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}
	return c.runner.Run(ctx, c.cfg.Binary, args...)
}

func wrapUnavailable(err error) error {
	if errors.Is(err, ErrRuntimeUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrRuntimeUnavailable, err)
}

// inspectOutput is the subset of the runtime's inspect document that is decoded
type inspectOutput struct {
	Name  string `json:"Name"`
	State struct {
		Status string `json:"Status"`
		Health *struct {
			Status string `json:"Status"`
		} `json:"Health"`
	} `json:"State"`
	HostConfig struct {
		PortBindings  map[string][]inspectBinding `json:"PortBindings"`
		RestartPolicy struct {
			Name string `json:"Name"`
		} `json:"RestartPolicy"`
	} `json:"HostConfig"`
	NetworkSettings struct {
		Ports map[string][]inspectBinding `json:"Ports"`
	} `json:"NetworkSettings"`
	Mounts []struct {
		Source      string `json:"Source"`
		Destination string `json:"Destination"`
		RW          bool   `json:"RW"`
	} `json:"Mounts"`
}

type inspectBinding struct {
	HostIP   string `json:"HostIp"`
	HostPort string `json:"HostPort"`
}

func decodeInspect(b []byte) (*ContainerInfo, error) {
	var out []inspectOutput
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("failed to decode inspect output: %w", err)
	}
	if len(out) == 0 {
		return nil, ErrContainerNotFound
	}
	o := out[0]

	info := &ContainerInfo{
		Name:          strings.TrimPrefix(o.Name, "/"),
		State:         o.State.Status,
		RestartPolicy: o.HostConfig.RestartPolicy.Name,
		Ports:         map[string][]PortBinding{},
	}
	if o.State.Health != nil {
		info.Health = o.State.Health.Status
	}

	// live bindings are only present while the container runs
	ports := o.NetworkSettings.Ports
	if len(ports) == 0 {
		ports = o.HostConfig.PortBindings
	}
	for port, bindings := range ports {
		for _, b := range bindings {
			info.Ports[port] = append(info.Ports[port], PortBinding(b))
		}
	}
	for _, m := range o.Mounts {
		info.Mounts = append(info.Mounts, Mount{Source: m.Source, Destination: m.Destination, RW: m.RW})
	}
	return info, nil
}
