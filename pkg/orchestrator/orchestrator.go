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

// Package orchestrator drives the container runtime hosting the site.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/caas-team/sitecheck/internal/logger"
	"github.com/caas-team/sitecheck/pkg/config"
)

var (
	// ErrRuntimeUnavailable is returned when the container runtime cannot be used
	ErrRuntimeUnavailable = errors.New("container runtime unavailable")
	// ErrContainerNotFound is returned when the service container does not exist
	ErrContainerNotFound = errors.New("container not found")
)

// Orchestrator starts, stops and reports on the service instance
type Orchestrator interface {
	// Available checks that the runtime can be used
	Available(ctx context.Context) error
	// Up creates and starts the service in the background
	Up(ctx context.Context) error
	// Down stops and removes the service
	Down(ctx context.Context) error
	// Restart restarts the running service
	Restart(ctx context.Context) error
	// Running reports whether the service container is listed as running
	Running(ctx context.Context) (bool, error)
	// Inspect returns the metadata of the service container
	Inspect(ctx context.Context) (*ContainerInfo, error)
}

// ContainerInfo is the container metadata the lifecycle assertions use
type ContainerInfo struct {
	Name  string
	State string
	// Health is empty when the container has no healthcheck
	Health        string
	Ports         map[string][]PortBinding
	Mounts        []Mount
	RestartPolicy string
}

// PortBinding is a host side binding of a container port
type PortBinding struct {
	HostIP   string
	HostPort string
}

// Mount is a mount point of the container
type Mount struct {
	Source      string
	Destination string
	RW          bool
}

// HostPorts returns the host ports bound to the container port, e.g. "80/tcp"
func (c *ContainerInfo) HostPorts(containerPort string) []int {
	var ports []int
	for _, b := range c.Ports[containerPort] {
		if p, err := strconv.Atoi(b.HostPort); err == nil && !slices.Contains(ports, p) {
			ports = append(ports, p)
		}
	}
	return ports
}

// Mount returns the mount with the given destination
func (c *ContainerInfo) Mount(destination string) (Mount, bool) {
	for _, m := range c.Mounts {
		if strings.TrimSuffix(m.Destination, "/") == strings.TrimSuffix(destination, "/") {
			return m, true
		}
	}
	return Mount{}, false
}

// Select picks the orchestrator for the simulation mode. The returned flag reports
// whether the simulator was chosen. In mode never a runtime that is not available
// is a fatal error.
func Select(ctx context.Context, mode string, runtime Orchestrator, simulator func() Orchestrator) (Orchestrator, bool, error) {
	log := logger.FromContext(ctx)
	switch mode {
	case config.SimulateAlways:
		log.InfoContext(ctx, "Using simulated container runtime")
		return simulator(), true, nil
	case config.SimulateNever, config.SimulateAuto:
	default:
		return nil, false, fmt.Errorf("unknown simulation mode %q", mode)
	}

	err := runtime.Available(ctx)
	if err == nil {
		return runtime, false, nil
	}
	if mode == config.SimulateNever {
		log.ErrorContext(ctx, "Container runtime is not available", "error", err)
		return nil, false, err
	}

	log.WarnContext(ctx, "Container runtime is not available, falling back to simulation", "error", err)
	return simulator(), true, nil
}
