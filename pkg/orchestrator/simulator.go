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
	"errors"
	"fmt"
	"io/fs"
	"strconv"

	"github.com/caas-team/sitecheck/internal/logger"
	"github.com/caas-team/sitecheck/pkg/compose"
	"github.com/caas-team/sitecheck/pkg/sitesim"
)

var _ Orchestrator = (*Simulator)(nil)

// Simulator stands in for the container runtime with an in-process site server.
// Container metadata is derived from the compose service.
type Simulator struct {
	server  *sitesim.Server
	addr    string
	name    string
	service compose.Service
}

// NewSimulator creates a simulator serving site on addr
func NewSimulator(ctx context.Context, site fs.FS, addr string, service compose.Service) *Simulator {
	name := service.ContainerName
	if name == "" {
		name = "sitesim"
	}
	return &Simulator{
		server:  sitesim.New(ctx, site),
		addr:    addr,
		name:    name,
		service: service,
	}
}

// Addr returns the address the simulated service listens on, empty when stopped
func (s *Simulator) Addr() string {
	return s.server.Addr()
}

// Available always succeeds
func (s *Simulator) Available(context.Context) error {
	return nil
}

// Up starts the site server
func (s *Simulator) Up(ctx context.Context) error {
	err := s.server.Start(ctx, s.addr)
	if errors.Is(err, sitesim.ErrAlreadyRunning) {
		// compose up on a running service is a no-op
		return nil
	}
	return err
}

// Down stops the site server. Stopping a stopped server succeeds.
func (s *Simulator) Down(ctx context.Context) error {
	err := s.server.Shutdown(ctx)
	if errors.Is(err, sitesim.ErrNotRunning) {
		return nil
	}
	return err
}

// Restart stops and starts the site server
func (s *Simulator) Restart(ctx context.Context) error {
	if err := s.Down(ctx); err != nil {
		return err
	}
	logger.FromContext(ctx).DebugContext(ctx, "Restarting simulated service")
	return s.server.Start(ctx, s.addr)
}

// Running reports whether the site server listens
func (s *Simulator) Running(context.Context) (bool, error) {
	return s.server.Running(), nil
}

// Inspect returns metadata synthesized from the compose service
func (s *Simulator) Inspect(context.Context) (*ContainerInfo, error) {
	if !s.server.Running() {
		return nil, fmt.Errorf("%w: %s", ErrContainerNotFound, s.name)
	}

	info := &ContainerInfo{
		Name:          s.name,
		State:         "running",
		RestartPolicy: s.service.Restart,
		Ports:         map[string][]PortBinding{},
	}
	if s.service.Healthcheck != nil {
		info.Health = "healthy"
	}

	ports, err := s.service.ParsedPorts()
	if err != nil {
		return nil, err
	}
	for _, p := range ports {
		key := strconv.Itoa(p.Container) + "/" + p.Protocol
		info.Ports[key] = append(info.Ports[key], PortBinding{HostIP: p.HostIP, HostPort: strconv.Itoa(p.Host)})
	}
	for _, m := range s.service.Mounts() {
		info.Mounts = append(info.Mounts, Mount{Source: m.Source, Destination: m.Target, RW: !m.ReadOnly})
	}
	return info, nil
}
