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

// Package lifecycle drives the deployed service through start, readiness,
// introspection, the caller's checks and shutdown.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/caas-team/sitecheck/internal/helper"
	"github.com/caas-team/sitecheck/internal/logger"
	"github.com/caas-team/sitecheck/pkg/orchestrator"
	"github.com/caas-team/sitecheck/pkg/suite"
)

const (
	healthStarting = "starting"
	healthHealthy  = "healthy"
	dialTimeout    = time.Second
)

// Names of the lifecycle results
const (
	ResultStart         = "service start"
	ResultReady         = "service ready"
	ResultHealth        = "container health"
	ResultPort          = "port binding"
	ResultMount         = "mount %s"
	ResultRestartPolicy = "restart policy"
	ResultRestart       = "service restart"
	ResultStopped       = "container stopped"
	ResultPortClosed    = "port closed"
)

// Config configures the driver
type Config struct {
	// BaseURL is where the service answers once ready
	BaseURL   string
	Readiness helper.PollConfig
	// Health bounds the wait while the container health is starting
	Health   helper.PollConfig
	Shutdown helper.PollConfig
	// ContainerPort is the exposed container port, e.g. "80/tcp"
	ContainerPort string
	// HostPort is the host port the container port must be bound to
	HostPort int
	// Mounts are the mount destinations the container must have
	Mounts        []string
	RestartPolicy string
	// Restart runs a restart and readiness cycle after the caller's phases
	Restart bool
	// Teardown bounds the guaranteed cleanup
	Teardown time.Duration
}

// Phase is a caller supplied step run while the service is ready. Results are
// added to report. A returned error ends the run.
type Phase func(ctx context.Context, report *suite.Report) error

// Driver starts and stops one service instance at a time
type Driver struct {
	orch   orchestrator.Orchestrator
	client *http.Client
	cfg    Config

	mu     sync.Mutex
	active bool
}

// NewDriver creates a driver for the service managed by orch. The client is used
// for readiness requests.
func NewDriver(orch orchestrator.Orchestrator, client *http.Client, cfg Config) *Driver {
	return &Driver{orch: orch, client: client, cfg: cfg}
}

// Active reports whether the driver started an instance that was not stopped yet
func (d *Driver) Active() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

// Start brings the service up. A failure is not retried.
func (d *Driver) Start(ctx context.Context) error {
	log := logger.FromContext(ctx)
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active {
		return ErrAlreadyActive
	}

	log.InfoContext(ctx, "Starting service")
	if err := d.orch.Up(ctx); err != nil {
		log.ErrorContext(ctx, "Failed to start service", "error", err)
		return fmt.Errorf("%w: %w", ErrStartFailed, err)
	}
	d.active = true
	return nil
}

// AwaitReady requests the base URL until any response with a status in [200, 600)
// arrives. It returns the number of attempts needed.
func (d *Driver) AwaitReady(ctx context.Context) (int, error) {
	log := logger.FromContext(ctx)
	attempts, err := helper.Poll(ctx, d.cfg.Readiness, func(ctx context.Context) (bool, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.cfg.BaseURL, http.NoBody)
		if err != nil {
			return false, err
		}
		resp, err := d.client.Do(req)
		if err != nil {
			log.DebugContext(ctx, "Service not ready yet", "error", err)
			return false, err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)
		if resp.StatusCode < 200 || resp.StatusCode >= 600 {
			return false, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return true, nil
	})
	if err != nil {
		log.ErrorContext(ctx, "Service did not become ready", "attempts", attempts, "error", err)
		return attempts, fmt.Errorf("%w: %w", ErrNotReady, err)
	}
	log.InfoContext(ctx, "Service ready", "attempts", attempts)
	return attempts, nil
}

// Introspect checks the container metadata. Every check is an independent result.
func (d *Driver) Introspect(ctx context.Context) *suite.Report {
	report := suite.NewReport()
	names := []string{ResultHealth, ResultPort}
	for _, m := range d.cfg.Mounts {
		names = append(names, fmt.Sprintf(ResultMount, m))
	}
	names = append(names, ResultRestartPolicy)

	info, err := d.awaitHealth(ctx)
	if err != nil {
		for _, n := range names {
			report.Add(suite.Fail(n, "failed to inspect container: %v", err))
		}
		return report
	}

	report.Add(suite.Check(ResultHealth, info.Health == healthHealthy,
		"health status is %q, want %q", info.Health, healthHealthy))

	hostPorts := info.HostPorts(d.cfg.ContainerPort)
	report.Add(suite.Check(ResultPort, slices.Contains(hostPorts, d.cfg.HostPort),
		"%s is bound to %v, want %d", d.cfg.ContainerPort, hostPorts, d.cfg.HostPort))

	for _, dest := range d.cfg.Mounts {
		_, ok := info.Mount(dest)
		report.Add(suite.Check(fmt.Sprintf(ResultMount, dest), ok, "no mount at %s", dest))
	}

	report.Add(suite.Check(ResultRestartPolicy, info.RestartPolicy == d.cfg.RestartPolicy,
		"restart policy is %q, want %q", info.RestartPolicy, d.cfg.RestartPolicy))
	return report
}

// awaitHealth inspects the container until its health status is no longer starting
func (d *Driver) awaitHealth(ctx context.Context) (*orchestrator.ContainerInfo, error) {
	var info *orchestrator.ContainerInfo
	_, err := helper.Poll(ctx, d.cfg.Health, func(ctx context.Context) (bool, error) {
		var err error
		info, err = d.orch.Inspect(ctx)
		if err != nil {
			return false, err
		}
		return info.Health != healthStarting, nil
	})
	if info != nil && (err == nil || errors.Is(err, helper.ErrPollExhausted)) {
		// a health status stuck at starting is reported as such
		return info, nil
	}
	return nil, err
}

// Restart restarts the service and waits for it to be ready again
func (d *Driver) Restart(ctx context.Context) suite.Result {
	if err := d.orch.Restart(ctx); err != nil {
		return suite.Fail(ResultRestart, "restart failed: %v", err)
	}
	if _, err := d.AwaitReady(ctx); err != nil {
		return suite.Fail(ResultRestart, "%v", err)
	}
	return suite.Pass(ResultRestart)
}

// Stop brings the service down and verifies that the container is gone and the
// host port no longer accepts connections.
func (d *Driver) Stop(ctx context.Context) *suite.Report {
	log := logger.FromContext(ctx)
	report := suite.NewReport()

	d.mu.Lock()
	defer d.mu.Unlock()

	log.InfoContext(ctx, "Stopping service")
	if err := d.orch.Down(ctx); err != nil {
		log.ErrorContext(ctx, "Failed to stop service", "error", err)
		report.Add(
			suite.Fail(ResultStopped, "stop failed: %v", err),
			suite.Fail(ResultPortClosed, "stop failed: %v", err),
		)
		return report
	}
	d.active = false

	_, err := helper.Poll(ctx, d.cfg.Shutdown, func(ctx context.Context) (bool, error) {
		running, err := d.orch.Running(ctx)
		return err == nil && !running, err
	})
	report.Add(suite.Check(ResultStopped, err == nil, "container still running: %v", err))

	addr, err := hostAddr(d.cfg.BaseURL)
	if err != nil {
		report.Add(suite.Fail(ResultPortClosed, "%v", err))
		return report
	}
	_, err = helper.Poll(ctx, d.cfg.Shutdown, func(ctx context.Context) (bool, error) {
		dialer := net.Dialer{Timeout: dialTimeout}
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return true, nil
		}
		_ = conn.Close()
		return false, fmt.Errorf("%s still accepts connections", addr)
	})
	report.Add(suite.Check(ResultPortClosed, err == nil, "%v", err))
	return report
}

// Teardown stops an instance that is still active. It runs on a context detached
// from ctx so that a canceled run is still cleaned up.
func (d *Driver) Teardown(ctx context.Context) error {
	if !d.Active() {
		return nil
	}
	logger.FromContext(ctx).WarnContext(ctx, "Tearing down service")
	return d.release(ctx, true)
}

// release brings the service down on a detached context bounded by the teardown
// timeout. With onlyActive set it does nothing once the instance was stopped.
func (d *Driver) release(ctx context.Context, onlyActive bool) error {
	log := logger.FromContext(ctx)
	timeout := d.cfg.Teardown
	if timeout <= 0 {
		timeout = time.Minute
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	d.mu.Lock()
	defer d.mu.Unlock()
	if onlyActive && !d.active {
		return nil
	}
	if err := d.orch.Down(ctx); err != nil {
		log.ErrorContext(ctx, "Failed to tear down service", "error", err)
		return err
	}
	d.active = false
	return nil
}

// Run drives the whole lifecycle and adds every result to report. Only a failed
// start or readiness wait and a failing phase end the run early. The service is
// torn down in any case, a failed start included.
func (d *Driver) Run(ctx context.Context, report *suite.Report, phases ...Phase) (err error) {
	log := logger.FromContext(ctx)
	if err := d.Start(ctx); err != nil {
		report.Add(suite.Fail(ResultStart, "%v", err))
		if errors.Is(err, ErrStartFailed) {
			// up may have created the network or the container before failing
			log.WarnContext(ctx, "Removing what the failed start left behind")
			_ = d.release(ctx, false)
		}
		return err
	}
	report.Add(suite.Pass(ResultStart))
	defer func() {
		if tErr := d.Teardown(ctx); tErr != nil {
			err = errors.Join(err, tErr)
		}
	}()

	if _, err := d.AwaitReady(ctx); err != nil {
		report.Add(suite.Fail(ResultReady, "%v", err))
		return err
	}
	report.Add(suite.Pass(ResultReady))

	report.Merge(d.Introspect(ctx))

	for _, phase := range phases {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := phase(ctx, report); err != nil {
			log.ErrorContext(ctx, "Phase failed", "error", err)
			return err
		}
	}

	if d.cfg.Restart {
		if err := ctx.Err(); err != nil {
			return err
		}
		report.Add(d.Restart(ctx))
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	report.Merge(d.Stop(ctx))
	return nil
}

// hostAddr returns host:port of rawURL, falling back to the scheme's default port
func hostAddr(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid base url: %w", err)
	}
	port := u.Port()
	if port == "" {
		port = "80"
		if u.Scheme == "https" {
			port = "443"
		}
	}
	return net.JoinHostPort(u.Hostname(), port), nil
}
