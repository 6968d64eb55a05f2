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
	"net"
	"net/http"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caas-team/sitecheck/pkg/compose"
	"github.com/caas-team/sitecheck/pkg/config"
)

var testSite = fstest.MapFS{
	"index.html": {Data: []byte("<h1>Welcome to the Static Site</h1>")},
}

var testService = compose.Service{
	Image:         "nginx:alpine",
	ContainerName: "static-site",
	Ports:         []string{"8080:80"},
	Volumes:       []string{"./web/html:/usr/share/nginx/html:ro", "./web/nginx.conf:/etc/nginx/conf.d/default.conf:ro"},
	Restart:       "unless-stopped",
	Healthcheck:   &compose.Healthcheck{Test: compose.Command{"CMD", "true"}},
}

func TestSimulator_Lifecycle(t *testing.T) {
	ctx := context.Background()
	sim := NewSimulator(ctx, testSite, "127.0.0.1:0", testService)
	t.Cleanup(func() { _ = sim.Down(ctx) })

	require.NoError(t, sim.Available(ctx))
	running, err := sim.Running(ctx)
	require.NoError(t, err)
	assert.False(t, running)

	_, err = sim.Inspect(ctx)
	assert.ErrorIs(t, err, ErrContainerNotFound)

	require.NoError(t, sim.Up(ctx))
	require.NoError(t, sim.Up(ctx), "up on a running service is a no-op")
	running, err = sim.Running(ctx)
	require.NoError(t, err)
	assert.True(t, running)

	resp, err := http.Get("http://" + sim.Addr() + "/")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	info, err := sim.Inspect(ctx)
	require.NoError(t, err)
	assert.Equal(t, "static-site", info.Name)
	assert.Equal(t, "healthy", info.Health)
	assert.Equal(t, "unless-stopped", info.RestartPolicy)
	assert.Equal(t, []int{8080}, info.HostPorts("80/tcp"))
	m, ok := info.Mount("/usr/share/nginx/html")
	require.True(t, ok)
	assert.False(t, m.RW)
	_, ok = info.Mount("/etc/nginx/conf.d/default.conf/")
	assert.True(t, ok)

	require.NoError(t, sim.Restart(ctx))
	running, _ = sim.Running(ctx)
	assert.True(t, running)

	addr := sim.Addr()
	require.NoError(t, sim.Down(ctx))
	require.NoError(t, sim.Down(ctx), "down is idempotent")
	running, _ = sim.Running(ctx)
	assert.False(t, running)
	_, err = net.Dial("tcp", addr)
	assert.Error(t, err, "listener should be released")
}

func TestSimulator_NoHealthcheck(t *testing.T) {
	ctx := context.Background()
	svc := testService
	svc.Healthcheck = nil
	sim := NewSimulator(ctx, testSite, "127.0.0.1:0", svc)
	require.NoError(t, sim.Up(ctx))
	t.Cleanup(func() { _ = sim.Down(ctx) })

	info, err := sim.Inspect(ctx)
	require.NoError(t, err)
	assert.Empty(t, info.Health)
}

type stubRuntime struct {
	Orchestrator
	err error
}

func (s stubRuntime) Available(context.Context) error { return s.err }

func TestSelect(t *testing.T) {
	sim := &Simulator{}
	simFn := func() Orchestrator { return sim }
	up := stubRuntime{}
	down := stubRuntime{err: ErrRuntimeUnavailable}

	tests := []struct {
		name      string
		mode      string
		runtime   Orchestrator
		wantSim   bool
		wantErrIs error
		wantErr   bool
	}{
		{name: "auto with runtime", mode: config.SimulateAuto, runtime: up},
		{name: "auto without runtime", mode: config.SimulateAuto, runtime: down, wantSim: true},
		{name: "always", mode: config.SimulateAlways, runtime: up, wantSim: true},
		{name: "never with runtime", mode: config.SimulateNever, runtime: up},
		{name: "never without runtime", mode: config.SimulateNever, runtime: down, wantErrIs: ErrRuntimeUnavailable},
		{name: "unknown mode", mode: "sometimes", runtime: up, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, simulated, err := Select(context.Background(), tt.mode, tt.runtime, simFn)
			switch {
			case tt.wantErrIs != nil:
				assert.True(t, errors.Is(err, tt.wantErrIs))
				return
			case tt.wantErr:
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSim, simulated)
			if tt.wantSim {
				assert.Same(t, sim, got)
			} else {
				assert.Equal(t, tt.runtime, got)
			}
		})
	}
}
