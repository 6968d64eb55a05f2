package test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/caas-team/sitecheck/internal/httpclient"
	"github.com/caas-team/sitecheck/internal/helper"
	"github.com/caas-team/sitecheck/pkg/compose"
	"github.com/caas-team/sitecheck/pkg/content"
	"github.com/caas-team/sitecheck/pkg/lifecycle"
	"github.com/caas-team/sitecheck/pkg/orchestrator"
	"github.com/caas-team/sitecheck/pkg/probe"
	"github.com/caas-team/sitecheck/pkg/suite"
)

var _ Runner = (*E2E)(nil)

// E2E is an end-to-end test running the lifecycle against the container runtime.
type E2E struct {
	t       *testing.T
	runtime *orchestrator.Compose
	baseURL string
	probes  probe.Config
	restart bool
	report  *suite.Report
	mu      sync.Mutex
	running bool
}

func newE2E(t *testing.T, composeFile string) *E2E {
	t.Helper()
	desc, err := compose.Load(afero.NewOsFs(), composeFile)
	if err != nil {
		t.Fatalf("Failed to load compose file: %v", err)
	}
	svc, err := desc.Service("")
	if err != nil {
		t.Fatalf("Failed to select compose service: %v", err)
	}

	return &E2E{
		t: t,
		runtime: orchestrator.NewCompose(orchestrator.ComposeConfig{
			File:          composeFile,
			Project:       "sitecheck-e2e",
			Service:       "web",
			ContainerName: svc.ContainerName,
			Timeout:       2 * time.Minute,
			Retry:         helper.RetryConfig{Count: 3, Delay: time.Second},
		}, &orchestrator.ExecRunner{}),
		baseURL: "http://localhost:8080",
		probes:  probe.Config{Iterations: 100, Workers: 3, Seed: 1, Threshold: probe.DefaultThreshold},
		report:  suite.NewReport(func(r suite.Result) { t.Logf("passed=%t %s %s", r.Passed, r.Name, r.Message) }),
	}
}

// WithBaseURL sets the url the service answers on.
func (t *E2E) WithBaseURL(u string) *E2E {
	t.baseURL = u
	return t
}

// WithProbes sets the configuration of the accessibility check.
func (t *E2E) WithProbes(cfg probe.Config) *E2E {
	t.probes = cfg
	return t
}

// WithRestart enables the restart cycle.
func (t *E2E) WithRestart() *E2E {
	t.restart = true
	return t
}

// Run runs the lifecycle once.
func (t *E2E) Run(ctx context.Context) error {
	if t.isRunning() {
		t.t.Fatal("E2E.Run must be called once")
	}
	t.mu.Lock()
	t.running = true
	t.mu.Unlock()

	client := httpclient.New(3*time.Second, 5*time.Second)
	driver := lifecycle.NewDriver(t.runtime, client, lifecycle.Config{
		BaseURL:       t.baseURL,
		Readiness:     helper.PollConfig{Interval: time.Second, Attempts: 30},
		Health:        helper.PollConfig{Interval: 2 * time.Second, Attempts: 30},
		Shutdown:      helper.PollConfig{Interval: time.Second, Attempts: 10},
		ContainerPort: "80/tcp",
		HostPort:      8080,
		Mounts:        []string{"/usr/share/nginx/html", "/etc/nginx/conf.d/default.conf"},
		RestartPolicy: "unless-stopped",
		Restart:       t.restart,
		Teardown:      time.Minute,
	})

	checker := content.NewChecker(t.baseURL, client, "Welcome")
	return driver.Run(ctx, t.report,
		checker.Check,
		func(ctx context.Context, report *suite.Report) error {
			res, err := probe.Check(ctx, probe.NewHTTPExecutor(t.baseURL, client), t.probes)
			if res != nil {
				report.Merge(res.Results())
			}
			return err
		},
	)
}

// Report returns the results collected by Run.
func (t *E2E) Report() *suite.Report {
	return t.report
}

// isRunning returns true if the test is running.
func (t *E2E) isRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}
