package cmd

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/caas-team/sitecheck/internal/httpclient"
	"github.com/caas-team/sitecheck/internal/logger"
	"github.com/caas-team/sitecheck/pkg/compose"
	"github.com/caas-team/sitecheck/pkg/config"
	"github.com/caas-team/sitecheck/pkg/content"
	"github.com/caas-team/sitecheck/pkg/lifecycle"
	"github.com/caas-team/sitecheck/pkg/orchestrator"
	"github.com/caas-team/sitecheck/pkg/suite"
	"github.com/caas-team/sitecheck/web"
)

const (
	containerPort = "80/tcp"
	restartPolicy = "unless-stopped"
)

// mountTargets are the destinations the service container must mount
var mountTargets = []string{"/usr/share/nginx/html", "/etc/nginx/conf.d/default.conf"}

// NewCmdSuite creates a new suite command
func NewCmdSuite() *cobra.Command {
	d := config.Default()
	cmd := &cobra.Command{
		Use:   "suite",
		Short: "Run the deployment lifecycle with the content and accessibility checks",
		Long: "Starts the service, waits until it answers, inspects the container, runs the content\n" +
			"assertions and the accessibility check and stops the service again. The service is\n" +
			"torn down on failure and on interrupt. Without a container runtime the service is simulated.",
		Args: cobra.NoArgs,
		RunE: runSuite(afero.NewOsFs()),
	}

	targetFlags(cmd, d)
	fileFlags(cmd, d)
	probeFlags(cmd, d)
	NewFlag("runtime.binary", "runtime-binary").String().Bind(cmd, d.Runtime.Binary, "container runtime CLI")
	NewFlag("runtime.project", "project").String().Bind(cmd, d.Runtime.Project, "compose project name")
	NewFlag("runtime.service", "service").String().Bind(cmd, d.Runtime.Service, "compose service under test")
	NewFlag("runtime.simulate", "simulate").String().Bind(cmd, d.Runtime.Simulate, "simulate the container runtime: auto, always or never")
	NewFlag("runtime.timeout", "runtime-timeout").Duration().Bind(cmd, d.Runtime.Timeout, "timeout of a single runtime command")
	NewFlag("runtime.teardown", "teardown-timeout").Duration().Bind(cmd, d.Runtime.Teardown, "timeout of the guaranteed teardown")
	NewFlag("readiness.interval", "ready-interval").Duration().Bind(cmd, d.Readiness.Interval, "interval between readiness requests")
	NewFlag("readiness.attempts", "ready-attempts").Int().Bind(cmd, d.Readiness.Attempts, "maximum number of readiness requests")
	NewFlag("restart", "restart").Bool().Bind(cmd, d.Restart, "restart the service after the checks and wait for it again")
	return cmd
}

// runSuite is the entry point of the suite command
func runSuite(fsys afero.Fs) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		ctx, cfg, err := setup(cmd)
		if err != nil {
			return err
		}
		log := logger.FromContext(ctx)

		desc, err := compose.Load(fsys, cfg.Files.Compose)
		if err != nil {
			log.Error("Failed to load compose file", "error", err)
			return err
		}
		svc, err := desc.Service(cfg.Runtime.Service)
		if err != nil {
			log.Error("Failed to select compose service", "error", err)
			return err
		}
		addr, port, err := listenAddr(cfg.Target.BaseURL)
		if err != nil {
			return err
		}

		printer := suite.NewPrinter(cmd.OutOrStdout())
		report := suite.NewReport(printer.Observer())
		m := newMetrics(cfg)

		runtime := orchestrator.NewCompose(orchestrator.ComposeConfig{
			Binary:        cfg.Runtime.Binary,
			File:          cfg.Files.Compose,
			Project:       cfg.Runtime.Project,
			Service:       cfg.Runtime.Service,
			ContainerName: svc.ContainerName,
			Timeout:       cfg.Runtime.Timeout,
			Retry:         cfg.Runtime.Retry,
		}, &orchestrator.ExecRunner{})
		orch, simulated, err := orchestrator.Select(ctx, cfg.Runtime.Simulate, runtime, func() orchestrator.Orchestrator {
			return orchestrator.NewSimulator(ctx, web.Site(), addr, svc)
		})
		if err != nil {
			return err
		}

		client := httpclient.New(cfg.Probe.ConnectTimeout, cfg.Probe.Timeout)
		ctx = httpclient.IntoContext(ctx, client)
		driver := lifecycle.NewDriver(orch, client, lifecycle.Config{
			BaseURL:       cfg.Target.BaseURL,
			Readiness:     cfg.Readiness,
			Health:        cfg.Runtime.HealthTry,
			Shutdown:      cfg.Shutdown,
			ContainerPort: containerPort,
			HostPort:      port,
			Mounts:        mountTargets,
			RestartPolicy: restartPolicy,
			Restart:       cfg.Restart,
			Teardown:      cfg.Runtime.Teardown,
		})

		printer.Section("Lifecycle")
		if simulated {
			printer.Infof("container runtime not used, the service is simulated on %s", addr)
		}

		checker := content.NewChecker(cfg.Target.BaseURL, client, cfg.Target.WelcomeText)
		err = driver.Run(ctx, report,
			func(ctx context.Context, report *suite.Report) error {
				printer.Section("Content")
				return checker.Check(ctx, report)
			},
			probePhase(cfg, printer, m),
			func(_ context.Context, _ *suite.Report) error {
				printer.Section("Shutdown")
				return nil
			},
		)
		if err != nil {
			log.Error("Suite aborted", "error", err)
			_ = finish(ctx, cfg, printer, report, m)
			return err
		}
		return finish(ctx, cfg, printer, report, m)
	}
}

// listenAddr returns host:port and the port of the base url
func listenAddr(baseURL string) (string, int, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", 0, fmt.Errorf("invalid base url: %w", err)
	}
	port := u.Port()
	if port == "" {
		port = "80"
	}
	p, err := strconv.Atoi(port)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port in base url: %w", err)
	}
	return net.JoinHostPort(u.Hostname(), port), p, nil
}
