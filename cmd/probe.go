package cmd

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/spf13/cobra"

	"github.com/caas-team/sitecheck/internal/httpclient"
	"github.com/caas-team/sitecheck/internal/logger"
	"github.com/caas-team/sitecheck/pkg/config"
	"github.com/caas-team/sitecheck/pkg/metrics"
	"github.com/caas-team/sitecheck/pkg/probe"
	"github.com/caas-team/sitecheck/pkg/suite"
)

// NewCmdProbe creates a new probe command
func NewCmdProbe() *cobra.Command {
	d := config.Default()
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Check that a running site stays reachable under randomized requests",
		Long: "Sends randomized GET and HEAD requests to the running site and passes when the share\n" +
			"of requests answered with a status between 200 and 599 reaches the threshold",
		Args: cobra.NoArgs,
		RunE: runProbe,
	}

	targetFlags(cmd, d)
	probeFlags(cmd, d)
	return cmd
}

// runProbe is the entry point of the probe command
func runProbe(cmd *cobra.Command, _ []string) error {
	ctx, cfg, err := setup(cmd)
	if err != nil {
		return err
	}

	printer := suite.NewPrinter(cmd.OutOrStdout())
	report := suite.NewReport(printer.Observer())
	m := newMetrics(cfg)

	client := httpclient.New(cfg.Probe.ConnectTimeout, cfg.Probe.Timeout)
	ctx = httpclient.IntoContext(ctx, client)
	if err := probePhase(cfg, printer, m)(ctx, report); err != nil {
		logger.FromContext(ctx).Error("Probe run aborted", "error", err)
		_ = finish(ctx, cfg, printer, report, m)
		return err
	}
	return finish(ctx, cfg, printer, report, m)
}

// maxListedFailures bounds the failed probes listed in verbose mode
const maxListedFailures = 10

// probePhase runs the accessibility check and adds its result to report
func probePhase(cfg *config.Config, printer *suite.Printer, m metrics.Provider) func(ctx context.Context, report *suite.Report) error {
	return func(ctx context.Context, report *suite.Report) error {
		log := logger.FromContext(ctx)
		printer.Section("Accessibility")

		seed := cfg.Probe.Seed
		if seed == 0 {
			seed = rand.Uint64() //nolint:gosec // not used for security
		}
		printer.Infof("seed %d, %d probes against %s", seed, cfg.Probe.Iterations, cfg.Target.BaseURL)

		var exec probe.Executor = probe.NewHTTPExecutor(cfg.Target.BaseURL, httpclient.FromContext(ctx))
		if cfg.Probe.Simulate {
			exec = &probe.Simulated{Seed: seed}
		}

		pcfg := probe.Config{
			Iterations: cfg.Probe.Iterations,
			Workers:    cfg.Probe.Workers,
			Seed:       seed,
			Threshold:  cfg.Probe.Threshold,
		}
		if m != nil {
			pm := probe.NewMetrics()
			if err := m.Register(pm.GetMetricCollectors()...); err != nil {
				log.Error("Failed to register probe metrics", "error", err)
				return err
			}
			pcfg.Metrics = pm
		}

		res, err := probe.Check(ctx, exec, pcfg)
		if res != nil {
			printer.Histogram("Status codes", res.Bars())
			printer.Infof("%s", res)
			if cfg.Verbose {
				printFailed(printer, res.Failed())
			}
			report.Merge(res.Results())
		}
		return err
	}
}

// printFailed lists the first failed probes and how many were left out
func printFailed(printer *suite.Printer, failed []probe.Outcome) {
	for i, o := range failed {
		if i == maxListedFailures {
			printer.Infof("... and %d more failed probes", len(failed)-maxListedFailures)
			return
		}
		reason := fmt.Sprintf("status %d", o.Status)
		if o.Err != nil {
			reason = o.Err.Error()
		}
		printer.Infof("probe %d %s %s failed: %s", o.Spec.Index, o.Spec.Method, o.Spec.Path, reason)
	}
}
