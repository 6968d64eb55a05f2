package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/caas-team/sitecheck/internal/logger"
	"github.com/caas-team/sitecheck/pkg/config"
	"github.com/caas-team/sitecheck/pkg/metrics"
	"github.com/caas-team/sitecheck/pkg/suite"
)

// ErrChecksFailed is returned by a command when at least one assertion failed
var ErrChecksFailed = errors.New("checks failed")

const envPrefix = "SITECHECK"

// NewCmdRoot creates a new root command
func NewCmdRoot(version string) *cobra.Command {
	var cfgFile string
	rootCmd := &cobra.Command{
		Use:   "sitecheck",
		Short: "sitecheck, the test harness of the static site deployment",
		Long: "sitecheck validates the web server and compose configuration, drives the deployment\n" +
			"through its lifecycle and checks that the site stays reachable under randomized requests.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(cmd, cfgFile)
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML config file")
	NewFlag("verbose", "verbose").BoolP("v").Bind(rootCmd, false, "enable debug logging")
	NewFlag("metricsFile", "metrics-file").String().Bind(rootCmd, "", "write the metrics of the run in the Prometheus text format to this file")
	return rootCmd
}

// BuildCmd creates the root command with all child commands
func BuildCmd(version string) *cobra.Command {
	cmd := NewCmdRoot(version)
	cmd.AddCommand(NewCmdValidate())
	cmd.AddCommand(NewCmdProbe())
	cmd.AddCommand(NewCmdSuite())
	cmd.AddCommand(NewCmdServe())
	cmd.AddCommand(NewCmdGenDocs(cmd))
	return cmd
}

// Execute builds the cmd tree and executes it. Interrupts cancel the
// context of the executed command.
func Execute(version string) {
	cmd := BuildCmd(version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, ErrChecksFailed) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// initConfig binds the flags of the executed command, the environment and the
// optional config file to viper
func initConfig(cmd *cobra.Command, cfgFile string) error {
	if err := bindFlags(cmd); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	if err := viper.BindEnv("probe.iterations", envPrefix+"_PROBE_ITERATIONS", "ITERATIONS"); err != nil {
		return fmt.Errorf("failed to bind environment: %w", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return nil
}

// setup loads and validates the configuration and prepares the logger
func setup(cmd *cobra.Command) (context.Context, *config.Config, error) {
	cfg, err := config.Load(viper.AllSettings())
	if err != nil {
		return nil, nil, err
	}

	log := logger.NewLogger()
	if cfg.Verbose {
		log = logger.NewLogger(logger.NewCLIHandler(cmd.ErrOrStderr(), true))
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logger.IntoContext(ctx, log)

	if err := cfg.Validate(ctx); err != nil {
		log.Error("Error while validating the config", "error", err)
		return nil, nil, err
	}
	return ctx, cfg, nil
}

// finish prints the summary, writes the metrics file and maps failed
// assertions to ErrChecksFailed
func finish(ctx context.Context, cfg *config.Config, printer *suite.Printer, report *suite.Report, m metrics.Provider) error {
	summary := report.Summary()
	printer.Summary(summary)

	if cfg.MetricsFile != "" && m != nil {
		m.RecordSummary(summary)
		if err := m.WriteToTextfile(ctx, cfg.MetricsFile); err != nil {
			return err
		}
	}

	if !report.OK() {
		return ErrChecksFailed
	}
	return nil
}

// targetFlags declares the flags locating the service
func targetFlags(cmd *cobra.Command, d *config.Config) {
	NewFlag("target.baseUrl", "base-url").String().Bind(cmd, d.Target.BaseURL, "base url of the service under test")
	NewFlag("target.welcomeText", "welcome-text").String().Bind(cmd, d.Target.WelcomeText, "text the index page must contain")
}

// fileFlags declares the flags locating the descriptor files
func fileFlags(cmd *cobra.Command, d *config.Config) {
	NewFlag("files.nginx", "nginx-conf").String().Bind(cmd, d.Files.Nginx, "path of the web server configuration")
	NewFlag("files.compose", "compose-file").StringP("f").Bind(cmd, d.Files.Compose, "path of the compose file")
}

// probeFlags declares the flags of the accessibility check
func probeFlags(cmd *cobra.Command, d *config.Config) {
	NewFlag("probe.iterations", "iterations").Int().Bind(cmd, d.Probe.Iterations, "number of probes, at least 100 (env ITERATIONS)")
	NewFlag("probe.workers", "workers").Int().Bind(cmd, d.Probe.Workers, "number of concurrent probes")
	NewFlag("probe.seed", "seed").Uint64().Bind(cmd, d.Probe.Seed, "seed of the probe generator, 0 picks a random seed")
	NewFlag("probe.threshold", "threshold").Float64().Bind(cmd, d.Probe.Threshold, "minimum share of successful probes")
	NewFlag("probe.connectTimeout", "connect-timeout").Duration().Bind(cmd, d.Probe.ConnectTimeout, "timeout of the TCP connect of a probe")
	NewFlag("probe.timeout", "timeout").Duration().Bind(cmd, d.Probe.Timeout, "total timeout of a probe")
	NewFlag("probe.simulate", "simulate-probes").Bool().Bind(cmd, d.Probe.Simulate, "answer probes with the simulated executor instead of the network")
}

// newMetrics returns a metrics provider when a metrics file is configured
func newMetrics(cfg *config.Config) metrics.Provider {
	if cfg.MetricsFile == "" {
		return nil
	}
	return metrics.New()
}
