package cmd

import (
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/caas-team/sitecheck/internal/logger"
	"github.com/caas-team/sitecheck/pkg/config"
	"github.com/caas-team/sitecheck/pkg/suite"
	"github.com/caas-team/sitecheck/pkg/validate"
)

// NewCmdValidate creates a new validate command
func NewCmdValidate() *cobra.Command {
	d := config.Default()
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the web server and compose configuration",
		Long:  `Checks the nginx configuration and the compose file for the required directives without starting anything`,
		Args:  cobra.NoArgs,
		RunE:  runValidate(afero.NewOsFs()),
	}

	fileFlags(cmd, d)
	NewFlag("files.strict", "strict").Bool().Bind(cmd, d.Files.Strict, "additionally check the parsed compose service")
	NewFlag("runtime.service", "service").String().Bind(cmd, d.Runtime.Service, "compose service to check in strict mode")
	return cmd
}

// runValidate is the entry point of the validate command
func runValidate(fsys afero.Fs) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		ctx, cfg, err := setup(cmd)
		if err != nil {
			return err
		}
		log := logger.FromContext(ctx)

		printer := suite.NewPrinter(cmd.OutOrStdout())
		printer.Section("Configuration")

		opts := []validate.Option{}
		if cfg.Files.Strict {
			opts = append(opts, validate.WithDescriptorRules(cfg.Runtime.Service, validate.DefaultDescriptorRules()...))
		}
		v := validate.New(fsys, map[string]string{
			validate.Nginx:   cfg.Files.Nginx,
			validate.Compose: cfg.Files.Compose,
		}, opts...)

		results, err := v.Run(ctx)
		if err != nil {
			log.Error("Validation aborted", "error", err)
			return err
		}

		report := suite.NewReport(printer.Observer())
		report.Merge(results)
		return finish(ctx, cfg, printer, report, newMetrics(cfg))
	}
}
