package cmd

import (
	"github.com/spf13/cobra"

	"github.com/caas-team/sitecheck/internal/logger"
	"github.com/caas-team/sitecheck/pkg/config"
	"github.com/caas-team/sitecheck/pkg/sitesim"
	"github.com/caas-team/sitecheck/web"
)

// NewCmdServe creates a new serve command
func NewCmdServe() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the site in process",
		Long:  `Serves the embedded site with the headers of the web server configuration until interrupted`,
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	NewFlag("serve.address", "address").String().Bind(cmd, config.Default().Serve.Address, "address the site is served on")
	return cmd
}

// runServe is the entry point of the serve command
func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cfg, err := setup(cmd)
	if err != nil {
		return err
	}
	log := logger.FromContext(ctx)

	addr := cfg.Serve.Address
	log.Info("Running site server", "addr", addr)
	if err := sitesim.New(ctx, web.Site()).Run(ctx, addr); err != nil {
		log.Error("Site server failed", "error", err)
		return err
	}
	return nil
}
