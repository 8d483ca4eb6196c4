// Package cli defines the invoice-audit command tree.
package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gmsas95/invoice-audit/internal/app"
	"github.com/gmsas95/invoice-audit/internal/config"
	"github.com/gmsas95/invoice-audit/internal/extract"
)

var Version = "dev"

type globalFlags struct {
	configPath string
	dataDir    string
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	var flags globalFlags

	root := &cobra.Command{
		Use:   "invoice-audit",
		Short: "Reconcile scanned GST invoices against a ledger spreadsheet",
		Long: `invoice-audit reads product lines off a scanned invoice PDF with a vision
model and checks every line against the rows of an accounting ledger (.xlsx).

Examples:
  invoice-audit serve
  invoice-audit reconcile --ledger sales.xlsx --invoice invoice.pdf --pages 1-3
  invoice-audit reconcile --ledger sales.xlsx --lines lines.json --report missing`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "Path to config file")
	root.PersistentFlags().StringVar(&flags.dataDir, "data", "", "Path to data directory")

	root.AddCommand(
		newServeCmd(&flags),
		newReconcileCmd(&flags),
		newPagesCmd(),
		newVersionCmd(),
	)
	return root
}

// loadApp reads .env files and the config, and builds the App.
func loadApp(flags *globalFlags) (*app.App, error) {
	envFiles, err := config.LoadEnvFiles(flags.dataDir)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(flags.configPath, flags.dataDir)
	if err != nil {
		return nil, err
	}

	logger, err := app.NewLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if len(envFiles) > 0 {
		logger.Debug("Loaded env files", zap.Strings("files", envFiles))
	}
	return app.New(cfg, logger, Version), nil
}

func newServeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := loadApp(flags)
			if err != nil {
				return err
			}
			defer application.Logger.Sync()

			application.Logger.Info("Starting invoice-audit",
				zap.String("version", Version),
				zap.String("environment", application.Config.Environment),
			)
			return application.RunServer()
		},
	}
}

func newPagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pages <invoice.pdf>",
		Short: "Print the page count and estimated extraction time of a PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := extract.CountPages(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pages:     %d\n", count)
			fmt.Fprintf(cmd.OutOrStdout(), "Estimated: %.1fs\n", extract.EstimateSeconds(count))
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display the application version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "invoice-audit %s (%s)\n", Version, runtime.Version())
		},
	}
}
