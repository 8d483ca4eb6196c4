package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gmsas95/invoice-audit/internal/app"
	apperrors "github.com/gmsas95/invoice-audit/internal/errors"
	"github.com/gmsas95/invoice-audit/internal/extract"
	"github.com/gmsas95/invoice-audit/internal/ledger"
	"github.com/gmsas95/invoice-audit/internal/reconcile"
	"github.com/gmsas95/invoice-audit/internal/report"
)

type reconcileOptions struct {
	ledgerPath  string
	invoicePath string
	linesPath   string
	pages       string
	reportKind  string
	outPath     string
	asJSON      bool
}

func newReconcileCmd(flags *globalFlags) *cobra.Command {
	var opts reconcileOptions

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Reconcile an invoice against a ledger",
		Long: `Reads the ledger workbook, obtains invoice lines either by extracting the
invoice PDF (--invoice) or from a JSON file of extracted lines (--lines), and
prints the missing products and product-name mismatches.

With --report the chosen Excel report (parsed, matched or missing) is written
to --out, or to <type>-report.xlsx in the current directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.validate(); err != nil {
				return err
			}
			application, err := loadApp(flags)
			if err != nil {
				return err
			}
			defer application.Logger.Sync()

			return runReconcile(cmd.Context(), cmd.OutOrStdout(), application, opts)
		},
	}

	cmd.Flags().StringVar(&opts.ledgerPath, "ledger", "", "Ledger workbook (.xlsx)")
	cmd.Flags().StringVar(&opts.invoicePath, "invoice", "", "Invoice PDF to extract")
	cmd.Flags().StringVar(&opts.linesPath, "lines", "", "JSON file of already extracted lines")
	cmd.Flags().StringVar(&opts.pages, "pages", "", "Pages to extract, e.g. 1,3,5-7 (default all)")
	cmd.Flags().StringVar(&opts.reportKind, "report", "", "Write an Excel report: parsed, matched or missing")
	cmd.Flags().StringVarP(&opts.outPath, "out", "o", "", "Report output path")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print the full result as JSON")
	_ = cmd.MarkFlagRequired("ledger")
	cmd.MarkFlagsMutuallyExclusive("invoice", "lines")

	return cmd
}

func (o reconcileOptions) validate() error {
	if o.invoicePath == "" && o.linesPath == "" {
		return fmt.Errorf("one of --invoice or --lines is required")
	}
	if o.reportKind != "" {
		if _, err := report.ParseKind(o.reportKind); err != nil {
			return err
		}
	}
	return nil
}

func runReconcile(ctx context.Context, out io.Writer, application *app.App, opts reconcileOptions) error {
	ledgerOpts, err := application.LedgerOptions()
	if err != nil {
		return err
	}
	rows, err := ledger.ReadFile(opts.ledgerPath, ledgerOpts)
	if err != nil {
		return err
	}

	lines, err := loadLines(ctx, application, opts)
	if err != nil {
		return err
	}

	result := reconcile.NewReconciler(application.Policy()).Reconcile(lines, rows)
	application.Logger.Debug("Reconciled",
		zap.Int("invoice_lines", result.TotalInvoiceLines),
		zap.Int("ledger_rows", result.TotalLedgerRows),
		zap.Int("missing", len(result.MissingProducts)),
	)

	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else {
		printSummary(out, result)
	}

	if opts.reportKind == "" {
		return nil
	}
	return writeReport(out, result, opts)
}

func loadLines(ctx context.Context, application *app.App, opts reconcileOptions) ([]reconcile.ExtractedLine, error) {
	if opts.linesPath != "" {
		return readLines(opts.linesPath)
	}

	pages, err := extract.ParsePages(opts.pages, application.Config.Extraction.MaxPages)
	if err != nil {
		return nil, err
	}

	extractor, closeFn, err := application.NewExtractor(ctx)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	return extractor.Extract(ctx, opts.invoicePath, pages)
}

// readLines accepts either a bare array of lines or a saved result object
// with an allLines field.
func readLines(path string) ([]reconcile.ExtractedLine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeBadRequest, "failed to read lines file")
	}

	var lines []reconcile.ExtractedLine
	if err := json.Unmarshal(data, &lines); err != nil {
		var saved reconcile.Result
		if err := json.Unmarshal(data, &saved); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeBadRequest, "lines file is not valid JSON")
		}
		lines = saved.AllLines
	}

	if err := extract.SanitizeLines(lines); err != nil {
		return nil, err
	}
	return lines, nil
}

func writeReport(out io.Writer, result reconcile.Result, opts reconcileOptions) error {
	kind, err := report.ParseKind(opts.reportKind)
	if err != nil {
		return err
	}

	path := opts.outPath
	if path == "" {
		path = kind.Filename()
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	if err := report.Write(f, result, kind); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nReport written to %s\n", path)
	return nil
}

func printSummary(out io.Writer, result reconcile.Result) {
	fmt.Fprintf(out, "Invoice lines:   %d\n", result.TotalInvoiceLines)
	fmt.Fprintf(out, "Ledger rows:     %d\n", result.TotalLedgerRows)
	fmt.Fprintf(out, "Missing:         %d\n", len(result.MissingProducts))
	fmt.Fprintf(out, "Name mismatches: %d\n", len(result.NameMismatches))

	if len(result.MissingProducts) > 0 {
		fmt.Fprintln(out, "\nMissing products:")
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "  PAGE\tVNO\tPRODUCT\tMISMATCHED")
		for _, mp := range result.MissingProducts {
			fmt.Fprintf(tw, "  %d\t%s\t%s\t%s\n",
				mp.Line.PageNumber,
				mp.Line.InvoiceNumber,
				mp.Line.ProductName,
				strings.Join(mp.MismatchedFields.Names(), ", "),
			)
		}
		tw.Flush()
	}

	if len(result.NameMismatches) > 0 {
		fmt.Fprintln(out, "\nProduct name mismatches:")
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "  PAGE\tVNO\tINVOICE\tLEDGER")
		for _, nm := range result.NameMismatches {
			fmt.Fprintf(tw, "  %d\t%s\t%s\t%s\n",
				nm.PageNumber, nm.InvoiceNumber, nm.InvoiceProductName, nm.LedgerProductName)
		}
		tw.Flush()
	}
}
