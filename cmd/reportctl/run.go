package main

import (
	"errors"
	"fmt"
	"time"

	"order-analytics/config"
	"order-analytics/internal/analytics"
	"order-analytics/internal/export"
	"order-analytics/internal/service"
	"order-analytics/internal/store"
	"order-analytics/internal/util"

	"github.com/spf13/cobra"
)

const allReports = "all"

var runCmd = &cobra.Command{
	Use:   "run <report>|all",
	Short: "Compute one report, or every report with 'all'",
	Long: `Compute a report over the current database snapshot.

Without --output the result is written to stdout. With --output each report is
written to <output>/<report>_<YYYYMMDD_HHMMSS>.<format>.`,
	Args: cobra.ExactArgs(1),
	RunE: runReports,
}

type runOptions struct {
	asOf   string
	format string
	output string
}

var runFlags runOptions

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the database snapshot for malformed records",
	Args:  cobra.NoArgs,
	RunE:  runValidate,
}

func init() {
	runCmd.Flags().StringVar(&runFlags.asOf, "as-of", "", "Evaluation date YYYY-MM-DD (defaults to REPORT_AS_OF, then today)")
	runCmd.Flags().StringVarP(&runFlags.format, "format", "f", export.FormatJSON, "Output format (json or csv)")
	runCmd.Flags().StringVarP(&runFlags.output, "output", "o", "", "Output folder (defaults to stdout)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
}

func runReports(cmd *cobra.Command, args []string) error {
	name := args[0]
	format, err := export.ParseFormat(runFlags.format)
	if err != nil {
		return err
	}
	if name == allReports && format == export.FormatCSV && runFlags.output == "" {
		return errors.New("csv output of all reports needs --output")
	}

	cfg, db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	svc := service.NewReportService(db, nil, nil, nil, cfg.Reports)
	asOf, err := svc.ResolveAsOf(runFlags.asOf)
	if err != nil {
		return err
	}

	var reports []*service.Report
	if name == allReports {
		reports, err = svc.RunAll(cmd.Context(), asOf)
	} else {
		var report *service.Report
		report, err = svc.Run(cmd.Context(), name, asOf)
		reports = []*service.Report{report}
	}
	if err != nil {
		return err
	}

	now := time.Now()
	for _, r := range reports {
		if runFlags.output == "" {
			if err := export.WriteReport(cmd.OutOrStdout(), format, r.Result); err != nil {
				return err
			}
			continue
		}

		filename := export.TimestampedFilename(runFlags.output, r.Report, format, now)
		if err := export.ExportFile(filename, format, r.Result); err != nil {
			return fmt.Errorf("export %s: %w", r.Report, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported %s (%d rows) to %s\n", r.Report, r.RowCount, filename)
	}
	return nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	_, db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	snap, err := db.LoadSnapshot(cmd.Context())
	if err != nil {
		return err
	}

	var verr *analytics.ValidationError
	if err := analytics.Validate(snap); errors.As(err, &verr) {
		for _, issue := range verr.Issues {
			fmt.Fprintln(cmd.OutOrStdout(), issue)
		}
		return fmt.Errorf("snapshot has %d issue(s)", len(verr.Issues))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Snapshot OK: %d orders, %d customers, %d products, %d campaigns\n",
		len(snap.Orders), len(snap.Customers), len(snap.Products), len(snap.Campaigns))
	return nil
}

func openStore() (*config.Config, *store.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if err := util.InitLogger(cfg.Server.Env, rootFlags.logLevel); err != nil {
		return nil, nil, err
	}

	db, err := store.NewStore(cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return cfg, db, nil
}
