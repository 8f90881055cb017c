package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"order-analytics/internal/analytics"
	"order-analytics/internal/util"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "reportctl",
	Short: "Compute order analytics reports from the command line",
	Long: `reportctl loads a snapshot of orders, customers, products and marketing
campaigns from the configured database and computes analytics reports over it.

The database is configured the same way as the server (DB_DRIVER, DATABASE_URL,
REPORT_AS_OF, CONFIG_FILE or a .env file).`,
	SilenceUsage: true,
}

var rootFlags struct {
	logLevel string
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available reports",
	Args:  cobra.NoArgs,
	Run:   runList,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootFlags.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tAS-OF\tDESCRIPTION")
	for _, d := range analytics.Definitions() {
		asOf := "-"
		if d.UsesAsOf {
			asOf = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", d.Name, asOf, d.Description)
	}
	w.Flush()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	util.SyncLogger()
	if err != nil {
		os.Exit(1)
	}
}
