package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aimd54/engagement-engine/internal/app"
	"github.com/aimd54/engagement-engine/internal/service/analytics"
	"github.com/aimd54/engagement-engine/internal/service/report"
)

func init() {
	reportCmd.Flags().StringVarP(&reportPeriod, "period", "p", report.DefaultPeriod, "Report period (1d, 7d, 30d, 90d, all)")
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", "json", "Output format (json, csv)")
	rootCmd.AddCommand(reportCmd)
}

var (
	reportPeriod string
	reportFormat string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print an analytics report",
	Example: `  engagement report --period 30d
  engagement report --period all --format csv > report.csv`,
	RunE: runReport,
}

func runReport(cmd *cobra.Command, args []string) error {
	if reportFormat != "json" && reportFormat != "csv" {
		return fmt.Errorf("unsupported format %q (valid: json, csv)", reportFormat)
	}
	if err := report.ValidatePeriod(reportPeriod); err != nil {
		return err
	}

	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := app.New(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	r, err := a.Reports.Generate(cmd.Context(), reportPeriod)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if reportFormat == "csv" {
		_, err = fmt.Fprint(out, analytics.ExportToCSV(r))
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
