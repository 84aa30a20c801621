package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aimd54/engagement-engine/internal/app"
	"github.com/aimd54/engagement-engine/internal/service/tracker"
)

func init() {
	rootCmd.AddCommand(pruneCmd)
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete analytics records older than the retention window",
	RunE:  runPrune,
}

func runPrune(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	st, err := app.OpenStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	before, err := st.Records.Count(ctx)
	if err != nil {
		return err
	}

	// Constructing the tracker applies the retention window.
	tracker.NewService(ctx, st.Records, st.KV, cfg.Analytics, log)

	after, err := st.Records.Count(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d records older than %d months (%d remaining)\n",
		before-after, cfg.Analytics.RetentionMonths, after)
	return nil
}
