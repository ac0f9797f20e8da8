package jobs

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cozy-creator/influencer-studio/internal/app"
	"github.com/cozy-creator/influencer-studio/internal/config"
	"github.com/cozy-creator/influencer-studio/internal/services/orchestrator"
	"github.com/cozy-creator/influencer-studio/internal/services/providers"
)

var Cmd = &cobra.Command{
	Use:   "jobs",
	Short: "Job maintenance",
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Fail in-flight jobs of every user that have not moved for --older-than",
	RunE:  runSweep,
}

func init() {
	sweepCmd.Flags().Duration("older-than", time.Hour, "Age after which a pending or processing job counts as stale")
	Cmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, _ []string) error {
	olderThan, err := cmd.Flags().GetDuration("older-than")
	if err != nil {
		return err
	}
	if olderThan <= 0 {
		return fmt.Errorf("--older-than must be positive")
	}

	cfg := config.MustGetConfig()
	a, err := app.NewApp(cfg, app.WithDBConnection(), app.WithFileUploader())
	if err != nil {
		return err
	}
	defer a.Close()

	// Sweeping needs only the store; no provider is ever called.
	orch, err := orchestrator.New(orchestrator.Options{
		Store:     a.Store(),
		Providers: providers.NewRegistry(),
		Rehoster:  a.Uploader(),
		Logger:    a.Logger.Named("sweep"),
		Jobs:      cfg.Jobs,
	})
	if err != nil {
		return err
	}

	result, err := orch.SweepOlderThan(cmd.Context(), "", olderThan)
	if err != nil {
		return err
	}

	fmt.Printf("swept %d stale and %d never-submitted jobs\n", result.Stale, result.NeverSubmitted)
	return nil
}
