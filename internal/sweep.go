package internal

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tunevault/tunevault/internal/attrs"
	"github.com/tunevault/tunevault/internal/logger"
	"github.com/tunevault/tunevault/internal/sweeper"
	"github.com/tunevault/tunevault/internal/trash"
	"github.com/tunevault/tunevault/internal/watch"
)

func NewSweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Reclaim music files no recorded signal still wants",
		Example: `tunevault sweep --dry-run
tunevault sweep --daemon`,
		Args: cobra.NoArgs,
		RunE: runSweep,
	}
	cmd.Flags().Bool("dry-run", false, "Report decisions without reclaiming anything")
	cmd.Flags().Bool("daemon", false, "Keep sweeping on the configured interval until interrupted")
	return cmd
}

func runSweep(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if !cfg.StaleSweepEnabled() {
		return fmt.Errorf("sweeping is disabled (remove_stale_music_files_after_days is 0)")
	}

	watches, err := cfg.ActiveWatches()
	if err != nil {
		return err
	}

	sw := sweeper.New(
		attrs.NewTracker(attrs.NewXattrStore()),
		watch.NewStaticRegistry(watches),
		trash.Probe(nil),
		sweeper.Options{
			Root:                 cfg.MusicFolder,
			StaleAfterDays:       cfg.RemoveStaleMusicFilesAfterDays,
			WatchIntervalMinutes: cfg.WatchIntervalMinutes,
		},
	)

	if daemon, _ := cmd.Flags().GetBool("daemon"); daemon {
		if !sw.Start(cfg.SweepInitialDelay(), cfg.SweepPeriod()) {
			return fmt.Errorf("failed to schedule sweeps")
		}
		logger.Info("sweeping %s every %s, press Ctrl-C to stop", cfg.MusicFolder, cfg.SweepPeriod())

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		sw.Stop()
		return nil
	}

	if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
		report := sw.Plan(cmd.Context())
		table := logger.CreateTable([]string{"File", "Decision"})
		for _, res := range report.Results {
			verdict := "keep (" + res.Decision.String() + ")"
			if res.Decision.Stale() {
				verdict = "reclaim (" + res.Decision.String() + ")"
			}
			if err := table.Append([]string{res.Path, verdict}); err != nil {
				return err
			}
		}
		return table.Render()
	}

	report := sw.Sweep(cmd.Context())
	logger.Success("sweep complete: %d file(s) inspected, %d reclaimed",
		len(report.Results), report.Reclaimed)
	return nil
}
