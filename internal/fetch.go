package internal

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tunevault/tunevault/internal/attrs"
	"github.com/tunevault/tunevault/internal/fetcher"
	"github.com/tunevault/tunevault/internal/logger"
	"github.com/tunevault/tunevault/internal/models"
	"github.com/tunevault/tunevault/internal/queue"
)

func NewFetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "fetch <manifest>",
		Short:   "Download every file a manifest lists into the music folder",
		Example: `tunevault fetch wanted.yml`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, args[0])
		},
	}
}

func runFetch(cmd *cobra.Command, manifestPath string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	manifest, err := models.LoadManifest(manifestPath)
	if err != nil {
		return err
	}
	jobs, err := manifest.Jobs(cfg.MusicFolder)
	if err != nil {
		return err
	}

	tracker := attrs.NewTracker(attrs.NewXattrStore())
	exec := fetcher.New(fetcher.NewHTTPClient(cfg.HTTPTimeout()), tracker, cfg.UserAgent)
	q := queue.New(exec, tracker, queue.Options{
		OldestFirst: cfg.DownloadOldestFirst,
		Workers:     cfg.DownloadThreads.Resolve(),
	})

	enqueued, present := 0, 0
	for _, job := range jobs {
		if q.Enqueue(job) {
			enqueued++
		} else {
			present++
		}
	}

	logger.Info("fetching %d file(s), %d already present", q.Size(), present)

	done := make(chan struct{})
	q.DispatchAll(func() { close(done) })
	<-done

	table := logger.CreateTable([]string{"Manifest entries", "Enqueued", "Already present"})
	if err := table.Append([]string{
		strconv.Itoa(len(jobs)),
		strconv.Itoa(enqueued),
		strconv.Itoa(present),
	}); err != nil {
		return err
	}
	return table.Render()
}
