// Package sweeper periodically walks the music folder and reclaims files no
// recorded signal still wants. Decisions combine the per-file attribute
// slots with the active-watch registry and directory-level feed activity.
package sweeper

import (
	"context"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/tunevault/tunevault/internal/logger"
	"github.com/tunevault/tunevault/internal/watch"
)

const minutesPerDay = 24 * 60

// Freshness reads the attribute slots recorded by the tracker.
type Freshness interface {
	LastUsed(path string) (time.Time, bool)
	Watches(path string) []watch.Watch
	RSSLastRequested(dir string) (time.Time, bool)
}

// Discarder reclaims one file; already-absent counts as success.
type Discarder interface {
	Discard(path string) error
}

type State int

const (
	Idle State = iota
	Scheduled
	Sweeping
)

type Decision int

const (
	// KeepUntracked: no last_used slot, the file was never materialized
	// by us and is not ours to reclaim.
	KeepUntracked Decision = iota
	// KeepFresh: last_used is newer than the staleness threshold.
	KeepFresh
	// KeepQuietFeed: the feed itself saw no client activity since the
	// threshold, so reclaiming would only force a future re-fetch.
	KeepQuietFeed
	// StaleDropped: the file belongs to a watch that is still active, so
	// it must have dropped out of that watch's listing.
	StaleDropped
	// StaleUnused: old, unwatched, and the feed is being requested.
	StaleUnused
)

func (d Decision) Stale() bool {
	return d == StaleDropped || d == StaleUnused
}

func (d Decision) String() string {
	switch d {
	case KeepUntracked:
		return "untracked"
	case KeepFresh:
		return "fresh"
	case KeepQuietFeed:
		return "quiet feed"
	case StaleDropped:
		return "dropped from active watch"
	case StaleUnused:
		return "unused"
	default:
		return "unknown"
	}
}

type Result struct {
	Path     string
	Decision Decision
	Err      error
}

type Report struct {
	Threshold time.Time
	Results   []Result
	Reclaimed int
}

type Options struct {
	Root                 string
	StaleAfterDays       int
	WatchIntervalMinutes int
}

type Sweeper struct {
	tracker  Freshness
	registry watch.Registry
	bin      Discarder
	opts     Options

	mu    sync.Mutex
	state State
	stop  chan struct{}
}

func New(tracker Freshness, registry watch.Registry, bin Discarder, opts Options) *Sweeper {
	return &Sweeper{
		tracker:  tracker,
		registry: registry,
		bin:      bin,
		opts:     opts,
	}
}

// EffectiveStaleAfterDays is the configured retention, raised — never
// lowered — to cover at least one watch-polling interval when any watch is
// active, so files are never reclaimed between two watch cycles.
func (s *Sweeper) EffectiveStaleAfterDays() int {
	days := s.opts.StaleAfterDays
	if s.registry.WatchingAnything() {
		minDays := (s.opts.WatchIntervalMinutes + minutesPerDay - 1) / minutesPerDay
		if days < minDays {
			days = minDays
		}
	}
	return days
}

// Start schedules periodic sweeps. It reports false without doing anything
// when sweeping is disabled by configuration or already scheduled.
func (s *Sweeper) Start(initialDelay, period time.Duration) bool {
	if s.opts.StaleAfterDays <= 0 {
		logger.Debug("stale sweep disabled by configuration")
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Idle {
		return false
	}
	s.state = Scheduled
	s.stop = make(chan struct{})
	go s.loop(initialDelay, period, s.stop)
	return true
}

// Stop cancels future sweeps. A sweep already underway always finishes; no
// file is ever abandoned mid-decision.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop == nil {
		return
	}
	close(s.stop)
	s.stop = nil
}

func (s *Sweeper) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Sweeper) loop(initialDelay, period time.Duration, stop chan struct{}) {
	timer := time.NewTimer(initialDelay)
	defer timer.Stop()

	for {
		select {
		case <-stop:
			s.setState(Idle)
			return
		case <-timer.C:
		}

		s.setState(Sweeping)
		report := s.Sweep(context.Background())
		logger.Info("sweep complete: %d file(s) inspected, %d reclaimed",
			len(report.Results), report.Reclaimed)

		select {
		case <-stop:
			s.setState(Idle)
			return
		default:
		}
		s.setState(Scheduled)
		timer.Reset(period)
	}
}

func (s *Sweeper) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Sweep walks the tree once and reclaims every stale file. One file's error
// is logged without aborting the rest.
func (s *Sweeper) Sweep(ctx context.Context) *Report {
	return s.sweep(ctx, false)
}

// Plan is Sweep without the reclamation, for dry runs.
func (s *Sweeper) Plan(ctx context.Context) *Report {
	return s.sweep(ctx, true)
}

func (s *Sweeper) sweep(ctx context.Context, dryRun bool) *Report {
	threshold := time.Now().Add(-time.Duration(s.EffectiveStaleAfterDays()) * 24 * time.Hour)
	report := &Report{Threshold: threshold}

	err := filepath.WalkDir(s.opts.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn("sweep cannot visit %s: %v", path, err)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !d.Type().IsRegular() {
			return nil
		}

		res := Result{Path: path, Decision: s.evaluate(path, threshold)}
		if res.Decision.Stale() {
			logger.Info("stale: %s (%s)", path, res.Decision)
			if !dryRun {
				if err := s.bin.Discard(path); err != nil {
					logger.LogError("failed to reclaim %s: %v", path, err)
					res.Err = err
				} else {
					report.Reclaimed++
					logger.Success("reclaimed %s", path)
				}
			}
		} else {
			logger.Debug("keep: %s (%s)", path, res.Decision)
		}
		report.Results = append(report.Results, res)
		return nil
	})
	if err != nil {
		logger.LogError("sweep aborted: %v", err)
	}
	return report
}

func (s *Sweeper) evaluate(path string, threshold time.Time) Decision {
	lastUsed, ok := s.tracker.LastUsed(path)
	if !ok {
		return KeepUntracked
	}
	if lastUsed.After(threshold) {
		return KeepFresh
	}

	if watches := s.tracker.Watches(path); len(watches) > 0 && s.registry.WatchingAnyOf(watches) {
		return StaleDropped
	}

	if rss, ok := s.tracker.RSSLastRequested(filepath.Dir(path)); !ok || !rss.After(threshold) {
		return KeepQuietFeed
	}
	return StaleUnused
}
