// Package queue schedules downloads: it deduplicates jobs, keeps the waiting
// set ordered by expected modification time, and dispatches to a bounded
// worker pool. One mutex guards the waiting/active collections and the pool
// counters; it is never held across blocking I/O.
package queue

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/tunevault/tunevault/internal/logger"
	"github.com/tunevault/tunevault/internal/models"
	"github.com/tunevault/tunevault/internal/utils"
)

const defaultIdleGrace = 30 * time.Second

// Executor performs one fetch and atomic materialization.
type Executor interface {
	Execute(ctx context.Context, d *models.Download) error
}

// Freshness refreshes the last_used slot of files that already exist.
type Freshness interface {
	UpdateLastUsed(path string, onlyIfExists bool)
}

type Options struct {
	// OldestFirst dispatches jobs with the oldest expected modification
	// time first; otherwise newest first.
	OldestFirst bool

	// Workers bounds the pool. Zero or negative means one worker per
	// available execution unit.
	Workers int

	// IdleGrace is how long a worker stays parked before it is reclaimed.
	IdleGrace time.Duration
}

type Queue struct {
	exec    Executor
	tracker Freshness

	oldestFirst bool
	maxWorkers  int
	idleGrace   time.Duration

	mu      sync.Mutex
	waiting []*models.Download
	active  map[models.Key]*models.Download
	pending []*models.Download
	drains  []func()
	workers int
	wake    chan struct{}
}

func New(exec Executor, tracker Freshness, opts Options) *Queue {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	grace := opts.IdleGrace
	if grace <= 0 {
		grace = defaultIdleGrace
	}

	return &Queue{
		exec:        exec,
		tracker:     tracker,
		oldestFirst: opts.OldestFirst,
		maxWorkers:  workers,
		idleGrace:   grace,
		active:      make(map[models.Key]*models.Download),
		wake:        make(chan struct{}, workers),
	}
}

// Enqueue accepts a job unless its destination already exists on disk. An
// existing destination returns false and adds nothing, but still refreshes
// the file's last_used slot — a deliberate exception to "no work for done
// jobs", so an already-present file is never later flagged stale. A job
// already waiting or active returns true without adding a duplicate.
func (q *Queue) Enqueue(d *models.Download) bool {
	if exists, err := utils.FileExists(d.Destination); err == nil && exists {
		logger.Debug("skipping %s, already on disk (job %s)", d.Destination, d.ID)
		q.tracker.UpdateLastUsed(d.Destination, false)
		return false
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	key := d.Key()
	if _, ok := q.active[key]; ok {
		return true
	}
	for _, waiting := range q.waiting {
		if waiting.Key() == key {
			return true
		}
	}

	q.waiting = append(q.waiting, d)
	sort.SliceStable(q.waiting, func(i, j int) bool {
		if q.oldestFirst {
			return q.waiting[i].LastModified.Before(q.waiting[j].LastModified)
		}
		return q.waiting[i].LastModified.After(q.waiting[j].LastModified)
	})
	return true
}

// Size is the number of waiting jobs.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiting)
}

func (q *Queue) ActiveCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.active)
}

// DispatchAll moves every waiting job to the active set and hands them to
// the pool in order. onDrained, when given, fires exactly once: inline
// before returning if the active set is already empty, otherwise from
// whichever worker empties it.
func (q *Queue) DispatchAll(onDrained func()) {
	q.mu.Lock()

	batch := q.waiting
	q.waiting = nil
	for _, d := range batch {
		q.active[d.Key()] = d
	}
	q.pending = append(q.pending, batch...)

	if len(q.active) == 0 {
		q.mu.Unlock()
		if onDrained != nil {
			onDrained()
		}
		return
	}

	if onDrained != nil {
		q.drains = append(q.drains, onDrained)
	}
	if len(batch) > 0 {
		logger.Debug("dispatching %d job(s) on up to %d worker(s)", len(batch), q.maxWorkers)
	}

	spawn := len(q.pending)
	if max := q.maxWorkers - q.workers; spawn > max {
		spawn = max
	}
	for i := 0; i < spawn; i++ {
		q.workers++
		go q.worker()
	}
	wakes := len(batch)
	q.mu.Unlock()

	for i := 0; i < wakes; i++ {
		select {
		case q.wake <- struct{}{}:
		default:
		}
	}
}

// worker drains the pending backlog, then parks. Parked workers are
// reclaimed after the idle grace period.
func (q *Queue) worker() {
	idle := time.NewTimer(q.idleGrace)
	defer idle.Stop()

	for {
		for {
			d := q.takePending()
			if d == nil {
				break
			}
			q.run(d)
		}

		if !idle.Stop() {
			select {
			case <-idle.C:
			default:
			}
		}
		idle.Reset(q.idleGrace)

		select {
		case <-q.wake:
		case <-idle.C:
			q.mu.Lock()
			if len(q.pending) > 0 {
				q.mu.Unlock()
				continue
			}
			q.workers--
			q.mu.Unlock()
			return
		}
	}
}

func (q *Queue) takePending() *models.Download {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil
	}
	d := q.pending[0]
	q.pending = q.pending[1:]
	return d
}

// run executes one job outside the lock. Failures are logged and abandoned;
// re-submission is the collaborator's responsibility.
func (q *Queue) run(d *models.Download) {
	if err := q.exec.Execute(context.Background(), d); err != nil {
		logger.LogError("download failed for %s (job %s): %v", d.Destination, d.ID, err)
	}

	q.mu.Lock()
	delete(q.active, d.Key())
	var fire []func()
	if len(q.active) == 0 {
		fire = q.drains
		q.drains = nil
	}
	q.mu.Unlock()

	for _, cb := range fire {
		cb()
	}
}
