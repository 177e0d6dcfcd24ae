package attrs

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/tunevault/tunevault/internal/logger"
	"github.com/tunevault/tunevault/internal/watch"
)

const (
	// Timestamps round-trip at second precision.
	timeLayout = time.RFC3339

	watchDelimiter = "\n"

	lockTimeout = 2 * time.Second
	lockRetry   = 50 * time.Millisecond
)

// Tracker is the façade over the three attribute slots recording "last
// useful" signals. Every update swallows and logs its errors: attribute
// bookkeeping must never abort the caller's primary operation.
type Tracker struct {
	store Store

	// Serializes watch-list read-modify-writes inside this process; the
	// cross-process flock below is best-effort only.
	watchMu sync.Mutex
}

func NewTracker(store Store) *Tracker {
	return &Tracker{store: store}
}

// UpdateLastUsed stamps the last_used slot with the current time. With
// onlyIfExists set, a file that never had the slot is left untouched — it is
// not ours to track.
func (t *Tracker) UpdateLastUsed(path string, onlyIfExists bool) {
	if onlyIfExists {
		ok, err := t.store.Exists(path, SlotLastUsed)
		if err != nil {
			logger.Warn("failed to check last_used on %s: %v", path, err)
			return
		}
		if !ok {
			return
		}
	}
	if err := t.store.Set(path, SlotLastUsed, formatTime(time.Now())); err != nil {
		logger.Warn("failed to update last_used on %s: %v", path, err)
	}
}

// UpdateRSSLastRequested stamps the directory-scoped rss_last_requested slot.
func (t *Tracker) UpdateRSSLastRequested(dir string) {
	if err := t.store.Set(dir, SlotRSSLastRequested, formatTime(time.Now())); err != nil {
		logger.Warn("failed to update rss_last_requested on %s: %v", dir, err)
	}
}

// AppendWatch adds w to the file's watch list unless already present. The
// read-modify-write is guarded by an in-process critical section plus an
// advisory cross-process file lock; if the lock cannot be taken in time the
// write is lost for this attempt, never corrupted.
func (t *Tracker) AppendWatch(path string, w watch.Watch) {
	t.watchMu.Lock()
	defer t.watchMu.Unlock()

	fl := flock.New(path)
	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()

	locked, err := fl.TryLockContext(ctx, lockRetry)
	if err != nil || !locked {
		logger.Warn("could not lock %s to record watch %s, skipping: %v", path, w, err)
		return
	}
	defer func() {
		if err := fl.Unlock(); err != nil {
			logger.Warn("failed to unlock %s: %v", path, err)
		}
	}()

	watches := t.Watches(path)
	for _, existing := range watches {
		if existing == w {
			return
		}
	}
	watches = append(watches, w)

	entries := make([]string, 0, len(watches))
	for _, entry := range watches {
		entries = append(entries, entry.String())
	}
	if err := t.store.Set(path, SlotWatches, strings.Join(entries, watchDelimiter)); err != nil {
		logger.Warn("failed to record watch %s on %s: %v", w, path, err)
	}
}

// HasLastUsed reports whether the file carries a last_used slot at all;
// files without one were not materialized by us.
func (t *Tracker) HasLastUsed(path string) bool {
	ok, err := t.store.Exists(path, SlotLastUsed)
	if err != nil {
		logger.Warn("failed to check last_used on %s: %v", path, err)
		return false
	}
	return ok
}

// LastUsed reads the last_used timestamp; ok is false when the slot is
// absent or unreadable.
func (t *Tracker) LastUsed(path string) (time.Time, bool) {
	return t.readTime(path, SlotLastUsed)
}

// RSSLastRequested reads the directory-scoped feed activity timestamp.
func (t *Tracker) RSSLastRequested(dir string) (time.Time, bool) {
	return t.readTime(dir, SlotRSSLastRequested)
}

// Watches reads the file's watch list. Corrupt entries are skipped
// individually: one bad entry never hides the rest.
func (t *Tracker) Watches(path string) []watch.Watch {
	raw, err := t.store.Get(path, SlotWatches)
	if err != nil {
		if !errors.Is(err, ErrNotSet) {
			logger.Warn("failed to read watches on %s: %v", path, err)
		}
		return nil
	}

	var watches []watch.Watch
	for _, entry := range strings.Split(raw, watchDelimiter) {
		if strings.TrimSpace(entry) == "" {
			continue
		}
		w, err := watch.Parse(entry)
		if err != nil {
			logger.Warn("skipping corrupt watch entry on %s: %v", path, err)
			continue
		}
		watches = append(watches, w)
	}
	return watches
}

func (t *Tracker) readTime(path, name string) (time.Time, bool) {
	raw, err := t.store.Get(path, name)
	if err != nil {
		if !errors.Is(err, ErrNotSet) {
			logger.Warn("failed to read %s on %s: %v", name, path, err)
		}
		return time.Time{}, false
	}
	ts, err := time.Parse(timeLayout, raw)
	if err != nil {
		logger.Warn("malformed %s on %s: %v", name, path, err)
		return time.Time{}, false
	}
	return ts, true
}

func formatTime(ts time.Time) string {
	return ts.UTC().Truncate(time.Second).Format(timeLayout)
}
