package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tunevault/tunevault/internal/watch"
)

// Download describes one file to materialize locally. It is immutable after
// construction: built by a collaborator, consumed exactly once by a worker,
// then discarded.
type Download struct {
	// ID correlates log lines for one job. It is not part of the identity.
	ID string

	RemoteURL    string
	Length       int64
	LastModified time.Time
	Destination  string

	// Watch is the subscription this download belongs to, if any.
	Watch *watch.Watch
}

// Key is the dedup identity of a Download. The remote URL is deliberately
// excluded: the same destination may be reached through different transient
// signed URLs. The owning watch is excluded for the same reason.
type Key struct {
	Length       int64
	LastModified int64
	Destination  string
}

func NewDownload(remoteURL string, length int64, lastModified time.Time, destination string, w *watch.Watch) *Download {
	return &Download{
		ID:           uuid.NewString(),
		RemoteURL:    remoteURL,
		Length:       length,
		LastModified: lastModified,
		Destination:  destination,
		Watch:        w,
	}
}

func (d *Download) Key() Key {
	return Key{
		Length:       d.Length,
		LastModified: d.LastModified.Unix(),
		Destination:  d.Destination,
	}
}
