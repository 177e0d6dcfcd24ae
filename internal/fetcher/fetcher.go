// Package fetcher materializes one download: exact remote bytes and
// modification time at the destination, or the destination untouched on
// failure. Writes go through a sibling .part file renamed into place, so a
// crash never leaves a half-written destination.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/tunevault/tunevault/internal/logger"
	"github.com/tunevault/tunevault/internal/models"
	"github.com/tunevault/tunevault/internal/utils"
	"github.com/tunevault/tunevault/internal/watch"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type DefaultHTTPClient struct{ *http.Client }

// NewHTTPClient builds a client with the externally configured timeout.
// Redirects are followed by the default policy.
func NewHTTPClient(timeout time.Duration) *DefaultHTTPClient {
	return &DefaultHTTPClient{Client: &http.Client{Timeout: timeout}}
}

// Freshness receives the attribute updates stamped after a successful
// materialization.
type Freshness interface {
	UpdateLastUsed(path string, onlyIfExists bool)
	AppendWatch(path string, w watch.Watch)
}

type Fetcher struct {
	client    HTTPClient
	tracker   Freshness
	userAgent string
}

func New(client HTTPClient, tracker Freshness, userAgent string) *Fetcher {
	return &Fetcher{
		client:    client,
		tracker:   tracker,
		userAgent: userAgent,
	}
}

// Execute fetches one job. On any failure the destination is left untouched
// and the error is returned for the scheduler to log; there is no retry.
func (f *Fetcher) Execute(ctx context.Context, d *models.Download) error {
	logger.Info("downloading %s → %s (job %s, %s expected)",
		d.RemoteURL, d.Destination, d.ID, utils.HumanSize(d.Length))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.RemoteURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	if origin := originOf(d.RemoteURL); origin != "" {
		req.Header.Set("Referer", origin)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("connect %s: %w", d.RemoteURL, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Failure path: drop the connection without draining.
		utils.Try(resp.Body.Close)
		return fmt.Errorf("unexpected status %d for %s", resp.StatusCode, d.RemoteURL)
	}
	defer utils.Try(resp.Body.Close)

	if err := os.MkdirAll(filepath.Dir(d.Destination), 0o755); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}

	part := d.Destination + ".part"
	if err := f.writePart(part, resp.Body, d.Length); err != nil {
		return fmt.Errorf("write %s: %w", part, err)
	}

	if err := os.Chtimes(part, d.LastModified, d.LastModified); err != nil {
		_ = os.Remove(part)
		return fmt.Errorf("set modification time on %s: %w", part, err)
	}

	if err := replace(part, d.Destination); err != nil {
		_ = os.Remove(part)
		return fmt.Errorf("move %s into place: %w", part, err)
	}

	// Attributes are stamped only once the destination exists; the tracker
	// logs its own failures and never fails the job.
	f.tracker.UpdateLastUsed(d.Destination, false)
	if d.Watch != nil {
		f.tracker.AppendWatch(d.Destination, *d.Watch)
	}

	logger.Success("downloaded %s (job %s)", d.Destination, d.ID)
	return nil
}

// writePart streams body into a fresh part file. Any pre-existing part file
// is removed outright first — a symlink there is never written through. The
// file is synced every time cumulative progress crosses another 1% of the
// expected length.
func (f *Fetcher) writePart(part string, body io.Reader, expected int64) error {
	if _, err := os.Lstat(part); err == nil {
		if err := os.Remove(part); err != nil {
			return err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	out, err := os.OpenFile(part, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	if err := copyWithSync(out, body, expected); err != nil {
		_ = out.Close()
		_ = os.Remove(part)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(part)
		return err
	}
	return nil
}

func copyWithSync(dst *os.File, src io.Reader, expected int64) error {
	step := expected / 100
	next := step

	buf := make([]byte, 32*1024)
	var written int64
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			w, werr := dst.Write(buf[:n])
			written += int64(w)
			if werr != nil {
				return werr
			}
			if w < n {
				return io.ErrShortWrite
			}
			if step > 0 && written >= next {
				if err := dst.Sync(); err != nil {
					return err
				}
				for next <= written {
					next += step
				}
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return nil
			}
			return rerr
		}
	}
}

// replace renames part over dest. An existing file is replaced atomically;
// an existing symlink is removed first so its target elsewhere on disk is
// never touched.
func replace(part, dest string) error {
	if info, err := os.Lstat(dest); err == nil {
		if info.Mode()&os.ModeSymlink != 0 {
			if err := os.Remove(dest); err != nil {
				return err
			}
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return os.Rename(part, dest)
}

func originOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host + "/"
}
