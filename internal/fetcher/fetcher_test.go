package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/tunevault/tunevault/internal/logger"
	"github.com/tunevault/tunevault/internal/models"
	"github.com/tunevault/tunevault/internal/watch"
)

func TestMain(m *testing.M) {
	logger.UseTestMode()
	os.Exit(m.Run())
}

type recordingTracker struct {
	mu      sync.Mutex
	used    []string
	watched map[string][]watch.Watch
}

func newRecordingTracker() *recordingTracker {
	return &recordingTracker{watched: make(map[string][]watch.Watch)}
}

func (r *recordingTracker) UpdateLastUsed(path string, onlyIfExists bool) {
	r.mu.Lock()
	r.used = append(r.used, path)
	r.mu.Unlock()
}

func (r *recordingTracker) AppendWatch(path string, w watch.Watch) {
	r.mu.Lock()
	r.watched[path] = append(r.watched[path], w)
	r.mu.Unlock()
}

func serve(t *testing.T, body string, status int) (*httptest.Server, *http.Request) {
	t.Helper()
	captured := &http.Request{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured = *r.Clone(context.Background())
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

func newJob(url, dest string, size int64) *models.Download {
	mod := time.Date(2024, 4, 5, 6, 7, 8, 0, time.UTC)
	w := &watch.Watch{Owner: "alice", Category: "albums"}
	return models.NewDownload(url, size, mod, dest, w)
}

func TestExecuteMaterializesFile(t *testing.T) {
	const body = "these are the remote bytes"
	srv, captured := serve(t, body, http.StatusOK)

	tracker := newRecordingTracker()
	f := New(NewHTTPClient(10*time.Second), tracker, "tunevault-test/1.0")

	dest := filepath.Join(t.TempDir(), "artist", "track.mp3")
	job := newJob(srv.URL+"/track.mp3", dest, int64(len(body)))

	if err := f.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read destination: %v", err)
	}
	if string(got) != body {
		t.Errorf("destination bytes = %q", got)
	}

	info, err := os.Stat(dest)
	if err != nil {
		t.Fatalf("stat destination: %v", err)
	}
	if !info.ModTime().Equal(job.LastModified) {
		t.Errorf("mtime = %s, want %s", info.ModTime(), job.LastModified)
	}

	if _, err := os.Lstat(dest + ".part"); !os.IsNotExist(err) {
		t.Error("part file should be gone after the rename")
	}

	if captured.Header.Get("User-Agent") != "tunevault-test/1.0" {
		t.Errorf("User-Agent = %q", captured.Header.Get("User-Agent"))
	}
	if got, want := captured.Header.Get("Referer"), srv.URL+"/"; got != want {
		t.Errorf("Referer = %q, want %q", got, want)
	}

	if len(tracker.used) != 1 || tracker.used[0] != dest {
		t.Errorf("last_used stamps = %v", tracker.used)
	}
	if len(tracker.watched[dest]) != 1 {
		t.Errorf("watch stamps = %v", tracker.watched[dest])
	}
}

func TestExecuteReplacesExistingFile(t *testing.T) {
	const body = "fresh bytes"
	srv, _ := serve(t, body, http.StatusOK)

	dest := filepath.Join(t.TempDir(), "track.mp3")
	if err := os.WriteFile(dest, []byte("stale bytes that are longer"), 0o644); err != nil {
		t.Fatalf("seed destination: %v", err)
	}

	f := New(NewHTTPClient(10*time.Second), newRecordingTracker(), "ua")
	if err := f.Execute(context.Background(), newJob(srv.URL, dest, int64(len(body)))); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	got, _ := os.ReadFile(dest)
	if string(got) != body {
		t.Errorf("destination = %q, want %q", got, body)
	}
}

func TestExecuteRemovesStalePartFile(t *testing.T) {
	const body = "payload"
	srv, _ := serve(t, body, http.StatusOK)

	dir := t.TempDir()
	dest := filepath.Join(dir, "track.mp3")
	if err := os.WriteFile(dest+".part", []byte("leftover from a crash"), 0o644); err != nil {
		t.Fatalf("seed part file: %v", err)
	}

	f := New(NewHTTPClient(10*time.Second), newRecordingTracker(), "ua")
	if err := f.Execute(context.Background(), newJob(srv.URL, dest, int64(len(body)))); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	got, _ := os.ReadFile(dest)
	if string(got) != body {
		t.Errorf("destination = %q", got)
	}
}

func TestExecuteNeverWritesThroughSymlinks(t *testing.T) {
	const body = "payload"
	srv, _ := serve(t, body, http.StatusOK)

	dir := t.TempDir()
	victim := filepath.Join(dir, "victim")
	if err := os.WriteFile(victim, []byte("precious"), 0o644); err != nil {
		t.Fatalf("seed victim: %v", err)
	}

	dest := filepath.Join(dir, "track.mp3")
	if err := os.Symlink(victim, dest); err != nil {
		t.Fatalf("symlink dest: %v", err)
	}
	if err := os.Symlink(victim, dest+".part"); err != nil {
		t.Fatalf("symlink part: %v", err)
	}

	f := New(NewHTTPClient(10*time.Second), newRecordingTracker(), "ua")
	if err := f.Execute(context.Background(), newJob(srv.URL, dest, int64(len(body)))); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if precious, _ := os.ReadFile(victim); string(precious) != "precious" {
		t.Errorf("symlink target was modified: %q", precious)
	}
	info, err := os.Lstat(dest)
	if err != nil {
		t.Fatalf("lstat destination: %v", err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		t.Error("destination should be a regular file now")
	}
	if got, _ := os.ReadFile(dest); string(got) != body {
		t.Errorf("destination = %q", got)
	}
}

func TestExecuteLeavesDestinationOnHTTPError(t *testing.T) {
	srv, _ := serve(t, "not found", http.StatusNotFound)

	dest := filepath.Join(t.TempDir(), "track.mp3")
	if err := os.WriteFile(dest, []byte("keep me"), 0o644); err != nil {
		t.Fatalf("seed destination: %v", err)
	}

	tracker := newRecordingTracker()
	f := New(NewHTTPClient(10*time.Second), tracker, "ua")
	if err := f.Execute(context.Background(), newJob(srv.URL, dest, 9)); err == nil {
		t.Fatal("Execute should fail on a 404")
	}

	if got, _ := os.ReadFile(dest); string(got) != "keep me" {
		t.Errorf("destination was touched: %q", got)
	}
	if len(tracker.used) != 0 {
		t.Errorf("no attribute should be stamped on failure, got %v", tracker.used)
	}
}

func TestExecuteLeavesDestinationOnConnectError(t *testing.T) {
	srv, _ := serve(t, "", http.StatusOK)
	srv.Close()

	dest := filepath.Join(t.TempDir(), "track.mp3")
	f := New(NewHTTPClient(time.Second), newRecordingTracker(), "ua")
	if err := f.Execute(context.Background(), newJob(srv.URL, dest, 9)); err == nil {
		t.Fatal("Execute should fail when the server is gone")
	}
	if _, err := os.Lstat(dest); !os.IsNotExist(err) {
		t.Error("destination should not exist")
	}
}

func TestOriginOf(t *testing.T) {
	cases := map[string]string{
		"https://cdn.example.com/a/b.mp3?sig=x": "https://cdn.example.com/",
		"http://host:8080/file":                 "http://host:8080/",
		"not a url":                             "",
		"/relative/path":                        "",
	}
	for in, want := range cases {
		if got := originOf(in); got != want {
			t.Errorf("originOf(%q) = %q, want %q", in, got, want)
		}
	}
}
