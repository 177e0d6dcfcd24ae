package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "music_folder: /srv/music\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !cfg.DownloadThreads.Auto() {
		t.Error("download_threads should default to auto")
	}
	if cfg.WatchIntervalMinutes != defaultWatchMinutes {
		t.Errorf("watch_interval_minutes = %d, want %d", cfg.WatchIntervalMinutes, defaultWatchMinutes)
	}
	if cfg.HTTPTimeout() != time.Duration(defaultHTTPTimeout)*time.Second {
		t.Errorf("http timeout = %s", cfg.HTTPTimeout())
	}
	if cfg.SweepPeriod() != time.Duration(defaultSweepHours)*time.Hour {
		t.Errorf("sweep period = %s", cfg.SweepPeriod())
	}
	if cfg.StaleSweepEnabled() {
		t.Error("sweeping should be disabled when retention is 0")
	}
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `music_folder: /srv/music
download_oldest_first: true
download_threads: 4
remove_stale_music_files_after_days: 30
watch_interval_minutes: 120
user_agent: tunevault-test
watches:
  - alice/albums
  - bob/singles/new
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !cfg.DownloadOldestFirst {
		t.Error("download_oldest_first should be true")
	}
	if got := cfg.DownloadThreads.Resolve(); got != 4 {
		t.Errorf("threads = %d, want 4", got)
	}
	if !cfg.StaleSweepEnabled() {
		t.Error("sweeping should be enabled")
	}

	watches, err := cfg.ActiveWatches()
	if err != nil {
		t.Fatalf("ActiveWatches: %v", err)
	}
	if len(watches) != 2 || watches[1].Selector != "new" {
		t.Errorf("unexpected watches: %+v", watches)
	}
}

func TestThreadCountAuto(t *testing.T) {
	path := writeConfig(t, "music_folder: /srv/music\ndownload_threads: auto\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.DownloadThreads.Auto() {
		t.Error("threads should be auto")
	}
	if got := cfg.DownloadThreads.Resolve(); got != runtime.NumCPU() {
		t.Errorf("auto resolved to %d, want %d", got, runtime.NumCPU())
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"missing music_folder": "download_threads: 2\n",
		"zero threads":         "music_folder: /m\ndownload_threads: 0\n",
		"negative threads":     "music_folder: /m\ndownload_threads: -3\n",
		"word threads":         "music_folder: /m\ndownload_threads: plenty\n",
		"negative retention":   "music_folder: /m\nremove_stale_music_files_after_days: -1\n",
		"zero watch interval":  "music_folder: /m\nwatch_interval_minutes: 0\n",
		"bad watch":            "music_folder: /m\nwatches: [notawatch]\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body)); err == nil {
				t.Error("Load should fail")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yml")); err == nil {
		t.Error("Load should fail for a missing file")
	}
}
