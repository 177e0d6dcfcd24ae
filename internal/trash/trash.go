// Package trash reclaims files, preferring the platform trash over permanent
// deletion. The trash capability is probed once at startup, not per file.
package trash

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/tunevault/tunevault/internal/logger"
	"github.com/tunevault/tunevault/internal/runner"
	"github.com/tunevault/tunevault/internal/utils"
)

const commandTimeout = 30 * time.Second

// candidate trash CLIs, in preference order, with the arguments that send
// one path to the trash.
var candidates = []struct {
	name string
	args []string
}{
	{"gio", []string{"trash"}},
	{"trash-put", nil},
	{"trash", nil},
}

type Bin struct {
	r    runner.CommandRunner
	tool string
	args []string
}

// Probe looks for a usable trash CLI once. Without one, Discard deletes
// permanently.
func Probe(r runner.CommandRunner) *Bin {
	if r == nil {
		r = runner.ExecRunner{}
	}
	for _, c := range candidates {
		if _, err := utils.LookForFileInPath(c.name); err == nil {
			logger.Debug("reclaiming stale files via %s", c.name)
			return &Bin{r: r, tool: c.name, args: c.args}
		}
	}
	logger.Debug("no trash command found, stale files will be deleted permanently")
	return &Bin{r: r}
}

// CanTrash reports whether reclaimed files go to the platform trash.
func (b *Bin) CanTrash() bool {
	return b.tool != ""
}

// Discard removes path, via the trash when available. An already-absent path
// counts as success.
func (b *Bin) Discard(path string) error {
	if _, err := os.Lstat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}

	if b.tool != "" {
		args := append(append([]string(nil), b.args...), path)
		out, err := b.r.Run(context.Background(), commandTimeout, runner.Capture, b.tool, args...)
		if err == nil {
			return nil
		}
		logger.Warn("%s failed for %s (%s), deleting permanently: %v", b.tool, path, string(out), err)
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
