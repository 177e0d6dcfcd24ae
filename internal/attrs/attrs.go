// Package attrs persists per-file freshness metadata in filesystem extended
// attributes. Storing the metadata on the file itself avoids a separate index
// that could desynchronize and survives same-volume renames, at the cost of
// platform-dependent support, which is detected at runtime and never assumed.
package attrs

import (
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pkg/xattr"

	"github.com/tunevault/tunevault/internal/logger"
	"github.com/tunevault/tunevault/internal/memcache"
)

// Attribute slot names. The user namespace is mandatory on Linux and
// harmless elsewhere.
const (
	SlotLastUsed         = "user.tunevault.last_used"
	SlotRSSLastRequested = "user.tunevault.rss_last_requested"
	SlotWatches          = "user.tunevault.watches"

	probeSlot = "user.tunevault.probe"
)

// ErrNotSet reports that a slot is absent on the path, either because it was
// never written or because the filesystem does not support attributes.
var ErrNotSet = errors.New("attribute not set")

// Store is typed read/write access to named persistent key/value slots
// attached to a path.
type Store interface {
	// Supported reports whether the filesystem holding path stores
	// extended attributes. When false, Set is a silent no-op and reads
	// report absence.
	Supported(path string) bool
	Exists(path, name string) (bool, error)
	Get(path, name string) (string, error)
	Set(path, name, value string) error
}

// XattrStore keeps slots in extended attributes. Support probes are memoized
// per directory.
type XattrStore struct {
	support *memcache.Cache[string, bool]
}

func NewXattrStore() *XattrStore {
	return &XattrStore{
		support: memcache.New[string, bool](time.Hour),
	}
}

func (s *XattrStore) Supported(path string) bool {
	if !xattr.XATTR_SUPPORTED {
		return false
	}

	dir := path
	if info, err := os.Stat(path); err != nil || !info.IsDir() {
		dir = filepath.Dir(path)
	}

	if supported, ok := s.support.Get(dir); ok {
		return supported
	}

	supported := probe(dir)
	s.support.Put(dir, supported)
	if !supported {
		logger.Debug("extended attributes unsupported under %s, freshness tracking disabled there", dir)
	}
	return supported
}

func (s *XattrStore) Exists(path, name string) (bool, error) {
	if !s.Supported(path) {
		return false, nil
	}
	if _, err := xattr.Get(path, name); err != nil {
		if isNoData(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *XattrStore) Get(path, name string) (string, error) {
	if !s.Supported(path) {
		return "", ErrNotSet
	}
	data, err := xattr.Get(path, name)
	if err != nil {
		if isNoData(err) {
			return "", ErrNotSet
		}
		return "", err
	}
	return string(data), nil
}

func (s *XattrStore) Set(path, name, value string) error {
	if !s.Supported(path) {
		return nil
	}
	return xattr.Set(path, name, []byte(value))
}

// probe writes and removes a throwaway attribute to detect support; some
// filesystems advertise the syscalls but refuse user attributes.
func probe(dir string) bool {
	if err := xattr.Set(dir, probeSlot, []byte("1")); err != nil {
		return !isUnsupported(err)
	}
	_ = xattr.Remove(dir, probeSlot)
	return true
}

func isNoData(err error) bool {
	return errors.Is(err, xattr.ENOATTR)
}

func isUnsupported(err error) bool {
	return errors.Is(err, syscall.ENOTSUP) || errors.Is(err, syscall.EOPNOTSUPP)
}
