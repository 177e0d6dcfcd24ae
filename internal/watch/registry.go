package watch

// Registry answers which watches are currently active. The watch-polling
// layer owns the authoritative list; the core only queries it.
type Registry interface {
	WatchingAnything() bool
	WatchingAnyOf(watches []Watch) bool
}

// StaticRegistry is a fixed set of active watches, typically built from
// configuration at startup.
type StaticRegistry struct {
	watches map[Watch]struct{}
}

func NewStaticRegistry(watches []Watch) *StaticRegistry {
	set := make(map[Watch]struct{}, len(watches))
	for _, w := range watches {
		set[w] = struct{}{}
	}
	return &StaticRegistry{watches: set}
}

func (r *StaticRegistry) WatchingAnything() bool {
	return len(r.watches) > 0
}

func (r *StaticRegistry) WatchingAnyOf(watches []Watch) bool {
	for _, w := range watches {
		if _, ok := r.watches[w]; ok {
			return true
		}
	}
	return false
}
