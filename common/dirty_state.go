package common

// DirtyState is the invalidation level of one concern of an object. The levels are
// ordered, so combining two states keeps the stronger one.
type DirtyState int

const (
	// Clean means the cached data is current.
	Clean DirtyState = iota

	// NeedsUpdate means cached values must be recomputed but GPU objects may be reused.
	NeedsUpdate

	// NeedsRebuild means dependent GPU objects must be recreated.
	NeedsRebuild
)

// Raise returns the stronger of d and o.
func (d DirtyState) Raise(o DirtyState) DirtyState {
	return max(d, o)
}

// IsDirty reports whether d is anything other than Clean.
func (d DirtyState) IsDirty() bool {
	return d != Clean
}

func (d DirtyState) String() string {
	switch d {
	case Clean:
		return "clean"
	case NeedsUpdate:
		return "needs-update"
	case NeedsRebuild:
		return "needs-rebuild"
	default:
		return "unknown"
	}
}
