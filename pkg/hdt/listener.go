package hdt

// ProgressListener receives progress notifications from long-running
// operations. Returning false requests cancellation; the producer checks the
// result at section boundaries and fails with ErrCancelled.
type ProgressListener func(stage string, done, total uint64) bool

// Notify invokes the listener if it is non-nil and reports whether the
// operation should continue.
func (l ProgressListener) Notify(stage string, done, total uint64) bool {
	if l == nil {
		return true
	}
	return l(stage, done, total)
}

// Interval returns a listener that maps its [0, total] progress into the
// [lo, hi] percentage range of the parent, so nested operations compose into
// one smooth progress line.
func (l ProgressListener) Interval(lo, hi uint64) ProgressListener {
	if l == nil {
		return nil
	}
	return func(stage string, done, total uint64) bool {
		scaled := lo
		if total > 0 {
			scaled = lo + (hi-lo)*done/total
		}
		return l(stage, scaled, 100)
	}
}
