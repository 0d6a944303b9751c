package cache

// ScopedKeyer wraps a Keyer with a prefix so several deployments can share
// one Redis instance without colliding.
//
//	staging := NewScopedKeyer(NewDefaultKeyer(), "staging:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// SeriesKey generates a prefixed series key.
func (k *ScopedKeyer) SeriesKey(opts SeriesKeyOpts) string {
	return k.prefix + k.inner.SeriesKey(opts)
}

// ArtifactKey generates a prefixed artifact key.
func (k *ScopedKeyer) ArtifactKey(seriesHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(seriesHash, opts)
}
