package cache

// ScopedKeyer wraps a Keyer with a prefix so several deployments (or
// tenants) can share one Redis instance without key collisions.
//
// Example usage:
//
//	apiKeyer := NewScopedKeyer(NewDefaultKeyer(), "textart:api:")
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

// SourceKey generates a prefixed key for fetched image bytes.
func (k *ScopedKeyer) SourceKey(locator string) string {
	return k.prefix + k.inner.SourceKey(locator)
}

// ArtKey generates a prefixed key for rendered text art.
func (k *ScopedKeyer) ArtKey(digest string, opts ArtKeyOpts) string {
	return k.prefix + k.inner.ArtKey(digest, opts)
}
