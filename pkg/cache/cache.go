// Package cache stores fetched image bytes and rendered text art.
//
// Two kinds of entries are cached:
//   - Source entries: raw bytes of remote images, keyed by URL.
//   - Art entries: rendered text, keyed by the digest of the image bytes
//     plus every option that influences the output.
//
// Backends implement [Cache]: [FileCache] for the CLI, [RedisCache] for a
// shared cache behind the HTTP API, and [NullCache] to disable caching.
package cache

import (
	"context"
	"time"
)

// Default time-to-live values per entry kind.
const (
	TTLSource = 24 * time.Hour
	TTLArt    = 7 * 24 * time.Hour
)

// Cache is a byte-oriented key/value store with per-entry expiry.
type Cache interface {
	// Get returns the data stored under key. A missing or expired entry is
	// a miss (nil, false, nil), not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of 0 means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Keyer derives cache keys.
type Keyer interface {
	// SourceKey is the key for the raw bytes behind a remote locator.
	SourceKey(locator string) string

	// ArtKey is the key for text art rendered from image bytes with the
	// given digest and options.
	ArtKey(digest string, opts ArtKeyOpts) string
}

// ArtKeyOpts lists every option that changes rendered output.
type ArtKeyOpts struct {
	MaxWidth    int     `json:"max_width"`
	MaxHeight   int     `json:"max_height"`
	MaxRatio    float64 `json:"max_ratio"`
	Glyphs      string  `json:"glyphs"`
	LegacyRatio bool    `json:"legacy_ratio"`
}

// DefaultKeyer produces keys of the form "kind:hash".
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default key scheme.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// SourceKey implements Keyer.
func (DefaultKeyer) SourceKey(locator string) string {
	return "source:" + locator
}

// ArtKey implements Keyer.
func (DefaultKeyer) ArtKey(digest string, opts ArtKeyOpts) string {
	return hashKey("art", digest, opts)
}
