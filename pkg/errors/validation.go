package errors

import (
	"math"
	"net/url"
	"strings"
	"unicode"
)

// maxSourceLength bounds the length of a source locator.
const maxSourceLength = 2048

// ValidateSource validates an image source locator (URL or filesystem path).
//
// The validation rules are intentionally conservative:
//   - No empty locators
//   - No control characters or null bytes
//   - Maximum length of 2048 characters
//   - URL schemes limited to http, https and file
//
// Existence of the resource is not checked; that is the fetcher's job.
func ValidateSource(source string) error {
	if strings.TrimSpace(source) == "" {
		return New(ErrCodeInvalidSource, "source cannot be empty")
	}

	if len(source) > maxSourceLength {
		return New(ErrCodeInvalidSource, "source too long (max %d characters)", maxSourceLength)
	}

	for _, r := range source {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidSource, "source contains invalid control characters")
		}
	}

	scheme, ok := sourceScheme(source)
	if !ok {
		return nil
	}
	switch scheme {
	case "http", "https", "file":
		return nil
	default:
		return New(ErrCodeInvalidSource, "unsupported source scheme %q (must be http, https or file)", scheme)
	}
}

// ValidateURL validates a remote source URL.
// It ensures the URL has a safe scheme (http or https) and a host.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidSource, "URL cannot be empty")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return Wrap(ErrCodeInvalidSource, err, "malformed URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return New(ErrCodeInvalidSource, "URL must use http or https scheme")
	}
	if u.Host == "" {
		return New(ErrCodeInvalidSource, "URL must include a host")
	}

	return nil
}

// ValidateLimits validates conversion size limits.
// Zero means "unconstrained" for every limit; negative or non-finite values
// are rejected.
func ValidateLimits(maxWidth, maxHeight int, maxRatio float64) error {
	if maxWidth < 0 {
		return New(ErrCodeInvalidLimits, "max width cannot be negative: %d", maxWidth)
	}
	if maxHeight < 0 {
		return New(ErrCodeInvalidLimits, "max height cannot be negative: %d", maxHeight)
	}
	if math.IsNaN(maxRatio) || math.IsInf(maxRatio, 0) {
		return New(ErrCodeInvalidLimits, "max ratio must be a finite number")
	}
	if maxRatio < 0 {
		return New(ErrCodeInvalidLimits, "max ratio cannot be negative: %g", maxRatio)
	}
	return nil
}

// ValidatePixelLimit rejects a negative pixel limit. Zero means
// "unconstrained".
func ValidatePixelLimit(maxPixels int64) error {
	if maxPixels < 0 {
		return New(ErrCodeInvalidLimits, "max pixels cannot be negative: %d", maxPixels)
	}
	return nil
}

// sourceScheme returns the lower-cased URL scheme of source, if it has one.
// Windows drive letters ("C:\...") are not treated as schemes.
func sourceScheme(source string) (string, bool) {
	i := strings.Index(source, "://")
	if i <= 1 {
		return "", false
	}
	scheme := strings.ToLower(source[:i])
	for _, r := range scheme {
		if !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') && r != '+' && r != '-' && r != '.' {
			return "", false
		}
	}
	return scheme, true
}
