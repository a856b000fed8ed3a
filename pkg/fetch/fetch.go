// Package fetch loads raw image bytes from a source locator.
//
// A locator is an http:// or https:// URL, a file:// URL, or a filesystem
// path. Remote fetches are retried on transient failures and their bodies
// are cached; local files are read directly and never cached.
//
// Every failure carries a code from [github.com/matzehuels/textart/pkg/errors]:
// NOT_FOUND / FILE_NOT_FOUND for missing resources, NETWORK_ERROR and
// TIMEOUT for transport problems, TOO_LARGE when the body exceeds the size
// limit and FORBIDDEN when local access is disabled.
package fetch

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/textart/pkg/buildinfo"
	"github.com/matzehuels/textart/pkg/cache"
	terrors "github.com/matzehuels/textart/pkg/errors"
	"github.com/matzehuels/textart/pkg/observability"
)

// Defaults for a Fetcher created without options.
const (
	DefaultTimeout    = 10 * time.Second
	DefaultMaxBytes   = 32 << 20
	DefaultAttempts   = 3
	DefaultRetryDelay = time.Second
)

// Fetcher loads image bytes. The zero value is not usable; call [New].
// A Fetcher is safe for concurrent use.
type Fetcher struct {
	client     *http.Client
	cache      cache.Cache
	keyer      cache.Keyer
	ttl        time.Duration
	logger     *log.Logger
	localFiles bool
	maxBytes   int64
	attempts   int
	delay      time.Duration
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient sets the client used for remote sources.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithTimeout sets the per-request timeout of the default client.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.client = &http.Client{Timeout: d}
		}
	}
}

// WithCache stores remote bodies in c under keys from keyer.
// A nil keyer selects the default key scheme.
func WithCache(c cache.Cache, keyer cache.Keyer) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.cache = c
		}
		if keyer != nil {
			f.keyer = keyer
		}
	}
}

// WithTTL sets the lifetime of cached remote bodies.
func WithTTL(ttl time.Duration) Option {
	return func(f *Fetcher) { f.ttl = ttl }
}

// WithLogger sets the logger for fetch diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithLocalFiles enables or disables file:// URLs and filesystem paths.
// Servers disable local access so clients cannot read the host filesystem.
func WithLocalFiles(enabled bool) Option {
	return func(f *Fetcher) { f.localFiles = enabled }
}

// WithMaxBytes sets the maximum accepted body size. Zero or negative
// values keep the default.
func WithMaxBytes(n int64) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBytes = n
		}
	}
}

// WithRetry sets the number of attempts and the initial backoff delay.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(f *Fetcher) {
		f.attempts = max(attempts, 1)
		f.delay = delay
	}
}

// New creates a Fetcher. Without options it has no cache, allows local
// files, limits bodies to 32 MiB and retries transient failures 3 times.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:     &http.Client{Timeout: DefaultTimeout},
		cache:      cache.NewNullCache(),
		keyer:      cache.NewDefaultKeyer(),
		ttl:        cache.TTLSource,
		logger:     log.NewWithOptions(io.Discard, log.Options{}),
		localFiles: true,
		maxBytes:   DefaultMaxBytes,
		attempts:   DefaultAttempts,
		delay:      DefaultRetryDelay,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Result is the outcome of [Fetcher.Get].
type Result struct {
	Data   []byte
	Cached bool // served from the source cache
	Remote bool // fetched over HTTP(S)
}

// Fetch returns the bytes behind source, using the cache when possible.
func (f *Fetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	res, err := f.Get(ctx, source, false)
	if err != nil {
		return nil, err
	}
	return res.Data, nil
}

// Get returns the bytes behind source. When refresh is true cached remote
// bodies are ignored, but the fresh body is still written back.
func (f *Fetcher) Get(ctx context.Context, source string, refresh bool) (*Result, error) {
	if err := terrors.ValidateSource(source); err != nil {
		return nil, err
	}

	if path, ok := localPath(source); ok {
		if !f.localFiles {
			return nil, terrors.New(terrors.ErrCodeForbidden, "local sources are not allowed: %s", source)
		}
		data, err := f.readFile(path)
		if err != nil {
			return nil, err
		}
		return &Result{Data: data}, nil
	}

	key := f.keyer.SourceKey(source)
	if !refresh {
		if data, hit, err := f.cache.Get(ctx, key); err == nil && hit {
			observability.Cache().OnCacheHit(ctx, "source")
			f.logger.Debug("source cache hit", "source", source, "bytes", len(data))
			return &Result{Data: data, Cached: true, Remote: true}, nil
		} else if err != nil {
			f.logger.Warn("source cache read failed", "source", source, "error", err)
		}
		observability.Cache().OnCacheMiss(ctx, "source")
	}

	data, err := f.downloadWithRetry(ctx, source)
	if err != nil {
		return nil, err
	}

	if err := f.cache.Set(ctx, key, data, f.ttl); err != nil {
		f.logger.Warn("source cache write failed", "source", source, "error", err)
	} else {
		observability.Cache().OnCacheSet(ctx, "source", len(data))
	}
	return &Result{Data: data, Remote: true}, nil
}

func (f *Fetcher) download(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, terrors.Wrap(terrors.ErrCodeInvalidSource, err, "malformed URL")
	}
	if err := terrors.ValidateURL(rawURL); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, terrors.Wrap(terrors.ErrCodeInvalidSource, err, "build request")
	}
	req.Header.Set("User-Agent", buildinfo.UserAgent())
	req.Header.Set("Accept", "image/*")

	hooks := observability.HTTP()
	hooks.OnRequest(ctx, req.Method, u.Host, u.Path)
	start := time.Now()

	resp, err := f.client.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, u.Host, u.Path, err)
		if ctx.Err() != nil {
			return nil, terrors.Wrap(terrors.ErrCodeTimeout, ctx.Err(), "fetch %s", rawURL)
		}
		code := terrors.ErrCodeNetwork
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			code = terrors.ErrCodeTimeout
		}
		return nil, &RetryableError{Err: terrors.Wrap(code, err, "fetch %s", rawURL)}
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, req.Method, u.Host, u.Path, resp.StatusCode, time.Since(start))

	if err := checkStatus(rawURL, resp.StatusCode); err != nil {
		return nil, err
	}
	if resp.ContentLength > f.maxBytes {
		return nil, tooLarge(rawURL, f.maxBytes)
	}

	data, err := readLimited(resp.Body, f.maxBytes)
	if errors.Is(err, errTooLarge) {
		return nil, tooLarge(rawURL, f.maxBytes)
	}
	if err != nil {
		return nil, &RetryableError{Err: terrors.Wrap(terrors.ErrCodeNetwork, err, "read body of %s", rawURL)}
	}

	f.logger.Debug("fetched source", "url", rawURL, "status", resp.StatusCode, "bytes", len(data), "duration", time.Since(start))
	return data, nil
}

func (f *Fetcher) readFile(path string) ([]byte, error) {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, terrors.Wrap(terrors.ErrCodeFileNotFound, err, "file not found: %s", path)
	}
	if err != nil {
		return nil, terrors.Wrap(terrors.ErrCodeInvalidSource, err, "open %s", path)
	}
	defer file.Close()

	if info, err := file.Stat(); err == nil {
		if info.IsDir() {
			return nil, terrors.New(terrors.ErrCodeInvalidSource, "%s is a directory", path)
		}
		if info.Size() > f.maxBytes {
			return nil, tooLarge(path, f.maxBytes)
		}
	}

	data, err := readLimited(file, f.maxBytes)
	if errors.Is(err, errTooLarge) {
		return nil, tooLarge(path, f.maxBytes)
	}
	if err != nil {
		return nil, terrors.Wrap(terrors.ErrCodeInvalidSource, err, "read %s", path)
	}
	f.logger.Debug("read local source", "path", path, "bytes", len(data))
	return data, nil
}

var errTooLarge = errors.New("body exceeds size limit")

// readLimited reads at most limit bytes from r, failing with errTooLarge
// if more are available.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, errTooLarge
	}
	return data, nil
}

func tooLarge(source string, limit int64) error {
	return terrors.New(terrors.ErrCodeTooLarge, "%s exceeds the %d byte limit", source, limit)
}

func checkStatus(rawURL string, code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return terrors.New(terrors.ErrCodeNotFound, "%s: status %d", rawURL, code)
	case code == http.StatusForbidden || code == http.StatusUnauthorized:
		return terrors.New(terrors.ErrCodeForbidden, "%s: status %d", rawURL, code)
	case code == http.StatusTooManyRequests || code >= 500:
		return &RetryableError{Err: terrors.New(terrors.ErrCodeNetwork, "%s: status %d", rawURL, code)}
	default:
		return terrors.New(terrors.ErrCodeNetwork, "%s: status %d", rawURL, code)
	}
}

// localPath reports whether source names a local file and returns its path.
func localPath(source string) (string, bool) {
	lower := strings.ToLower(source)
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return "", false
	case strings.HasPrefix(lower, "file://"):
		u, err := url.Parse(source)
		if err != nil || u.Path == "" {
			return source[len("file://"):], true
		}
		return u.Path, true
	default:
		return source, true
	}
}

