package cli

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"

	"github.com/matzehuels/textart/pkg/observability"
)

// logHooks reports conversion, cache and HTTP fetch events as debug log
// lines, visible with --verbose.
type logHooks struct {
	logger *log.Logger
}

func (h logHooks) OnConvertStart(_ context.Context, source string) {
	h.logger.Debug("convert start", "source", source)
}

func (h logHooks) OnConvertComplete(_ context.Context, source string, width, height int, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("convert failed", "source", source, "duration", d.Round(time.Millisecond), "error", err)
		return
	}
	h.logger.Debug("convert done", "source", source, "width", width, "height", height, "duration", d.Round(time.Millisecond))
}

func (h logHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h logHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h logHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "size", humanize.Bytes(uint64(size)))
}

func (h logHooks) OnRequest(_ context.Context, method, host, path string) {
	h.logger.Debug("http request", "method", method, "host", host, "path", path)
}

func (h logHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	h.logger.Debug("http response", "method", method, "host", host, "path", path, "status", status, "duration", d.Round(time.Millisecond))
}

func (h logHooks) OnError(_ context.Context, method, host, path string, err error) {
	h.logger.Debug("http error", "method", method, "host", host, "path", path, "error", err)
}

var (
	_ observability.ConvertHooks = logHooks{}
	_ observability.CacheHooks   = logHooks{}
	_ observability.HTTPHooks    = logHooks{}
)
