package server

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5/middleware"
)

// requestLogger logs one line per request after it completes.
func requestLogger(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logFn := logger.Info
			if status >= 500 {
				logFn = logger.Error
			}
			logFn("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"size", humanize.Bytes(uint64(ww.BytesWritten())),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()))
		})
	}
}

func requestID(r *http.Request) string {
	return middleware.GetReqID(r.Context())
}
