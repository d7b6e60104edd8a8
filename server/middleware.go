package server

import (
	"net/http"
	"time"

	"github.com/consensys/gnark/logger"
)

// loggingResponseWriter captures the status code for the access log.
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs one line per request with the status and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	log := logger.Logger().With().Str("component", "server").Logger()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lrw := &loggingResponseWriter{w, http.StatusOK}

		startTime := time.Now()
		next.ServeHTTP(lrw, r)

		log.Info().
			Str("method", r.Method).
			Str("uri", r.RequestURI).
			Str("remote", r.RemoteAddr).
			Int("status", lrw.statusCode).
			Dur("took", time.Since(startTime)).
			Msg("request")
	})
}
