package middleware

import (
	"net/http"
	"time"

	"github.com/didip/tollbooth/v7"
	"go.uber.org/zap"
)

// rateLimitedBody is written when a client exceeds the request rate.
const rateLimitedBody = `{"error":"rate limit exceeded, try again later"}`

// RateLimitMiddleware limits each client address to perSecond requests.
// A non-positive rate disables limiting.
func RateLimitMiddleware(perSecond float64) func(http.Handler) http.Handler {
	if perSecond <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	lmt := tollbooth.NewLimiter(perSecond, nil)
	lmt.SetMessage(rateLimitedBody)
	lmt.SetMessageContentType("application/json; charset=utf-8")

	return func(next http.Handler) http.Handler {
		return tollbooth.LimitHandler(lmt, next)
	}
}

// LoggingMiddleware logs API requests. Health checks are not logged.
func LoggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	log := logger.Named("http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			if r.URL.Path == "/health" {
				return
			}
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", wrapped.statusCode),
				zap.Duration("duration", time.Since(start)),
			}
			if wrapped.statusCode >= http.StatusInternalServerError {
				log.Error("API request", fields...)
				return
			}
			log.Info("API request", fields...)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
