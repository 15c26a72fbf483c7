package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ulule/limiter/v3"
	limiterhttp "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// RateLimit allows perMinute requests per client IP. The key is taken from
// RemoteAddr, so TrustedRealIP must run first. onLimit renders the rejection.
func RateLimit(perMinute int, onLimit http.HandlerFunc) func(http.Handler) http.Handler {
	rate := limiter.Rate{Period: time.Minute, Limit: int64(perMinute)}
	instance := limiter.New(memory.NewStore(), rate)

	mw := limiterhttp.NewMiddleware(instance,
		limiterhttp.WithLimitReachedHandler(limiterhttp.LimitReachedHandler(onLimit)),
		limiterhttp.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			slog.Error("rate limiter failed", "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}),
	)
	return mw.Handler
}
