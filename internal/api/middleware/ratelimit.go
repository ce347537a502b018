// SPDX-License-Identifier: MIT

package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// LifecycleRateLimit guards the start/stop endpoints. Starting a run spawns
// child processes and opens stream connections, so the budget is tight:
// 10 requests per minute per client IP.
func LifecycleRateLimit() func(http.Handler) http.Handler {
	const (
		requestLimit = 10
		window       = time.Minute
	)
	return httprate.Limit(
		requestLimit,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error_code":"RATE_LIMIT_EXCEEDED","message":"too many requests"}`))
		}),
	)
}
