package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/irsalhamdi/lms-client/api/web"
	"github.com/irsalhamdi/lms-client/api/weberr"
	"github.com/irsalhamdi/lms-client/rate"
)

// RateLimit throttles callers by remote address.
func RateLimit(l *rate.Limiter) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				host = r.RemoteAddr
			}

			if !l.Allow(host) {
				err := errors.New("rate limit exceeded for " + host)
				return weberr.NewError(err, "too many requests", http.StatusTooManyRequests,
					weberr.WithHeader("Retry-After", "1"),
				)
			}

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}
