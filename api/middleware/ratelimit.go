package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/skillsphere/api/api/web"
	"github.com/skillsphere/api/api/weberr"
	"github.com/skillsphere/api/rate"
)

// RateLimit rejects clients exceeding the limiter's budget, keyed by
// remote address. Applied to abuse-prone routes (login, quiz submit).
func RateLimit(lim *rate.Limiter) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				host = r.RemoteAddr
			}

			if !lim.Check(host) {
				return weberr.TooManyRequests(errors.New("rate limit exceeded for " + host))
			}

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}
