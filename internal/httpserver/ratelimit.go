// internal/httpserver/ratelimit.go
//
// Per-device token bucket for word submissions. Each submission can trigger
// several outbound relatedness queries, so a device is held to SUBMIT_RPS with
// bursts of SUBMIT_BURST. Idle limiters are dropped by StartJanitor.

package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// getLimiter returns the limiter for key, creating it on first use.
func (s *Server) getLimiter(key string) *rate.Limiter {
	s.limiterMu.Lock()
	defer s.limiterMu.Unlock()
	if e, ok := s.limiters[key]; ok {
		e.lastAccess = time.Now()
		return e.limiter
	}
	rps := s.cfg.SubmitRPS
	if rps <= 0 {
		rps = 1
	}
	burst := s.cfg.SubmitBurst
	if burst < 1 {
		burst = 1
	}
	lim := rate.NewLimiter(rate.Limit(rps), burst)
	s.limiters[key] = &limiterEntry{limiter: lim, lastAccess: time.Now()}
	return lim
}

// rateLimitSubmit rejects submissions over the device's budget with 429.
func (s *Server) rateLimitSubmit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := deviceFromRequest(r)
		if key == "" {
			key = r.RemoteAddr
		}
		if !s.getLimiter(key).Allow() {
			log.Debug().Str("device", key).Msg("submission rate limited")
			http.Error(w, `{"error":"Too many requests. Please slow down."}`, http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// cleanupLimiters drops limiters unused since cutoff and returns how many.
func (s *Server) cleanupLimiters(cutoff time.Time) int {
	s.limiterMu.Lock()
	defer s.limiterMu.Unlock()
	n := 0
	for key, e := range s.limiters {
		if e.lastAccess.Before(cutoff) {
			delete(s.limiters, key)
			n++
		}
	}
	return n
}

// StartJanitor drops idle rate limiters every interval until ctx is done.
func (s *Server) StartJanitor(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.cleanupLimiters(time.Now().Add(-ttl)); n > 0 {
					log.Debug().Int("removed", n).Msg("dropped idle rate limiters")
				}
			}
		}
	}()
}
