package financetest

import (
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// quota throttles clients the way the real service answers bursts: every
// credential gets its own token bucket.
type quota struct {
	mu      sync.Mutex
	clients map[string]*rate.Limiter
	rate    rate.Limit
	burst   int
}

func newQuota(r float64, b int) *quota {
	return &quota{
		clients: make(map[string]*rate.Limiter),
		rate:    rate.Limit(r),
		burst:   b,
	}
}

// limiter returns the bucket of a client, creating one if needed.
func (q *quota) limiter(client string) *rate.Limiter {
	q.mu.Lock()
	defer q.mu.Unlock()

	l, ok := q.clients[client]
	if !ok {
		l = rate.NewLimiter(q.rate, q.burst)
		q.clients[client] = l
	}
	return l
}

// SetQuota limits every client to r requests per second with bursts of b.
// A non-positive r removes the limit.
func (s *Server) SetQuota(r float64, b int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r <= 0 {
		s.quota = nil
		return
	}
	s.quota = newQuota(r, b)
}

// throttle answers 503 once a client is over its quota.
func (s *Server) throttle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		q := s.quota
		s.mu.Unlock()

		if q != nil && !q.limiter(clientKey(r)).Allow() {
			http.Error(w, "Quota exceeded", http.StatusServiceUnavailable)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientKey identifies the caller by its token, else by its address.
func clientKey(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		return auth
	}
	return r.RemoteAddr
}
