package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

type window struct {
	hits  int
	reset time.Time
}

// limiter counts requests per client in fixed windows. Expired windows are
// dropped whenever the map is swept, at most once per window length.
type limiter struct {
	mu      sync.Mutex
	limit   int
	per     time.Duration
	now     func() time.Time
	clients map[string]*window
	swept   time.Time
}

func (l *limiter) allow(client string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.swept) >= l.per {
		for key, w := range l.clients {
			if now.After(w.reset) {
				delete(l.clients, key)
			}
		}
		l.swept = now
	}

	w, ok := l.clients[client]
	if !ok || now.After(w.reset) {
		w = &window{reset: now.Add(l.per)}
		l.clients[client] = w
	}
	if w.hits >= l.limit {
		return false, w.reset.Sub(now)
	}
	w.hits++
	return true, 0
}

// RateLimit allows limit requests per client IP in each window of length per.
// It expects chi's RealIP to have run first. A non-positive limit disables
// limiting.
func RateLimit(limit int, per time.Duration) func(http.Handler) http.Handler {
	if limit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	l := &limiter{limit: limit, per: per, now: time.Now, clients: make(map[string]*window)}
	return l.middleware
}

func (l *limiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, wait := l.allow(clientHost(r.RemoteAddr))
		if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(wait.Seconds())+1))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"code":"rate_limited","message":"too many requests"}}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientHost(remoteAddr string) string {
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}
