package authserver

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// clientIdleTTL is how long a client's bucket survives without requests.
const clientIdleTTL = 15 * time.Minute

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiter throttles sign-in traffic per client host. Buckets idle for
// longer than idleTTL are swept on the next lookup.
type clientLimiter struct {
	mu      sync.Mutex
	buckets map[string]*clientBucket
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time
}

func newClientLimiter(rps float64, burst int) *clientLimiter {
	return &clientLimiter{
		buckets: make(map[string]*clientBucket),
		limit:   rate.Limit(rps),
		burst:   burst,
		idleTTL: clientIdleTTL,
		now:     time.Now,
	}
}

// clientHost strips the port from a RemoteAddr. Addresses without a port
// (as set by chi's RealIP) are returned unchanged.
func clientHost(remoteAddr string) string {
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}

func (cl *clientLimiter) allow(remoteAddr string) bool {
	host := clientHost(remoteAddr)
	now := cl.now()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	for k, b := range cl.buckets {
		if now.Sub(b.lastSeen) > cl.idleTTL {
			delete(cl.buckets, k)
		}
	}
	b, ok := cl.buckets[host]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(cl.limit, cl.burst)}
		cl.buckets[host] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

func (cl *clientLimiter) size() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return len(cl.buckets)
}

// throttle rejects requests over the client's budget with 429.
func throttle(cl *clientLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cl.allow(r.RemoteAddr) {
				w.Header().Set("Retry-After", "1")
				writePage(w, http.StatusTooManyRequests, "Slow down", "Too many sign-in requests. Wait a moment and try again.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
