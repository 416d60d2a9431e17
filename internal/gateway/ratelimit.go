package gateway

import (
	"net"
	"sync"
	"time"
)

// authRateLimiter tracks failed auth attempts per IP to slow brute-force
// guessing of the dashboard token or password.
type authRateLimiter struct {
	mu       sync.Mutex
	failures map[string][]time.Time
	now      func() time.Time
}

const (
	authRateWindow   = 5 * time.Minute
	authRateMaxFails = 10
	authRateMaxIPs   = 10000 // max tracked IPs
)

func newAuthRateLimiter() *authRateLimiter {
	return &authRateLimiter{
		failures: make(map[string][]time.Time),
		now:      time.Now,
	}
}

// run prunes stale entries every minute until done is closed.
func (l *authRateLimiter) run(done <-chan struct{}) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			l.prune()
		}
	}
}

func (l *authRateLimiter) prune() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-authRateWindow)
	for ip, times := range l.failures {
		if recent := recentSince(times, cutoff); len(recent) == 0 {
			delete(l.failures, ip)
		} else {
			l.failures[ip] = recent
		}
	}
}

func recentSince(times []time.Time, cutoff time.Time) []time.Time {
	filtered := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			filtered = append(filtered, t)
		}
	}
	return filtered
}

func clientHost(remoteAddr string) string {
	host, _, _ := net.SplitHostPort(remoteAddr)
	if host == "" {
		return remoteAddr
	}
	return host
}

func (l *authRateLimiter) allow(remoteAddr string) bool {
	host := clientHost(remoteAddr)

	l.mu.Lock()
	defer l.mu.Unlock()

	recent := recentSince(l.failures[host], l.now().Add(-authRateWindow))
	if len(recent) == 0 {
		delete(l.failures, host)
		return true
	}
	l.failures[host] = recent
	return len(recent) < authRateMaxFails
}

func (l *authRateLimiter) recordFailure(remoteAddr string) {
	host := clientHost(remoteAddr)

	l.mu.Lock()
	defer l.mu.Unlock()

	// Evict the oldest IP once the table is full.
	if _, exists := l.failures[host]; !exists && len(l.failures) >= authRateMaxIPs {
		var oldestIP string
		var oldestTime time.Time
		for ip, times := range l.failures {
			if len(times) > 0 && (oldestIP == "" || times[0].Before(oldestTime)) {
				oldestIP = ip
				oldestTime = times[0]
			}
		}
		if oldestIP != "" {
			delete(l.failures, oldestIP)
		}
	}

	l.failures[host] = append(l.failures[host], l.now())
}
