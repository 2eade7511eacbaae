package listener

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/indragiek/reactivexpc/pkg/connection"
)

// AcceptPolicy decides whether an accepted endpoint is kept. It runs on
// the acceptor goroutine before the endpoint is resumed, so it may query
// peer credentials.
type AcceptPolicy func(*connection.Connection) bool

// AcceptAll keeps every endpoint.
func AcceptAll(*connection.Connection) bool { return true }

// All keeps an endpoint only if every policy keeps it. Policies run in
// order and evaluation stops at the first rejection. Nil policies are
// skipped.
func All(policies ...AcceptPolicy) AcceptPolicy {
	return func(c *connection.Connection) bool {
		for _, p := range policies {
			if p != nil && !p(c) {
				return false
			}
		}
		return true
	}
}

// AllowUIDs keeps endpoints whose peer runs as one of uids.
func AllowUIDs(uids ...uint32) AcceptPolicy {
	allowed := make(map[uint32]struct{}, len(uids))
	for _, uid := range uids {
		allowed[uid] = struct{}{}
	}
	return func(c *connection.Connection) bool {
		_, ok := allowed[c.EffectiveUserID()]
		return ok
	}
}

// RateLimit keeps at most perSecond new endpoints per second for each peer
// user, with bursts of up to burst. Limiters of users idle for longer than
// idleTTL are evicted. A non-positive perSecond or burst disables limiting.
func RateLimit(perSecond float64, burst int, idleTTL time.Duration) AcceptPolicy {
	l := newUIDLimiter(perSecond, burst, idleTTL)
	if l == nil {
		return AcceptAll
	}
	return func(c *connection.Connection) bool {
		return l.allow(c.EffectiveUserID(), time.Now())
	}
}

// uidLimiter applies a token bucket per peer user.
type uidLimiter struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration

	mu    sync.Mutex
	byUID map[uint32]*limiterEntry
	hits  uint64
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newUIDLimiter(perSecond float64, burst int, idleTTL time.Duration) *uidLimiter {
	if perSecond <= 0 || burst <= 0 {
		return nil
	}
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &uidLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		idleTTL: idleTTL,
		byUID:   make(map[uint32]*limiterEntry),
	}
}

func (l *uidLimiter) allow(uid uint32, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.byUID[uid]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.byUID[uid] = e
	}
	e.lastSeen = now
	allowed := e.limiter.AllowN(now, 1)

	l.hits++
	if l.hits%512 == 0 {
		l.evictLocked(now)
	}
	return allowed
}

func (l *uidLimiter) evictLocked(now time.Time) {
	cutoff := now.Add(-l.idleTTL)
	for uid, e := range l.byUID {
		if e.lastSeen.Before(cutoff) {
			delete(l.byUID, uid)
		}
	}
}

func (l *uidLimiter) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.byUID)
}
