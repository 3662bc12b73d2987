package security

import (
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// visitor wraps a limiter with its last activity so stale entries can be
// reclaimed.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// FloodLimiter throttles inbound events per sender id. Entries idle for
// three windows (at least a minute) are cleaned up by a background loop.
type FloodLimiter struct {
	mu     sync.Mutex
	store  map[int64]*visitor
	rate   rate.Limit
	burst  int
	window time.Duration
}

func NewFloodLimiter(maxEvents int, window time.Duration) *FloodLimiter {
	f := &FloodLimiter{
		store:  make(map[int64]*visitor),
		rate:   rate.Every(window / time.Duration(maxEvents)),
		burst:  maxEvents,
		window: window,
	}
	go f.cleanup()
	return f
}

func (f *FloodLimiter) Allow(senderID int64) bool {
	f.mu.Lock()
	v, exists := f.store[senderID]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(f.rate, f.burst)}
		f.store[senderID] = v
	}
	v.lastSeen = time.Now()
	f.mu.Unlock()

	return v.limiter.Allow()
}

func (f *FloodLimiter) cleanup() {
	expiry := f.window * 3
	if expiry < time.Minute {
		expiry = time.Minute
	}
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		f.mu.Lock()
		for id, v := range f.store {
			if time.Since(v.lastSeen) > expiry {
				delete(f.store, id)
			}
		}
		f.mu.Unlock()
	}
}
