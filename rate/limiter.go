// Package rate keeps one token bucket per client, forgetting the clients idle
// for longer than the expiry.
package rate

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type Limiter struct {
	Expiry   time.Duration
	Burst    int
	LimitRPS float64

	mu      sync.Mutex
	clients map[string]*clientLimiter
	stop    chan struct{}
	once    sync.Once
}

type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// NewLimiter starts a limiter allowing limitRPS events per second per client
// with bursts of burst events. Close releases its sweeping goroutine.
func NewLimiter(burst int, expiry time.Duration, limitRPS float64) *Limiter {
	lm := &Limiter{
		Expiry:   expiry,
		LimitRPS: limitRPS,
		Burst:    burst,
		clients:  make(map[string]*clientLimiter),
		stop:     make(chan struct{}),
	}
	go lm.refresh(time.Minute)
	return lm
}

func (l *Limiter) Check(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	cl, ok := l.clients[id]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(l.LimitRPS), l.Burst)}
		l.clients[id] = cl
	}
	cl.lastAccess = time.Now()
	return cl.limiter.Allow()
}

func (l *Limiter) Close() {
	l.once.Do(func() { close(l.stop) })
}

func (l *Limiter) refresh(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-t.C:
		}
		l.forget(time.Now())
	}
}

func (l *Limiter) forget(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for id, v := range l.clients {
		if now.Sub(v.lastAccess) > l.Expiry {
			delete(l.clients, id)
		}
	}
}

func (l *Limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

func Every(interval time.Duration) float64 {
	return float64(rate.Every(interval))
}
