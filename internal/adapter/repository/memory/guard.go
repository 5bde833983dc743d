package memory

import (
	"context"
	"strconv"
	"sync"
	"time"
)

type lease struct {
	token   string
	expires time.Time
}

// Guard implements usecase.StartGuard within one process.
type Guard struct {
	mu   sync.Mutex
	held map[string]lease
	seq  uint64
	now  func() time.Time
}

// NewGuard creates a new Guard.
func NewGuard() *Guard {
	return &Guard{held: make(map[string]lease), now: time.Now}
}

// TryAcquire takes key unless it is held and not yet expired.
func (g *Guard) TryAcquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if l, ok := g.held[key]; ok && now.Before(l.expires) {
		return "", false, nil
	}

	g.seq++
	token := strconv.FormatUint(g.seq, 10)
	g.held[key] = lease{token: token, expires: now.Add(ttl)}

	return token, true, nil
}

// Release frees key if it is still held under token.
func (g *Guard) Release(ctx context.Context, key, token string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if l, ok := g.held[key]; ok && l.token == token {
		delete(g.held, key)
	}
	return nil
}
