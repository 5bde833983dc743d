package redis

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds the caller's token,
// so an expired and re-acquired key is never freed by the previous owner.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// StartGuard implements usecase.StartGuard across processes with SET NX.
type StartGuard struct {
	client redis.Cmdable
	prefix string
}

// NewStartGuard creates a new StartGuard.
func NewStartGuard(client redis.Cmdable) *StartGuard {
	return &StartGuard{
		client: client,
		prefix: "genfin:guard:",
	}
}

// TryAcquire takes key for ttl under a fresh token. It never waits for a
// current holder.
func (g *StartGuard) TryAcquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := ulid.Make().String()

	ok, err := g.client.SetNX(ctx, g.prefix+key, token, ttl).Result()
	if err != nil || !ok {
		return "", false, err
	}

	return token, true, nil
}

// Release frees key if it is still held under token.
func (g *StartGuard) Release(ctx context.Context, key, token string) error {
	return releaseScript.Run(ctx, g.client, []string{g.prefix + key}, token).Err()
}
