package redis

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	redislib "github.com/redis/go-redis/v9"
)

// newTestRedisClient starts an in-process Redis and returns a client bound
// to it. Both are closed when the test ends.
func newTestRedisClient(t *testing.T) (*redislib.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redislib.NewClient(&redislib.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return client, mr
}

// vanishingKeyHook deletes the key straight after a failed SETNX, the way an
// expiry or a concurrent Release would, for the first `times` attempts.
// A non-empty recreate value is written before each SETNX so the claim loses.
type vanishingKeyHook struct {
	mr       *miniredis.Miniredis
	times    int
	recreate string
	setnxs   int
}

func (h *vanishingKeyHook) DialHook(next redislib.DialHook) redislib.DialHook {
	return next
}

func (h *vanishingKeyHook) ProcessHook(next redislib.ProcessHook) redislib.ProcessHook {
	return func(ctx context.Context, cmd redislib.Cmder) error {
		if !isSetNX(cmd) {
			return next(ctx, cmd)
		}
		key := cmd.Args()[1].(string)
		if h.recreate != "" {
			h.mr.Set(key, h.recreate)
		}
		err := next(ctx, cmd)
		h.setnxs++
		if claimed, _ := cmd.(*redislib.BoolCmd).Result(); !claimed && h.times > 0 {
			h.times--
			h.mr.Del(key)
		}
		return err
	}
}

func (h *vanishingKeyHook) ProcessPipelineHook(next redislib.ProcessPipelineHook) redislib.ProcessPipelineHook {
	return next
}

// isSetNX reports whether cmd is a SETNX, which go-redis sends as SET ... NX
// when a TTL is given.
func isSetNX(cmd redislib.Cmder) bool {
	switch cmd.Name() {
	case "setnx":
		return true
	case "set":
		args := cmd.Args()
		return args[len(args)-1] == "nx"
	}
	return false
}
