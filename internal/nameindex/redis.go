package nameindex

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"bazaar/pkg/domain"
	"bazaar/pkg/platform/sentinel"
)

const redisKeyPrefix = "nameindex:"

// claimScript claims the key only when it is missing or a tombstone (empty
// value). Single round trip keeps the check-and-set atomic on the server.
var claimScript = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if v == false or v == '' then
	redis.call('SET', KEYS[1], ARGV[1])
	return 1
end
return 0
`)

// releaseScript clears the key to an empty tombstone (not DEL, matching the
// other implementations) only when it exists, in one atomic round trip.
var releaseScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	redis.call('SET', KEYS[1], '')
	return 1
end
return 0
`)

// Redis keeps the index in Redis for deployments that share one index across
// instances without a SQL database. Note it cannot join a SQL transaction;
// pair it with the in-memory transaction runner, which serializes writers
// and compensates on failure.
type Redis struct {
	client    *redis.Client
	namespace string
}

func NewRedis(client *redis.Client, namespace string) *Redis {
	return &Redis{client: client, namespace: namespace}
}

func (s *Redis) key(name string) string {
	return redisKeyPrefix + s.namespace + ":" + name
}

func (s *Redis) Claim(ctx context.Context, name string, target domain.Address) error {
	ok, err := claimScript.Run(ctx, s.client, []string{s.key(name)}, target.String()).Int()
	if err != nil {
		return fmt.Errorf("claim name: %w", err)
	}
	if ok == 0 {
		return sentinel.ErrAlreadyUsed
	}
	return nil
}

func (s *Redis) Release(ctx context.Context, name string) error {
	n, err := releaseScript.Run(ctx, s.client, []string{s.key(name)}).Int()
	if err != nil {
		return fmt.Errorf("release name: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Redis) Lookup(ctx context.Context, name string) (domain.Address, error) {
	v, err := s.client.Get(ctx, s.key(name)).Result()
	if errors.Is(err, redis.Nil) {
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup name: %w", err)
	}
	if v == "" {
		return "", sentinel.ErrNotFound
	}
	return domain.Address(v), nil
}
