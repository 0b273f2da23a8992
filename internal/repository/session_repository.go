package repository

import (
	"context"
	"time"

	"sql-helper/internal/pkg/errors"

	goredis "github.com/redis/go-redis/v9"
)

// SessionRepository stores session entries as plain Redis strings with a TTL.
// Each identity also owns a set of its session keys so that "every session for
// this identity" never needs a keyspace scan.
type SessionRepository interface {
	// Replace drops every indexed session of the identity and writes the new
	// one. It returns how many previous entries were evicted.
	Replace(ctx context.Context, identity, token, value string, ttl time.Duration) (int64, error)
	// Lookup reports the stored value and remaining TTL. found is false when
	// the key does not exist.
	Lookup(ctx context.Context, identity, token string) (value string, ttl time.Duration, found bool, err error)
	Delete(ctx context.Context, identity, token string) error
	DeleteAll(ctx context.Context, identity string) (int64, error)
	// CountLive returns how many indexed entries still exist, pruning index
	// members whose keys already expired.
	CountLive(ctx context.Context, identity string) (int64, error)
}

type SessionOption func(*sessionRepository)

// WithSessionKeyPrefix sets the key namespace (default "session").
func WithSessionKeyPrefix(prefix string) SessionOption {
	return func(r *sessionRepository) { r.prefix = prefix }
}

type sessionRepository struct {
	client goredis.Cmdable
	prefix string
}

func NewSessionRepository(client goredis.Cmdable, opts ...SessionOption) SessionRepository {
	r := &sessionRepository{client: client, prefix: "session"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *sessionRepository) sessionKey(identity, token string) string {
	return r.prefix + ":" + identity + ":" + token
}

func (r *sessionRepository) indexKey(identity string) string {
	return r.prefix + "_index:" + identity
}

// replaceScript evicts and writes in one step so two racing logins cannot
// both survive.
// KEYS[1] = new session key
// KEYS[2] = identity index set
// ARGV[1] = value
// ARGV[2] = ttl in milliseconds
var replaceScript = goredis.NewScript(`
local members = redis.call('SMEMBERS', KEYS[2])
local evicted = 0
for _, key in ipairs(members) do
	evicted = evicted + redis.call('DEL', key)
end
redis.call('DEL', KEYS[2])
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
redis.call('SADD', KEYS[2], KEYS[1])
redis.call('PEXPIRE', KEYS[2], ARGV[2])
return evicted
`)

// deleteAllScript
// KEYS[1] = identity index set
var deleteAllScript = goredis.NewScript(`
local members = redis.call('SMEMBERS', KEYS[1])
local removed = 0
for _, key in ipairs(members) do
	removed = removed + redis.call('DEL', key)
end
redis.call('DEL', KEYS[1])
return removed
`)

func (r *sessionRepository) Replace(ctx context.Context, identity, token, value string, ttl time.Duration) (int64, error) {
	keys := []string{r.sessionKey(identity, token), r.indexKey(identity)}
	evicted, err := replaceScript.Run(ctx, r.client, keys, value, ttl.Milliseconds()).Int64()
	if err != nil {
		return 0, errors.Unavailable(err, "failed to write session")
	}
	return evicted, nil
}

func (r *sessionRepository) Lookup(ctx context.Context, identity, token string) (string, time.Duration, bool, error) {
	key := r.sessionKey(identity, token)

	pipe := r.client.Pipeline()
	getCmd := pipe.Get(ctx, key)
	ttlCmd := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil && err != goredis.Nil {
		return "", 0, false, errors.Unavailable(err, "failed to read session")
	}

	value, err := getCmd.Result()
	if err == goredis.Nil {
		return "", 0, false, nil
	}
	if err != nil {
		return "", 0, false, errors.Unavailable(err, "failed to read session")
	}

	// PTTL reports -1 for a key without expiry and -2 once it is gone.
	ttl, err := ttlCmd.Result()
	if err != nil {
		return "", 0, false, errors.Unavailable(err, "failed to read session ttl")
	}

	return value, ttl, true, nil
}

func (r *sessionRepository) Delete(ctx context.Context, identity, token string) error {
	key := r.sessionKey(identity, token)
	_, err := r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.SRem(ctx, r.indexKey(identity), key)
		return nil
	})
	if err != nil {
		return errors.Unavailable(err, "failed to delete session")
	}
	return nil
}

func (r *sessionRepository) DeleteAll(ctx context.Context, identity string) (int64, error) {
	removed, err := deleteAllScript.Run(ctx, r.client, []string{r.indexKey(identity)}).Int64()
	if err != nil {
		return 0, errors.Unavailable(err, "failed to delete sessions")
	}
	return removed, nil
}

func (r *sessionRepository) CountLive(ctx context.Context, identity string) (int64, error) {
	indexKey := r.indexKey(identity)
	members, err := r.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return 0, errors.Unavailable(err, "failed to read session index")
	}
	if len(members) == 0 {
		return 0, nil
	}

	pipe := r.client.Pipeline()
	checks := make([]*goredis.IntCmd, len(members))
	for i, key := range members {
		checks[i] = pipe.Exists(ctx, key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, errors.Unavailable(err, "failed to check sessions")
	}

	var live int64
	var stale []interface{}
	for i, cmd := range checks {
		if cmd.Val() > 0 {
			live++
			continue
		}
		stale = append(stale, members[i])
	}

	if len(stale) > 0 {
		if err := r.client.SRem(ctx, indexKey, stale...).Err(); err != nil {
			return 0, errors.Unavailable(err, "failed to prune session index")
		}
	}

	return live, nil
}
