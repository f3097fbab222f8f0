// Package rediscache decorates a storage.Store with a short-lived Redis
// cache of each collection's newest key, so bootstrap bursts from many
// consumers hit Redis instead of the backing store.
package rediscache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/corbtastik/incident-visualizer/internal/cursor"
	"github.com/corbtastik/incident-visualizer/internal/storage"
	"github.com/corbtastik/incident-visualizer/pkg/log"
)

// DefaultTTL bounds how stale a cached newest key may be.
const DefaultTTL = time.Second

// Options configures the cache.
type Options struct {
	TTL    time.Duration
	Prefix string
	Logger log.Logger
}

// Store is the caching decorator.
type Store struct {
	storage.Store
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
	logger log.Logger
}

// Wrap decorates inner. The result also implements storage.Appender when
// inner does; appends refresh the cached key.
func Wrap(inner storage.Store, rdb *redis.Client, opts Options) storage.Store {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Prefix == "" {
		opts.Prefix = "incidents:"
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNop()
	}
	s := &Store{
		Store:  inner,
		rdb:    rdb,
		ttl:    opts.TTL,
		prefix: opts.Prefix,
		logger: opts.Logger.WithComponent("rediscache"),
	}
	if a, ok := inner.(storage.Appender); ok {
		return &appending{Store: s, app: a}
	}
	return s
}

func (s *Store) key(coll string) string { return s.prefix + "newest:" + coll }

// Newest serves from Redis when fresh, else from the wrapped store. Empty
// collections are not cached.
func (s *Store) Newest(ctx context.Context, coll string) (cursor.Key, bool, error) {
	val, err := s.rdb.Get(ctx, s.key(coll)).Result()
	switch {
	case err == nil:
		if k, derr := cursor.Decode(val); derr == nil {
			return k, true, nil
		}
		s.logger.Warn("dropping undecodable cached key", log.Str("collection", coll))
		s.rdb.Del(ctx, s.key(coll))
	case !errors.Is(err, redis.Nil):
		s.logger.Debug("cache read failed", log.Str("collection", coll), log.Err(err))
	}

	k, ok, err := s.Store.Newest(ctx, coll)
	if err != nil || !ok {
		return k, ok, err
	}
	s.remember(ctx, coll, k)
	return k, true, nil
}

func (s *Store) remember(ctx context.Context, coll string, k cursor.Key) {
	if err := s.rdb.Set(ctx, s.key(coll), cursor.Encode(k), s.ttl).Err(); err != nil {
		s.logger.Debug("cache write failed", log.Str("collection", coll), log.Err(err))
	}
}

// Ping checks both Redis and the wrapped store.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return err
	}
	return s.Store.Ping(ctx)
}

// Close closes the wrapped store and the Redis client.
func (s *Store) Close() error {
	return errors.Join(s.Store.Close(), s.rdb.Close())
}

type appending struct {
	*Store
	app storage.Appender
}

func (a *appending) Append(ctx context.Context, coll string, docs []map[string]any) ([]cursor.Key, error) {
	keys, err := a.app.Append(ctx, coll, docs)
	if err != nil || len(keys) == 0 {
		return keys, err
	}
	a.remember(ctx, coll, keys[len(keys)-1])
	return keys, nil
}
