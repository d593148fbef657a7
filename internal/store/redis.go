package store

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"timerdash/internal/model"
)

// RedisOptions configures the Redis backend.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// Key is the hash holding id -> JSON document.
	Key string
}

// RedisStore keeps all events in a single hash.
type RedisStore struct {
	rdb *redis.Client
	key string
}

// NewRedisStore connects to Redis and verifies the connection with PING.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	if opts.Addr == "" {
		return nil, errors.New("redis store: address is empty")
	}
	if opts.Key == "" {
		opts.Key = "events"
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "redis store: ping")
	}
	return &RedisStore{rdb: rdb, key: "timerdash:" + opts.Key}, nil
}

func (s *RedisStore) List(ctx context.Context) ([]model.Event, error) {
	docs, err := s.rdb.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, errors.Wrap(err, "redis store: hgetall")
	}
	out := make([]model.Event, 0, len(docs))
	for id, doc := range docs {
		var ev model.Event
		if err := json.Unmarshal([]byte(doc), &ev); err != nil {
			return nil, errors.Wrapf(err, "redis store: decode %s", id)
		}
		out = append(out, ev)
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (model.Event, error) {
	doc, err := s.rdb.HGet(ctx, s.key, id).Result()
	if errors.Is(err, redis.Nil) {
		return model.Event{}, ErrNotFound
	}
	if err != nil {
		return model.Event{}, errors.Wrapf(err, "redis store: hget %s", id)
	}
	var ev model.Event
	if err := json.Unmarshal([]byte(doc), &ev); err != nil {
		return model.Event{}, errors.Wrapf(err, "redis store: decode %s", id)
	}
	return ev, nil
}

func (s *RedisStore) Create(ctx context.Context, ev model.Event) error {
	doc, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "redis store: encode")
	}
	ok, err := s.rdb.HSetNX(ctx, s.key, ev.ID, doc).Result()
	if err != nil {
		return errors.Wrapf(err, "redis store: hsetnx %s", ev.ID)
	}
	if !ok {
		return ErrExists
	}
	return nil
}

func (s *RedisStore) Update(ctx context.Context, ev model.Event) error {
	doc, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "redis store: encode")
	}
	exists, err := s.rdb.HExists(ctx, s.key, ev.ID).Result()
	if err != nil {
		return errors.Wrapf(err, "redis store: hexists %s", ev.ID)
	}
	if !exists {
		return ErrNotFound
	}
	if err := s.rdb.HSet(ctx, s.key, ev.ID, doc).Err(); err != nil {
		return errors.Wrapf(err, "redis store: hset %s", ev.ID)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	n, err := s.rdb.HDel(ctx, s.key, id).Result()
	if err != nil {
		return errors.Wrapf(err, "redis store: hdel %s", id)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
