package repository

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/party-booking/internal/model"
)

// RedisStore is the local key-value cache backend.  All reservations live in
// one hash, field = id, value = JSON record.
type RedisStore struct {
	rdb *redis.Client
	key string
	log *zap.Logger
}

// NewRedisStore returns a store using "<prefix>:reservations" as its hash.
func NewRedisStore(rdb *redis.Client, prefix string, log *zap.Logger) *RedisStore {
	if prefix == "" {
		prefix = "party"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisStore{rdb: rdb, key: prefix + ":reservations", log: log}
}

func (s *RedisStore) Name() string { return SourceCache }

// List decodes every entry of the hash, ordered by id.  Entries that do not
// decode are skipped and logged rather than failing the whole cache.
func (s *RedisStore) List(ctx context.Context) ([]model.Reservation, error) {
	entries, err := s.rdb.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, s.classify("list", err)
	}
	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]model.Reservation, 0, len(ids))
	for _, id := range ids {
		var r model.Reservation
		if err := json.Unmarshal([]byte(entries[id]), &r); err != nil {
			s.log.Warn("skipping cache entry", zap.String("key", s.key), zap.String("field", id), zap.Error(err))
			continue
		}
		if r.ID == "" {
			r.ID = id
		}
		out = append(out, r)
	}
	return out, nil
}

// Create stores r, refusing to overwrite an existing id.
func (s *RedisStore) Create(ctx context.Context, r model.Reservation) error {
	if strings.TrimSpace(r.ID) == "" {
		return newError(s.Name(), "create", ErrSchemaMismatch, errors.New("id is required"))
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return newError(s.Name(), "create", ErrSchemaMismatch, err)
	}
	ok, err := s.rdb.HSetNX(ctx, s.key, r.ID, payload).Result()
	if err != nil {
		return s.classify("create", err)
	}
	if !ok {
		return newError(s.Name(), "create", ErrConflict, nil)
	}
	return nil
}

// Update replaces the entry matched by id or natural key.  When the match
// came through the natural key the stored id is kept.
func (s *RedisStore) Update(ctx context.Context, r model.Reservation) error {
	field, existing, err := s.find(ctx, "update", KeyOf(r))
	if err != nil {
		return err
	}
	r.ID = field
	if r.CreatedAt.IsZero() {
		r.CreatedAt = existing.CreatedAt
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return newError(s.Name(), "update", ErrSchemaMismatch, err)
	}
	if err := s.rdb.HSet(ctx, s.key, field, payload).Err(); err != nil {
		return s.classify("update", err)
	}
	return nil
}

// Delete removes the entry matched by id or natural key.
func (s *RedisStore) Delete(ctx context.Context, key Key) error {
	field, _, err := s.find(ctx, "delete", key)
	if err != nil {
		return err
	}
	if err := s.rdb.HDel(ctx, s.key, field).Err(); err != nil {
		return s.classify("delete", err)
	}
	return nil
}

func (s *RedisStore) find(ctx context.Context, op string, key Key) (string, model.Reservation, error) {
	if key.ID != "" {
		raw, err := s.rdb.HGet(ctx, s.key, key.ID).Result()
		switch {
		case err == nil:
			var r model.Reservation
			if err := json.Unmarshal([]byte(raw), &r); err != nil {
				return "", r, newError(s.Name(), op, ErrSchemaMismatch, err)
			}
			return key.ID, r, nil
		case !errors.Is(err, redis.Nil):
			return "", model.Reservation{}, s.classify(op, err)
		}
	}
	if !key.Natural.IsZero() {
		all, err := s.List(ctx)
		if err != nil {
			return "", model.Reservation{}, err
		}
		for _, r := range all {
			if r.NaturalKey() == key.Natural {
				return r.ID, r, nil
			}
		}
	}
	return "", model.Reservation{}, newError(s.Name(), op, ErrNotFound, nil)
}

func (s *RedisStore) classify(op string, err error) error {
	if cerr := wrapContext(s.Name(), op, err); cerr != nil {
		return cerr
	}
	if strings.HasPrefix(err.Error(), "NOAUTH") || strings.HasPrefix(err.Error(), "NOPERM") {
		return newError(s.Name(), op, ErrPermissionDenied, err)
	}
	if strings.HasPrefix(err.Error(), "WRONGTYPE") {
		return newError(s.Name(), op, ErrSchemaMismatch, err)
	}
	return newError(s.Name(), op, ErrUnavailable, err)
}
