// internal/room/backend.go
package room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRecordNotFound is returned by Backend.Load when no room is stored under the id.
var ErrRecordNotFound = errors.New("room record not found")

// Backend is the durable store behind the in-memory rooms.
type Backend interface {
	Save(ctx context.Context, rec *Record, sel Selector) error
	Load(ctx context.Context, id string) (*Record, error)
	Delete(ctx context.Context, id string) error
	Exists(ctx context.Context, id string) (bool, error)
	Ping(ctx context.Context) error
}

const (
	partMetadata = "meta"
	partPlayers  = "players"
	partGame     = "game"
	partChat     = "chat"
)

var parts = []string{partMetadata, partPlayers, partGame, partChat}

// RedisBackend stores each room as four JSON values under
// "<prefix>:room:<id>:<part>", all sharing one expiry.
type RedisBackend struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisBackend wraps rdb. Every write resets the expiry of all four keys to ttl.
func NewRedisBackend(rdb *redis.Client, prefix string, ttl time.Duration) *RedisBackend {
	return &RedisBackend{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (b *RedisBackend) key(id, part string) string {
	return fmt.Sprintf("%s:room:%s:%s", b.prefix, id, part)
}

func (b *RedisBackend) keys(id string) []string {
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = b.key(id, p)
	}
	return out
}

// Save writes the selected parts of rec in one MULTI/EXEC block.
func (b *RedisBackend) Save(ctx context.Context, rec *Record, sel Selector) error {
	id, err := recordID(rec)
	if err != nil {
		return err
	}

	values := make(map[string][]byte)
	encode := func(part string, v any) error {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s for room %s: %w", part, id, err)
		}
		values[part] = data
		return nil
	}
	if sel.Has(SelectMetadata) && rec.Metadata != nil {
		if err := encode(partMetadata, rec.Metadata); err != nil {
			return err
		}
	}
	if sel.Has(SelectPlayers) {
		if err := encode(partPlayers, nonNil(rec.Players)); err != nil {
			return err
		}
	}
	if sel.Has(SelectGame) && rec.Game != nil {
		if err := encode(partGame, rec.Game); err != nil {
			return err
		}
	}
	if sel.Has(SelectChat) {
		if err := encode(partChat, nonNil(rec.Chat)); err != nil {
			return err
		}
	}

	_, err = b.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for part, data := range values {
			pipe.Set(ctx, b.key(id, part), data, b.ttl)
		}
		if sel.Has(SelectGame) && rec.Game == nil {
			pipe.Del(ctx, b.key(id, partGame))
		}
		for _, k := range b.keys(id) {
			pipe.Expire(ctx, k, b.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save room %s: %w", id, err)
	}
	return nil
}

// Load reads every part of a room. A room without metadata does not exist.
func (b *RedisBackend) Load(ctx context.Context, id string) (*Record, error) {
	vals, err := b.rdb.MGet(ctx, b.keys(id)...).Result()
	if err != nil {
		return nil, fmt.Errorf("load room %s: %w", id, err)
	}
	if vals[0] == nil {
		return nil, ErrRecordNotFound
	}

	rec := &Record{}
	targets := []any{&rec.Metadata, &rec.Players, &rec.Game, &rec.Chat}
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if err := json.Unmarshal([]byte(s), targets[i]); err != nil {
			return nil, fmt.Errorf("decode %s for room %s: %w", parts[i], id, err)
		}
	}
	if rec.Metadata == nil {
		return nil, ErrRecordNotFound
	}
	return rec, nil
}

func (b *RedisBackend) Delete(ctx context.Context, id string) error {
	if err := b.rdb.Del(ctx, b.keys(id)...).Err(); err != nil {
		return fmt.Errorf("delete room %s: %w", id, err)
	}
	return nil
}

func (b *RedisBackend) Exists(ctx context.Context, id string) (bool, error) {
	n, err := b.rdb.Exists(ctx, b.key(id, partMetadata)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (b *RedisBackend) Ping(ctx context.Context) error {
	return b.rdb.Ping(ctx).Err()
}

func recordID(rec *Record) (string, error) {
	if rec == nil || rec.Metadata == nil || rec.Metadata.ID == "" {
		return "", errors.New("room record has no metadata id")
	}
	return rec.Metadata.ID, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
