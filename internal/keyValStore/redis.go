package keyValStore

import (
	"context"
	"errors"
	"fmt"

	"github.com/i5heu/cactusdisk/pkg/types"
	"github.com/redis/go-redis/v9"
)

const defaultRedisKeyPrefix = "cactus:"

// redisDatabase shares one backend between many writers. Every key a
// transaction reads is WATCHed and the writes are applied with MULTI/EXEC,
// so a concurrent change of any read key fails the commit.
type redisDatabase struct {
	client *redis.Client
	prefix string
}

func openRedis(config StoreConfig, create bool) (*redisDatabase, error) {
	prefix := config.RedisKeyPrefix
	if prefix == "" {
		prefix = defaultRedisKeyPrefix
	}

	client := redis.NewClient(&redis.Options{
		Addr: config.RedisAddr,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("error connecting to redis at %s: %w", config.RedisAddr, err)
	}

	d := &redisDatabase{client: client, prefix: prefix}
	if create {
		if err := d.dropAll(ctx); err != nil {
			client.Close()
			return nil, fmt.Errorf("error emptying redis: %w", err)
		}
	}

	return d, nil
}

func (d *redisDatabase) dropAll(ctx context.Context) error {
	iter := d.client.Scan(ctx, 0, d.prefix+"*", 1000).Iterator()
	for iter.Next(ctx) {
		if err := d.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func (d *redisDatabase) key(name types.Name) string {
	return d.prefix + name.String()
}

func (d *redisDatabase) Begin() (Transaction, error) {
	return &redisTransaction{
		ctx:     context.Background(),
		db:      d,
		conn:    d.client.Conn(),
		pending: make(map[types.Name][]byte),
		removed: make(map[types.Name]bool),
	}, nil
}

func (d *redisDatabase) Close() error {
	return d.client.Close()
}

type redisTransaction struct {
	ctx     context.Context
	db      *redisDatabase
	conn    *redis.Conn
	pending map[types.Name][]byte
	removed map[types.Name]bool
	closed  bool
}

func (t *redisTransaction) watch(key types.Name) error {
	return t.conn.Do(t.ctx, "WATCH", t.db.key(key)).Err()
}

func (t *redisTransaction) ContainsRecord(key types.Name) (bool, error) {
	if _, ok := t.pending[key]; ok {
		return true, nil
	}
	if t.removed[key] {
		return false, nil
	}
	if err := t.watch(key); err != nil {
		return false, err
	}
	n, err := t.conn.Exists(t.ctx, t.db.key(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (t *redisTransaction) InsertRecord(key types.Name, value []byte) error {
	exists, err := t.ContainsRecord(key)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrRecordExists, key)
	}
	t.put(key, value)
	return nil
}

func (t *redisTransaction) UpdateRecord(key types.Name, value []byte) error {
	exists, err := t.ContainsRecord(key)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrRecordNotFound, key)
	}
	t.put(key, value)
	return nil
}

func (t *redisTransaction) put(key types.Name, value []byte) {
	v := make([]byte, len(value))
	copy(v, value)
	t.pending[key] = v
	delete(t.removed, key)
}

func (t *redisTransaction) RemoveRecord(key types.Name) error {
	exists, err := t.ContainsRecord(key)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrRecordNotFound, key)
	}
	delete(t.pending, key)
	t.removed[key] = true
	return nil
}

func (t *redisTransaction) GetRecord(key types.Name) ([]byte, error) {
	if v, ok := t.pending[key]; ok {
		out := make([]byte, len(v))
		copy(out, v)
		return out, nil
	}
	if t.removed[key] {
		return nil, nil
	}
	if err := t.watch(key); err != nil {
		return nil, err
	}
	value, err := t.conn.Get(t.ctx, t.db.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading key %s: %w", key, err)
	}
	return value, nil
}

func (t *redisTransaction) GetPartialRecord(key types.Name, offset, size int64) ([]byte, error) {
	if _, ok := t.pending[key]; ok || t.removed[key] {
		value, err := t.GetRecord(key)
		if err != nil {
			return nil, err
		}
		if value == nil {
			return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, key)
		}
		return partial(value, key, offset, size)
	}

	exists, err := t.ContainsRecord(key)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, key)
	}
	length, err := t.conn.StrLen(t.ctx, t.db.key(key)).Result()
	if err != nil {
		return nil, err
	}
	if offset < 0 || size < 0 || offset+size > length {
		return nil, fmt.Errorf("%w: key %s offset %d size %d record length %d", ErrOutOfRange, key, offset, size, length)
	}
	if size == 0 {
		return []byte{}, nil
	}
	return t.conn.GetRange(t.ctx, t.db.key(key), offset, offset+size-1).Bytes()
}

func (t *redisTransaction) Commit() error {
	defer t.close()

	if len(t.pending) == 0 && len(t.removed) == 0 {
		return t.conn.Do(t.ctx, "UNWATCH").Err()
	}

	_, err := t.conn.TxPipelined(t.ctx, func(pipe redis.Pipeliner) error {
		for key, value := range t.pending {
			pipe.Set(t.ctx, t.db.key(key), value, 0)
		}
		for key := range t.removed {
			pipe.Del(t.ctx, t.db.key(key))
		}
		return nil
	})
	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("%w: %v", ErrRetryTransaction, err)
	}
	return err
}

func (t *redisTransaction) Abort() {
	if t.closed {
		return
	}
	t.conn.Do(t.ctx, "UNWATCH")
	t.close()
}

func (t *redisTransaction) close() {
	if t.closed {
		return
	}
	t.closed = true
	t.conn.Close()
}
