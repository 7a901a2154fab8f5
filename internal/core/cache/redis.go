package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Cache 为 nil 时所有方法直接回源，方便未配置 Redis 的环境
type Cache struct {
	RDB    *redis.Client
	Prefix string

	// OnError 接收写缓存失败，可为 nil
	OnError func(key string, err error)

	sf singleflight.Group
}

func New(addr, pass string, db int) *Cache {
	return &Cache{
		RDB:    redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db}),
		Prefix: "tms:",
	}
}

var errSkip = errors.New("cache: skip store")

func (c *Cache) key(k string) string { return c.Prefix + k }

func (c *Cache) Ping(ctx context.Context) error {
	if c == nil || c.RDB == nil {
		return errors.New("redis not configured")
	}
	return c.RDB.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	if c == nil || c.RDB == nil {
		return nil
	}
	return c.RDB.Close()
}

func (c *Cache) GetOrLoad(ctx context.Context, key string, ttl time.Duration, load func(context.Context) ([]byte, error)) ([]byte, error) {
	if c == nil || c.RDB == nil || ttl <= 0 {
		return load(ctx)
	}
	k := c.key(key)
	if b, err := c.RDB.Get(ctx, k).Bytes(); err == nil {
		return b, nil
	}
	// 并发回源合并
	v, err, _ := c.sf.Do(k, func() (any, error) {
		b, e := load(ctx)
		if e != nil {
			return nil, e
		}
		if err := c.RDB.Set(ctx, k, b, ttl).Err(); err != nil {
			c.report(k, err)
		}
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Invalidate 删除缓存键；Redis 不可用时忽略
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if c == nil || c.RDB == nil || len(keys) == 0 {
		return
	}
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, c.key(k))
	}
	_ = c.RDB.Del(ctx, full...).Err()
}

func (c *Cache) report(key string, err error) {
	if c.OnError != nil {
		c.OnError(key, err)
	}
}

func (c *Cache) genKey(k string) string { return c.key(k) + ":gen" }

// generation 返回 key 的当前代数，从未 Bump 过时为 0
func (c *Cache) generation(ctx context.Context, k string) (int64, error) {
	n, err := c.RDB.Get(ctx, c.genKey(k)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// Bump 让 key 进入下一代。旧代的值（包括 Bump 之前已开始、之后才写入的回源结果）不再被读取，随 TTL 过期。
func (c *Cache) Bump(ctx context.Context, keys ...string) {
	if c == nil || c.RDB == nil {
		return
	}
	for _, k := range keys {
		if err := c.RDB.Incr(ctx, c.genKey(k)).Err(); err != nil {
			c.report(c.genKey(k), err)
		}
	}
}
