package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Entry 是一个固定 key 的 JSON 缓存项，值类型为 T。
// 值按代存放（<key>@<gen>），Drop 进入下一代。
type Entry[T any] struct {
	c   *Cache
	key string
	ttl time.Duration
}

func NewEntry[T any](c *Cache, key string, ttl time.Duration) Entry[T] {
	return Entry[T]{c: c, key: key, ttl: ttl}
}

func (e Entry[T]) enabled() bool { return e.c != nil && e.c.RDB != nil && e.ttl > 0 }

// Get 命中则解码返回，否则调用 load 并写回。load 返回 nil 时不写缓存。
func (e Entry[T]) Get(ctx context.Context, load func(context.Context) (*T, error)) (*T, error) {
	if !e.enabled() {
		return load(ctx)
	}
	gen, err := e.c.generation(ctx, e.key)
	if err != nil {
		e.c.report(e.c.genKey(e.key), err)
		return load(ctx)
	}
	key := fmt.Sprintf("%s@%d", e.key, gen)

	var loaded *T
	b, err := e.c.GetOrLoad(ctx, key, e.ttl, func(ctx context.Context) ([]byte, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, errSkip
		}
		loaded = v
		return json.Marshal(v)
	})
	switch {
	case errors.Is(err, errSkip):
		return nil, nil
	case err != nil:
		return nil, err
	case loaded != nil:
		return loaded, nil
	}
	out := new(T)
	if err := json.Unmarshal(b, out); err != nil {
		// 旧格式的值：删掉后直接回源
		e.c.Invalidate(ctx, key)
		return load(ctx)
	}
	return out, nil
}

// Drop 使当前值失效，写操作提交后调用
func (e Entry[T]) Drop(ctx context.Context) { e.c.Bump(ctx, e.key) }
