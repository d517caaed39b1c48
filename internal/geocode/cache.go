package geocode

import (
	"container/list"
	"context"
	"encoding/json"
	"sync"
	"time"

	"aoi-map/internal/logger"

	"github.com/redis/go-redis/v9"
)

// Cache：查询结果缓存，键为规范化后的查询串与条数
type Cache interface {
	Get(ctx context.Context, key string) ([]Candidate, bool)
	Set(ctx context.Context, key string, v []Candidate)
}

// 文档注释：进程内 LRU 缓存
// 背景：同一地名在短时间内会被重复输入，缓存可减少对公共 Nominatim 的请求（其使用政策限制 1 req/s）。
// 约束：过期条目在读取时惰性淘汰；容量满时淘汰最久未用。
type LRU struct {
	mu   sync.Mutex
	cap  int
	ttl  time.Duration
	now  func() time.Time
	lst  *list.List
	dict map[string]*list.Element
}

type entry struct {
	k   string
	v   []Candidate
	exp time.Time
}

func NewLRU(capacity int, ttl time.Duration) *LRU {
	if capacity <= 0 {
		capacity = 1
	}
	return &LRU{cap: capacity, ttl: ttl, now: time.Now, lst: list.New(), dict: make(map[string]*list.Element)}
}

func (c *LRU) Get(_ context.Context, k string) ([]Candidate, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.dict[k]
	if !ok {
		return nil, false
	}
	it := e.Value.(entry)
	if c.now().Before(it.exp) {
		c.lst.MoveToFront(e)
		return it.v, true
	}
	c.lst.Remove(e)
	delete(c.dict, k)
	return nil, false
}

func (c *LRU) Set(_ context.Context, k string, v []Candidate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	exp := c.now().Add(c.ttl)
	if e, ok := c.dict[k]; ok {
		e.Value = entry{k: k, v: v, exp: exp}
		c.lst.MoveToFront(e)
		return
	}
	c.dict[k] = c.lst.PushFront(entry{k: k, v: v, exp: exp})
	for c.lst.Len() > c.cap {
		back := c.lst.Back()
		delete(c.dict, back.Value.(entry).k)
		c.lst.Remove(back)
	}
}

func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lst.Len()
}

// RedisCache：存储后端为 redis 时共享缓存，值为候选数组 JSON
type RedisCache struct {
	rc     *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisCache(rc *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rc: rc, prefix: "aoi-map:geocode:", ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]Candidate, bool) {
	s, err := c.rc.Get(ctx, c.prefix+key).Result()
	if err != nil {
		if err != redis.Nil {
			logger.L().Warn("geocode_cache_read_error", "err", err)
		}
		return nil, false
	}
	var v []Candidate
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	return v, true
}

func (c *RedisCache) Set(ctx context.Context, key string, v []Candidate) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.rc.Set(ctx, c.prefix+key, b, c.ttl).Err(); err != nil {
		logger.L().Warn("geocode_cache_write_error", "err", err)
	}
}
