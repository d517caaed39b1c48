// 包 storage：AOI 集合的持久化网关与键值槽位实现（内存、SQLite、PostgreSQL、Redis）
package storage

import (
	"context"
	"errors"
	"sync"
)

// ErrSlotEmpty：槽位中没有值
var ErrSlotEmpty = errors.New("storage: slot empty")

// 文档注释：持久化槽位契约
// 背景：持久化只需要扁平的 put/get，后端可替换；网关在其上负责编码、校验与失败吞掉。
// 约束：Get 在键不存在时返回 ErrSlotEmpty；Put 覆盖写入。
type Slot interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key, value string) error
}

// MemorySlot：进程内槽位，用于测试与 STORAGE_BACKEND=memory
type MemorySlot struct {
	mu sync.RWMutex
	m  map[string]string
}

func NewMemorySlot() *MemorySlot {
	return &MemorySlot{m: make(map[string]string)}
}

func (s *MemorySlot) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	if !ok {
		return "", ErrSlotEmpty
	}
	return v, nil
}

func (s *MemorySlot) Put(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	return nil
}
