package storage

import (
	"context"
	"fmt"
	"strings"

	"aoi-map/internal/logger"
	"aoi-map/internal/migrate"
	"aoi-map/internal/utils"

	"github.com/redis/go-redis/v9"
)

// Backend：打开后的槽位及其底层资源，Close 释放连接
type Backend struct {
	Name  string
	Slot  Slot
	Redis *redis.Client
	close func() error
}

func (b *Backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// 文档注释：按 STORAGE_BACKEND 打开槽位
// 背景：sqlite（默认）、postgres、redis、memory 四种后端；Redis 客户端同时提供给搜索缓存复用。
// 约束：连接探测失败直接返回错误，由主入口决定是否退出。
func OpenFromEnv(ctx context.Context) (*Backend, error) {
	name := strings.ToLower(utils.EnvString("STORAGE_BACKEND", "sqlite"))
	switch name {
	case "memory":
		return &Backend{Name: name, Slot: NewMemorySlot()}, nil
	case "redis":
		rc := utils.OpenRedisFromEnv()
		if err := rc.Ping(ctx).Err(); err != nil {
			_ = rc.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		logger.L().Info("redis_ping_ok")
		return &Backend{Name: name, Slot: NewRedisSlot(rc), Redis: rc, close: rc.Close}, nil
	case "postgres":
		db, err := utils.OpenPostgresFromEnv()
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("postgres ping: %w", err)
		}
		slot, err := NewSQLSlot(ctx, db, migrate.Postgres)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		logger.L().Info("db_open_ok", "backend", name)
		return &Backend{Name: name, Slot: slot, close: db.Close}, nil
	case "sqlite":
		path := utils.EnvString("SQLITE_PATH", "data/aoi.db")
		db, err := utils.OpenSQLite(path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		slot, err := NewSQLSlot(ctx, db, migrate.SQLite)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		logger.L().Info("db_open_ok", "backend", name, "path", path)
		return &Backend{Name: name, Slot: slot, close: db.Close}, nil
	}
	return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", name)
}
