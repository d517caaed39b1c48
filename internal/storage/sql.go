package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"aoi-map/internal/migrate"
)

// 文档注释：关系库槽位（SQLite / PostgreSQL）
// 背景：单表 _aoi_kv 存放键值；本地默认使用 SQLite 文件，多实例部署可切换到 PostgreSQL。
// 约束：占位符按方言区分；写入使用 ON CONFLICT 覆盖，两种方言语法一致。
type SQLSlot struct {
	db      *sql.DB
	dialect migrate.Dialect
	getQ    string
	putQ    string
}

func NewSQLSlot(ctx context.Context, db *sql.DB, dialect migrate.Dialect) (*SQLSlot, error) {
	if err := migrate.EnsureSchema(ctx, db, dialect); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	s := &SQLSlot{db: db, dialect: dialect}
	switch dialect {
	case migrate.Postgres:
		s.getQ = `SELECT v FROM _aoi_kv WHERE k=$1`
		s.putQ = `INSERT INTO _aoi_kv(k, v, updated_at) VALUES($1, $2, CURRENT_TIMESTAMP)
            ON CONFLICT (k) DO UPDATE SET v=EXCLUDED.v, updated_at=CURRENT_TIMESTAMP`
	default:
		s.getQ = `SELECT v FROM _aoi_kv WHERE k=?`
		s.putQ = `INSERT INTO _aoi_kv(k, v, updated_at) VALUES(?, ?, CURRENT_TIMESTAMP)
            ON CONFLICT (k) DO UPDATE SET v=excluded.v, updated_at=CURRENT_TIMESTAMP`
	}
	return s, nil
}

func (s *SQLSlot) Get(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, s.getQ, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrSlotEmpty
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return v, nil
}

func (s *SQLSlot) Put(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx, s.putQ, key, value); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}
