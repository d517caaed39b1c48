package migrate

import (
	"context"
	"database/sql"

	"aoi-map/internal/logger"
)

// Dialect：关系库方言
type Dialect string

const (
	SQLite   Dialect = "sqlite3"
	Postgres Dialect = "postgres"
)

// 背景：首次运行自动创建持久化槽位表
// 约束：使用 IF NOT EXISTS 避免与既有结构冲突；语句同时兼容 SQLite 与 PostgreSQL
func EnsureSchema(ctx context.Context, db *sql.DB, d Dialect) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS _aoi_kv (
            k TEXT PRIMARY KEY,
            v TEXT NOT NULL,
            updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
        )`,
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			logger.L().Error("schema_exec_error", "dialect", d, "err", err)
			return err
		}
	}
	logger.L().Debug("schema_ready", "dialect", d)
	return nil
}
