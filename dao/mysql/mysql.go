package mysql

import (
	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

// Init 初始化MySQL连接并确保表存在。
func Init(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(32)
	db.SetMaxIdleConns(16)
	if err := bootstrap(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// bootstrap 轻量"迁移"：确保表存在。
func bootstrap(db *sqlx.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS projects (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			canvas_state JSON NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			KEY idx_projects_updated_at (updated_at)
		)`,
		`CREATE TABLE IF NOT EXISTS video_tasks (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			user_id VARCHAR(64) NOT NULL DEFAULT 'admin',
			project_id BIGINT NULL,
			prompt TEXT NOT NULL,
			duration INT NOT NULL DEFAULT 4,
			model VARCHAR(64) NOT NULL DEFAULT '',
			source VARCHAR(64) NOT NULL,
			source_task_id VARCHAR(128) NULL,
			source_video_url TEXT NULL,
			oss_url TEXT NULL,
			oss_path VARCHAR(255) NULL,
			status VARCHAR(32) NOT NULL DEFAULT 'pending',
			error TEXT NULL,
			cost_usd DECIMAL(10,4) NULL,
			cost_cny DECIMAL(10,2) NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			completed_at TIMESTAMP NULL,
			KEY idx_video_tasks_user_id (user_id),
			KEY idx_video_tasks_project_id (project_id),
			KEY idx_video_tasks_created_at (created_at)
		)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}
