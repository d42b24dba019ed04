package mysql

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/dingzu/dramagic/models"
)

// ProjectStore projects 表的持久化操作。
type ProjectStore struct {
	db *sqlx.DB
}

func NewProjectStore(db *sqlx.DB) *ProjectStore {
	return &ProjectStore{db: db}
}

// Insert 创建项目，canvas_state 为空时写空对象。
func (s *ProjectStore) Insert(ctx context.Context, name, canvasState string) (*models.Project, error) {
	if canvasState == "" {
		canvasState = "{}"
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO projects (name, canvas_state) VALUES (?, ?)", name, canvasState)
	if err != nil {
		return nil, &models.StorageError{Op: "mysql.insert_project", Err: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, &models.StorageError{Op: "mysql.insert_project", Err: err}
	}
	return s.Get(ctx, id)
}

func (s *ProjectStore) Get(ctx context.Context, id int64) (*models.Project, error) {
	var p models.Project
	err := s.db.GetContext(ctx, &p, "SELECT * FROM projects WHERE id = ?", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrProjectNotFound
		}
		return nil, &models.StorageError{Op: "mysql.get_project", Err: err}
	}
	return &p, nil
}

// UpdateCanvas 覆盖画布状态。
func (s *ProjectStore) UpdateCanvas(ctx context.Context, id int64, canvasState string) (*models.Project, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE projects SET canvas_state = ? WHERE id = ?", canvasState, id)
	if err != nil {
		return nil, &models.StorageError{Op: "mysql.update_project", Err: err}
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		// 可能确实不存在，也可能状态没变化，查一下区分
		if _, err := s.Get(ctx, id); err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, id)
}

// List 按更新时间倒序。
func (s *ProjectStore) List(ctx context.Context, limit int) ([]models.Project, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	projects := []models.Project{}
	err := s.db.SelectContext(ctx, &projects,
		"SELECT * FROM projects ORDER BY updated_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, &models.StorageError{Op: "mysql.list_projects", Err: err}
	}
	return projects, nil
}
