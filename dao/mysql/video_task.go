package mysql

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/dingzu/dramagic/models"
)

// TaskStore video_tasks 表的持久化操作。
type TaskStore struct {
	db *sqlx.DB
}

func NewTaskStore(db *sqlx.DB) *TaskStore {
	return &TaskStore{db: db}
}

// Insert 插入一条任务记录并返回完整行。
// 初始状态就是终态的记录（补录场景）在插入时顺带落 completed_at，
// 保证终态行始终带完成时间。
func (s *TaskStore) Insert(ctx context.Context, t *models.VideoTask) (*models.VideoTask, error) {
	var completedAt *time.Time
	if models.TerminalStatus(t.Status) {
		now := time.Now()
		completedAt = &now
	}
	query := `INSERT INTO video_tasks
		(user_id, project_id, prompt, duration, model, source, source_task_id, source_video_url, status, error, cost_usd, cost_cny, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, query,
		t.UserID, t.ProjectID, t.Prompt, t.Duration, t.Model, t.Source,
		t.SourceTaskID, t.SourceVideoURL, t.Status, t.Error, t.CostUSD, t.CostCNY, completedAt)
	if err != nil {
		return nil, &models.StorageError{Op: "mysql.insert_task", Err: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, &models.StorageError{Op: "mysql.insert_task", Err: err}
	}
	return s.Get(ctx, id)
}

// Get 按 id 查任务，不存在返回 ErrTaskNotFound。
func (s *TaskStore) Get(ctx context.Context, id int64) (*models.VideoTask, error) {
	var t models.VideoTask
	err := s.db.GetContext(ctx, &t, "SELECT * FROM video_tasks WHERE id = ?", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrTaskNotFound
		}
		return nil, &models.StorageError{Op: "mysql.get_task", Err: err}
	}
	return &t, nil
}

// Update 部分字段更新，带状态机保护：
//   - 终态行（completed/failed）永不修改，重复更新幂等地返回原行
//   - from 非空时只允许从这些状态出发（比较并更新，防并发写同一任务）
//   - source_task_id 和费用字段只允许写一次
//   - 新状态为终态时同一条语句顺带落 completed_at
//
// 返回 (行, 是否真的写了, err)。
func (s *TaskStore) Update(ctx context.Context, id int64, patch models.TaskPatch, from ...string) (*models.VideoTask, bool, error) {
	var sets []string
	var args []interface{}

	add := func(col string, v interface{}) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if patch.Status != nil {
		add("status", *patch.Status)
		if models.TerminalStatus(*patch.Status) {
			sets = append(sets, "completed_at = NOW()")
		}
	}
	if patch.SourceTaskID != nil {
		add("source_task_id", *patch.SourceTaskID)
	}
	if patch.SourceVideoURL != nil {
		add("source_video_url", *patch.SourceVideoURL)
	}
	if patch.OSSURL != nil {
		add("oss_url", *patch.OSSURL)
	}
	if patch.OSSPath != nil {
		add("oss_path", *patch.OSSPath)
	}
	if patch.Error != nil {
		add("error", *patch.Error)
	}
	if patch.CostUSD != nil {
		add("cost_usd", *patch.CostUSD)
	}
	if patch.CostCNY != nil {
		add("cost_cny", *patch.CostCNY)
	}
	if len(sets) == 0 {
		t, err := s.Get(ctx, id)
		return t, false, err
	}

	query := "UPDATE video_tasks SET " + strings.Join(sets, ", ") +
		" WHERE id = ? AND status NOT IN ('completed', 'failed')"
	args = append(args, id)
	if patch.SourceTaskID != nil {
		query += " AND source_task_id IS NULL"
	}
	if patch.CostUSD != nil || patch.CostCNY != nil {
		// 费用只写一次，和 source_task_id 同样的只写保护
		query += " AND cost_usd IS NULL AND cost_cny IS NULL"
	}
	if len(from) > 0 {
		query += " AND status IN (?" + strings.Repeat(", ?", len(from)-1) + ")"
		for _, f := range from {
			args = append(args, f)
		}
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, false, &models.StorageError{Op: "mysql.update_task", Err: err}
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return nil, false, &models.StorageError{Op: "mysql.update_task", Err: err}
	}

	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return t, rows > 0, nil
}

// List 按创建时间倒序分页，返回行和总数。projectID 为 nil 时不过滤项目。
func (s *TaskStore) List(ctx context.Context, userID string, projectID *int64, limit, offset int) ([]models.VideoTask, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	where := "WHERE user_id = ?"
	args := []interface{}{userID}
	if projectID != nil {
		where += " AND project_id = ?"
		args = append(args, *projectID)
	}

	var total int64
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM video_tasks "+where, args...); err != nil {
		return nil, 0, &models.StorageError{Op: "mysql.count_tasks", Err: err}
	}

	tasks := []models.VideoTask{}
	query := "SELECT * FROM video_tasks " + where + " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)
	if err := s.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, 0, &models.StorageError{Op: "mysql.list_tasks", Err: err}
	}
	return tasks, total, nil
}
