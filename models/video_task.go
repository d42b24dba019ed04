package models

import "time"

// 任务状态常量
const (
	StatusPending    = "pending"
	StatusQueued     = "queued"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// TerminalStatus completed/failed 为终态，终态行不再被修改。
func TerminalStatus(s string) bool {
	return s == StatusCompleted || s == StatusFailed
}

// 归一化后的上游任务状态（各 provider 的原生词表都翻译到这四个值）
const (
	StateQueued     = "queued"
	StateInProgress = "in_progress"
	StateCompleted  = "completed"
	StateFailed     = "failed"
)

// ProviderStatus 是所有 provider 适配器 Poll 的统一返回。
// State 为 completed 时 VideoURL 必有值；failed 时 Reason 记录上游原因。
type ProviderStatus struct {
	State    string `json:"state"`
	VideoURL string `json:"video_url,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// DefaultUserID 未接多租户鉴权时所有任务归属的固定用户。
const DefaultUserID = "admin"

// VideoTask 视频生成任务持久化记录，对应 video_tasks 表。
type VideoTask struct {
	ID             int64      `db:"id" json:"id"`
	UserID         string     `db:"user_id" json:"user_id"`
	ProjectID      *int64     `db:"project_id" json:"project_id,omitempty"`
	Prompt         string     `db:"prompt" json:"prompt"`
	Duration       int        `db:"duration" json:"duration"`
	Model          string     `db:"model" json:"model,omitempty"`
	Source         string     `db:"source" json:"source"`
	SourceTaskID   *string    `db:"source_task_id" json:"source_task_id,omitempty"`
	SourceVideoURL *string    `db:"source_video_url" json:"source_video_url,omitempty"`
	OSSURL         *string    `db:"oss_url" json:"oss_url,omitempty"`
	OSSPath        *string    `db:"oss_path" json:"oss_path,omitempty"`
	Status         string     `db:"status" json:"status"`
	Error          *string    `db:"error" json:"error,omitempty"`
	CostUSD        *float64   `db:"cost_usd" json:"cost_usd,omitempty"`
	CostCNY        *float64   `db:"cost_cny" json:"cost_cny,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	CompletedAt    *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}

// Terminal 任务是否已到终态。
func (t *VideoTask) Terminal() bool {
	return TerminalStatus(t.Status)
}

// TaskPatch UpdateTask 的部分字段更新，nil 字段不动。
type TaskPatch struct {
	Status         *string
	SourceTaskID   *string
	SourceVideoURL *string
	OSSURL         *string
	OSSPath        *string
	Error          *string
	CostUSD        *float64
	CostCNY        *float64
}

// Project 画布项目，对应 projects 表。
type Project struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	CanvasState string    `db:"canvas_state" json:"canvas_state"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
