package model

import "time"

type TaskType string

const (
	TaskThumbnailGeneration TaskType = "thumbnail_generation"
	TaskVideoCompression    TaskType = "video_compression"
	TaskImageOptimization   TaskType = "image_optimization"
	TaskMetadataExtraction  TaskType = "metadata_extraction"
)

type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskProcessing TaskStatus = "processing"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

// DefaultMaxAttempts caps how often a failed task may be retried
const DefaultMaxAttempts = 3

type ProcessingTask struct {
	ID           uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	MediaFileID  string     `gorm:"size:36;not null;index" json:"media_file_id"`
	TaskType     TaskType   `gorm:"size:32;not null" json:"task_type"`
	Status       TaskStatus `gorm:"size:16;default:pending;index:idx_queue_claim,priority:1" json:"status"`
	Progress     int        `json:"progress"`
	Priority     int        `gorm:"default:5;index:idx_queue_claim,priority:2,sort:desc" json:"priority"`
	Attempts     int        `json:"attempts"`
	MaxAttempts  int        `gorm:"default:3" json:"max_attempts"`
	ErrorMessage string     `json:"error_message,omitempty"`
	ResultData   JSONMap    `json:"result_data,omitempty"`
	CreatedAt    time.Time  `gorm:"index:idx_queue_claim,priority:3" json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

func (ProcessingTask) TableName() string {
	return "media_processing_queue"
}

// CanRetry reports whether a failed task still has attempts left
func (t *ProcessingTask) CanRetry() bool {
	return t.Status == TaskFailed && t.Attempts < t.MaxAttempts
}
