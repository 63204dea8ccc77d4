package service

import (
	"chirpnet/media-api/internal/metrics"
	"chirpnet/media-api/internal/model"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrNotRetryable = errors.New("task can't be retried")

// taskPlans maps a media type to the pipeline it needs. Thumbnails get
// the higher priority so users see previews first. Media types without
// a plan (gif, audio) enqueue nothing
var taskPlans = map[model.MediaType][]model.ProcessingTask{
	model.MediaTypeImage: {
		{TaskType: model.TaskThumbnailGeneration, Priority: 7},
		{TaskType: model.TaskImageOptimization, Priority: 5},
	},
	model.MediaTypeVideo: {
		{TaskType: model.TaskThumbnailGeneration, Priority: 7},
		{TaskType: model.TaskVideoCompression, Priority: 5},
		{TaskType: model.TaskMetadataExtraction, Priority: 5},
	},
}

type Queue struct {
	DB *gorm.DB
}

func NewQueue(db *gorm.DB) *Queue {
	return &Queue{DB: db}
}

// Enqueue inserts the processing pipeline for a freshly uploaded file
func (q *Queue) Enqueue(media *model.MediaFile) ([]model.ProcessingTask, error) {
	return q.enqueue(q.DB, media)
}

// enqueue exists so the uploader can run it inside its own transaction
func (q *Queue) enqueue(db *gorm.DB, media *model.MediaFile) ([]model.ProcessingTask, error) {
	plan, ok := taskPlans[media.MediaType]
	if !ok {
		return nil, nil
	}

	tasks := make([]model.ProcessingTask, len(plan))
	for i, t := range plan {
		t.MediaFileID = media.ID
		t.Status = model.TaskPending
		t.MaxAttempts = model.DefaultMaxAttempts
		tasks[i] = t
	}

	if err := db.Create(&tasks).Error; err != nil {
		return nil, fmt.Errorf("failed to enqueue processing tasks, %w", err)
	}

	return tasks, nil
}

// Claim moves up to limit pending tasks to processing, highest priority
// first, oldest first within a priority. Each row is taken with a guarded
// update so concurrent workers never run the same task twice
func (q *Queue) Claim(limit int) ([]model.ProcessingTask, error) {
	var candidates []model.ProcessingTask

	err := q.DB.
		Where("status = ?", model.TaskPending).
		Order("priority desc, created_at asc").
		Limit(limit).
		Find(&candidates).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to query pending tasks, %w", err)
	}

	claimed := make([]model.ProcessingTask, 0, len(candidates))
	now := time.Now()

	for _, t := range candidates {
		res := q.DB.
			Model(model.ProcessingTask{}).
			Where("id = ? AND status = ?", t.ID, model.TaskPending).
			Updates(map[string]any{
				"status":     model.TaskProcessing,
				"started_at": now,
				"attempts":   gorm.Expr("attempts + ?", 1),
			})
		if res.Error != nil {
			zap.L().Error("Failed to claim task", zap.Uint("task_id", t.ID), zap.Error(res.Error))
			continue
		}

		// Another worker won the race for this row
		if res.RowsAffected == 0 {
			continue
		}

		t.Status = model.TaskProcessing
		t.StartedAt = &now
		t.Attempts++
		claimed = append(claimed, t)
	}

	return claimed, nil
}

func (q *Queue) Complete(taskID uint, result model.JSONMap) error {
	updates := map[string]any{
		"status":       model.TaskCompleted,
		"progress":     100,
		"completed_at": time.Now(),
	}
	if len(result) > 0 {
		updates["result_data"] = result
	}

	err := q.DB.
		Model(model.ProcessingTask{}).
		Where("id = ?", taskID).
		Updates(updates).
		Error
	if err != nil {
		return fmt.Errorf("failed to mark task completed, %w", err)
	}

	return nil
}

func (q *Queue) Fail(taskID uint, msg string, result model.JSONMap) error {
	updates := map[string]any{
		"status":        model.TaskFailed,
		"error_message": msg,
	}
	if len(result) > 0 {
		updates["result_data"] = result
	}

	err := q.DB.
		Model(model.ProcessingTask{}).
		Where("id = ?", taskID).
		Updates(updates).
		Error
	if err != nil {
		return fmt.Errorf("failed to mark task failed, %w", err)
	}

	return nil
}

// Retry puts a failed task back in line. Only failed tasks with
// attempts left qualify, everything else returns ErrNotRetryable
func (q *Queue) Retry(taskID uint) (*model.ProcessingTask, error) {
	var task model.ProcessingTask

	if err := q.DB.First(&task, taskID).Error; err != nil {
		return nil, err
	}

	if !task.CanRetry() {
		return nil, ErrNotRetryable
	}

	res := q.DB.
		Model(model.ProcessingTask{}).
		Where("id = ? AND status = ?", task.ID, model.TaskFailed).
		Updates(map[string]any{
			"status":        model.TaskPending,
			"error_message": "",
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to reschedule task, %w", res.Error)
	}

	if res.RowsAffected == 0 {
		return nil, ErrNotRetryable
	}

	// The pipeline is open again, pollers should see that
	err := q.DB.
		Model(model.MediaFile{}).
		Where("id = ?", task.MediaFileID).
		Updates(map[string]any{
			"is_processed":     false,
			"processing_error": "",
		}).
		Error
	if err != nil {
		zap.L().Error("Failed to reopen media pipeline state", zap.String("media_id", task.MediaFileID), zap.Error(err))
	}

	task.Status = model.TaskPending
	task.ErrorMessage = ""
	return &task, nil
}

type ProcessingStatus struct {
	Pending          int64 `json:"pending"`
	Processing       int64 `json:"processing"`
	Completed        int64 `json:"completed"`
	Failed           int64 `json:"failed"`
	IsFullyProcessed bool  `json:"is_fully_processed"`
	HasErrors        bool  `json:"has_errors"`
}

// Status summarizes the pipeline state of one media file the way
// polling clients want it
func (q *Queue) Status(mediaID string) (*ProcessingStatus, error) {
	var rows []struct {
		Status model.TaskStatus
		N      int64
	}

	err := q.DB.
		Model(model.ProcessingTask{}).
		Where("media_file_id = ?", mediaID).
		Select("status, count(*) as n").
		Group("status").
		Find(&rows).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks, %w", err)
	}

	s := &ProcessingStatus{}
	for _, r := range rows {
		switch r.Status {
		case model.TaskPending:
			s.Pending = r.N
		case model.TaskProcessing:
			s.Processing = r.N
		case model.TaskCompleted:
			s.Completed = r.N
		case model.TaskFailed:
			s.Failed = r.N
		}
	}

	s.IsFullyProcessed = s.Pending == 0 && s.Processing == 0
	s.HasErrors = s.Failed > 0

	return s, nil
}

// OpenCount returns how many tasks for a media file still have to run
func (q *Queue) OpenCount(mediaID string) (int64, error) {
	var n int64

	err := q.DB.
		Model(model.ProcessingTask{}).
		Where("media_file_id = ? AND status IN ?", mediaID, []model.TaskStatus{model.TaskPending, model.TaskProcessing}).
		Count(&n).
		Error
	if err != nil {
		return 0, fmt.Errorf("failed to count open tasks, %w", err)
	}

	return n, nil
}

// List returns queue rows for operational inspection, newest first
func (q *Queue) List(status model.TaskStatus, limit int) ([]model.ProcessingTask, error) {
	tx := q.DB.Order("created_at desc").Limit(limit)
	if status != "" {
		tx = tx.Where("status = ?", status)
	}

	var tasks []model.ProcessingTask
	if err := tx.Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("failed to list tasks, %w", err)
	}

	return tasks, nil
}

// PublishDepth pushes per-status row counts to the queue depth gauge
func (q *Queue) PublishDepth() {
	var rows []struct {
		Status model.TaskStatus
		N      int64
	}

	err := q.DB.
		Model(model.ProcessingTask{}).
		Select("status, count(*) as n").
		Group("status").
		Find(&rows).
		Error
	if err != nil {
		zap.L().Error("Failed to measure queue depth", zap.Error(err))
		return
	}

	counts := map[model.TaskStatus]int64{}
	for _, r := range rows {
		counts[r.Status] = r.N
	}

	for _, s := range []model.TaskStatus{model.TaskPending, model.TaskProcessing, model.TaskCompleted, model.TaskFailed} {
		metrics.QueueDepth.WithLabelValues(string(s)).Set(float64(counts[s]))
	}
}
