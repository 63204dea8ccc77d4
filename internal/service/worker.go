package service

import (
	"chirpnet/media-api/internal/metrics"
	"chirpnet/media-api/internal/model"
	"chirpnet/media-api/internal/storage"
	"chirpnet/media-api/pkg/retry"
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Worker drains the processing queue in batches. It owns no goroutines
// itself, the scheduler decides when a batch runs
type Worker struct {
	DB        *gorm.DB
	Queue     *Queue
	Store     storage.Storage
	Thumbs    *Thumbnailer
	Optimizer *Optimizer
	Retry     retry.Policy
	BatchSize int
}

func NewWorker(db *gorm.DB, store storage.Storage) *Worker {
	batch := viper.GetInt("worker.batch_size")
	if batch <= 0 {
		batch = 10
	}

	return &Worker{
		DB:        db,
		Queue:     NewQueue(db),
		Store:     store,
		Thumbs:    NewThumbnailer(db, store),
		Optimizer: NewOptimizer(db, store),
		Retry:     retry.DefaultPolicy(),
		BatchSize: batch,
	}
}

// RunBatch claims up to BatchSize pending tasks and runs them one after
// another. A failing or panicking task only sinks itself, the batch
// keeps going. Returns how many tasks were claimed
func (w *Worker) RunBatch(ctx context.Context) (int, error) {
	tasks, err := w.Queue.Claim(w.BatchSize)
	if err != nil {
		return 0, err
	}

	for i := range tasks {
		w.runOne(ctx, &tasks[i])
	}

	if len(tasks) > 0 {
		w.Queue.PublishDepth()
	}

	return len(tasks), nil
}

// runOne executes a claimed task and records its terminal state
func (w *Worker) runOne(ctx context.Context, task *model.ProcessingTask) {
	start := time.Now()

	result, err := w.safeDispatch(ctx, task)

	metrics.TaskDuration.WithLabelValues(string(task.TaskType)).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.TasksTotal.WithLabelValues(string(task.TaskType), string(model.TaskFailed)).Inc()

		if ferr := w.Queue.Fail(task.ID, err.Error(), result); ferr != nil {
			zap.L().Error("Failed to record task failure", zap.Uint("task_id", task.ID), zap.Error(ferr))
		}

		zap.L().Error("Processing task failed",
			zap.Uint("task_id", task.ID),
			zap.String("task_type", string(task.TaskType)),
			zap.String("media_id", task.MediaFileID),
			zap.Error(err))
	} else {
		metrics.TasksTotal.WithLabelValues(string(task.TaskType), string(model.TaskCompleted)).Inc()

		if cerr := w.Queue.Complete(task.ID, result); cerr != nil {
			zap.L().Error("Failed to record task completion", zap.Uint("task_id", task.ID), zap.Error(cerr))
		}
	}

	w.rollupMedia(task.MediaFileID)
}

// safeDispatch runs the handler for a task type with panics converted
// into normal failures
func (w *Worker) safeDispatch(ctx context.Context, task *model.ProcessingTask) (result model.JSONMap, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)

			zap.L().Error("Recovered from task panic",
				zap.Uint("task_id", task.ID),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
		}
	}()

	var media model.MediaFile
	if err := w.DB.Where("id = ?", task.MediaFileID).First(&media).Error; err != nil {
		return nil, fmt.Errorf("failed to load media file, %w", err)
	}

	switch task.TaskType {
	case model.TaskThumbnailGeneration:
		thumbs, terr := w.Thumbs.Generate(ctx, &media)
		return model.JSONMap{"thumbnails_created": len(thumbs)}, terr

	case model.TaskImageOptimization:
		size, oerr := w.Optimizer.Do(ctx, &media)
		if oerr != nil {
			return nil, oerr
		}

		return model.JSONMap{"optimized_size": size}, nil

	case model.TaskVideoCompression:
		// Not implemented yet, the task exists so the pipeline shape
		// stays stable once it is
		zap.L().Info("Video compression not implemented, completing task", zap.Uint("task_id", task.ID))
		return nil, nil

	case model.TaskMetadataExtraction:
		return nil, w.extractMetadata(ctx, &media)

	default:
		return nil, fmt.Errorf("unknown task type %q", task.TaskType)
	}
}

// extractMetadata fills width/height/duration on video rows. Images get
// their dimensions at upload time so they complete without work
func (w *Worker) extractMetadata(ctx context.Context, media *model.MediaFile) error {
	if media.MediaType != model.MediaTypeVideo {
		return nil
	}

	var local string
	var cleanup func()

	err := w.Retry.Do(ctx, func() error {
		var ferr error
		local, cleanup, ferr = fetchToTemp(ctx, w.Store, media.FileKey, "probe-src-*")
		return ferr
	})
	if err != nil {
		return err
	}
	defer cleanup()

	meta, err := ProbeVideo(ctx, local)
	if err != nil {
		return err
	}

	updates := map[string]any{"duration": meta.Duration}
	if meta.Width > 0 {
		updates["width"] = meta.Width
		updates["height"] = meta.Height
	}

	err = w.DB.
		Model(model.MediaFile{}).
		Where("id = ?", media.ID).
		Updates(updates).
		Error
	if err != nil {
		return fmt.Errorf("failed to save video metadata, %w", err)
	}

	return nil
}

// StartWorker attaches a ticker that drains the processing queue. Each
// tick keeps claiming batches until the queue stops filling them
func StartWorker(t time.Duration, w *Worker) {
	ticker := time.NewTicker(t)

	zap.L().Debug("Queue worker attached", zap.Duration("tick_every", t))

	go func() {
		for range ticker.C {
			for {
				n, err := w.RunBatch(context.Background())
				if err != nil {
					zap.L().Error("Failed to run task batch", zap.Error(err))
					break
				}

				if n < w.BatchSize {
					break
				}
			}
		}
	}()
}

// rollupMedia flips is_processed once nothing for the media is pending
// or processing anymore, copying the last failure message if a task sank
// along the way
func (w *Worker) rollupMedia(mediaID string) {
	open, err := w.Queue.OpenCount(mediaID)
	if err != nil {
		zap.L().Error("Failed to check media pipeline state", zap.String("media_id", mediaID), zap.Error(err))
		return
	}

	if open > 0 {
		return
	}

	var msgs []string
	err = w.DB.
		Model(model.ProcessingTask{}).
		Where("media_file_id = ? AND status = ?", mediaID, model.TaskFailed).
		Order("id desc").
		Limit(1).
		Pluck("error_message", &msgs).
		Error
	if err != nil {
		zap.L().Error("Failed to look up task failures", zap.String("media_id", mediaID), zap.Error(err))
		return
	}

	var lastErr string
	if len(msgs) > 0 {
		lastErr = msgs[0]
	}

	err = w.DB.
		Model(model.MediaFile{}).
		Where("id = ?", mediaID).
		Updates(map[string]any{
			"is_processed":     true,
			"processing_error": lastErr,
		}).
		Error
	if err != nil {
		zap.L().Error("Failed to mark media processed", zap.String("media_id", mediaID), zap.Error(err))
	}
}
