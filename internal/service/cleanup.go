package service

import (
	"chirpnet/media-api/internal/metrics"
	"chirpnet/media-api/internal/model"
	"chirpnet/media-api/internal/storage"
	"context"
	"fmt"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Sweeper removes media nobody uses and queue rows nobody will look at
// again. It owns no timer, the scheduler decides when a sweep runs
type Sweeper struct {
	DB      *gorm.DB
	Remover *Remover

	OrphanAfterDays     int
	FailedTaskAfterDays int
}

func NewSweeper(db *gorm.DB, store storage.Storage) *Sweeper {
	return &Sweeper{
		DB:                  db,
		Remover:             NewRemover(db, store),
		OrphanAfterDays:     viper.GetInt("cleanup.orphan_after_days"),
		FailedTaskAfterDays: viper.GetInt("cleanup.failed_task_after_days"),
	}
}

// StartSweeper attaches a ticker that periodically runs both sweeps
func StartSweeper(t time.Duration, s *Sweeper) {
	ticker := time.NewTicker(t)

	zap.L().Debug("Cleanup sweeper attached", zap.Duration("tick_every", t))

	go func() {
		for range ticker.C {
			if _, err := s.SweepOrphans(context.Background()); err != nil {
				zap.L().Error("Orphan sweep failed", zap.Error(err))
			}

			if _, err := s.SweepFailedTasks(); err != nil {
				zap.L().Error("Failed task purge failed", zap.Error(err))
			}
		}
	}()
}

// SweepOrphans deletes media that aged past the cutoff without ever
// being attached to a post or set as somebody's profile media. Every
// file is handled on its own, one bad row shouldn't stop the sweep
func (s *Sweeper) SweepOrphans(ctx context.Context) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -s.OrphanAfterDays)

	var orphans []model.MediaFile

	err := s.DB.
		Where("created_at < ?", cutoff).
		Where("id NOT IN (?)", s.DB.
			Model(model.PostAttachment{}).
			Select("media_file_id")).
		Where("id NOT IN (?)", s.DB.
			Model(model.User{}).
			Where("avatar_media_id IS NOT NULL").
			Select("avatar_media_id")).
		Where("id NOT IN (?)", s.DB.
			Model(model.User{}).
			Where("banner_media_id IS NOT NULL").
			Select("banner_media_id")).
		Find(&orphans).
		Error
	if err != nil {
		return 0, fmt.Errorf("failed to find orphaned media, %w", err)
	}

	deleted := 0
	for i := range orphans {
		if err := s.Remover.Delete(ctx, &orphans[i]); err != nil {
			zap.L().Error("Failed to delete orphaned media",
				zap.String("media_id", orphans[i].ID),
				zap.Error(err),
			)
			continue
		}

		deleted++
		metrics.OrphansDeletedTotal.Inc()
	}

	if deleted > 0 {
		zap.L().Info("Orphan sweep finished", zap.Int("deleted", deleted))
	}

	return deleted, nil
}

// SweepFailedTasks purges failed queue rows once they aged past the
// cutoff. Their error message survives on the media record
func (s *Sweeper) SweepFailedTasks() (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -s.FailedTaskAfterDays)

	res := s.DB.
		Where("status = ? AND created_at < ?", model.TaskFailed, cutoff).
		Delete(model.ProcessingTask{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to purge failed tasks, %w", res.Error)
	}

	if res.RowsAffected > 0 {
		metrics.FailedTasksPurgedTotal.Add(float64(res.RowsAffected))
		zap.L().Info("Failed task purge finished", zap.Int64("deleted", res.RowsAffected))
	}

	return res.RowsAffected, nil
}
