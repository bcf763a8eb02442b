package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/courseforge/internal/platform/logger"
	"github.com/yungbote/courseforge/internal/types"
)

type CourseGenerationRunRepo interface {
	Create(ctx context.Context, tx *gorm.DB, run *types.CourseGenerationRun) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.CourseGenerationRun, error)
	GetLatestByCourseID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (*types.CourseGenerationRun, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	// FailInterrupted marks queued or running runs as failed. Called once at
	// startup: in-process runs do not survive a restart.
	FailInterrupted(ctx context.Context, tx *gorm.DB, reason string) (int64, error)
}

type courseGenerationRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseGenerationRunRepo(db *gorm.DB, baseLog *logger.Logger) CourseGenerationRunRepo {
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	return &courseGenerationRunRepo{db: db, log: baseLog.With("repo", "CourseGenerationRunRepo")}
}

func (r *courseGenerationRunRepo) Create(ctx context.Context, tx *gorm.DB, run *types.CourseGenerationRun) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if run.Status == "" {
		run.Status = types.RunStatusQueued
	}
	return transaction.WithContext(ctx).Create(run).Error
}

func (r *courseGenerationRunRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.CourseGenerationRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var run types.CourseGenerationRun
	err := transaction.WithContext(ctx).Where("id = ?", id).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *courseGenerationRunRepo) GetLatestByCourseID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (*types.CourseGenerationRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var run types.CourseGenerationRun
	err := transaction.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("created_at DESC").
		First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *courseGenerationRunRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(updates) == 0 {
		return nil
	}
	res := transaction.WithContext(ctx).Model(&types.CourseGenerationRun{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *courseGenerationRunRepo) FailInterrupted(ctx context.Context, tx *gorm.DB, reason string) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now()
	res := transaction.WithContext(ctx).
		Model(&types.CourseGenerationRun{}).
		Where("status IN ?", []string{types.RunStatusQueued, types.RunStatusRunning}).
		Updates(map[string]interface{}{
			"status":      types.RunStatusFailed,
			"error":       reason,
			"finished_at": now,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		r.log.Warn("marked interrupted generation runs as failed", "count", res.RowsAffected)
	}
	return res.RowsAffected, nil
}
