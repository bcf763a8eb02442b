package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	RunStatusQueued    = "queued"
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
	RunStatusCanceled  = "canceled"
)

type CourseGenerationRun struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"course_id"`
	OwnerID    string         `gorm:"column:owner_id;not null;index" json:"owner_id"`
	Status     string         `gorm:"column:status;not null;index" json:"status"` // queued|running|succeeded|failed|canceled
	Stage      string         `gorm:"column:stage" json:"stage"`                  // planning|modules|sub_materials|content|persist|canceled|done
	Phase      string         `gorm:"column:phase" json:"phase"`
	Current    int            `gorm:"column:progress_current;not null;default:0" json:"current"`
	Total      int            `gorm:"column:progress_total;not null;default:0" json:"total"`
	Error      string         `gorm:"column:error" json:"error,omitempty"`
	Request    datatypes.JSON `gorm:"column:request" json:"request,omitempty"`
	StartedAt  *time.Time     `gorm:"column:started_at" json:"started_at,omitempty"`
	FinishedAt *time.Time     `gorm:"column:finished_at" json:"finished_at,omitempty"`
	CreatedAt  time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null" json:"updated_at"`
}

func (CourseGenerationRun) TableName() string { return "course_generation_run" }

func (r *CourseGenerationRun) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Terminal reports whether the run can no longer change status.
func (r *CourseGenerationRun) Terminal() bool {
	switch r.Status {
	case RunStatusSucceeded, RunStatusFailed, RunStatusCanceled:
		return true
	}
	return false
}
