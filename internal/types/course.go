package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	CourseStatusDraft   = "draft"
	CourseStatusReady   = "ready"
	CourseStatusPartial = "partial"
	CourseStatusFailed  = "failed"
)

type Course struct {
	ID           uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID      string                      `gorm:"column:owner_id;not null;index" json:"owner_id"`
	Title        string                      `gorm:"column:title;not null" json:"title"`
	Description  string                      `gorm:"column:description" json:"description"`
	Topics       datatypes.JSONSlice[string] `gorm:"column:topics" json:"topics"`
	Status       string                      `gorm:"column:status;not null;index" json:"status"` // draft|ready|partial|failed
	ChapterCount int                         `gorm:"column:chapter_count;not null;default:0" json:"chapter_count"`
	Chapters     []CourseChapter             `gorm:"foreignKey:CourseID;references:ID;constraint:OnDelete:CASCADE" json:"chapters,omitempty"`
	CreatedAt    time.Time                   `gorm:"not null;index" json:"created_at"`
	UpdatedAt    time.Time                   `gorm:"not null" json:"updated_at"`
	DeletedAt    gorm.DeletedAt              `gorm:"index" json:"deleted_at,omitempty"`
}

func (Course) TableName() string { return "course" }

func (c *Course) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
