package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CourseChapter is one persisted chapter. Modules holds the ordered module
// tree (modules -> sub-materials) as JSON.
type CourseChapter struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID    uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_course_chapter_number" json:"course_id"`
	Number      int            `gorm:"column:number;not null;uniqueIndex:idx_course_chapter_number" json:"number"`
	Title       string         `gorm:"column:title;not null" json:"title"`
	Description string         `gorm:"column:description" json:"description"`
	Modules     datatypes.JSON `gorm:"column:modules" json:"modules"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
}

func (CourseChapter) TableName() string { return "course_chapter" }

func (c *CourseChapter) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
