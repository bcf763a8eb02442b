package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/courseforge/internal/types"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&types.Course{},
		&types.CourseChapter{},
		&types.CourseGenerationRun{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
