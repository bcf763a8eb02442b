package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/courseforge/internal/platform/logger"
	"github.com/yungbote/courseforge/internal/repos"
)

type Repos struct {
	Course              repos.CourseRepo
	CourseGenerationRun repos.CourseGenerationRunRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Course:              repos.NewCourseRepo(db, log),
		CourseGenerationRun: repos.NewCourseGenerationRunRepo(db, log),
	}
}
