package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/courseforge/internal/platform/ctxutil"
	"github.com/yungbote/courseforge/internal/platform/logger"
	"github.com/yungbote/courseforge/internal/repos"
	"github.com/yungbote/courseforge/internal/types"
)

type CourseService interface {
	GetUserCourses(ctx context.Context) ([]*types.Course, error)
	// GetCourse returns the caller's course with chapters in number order.
	GetCourse(ctx context.Context, id uuid.UUID) (*types.Course, error)
}

type courseService struct {
	log     *logger.Logger
	courses repos.CourseRepo
}

func NewCourseService(baseLog *logger.Logger, courses repos.CourseRepo) CourseService {
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	return &courseService{log: baseLog.With("service", "CourseService"), courses: courses}
}

func (s *courseService) GetUserCourses(ctx context.Context) ([]*types.Course, error) {
	owner := ctxutil.Caller(ctx)
	if owner == "" {
		return nil, ErrUnauthenticated
	}
	return s.courses.ListByOwner(ctx, nil, owner, 50)
}

func (s *courseService) GetCourse(ctx context.Context, id uuid.UUID) (*types.Course, error) {
	owner := ctxutil.Caller(ctx)
	if owner == "" {
		return nil, ErrUnauthenticated
	}
	course, err := s.courses.GetByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if course.OwnerID != owner {
		return nil, repos.ErrNotFound
	}
	return course, nil
}
