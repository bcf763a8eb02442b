package app

import (
	"context"

	httpH "github.com/yungbote/courseforge/internal/http/handlers"
	"github.com/yungbote/courseforge/internal/platform/logger"
)

type Handlers struct {
	Chat          *httpH.ChatHandler
	Course        *httpH.CourseHandler
	GenerationRun *httpH.GenerationRunHandler
	Health        *httpH.HealthHandler
}

func wireHandlers(log *logger.Logger, clients Clients, svcs Services, checks map[string]func(context.Context) error) Handlers {
	log.Info("Wiring handlers...")
	ready := make(map[string]httpH.ReadinessCheck, len(checks))
	for name, check := range checks {
		ready[name] = check
	}
	return Handlers{
		Chat:          httpH.NewChatHandler(log, clients.Router),
		Course:        httpH.NewCourseHandler(log, svcs.Orchestrator, svcs.Course, svcs.CourseGeneration),
		GenerationRun: httpH.NewGenerationRunHandler(log, svcs.CourseGeneration, svcs.ProgressBus),
		Health:        httpH.NewHealthHandler(ready),
	}
}
