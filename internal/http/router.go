package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/courseforge/internal/http/handlers"
	httpMW "github.com/yungbote/courseforge/internal/http/middleware"
	"github.com/yungbote/courseforge/internal/platform/logger"
)

type RouterConfig struct {
	Log             *logger.Logger
	ServiceName     string
	MaxRequestBytes int64

	ChatHandler          *httpH.ChatHandler
	CourseHandler        *httpH.CourseHandler
	GenerationRunHandler *httpH.GenerationRunHandler
	HealthHandler        *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "courseforge"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.CORS())
	r.Use(httpMW.AttachCaller())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.LimitBody(cfg.MaxRequestBytes))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}

	api := r.Group("/api")
	{
		// Chat (public)
		if cfg.ChatHandler != nil {
			api.POST("/chat", cfg.ChatHandler.Chat)
			api.OPTIONS("/chat", cfg.ChatHandler.Preflight)
			api.GET("/providers", cfg.ChatHandler.Providers)
		}

		// Course intake steps
		if cfg.CourseHandler != nil {
			api.POST("/courses/questions", cfg.CourseHandler.Questions)
			api.POST("/courses/suggested-answers", cfg.CourseHandler.SuggestedAnswers)
			api.POST("/courses/blueprint", cfg.CourseHandler.Blueprint)
		}
	}

	protected := api.Group("/")
	protected.Use(httpMW.RequireCaller())
	{
		// Courses
		if cfg.CourseHandler != nil {
			protected.POST("/courses", cfg.CourseHandler.Create)
			protected.GET("/courses", cfg.CourseHandler.ListUserCourses)
			protected.GET("/courses/:id", cfg.CourseHandler.GetCourse)
		}

		// Generation runs
		if cfg.GenerationRunHandler != nil {
			protected.GET("/generation-runs/:id", cfg.GenerationRunHandler.GetRun)
			protected.GET("/generation-runs/:id/events", cfg.GenerationRunHandler.Events)
			protected.POST("/generation-runs/:id/cancel", cfg.GenerationRunHandler.Cancel)
		}
	}

	return r
}
