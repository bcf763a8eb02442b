package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/courseforge/internal/generation"
	"github.com/yungbote/courseforge/internal/http/response"
	"github.com/yungbote/courseforge/internal/platform/logger"
	"github.com/yungbote/courseforge/internal/services"
)

// CourseAgents are the interactive steps that precede a generation run.
type CourseAgents interface {
	PersonalizationQuestions(ctx context.Context, topics []string) ([]generation.Question, error)
	SuggestedAnswers(ctx context.Context, question string, topics []string) ([]string, error)
	Blueprint(ctx context.Context, topics []string, answers []generation.PersonalizationAnswer) ([]generation.ChapterPlanItem, error)
}

type CourseHandler struct {
	log        *logger.Logger
	agents     CourseAgents
	courses    services.CourseService
	generation services.CourseGenerationService
}

func NewCourseHandler(log *logger.Logger, agents CourseAgents, courses services.CourseService, gen services.CourseGenerationService) *CourseHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &CourseHandler{
		log:        log.With("handler", "CourseHandler"),
		agents:     agents,
		courses:    courses,
		generation: gen,
	}
}

type topicsRequest struct {
	Topics []string `json:"topics"`
}

type suggestedAnswersRequest struct {
	Question string   `json:"question"`
	Topics   []string `json:"topics"`
}

type blueprintRequest struct {
	Topics  []string                           `json:"topics"`
	Answers []generation.PersonalizationAnswer `json:"answers"`
}

func (h *CourseHandler) Questions(c *gin.Context) {
	var req topicsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	questions, err := h.agents.PersonalizationQuestions(c.Request.Context(), req.Topics)
	if err != nil {
		h.log.Warn("personalization questions failed", "topics", req.Topics, "error", err)
		respondServiceError(c, "questions_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"questions": questions})
}

func (h *CourseHandler) SuggestedAnswers(c *gin.Context) {
	var req suggestedAnswersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errors.New("question is required"))
		return
	}
	answers, err := h.agents.SuggestedAnswers(c.Request.Context(), req.Question, req.Topics)
	if err != nil {
		h.log.Warn("suggested answers failed", "error", err)
		respondServiceError(c, "answers_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"answers": answers})
}

func (h *CourseHandler) Blueprint(c *gin.Context) {
	var req blueprintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	chapters, err := h.agents.Blueprint(c.Request.Context(), req.Topics, req.Answers)
	if err != nil {
		h.log.Warn("blueprint failed", "topics", req.Topics, "error", err)
		respondServiceError(c, "blueprint_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"chapters": chapters})
}

// Create starts a background generation run and answers 202 immediately.
func (h *CourseHandler) Create(c *gin.Context) {
	var req services.StartInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	run, err := h.generation.Start(c.Request.Context(), req)
	if err != nil {
		h.log.Error("start generation failed", "error", err)
		respondServiceError(c, "start_generation_failed", err)
		return
	}
	response.RespondAccepted(c, gin.H{"run": run, "course_id": run.CourseID})
}

func (h *CourseHandler) ListUserCourses(c *gin.Context) {
	courses, err := h.courses.GetUserCourses(c.Request.Context())
	if err != nil {
		h.log.Error("ListUserCourses failed", "error", err)
		respondServiceError(c, "load_courses_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"courses": courses})
}

func (h *CourseHandler) GetCourse(c *gin.Context) {
	id, ok := pathUUID(c)
	if !ok {
		return
	}
	course, err := h.courses.GetCourse(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, "load_course_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"course": course})
}

func pathUUID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return uuid.Nil, false
	}
	return id, true
}
