package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/courseforge/internal/generation"
	"github.com/yungbote/courseforge/internal/http/response"
	"github.com/yungbote/courseforge/internal/llm/router"
	"github.com/yungbote/courseforge/internal/modelparse"
	"github.com/yungbote/courseforge/internal/repos"
	"github.com/yungbote/courseforge/internal/services"
)

// respondServiceError maps domain errors onto status codes. Upstream model
// failures are 502 since the request itself was valid.
func respondServiceError(c *gin.Context, fallbackCode string, err error) {
	var (
		allFailed *router.AllProvidersFailedError
		malformed *modelparse.MalformedOutputError
		emptyPlan *generation.EmptyPlanError
	)
	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", err)
	case errors.Is(err, repos.ErrNotFound):
		response.RespondError(c, http.StatusNotFound, "not_found", err)
	case errors.Is(err, generation.ErrNoTopics):
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
	case errors.Is(err, services.ErrRunFinished):
		response.RespondError(c, http.StatusConflict, "run_finished", err)
	case errors.Is(err, services.ErrShuttingDown):
		response.RespondError(c, http.StatusServiceUnavailable, "shutting_down", err)
	case errors.As(err, &allFailed):
		response.RespondError(c, http.StatusBadGateway, "providers_failed", err)
	case errors.As(err, &malformed), errors.As(err, &emptyPlan):
		response.RespondError(c, http.StatusBadGateway, "malformed_model_output", err)
	default:
		response.RespondError(c, http.StatusInternalServerError, fallbackCode, err)
	}
}
