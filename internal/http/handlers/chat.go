package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/courseforge/internal/http/response"
	"github.com/yungbote/courseforge/internal/llm/provider"
	"github.com/yungbote/courseforge/internal/llm/router"
	"github.com/yungbote/courseforge/internal/platform/logger"
)

const errMessagesRequired = "Messages array is required"

// ChatRouter is the tiered generation surface behind the chat endpoint.
type ChatRouter interface {
	Route(ctx context.Context, tier router.Tier, messages []provider.Message) (string, error)
	Endpoints(tier router.Tier) []string
}

type ChatHandler struct {
	log    *logger.Logger
	router ChatRouter
}

func NewChatHandler(log *logger.Logger, r ChatRouter) *ChatHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &ChatHandler{log: log.With("handler", "ChatHandler"), router: r}
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Content string `json:"content"`
}

// Chat routes {messages, tier} through the tier's endpoints. Any tier other
// than "fast" uses the powerful list.
func (h *ChatHandler) Chat(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.RespondChatError(c, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		response.RespondChatError(c, http.StatusBadRequest, errMessagesRequired)
		return
	}
	messages, tier, ok := parseChatRequest(raw)
	if !ok {
		response.RespondChatError(c, http.StatusBadRequest, errMessagesRequired)
		return
	}

	content, err := h.router.Route(c.Request.Context(), tier, messages)
	if err != nil {
		h.log.Error("chat generation failed", "tier", tier, "messages", len(messages), "error", err)
		response.RespondChatError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, chatResponse{Content: content})
}

// Preflight answers a bare OPTIONS that carried no Origin header and so was
// not handled by the CORS middleware.
func (h *ChatHandler) Preflight(c *gin.Context) {
	c.Status(http.StatusOK)
}

func (h *ChatHandler) Providers(c *gin.Context) {
	response.RespondOK(c, gin.H{
		"tiers": gin.H{
			string(router.TierFast):     h.router.Endpoints(router.TierFast),
			string(router.TierPowerful): h.router.Endpoints(router.TierPowerful),
		},
	})
}

func parseChatRequest(raw []byte) ([]provider.Message, router.Tier, bool) {
	var body map[string]json.RawMessage
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, "", false
	}
	msgRaw, present := body["messages"]
	if !present || !strings.HasPrefix(strings.TrimSpace(string(msgRaw)), "[") {
		return nil, "", false
	}
	var wire []wireMessage
	if err := json.Unmarshal(msgRaw, &wire); err != nil {
		return nil, "", false
	}
	messages := make([]provider.Message, 0, len(wire))
	for _, m := range wire {
		role, err := provider.ParseRole(m.Role)
		if err != nil {
			return nil, "", false
		}
		messages = append(messages, provider.Message{Role: role, Content: m.Content})
	}

	var tierName string
	if t, ok := body["tier"]; ok {
		_ = json.Unmarshal(t, &tierName)
	}
	return messages, router.ParseTier(tierName), true
}
