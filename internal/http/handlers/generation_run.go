package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/courseforge/internal/http/response"
	"github.com/yungbote/courseforge/internal/platform/logger"
	"github.com/yungbote/courseforge/internal/services"
	"github.com/yungbote/courseforge/internal/types"
)

type GenerationRunHandler struct {
	log       *logger.Logger
	runs      services.CourseGenerationService
	bus       services.ProgressBus
	heartbeat time.Duration
	closing   chan struct{}
	closeOnce sync.Once
}

func NewGenerationRunHandler(log *logger.Logger, runs services.CourseGenerationService, bus services.ProgressBus) *GenerationRunHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &GenerationRunHandler{
		log:       log.With("handler", "GenerationRunHandler"),
		runs:      runs,
		bus:       bus,
		heartbeat: 15 * time.Second,
		closing:   make(chan struct{}),
	}
}

// Close ends every open event stream.
func (h *GenerationRunHandler) Close() {
	h.closeOnce.Do(func() { close(h.closing) })
}

func (h *GenerationRunHandler) GetRun(c *gin.Context) {
	id, ok := pathUUID(c)
	if !ok {
		return
	}
	run, err := h.runs.GetRun(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, "load_run_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"run": run})
}

func (h *GenerationRunHandler) Cancel(c *gin.Context) {
	id, ok := pathUUID(c)
	if !ok {
		return
	}
	if err := h.runs.Cancel(c.Request.Context(), id); err != nil {
		respondServiceError(c, "cancel_run_failed", err)
		return
	}
	response.RespondAccepted(c, gin.H{"run_id": id, "status": "cancel_requested"})
}

// Events streams progress events as SSE until the run reaches a terminal
// event or the client disconnects. A finished run yields one snapshot event.
func (h *GenerationRunHandler) Events(c *gin.Context) {
	id, ok := pathUUID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	run, err := h.runs.GetRun(ctx, id)
	if err != nil {
		respondServiceError(c, "load_run_failed", err)
		return
	}

	var events <-chan services.ProgressEvent
	if !run.Terminal() {
		ch, stop, err := h.bus.Subscribe(ctx, id.String())
		if err != nil {
			h.log.Error("progress subscribe failed", "run_id", id, "error", err)
			response.RespondError(c, http.StatusServiceUnavailable, "progress_unavailable", err)
			return
		}
		defer stop()
		events = ch
	}

	w := c.Writer
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	// the snapshot covers events published before the subscription
	snapshot := snapshotEvent(run)
	h.write(c, snapshot)
	if snapshot.Terminal() {
		return
	}
	// a run may finish between GetRun and Subscribe
	if latest, err := h.runs.GetRun(ctx, id); err == nil && latest.Terminal() {
		h.write(c, snapshotEvent(latest))
		return
	}

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.closing:
			return
		case <-heartbeat.C:
			_, _ = fmt.Fprint(w, ": ping\n\n")
			w.Flush()
		case ev, open := <-events:
			if !open {
				return
			}
			h.write(c, ev)
			if ev.Terminal() {
				return
			}
		}
	}
}

func (h *GenerationRunHandler) write(c *gin.Context, ev services.ProgressEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.log.Warn("marshal progress event failed", "error", err)
		return
	}
	_, _ = fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", ev.Event, payload)
	c.Writer.Flush()
}

func snapshotEvent(run *types.CourseGenerationRun) services.ProgressEvent {
	ev := services.ProgressEvent{
		RunID:    run.ID.String(),
		CourseID: run.CourseID.String(),
		Event:    services.EventProgress,
		Phase:    run.Phase,
		Current:  run.Current,
		Total:    run.Total,
		Error:    run.Error,
		At:       run.UpdatedAt,
	}
	switch run.Status {
	case types.RunStatusSucceeded:
		ev.Event = services.EventDone
	case types.RunStatusFailed:
		ev.Event = services.EventFailed
	case types.RunStatusCanceled:
		ev.Event = services.EventCanceled
	}
	return ev
}
