package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/courseforge/internal/generation"
	"github.com/yungbote/courseforge/internal/platform/ctxutil"
	"github.com/yungbote/courseforge/internal/platform/logger"
	"github.com/yungbote/courseforge/internal/repos"
	"github.com/yungbote/courseforge/internal/types"
)

var (
	ErrUnauthenticated = errors.New("missing caller identity")
	ErrRunFinished     = errors.New("generation run already finished")
	ErrShuttingDown    = errors.New("generation service is shutting down")
)

// CourseGenerator is the orchestrator surface the service drives.
type CourseGenerator interface {
	Generate(ctx context.Context, req generation.Request, progress generation.ProgressFunc, persist generation.PersistFunc) (*generation.Course, error)
}

type StartInput struct {
	Topics  []string                           `json:"topics"`
	Answers []generation.PersonalizationAnswer `json:"answers,omitempty"`
	Plan    []generation.ChapterPlanItem       `json:"plan,omitempty"`
}

type CourseGenerationService interface {
	// Start creates a draft course and a queued run, then generates in the
	// background. The caller comes from ctxutil.Caller.
	Start(ctx context.Context, in StartInput) (*types.CourseGenerationRun, error)
	GetRun(ctx context.Context, runID uuid.UUID) (*types.CourseGenerationRun, error)
	Cancel(ctx context.Context, runID uuid.UUID) error
	// Shutdown cancels active runs and waits for them to record their outcome.
	Shutdown(ctx context.Context) error
}

type courseGenerationService struct {
	log      *logger.Logger
	gen      CourseGenerator
	courses  repos.CourseRepo
	runs     repos.CourseGenerationRunRepo
	bus      ProgressBus
	archive  ChapterArchive
	baseCtx  context.Context
	stopAll  context.CancelFunc
	wg       sync.WaitGroup
	mu       sync.Mutex
	active   map[uuid.UUID]context.CancelFunc
	draining bool
}

// NewCourseGenerationService wires the service. archive may be nil.
func NewCourseGenerationService(
	baseLog *logger.Logger,
	gen CourseGenerator,
	courses repos.CourseRepo,
	runs repos.CourseGenerationRunRepo,
	bus ProgressBus,
	archive ChapterArchive,
) CourseGenerationService {
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &courseGenerationService{
		log:     baseLog.With("service", "CourseGenerationService"),
		gen:     gen,
		courses: courses,
		runs:    runs,
		bus:     bus,
		archive: archive,
		baseCtx: ctx,
		stopAll: cancel,
		active:  map[uuid.UUID]context.CancelFunc{},
	}
}

func (s *courseGenerationService) Start(ctx context.Context, in StartInput) (*types.CourseGenerationRun, error) {
	owner := ctxutil.Caller(ctx)
	if owner == "" {
		return nil, ErrUnauthenticated
	}
	topics := make([]string, 0, len(in.Topics))
	for _, t := range in.Topics {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}
	if len(topics) == 0 {
		return nil, generation.ErrNoTopics
	}
	in.Topics = topics

	s.mu.Lock()
	draining := s.draining
	s.mu.Unlock()
	if draining {
		return nil, ErrShuttingDown
	}

	course := &types.Course{
		OwnerID: owner,
		Title:   strings.Join(topics, " & "),
		Topics:  datatypes.JSONSlice[string](topics),
		Status:  types.CourseStatusDraft,
	}
	if err := s.courses.Create(ctx, nil, course); err != nil {
		return nil, fmt.Errorf("create draft course: %w", err)
	}

	reqJSON, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	run := &types.CourseGenerationRun{
		CourseID: course.ID,
		OwnerID:  owner,
		Status:   types.RunStatusQueued,
		Stage:    generation.StagePlanning,
		Request:  datatypes.JSON(reqJSON),
	}
	if err := s.runs.Create(ctx, nil, run); err != nil {
		return nil, fmt.Errorf("create generation run: %w", err)
	}

	runCtx, cancel := context.WithCancel(s.baseCtx)
	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		cancel()
		_ = s.runs.UpdateFields(ctx, nil, run.ID, map[string]interface{}{
			"status": types.RunStatusCanceled,
			"error":  ErrShuttingDown.Error(),
		})
		return nil, ErrShuttingDown
	}
	s.active[run.ID] = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.active, run.ID)
			s.mu.Unlock()
			cancel()
		}()
		s.execute(runCtx, run.ID, course.ID, owner, in)
	}()

	s.log.Info("course generation queued", "run_id", run.ID, "course_id", course.ID, "owner_id", owner, "topics", topics)
	return run, nil
}

func (s *courseGenerationService) execute(ctx context.Context, runID, courseID uuid.UUID, owner string, in StartInput) {
	// bookkeeping writes must land even after the run is canceled
	bg := context.WithoutCancel(ctx)
	log := s.log.With("run_id", runID, "course_id", courseID)
	started := time.Now()

	if err := s.runs.UpdateFields(bg, nil, runID, map[string]interface{}{
		"status":     types.RunStatusRunning,
		"started_at": started,
	}); err != nil {
		log.Warn("mark run running failed", "error", err)
	}

	progress := func(p generation.Progress) {
		if err := s.runs.UpdateFields(bg, nil, runID, map[string]interface{}{
			"phase":            p.Phase,
			"progress_current": p.Current,
			"progress_total":   p.Total,
		}); err != nil {
			log.Warn("record progress failed", "error", err)
		}
		s.publish(bg, ProgressEvent{RunID: runID.String(), CourseID: courseID.String(), Event: EventProgress, Phase: p.Phase, Current: p.Current, Total: p.Total})
	}

	persist := func(ctx context.Context, ch generation.Chapter) error {
		modules, err := json.Marshal(ch.Modules)
		if err != nil {
			return err
		}
		row := &types.CourseChapter{
			CourseID:    courseID,
			Number:      ch.Number,
			Title:       ch.Title,
			Description: ch.Description,
			Modules:     datatypes.JSON(modules),
		}
		if err := s.courses.AppendChapter(bg, nil, row); err != nil {
			return err
		}
		if s.archive != nil {
			if key, err := s.archive.Put(bg, courseID.String(), ch); err != nil {
				log.Warn("chapter archive failed", "chapter", ch.Number, "error", err)
			} else {
				log.Debug("chapter archived", "chapter", ch.Number, "key", key)
			}
		}
		s.publish(bg, ProgressEvent{RunID: runID.String(), CourseID: courseID.String(), Event: EventChapter, Chapter: ch.Number})
		return nil
	}

	course, err := s.gen.Generate(ctx, generation.Request{
		CourseID: courseID.String(),
		OwnerID:  owner,
		Topics:   in.Topics,
		Answers:  in.Answers,
		Plan:     in.Plan,
	}, progress, persist)

	finished := time.Now()
	if err == nil {
		if uerr := s.courses.UpdateFields(bg, nil, courseID, map[string]interface{}{
			"status":      types.CourseStatusReady,
			"title":       course.Title,
			"description": course.Description,
		}); uerr != nil {
			log.Error("finalize course failed", "error", uerr)
		}
		s.finishRun(bg, log, runID, map[string]interface{}{
			"status":      types.RunStatusSucceeded,
			"stage":       "done",
			"finished_at": finished,
		})
		s.publish(bg, ProgressEvent{RunID: runID.String(), CourseID: courseID.String(), Event: EventDone, Phase: "Complete", Current: len(course.Chapters), Total: len(course.Chapters)})
		log.Info("course generation succeeded", "chapters", len(course.Chapters), "elapsed_ms", finished.Sub(started).Milliseconds())
		return
	}

	status, event := types.RunStatusFailed, EventFailed
	if errors.Is(err, context.Canceled) {
		status, event = types.RunStatusCanceled, EventCanceled
	}
	stage := ""
	var se *generation.StageError
	if errors.As(err, &se) {
		stage = se.Stage
	}
	courseStatus := types.CourseStatusPartial
	if course == nil || len(course.Chapters) == 0 {
		courseStatus = types.CourseStatusFailed
	}
	if uerr := s.courses.UpdateFields(bg, nil, courseID, map[string]interface{}{
		"status": courseStatus,
	}); uerr != nil {
		log.Error("update course status failed", "status", courseStatus, "error", uerr)
	}
	updates := map[string]interface{}{
		"status":      status,
		"error":       err.Error(),
		"finished_at": finished,
	}
	if stage != "" {
		updates["stage"] = stage
	}
	s.finishRun(bg, log, runID, updates)
	persisted := 0
	if course != nil {
		persisted = len(course.Chapters)
	}
	s.publish(bg, ProgressEvent{RunID: runID.String(), CourseID: courseID.String(), Event: event, Error: err.Error(), Current: persisted})
	if status == types.RunStatusCanceled {
		log.Info("course generation canceled", "persisted_chapters", persisted)
	} else {
		log.Error("course generation failed", "stage", stage, "persisted_chapters", persisted, "error", err)
	}
}

func (s *courseGenerationService) finishRun(ctx context.Context, log *logger.Logger, runID uuid.UUID, updates map[string]interface{}) {
	if err := s.runs.UpdateFields(ctx, nil, runID, updates); err != nil {
		log.Error("record run outcome failed", "error", err)
	}
}

func (s *courseGenerationService) publish(ctx context.Context, ev ProgressEvent) {
	if s.bus == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	if err := s.bus.Publish(ctx, ev); err != nil {
		s.log.Warn("publish progress failed", "run_id", ev.RunID, "event", ev.Event, "error", err)
	}
}

func (s *courseGenerationService) GetRun(ctx context.Context, runID uuid.UUID) (*types.CourseGenerationRun, error) {
	owner := ctxutil.Caller(ctx)
	if owner == "" {
		return nil, ErrUnauthenticated
	}
	run, err := s.runs.GetByID(ctx, nil, runID)
	if err != nil {
		return nil, err
	}
	if run.OwnerID != owner {
		return nil, repos.ErrNotFound
	}
	return run, nil
}

func (s *courseGenerationService) Cancel(ctx context.Context, runID uuid.UUID) error {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	cancel, ok := s.active[runID]
	s.mu.Unlock()
	if !ok {
		if run.Terminal() {
			return ErrRunFinished
		}
		return repos.ErrNotFound
	}
	cancel()
	s.log.Info("course generation cancel requested", "run_id", runID)
	return nil
}

func (s *courseGenerationService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.draining = true
	s.mu.Unlock()
	s.stopAll()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
