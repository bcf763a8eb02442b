// Package generation drives a course into existence: plan chapters, derive
// modules and lessons, write lesson content, review it, and hand each
// finished chapter to a persistence sink.
package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/courseforge/internal/llm/provider"
	"github.com/yungbote/courseforge/internal/llm/router"
	"github.com/yungbote/courseforge/internal/modelparse"
	"github.com/yungbote/courseforge/internal/platform/logger"
	"github.com/yungbote/courseforge/internal/qa"
)

type Generator interface {
	Route(ctx context.Context, tier router.Tier, messages []provider.Message) (string, error)
}

type QualityChecker interface {
	Check(ctx context.Context, in qa.Input) qa.Feedback
}

// Lookup returns reference text for a topic; "" means none.
type Lookup interface {
	Reference(ctx context.Context, topic string) (string, error)
}

// PersistFunc stores one finished chapter. An error aborts the run.
type PersistFunc func(ctx context.Context, ch Chapter) error

type Orchestrator struct {
	gen    Generator
	gate   QualityChecker
	refs   Lookup
	log    *logger.Logger
	opts   Options
	tracer trace.Tracer
}

// New wires an orchestrator. gate and refs may be nil.
func New(gen Generator, gate QualityChecker, refs Lookup, log *logger.Logger, opts Options) *Orchestrator {
	def := DefaultOptions()
	if opts.MaxModules <= 0 {
		opts.MaxModules = def.MaxModules
	}
	if opts.MinModules <= 0 {
		opts.MinModules = def.MinModules
	}
	if opts.MinModules > opts.MaxModules {
		opts.MinModules = opts.MaxModules
	}
	if opts.ChapterCount <= 0 {
		opts.ChapterCount = def.ChapterCount
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Orchestrator{
		gen:    gen,
		gate:   gate,
		refs:   refs,
		log:    log.Named("generation"),
		opts:   opts,
		tracer: otel.Tracer("courseforge/generation"),
	}
}

// Generate runs the whole pipeline. Chapters are processed one after the
// other; modules of a chapter run concurrently with a stagger between
// starts. On error the returned course holds the chapters already persisted
// and the error is a *StageError.
func (o *Orchestrator) Generate(ctx context.Context, req Request, progress ProgressFunc, persist PersistFunc) (*Course, error) {
	topics := cleanTopics(req.Topics)
	if len(topics) == 0 {
		return nil, ErrNoTopics
	}
	rep := &reporter{fn: progress}
	log := o.log.With("course_id", req.CourseID, "owner_id", req.OwnerID)

	plan := normalizePlan(req.Plan)
	if len(req.Plan) > 0 && len(plan) == 0 {
		log.Error("supplied chapter plan has no usable chapters", "items", len(req.Plan))
		return nil, &StageError{Stage: StagePlanning, Err: &EmptyPlanError{Stage: StagePlanning}}
	}
	if len(plan) == 0 {
		rep.emit("Planning course", 0, 0)
		var err error
		plan, err = o.planChapters(ctx, topics, req.Answers)
		if err != nil {
			log.Error("course planning failed", "error", err)
			return nil, &StageError{Stage: StagePlanning, Err: err}
		}
	} else {
		log.Debug("using supplied chapter plan", "chapters", len(plan))
	}

	total := len(plan)
	course := &Course{
		ID:          req.CourseID,
		OwnerID:     req.OwnerID,
		Title:       courseTitle(topics),
		Description: courseDescription(topics, total),
		Topics:      topics,
		Chapters:    make([]Chapter, 0, total),
	}

	for i, item := range plan {
		if err := ctx.Err(); err != nil {
			log.Info("generation canceled", "next_chapter", item.Number)
			return course, &StageError{Stage: StageCanceled, Chapter: item.Number, Err: err}
		}
		label := fmt.Sprintf("Chapter %d: %s", item.Number, item.Title)
		rep.emit(label, i, total)

		start := time.Now()
		ch, err := o.buildChapter(ctx, topics, item, total, func(module string) {
			rep.emit(label+" / "+module, i, total)
		})
		if err != nil {
			log.Error("chapter generation failed", "chapter", item.Number, "error", err)
			return course, err
		}
		if persist != nil {
			if err := persist(ctx, ch); err != nil {
				log.Error("chapter persistence failed", "chapter", item.Number, "error", err)
				return course, &StageError{Stage: StagePersist, Chapter: item.Number, Err: &PersistenceError{Chapter: item.Number, Err: err}}
			}
		}
		course.Chapters = append(course.Chapters, ch)
		log.Info("chapter complete", "chapter", item.Number, "modules", len(ch.Modules), "elapsed_ms", time.Since(start).Milliseconds())
		rep.emit(label, i+1, total)
	}

	rep.emit("Complete", total, total)
	return course, nil
}

func (o *Orchestrator) planChapters(ctx context.Context, topics []string, answers []PersonalizationAnswer) ([]ChapterPlanItem, error) {
	ref := o.reference(ctx, topics[0])
	raw, err := o.gen.Route(ctx, router.TierPowerful, planMessages(topics, answers, ref, o.opts.ChapterCount))
	if err != nil {
		return nil, err
	}
	plan, err := decodePlan(raw)
	if err != nil {
		return nil, err
	}
	if len(plan) == 0 {
		return nil, &EmptyPlanError{Stage: StagePlanning}
	}
	return plan, nil
}

// planDraft omits the chapter number: models often quote it, and chapters
// are renumbered by position anyway.
type planDraft struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Topics      []string `json:"topics"`
}

func decodePlan(raw string) ([]ChapterPlanItem, error) {
	var drafts []planDraft
	if err := decodeList(raw, &drafts, "chapters", "syllabus"); err != nil {
		return nil, err
	}
	items := make([]ChapterPlanItem, 0, len(drafts))
	for _, d := range drafts {
		items = append(items, ChapterPlanItem{Title: d.Title, Description: d.Description, Topics: d.Topics})
	}
	return normalizePlan(items), nil
}

func (o *Orchestrator) buildChapter(ctx context.Context, topics []string, item ChapterPlanItem, total int, tick func(module string)) (Chapter, error) {
	ctx, span := o.tracer.Start(ctx, "generation.chapter", trace.WithAttributes(
		attribute.Int("chapter.number", item.Number),
		attribute.String("chapter.title", item.Title),
	))
	defer span.End()

	mods, err := o.deriveModules(ctx, topics, item, total)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Chapter{}, &StageError{Stage: StageModules, Chapter: item.Number, Err: err}
	}
	span.SetAttributes(attribute.Int("chapter.modules", len(mods)))

	// Results land by planned index so completion order never leaks into
	// the chapter.
	results := make([]Module, len(mods))
	g, gctx := errgroup.WithContext(ctx)
	var launchErr error
	for k, md := range mods {
		if k > 0 {
			if err := sleepCtx(gctx, o.opts.ModuleStagger); err != nil {
				launchErr = err
				break
			}
		}
		g.Go(func() error {
			tick(md.Title)
			m, err := o.buildModule(gctx, topics, item, md)
			if err != nil {
				return err
			}
			results[k] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Chapter{}, err
	}
	if launchErr != nil {
		return Chapter{}, &StageError{Stage: StageCanceled, Chapter: item.Number, Err: launchErr}
	}

	return Chapter{
		ID:          fmt.Sprintf("chapter-%d", item.Number),
		Number:      item.Number,
		Title:       item.Title,
		Description: item.Description,
		Modules:     results,
	}, nil
}

func (o *Orchestrator) deriveModules(ctx context.Context, topics []string, item ChapterPlanItem, total int) ([]ModuleDescriptor, error) {
	raw, err := o.gen.Route(ctx, router.TierFast, moduleMessages(topics, item, total, o.opts.MinModules, o.opts.MaxModules))
	if err != nil {
		return nil, err
	}
	var items []ModuleDescriptor
	if err := decodeList(raw, &items, "modules"); err != nil {
		return nil, err
	}
	out := make([]ModuleDescriptor, 0, len(items))
	for _, it := range items {
		title := strings.TrimSpace(it.Title)
		if title == "" {
			continue
		}
		if len(out) == o.opts.MaxModules {
			break
		}
		out = append(out, ModuleDescriptor{ID: fmt.Sprintf("ch%d-m%d", item.Number, len(out)+1), Title: title})
	}
	if len(out) == 0 {
		return nil, &EmptyPlanError{Stage: StageModules}
	}
	if len(out) < o.opts.MinModules {
		o.log.Debug("fewer modules than requested", "chapter", item.Number, "modules", len(out))
	}
	return out, nil
}

func (o *Orchestrator) buildModule(ctx context.Context, topics []string, item ChapterPlanItem, md ModuleDescriptor) (Module, error) {
	subs, err := o.deriveSubMaterials(ctx, topics, item, md)
	if err != nil {
		return Module{}, &StageError{Stage: StageSubMaterials, Chapter: item.Number, Err: err}
	}
	mod := Module{ID: md.ID, Title: md.Title, SubMaterials: make([]SubMaterial, 0, len(subs))}
	for _, sd := range subs {
		if err := sleepCtx(ctx, o.opts.ContentDelay); err != nil {
			return Module{}, &StageError{Stage: StageContent, Chapter: item.Number, Err: err}
		}
		content, err := o.gen.Route(ctx, router.TierFast, contentMessages(topics, item, md, sd))
		if err != nil {
			return Module{}, &StageError{Stage: StageContent, Chapter: item.Number, Err: err}
		}
		content = o.review(ctx, topics, item, sd, content)
		mod.SubMaterials = append(mod.SubMaterials, SubMaterial{ID: sd.ID, Title: sd.Title, Content: content})
	}
	return mod, nil
}

func (o *Orchestrator) deriveSubMaterials(ctx context.Context, topics []string, item ChapterPlanItem, md ModuleDescriptor) ([]SubMaterialDescriptor, error) {
	raw, err := o.gen.Route(ctx, router.TierFast, subMaterialMessages(topics, item, md))
	if err != nil {
		return nil, err
	}
	var items []SubMaterialDescriptor
	if err := decodeList(raw, &items, "sub_materials", "subMaterials", "lessons"); err != nil {
		return nil, err
	}
	out := make([]SubMaterialDescriptor, 0, len(items))
	for _, it := range items {
		title := strings.TrimSpace(it.Title)
		if title == "" {
			continue
		}
		out = append(out, SubMaterialDescriptor{ID: fmt.Sprintf("%s-s%d", md.ID, len(out)+1), Title: title})
	}
	if len(out) == 0 {
		return nil, &EmptyPlanError{Stage: StageSubMaterials}
	}
	return out, nil
}

// review runs the quality gate. Only a passing review with a non-empty
// revision replaces the content.
func (o *Orchestrator) review(ctx context.Context, topics []string, item ChapterPlanItem, sd SubMaterialDescriptor, content string) string {
	if o.gate == nil {
		return content
	}
	fb := o.gate.Check(ctx, qa.Input{
		Content:          content,
		ChapterTitle:     item.Title,
		SubMaterialTitle: sd.Title,
		Topics:           topics,
	})
	if !fb.Passed {
		o.log.Info("qa flagged lesson; keeping original", "sub_material", sd.ID, "score", fb.Score, "issues", len(fb.Issues))
		return content
	}
	if o.opts.ApplyRevisions && strings.TrimSpace(fb.RevisedContent) != "" {
		o.log.Debug("applying qa revision", "sub_material", sd.ID, "score", fb.Score)
		return fb.RevisedContent
	}
	return content
}

// reference never fails; lookup errors are logged and dropped.
func (o *Orchestrator) reference(ctx context.Context, topic string) string {
	if o.refs == nil {
		return ""
	}
	text, err := o.refs.Reference(ctx, topic)
	if err != nil {
		o.log.Warn("reference lookup failed", "topic", topic, "error", err)
		return ""
	}
	return text
}

type reporter struct {
	mu   sync.Mutex
	fn   ProgressFunc
	last int
}

func (r *reporter) emit(phase string, current, total int) {
	if r.fn == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if current < r.last {
		current = r.last
	} else {
		r.last = current
	}
	r.fn(Progress{Phase: phase, Current: current, Total: total})
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// decodeList extracts a list either from a bare JSON array or from the
// first of keys present on a JSON object.
func decodeList(raw string, dst any, keys ...string) error {
	v, err := modelparse.Parse(raw)
	if err != nil {
		return err
	}
	if m, ok := v.(map[string]any); ok {
		v = nil
		for _, k := range keys {
			if inner, ok := m[k]; ok {
				v = inner
				break
			}
		}
	}
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return &modelparse.MalformedOutputError{Raw: raw, Err: err}
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return &modelparse.MalformedOutputError{Raw: raw, Err: err}
	}
	return nil
}

func normalizePlan(items []ChapterPlanItem) []ChapterPlanItem {
	out := make([]ChapterPlanItem, 0, len(items))
	for _, it := range items {
		title := strings.TrimSpace(it.Title)
		if title == "" {
			continue
		}
		it.Title = title
		it.Description = strings.TrimSpace(it.Description)
		it.Topics = cleanTopics(it.Topics)
		it.Number = len(out) + 1
		out = append(out, it)
	}
	return out
}

func cleanTopics(in []string) []string {
	out := make([]string, 0, len(in))
	for _, t := range in {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func courseTitle(topics []string) string {
	return "The Complete Guide to " + strings.Join(topics, " & ")
}

func courseDescription(topics []string, chapters int) string {
	return fmt.Sprintf("A comprehensive %d-chapter course on %s, from fundamentals to mastery, tailored to your level and goals.", chapters, joinTopics(topics))
}
