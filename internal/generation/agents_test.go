package generation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/yungbote/courseforge/internal/enrichment"
	"github.com/yungbote/courseforge/internal/llm/provider"
	"github.com/yungbote/courseforge/internal/llm/provider/mock"
	"github.com/yungbote/courseforge/internal/llm/router"
)

func TestPersonalizationQuestions(t *testing.T) {
	gen := &scriptedGen{respond: func(stage, user string) (string, error) {
		return `{"questions": [
			{"id": "q1", "question": "What is your goal?", "suggestedAnswers": ["Job", " ", "Hobby"]},
			{"id": "q1", "question": "How experienced are you?", "suggested_answers": ["New"]},
			{"question": "  "},
			{"question": "How do you learn best?"},
			{"question": "Q5"}, {"question": "Q6"}, {"question": "Q7"}
		]}`, nil
	}}
	qs, err := New(gen, nil, nil, nil, fastOptions()).PersonalizationQuestions(context.Background(), []string{"Go"})
	if err != nil {
		t.Fatalf("PersonalizationQuestions: %v", err)
	}
	if len(qs) != 5 {
		t.Fatalf("questions = %d, want 5", len(qs))
	}
	if qs[0].ID != "q1" || qs[1].ID != "q2" || qs[2].ID != "q3" {
		t.Fatalf("ids = %s,%s,%s", qs[0].ID, qs[1].ID, qs[2].ID)
	}
	if strings.Join(qs[0].SuggestedAnswers, "|") != "Job|Hobby" || qs[1].SuggestedAnswers[0] != "New" {
		t.Fatalf("answers = %v / %v", qs[0].SuggestedAnswers, qs[1].SuggestedAnswers)
	}
	if c := gen.first("questions"); c.tier != router.TierPowerful || !strings.Contains(c.user, "Go") {
		t.Fatalf("call = %+v", c)
	}
}

func TestPersonalizationQuestions_Empty(t *testing.T) {
	gen := &scriptedGen{respond: func(string, string) (string, error) { return `{"questions": []}`, nil }}
	_, err := New(gen, nil, nil, nil, fastOptions()).PersonalizationQuestions(context.Background(), []string{"Go"})
	var e *EmptyPlanError
	if !errors.As(err, &e) || e.Stage != "questions" {
		t.Fatalf("err = %v", err)
	}
}

func TestSuggestedAnswers(t *testing.T) {
	gen := &scriptedGen{respond: func(stage, user string) (string, error) {
		return `Sure! {"answers": ["a", "b", "", "c", "d", "e", "f"]}`, nil
	}}
	o := New(gen, nil, nil, nil, fastOptions())
	got, err := o.SuggestedAnswers(context.Background(), "What is your level?", []string{"Go"})
	if err != nil {
		t.Fatalf("SuggestedAnswers: %v", err)
	}
	if strings.Join(got, "") != "abcde" {
		t.Fatalf("answers = %v", got)
	}
	if c := gen.first("answers"); c.tier != router.TierFast || !strings.Contains(c.user, `"What is your level?"`) {
		t.Fatalf("call = %+v", c)
	}
	if _, err := o.SuggestedAnswers(context.Background(), " ", nil); err == nil {
		t.Fatalf("expected error for blank question")
	}
}

type failingLookup struct{}

func (failingLookup) Reference(context.Context, string) (string, error) {
	return "", errors.New("scraper down")
}

func TestBlueprint(t *testing.T) {
	gen := &scriptedGen{respond: func(stage, user string) (string, error) {
		return `{"chapters": [
			{"number": "3", "title": "Setup", "description": "Install", "topics": ["toolchain", " "]},
			{"number": 3, "title": "Types"},
			{"title": ""}
		]}`, nil
	}}
	o := New(gen, nil, enrichment.Static{"go": "ROADMAP"}, nil, fastOptions())
	plan, err := o.Blueprint(context.Background(), []string{"Go"}, []PersonalizationAnswer{{Question: "Level?", Answer: "Beginner"}})
	if err != nil {
		t.Fatalf("Blueprint: %v", err)
	}
	if len(plan) != 2 || plan[0].Number != 1 || plan[1].Number != 2 {
		t.Fatalf("plan = %+v", plan)
	}
	if len(plan[0].Topics) != 1 || plan[0].Topics[0] != "toolchain" {
		t.Fatalf("topics = %v", plan[0].Topics)
	}
	c := gen.first("blueprint")
	if c.tier != router.TierPowerful || !strings.Contains(c.user, "ROADMAP") || !strings.Contains(c.user, "Q: Level?\nA: Beginner") {
		t.Fatalf("call = %+v", c)
	}

	o = New(gen, nil, failingLookup{}, nil, fastOptions())
	if _, err := o.Blueprint(context.Background(), []string{"Go"}, nil); err != nil {
		t.Fatalf("lookup failure must not be fatal: %v", err)
	}
}

func TestMockRouterDrivesWholePipeline(t *testing.T) {
	r, err := router.New(map[router.Tier][]provider.Endpoint{
		router.TierFast:     {mock.New("mock-fast")},
		router.TierPowerful: {mock.New("mock-powerful")},
	}, nil)
	if err != nil {
		t.Fatalf("router.New: %v", err)
	}
	o := New(r, nil, nil, nil, fastOptions())
	plan, err := o.Blueprint(context.Background(), []string{"Go"}, nil)
	if err != nil {
		t.Fatalf("Blueprint: %v", err)
	}
	course, err := o.Generate(context.Background(), Request{Topics: []string{"Go"}, Plan: plan}, nil, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(course.Chapters) != 1 || len(course.Chapters[0].Modules) != 2 {
		t.Fatalf("course shape = %+v", course.Chapters)
	}
	if !strings.HasPrefix(course.Chapters[0].Modules[0].SubMaterials[0].Content, "mock: ") {
		t.Fatalf("content = %q", course.Chapters[0].Modules[0].SubMaterials[0].Content)
	}
}

func TestRenderMarkdown(t *testing.T) {
	md := RenderMarkdown(Chapter{
		Number:      2,
		Title:       "Types",
		Description: "Static typing.",
		Modules: []Module{{Title: "Basics", SubMaterials: []SubMaterial{
			{Title: "Ints", Content: "  int64 is 8 bytes.\n"},
		}}},
	})
	want := "# Chapter 2: Types\n\nStatic typing.\n\n## Basics\n\n### Ints\n\nint64 is 8 bytes.\n"
	if md != want {
		t.Fatalf("got:\n%s\nwant:\n%s", md, want)
	}
}
