package generation

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/courseforge/internal/llm/router"
)

const (
	maxQuestions        = 5
	maxSuggestedAnswers = 5
)

type questionDraft struct {
	ID                    string   `json:"id"`
	Question              string   `json:"question"`
	SuggestedAnswers      []string `json:"suggestedAnswers"`
	SuggestedAnswersSnake []string `json:"suggested_answers"`
}

// PersonalizationQuestions asks the Powerful tier for 4-5 questions about
// the learner's goals, level, background, style and available time.
func (o *Orchestrator) PersonalizationQuestions(ctx context.Context, topics []string) ([]Question, error) {
	topics = cleanTopics(topics)
	if len(topics) == 0 {
		return nil, ErrNoTopics
	}
	raw, err := o.gen.Route(ctx, router.TierPowerful, questionsMessages(topics))
	if err != nil {
		return nil, err
	}
	var drafts []questionDraft
	if err := decodeList(raw, &drafts, "questions"); err != nil {
		return nil, err
	}
	out := make([]Question, 0, len(drafts))
	seen := map[string]bool{}
	for _, d := range drafts {
		text := strings.TrimSpace(d.Question)
		if text == "" {
			continue
		}
		if len(out) == maxQuestions {
			break
		}
		id := strings.TrimSpace(d.ID)
		if id == "" || seen[id] {
			id = fmt.Sprintf("q%d", len(out)+1)
		}
		seen[id] = true
		answers := d.SuggestedAnswers
		if len(answers) == 0 {
			answers = d.SuggestedAnswersSnake
		}
		out = append(out, Question{ID: id, Question: text, SuggestedAnswers: capAnswers(answers)})
	}
	if len(out) == 0 {
		return nil, &EmptyPlanError{Stage: "questions"}
	}
	return out, nil
}

// SuggestedAnswers returns up to five short answers for one question.
func (o *Orchestrator) SuggestedAnswers(ctx context.Context, question string, topics []string) ([]string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("generation: question is required")
	}
	raw, err := o.gen.Route(ctx, router.TierFast, answersMessages(question, cleanTopics(topics)))
	if err != nil {
		return nil, err
	}
	var answers []string
	if err := decodeList(raw, &answers, "answers", "suggestedAnswers"); err != nil {
		return nil, err
	}
	out := capAnswers(answers)
	if len(out) == 0 {
		return nil, &EmptyPlanError{Stage: "answers"}
	}
	return out, nil
}

// Blueprint produces the 6-8 chapter syllabus that Generate accepts as
// Request.Plan. Reference text for the primary topic is folded in when
// available.
func (o *Orchestrator) Blueprint(ctx context.Context, topics []string, answers []PersonalizationAnswer) ([]ChapterPlanItem, error) {
	topics = cleanTopics(topics)
	if len(topics) == 0 {
		return nil, ErrNoTopics
	}
	ref := o.reference(ctx, topics[0])
	raw, err := o.gen.Route(ctx, router.TierPowerful, blueprintMessages(topics, answers, ref))
	if err != nil {
		return nil, err
	}
	plan, err := decodePlan(raw)
	if err != nil {
		return nil, err
	}
	if len(plan) == 0 {
		return nil, &EmptyPlanError{Stage: "blueprint"}
	}
	return plan, nil
}

func capAnswers(in []string) []string {
	out := make([]string, 0, len(in))
	for _, a := range in {
		if a = strings.TrimSpace(a); a == "" {
			continue
		}
		out = append(out, a)
		if len(out) == maxSuggestedAnswers {
			break
		}
	}
	return out
}
