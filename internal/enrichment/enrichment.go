// Package enrichment finds reference text about a topic to ground course
// prompts. Every source is optional; a miss is an empty string, never an
// error the pipeline has to handle.
package enrichment

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/courseforge/internal/llm/provider"
	"github.com/yungbote/courseforge/internal/llm/router"
	"github.com/yungbote/courseforge/internal/platform/logger"
)

type Generator interface {
	Route(ctx context.Context, tier router.Tier, messages []provider.Message) (string, error)
}

// Lookup returns reference text for a topic. "" means nothing was found.
type Lookup interface {
	Reference(ctx context.Context, topic string) (string, error)
}

// Note is one research finding.
type Note struct {
	Source string
	Title  string
	URL    string
	Text   string
}

// Researcher gathers notes for a query from one source.
type Researcher interface {
	Name() string
	Research(ctx context.Context, query string) ([]Note, error)
}

type Category string

const (
	CategoryProgramming Category = "programming"
	CategoryAcademic    Category = "academic"
	CategoryGeneral     Category = "general"
)

type Service struct {
	gen      Generator
	roadmap  *Roadmap
	general  []Researcher
	academic []Researcher
	maxChars int
	log      *logger.Logger
}

type ServiceOptions struct {
	Roadmap *Roadmap
	// General researchers run for every non-programming topic.
	General []Researcher
	// Academic researchers run in addition for academic topics.
	Academic []Researcher
	MaxChars int
}

func NewService(gen Generator, log *logger.Logger, opts ServiceOptions) *Service {
	if log == nil {
		log = logger.Nop()
	}
	if opts.MaxChars <= 0 {
		opts.MaxChars = 4000
	}
	return &Service{
		gen:      gen,
		roadmap:  opts.Roadmap,
		general:  opts.General,
		academic: opts.Academic,
		maxChars: opts.MaxChars,
		log:      log.Named("enrichment"),
	}
}

// Reference classifies the topic, then prefers a roadmap page for
// programming topics and falls back to summarized research.
func (s *Service) Reference(ctx context.Context, topic string) (string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", nil
	}
	cat := s.Classify(ctx, topic)

	if cat == CategoryProgramming && s.roadmap != nil {
		text, err := s.roadmap.Fetch(ctx, topic)
		if err != nil {
			s.log.Warn("roadmap lookup failed", "topic", topic, "error", err)
		}
		if text != "" {
			return "Roadmap.sh reference:\n" + text, nil
		}
	}

	researchers := s.general
	if cat == CategoryAcademic {
		researchers = append(append([]Researcher(nil), s.general...), s.academic...)
	}
	notes := s.gather(ctx, topic, researchers)
	if len(notes) == 0 {
		return "", nil
	}
	summary, err := s.Synthesize(ctx, topic, notes)
	if err != nil {
		s.log.Warn("research synthesis failed; using raw notes", "topic", topic, "error", err)
		return truncate(formatNotes(notes), s.maxChars), nil
	}
	return truncate(summary, s.maxChars), nil
}

const maxResearchConcurrency = 4

func (s *Service) gather(ctx context.Context, topic string, researchers []Researcher) []Note {
	results := make([][]Note, len(researchers))
	var g errgroup.Group
	g.SetLimit(maxResearchConcurrency)
	for i, r := range researchers {
		g.Go(func() error {
			notes, err := r.Research(ctx, topic)
			if err != nil {
				s.log.Warn("research source failed", "source", r.Name(), "topic", topic, "error", err)
				return nil
			}
			results[i] = notes
			return nil
		})
	}
	// sources log and drop their own failures
	_ = g.Wait()

	var out []Note
	for _, notes := range results {
		out = append(out, notes...)
	}
	return out
}

const classifyPrompt = `Classify the topic %q.
Answer "programming" if it belongs to software engineering, programming, DevOps or computer science (where roadmap.sh would have a guide).
Answer "academic" if it is a research-heavy science or mathematics subject.
Otherwise (history, cooking, business, languages, general science) answer "general".
Output ONLY the word.`

// Classify asks the Fast tier for the topic category. Failures yield general.
func (s *Service) Classify(ctx context.Context, topic string) Category {
	if s.gen == nil {
		return CategoryGeneral
	}
	out, err := s.gen.Route(ctx, router.TierFast, []provider.Message{
		provider.User(fmt.Sprintf(classifyPrompt, topic)),
	})
	if err != nil {
		s.log.Warn("topic classification failed", "topic", topic, "error", err)
		return CategoryGeneral
	}
	return parseCategory(out)
}

// parseCategory reads the first word of the answer; anything unrecognized is
// general.
func parseCategory(out string) Category {
	words := strings.FieldsFunc(strings.ToLower(out), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	if len(words) == 0 {
		return CategoryGeneral
	}
	switch Category(words[0]) {
	case CategoryProgramming:
		return CategoryProgramming
	case CategoryAcademic:
		return CategoryAcademic
	default:
		return CategoryGeneral
	}
}

const synthesizePrompt = `You are a research assistant. Summarize the raw research below about %q into a concise list of key concepts for a curriculum designer.

Raw data:
%s

Output format:
- Key concept (source)
- Key concept (source)`

// Synthesize condenses notes into a key-concept list on the Fast tier.
func (s *Service) Synthesize(ctx context.Context, topic string, notes []Note) (string, error) {
	if s.gen == nil {
		return "", fmt.Errorf("no generator configured")
	}
	raw := truncate(formatNotes(notes), 5000)
	out, err := s.gen.Route(ctx, router.TierFast, []provider.Message{
		provider.User(fmt.Sprintf(synthesizePrompt, topic, raw)),
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func formatNotes(notes []Note) string {
	parts := make([]string, 0, len(notes))
	for _, n := range notes {
		line := fmt.Sprintf("[%s] %s: %s", strings.ToUpper(n.Source), n.Title, n.Text)
		if n.URL != "" {
			line += " (" + n.URL + ")"
		}
		parts = append(parts, line)
	}
	return strings.Join(parts, "\n\n")
}

func truncate(s string, max int) string {
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

// Static is a Lookup over a fixed map, used by the offline CLI and tests.
type Static map[string]string

func (s Static) Reference(_ context.Context, topic string) (string, error) {
	return s[strings.ToLower(strings.TrimSpace(topic))], nil
}
