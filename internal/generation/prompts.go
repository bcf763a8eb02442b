package generation

import (
	"fmt"
	"strings"

	"github.com/yungbote/courseforge/internal/llm/provider"
)

const questionsSystemPrompt = `You help personalize an AI course generator.
Ask what the learner needs so the course fits them. Output valid JSON only.`

const answersSystemPrompt = `You suggest short candidate answers to a personalization question.
Cover a range of plausible learners. Output valid JSON only.`

const blueprintSystemPrompt = `You are a senior curriculum architect.
Design a logical, progressive syllabus: start from fundamentals, raise complexity
gradually, and finish with a project or case study. Output valid JSON only.`

const planSystemPrompt = `You are a course architect who designs modern curricula.
Order chapters from fundamentals to advanced material, prefer current industry
practice, and tailor depth to the learner profile. Output valid JSON only.`

const moduleSystemPrompt = `You are a curriculum designer splitting a chapter into modules.
Each module is a coherent unit a learner finishes in one sitting. Output valid JSON only.`

const subMaterialSystemPrompt = `You are a curriculum designer listing the lessons of one module.
Lessons follow an efficient learning order and cover every key concept. Output valid JSON only.`

const contentSystemPrompt = `You are a technical lead writing a hands-on lesson.
Skip history and dictionary definitions. Go straight to syntax, implementation
and working examples. Output Markdown.`

func shaped(prompt, example string) string {
	return prompt + "\n\n" + provider.JSONShapeMarker + "\n" + example
}

func joinTopics(topics []string) string { return strings.Join(topics, ", ") }

func personalization(answers []PersonalizationAnswer) string {
	parts := make([]string, 0, len(answers))
	for _, a := range answers {
		if strings.TrimSpace(a.Answer) == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("Q: %s\nA: %s", strings.TrimSpace(a.Question), strings.TrimSpace(a.Answer)))
	}
	if len(parts) == 0 {
		return "(no answers given)"
	}
	return strings.Join(parts, "\n\n")
}

func referenceBlock(topic, ref string) string {
	if strings.TrimSpace(ref) == "" {
		return ""
	}
	return fmt.Sprintf("\n\nREFERENCE MATERIAL (%s):\n%s\n\nUse the reference above to keep the ordering current.", topic, ref)
}

func questionsMessages(topics []string) []provider.Message {
	prompt := fmt.Sprintf(`Topics chosen by the learner: %s

Write 4-5 personalization questions. Cover:
1. Learning goal (why they study this)
2. Current experience level
3. Technical background they already have
4. Preferred learning style
5. Time available to study
Give 5 suggested answers per question.`, joinTopics(topics))
	return []provider.Message{
		provider.System(questionsSystemPrompt),
		provider.User(shaped(prompt, `{"questions": [{"id": "q1", "question": "What is your main goal?", "suggestedAnswers": ["Get a job", "Build a side project", "Pass an exam"]}]}`)),
	}
}

func answersMessages(question string, topics []string) []provider.Message {
	prompt := fmt.Sprintf(`Suggest 5 answers to this question in the context of learning %s:

Question: %q

Keep each answer short and make them varied.`, joinTopics(topics), question)
	return []provider.Message{
		provider.System(answersSystemPrompt),
		provider.User(shaped(prompt, `{"answers": ["Beginner", "Some experience", "Professional"]}`)),
	}
}

func blueprintMessages(topics []string, answers []PersonalizationAnswer, ref string) []provider.Message {
	prompt := fmt.Sprintf(`Topics: %s

Learner profile:
%s%s

Plan 6-8 chapters (weeks). For every chapter give a one-sentence objective and 3-5 subtopics.`,
		joinTopics(topics), personalization(answers), referenceBlock(topics[0], ref))
	return []provider.Message{
		provider.System(blueprintSystemPrompt),
		provider.User(shaped(prompt, `{"chapters": [{"number": 1, "title": "Foundations", "description": "Set up the toolchain and learn the core syntax.", "topics": ["Installation", "Syntax basics", "First program"]}]}`)),
	}
}

func planMessages(topics []string, answers []PersonalizationAnswer, ref string, chapters int) []provider.Message {
	prompt := fmt.Sprintf(`Course topics: %s

Learner profile:
%s%s

Plan %d chapters that:
1. Follow an effective learning order (fundamentals first)
2. Match the learner's level and goals
3. Cover every important aspect of the topics
4. Prefer state-of-the-art material`,
		joinTopics(topics), personalization(answers), referenceBlock(topics[0], ref), chapters)
	return []provider.Message{
		provider.System(planSystemPrompt),
		provider.User(shaped(prompt, `{"chapters": [{"number": 1, "title": "Getting Started", "description": "What the chapter covers."}]}`)),
	}
}

func moduleMessages(topics []string, item ChapterPlanItem, total, min, max int) []provider.Message {
	prompt := fmt.Sprintf(`Chapter %d of %d: %q
Chapter description: %s
Course topics: %s%s

Split the chapter into %d-%d modules in learning order.`,
		item.Number, total, item.Title, item.Description, joinTopics(topics), hintBlock(item.Topics), min, max)
	return []provider.Message{
		provider.System(moduleSystemPrompt),
		provider.User(shaped(prompt, `{"modules": [{"title": "Core concepts"}, {"title": "Hands-on practice"}]}`)),
	}
}

func subMaterialMessages(topics []string, item ChapterPlanItem, mod ModuleDescriptor) []provider.Message {
	prompt := fmt.Sprintf(`Chapter %d: %q
Module: %q
Course topics: %s%s

List 2-4 lesson titles for this module.`,
		item.Number, item.Title, mod.Title, joinTopics(topics), hintBlock(item.Topics))
	return []provider.Message{
		provider.System(subMaterialSystemPrompt),
		provider.User(shaped(prompt, `{"sub_materials": [{"title": "Lesson title"}]}`)),
	}
}

func contentMessages(topics []string, item ChapterPlanItem, mod ModuleDescriptor, sub SubMaterialDescriptor) []provider.Message {
	prompt := fmt.Sprintf(`Context:
Chapter: %s
Module: %s
Lesson: %s
Topics: %s

Required structure:
1. **Syntax & Signature**: the basic form of the code or formula.
2. **Technical Breakdown**: parameters, arguments, types and return values.
3. **Live Code Example**: a real example that runs as-is, with comments on the important lines.
4. **Common Pitfalls**: frequent technical mistakes.
5. **Best Practice**: the standard industry way to write it.

Assume the reader knows the basics and wants to know how to use it.`,
		item.Title, mod.Title, sub.Title, joinTopics(topics))
	return []provider.Message{
		provider.System(contentSystemPrompt),
		provider.User(prompt),
	}
}

func hintBlock(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return "\nChapter subtopics: " + strings.Join(hints, ", ")
}
