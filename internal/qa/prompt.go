package qa

import (
	"strings"

	"github.com/yungbote/courseforge/internal/llm/provider"
)

const reviewSystemPrompt = `You are a meticulous course quality reviewer.
Score the lesson from 1 to 10 against five dimensions:
1. Factual accuracy
2. Coherence and flow
3. Alignment with the lesson objective
4. Difficulty calibration for the stated audience
5. Markdown formatting quality
List concrete issues and suggestions. Only when the fixes are minor, include
a full corrected version of the lesson as revisedContent; otherwise use null.`

func reviewMessages(in Input, maxChars int) []provider.Message {
	content := in.Content
	if r := []rune(content); len(r) > maxChars {
		content = string(r[:maxChars])
	}
	var b strings.Builder
	b.WriteString("Course topics: ")
	b.WriteString(strings.Join(in.Topics, ", "))
	b.WriteString("\nChapter: ")
	b.WriteString(in.ChapterTitle)
	b.WriteString("\nLesson: ")
	b.WriteString(in.SubMaterialTitle)
	b.WriteString("\n\nLESSON CONTENT:\n")
	b.WriteString(content)
	b.WriteString("\n\n")
	b.WriteString(provider.JSONShapeMarker)
	b.WriteString("\n")
	b.WriteString(`{"score": 8, "issues": [], "suggestions": [], "revisedContent": null}`)
	return []provider.Message{
		provider.System(reviewSystemPrompt),
		provider.User(b.String()),
	}
}
