package generation

import (
	"fmt"
	"strings"
)

// RenderMarkdown renders one chapter as a standalone markdown document.
func RenderMarkdown(ch Chapter) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Chapter %d: %s\n", ch.Number, ch.Title)
	if ch.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", ch.Description)
	}
	for _, m := range ch.Modules {
		fmt.Fprintf(&b, "\n## %s\n", m.Title)
		for _, s := range m.SubMaterials {
			fmt.Fprintf(&b, "\n### %s\n\n%s\n", s.Title, strings.TrimSpace(s.Content))
		}
	}
	return b.String()
}
