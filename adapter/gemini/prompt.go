package gemini

import (
	"strings"

	"github.com/muikit/muikit"
)

// buildPrompt flattens messages into "role: content" lines, led by the instruction line
// when instruction is non-empty.
func buildPrompt(instruction string, messages []muikit.Message) string {
	lines := make([]string, 0, len(messages)+1)
	if instruction != "" {
		lines = append(lines, string(muikit.RoleSystem)+": "+instruction)
	}
	for _, m := range messages {
		lines = append(lines, string(m.RoleOrDefault())+": "+m.Text())
	}
	return strings.Join(lines, "\n")
}
