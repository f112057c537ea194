package reasoning

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hupe1980/parkmesh/core"
)

// BuildPrompt renders a task and its accumulated cues as a textual prompt
// for a language-model provider. The rendering is deterministic: payload and
// cue data are serialized with sorted keys (encoding/json sorts map keys),
// and cues appear in the order the bus delivered them.
func BuildPrompt(task core.Task, cues []core.Cue) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Task kind: %s\n", task.Kind)

	if len(task.Payload) > 0 {
		payload, err := json.Marshal(task.Payload)
		if err == nil {
			fmt.Fprintf(&sb, "Task payload: %s\n", payload)
		}
	}

	if len(task.Constraints.Hard) > 0 {
		hard, err := json.Marshal(task.Constraints.Hard)
		if err == nil {
			fmt.Fprintf(&sb, "Hard constraints: %s\n", hard)
		}
	}

	for _, cue := range cues {
		data, err := json.Marshal(cue.Data)
		if err != nil {
			continue
		}

		fmt.Fprintf(&sb, "Cue from %s: %s\n", cue.Source, data)
	}

	sb.WriteString("Respond with a single JSON object.")

	return sb.String()
}

// ParseOutput interprets a provider reply. A reply that is a JSON object is
// returned as-is; anything else is wrapped under a "text" key so callers
// always receive structured output.
func ParseOutput(text string) map[string]any {
	trimmed := strings.TrimSpace(text)

	if strings.HasPrefix(trimmed, "{") {
		var out map[string]any
		if err := json.Unmarshal([]byte(trimmed), &out); err == nil {
			return out
		}
	}

	return map[string]any{"text": trimmed}
}
