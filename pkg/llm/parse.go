package llm

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/havenapp/haven/pkg/tasks"
)

// maxNewTasks clamps how many additions one reply may carry, mirroring the
// instruction given to the model. The task repository clamps again, but doing
// it here keeps malformed replies from ever leaving this package oversized.
const maxNewTasks = 2

var responseField = regexp.MustCompile(`"response"\s*:\s*("(?:[^"\\]|\\.)*")`)

type wireReply struct {
	Response    string `json:"response"`
	TaskUpdates struct {
		NewTasks    []tasks.NewTask    `json:"newTasks"`
		RemoveTasks []tasks.RemoveTask `json:"removeTasks"`
	} `json:"taskUpdates"`
}

// ParseReply recovers a structured reply from whatever the model emitted.
// Well-formed JSON yields response plus directive; JSON-shaped prose falls
// back to extracting just the response field; anything else becomes a plain
// reply with no task updates. It never fails: a conversational turn should
// not error because the model rambled.
func ParseReply(raw string) Reply {
	s := StripFences(raw)

	var wire wireReply
	if err := json.Unmarshal([]byte(s), &wire); err == nil && wire.Response != "" {
		adds := wire.TaskUpdates.NewTasks
		if len(adds) > maxNewTasks {
			adds = adds[:maxNewTasks]
		}
		return Reply{
			Response: wire.Response,
			Directive: tasks.Directive{
				NewTasks:    adds,
				RemoveTasks: wire.TaskUpdates.RemoveTasks,
			},
		}
	}

	if m := responseField.FindStringSubmatch(s); m != nil {
		var text string
		if err := json.Unmarshal([]byte(m[1]), &text); err == nil && text != "" {
			return Reply{Response: text}
		}
	}

	return Reply{Response: strings.TrimSpace(s)}
}

// StripFences removes a leading ```json (or bare ```) fence and a trailing
// ``` fence. Models wrap JSON answers in fences despite being told not to.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimLeft(s, " \t\r\n")
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimRight(s, " \t\r\n")
	}
	return s
}
