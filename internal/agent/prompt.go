// internal/agent/prompt.go
package agent

import (
	"fmt"
	"strings"
)

// operatingRules is the fixed policy embedded with the task. The rules steer
// tool choice; nothing in the loop enforces them.
var operatingRules = []string{
	"Use only the tools you were given. Do not invent tools or parameters.",
	"Be token-efficient: prefer get_page_content and find_element over take_screenshot.",
	"Work step by step and adapt to how the current site actually behaves.",
	"Do not write text= selectors by hand. They break on single-page applications.",
	"Prefer the selector returned by find_element. It is built to be stable.",
	"If a click fails, call take_screenshot before trying again so you can see the page.",
	`Describe elements with counters or badges naturally, e.g. "cart icon with number" or "orders link with badge".`,
	"Dismiss pop-ups, cookie banners and overlays as soon as they appear.",
	"Use ask_human only for risky actions (paying, deleting, sending) or when you are genuinely stuck.",
	"When the task is complete, reply with a clear, concise final answer and no tool call.",
}

// TaskPrompt renders the first message of a run: the task together with the
// operating rules. It is sent once and never evicted from the history.
func TaskPrompt(task string) string {
	var b strings.Builder
	b.WriteString("You are an autonomous agent controlling a web browser. Complete the following objective.\n\n")
	fmt.Fprintf(&b, "TASK: %s\n\n", strings.TrimSpace(task))
	b.WriteString("RULES:\n")
	for i, rule := range operatingRules {
		fmt.Fprintf(&b, "%d. %s\n", i+1, rule)
	}
	b.WriteString("\nThere is no predefined plan and there are no hardcoded selectors. Begin now.")
	return b.String()
}
