// internal/agent/history.go
package agent

import (
	"errors"
	"fmt"

	"github.com/xkilldash9x/webpilot/api/schemas"
)

// ErrBrokenPairing is returned when the conversation holds a tool call
// without exactly one matching result, or a result without its call.
var ErrBrokenPairing = errors.New("tool_use/tool_result pairing violated")

// History is the ordered conversation of a single run. Message 0 holds the
// task and is never evicted.
type History struct {
	messages []schemas.Message
	ceiling  int
	keep     int
}

// NewHistory starts a conversation with the task message. Trimming begins
// once the message count exceeds ceiling and retains the newest keep
// messages (plus the task). keep is clamped to [2, ceiling-1] so the
// retained tail always reaches back to an assistant turn.
func NewHistory(first schemas.Message, ceiling, keep int) *History {
	if ceiling < 3 {
		ceiling = 3
	}
	if keep < 2 {
		keep = 2
	}
	if keep >= ceiling {
		keep = ceiling - 1
	}
	return &History{
		messages: []schemas.Message{first},
		ceiling:  ceiling,
		keep:     keep,
	}
}

// Append adds a message at the end of the conversation.
func (h *History) Append(msg schemas.Message) {
	h.messages = append(h.messages, msg)
}

// Len is the number of messages currently held.
func (h *History) Len() int {
	return len(h.messages)
}

// Messages returns a copy of the conversation in order.
func (h *History) Messages() []schemas.Message {
	out := make([]schemas.Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// Trim evicts old messages once the ceiling is exceeded. It keeps message 0
// and the tail beginning at len-keep, moving the cut forward until it lands
// on an assistant message. A tail starting with an assistant turn can never
// hold a tool_result whose tool_use was evicted, and the user/assistant
// alternation after the task message is preserved.
//
// It reports how many messages were dropped.
func (h *History) Trim() int {
	n := len(h.messages)
	if n <= h.ceiling {
		return 0
	}

	cut := n - h.keep
	if cut < 1 {
		cut = 1
	}
	for cut < n && h.messages[cut].Role != schemas.RoleAssistant {
		cut++
	}
	if cut >= n || cut == 1 {
		return 0
	}

	kept := make([]schemas.Message, 0, 1+n-cut)
	kept = append(kept, h.messages[0])
	kept = append(kept, h.messages[cut:]...)
	h.messages = kept
	return cut - 1
}

// ValidatePairing checks that every tool_use is answered by exactly one
// tool_result in the message that immediately follows it, and that no
// tool_result refers to a call outside its preceding assistant turn. A
// trailing assistant turn is allowed to have unanswered calls.
func (h *History) ValidatePairing() error {
	return ValidatePairing(h.messages)
}

// ValidatePairing is the slice form of History.ValidatePairing.
func ValidatePairing(messages []schemas.Message) error {
	for i, msg := range messages {
		switch msg.Role {
		case schemas.RoleAssistant:
			uses := msg.ToolUses()
			if len(uses) == 0 || i == len(messages)-1 {
				continue
			}
			answered := make(map[string]int, len(uses))
			for _, r := range messages[i+1].ToolResults() {
				answered[r.ToolUseID]++
			}
			for _, u := range uses {
				if c := answered[u.ID]; c != 1 {
					return fmt.Errorf("%w: message %d tool_use %q has %d results", ErrBrokenPairing, i, u.ID, c)
				}
			}
		case schemas.RoleUser:
			results := msg.ToolResults()
			if len(results) == 0 {
				continue
			}
			if i == 0 || messages[i-1].Role != schemas.RoleAssistant {
				return fmt.Errorf("%w: message %d carries tool results without a preceding assistant turn", ErrBrokenPairing, i)
			}
			issued := make(map[string]struct{})
			for _, u := range messages[i-1].ToolUses() {
				issued[u.ID] = struct{}{}
			}
			for _, r := range results {
				if _, ok := issued[r.ToolUseID]; !ok {
					return fmt.Errorf("%w: message %d tool_result %q has no matching tool_use", ErrBrokenPairing, i, r.ToolUseID)
				}
			}
		}
	}
	return nil
}
