package schemas

import (
	"encoding/json"
	"strings"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// BlockType discriminates the variants of ContentBlock.
type BlockType string

const (
	BlockText       BlockType = "text"
	BlockToolUse    BlockType = "tool_use"
	BlockToolResult BlockType = "tool_result"
)

// ImageMediaPNG is the only media type screenshots are produced in.
const ImageMediaPNG = "image/png"

// Message is a single turn of the conversation.
type Message struct {
	Role    Role           `json:"role"`
	Content []ContentBlock `json:"content"`
}

// ContentBlock is a tagged union. Exactly one of Text, ToolUse or ToolResult
// is meaningful, selected by Type.
type ContentBlock struct {
	Type       BlockType   `json:"type"`
	Text       string      `json:"text,omitempty"`
	ToolUse    *ToolUse    `json:"tool_use,omitempty"`
	ToolResult *ToolResult `json:"tool_result,omitempty"`
}

// ToolUse is the model's request to invoke a tool.
type ToolUse struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// ToolResult answers exactly one ToolUse, matched by ToolUseID.
type ToolResult struct {
	ToolUseID string       `json:"tool_use_id"`
	Parts     []ResultPart `json:"parts"`
	IsError   bool         `json:"is_error,omitempty"`
}

// ResultPart is either plain text or an inline image.
type ResultPart struct {
	Text  string     `json:"text,omitempty"`
	Image *ImageData `json:"image,omitempty"`
}

// ImageData carries base64 encoded image bytes.
type ImageData struct {
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// TextBlock builds a text content block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: BlockText, Text: text}
}

// ToolUseBlock builds a tool_use content block.
func ToolUseBlock(id, name string, input json.RawMessage) ContentBlock {
	return ContentBlock{Type: BlockToolUse, ToolUse: &ToolUse{ID: id, Name: name, Input: input}}
}

// ToolResultBlock builds a tool_result content block.
func ToolResultBlock(result ToolResult) ContentBlock {
	return ContentBlock{Type: BlockToolResult, ToolResult: &result}
}

// NewUserText is a convenience for a user message holding a single text block.
func NewUserText(text string) Message {
	return Message{Role: RoleUser, Content: []ContentBlock{TextBlock(text)}}
}

// Texts returns the text blocks of the message in order.
func (m Message) Texts() []string {
	var out []string
	for _, b := range m.Content {
		if b.Type == BlockText {
			out = append(out, b.Text)
		}
	}
	return out
}

// ToolUses returns the tool_use blocks of the message in emission order.
func (m Message) ToolUses() []ToolUse {
	var out []ToolUse
	for _, b := range m.Content {
		if b.Type == BlockToolUse && b.ToolUse != nil {
			out = append(out, *b.ToolUse)
		}
	}
	return out
}

// ToolResults returns the tool_result blocks of the message.
func (m Message) ToolResults() []ToolResult {
	var out []ToolResult
	for _, b := range m.Content {
		if b.Type == BlockToolResult && b.ToolResult != nil {
			out = append(out, *b.ToolResult)
		}
	}
	return out
}

// Text joins the text parts of a tool result.
func (r ToolResult) Text() string {
	var parts []string
	for _, p := range r.Parts {
		if p.Image == nil {
			parts = append(parts, p.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// HasImage reports whether the result carries an inline image.
func (r ToolResult) HasImage() bool {
	for _, p := range r.Parts {
		if p.Image != nil {
			return true
		}
	}
	return false
}
