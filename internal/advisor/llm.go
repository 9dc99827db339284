package advisor

import (
	"context"
	"encoding/base64"
	"encoding/json"

	"github.com/linnemanlabs/reclaim/internal/tools"
)

// Provider is the interface for any LLM backend.
type Provider interface {
	Send(ctx context.Context, req *LLMRequest) (*LLMResponse, error)
}

// ToolSupporter is implemented by providers that can report whether they
// forward tool definitions. Providers that don't implement it are assumed to.
type ToolSupporter interface {
	SupportsTools() bool
}

func supportsTools(p Provider) bool {
	if ts, ok := p.(ToolSupporter); ok {
		return ts.SupportsTools()
	}
	return true
}

// LLMRequest is the input to a provider: system prompt, conversation and the
// tools the model may call.
type LLMRequest struct {
	MaxTokens int
	System    string
	Messages  []Message
	Tools     []tools.ToolDef
}

// LLMResponse is a provider reply with its stop reason and token usage.
type LLMResponse struct {
	Content    []ContentBlock
	StopReason StopReason
	Usage      Usage
	Model      string
}

// StopReason indicates why the model stopped generating.
type StopReason string

const (
	StopEnd     StopReason = "end_turn"
	StopToolUse StopReason = "tool_use"
)

// Content block types.
const (
	BlockText       = "text"
	BlockImage      = "image"
	BlockToolUse    = "tool_use"
	BlockToolResult = "tool_result"
)

// Message is a single role-tagged message in a conversation.
type Message struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// ContentBlock carries text, a base64 image, a tool call or a tool result.
type ContentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	MediaType string          `json:"media_type,omitempty"`
	Data      string          `json:"data,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// TextMessage builds a single-block text message.
func TextMessage(role, text string) Message {
	return Message{Role: role, Content: []ContentBlock{{Type: BlockText, Text: text}}}
}

// ImageBlock base64-encodes raw image bytes.
func ImageBlock(mediaType string, data []byte) ContentBlock {
	return ContentBlock{
		Type:      BlockImage,
		MediaType: mediaType,
		Data:      base64.StdEncoding.EncodeToString(data),
	}
}
