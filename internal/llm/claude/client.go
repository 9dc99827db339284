// Package claude adapts the Anthropic Messages API to advisor.Provider.
package claude

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/linnemanlabs/reclaim/internal/advisor"
	"github.com/linnemanlabs/reclaim/internal/tools"
)

const requestTimeout = 120 * time.Second

// Client implements advisor.Provider on top of the Anthropic SDK.
type Client struct {
	client anthropic.Client
	model  string
}

// New creates a Claude client for the given API key and model name.
func New(apiKey, model string) *Client {
	return &Client{
		client: anthropic.NewClient(
			option.WithAPIKey(apiKey),
			option.WithRequestTimeout(requestTimeout),
		),
		model: model,
	}
}

// Send sends one Messages API request.
func (c *Client) Send(ctx context.Context, req *advisor.LLMRequest) (*advisor.LLMResponse, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(req.MaxTokens),
		Messages:  toSDKMessages(req.Messages),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if len(req.Tools) > 0 {
		params.Tools = toSDKTools(req.Tools)
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("claude messages: %w", err)
	}
	return fromSDKResponse(msg), nil
}

func toSDKMessages(msgs []advisor.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		blocks := make([]anthropic.ContentBlockParamUnion, 0, len(m.Content))
		for _, b := range m.Content {
			switch b.Type {
			case advisor.BlockText:
				blocks = append(blocks, anthropic.NewTextBlock(b.Text))
			case advisor.BlockImage:
				blocks = append(blocks, anthropic.NewImageBlockBase64(b.MediaType, b.Data))
			case advisor.BlockToolUse:
				var input any = json.RawMessage(`{}`)
				if len(b.Input) > 0 {
					input = b.Input
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(b.ID, input, b.Name))
			case advisor.BlockToolResult:
				blocks = append(blocks, anthropic.NewToolResultBlock(b.ToolUseID, b.Content, b.IsError))
			}
		}
		out = append(out, anthropic.MessageParam{
			Role:    anthropic.MessageParamRole(m.Role),
			Content: blocks,
		})
	}
	return out
}

func toSDKTools(defs []tools.ToolDef) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, d := range defs {
		var schema struct {
			Properties any      `json:"properties"`
			Required   []string `json:"required"`
		}
		_ = json.Unmarshal(d.InputSchema, &schema)

		out = append(out, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        d.Name,
				Description: anthropic.String(d.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: schema.Properties,
					Required:   schema.Required,
				},
			},
		})
	}
	return out
}

func fromSDKResponse(msg *anthropic.Message) *advisor.LLMResponse {
	content := make([]advisor.ContentBlock, 0, len(msg.Content))
	for _, b := range msg.Content {
		switch b.Type {
		case "text":
			content = append(content, advisor.ContentBlock{Type: advisor.BlockText, Text: b.Text})
		case "tool_use":
			content = append(content, advisor.ContentBlock{
				Type:  advisor.BlockToolUse,
				ID:    b.ID,
				Name:  b.Name,
				Input: b.Input,
			})
		}
	}

	var stop advisor.StopReason
	switch msg.StopReason {
	case anthropic.StopReasonEndTurn:
		stop = advisor.StopEnd
	case anthropic.StopReasonToolUse:
		stop = advisor.StopToolUse
	default:
		stop = advisor.StopReason(msg.StopReason)
	}

	return &advisor.LLMResponse{
		Content:    content,
		StopReason: stop,
		Usage: advisor.Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
		Model: string(msg.Model),
	}
}
