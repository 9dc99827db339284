// Package gemini adapts Google's Gemini API to advisor.Provider. It supports
// text and image turns; tool definitions are not forwarded, so chat runs
// without lookups on this backend.
package gemini

import (
	"context"
	"encoding/base64"
	"fmt"

	"google.golang.org/genai"

	"github.com/linnemanlabs/reclaim/internal/advisor"
)

// Client implements advisor.Provider on top of the genai SDK.
type Client struct {
	client *genai.Client
	model  string
}

// New creates a Gemini client for the given API key and model name.
func New(ctx context.Context, apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &Client{client: client, model: model}, nil
}

// SupportsTools reports false: tool definitions are not sent to Gemini.
func (c *Client) SupportsTools() bool { return false }

// Send sends one GenerateContent request.
func (c *Client) Send(ctx context.Context, req *advisor.LLMRequest) (*advisor.LLMResponse, error) {
	contents, err := toContents(req.Messages)
	if err != nil {
		return nil, err
	}

	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(req.MaxTokens),
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	return fromResponse(resp, c.model), nil
}

// toContents maps advisor messages to genai contents. Tool blocks are
// rendered as text so a transcript produced against another backend can
// still be replayed.
func toContents(msgs []advisor.Message) ([]*genai.Content, error) {
	out := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		role := genai.Role(genai.RoleUser)
		if m.Role == "assistant" {
			role = genai.RoleModel
		}

		parts := make([]*genai.Part, 0, len(m.Content))
		for _, b := range m.Content {
			switch b.Type {
			case advisor.BlockText:
				parts = append(parts, genai.NewPartFromText(b.Text))
			case advisor.BlockImage:
				data, err := base64.StdEncoding.DecodeString(b.Data)
				if err != nil {
					return nil, fmt.Errorf("gemini: decode image: %w", err)
				}
				parts = append(parts, genai.NewPartFromBytes(data, b.MediaType))
			case advisor.BlockToolUse:
				parts = append(parts, genai.NewPartFromText(fmt.Sprintf("[called %s with %s]", b.Name, b.Input)))
			case advisor.BlockToolResult:
				parts = append(parts, genai.NewPartFromText(b.Content))
			}
		}
		if len(parts) == 0 {
			continue
		}
		out = append(out, genai.NewContentFromParts(parts, role))
	}
	return out, nil
}

func fromResponse(resp *genai.GenerateContentResponse, model string) *advisor.LLMResponse {
	out := &advisor.LLMResponse{
		StopReason: advisor.StopEnd,
		Model:      model,
	}
	if text := resp.Text(); text != "" {
		out.Content = []advisor.ContentBlock{{Type: advisor.BlockText, Text: text}}
	}
	if resp.ModelVersion != "" {
		out.Model = resp.ModelVersion
	}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = advisor.Usage{
			InputTokens:  int(u.PromptTokenCount),
			OutputTokens: int(u.CandidatesTokenCount),
		}
	}
	return out
}
