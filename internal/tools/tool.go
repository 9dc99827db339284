// Package tools holds the lookups the chat model can make about the asset
// being discussed and the user's ledger.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/linnemanlabs/reclaim/internal/asset"
)

// MaxResultBytes caps a single tool result handed back to the model.
const MaxResultBytes = 32 << 10

var (
	// ErrUnknownTool is returned by Registry.Execute for names not registered.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrResultTooLarge is returned when a tool produces more than MaxResultBytes.
	ErrResultTooLarge = errors.New("tool result too large")
)

// Tool is a lookup the chat model may call while answering the user.
type Tool interface {
	Name() string
	Description() string
	Parameters() json.RawMessage // JSON Schema
	Execute(ctx context.Context, params json.RawMessage) (json.RawMessage, error)
}

// ToolDef is the provider-neutral tool definition handed to the model.
type ToolDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// Registry is the set of tools offered for one chat turn, kept ordered by
// name so every request presents them identically.
type Registry struct {
	tools []Tool
}

// NewRegistry returns a registry holding ts.
func NewRegistry(ts ...Tool) *Registry {
	r := &Registry{}
	for _, t := range ts {
		r.Register(t)
	}
	return r
}

// ForAsset returns the registry offered while chatting about rec: its
// lifecycle and a summary of ledger, both evaluated as of currentYear.
func ForAsset(rec asset.Record, ledger []asset.Record, currentYear int) *Registry {
	return NewRegistry(
		NewAssetLifecycle(rec, currentYear),
		NewLedgerSummary(ledger, currentYear),
	)
}

func (r *Registry) search(name string) (int, bool) {
	return slices.BinarySearchFunc(r.tools, name, func(t Tool, name string) int {
		return strings.Compare(t.Name(), name)
	})
}

// Register adds t, replacing any tool already registered under its name.
func (r *Registry) Register(t Tool) {
	i, found := r.search(t.Name())
	if found {
		r.tools[i] = t
		return
	}
	r.tools = slices.Insert(r.tools, i, t)
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	i, found := r.search(name)
	if !found {
		return nil, false
	}
	return r.tools[i], true
}

// Len is the number of registered tools.
func (r *Registry) Len() int { return len(r.tools) }

// Defs returns the tool definitions in name order.
func (r *Registry) Defs() []ToolDef {
	out := make([]ToolDef, len(r.tools))
	for i, t := range r.tools {
		out[i] = ToolDef{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.Parameters(),
		}
	}
	return out
}

// Execute runs the named tool. Empty params are treated as {}; anything
// other than a JSON object is rejected before the tool sees it.
func (r *Registry) Execute(ctx context.Context, name string, params json.RawMessage) (json.RawMessage, error) {
	t, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	params = bytes.TrimSpace(params)
	if len(params) == 0 {
		params = json.RawMessage(`{}`)
	}
	if params[0] != '{' || !json.Valid(params) {
		return nil, fmt.Errorf("%s: params must be a JSON object", name)
	}

	out, err := t.Execute(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(out) > MaxResultBytes {
		return nil, fmt.Errorf("%s: %w (%d bytes)", name, ErrResultTooLarge, len(out))
	}
	return out, nil
}
