package advisor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/reclaim/internal/asset"
	"github.com/linnemanlabs/reclaim/internal/tools"
)

var tracer = otel.Tracer("github.com/linnemanlabs/reclaim/internal/advisor")

const (
	MaxToolRounds  = 6
	MaxTokens      = 40000
	ResponseTokens = 2048
)

var (
	ErrEmptyImage   = errors.New("advisor: empty image")
	ErrEmptyHistory = errors.New("advisor: chat history must end with a user message")
)

// Operation names the advisor call being made, used for metrics and logs.
type Operation string

const (
	OpClassify Operation = "classify"
	OpDiagnose Operation = "diagnose"
	OpChat     Operation = "chat"
)

// CompleteEvent summarizes one advisor operation for the OnComplete hook.
type CompleteEvent struct {
	Op        Operation
	Failed    bool
	Model     string
	Duration  float64
	TokensIn  int
	TokensOut int
	ToolCalls int
}

// EngineHooks are optional callbacks fired during advisor calls. Nil fields are skipped.
type EngineHooks struct {
	OnLLMCall  func(op Operation, inputTokens, outputTokens int, duration float64)
	OnToolCall func(name string, duration float64, inputBytes, outputBytes int, isError bool)
	OnComplete func(e *CompleteEvent)
}

// Engine talks to the classification and chat model. It holds no session state.
type Engine struct {
	provider Provider
	logger   log.Logger
	hooks    EngineHooks
}

// NewEngine creates an engine on top of the given provider.
func NewEngine(provider Provider, logger log.Logger, hooks EngineHooks) *Engine {
	if logger == nil {
		logger = log.Nop()
	}
	return &Engine{
		provider: provider,
		logger:   logger,
		hooks:    hooks,
	}
}

// Classification is the raw classifier mapping plus call accounting.
type Classification struct {
	Raw      map[string]any
	Model    string
	Usage    Usage
	Duration float64
}

// Classify sends the photo with the extraction instruction and returns the
// mapping the model produced. Output that contains no JSON object is reported
// as an Error-sentinel mapping rather than an error; only transport failures
// return err.
func (e *Engine) Classify(ctx context.Context, image []byte, mediaType string) (*Classification, error) {
	if len(image) == 0 {
		return nil, ErrEmptyImage
	}

	ctx, span := tracer.Start(ctx, "advisor.Classify", trace.WithAttributes(
		attribute.String("reclaim.image.media_type", mediaType),
		attribute.Int("reclaim.image.bytes", len(image)),
	))
	defer span.End()

	start := time.Now()
	resp, err := e.send(ctx, OpClassify, &LLMRequest{
		MaxTokens: ResponseTokens,
		System:    classifySystemPrompt,
		Messages: []Message{{
			Role: "user",
			Content: []ContentBlock{
				{Type: BlockText, Text: classifyPrompt},
				ImageBlock(mediaType, image),
			},
		}},
	})
	if err != nil {
		e.complete(OpClassify, start, "", Usage{}, 0, true)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("classify: %w", err)
	}

	raw, perr := extractJSON(responseText(resp.Content))
	if perr != nil {
		e.logger.Warn(ctx, "classifier returned no usable JSON", "error", perr)
		raw = map[string]any{
			"manufacturer": asset.ErrorSentinel,
			"message":      "could not read the classifier response",
		}
	}

	span.SetAttributes(attribute.String("reclaim.manufacturer", fmt.Sprint(raw["manufacturer"])))
	e.complete(OpClassify, start, resp.Model, resp.Usage, 0, false)

	return &Classification{
		Raw:      raw,
		Model:    resp.Model,
		Usage:    resp.Usage,
		Duration: time.Since(start).Seconds(),
	}, nil
}

// Diagnose asks for DIY troubleshooting advice for rec given the user's symptom.
func (e *Engine) Diagnose(ctx context.Context, rec asset.Record, symptom string) (*Diagnosis, error) {
	ctx, span := tracer.Start(ctx, "advisor.Diagnose", trace.WithAttributes(
		attribute.String("reclaim.manufacturer", rec.Manufacturer),
		attribute.String("reclaim.model_number", rec.ModelNumber),
	))
	defer span.End()

	start := time.Now()
	resp, err := e.send(ctx, OpDiagnose, &LLMRequest{
		MaxTokens: ResponseTokens,
		System:    diagnoseSystemPrompt,
		Messages:  []Message{TextMessage("user", buildDiagnosePrompt(rec, symptom))},
	})
	if err != nil {
		e.complete(OpDiagnose, start, "", Usage{}, 0, true)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("diagnose: %w", err)
	}

	e.complete(OpDiagnose, start, resp.Model, resp.Usage, 0, false)
	return parseDiagnosis(responseText(resp.Content)), nil
}

// ChatResult is the final assistant reply for one user turn.
type ChatResult struct {
	Reply     string
	Model     string
	Usage     Usage
	ToolCalls int
	Duration  float64
}

// Chat continues a troubleshooting conversation about rec. history must end
// with the user's message. When registry is non-nil and the provider forwards
// tools, the model may call them; the loop is bounded by MaxToolRounds and MaxTokens.
func (e *Engine) Chat(ctx context.Context, rec asset.Record, history []Message, registry *tools.Registry) (*ChatResult, error) {
	if len(history) == 0 || history[len(history)-1].Role != "user" {
		return nil, ErrEmptyHistory
	}

	ctx, span := tracer.Start(ctx, "advisor.Chat", trace.WithAttributes(
		attribute.String("reclaim.manufacturer", rec.Manufacturer),
		attribute.Int("reclaim.chat.history", len(history)),
	))
	defer span.End()

	L := e.logger.With("manufacturer", rec.Manufacturer, "model_number", rec.ModelNumber)

	system := asset.ChatContext(rec)
	var defs []tools.ToolDef
	if !supportsTools(e.provider) {
		registry = nil
	}
	if registry != nil && registry.Len() > 0 {
		defs = registry.Defs()
		system += tooledChatSuffix
	}

	messages := make([]Message, len(history))
	copy(messages, history)

	start := time.Now()
	var (
		usage     Usage
		toolCalls int
		model     string
		reply     string
	)

	for {
		if toolCalls >= MaxToolRounds {
			L.Warn(ctx, "chat hit tool call limit", "limit", MaxToolRounds)
			reply = "I ran out of lookups while answering. Please ask again."
			break
		}
		if usage.InputTokens+usage.OutputTokens >= MaxTokens {
			L.Warn(ctx, "chat hit token limit", "limit", MaxTokens)
			reply = "That conversation got too long for me to finish. Please ask again."
			break
		}

		resp, err := e.send(ctx, OpChat, &LLMRequest{
			MaxTokens: ResponseTokens,
			System:    system,
			Messages:  messages,
			Tools:     defs,
		})
		if err != nil {
			e.complete(OpChat, start, model, usage, toolCalls, true)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("chat: %w", err)
		}

		usage.InputTokens += resp.Usage.InputTokens
		usage.OutputTokens += resp.Usage.OutputTokens
		model = resp.Model

		messages = append(messages, Message{Role: "assistant", Content: resp.Content})

		if resp.StopReason != StopToolUse || registry == nil {
			reply = responseText(resp.Content)
			break
		}

		var results []ContentBlock
		for _, block := range resp.Content {
			if block.Type != BlockToolUse {
				continue
			}
			toolCalls++
			results = append(results, e.runTool(ctx, L, registry, block))
		}
		if len(results) == 0 {
			reply = responseText(resp.Content)
			break
		}
		messages = append(messages, Message{Role: "user", Content: results})
	}

	e.complete(OpChat, start, model, usage, toolCalls, false)
	span.SetAttributes(attribute.Int("reclaim.chat.tool_calls", toolCalls))

	return &ChatResult{
		Reply:     reply,
		Model:     model,
		Usage:     usage,
		ToolCalls: toolCalls,
		Duration:  time.Since(start).Seconds(),
	}, nil
}

func (e *Engine) runTool(ctx context.Context, L log.Logger, registry *tools.Registry, block ContentBlock) ContentBlock {
	L.Info(ctx, "executing tool", "tool", block.Name)

	start := time.Now()
	output, err := registry.Execute(ctx, block.Name, block.Input)
	dur := time.Since(start).Seconds()
	if err != nil {
		content := fmt.Sprintf("tool error: %v", err)
		if errors.Is(err, tools.ErrUnknownTool) {
			content = err.Error()
		} else {
			L.Error(ctx, err, "tool execution failed", "tool", block.Name)
		}
		e.toolHook(block.Name, dur, len(block.Input), 0, true)
		return ContentBlock{
			Type:      BlockToolResult,
			ToolUseID: block.ID,
			Content:   content,
			IsError:   true,
		}
	}

	e.toolHook(block.Name, dur, len(block.Input), len(output), false)
	return ContentBlock{
		Type:      BlockToolResult,
		ToolUseID: block.ID,
		Content:   string(output),
	}
}

func (e *Engine) send(ctx context.Context, op Operation, req *LLMRequest) (*LLMResponse, error) {
	start := time.Now()
	resp, err := e.provider.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	if e.hooks.OnLLMCall != nil {
		e.hooks.OnLLMCall(op, resp.Usage.InputTokens, resp.Usage.OutputTokens, time.Since(start).Seconds())
	}
	e.logger.Info(ctx, "llm response",
		"op", op,
		"stop_reason", resp.StopReason,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
	)
	return resp, nil
}

func (e *Engine) toolHook(name string, dur float64, in, out int, isErr bool) {
	if e.hooks.OnToolCall != nil {
		e.hooks.OnToolCall(name, dur, in, out, isErr)
	}
}

func (e *Engine) complete(op Operation, start time.Time, model string, usage Usage, toolCalls int, failed bool) {
	if e.hooks.OnComplete == nil {
		return
	}
	e.hooks.OnComplete(&CompleteEvent{
		Op:        op,
		Failed:    failed,
		Model:     model,
		Duration:  time.Since(start).Seconds(),
		TokensIn:  usage.InputTokens,
		TokensOut: usage.OutputTokens,
		ToolCalls: toolCalls,
	})
}
