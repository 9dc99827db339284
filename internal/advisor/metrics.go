package advisor

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for advisor calls.
type Metrics struct {
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	OperationTokens   *prometheus.HistogramVec
	LLMCallsTotal     *prometheus.CounterVec
	LLMTokensIn       prometheus.Counter
	LLMTokensOut      prometheus.Counter
	LLMDuration       *prometheus.HistogramVec
	ToolCallsTotal    *prometheus.CounterVec
	ToolDuration      *prometheus.HistogramVec
	ToolOutputBytes   *prometheus.HistogramVec
	ChatToolCalls     prometheus.Histogram
}

// NewMetrics registers and returns advisor metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OperationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reclaim_advisor_operations_total",
			Help: "Advisor operations by operation and status.",
		}, []string{"op", "status"}),
		OperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "reclaim_advisor_operation_duration_seconds",
			Help:    "Duration of advisor operations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10), // 0.25s .. ~128s
		}, []string{"op", "model"}),
		OperationTokens: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "reclaim_advisor_operation_tokens",
			Help:    "Tokens consumed per advisor operation.",
			Buckets: prometheus.ExponentialBuckets(100, 2, 10), // 100 .. ~51200
		}, []string{"op"}),
		LLMCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reclaim_llm_calls_total",
			Help: "Total LLM provider calls by operation.",
		}, []string{"op"}),
		LLMTokensIn: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reclaim_llm_tokens_input_total",
			Help: "Total LLM input tokens consumed.",
		}),
		LLMTokensOut: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reclaim_llm_tokens_output_total",
			Help: "Total LLM output tokens consumed.",
		}),
		LLMDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "reclaim_llm_call_duration_seconds",
			Help:    "Duration of individual LLM calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 9), // 0.25s .. ~64s
		}, []string{"op"}),
		ToolCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reclaim_tool_calls_total",
			Help: "Total chat tool executions by tool name and status.",
		}, []string{"tool", "status"}),
		ToolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "reclaim_tool_duration_seconds",
			Help:    "Duration of chat tool executions in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 6), // 0.5ms .. ~0.5s
		}, []string{"tool"}),
		ToolOutputBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "reclaim_tool_output_bytes",
			Help:    "Size of chat tool output in bytes.",
			Buckets: prometheus.ExponentialBuckets(64, 4, 6), // 64B .. ~64KB
		}, []string{"tool"}),
		ChatToolCalls: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "reclaim_chat_tool_calls",
			Help:    "Tool calls per chat turn.",
			Buckets: prometheus.LinearBuckets(0, 1, MaxToolRounds+1),
		}),
	}

	reg.MustRegister(
		m.OperationsTotal,
		m.OperationDuration,
		m.OperationTokens,
		m.LLMCallsTotal,
		m.LLMTokensIn,
		m.LLMTokensOut,
		m.LLMDuration,
		m.ToolCallsTotal,
		m.ToolDuration,
		m.ToolOutputBytes,
		m.ChatToolCalls,
	)

	return m
}

// Hooks returns EngineHooks that record into m.
func (m *Metrics) Hooks() EngineHooks {
	return EngineHooks{
		OnLLMCall: func(op Operation, inputTokens, outputTokens int, duration float64) {
			m.LLMCallsTotal.WithLabelValues(string(op)).Inc()
			m.LLMTokensIn.Add(float64(inputTokens))
			m.LLMTokensOut.Add(float64(outputTokens))
			m.LLMDuration.WithLabelValues(string(op)).Observe(duration)
		},
		OnToolCall: func(name string, duration float64, _, outputBytes int, isError bool) {
			status := "success"
			if isError {
				status = "error"
			}
			m.ToolCallsTotal.WithLabelValues(name, status).Inc()
			m.ToolDuration.WithLabelValues(name).Observe(duration)
			m.ToolOutputBytes.WithLabelValues(name).Observe(float64(outputBytes))
		},
		OnComplete: func(e *CompleteEvent) {
			status := "ok"
			if e.Failed {
				status = "error"
			}
			m.OperationsTotal.WithLabelValues(string(e.Op), status).Inc()
			if e.Failed {
				return
			}
			m.OperationDuration.WithLabelValues(string(e.Op), e.Model).Observe(e.Duration)
			m.OperationTokens.WithLabelValues(string(e.Op)).Observe(float64(e.TokensIn + e.TokensOut))
			if e.Op == OpChat {
				m.ChatToolCalls.Observe(float64(e.ToolCalls))
			}
		},
	}
}
