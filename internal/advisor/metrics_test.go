package advisor

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsHooks(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	hooks := m.Hooks()

	hooks.OnLLMCall(OpClassify, 100, 20, 1.5)
	hooks.OnToolCall("asset_lifecycle", 0.001, 2, 128, false)
	hooks.OnToolCall("ledger_summary", 0.001, 2, 0, true)
	hooks.OnComplete(&CompleteEvent{Op: OpChat, Model: testModel, Duration: 2, TokensIn: 100, TokensOut: 20, ToolCalls: 2})
	hooks.OnComplete(&CompleteEvent{Op: OpDiagnose, Failed: true})

	if got := testutil.ToFloat64(m.LLMCallsTotal.WithLabelValues("classify")); got != 1 {
		t.Errorf("llm calls = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.LLMTokensIn); got != 100 {
		t.Errorf("tokens in = %v, want 100", got)
	}
	if got := testutil.ToFloat64(m.ToolCallsTotal.WithLabelValues("ledger_summary", "error")); got != 1 {
		t.Errorf("tool errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.OperationsTotal.WithLabelValues("chat", "ok")); got != 1 {
		t.Errorf("chat ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.OperationsTotal.WithLabelValues("diagnose", "error")); got != 1 {
		t.Errorf("diagnose errors = %v, want 1", got)
	}
}
