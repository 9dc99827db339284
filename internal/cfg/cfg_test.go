package cfg

import (
	"flag"
	"math"
	"strings"
	"testing"
)

// validBase returns a Config with all required fields set to valid values.
func validBase() Config {
	return Config{
		DrainSeconds:          60,
		ShutdownBudgetSeconds: 90,
		APIPort:               8080,
		LLMProvider:           ProviderClaude,
		ClaudeAPIKey:          "sk-test-key",
		ClaudeModel:           "claude-sonnet-4-20250514",
		BaselineYear:          2026,
		MaxImageBytes:         10 << 20,
		SessionTTLMinutes:     720,
		PruneIntervalSeconds:  300,
	}
}

// with returns validBase modified by fn.
func with(fn func(*Config)) Config {
	c := validBase()
	fn(&c)
	return c
}

func TestRegisterFlags_Defaults(t *testing.T) {
	t.Parallel()

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	if err := fs.Parse(nil); err != nil {
		t.Fatalf("parse empty args: %v", err)
	}

	if c.DrainSeconds != 60 {
		t.Errorf("DrainSeconds = %d, want 60", c.DrainSeconds)
	}
	if c.ShutdownBudgetSeconds != 90 {
		t.Errorf("ShutdownBudgetSeconds = %d, want 90", c.ShutdownBudgetSeconds)
	}
	if c.APIPort != 8080 {
		t.Errorf("APIPort = %d, want 8080", c.APIPort)
	}
	if c.LLMProvider != ProviderClaude {
		t.Errorf("LLMProvider = %q, want %q", c.LLMProvider, ProviderClaude)
	}
	if c.ClaudeModel != "claude-sonnet-4-20250514" {
		t.Errorf("ClaudeModel = %q, want %q", c.ClaudeModel, "claude-sonnet-4-20250514")
	}
	if c.BaselineYear != 2026 {
		t.Errorf("BaselineYear = %d, want 2026", c.BaselineYear)
	}
	if c.RejectDuplicates {
		t.Error("RejectDuplicates = true, want false")
	}
	if c.MaxImageBytes != 10<<20 {
		t.Errorf("MaxImageBytes = %d, want %d", c.MaxImageBytes, 10<<20)
	}
}

func TestRegisterFlags_Override(t *testing.T) {
	t.Parallel()

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	args := []string{
		"-drain-seconds", "30",
		"-shutdown-budget-seconds", "120",
		"-http-port", "9090",
		"-llm-provider", "gemini",
		"-gemini-api-key", "g-override",
		"-gemini-model", "gemini-2.5-pro",
		"-baseline-year", "2030",
		"-reject-duplicates",
		"-max-image-bytes", "2048",
		"-session-ttl-minutes", "0",
	}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse args: %v", err)
	}

	if c.DrainSeconds != 30 {
		t.Errorf("DrainSeconds = %d, want 30", c.DrainSeconds)
	}
	if c.ShutdownBudgetSeconds != 120 {
		t.Errorf("ShutdownBudgetSeconds = %d, want 120", c.ShutdownBudgetSeconds)
	}
	if c.APIPort != 9090 {
		t.Errorf("APIPort = %d, want 9090", c.APIPort)
	}
	if c.LLMProvider != ProviderGemini {
		t.Errorf("LLMProvider = %q, want %q", c.LLMProvider, ProviderGemini)
	}
	if c.GeminiAPIKey != "g-override" {
		t.Errorf("GeminiAPIKey = %q, want %q", c.GeminiAPIKey, "g-override")
	}
	if c.GeminiModel != "gemini-2.5-pro" {
		t.Errorf("GeminiModel = %q, want %q", c.GeminiModel, "gemini-2.5-pro")
	}
	if c.BaselineYear != 2030 {
		t.Errorf("BaselineYear = %d, want 2030", c.BaselineYear)
	}
	if !c.RejectDuplicates {
		t.Error("RejectDuplicates = false, want true")
	}
	if c.MaxImageBytes != 2048 {
		t.Errorf("MaxImageBytes = %d, want 2048", c.MaxImageBytes)
	}
	if c.SessionTTLMinutes != 0 {
		t.Errorf("SessionTTLMinutes = %d, want 0", c.SessionTTLMinutes)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		cfg       Config
		wantErr   bool
		errSubstr []string // substrings that must appear in error message
	}{
		{
			name:    "defaults are valid",
			cfg:     validBase(),
			wantErr: false,
		},
		{
			name: "minimum valid values",
			cfg: with(func(c *Config) {
				c.DrainSeconds, c.ShutdownBudgetSeconds, c.APIPort = 1, 2, 1
				c.BaselineYear, c.MaxImageBytes, c.PruneIntervalSeconds, c.SessionTTLMinutes = 1900, 1024, 10, 0
			}),
			wantErr: false,
		},
		{
			name: "maximum valid values",
			cfg: with(func(c *Config) {
				c.DrainSeconds, c.ShutdownBudgetSeconds, c.APIPort = 299, 300, 65535
				c.BaselineYear, c.MaxImageBytes, c.PruneIntervalSeconds = 3000, 64<<20, 86400
			}),
			wantErr: false,
		},
		// DrainSeconds boundaries
		{
			name:      "drain zero",
			cfg:       with(func(c *Config) { c.DrainSeconds = 0 }),
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS"},
		},
		{
			name:      "drain negative",
			cfg:       with(func(c *Config) { c.DrainSeconds = -1 }),
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS"},
		},
		{
			name:      "drain above max",
			cfg:       with(func(c *Config) { c.DrainSeconds, c.ShutdownBudgetSeconds = 301, 302 }),
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS"},
		},
		{
			name:    "drain at upper bound",
			cfg:     with(func(c *Config) { c.DrainSeconds, c.ShutdownBudgetSeconds = 300, 300 }),
			wantErr: true, // budget must be greater than drain
		},
		// ShutdownBudgetSeconds boundaries
		{
			name:      "budget zero",
			cfg:       with(func(c *Config) { c.ShutdownBudgetSeconds = 0 }),
			wantErr:   true,
			errSubstr: []string{"SHUTDOWN_BUDGET_SECONDS"},
		},
		{
			name:      "budget above max",
			cfg:       with(func(c *Config) { c.ShutdownBudgetSeconds = 301 }),
			wantErr:   true,
			errSubstr: []string{"SHUTDOWN_BUDGET_SECONDS"},
		},
		// Cross-field: budget vs drain
		{
			name:      "budget equals drain",
			cfg:       with(func(c *Config) { c.ShutdownBudgetSeconds = 60 }),
			wantErr:   true,
			errSubstr: []string{"must be greater than"},
		},
		{
			name:    "budget is drain plus one",
			cfg:     with(func(c *Config) { c.ShutdownBudgetSeconds = 61 }),
			wantErr: false,
		},
		// APIPort boundaries
		{
			name:      "port zero",
			cfg:       with(func(c *Config) { c.APIPort = 0 }),
			wantErr:   true,
			errSubstr: []string{"HTTP_PORT"},
		},
		{
			name:      "port above max",
			cfg:       with(func(c *Config) { c.APIPort = 65536 }),
			wantErr:   true,
			errSubstr: []string{"HTTP_PORT"},
		},
		// Provider selection
		{
			name:      "unknown provider",
			cfg:       with(func(c *Config) { c.LLMProvider = "openai" }),
			wantErr:   true,
			errSubstr: []string{"LLM_PROVIDER"},
		},
		{
			name:      "empty claude api key",
			cfg:       with(func(c *Config) { c.ClaudeAPIKey = "" }),
			wantErr:   true,
			errSubstr: []string{"CLAUDE_API_KEY"},
		},
		{
			name:      "empty claude model",
			cfg:       with(func(c *Config) { c.ClaudeModel = "" }),
			wantErr:   true,
			errSubstr: []string{"CLAUDE_MODEL"},
		},
		{
			name: "gemini does not need claude key",
			cfg: with(func(c *Config) {
				c.LLMProvider, c.ClaudeAPIKey = ProviderGemini, ""
				c.GeminiAPIKey, c.GeminiModel = "g", "gemini-2.5-flash"
			}),
			wantErr: false,
		},
		{
			name:      "gemini without key",
			cfg:       with(func(c *Config) { c.LLMProvider, c.GeminiModel = ProviderGemini, "m" }),
			wantErr:   true,
			errSubstr: []string{"GEMINI_API_KEY"},
		},
		{
			name:      "gemini without model",
			cfg:       with(func(c *Config) { c.LLMProvider, c.GeminiAPIKey = ProviderGemini, "g" }),
			wantErr:   true,
			errSubstr: []string{"GEMINI_MODEL"},
		},
		// Domain knobs
		{
			name:      "baseline year too early",
			cfg:       with(func(c *Config) { c.BaselineYear = 1899 }),
			wantErr:   true,
			errSubstr: []string{"BASELINE_YEAR"},
		},
		{
			name:      "image limit too small",
			cfg:       with(func(c *Config) { c.MaxImageBytes = 1023 }),
			wantErr:   true,
			errSubstr: []string{"MAX_IMAGE_BYTES"},
		},
		{
			name:      "image limit too large",
			cfg:       with(func(c *Config) { c.MaxImageBytes = 64<<20 + 1 }),
			wantErr:   true,
			errSubstr: []string{"MAX_IMAGE_BYTES"},
		},
		{
			name:      "negative session ttl",
			cfg:       with(func(c *Config) { c.SessionTTLMinutes = -1 }),
			wantErr:   true,
			errSubstr: []string{"SESSION_TTL_MINUTES"},
		},
		{
			name:      "prune interval too short",
			cfg:       with(func(c *Config) { c.PruneIntervalSeconds = 9 }),
			wantErr:   true,
			errSubstr: []string{"PRUNE_INTERVAL_SECONDS"},
		},
		// Error accumulation: all fields invalid
		{
			name:    "all fields invalid",
			cfg:     Config{},
			wantErr: true,
			errSubstr: []string{
				"DRAIN_SECONDS", "SHUTDOWN_BUDGET_SECONDS", "HTTP_PORT", "LLM_PROVIDER",
				"BASELINE_YEAR", "MAX_IMAGE_BYTES", "PRUNE_INTERVAL_SECONDS",
			},
		},
		// Extreme values
		{
			name: "extreme negative values",
			cfg: with(func(c *Config) {
				c.DrainSeconds, c.ShutdownBudgetSeconds, c.APIPort = math.MinInt32, math.MinInt32, math.MinInt32
				c.MaxImageBytes = math.MinInt64
			}),
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS", "SHUTDOWN_BUDGET_SECONDS", "HTTP_PORT", "MAX_IMAGE_BYTES"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				errMsg := err.Error()
				for _, sub := range tt.errSubstr {
					if !strings.Contains(errMsg, sub) {
						t.Errorf("error %q does not contain %q", errMsg, sub)
					}
				}
			}
		})
	}
}

func FuzzValidate(f *testing.F) {
	// Seeds: defaults, boundaries, extremes
	seeds := []struct {
		drain, budget, port, year int
		provider, key, model      string
		imageBytes                int64
	}{
		{60, 90, 8080, 2026, "claude", "sk-test", "claude-sonnet", 10 << 20},
		{1, 2, 1, 1900, "gemini", "k", "m", 1024},
		{299, 300, 65535, 3000, "claude", "k", "m", 64 << 20},
		{0, 0, 0, 0, "", "", "", 0},
		{-1, -1, -1, -1, "openai", "", "", -1},
		{300, 300, 65535, 2026, "claude", "k", "m", 10 << 20},
		{301, 302, 65536, 3001, "", "", "", 64<<20 + 1},
		{150, 100, 8080, 2026, "gemini", "k", "m", 2048},
		{math.MinInt32, math.MinInt32, math.MinInt32, math.MinInt32, "", "", "", math.MinInt64},
		{math.MaxInt32, math.MaxInt32, math.MaxInt32, math.MaxInt32, "", "", "", math.MaxInt64},
	}
	for _, s := range seeds {
		f.Add(s.drain, s.budget, s.port, s.year, s.provider, s.key, s.model, s.imageBytes)
	}

	f.Fuzz(func(t *testing.T, drain, budget, port, year int, provider, key, model string, imageBytes int64) {
		c := Config{
			DrainSeconds:          drain,
			ShutdownBudgetSeconds: budget,
			APIPort:               port,
			LLMProvider:           provider,
			ClaudeAPIKey:          key,
			ClaudeModel:           model,
			GeminiAPIKey:          key,
			GeminiModel:           model,
			BaselineYear:          year,
			MaxImageBytes:         imageBytes,
			PruneIntervalSeconds:  300,
		}
		err := c.Validate()

		drainOK := drain >= 1 && drain <= 300
		budgetOK := budget >= 1 && budget <= 300
		portOK := port >= 1 && port <= 65535
		crossOK := budget > drain
		providerOK := (provider == ProviderClaude || provider == ProviderGemini) && key != "" && model != ""
		yearOK := year >= 1900 && year <= 3000
		imageOK := imageBytes >= 1024 && imageBytes <= 64<<20

		allValid := drainOK && budgetOK && portOK && crossOK && providerOK && yearOK && imageOK

		if allValid && err != nil {
			t.Errorf("expected no error for valid config %+v, got: %v", c, err)
		}
		if !allValid && err == nil {
			t.Errorf("expected error for invalid config %+v, got nil", c)
		}
	})
}
