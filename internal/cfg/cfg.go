package cfg

import (
	"errors"
	"flag"
	"fmt"
)

// LLM providers accepted by -llm-provider.
const (
	ProviderClaude = "claude"
	ProviderGemini = "gemini"
)

// Config adds app-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	APIToken              string

	LLMProvider  string
	ClaudeAPIKey string
	ClaudeModel  string
	GeminiAPIKey string
	GeminiModel  string

	BaselineYear     int
	RejectDuplicates bool
	MaxImageBytes    int64

	DatabaseURL          string
	SessionTTLMinutes    int
	PruneIntervalSeconds int

	SlackWebhookURL string
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.APIToken, "api-token", "", "bearer token required on /api/v1 (empty = no auth)")
	fs.StringVar(&c.LLMProvider, "llm-provider", ProviderClaude, "LLM provider for classification and chat (claude|gemini)")
	fs.StringVar(&c.ClaudeAPIKey, "claude-api-key", "", "API key for accessing the Claude LLM provider")
	fs.StringVar(&c.ClaudeModel, "claude-model", "claude-sonnet-4-20250514", "Claude model to use")
	fs.StringVar(&c.GeminiAPIKey, "gemini-api-key", "", "API key for accessing the Gemini LLM provider")
	fs.StringVar(&c.GeminiModel, "gemini-model", "gemini-2.5-flash", "Gemini model to use")
	fs.IntVar(&c.BaselineYear, "baseline-year", 2026, "year used as \"now\" for every lifecycle calculation (1900..3000)")
	fs.BoolVar(&c.RejectDuplicates, "reject-duplicates", false, "reject ledger adds of a record already in the ledger")
	fs.Int64Var(&c.MaxImageBytes, "max-image-bytes", 10<<20, "largest accepted photo upload in bytes (1KiB..64MiB)")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL (empty = in-memory store)")
	fs.IntVar(&c.SessionTTLMinutes, "session-ttl-minutes", 720, "minutes of inactivity after which a session is pruned (0 = never)")
	fs.IntVar(&c.PruneIntervalSeconds, "prune-interval-seconds", 300, "seconds between idle session prune runs (10..86400)")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for critical asset notifications")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	// The selected provider needs its key and model
	switch c.LLMProvider {
	case ProviderClaude:
		if c.ClaudeAPIKey == "" {
			errs = append(errs, errors.New("CLAUDE_API_KEY is required when LLM_PROVIDER=claude"))
		}
		if c.ClaudeModel == "" {
			errs = append(errs, errors.New("CLAUDE_MODEL is required when LLM_PROVIDER=claude"))
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required when LLM_PROVIDER=gemini"))
		}
		if c.GeminiModel == "" {
			errs = append(errs, errors.New("GEMINI_MODEL is required when LLM_PROVIDER=gemini"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid LLM_PROVIDER %q (must be claude or gemini)", c.LLMProvider))
	}

	if c.BaselineYear < 1900 || c.BaselineYear > 3000 {
		errs = append(errs, fmt.Errorf("invalid BASELINE_YEAR %d (must be 1900..3000)", c.BaselineYear))
	}

	if c.MaxImageBytes < 1<<10 || c.MaxImageBytes > 64<<20 {
		errs = append(errs, fmt.Errorf("invalid MAX_IMAGE_BYTES %d (must be 1024..67108864)", c.MaxImageBytes))
	}

	if c.SessionTTLMinutes < 0 {
		errs = append(errs, fmt.Errorf("invalid SESSION_TTL_MINUTES %d (must be >= 0)", c.SessionTTLMinutes))
	}
	if c.PruneIntervalSeconds < 10 || c.PruneIntervalSeconds > 86400 {
		errs = append(errs, fmt.Errorf("invalid PRUNE_INTERVAL_SECONDS %d (must be 10..86400)", c.PruneIntervalSeconds))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
