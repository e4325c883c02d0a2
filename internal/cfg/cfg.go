package cfg

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"
)

// Provider names accepted in -providers.
const (
	ProviderGemini = "gemini"
	ProviderPaLM   = "palm"
	ProviderClaude = "claude"
	ProviderOpenAI = "openai"
)

// KnownProviders lists every adapter the server can build, in default priority order.
var KnownProviders = []string{ProviderGemini, ProviderPaLM, ProviderClaude, ProviderOpenAI}

// Config adds application-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int

	Providers string

	GeminiAPIKey   string
	GeminiModel    string
	GeminiEndpoint string

	PaLMAPIKey   string
	PaLMModel    string
	PaLMEndpoint string

	ClaudeAPIKey  string
	ClaudeModel   string
	ClaudeBaseURL string

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	MockReplies    bool
	MaxRounds      int
	BaseDelay      time.Duration
	AttemptTimeout time.Duration

	AllowedOrigins  string
	APIToken        string
	SlackWebhookURL string
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 10, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 30, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")

	fs.StringVar(&c.Providers, "providers", strings.Join(KnownProviders, ","), "comma-separated provider priority order")

	fs.StringVar(&c.GeminiAPIKey, "gemini-api-key", "", "Google Generative Language API key")
	fs.StringVar(&c.GeminiModel, "gemini-model", "gemini-1.5-flash", "Gemini model name")
	fs.StringVar(&c.GeminiEndpoint, "gemini-endpoint", "", "Gemini API base URL (empty = Google default)")

	fs.StringVar(&c.PaLMAPIKey, "palm-api-key", "", "legacy PaLM API key (empty = use gemini-api-key)")
	fs.StringVar(&c.PaLMModel, "palm-model", "chat-bison-001", "legacy PaLM chat model name")
	fs.StringVar(&c.PaLMEndpoint, "palm-endpoint", "", "legacy PaLM API base URL (empty = Google default)")

	fs.StringVar(&c.ClaudeAPIKey, "claude-api-key", "", "API key for the Anthropic Messages API")
	fs.StringVar(&c.ClaudeModel, "claude-model", "claude-3-5-haiku-latest", "Claude model to use")
	fs.StringVar(&c.ClaudeBaseURL, "claude-base-url", "", "Anthropic API base URL (empty = SDK default)")

	fs.StringVar(&c.OpenAIAPIKey, "openai-api-key", "", "API key for OpenAI-compatible chat completions")
	fs.StringVar(&c.OpenAIModel, "openai-model", "gpt-4o-mini", "OpenAI model to use")
	fs.StringVar(&c.OpenAIBaseURL, "openai-base-url", "", "OpenAI-compatible API base URL (empty = api.openai.com)")

	fs.BoolVar(&c.MockReplies, "mock-replies", false, "serve canned demo replies instead of calling providers")
	fs.IntVar(&c.MaxRounds, "max-rounds", 3, "provider rounds before falling back (1..10)")
	fs.DurationVar(&c.BaseDelay, "base-delay", time.Second, "backoff before the second round; doubles each round (1ms..30s)")
	fs.DurationVar(&c.AttemptTimeout, "attempt-timeout", 30*time.Second, "timeout for a single provider attempt (1s..120s)")

	fs.StringVar(&c.AllowedOrigins, "allowed-origins", "*", "comma-separated CORS origins for /api/chat")
	fs.StringVar(&c.APIToken, "api-token", "", "bearer token required on POST /api/chat (empty = no auth)")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for crisis escalation notices")
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
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	// Provider list and credentials
	names := c.ProviderNames()
	if len(names) == 0 && !c.MockReplies {
		errs = append(errs, errors.New("PROVIDERS must list at least one provider"))
	}
	for _, n := range names {
		if !slices.Contains(KnownProviders, n) {
			errs = append(errs, fmt.Errorf("unknown provider %q in PROVIDERS (known: %s)", n, strings.Join(KnownProviders, ",")))
		}
	}
	if !c.MockReplies && len(names) > 0 && len(c.ConfiguredProviders()) == 0 {
		errs = append(errs, errors.New("no provider in PROVIDERS has an API key (set GEMINI_API_KEY, PALM_API_KEY, CLAUDE_API_KEY or OPENAI_API_KEY, or enable MOCK_REPLIES)"))
	}

	// Dispatch policy
	if c.MaxRounds < 1 || c.MaxRounds > 10 {
		errs = append(errs, fmt.Errorf("invalid MAX_ROUNDS %d (must be 1..10)", c.MaxRounds))
	}
	if c.BaseDelay < time.Millisecond || c.BaseDelay > 30*time.Second {
		errs = append(errs, fmt.Errorf("invalid BASE_DELAY %s (must be 1ms..30s)", c.BaseDelay))
	}
	if c.AttemptTimeout < time.Second || c.AttemptTimeout > 120*time.Second {
		errs = append(errs, fmt.Errorf("invalid ATTEMPT_TIMEOUT %s (must be 1s..120s)", c.AttemptTimeout))
	}

	// Optional URLs must be absolute http(s) when set
	for _, u := range []struct{ name, value string }{
		{"GEMINI_ENDPOINT", c.GeminiEndpoint},
		{"PALM_ENDPOINT", c.PaLMEndpoint},
		{"CLAUDE_BASE_URL", c.ClaudeBaseURL},
		{"OPENAI_BASE_URL", c.OpenAIBaseURL},
		{"SLACK_WEBHOOK_URL", c.SlackWebhookURL},
	} {
		if err := checkURL(u.name, u.value); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ProviderNames returns the normalized, de-duplicated -providers list.
func (c *Config) ProviderNames() []string {
	return splitList(strings.ToLower(c.Providers))
}

// ConfiguredProviders returns the listed providers that have credentials.
func (c *Config) ConfiguredProviders() []string {
	var out []string
	for _, n := range c.ProviderNames() {
		if c.APIKey(n) != "" {
			out = append(out, n)
		}
	}
	return out
}

// APIKey returns the credential for the named provider. PaLM shares the
// Gemini key unless its own is set.
func (c *Config) APIKey(provider string) string {
	switch provider {
	case ProviderGemini:
		return c.GeminiAPIKey
	case ProviderPaLM:
		if c.PaLMAPIKey != "" {
			return c.PaLMAPIKey
		}
		return c.GeminiAPIKey
	case ProviderClaude:
		return c.ClaudeAPIKey
	case ProviderOpenAI:
		return c.OpenAIAPIKey
	default:
		return ""
	}
}

// Origins returns the CORS allow-list; an empty list means any origin.
func (c *Config) Origins() []string {
	origins := splitList(c.AllowedOrigins)
	if slices.Contains(origins, "*") {
		return nil
	}
	return origins
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" || slices.Contains(out, part) {
			continue
		}
		out = append(out, part)
	}
	return out
}

func checkURL(name, value string) error {
	if value == "" {
		return nil
	}
	u, err := url.Parse(value)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid %s %q (must be an absolute http or https URL)", name, value)
	}
	return nil
}
