package reasoner

import (
	"context"
	"fmt"
	"strings"

	"github.com/teilomillet/gollm"
)

// decisionFormat is appended to the system prompt so the model returns a
// parseable Decision regardless of provider.
const decisionFormat = `Respond with a single JSON object and nothing else:
{"reasoning": "<your thinking>", "actions": [{"tool": "<tool name>", "args": {...}}], "finished": <true when the goal is complete>}
Use an empty actions array when no tool is needed. Set "finished" to true only when the goal is fully accomplished.`

// judgmentFormat shapes the narrow yes/no consultations.
const judgmentFormat = `Respond with a single JSON object and nothing else:
{"answer": <true or false>, "reason": "<one sentence>", "confidence": <0-100>}`

// GollmReasoner implements Reasoner on top of a gollm.LLM instance.
type GollmReasoner struct {
	llm    gollm.LLM
	policy RetryPolicy
}

// GollmOption configures a GollmReasoner.
type GollmOption func(*gollmConfig)

type gollmConfig struct {
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	policy      RetryPolicy
	extraOpts   []gollm.ConfigOption
}

// WithAPIKey sets the provider API key. When empty, gollm reads it from
// the environment.
func WithAPIKey(key string) GollmOption {
	return func(c *gollmConfig) { c.apiKey = key }
}

// WithModel sets the model identifier.
func WithModel(model string) GollmOption {
	return func(c *gollmConfig) { c.model = model }
}

// WithMaxTokens sets the response token budget.
func WithMaxTokens(n int) GollmOption {
	return func(c *gollmConfig) { c.maxTokens = n }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) GollmOption {
	return func(c *gollmConfig) { c.temperature = t }
}

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(p RetryPolicy) GollmOption {
	return func(c *gollmConfig) { c.policy = p }
}

// WithGollmOptions adds extra gollm configuration options.
func WithGollmOptions(opts ...gollm.ConfigOption) GollmOption {
	return func(c *gollmConfig) { c.extraOpts = append(c.extraOpts, opts...) }
}

// NewGollmReasoner creates a GollmReasoner for the given provider.
func NewGollmReasoner(provider string, opts ...GollmOption) (*GollmReasoner, error) {
	cfg := &gollmConfig{
		maxTokens:   4096,
		temperature: 0.2,
		policy:      DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	model := cfg.model
	if model == "" {
		switch provider {
		case "anthropic":
			model = "claude-sonnet-4-5-20250514"
		default:
			model = "gpt-4o-mini"
		}
	}

	gollmOpts := []gollm.ConfigOption{
		gollm.SetProvider(provider),
		gollm.SetModel(model),
		gollm.SetMaxTokens(cfg.maxTokens),
		gollm.SetTemperature(cfg.temperature),
		gollm.SetMaxRetries(0), // retries are handled here, not in gollm
		gollm.SetLogLevel(gollm.LogLevelWarn),
	}
	if cfg.apiKey != "" {
		gollmOpts = append(gollmOpts, gollm.SetAPIKey(cfg.apiKey))
	}
	gollmOpts = append(gollmOpts, cfg.extraOpts...)

	llm, err := gollm.NewLLM(gollmOpts...)
	if err != nil {
		return nil, fmt.Errorf("create gollm LLM for provider %s: %w", provider, err)
	}

	return &GollmReasoner{llm: llm, policy: cfg.policy}, nil
}

// NewGollmReasonerFromLLM wraps an existing gollm.LLM instance.
func NewGollmReasonerFromLLM(llm gollm.LLM) *GollmReasoner {
	return &GollmReasoner{llm: llm, policy: DefaultRetryPolicy()}
}

// Generate asks the model for a Decision over the given context.
func (r *GollmReasoner) Generate(ctx context.Context, messages []Message) (*Decision, error) {
	prompt := r.buildPrompt(messages, decisionFormat)
	return Retry(ctx, r.policy, func(ctx context.Context) (*Decision, error) {
		text, err := r.llm.Generate(ctx, prompt)
		if err != nil {
			return nil, ClassifyError(err)
		}
		return ParseDecision(text)
	})
}

// Judge asks the model a narrow yes/no question over the given context.
func (r *GollmReasoner) Judge(ctx context.Context, messages []Message) (*Judgment, error) {
	prompt := r.buildPrompt(messages, judgmentFormat)
	return Retry(ctx, r.policy, func(ctx context.Context) (*Judgment, error) {
		text, err := r.llm.Generate(ctx, prompt)
		if err != nil {
			return nil, ClassifyError(err)
		}
		return ParseJudgment(text)
	})
}

// buildPrompt flattens the message transcript into a gollm prompt. System
// messages become the system prompt; the rest form the prompt body in
// order, with assistant turns labeled so the model can follow the thread.
func (r *GollmReasoner) buildPrompt(messages []Message, format string) *gollm.Prompt {
	var system strings.Builder
	var body []string

	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			if system.Len() > 0 {
				system.WriteString("\n")
			}
			system.WriteString(msg.Content)
		case RoleUser:
			body = append(body, msg.Content)
		case RoleAssistant:
			if msg.Content != "" {
				body = append(body, "[Assistant]: "+msg.Content)
			}
		}
	}

	if system.Len() > 0 {
		system.WriteString("\n\n")
	}
	system.WriteString(format)

	promptText := strings.Join(body, "\n")
	if promptText == "" {
		promptText = "Proceed."
	}

	return gollm.NewPrompt(promptText,
		gollm.WithSystemPrompt(strings.TrimSpace(system.String()), gollm.CacheTypeEphemeral))
}
