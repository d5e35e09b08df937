package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const historyWindow = 10

var (
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "calldojo",
		Subsystem: "ai",
		Name:      "request_duration_seconds",
		Help:      "Duration of AI responder requests",
	}, []string{"model", "operation"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "calldojo",
		Subsystem: "ai",
		Name:      "request_failures_total",
		Help:      "Number of AI responder failures",
	}, []string{"model", "operation"})
)

// OpenAIConfig defines configuration options for the OpenAI responder.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
	Logger      zerolog.Logger
}

// OpenAIResponder implements Responder against the OpenAI chat completion
// API, playing the prospect persona.
type OpenAIResponder struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIResponder builds a responder using the provided configuration.
func NewOpenAIResponder(cfg OpenAIConfig) (*OpenAIResponder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1000
	}

	tracer := otel.Tracer("github.com/calldojo/calldojo-api/pkg/ai/openai")
	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	client := openai.NewClientWithConfig(config)

	return &OpenAIResponder{
		client: client,
		cfg:    cfg,
		tracer: tracer,
		logger: logger,
	}, nil
}

// GenerateReply asks the model to speak as the prospect at the current
// conversation stage. Any failure or empty completion maps to
// ErrUnavailable so the caller can drop to the scripted line.
func (r *OpenAIResponder) GenerateReply(parent context.Context, input ReplyInput) (string, error) {
	ctx, span := r.tracer.Start(parent, "openai.generate_reply", trace.WithAttributes(
		attribute.String("model", r.cfg.Model),
		attribute.String("node.category", input.NodeCategory),
	))
	defer span.End()

	ctx, cancel := r.callContext(ctx)
	defer cancel()

	temperature := r.cfg.Temperature
	if temperature == 0 {
		temperature = 0.7
	}

	request := openai.ChatCompletionRequest{
		Model:           r.cfg.Model,
		MaxTokens:       r.cfg.MaxTokens,
		Temperature:     temperature,
		PresencePenalty: 0.3,
		Messages:        buildReplyMessages(input),
	}

	start := time.Now()
	resp, err := r.client.CreateChatCompletion(ctx, request)
	aiDuration.WithLabelValues(r.cfg.Model, "reply").Observe(time.Since(start).Seconds())
	if err != nil {
		aiFailures.WithLabelValues(r.cfg.Model, "reply").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.logger.Warn().Err(err).Msg("openai reply failed")
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if len(resp.Choices) == 0 {
		aiFailures.WithLabelValues(r.cfg.Model, "reply").Inc()
		span.SetStatus(codes.Error, "no choices returned")
		return "", fmt.Errorf("%w: empty completion", ErrUnavailable)
	}

	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		aiFailures.WithLabelValues(r.cfg.Model, "reply").Inc()
		return "", fmt.Errorf("%w: empty completion", ErrUnavailable)
	}

	return reply, nil
}

// ClassifyIntent asks the model to pick the best matching intent id. A
// response outside the offered options maps to ErrUnavailable so the caller
// falls back to the keyword detector.
func (r *OpenAIResponder) ClassifyIntent(parent context.Context, input IntentInput) (string, error) {
	if len(input.Options) == 0 {
		return "", fmt.Errorf("%w: no intent options", ErrUnavailable)
	}

	ctx, span := r.tracer.Start(parent, "openai.classify_intent", trace.WithAttributes(
		attribute.String("model", r.cfg.Model),
		attribute.Int("intent.options", len(input.Options)),
	))
	defer span.End()

	ctx, cancel := r.callContext(ctx)
	defer cancel()

	request := openai.ChatCompletionRequest{
		Model:       r.cfg.Model,
		MaxTokens:   50,
		Temperature: 0.3,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: buildIntentSystemPrompt(input.Options)},
			{Role: openai.ChatMessageRoleUser, Content: buildIntentUserPrompt(input)},
		},
	}

	start := time.Now()
	resp, err := r.client.CreateChatCompletion(ctx, request)
	aiDuration.WithLabelValues(r.cfg.Model, "intent").Observe(time.Since(start).Seconds())
	if err != nil {
		aiFailures.WithLabelValues(r.cfg.Model, "intent").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if len(resp.Choices) == 0 {
		aiFailures.WithLabelValues(r.cfg.Model, "intent").Inc()
		return "", fmt.Errorf("%w: empty completion", ErrUnavailable)
	}

	detected := strings.TrimSpace(resp.Choices[0].Message.Content)
	if id, ok := matchIntentOption(input.Options, detected); ok {
		return id, nil
	}

	return "", fmt.Errorf("%w: unrecognized intent %q", ErrUnavailable, detected)
}

// matchIntentOption resolves a completion against the offered options,
// ignoring case so ids with uppercase characters still confirm. The canonical
// option id is returned, never the model's spelling.
func matchIntentOption(options []IntentOption, detected string) (string, bool) {
	for _, option := range options {
		if strings.EqualFold(option.ID, detected) {
			return option.ID, true
		}
	}
	return "", false
}

// callContext bounds a single completion call when a timeout is configured.
func (r *OpenAIResponder) callContext(parent context.Context) (context.Context, context.CancelFunc) {
	if r.cfg.Timeout <= 0 {
		return parent, func() {}
	}
	return context.WithTimeout(parent, r.cfg.Timeout)
}

func buildReplyMessages(input ReplyInput) []openai.ChatCompletionMessage {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: buildReplySystemPrompt(input)},
	}

	history := input.History
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	for _, turn := range history {
		role := openai.ChatMessageRoleAssistant
		if turn.Speaker == "user" {
			role = openai.ChatMessageRoleUser
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: turn.Text})
	}

	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: input.UserMessage,
	})
	return messages
}

func buildReplySystemPrompt(input ReplyInput) string {
	builder := strings.Builder{}
	if input.PersonaPrompt != "" {
		builder.WriteString(input.PersonaPrompt)
		builder.WriteString("\n\n")
	}
	builder.WriteString(fmt.Sprintf("Current conversation stage: %s (%s)\n\n", input.NodeLabel, input.NodeCategory))

	if input.ClarificationPrompt != "" {
		builder.WriteString("Context: ")
		builder.WriteString(input.ClarificationPrompt)
		builder.WriteString("\n\n")
	}

	if len(input.ExpectedIntentLabels) > 0 {
		builder.WriteString("The sales agent is likely trying to: ")
		builder.WriteString(strings.Join(input.ExpectedIntentLabels, ", "))
		builder.WriteString(".\n\n")
	}

	if len(input.ExampleResponses) > 0 {
		builder.WriteString("Your response should be similar in tone to these examples, adapted to the conversation so far:\n")
		limit := len(input.ExampleResponses)
		if limit > 2 {
			limit = 2
		}
		for i := 0; i < limit; i++ {
			builder.WriteString(fmt.Sprintf("- Example %d: %q\n", i+1, input.ExampleResponses[i]))
		}
		builder.WriteString("\n")
	}

	builder.WriteString("You are the prospect on a training call, not the salesperson. ")
	builder.WriteString("Answer what the agent asks, briefly and naturally, in one or two sentences. ")
	builder.WriteString("Follow the agent's lead and stay in character at all times.")
	return builder.String()
}

func buildIntentSystemPrompt(options []IntentOption) string {
	builder := strings.Builder{}
	builder.WriteString("You are analyzing a sales conversation. Determine which intent best matches what the sales agent just said.\n\n")
	builder.WriteString("Available intents for this stage:\n")
	for _, option := range options {
		examples := option.Examples
		if len(examples) > 3 {
			examples = examples[:3]
		}
		builder.WriteString(fmt.Sprintf("- %s: %s (examples: %s)\n", option.ID, option.Label, strings.Join(examples, ", ")))
	}
	builder.WriteString("\nRespond with ONLY the intent ID.")
	return builder.String()
}

func buildIntentUserPrompt(input IntentInput) string {
	builder := strings.Builder{}
	builder.WriteString("Conversation:\n")

	history := input.History
	if len(history) > 5 {
		history = history[len(history)-5:]
	}
	for _, turn := range history {
		speaker := "Prospect"
		if turn.Speaker == "user" {
			speaker = "Agent"
		}
		builder.WriteString(fmt.Sprintf("%s: %s\n", speaker, turn.Text))
	}

	builder.WriteString(fmt.Sprintf("\nAgent: %s\n\nWhich intent?", input.UserMessage))
	return builder.String()
}
