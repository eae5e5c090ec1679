package gemini

import (
	"context"
	"iter"
	"log/slog"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/genai"

	"github.com/muikit/muikit"
	"github.com/muikit/muikit/adapter"
	"github.com/muikit/muikit/internal/logging"
	"github.com/muikit/muikit/internal/workerpool"
)

const providerName = "gemini"

// Client implements muikit.ChatCompletionClient for Gemini models.
type Client struct {
	cfg     Config
	gen     Generator
	pool    *workerpool.Pool
	logger  *slog.Logger
	counter muikit.TokenCounter
	usage   muikit.UsageTracker
}

// Option configures a Client.
type Option func(*Client)

// WithGenerator sets the model backend. When unset, New builds a genai client for Config.Model.
func WithGenerator(g Generator) Option {
	return func(c *Client) { c.gen = g }
}

// WithPool sets the worker pool used by Create and CreateChatCompletionAsync.
func WithPool(p *workerpool.Pool) Option {
	return func(c *Client) { c.pool = p }
}

// WithLogger sets the logger. Default is logging.Named("gemini").
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTokenCounter replaces the default tiktoken/word-count counter.
func WithTokenCounter(tc muikit.TokenCounter) Option {
	return func(c *Client) { c.counter = tc }
}

// New returns a Client for cfg. Empty fields take DefaultConfig values.
func New(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Client{cfg: cfg}
	for _, opt := range opts {
		opt(c)
	}
	if c.pool == nil {
		c.pool = workerpool.Default()
	}
	if c.logger == nil {
		c.logger = logging.Named(providerName)
	}
	if c.counter == nil {
		c.counter = NewTokenCounter()
	}
	if c.gen == nil {
		g, err := newGenaiGenerator(ctx, cfg)
		if err != nil {
			return nil, err
		}
		c.gen = g
	}
	return c, nil
}

// Config returns the client configuration without the API key.
func (c *Client) Config() Config {
	cfg := c.cfg
	cfg.APIKey = ""
	return cfg
}

func (c *Client) prompt(messages []muikit.Message) string {
	return buildPrompt(c.cfg.instruction(), messages)
}

func (c *Client) generationConfig(extra map[string]any) GenerationConfig {
	o := adapter.ExtractOverrides(extra)
	return GenerationConfig{
		Temperature:     o.TemperatureOr(c.cfg.Temperature),
		MaxOutputTokens: o.MaxTokensOr(c.cfg.MaxOutputTokens),
	}
}

func (c *Client) spanAttrs(reqID string, messages int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(adapter.RequestIDKey, reqID),
		attribute.String("gen_ai.system", "gemini"),
		attribute.String("gen_ai.request.model", c.cfg.Model),
		attribute.Int("muikit.messages", messages),
	}
}

func (c *Client) generate(ctx context.Context, prompt string, gc GenerationConfig, messages int) (gen Generation, err error) {
	reqID := adapter.NewRequestID()
	ctx, span := adapter.StartSpan(ctx, "gemini.GenerateContent", c.spanAttrs(reqID, messages)...)
	defer func() { adapter.EndSpan(span, err) }()

	logger := c.logger.With(slog.String("request_id", reqID))
	logger.DebugContext(ctx, "generate content", slog.String("model", c.cfg.Model), slog.Int("prompt_bytes", len(prompt)))
	gen, err = c.gen.Generate(ctx, prompt, gc)
	if err != nil {
		logger.WarnContext(ctx, "generate content failed", slog.String("model", c.cfg.Model), slog.Any("error", err))
		return nil, err
	}
	if gen == nil {
		return nil, muikit.MissingField(providerName, "candidates")
	}
	if cr, ok := gen.(contentReporter); ok && !cr.hasContent() {
		err = muikit.MissingField(providerName, "candidates[0].content")
		logger.WarnContext(ctx, "generate content returned no candidates", slog.String("model", c.cfg.Model),
			slog.String("finish_reason", gen.FinishReason()))
		return nil, err
	}
	return gen, nil
}

// CreateChatCompletion sends the flattened conversation and returns the full response.
// extra may override "temperature" and "max_output_tokens" (or "max_tokens").
func (c *Client) CreateChatCompletion(ctx context.Context, messages []muikit.Message, extra map[string]any) (*muikit.ChatCompletion, error) {
	gen, err := c.generate(ctx, c.prompt(messages), c.generationConfig(extra), len(messages))
	if err != nil {
		return nil, err
	}
	finish := gen.FinishReason()
	if finish == "" {
		finish = string(muikit.FinishStop)
	}
	return muikit.NewChatCompletion(gen.Text(), finish), nil
}

// CreateChatCompletionAsync runs CreateChatCompletion on the worker pool.
func (c *Client) CreateChatCompletionAsync(ctx context.Context, messages []muikit.Message, extra map[string]any) *workerpool.Future[*muikit.ChatCompletion] {
	return workerpool.Submit(ctx, c.pool, func(ctx context.Context) (*muikit.ChatCompletion, error) {
		return c.CreateChatCompletion(ctx, messages, extra)
	})
}

// StreamChatCompletion returns a lazy stream of chunks: one per SDK chunk with a nil
// finish reason, then a terminal chunk with an empty delta and finish reason "stop".
// The request is sent when iteration starts. The stream can be consumed once; iterating
// it again yields muikit.ErrStreamConsumed. An SDK error is yielded and ends the stream
// without a terminal chunk.
func (c *Client) StreamChatCompletion(ctx context.Context, messages []muikit.Message, extra map[string]any) iter.Seq2[muikit.StreamChunk, error] {
	prompt := c.prompt(messages)
	gc := c.generationConfig(extra)
	var consumed atomic.Bool
	return func(yield func(muikit.StreamChunk, error) bool) {
		if consumed.Swap(true) {
			yield(muikit.StreamChunk{}, muikit.ErrStreamConsumed)
			return
		}
		var err error
		reqID := adapter.NewRequestID()
		ctx, span := adapter.StartSpan(ctx, "gemini.GenerateContentStream", c.spanAttrs(reqID, len(messages))...)
		defer func() { adapter.EndSpan(span, err) }()
		logger := c.logger.With(slog.String("request_id", reqID))

		chunks := 0
		for gen, genErr := range c.gen.GenerateStream(ctx, prompt, gc) {
			if genErr != nil {
				err = genErr
				logger.WarnContext(ctx, "content stream failed", slog.Int("chunks", chunks), slog.Any("error", err))
				yield(muikit.StreamChunk{}, err)
				return
			}
			chunks++
			if !yield(muikit.StreamChunk{Delta: gen.Text()}, nil) {
				return
			}
		}
		logger.DebugContext(ctx, "content stream finished", slog.Int("chunks", chunks))
		stop := string(muikit.FinishStop)
		yield(muikit.StreamChunk{FinishReason: &stop}, nil)
	}
}

// finishReason maps Gemini finish reasons onto muikit finish reasons. Empty means stop.
func finishReason(raw string) muikit.FinishReason {
	switch genai.FinishReason(raw) {
	case "", genai.FinishReasonUnspecified, genai.FinishReasonStop, genai.FinishReason(muikit.FinishStop):
		return muikit.FinishStop
	case genai.FinishReasonMaxTokens:
		return muikit.FinishLength
	case genai.FinishReasonSafety, genai.FinishReasonRecitation, genai.FinishReasonBlocklist,
		genai.FinishReasonProhibitedContent, genai.FinishReasonSPII:
		return muikit.FinishContentFilter
	case genai.FinishReasonMalformedFunctionCall:
		return muikit.FinishFunctionCalls
	default:
		return muikit.FinishUnknown
	}
}

// Create runs a single-turn completion on the worker pool and records usage.
// Prompt usage counts the whole flattened prompt, instruction line included.
func (c *Client) Create(ctx context.Context, messages []muikit.Message, opts ...muikit.CreateOption) (*muikit.CreateResult, error) {
	cc := muikit.ApplyCreateOptions(opts...)
	if err := adapter.RejectTools(cc.Tools); err != nil {
		return nil, err
	}
	seq := messages
	if cc.JSONOutput {
		seq = adapter.WithJSONInstruction(messages)
	}
	prompt := c.prompt(seq)
	gc := c.generationConfig(cc.ExtraArgs)
	gen, err := workerpool.Run(ctx, c.pool, func(ctx context.Context) (Generation, error) {
		return c.generate(ctx, prompt, gc, len(seq))
	})
	if err != nil {
		return nil, err
	}
	content := gen.Text()
	usage := muikit.RequestUsage{
		PromptTokens:     c.CountText(prompt),
		CompletionTokens: c.CountText(content),
	}
	c.usage.Record(usage)
	return &muikit.CreateResult{
		Content:      content,
		FinishReason: finishReason(gen.FinishReason()),
		Usage:        usage,
		Cached:       false,
	}, nil
}

// CreateStream yields the content of a Create call and then its result.
func (c *Client) CreateStream(ctx context.Context, messages []muikit.Message, opts ...muikit.CreateOption) iter.Seq2[muikit.StreamEvent, error] {
	return muikit.StreamFromCreate(func() (*muikit.CreateResult, error) {
		return c.Create(ctx, messages, opts...)
	})
}

// CountTokens counts the tokens of the flattened prompt for messages; no messages count as 0.
func (c *Client) CountTokens(messages []muikit.Message) int {
	if len(messages) == 0 {
		return 0
	}
	return c.CountText(c.prompt(messages))
}

// CountText counts the tokens of text; "" counts as 0.
func (c *Client) CountText(text string) int {
	if text == "" {
		return 0
	}
	return muikit.CountOrZero(c.counter, text)
}

// RemainingTokens returns ContextLimit minus CountTokens(messages).
func (c *Client) RemainingTokens(messages []muikit.Message) int {
	return ContextLimit - c.CountTokens(messages)
}

// ActualUsage returns the usage of the last Create call.
func (c *Client) ActualUsage() muikit.RequestUsage { return c.usage.Actual() }

// TotalUsage returns the cumulative usage of the client.
func (c *Client) TotalUsage() muikit.RequestUsage { return c.usage.Total() }

var modelInfo = muikit.ModelInfo{Family: muikit.FamilyUnknown}

// ModelInfo returns the static capability descriptor.
func (c *Client) ModelInfo() muikit.ModelInfo { return modelInfo }

// Capabilities is an alias of ModelInfo.
func (c *Client) Capabilities() muikit.ModelInfo { return modelInfo }

// Close is a no-op; the genai client has nothing to release.
func (c *Client) Close() error { return nil }

var _ muikit.ChatCompletionClient = (*Client)(nil)
