package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.opentelemetry.io/otel/attribute"

	"github.com/muikit/muikit"
	"github.com/muikit/muikit/adapter"
	"github.com/muikit/muikit/internal/logging"
	"github.com/muikit/muikit/internal/workerpool"
)

const (
	providerName = "bedrock"
	contentJSON  = "application/json"
)

// Invoker is the slice of the Bedrock Runtime client this package uses.
// *bedrockruntime.Client implements it; tests substitute a fake.
type Invoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Client implements muikit.ChatCompletionClient for Claude on Bedrock.
type Client struct {
	cfg     Config
	invoker Invoker
	pool    *workerpool.Pool
	logger  *slog.Logger
	counter muikit.TokenCounter
	usage   muikit.UsageTracker
}

// Option configures a Client (e.g. WithInvoker).
type Option func(*Client)

// WithInvoker sets the Bedrock Runtime client. When unset, New builds one from the
// default AWS credential chain and Config.Region.
func WithInvoker(inv Invoker) Option {
	return func(c *Client) { c.invoker = inv }
}

// WithPool sets the worker pool used by Create and the Async methods. Default is workerpool.Default().
func WithPool(p *workerpool.Pool) Option {
	return func(c *Client) { c.pool = p }
}

// WithLogger sets the logger. Default is logging.Named("bedrock").
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New returns a Client for cfg. Empty fields take DefaultConfig values.
// Returns an error wrapping muikit.ErrConfig if cfg is out of range or AWS config cannot be loaded.
func New(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Client{
		cfg:     cfg,
		counter: &muikit.LengthEstimator{CharsPerToken: 4},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.pool == nil {
		c.pool = workerpool.Default()
	}
	if c.logger == nil {
		c.logger = logging.Named(providerName)
	}
	if c.invoker == nil {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			return nil, fmt.Errorf("%w: load AWS config: %w", muikit.ErrConfig, err)
		}
		c.invoker = bedrockruntime.NewFromConfig(awsCfg)
	}
	return c, nil
}

// Config returns the configuration the client was built with.
func (c *Client) Config() Config { return c.cfg }

// CompletionRequest is the input of CreateChatCompletion.
type CompletionRequest struct {
	Messages []muikit.Message
	// Stream is not supported; setting it returns muikit.ErrStreamNotImplemented.
	Stream bool
	// ExtraArgs may override "temperature" and "max_tokens" for this call.
	ExtraArgs map[string]any
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// wireRequest is the InvokeModel body for Anthropic models.
type wireRequest struct {
	AnthropicVersion string        `json:"anthropic_version"`
	MaxTokens        int           `json:"max_tokens"`
	Temperature      float64       `json:"temperature"`
	Messages         []wireMessage `json:"messages"`
}

type wireContentBlock struct {
	Type string  `json:"type"`
	Text *string `json:"text"`
}

type wireResponse struct {
	Content    []wireContentBlock `json:"content"`
	StopReason *string            `json:"stop_reason"`
}

func convertMessages(messages []muikit.Message) []wireMessage {
	out := make([]wireMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, wireMessage{Role: string(m.RoleOrDefault()), Content: m.Text()})
	}
	return out
}

// buildRequest merges per-call overrides over the client defaults.
func (c *Client) buildRequest(req CompletionRequest) wireRequest {
	o := adapter.ExtractOverrides(req.ExtraArgs)
	return wireRequest{
		AnthropicVersion: AnthropicVersion,
		MaxTokens:        o.MaxTokensOr(c.cfg.MaxTokens),
		Temperature:      o.TemperatureOr(c.cfg.Temperature),
		Messages:         convertMessages(req.Messages),
	}
}

// parseResponse extracts content[0].text and stop_reason (default "stop").
func parseResponse(body []byte) (*muikit.ChatCompletion, error) {
	var resp wireResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode %s body: %w", muikit.ErrMalformedResponse, providerName, err)
	}
	if resp.Content == nil {
		return nil, muikit.MissingField(providerName, "content")
	}
	if len(resp.Content) == 0 {
		return nil, muikit.MissingField(providerName, "content[0]")
	}
	if resp.Content[0].Text == nil {
		return nil, muikit.MissingField(providerName, "content[0].text")
	}
	finish := string(muikit.FinishStop)
	if resp.StopReason != nil && *resp.StopReason != "" {
		finish = *resp.StopReason
	}
	return muikit.NewChatCompletion(*resp.Content[0].Text, finish), nil
}

// CreateChatCompletion sends messages to InvokeModel and returns the normalized completion.
// It blocks for the duration of the call.
func (c *Client) CreateChatCompletion(ctx context.Context, req CompletionRequest) (comp *muikit.ChatCompletion, err error) {
	if req.Stream {
		return nil, fmt.Errorf("%w: bedrock claude", muikit.ErrStreamNotImplemented)
	}
	body, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("bedrock: encode request: %w", err)
	}

	reqID := adapter.NewRequestID()
	ctx, span := adapter.StartSpan(ctx, "bedrock.InvokeModel",
		attribute.String(adapter.RequestIDKey, reqID),
		attribute.String("gen_ai.system", "aws.bedrock"),
		attribute.String("gen_ai.request.model", c.cfg.ModelID),
		attribute.Int("muikit.messages", len(req.Messages)),
	)
	defer func() { adapter.EndSpan(span, err) }()

	logger := c.logger.With(slog.String("request_id", reqID))
	logger.DebugContext(ctx, "invoke model",
		slog.String("model_id", c.cfg.ModelID),
		slog.Int("messages", len(req.Messages)),
		slog.Int("body_bytes", len(body)),
	)
	out, err := c.invoker.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.cfg.ModelID),
		Body:        body,
		ContentType: aws.String(contentJSON),
		Accept:      aws.String(contentJSON),
	})
	if err != nil {
		logger.WarnContext(ctx, "invoke model failed", slog.String("model_id", c.cfg.ModelID), slog.Any("error", err))
		return nil, fmt.Errorf("bedrock: invoke model %s: %w", c.cfg.ModelID, err)
	}
	if out == nil {
		return nil, muikit.MissingField(providerName, "body")
	}
	return parseResponse(out.Body)
}

// CreateChatCompletionAsync runs CreateChatCompletion on the worker pool.
// Awaiting the future yields the same result the blocking call would.
func (c *Client) CreateChatCompletionAsync(ctx context.Context, req CompletionRequest) *workerpool.Future[*muikit.ChatCompletion] {
	return workerpool.Submit(ctx, c.pool, func(ctx context.Context) (*muikit.ChatCompletion, error) {
		return c.CreateChatCompletion(ctx, req)
	})
}

// finishReason maps Anthropic stop reasons onto muikit finish reasons.
func finishReason(raw string) muikit.FinishReason {
	switch anthropic.StopReason(raw) {
	case anthropic.StopReasonEndTurn, anthropic.StopReasonStopSequence, anthropic.StopReason(muikit.FinishStop):
		return muikit.FinishStop
	case anthropic.StopReasonMaxTokens:
		return muikit.FinishLength
	case anthropic.StopReasonToolUse:
		return muikit.FinishFunctionCalls
	case anthropic.StopReasonRefusal:
		return muikit.FinishContentFilter
	default:
		return muikit.FinishUnknown
	}
}

// Create runs a single-turn completion on the worker pool and records usage.
// Tools are rejected; WithJSONOutput prepends a strict JSON system message.
func (c *Client) Create(ctx context.Context, messages []muikit.Message, opts ...muikit.CreateOption) (*muikit.CreateResult, error) {
	cc := muikit.ApplyCreateOptions(opts...)
	if err := adapter.RejectTools(cc.Tools); err != nil {
		return nil, err
	}
	seq := messages
	if cc.JSONOutput {
		seq = adapter.WithJSONInstruction(messages)
	}
	comp, err := workerpool.Run(ctx, c.pool, func(ctx context.Context) (*muikit.ChatCompletion, error) {
		return c.CreateChatCompletion(ctx, CompletionRequest{Messages: seq, ExtraArgs: cc.ExtraArgs})
	})
	if err != nil {
		return nil, err
	}
	content := comp.Content()
	usage := muikit.RequestUsage{
		PromptTokens:     c.CountTokens(messages),
		CompletionTokens: c.CountText(content),
	}
	c.usage.Record(usage)
	return &muikit.CreateResult{
		Content:      content,
		FinishReason: finishReason(comp.Choices[0].FinishReason),
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

// CountTokens estimates the prompt size of messages from their newline-joined content.
func (c *Client) CountTokens(messages []muikit.Message) int {
	texts := make([]string, len(messages))
	for i, m := range messages {
		texts[i] = m.Text()
	}
	return c.CountText(strings.Join(texts, "\n"))
}

// CountText estimates the token count of text.
func (c *Client) CountText(text string) int {
	return muikit.CountOrZero(c.counter, text)
}

// RemainingTokens returns ContextLimit minus the estimated prompt size.
func (c *Client) RemainingTokens(messages []muikit.Message) int {
	return ContextLimit - c.CountTokens(messages)
}

// ActualUsage returns the usage of the last Create call.
func (c *Client) ActualUsage() muikit.RequestUsage { return c.usage.Actual() }

// TotalUsage returns the cumulative usage of the client.
func (c *Client) TotalUsage() muikit.RequestUsage { return c.usage.Total() }

var modelInfo = muikit.ModelInfo{Family: muikit.FamilyClaude}

// ModelInfo returns the static capability descriptor: no vision, tools or structured output.
func (c *Client) ModelInfo() muikit.ModelInfo { return modelInfo }

// Capabilities is an alias of ModelInfo.
func (c *Client) Capabilities() muikit.ModelInfo { return modelInfo }

// Close releases nothing; the AWS client holds no per-client resources.
func (c *Client) Close() error { return nil }

var _ muikit.ChatCompletionClient = (*Client)(nil)
