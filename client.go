package muikit

import (
	"context"
	"iter"
)

// ModelFamily names the model family reported in ModelInfo.
type ModelFamily string

// Model families reported by the adapters in this module.
const (
	FamilyClaude  ModelFamily = "claude"
	FamilyUnknown ModelFamily = "unknown"
)

// ModelInfo is a static capability descriptor. Adapters return a fixed value and never
// query the provider for it.
type ModelInfo struct {
	Vision                 bool        `json:"vision" yaml:"vision"`
	FunctionCalling        bool        `json:"function_calling" yaml:"function_calling"`
	JSONOutput             bool        `json:"json_output" yaml:"json_output"`
	StructuredOutput       bool        `json:"structured_output" yaml:"structured_output"`
	MultipleSystemMessages bool        `json:"multiple_system_messages" yaml:"multiple_system_messages"`
	Family                 ModelFamily `json:"family" yaml:"family"`
}

// ChatCompletionClient is the client contract an agent orchestrator drives.
// Implementations live in adapter/bedrock and adapter/gemini.
type ChatCompletionClient interface {
	// Create runs a single-turn completion and records its usage.
	Create(ctx context.Context, messages []Message, opts ...CreateOption) (*CreateResult, error)
	// CreateStream yields the completion content and then the final result.
	CreateStream(ctx context.Context, messages []Message, opts ...CreateOption) iter.Seq2[StreamEvent, error]
	// CountTokens estimates the prompt size of messages.
	CountTokens(messages []Message) int
	// RemainingTokens is the provider context limit minus CountTokens(messages).
	RemainingTokens(messages []Message) int
	// ActualUsage is the usage of the last Create call.
	ActualUsage() RequestUsage
	// TotalUsage is the cumulative usage of the client.
	TotalUsage() RequestUsage
	// ModelInfo returns the static capability descriptor.
	ModelInfo() ModelInfo
	Close() error
}

// StreamFromCreate adapts a Create call into the CreateStream shape: one content event
// (when the content is non-empty) followed by the result event.
func StreamFromCreate(create func() (*CreateResult, error)) iter.Seq2[StreamEvent, error] {
	return func(yield func(StreamEvent, error) bool) {
		res, err := create()
		if err != nil {
			yield(StreamEvent{}, err)
			return
		}
		if res.Content != "" {
			if !yield(StreamEvent{Content: res.Content}, nil) {
				return
			}
		}
		yield(StreamEvent{Result: res}, nil)
	}
}
