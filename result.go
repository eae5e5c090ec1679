package muikit

// FinishReason is the normalized reason a completion stopped.
type FinishReason string

// Normalized finish reasons.
const (
	FinishStop          FinishReason = "stop"
	FinishLength        FinishReason = "length"
	FinishFunctionCalls FinishReason = "function_calls"
	FinishContentFilter FinishReason = "content_filter"
	FinishUnknown       FinishReason = "unknown"
)

// CreateResult is the result of a single-turn completion; immutable after creation.
type CreateResult struct {
	Content      string
	FinishReason FinishReason
	Usage        RequestUsage
	Cached       bool
}

// AssistantMessage is the message carried inside a Choice.
type AssistantMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Choice is one normalized completion choice. FinishReason is the provider's raw stop indicator.
type Choice struct {
	Message      AssistantMessage `json:"message"`
	FinishReason string           `json:"finish_reason"`
}

// ChatCompletion is the normalized response envelope returned by CreateChatCompletion.
type ChatCompletion struct {
	Choices []Choice `json:"choices"`
}

// NewChatCompletion returns a single-choice completion with an assistant message.
func NewChatCompletion(content, finishReason string) *ChatCompletion {
	return &ChatCompletion{Choices: []Choice{{
		Message:      AssistantMessage{Role: RoleAssistant, Content: content},
		FinishReason: finishReason,
	}}}
}

// Content returns the first choice's message content, or "" when there are no choices.
func (c *ChatCompletion) Content() string {
	if c == nil || len(c.Choices) == 0 {
		return ""
	}
	return c.Choices[0].Message.Content
}

// StreamChunk is one fragment of an incremental completion.
// FinishReason is nil while more data is coming and non-nil on the terminal fragment.
type StreamChunk struct {
	Index        int     `json:"index"`
	Delta        string  `json:"delta,omitempty"`
	FinishReason *string `json:"finish_reason"`
}

// Done reports whether c is the terminal fragment.
func (c StreamChunk) Done() bool { return c.FinishReason != nil }

// StreamEvent is yielded by ChatCompletionClient.CreateStream: content events first,
// then exactly one event carrying the final Result.
type StreamEvent struct {
	Content string
	Result  *CreateResult
}
