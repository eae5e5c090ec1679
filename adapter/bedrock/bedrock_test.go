package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/muikit/muikit"
	"github.com/muikit/muikit/adapter"
	"github.com/muikit/muikit/internal/workerpool"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeInvoker records every request body and answers with a fixed response body.
type fakeInvoker struct {
	mu     sync.Mutex
	inputs []*bedrockruntime.InvokeModelInput
	body   string
	err    error
}

func (f *fakeInvoker) InvokeModel(_ context.Context, in *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: []byte(f.body)}, nil
}

func (f *fakeInvoker) lastRequest(t *testing.T) map[string]any {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.inputs)
	var req map[string]any
	require.NoError(t, json.Unmarshal(f.inputs[len(f.inputs)-1].Body, &req))
	return req
}

func okBody(text, stop string) string {
	return fmt.Sprintf(`{"id":"msg_1","content":[{"type":"text","text":%q}],"stop_reason":%q}`, text, stop)
}

func newTestClient(t *testing.T, inv Invoker, cfg Config) *Client {
	t.Helper()
	pool := workerpool.New(4)
	t.Cleanup(pool.Wait)
	c, err := New(context.Background(), cfg,
		WithInvoker(inv),
		WithPool(pool),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(t, err)
	return c
}

func ExampleClient_CreateChatCompletion() {
	inv := &fakeInvoker{body: `{"content":[{"type":"text","text":"Hello!"}],"stop_reason":"end_turn"}`}
	c, _ := New(context.Background(), DefaultConfig(), WithInvoker(inv))
	comp, _ := c.CreateChatCompletion(context.Background(), CompletionRequest{
		Messages: []muikit.Message{muikit.NewTextMessage(muikit.RoleUser, "Hi")},
	})
	fmt.Println(comp.Content(), comp.Choices[0].FinishReason)
	// Output: Hello! end_turn
}

func TestCreateChatCompletion_RequestEnvelope(t *testing.T) {
	t.Parallel()
	inv := &fakeInvoker{body: okBody("ok", "end_turn")}
	c := newTestClient(t, inv, Config{ModelID: "anthropic.claude-test", Temperature: 0.25, MaxTokens: 300})
	_, err := c.CreateChatCompletion(context.Background(), CompletionRequest{
		Messages: []muikit.Message{
			muikit.NewTextMessage(muikit.RoleSystem, "be brief"),
			{Role: muikit.RoleUser, Content: []muikit.ContentPart{muikit.TextPart{Text: "a"}, muikit.TextPart{Text: "b"}}},
			{Content: []muikit.ContentPart{muikit.TextPart{Text: "no role"}}},
		},
	})
	require.NoError(t, err)

	require.Len(t, inv.inputs, 1)
	in := inv.inputs[0]
	assert.Equal(t, "anthropic.claude-test", aws.ToString(in.ModelId))
	assert.Equal(t, "application/json", aws.ToString(in.ContentType))
	assert.Equal(t, "application/json", aws.ToString(in.Accept))

	req := inv.lastRequest(t)
	assert.Equal(t, AnthropicVersion, req["anthropic_version"])
	assert.InDelta(t, 300, req["max_tokens"], 0)
	assert.InDelta(t, 0.25, req["temperature"], 1e-9)
	msgs, ok := req["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 3)
	assert.Equal(t, map[string]any{"role": "system", "content": "be brief"}, msgs[0])
	assert.Equal(t, map[string]any{"role": "user", "content": "a b"}, msgs[1])
	assert.Equal(t, map[string]any{"role": "user", "content": "no role"}, msgs[2])
}

func TestCreateChatCompletion_OneEntryPerMessage(t *testing.T) {
	t.Parallel()
	for n := range 6 {
		t.Run(fmt.Sprintf("%d messages", n), func(t *testing.T) {
			t.Parallel()
			inv := &fakeInvoker{body: okBody("ok", "end_turn")}
			c := newTestClient(t, inv, DefaultConfig())
			msgs := make([]muikit.Message, n)
			for i := range msgs {
				role := muikit.RoleUser
				if i%2 == 1 {
					role = muikit.RoleAssistant
				}
				msgs[i] = muikit.NewTextMessage(role, fmt.Sprintf("m%d", i))
			}
			_, err := c.CreateChatCompletion(context.Background(), CompletionRequest{Messages: msgs})
			require.NoError(t, err)
			wire, ok := inv.lastRequest(t)["messages"].([]any)
			require.True(t, ok)
			require.Len(t, wire, n)
			for i, w := range wire {
				m := w.(map[string]any)
				assert.Equal(t, string(msgs[i].Role), m["role"])
				assert.Equal(t, msgs[i].Text(), m["content"])
			}
		})
	}
}

func TestCreateChatCompletion_Overrides(t *testing.T) {
	t.Parallel()
	inv := &fakeInvoker{body: okBody("ok", "end_turn")}
	c := newTestClient(t, inv, Config{Temperature: 0.1, MaxTokens: 50})
	_, err := c.CreateChatCompletion(context.Background(), CompletionRequest{
		Messages:  []muikit.Message{muikit.NewTextMessage(muikit.RoleUser, "x")},
		ExtraArgs: map[string]any{"temperature": 0.9, "max_tokens": 7},
	})
	require.NoError(t, err)
	req := inv.lastRequest(t)
	assert.InDelta(t, 0.9, req["temperature"], 1e-9)
	assert.InDelta(t, 7, req["max_tokens"], 0)
	assert.InDelta(t, 0.1, c.Config().Temperature, 1e-9)
}

func TestCreateChatCompletion_Response(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		body       string
		wantText   string
		wantFinish string
		wantField  string
	}{
		{"text and stop reason", okBody("hi", "max_tokens"), "hi", "max_tokens", ""},
		{"missing stop reason defaults", `{"content":[{"type":"text","text":"hi"}]}`, "hi", "stop", ""},
		{"null stop reason defaults", `{"content":[{"type":"text","text":"hi"}],"stop_reason":null}`, "hi", "stop", ""},
		{"empty text is kept", `{"content":[{"type":"text","text":""}],"stop_reason":"end_turn"}`, "", "end_turn", ""},
		{"missing content", `{"stop_reason":"end_turn"}`, "", "", "content"},
		{"empty content", `{"content":[]}`, "", "", "content[0]"},
		{"missing text", `{"content":[{"type":"tool_use","id":"t1"}]}`, "", "", "content[0].text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := newTestClient(t, &fakeInvoker{body: tt.body}, DefaultConfig())
			comp, err := c.CreateChatCompletion(context.Background(), CompletionRequest{
				Messages: []muikit.Message{muikit.NewTextMessage(muikit.RoleUser, "q")},
			})
			if tt.wantField != "" {
				require.ErrorIs(t, err, muikit.ErrMalformedResponse)
				var respErr *muikit.ResponseError
				require.ErrorAs(t, err, &respErr)
				assert.Equal(t, tt.wantField, respErr.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantText, comp.Content())
			assert.Equal(t, tt.wantFinish, comp.Choices[0].FinishReason)
			assert.Equal(t, muikit.RoleAssistant, comp.Choices[0].Message.Role)
		})
	}
}

func TestCreateChatCompletion_InvalidJSON(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, &fakeInvoker{body: "not json"}, DefaultConfig())
	_, err := c.CreateChatCompletion(context.Background(), CompletionRequest{})
	require.ErrorIs(t, err, muikit.ErrMalformedResponse)
}

func TestCreateChatCompletion_StreamNotImplemented(t *testing.T) {
	t.Parallel()
	inv := &fakeInvoker{body: okBody("x", "end_turn")}
	c := newTestClient(t, inv, DefaultConfig())
	_, err := c.CreateChatCompletion(context.Background(), CompletionRequest{Stream: true})
	require.ErrorIs(t, err, muikit.ErrStreamNotImplemented)
	assert.Empty(t, inv.inputs)
}

func TestCreateChatCompletion_InvokeErrorPropagates(t *testing.T) {
	t.Parallel()
	boom := errors.New("throttled")
	c := newTestClient(t, &fakeInvoker{err: boom}, DefaultConfig())
	_, err := c.CreateChatCompletion(context.Background(), CompletionRequest{})
	require.ErrorIs(t, err, boom)
}

func TestCreateChatCompletionAsync_MatchesBlocking(t *testing.T) {
	t.Parallel()
	inv := &fakeInvoker{body: okBody("same answer", "end_turn")}
	c := newTestClient(t, inv, DefaultConfig())
	req := CompletionRequest{
		Messages:  []muikit.Message{muikit.NewTextMessage(muikit.RoleUser, "q")},
		ExtraArgs: map[string]any{"temperature": 0.5},
	}
	blocking, err := c.CreateChatCompletion(context.Background(), req)
	require.NoError(t, err)
	async, err := c.CreateChatCompletionAsync(context.Background(), req).Await(context.Background())
	require.NoError(t, err)

	a, err := json.Marshal(blocking)
	require.NoError(t, err)
	b, err := json.Marshal(async)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))

	require.Len(t, inv.inputs, 2)
	assert.Equal(t, inv.inputs[0].Body, inv.inputs[1].Body)
}

func TestCreate_UsageBookkeeping(t *testing.T) {
	t.Parallel()
	inv := &fakeInvoker{body: okBody("12345678", "end_turn")}
	c := newTestClient(t, inv, DefaultConfig())
	prompts := []string{"abcd", "abcdefghijklmnop", "xy"}
	var total muikit.RequestUsage
	for _, p := range prompts {
		msgs := []muikit.Message{muikit.NewTextMessage(muikit.RoleUser, p)}
		res, err := c.Create(context.Background(), msgs)
		require.NoError(t, err)
		want := muikit.RequestUsage{PromptTokens: max(1, len(p)/4), CompletionTokens: 2}
		assert.Equal(t, want, res.Usage)
		total = total.Add(want)
		assert.Equal(t, want, c.ActualUsage())
		assert.Equal(t, total, c.TotalUsage())
	}
	assert.Equal(t, muikit.RequestUsage{PromptTokens: 1 + 4 + 1, CompletionTokens: 6}, c.TotalUsage())
}

func TestCreate_Result(t *testing.T) {
	t.Parallel()
	tests := []struct {
		stop string
		want muikit.FinishReason
	}{
		{"end_turn", muikit.FinishStop},
		{"stop_sequence", muikit.FinishStop},
		{"max_tokens", muikit.FinishLength},
		{"tool_use", muikit.FinishFunctionCalls},
		{"refusal", muikit.FinishContentFilter},
		{"something_new", muikit.FinishUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.stop, func(t *testing.T) {
			t.Parallel()
			c := newTestClient(t, &fakeInvoker{body: okBody("answer", tt.stop)}, DefaultConfig())
			res, err := c.Create(context.Background(), []muikit.Message{muikit.NewTextMessage(muikit.RoleUser, "q")})
			require.NoError(t, err)
			assert.Equal(t, "answer", res.Content)
			assert.Equal(t, tt.want, res.FinishReason)
			assert.False(t, res.Cached)
		})
	}
}

func TestCreate_JSONOutputPrependsSystemMessage(t *testing.T) {
	t.Parallel()
	inv := &fakeInvoker{body: okBody(`{"a":1}`, "end_turn")}
	c := newTestClient(t, inv, DefaultConfig())
	msgs := []muikit.Message{muikit.NewTextMessage(muikit.RoleUser, "give json")}
	res, err := c.Create(context.Background(), msgs, muikit.WithJSONOutput(true))
	require.NoError(t, err)

	wire := inv.lastRequest(t)["messages"].([]any)
	require.Len(t, wire, 2)
	first := wire[0].(map[string]any)
	assert.Equal(t, "system", first["role"])
	assert.Equal(t, adapter.JSONOutputInstruction, first["content"])
	// Prompt usage is counted on the caller's messages only.
	assert.Equal(t, c.CountTokens(msgs), res.Usage.PromptTokens)
}

func TestCreate_RejectsTools(t *testing.T) {
	t.Parallel()
	inv := &fakeInvoker{body: okBody("x", "end_turn")}
	c := newTestClient(t, inv, DefaultConfig())
	_, err := c.Create(context.Background(), nil, muikit.WithTools([]muikit.ToolDefinition{{Name: "t"}}))
	require.ErrorIs(t, err, muikit.ErrToolsNotSupported)
	assert.Empty(t, inv.inputs)
	assert.Equal(t, muikit.RequestUsage{}, c.TotalUsage())
}

func TestCreate_ErrorLeavesUsageUntouched(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, &fakeInvoker{body: `{"content":[]}`}, DefaultConfig())
	_, err := c.Create(context.Background(), []muikit.Message{muikit.NewTextMessage(muikit.RoleUser, "q")})
	require.ErrorIs(t, err, muikit.ErrMalformedResponse)
	assert.Equal(t, muikit.RequestUsage{}, c.TotalUsage())
}

func TestCreateStream_YieldsContentThenResult(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, &fakeInvoker{body: okBody("streamed", "end_turn")}, DefaultConfig())
	var events []muikit.StreamEvent
	for ev, err := range c.CreateStream(context.Background(), []muikit.Message{muikit.NewTextMessage(muikit.RoleUser, "q")}) {
		require.NoError(t, err)
		events = append(events, ev)
	}
	require.Len(t, events, 2)
	assert.Equal(t, "streamed", events[0].Content)
	require.NotNil(t, events[1].Result)
	assert.Equal(t, "streamed", events[1].Result.Content)
}

func TestCountTokensAndRemaining(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, &fakeInvoker{}, DefaultConfig())
	msgs := []muikit.Message{
		muikit.NewTextMessage(muikit.RoleUser, "abcdefg"),
		muikit.NewTextMessage(muikit.RoleAssistant, "hijklmn"),
	}
	// "abcdefg\nhijklmn" is 15 characters.
	assert.Equal(t, 3, c.CountTokens(msgs))
	assert.Equal(t, 1, c.CountTokens(nil))
	assert.Equal(t, ContextLimit-3, c.RemainingTokens(msgs))
}

func TestModelInfo_Static(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, &fakeInvoker{}, DefaultConfig())
	info := c.ModelInfo()
	assert.Equal(t, muikit.FamilyClaude, info.Family)
	assert.False(t, info.Vision)
	assert.False(t, info.FunctionCalling)
	assert.False(t, info.JSONOutput)
	assert.False(t, info.StructuredOutput)
	assert.False(t, info.MultipleSystemMessages)
	assert.Equal(t, info, c.Capabilities())
	require.NoError(t, c.Close())
}

func TestNew_ConfigValidation(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", Config{}, false},
		{"temperature upper bound", Config{Temperature: 1}, false},
		{"temperature too high", Config{Temperature: 1.5}, true},
		{"temperature negative", Config{Temperature: -0.1}, true},
		{"max tokens negative", Config{MaxTokens: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, err := New(context.Background(), tt.cfg, WithInvoker(&fakeInvoker{}))
			if tt.wantErr {
				require.ErrorIs(t, err, muikit.ErrConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, DefaultModelID, c.Config().ModelID)
			assert.Equal(t, DefaultRegion, c.Config().Region)
			assert.Equal(t, DefaultMaxTokens, c.Config().MaxTokens)
		})
	}
}
