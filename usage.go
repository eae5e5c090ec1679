package muikit

import "sync"

// RequestUsage holds prompt and completion token counts for one or more requests.
type RequestUsage struct {
	PromptTokens     int `json:"prompt_tokens" yaml:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens" yaml:"completion_tokens"`
}

// Add returns the element-wise sum of u and d.
func (u RequestUsage) Add(d RequestUsage) RequestUsage {
	return RequestUsage{
		PromptTokens:     u.PromptTokens + d.PromptTokens,
		CompletionTokens: u.CompletionTokens + d.CompletionTokens,
	}
}

// UsageTracker keeps the usage of the last request ("actual") and the running total.
// Counters are never reset. The zero value is ready to use and safe for concurrent use.
type UsageTracker struct {
	mu     sync.Mutex
	actual RequestUsage
	total  RequestUsage
}

// Record stores delta as the actual usage and adds it to the total.
// Negative counts are clamped to zero so the total never decreases.
func (t *UsageTracker) Record(delta RequestUsage) {
	delta.PromptTokens = max(0, delta.PromptTokens)
	delta.CompletionTokens = max(0, delta.CompletionTokens)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.actual = delta
	t.total = t.total.Add(delta)
}

// Actual returns the usage of the most recent request.
func (t *UsageTracker) Actual() RequestUsage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.actual
}

// Total returns the cumulative usage over the tracker's lifetime.
func (t *UsageTracker) Total() RequestUsage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}
