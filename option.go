package muikit

// ToolDefinition describes a callable tool. Adapters in this module report no function
// calling capability and reject non-empty tool lists.
type ToolDefinition struct {
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description" yaml:"description"`
	Parameters  map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// CreateConfig collects per-call settings for Create and CreateStream.
type CreateConfig struct {
	JSONOutput bool
	ExtraArgs  map[string]any
	Tools      []ToolDefinition
}

// CreateOption configures a Create call (functional options pattern).
type CreateOption func(*CreateConfig)

// WithJSONOutput asks the client to constrain output to JSON where it can.
func WithJSONOutput(on bool) CreateOption {
	return func(c *CreateConfig) { c.JSONOutput = on }
}

// WithExtraArgs sets provider-specific overrides (e.g. "temperature", "max_tokens").
func WithExtraArgs(args map[string]any) CreateOption {
	return func(c *CreateConfig) { c.ExtraArgs = args }
}

// WithTools passes tool definitions through to the client.
func WithTools(tools []ToolDefinition) CreateOption {
	return func(c *CreateConfig) { c.Tools = tools }
}

// ApplyCreateOptions returns the CreateConfig built from opts.
func ApplyCreateOptions(opts ...CreateOption) CreateConfig {
	var c CreateConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&c)
		}
	}
	return c
}
