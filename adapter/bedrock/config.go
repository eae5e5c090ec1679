package bedrock

import (
	"fmt"
	"strings"

	"github.com/muikit/muikit"
)

// Defaults applied by DefaultConfig.
const (
	DefaultModelID   = "us.anthropic.claude-sonnet-4-20250514-v1:0"
	DefaultRegion    = "us-west-2"
	DefaultMaxTokens = 1024

	// AnthropicVersion is the envelope version Bedrock expects for Anthropic models.
	AnthropicVersion = "bedrock-2023-05-31"
	// ContextLimit is the upper bound used by RemainingTokens.
	ContextLimit = 200_000
)

// Config is the serializable configuration of a Client.
type Config struct {
	ModelID     string  `yaml:"model_id" json:"model_id"`
	Region      string  `yaml:"aws_region" json:"aws_region"`
	Temperature float64 `yaml:"temperature" json:"temperature"`
	MaxTokens   int     `yaml:"max_tokens" json:"max_tokens"`
}

// DefaultConfig returns the configuration used when fields are left empty.
func DefaultConfig() Config {
	return Config{
		ModelID:   DefaultModelID,
		Region:    DefaultRegion,
		MaxTokens: DefaultMaxTokens,
	}
}

// withDefaults fills empty string fields and a zero MaxTokens.
func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.ModelID) == "" {
		c.ModelID = DefaultModelID
	}
	if strings.TrimSpace(c.Region) == "" {
		c.Region = DefaultRegion
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	return c
}

// Validate checks ranges: temperature in [0, 1], max_tokens >= 1.
func (c Config) Validate() error {
	if c.Temperature < 0 || c.Temperature > 1 {
		return fmt.Errorf("%w: bedrock temperature must be within [0, 1], got %v", muikit.ErrConfig, c.Temperature)
	}
	if c.MaxTokens < 1 {
		return fmt.Errorf("%w: bedrock max_tokens must be >= 1, got %d", muikit.ErrConfig, c.MaxTokens)
	}
	return nil
}
