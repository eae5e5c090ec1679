package gemini

import (
	"fmt"
	"strings"

	"github.com/muikit/muikit"
)

// Defaults applied by DefaultConfig.
const (
	DefaultModel           = "gemini-2.0-flash"
	DefaultMaxOutputTokens = 1024

	// DefaultInstruction asks the model to reply in the language of the user's input,
	// answering fully in Chinese when the user writes Chinese.
	DefaultInstruction = "請以與使用者輸入相同的語言作答，若使用者使用中文則回答請完全使用中文。若非中文則對應使用者語言。"

	// ContextLimit is the upper bound used by RemainingTokens.
	ContextLimit = 8192
)

// Config is the serializable configuration of a Client.
// APIKey is accepted on input but never written back by Client.Config.
type Config struct {
	Model           string  `yaml:"model" json:"model"`
	APIKey          string  `yaml:"api_key,omitempty" json:"-"`
	Temperature     float64 `yaml:"temperature" json:"temperature"`
	MaxOutputTokens int     `yaml:"max_output_tokens" json:"max_output_tokens"`
	// Instruction replaces DefaultInstruction as the leading prompt line.
	Instruction string `yaml:"instruction,omitempty" json:"instruction,omitempty"`
	// OmitInstruction drops the leading instruction line entirely.
	OmitInstruction bool `yaml:"omit_instruction,omitempty" json:"omit_instruction,omitempty"`
}

// DefaultConfig returns the configuration used when fields are left empty.
func DefaultConfig() Config {
	return Config{
		Model:           DefaultModel,
		MaxOutputTokens: DefaultMaxOutputTokens,
	}
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.Model) == "" {
		c.Model = DefaultModel
	}
	if c.MaxOutputTokens == 0 {
		c.MaxOutputTokens = DefaultMaxOutputTokens
	}
	return c
}

// Validate checks ranges: temperature in [0, 2], max_output_tokens >= 1.
func (c Config) Validate() error {
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: gemini temperature must be within [0, 2], got %v", muikit.ErrConfig, c.Temperature)
	}
	if c.MaxOutputTokens < 1 {
		return fmt.Errorf("%w: gemini max_output_tokens must be >= 1, got %d", muikit.ErrConfig, c.MaxOutputTokens)
	}
	return nil
}

// instruction returns the leading prompt line text, or "" when it is omitted.
func (c Config) instruction() string {
	switch {
	case c.OmitInstruction:
		return ""
	case c.Instruction != "":
		return c.Instruction
	default:
		return DefaultInstruction
	}
}
