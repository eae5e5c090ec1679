// Package manifest reads and writes component manifests: YAML documents naming a
// provider, its component type, and a provider-specific config block.
package manifest

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/muikit/muikit"
)

// Component types.
const (
	TypeChatCompletionClient = "chat_completion_client"
	TypeOther                = "other"
)

// Manifest describes one configured component. Config is kept as a YAML node and
// decoded by the provider's factory.
type Manifest struct {
	Provider      string    `yaml:"provider"`
	ComponentType string    `yaml:"component_type"`
	Version       int       `yaml:"version,omitempty"`
	Label         string    `yaml:"label,omitempty"`
	Description   string    `yaml:"description,omitempty"`
	Config        yaml.Node `yaml:"config,omitempty"`
}

// New returns a manifest whose Config is cfg encoded as YAML.
func New(provider, componentType string, cfg any) (*Manifest, error) {
	m := &Manifest{Provider: provider, ComponentType: componentType, Version: 1}
	if err := m.Config.Encode(cfg); err != nil {
		return nil, fmt.Errorf("manifest: encode %s config: %w", provider, err)
	}
	return m, m.Validate()
}

// Validate checks that provider and component type are set.
func (m *Manifest) Validate() error {
	if m.Provider == "" {
		return fmt.Errorf("%w: missing provider", muikit.ErrInvalidManifest)
	}
	switch m.ComponentType {
	case TypeChatCompletionClient, TypeOther:
	default:
		return fmt.Errorf("%w: %s: invalid component_type %q", muikit.ErrInvalidManifest, m.Provider, m.ComponentType)
	}
	return nil
}

// DecodeConfig decodes the config block onto out. Fields absent from the block keep the
// values out already holds, so callers pre-fill out with defaults.
func (m *Manifest) DecodeConfig(out any) error {
	if m.Config.IsZero() {
		return nil
	}
	if err := m.Config.Decode(out); err != nil {
		return fmt.Errorf("%w: %s config: %w", muikit.ErrInvalidManifest, m.Provider, err)
	}
	return nil
}

// ParseBytes parses and validates a single YAML manifest.
func ParseBytes(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %w", muikit.ErrInvalidManifest, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// ParseFile reads and parses a manifest file.
func ParseFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is chosen by the operator
	if err != nil {
		return nil, fmt.Errorf("manifest: read file: %w", err)
	}
	return ParseBytes(data)
}

// ParseFS reads and parses a manifest from fs.FS (e.g. embed.FS).
func ParseFS(fsys fs.FS, name string) (*Manifest, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("manifest: read fs: %w", err)
	}
	return ParseBytes(data)
}

// Encode renders manifests as a YAML stream, one document each.
func Encode(ms ...*Manifest) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	for _, m := range ms {
		if err := enc.Encode(m); err != nil {
			return nil, fmt.Errorf("manifest: encode %s: %w", m.Provider, err)
		}
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("manifest: encode: %w", err)
	}
	return buf.Bytes(), nil
}
