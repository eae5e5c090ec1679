package browser

import (
	"fmt"
	"strings"

	"github.com/muikit/muikit"
)

// Defaults applied by DefaultConfig.
const (
	DefaultImage          = "magentic-ui-vnc-browser"
	DefaultPlaywrightPort = 37367
	DefaultNoVNCPort      = 6080
	DefaultNetwork        = "my-network"

	// NamePrefix starts every container name and in-network hostname.
	NamePrefix = "magentic-ui-vnc-browser"
	// WorkspacePath is where BindDir is mounted inside the container.
	WorkspacePath = "/workspace"
	// LoopbackHost is the hostname used outside docker when no external host is set.
	LoopbackHost = "127.0.0.1"
)

// Config describes one browser container. Decode YAML onto DefaultConfig so that
// omitted fields keep their defaults.
type Config struct {
	BindDir        string `yaml:"bind_dir" json:"bind_dir"`
	Image          string `yaml:"image" json:"image"`
	PlaywrightPort int    `yaml:"playwright_port" json:"playwright_port"`
	NoVNCPort      int    `yaml:"novnc_port" json:"novnc_port"`
	// WebsocketPath is the secret path of the Playwright endpoint. Empty means a random token.
	WebsocketPath string `yaml:"playwright_websocket_path,omitempty" json:"playwright_websocket_path,omitempty"`
	// InsideDocker joins NetworkName and hands out the in-network hostname. Nil means true.
	InsideDocker *bool  `yaml:"inside_docker,omitempty" json:"inside_docker,omitempty"`
	NetworkName  string `yaml:"network_name" json:"network_name"`
	// ExternalHost is the hostname handed out when not inside docker.
	ExternalHost string `yaml:"external_host,omitempty" json:"external_host,omitempty"`
}

// DefaultConfig returns the defaults for every field except BindDir.
func DefaultConfig() Config {
	return Config{
		Image:          DefaultImage,
		PlaywrightPort: DefaultPlaywrightPort,
		NoVNCPort:      DefaultNoVNCPort,
		NetworkName:    DefaultNetwork,
	}
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.Image) == "" {
		c.Image = DefaultImage
	}
	if c.PlaywrightPort == 0 {
		c.PlaywrightPort = DefaultPlaywrightPort
	}
	if c.NoVNCPort == 0 {
		c.NoVNCPort = DefaultNoVNCPort
	}
	if strings.TrimSpace(c.NetworkName) == "" {
		c.NetworkName = DefaultNetwork
	}
	inside := c.InDocker()
	c.InsideDocker = &inside
	return c
}

// InDocker reports the effective InsideDocker value.
func (c Config) InDocker() bool {
	return c.InsideDocker == nil || *c.InsideDocker
}

// Validate requires BindDir and ports within 1..65535.
func (c Config) Validate() error {
	if strings.TrimSpace(c.BindDir) == "" {
		return fmt.Errorf("%w: browser bind_dir is required", muikit.ErrConfig)
	}
	for name, p := range map[string]int{"playwright_port": c.PlaywrightPort, "novnc_port": c.NoVNCPort} {
		if p < 1 || p > 65535 {
			return fmt.Errorf("%w: browser %s out of range: %d", muikit.ErrConfig, name, p)
		}
	}
	return nil
}
