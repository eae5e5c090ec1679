package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/muikit/muikit/component"
	"github.com/muikit/muikit/config"
	"github.com/muikit/muikit/internal/logging"
	"github.com/muikit/muikit/manifest"
)

// app is the state shared by subcommands once the root pre-run has loaded config.
type app struct {
	getenv     func(string) string
	configPath string
	verbose    bool

	cfg      *config.Config
	registry *component.Registry
}

func newRootCmd(getenv func(string) string) *cobra.Command {
	a := &app{getenv: getenv}
	root := &cobra.Command{
		Use:           "muikit",
		Short:         "Chat completion adapters and VNC browser containers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return a.init()
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return logging.Sync()
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (default: $"+config.EnvConfigPath+")")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newChatCmd(a), newBrowserCmd(a), newConfigCmd(a))
	return root
}

// init loads config, installs the logger and registers the built-in factories.
// Environment variables are read here and nowhere below.
func (a *app) init() error {
	path := config.PathFromEnv(a.configPath, a.getenv)
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if a.verbose {
		cfg.Log.Level = "debug"
	}
	if err := logging.Init(cfg.Log); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	logging.L().Debug("config loaded",
		slog.String("path", path),
		slog.Int("components", len(cfg.Components)))
	a.cfg = cfg
	a.registry = component.NewRegistry()
	component.RegisterBuiltins(a.registry, component.BuiltinOptions{
		ExternalHost: config.ExternalHostFromEnv(a.getenv),
		Logger:       logging.L(),
	})
	return nil
}

// manifestFor returns the configured manifest for provider, or an empty one so the
// factory applies its defaults.
func (a *app) manifestFor(provider, componentType string) *manifest.Manifest {
	if m := a.cfg.Component(provider); m != nil {
		return m
	}
	return &manifest.Manifest{Provider: provider, ComponentType: componentType}
}

func (a *app) build(ctx context.Context, m *manifest.Manifest) (any, error) {
	return a.registry.Build(ctx, m)
}
