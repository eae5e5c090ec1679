package component

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/muikit/muikit"
	"github.com/muikit/muikit/adapter/bedrock"
	"github.com/muikit/muikit/adapter/gemini"
	"github.com/muikit/muikit/browser"
	"github.com/muikit/muikit/internal/workerpool"
	"github.com/muikit/muikit/manifest"
)

// Built-in provider names.
const (
	ProviderBedrock = "bedrock"
	ProviderGemini  = "gemini"
	ProviderBrowser = "vnc_docker_browser"
)

// BuiltinOptions carries process-level inputs the built-in factories need.
type BuiltinOptions struct {
	// ExternalHost is used by browsers whose config leaves external_host empty.
	ExternalHost string
	// Pool is shared by every built component; nil means workerpool.Default.
	Pool   *workerpool.Pool
	Logger *slog.Logger
}

// RegisterBuiltins registers the bedrock, gemini and browser factories on r.
func RegisterBuiltins(r *Registry, opts BuiltinOptions) {
	r.Register(ProviderBedrock, manifest.TypeChatCompletionClient, func(ctx context.Context, m *manifest.Manifest) (any, error) {
		cfg := bedrock.DefaultConfig()
		if err := m.DecodeConfig(&cfg); err != nil {
			return nil, err
		}
		bopts := []bedrock.Option{bedrock.WithPool(opts.Pool)}
		if opts.Logger != nil {
			bopts = append(bopts, bedrock.WithLogger(opts.Logger.With(slog.String("component", ProviderBedrock))))
		}
		return bedrock.New(ctx, cfg, bopts...)
	})
	r.Register(ProviderGemini, manifest.TypeChatCompletionClient, func(ctx context.Context, m *manifest.Manifest) (any, error) {
		cfg := gemini.DefaultConfig()
		if err := m.DecodeConfig(&cfg); err != nil {
			return nil, err
		}
		gopts := []gemini.Option{gemini.WithPool(opts.Pool)}
		if opts.Logger != nil {
			gopts = append(gopts, gemini.WithLogger(opts.Logger.With(slog.String("component", ProviderGemini))))
		}
		return gemini.New(ctx, cfg, gopts...)
	})
	r.Register(ProviderBrowser, manifest.TypeOther, func(_ context.Context, m *manifest.Manifest) (any, error) {
		cfg := browser.DefaultConfig()
		if err := m.DecodeConfig(&cfg); err != nil {
			return nil, err
		}
		if cfg.ExternalHost == "" {
			cfg.ExternalHost = opts.ExternalHost
		}
		bopts := []browser.Option{browser.WithPool(opts.Pool)}
		if opts.Logger != nil {
			bopts = append(bopts, browser.WithLogger(opts.Logger.With(slog.String("component", ProviderBrowser))))
		}
		return browser.New(cfg, bopts...)
	})
}

// DumpBuiltin returns the manifest of a component built by a built-in factory.
// Secrets (the Gemini API key) are not included.
func DumpBuiltin(c any) (*manifest.Manifest, error) {
	switch x := c.(type) {
	case *bedrock.Client:
		return Dump(ProviderBedrock, manifest.TypeChatCompletionClient, x.Config())
	case *gemini.Client:
		return Dump(ProviderGemini, manifest.TypeChatCompletionClient, x.Config())
	case *browser.Launcher:
		return Dump(ProviderBrowser, manifest.TypeOther, x.Config())
	default:
		return nil, fmt.Errorf("%w: no built-in provider for %T", muikit.ErrUnknownProvider, c)
	}
}
