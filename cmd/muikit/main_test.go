package main

import (
	"bytes"
	"context"
	"io"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/muikit/muikit"
	"github.com/muikit/muikit/adapter/gemini"
	"github.com/muikit/muikit/internal/logging"
	"github.com/muikit/muikit/manifest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeConfig(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "muikit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	return path
}

func execute(t *testing.T, env map[string]string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(func(k string) string { return env[k] })
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

const outsideDockerConfig = `
log:
  level: error
components:
  - provider: vnc_docker_browser
    component_type: other
    config:
      bind_dir: ./ws
      inside_docker: false
      playwright_websocket_path: tok
`

func TestBrowserAddress_UsesExternalHostFromEnv(t *testing.T) {
	path := writeConfig(t, outsideDockerConfig)
	out, err := execute(t, map[string]string{"PUBLIC_IP": "203.0.113.7"}, "--config", path, "browser", "address")
	require.NoError(t, err)
	assert.Contains(t, out, "ws://203.0.113.7:37367/tok")
	assert.Contains(t, out, "http://203.0.113.7:6080/vnc.html")
}

func TestBrowserAddress_ConfigPathFromEnv(t *testing.T) {
	path := writeConfig(t, outsideDockerConfig)
	out, err := execute(t, map[string]string{"MUIKIT_CONFIG": path}, "browser", "address")
	require.NoError(t, err)
	assert.Contains(t, out, "ws://127.0.0.1:37367/tok")
}

func TestBrowserAddress_BindDirFlagWithoutConfig(t *testing.T) {
	out, err := execute(t, nil, "browser", "address", "--bind-dir", t.TempDir())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Regexp(t, `^browser: ws://magentic-ui-vnc-browser_[0-9a-f]{32}_6080:37367/[0-9a-f]{32}$`, lines[0])
}

func TestBrowserAddress_MissingBindDir(t *testing.T) {
	_, err := execute(t, nil, "browser", "address")
	require.ErrorIs(t, err, muikit.ErrConfig)
}

func TestConfigDump(t *testing.T) {
	path := writeConfig(t, outsideDockerConfig)
	out, err := execute(t, nil, "--config", path, "config", "dump")
	require.NoError(t, err)

	m, err := manifest.ParseBytes([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, "vnc_docker_browser", m.Provider)
	assert.Contains(t, out, "network_name: my-network")
	assert.Contains(t, out, "novnc_port: 6080")
}

func TestConfig_InvalidFile(t *testing.T) {
	path := writeConfig(t, "components:\n  - component_type: other\n")
	_, err := execute(t, nil, "--config", path, "browser", "address")
	require.ErrorIs(t, err, muikit.ErrInvalidManifest)
}

func TestLogFileClosedAfterCommand(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "muikit.log")
	doc := strings.Replace(outsideDockerConfig, "  level: error\n", "  level: debug\n  outputs: ["+logPath+"]\n", 1)
	path := writeConfig(t, doc)

	_, err := execute(t, nil, "--config", path, "browser", "address")
	require.NoError(t, err)
	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "config loaded")

	// The installed logger still points at the closed file; nothing more reaches it.
	logging.L().Info("written after sync")
	data, err = os.ReadFile(logPath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "written after sync")
}

type scriptedGenerator struct {
	chunks []string
}

type textGeneration string

func (g textGeneration) Text() string       { return string(g) }
func (textGeneration) FinishReason() string { return "STOP" }

func (s scriptedGenerator) Generate(context.Context, string, gemini.GenerationConfig) (gemini.Generation, error) {
	return textGeneration(strings.Join(s.chunks, "")), nil
}

func (s scriptedGenerator) GenerateStream(context.Context, string, gemini.GenerationConfig) iter.Seq2[gemini.Generation, error] {
	return func(yield func(gemini.Generation, error) bool) {
		for _, c := range s.chunks {
			if !yield(textGeneration(c), nil) {
				return
			}
		}
	}
}

func TestRunChat(t *testing.T) {
	t.Parallel()
	client, err := gemini.New(context.Background(), gemini.DefaultConfig(),
		gemini.WithGenerator(scriptedGenerator{chunks: []string{"Hel", "lo"}}),
		gemini.WithTokenCounter(muikit.WordCounter{}),
		gemini.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	msgs := []muikit.Message{muikit.NewTextMessage(muikit.RoleUser, "hi")}
	never := func(string) bool { return false }

	tests := []struct {
		name    string
		opts    chatOptions
		wantOut string
	}{
		{"create", chatOptions{}, "Hello\n"},
		{"native stream", chatOptions{stream: true}, "Hello\n"},
		{"json falls back to create stream", chatOptions{stream: true, jsonOutput: true}, "Hello\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var out, errOut bytes.Buffer
			require.NoError(t, runChat(context.Background(), &out, &errOut, client, msgs, tt.opts, never))
			assert.Equal(t, tt.wantOut, out.String())
		})
	}
}

func TestExtraArgs(t *testing.T) {
	t.Parallel()
	opts := chatOptions{temperature: 0.7, maxTokens: 99}
	assert.Empty(t, extraArgs(opts, func(string) bool { return false }))
	assert.Equal(t, map[string]any{"temperature": 0.7, "max_tokens": 99}, extraArgs(opts, func(string) bool { return true }))
}
