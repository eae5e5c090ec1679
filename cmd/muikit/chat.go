package main

import (
	"context"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/spf13/cobra"

	"github.com/muikit/muikit"
	"github.com/muikit/muikit/adapter"
	"github.com/muikit/muikit/component"
	"github.com/muikit/muikit/manifest"
)

// chunkStreamer is implemented by clients with native incremental output.
type chunkStreamer interface {
	StreamChatCompletion(ctx context.Context, messages []muikit.Message, extra map[string]any) iter.Seq2[muikit.StreamChunk, error]
}

type chatOptions struct {
	provider    string
	system      string
	stream      bool
	jsonOutput  bool
	temperature float64
	maxTokens   int
}

func newChatCmd(a *app) *cobra.Command {
	var opts chatOptions
	cmd := &cobra.Command{
		Use:   "chat [flags] PROMPT...",
		Short: "Send a single-turn prompt and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			built, err := a.build(ctx, a.manifestFor(opts.provider, manifest.TypeChatCompletionClient))
			if err != nil {
				return err
			}
			client, ok := built.(muikit.ChatCompletionClient)
			if !ok {
				return fmt.Errorf("%w: %s is not a chat completion client", muikit.ErrConfig, opts.provider)
			}
			defer client.Close()

			var messages []muikit.Message
			if opts.system != "" {
				messages = append(messages, muikit.NewTextMessage(muikit.RoleSystem, opts.system))
			}
			messages = append(messages, muikit.NewTextMessage(muikit.RoleUser, strings.Join(args, " ")))
			return runChat(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), client, messages, opts, cmd.Flags().Changed)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.provider, "provider", "p", component.ProviderGemini, "chat provider: bedrock or gemini")
	f.StringVar(&opts.system, "system", "", "system message sent before the prompt")
	f.BoolVar(&opts.stream, "stream", false, "print the reply as it arrives")
	f.BoolVar(&opts.jsonOutput, "json", false, "ask for JSON-only output")
	f.Float64Var(&opts.temperature, "temperature", 0, "override the configured temperature")
	f.IntVar(&opts.maxTokens, "max-tokens", 0, "override the configured output token limit")
	return cmd
}

func extraArgs(opts chatOptions, changed func(string) bool) map[string]any {
	extra := map[string]any{}
	if changed("temperature") {
		extra[adapter.KeyTemperature] = opts.temperature
	}
	if changed("max-tokens") {
		extra[adapter.KeyMaxTokens] = opts.maxTokens
	}
	return extra
}

func runChat(ctx context.Context, out, errOut io.Writer, client muikit.ChatCompletionClient,
	messages []muikit.Message, opts chatOptions, changed func(string) bool,
) error {
	extra := extraArgs(opts, changed)
	if s, ok := client.(chunkStreamer); ok && opts.stream && !opts.jsonOutput {
		for chunk, err := range s.StreamChatCompletion(ctx, messages, extra) {
			if err != nil {
				return err
			}
			fmt.Fprint(out, chunk.Delta)
		}
		fmt.Fprintln(out)
		return nil
	}

	createOpts := []muikit.CreateOption{muikit.WithExtraArgs(extra), muikit.WithJSONOutput(opts.jsonOutput)}
	if opts.stream {
		for ev, err := range client.CreateStream(ctx, messages, createOpts...) {
			if err != nil {
				return err
			}
			if ev.Result != nil {
				printUsage(errOut, ev.Result)
				continue
			}
			fmt.Fprintln(out, ev.Content)
		}
		return nil
	}
	res, err := client.Create(ctx, messages, createOpts...)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, res.Content)
	printUsage(errOut, res)
	return nil
}

func printUsage(w io.Writer, res *muikit.CreateResult) {
	fmt.Fprintf(w, "finish=%s prompt_tokens=%d completion_tokens=%d\n",
		res.FinishReason, res.Usage.PromptTokens, res.Usage.CompletionTokens)
}
