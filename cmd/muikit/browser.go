package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/muikit/muikit/browser"
	"github.com/muikit/muikit/component"
	"github.com/muikit/muikit/manifest"
)

type browserOptions struct {
	bindDir         string
	regeneratePorts bool
	start           bool
}

func newBrowserCmd(a *app) *cobra.Command {
	var opts browserOptions
	cmd := &cobra.Command{
		Use:   "browser",
		Short: "Manage the VNC Playwright browser container",
	}
	cmd.PersistentFlags().StringVar(&opts.bindDir, "bind-dir", "", "host directory mounted at "+browser.WorkspacePath)
	cmd.PersistentFlags().BoolVar(&opts.regeneratePorts, "regenerate-ports", false, "pick free ports instead of the configured ones")

	load := func(cmd *cobra.Command) (*browser.Launcher, error) {
		m := a.manifestFor(component.ProviderBrowser, manifest.TypeOther)
		if opts.bindDir != "" {
			cfg := browser.DefaultConfig()
			if err := m.DecodeConfig(&cfg); err != nil {
				return nil, err
			}
			cfg.BindDir = opts.bindDir
			var err error
			if m, err = component.Dump(component.ProviderBrowser, manifest.TypeOther, cfg); err != nil {
				return nil, err
			}
		}
		l, err := component.BuildAs[*browser.Launcher](cmd.Context(), a.registry, m)
		if err != nil {
			return nil, err
		}
		if opts.regeneratePorts {
			if err := l.RegeneratePorts(); err != nil {
				return nil, err
			}
		}
		return l, nil
	}

	address := &cobra.Command{
		Use:   "address",
		Short: "Print the websocket and noVNC addresses without touching Docker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			l, err := load(cmd)
			if err != nil {
				return err
			}
			printAddresses(cmd.OutOrStdout(), l)
			return nil
		},
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create the browser container (and optionally start it)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			l, err := load(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if opts.start {
				if err := l.Start(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "started", l.Name())
			} else {
				c, err := l.CreateContainerAsync(ctx).Await(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "created", c.Name, c.ID)
			}
			printAddresses(cmd.OutOrStdout(), l)
			return nil
		},
	}
	create.Flags().BoolVar(&opts.start, "start", false, "start the container and wait for the websocket endpoint")

	cmd.AddCommand(address, create)
	return cmd
}

func printAddresses(w io.Writer, l *browser.Launcher) {
	fmt.Fprintln(w, "browser:", l.BrowserAddress())
	fmt.Fprintln(w, "vnc:    ", l.VNCAddress())
}
