package main

import (
	"github.com/spf13/cobra"

	"github.com/muikit/muikit/component"
	"github.com/muikit/muikit/manifest"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the loaded configuration",
	}
	dump := &cobra.Command{
		Use:   "dump",
		Short: "Build every configured component and print its effective manifest",
		Long: "Build every configured component and print its effective manifest, defaults applied.\n" +
			"Secrets such as API keys are left out.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := make([]*manifest.Manifest, 0, len(a.cfg.Components))
			for _, m := range a.cfg.Components {
				c, err := a.build(cmd.Context(), m)
				if err != nil {
					return err
				}
				d, err := component.DumpBuiltin(c)
				if err != nil {
					return err
				}
				d.Label, d.Description = m.Label, m.Description
				out = append(out, d)
			}
			data, err := manifest.Encode(out...)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.AddCommand(dump)
	return cmd
}
