package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConfigCmd(a *app) *cobra.Command {
	var (
		format string
		write  string
	)

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Prints the configuration after defaults, --config and TICKETFRONT_*
variables are applied. With --write the result is saved instead, as YAML or
JSON by file extension, ready to be passed back with --config.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if write != "" {
				if err := a.cfg.SaveToFile(write); err != nil {
					return err
				}
				a.logger.Info("configuration written", "path", write)
				return nil
			}

			data, err := a.cfg.Marshal(format)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}

	cmd.Flags().StringVar(&format, "format", "yaml", "Output format: yaml, json")
	cmd.Flags().StringVar(&write, "write", "", "Save to this .yaml, .yml or .json file instead of printing")
	return cmd
}
