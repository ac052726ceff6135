package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reglet-dev/artefact-host/application/schema"
)

func newSchemaCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema [function]",
		Short: "Print JSON schemas of the host function envelopes",
		Long: strings.TrimSpace(`Print the request and response JSON schemas of one host function,
or of all of them keyed by function name.

Functions: ` + strings.Join(schema.Functions(), ", ")),
		Example: strings.Join([]string{
			"  artefact schema",
			"  artefact schema db_query",
		}, "\n"),
		Args: cobra.MaximumNArgs(1),
		// Needs no configuration.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			var out any
			if len(args) == 1 {
				env, err := schema.GenerateEnvelope(args[0])
				if err != nil {
					return err
				}
				out = env
			} else {
				all, err := schema.GenerateAll()
				if err != nil {
					return err
				}
				out = all
			}

			data, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	return cmd
}
