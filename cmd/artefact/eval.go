package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reglet-dev/artefact-host/host"
	"github.com/reglet-dev/artefact-host/infrastructure/lua"
)

func newEvalCommand(state *app) *cobra.Command {
	var (
		code  string
		guest string
	)

	cmd := &cobra.Command{
		Use:   "eval [script.lua]",
		Short: "Evaluate a Lua guest",
		Long: strings.TrimSpace(`Evaluate a Lua script in a sandbox with the granted host globals:
__host_sqlite_call, __host_db_batch_call, __host_onnx_call, __host_predict_call,
__host_categorise_call and the chat table. Printed output is shown first,
then the script's return value.`),
		Example: strings.Join([]string{
			"  artefact eval setup.lua",
			`  artefact eval -e 'return chat.sendMessage("hello")'`,
		}, "\n"),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (code == "") == (len(args) == 0) {
				return errors.New("give either a script file or -e code")
			}
			ctx := cmd.Context()

			svc, err := host.Assemble(ctx, state.cfg, state.logger)
			if err != nil {
				return err
			}
			defer svc.Close()

			sh := host.NewScriptHost(svc.Registry, lua.WithLogger(state.logger), lua.WithGuestName(guest))
			defer sh.Close()

			var result string
			if code != "" {
				result, err = sh.Eval(ctx, code)
			} else {
				result, err = sh.EvalFile(ctx, args[0])
			}
			fmt.Fprint(cmd.OutOrStdout(), sh.Output())
			if err != nil {
				return err
			}
			if result != "" {
				fmt.Fprintln(cmd.OutOrStdout(), result)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&code, "eval", "e", "", "Inline Lua code")
	cmd.Flags().StringVar(&guest, "name", lua.DefaultGuestName, "Guest name used for logs and capability grants")

	return cmd
}
