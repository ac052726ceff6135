package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reglet-dev/artefact-host/host"
)

func newRunCommand(state *app) *cobra.Command {
	var (
		name   string
		export string
	)

	cmd := &cobra.Command{
		Use:   "run <guest.wasm>",
		Short: "Run a WASM guest",
		Long: strings.TrimSpace(`Instantiate a WASM guest with WASI preview1 and the granted host functions.

A command module runs its _start export. A reactor gets _initialize called,
then the export named by --call, if any.`),
		Example: strings.Join([]string{
			"  artefact run guest.wasm",
			"  artefact run --db :memory: --capabilities db guest.wasm",
			"  artefact run --call main reactor.wasm",
		}, "\n"),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			wasmBytes, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read guest: %w", err)
			}
			if name == "" {
				name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}

			svc, err := host.Assemble(ctx, state.cfg, state.logger)
			if err != nil {
				return err
			}
			defer svc.Close()

			executor, err := host.NewExecutor(ctx,
				host.WithHostFunctions(svc.Registry),
				host.WithLogger(state.logger),
				host.WithModuleName(state.cfg.HostModule),
				host.WithMaxRequestSize(state.cfg.MaxRequestSize),
				host.WithOutput(cmd.OutOrStdout(), cmd.ErrOrStderr()),
			)
			if err != nil {
				return err
			}
			defer executor.Close(ctx)

			guest, err := executor.LoadGuest(ctx, name, wasmBytes)
			if err != nil {
				return err
			}
			defer guest.Close(ctx)

			if export != "" {
				results, err := guest.Call(ctx, export)
				if err != nil {
					return fmt.Errorf("call %s: %w", export, err)
				}
				if len(results) > 0 {
					fmt.Fprintln(cmd.OutOrStdout(), results[0])
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Guest name used for logs and capability grants (default: file name)")
	cmd.Flags().StringVar(&export, "call", "", "Export to call after instantiation")

	return cmd
}
