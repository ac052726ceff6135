package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/reglet-dev/artefact-host/config"
	"github.com/reglet-dev/artefact-host/log"
)

// globalFlags are shared by every subcommand. Empty values leave the
// environment setting in place.
type globalFlags struct {
	envFile      string
	dbPath       string
	modelDir     string
	logLevel     string
	logFormat    string
	capabilities []string
}

// app is what PersistentPreRunE prepares for a subcommand.
type app struct {
	cfg    config.Config
	logger *slog.Logger
}

func buildRootCommand() *cobra.Command {
	flags := &globalFlags{}
	state := &app{}

	root := &cobra.Command{
		Use:   "artefact",
		Short: "Run sandboxed guests against a SQLite store and local models",
		Long: strings.TrimSpace(`artefact hosts isolated guests and gives them three capabilities:
a relational store (db), model inference (onnx) and conversation (chat).

WASM guests call host functions over linear memory; Lua guests call globals
that take and return JSON text. Settings come from ARTEFACT_* environment
variables, an optional .env file, and the flags below.`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return state.load(cmd, flags)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	pf := root.PersistentFlags()
	pf.StringVar(&flags.envFile, "env-file", ".env", "Environment file to load before reading ARTEFACT_* variables")
	pf.StringVar(&flags.dbPath, "db", "", "Database file, or :memory: (ARTEFACT_DB_PATH)")
	pf.StringVar(&flags.modelDir, "models", "", "Model directory (ARTEFACT_MODEL_DIR)")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error (ARTEFACT_LOG_LEVEL)")
	pf.StringVar(&flags.logFormat, "log-format", "", "Log format: text or json (ARTEFACT_LOG_FORMAT)")
	pf.StringSliceVar(&flags.capabilities, "capabilities", nil, "Granted capabilities: db, onnx, chat, all (ARTEFACT_CAPABILITIES)")

	root.AddCommand(newRunCommand(state))
	root.AddCommand(newEvalCommand(state))
	root.AddCommand(newSchemaCommand())
	root.AddCommand(newTierCommand(state))

	return root
}

func (a *app) load(cmd *cobra.Command, flags *globalFlags) error {
	if flags.envFile != "" {
		if err := godotenv.Load(flags.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", flags.envFile, err)
		}
	}

	cfg, err := config.Load(
		config.WithDBPath(flags.dbPath),
		config.WithModelDir(flags.modelDir),
		config.WithLogLevel(flags.logLevel),
		config.WithLogFormat(flags.logFormat),
		config.WithCapabilities(flags.capabilities...),
	)
	if err != nil {
		return err
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger, err := log.New(cmd.ErrOrStderr(), log.WithLevel(level), log.WithFormat(cfg.LogFormat))
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	a.cfg = cfg
	a.logger = logger
	return nil
}
