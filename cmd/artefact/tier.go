package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/reglet-dev/artefact-host/domain/entities"
	"github.com/reglet-dev/artefact-host/infrastructure/sysmem"
)

func newTierCommand(state *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tier",
		Short: "Show the memory tier and the models it selects",
		Long: strings.TrimSpace(`Detect total memory (or use ARTEFACT_MEMORY_BYTES), pick the model tier
and list the chat, structured and embedding descriptors it selects, with
whether each one is present in the model directory.`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			total, err := sysmem.Probe{Override: state.cfg.MemoryBytes}.TotalMemory()
			if err != nil {
				return err
			}
			out, err := renderTier(state.cfg.ModelDir, total)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
	return cmd
}

func renderTier(modelDir string, total uint64) (string, error) {
	tier := entities.TierForMemory(total)
	models := tier.Models()

	data := pterm.TableData{{"Role", "Model", "Present"}}
	for _, row := range [][2]string{
		{"chat", models.Chat},
		{"structured", models.Structured},
		{"embedding", models.Embedding},
	} {
		present, err := modelPresent(filepath.Join(modelDir, row[1]))
		if err != nil {
			return "", err
		}
		data = append(data, []string{row[0], row[1], present})
	}

	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return "", fmt.Errorf("render table: %w", err)
	}

	box := pterm.DefaultBox.
		WithTitle(pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint("Model Tier")).
		Sprint(fmt.Sprintf("tier %s\nmemory %.1f GiB\nmodels %s", tier, float64(total)/(1<<30), modelDir))

	return box + "\n" + table + "\n", nil
}

func modelPresent(path string) (string, error) {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return "yes", nil
	case errors.Is(err, fs.ErrNotExist):
		return "no", nil
	default:
		return "", err
	}
}
