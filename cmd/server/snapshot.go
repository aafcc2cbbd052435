package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/gavinmorrow/hunter-extension-sub000/domain"
	"github.com/gavinmorrow/hunter-extension-sub000/internal/config"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Print the cached assignment collection",
	Long: `snapshot prints the collection the daemon last saved to its cache. With the bolt
backend the daemon must be stopped first, since the cache file is locked while it runs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		tasksOnly, _ := cmd.Flags().GetBool("tasks")
		return printSnapshot(cmd.Context(), cmd.OutOrStdout(), format, tasksOnly)
	},
}

func init() {
	snapshotCmd.Flags().StringP("format", "f", "json", "Output format: json or yaml")
	snapshotCmd.Flags().Bool("tasks", false, "Only print user tasks")
}

func printSnapshot(ctx context.Context, out io.Writer, format string, tasksOnly bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	store, _, err := openStore(cfg, zap.NewNop())
	if err != nil {
		return err
	}
	defer store.Close()

	entities, err := store.LoadSnapshot(ctx)
	if err != nil {
		return err
	}
	if tasksOnly {
		filtered := entities[:0]
		for _, a := range entities {
			if a.IsTask() {
				filtered = append(filtered, a)
			}
		}
		entities = filtered
	}
	if entities == nil {
		entities = []domain.Assignment{}
	}
	return encode(out, format, entities)
}

func encode(out io.Writer, format string, entities []domain.Assignment) error {
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(entities)
	case "yaml":
		// yaml.v3 ignores json tags, so go through the JSON shape first.
		raw, err := json.Marshal(entities)
		if err != nil {
			return err
		}
		var generic []map[string]any
		if err := json.Unmarshal(raw, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
