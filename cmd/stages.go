package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/conneroisu/mdpreview/internal/config"
	"github.com/conneroisu/mdpreview/internal/stages"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var stagesFormat string

var stagesCmd = &cobra.Command{
	Use:     "stages",
	Aliases: []string{"ls"},
	Short:   "List transform stages",
	Long: `List the post-processing stages in the order they run, whether each is
enabled, and the built-in stages that are not configured.

Examples:
  mdpreview stages              # Table output
  mdpreview stages -f json      # JSON output`,
	Args: cobra.NoArgs,
	RunE: runStages,
}

func init() {
	rootCmd.AddCommand(stagesCmd)
	addOutputFlag(stagesCmd, &stagesFormat)
}

// stageRow is one line of the stage listing.
type stageRow struct {
	Order       int                    `json:"order" yaml:"order"`
	ID          string                 `json:"id" yaml:"id"`
	Enabled     bool                   `json:"enabled" yaml:"enabled"`
	Configured  bool                   `json:"configured" yaml:"configured"`
	Known       bool                   `json:"known" yaml:"known"`
	Description string                 `json:"description,omitempty" yaml:"description,omitempty"`
	Config      map[string]interface{} `json:"config,omitempty" yaml:"config,omitempty"`
}

func runStages(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}

	rows := stageRows(cfg, stages.NewBuiltinRegistry())

	out := cmd.OutOrStdout()
	switch stagesFormat {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(rows); err != nil {
			return err
		}
		return enc.Close()
	default:
		return outputStagesTable(out, rows)
	}
}

// stageRows lists configured stages in run order followed by registered
// stages the configuration does not mention.
func stageRows(cfg *config.Config, registry *stages.Registry) []stageRow {
	rows := make([]stageRow, 0, len(cfg.Stages))
	seen := make(map[string]bool, len(cfg.Stages))

	for i, sc := range cfg.Stages {
		row := stageRow{
			Order:      i + 1,
			ID:         sc.ID,
			Enabled:    sc.Enabled,
			Configured: true,
			Config:     sc.Config,
		}
		if st, ok := registry.Get(sc.ID); ok {
			row.Known = true
			row.Description = st.Description()
		}
		rows = append(rows, row)
		seen[sc.ID] = true
	}

	for _, id := range registry.IDs() {
		if seen[id] {
			continue
		}
		st, _ := registry.Get(id)
		rows = append(rows, stageRow{
			ID:          id,
			Known:       true,
			Description: st.Description(),
		})
	}
	return rows
}

func outputStagesTable(out io.Writer, rows []stageRow) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "ORDER\tSTAGE\tSTATUS\tDESCRIPTION")
	fmt.Fprintln(w, "-----\t-----\t------\t-----------")

	for _, row := range rows {
		order := "-"
		if row.Configured {
			order = fmt.Sprintf("%d", row.Order)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", order, row.ID, stageStatus(row), row.Description)
	}

	return w.Flush()
}

func stageStatus(row stageRow) string {
	var status []string
	switch {
	case !row.Configured:
		status = append(status, "available")
	case row.Enabled:
		status = append(status, "enabled")
	default:
		status = append(status, "disabled")
	}
	if !row.Known {
		status = append(status, "unknown")
	}
	return strings.Join(status, ",")
}
