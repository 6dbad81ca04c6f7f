package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/entrhq/formreplay/pkg/replay"
)

var checkFlagStrict bool

// errUnmapped is returned by check --strict when titles have no identifier.
var errUnmapped = errors.New("unmapped titles")

var (
	recordStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB3BA")).Bold(true)
	boundaryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")).Italic(true)
	skippedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD6A5"))
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#A8E6CF"))
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Show the planned actions without opening a browser",
	Long: `Load the configuration and tables and print the actions every record
would perform, followed by the titles that have no identifier.

Examples:
  formreplay check
  formreplay check --strict    # exit 1 when a title is unmapped`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		log := newLogger(cmd, cfg)
		defer log.Close()

		in, err := loadTables(cfg, log)
		if err != nil {
			return err
		}

		opts, err := orchestratorOptions(cfg, log)
		if err != nil {
			return err
		}
		orch, err := replay.New(cfg, nil, opts...)
		if err != nil {
			return err
		}
		if err := orch.Load(in.records, in.titles, in.dropdowns); err != nil {
			return err
		}

		ctx, cancel := signalContext(cmd.Context(), log)
		defer cancel()

		plan, err := orch.Plan(ctx)
		if err != nil {
			return err
		}

		unmapped := replay.Unmapped(plan)
		printPlan(cmd.OutOrStdout(), plan, unmapped, len(orch.Records()))
		if checkFlagStrict && len(unmapped) > 0 {
			return fmt.Errorf("%w: %d", errUnmapped, len(unmapped))
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().BoolVar(&checkFlagStrict, "strict", false, "Fail when any title has no identifier")
}

// printPlan writes plan grouped by record, then the unmapped titles.
func printPlan(w io.Writer, plan []replay.PlannedAction, unmapped []string, records int) {
	current := ""
	actions := 0
	for _, p := range plan {
		if p.Record != current {
			current = p.Record
			fmt.Fprintln(w, recordStyle.Render("Record "+p.Record))
		}
		if p.Boundary {
			fmt.Fprintln(w, boundaryStyle.Render(fmt.Sprintf("  -- sub-sequence ends on row %d", p.Row)))
			continue
		}

		target := p.Target
		if target == "" {
			target = "-"
		}
		line := fmt.Sprintf("  row %-4d %-12s %s -> %s %q", p.Row, p.Kind, p.Title, target, p.Payload)
		if p.Runs() {
			actions++
			fmt.Fprintln(w, line)
		} else {
			fmt.Fprintln(w, skippedStyle.Render(line+"  (skipped)"))
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s, %s\n", plural(records, "record"), plural(actions, "action"))
	if len(unmapped) == 0 {
		fmt.Fprintln(w, okStyle.Render("Every title is mapped"))
		return
	}
	fmt.Fprintln(w, skippedStyle.Render(fmt.Sprintf("%s without an identifier:", plural(len(unmapped), "title"))))
	for _, title := range unmapped {
		fmt.Fprintf(w, "  - %s\n", title)
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
