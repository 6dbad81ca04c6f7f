package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/entrhq/formreplay/pkg/browser"
	"github.com/entrhq/formreplay/pkg/execute"
	"github.com/entrhq/formreplay/pkg/logging"
	"github.com/entrhq/formreplay/pkg/sheet"
)

var (
	inspectFlagOut   string
	inspectFlagSheet string
)

var inspectCmd = &cobra.Command{
	Use:   "inspect URL",
	Short: "List the form fields of a page and its frames",
	Long: `Open URL, list every input, select, button and onclick entry of the
main document and its frames, and optionally write a title map scaffold.

Pages behind the login form cannot be inspected this way.

Examples:
  formreplay inspect https://cwcx.uestc.edu.cn/WFManager/home.jsp
  formreplay inspect URL --out 标题-ID.xlsx`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		log := newLogger(cmd, cfg)
		defer log.Close()

		launcher := browser.NewLauncher(sessionOptions(cfg))
		defer func() {
			if err := launcher.Shutdown(); err != nil {
				log.Warnf("Failed to stop the browser driver: %v", err)
			}
		}()

		ctx, cancel := signalContext(cmd.Context(), log)
		defer cancel()

		page, err := launcher.Open(ctx)
		if err != nil {
			return fmt.Errorf("failed to open page: %w", err)
		}
		defer page.Close()

		if err := page.Navigate(ctx, args[0]); err != nil {
			return fmt.Errorf("failed to navigate to %s: %w", args[0], err)
		}
		if err := execute.Sleep(ctx, cfg.Timing.PageLoad); err != nil {
			return err
		}

		fields := inspectPage(ctx, page, log)
		printFields(cmd.OutOrStdout(), fields)

		if inspectFlagOut != "" {
			if err := writeScaffold(inspectFlagOut, inspectFlagSheet, fields); err != nil {
				return err
			}
			log.Infof("Wrote %d titles to %s", len(scaffoldRows(fields)), inspectFlagOut)
		}
		return nil
	},
}

func init() {
	inspectCmd.Flags().StringVarP(&inspectFlagOut, "out", "o", "", "Write a title/identifier scaffold to this .xlsx file")
	inspectCmd.Flags().StringVar(&inspectFlagSheet, "sheet", "", "Sheet name for the scaffold workbook")
}

// inspectPage extracts fields from every scope of page. Scopes whose content
// cannot be read are skipped.
func inspectPage(ctx context.Context, page browser.Page, log *logging.Logger) []browser.Field {
	var fields []browser.Field
	for _, scope := range browser.Scopes(ctx, page) {
		content, err := scope.Content(ctx)
		if err != nil {
			log.Warnf("Failed to read %s: %v", scope.Name(), err)
			continue
		}
		found, err := browser.ExtractFields(content)
		if err != nil {
			log.Warnf("Failed to parse %s: %v", scope.Name(), err)
			continue
		}
		for i := range found {
			found[i].Scope = scope.Name()
		}
		log.Debugf("%d fields in %s", len(found), scope.Name())
		fields = append(fields, found...)
	}
	return fields
}

func printFields(w io.Writer, fields []browser.Field) {
	if len(fields) == 0 {
		fmt.Fprintln(w, "No fields found")
		return
	}
	scope := ""
	for _, f := range fields {
		if f.Scope != scope {
			scope = f.Scope
			fmt.Fprintln(w, recordStyle.Render(scope))
		}
		line := fmt.Sprintf("  %-8s %-24s %s", f.Tag, f.Key(), f.Label)
		if f.OnClick != "" {
			line += "  onclick=" + f.OnClick
		}
		fmt.Fprintln(w, line)
		if len(f.Options) > 0 {
			labels := make([]string, 0, len(f.Options))
			for _, o := range f.Options {
				labels = append(labels, o.Label+"="+o.Value)
			}
			fmt.Fprintln(w, boundaryStyle.Render("           "+strings.Join(labels, ", ")))
		}
	}
}

// scaffoldRows returns one (title, identifier) row per labelled field with an
// identifier, keeping the first field of each title.
func scaffoldRows(fields []browser.Field) [][]string {
	seen := map[string]bool{}
	var rows [][]string
	for _, f := range fields {
		title := strings.TrimSpace(f.Label)
		key := f.Key()
		if title == "" || key == "" || seen[title] {
			continue
		}
		seen[title] = true
		rows = append(rows, []string{title, key})
	}
	return rows
}

func writeScaffold(path, sheetName string, fields []browser.Field) error {
	if err := sheet.Write(path, sheetName, []string{"标题", "ID"}, scaffoldRows(fields)); err != nil {
		return fmt.Errorf("failed to write scaffold: %w", err)
	}
	return nil
}
