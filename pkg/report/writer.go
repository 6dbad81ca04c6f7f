package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Writer handles writing run reports
type Writer struct {
	outputDir string
}

// NewWriter creates a writer that puts reports under outputDir/<run id>.
func NewWriter(outputDir string) *Writer {
	return &Writer{
		outputDir: outputDir,
	}
}

// Dir returns the directory the reports of summary are written to.
func (w *Writer) Dir(summary *Summary) string {
	return filepath.Join(w.outputDir, summary.RunID)
}

// WriteAll writes the JSON report and the Markdown summary
func (w *Writer) WriteAll(summary *Summary) error {
	dir := w.Dir(summary)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := w.WriteJSON(summary); err != nil {
		return fmt.Errorf("failed to write run JSON: %w", err)
	}

	if err := w.WriteMarkdown(summary); err != nil {
		return fmt.Errorf("failed to write summary markdown: %w", err)
	}

	return nil
}

// WriteJSON writes the full run summary as JSON
func (w *Writer) WriteJSON(summary *Summary) error {
	path := filepath.Join(w.Dir(summary), "run.json")

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run summary: %w", err)
	}

	if writeErr := os.WriteFile(path, data, 0600); writeErr != nil {
		return fmt.Errorf("failed to write run JSON: %w", writeErr)
	}

	return nil
}

// WriteMarkdown writes a human-readable summary
func (w *Writer) WriteMarkdown(summary *Summary) error {
	path := filepath.Join(w.Dir(summary), "summary.md")

	if writeErr := os.WriteFile(path, []byte(Markdown(summary)), 0600); writeErr != nil {
		return fmt.Errorf("failed to write summary markdown: %w", writeErr)
	}

	return nil
}

// Markdown renders summary as a Markdown document.
func Markdown(summary *Summary) string {
	var md strings.Builder

	md.WriteString("# Form Replay Summary\n\n")
	md.WriteString(fmt.Sprintf("**Workbook:** %s\n\n", summary.Workbook))
	if summary.TargetURL != "" {
		md.WriteString(fmt.Sprintf("**Target:** %s\n\n", summary.TargetURL))
	}
	md.WriteString(fmt.Sprintf("**Status:** %s\n\n", summary.Status))
	md.WriteString(fmt.Sprintf("**Started:** %s\n\n", summary.StartTime.Format(time.RFC3339)))
	md.WriteString(fmt.Sprintf("**Completed:** %s\n\n", summary.EndTime.Format(time.RFC3339)))
	md.WriteString(fmt.Sprintf("**Duration:** %s\n\n", summary.Duration))

	md.WriteString("## Result\n\n")
	if summary.Error != "" {
		md.WriteString(fmt.Sprintf("❌ **Error:** %s\n\n", summary.Error))
	} else {
		md.WriteString("✅ **All records processed**\n\n")
	}

	md.WriteString("## Metrics\n\n")
	md.WriteString(fmt.Sprintf("- **Records:** %d\n", summary.Metrics.Records))
	md.WriteString(fmt.Sprintf("- **Actions:** %d\n", summary.Metrics.Actions))
	md.WriteString(fmt.Sprintf("- **Succeeded:** %d\n", summary.Metrics.Succeeded))
	md.WriteString(fmt.Sprintf("- **Not Found:** %d\n", summary.Metrics.NotFound))
	md.WriteString(fmt.Sprintf("- **Failed:** %d\n", summary.Metrics.Failed))
	md.WriteString(fmt.Sprintf("- **Skipped:** %d\n", summary.Metrics.Skipped))
	md.WriteString(fmt.Sprintf("- **Retried:** %d\n", summary.Metrics.Retried))

	if problems := summary.Problems(); len(problems) > 0 {
		md.WriteString("\n## Problems\n\n")
		md.WriteString("| Record | Title | Action | Status | Detail |\n")
		md.WriteString("|---|---|---|---|---|\n")
		for _, a := range problems {
			md.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
				cell(a.Record), cell(a.Title), cell(a.Kind), a.Status, cell(a.Error)))
		}
	}

	return md.String()
}

func cell(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "|", `\|`), "\n", " ")
}
