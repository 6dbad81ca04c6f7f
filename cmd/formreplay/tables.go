package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/entrhq/formreplay/pkg/config"
	"github.com/entrhq/formreplay/pkg/logging"
	"github.com/entrhq/formreplay/pkg/mapping"
	"github.com/entrhq/formreplay/pkg/replay"
	"github.com/entrhq/formreplay/pkg/sheet"
	"github.com/entrhq/formreplay/pkg/subject"
)

// tables holds the inputs of a replay.
type tables struct {
	records   *sheet.Table
	titles    *mapping.TitleMap
	dropdowns *mapping.DropdownTable
}

// loadTables reads the input workbook, the title map and the dropdown
// sources named by cfg.
func loadTables(cfg *config.Config, log *logging.Logger) (*tables, error) {
	records, err := sheet.Read(cfg.Workbook, cfg.Sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read workbook: %w", err)
	}

	titles, duplicates, err := mapping.LoadTitleMap(cfg.TitleMap, cfg.TitleMapSheet)
	if err != nil {
		return nil, err
	}
	for _, title := range duplicates {
		log.Warnf("Title %q appears more than once in %s; the last entry wins", title, cfg.TitleMap)
	}

	dropdowns := mapping.NewDropdownTable(cfg.Dropdowns)
	if cfg.DropdownMap != "" {
		fromFile, err := mapping.LoadDropdowns(cfg.DropdownMap)
		if err != nil {
			return nil, err
		}
		dropdowns.Extend(fromFile)
	}

	log.Infof("Loaded %d rows, %d mapped titles and %d dropdown fields", len(records.Rows), titles.Len(), dropdowns.Fields())
	return &tables{records: records, titles: titles, dropdowns: dropdowns}, nil
}

// newLogger creates the run logger: a session log file plus console output.
func newLogger(cmd *cobra.Command, cfg *config.Config) *logging.Logger {
	log, err := logging.NewLogger("formreplay",
		logging.WithDirectory(cfg.Logging.Dir),
		logging.WithLevel(logging.ParseVerbosity(cfg.Logging.Verbosity)),
		logging.WithConsole(cmd.ErrOrStderr()),
	)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: logging to stderr only: %v\n", err)
	}
	return log
}

// orchestratorOptions wires the optional subject matcher and the logger.
func orchestratorOptions(cfg *config.Config, log *logging.Logger) ([]replay.Option, error) {
	opts := []replay.Option{replay.WithLogger(log)}
	if cfg.Subject.Enabled {
		matcher, err := subject.New(cfg.Subject, log.With("subject"))
		if err != nil {
			return nil, fmt.Errorf("failed to create subject matcher: %w", err)
		}
		opts = append(opts, replay.WithMatcher(matcher))
		log.Infof("Subject matcher enabled with %s", cfg.Subject.Model)
	}
	return opts, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context, log *logging.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			log.Warnf("Interrupted, shutting down gracefully...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
