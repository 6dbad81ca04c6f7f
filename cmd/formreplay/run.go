package main

import (
	"github.com/spf13/cobra"

	"github.com/entrhq/formreplay/pkg/browser"
	"github.com/entrhq/formreplay/pkg/config"
	"github.com/entrhq/formreplay/pkg/prompt"
	"github.com/entrhq/formreplay/pkg/replay"
	"github.com/entrhq/formreplay/pkg/report"
)

var (
	runFlagHeadless bool
	runFlagHoldOpen bool
	runFlagSubmit   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Replay every record of the workbook",
	Long: `Open the target page and replay every record of the workbook.

Missing elements and failed actions are logged and reported; the run only
stops early when it is interrupted or the browser cannot be opened.

Examples:
  formreplay run
  formreplay run --config uestc.yaml --hold-open
  formreplay run --headless --submit`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		applyRunFlags(cmd, cfg)

		log := newLogger(cmd, cfg)
		defer log.Close()
		log.Infof("formreplay v%s (session %s)", version, log.SessionID())

		in, err := loadTables(cfg, log)
		if err != nil {
			log.Errorf("%v", err)
			return err
		}

		opts, err := orchestratorOptions(cfg, log)
		if err != nil {
			return err
		}
		opts = append(opts, replay.WithPrompter(prompt.NewTerminal()))

		launcher := browser.NewLauncher(sessionOptions(cfg))
		defer func() {
			if err := launcher.Shutdown(); err != nil {
				log.Warnf("Failed to stop the browser driver: %v", err)
			}
		}()

		orch, err := replay.New(cfg, launcher, opts...)
		if err != nil {
			return err
		}
		if err := orch.Load(in.records, in.titles, in.dropdowns); err != nil {
			log.Errorf("%v", err)
			return err
		}

		ctx, cancel := signalContext(cmd.Context(), log)
		defer cancel()

		summary, runErr := orch.Run(ctx)
		if summary != nil && cfg.Report.Enabled {
			writer := report.NewWriter(cfg.Report.OutputDir)
			if err := writer.WriteAll(summary); err != nil {
				log.Warnf("Failed to write run report: %v", err)
			} else {
				log.Infof("Run report written to %s", writer.Dir(summary))
			}
		}

		if runErr != nil {
			log.Errorf("Replay stopped: %v", runErr)
			return runErr
		}
		if problems := len(summary.Problems()); problems > 0 {
			log.Warnf("%d actions need attention; see the run report", problems)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&runFlagHeadless, "headless", false, "Run the browser without a window")
	runCmd.Flags().BoolVar(&runFlagHoldOpen, "hold-open", false, "Keep the browser open until Enter is pressed")
	runCmd.Flags().BoolVar(&runFlagSubmit, "submit", false, "Click a submit button after every record")
}

// applyRunFlags overrides cfg with the run flags that were set explicitly.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("headless") {
		cfg.Browser.Headless = runFlagHeadless
	}
	if cmd.Flags().Changed("hold-open") {
		cfg.HoldOpen = runFlagHoldOpen
	}
	if cmd.Flags().Changed("submit") {
		cfg.Submit.Enabled = runFlagSubmit
	}
}

// sessionOptions derives browser settings from cfg.
func sessionOptions(cfg *config.Config) browser.SessionOptions {
	opts := browser.SessionOptions{
		Browser:     cfg.Browser.Type,
		Headless:    cfg.Browser.Headless,
		SlowMo:      cfg.Browser.SlowMo,
		Timeout:     cfg.Browser.Timeout,
		SkipInstall: cfg.Browser.SkipInstall,
	}
	if cfg.Browser.ViewportWidth > 0 && cfg.Browser.ViewportHeight > 0 {
		opts.Viewport = &browser.Viewport{Width: cfg.Browser.ViewportWidth, Height: cfg.Browser.ViewportHeight}
	}
	return opts
}
