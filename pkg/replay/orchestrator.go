// Package replay drives a whole session: it loads the records of a sheet,
// opens the page and replays every record through the resolver, classifier,
// locator and executor.
package replay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/entrhq/formreplay/pkg/action"
	"github.com/entrhq/formreplay/pkg/browser"
	"github.com/entrhq/formreplay/pkg/config"
	"github.com/entrhq/formreplay/pkg/execute"
	"github.com/entrhq/formreplay/pkg/locate"
	"github.com/entrhq/formreplay/pkg/logging"
	"github.com/entrhq/formreplay/pkg/mapping"
	"github.com/entrhq/formreplay/pkg/report"
	"github.com/entrhq/formreplay/pkg/sequence"
	"github.com/entrhq/formreplay/pkg/sheet"
)

// ErrConfig marks configuration and input errors found before any page
// interaction.
var ErrConfig = errors.New("configuration error")

// State is the lifecycle position of an Orchestrator.
type State int

const (
	StateIdle State = iota
	StateDataLoaded
	StateSessionOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDataLoaded:
		return "data-loaded"
	case StateSessionOpen:
		return "session-open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Prompter asks the operator for input during a run.
type Prompter interface {
	// Prompt asks a question and returns the answer. secret hides the input.
	Prompt(ctx context.Context, question string, secret bool) (string, error)
	// Confirm waits until the operator acknowledges message.
	Confirm(ctx context.Context, message string) error
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPrompter sets the prompter used for captcha, missing passwords and
// hold-open confirmation.
func WithPrompter(p Prompter) Option {
	return func(o *Orchestrator) { o.prompter = p }
}

// WithMatcher sets the fallback matcher for titles missing from the map.
func WithMatcher(m mapping.Matcher) Option {
	return func(o *Orchestrator) { o.matcher = m }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// Orchestrator replays the records of one sheet in one browser session.
type Orchestrator struct {
	cfg      *config.Config
	opener   browser.Opener
	prompter Prompter
	matcher  mapping.Matcher
	log      *logging.Logger

	executor *execute.Executor

	state      State
	headers    []string
	records    []sequence.Record
	cols       sequence.Columns
	resolver   *mapping.Resolver
	classifier *action.Classifier
}

// New creates an orchestrator for cfg that opens pages through opener.
func New(cfg *config.Config, opener browser.Opener, opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{cfg: cfg, opener: opener}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = logging.Discard()
	}

	locator := locate.NewLocator(LocatorOptions(cfg), o.log.With("locate"))
	executor, err := execute.New(locator, ExecutorOptions(cfg), o.log.With("execute"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	o.executor = executor

	o.cols = sequence.Columns{
		Sequence:         cfg.Columns.Sequence,
		SubsequenceStart: cfg.Columns.SubsequenceStart,
		SubsequenceEnd:   cfg.Columns.SubsequenceEnd,
	}
	for _, c := range []string{cfg.Login.UserColumn, cfg.Login.PasswordColumn, cfg.Login.ButtonColumn} {
		if c != "" {
			o.cols.Exclude = append(o.cols.Exclude, c)
		}
	}
	return o, nil
}

// LocatorOptions derives locator settings from cfg.
func LocatorOptions(cfg *config.Config) locate.Options {
	return locate.Options{
		ElementWait: cfg.Timing.ElementWait,
		NavFunction: cfg.Navigation.Function,
		PanelClass:  cfg.Navigation.PanelClass,
		RadioName:   cfg.Card.RadioName,
	}
}

// ExecutorOptions derives executor settings from cfg.
func ExecutorOptions(cfg *config.Config) execute.Options {
	return execute.Options{
		MaxAttempts:    cfg.Retry.MaxAttempts,
		RetryDelay:     cfg.Retry.Delay,
		FillSettle:     cfg.Timing.FillSettle,
		SelectSettle:   cfg.Timing.SelectSettle,
		ClickSettle:    cfg.Timing.ClickSettle,
		NavSettle:      cfg.Timing.NavSettle,
		CardSettle:     cfg.Timing.CardSettle,
		DialogWait:     cfg.Timing.DialogWait,
		SelectTimeout:  cfg.Timing.SelectTimeout,
		RadioName:      cfg.Card.RadioName,
		ConfirmLabel:   cfg.Card.ConfirmLabel,
		EnterAfterFill: cfg.EnterAfterFill,
	}
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	return o.state
}

// Records returns the loaded records.
func (o *Orchestrator) Records() []sequence.Record {
	return o.records
}

// Load validates the inputs and groups the table into records. Every
// violation wraps ErrConfig.
func (o *Orchestrator) Load(table *sheet.Table, titles *mapping.TitleMap, dropdowns *mapping.DropdownTable) error {
	if o.state != StateIdle {
		return fmt.Errorf("cannot load data in state %s", o.state)
	}
	if table == nil || len(table.Rows) == 0 {
		return fmt.Errorf("%w: input sheet has no data rows", ErrConfig)
	}
	if titles == nil || titles.Len() == 0 {
		return fmt.Errorf("%w: title map is empty", ErrConfig)
	}
	if !table.HasColumn(o.cols.Sequence) {
		return fmt.Errorf("%w: sequence column %q not found in sheet", ErrConfig, o.cols.Sequence)
	}

	start := table.ColumnIndex(o.cols.SubsequenceStart)
	end := table.ColumnIndex(o.cols.SubsequenceEnd)
	switch {
	case start >= 0 && end >= 0 && start > end:
		return fmt.Errorf("%w: column %q must come before %q", ErrConfig, o.cols.SubsequenceStart, o.cols.SubsequenceEnd)
	case (start >= 0) != (end >= 0):
		o.log.Warnf("Only one sub-sequence marker column present, replaying first rows only")
	}

	records, orphans, err := sequence.Group(table, o.cols)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}
	for _, row := range orphans {
		o.log.Warnf("Row %d has no sequence key and no record before it, skipping", row.Index)
	}
	if len(records) == 0 {
		return fmt.Errorf("%w: no rows carry a sequence key", ErrConfig)
	}

	var lookup action.DropdownLookup
	if dropdowns != nil {
		lookup = dropdowns
	}

	o.headers = table.Headers
	o.records = records
	o.resolver = mapping.NewResolver(titles, o.matcher, o.log.With("mapping"))
	o.classifier = action.NewClassifier(lookup)
	o.state = StateDataLoaded

	o.log.Infof("Loaded %d records from %d rows (%d titles mapped)", len(records), len(table.Rows), titles.Len())
	return nil
}

// Run opens the page and replays every record. The page is closed on every
// exit path. Action failures are logged and reported in the summary; only
// cancellation and failing to open the page end the run early.
func (o *Orchestrator) Run(ctx context.Context) (summary *report.Summary, err error) {
	if o.state != StateDataLoaded {
		return nil, fmt.Errorf("cannot run in state %s", o.state)
	}

	summary = report.NewSummary(o.cfg.Workbook, o.cfg.TargetURL)
	defer func() {
		summary.Finish(err, errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
	}()

	page, err := o.opener.Open(ctx)
	if err != nil {
		o.state = StateClosed
		return summary, fmt.Errorf("failed to open page: %w", err)
	}
	o.state = StateSessionOpen

	defer func() {
		r := recover()
		if closeErr := page.Close(); closeErr != nil {
			o.log.Warnf("Failed to close page: %v", closeErr)
		}
		o.state = StateClosed
		o.log.Infof("Session closed")
		if r != nil {
			o.log.Errorf("Replay aborted by panic: %v", r)
			panic(r)
		}
	}()

	if o.cfg.TargetURL != "" {
		o.log.Infof("Opening %s", o.cfg.TargetURL)
		if err := page.Navigate(ctx, o.cfg.TargetURL); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return summary, ctxErr
			}
			o.log.Errorf("Failed to open %s: %v", o.cfg.TargetURL, err)
		}
		if err := execute.Sleep(ctx, o.cfg.Timing.PageLoad); err != nil {
			return summary, err
		}
	}

	for i, rec := range o.records {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		o.log.Infof("Record %d/%d (%s %s)", i+1, len(o.records), o.cols.Sequence, rec.Key)
		summary.BeginRecord(rec.Key)

		if err := o.runRecord(ctx, page, rec, summary); err != nil {
			return summary, err
		}
		if o.cfg.Submit.Enabled {
			o.submit(ctx, page, rec, summary)
		}
		if err := execute.Sleep(ctx, o.cfg.Timing.RecordSettle); err != nil {
			return summary, err
		}
	}

	o.log.Infof("All %d records processed: %d succeeded, %d not found, %d failed, %d skipped",
		len(o.records), summary.Metrics.Succeeded, summary.Metrics.NotFound, summary.Metrics.Failed, summary.Metrics.Skipped)

	if o.cfg.HoldOpen && o.prompter != nil {
		if err := o.prompter.Confirm(ctx, "Replay finished. Press Enter to close the browser."); err != nil && ctx.Err() != nil {
			return summary, ctx.Err()
		}
	}
	return summary, nil
}

func (o *Orchestrator) runRecord(ctx context.Context, page browser.Page, rec sequence.Record, summary *report.Summary) error {
	if err := o.login(ctx, page, rec, summary); err != nil {
		return err
	}

	for _, step := range sequence.Sequence(rec, o.headers, o.cols) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if step.Boundary {
			o.log.Debugf("Sub-sequence finished on row %d", step.Row)
			if err := execute.Sleep(ctx, o.cfg.Timing.SubsequenceSettle); err != nil {
				return err
			}
			continue
		}

		d, ok := o.classifier.Classify(step.Title, step.Value)
		if !ok {
			continue
		}

		id, found := o.resolver.Resolve(ctx, step.Title)
		if !found && !d.Kind.TokenDriven() {
			o.log.Warnf("No identifier mapped for column %q, skipping %q", step.Title, d.Shown())
			summary.Add(report.Action{
				Record:  rec.Key,
				Row:     step.Row,
				Title:   step.Title,
				Kind:    d.Kind.String(),
				Payload: d.Shown(),
				Status:  report.StatusSkipped,
				Error:   "no identifier mapped for column",
			})
			continue
		}
		d.Target = id

		if err := o.perform(ctx, page, rec, step.Row, d, summary); err != nil {
			return err
		}
	}
	return nil
}

// perform executes d and records its result. It only returns an error when
// the context ends.
func (o *Orchestrator) perform(ctx context.Context, page browser.Page, rec sequence.Record, row int, d action.Descriptor, summary *report.Summary) error {
	res := o.executor.Execute(ctx, page, d)
	summary.Add(actionReport(rec.Key, row, res))
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

func actionReport(key string, row int, res execute.Result) report.Action {
	a := report.Action{
		Record:   key,
		Row:      row,
		Title:    res.Descriptor.Title,
		Kind:     res.Descriptor.Kind.String(),
		Target:   res.Descriptor.Target,
		Payload:  res.Descriptor.Shown(),
		Status:   res.Status,
		Attempts: res.Attempts,
		Strategy: res.Strategy,
	}
	if res.Err != nil {
		a.Error = res.Err.Error()
	}
	return a
}

// submit clicks the first submit control found after a record.
func (o *Orchestrator) submit(ctx context.Context, page browser.Page, rec sequence.Record, summary *report.Summary) {
	a := report.Action{Record: rec.Key, Title: "submit", Kind: action.KindButton.String(), Attempts: 1}

	for _, sel := range o.cfg.Submit.Selectors {
		el, scope, err := waitAny(ctx, page, sel, o.cfg.Submit.Timeout)
		if err != nil {
			continue
		}
		if err := el.Click(ctx); err != nil {
			o.log.Debugf("Submit click on %s failed: %v", sel, err)
			continue
		}
		o.log.Infof("✓ Submitted record %s via %s in %s", rec.Key, sel, scope.Name())
		a.Status = report.StatusSucceeded
		a.Strategy = sel
		summary.Add(a)
		return
	}

	o.log.Warnf("No submit button found for record %s", rec.Key)
	a.Status = report.StatusNotFound
	a.Error = "no submit selector matched"
	summary.Add(a)
}

// waitAny waits up to timeout for selector in the main document, then checks
// every frame once.
func waitAny(ctx context.Context, page browser.Page, selector string, timeout time.Duration) (browser.Element, browser.Scope, error) {
	if el, err := page.WaitFor(ctx, selector, timeout); err == nil {
		return el, page, nil
	}
	frames, err := page.Frames(ctx)
	if err != nil {
		return nil, nil, err
	}
	for _, f := range frames {
		if el, err := f.Query(ctx, selector); err == nil {
			return el, f, nil
		}
	}
	return nil, nil, browser.ErrNotFound
}
