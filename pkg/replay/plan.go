package replay

import (
	"context"
	"fmt"
	"sort"

	"github.com/entrhq/formreplay/pkg/action"
	"github.com/entrhq/formreplay/pkg/sequence"
)

// PlannedAction is one action a run would perform.
type PlannedAction struct {
	Record  string
	Row     int
	Title   string
	Target  string
	Kind    action.Kind
	Payload string

	// Mapped is false when the title has no identifier. Token-driven kinds
	// still run; everything else is skipped.
	Mapped bool

	// Boundary marks a sub-sequence pause; only Record and Row are set.
	Boundary bool
}

// Runs reports whether the action would be attempted.
func (p PlannedAction) Runs() bool {
	return p.Boundary || p.Mapped || p.Kind.TokenDriven()
}

// Plan lists what Run would do without touching a page. Login columns are
// not part of the plan.
func (o *Orchestrator) Plan(ctx context.Context) ([]PlannedAction, error) {
	if o.state != StateDataLoaded {
		return nil, fmt.Errorf("cannot plan in state %s", o.state)
	}

	var plan []PlannedAction
	for _, rec := range o.records {
		for _, step := range sequence.Sequence(rec, o.headers, o.cols) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if step.Boundary {
				plan = append(plan, PlannedAction{Record: rec.Key, Row: step.Row, Boundary: true})
				continue
			}
			d, ok := o.classifier.Classify(step.Title, step.Value)
			if !ok {
				continue
			}
			id, found := o.resolver.Resolve(ctx, step.Title)
			plan = append(plan, PlannedAction{
				Record:  rec.Key,
				Row:     step.Row,
				Title:   step.Title,
				Target:  id,
				Kind:    d.Kind,
				Payload: d.Payload,
				Mapped:  found,
			})
		}
	}
	return plan, nil
}

// Unmapped returns the sorted titles in plan that would be skipped.
func Unmapped(plan []PlannedAction) []string {
	seen := map[string]bool{}
	var titles []string
	for _, p := range plan {
		if p.Runs() || seen[p.Title] {
			continue
		}
		seen[p.Title] = true
		titles = append(titles, p.Title)
	}
	sort.Strings(titles)
	return titles
}
