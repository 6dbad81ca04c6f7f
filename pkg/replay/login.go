package replay

import (
	"context"
	"os"

	"github.com/entrhq/formreplay/pkg/action"
	"github.com/entrhq/formreplay/pkg/browser"
	"github.com/entrhq/formreplay/pkg/execute"
	"github.com/entrhq/formreplay/pkg/report"
	"github.com/entrhq/formreplay/pkg/sequence"
)

// login signs in with the credentials on the first row of rec. Records
// without a user cell are left alone.
func (o *Orchestrator) login(ctx context.Context, page browser.Page, rec sequence.Record, summary *report.Summary) error {
	lc := o.cfg.Login
	if lc.UserColumn == "" || len(rec.Rows) == 0 {
		return nil
	}
	row := rec.Rows[0]
	user := action.Normalize(row.Value(lc.UserColumn))
	if user == "" {
		return nil
	}

	o.log.Infof("Logging in as %s", user)

	userFill := action.Descriptor{Kind: action.KindFill, Title: lc.UserColumn, Target: lc.UserField, Payload: user}
	if err := o.perform(ctx, page, rec, row.Index, userFill, summary); err != nil {
		return err
	}

	password := action.Normalize(row.Value(lc.PasswordColumn))
	if password == "" && lc.PasswordEnv != "" {
		password = os.Getenv(lc.PasswordEnv)
	}
	if password == "" && o.prompter != nil {
		answer, err := o.prompter.Prompt(ctx, "Password for "+user, true)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			o.log.Warnf("No password entered: %v", err)
		}
		password = answer
	}
	if password == "" {
		o.log.Warnf("No password for %s in column %q or $%s", user, lc.PasswordColumn, lc.PasswordEnv)
	} else {
		pwFill := action.Descriptor{Kind: action.KindFill, Title: lc.PasswordColumn, Target: lc.PasswordField, Payload: password, Secret: true}
		if err := o.perform(ctx, page, rec, row.Index, pwFill, summary); err != nil {
			return err
		}
	}

	if err := o.captcha(ctx, page); err != nil {
		return err
	}

	if lc.ButtonColumn != "" && row.Has(lc.ButtonColumn) && lc.ButtonID != "" {
		click := action.Descriptor{Kind: action.KindButton, Title: lc.ButtonColumn, Target: lc.ButtonID, Payload: action.Normalize(row.Value(lc.ButtonColumn))}
		if err := o.perform(ctx, page, rec, row.Index, click, summary); err != nil {
			return err
		}
		if err := execute.Sleep(ctx, o.cfg.Timing.LoginWait); err != nil {
			return err
		}
	}
	return nil
}

// captcha asks the operator for the captcha and fills the first captcha input
// on the page.
func (o *Orchestrator) captcha(ctx context.Context, page browser.Page) error {
	selectors := o.cfg.Login.Captcha
	if len(selectors) == 0 {
		return nil
	}

	var (
		field browser.Element
		where string
	)
	for _, sel := range selectors {
		if el, scope, err := waitAny(ctx, page, sel, 0); err == nil {
			field, where = el, scope.Name()+" "+sel
			break
		}
	}
	if field == nil {
		o.log.Debugf("No captcha input on the login page")
		return nil
	}
	if o.prompter == nil {
		o.log.Warnf("Captcha input found but no prompter is available")
		return nil
	}

	answer, err := o.prompter.Prompt(ctx, "Captcha shown in the browser", false)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		o.log.Warnf("No captcha entered: %v", err)
		return nil
	}

	if err := field.Clear(ctx); err != nil {
		o.log.Warnf("Failed to clear captcha input: %v", err)
	}
	if err := field.Fill(ctx, answer); err != nil {
		o.log.Errorf("Failed to fill captcha in %s: %v", where, err)
		return nil
	}
	o.log.Infof("✓ Captcha filled in %s", where)
	return nil
}
