package execute

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/formreplay/pkg/action"
	"github.com/entrhq/formreplay/pkg/browser"
	"github.com/entrhq/formreplay/pkg/browser/browsertest"
	"github.com/entrhq/formreplay/pkg/locate"
	"github.com/entrhq/formreplay/pkg/logging"
	"github.com/entrhq/formreplay/pkg/report"
)

type harness struct {
	exec   *Executor
	page   *browsertest.Page
	logs   *bytes.Buffer
	sleeps []time.Duration
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	h := &harness{page: browsertest.NewPage(), logs: &bytes.Buffer{}}
	log := logging.New("execute", h.logs, logging.LevelDebug)

	exec, err := New(locate.NewLocator(locate.Options{}, log), opts, log)
	require.NoError(t, err)
	exec.sleep = func(ctx context.Context, d time.Duration) error {
		h.sleeps = append(h.sleeps, d)
		return ctx.Err()
	}
	h.exec = exec
	return h
}

func fill(title, target, payload string) action.Descriptor {
	return action.Descriptor{Kind: action.KindFill, Title: title, Target: target, Payload: payload}
}

func TestExecuteFill(t *testing.T) {
	h := newHarness(t, Options{FillSettle: 200 * time.Millisecond})
	el := h.page.Add(browser.ByID("name_input"), &browsertest.Element{Value: "old"})

	res := h.exec.Execute(context.Background(), h.page, fill("姓名", "name_input", "张三"))

	assert.Equal(t, report.StatusSucceeded, res.Status)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, "id-main", res.Strategy)
	assert.NoError(t, res.Err)
	assert.Equal(t, "张三", el.Value)
	assert.Equal(t, []string{
		`clear main [id="name_input"]`,
		`fill main [id="name_input"] 张三`,
	}, h.page.Journal)
	assert.Equal(t, []time.Duration{200 * time.Millisecond}, h.sleeps)
}

func TestExecuteEnterAfterFill(t *testing.T) {
	h := newHarness(t, Options{EnterAfterFill: []string{"转卡信息工号*"}, DialogWait: time.Second})
	h.page.Add(browser.ByID("zkgh"), &browsertest.Element{})

	res := h.exec.Execute(context.Background(), h.page, fill("转卡信息工号*", "zkgh", "2020001"))

	require.Equal(t, report.StatusSucceeded, res.Status)
	assert.Equal(t, `press main [id="zkgh"] Enter`, h.page.Journal[len(h.page.Journal)-1])
	assert.Contains(t, h.sleeps, time.Second)
}

func TestExecuteDropdown(t *testing.T) {
	t.Run("selects option value", func(t *testing.T) {
		h := newHarness(t, Options{SelectTimeout: 5 * time.Second})
		el := h.page.Add(browser.ByID("paytype"), &browsertest.Element{Options: []string{"10", "2"}})

		d := action.Descriptor{Kind: action.KindDropdown, Title: "支付方式", Target: "paytype", Payload: "10"}
		res := h.exec.Execute(context.Background(), h.page, d)

		assert.Equal(t, report.StatusSucceeded, res.Status)
		assert.Equal(t, "10", el.Value)
	})

	t.Run("missing option fails every attempt", func(t *testing.T) {
		h := newHarness(t, Options{RetryDelay: time.Second})
		h.page.Add(browser.ByID("paytype"), &browsertest.Element{Options: []string{"10"}})

		d := action.Descriptor{Kind: action.KindDropdown, Title: "支付方式", Target: "paytype", Payload: "99"}
		res := h.exec.Execute(context.Background(), h.page, d)

		assert.Equal(t, report.StatusFailed, res.Status)
		assert.Equal(t, 3, res.Attempts)
		require.Error(t, res.Err)
		assert.Contains(t, res.Err.Error(), `failed to select option "99"`)
		assert.Equal(t, 3, strings.Count(h.logs.String(), "[WARN] attempt "))
		assert.Contains(t, h.logs.String(), "[ERROR] Action failed for dropdown-select")
		assert.Equal(t, []time.Duration{time.Second, time.Second}, h.sleeps)
	})
}

func TestExecuteRetryThenSucceed(t *testing.T) {
	h := newHarness(t, Options{RetryDelay: time.Second})
	el := h.page.Add(browser.ByID("amount_input"), &browsertest.Element{FailFills: 2})

	res := h.exec.Execute(context.Background(), h.page, fill("金额", "amount_input", "100"))

	assert.Equal(t, report.StatusSucceeded, res.Status)
	assert.Equal(t, 3, res.Attempts)
	assert.NoError(t, res.Err)
	assert.Equal(t, "100", el.Value)

	logs := h.logs.String()
	assert.Equal(t, 2, strings.Count(logs, "[WARN] attempt "))
	assert.Contains(t, logs, "attempt 1/3 failed")
	assert.Contains(t, logs, "attempt 2/3 failed")
	assert.NotContains(t, logs, "[ERROR]")
}

func TestExecuteNotFound(t *testing.T) {
	h := newHarness(t, Options{MaxAttempts: 2})

	res := h.exec.Execute(context.Background(), h.page, fill("姓名", "missing", "张三"))

	assert.Equal(t, report.StatusNotFound, res.Status)
	assert.Equal(t, 2, res.Attempts)
	assert.ErrorIs(t, res.Err, locate.ErrNotFound)
	assert.Contains(t, h.logs.String(), "[WARN] Element not found")
	assert.Empty(t, h.page.Journal)
}

func TestExecuteButton(t *testing.T) {
	h := newHarness(t, Options{ClickSettle: 300 * time.Millisecond})
	btn := h.page.Add(browser.ByID("submit_btn"), &browsertest.Element{})

	d := action.Descriptor{Kind: action.KindButton, Title: "提交", Target: "submit_btn", Payload: "submit"}
	res := h.exec.Execute(context.Background(), h.page, d)

	assert.Equal(t, report.StatusSucceeded, res.Status)
	assert.Equal(t, 1, btn.Clicks)
	assert.Equal(t, []string{`click main [id="submit_btn"]`}, h.page.Journal)
	assert.Equal(t, []time.Duration{300 * time.Millisecond}, h.sleeps)
}

func TestExecuteNavPanelInvoked(t *testing.T) {
	h := newHarness(t, Options{NavSettle: 2 * time.Second})
	h.page.Script("navToPrj('WF_YB6')")

	d := action.Descriptor{Kind: action.KindNavPanel, Title: "项目", Payload: "WF_YB6"}
	res := h.exec.Execute(context.Background(), h.page, d)

	assert.Equal(t, report.StatusSucceeded, res.Status)
	assert.Equal(t, "nav-script", res.Strategy)
	assert.Equal(t, []string{"evaluate main navToPrj('WF_YB6')"}, h.page.Journal)
}

func TestExecuteCard(t *testing.T) {
	radio := browser.Radio("rdoacnt")
	confirm := browser.HasText("button", "确定")

	t.Run("matching card confirmed in its frame", func(t *testing.T) {
		h := newHarness(t, Options{})
		dialog := h.page.AddFrame("dialog")
		card := dialog.Add(browser.XPathRowRadio("rdoacnt", "1142"), &browsertest.Element{})
		ok := dialog.Add(confirm, &browsertest.Element{})
		mainOK := h.page.Add(confirm, &browsertest.Element{})

		d := action.Descriptor{Kind: action.KindCardTail, Title: "卡号", Payload: "1142"}
		res := h.exec.Execute(context.Background(), h.page, d)

		assert.Equal(t, report.StatusSucceeded, res.Status)
		assert.Equal(t, "card-row", res.Strategy)
		assert.Equal(t, 1, card.Clicks)
		assert.Equal(t, 1, ok.Clicks)
		assert.Equal(t, 0, mainOK.Clicks)
	})

	t.Run("no matching card falls back to the first radio", func(t *testing.T) {
		h := newHarness(t, Options{})
		first := h.page.Add(radio, &browsertest.Element{Attrs: map[string]string{"onclick": "pick('0001')"}})
		h.page.Add(radio, &browsertest.Element{Attrs: map[string]string{"onclick": "pick('0002')"}})
		h.page.Add(browser.HasText(".ui-dialog-buttonpane button", "确定"), &browsertest.Element{Hidden: true})
		ok := h.page.Add(browser.ByAttr(`input[type="button"]`, "value", "确定"), &browsertest.Element{})

		d := action.Descriptor{Kind: action.KindCardTail, Title: "卡号", Payload: "9999"}
		res := h.exec.Execute(context.Background(), h.page, d)

		assert.Equal(t, report.StatusSucceeded, res.Status)
		assert.Equal(t, "card-first-radio", res.Strategy)
		assert.Equal(t, 1, first.Clicks)
		assert.Equal(t, 1, ok.Clicks)
		assert.Contains(t, h.logs.String(), "No bank card ending in 9999")
	})

	t.Run("missing confirm is only a warning", func(t *testing.T) {
		h := newHarness(t, Options{})
		h.page.Add(radio+`[onclick*="1142"]`, &browsertest.Element{})

		d := action.Descriptor{Kind: action.KindCardTail, Title: "卡号", Payload: "1142"}
		res := h.exec.Execute(context.Background(), h.page, d)

		assert.Equal(t, report.StatusSucceeded, res.Status)
		assert.Contains(t, h.logs.String(), `[WARN] No "确定" button found`)
	})
}

func TestExecuteCancelled(t *testing.T) {
	h := newHarness(t, Options{})
	h.page.Add(browser.ByID("name_input"), &browsertest.Element{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := h.exec.Execute(ctx, h.page, fill("姓名", "name_input", "张三"))
	assert.Equal(t, report.StatusFailed, res.Status)
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Empty(t, h.page.Journal)
}

func TestPerformNoElement(t *testing.T) {
	h := newHarness(t, Options{})
	err := h.exec.Perform(context.Background(), h.page, fill("姓名", "x", "y"), locate.Match{})
	assert.Error(t, err)
}

func TestNewRejectsBadPattern(t *testing.T) {
	_, err := New(locate.NewLocator(locate.Options{}, nil), Options{EnterAfterFill: []string{"[bad"}}, nil)
	assert.Error(t, err)
}

func TestSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
	assert.NoError(t, Sleep(context.Background(), 0))
	assert.NoError(t, Sleep(context.Background(), time.Millisecond))
}
