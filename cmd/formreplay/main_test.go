package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/formreplay/pkg/action"
	"github.com/entrhq/formreplay/pkg/browser"
	"github.com/entrhq/formreplay/pkg/config"
	"github.com/entrhq/formreplay/pkg/logging"
	"github.com/entrhq/formreplay/pkg/replay"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		assert.NoError(t, loadEnvFile(filepath.Join(dir, "absent.env")))
	})

	t.Run("empty path", func(t *testing.T) {
		assert.NoError(t, loadEnvFile(""))
	})

	t.Run("loads variables", func(t *testing.T) {
		path := writeFile(t, dir, ".env", "FORMREPLAY_TEST_PASSWORD=secret\n")
		t.Cleanup(func() { os.Unsetenv("FORMREPLAY_TEST_PASSWORD") })

		require.NoError(t, loadEnvFile(path))
		assert.Equal(t, "secret", os.Getenv("FORMREPLAY_TEST_PASSWORD"))
	})
}

func TestLoadTables(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Workbook = writeFile(t, dir, "records.csv", "序号,姓名,支付方式\n1,张三,个人转卡\n")
	cfg.TitleMap = writeFile(t, dir, "titles.csv", "标题,ID\n姓名,name\n姓名,name_input\n")
	cfg.DropdownMap = writeFile(t, dir, "dropdowns.csv", "字段,显示,值\n支付方式,个人转卡,99\n报销类型,差旅,1\n")

	var buf bytes.Buffer
	log := logging.New("test", &buf, logging.LevelDebug)

	in, err := loadTables(cfg, log)
	require.NoError(t, err)

	assert.Len(t, in.records.Rows, 1)
	id, ok := in.titles.Lookup("姓名")
	require.True(t, ok)
	assert.Equal(t, "name_input", id)

	v, ok := in.dropdowns.Translate("支付方式", "个人转卡")
	require.True(t, ok)
	assert.Equal(t, "99", v, "dropdown file overrides config")
	v, ok = in.dropdowns.Translate("支付方式", "转账汇款")
	require.True(t, ok)
	assert.Equal(t, "2", v)
	assert.True(t, in.dropdowns.IsDropdown("报销类型"))

	assert.Contains(t, buf.String(), `Title "姓名" appears more than once`)
}

func TestLoadTablesMissingWorkbook(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Workbook = filepath.Join(t.TempDir(), "absent.csv")

	_, err := loadTables(cfg, logging.Discard())
	assert.ErrorContains(t, err, "failed to read workbook")
}

func TestSessionOptions(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Browser.Headless = true
	cfg.Browser.SlowMo = 50 * time.Millisecond

	opts := sessionOptions(cfg)
	assert.Equal(t, "chromium", opts.Browser)
	assert.True(t, opts.Headless)
	assert.Equal(t, 50*time.Millisecond, opts.SlowMo)
	require.NotNil(t, opts.Viewport)
	assert.Equal(t, 1280, opts.Viewport.Width)

	cfg.Browser.ViewportWidth = 0
	assert.Nil(t, sessionOptions(cfg).Viewport)
}

func TestApplyRunFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "run"}
	cmd.Flags().BoolVar(&runFlagHeadless, "headless", false, "")
	cmd.Flags().BoolVar(&runFlagHoldOpen, "hold-open", false, "")
	cmd.Flags().BoolVar(&runFlagSubmit, "submit", false, "")
	require.NoError(t, cmd.Flags().Parse([]string{"--headless"}))

	cfg := config.DefaultConfig()
	cfg.HoldOpen = true
	applyRunFlags(cmd, cfg)

	assert.True(t, cfg.Browser.Headless)
	assert.True(t, cfg.HoldOpen, "unset flags keep the config value")
	assert.False(t, cfg.Submit.Enabled)
}

func TestPrintPlan(t *testing.T) {
	plan := []replay.PlannedAction{
		{Record: "1", Row: 2, Title: "姓名", Target: "name", Kind: action.KindFill, Payload: "张三", Mapped: true},
		{Record: "1", Row: 2, Title: "备注", Kind: action.KindFill, Payload: "x"},
		{Record: "1", Row: 2, Boundary: true},
		{Record: "2", Row: 3, Title: "项目", Kind: action.KindNavPanel, Payload: "WF_YB6"},
	}

	var buf bytes.Buffer
	printPlan(&buf, plan, replay.Unmapped(plan), 2)
	out := buf.String()

	assert.Contains(t, out, "Record 1")
	assert.Contains(t, out, "Record 2")
	assert.Contains(t, out, `姓名 -> name "张三"`)
	assert.Contains(t, out, "(skipped)")
	assert.Contains(t, out, "sub-sequence ends on row 2")
	assert.Contains(t, out, "2 records, 2 actions")
	assert.Contains(t, out, "1 title without an identifier:")
	assert.Contains(t, out, "  - 备注")
}

func TestPrintPlanAllMapped(t *testing.T) {
	var buf bytes.Buffer
	printPlan(&buf, nil, nil, 1)
	assert.Contains(t, buf.String(), "1 record, 0 actions")
	assert.Contains(t, buf.String(), "Every title is mapped")
}

func TestScaffoldRows(t *testing.T) {
	fields := []browser.Field{
		{Tag: "input", ID: "name_input", Label: "姓名"},
		{Tag: "input", Name: "dup", Label: "姓名"},
		{Tag: "button", BtnName: "保存", Label: "保存"},
		{Tag: "input", ID: "nolabel"},
		{Tag: "a", OnClick: "navToPrj('WF_YB6')", Label: "日常报销"},
	}

	assert.Equal(t, [][]string{
		{"姓名", "name_input"},
		{"保存", "保存"},
	}, scaffoldRows(fields))
}

func TestWriteScaffold(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ids.xlsx")
	fields := []browser.Field{{Tag: "input", ID: "name_input", Label: "姓名"}}

	require.NoError(t, writeScaffold(path, "标题-ID", fields))
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestPrintFields(t *testing.T) {
	var buf bytes.Buffer
	printFields(&buf, []browser.Field{
		{Scope: "main", Tag: "select", ID: "pay", Label: "支付方式", Options: []browser.Option{{Value: "10", Label: "个人转卡"}}},
		{Scope: "frame mainFrame", Tag: "a", Label: "日常报销", OnClick: "navToPrj('WF_YB6')"},
	})
	out := buf.String()

	assert.Contains(t, out, "main")
	assert.Contains(t, out, "个人转卡=10")
	assert.Contains(t, out, "frame mainFrame")
	assert.Contains(t, out, "onclick=navToPrj('WF_YB6')")

	buf.Reset()
	printFields(&buf, nil)
	assert.Equal(t, "No fields found\n", buf.String())
}
