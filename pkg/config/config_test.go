package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "序号", cfg.Columns.Sequence)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Retry.Delay)
	assert.Equal(t, "10", cfg.Dropdowns["支付方式"]["个人转卡"])
	assert.Equal(t, "navToPrj", cfg.Navigation.Function)
	assert.Equal(t, "rdoacnt", cfg.Card.RadioName)
	assert.False(t, cfg.Submit.Enabled)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing workbook",
			mutate:  func(c *Config) { c.Workbook = "" },
			wantErr: "workbook is required",
		},
		{
			name:    "missing title map",
			mutate:  func(c *Config) { c.TitleMap = "" },
			wantErr: "title_map is required",
		},
		{
			name:    "missing sequence column",
			mutate:  func(c *Config) { c.Columns.Sequence = "" },
			wantErr: "columns.sequence is required",
		},
		{
			name:    "bad browser",
			mutate:  func(c *Config) { c.Browser.Type = "netscape" },
			wantErr: "invalid browser type: netscape",
		},
		{
			name:    "zero attempts",
			mutate:  func(c *Config) { c.Retry.MaxAttempts = 0 },
			wantErr: "retry.max_attempts must be at least 1",
		},
		{
			name:    "negative timing",
			mutate:  func(c *Config) { c.Timing.NavSettle = -time.Second },
			wantErr: "timing.nav_settle cannot be negative",
		},
		{
			name: "submit without selectors",
			mutate: func(c *Config) {
				c.Submit.Enabled = true
				c.Submit.Selectors = nil
			},
			wantErr: "submit.enabled requires at least one selector",
		},
		{
			name: "subject matcher without model",
			mutate: func(c *Config) {
				c.Subject.Enabled = true
				c.Subject.Model = ""
			},
			wantErr: "subject_matcher.model is required",
		},
		{
			name:    "bad verbosity",
			mutate:  func(c *Config) { c.Logging.Verbosity = "loud" },
			wantErr: "invalid logging verbosity: loud",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateDefaultsVerbosity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Verbosity = ""
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "normal", cfg.Logging.Verbosity)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "formreplay.yaml")
	content := `
workbook: data/records.xlsx
sheet: ""
target_url: http://localhost:8080/form
dropdowns:
  报销类型:
    差旅: "1"
browser:
  headless: true
timing:
  nav_settle: 500ms
retry:
  max_attempts: 5
  delay: 250ms
submit:
  enabled: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "data/records.xlsx", cfg.Workbook)
	assert.Empty(t, cfg.Sheet)
	assert.Equal(t, "标题-ID.xlsx", cfg.TitleMap, "unset keys keep defaults")
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, "chromium", cfg.Browser.Type)
	assert.Equal(t, 500*time.Millisecond, cfg.Timing.NavSettle)
	assert.Equal(t, 200*time.Millisecond, cfg.Timing.FillSettle)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.Delay)
	assert.True(t, cfg.Submit.Enabled)
	assert.NotEmpty(t, cfg.Submit.Selectors)
	assert.Equal(t, "1", cfg.Dropdowns["报销类型"]["差旅"])
	assert.Equal(t, "10", cfg.Dropdowns["支付方式"]["个人转卡"], "default dropdowns are merged")
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("retry: [1, 2"), 0600))
	_, err = Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")

	path = filepath.Join(t.TempDir(), "invalid.yaml")
	require.NoError(t, os.WriteFile(path, []byte("retry:\n  max_attempts: 0\n"), 0600))
	_, err = Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}
