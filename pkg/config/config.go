// Package config holds the YAML configuration of a replay run.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the configuration for a replay run
type Config struct {
	// Input workbook with the records to replay
	Workbook string `yaml:"workbook" json:"workbook"`
	Sheet    string `yaml:"sheet" json:"sheet"`

	// Title-to-identifier table and optional dropdown label table
	TitleMap      string `yaml:"title_map" json:"title_map"`
	TitleMapSheet string `yaml:"title_map_sheet" json:"title_map_sheet"`
	DropdownMap   string `yaml:"dropdown_map" json:"dropdown_map"`

	// Page opened before the first record
	TargetURL string `yaml:"target_url" json:"target_url"`

	Columns ColumnConfig `yaml:"columns" json:"columns"`

	// Dropdowns maps a column title to its display-label to option-value table
	Dropdowns map[string]map[string]string `yaml:"dropdowns" json:"dropdowns"`

	// EnterAfterFill lists title glob patterns whose inputs get an Enter key after filling
	EnterAfterFill []string `yaml:"enter_after_fill" json:"enter_after_fill"`

	Browser    BrowserConfig    `yaml:"browser" json:"browser"`
	Timing     TimingConfig     `yaml:"timing" json:"timing"`
	Retry      RetryConfig      `yaml:"retry" json:"retry"`
	Navigation NavigationConfig `yaml:"navigation" json:"navigation"`
	Card       CardConfig       `yaml:"card" json:"card"`
	Submit     SubmitConfig     `yaml:"submit" json:"submit"`
	Login      LoginConfig      `yaml:"login" json:"login"`
	Subject    SubjectConfig    `yaml:"subject_matcher" json:"subject_matcher"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
	Report     ReportConfig     `yaml:"report" json:"report"`

	// HoldOpen asks for confirmation before the browser is closed
	HoldOpen bool `yaml:"hold_open" json:"hold_open"`
}

// ColumnConfig names the structural columns of the input sheet
type ColumnConfig struct {
	Sequence         string `yaml:"sequence" json:"sequence"`
	SubsequenceStart string `yaml:"subsequence_start" json:"subsequence_start"`
	SubsequenceEnd   string `yaml:"subsequence_end" json:"subsequence_end"`
}

// BrowserConfig configures the Playwright browser
type BrowserConfig struct {
	// Type is chromium, firefox or webkit
	Type           string        `yaml:"type" json:"type"`
	Headless       bool          `yaml:"headless" json:"headless"`
	SlowMo         time.Duration `yaml:"slow_mo" json:"slow_mo"`
	ViewportWidth  int           `yaml:"viewport_width" json:"viewport_width"`
	ViewportHeight int           `yaml:"viewport_height" json:"viewport_height"`
	Timeout        time.Duration `yaml:"timeout" json:"timeout"`
	SkipInstall    bool          `yaml:"skip_install" json:"skip_install"`
}

// TimingConfig holds the settle delays between actions
type TimingConfig struct {
	PageLoad          time.Duration `yaml:"page_load" json:"page_load"`
	ElementWait       time.Duration `yaml:"element_wait" json:"element_wait"`
	FillSettle        time.Duration `yaml:"fill_settle" json:"fill_settle"`
	SelectSettle      time.Duration `yaml:"select_settle" json:"select_settle"`
	ClickSettle       time.Duration `yaml:"click_settle" json:"click_settle"`
	NavSettle         time.Duration `yaml:"nav_settle" json:"nav_settle"`
	CardSettle        time.Duration `yaml:"card_settle" json:"card_settle"`
	DialogWait        time.Duration `yaml:"dialog_wait" json:"dialog_wait"`
	SubsequenceSettle time.Duration `yaml:"subsequence_settle" json:"subsequence_settle"`
	RecordSettle      time.Duration `yaml:"record_settle" json:"record_settle"`
	LoginWait         time.Duration `yaml:"login_wait" json:"login_wait"`
	SelectTimeout     time.Duration `yaml:"select_timeout" json:"select_timeout"`
}

// RetryConfig bounds per-action retries
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	Delay       time.Duration `yaml:"delay" json:"delay"`
}

// NavigationConfig describes how navigation panel entries are found
type NavigationConfig struct {
	// Function is the page script invoked with the nav token, e.g. navToPrj
	Function string `yaml:"function" json:"function"`
	// PanelClass is the CSS class carried by panel entries
	PanelClass string `yaml:"panel_class" json:"panel_class"`
}

// CardConfig describes the bank card selection dialog
type CardConfig struct {
	RadioName    string `yaml:"radio_name" json:"radio_name"`
	ConfirmLabel string `yaml:"confirm_label" json:"confirm_label"`
}

// SubmitConfig configures the optional per-record submit step
type SubmitConfig struct {
	Enabled   bool          `yaml:"enabled" json:"enabled"`
	Selectors []string      `yaml:"selectors" json:"selectors"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
}

// LoginConfig configures the login step driven by login columns
type LoginConfig struct {
	UserColumn     string   `yaml:"user_column" json:"user_column"`
	PasswordColumn string   `yaml:"password_column" json:"password_column"`
	ButtonColumn   string   `yaml:"button_column" json:"button_column"`
	PasswordEnv    string   `yaml:"password_env" json:"password_env"`
	UserField      string   `yaml:"user_field" json:"user_field"`
	PasswordField  string   `yaml:"password_field" json:"password_field"`
	ButtonID       string   `yaml:"button_id" json:"button_id"`
	Captcha        []string `yaml:"captcha_selectors" json:"captcha_selectors"`
}

// SubjectConfig configures the optional LLM subject matcher
type SubjectConfig struct {
	Enabled         bool   `yaml:"enabled" json:"enabled"`
	BaseURL         string `yaml:"base_url" json:"base_url"`
	Model           string `yaml:"model" json:"model"`
	APIKeyEnv       string `yaml:"api_key_env" json:"api_key_env"`
	MaxPromptTokens int    `yaml:"max_prompt_tokens" json:"max_prompt_tokens"`
}

// LoggingConfig defines logging configuration
type LoggingConfig struct {
	// Verbosity controls logging level: quiet, normal, verbose, debug
	Verbosity string `yaml:"verbosity" json:"verbosity"`
	// Dir overrides the default log directory (~/.formreplay/logs)
	Dir string `yaml:"dir" json:"dir"`
}

// ReportConfig defines run report generation
type ReportConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	OutputDir string `yaml:"output_dir" json:"output_dir"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Workbook == "" {
		return fmt.Errorf("workbook is required")
	}

	if c.TitleMap == "" {
		return fmt.Errorf("title_map is required")
	}

	if c.Columns.Sequence == "" {
		return fmt.Errorf("columns.sequence is required")
	}

	switch c.Browser.Type {
	case "chromium", "firefox", "webkit":
	default:
		return fmt.Errorf("invalid browser type: %s (must be 'chromium', 'firefox', or 'webkit')", c.Browser.Type)
	}

	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}

	if c.Retry.Delay < 0 {
		return fmt.Errorf("retry.delay cannot be negative")
	}

	if c.Browser.Timeout < 0 {
		return fmt.Errorf("browser.timeout cannot be negative")
	}

	if err := c.Timing.validate(); err != nil {
		return err
	}

	if c.Submit.Enabled && len(c.Submit.Selectors) == 0 {
		return fmt.Errorf("submit.enabled requires at least one selector")
	}

	if c.Subject.Enabled {
		if c.Subject.Model == "" {
			return fmt.Errorf("subject_matcher.model is required when enabled")
		}
		if c.Subject.MaxPromptTokens < 0 {
			return fmt.Errorf("subject_matcher.max_prompt_tokens cannot be negative")
		}
	}

	// Set default verbosity if not specified
	if c.Logging.Verbosity == "" {
		c.Logging.Verbosity = "normal"
	}

	validLevels := map[string]bool{
		"quiet":   true,
		"normal":  true,
		"verbose": true,
		"debug":   true,
	}
	if !validLevels[c.Logging.Verbosity] {
		return fmt.Errorf("invalid logging verbosity: %s (must be 'quiet', 'normal', 'verbose', or 'debug')", c.Logging.Verbosity)
	}

	return nil
}

func (t TimingConfig) validate() error {
	durations := map[string]time.Duration{
		"page_load":          t.PageLoad,
		"element_wait":       t.ElementWait,
		"fill_settle":        t.FillSettle,
		"select_settle":      t.SelectSettle,
		"click_settle":       t.ClickSettle,
		"nav_settle":         t.NavSettle,
		"card_settle":        t.CardSettle,
		"dialog_wait":        t.DialogWait,
		"subsequence_settle": t.SubsequenceSettle,
		"record_settle":      t.RecordSettle,
		"login_wait":         t.LoginWait,
		"select_timeout":     t.SelectTimeout,
	}
	for name, d := range durations {
		if d < 0 {
			return fmt.Errorf("timing.%s cannot be negative", name)
		}
	}
	return nil
}

// DefaultConfig returns the configuration for the university reimbursement site
func DefaultConfig() *Config {
	return &Config{
		Workbook:  "报销信息.xlsx",
		Sheet:     "BaoXiao_sheet",
		TitleMap:  "标题-ID.xlsx",
		TargetURL: "https://cwcx.uestc.edu.cn/WFManager/home.jsp",
		Columns: ColumnConfig{
			Sequence:         "序号",
			SubsequenceStart: "子序列开始",
			SubsequenceEnd:   "子序列结束",
		},
		Dropdowns: map[string]map[string]string{
			"支付方式": {
				"个人转卡":     "10",
				"转账汇款":     "2",
				"合同支付":     "11",
				"混合支付":     "14",
				"冲销其它项目借款": "9",
				"公务卡认证还款":  "15",
			},
		},
		EnterAfterFill: []string{"转卡信息工号*"},
		Browser: BrowserConfig{
			Type:           "chromium",
			Headless:       false,
			ViewportWidth:  1280,
			ViewportHeight: 720,
			Timeout:        30 * time.Second,
		},
		Timing: TimingConfig{
			PageLoad:          3 * time.Second,
			ElementWait:       3 * time.Second,
			FillSettle:        200 * time.Millisecond,
			SelectSettle:      200 * time.Millisecond,
			ClickSettle:       300 * time.Millisecond,
			NavSettle:         2 * time.Second,
			CardSettle:        time.Second,
			DialogWait:        2 * time.Second,
			SubsequenceSettle: 300 * time.Millisecond,
			RecordSettle:      500 * time.Millisecond,
			LoginWait:         5 * time.Second,
			SelectTimeout:     5 * time.Second,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			Delay:       time.Second,
		},
		Navigation: NavigationConfig{
			Function:   "navToPrj",
			PanelClass: "syslink",
		},
		Card: CardConfig{
			RadioName:    "rdoacnt",
			ConfirmLabel: "确定",
		},
		Submit: SubmitConfig{
			Enabled: false,
			Selectors: []string{
				"button[type='submit']",
				"input[type='submit']",
				"#submit",
				"#save",
				".submit-btn",
			},
			Timeout: 2 * time.Second,
		},
		Login: LoginConfig{
			UserColumn:     "登录界面工号",
			PasswordColumn: "登录界面密码",
			ButtonColumn:   "登录按钮",
			PasswordEnv:    "FORMREPLAY_PASSWORD",
			UserField:      "uid",
			PasswordField:  "pwd",
			ButtonID:       "zhLogin",
			Captcha: []string{
				"input[name='captcha']",
				"#captcha",
				"#chkcode1",
				"input[placeholder*='验证码']",
				"input[id*='captcha']",
				"input[name*='code']",
			},
		},
		Subject: SubjectConfig{
			Enabled:         false,
			BaseURL:         "http://localhost:11434/v1",
			Model:           "qwen2.5:7b",
			APIKeyEnv:       "OPENAI_API_KEY",
			MaxPromptTokens: 2000,
		},
		Logging: LoggingConfig{
			Verbosity: "normal",
		},
		Report: ReportConfig{
			Enabled:   true,
			OutputDir: ".formreplay/reports",
		},
	}
}

// Load reads a YAML file on top of DefaultConfig and validates the result
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
