// Package config loads the daemon configuration from built-in defaults, a
// TOML file, a dotenv file, the environment and command line flags, in
// increasing order of precedence.
package config

import (
	"io/fs"
	"os"
	"strings"
	"time"

	"codeberg.org/mutker/robotwatch/internal/diagnosis"
	"codeberg.org/mutker/robotwatch/internal/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultConfigPath = "/etc/robotwatch.toml"
	DefaultEnvPrefix  = "ROBOTWATCH"
	DefaultLogLevel   = string(LogLevelInfo)
)

type LedgerConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	DBPath         string `mapstructure:"db_path"`
	BackupDir      string `mapstructure:"backup_dir"`
	BatchSize      int    `mapstructure:"batch_size"`
	BatchTimeoutMS int64  `mapstructure:"batch_timeout_ms"`
}

type TelegramConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Token         string `mapstructure:"token"`
	ChatID        int64  `mapstructure:"chat_id"`
	RatePerSecond int    `mapstructure:"rate_per_second"`
}

type Config struct {
	LogLevel   string `mapstructure:"log_level"`
	LogFile    string `mapstructure:"log_file"`
	ListenAddr string `mapstructure:"listen"`
	PIDFile    string `mapstructure:"pid_file"`

	Robots              []string `mapstructure:"robots"`
	TickIntervalMS      int64    `mapstructure:"tick_interval_ms"`
	DedupeWindowMS      int64    `mapstructure:"dedupe_window_ms"`
	NotifyCooldownMS    int64    `mapstructure:"notify_cooldown_ms"`
	PowerOffMS          int64    `mapstructure:"power_off_ms"`
	Timezone            string   `mapstructure:"timezone"`
	ForceStopped        bool     `mapstructure:"force_stopped"`
	ResetReportsOnStart bool     `mapstructure:"reset_reports_on_start"`
	AutoStart           bool     `mapstructure:"auto_start"`

	SmoothingWindow int                  `mapstructure:"smoothing_window"`
	Thresholds      diagnosis.Thresholds `mapstructure:"thresholds"`
	RulesFile       string               `mapstructure:"rules_file"`

	ReportsDir       string `mapstructure:"reports_dir"`
	NotificationsDir string `mapstructure:"notifications_dir"`

	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// Default returns the complete built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel:   DefaultLogLevel,
		ListenAddr: ":8080",

		Robots:           []string{"ROBOT_001", "ROBOT_002", "ROBOT_003"},
		TickIntervalMS:   5000,
		DedupeWindowMS:   300000,
		NotifyCooldownMS: 30000,
		PowerOffMS:       60000,
		Timezone:         "Asia/Tokyo",
		AutoStart:        true,

		SmoothingWindow: diagnosis.DefaultWindow,
		Thresholds:      diagnosis.DefaultThresholds(),

		ReportsDir:       "/var/lib/robotwatch/reports",
		NotificationsDir: "/var/lib/robotwatch/notifications",

		Ledger: LedgerConfig{
			DBPath:         "/var/lib/robotwatch/ledger.db",
			BackupDir:      "/var/lib/robotwatch/backups",
			BatchSize:      64,
			BatchTimeoutMS: 10000,
		},
		Telegram: TelegramConfig{
			RatePerSecond: 1,
		},
	}
}

// Load reads the configuration. A missing file at the default path is
// not an error; a missing explicit file is.
func Load(opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := options{
		envPrefix: DefaultEnvPrefix,
		envFile:   ".env",
		args:      os.Args[1:],
	}
	for _, opt := range opts {
		opt(&o)
	}

	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	flags := pflag.NewFlagSet("robotwatch", pflag.ContinueOnError)
	flags.String("config", "", "Path to the configuration file")
	flags.String("log-level", DefaultLogLevel, "Log level (debug, info, warning, error)")
	flags.String("log-file", "", "Also write logs to this rotating file")
	flags.String("listen", "", "HTTP listen address")
	flags.Bool("force-stopped", false, "Never arm the periodic monitor")
	flags.Bool("reset-reports-on-start", false, "Empty the reports directory when the monitor starts")
	flags.String("timezone", "", "Reference timezone for report dedupe keys")
	if err := flags.Parse(o.args); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	v := viper.New()
	setDefaults(v, Default())
	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, flag := range map[string]string{
		"log_level":              "log-level",
		"log_file":               "log-file",
		"listen":                 "listen",
		"force_stopped":          "force-stopped",
		"reset_reports_on_start": "reset-reports-on-start",
		"timezone":               "timezone",
	} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return nil, errFactory.Wrap(errors.ErrBindFlags, err)
		}
	}

	path, explicit := configPath(o, flags)
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			if explicit || !errors.Is(err, fs.ErrNotExist) {
				return nil, errFactory.Wrap(errors.ErrReadConfig, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// configPath resolves the file to read: --config, then the
// <PREFIX>_CONFIG variable, then the default path.
func configPath(o options, flags *pflag.FlagSet) (string, bool) {
	if f := flags.Lookup("config"); f != nil && f.Changed {
		return f.Value.String(), true
	}
	if o.configPath != "" {
		return o.configPath, true
	}
	if env, ok := os.LookupEnv(o.envPrefix + "_CONFIG"); ok {
		return env, env != ""
	}
	return DefaultConfigPath, false
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_file", d.LogFile)
	v.SetDefault("listen", d.ListenAddr)
	v.SetDefault("pid_file", d.PIDFile)

	v.SetDefault("robots", d.Robots)
	v.SetDefault("tick_interval_ms", d.TickIntervalMS)
	v.SetDefault("dedupe_window_ms", d.DedupeWindowMS)
	v.SetDefault("notify_cooldown_ms", d.NotifyCooldownMS)
	v.SetDefault("power_off_ms", d.PowerOffMS)
	v.SetDefault("timezone", d.Timezone)
	v.SetDefault("force_stopped", d.ForceStopped)
	v.SetDefault("reset_reports_on_start", d.ResetReportsOnStart)
	v.SetDefault("auto_start", d.AutoStart)

	v.SetDefault("smoothing_window", d.SmoothingWindow)
	for _, c := range diagnosis.Channels {
		th := d.Thresholds.For(c)
		prefix := "thresholds." + string(c) + "."
		v.SetDefault(prefix+"critical", th.Critical)
		v.SetDefault(prefix+"warning", th.Warning)
		v.SetDefault(prefix+"low", th.Low)
	}
	v.SetDefault("rules_file", d.RulesFile)

	v.SetDefault("reports_dir", d.ReportsDir)
	v.SetDefault("notifications_dir", d.NotificationsDir)

	v.SetDefault("ledger.enabled", d.Ledger.Enabled)
	v.SetDefault("ledger.db_path", d.Ledger.DBPath)
	v.SetDefault("ledger.backup_dir", d.Ledger.BackupDir)
	v.SetDefault("ledger.batch_size", d.Ledger.BatchSize)
	v.SetDefault("ledger.batch_timeout_ms", d.Ledger.BatchTimeoutMS)

	v.SetDefault("telegram.enabled", d.Telegram.Enabled)
	v.SetDefault("telegram.token", d.Telegram.Token)
	v.SetDefault("telegram.chat_id", d.Telegram.ChatID)
	v.SetDefault("telegram.rate_per_second", d.Telegram.RatePerSecond)
}

// Validate checks ranges, threshold ordering and the timezone.
func (c *Config) Validate() error {
	errFactory := errors.New()

	if !LogLevel(c.LogLevel).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}
	if c.TickIntervalMS <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.TickIntervalMS)
	}
	if c.DedupeWindowMS < 0 || c.NotifyCooldownMS < 0 || c.PowerOffMS < 0 {
		return errFactory.WithData(errors.ErrInvalidWindow, struct {
			DedupeWindowMS   int64
			NotifyCooldownMS int64
			PowerOffMS       int64
		}{c.DedupeWindowMS, c.NotifyCooldownMS, c.PowerOffMS})
	}
	if c.SmoothingWindow < 1 {
		return errFactory.WithData(errors.ErrInvalidWindow, c.SmoothingWindow)
	}
	if err := c.Thresholds.Validate(); err != nil {
		return errFactory.Wrap(errors.ErrInvalidThreshold, err)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if len(c.Robots) == 0 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "at least one robot is required")
	}
	if c.Telegram.Enabled && (c.Telegram.Token == "" || c.Telegram.ChatID == 0) {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "telegram requires token and chat_id")
	}

	return nil
}

// Location loads the reference timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, errors.New().Wrap(errors.ErrInvalidTimezone, err).WithData(c.Timezone)
	}
	return loc, nil
}

func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMS) * time.Millisecond
}

func (c *Config) DedupeWindow() time.Duration {
	return time.Duration(c.DedupeWindowMS) * time.Millisecond
}

func (c *Config) NotifyCooldown() time.Duration {
	return time.Duration(c.NotifyCooldownMS) * time.Millisecond
}

func (c *Config) PowerOffDuration() time.Duration {
	return time.Duration(c.PowerOffMS) * time.Millisecond
}

func (c *Config) LedgerBatchTimeout() time.Duration {
	return time.Duration(c.Ledger.BatchTimeoutMS) * time.Millisecond
}
