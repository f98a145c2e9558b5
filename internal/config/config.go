// internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger     LoggerConfig     `mapstructure:"logger" yaml:"logger"`
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Engine     EngineConfig     `mapstructure:"engine" yaml:"engine"`
	Browser    BrowserConfig    `mapstructure:"browser" yaml:"browser"`
	Signup     SignupConfig     `mapstructure:"signup" yaml:"signup"`
	Storage    StorageConfig    `mapstructure:"storage" yaml:"storage"`
	Heuristics HeuristicsConfig `mapstructure:"heuristics" yaml:"heuristics"`
}

// LoggerConfig controls the zap logger bootstrap.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"` // "console" or "json"
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`

	// Rotating file sink. Empty LogFile disables it.
	LogFile    string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"` // megabytes
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"` // days
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// EngineConfig controls the job worker pool.
type EngineConfig struct {
	WorkerConcurrency int           `mapstructure:"worker_concurrency" yaml:"worker_concurrency"`
	QueueDepth        int           `mapstructure:"queue_depth" yaml:"queue_depth"`
	JobTimeout        time.Duration `mapstructure:"job_timeout" yaml:"job_timeout"`
}

// BrowserConfig controls the Playwright engine.
type BrowserConfig struct {
	// Channel is the preferred browser channel (e.g. "msedge"). An empty
	// channel means the Playwright-bundled Chromium.
	Channel         string `mapstructure:"channel" yaml:"channel"`
	FallbackChannel string `mapstructure:"fallback_channel" yaml:"fallback_channel"`

	Headless bool     `mapstructure:"headless" yaml:"headless"`
	Args     []string `mapstructure:"args" yaml:"args"`

	NavigationTimeout  time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	NetworkIdleTimeout time.Duration `mapstructure:"network_idle_timeout" yaml:"network_idle_timeout"`
	WaitVisibleTimeout time.Duration `mapstructure:"wait_visible_timeout" yaml:"wait_visible_timeout"`

	// TypingDelay is the per-character pacing applied when filling fields.
	// Zero disables pacing; tests rely on that.
	TypingDelay time.Duration `mapstructure:"typing_delay" yaml:"typing_delay"`

	InstallTimeout time.Duration `mapstructure:"install_timeout" yaml:"install_timeout"`
}

// SignupConfig describes the target signup flow.
type SignupConfig struct {
	StartURL       string `mapstructure:"start_url" yaml:"start_url"`
	EmailDomain    string `mapstructure:"email_domain" yaml:"email_domain"`
	PasswordLength int    `mapstructure:"password_length" yaml:"password_length"`
}

// StorageConfig locates per-job artifacts (logs, screenshots, profiles).
type StorageConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// HeuristicsConfig overrides the built-in classification pattern sets.
// Empty slices keep the defaults.
type HeuristicsConfig struct {
	ProtectionHosts []string `mapstructure:"protection_hosts" yaml:"protection_hosts"`
	CaptchaKeywords []string `mapstructure:"captcha_keywords" yaml:"captcha_keywords"`
	SuccessMarkers  []string `mapstructure:"success_markers" yaml:"success_markers"`
}

// SetDefaults registers every default value on the given viper instance.
// Called before unmarshal so a missing config file still yields a runnable
// configuration.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "signupd")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 20*time.Second)

	v.SetDefault("engine.worker_concurrency", 2)
	v.SetDefault("engine.queue_depth", 32)
	v.SetDefault("engine.job_timeout", 10*time.Minute)

	v.SetDefault("browser.channel", "msedge")
	v.SetDefault("browser.fallback_channel", "")
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.args", []string{"--start-maximized"})
	v.SetDefault("browser.navigation_timeout", 60*time.Second)
	v.SetDefault("browser.network_idle_timeout", 30*time.Second)
	v.SetDefault("browser.wait_visible_timeout", 10*time.Second)
	v.SetDefault("browser.typing_delay", 80*time.Millisecond)
	v.SetDefault("browser.install_timeout", 5*time.Minute)

	v.SetDefault("signup.start_url", "https://signup.live.com")
	v.SetDefault("signup.email_domain", "outlook.com")
	v.SetDefault("signup.password_length", 12)

	v.SetDefault("storage.dir", "storage")
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	if c.Engine.WorkerConcurrency <= 0 {
		return fmt.Errorf("engine.worker_concurrency must be positive, got %d", c.Engine.WorkerConcurrency)
	}
	if c.Signup.StartURL == "" {
		return fmt.Errorf("signup.start_url must not be empty")
	}
	if c.Signup.PasswordLength < 8 {
		return fmt.Errorf("signup.password_length must be at least 8, got %d", c.Signup.PasswordLength)
	}
	if c.Storage.Dir == "" {
		return fmt.Errorf("storage.dir must not be empty")
	}
	return nil
}
