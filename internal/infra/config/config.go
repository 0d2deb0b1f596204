package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is built once at startup and handed to every collaborator.
type Config struct {
	WakaTime WakaTimeConfig `mapstructure:"wakatime"`
	Twitter  TwitterConfig  `mapstructure:"twitter"`
	Render   RenderConfig   `mapstructure:"render"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	App      AppConfig      `mapstructure:"app"`
}

// WakaTimeConfig - usage statistics API
type WakaTimeConfig struct {
	APIKey       string `mapstructure:"api_key"`
	BaseURL      string `mapstructure:"base_url"`
	Range        string `mapstructure:"range"`
	MaxLanguages int    `mapstructure:"max_languages"`
}

// TwitterConfig - OAuth 1.0a user context credentials and the timeline to show
type TwitterConfig struct {
	APIKey            string `mapstructure:"api_key"`
	APISecretKey      string `mapstructure:"api_secret_key"`
	AccessToken       string `mapstructure:"access_token"`
	AccessTokenSecret string `mapstructure:"access_token_secret"`
	BaseURL           string `mapstructure:"base_url"`
	Account           string `mapstructure:"account"`
	Count             int    `mapstructure:"count"`
}

// RenderConfig - rasterizer backend and card styling
type RenderConfig struct {
	Backend      string  `mapstructure:"backend"` // native or magick
	MagickBinary string  `mapstructure:"magick_binary"`
	Timeout      int     `mapstructure:"timeout"` // seconds per rasterizer call
	FontPath     string  `mapstructure:"font_path"`
	FontFamily   string  `mapstructure:"font_family"`
	Background   string  `mapstructure:"background"`
	Foreground   string  `mapstructure:"foreground"`
	Gradient     string  `mapstructure:"gradient"`
	BarWidth     int     `mapstructure:"bar_width"`
	CanvasHeight int     `mapstructure:"canvas_height"`
	FontSize     float64 `mapstructure:"font_size"`
}

// TelegramConfig - optional delivery of the composite image
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	Caption  string `mapstructure:"caption"`
}

// AppConfig - paths, HTTP behaviour and logging
type AppConfig struct {
	Workspace       string `mapstructure:"workspace"`
	QuotesFile      string `mapstructure:"quotes_file"`
	RequestTimeout  int    `mapstructure:"request_timeout"`
	MaxRetries      int    `mapstructure:"max_retries"`
	MaxResponseSize int64  `mapstructure:"max_response_size"`
	SnapshotDir     string `mapstructure:"snapshot_dir"`
	LogDir          string `mapstructure:"log_dir"`
	Debug           bool   `mapstructure:"debug"`
}

// Enabled reports whether both Telegram settings are present.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

var validRanges = []string{"last_7_days", "last_30_days", "last_6_months", "last_year", "all_time"}

// LoadConfig merges, lowest priority first:
// 1. defaults
// 2. config.yaml in the working directory
// 3. .env file
// 4. environment variables (see setupEnvAliases)
// 5. command line flags bound from flags (may be nil)
func LoadConfig(flags *pflag.FlagSet) (*Config, error) {
	// .env fills the process environment; missing file is fine
	_ = godotenv.Load(".env")

	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	}

	v.AutomaticEnv()
	setupEnvAliases(v)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	normalize(&config)

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setupEnvAliases(v *viper.Viper) {
	// WakaTime
	v.BindEnv("wakatime.api_key", "WAKATIME_API_KEY")
	v.BindEnv("wakatime.base_url", "WAKATIME_BASE_URL")
	v.BindEnv("wakatime.range", "WAKATIME_RANGE")
	v.BindEnv("wakatime.max_languages", "WAKATIME_MAX_LANGUAGES")

	// Twitter
	v.BindEnv("twitter.api_key", "TWITTER_API_KEY")
	v.BindEnv("twitter.api_secret_key", "TWITTER_API_SECRET_KEY")
	v.BindEnv("twitter.access_token", "TWITTER_ACCESS_TOKEN")
	v.BindEnv("twitter.access_token_secret", "TWITTER_ACCESS_TOKEN_SECRET")
	v.BindEnv("twitter.base_url", "TWITTER_BASE_URL")
	v.BindEnv("twitter.account", "TWITTER_ACCOUNT")
	v.BindEnv("twitter.count", "TWITTER_COUNT")

	// Render
	v.BindEnv("render.backend", "RENDER_BACKEND")
	v.BindEnv("render.magick_binary", "MAGICK_BINARY")
	v.BindEnv("render.font_path", "RENDER_FONT_PATH")
	v.BindEnv("render.gradient", "BAR_GRADIENT")

	// Telegram
	v.BindEnv("telegram.bot_token", "TELEGRAM_BOT_TOKEN")
	v.BindEnv("telegram.chat_id", "TELEGRAM_CHAT_ID")

	// App
	v.BindEnv("app.workspace", "WORKSPACE_PATH")
	v.BindEnv("app.quotes_file", "QUOTES_FILE")
	v.BindEnv("app.snapshot_dir", "SNAPSHOT_DIR")
	v.BindEnv("app.log_dir", "LOG_DIR")
	v.BindEnv("app.debug", "DEBUG")
}

func setDefaults(v *viper.Viper) {
	// WakaTime
	v.SetDefault("wakatime.api_key", "")
	v.SetDefault("wakatime.base_url", "https://wakatime.com/api/v1")
	v.SetDefault("wakatime.range", "last_7_days")
	v.SetDefault("wakatime.max_languages", 5)

	// Twitter
	v.SetDefault("twitter.api_key", "")
	v.SetDefault("twitter.api_secret_key", "")
	v.SetDefault("twitter.access_token", "")
	v.SetDefault("twitter.access_token_secret", "")
	v.SetDefault("twitter.base_url", "https://api.twitter.com/1.1")
	v.SetDefault("twitter.account", "BonasRodrigo")
	v.SetDefault("twitter.count", 1)

	// Render
	v.SetDefault("render.backend", "native")
	v.SetDefault("render.magick_binary", "convert")
	v.SetDefault("render.timeout", 30)
	v.SetDefault("render.font_path", "")
	v.SetDefault("render.font_family", "sans-serif")
	v.SetDefault("render.background", "white")
	v.SetDefault("render.foreground", "#222")
	v.SetDefault("render.gradient", "blocks")
	v.SetDefault("render.bar_width", 12)
	v.SetDefault("render.canvas_height", 140)
	v.SetDefault("render.font_size", 14.0)

	// Telegram
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.caption", "")

	// App
	v.SetDefault("app.workspace", ".")
	v.SetDefault("app.quotes_file", "")
	v.SetDefault("app.request_timeout", 30)
	v.SetDefault("app.max_retries", 3)
	v.SetDefault("app.max_response_size", 10*1024*1024) // 10MB
	v.SetDefault("app.snapshot_dir", "")
	v.SetDefault("app.log_dir", "logs")
	v.SetDefault("app.debug", false)
}

// RegisterFlags adds the flags LoadConfig understands to a command's flag set.
// Flag names are the viper keys so BindPFlags maps them directly.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String("app.workspace", ".", "Workspace root; images go to <workspace>/assets/images (env: WORKSPACE_PATH)")
	flags.String("app.quotes_file", "", "Quote corpus file, .json or .toml; empty uses the embedded corpus (env: QUOTES_FILE)")
	flags.String("render.backend", "native", "Rasterizer backend: native or magick (env: RENDER_BACKEND)")
	flags.String("render.gradient", "blocks", "Bar glyph gradient: blocks or eighths (env: BAR_GRADIENT)")
	flags.String("wakatime.range", "last_7_days", "WakaTime stats range (env: WAKATIME_RANGE)")
	flags.String("twitter.account", "BonasRodrigo", "Twitter screen name to show (env: TWITTER_ACCOUNT)")
	flags.Int("twitter.count", 1, "Number of posts on the posts card (env: TWITTER_COUNT)")
	flags.Bool("app.debug", false, "Write DEBUG entries to the log file (env: DEBUG)")
}

func normalize(cfg *Config) {
	cfg.WakaTime.Range = strings.ToLower(strings.TrimSpace(cfg.WakaTime.Range))
	cfg.Render.Backend = strings.ToLower(strings.TrimSpace(cfg.Render.Backend))
	cfg.Render.Gradient = strings.ToLower(strings.TrimSpace(cfg.Render.Gradient))
	cfg.WakaTime.BaseURL = strings.TrimRight(cfg.WakaTime.BaseURL, "/")
	cfg.Twitter.BaseURL = strings.TrimRight(cfg.Twitter.BaseURL, "/")
	cfg.Twitter.Account = strings.TrimPrefix(strings.TrimSpace(cfg.Twitter.Account), "@")
	if cfg.App.Workspace == "" {
		cfg.App.Workspace = "."
	}
}

func validateConfig(cfg *Config) error {
	switch cfg.Render.Backend {
	case "native", "magick":
	default:
		return fmt.Errorf("render.backend must be native or magick, got %q", cfg.Render.Backend)
	}

	switch cfg.Render.Gradient {
	case "blocks", "eighths":
	default:
		return fmt.Errorf("render.gradient must be blocks or eighths, got %q", cfg.Render.Gradient)
	}

	if !isValidRange(cfg.WakaTime.Range) {
		return fmt.Errorf("wakatime.range must be one of %s, got %q", strings.Join(validRanges, ", "), cfg.WakaTime.Range)
	}

	if cfg.Render.BarWidth < 1 {
		return fmt.Errorf("render.bar_width must be at least 1, got %d", cfg.Render.BarWidth)
	}

	if cfg.Twitter.Count < 1 {
		return fmt.Errorf("twitter.count must be at least 1, got %d", cfg.Twitter.Count)
	}

	if cfg.WakaTime.MaxLanguages < 1 {
		return fmt.Errorf("wakatime.max_languages must be at least 1, got %d", cfg.WakaTime.MaxLanguages)
	}

	return nil
}

func isValidRange(r string) bool {
	for _, valid := range validRanges {
		if r == valid {
			return true
		}
	}
	return false
}
