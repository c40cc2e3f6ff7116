package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"mediakit/internal/dirs"
)

// EnvPrefix prefixes every environment variable read by the application.
const EnvPrefix = "MEDIAKIT"

// Config is the resolved runtime configuration.
type Config struct {
	Addr          string
	AppEnv        string
	PublicBaseURL string
	CORSOrigins   []string

	DLBinary     string
	FFmpegBinary string
	TempDir      string
	DataDir      string
	OutDir       string

	StreamStartTimeout time.Duration
	MaxUploadMB        int
	RateLimitPerMin    int

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration // 0 disables; downloads stream for minutes
	HTTPIdleTimeout  time.Duration

	Verbose bool
	Jobs    int
}

// OptimizedDir is where optimized images are kept for download.
func (c Config) OptimizedDir() string { return filepath.Join(c.DataDir, "optimized") }

// MetricsDBPath is the SQLite file holding persistent counters.
func (c Config) MetricsDBPath() string { return filepath.Join(c.DataDir, "metrics.db") }

// Init wires Viper with config paths, env, defaults, and flag bindings.
// It is non-fatal: any errors are returned for optional handling by caller.
func Init(root *cobra.Command) error {
	v := viper.GetViper()

	// Ensure base directories exist
	_ = dirs.EnsureAll()

	// Setup config search path
	if cfgDir, err := dirs.ConfigDir(); err == nil {
		v.AddConfigPath(cfgDir)
	}
	v.SetConfigName("config") // supports config.{yaml|yml|json|toml}

	SetDefaults(v)

	// Environment variables: MEDIAKIT_*
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	// Bind root persistent flags to Viper keys
	pf := root.PersistentFlags()
	for key, flag := range map[string]string{
		"out_dir":       "out-dir",
		"verbose":       "verbose",
		"dl_binary":     "dl-binary",
		"ffmpeg_binary": "ffmpeg-binary",
		"temp_dir":      "temp-dir",
		"data_dir":      "data-dir",
		"jobs":          "jobs",
	} {
		if f := pf.Lookup(flag); f != nil {
			_ = v.BindPFlag(key, f)
		}
	}

	// Read config file if present (ignore not found)
	var notFound viper.ConfigFileNotFoundError
	if err := v.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("addr", ":8080")
	v.SetDefault("app_env", "production")
	v.SetDefault("public_base_url", "")
	v.SetDefault("cors_origins", []string{})
	v.SetDefault("dl_binary", "")
	v.SetDefault("ffmpeg_binary", "")
	v.SetDefault("out_dir", ".")
	v.SetDefault("stream_start_timeout", 20*time.Second)
	v.SetDefault("max_upload_mb", 10)
	v.SetDefault("rate_limit_per_min", 30)
	v.SetDefault("http_read_timeout", 15*time.Second)
	v.SetDefault("http_write_timeout", time.Duration(0))
	v.SetDefault("http_idle_timeout", 60*time.Second)
	v.SetDefault("verbose", false)
	v.SetDefault("jobs", 2)

	if d, err := dirs.DataDir(); err == nil {
		v.SetDefault("data_dir", d)
	}
	if d, err := dirs.TempBaseDir(); err == nil {
		v.SetDefault("temp_dir", d)
	}
}

// Load resolves and validates the configuration held by v.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Addr:               strings.TrimSpace(v.GetString("addr")),
		AppEnv:             strings.ToLower(strings.TrimSpace(v.GetString("app_env"))),
		PublicBaseURL:      strings.TrimRight(strings.TrimSpace(v.GetString("public_base_url")), "/"),
		CORSOrigins:        splitList(v.GetStringSlice("cors_origins")),
		DLBinary:           v.GetString("dl_binary"),
		FFmpegBinary:       v.GetString("ffmpeg_binary"),
		TempDir:            v.GetString("temp_dir"),
		DataDir:            v.GetString("data_dir"),
		OutDir:             filepath.Clean(v.GetString("out_dir")),
		StreamStartTimeout: v.GetDuration("stream_start_timeout"),
		MaxUploadMB:        v.GetInt("max_upload_mb"),
		RateLimitPerMin:    v.GetInt("rate_limit_per_min"),
		HTTPReadTimeout:    v.GetDuration("http_read_timeout"),
		HTTPWriteTimeout:   v.GetDuration("http_write_timeout"),
		HTTPIdleTimeout:    v.GetDuration("http_idle_timeout"),
		Verbose:            v.GetBool("verbose"),
		Jobs:               v.GetInt("jobs"),
	}

	if cfg.Addr == "" {
		return cfg, errors.New("addr is required")
	}
	if cfg.DataDir == "" {
		return cfg, errors.New("data_dir is required")
	}
	if cfg.StreamStartTimeout <= 0 {
		return cfg, fmt.Errorf("stream_start_timeout must be positive, got %s", cfg.StreamStartTimeout)
	}
	if cfg.MaxUploadMB <= 0 {
		return cfg, fmt.Errorf("max_upload_mb must be positive, got %d", cfg.MaxUploadMB)
	}
	if cfg.RateLimitPerMin < 0 {
		return cfg, fmt.Errorf("rate_limit_per_min must not be negative, got %d", cfg.RateLimitPerMin)
	}
	if cfg.Jobs <= 0 {
		cfg.Jobs = 2
	}
	return cfg, nil
}

// splitList accepts both YAML lists and comma separated env values.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
