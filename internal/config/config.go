package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidConfig = errors.New("config: invalid configuration")
	ErrUnreadable    = errors.New("config: failed to read config file")
	ErrMalformed     = errors.New("config: failed to parse config file")
)

// Duration wraps time.Duration so YAML values can be written as "2m" or "30s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	DB      DBConfig      `yaml:"db"`
	Redis   RedisConfig   `yaml:"redis"`
	Quota   QuotaConfig   `yaml:"quota"`
	Derive  DeriveConfig  `yaml:"derive"`
	Log     LogConfig     `yaml:"log"`
}

type ServerConfig struct {
	Addr                string   `yaml:"addr"`
	MaxUploadBytes      int64    `yaml:"max_upload_bytes"`
	AllowedTypePrefixes []string `yaml:"allowed_type_prefixes"`
}

type StorageConfig struct {
	// Backend selects the object store implementation: "local" or "s3".
	Backend string        `yaml:"backend"`
	Local   LocalStorage  `yaml:"local"`
	S3      S3StorageYAML `yaml:"s3"`
}

type LocalStorage struct {
	BaseDir string `yaml:"base_dir"`
}

type S3StorageYAML struct {
	Bucket           string `yaml:"bucket"`
	Region           string `yaml:"region"`
	Endpoint         string `yaml:"endpoint"`
	AccessKey        string `yaml:"access_key"`
	SecretKey        string `yaml:"secret_key"`
	SigningAccessKey string `yaml:"signing_access_key"`
	SigningSecretKey string `yaml:"signing_secret_key"`
	PathStyle        bool   `yaml:"path_style"`
}

type DBConfig struct {
	Path        string   `yaml:"path"`
	BusyTimeout Duration `yaml:"busy_timeout"`
}

type RedisConfig struct {
	// URL is optional; when empty the quota counter runs on SQLite.
	URL string `yaml:"url"`
}

type QuotaConfig struct {
	DailyLimit int64 `yaml:"daily_limit"`
}

type DeriveConfig struct {
	FFmpeg        string   `yaml:"ffmpeg"`
	FFprobe       string   `yaml:"ffprobe"`
	Timeout       Duration `yaml:"timeout"`
	ImageWidth    int      `yaml:"image_width"`
	ImageQuality  int      `yaml:"image_quality"`
	VideoMaxWidth int      `yaml:"video_max_width"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns a Config populated with production defaults. A missing
// config file yields exactly this configuration (local storage, SQLite
// counters, no Redis).
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:                ":8080",
			MaxUploadBytes:      50 << 20,
			AllowedTypePrefixes: []string{"image/", "video/"},
		},
		Storage: StorageConfig{
			Backend: "local",
			Local:   LocalStorage{BaseDir: "./data/uploads"},
			S3:      S3StorageYAML{Region: "us-east-1"},
		},
		DB: DBConfig{
			Path:        "./data/mediastore.db",
			BusyTimeout: Duration(5 * time.Second),
		},
		Quota: QuotaConfig{DailyLimit: 1000},
		Derive: DeriveConfig{
			FFmpeg:        "ffmpeg",
			FFprobe:       "ffprobe",
			Timeout:       Duration(2 * time.Minute),
			ImageWidth:    900,
			ImageQuality:  78,
			VideoMaxWidth: 1280,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads configuration from path, falling back to defaults when the file
// does not exist, then applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	case os.IsNotExist(err):
		// defaults + env only
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays environment variables on top of file values. Environment
// wins so deployments can keep secrets out of the config file.
func (c *Config) applyEnv() {
	setString(&c.Server.Addr, "LISTEN_ADDR")
	setInt64(&c.Server.MaxUploadBytes, "MAX_UPLOAD_BYTES")
	setString(&c.Storage.Backend, "STORAGE_BACKEND")
	setString(&c.Storage.Local.BaseDir, "UPLOAD_DIR")
	setString(&c.Storage.S3.Bucket, "S3_BUCKET")
	setString(&c.Storage.S3.Region, "S3_REGION")
	setString(&c.Storage.S3.Endpoint, "S3_ENDPOINT")
	setString(&c.Storage.S3.AccessKey, "S3_ACCESS_KEY")
	setString(&c.Storage.S3.SecretKey, "S3_SECRET_KEY")
	setString(&c.Storage.S3.SigningAccessKey, "S3_SIGNING_ACCESS_KEY")
	setString(&c.Storage.S3.SigningSecretKey, "S3_SIGNING_SECRET_KEY")
	setString(&c.DB.Path, "DB_PATH")
	setString(&c.Redis.URL, "REDIS_URL")
	setInt64(&c.Quota.DailyLimit, "QUOTA_DAILY_LIMIT")
	setString(&c.Log.Level, "LOG_LEVEL")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func (c *Config) validate() error {
	switch c.Storage.Backend {
	case "local":
		if c.Storage.Local.BaseDir == "" {
			return fmt.Errorf("%w: storage.local.base_dir is required", ErrInvalidConfig)
		}
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("%w: storage.s3.bucket is required", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown storage backend %q", ErrInvalidConfig, c.Storage.Backend)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("%w: server.max_upload_bytes must be positive", ErrInvalidConfig)
	}
	if len(c.Server.AllowedTypePrefixes) == 0 {
		return fmt.Errorf("%w: server.allowed_type_prefixes must not be empty", ErrInvalidConfig)
	}
	if c.DB.Path == "" {
		return fmt.Errorf("%w: db.path is required", ErrInvalidConfig)
	}
	if c.Quota.DailyLimit <= 0 {
		return fmt.Errorf("%w: quota.daily_limit must be positive", ErrInvalidConfig)
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

// LogLevel parses the configured level name into a slog.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.Log.Level)
	}
}
