// Package config loads variator settings from defaults, an optional YAML
// file and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"image/png"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/fpang/photo-variator/internal/archive"
	"github.com/fpang/photo-variator/internal/variation"
)

// EnvConfigFile names the optional YAML overlay.
const EnvConfigFile = "VARIATOR_CONFIG"

// Config holds every tunable of the CLI, web server and Lambda.
type Config struct {
	Mode          string `yaml:"mode"`
	Count         int    `yaml:"count"`
	MaxCount      int    `yaml:"max_count"`
	StyleAttempts int    `yaml:"style_attempts"`
	ColorAttempts int    `yaml:"color_attempts"`
	StrictModes   bool   `yaml:"strict_modes"`
	// PNGCompression is one of speed, default, best or none.
	PNGCompression string `yaml:"png_compression"`

	Port        string `yaml:"port"`
	MaxUploadMB int    `yaml:"max_upload_mb"`

	ArchiveNaming      string `yaml:"archive_naming"`
	ArchiveCompression string `yaml:"archive_compression"`

	S3Bucket      string        `yaml:"s3_bucket"`
	PresignExpiry time.Duration `yaml:"presign_expiry"`

	ThumbnailMax int           `yaml:"thumbnail_max"`
	JobTTL       time.Duration `yaml:"job_ttl"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Mode:               "frame",
		Count:              200,
		MaxCount:           1000,
		StyleAttempts:      variation.DefaultStyleAttempts,
		ColorAttempts:      variation.DefaultColorAttempts,
		PNGCompression:     "speed",
		Port:               "8080",
		MaxUploadMB:        25,
		ArchiveNaming:      "plain",
		ArchiveCompression: "deflate",
		PresignExpiry:      time.Hour,
		ThumbnailMax:       256,
		JobTTL:             30 * time.Minute,
	}
}

// Load builds the configuration: defaults, then .env (if present), then the
// YAML file named by VARIATOR_CONFIG, then environment variables.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Mode = getEnv("VARIATOR_MODE", c.Mode)
	c.Count = getEnvInt("VARIATOR_COUNT", c.Count)
	c.MaxCount = getEnvInt("VARIATOR_MAX_COUNT", c.MaxCount)
	c.StyleAttempts = getEnvInt("VARIATOR_STYLE_ATTEMPTS", c.StyleAttempts)
	c.ColorAttempts = getEnvInt("VARIATOR_COLOR_ATTEMPTS", c.ColorAttempts)
	c.StrictModes = getEnvBool("VARIATOR_STRICT_MODES", c.StrictModes)
	c.PNGCompression = getEnv("VARIATOR_PNG_COMPRESSION", c.PNGCompression)
	c.Port = getEnv("PORT", c.Port)
	c.MaxUploadMB = getEnvInt("VARIATOR_MAX_UPLOAD_MB", c.MaxUploadMB)
	c.ArchiveNaming = getEnv("VARIATOR_ARCHIVE_NAMING", c.ArchiveNaming)
	c.ArchiveCompression = getEnv("VARIATOR_ARCHIVE_COMPRESSION", c.ArchiveCompression)
	c.S3Bucket = getEnv("VARIATOR_S3_BUCKET", c.S3Bucket)
	c.PresignExpiry = getEnvDuration("VARIATOR_PRESIGN_EXPIRY", c.PresignExpiry)
	c.ThumbnailMax = getEnvInt("VARIATOR_THUMBNAIL_MAX", c.ThumbnailMax)
	c.JobTTL = getEnvDuration("VARIATOR_JOB_TTL", c.JobTTL)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.MaxCount < 1 {
		errs = append(errs, fmt.Errorf("max_count must be at least 1, got %d", c.MaxCount))
	}
	if c.Count < 1 || c.Count > c.MaxCount {
		errs = append(errs, fmt.Errorf("count must be in [1, %d], got %d", c.MaxCount, c.Count))
	}
	if c.StyleAttempts < 1 {
		errs = append(errs, fmt.Errorf("style_attempts must be at least 1, got %d", c.StyleAttempts))
	}
	if c.ColorAttempts < 1 {
		errs = append(errs, fmt.Errorf("color_attempts must be at least 1, got %d", c.ColorAttempts))
	}
	if c.StrictModes {
		if _, err := variation.ParseMode(c.Mode); err != nil {
			errs = append(errs, err)
		}
	}
	if _, err := pngLevel(c.PNGCompression); err != nil {
		errs = append(errs, err)
	}
	if _, err := archive.ParseNaming(c.ArchiveNaming); err != nil {
		errs = append(errs, err)
	}
	if _, err := archive.ParseCompression(c.ArchiveCompression); err != nil {
		errs = append(errs, err)
	}
	if c.MaxUploadMB < 1 {
		errs = append(errs, fmt.Errorf("max_upload_mb must be at least 1, got %d", c.MaxUploadMB))
	}
	if c.PresignExpiry <= 0 {
		errs = append(errs, fmt.Errorf("presign_expiry must be positive, got %s", c.PresignExpiry))
	}
	if c.JobTTL <= 0 {
		errs = append(errs, fmt.Errorf("job_ttl must be positive, got %s", c.JobTTL))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// GeneratorOptions maps the engine settings onto variation.Options.
func (c *Config) GeneratorOptions() variation.Options {
	level, err := pngLevel(c.PNGCompression)
	if err != nil {
		level = png.BestSpeed
	}
	return variation.Options{
		StyleAttempts: c.StyleAttempts,
		ColorAttempts: c.ColorAttempts,
		Strict:        c.StrictModes,
		Compression:   level,
	}
}

// ArchiveOptions maps the archive settings onto archive.Options. Values are
// assumed validated.
func (c *Config) ArchiveOptions() archive.Options {
	naming, _ := archive.ParseNaming(c.ArchiveNaming)
	compression, _ := archive.ParseCompression(c.ArchiveCompression)
	return archive.Options{Naming: naming, Compression: compression}
}

// ParseMode resolves a mode name under the configured strictness. In
// permissive mode unknown names come back as ModeUnknown without error.
func (c *Config) ParseMode(name string) (variation.Mode, error) {
	m, err := variation.ParseMode(name)
	if err != nil && !c.StrictModes {
		return variation.ModeUnknown, nil
	}
	return m, err
}

// MaxUploadBytes is MaxUploadMB in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

func pngLevel(name string) (png.CompressionLevel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "speed":
		return png.BestSpeed, nil
	case "default":
		return png.DefaultCompression, nil
	case "best":
		return png.BestCompression, nil
	case "none":
		return png.NoCompression, nil
	}
	return png.BestSpeed, fmt.Errorf("unknown png_compression %q (want speed, default, best or none)", name)
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
