package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage drivers accepted by STORAGE_DRIVER.
const (
	StorageLocal      = "local"
	StorageCloudinary = "cloudinary"
	StorageOSS        = "oss"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	DatabaseURL            string
	RedisURL               string
	NATSURL                string
	ChannelBase            string
	JWTSecret              string
	PublicBaseURL          string
	CertificateCooldown    time.Duration
	CertificateTimezone    string
	CertificateLocation    *time.Location
	ValidationCacheTTL     time.Duration
	ValidationRateLimit    int
	ValidationRateWindow   time.Duration
	StorageDriver          string
	StorageLocalRoot       string
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	OSSEndpoint            string
	OSSAccessKeyID         string
	OSSAccessKeySecret     string
	OSSBucket              string
	OSSPrefix              string
	RenderSweepSchedule    string
	RenderSweepBatch       int
	TemplateMaxSizeMB      int
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("SIGEA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "SIGEA API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("channel_base", "sigea")
	v.SetDefault("public_base_url", "http://localhost:8080")
	v.SetDefault("certificate.cooldown", "10m")
	v.SetDefault("certificate.timezone", "America/Maceio")
	v.SetDefault("validation.cache_ttl", "10m")
	v.SetDefault("validation.rate_limit", 30)
	v.SetDefault("validation.rate_window", "1m")
	v.SetDefault("storage.driver", StorageLocal)
	v.SetDefault("storage.local_root", "./data")
	v.SetDefault("cloudinary.folder", "sigea/certificates")
	v.SetDefault("render.sweep_schedule", "")
	v.SetDefault("render.sweep_batch", 50)
	v.SetDefault("template.max_size_mb", 10)

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	cooldown, err := parseDuration(v, "certificate.cooldown")
	if err != nil {
		return Config{}, err
	}
	cacheTTL, err := parseDuration(v, "validation.cache_ttl")
	if err != nil {
		return Config{}, err
	}
	rateWindow, err := parseDuration(v, "validation.rate_window")
	if err != nil {
		return Config{}, err
	}

	timezone := strings.TrimSpace(v.GetString("certificate.timezone"))
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return Config{}, fmt.Errorf("invalid certificate timezone %q: %w", timezone, err)
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		ChannelBase:            v.GetString("channel_base"),
		JWTSecret:              v.GetString("jwt.secret"),
		PublicBaseURL:          strings.TrimRight(v.GetString("public_base_url"), "/"),
		CertificateCooldown:    cooldown,
		CertificateTimezone:    timezone,
		CertificateLocation:    location,
		ValidationCacheTTL:     cacheTTL,
		ValidationRateLimit:    v.GetInt("validation.rate_limit"),
		ValidationRateWindow:   rateWindow,
		StorageDriver:          strings.ToLower(strings.TrimSpace(v.GetString("storage.driver"))),
		StorageLocalRoot:       v.GetString("storage.local_root"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		OSSEndpoint:            v.GetString("oss.endpoint"),
		OSSAccessKeyID:         v.GetString("oss.access_key_id"),
		OSSAccessKeySecret:     v.GetString("oss.access_key_secret"),
		OSSBucket:              v.GetString("oss.bucket"),
		OSSPrefix:              v.GetString("oss.prefix"),
		RenderSweepSchedule:    strings.TrimSpace(v.GetString("render.sweep_schedule")),
		RenderSweepBatch:       v.GetInt("render.sweep_batch"),
		TemplateMaxSizeMB:      v.GetInt("template.max_size_mb"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}
	if cfg.CertificateCooldown < 0 {
		return Config{}, fmt.Errorf("certificate cooldown must not be negative")
	}

	switch cfg.StorageDriver {
	case StorageLocal:
		if strings.TrimSpace(cfg.StorageLocalRoot) == "" {
			return Config{}, fmt.Errorf("storage local root must be provided")
		}
	case StorageCloudinary:
		if cfg.CloudinaryCloudName == "" || cfg.CloudinaryAPIKey == "" || cfg.CloudinaryAPISecret == "" {
			return Config{}, fmt.Errorf("cloudinary credentials must be provided")
		}
	case StorageOSS:
		if cfg.OSSEndpoint == "" || cfg.OSSAccessKeyID == "" || cfg.OSSAccessKeySecret == "" || cfg.OSSBucket == "" {
			return Config{}, fmt.Errorf("oss credentials must be provided")
		}
	default:
		return Config{}, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}

	if cfg.ValidationRateLimit <= 0 {
		cfg.ValidationRateLimit = 30
	}
	if cfg.RenderSweepBatch <= 0 {
		cfg.RenderSweepBatch = 50
	}
	if cfg.TemplateMaxSizeMB <= 0 {
		cfg.TemplateMaxSizeMB = 10
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return 0, nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}
