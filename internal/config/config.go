package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the configuration of the vipsbridge tools
type Config struct {
	LogLevel  string          `yaml:"log_level"`
	Vips      VipsConfig      `yaml:"vips"`
	Processor ProcessorConfig `yaml:"processor"`
	Cache     CacheConfig     `yaml:"cache"`
}

// VipsConfig holds the engine settings passed to vips.Startup
type VipsConfig struct {
	Concurrency   int  `yaml:"concurrency"`
	MaxCacheFiles int  `yaml:"max_cache_files"`
	MaxCacheMem   int  `yaml:"max_cache_mem"`
	MaxCacheSize  int  `yaml:"max_cache_size"`
	ReportLeaks   bool `yaml:"report_leaks"`
}

// ProcessorConfig sizes the worker queue
type ProcessorConfig struct {
	Workers int           `yaml:"workers"`
	Timeout time.Duration `yaml:"timeout"`
	// Comment is written as the EXIF user comment of every output
	Comment string `yaml:"comment"`
	// Preset names one of vips.ExportPresets
	Preset string `yaml:"preset"`
}

// CacheConfig selects the output cache backend
type CacheConfig struct {
	Backend       string        `yaml:"backend"` // "memory", "redis" or "none"
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	TTL           time.Duration `yaml:"ttl"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Vips: VipsConfig{
			Concurrency: 1,
		},
		Processor: ProcessorConfig{
			Workers: 4,
			Timeout: 30 * time.Second,
			Preset:  "jpeg",
		},
		Cache: CacheConfig{
			Backend:   "memory",
			RedisAddr: "localhost:6379",
			TTL:       24 * time.Hour,
		},
	}
}

// Load reads the YAML file at path on top of the defaults, then applies
// environment overrides. A .env file in the working directory is loaded
// first if present. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	// a missing .env is fine
	_ = godotenv.Load()

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.LogLevel = getEnv("VIPSBRIDGE_LOG_LEVEL", c.LogLevel)
	c.Vips.Concurrency = getEnvAsInt("VIPSBRIDGE_VIPS_CONCURRENCY", c.Vips.Concurrency)
	c.Processor.Workers = getEnvAsInt("VIPSBRIDGE_WORKERS", c.Processor.Workers)
	c.Processor.Timeout = getDuration("VIPSBRIDGE_TIMEOUT", c.Processor.Timeout)
	c.Processor.Comment = getEnv("VIPSBRIDGE_COMMENT", c.Processor.Comment)
	c.Processor.Preset = getEnv("VIPSBRIDGE_PRESET", c.Processor.Preset)
	c.Cache.Backend = getEnv("VIPSBRIDGE_CACHE", c.Cache.Backend)
	c.Cache.RedisAddr = getEnv("VIPSBRIDGE_REDIS_ADDR", c.Cache.RedisAddr)
	c.Cache.RedisPassword = getEnv("VIPSBRIDGE_REDIS_PASSWORD", c.Cache.RedisPassword)
	c.Cache.RedisDB = getEnvAsInt("VIPSBRIDGE_REDIS_DB", c.Cache.RedisDB)
	c.Cache.TTL = getDuration("VIPSBRIDGE_CACHE_TTL", c.Cache.TTL)
}

// Validate reports the first invalid setting
func (c *Config) Validate() error {
	if c.Processor.Workers < 1 {
		return fmt.Errorf("processor.workers must be at least 1, got %d", c.Processor.Workers)
	}
	if c.Processor.Timeout < 0 {
		return fmt.Errorf("processor.timeout must not be negative")
	}
	switch c.Cache.Backend {
	case "memory", "redis", "none":
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}
