package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// MinJWTSecretBytes is the shortest signing secret the server accepts.
const MinJWTSecretBytes = 32

// Config holds application configuration. Values come from an optional YAML
// file first, then from the environment.
type Config struct {
	HTTPPort             string   `yaml:"http_port"`
	DatabaseURL          string   `yaml:"database_url"`
	DBPoolSize           int      `yaml:"db_pool_size"`
	DBMaxIdleConns       int      `yaml:"db_max_idle_conns"`
	DBConnMaxLifetimeMin int      `yaml:"db_conn_max_lifetime_min"`
	RedisURL             string   `yaml:"redis_url"`
	RedisPoolSize        int      `yaml:"redis_pool_size"`
	CacheTTL             int      `yaml:"cache_ttl_sec"` // seconds
	KafkaBrokers         []string `yaml:"kafka_brokers"`
	KafkaTopic           string   `yaml:"kafka_topic"`
	KafkaPartitions      int      `yaml:"kafka_partitions"`
	KafkaGroupID         string   `yaml:"kafka_group_id"`
	JWTSecret            string   `yaml:"jwt_secret"`
	TokenTTLHours        int      `yaml:"token_ttl_hours"`
	CORSOrigin           string   `yaml:"cors_origin"`
	LogLevel             string   `yaml:"log_level"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		HTTPPort:             "8080",
		DBPoolSize:           10,
		DBMaxIdleConns:       5,
		DBConnMaxLifetimeMin: 30,
		RedisPoolSize:        50,
		CacheTTL:             300,
		KafkaTopic:           "todo-events",
		KafkaPartitions:      8,
		KafkaGroupID:         "todo-summary-workers",
		TokenTTLHours:        24,
		CORSOrigin:           "http://localhost:5173",
		LogLevel:             "info",
	}
}

// Load reads path (if non-empty) as YAML over the defaults and then applies
// environment overrides. The result is not validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.HTTPPort = getEnv("HTTP_PORT", c.HTTPPort)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.DBPoolSize = getIntEnv("DB_POOL_SIZE", c.DBPoolSize)
	c.DBMaxIdleConns = getIntEnv("DB_MAX_IDLE_CONNS", c.DBMaxIdleConns)
	c.DBConnMaxLifetimeMin = getIntEnv("DB_CONN_MAX_LIFETIME_MIN", c.DBConnMaxLifetimeMin)
	c.RedisURL = getEnv("REDIS_URL", c.RedisURL)
	c.RedisPoolSize = getIntEnv("REDIS_POOL_SIZE", c.RedisPoolSize)
	c.CacheTTL = getIntEnv("CACHE_TTL_SEC", c.CacheTTL)
	c.KafkaBrokers = getSliceEnv("KAFKA_BROKERS", c.KafkaBrokers)
	c.KafkaTopic = getEnv("KAFKA_TODO_TOPIC", c.KafkaTopic)
	c.KafkaPartitions = getIntEnv("KAFKA_PARTITIONS", c.KafkaPartitions)
	c.KafkaGroupID = getEnv("KAFKA_GROUP_ID", c.KafkaGroupID)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.TokenTTLHours = getIntEnv("TOKEN_TTL_HOURS", c.TokenTTLHours)
	c.CORSOrigin = getEnv("CORS_ORIGIN", c.CORSOrigin)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
}

// Validate reports the first setting that would keep the server from running safely.
func (c *Config) Validate() error {
	secret := strings.TrimSpace(c.JWTSecret)
	if secret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if len(secret) < MinJWTSecretBytes {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", MinJWTSecretBytes)
	}
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.DBPoolSize <= 0 {
		return errors.New("DB_POOL_SIZE must be positive")
	}
	if c.TokenTTLHours <= 0 {
		return errors.New("TOKEN_TTL_HOURS must be positive")
	}
	return nil
}

// TokenTTL is the lifetime of issued bearer tokens.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLHours) * time.Hour
}

// CacheTTLDuration is the expiry applied to cached entries.
func (c *Config) CacheTTLDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// ConnMaxLifetime is how long a pooled DB connection may be reused.
func (c *Config) ConnMaxLifetime() time.Duration {
	return time.Duration(c.DBConnMaxLifetimeMin) * time.Minute
}

// CacheEnabled reports whether a Redis URL was configured.
func (c *Config) CacheEnabled() bool {
	return c.RedisURL != ""
}

// EventsEnabled reports whether Kafka brokers were configured.
func (c *Config) EventsEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// LoadEnvFile reads a .env file and sets env vars (only if not already set).
func LoadEnvFile(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		val = strings.TrimSpace(val)
		if strings.HasPrefix(val, `"`) && strings.HasSuffix(val, `"`) {
			val = strings.Trim(val, `"`)
		} else if strings.HasPrefix(val, "'") && strings.HasSuffix(val, "'") {
			val = strings.Trim(val, "'")
		}
		if os.Getenv(key) == "" {
			_ = os.Setenv(key, val)
		}
	}
}

func getEnv(key, defaultVal string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getSliceEnv(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
