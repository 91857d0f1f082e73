package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/scheddev/sched-go/internal/scheduler"
)

// Config holds application configuration
type Config struct {
	ClientID        string
	ResourceID      string
	ResourceGroupID string
	Environment     string
	DemoMode        bool
	Timezone        string
	RangePolicy     string
	HTTPTimeout     time.Duration
	LogLevel        string

	// Optional snapshot pub/sub
	RedisAddr     string
	RedisPassword string

	MetricsAddr string

	// Mock service
	MockPort        string
	MockJWTSecret   string
	MockCORSOrigins []string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		ClientID:        getEnv("SCHED_CLIENT_ID", ""),
		ResourceID:      getEnv("SCHED_RESOURCE_ID", ""),
		ResourceGroupID: getEnv("SCHED_RESOURCE_GROUP_ID", ""),
		Environment:     getEnv("SCHED_ENV", string(scheduler.EnvProduction)),
		DemoMode:        getEnvAsBool("SCHED_DEMO_MODE", false),
		Timezone:        getEnv("SCHED_TIMEZONE", "Local"),
		RangePolicy:     getEnv("SCHED_RANGE_POLICY", "month"),
		HTTPTimeout:     getEnvAsDuration("SCHED_HTTP_TIMEOUT", 20*time.Second),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		MetricsAddr:     getEnv("METRICS_ADDR", ""),
		MockPort:        getEnv("MOCK_PORT", "8080"),
		MockJWTSecret:   getEnv("MOCK_JWT_SECRET", "sched-local-dev-secret"),
		MockCORSOrigins: getEnvAsList("MOCK_CORS_ORIGINS", []string{"*"}),
	}
}

// SchedulerConfig validates the session settings. Errors wrap
// scheduler.ErrConfig.
func (c *Config) SchedulerConfig() (scheduler.Config, error) {
	return scheduler.NewConfig(scheduler.ConfigInput{
		ClientID:        c.ClientID,
		ResourceID:      c.ResourceID,
		ResourceGroupID: c.ResourceGroupID,
		Environment:     c.Environment,
		DemoMode:        c.DemoMode,
	})
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
