// Package config loads consumer settings from defaults, an optional YAML file and
// environment overrides, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/theory-cloud/bulktransition/pkg/capacity"
	"github.com/theory-cloud/bulktransition/pkg/naming"
)

// FileEnvVar names the environment variable holding the YAML config path.
const FileEnvVar = "BULKQ_CONFIG_FILE"

// SQS receive limits.
const (
	MaxVisibilityTimeoutSeconds = 43200
	MaxWaitTimeSeconds          = 20
)

// Config is the top-level configuration for one consumer deployment.
type Config struct {
	Service   string `yaml:"service"`
	Stage     string `yaml:"stage"`
	Region    string `yaml:"region"`
	AccountID string `yaml:"account_id"`
	QueueHost string `yaml:"queue_host"`

	// QueueURL overrides the derived bulk queue URL.
	QueueURL       string `yaml:"queue_url"`
	TargetQueueURL string `yaml:"target_queue_url"`

	Capacity CapacityConfig `yaml:"capacity"`
	Fetch    FetchConfig    `yaml:"fetch"`
	Log      LogConfig      `yaml:"log"`

	SQSMaxAttempts int `yaml:"sqs_max_attempts"`
}

type CapacityConfig struct {
	ThrottleLimits       map[string]int `yaml:"throttle_limits"`
	DefaultThrottleLimit int            `yaml:"default_throttle_limit"`
	SafeThrottleLimit    float64        `yaml:"safe_throttle_limit"`
	ReserveForDirect     int            `yaml:"reserve_for_direct"`
	RetryCount           int            `yaml:"retry_count"`
	TTLHours             int            `yaml:"ttl_hours"`
	TableName            string         `yaml:"table_name"`
	DynamoEndpoint       string         `yaml:"dynamo_endpoint"`
}

type FetchConfig struct {
	VisibilityTimeoutSeconds int `yaml:"visibility_timeout_seconds"`
	WaitTimeSeconds          int `yaml:"wait_time_seconds"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns built-in defaults.
func Default() *Config {
	return &Config{
		Region: "us-east-1",
		Capacity: CapacityConfig{
			ThrottleLimits:       map[string]int{},
			DefaultThrottleLimit: 10,
			SafeThrottleLimit:    0.8,
			TTLHours:             1,
		},
		Fetch: FetchConfig{
			VisibilityTimeoutSeconds: 900,
			WaitTimeSeconds:          10,
		},
		Log: LogConfig{
			Level: "info",
		},
		SQSMaxAttempts: 3,
	}
}

// Load builds the configuration from defaults, the file named by BULKQ_CONFIG_FILE and the environment.
func Load() (*Config, error) {
	cfg := Default()

	if path := strings.TrimSpace(os.Getenv(FileEnvVar)); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile builds the configuration from defaults and a YAML file, without environment overrides.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.mergeFile(path); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Service) == "" {
		return errors.New("config: service is required")
	}
	if c.QueueURL == "" && (c.AccountID == "" || c.Region == "") {
		return errors.New("config: account_id and region are required when queue_url is not set")
	}
	if c.Capacity.SafeThrottleLimit <= 0 || c.Capacity.SafeThrottleLimit > 1 {
		return fmt.Errorf("config: safe_throttle_limit must be in (0, 1], got %v", c.Capacity.SafeThrottleLimit)
	}
	if c.Capacity.DefaultThrottleLimit < 0 || c.Capacity.ReserveForDirect < 0 || c.Capacity.RetryCount < 0 {
		return errors.New("config: capacity limits, reserve and retry count cannot be negative")
	}
	for service, limit := range c.Capacity.ThrottleLimits {
		if limit < 0 {
			return fmt.Errorf("config: throttle limit for %q cannot be negative", service)
		}
	}
	if v := c.Fetch.VisibilityTimeoutSeconds; v < 0 || v > MaxVisibilityTimeoutSeconds {
		return fmt.Errorf("config: visibility_timeout_seconds must be in [0, %d], got %d", MaxVisibilityTimeoutSeconds, v)
	}
	if v := c.Fetch.WaitTimeSeconds; v < 0 || v > MaxWaitTimeSeconds {
		return fmt.Errorf("config: wait_time_seconds must be in [0, %d], got %d", MaxWaitTimeSeconds, v)
	}
	if c.SQSMaxAttempts < 1 {
		return errors.New("config: sqs_max_attempts must be at least 1")
	}
	return nil
}

// BulkQueueURL returns the configured queue URL or derives it from region, account and service.
func (c *Config) BulkQueueURL() string {
	if c.QueueURL != "" {
		return c.QueueURL
	}
	host := c.QueueHost
	if host == "" {
		host = naming.QueueHost(c.Region)
	}
	return naming.BulkQueueURL(host, c.AccountID, c.Service)
}

// CapacityTableName returns the configured table or <service>-capacity[-<stage>].
func (c *Config) CapacityTableName() string {
	if c.Capacity.TableName != "" {
		return c.Capacity.TableName
	}
	return naming.TableName(c.Service, "capacity", c.Stage)
}

// CapacityGateConfig converts the capacity section for capacity.NewDynamoGate.
func (c *Config) CapacityGateConfig() *capacity.Config {
	limits := make(map[string]int, len(c.Capacity.ThrottleLimits))
	for service, limit := range c.Capacity.ThrottleLimits {
		limits[service] = limit
	}
	return &capacity.Config{
		ThrottleLimits:       limits,
		DefaultThrottleLimit: c.Capacity.DefaultThrottleLimit,
		SafeThrottleLimit:    c.Capacity.SafeThrottleLimit,
		ReserveForDirect:     c.Capacity.ReserveForDirect,
		RetryCount:           c.Capacity.RetryCount,
		TTLHours:             c.Capacity.TTLHours,
	}
}

func applyEnvOverrides(c *Config) error {
	setString(&c.Service, "BULKQ_SERVICE")
	setString(&c.Stage, "BULKQ_STAGE", "STAGE")
	setString(&c.Region, "AWS_REGION")
	setString(&c.AccountID, "BULKQ_ACCOUNT_ID", "AWS_ACCOUNT_ID")
	setString(&c.QueueHost, "BULKQ_QUEUE_HOST")
	setString(&c.QueueURL, "BULKQ_QUEUE_URL")
	setString(&c.TargetQueueURL, "BULKQ_TARGET_QUEUE_URL")
	setString(&c.Capacity.TableName, "BULKQ_CAPACITY_TABLE_NAME", "CAPACITY_TABLE_NAME")
	setString(&c.Capacity.DynamoEndpoint, "BULKQ_DYNAMODB_ENDPOINT", "DYNAMODB_ENDPOINT")
	setString(&c.Log.Level, "BULKQ_LOG_LEVEL")
	setString(&c.Log.Format, "BULKQ_LOG_FORMAT")

	ints := []struct {
		target *int
		key    string
	}{
		{&c.Capacity.DefaultThrottleLimit, "BULKQ_DEFAULT_THROTTLE_LIMIT"},
		{&c.Capacity.ReserveForDirect, "BULKQ_RESERVE_FOR_DIRECT"},
		{&c.Capacity.RetryCount, "BULKQ_CAPACITY_RETRY_COUNT"},
		{&c.Capacity.TTLHours, "BULKQ_CAPACITY_TTL_HOURS"},
		{&c.Fetch.VisibilityTimeoutSeconds, "BULKQ_VISIBILITY_TIMEOUT_SECONDS"},
		{&c.Fetch.WaitTimeSeconds, "BULKQ_WAIT_TIME_SECONDS"},
		{&c.SQSMaxAttempts, "BULKQ_SQS_MAX_ATTEMPTS"},
	}
	for _, item := range ints {
		if err := setInt(item.target, item.key); err != nil {
			return err
		}
	}

	if raw := strings.TrimSpace(os.Getenv("BULKQ_SAFE_THROTTLE_LIMIT")); raw != "" {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("config: BULKQ_SAFE_THROTTLE_LIMIT: %w", err)
		}
		c.Capacity.SafeThrottleLimit = value
	}

	if raw := strings.TrimSpace(os.Getenv("BULKQ_THROTTLE_LIMITS")); raw != "" {
		limits, err := ParseThrottleLimits(raw)
		if err != nil {
			return err
		}
		if c.Capacity.ThrottleLimits == nil {
			c.Capacity.ThrottleLimits = map[string]int{}
		}
		for service, limit := range limits {
			c.Capacity.ThrottleLimits[service] = limit
		}
	}
	return nil
}

// ParseThrottleLimits parses "service=limit" pairs separated by commas.
func ParseThrottleLimits(raw string) (map[string]int, error) {
	out := map[string]int{}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		service, value, ok := strings.Cut(pair, "=")
		service = strings.TrimSpace(service)
		if !ok || service == "" {
			return nil, fmt.Errorf("config: invalid throttle limit %q", pair)
		}
		limit, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("config: invalid throttle limit %q: %w", pair, err)
		}
		out[service] = limit
	}
	return out, nil
}

func setString(target *string, keys ...string) {
	for _, key := range keys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			*target = value
			return
		}
	}
}

func setInt(target *int, key string) error {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*target = value
	return nil
}
