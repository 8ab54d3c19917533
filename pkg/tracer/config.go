package tracer

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/JailtonJunior94/pointkit/pkg/point"
	"github.com/joho/godotenv"
)

var (
	// ErrServiceNameEmpty is returned by Validate for a config without a service name.
	ErrServiceNameEmpty = errors.New("tracer: service name cannot be empty")

	// ErrInvalidTimeout is returned by Validate for non-positive timeouts.
	ErrInvalidTimeout = errors.New("tracer: timeouts must be positive")

	// ErrInvalidStack is returned by Validate for negative stack bounds.
	ErrInvalidStack = errors.New("tracer: stack bounds cannot be negative")
)

// Config holds the tracer control settings.
// Environment variables read by ConfigFromEnv:
//   - SERVICE_NAME: service name (default: "unknown")
//   - POINT_ENABLED: start enabled (default: true)
//   - POINT_DEBUG: log own errors in detail (default: false)
//   - POINT_COLLECT_TRACE: capture caller frames (default: false)
//   - POINT_CONNECT_TIMEOUT: max time Connect retries the probe (default: 10s)
//   - POINT_POST_TIMEOUT: bound for the POST stage (default: 2s)
//   - POINT_RULESETS_FILE: YAML rule sets loaded by the schema engine
//   - POINT_STACK_OFFSET, POINT_STACK_WINDOW, POINT_STACK_MAX_DEPTH
//   - POINT_STACK_IGNORE_FUNCS, POINT_STACK_IGNORE_PACKAGES: comma separated
type Config struct {
	ServiceName    string
	Enabled        bool
	Debug          bool
	CollectTrace   bool
	ConnectTimeout time.Duration
	PostTimeout    time.Duration
	RuleSetsFile   string
	Stack          point.StackConfig
}

// DefaultConfig returns a config for local development.
func DefaultConfig(serviceName string) Config {
	return Config{
		ServiceName:    serviceName,
		Enabled:        true,
		ConnectTimeout: 10 * time.Second,
		PostTimeout:    point.DefaultPostTimeout,
		Stack:          point.DefaultStackConfig(),
	}
}

// ConfigFromEnv loads the given .env files, when any, and reads the
// environment on top of DefaultConfig.
func ConfigFromEnv(files ...string) (Config, error) {
	if len(files) > 0 {
		if err := godotenv.Load(files...); err != nil {
			return Config{}, fmt.Errorf("tracer: load env files: %w", err)
		}
	}

	cfg := DefaultConfig(getEnv("SERVICE_NAME", "unknown"))

	var err error
	if cfg.Enabled, err = getBool("POINT_ENABLED", cfg.Enabled); err != nil {
		return Config{}, err
	}
	if cfg.Debug, err = getBool("POINT_DEBUG", cfg.Debug); err != nil {
		return Config{}, err
	}
	if cfg.CollectTrace, err = getBool("POINT_COLLECT_TRACE", cfg.CollectTrace); err != nil {
		return Config{}, err
	}
	if cfg.ConnectTimeout, err = getDuration("POINT_CONNECT_TIMEOUT", cfg.ConnectTimeout); err != nil {
		return Config{}, err
	}
	if cfg.PostTimeout, err = getDuration("POINT_POST_TIMEOUT", cfg.PostTimeout); err != nil {
		return Config{}, err
	}
	if cfg.Stack.Offset, err = getInt("POINT_STACK_OFFSET", cfg.Stack.Offset); err != nil {
		return Config{}, err
	}
	if cfg.Stack.Window, err = getInt("POINT_STACK_WINDOW", cfg.Stack.Window); err != nil {
		return Config{}, err
	}
	if cfg.Stack.MaxDepth, err = getInt("POINT_STACK_MAX_DEPTH", cfg.Stack.MaxDepth); err != nil {
		return Config{}, err
	}

	cfg.RuleSetsFile = getEnv("POINT_RULESETS_FILE", "")
	cfg.Stack.IgnoreFuncs = getList("POINT_STACK_IGNORE_FUNCS")
	cfg.Stack.IgnorePackages = getList("POINT_STACK_IGNORE_PACKAGES")

	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return ErrServiceNameEmpty
	}
	if c.ConnectTimeout <= 0 || c.PostTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Stack.Offset < 0 || c.Stack.Window < 0 || c.Stack.MaxDepth < 0 {
		return ErrInvalidStack
	}
	return nil
}

// DecoratorOptions turns the config into point.Decorator options.
func (c Config) DecoratorOptions() []point.Option {
	return []point.Option{
		point.WithStack(c.Stack),
		point.WithPostTimeout(c.PostTimeout),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("tracer: %s: %w", key, err)
	}
	return b, nil
}

func getInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("tracer: %s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("tracer: %s: %w", key, err)
	}
	return d, nil
}

func getList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for item := range strings.SplitSeq(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
