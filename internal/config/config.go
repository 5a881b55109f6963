package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rohmanhakim/image-cache/pkg/hashutil"
)

type Config struct {
	//===============
	// Cache
	//===============
	// Root directory in which to store fetched artifacts
	cacheDir string
	// Maximum number of artifacts retained before the least recently
	// used one is evicted
	capacity int
	// Digest algorithm used to derive filenames from URLs
	hashAlgo hashutil.HashAlgo

	//===============
	// Fetch
	//===============
	// Maximum time of a single fetch request, body read included
	timeout time.Duration
	// User agent that will be used in the request header. In raw string
	userAgent string

	//===============
	// Retry
	//===============
	// Minimum, fixed waiting time enforced between two attempts
	baseDelay time.Duration
	// Randomized variation added on top of the backoff delay.
	// Intentional randomness applied to timing.
	jitter time.Duration
	// Controls the random number generator
	randomSeed int64
	// maximum attempt during retry
	maxAttempt int
	// initial delay for backoff
	backoffInitialDuration time.Duration
	// multiplier during exponential backoff
	backoffMultiplier float64
	// capped maximum delay for backoff to stop exponential multiplication
	backoffMaxDuration time.Duration

	//===============
	// Observability
	//===============
	// Minimum severity that reaches the log output
	logLevel string
	// Destination file for structured logs. Empty means stderr
	logFilePath string
	// Maximum size in megabytes of a log file before rotation
	logMaxSizeMB int
	// Number of rotated log files to retain
	logMaxBackups int
	// Whether rotated log files are gzipped
	logCompress bool
	// Listen address for the Prometheus endpoint. Empty disables it
	metricsListen string
}

type configDTO struct {
	CacheDir               string        `json:"cacheDir,omitempty"`
	Capacity               int           `json:"capacity,omitempty"`
	HashAlgo               string        `json:"hashAlgo,omitempty"`
	Timeout                time.Duration `json:"timeout,omitempty"`
	UserAgent              string        `json:"userAgent,omitempty"`
	BaseDelay              time.Duration `json:"baseDelay,omitempty"`
	Jitter                 time.Duration `json:"jitter,omitempty"`
	RandomSeed             int64         `json:"randomSeed,omitempty"`
	MaxAttempt             int           `json:"maxAttempt,omitempty"`
	BackoffInitialDuration time.Duration `json:"backoffInitialDuration,omitempty"`
	BackoffMultiplier      float64       `json:"backoffMultiplier,omitempty"`
	BackoffMaxDuration     time.Duration `json:"backoffMaxDuration,omitempty"`
	LogLevel               string        `json:"logLevel,omitempty"`
	LogFilePath            string        `json:"logFilePath,omitempty"`
	LogMaxSizeMB           int           `json:"logMaxSizeMB,omitempty"`
	LogMaxBackups          int           `json:"logMaxBackups,omitempty"`
	LogCompress            bool          `json:"logCompress,omitempty"`
	MetricsListen          string        `json:"metricsListen,omitempty"`
}

func newConfigFromDTO(dto configDTO) (Config, error) {

	// Start with default config
	cfg := *WithDefault()

	// For other fields, only override if non-zero value is provided
	if dto.CacheDir != "" {
		cfg.cacheDir = dto.CacheDir
	}
	if dto.Capacity != 0 {
		cfg.capacity = dto.Capacity
	}
	if dto.HashAlgo != "" {
		cfg.hashAlgo = hashutil.HashAlgo(dto.HashAlgo)
	}
	if dto.Timeout != 0 {
		cfg.timeout = dto.Timeout
	}
	if dto.UserAgent != "" {
		cfg.userAgent = dto.UserAgent
	}
	if dto.BaseDelay != 0 {
		cfg.baseDelay = dto.BaseDelay
	}
	if dto.Jitter != 0 {
		cfg.jitter = dto.Jitter
	}
	if dto.RandomSeed != 0 {
		cfg.randomSeed = dto.RandomSeed
	}
	if dto.MaxAttempt != 0 {
		cfg.maxAttempt = dto.MaxAttempt
	}
	if dto.BackoffInitialDuration != 0 {
		cfg.backoffInitialDuration = dto.BackoffInitialDuration
	}
	if dto.BackoffMultiplier != 0 {
		cfg.backoffMultiplier = dto.BackoffMultiplier
	}
	if dto.BackoffMaxDuration != 0 {
		cfg.backoffMaxDuration = dto.BackoffMaxDuration
	}
	if dto.LogLevel != "" {
		cfg.logLevel = dto.LogLevel
	}
	if dto.LogFilePath != "" {
		cfg.logFilePath = dto.LogFilePath
	}
	if dto.LogMaxSizeMB != 0 {
		cfg.logMaxSizeMB = dto.LogMaxSizeMB
	}
	if dto.LogMaxBackups != 0 {
		cfg.logMaxBackups = dto.LogMaxBackups
	}
	// LogCompress is a boolean, use the DTO value as-is since bool zero value is false
	cfg.logCompress = dto.LogCompress
	if dto.MetricsListen != "" {
		cfg.metricsListen = dto.MetricsListen
	}

	return cfg.Build()
}

func WithConfigFile(path string) (Config, error) {
	_, err := os.Stat(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrFileDoesNotExist, err.Error())
	}
	configContent, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrReadConfigFail, err.Error())
	}
	cfgDTO := configDTO{}

	err = json.Unmarshal(configContent, &cfgDTO)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
	}

	cfg, err := newConfigFromDTO(cfgDTO)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// WithDefault creates a new Config with default values for all fields.
func WithDefault() *Config {
	defaultConfig := Config{
		cacheDir:               "cache",
		capacity:               100,
		hashAlgo:               hashutil.HashAlgoSHA256,
		timeout:                time.Second * 10,
		userAgent:              "image-cache/1.0",
		baseDelay:              time.Second,
		jitter:                 time.Millisecond * 500,
		randomSeed:             time.Now().UnixNano(),
		maxAttempt:             3,
		backoffInitialDuration: 100 * time.Millisecond,
		backoffMultiplier:      2.0,
		backoffMaxDuration:     10 * time.Second,
		logLevel:               "info",
		logFilePath:            "",
		logMaxSizeMB:           10,
		logMaxBackups:          3,
		logCompress:            false,
		metricsListen:          "",
	}
	return &defaultConfig
}

func (c *Config) WithCacheDir(dir string) *Config {
	c.cacheDir = dir
	return c
}

func (c *Config) WithCapacity(capacity int) *Config {
	c.capacity = capacity
	return c
}

func (c *Config) WithHashAlgo(algo hashutil.HashAlgo) *Config {
	c.hashAlgo = algo
	return c
}

func (c *Config) WithTimeout(timeout time.Duration) *Config {
	c.timeout = timeout
	return c
}

func (c *Config) WithUserAgent(agent string) *Config {
	c.userAgent = agent
	return c
}

func (c *Config) WithBaseDelay(delay time.Duration) *Config {
	c.baseDelay = delay
	return c
}

func (c *Config) WithJitter(jitter time.Duration) *Config {
	c.jitter = jitter
	return c
}

func (c *Config) WithRandomSeed(seed int64) *Config {
	c.randomSeed = seed
	return c
}

func (c *Config) WithMaxAttempt(attempts int) *Config {
	c.maxAttempt = attempts
	return c
}

func (c *Config) WithBackoffInitialDuration(duration time.Duration) *Config {
	c.backoffInitialDuration = duration
	return c
}

func (c *Config) WithBackoffMultiplier(multiplier float64) *Config {
	c.backoffMultiplier = multiplier
	return c
}

func (c *Config) WithBackoffMaxDuration(duration time.Duration) *Config {
	c.backoffMaxDuration = duration
	return c
}

func (c *Config) WithLogLevel(level string) *Config {
	c.logLevel = level
	return c
}

func (c *Config) WithLogFilePath(path string) *Config {
	c.logFilePath = path
	return c
}

func (c *Config) WithLogMaxSizeMB(sizeMB int) *Config {
	c.logMaxSizeMB = sizeMB
	return c
}

func (c *Config) WithLogMaxBackups(backups int) *Config {
	c.logMaxBackups = backups
	return c
}

func (c *Config) WithLogCompress(compress bool) *Config {
	c.logCompress = compress
	return c
}

func (c *Config) WithMetricsListen(addr string) *Config {
	c.metricsListen = addr
	return c
}

func (c *Config) Build() (Config, error) {
	if c.cacheDir == "" {
		return Config{}, fmt.Errorf("%w: cacheDir cannot be empty", ErrInvalidConfig)
	}
	if c.capacity < 1 {
		return Config{}, fmt.Errorf("%w: capacity must be at least 1, got %d", ErrInvalidConfig, c.capacity)
	}
	if !hashutil.ValidAlgo(c.hashAlgo) {
		return Config{}, fmt.Errorf("%w: unknown hash algorithm %q", ErrInvalidConfig, c.hashAlgo)
	}
	if c.maxAttempt < 1 {
		return Config{}, fmt.Errorf("%w: maxAttempt must be at least 1, got %d", ErrInvalidConfig, c.maxAttempt)
	}

	return *c, nil
}

func (c Config) CacheDir() string {
	return c.cacheDir
}

func (c Config) Capacity() int {
	return c.capacity
}

func (c Config) HashAlgo() hashutil.HashAlgo {
	return c.hashAlgo
}

func (c Config) Timeout() time.Duration {
	return c.timeout
}

func (c Config) UserAgent() string {
	return c.userAgent
}

func (c Config) BaseDelay() time.Duration {
	return c.baseDelay
}

func (c Config) Jitter() time.Duration {
	return c.jitter
}

func (c Config) RandomSeed() int64 {
	return c.randomSeed
}

func (c Config) MaxAttempt() int {
	return c.maxAttempt
}

func (c Config) BackoffInitialDuration() time.Duration {
	return c.backoffInitialDuration
}

func (c Config) BackoffMultiplier() float64 {
	return c.backoffMultiplier
}

func (c Config) BackoffMaxDuration() time.Duration {
	return c.backoffMaxDuration
}

func (c Config) LogLevel() string {
	return c.logLevel
}

func (c Config) LogFilePath() string {
	return c.logFilePath
}

func (c Config) LogMaxSizeMB() int {
	return c.logMaxSizeMB
}

func (c Config) LogMaxBackups() int {
	return c.logMaxBackups
}

func (c Config) LogCompress() bool {
	return c.logCompress
}

func (c Config) MetricsListen() string {
	return c.metricsListen
}
