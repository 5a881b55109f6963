package cmd

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rohmanhakim/image-cache/internal/build"
	"github.com/rohmanhakim/image-cache/internal/config"
	"github.com/rohmanhakim/image-cache/internal/fetcher"
	"github.com/rohmanhakim/image-cache/internal/imagecache"
	"github.com/rohmanhakim/image-cache/internal/keycodec"
	"github.com/rohmanhakim/image-cache/internal/logging"
	"github.com/rohmanhakim/image-cache/internal/metadata"
	"github.com/rohmanhakim/image-cache/internal/metrics"
	"github.com/rohmanhakim/image-cache/internal/recency"
	"github.com/rohmanhakim/image-cache/internal/store"
	"github.com/rohmanhakim/image-cache/pkg/failure"
	"github.com/rohmanhakim/image-cache/pkg/hashutil"
	"github.com/rohmanhakim/image-cache/pkg/retry"
	"github.com/rohmanhakim/image-cache/pkg/timeutil"
)

var (
	cfgFile       string
	cacheDir      string
	capacity      int
	hashAlgo      string
	timeout       time.Duration
	userAgent     string
	maxAttempt    int
	baseDelay     time.Duration
	jitter        time.Duration
	randomSeed    int64
	logLevel      string
	logFilePath   string
	metricsListen string
	forceRefresh  bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "image-cache",
	Short: "A disk-backed LRU cache for images fetched over HTTP.",
	Long: `image-cache maps image URLs to locally stored files. A URL that was
downloaded before is served from disk; anything else is fetched over
HTTP, persisted under a digest-derived filename, and tracked in a
bounded least-recently-used index. When the cache is full the least
recently requested image is evicted to make room.`,
	Version: build.FullVersion(),
}

var getCmd = &cobra.Command{
	Use:   "get <url>",
	Short: "Resolve a URL to a local file path, fetching it on a miss",
	Args:  cobra.ExactArgs(1),
	RunE: func(cobraCmd *cobra.Command, args []string) error {
		return runFetch(cobraCmd, args[0], false)
	},
}

var fetchCmd = &cobra.Command{
	Use:   "fetch <url>",
	Short: "Fetch a URL into the cache, optionally bypassing the cached copy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cobraCmd *cobra.Command, args []string) error {
		return runFetch(cobraCmd, args[0], forceRefresh)
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached artifact",
	Args:  cobra.NoArgs,
	RunE: func(cobraCmd *cobra.Command, args []string) error {
		cfg := InitConfig()
		app, err := buildApp(cfg)
		if err != nil {
			return err
		}
		if clearErr := app.cache.Clear(); clearErr != nil {
			return fmt.Errorf("clear failed: %s", clearErr.Error())
		}
		fmt.Fprintf(cobraCmd.OutOrStdout(), "Cleared cache directory %s\n", cfg.CacheDir())
		return nil
	},
}

var sizeCmd = &cobra.Command{
	Use:   "size",
	Short: "Report the number of cached artifacts on disk",
	Args:  cobra.NoArgs,
	RunE: func(cobraCmd *cobra.Command, args []string) error {
		cfg := InitConfig()
		app, err := buildApp(cfg)
		if err != nil {
			return err
		}
		files, listErr := app.diskStore.ListFiles()
		if listErr != nil {
			return fmt.Errorf("listing cache directory failed: %s", listErr.Error())
		}
		fmt.Fprintf(cobraCmd.OutOrStdout(), "Cache directory: %s\n", cfg.CacheDir())
		fmt.Fprintf(cobraCmd.OutOrStdout(), "Artifacts on disk: %d\n", len(files))
		fmt.Fprintf(cobraCmd.OutOrStdout(), "Capacity: %d\n", cfg.Capacity())
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "config file path (e.g., /home/myuser/config.json)")
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", "", "directory in which to store cached images")
	rootCmd.PersistentFlags().IntVar(&capacity, "capacity", 0, "maximum number of cached images before eviction")
	rootCmd.PersistentFlags().StringVar(&hashAlgo, "hash-algo", "", "digest algorithm for cache filenames (sha256 or blake3)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "timeout for HTTP requests")
	rootCmd.PersistentFlags().StringVar(&userAgent, "user-agent", "", "user agent string for HTTP requests")
	rootCmd.PersistentFlags().IntVar(&maxAttempt, "max-attempt", 0, "maximum fetch attempts per URL")
	rootCmd.PersistentFlags().DurationVar(&baseDelay, "base-delay", 0, "base delay between fetch attempts")
	rootCmd.PersistentFlags().DurationVar(&jitter, "jitter", 0, "random jitter added to the backoff delay")
	rootCmd.PersistentFlags().Int64Var(&randomSeed, "random-seed", 0, "seed for random number generation (0 for current time)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "minimum log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFilePath, "log-file", "", "log file path (empty logs to stderr)")
	rootCmd.PersistentFlags().StringVar(&metricsListen, "metrics-listen", "", "listen address for the Prometheus endpoint (empty disables it)")

	fetchCmd.Flags().BoolVar(&forceRefresh, "force-refresh", false, "refetch even when a cached copy exists")

	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(sizeCmd)
}

// app bundles the wired components one command invocation works with.
type app struct {
	cache     *imagecache.Cache
	diskStore *store.DiskStore
	metrics   *metrics.Metrics
	cfg       config.Config
}

func buildApp(cfg config.Config) (*app, error) {
	logger, err := logging.InitLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("error initializing logger: %w", err)
	}

	m := metrics.New()
	recorder := metadata.NewRecorder(logger, m)

	codec, err := keycodec.NewCodec(cfg.CacheDir(), cfg.HashAlgo())
	if err != nil {
		return nil, fmt.Errorf("error initializing key codec: %w", err)
	}

	index, err := recency.NewIndex(cfg.Capacity())
	if err != nil {
		return nil, fmt.Errorf("error initializing recency index: %w", err)
	}

	diskStore, storeErr := store.NewDiskStore(cfg.CacheDir(), &recorder)
	if storeErr != nil {
		return nil, fmt.Errorf("error initializing disk store: %s", storeErr.Error())
	}

	imageFetcher := fetcher.NewImageFetcher(&recorder, cfg.Timeout(), cfg.UserAgent())
	cache := imagecache.New(codec, index, diskStore, &imageFetcher, &recorder)

	return &app{
		cache:     cache,
		diskStore: diskStore,
		metrics:   m,
		cfg:       cfg,
	}, nil
}

func runFetch(cobraCmd *cobra.Command, rawURL string, force bool) error {
	cfg := InitConfig()
	app, err := buildApp(cfg)
	if err != nil {
		return err
	}

	if cfg.MetricsListen() != "" {
		serveMetrics(cfg.MetricsListen(), app.metrics)
	}

	retryParam := retry.NewRetryParam(
		cfg.BaseDelay(),
		cfg.Jitter(),
		cfg.RandomSeed(),
		cfg.MaxAttempt(),
		timeutil.NewBackoffParam(
			cfg.BackoffInitialDuration(),
			cfg.BackoffMultiplier(),
			cfg.BackoffMaxDuration(),
		),
	)

	path, fetchErr := retry.Retry(retryParam, func() (string, failure.ClassifiedError) {
		return app.cache.Fetch(cobraCmd.Context(), rawURL, force)
	})
	if fetchErr != nil {
		return fmt.Errorf("fetch failed: %s", fetchErr.Error())
	}

	fmt.Fprintln(cobraCmd.OutOrStdout(), path)
	return nil
}

// serveMetrics exposes the Prometheus endpoint for the lifetime of the
// process. Serve errors surface on stderr; they never fail the command.
func serveMetrics(addr string, m *metrics.Metrics) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			fmt.Fprintf(os.Stderr, "metrics_listen: %v\n", err)
		}
	}()
}

// InitConfig builds the configuration from the config file or CLI flags.
func InitConfig() config.Config {
	cfg, err := InitConfigWithError()
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		os.Exit(1)
	}
	return cfg
}

// InitConfigWithError builds the configuration from the config file or
// CLI flags, returning any errors. This makes it easier to test error
// cases.
func InitConfigWithError() (config.Config, error) {
	if cfgFile != "" {
		cfg, err := config.WithConfigFile(cfgFile)
		if err != nil {
			return cfg, fmt.Errorf("error initializing config from file: %w", err)
		}
		return cfg, nil
	}

	// Start with default config and apply overrides using method chaining
	configBuilder := config.WithDefault()

	// Override with CLI flag values where provided
	if cacheDir != "" {
		configBuilder = configBuilder.WithCacheDir(cacheDir)
	}

	if capacity > 0 {
		configBuilder = configBuilder.WithCapacity(capacity)
	}

	if hashAlgo != "" {
		configBuilder = configBuilder.WithHashAlgo(hashutil.HashAlgo(hashAlgo))
	}

	if timeout > 0 {
		configBuilder = configBuilder.WithTimeout(timeout)
	}

	if userAgent != "" {
		configBuilder = configBuilder.WithUserAgent(userAgent)
	}

	if maxAttempt > 0 {
		configBuilder = configBuilder.WithMaxAttempt(maxAttempt)
	}

	if baseDelay > 0 {
		configBuilder = configBuilder.WithBaseDelay(baseDelay)
	}

	if jitter > 0 {
		configBuilder = configBuilder.WithJitter(jitter)
	}

	if randomSeed != 0 {
		configBuilder = configBuilder.WithRandomSeed(randomSeed)
	}

	if logLevel != "" {
		configBuilder = configBuilder.WithLogLevel(logLevel)
	}

	if logFilePath != "" {
		configBuilder = configBuilder.WithLogFilePath(logFilePath)
	}

	if metricsListen != "" {
		configBuilder = configBuilder.WithMetricsListen(metricsListen)
	}

	cfg, err := configBuilder.Build()
	if err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func ResetFlags() {
	cfgFile = ""
	cacheDir = ""
	capacity = 0
	hashAlgo = ""
	timeout = 0
	userAgent = ""
	maxAttempt = 0
	baseDelay = 0
	jitter = 0
	randomSeed = 0
	logLevel = ""
	logFilePath = ""
	metricsListen = ""
	forceRefresh = false
}

// Test helper functions to set flag values from tests
func SetConfigFileForTest(path string) {
	cfgFile = path
}

func SetCacheDirForTest(dir string) {
	cacheDir = dir
}

func SetCapacityForTest(c int) {
	capacity = c
}

func SetHashAlgoForTest(algo string) {
	hashAlgo = algo
}

func SetTimeoutForTest(t time.Duration) {
	timeout = t
}

func SetUserAgentForTest(agent string) {
	userAgent = agent
}

func SetMaxAttemptForTest(attempts int) {
	maxAttempt = attempts
}

func SetRandomSeedForTest(seed int64) {
	randomSeed = seed
}

func SetLogLevelForTest(level string) {
	logLevel = level
}

func SetMetricsListenForTest(addr string) {
	metricsListen = addr
}
