package recurrence

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultSearchHorizon is how many months or years a monthly or yearly
	// search probes before giving up.
	DefaultSearchHorizon = 100
	// DefaultMaxOccurrencesPerEvent caps how many occurrences a single event
	// contributes to one range query.
	DefaultMaxOccurrencesPerEvent = 1000
)

// ErrInvalidConfig is returned when an engine configuration cannot be used.
var ErrInvalidConfig = errors.New("invalid engine config")

// EngineConfig holds configuration options for the recurrence engine
type EngineConfig struct {
	// Cache configuration
	CacheEnabled bool        `yaml:"cache_enabled"`
	CacheConfig  CacheConfig `yaml:"cache"`

	// SearchHorizon bounds every next-occurrence search. Zero means
	// DefaultSearchHorizon.
	SearchHorizon int `yaml:"search_horizon"`
	// MaxOccurrencesPerEvent bounds expansion of a single event. Zero means
	// DefaultMaxOccurrencesPerEvent.
	MaxOccurrencesPerEvent int `yaml:"max_occurrences_per_event"`

	// WeekStart is the first day of a calendar week. It decides which days
	// share a week for weekly recurrences and where week and month views
	// begin.
	WeekStart time.Weekday `yaml:"-"`

	Logger *slog.Logger `yaml:"-"`
}

// DefaultEngineConfig provides sensible defaults for production use
var DefaultEngineConfig = EngineConfig{
	CacheEnabled: true,
	CacheConfig:  DefaultCacheConfig,

	SearchHorizon:          DefaultSearchHorizon,
	MaxOccurrencesPerEvent: DefaultMaxOccurrencesPerEvent,
	WeekStart:              time.Sunday,
}

// HighPerformanceConfig is optimized for high-traffic scenarios
var HighPerformanceConfig = EngineConfig{
	CacheEnabled: true,
	CacheConfig: CacheConfig{
		TTL:             30 * time.Minute, // Longer cache TTL
		MaxEntries:      5000,             // More cache entries
		CleanupInterval: 10 * time.Minute, // Less frequent cleanup
	},

	SearchHorizon:          DefaultSearchHorizon,
	MaxOccurrencesPerEvent: DefaultMaxOccurrencesPerEvent,
	WeekStart:              time.Sunday,
}

// LowMemoryConfig is optimized for memory-constrained environments
var LowMemoryConfig = EngineConfig{
	CacheEnabled: true,
	CacheConfig: CacheConfig{
		TTL:             5 * time.Minute, // Shorter cache TTL
		MaxEntries:      100,             // Fewer cache entries
		CleanupInterval: 2 * time.Minute, // More frequent cleanup
	},

	SearchHorizon:          DefaultSearchHorizon,
	MaxOccurrencesPerEvent: DefaultMaxOccurrencesPerEvent,
	WeekStart:              time.Sunday,
}

// DisabledCacheConfig turns off caching entirely
var DisabledCacheConfig = EngineConfig{
	CacheEnabled: false,
	CacheConfig:  CacheConfig{}, // Not used

	SearchHorizon:          DefaultSearchHorizon,
	MaxOccurrencesPerEvent: DefaultMaxOccurrencesPerEvent,
	WeekStart:              time.Sunday,
}

// Option adjusts an EngineConfig before the engine is built.
type Option func(*EngineConfig)

// WithLogger sets the logger the engine reports diagnostics to.
func WithLogger(logger *slog.Logger) Option {
	return func(c *EngineConfig) {
		c.Logger = logger
	}
}

// WithSearchHorizon sets the number of steps a search may probe.
func WithSearchHorizon(n int) Option {
	return func(c *EngineConfig) {
		c.SearchHorizon = n
	}
}

// WithMaxOccurrences sets the per-event expansion cap.
func WithMaxOccurrences(n int) Option {
	return func(c *EngineConfig) {
		c.MaxOccurrencesPerEvent = n
	}
}

// WithWeekStart sets the first day of the week.
func WithWeekStart(d time.Weekday) Option {
	return func(c *EngineConfig) {
		c.WeekStart = d
	}
}

// WithCache enables the range cache with the given settings.
func WithCache(cfg CacheConfig) Option {
	return func(c *EngineConfig) {
		c.CacheEnabled = true
		c.CacheConfig = cfg
	}
}

// WithoutCache disables the range cache.
func WithoutCache() Option {
	return func(c *EngineConfig) {
		c.CacheEnabled = false
	}
}

// normalize fills zero values with defaults.
func (c EngineConfig) normalize() EngineConfig {
	if c.SearchHorizon <= 0 {
		c.SearchHorizon = DefaultSearchHorizon
	}
	if c.MaxOccurrencesPerEvent <= 0 {
		c.MaxOccurrencesPerEvent = DefaultMaxOccurrencesPerEvent
	}
	if c.WeekStart < time.Sunday || c.WeekStart > time.Saturday {
		c.WeekStart = time.Sunday
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c
}

// Validate reports settings that cannot be normalized into something
// meaningful.
func (c EngineConfig) Validate() error {
	var errs []error
	if c.SearchHorizon < 0 {
		errs = append(errs, fmt.Errorf("%w: search_horizon must not be negative", ErrInvalidConfig))
	}
	if c.MaxOccurrencesPerEvent < 0 {
		errs = append(errs, fmt.Errorf("%w: max_occurrences_per_event must not be negative", ErrInvalidConfig))
	}
	if c.WeekStart < time.Sunday || c.WeekStart > time.Saturday {
		errs = append(errs, fmt.Errorf("%w: week start %d out of range", ErrInvalidConfig, c.WeekStart))
	}
	if c.CacheEnabled {
		if c.CacheConfig.TTL < 0 || c.CacheConfig.CleanupInterval < 0 || c.CacheConfig.MaxEntries < 0 {
			errs = append(errs, fmt.Errorf("%w: cache settings must not be negative", ErrInvalidConfig))
		}
	}
	return errors.Join(errs...)
}

// fileConfig is the YAML shape of EngineConfig.
type fileConfig struct {
	EngineConfig `yaml:",inline"`
	WeekStart    string `yaml:"week_start"`
}

// ParseEngineConfig reads a YAML document into an EngineConfig. Keys that
// are absent keep their DefaultEngineConfig value. Durations are written as
// Go duration strings ("15m") and week_start as a weekday name.
//
//	cache_enabled: true
//	cache:
//	  ttl: 15m
//	  max_entries: 1000
//	  cleanup_interval: 5m
//	search_horizon: 100
//	max_occurrences_per_event: 1000
//	week_start: monday
func ParseEngineConfig(data []byte) (EngineConfig, error) {
	fc := fileConfig{EngineConfig: DefaultEngineConfig}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return EngineConfig{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	cfg := fc.EngineConfig
	if fc.WeekStart != "" {
		wd, err := parseWeekday(fc.WeekStart)
		if err != nil {
			return EngineConfig{}, err
		}
		cfg.WeekStart = wd
	}

	if err := cfg.Validate(); err != nil {
		return EngineConfig{}, err
	}
	return cfg, nil
}

// LoadEngineConfig reads the YAML file at path. See ParseEngineConfig.
func LoadEngineConfig(path string) (EngineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return EngineConfig{}, fmt.Errorf("read engine config: %w", err)
	}
	cfg, err := ParseEngineConfig(data)
	if err != nil {
		return EngineConfig{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func parseWeekday(s string) (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		full := strings.ToLower(d.String())
		if name == full || name == full[:3] {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("%w: unknown week_start %q", ErrInvalidConfig, s)
}

// NewEngineWithConfig creates a new recurrence engine with custom configuration
func NewEngineWithConfig(config EngineConfig, opts ...Option) *Engine {
	for _, opt := range opts {
		opt(&config)
	}
	config = config.normalize()

	var cache *RangeCache
	if config.CacheEnabled {
		cache = NewRangeCache(config.CacheConfig)
	}

	return &Engine{
		cache:  cache,
		config: config,
		logger: config.Logger,
	}
}
