package filter

import (
	"sync"
	"time"
)

// ProgramCache stores compiled programs keyed by expression.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// MemoryCache is a concurrency-safe ProgramCache without eviction.
type MemoryCache struct {
	programs sync.Map
}

// NewMemoryCache constructs an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{}
}

func (c *MemoryCache) Get(key string) (any, bool) {
	return c.programs.Load(key)
}

func (c *MemoryCache) Set(key string, value any) {
	c.programs.Store(key, value)
}

// LogEvent describes one evaluation for logging.
type LogEvent struct {
	Engine   string
	Expr     string
	View     string
	Duration time.Duration
	Err      error
}

// Logger records evaluation events.
type Logger interface {
	LogEvaluation(LogEvent)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(LogEvent)

// LogEvaluation implements Logger.
func (f LoggerFunc) LogEvaluation(event LogEvent) {
	if f != nil {
		f(event)
	}
}

type noopLogger struct{}

func (noopLogger) LogEvaluation(LogEvent) {}

// Option configures an evaluator.
type Option func(*evaluatorConfig)

type evaluatorConfig struct {
	cache    ProgramCache
	registry *FunctionRegistry
	logger   Logger
}

func applyOptions(opts []Option) evaluatorConfig {
	cfg := evaluatorConfig{logger: noopLogger{}}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = noopLogger{}
	}
	return cfg
}

// WithProgramCache reuses compiled programs across evaluations.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *evaluatorConfig) {
		cfg.cache = cache
	}
}

// WithFunctionRegistry exposes registry functions to expressions.
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(cfg *evaluatorConfig) {
		if registry == nil {
			return
		}
		cfg.registry = registry.Clone()
	}
}

// WithLogger records each evaluation.
func WithLogger(logger Logger) Option {
	return func(cfg *evaluatorConfig) {
		cfg.logger = logger
	}
}
