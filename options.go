package viewstate

// Option configures a Bag or Composite.
type Option func(*config)

type config struct {
	name   string
	logger Logger
}

func applyOptions(opts []Option) config {
	cfg := config{logger: noopLogger{}}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	cfg.logger = loggerOrNoop(cfg.logger)
	return cfg
}

// WithName labels the store in logs and corruption errors.
func WithName(name string) Option {
	return func(cfg *config) {
		cfg.name = name
	}
}

// WithLogger attaches a logger. A nil logger disables logging.
func WithLogger(logger Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}
