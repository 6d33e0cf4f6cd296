package instrument

import (
	"fmt"
	"log/slog"

	"github.com/VictoriaMetrics/metrics"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-call-history/kv"
	goerrors "github.com/goliatone/go-errors"
	"github.com/puzpuzpuz/xsync/v3"
)

// FailurePolicy decides what happens when the store fails while counting or
// logging a call.
type FailurePolicy string

const (
	// PolicySwallow logs the failure and lets the wrapped operation proceed.
	PolicySwallow FailurePolicy = "swallow"
	// PolicyFail returns a *FailureError to the caller.
	PolicyFail FailurePolicy = "fail"
)

// Config configures an Instrumenter.
type Config struct {
	// Namespace is prefixed (snake_cased, ":" separated) to every key.
	Namespace string
	// FailurePolicy defaults to PolicySwallow when empty.
	FailurePolicy FailurePolicy
}

// DefaultConfig returns a Config without namespace that swallows failures.
func DefaultConfig() Config {
	return Config{FailurePolicy: PolicySwallow}
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	if err := goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&c,
			validation.Field(&c.FailurePolicy, validation.In(PolicySwallow, PolicyFail)),
		)
	}, "invalid instrumentation config"); err != nil {
		return err
	}
	return nil
}

// Option customizes an Instrumenter.
type Option func(*Instrumenter)

// WithLogger sets the logger used for swallowed failures and replay warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Instrumenter) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// WithSerializer replaces the default argument and result serializer.
func WithSerializer(serializer Serializer) Option {
	return func(i *Instrumenter) {
		if serializer != nil {
			i.serializer = serializer
		}
	}
}

// Instrumenter owns the store handle and key namespace shared by the wrappers it
// builds and by Replay. Reading a history through a different Instrumenter
// only works if it points at the same store with the same namespace.
type Instrumenter struct {
	store      kv.Store
	cfg        Config
	prefix     string
	logger     *slog.Logger
	serializer Serializer
	registry   *xsync.MapOf[string, struct{}]
}

// New creates an Instrumenter over store.
func New(store kv.Store, cfg Config, opts ...Option) (*Instrumenter, error) {
	if store == nil {
		return nil, goerrors.New("instrumenter requires a store", goerrors.CategoryBadInput)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.FailurePolicy == "" {
		cfg.FailurePolicy = PolicySwallow
	}

	i := &Instrumenter{
		store:      store,
		cfg:        cfg,
		prefix:     namespacePrefix(cfg.Namespace),
		logger:     slog.Default(),
		serializer: NewDefaultSerializer(),
		registry:   xsync.NewMapOf[string, struct{}](),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Store returns the store every counter and log is written to.
func (i *Instrumenter) Store() kv.Store {
	return i.store
}

// Config returns a copy of the configuration in use.
func (i *Instrumenter) Config() Config {
	return i.cfg
}

// Keys returns the store keys used for identity.
func (i *Instrumenter) Keys(identity string) Keys {
	return keysFor(i.prefix, identity)
}

// Register claims identity on this Instrumenter.
func (i *Instrumenter) Register(identity string) error {
	if identity == "" {
		return ErrInvalidIdentity
	}
	if _, loaded := i.registry.LoadOrStore(identity, struct{}{}); loaded {
		return fmt.Errorf("%w: %s", ErrDuplicateIdentity, identity)
	}
	return nil
}

// Registered reports whether identity was claimed through Register.
func (i *Instrumenter) Registered(identity string) bool {
	_, ok := i.registry.Load(identity)
	return ok
}

// failure applies the failure policy. A nil return means the caller continues.
func (i *Instrumenter) failure(stage Stage, identity string, err error) error {
	fe := &FailureError{Identity: identity, Stage: stage, Err: err}
	failureCounter(stage).Inc()

	if i.cfg.FailurePolicy == PolicyFail {
		return fe
	}

	if logged := goerrors.Wrap(fe, goerrors.CategoryExternal, "instrumentation failure swallowed"); logged != nil {
		logged = logged.WithSeverity(goerrors.SeverityWarning).WithMetadata(map[string]any{
			"identity": identity,
			"stage":    string(stage),
		})
		goerrors.LogBySeverity(i.logger, logged)
	}
	return nil
}

func failureCounter(stage Stage) *metrics.Counter {
	return metrics.GetOrCreateCounter(fmt.Sprintf(`callhistory_instrumentation_failures_total{stage=%q}`, stage))
}

// FailureCount returns how many instrumentation failures were seen for stage
// in this process, across all Instrumenters.
func FailureCount(stage Stage) uint64 {
	return failureCounter(stage).Get()
}
