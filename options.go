package settings

import (
	"log/slog"

	"github.com/goliatone/go-settings/pkg/activity"
	"github.com/goliatone/go-settings/rules"
	"github.com/goliatone/go-settings/tenant"
)

// Option configures a Store.
type Option func(*storeConfig)

type storeConfig struct {
	directory     tenant.Directory
	notifier      Notifier
	logger        *slog.Logger
	activityHooks activity.Hooks
	channel       string
	evaluator     rules.Evaluator
	defaultLabel  string
}

func applyOptions(opts []Option) storeConfig {
	cfg := storeConfig{defaultLabel: "default user"}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	if cfg.directory == nil {
		cfg.directory = tenant.NewStatic("")
	}
	if cfg.evaluator == nil {
		cfg.evaluator = rules.NewExprEvaluator(rules.WithFunctionRegistry(rules.SettingsFunctions()))
	}
	return cfg
}

// WithDirectory sets the source of the active tenant and display labels.
func WithDirectory(directory tenant.Directory) Option {
	return func(cfg *storeConfig) {
		cfg.directory = directory
	}
}

// WithNotifier registers the hook fired after the active tenant loads.
func WithNotifier(notifier Notifier) Option {
	return func(cfg *storeConfig) {
		cfg.notifier = notifier
	}
}

// WithLogger sets the structured logger. Nil keeps the discarding default.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *storeConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithActivityHooks appends lifecycle hooks; nil hooks are ignored.
func WithActivityHooks(hooks ...activity.ActivityHook) Option {
	return func(cfg *storeConfig) {
		for _, hook := range hooks {
			if hook != nil {
				cfg.activityHooks = append(cfg.activityHooks, hook)
			}
		}
	}
}

// WithActivityChannel overrides the channel stamped on lifecycle events.
func WithActivityChannel(channel string) Option {
	return func(cfg *storeConfig) {
		cfg.channel = channel
	}
}

// WithEvaluator sets the engine used by Store.Evaluate.
func WithEvaluator(evaluator rules.Evaluator) Option {
	return func(cfg *storeConfig) {
		cfg.evaluator = evaluator
	}
}

// WithDefaultLabel sets how the default tenant is named in logs.
func WithDefaultLabel(label string) Option {
	return func(cfg *storeConfig) {
		if label != "" {
			cfg.defaultLabel = label
		}
	}
}
