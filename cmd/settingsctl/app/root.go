// Package app implements the settingsctl command line.
package app

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	settings "github.com/goliatone/go-settings"
	"github.com/goliatone/go-settings/persist"
	"github.com/goliatone/go-settings/persist/redisstore"
	"github.com/goliatone/go-settings/pkg/activity"
	"github.com/goliatone/go-settings/registry"
	"github.com/goliatone/go-settings/rules"
	"github.com/goliatone/go-settings/tenant"
)

const programCacheSize = 256

type cli struct {
	v       *viper.Viper
	cfgFile string
}

// session is one command's view of the configured store.
type session struct {
	cfg      Config
	logger   *slog.Logger
	registry *registry.Static
	store    *settings.Store
	cleanup  []func() error
}

func (s *session) close() error {
	var errs []error
	for i := len(s.cleanup) - 1; i >= 0; i-- {
		if err := s.cleanup[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewRootCmd builds the settingsctl command tree.
func NewRootCmd() *cobra.Command {
	c := &cli{v: newViper()}

	rootCmd := &cobra.Command{
		Use:          "settingsctl",
		Short:        "Inspect and edit per-tenant settings documents",
		SilenceUsage: true,
		Long: `settingsctl loads, repairs and edits the settings document of a tenant.
Documents live in a directory tree (one slot per tenant plus a shared default
slot) or in Redis when --redis-addr is set. Every flag can also be provided as
a SETTINGS_* environment variable or in a config file.`,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&c.cfgFile, "config", "", "config file (yaml, json or toml)")
	flags.String("dir", ".", "settings root directory")
	flags.String("tenant", "", "tenant id; empty selects the shared default document")
	flags.String("file-name", persist.DefaultFileName, "blob file name inside each slot")
	flags.String("engine", rules.EngineExpr, "rule engine: expr, cel or js")
	flags.String("log-level", "warn", "log level: debug, info, warn or error")
	flags.String("log-file", "", "also write JSON logs to this file")
	flags.Duration("label-ttl", tenant.DefaultLabelTTL, "how long tenant labels are cached")
	flags.String("redis-addr", "", "store documents in Redis at this address")
	flags.String("redis-prefix", redisstore.DefaultKeyPrefix, "Redis key prefix")

	for key, name := range map[string]string{
		"dir":          "dir",
		"tenant":       "tenant",
		"file_name":    "file-name",
		"engine":       "engine",
		"log_level":    "log-level",
		"log_file":     "log-file",
		"label_ttl":    "label-ttl",
		"redis.addr":   "redis-addr",
		"redis.prefix": "redis-prefix",
	} {
		_ = c.v.BindPFlag(key, flags.Lookup(name))
	}

	rootCmd.AddCommand(
		c.newLoadCmd(),
		c.newShowCmd(),
		c.newGetCmd(),
		c.newSetCmd(),
		c.newSaveCmd(),
		c.newResetCmd(),
		c.newEvalCmd(),
		c.newSchemaCmd(),
	)
	return rootCmd
}

// withSession builds the store described by the configuration, runs fn and
// releases everything fn's session acquired.
func (c *cli) withSession(cmd *cobra.Command, fn func(ctx context.Context, s *session) error) (err error) {
	cfg, err := loadConfig(c.v, c.cfgFile)
	if err != nil {
		return err
	}
	s := &session{cfg: cfg}
	defer func() {
		err = errors.Join(err, s.close())
	}()

	logger, logCloser, err := newLogger(cfg.LogLevel, cmd.ErrOrStderr(), cfg.LogFile)
	if err != nil {
		return err
	}
	s.logger = logger
	s.cleanup = append(s.cleanup, logCloser.Close)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	gateway, err := c.gateway(ctx, s)
	if err != nil {
		return err
	}

	programs := rules.NewTTLCache(0, programCacheSize)
	s.cleanup = append(s.cleanup, func() error { programs.Stop(); return nil })
	evaluator, err := rules.New(cfg.Engine,
		rules.WithProgramCache(programs),
		rules.WithFunctionRegistry(rules.SettingsFunctions()),
	)
	if err != nil {
		return err
	}

	directory := tenant.NewCached(tenant.NewStatic(cfg.Tenant), cfg.LabelTTL)
	s.cleanup = append(s.cleanup, func() error { directory.Stop(); return nil })

	s.registry, err = Catalog()
	if err != nil {
		return err
	}
	s.store, err = settings.New(s.registry, gateway,
		settings.WithLogger(logger),
		settings.WithDirectory(directory),
		settings.WithEvaluator(evaluator),
		settings.WithNotifier(settings.NotifierFunc(func(ctx context.Context, tenantID string) {
			logger.InfoContext(ctx, "active tenant configuration changed", "tenant", tenantID)
		})),
		settings.WithActivityHooks(activity.HookFunc(func(ctx context.Context, event activity.Event) error {
			logger.DebugContext(ctx, "settings activity",
				"verb", event.Verb,
				"tenant", event.TenantID,
				"object", event.ObjectID,
				"metadata", event.Metadata,
			)
			return nil
		})),
	)
	if err != nil {
		return err
	}

	return fn(ctx, s)
}

func (c *cli) gateway(ctx context.Context, s *session) (persist.Gateway, error) {
	if s.cfg.Redis.Addr != "" {
		gw, err := redisstore.New(ctx, redisstore.Config{
			Addr:      s.cfg.Redis.Addr,
			Password:  s.cfg.Redis.Password,
			DB:        s.cfg.Redis.DB,
			KeyPrefix: s.cfg.Redis.Prefix,
		})
		if err != nil {
			return nil, err
		}
		s.cleanup = append(s.cleanup, gw.Close)
		s.logger.Debug("using redis gateway", "addr", s.cfg.Redis.Addr)
		return gw, nil
	}
	gw, err := persist.NewFileGateway(s.cfg.Dir, persist.WithFileName(s.cfg.FileName))
	if err != nil {
		return nil, err
	}
	s.logger.Debug("using file gateway", "root", gw.Root())
	return gw, nil
}

func out(cmd *cobra.Command) io.Writer { return cmd.OutOrStdout() }
