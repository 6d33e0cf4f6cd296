package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/goliatone/go-call-history/cache"
	"github.com/goliatone/go-call-history/docstore/cached"
	"github.com/goliatone/go-call-history/docstore/sqlstore"
	"github.com/goliatone/go-call-history/instrument"
	"github.com/goliatone/go-call-history/pkg/di"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	Version   = "0.1.0"
	envPrefix = "callhistory"
	wrap      = 50
)

// app carries the state shared by every subcommand of one invocation.
type app struct {
	v         *viper.Viper
	logger    *slog.Logger
	container *di.Container
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "callhistory",
		Short: "Instrumented key-value cache and document store helpers",
		Long: fmt.Sprintf(`callhistory (v%s)

Stores values under random keys while recording how many times the store
operation ran and with which inputs and outputs, and replays that history.
The schools commands query a document collection.`, Version),
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if a.container == nil {
				return nil
			}
			return a.container.Close(cmd.Context())
		},
	}

	flags := root.PersistentFlags()
	defaults := di.DefaultConfig()
	flags.String("log-level", "warn", wrapString("log level (debug, info, warn, error)"))
	flags.String("store", defaults.Store, wrapString("key-value backend (memory, redis)"))
	flags.String("redis-addr", defaults.Redis.Addr, wrapString("address of the Redis server"))
	flags.String("redis-password", "", wrapString("password of the Redis server"))
	flags.Int("redis-db", 0, wrapString("Redis database number, flushed when the cache starts"))
	flags.String("namespace", "", wrapString("prefix for the instrumentation keys"))
	flags.String("failure-policy", string(instrument.PolicySwallow), wrapString("what to do when recording a call fails (swallow, fail)"))
	flags.Bool("read-through", false, wrapString("serve repeated reads from a process local cache"))
	flags.String("documents", defaults.Documents, wrapString("document backend (sql, mongo)"))
	flags.Bool("cache-documents", false, wrapString("cache query results of document collections in process"))
	flags.Duration("document-refresh", 0, wrapString("with --cache-documents, reload cached query results in the background once they are this old (0 disables)"))
	flags.String("sql-driver", defaults.SQL.Driver, wrapString("SQL driver (sqlite3, postgres)"))
	flags.String("sql-dsn", defaults.SQL.DSN, wrapString("SQL data source name"))
	flags.String("mongo-uri", defaults.Mongo.URI, wrapString("MongoDB connection string"))
	flags.String("mongo-database", defaults.Mongo.Database, wrapString("MongoDB database"))

	root.AddCommand(newDemoCmd(a))
	root.AddCommand(newSchoolsCmd(a))
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "callhistory v%s\n", Version)
		},
	})

	return root
}

// setup loads the environment, binds flags and builds the container.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()
	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	logger, err := newLogger(cmd, a.v.GetString("log-level"))
	if err != nil {
		return err
	}
	a.logger = logger

	if cmd.Name() == "version" {
		return nil
	}

	container, err := di.NewContainer(contextOf(cmd), a.config(), di.WithLogger(logger))
	if err != nil {
		return err
	}
	a.container = container
	return nil
}

func (a *app) config() di.Config {
	cfg := di.DefaultConfig()
	cfg.Store = a.v.GetString("store")
	cfg.Redis.Addr = a.v.GetString("redis-addr")
	cfg.Redis.Password = a.v.GetString("redis-password")
	cfg.Redis.DB = a.v.GetInt("redis-db")
	cfg.Cache.Namespace = a.v.GetString("namespace")
	cfg.Cache.FailurePolicy = instrument.FailurePolicy(a.v.GetString("failure-policy"))
	if a.v.GetBool("read-through") {
		cfg.Cache.ReadThrough = cache.DefaultReadThroughConfig()
	}
	cfg.Documents = a.v.GetString("documents")
	if a.v.GetBool("cache-documents") {
		dc := cached.DefaultConfig()
		if every := a.v.GetDuration("document-refresh"); every > 0 {
			dc.Refresh = &cached.RefreshConfig{
				MinAsync:       every,
				MaxAsync:       every,
				Sync:           dc.TTL,
				RetryBaseDelay: time.Second,
			}
		}
		cfg.DocumentCache = &dc
	}
	cfg.SQL = sqlstore.Config{
		Driver: a.v.GetString("sql-driver"),
		DSN:    a.v.GetString("sql-dsn"),
	}
	cfg.Mongo.URI = a.v.GetString("mongo-uri")
	cfg.Mongo.Database = a.v.GetString("mongo-database")
	return cfg
}

func newLogger(cmd *cobra.Command, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: lvl})), nil
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// wrapString wraps help text at wrap characters.
func wrapString(text string) string {
	var (
		lines []string
		line  strings.Builder
	)
	for _, word := range strings.Fields(text) {
		if line.Len() > 0 && line.Len()+1+len(word) > wrap {
			lines = append(lines, line.String())
			line.Reset()
		}
		if line.Len() > 0 {
			line.WriteByte(' ')
		}
		line.WriteString(word)
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n")
}
