package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"stockroom/internal/inventory/metrics"
	"stockroom/internal/inventory/models"
	"stockroom/internal/inventory/service"
	"stockroom/internal/inventory/store"
	"stockroom/internal/inventory/view"
	"stockroom/internal/platform/config"
	"stockroom/internal/platform/logger"
	"stockroom/pkg/platform/sentinel"
	strutil "stockroom/pkg/platform/strings"
)

type app struct {
	cfg    config.Config
	comma  string
	logger *slog.Logger
}

func newRootCmd(cfg config.Config) *cobra.Command {
	a := &app{cfg: cfg, comma: string(cfg.Source.CSV.Comma)}

	root := &cobra.Command{
		Use:   "stockroom",
		Short: "Browse and serve an inventory folded from a record source",
		Long: `stockroom reads inventory records from a CSV or YAML file, a SQL query,
Redis hashes or a Kafka topic and folds records that share a product ID
into one item. Malformed records are skipped and logged; an origin that
cannot be read is an error.

Every flag defaults to its STOCKROOM_* environment variable.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	src := &a.cfg.Source
	f := root.PersistentFlags()
	f.StringVarP(&src.Kind, "kind", "k", src.Kind, "source kind: csv, yaml, sql, redis or kafka")
	f.StringVarP(&src.Origin, "source", "s", src.Origin, "csv or yaml origin: path, URL or s3://bucket/key")
	f.IntVar(&src.Capacity, "capacity", src.Capacity, "expected number of distinct items")
	f.StringVar(&a.comma, "comma", a.comma, "csv field delimiter")
	f.StringVar(&src.YAML.Key, "yaml-key", src.YAML.Key, "mapping key holding the yaml record list")
	f.StringVar(&src.SQL.Driver, "sql-driver", src.SQL.Driver, "database/sql driver: pgx, postgres or sqlite")
	f.StringVar(&src.SQL.DSN, "sql-dsn", src.SQL.DSN, "sql data source name")
	f.StringVar(&src.SQL.Query, "sql-query", src.SQL.Query, "query returning id, name, quantity, note")
	f.StringVar(&src.Redis.URL, "redis-url", src.Redis.URL, "redis URL")
	f.StringVar(&src.Redis.Prefix, "redis-prefix", src.Redis.Prefix, "key prefix of the item hashes")
	f.StringSliceVar(&src.Kafka.Brokers, "kafka-brokers", src.Kafka.Brokers, "kafka seed brokers")
	f.StringVar(&src.Kafka.Topic, "kafka-topic", src.Kafka.Topic, "kafka topic to replay")
	f.StringVar(&a.cfg.Log.Level, "log-level", a.cfg.Log.Level, "debug, info, warn or error")
	f.StringVar(&a.cfg.Log.Format, "log-format", a.cfg.Log.Format, "text or json")

	root.AddCommand(
		newListCmd(a),
		newSearchCmd(a),
		newShowCmd(a),
		newBrowseCmd(a),
		newServeCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	r := []rune(a.comma)
	if len(r) != 1 {
		return fmt.Errorf("%w: --comma must be a single character, got %q", sentinel.ErrInvalidConfig, a.comma)
	}
	a.cfg.Source.CSV.Comma = r[0]
	a.cfg.Source.Kafka.Brokers = strutil.DedupeAndTrim(a.cfg.Source.Kafka.Brokers)
	a.logger = logger.NewWithWriter(cmd.ErrOrStderr(), a.cfg.Log)
	return nil
}

// open builds the configured store and loads it once. The caller closes the
// store.
func (a *app) open(ctx context.Context, m *metrics.Metrics) (*service.Service, *store.Store, error) {
	st, err := store.Open(ctx, a.cfg.Source, store.WithSkipFunc(service.SkipRecorder(a.logger, m)))
	if err != nil {
		return nil, nil, err
	}
	svc := service.New(st, service.WithLogger(a.logger), service.WithMetrics(m))
	if _, err := svc.Reload(ctx); err != nil {
		_ = st.Close()
		return nil, nil, err
	}
	return svc, st, nil
}

// withService runs fn against a freshly loaded inventory.
func (a *app) withService(cmd *cobra.Command, fn func(*service.Service) error) error {
	svc, st, err := a.open(cmd.Context(), nil)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(svc)
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print every item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withService(cmd, func(svc *service.Service) error {
				return view.Render(cmd.OutOrStdout(), "Inventory", svc.List())
			})
		},
	}
}

func newSearchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search <term>",
		Short: "Print items whose name contains term, ignoring case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(svc *service.Service) error {
				title := fmt.Sprintf("Matching %q", args[0])
				return view.Render(cmd.OutOrStdout(), title, svc.Search(args[0]))
			})
		},
	}
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a single item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(svc *service.Service) error {
				item, err := svc.Get(args[0])
				if err != nil {
					return err
				}
				return view.Render(cmd.OutOrStdout(), "", []models.Item{item})
			})
		},
	}
}

func newBrowseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Explore the inventory interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withService(cmd, func(svc *service.Service) error {
				return view.Browse(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), svc)
			})
		},
	}
}
