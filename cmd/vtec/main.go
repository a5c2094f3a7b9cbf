package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-redis/redis/v8"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	httpadapter "github.com/couchcryptid/vtec-browser/internal/adapter/http"
	"github.com/couchcryptid/vtec-browser/internal/adapter/iem"
	kafkaadapter "github.com/couchcryptid/vtec-browser/internal/adapter/kafka"
	"github.com/couchcryptid/vtec-browser/internal/config"
	"github.com/couchcryptid/vtec-browser/internal/observability"
	"github.com/couchcryptid/vtec-browser/internal/session"
	"github.com/couchcryptid/vtec-browser/internal/view"
)

const (
	retryBackoff    = 250 * time.Millisecond
	retryMaxBackoff = 2 * time.Second
	redisKeyPrefix  = "vtec:iem:"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "vtec",
		Short:         "Browse archived NWS VTEC events",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	addServeCmd(rootCmd)
	addResolveCmd(rootCmd)
	addShowCmd(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func addServeCmd(rootCmd *cobra.Command) {
	var initialURL string
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a browsing session over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runServe(initialURL)
		},
	}
	serveCmd.Flags().StringVar(&initialURL, "url", "", "URL the session starts on (default event when empty)")
	rootCmd.AddCommand(serveCmd)
}

func addResolveCmd(rootCmd *cobra.Command) {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "resolve <url>",
		Short: "Print the canonical form and title of an event URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := session.Resolve(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.URL)
			fmt.Fprintln(cmd.OutOrStdout(), res.Title)
			return nil
		},
	})
}

func addShowCmd(rootCmd *cobra.Command) {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "show <url>",
		Short: "Load one event and print its screen as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd, args[0])
		},
	})
}

func runShow(cmd *cobra.Command, rawURL string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	source, closeSource, err := newSource(cfg, logger, metrics)
	if err != nil {
		return err
	}
	defer closeSource()

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.ReloadTimeout)
	defer cancel()

	sess := session.New(rawURL, source, logger, metrics, session.WithReloadTimeout(cfg.ReloadTimeout), session.WithMaxNotifyDepth(cfg.MaxNotifyDepth))
	if err := sess.Open(ctx); err != nil {
		return err
	}
	if err := sess.Wait(ctx); err != nil {
		return fmt.Errorf("wait for load: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Location session.Location `json:"location"`
		Screen   view.Snapshot    `json:"screen"`
	}{sess.Location(), sess.Screen()})
}

func runServe(initialURL string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	source, closeSource, err := newSource(cfg, logger, metrics)
	if err != nil {
		return err
	}
	defer closeSource()

	opts := []session.Option{
		session.WithReloadTimeout(cfg.ReloadTimeout),
		session.WithMaxNotifyDepth(cfg.MaxNotifyDepth),
	}

	// View-record audit trail (feature-flagged via KAFKA_ENABLED).
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger, metrics)
		opts = append(opts, session.WithPublisher(writer))
		logger.Info("view records enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		logger.Info("view records disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sess := session.New(initialURL, source, logger, metrics, opts...)
	if err := sess.Open(ctx); err != nil {
		return fmt.Errorf("open session: %w", err)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, &service{Session: sess, deps: source.readiness}, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := sess.Close(shutdownCtx); err != nil {
		logger.Error("view record drain error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}

// service adds the upstream cache to the session's readiness.
type service struct {
	*session.Session
	deps []sharedobs.ReadinessChecker
}

func (s *service) CheckReadiness(ctx context.Context) error {
	if err := s.Session.CheckReadiness(ctx); err != nil {
		return err
	}
	for _, dep := range s.deps {
		if err := dep.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}

type source struct {
	*iem.Client
	readiness []sharedobs.ReadinessChecker
}

// newSource builds the IEM client with the configured response cache.
func newSource(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*source, func(), error) {
	var fetcher iem.Fetcher = iem.NewHTTPFetcher(cfg.IEMBaseURL, cfg.IEMTimeout, logger, metrics,
		iem.WithRetry(cfg.IEMMaxAttempts, retryBackoff, retryMaxBackoff))

	src := &source{}
	closeFn := func() {}

	switch cfg.CacheBackend {
	case config.CacheMemory:
		fetcher = iem.NewCachingFetcher(fetcher, iem.NewMemoryCache(cfg.CacheSize, cfg.CacheTTL, clockwork.NewRealClock()), metrics)
		logger.Info("response cache enabled", "backend", cfg.CacheBackend, "size", cfg.CacheSize, "ttl", cfg.CacheTTL)
	case config.CacheRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		cache := iem.NewRedisCache(client, cfg.CacheTTL, redisKeyPrefix, logger)
		fetcher = iem.NewCachingFetcher(fetcher, cache, metrics)
		src.readiness = append(src.readiness, cache)
		closeFn = func() {
			if err := client.Close(); err != nil {
				logger.Error("redis close error", "error", err)
			}
		}
		logger.Info("response cache enabled", "backend", cfg.CacheBackend, "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL)
	case config.CacheNone:
		logger.Info("response cache disabled")
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}

	src.Client = iem.NewClient(fetcher)
	return src, closeFn, nil
}
