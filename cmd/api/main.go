package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/noah-isme/gema-feedback-insights/internal/analytics"
	"github.com/noah-isme/gema-feedback-insights/internal/cache"
	"github.com/noah-isme/gema-feedback-insights/internal/config"
	"github.com/noah-isme/gema-feedback-insights/internal/database"
	"github.com/noah-isme/gema-feedback-insights/internal/handler"
	"github.com/noah-isme/gema-feedback-insights/internal/middleware"
	"github.com/noah-isme/gema-feedback-insights/internal/repository"
	"github.com/noah-isme/gema-feedback-insights/internal/router"
	"github.com/noah-isme/gema-feedback-insights/internal/service"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "gema-feedback",
		Short:        "Instructor analytics over graded student submissions",
		SilenceUsage: true,
	}

	serve := serveCmd()
	root.AddCommand(serve, reportCmd())

	// Bare `gema-feedback` starts the server.
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the feedback dashboard HTTP API",
		RunE:  runServe,
	}
	cmd.Flags().String("addr", "", "HTTP listen address (defaults to :$GEMA_APP_PORT)")
	cmd.Flags().Bool("access-log", false, "Write a plain access log line per request")
	return cmd
}

func reportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Print the summary and question breakdown as JSON",
		RunE:  runReport,
	}
}

// app holds the wired pipeline shared by both commands.
type app struct {
	cfg         config.Config
	logger      zerolog.Logger
	snapshots   *cache.SnapshotCache
	service     service.FeedbackDashboardService
	broadcaster service.RefreshBroadcaster
	closers     []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func buildApp(ctx context.Context, withFanOut bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	zerolog.SetGlobalLevel(cfg.LogLevel)
	logger := zerolog.New(os.Stderr).With().Timestamp().Str("service", cfg.AppName).Logger()

	db, err := database.ConnectPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	a := &app{cfg: cfg, logger: logger}
	if sqlDB, err := db.DB(); err == nil {
		a.closers = append(a.closers, func() { _ = sqlDB.Close() })
	}

	source := repository.NewSubmissionRepository(db, cfg.SubmissionTable)
	a.snapshots = cache.NewSnapshotCache(source, cfg.SnapshotCacheTTL,
		cache.WithFetchTimeout(cfg.SnapshotFetchTimeout),
		cache.WithLogger(logger),
	)

	if withFanOut {
		redisClient, natsConn, err := connectFanOut(ctx, cfg)
		if err != nil {
			a.close()
			return nil, err
		}
		if redisClient != nil {
			a.closers = append(a.closers, func() { _ = redisClient.Close() })
		}
		if natsConn != nil {
			a.closers = append(a.closers, natsConn.Close)
		}
		if redisClient != nil || natsConn != nil {
			a.broadcaster = service.NewRefreshBroadcaster(a.snapshots, redisClient, natsConn, cfg.RealtimeChannel, logger)
		}
	}

	labels := analytics.NewQuestionLabels(cfg.QuestionLabels...)
	classifier := analytics.NewMarkerClassifier(cfg.ClassifierMarker)
	a.service = service.NewFeedbackDashboardService(a.snapshots, classifier, labels, a.broadcaster, logger)

	return a, nil
}

func connectFanOut(ctx context.Context, cfg config.Config) (*redis.Client, *nats.Conn, error) {
	redisClient, err := database.ConnectRedis(ctx, cfg.RedisURL, cfg.AppName)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}

	natsConn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
	if err != nil {
		if redisClient != nil {
			_ = redisClient.Close()
		}
		return nil, nil, fmt.Errorf("connect to nats: %w", err)
	}

	return redisClient, natsConn, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.close()

	if a.broadcaster != nil {
		if err := a.broadcaster.Start(ctx); err != nil {
			return fmt.Errorf("start refresh fan-out: %w", err)
		}
	}

	accessLog, _ := cmd.Flags().GetBool("access-log")
	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = a.cfg.HTTPAddress()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	dashboardHandler := handler.NewFeedbackDashboardHandler(a.service, validate, a.cfg.RefreshRateLimit, a.logger)

	server := fiber.New(fiber.Config{
		AppName:      a.cfg.AppName,
		ServerHeader: a.cfg.AppName,
	})

	middleware.Register(server, middleware.Config{
		Logger:         &a.logger,
		ObservedPrefix: router.FeedbackPrefix,
		AccessLog:      accessLog,
	})
	router.Register(server, a.cfg, router.Dependencies{
		FeedbackDashboardHandler: dashboardHandler,
		Snapshots:                a.snapshots,
	})

	listenErr := make(chan error, 1)
	go func() {
		a.logger.Info().Str("addr", addr).Msg("feedback dashboard listening")
		listenErr <- server.Listen(addr)
	}()

	select {
	case err := <-listenErr:
		return fmt.Errorf("start server: %w", err)
	case <-ctx.Done():
	}

	return waitForShutdown(server, a.logger)
}

func waitForShutdown(server *fiber.App, logger zerolog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		return err
	}

	logger.Info().Msg("server stopped")
	return nil
}

type report struct {
	Summary   any `json:"summary"`
	Questions any `json:"questions"`
	FetchedAt any `json:"fetched_at"`
}

func runReport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := buildApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.close()

	summary, meta, err := a.service.Summary(ctx)
	if err != nil {
		return fmt.Errorf("compute summary: %w", err)
	}

	breakdown, _, err := a.service.QuestionBreakdown(ctx)
	if err != nil {
		return fmt.Errorf("compute question breakdown: %w", err)
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(report{Summary: summary, Questions: breakdown.Questions, FetchedAt: meta.FetchedAt})
}
