package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cexll/homework-bot/internal/checkpoint"
	"github.com/cexll/homework-bot/internal/config"
	"github.com/cexll/homework-bot/internal/github"
	"github.com/cexll/homework-bot/internal/history"
	"github.com/cexll/homework-bot/internal/logging"
	"github.com/cexll/homework-bot/internal/notifier"
	"github.com/cexll/homework-bot/internal/poller"
	"github.com/cexll/homework-bot/internal/practicum"
	"github.com/cexll/homework-bot/internal/verdict"
	"github.com/cexll/homework-bot/internal/web"
)

const checkpointName = "homework_statuses"

var (
	loadDotEnv   = godotenv.Load
	newLogger    = logging.New
	newTelegram  = func(cfg notifier.TelegramConfig) (notifier.Notifier, error) { return notifier.NewTelegram(cfg) }
	defaultServe = serveHTTP
)

type serveFunc func(ctx context.Context, addr string, handler http.Handler) error

type options struct {
	envFile         string
	envFileExplicit bool
	once            bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "homework-bot",
		Short: "Poll homework review statuses and forward them to Telegram",
		Long: `homework-bot polls the homework review API every RETRY_PERIOD seconds and
sends a Telegram message whenever a submitted homework changes status.

Required environment: PRACTICUM_TOKEN, TELEGRAM_TOKEN, TELEGRAM_CHAT_ID.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.envFileExplicit = cmd.Flags().Changed("env-file")
			return run(cmd.Context(), opts, defaultServe)
		},
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	root.Flags().BoolVar(&opts.once, "once", false, "run a single poll cycle and exit")

	check := &cobra.Command{
		Use:   "check",
		Short: "Validate configuration and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.envFileExplicit = cmd.Flags().Changed("env-file")
			if err := loadEnv(opts); err != nil {
				return err
			}
			if _, err := config.Load(); err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "configuration OK")
			return nil
		},
	}
	root.AddCommand(check)

	return root
}

func loadEnv(opts *options) error {
	err := loadDotEnv(opts.envFile)
	if err != nil && (opts.envFileExplicit || !errors.Is(err, os.ErrNotExist)) {
		return fmt.Errorf("failed to load env file %s: %w", opts.envFile, err)
	}
	return nil
}

func run(ctx context.Context, opts *options, serve serveFunc) error {
	if err := loadEnv(opts); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("logger configured", zap.String("level", cfg.LogLevel))

	app, err := buildApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", zap.Error(err))
		return err
	}
	defer app.close()

	logger.Info("starting homework bot",
		zap.String("endpoint", cfg.PracticumEndpoint),
		zap.Duration("retry_period", cfg.RetryPeriod),
		zap.Strings("channels", app.fanout.Channels()))

	if opts.once {
		return app.poller.RunOnce(ctx)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.poller.Run(gctx)
	})
	if cfg.Port > 0 {
		addr := fmt.Sprintf(":%d", cfg.Port)
		handler := web.NewHandler(app.poller, app.history)
		logger.Info("status server listening", zap.String("addr", addr))
		g.Go(func() error {
			if err := serve(gctx, addr, handler.Router()); err != nil {
				return fmt.Errorf("status server failed: %w", err)
			}
			return nil
		})
	}
	return g.Wait()
}

type app struct {
	poller  *poller.Poller
	fanout  *notifier.Fanout
	history *history.Store
	store   checkpoint.Store
}

func (a *app) close() {
	if a.store != nil {
		_ = a.store.Close()
	}
}

func buildApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	catalog, err := verdict.LoadFile(cfg.VerdictsFile)
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	client := practicum.NewClient(cfg.PracticumEndpoint, cfg.PracticumToken,
		practicum.WithHTTPClient(httpClient),
		practicum.WithRetry(cfg.APIMaxRetries, cfg.APIRetryInitial),
		practicum.WithLogger(logger.Named("practicum")))

	telegram, err := newTelegram(notifier.TelegramConfig{
		Token:       cfg.TelegramToken,
		ChatID:      cfg.TelegramChatID,
		APIEndpoint: cfg.TelegramAPIEndpoint,
		HTTPClient:  httpClient,
	})
	if err != nil {
		return nil, err
	}

	var mirrors []notifier.Notifier
	if cfg.GitHubMirrorEnabled() {
		mirror, err := newGitHubMirror(cfg, httpClient)
		if err != nil {
			return nil, err
		}
		mirrors = append(mirrors, mirror)
	}
	if v, ok := telegram.(interface{ Verify(context.Context) error }); ok {
		if err := v.Verify(ctx); err != nil {
			logger.Warn("telegram is not reachable yet, messages will be retried", zap.Error(err))
		}
	}

	fanout := notifier.NewFanout(logger.Named("notifier"), telegram, mirrors...)
	fanout.RedactSecrets(cfg.TelegramToken, cfg.PracticumToken, cfg.GitHubToken)

	var store checkpoint.Store = checkpoint.NewMemory()
	if cfg.CheckpointDB != "" {
		store, err = checkpoint.OpenSQLite(ctx, cfg.CheckpointDB, checkpointName)
		if err != nil {
			return nil, err
		}
	}

	hist := history.NewStore(cfg.HistorySize)
	p := poller.New(client, fanout, store, catalog, hist, logger.Named("poller"), poller.Config{
		Interval:        cfg.RetryPeriod,
		InitialFromDate: cfg.InitialFromDate,
	})

	return &app{poller: p, fanout: fanout, history: hist, store: store}, nil
}

func newGitHubMirror(cfg *config.Config, httpClient *http.Client) (notifier.Notifier, error) {
	var tokens github.TokenSource = github.StaticToken(cfg.GitHubToken)
	if cfg.GitHubToken == "" {
		tokens = &github.AppAuth{
			AppID:      cfg.GitHubAppID,
			PrivateKey: cfg.GitHubPrivateKey,
			Repo:       cfg.GitHubNotifyRepo,
			APIBaseURL: cfg.GitHubAPIURL,
			HTTPClient: httpClient,
		}
	}

	commenter, err := github.NewIssueCommenter(tokens, github.NewClientFactory(httpClient, cfg.GitHubAPIURL), cfg.GitHubNotifyRepo, cfg.GitHubNotifyIssue)
	if err != nil {
		return nil, err
	}
	commenter.RedactSecrets(cfg.PracticumToken, cfg.TelegramToken, cfg.GitHubToken)
	return notifier.NewGitHubIssue(commenter), nil
}

func serveHTTP(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
