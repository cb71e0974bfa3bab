package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/drewdunne/agenda/internal/calendar/google"
	"github.com/drewdunne/agenda/internal/config"
	"github.com/drewdunne/agenda/internal/conversation"
	"github.com/drewdunne/agenda/internal/dispatch"
	"github.com/drewdunne/agenda/internal/intent"
	"github.com/drewdunne/agenda/internal/llm"
	"github.com/drewdunne/agenda/internal/logging"
	"github.com/drewdunne/agenda/internal/oauth"
	"github.com/drewdunne/agenda/internal/respond"
	"github.com/drewdunne/agenda/internal/server"
	"github.com/drewdunne/agenda/internal/telegram"
	"github.com/drewdunne/agenda/internal/transcribe"

	// Register LLM providers
	_ "github.com/drewdunne/agenda/internal/llm/anthropic"
	_ "github.com/drewdunne/agenda/internal/llm/gemini"
)

const cleanupInterval = 24 * time.Hour

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot and the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			logger, closer, err := logging.New(cfg.Logging, os.Stderr)
			if err != nil {
				return err
			}
			defer closer.Close()
			slog.SetDefault(logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, logger)
		},
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	loadEnv(envFile)

	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// app holds the wired components.
type app struct {
	flow       *oauth.Flow
	dispatcher *dispatch.Dispatcher
	formatter  *respond.Formatter
	transcribe transcribe.Transcriber
	server     *server.Server
}

func build(cfg *config.Config, logger *slog.Logger) (*app, error) {
	loc, err := cfg.Calendar.Location()
	if err != nil {
		return nil, err
	}

	flow := oauth.NewFlow(cfg.Calendar, cfg.Server.BaseURL, oauth.NewTokenStore(cfg.Calendar.TokenFile), oauth.WithLogger(logger))
	cal := google.New(cfg.Calendar, loc, flow)

	completer, err := llm.New(cfg.LLM)
	if err != nil {
		return nil, err
	}

	d := dispatch.New(
		intent.NewInterpreter(completer, logger),
		cal,
		conversation.NewMemoryStore(conversation.DefaultCapacity, cfg.Conversation.PendingTTL()),
		dispatch.WithLogger(logger),
		dispatch.WithLookupMax(cfg.Calendar.LookupMaxResults),
		dispatch.WithListMax(cfg.Calendar.ListMaxResults),
	)

	formatOpts := []respond.Option{respond.WithLogger(logger)}
	if cfg.Respond.Generative {
		formatOpts = append(formatOpts, respond.WithCompleter(completer))
	}

	return &app{
		flow:       flow,
		dispatcher: d,
		formatter:  respond.New(formatOpts...),
		transcribe: transcribe.New(cfg.Transcription, cfg.LLM),
		server:     server.New(cfg, flow, logger),
	}, nil
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.Logging.Dir != "" {
		scheduler := logging.NewCleanupScheduler(
			logging.NewCleaner(cfg.Logging.Dir, cfg.Logging.RetentionDays),
			cleanupInterval,
			logger,
		)
		scheduler.Start()
		defer scheduler.Stop()
	}

	a, err := build(cfg, logger)
	if err != nil {
		return err
	}

	api, err := telegram.Connect(cfg.Telegram)
	if err != nil {
		return err
	}

	loc, _ := cfg.Calendar.Location()
	bot := telegram.New(api, a.dispatcher, a.formatter, a.transcribe, a.flow,
		telegram.WithLocation(loc),
		telegram.WithDedupSize(cfg.Telegram.DedupSize),
		telegram.WithLogger(logger),
	)

	if !a.flow.Authorized() {
		logger.Warn("calendar not authorized yet", "url", cfg.Server.BaseURL+oauth.AuthorizePath)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.server.ListenAndServe(gctx)
	})
	g.Go(func() error {
		return bot.Listen(gctx, api, cfg.Telegram.PollTimeoutSeconds)
	})
	return g.Wait()
}

func newAuthorizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "authorize",
		Short: "Print where to authorize calendar access",
		Long: "Print the page the operator must open to grant calendar access. " +
			"The page is served by a running `agenda serve`.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return printAuthorization(cmd.OutOrStdout(), cfg)
		},
	}
}

func printAuthorization(w io.Writer, cfg *config.Config) error {
	store := oauth.NewTokenStore(cfg.Calendar.TokenFile)
	if store.Exists() {
		fmt.Fprintf(w, "Calendar already authorized (token in %s).\n", cfg.Calendar.TokenFile)
	}
	if cfg.Calendar.ClientID == "" || cfg.Calendar.ClientSecret == "" {
		return fmt.Errorf("calendar.client_id and calendar.client_secret are required")
	}
	fmt.Fprintf(w, "Open %s%s while `agenda serve` is running.\n", cfg.Server.BaseURL, oauth.AuthorizePath)
	return nil
}
