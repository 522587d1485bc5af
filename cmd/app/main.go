package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"telegram-ai-proxy/internal/application"
	"telegram-ai-proxy/internal/config"
	"telegram-ai-proxy/internal/domain"
	"telegram-ai-proxy/internal/domain/ports/repository"
	aiAdapters "telegram-ai-proxy/internal/infra/adapters/ai"
	tele "telegram-ai-proxy/internal/infra/adapters/telegram"
	"telegram-ai-proxy/internal/infra/api"
	"telegram-ai-proxy/internal/infra/history"
	"telegram-ai-proxy/internal/infra/i18n"
	"telegram-ai-proxy/internal/infra/logging"
	"telegram-ai-proxy/internal/infra/metrics"
	"telegram-ai-proxy/internal/infra/worker"
	"telegram-ai-proxy/internal/usecase"
)

// set with -ldflags "-X main.version=... -X main.commit=..."
var (
	version = "dev"
	commit  = "none"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file (optional)")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, unredacted text, noop provider)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: %v\n", err)
		if errors.Is(err, domain.ErrConfiguration) {
			fmt.Fprintln(os.Stderr, "set TELEGRAM_TOKEN and AI_API_KEY (or GROQ_API_KEY) in the environment or the config file")
		}
		os.Exit(1)
	}
	if err := run(cfg); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)
	logger.Info().Str("version", version).Bool("dev", cfg.Runtime.Dev).Msg("starting")

	// ---- Translator ----
	tr, err := i18n.NewTranslator(i18n.LocalesFS, cfg.Chat.Language)
	if err != nil {
		return err
	}

	// ---- AI Adapter ----
	ai, err := aiAdapters.NewFromConfig(ctx, cfg.AI)
	if err != nil {
		return err
	}
	logger.Info().Str("provider", ai.Provider()).Str("model", cfg.AI.Model).Str("base_url", cfg.AI.BaseURL).Msg("ai adapter ready")

	// ---- Telegram ----
	pool := worker.NewPool(cfg.Bot.Workers, cfg.Bot.QueueSize, logger)
	bot, err := tele.NewRealTelegramBotAdapter(&cfg.Bot, cfg.Access.LookupTimeout, pool, logger)
	if err != nil {
		return err
	}

	// ---- History ----
	// interfaces stay nil rather than holding typed nil pointers
	var (
		repo  repository.HistoryRepository
		stats api.HistoryStats
	)
	if cfg.History.On() {
		mem, err := history.NewMemoryRepo(cfg.History.Cap)
		if err != nil {
			return err
		}
		repo, stats = mem, mem
	}

	// ---- Use cases ----
	var (
		accessUC usecase.AccessUseCase
		gate     application.AccessUseCaseIface
	)
	if cfg.Access.Enabled {
		a := usecase.NewAccessUseCase(bot, cfg.Access.ChannelID, cfg.Access.LookupTimeout, logger)
		accessUC, gate = a, a
		logger.Info().Str("channel", cfg.Access.ChannelID).Msg("access gate enabled")
	}
	chatUC := usecase.NewChatUseCase(repo, ai, accessUC, bot, usecase.ChatOptions{
		SystemPrompt: cfg.Chat.SystemPrompt,
		Model:        cfg.AI.Model,
		Timeout:      cfg.AI.Timeout,
		Stateless:    !cfg.History.On(),
		Dev:          cfg.Runtime.Dev,
	}, logger)

	// ---- Facade ----
	facade := application.NewBotFacade(gate, chatUC, tr, application.FacadeOptions{
		ChannelURL: cfg.Access.ChannelURL,
		HistoryCap: cfg.History.Cap,
		Stateless:  !cfg.History.On(),
	}, logger)
	bot.SetFacade(facade)

	g, ctx := errgroup.WithContext(ctx)
	pool.Start(ctx)
	defer pool.Stop()

	g.Go(func() error {
		logger.Info().Msg("LlamaPro AI is now running")
		return bot.StartPolling(ctx)
	})
	if cfg.Admin.Port > 0 {
		srv := api.NewServer(stats, logger)
		g.Go(func() error { return srv.ListenAndServe(ctx, cfg.Admin.Port) })
	}

	err = g.Wait()
	logger.Info().Msg("shutdown complete")
	return err
}
