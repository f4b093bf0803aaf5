package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"PesaVault/internal/adapters/memstore"
	"PesaVault/internal/adapters/payhero"
	"PesaVault/internal/adapters/postgres"
	"PesaVault/internal/adapters/redisstore"
	"PesaVault/internal/adapters/telegram"
	"PesaVault/internal/core/domain"
	"PesaVault/internal/core/ledger"
	"PesaVault/internal/core/ports"
	"PesaVault/internal/engine"
	"PesaVault/internal/engine/admin"
	"PesaVault/internal/notify"
	"PesaVault/internal/scheduler"
	"PesaVault/internal/shared/config"
	"PesaVault/internal/shared/logger"
	"PesaVault/internal/web"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize Logger
	isDevMode := cfg.AppEnv == "dev"
	baseLogger := logger.New(isDevMode)
	baseLogger.Info().Str("app_env", cfg.AppEnv).Msg("Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Initialize Database and Stores
	db, err := postgres.NewDB(ctx, cfg.DatabaseURL, &baseLogger)
	if err != nil {
		baseLogger.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	userStore, err := postgres.NewUserStore(ctx, db, &baseLogger)
	if err != nil {
		baseLogger.Fatal().Err(err).Msg("Failed to initialize user store")
	}

	var sessionStore ports.SessionStore
	if cfg.RedisAddr != "" {
		sessionStore, err = redisstore.NewSessionStore(ctx, cfg.RedisAddr, &baseLogger)
		if err != nil {
			baseLogger.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		baseLogger.Info().Str("addr", cfg.RedisAddr).Msg("Using Redis session store")
	} else {
		sessionStore = memstore.NewSessionStore()
		baseLogger.Info().Msg("Using in-memory session store")
	}

	// 4. Runtime settings. The admin referral code is regenerated on every
	// start and announced to the super admin.
	settings := cfg.InitialSettings()
	settings.AdminReferralCode = ledger.NewAdminReferralCode()
	sysCfg := domain.NewSystemConfig(settings)

	// 5. Core services
	ledgerSvc := ledger.NewService(userStore, sysCfg, &baseLogger)

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		baseLogger.Fatal().Err(err).Msg("Failed to connect to Telegram")
	}
	baseLogger.Info().Str("bot", api.Self.UserName).Msg("Telegram bot authorized")

	chatClient := telegram.NewClient(api, &baseLogger)
	notifier := notify.New(userStore, chatClient, sysCfg, &baseLogger)
	payments := payhero.NewClient(cfg.PayHeroBaseURL, cfg.PayHeroAuth, cfg.PayHeroChannelID, &baseLogger)

	// 6. Background workers
	pollRegistry := scheduler.NewPollRegistry(ledgerSvc, payments, notifier, sysCfg, &baseLogger)
	maturation := scheduler.NewMaturation(ledgerSvc, notifier, &baseLogger)
	if err := maturation.Start(ctx); err != nil {
		baseLogger.Fatal().Err(err).Msg("Failed to start maturation sweep")
	}

	// 7. Engine and transports
	adminProc := admin.New(ledgerSvc, userStore, sysCfg, chatClient, notifier, &baseLogger)
	eng := engine.New(sessionStore, userStore, ledgerSvc, sysCfg, chatClient, notifier, payments, pollRegistry, adminProc, &baseLogger)

	botServer := telegram.NewBotServer(api, eng, &baseLogger)
	webServer := web.NewServer(cfg.ListenAddr, botServer, db, isDevMode, &baseLogger)

	go func() {
		if err := webServer.Start(); err != nil {
			baseLogger.Error().Err(err).Msg("Web server failed")
			stop()
		}
	}()

	// Tell the super admin the code registrants without a referrer can use.
	if superAdmin, err := userStore.Get(ctx, cfg.SuperAdminPhone); err == nil && superAdmin != nil {
		notifier.User(ctx, superAdmin,
			fmt.Sprintf("🚀 Bot started.\nAdmin referral code for this run: %s", settings.AdminReferralCode))
	} else {
		baseLogger.Info().Str("code", settings.AdminReferralCode).Msg("Admin referral code (super admin has no chat binding yet)")
	}

	baseLogger.Info().Msg("All services initialized successfully")

	// 8. Run the update pump until a shutdown signal arrives.
	if err := botServer.Start(ctx); err != nil {
		baseLogger.Error().Err(err).Msg("Bot server failed")
	}

	// 9. Graceful shutdown
	maturation.Stop()
	pollRegistry.Shutdown()
	if err := webServer.Shutdown(context.Background()); err != nil {
		baseLogger.Error().Err(err).Msg("Web server shutdown error")
	}
	baseLogger.Info().Msg("Shutdown complete")
}
