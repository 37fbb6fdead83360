package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/lingualink/backend/internal/config"
	"github.com/zhouzirui/lingualink/backend/internal/handler"
	"github.com/zhouzirui/lingualink/backend/internal/service/auth"
	"github.com/zhouzirui/lingualink/backend/internal/service/chat"
	"github.com/zhouzirui/lingualink/backend/internal/service/translate"
	"github.com/zhouzirui/lingualink/backend/internal/telemetry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	_, logFile, err := telemetry.InitLogger(telemetry.Options{LogDir: cfg.Telemetry.LogDir, Level: cfg.Telemetry.LogLevel})
	if err != nil {
		slog.Error("failed to initialize logger", "error", err)
		os.Exit(1)
	}
	defer logFile.Close()

	if envErr != nil {
		slog.Warn("failed to load .env file, continuing with system environment variables only", "error", envErr)
	}

	translator := newTranslator(ctx, cfg.Translator)

	if cfg.Telemetry.Enabled {
		tracer, meter, cleanup, err := telemetry.InitTelemetry(ctx, cfg.Telemetry.LogDir)
		if err != nil {
			slog.Warn("failed to initialize telemetry, continuing without it", "error", err)
		} else {
			defer cleanup()
			instrumented, err := translate.Instrument(translator, tracer, meter)
			if err != nil {
				slog.Warn("failed to instrument translator", "error", err)
			} else {
				translator = instrumented
			}
		}
	}

	ids, err := chat.NewSnowflakeIDs(cfg.Chat.NodeID)
	if err != nil {
		slog.Error("failed to create id generator", "error", err)
		os.Exit(1)
	}

	chatService, err := chat.NewService(translator, chat.Config{
		SourceLang:    cfg.Chat.SourceLang,
		TargetLang:    cfg.Chat.TargetLang,
		BotReplyDelay: cfg.Chat.BotReplyDelay,
	}, chat.WithIDGenerator(ids))
	if err != nil {
		slog.Error("failed to initialize chat service", "error", err)
		os.Exit(1)
	}

	store, err := auth.OpenStore(cfg.Auth.DBPath)
	if err != nil {
		slog.Error("failed to open account store", "path", cfg.Auth.DBPath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	authService := auth.NewService(store, auth.Config{
		LoginAttemptsPerMinute: cfg.Auth.LoginAttemptsPerMinute,
		SessionTTL:             cfg.Auth.SessionTTL,
	})

	router := handler.NewRouter(authService, chatService)

	if err := startServer(ctx, cfg.Server, router); err != nil {
		slog.Error("server error", "error", err)
	}

	if err := drainConversations(chatService, 10*time.Second); err != nil {
		slog.Error("failed to drain conversations", "error", err)
	}
}

// drainConversations closes live conversations and waits up to timeout for
// their in-flight translations.
func drainConversations(svc *chat.Service, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return svc.Shutdown(ctx)
}

// newTranslator picks the configured model backend. Without credentials the
// server still starts and every translation settles as an error.
func newTranslator(ctx context.Context, cfg config.TranslatorConfig) translate.Translator {
	if !cfg.Enabled() {
		slog.Warn("translation backend not configured, translations will fail", "provider", cfg.Provider)
		return translate.Unavailable
	}

	switch cfg.Provider {
	case config.ProviderOpenAI:
		client, err := translate.NewOpenAIClient(translate.OpenAIConfig{
			APIKey:      cfg.OpenAI.APIKey,
			BaseURL:     cfg.OpenAI.BaseURL,
			Model:       cfg.OpenAI.Model,
			Temperature: cfg.OpenAI.Temperature,
		})
		if err != nil {
			slog.Warn("failed to initialize OpenAI translator", "error", err)
			return translate.Unavailable
		}
		slog.Info("translator initialized", "provider", cfg.Provider, "model", cfg.OpenAI.Model)
		return client

	default:
		chatModel, err := cfg.Ark.NewChatModel(ctx)
		if err != nil {
			slog.Warn("failed to initialize Ark chat model", "error", err)
			return translate.Unavailable
		}
		svc, err := translate.NewService(ctx, chatModel)
		if err != nil {
			slog.Warn("failed to initialize translation chains", "error", err)
			return translate.Unavailable
		}
		slog.Info("translator initialized", "provider", cfg.Provider, "model", cfg.Ark.Model)
		return svc
	}
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) error {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	slog.Info("LinguaLink backend listening", "addr", addr)
	return runServer(ctx, srv)
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
