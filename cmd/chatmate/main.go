package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"chat-mate/config"
	"chat-mate/internal/application"
	"chat-mate/internal/infra/anthropic"
	"chat-mate/internal/infra/audio"
	"chat-mate/internal/infra/console"
	"chat-mate/internal/infra/gemini"
	"chat-mate/internal/infra/google"
	"chat-mate/internal/infra/metrics"
	"chat-mate/internal/infra/openai"
	"chat-mate/internal/infra/pushover"
	"chat-mate/internal/infra/web"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	recognizer := createRecognizer(cfg)
	chat := createChatClient(cfg)

	session := application.NewSession(chat)
	defer session.Close()

	hub := web.NewHub(logger)
	presenters := application.MultiPresenter{hub}
	if cfg.Audio.Source != "http" {
		presenters = append(presenters, console.NewPresenter(os.Stdout))
	}

	var notifier *pushover.Client
	if cfg.Pushover.Enabled {
		notifier = pushover.NewClient(cfg.Pushover.Token, cfg.Pushover.UserKey, logger)
		presenters = append(presenters, notifier)
	}

	promMetrics := metrics.NewMetrics()
	audioSource := createAudioSource(cfg.Audio, logger)

	assistant := application.NewAssistant(
		audioSource,
		application.NewTranscriber(recognizer, logger),
		session,
		presenters,
		promMetrics,
		logger,
	)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)

	web.NewHandler(assistant, hub, logger).RegisterRoutes(r)
	r.Method(http.MethodGet, "/metrics", promMetrics.Handler())
	if src, ok := audioSource.(*audio.HTTPSource); ok {
		src.RegisterRoutes(r)
	}

	// No WriteTimeout: the websocket feed is long-lived.
	srv := &http.Server{
		Addr:        cfg.Audio.HTTPAddr,
		Handler:     r,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	logger.Info("starting chat-mate",
		"audio_source", cfg.Audio.Source,
		"speech_provider", cfg.Speech.Provider,
		"chat_provider", cfg.Chat.Provider,
	)

	runErr := assistant.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logger.Error("assistant stopped", "error", runErr)
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed, forcing close", "error", err)
		srv.Close()
	}
	if notifier != nil {
		notifier.Wait()
	}
}

func createRecognizer(cfg *config.Config) application.SpeechRecognizer {
	switch cfg.Speech.Provider {
	case "openai":
		return openai.NewWhisperClient(cfg.OpenAI.APIKey, cfg.Speech.Language, cfg.Speech.Timeout)
	default:
		return google.NewSpeechClient(cfg.Google.APIKey, cfg.Speech.Language, cfg.Speech.Timeout)
	}
}

func createChatClient(cfg *config.Config) application.ChatClient {
	c := cfg.Chat
	switch c.Provider {
	case "openai":
		return openai.NewChatClient(cfg.OpenAI.APIKey, c.Model, c.SystemPrompt, c.MaxTokens, c.Timeout)
	case "anthropic":
		return anthropic.NewClaudeClient(cfg.Anthropic.APIKey, c.Model, c.SystemPrompt, c.MaxTokens, c.Timeout)
	default:
		return gemini.NewClient(cfg.Google.APIKey, c.Model, c.SystemPrompt, c.MaxTokens, c.Timeout)
	}
}

func createAudioSource(cfg config.AudioConfig, logger *slog.Logger) application.AudioSource {
	switch cfg.Source {
	case "file":
		return audio.NewFileSource(cfg.FileDir, cfg.SampleRate)
	case "microphone":
		return audio.NewMicrophoneSource(cfg.SampleRate, logger)
	default:
		return audio.NewHTTPSource(cfg.AuthToken, logger)
	}
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
