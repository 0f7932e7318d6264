package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/voxmate/voxmate-go/internal/audio"
	"github.com/voxmate/voxmate-go/internal/config"
	"github.com/voxmate/voxmate-go/internal/gateway"
	"github.com/voxmate/voxmate-go/internal/gateway/chat"
	"github.com/voxmate/voxmate-go/internal/gateway/stt"
	"github.com/voxmate/voxmate-go/internal/gateway/tts"
	"github.com/voxmate/voxmate-go/internal/metrics"
	"github.com/voxmate/voxmate-go/internal/repository"
	"github.com/voxmate/voxmate-go/internal/session"
)

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (repository.Store, func(), error) {
	if cfg.DatabaseDriver == "memory" {
		logger.Warn("using in-memory store, data is lost on restart")
		return repository.NewMemoryStore(), func() {}, nil
	}

	dialect := repository.Dialect(cfg.DatabaseDriver)
	db, err := repository.NewDB(dialect, cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := repository.Migrate(ctx, db, dialect); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate database: %w", err)
	}

	logger.Info("database ready", "driver", cfg.DatabaseDriver)
	return repository.NewSQLStore(db, dialect), func() { db.Close() }, nil
}

func openSessionStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (session.Store, func(), error) {
	if cfg.SessionStore != "redis" {
		return session.NewMemoryStore(), func() {}, nil
	}

	rdb, err := session.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	logger.Info("redis session store ready", "addr", cfg.RedisAddr)
	return session.NewRedisStore(rdb), func() { rdb.Close() }, nil
}

type gateways struct {
	transcriber stt.Transcriber
	completer   chat.Completer
	synthesizer tts.Synthesizer
}

// buildGateways picks each provider once from the configured credentials,
// falling back to the offline mocks.
func buildGateways(ctx context.Context, cfg config.Config, logger *slog.Logger, m *metrics.Metrics) (gateways, error) {
	guard := func(name, provider string) gateway.Guard {
		return gateway.Guard{
			Gateway:  name,
			Provider: provider,
			Timeout:  cfg.GatewayTimeout,
			Logger:   logger,
			Metrics:  m,
		}
	}
	client := gateway.DefaultHTTPClient()

	var gw gateways

	var primary, secondary stt.Transcriber
	if cfg.OpenAIAPIKey != "" {
		p := stt.NewOpenAI(cfg.OpenAIAPIKey,
			stt.WithBaseURL(cfg.OpenAIBaseURL),
			stt.WithModel(cfg.STTModel),
			stt.WithHTTPClient(client),
		)
		primary = stt.NewGuarded(p, guard("stt", p.Name()))
	}
	if cfg.CartesiaAPIKey != "" {
		p := stt.NewCartesia(cfg.CartesiaAPIKey)
		secondary = stt.NewGuarded(p, guard("stt", p.Name()))
	}
	switch {
	case primary != nil && secondary != nil:
		gw.transcriber = &stt.Fallback{Primary: primary, Secondary: secondary, Logger: logger}
	case primary != nil:
		gw.transcriber = primary
	case secondary != nil:
		gw.transcriber = secondary
	default:
		logger.Warn("no transcription credentials, using mock transcriber")
		gw.transcriber = stt.Mock{}
	}

	switch {
	case cfg.ChatProvider == "gemini" && cfg.GeminiAPIKey != "":
		p, err := chat.NewGemini(ctx, chat.GeminiConfig{APIKey: cfg.GeminiAPIKey, Model: cfg.ChatModel})
		if err != nil {
			return gateways{}, err
		}
		gw.completer = chat.NewGuarded(p, guard("chat", p.Name()))
	case cfg.ChatProvider == "openai" && cfg.OpenAIAPIKey != "":
		p := chat.NewOpenAI(cfg.OpenAIAPIKey,
			chat.WithBaseURL(cfg.OpenAIBaseURL),
			chat.WithModel(cfg.ChatModel),
			chat.WithHTTPClient(client),
		)
		gw.completer = chat.NewGuarded(p, guard("chat", p.Name()))
	default:
		logger.Warn("no chat credentials, using mock completer", "provider", cfg.ChatProvider)
		gw.completer = chat.Mock{}
	}

	if cfg.ElevenLabsAPIKey != "" {
		p := tts.NewElevenLabs(cfg.ElevenLabsAPIKey)
		gw.synthesizer = tts.NewGuarded(p, guard("tts", p.Name()))
	} else {
		logger.Warn("no synthesis credentials, using mock synthesizer")
		gw.synthesizer = tts.Mock{}
	}

	return gw, nil
}

func openAudioStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (audio.Store, error) {
	if cfg.AudioStore != "s3" {
		return audio.DataURLStore{}, nil
	}

	s, err := audio.NewS3Store(ctx, audio.S3Config{
		Bucket:    cfg.S3Bucket,
		Region:    cfg.S3Region,
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
	})
	if err != nil {
		return nil, fmt.Errorf("open audio store: %w", err)
	}
	logger.Info("s3 audio store ready", "bucket", cfg.S3Bucket)
	return s, nil
}
