package main

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/tubechat/tubechat/internal/config"
	"github.com/tubechat/tubechat/internal/core"
	"github.com/tubechat/tubechat/internal/logger"
	"github.com/tubechat/tubechat/internal/store"
	"github.com/tubechat/tubechat/internal/transcript"
)

// app holds the services shared by every command.
type app struct {
	cfg    *config.Config
	log    *logrus.Entry
	ingest *core.IngestService
	chat   *core.ChatService
	close  func()
}

func newApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	indexes, err := store.NewIndexStore(cfg.Index.Dir)
	if err != nil {
		return nil, err
	}
	embedder, err := core.NewEmbedder(cfg.Embedding)
	if err != nil {
		return nil, err
	}
	splitter, err := core.NewSplitter(cfg.Index.Splitter)
	if err != nil {
		return nil, err
	}
	provider := transcript.NewYouTubeProvider(transcript.YouTubeConfig{
		BaseURL:   cfg.Transcript.BaseURL,
		UserAgent: cfg.Transcript.UserAgent,
	}, log)

	ingest := core.NewIngestService(provider, indexes, embedder, splitter, core.EmbeddingModelName(cfg.Embedding), log)
	answers := core.NewAnswerService(core.NewLLMService(cfg.LLM), log)

	return &app{
		cfg:    cfg,
		log:    log,
		ingest: ingest,
		chat:   core.NewChatService(ingest, answers, log),
		close: func() {
			if c, ok := embedder.(io.Closer); ok {
				if err := c.Close(); err != nil {
					log.WithError(err).Warn("failed to close embedder")
				}
			}
		},
	}, nil
}
