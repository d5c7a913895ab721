package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"webanswer/api"
	"webanswer/config"
	"webanswer/crawler"
	"webanswer/journal"
	"webanswer/logging"
	"webanswer/pipeline"
	"webanswer/relevance"
	"webanswer/search"
	"webanswer/tools"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to a YAML config file")
	query := pflag.StringP("query", "q", "", "answer a single query and exit")
	logLevel := pflag.String("log-level", "", "override the configured log level")
	pflag.Parse()

	// =========
	// Config
	// =========
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	// =========
	// Logging
	// =========
	logger, err := logging.New(cfg.LogLevel, cfg.Development)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	// =========
	// Profiling
	// =========
	if cfg.PprofPort > 0 {
		go func() {
			addr := "localhost:" + strconv.Itoa(cfg.PprofPort)
			if err := http.ListenAndServe(addr, nil); err != nil {
				logger.Warn("pprof server stopped", zap.Error(err))
			}
		}()
	}

	// =========
	// HTTP
	// =========
	httpTransport, err := crawler.NewTransport(cfg.ProxyURL)
	if err != nil {
		logger.Fatal("failed to create transport", zap.Error(err))
	}
	httpClient := &http.Client{
		Transport: httpTransport,
		Timeout:   cfg.SearchTimeout(),
	}

	// =========
	// Search engine
	// =========
	engine, err := search.NewEngine(search.EngineConfig{
		Provider:   cfg.Search.Provider,
		SerpApiKey: cfg.Search.SerpApiKey,
		ProxyURL:   cfg.ProxyURL,
		MaxResults: cfg.Search.MaxResults,
	}, httpClient, logger)
	if err != nil {
		logger.Fatal("failed to create search engine", zap.Error(err))
	}

	// =========
	// Ranker
	// =========
	rankerOpts := []relevance.Option{relevance.WithParameters(cfg.Ranking.K1, cfg.Ranking.B)}
	if cfg.Ranking.Stemming != "" {
		rankerOpts = append(rankerOpts, relevance.WithStemming(cfg.Ranking.Stemming))
	}
	if cfg.Ranking.StopWords {
		rankerOpts = append(rankerOpts, relevance.WithStopWords(nil))
	}
	ranker := relevance.NewBM25Ranker(rankerOpts...)

	// =========
	// Page retriever
	// =========
	retrieverCfg := crawler.DefaultConfig()
	retrieverCfg.RequestTimeout = cfg.FetchTimeout()
	retrieverCfg.MaxChars = cfg.Fetch.MaxChars
	retrieverCfg.MaxBodyBytes = cfg.Fetch.MaxBodyBytes
	retrieverCfg.Mode = cfg.Fetch.Mode
	retrieverCfg.AllowPrivateNetworks = cfg.Fetch.AllowPrivateNetworks
	if cfg.Fetch.UserAgent != "" {
		retrieverCfg.UserAgent = cfg.Fetch.UserAgent
	}
	retriever := crawler.NewRetriever(retrieverCfg, httpTransport, logger)

	// =========
	// Journal
	// =========
	opts := []pipeline.Option{pipeline.WithMaxResults(cfg.Search.MaxResults)}
	var journalReader api.JournalReader
	if cfg.Journal.Path != "" {
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			logger.Fatal("failed to open journal", zap.Error(err))
		}
		defer j.Close()
		opts = append(opts, pipeline.WithJournal(j))
		journalReader = j
	}

	// =========
	// Pipeline
	// =========
	orchestrator := pipeline.NewOrchestrator(engine, ranker, retriever, logger, opts...)

	if *query != "" {
		fmt.Println(orchestrator.GetAnswerFromWeb(context.Background(), *query))
		return
	}

	// =========
	// Tools
	// =========
	registry := tools.NewRegistry()
	err = registry.Register(
		tools.NewWebAnswerTool(orchestrator),
		tools.NewTimezoneTool(nil),
		tools.NewImageGeneratorTool(tools.ImageGeneratorConfig{
			Endpoint:  cfg.Image.Endpoint,
			Token:     cfg.Image.Token,
			OutputDir: cfg.Image.OutputDir,
			Timeout:   cfg.ImageTimeout(),
		}, &http.Client{Transport: httpTransport, Timeout: cfg.ImageTimeout()}, logger),
		tools.FinalAnswerTool{},
	)
	if err != nil {
		logger.Fatal("failed to register tools", zap.Error(err))
	}

	// =========
	// HTTP server
	// =========
	server := api.NewServer(orchestrator, registry, journalReader, cfg.BatchLimit, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(":" + strconv.Itoa(cfg.AppPort))
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", zap.Error(err))
		}
	}
}
