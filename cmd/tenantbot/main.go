package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tenantbot/tenantbot/chunks"
	"github.com/tenantbot/tenantbot/clients/gallery"
	"github.com/tenantbot/tenantbot/clients/llm"
	"github.com/tenantbot/tenantbot/clients/rag"
	"github.com/tenantbot/tenantbot/execute"
	"github.com/tenantbot/tenantbot/server/chat"
	"github.com/tenantbot/tenantbot/server/transport"
	"github.com/tenantbot/tenantbot/shared/config"
)

const EnvConfigYAML = "TENANTBOT_CONFIG_YAML"

func main() {
	loggerConfig := zap.NewProductionConfig()
	loggerConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, err := loggerConfig.Build()
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	configYAML := flag.String("config-yaml", "", "Path to YAML configuration file")
	flag.Parse()

	yamlPath := os.Getenv(EnvConfigYAML)
	if *configYAML != "" {
		yamlPath = *configYAML
	}
	if yamlPath == "" {
		yamlPath = "config.yaml"
	}

	logger.Info("Loading configuration", zap.String("path", yamlPath))
	cfg, err := config.NewYamlConfig(yamlPath, logger)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}
	defer cfg.Close()

	if level, err := cfg.LogLevel(); err == nil {
		var zapLevel zapcore.Level
		if err := zapLevel.UnmarshalText([]byte(strings.ToLower(level))); err == nil {
			loggerConfig.Level.SetLevel(zapLevel)
		} else {
			logger.Warn("Unknown log level in config", zap.String("level", level))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.StartWatcher(ctx); err != nil {
		logger.Warn("Config watcher not started", zap.Error(err))
	}

	// --- Storage ---
	dbURL, err := cfg.DatabaseURL()
	if err != nil {
		logger.Fatal("Database URL is required", zap.Error(err))
	}
	store, err := chunks.NewPostgresStore(dbURL, logger)
	if err != nil {
		logger.Fatal("Failed to open chunk store", zap.Error(err))
	}
	defer store.Close()
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Fatal("Failed to ensure schema", zap.Error(err))
	}

	// --- Downstream clients ---
	galleryURL, err := cfg.GalleryURL()
	if err != nil {
		logger.Fatal("Gallery service URL is required", zap.Error(err))
	}
	galleryTimeout, _ := cfg.GalleryTimeout()
	galleryClient := gallery.New(galleryURL, galleryTimeout, logger)

	ragURL, err := cfg.RAGURL()
	if err != nil {
		logger.Fatal("RAG service URL is required", zap.Error(err))
	}
	ragTimeout, _ := cfg.RAGTimeout()
	ragClient := rag.New(ragURL, ragTimeout, logger)

	llmURL, err := cfg.LLMURL()
	if err != nil {
		logger.Fatal("LLM service URL is required", zap.Error(err))
	}
	llmAPIKey, _ := cfg.LLMAPIKey()
	llmModel, _ := cfg.LLMModel()
	llmClient := llm.New(llmURL, llmAPIKey, llmModel, logger)

	// --- Executor core ---
	publicBaseURL, _ := cfg.PublicBaseURL()
	dispatcher := execute.NewDispatcher(store, galleryClient, ragClient, publicBaseURL, logger)
	pipeline := execute.NewPipeline(dispatcher, logger)

	adminPrompt := ""
	if promptFile, err := cfg.AdminPromptFile(); err == nil && promptFile != "" {
		data, err := os.ReadFile(promptFile)
		if err != nil {
			logger.Warn("Admin prompt file not readable, using built-in prompt",
				zap.String("path", promptFile), zap.Error(err))
		} else {
			adminPrompt = string(data)
		}
	}
	turns := chat.NewService(store, llmClient, pipeline, adminPrompt, logger)

	// --- HTTP surface ---
	turnsPerMinute, _ := cfg.TurnsPerMinute()
	limiter := transport.NewTenantLimiter(turnsPerMinute)
	handler := transport.NewChatHandler(turns, limiter, logger)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	server, errChan, err := transport.StartHTTPServer(ctx, logger, cfg, mux, "")
	if err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		if err != nil {
			logger.Error("Server listener failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	transport.ShutdownHTTPServer(shutdownCtx, logger, server)
}
