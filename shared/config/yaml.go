package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var _ IConfig = (*YamlConfig)(nil)

// YamlConfig implements IConfig with YAML file-based storage.
type YamlConfig struct {
	mu         sync.RWMutex
	configPath string
	logger     *zap.Logger

	listenAddr    string
	logLevel      string
	publicBaseURL string

	sslEnabled      bool
	sslMode         string
	sslCertFile     string
	sslKeyFile      string
	sslAcmeDomains  []string
	sslAcmeEmail    string
	sslAcmeCacheDir string

	galleryURL     string
	ragURL         string
	galleryTimeout time.Duration
	ragTimeout     time.Duration

	llmURL    string
	llmAPIKey string
	llmModel  string

	databaseURL     string
	adminPromptFile string
	turnsPerMinute  int

	watcher *fsnotify.Watcher
}

// YAML configuration structure matching the config file format.
type yamlConfig struct {
	Server struct {
		Address       string `yaml:"address"`
		LogLevel      string `yaml:"log_level"`
		PublicBaseURL string `yaml:"public_base_url"`
		SSL           struct {
			Enabled      bool     `yaml:"enabled"`
			Mode         string   `yaml:"mode"`
			CertFile     string   `yaml:"cert_file"`
			KeyFile      string   `yaml:"key_file"`
			AcmeDomains  []string `yaml:"acme_domains"`
			AcmeEmail    string   `yaml:"acme_email"`
			AcmeCacheDir string   `yaml:"acme_cache_dir"`
		} `yaml:"ssl"`
	} `yaml:"server"`

	Services struct {
		GalleryURL            string `yaml:"gallery_url"`
		RAGURL                string `yaml:"rag_url"`
		GalleryTimeoutSeconds int    `yaml:"gallery_timeout_seconds"`
		RAGTimeoutSeconds     int    `yaml:"rag_timeout_seconds"`
	} `yaml:"services"`

	LLM struct {
		URL    string `yaml:"url"`
		APIKey string `yaml:"api_key"`
		Model  string `yaml:"model"`
	} `yaml:"llm"`

	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`

	Prompts struct {
		AdminPromptFile string `yaml:"admin_prompt_file"`
	} `yaml:"prompts"`

	Limits struct {
		TurnsPerMinute int `yaml:"turns_per_minute"`
	} `yaml:"limits"`
}

// NewYamlConfig creates a new YAML-based configuration and loads it once.
func NewYamlConfig(configPath string, logger *zap.Logger) (*YamlConfig, error) {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}

	config := &YamlConfig{
		configPath:      configPath,
		logger:          logger,
		listenAddr:      ":8080",
		logLevel:        "info",
		publicBaseURL:   "http://localhost:8080",
		sslMode:         "manual",
		sslAcmeCacheDir: "./.autocert-cache",
		galleryTimeout:  30 * time.Second,
		ragTimeout:      60 * time.Second,
		turnsPerMinute:  30,
	}

	if err := config.Update(); err != nil {
		return nil, err
	}
	return config, nil
}

// Update reloads configuration from the YAML file.
func (c *YamlConfig) Update() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logger.Debug("Updating configuration from YAML file", zap.String("path", c.configPath))

	data, err := os.ReadFile(c.configPath)
	if err != nil {
		c.logger.Error("Failed to read config file", zap.Error(err))
		return err
	}

	var parsed yamlConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		c.logger.Error("Failed to parse config file", zap.Error(err))
		return fmt.Errorf("parse %s: %w", c.configPath, err)
	}

	if parsed.Server.Address != "" {
		c.listenAddr = parsed.Server.Address
	}
	if parsed.Server.LogLevel != "" {
		c.logLevel = parsed.Server.LogLevel
	}
	if parsed.Server.PublicBaseURL != "" {
		c.publicBaseURL = parsed.Server.PublicBaseURL
	}

	c.sslEnabled = parsed.Server.SSL.Enabled
	if parsed.Server.SSL.Mode != "" {
		c.sslMode = parsed.Server.SSL.Mode
	}
	c.sslCertFile = parsed.Server.SSL.CertFile
	c.sslKeyFile = parsed.Server.SSL.KeyFile
	c.sslAcmeDomains = parsed.Server.SSL.AcmeDomains
	c.sslAcmeEmail = parsed.Server.SSL.AcmeEmail
	if parsed.Server.SSL.AcmeCacheDir != "" {
		c.sslAcmeCacheDir = parsed.Server.SSL.AcmeCacheDir
	}

	c.galleryURL = parsed.Services.GalleryURL
	c.ragURL = parsed.Services.RAGURL
	if parsed.Services.GalleryTimeoutSeconds > 0 {
		c.galleryTimeout = time.Duration(parsed.Services.GalleryTimeoutSeconds) * time.Second
	}
	if parsed.Services.RAGTimeoutSeconds > 0 {
		c.ragTimeout = time.Duration(parsed.Services.RAGTimeoutSeconds) * time.Second
	}

	c.llmURL = parsed.LLM.URL
	c.llmAPIKey = parsed.LLM.APIKey
	c.llmModel = parsed.LLM.Model

	c.databaseURL = parsed.Database.URL
	c.adminPromptFile = parsed.Prompts.AdminPromptFile
	if parsed.Limits.TurnsPerMinute > 0 {
		c.turnsPerMinute = parsed.Limits.TurnsPerMinute
	}

	c.logger.Info("Configuration loaded",
		zap.String("listenAddr", c.listenAddr),
		zap.String("galleryURL", c.galleryURL),
		zap.String("ragURL", c.ragURL),
	)
	return nil
}

// StartWatcher watches the config file and re-applies it on change until
// ctx is cancelled. Editors often replace the file, so the parent directory
// is watched and events are filtered by name.
func (c *YamlConfig) StartWatcher(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(c.configPath)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", c.configPath, err)
	}

	c.mu.Lock()
	c.watcher = watcher
	c.mu.Unlock()

	go func() {
		defer watcher.Close()
		target := filepath.Clean(c.configPath)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				c.logger.Info("Config file changed, reloading", zap.String("path", c.configPath))
				if err := c.Update(); err != nil {
					c.logger.Error("Config reload failed, keeping previous values", zap.Error(err))
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				c.logger.Warn("Config watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}

// Close closes any resources held by the config.
func (c *YamlConfig) Close() error {
	return nil
}

func (c *YamlConfig) ListenAddr() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.listenAddr, nil
}

func (c *YamlConfig) LogLevel() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.logLevel, nil
}

func (c *YamlConfig) PublicBaseURL() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.publicBaseURL, nil
}

func (c *YamlConfig) SSLEnabled() (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sslEnabled, nil
}

func (c *YamlConfig) SSLMode() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sslMode, nil
}

func (c *YamlConfig) SSLCertFile() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sslCertFile, nil
}

func (c *YamlConfig) SSLKeyFile() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sslKeyFile, nil
}

func (c *YamlConfig) SSLAcmeDomains() ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sslAcmeDomains, nil
}

func (c *YamlConfig) SSLAcmeEmail() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sslAcmeEmail, nil
}

func (c *YamlConfig) SSLAcmeCacheDir() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sslAcmeCacheDir, nil
}

func (c *YamlConfig) GalleryURL() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.galleryURL == "" {
		return "", ErrNotFound
	}
	return c.galleryURL, nil
}

func (c *YamlConfig) RAGURL() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.ragURL == "" {
		return "", ErrNotFound
	}
	return c.ragURL, nil
}

func (c *YamlConfig) GalleryTimeout() (time.Duration, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.galleryTimeout, nil
}

func (c *YamlConfig) RAGTimeout() (time.Duration, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ragTimeout, nil
}

func (c *YamlConfig) LLMURL() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.llmURL == "" {
		return "", ErrNotFound
	}
	return c.llmURL, nil
}

func (c *YamlConfig) LLMAPIKey() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.llmAPIKey, nil
}

func (c *YamlConfig) LLMModel() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.llmModel, nil
}

func (c *YamlConfig) DatabaseURL() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.databaseURL == "" {
		return "", ErrNotFound
	}
	return c.databaseURL, nil
}

func (c *YamlConfig) AdminPromptFile() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.adminPromptFile, nil
}

func (c *YamlConfig) TurnsPerMinute() (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.turnsPerMinute, nil
}
