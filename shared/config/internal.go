package config

import (
	"sync"
	"time"
)

var _ IConfig = (*InternalConfig)(nil)

// InternalConfig implements IConfig with in-memory storage. Used in tests
// and anywhere a config file is not wanted.
type InternalConfig struct {
	mu sync.RWMutex

	ServerAddress      string
	LogLevelValue      string
	PublicBaseURLValue string

	SSLEnabledValue      bool
	SSLModeValue         string
	SSLCertFileValue     string
	SSLKeyFileValue      string
	SSLAcmeDomainsValue  []string
	SSLAcmeEmailValue    string
	SSLAcmeCacheDirValue string

	GalleryURLValue     string
	RAGURLValue         string
	GalleryTimeoutValue time.Duration
	RAGTimeoutValue     time.Duration

	LLMURLValue    string
	LLMAPIKeyValue string
	LLMModelValue  string

	DatabaseURLValue     string
	AdminPromptFileValue string
	TurnsPerMinuteValue  int
}

// NewInternalConfig creates a new in-memory configuration with defaults.
func NewInternalConfig() *InternalConfig {
	return &InternalConfig{
		ServerAddress:        ":8080",
		LogLevelValue:        "info",
		PublicBaseURLValue:   "http://localhost:8080",
		SSLModeValue:         "manual",
		SSLAcmeCacheDirValue: "./.autocert-cache",
		GalleryTimeoutValue:  30 * time.Second,
		RAGTimeoutValue:      60 * time.Second,
		TurnsPerMinuteValue:  30,
	}
}

func (c *InternalConfig) ListenAddr() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ServerAddress, nil
}

func (c *InternalConfig) SetListenAddr(addr string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ServerAddress = addr
}

func (c *InternalConfig) LogLevel() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.LogLevelValue, nil
}

func (c *InternalConfig) PublicBaseURL() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.PublicBaseURLValue, nil
}

func (c *InternalConfig) SSLEnabled() (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.SSLEnabledValue, nil
}

func (c *InternalConfig) SSLMode() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.SSLModeValue, nil
}

func (c *InternalConfig) SSLCertFile() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.SSLCertFileValue, nil
}

func (c *InternalConfig) SSLKeyFile() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.SSLKeyFileValue, nil
}

func (c *InternalConfig) SSLAcmeDomains() ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.SSLAcmeDomainsValue, nil
}

func (c *InternalConfig) SSLAcmeEmail() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.SSLAcmeEmailValue, nil
}

func (c *InternalConfig) SSLAcmeCacheDir() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.SSLAcmeCacheDirValue, nil
}

func (c *InternalConfig) GalleryURL() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.GalleryURLValue == "" {
		return "", ErrNotFound
	}
	return c.GalleryURLValue, nil
}

func (c *InternalConfig) RAGURL() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.RAGURLValue == "" {
		return "", ErrNotFound
	}
	return c.RAGURLValue, nil
}

func (c *InternalConfig) GalleryTimeout() (time.Duration, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.GalleryTimeoutValue, nil
}

func (c *InternalConfig) RAGTimeout() (time.Duration, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.RAGTimeoutValue, nil
}

func (c *InternalConfig) LLMURL() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.LLMURLValue == "" {
		return "", ErrNotFound
	}
	return c.LLMURLValue, nil
}

func (c *InternalConfig) LLMAPIKey() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.LLMAPIKeyValue, nil
}

func (c *InternalConfig) LLMModel() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.LLMModelValue, nil
}

func (c *InternalConfig) DatabaseURL() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.DatabaseURLValue == "" {
		return "", ErrNotFound
	}
	return c.DatabaseURLValue, nil
}

func (c *InternalConfig) AdminPromptFile() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.AdminPromptFileValue, nil
}

func (c *InternalConfig) TurnsPerMinute() (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.TurnsPerMinuteValue, nil
}

func (c *InternalConfig) Close() error {
	return nil
}
