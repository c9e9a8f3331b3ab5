package config

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

// IConfig provides all configuration values consumed by the server,
// the command executor and the downstream service clients.
type IConfig interface {
	ListenAddr() (string, error)
	LogLevel() (string, error)

	// PublicBaseURL is the address rendered into user-visible links
	// (gallery image URLs in command results).
	PublicBaseURL() (string, error)

	SSLEnabled() (bool, error)
	SSLMode() (string, error)
	SSLCertFile() (string, error)
	SSLKeyFile() (string, error)
	SSLAcmeDomains() ([]string, error)
	SSLAcmeEmail() (string, error)
	SSLAcmeCacheDir() (string, error)

	GalleryURL() (string, error)
	RAGURL() (string, error)
	GalleryTimeout() (time.Duration, error)
	RAGTimeout() (time.Duration, error)

	LLMURL() (string, error)
	LLMAPIKey() (string, error)
	LLMModel() (string, error)

	DatabaseURL() (string, error)

	AdminPromptFile() (string, error)

	// TurnsPerMinute limits how many chat turns a single tenant may start
	// per minute. Zero disables the limit.
	TurnsPerMinute() (int, error)

	Close() error
}
