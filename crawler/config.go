package crawler

import (
	"time"
)

const (
	ModeMarkdown = "markdown"
	ModeText     = "text"
)

type RetrieverConfig struct {
	RequestTimeout       time.Duration
	MaxRedirects         int
	UserAgent            string
	MaxBodyBytes         int
	MaxChars             int
	Mode                 string
	AllowedSchemes       []string
	AllowPrivateNetworks bool
}

// DefaultConfig returns a default retriever configuration
func DefaultConfig() *RetrieverConfig {
	return &RetrieverConfig{
		RequestTimeout: 20 * time.Second,
		MaxRedirects:   10,
		UserAgent:      "Mozilla/5.0 (compatible; webanswer/1.0)",
		MaxBodyBytes:   10 * 1024 * 1024,
		MaxChars:       10000,
		Mode:           ModeMarkdown,
		AllowedSchemes: []string{"http", "https"},
	}
}
