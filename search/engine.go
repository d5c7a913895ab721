package search

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

type EngineConfig struct {
	Provider   string
	SerpApiKey string
	ProxyURL   string
	MaxResults int
}

// NewEngine builds the search engine named by cfg.Provider.
func NewEngine(cfg EngineConfig, client *http.Client, logger *zap.Logger) (SearchEngine, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderDuckDuckGo:
		return NewDuckDuckGoSearchEngine(client, logger, cfg.MaxResults), nil
	case ProviderSerpApi:
		return NewSerpApiSearchEngine(client, cfg.SerpApiKey), nil
	case ProviderBrowser:
		return NewBrowserSearchEngine(logger, cfg.ProxyURL, cfg.MaxResults), nil
	default:
		return nil, unknownProvider(cfg.Provider)
	}
}
