package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"webanswer/relevance"

	"gopkg.in/yaml.v3"
)

type Config struct {
	AppPort     int           `yaml:"app_port"`
	PprofPort   int           `yaml:"pprof_port"`
	ProxyURL    string        `yaml:"proxy_url"`
	LogLevel    string        `yaml:"log_level"`
	Development bool          `yaml:"development"`
	Search      SearchConfig  `yaml:"search"`
	Fetch       FetchConfig   `yaml:"fetch"`
	Ranking     RankingConfig `yaml:"ranking"`
	Journal     JournalConfig `yaml:"journal"`
	Image       ImageConfig   `yaml:"image"`
	BatchLimit  int           `yaml:"batch_limit"`
}

type SearchConfig struct {
	Provider       string `yaml:"provider"`
	SerpApiKey     string `yaml:"serpapi_key"`
	MaxResults     int    `yaml:"max_results"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type FetchConfig struct {
	TimeoutSeconds       int    `yaml:"timeout_seconds"`
	MaxChars             int    `yaml:"max_chars"`
	MaxBodyBytes         int    `yaml:"max_body_bytes"`
	Mode                 string `yaml:"mode"`
	UserAgent            string `yaml:"user_agent"`
	AllowPrivateNetworks bool   `yaml:"allow_private_networks"`
}

type RankingConfig struct {
	K1        float64 `yaml:"k1"`
	B         float64 `yaml:"b"`
	Stemming  string  `yaml:"stemming"`
	StopWords bool    `yaml:"stop_words"`
}

type JournalConfig struct {
	Path string `yaml:"path"`
}

type ImageConfig struct {
	Endpoint       string `yaml:"endpoint"`
	Token          string `yaml:"token"`
	OutputDir      string `yaml:"output_dir"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

func Default() *Config {
	return &Config{
		AppPort:  8080,
		LogLevel: "info",
		Search: SearchConfig{
			Provider:       "duckduckgo",
			MaxResults:     10,
			TimeoutSeconds: 30,
		},
		Fetch: FetchConfig{
			TimeoutSeconds: 20,
			MaxChars:       10000,
			MaxBodyBytes:   10 * 1024 * 1024,
			Mode:           "markdown",
		},
		Ranking: RankingConfig{
			K1: 1.5,
			B:  0.75,
		},
		Image: ImageConfig{
			OutputDir:      "generated",
			TimeoutSeconds: 120,
		},
		BatchLimit: 4,
	}
}

// Load applies defaults, then the YAML file at path when path is not
// empty, then environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var errs []error
	setInt := func(key string, dst *int) {
		if v, ok := lookupEnv(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("environment variable %s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	setString := func(key string, dst *string) {
		if v, ok := lookupEnv(key); ok {
			*dst = v
		}
	}
	setBool := func(key string, dst *bool) {
		if v, ok := lookupEnv(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("environment variable %s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	setInt("APP_PORT", &c.AppPort)
	setInt("PPROF_PORT", &c.PprofPort)
	setString("PROXY_URL", &c.ProxyURL)
	setString("LOG_LEVEL", &c.LogLevel)
	setBool("LOG_DEVELOPMENT", &c.Development)
	setString("SEARCH_PROVIDER", &c.Search.Provider)
	setString("SERPAPI_KEY", &c.Search.SerpApiKey)
	setInt("SEARCH_MAX_RESULTS", &c.Search.MaxResults)
	setInt("SEARCH_TIMEOUT_SECONDS", &c.Search.TimeoutSeconds)
	setInt("FETCH_TIMEOUT_SECONDS", &c.Fetch.TimeoutSeconds)
	setInt("FETCH_MAX_CHARS", &c.Fetch.MaxChars)
	setString("FETCH_MODE", &c.Fetch.Mode)
	setBool("FETCH_ALLOW_PRIVATE_NETWORKS", &c.Fetch.AllowPrivateNetworks)
	setString("RANKING_STEMMING", &c.Ranking.Stemming)
	setString("JOURNAL_PATH", &c.Journal.Path)
	setString("IMAGE_ENDPOINT", &c.Image.Endpoint)
	setString("IMAGE_TOKEN", &c.Image.Token)
	setString("IMAGE_OUTPUT_DIR", &c.Image.OutputDir)
	setInt("BATCH_LIMIT", &c.BatchLimit)

	return errors.Join(errs...)
}

func (c *Config) Validate() error {
	var errs []error
	if c.AppPort <= 0 || c.AppPort > 65535 {
		errs = append(errs, fmt.Errorf("app_port %d out of range", c.AppPort))
	}
	if c.PprofPort < 0 || c.PprofPort > 65535 {
		errs = append(errs, fmt.Errorf("pprof_port %d out of range", c.PprofPort))
	}
	switch c.Search.Provider {
	case "duckduckgo", "browser":
	case "serpapi":
		if c.Search.SerpApiKey == "" {
			errs = append(errs, errors.New("serpapi provider requires serpapi_key"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown search provider %q", c.Search.Provider))
	}
	if c.Search.MaxResults <= 0 {
		errs = append(errs, errors.New("search max_results must be positive"))
	}
	if c.Search.TimeoutSeconds <= 0 || c.Fetch.TimeoutSeconds <= 0 {
		errs = append(errs, errors.New("timeouts must be positive"))
	}
	if c.Fetch.Mode != "markdown" && c.Fetch.Mode != "text" {
		errs = append(errs, fmt.Errorf("unknown fetch mode %q", c.Fetch.Mode))
	}
	if c.Fetch.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("fetch max_body_bytes must be positive"))
	}
	if c.Ranking.K1 < 0 || c.Ranking.B < 0 || c.Ranking.B > 1 {
		errs = append(errs, fmt.Errorf("invalid bm25 parameters k1=%v b=%v", c.Ranking.K1, c.Ranking.B))
	}
	if c.Ranking.Stemming != "" {
		if err := relevance.CheckStemLanguage(c.Ranking.Stemming); err != nil {
			errs = append(errs, fmt.Errorf("ranking stemming: %w", err))
		}
	}
	if c.BatchLimit < 0 {
		errs = append(errs, errors.New("batch_limit must not be negative"))
	}
	return errors.Join(errs...)
}

func (c *Config) SearchTimeout() time.Duration {
	return time.Duration(c.Search.TimeoutSeconds) * time.Second
}

func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

func (c *Config) ImageTimeout() time.Duration {
	return time.Duration(c.Image.TimeoutSeconds) * time.Second
}

func lookupEnv(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}
