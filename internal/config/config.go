package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/gommon/bytes"
	"gopkg.in/yaml.v3"
)

// Render engines understood by the scraper factory
const (
	EngineReader    = "reader"
	EngineFirecrawl = "firecrawl"
	EngineBrowser   = "browser"
)

// AdapterConfig configures a single logging sink
type AdapterConfig struct {
	Name    string                 `yaml:"name"`
	Type    string                 `yaml:"type"`
	Enabled bool                   `yaml:"enabled"`
	Options map[string]interface{} `yaml:"options"`
}

// Config represents the application configuration
type Config struct {
	Server struct {
		Port           int           `yaml:"port" default:"8080"`
		Host           string        `yaml:"host" default:"0.0.0.0"`
		ReadTimeout    time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout   time.Duration `yaml:"write_timeout" default:"120s"`
		IdleTimeout    time.Duration `yaml:"idle_timeout" default:"60s"`
		RequestTimeout time.Duration `yaml:"request_timeout" default:"90s"`
		MaxBodySize    string        `yaml:"max_body_size" default:"15M"`
		AllowOrigins   []string      `yaml:"allow_origins"`
	} `yaml:"server"`

	Ingest struct {
		MinTextLength int `yaml:"min_text_length" default:"50"`
		MaxPageChars  int `yaml:"max_page_chars" default:"20000"`
		MaxDocBytes   int `yaml:"max_doc_bytes" default:"10485760"`
	} `yaml:"ingest"`

	Resilience struct {
		RenderTimeout time.Duration `yaml:"render_timeout" default:"45s"`
		LLMTimeout    time.Duration `yaml:"llm_timeout" default:"60s"`
		MaxAttempts   int           `yaml:"max_attempts" default:"3"`
		BaseDelay     time.Duration `yaml:"base_delay" default:"500ms"`
		MaxDelay      time.Duration `yaml:"max_delay" default:"5s"`

		BreakerEnabled      bool          `yaml:"breaker_enabled" default:"false"`
		BreakerMaxFailures  int           `yaml:"breaker_max_failures" default:"5"`
		BreakerResetTimeout time.Duration `yaml:"breaker_reset_timeout" default:"30s"`
	} `yaml:"resilience"`

	RateLimit struct {
		RenderPerMinute int    `yaml:"render_per_minute" default:"30"`
		LLMPerMinute    int    `yaml:"llm_per_minute" default:"60"`
		Burst           int    `yaml:"burst" default:"5"`
		RedisURL        string `yaml:"redis_url"`
		KeyPrefix       string `yaml:"key_prefix" default:"fitcheck:ratelimit"`
	} `yaml:"rate_limit"`

	LLM struct {
		Provider    string  `yaml:"provider" default:"claude"`
		APIKey      string  `yaml:"api_key"`
		Model       string  `yaml:"model" default:"claude-3-5-haiku-latest"`
		BaseURL     string  `yaml:"base_url"`
		MaxTokens   int     `yaml:"max_tokens" default:"2048"`
		Temperature float32 `yaml:"temperature" default:"0.1"`

		HealthInterval time.Duration `yaml:"health_interval" default:"30s"`
	} `yaml:"llm"`

	Renderer struct {
		Engine    string `yaml:"engine" default:"reader"`
		UserAgent string `yaml:"user_agent"`

		Reader struct {
			BaseURL string `yaml:"base_url" default:"https://r.jina.ai"`
			APIKey  string `yaml:"api_key"`
		} `yaml:"reader"`

		Firecrawl struct {
			APIKey  string   `yaml:"api_key"`
			APIURL  string   `yaml:"api_url" default:"https://api.firecrawl.dev"`
			Formats []string `yaml:"formats"`
		} `yaml:"firecrawl"`

		Browser struct {
			Headless  bool          `yaml:"headless" default:"true"`
			Stealth   bool          `yaml:"stealth" default:"true"`
			WaitAfter time.Duration `yaml:"wait_after" default:"2s"`
			Bin       string        `yaml:"bin"`
		} `yaml:"browser"`
	} `yaml:"renderer"`

	Logging struct {
		Level    string          `yaml:"level" default:"info"`
		Format   string          `yaml:"format" default:"json"`
		Output   string          `yaml:"output" default:"stdout"`
		Adapters []AdapterConfig `yaml:"adapters"`
	} `yaml:"logging"`
}

// expandEnvVars expands environment variables in a string using ${VAR} or $VAR syntax
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	s = re.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})

	re2 := regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
	s = re2.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[1:]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})

	return s
}

// Default returns a configuration populated with built-in defaults only
func Default() *Config {
	config := &Config{}

	config.Server.Port = 8080
	config.Server.Host = "0.0.0.0"
	config.Server.ReadTimeout = 30 * time.Second
	config.Server.WriteTimeout = 120 * time.Second
	config.Server.IdleTimeout = 60 * time.Second
	config.Server.RequestTimeout = 90 * time.Second
	config.Server.MaxBodySize = "15M"
	config.Server.AllowOrigins = []string{"*"}

	config.Ingest.MinTextLength = 50
	config.Ingest.MaxPageChars = 20000
	config.Ingest.MaxDocBytes = 10 << 20

	config.Resilience.RenderTimeout = 45 * time.Second
	config.Resilience.LLMTimeout = 60 * time.Second
	config.Resilience.MaxAttempts = 3
	config.Resilience.BaseDelay = 500 * time.Millisecond
	config.Resilience.MaxDelay = 5 * time.Second
	config.Resilience.BreakerMaxFailures = 5
	config.Resilience.BreakerResetTimeout = 30 * time.Second

	config.RateLimit.RenderPerMinute = 30
	config.RateLimit.LLMPerMinute = 60
	config.RateLimit.Burst = 5
	config.RateLimit.KeyPrefix = "fitcheck:ratelimit"

	config.LLM.Provider = "claude"
	config.LLM.Model = "claude-3-5-haiku-latest"
	config.LLM.MaxTokens = 2048
	config.LLM.Temperature = 0.1
	config.LLM.HealthInterval = 30 * time.Second

	config.Renderer.Engine = EngineReader
	config.Renderer.UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	config.Renderer.Reader.BaseURL = "https://r.jina.ai"
	config.Renderer.Firecrawl.APIURL = "https://api.firecrawl.dev"
	config.Renderer.Firecrawl.Formats = []string{"markdown"}
	config.Renderer.Browser.Headless = true
	config.Renderer.Browser.Stealth = true
	config.Renderer.Browser.WaitAfter = 2 * time.Second

	config.Logging.Level = "info"
	config.Logging.Format = "json"
	config.Logging.Output = "stdout"

	return config
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// Load .env file if it exists (ignore errors if file doesn't exist)
	_ = godotenv.Load()

	config := Default()

	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			yamlContent := expandEnvVars(string(data))

			if err := yaml.Unmarshal([]byte(yamlContent), config); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", configPath, err)
			}
		}
	}

	config.loadFromEnv()

	return config, nil
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if host := os.Getenv("HOST"); host != "" {
		c.Server.Host = host
	}

	if provider := os.Getenv("LLM_PROVIDER"); provider != "" {
		c.LLM.Provider = provider
	}

	if apiKey := os.Getenv("LLM_API_KEY"); apiKey != "" {
		c.LLM.APIKey = apiKey
	}

	if model := os.Getenv("LLM_MODEL"); model != "" {
		c.LLM.Model = model
	}

	if baseURL := os.Getenv("LLM_BASE_URL"); baseURL != "" {
		c.LLM.BaseURL = baseURL
	}

	if engine := os.Getenv("RENDER_ENGINE"); engine != "" {
		c.Renderer.Engine = strings.ToLower(engine)
	}

	if firecrawlAPIKey := os.Getenv("FIRECRAWL_API_KEY"); firecrawlAPIKey != "" {
		c.Renderer.Firecrawl.APIKey = firecrawlAPIKey
	}

	if firecrawlAPIURL := os.Getenv("FIRECRAWL_API_URL"); firecrawlAPIURL != "" {
		c.Renderer.Firecrawl.APIURL = firecrawlAPIURL
	}

	if readerBaseURL := os.Getenv("READER_BASE_URL"); readerBaseURL != "" {
		c.Renderer.Reader.BaseURL = readerBaseURL
	}

	if readerAPIKey := os.Getenv("READER_API_KEY"); readerAPIKey != "" {
		c.Renderer.Reader.APIKey = readerAPIKey
	}

	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.RateLimit.RedisURL = redisURL
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	if logFormat := os.Getenv("LOG_FORMAT"); logFormat != "" {
		c.Logging.Format = logFormat
	}

	if minText := os.Getenv("MIN_TEXT_LENGTH"); minText != "" {
		if n, err := strconv.Atoi(minText); err == nil {
			c.Ingest.MinTextLength = n
		}
	}

	if maxChars := os.Getenv("MAX_PAGE_CHARS"); maxChars != "" {
		if n, err := strconv.Atoi(maxChars); err == nil {
			c.Ingest.MaxPageChars = n
		}
	}

	if attempts := os.Getenv("RETRY_MAX_ATTEMPTS"); attempts != "" {
		if n, err := strconv.Atoi(attempts); err == nil {
			c.Resilience.MaxAttempts = n
		}
	}

	if breaker := os.Getenv("CIRCUIT_BREAKER_ENABLED"); breaker != "" {
		if enabled, err := strconv.ParseBool(breaker); err == nil {
			c.Resilience.BreakerEnabled = enabled
		}
	}
}

// MaxBodyBytes returns server.max_body_size in bytes, or 0 when it cannot be parsed
func (c *Config) MaxBodyBytes() int64 {
	n, err := bytes.Parse(c.Server.MaxBodySize)
	if err != nil {
		return 0
	}
	return n
}

// Address returns the listen address for the shared HTTP/gRPC port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Validate returns every configuration problem found, or nil
func (c *Config) Validate() []string {
	var problems []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port out of range: %d", c.Server.Port))
	}

	if c.Ingest.MinTextLength < 0 {
		problems = append(problems, "ingest.min_text_length must not be negative")
	}

	if c.Ingest.MaxPageChars <= 0 {
		problems = append(problems, "ingest.max_page_chars must be positive")
	}

	if c.Resilience.MaxAttempts < 1 {
		problems = append(problems, "resilience.max_attempts must be at least 1")
	}

	if c.Resilience.BaseDelay < 0 || c.Resilience.MaxDelay < c.Resilience.BaseDelay {
		problems = append(problems, "resilience.max_delay must be >= resilience.base_delay >= 0")
	}

	if c.Resilience.BreakerEnabled && (c.Resilience.BreakerMaxFailures < 1 || c.Resilience.BreakerResetTimeout <= 0) {
		problems = append(problems, "resilience.breaker_max_failures and breaker_reset_timeout must be positive when the breaker is enabled")
	}

	if c.MaxBodyBytes() <= 0 {
		problems = append(problems, fmt.Sprintf("server.max_body_size is not a valid size: %q", c.Server.MaxBodySize))
	}

	switch c.LLM.Provider {
	case "claude", "gemini":
		if c.LLM.APIKey == "" {
			problems = append(problems, fmt.Sprintf("llm.api_key is required for provider %s", c.LLM.Provider))
		}
	case "ollama":
	default:
		problems = append(problems, fmt.Sprintf("unsupported llm.provider: %s", c.LLM.Provider))
	}

	switch c.Renderer.Engine {
	case EngineReader:
		if c.Renderer.Reader.BaseURL == "" {
			problems = append(problems, "renderer.reader.base_url is required for the reader engine")
		}
	case EngineFirecrawl:
		if c.Renderer.Firecrawl.APIKey == "" {
			problems = append(problems, "renderer.firecrawl.api_key is required for the firecrawl engine")
		}
	case EngineBrowser:
	default:
		problems = append(problems, fmt.Sprintf("unsupported renderer.engine: %s", c.Renderer.Engine))
	}

	return problems
}
