package config

import "time"

type Duration struct {
	Duration time.Duration
}

// Endpoint types understood by the provider factory.
const (
	EndpointOpenAI    = "openai"
	EndpointOAIHTTP   = "oai_http"
	EndpointAnthropic = "anthropic"
	EndpointGemini    = "gemini"
	EndpointMock      = "mock"
)

type HTTPConfig struct {
	Addr              string   `json:"addr" yaml:"addr"`
	ReadHeaderTimeout Duration `json:"read_header_timeout" yaml:"read_header_timeout"`
	IdleTimeout       Duration `json:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout   Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
	MaxRequestBytes   int64    `json:"max_request_bytes" yaml:"max_request_bytes"`
}

// EndpointConfig describes one Provider Endpoint inside a tier.
type EndpointConfig struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`

	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Model   string `json:"model" yaml:"model"`

	// APIKeyEnv names the environment variable holding the credential.
	// APIKey wins when both are set.
	APIKeyEnv string `json:"api_key_env,omitempty" yaml:"api_key_env,omitempty"`
	APIKey    string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	Temperature float64           `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	MaxTokens   int               `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	Timeout     Duration          `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Headers     map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

type TiersConfig struct {
	Fast     []EndpointConfig `json:"fast" yaml:"fast"`
	Powerful []EndpointConfig `json:"powerful" yaml:"powerful"`
}

type GenerationConfig struct {
	ContentDelay   Duration `json:"content_delay" yaml:"content_delay"`
	ModuleStagger  Duration `json:"module_stagger" yaml:"module_stagger"`
	MinModules     int      `json:"min_modules" yaml:"min_modules"`
	MaxModules     int      `json:"max_modules" yaml:"max_modules"`
	ChapterCount   int      `json:"chapter_count" yaml:"chapter_count"`
	ApplyRevisions bool     `json:"apply_revisions" yaml:"apply_revisions"`
}

type QAConfig struct {
	Timeout          Duration `json:"timeout" yaml:"timeout"`
	MinContentLength int      `json:"min_content_length" yaml:"min_content_length"`
	PassThreshold    int      `json:"pass_threshold" yaml:"pass_threshold"`
	MaxContentChars  int      `json:"max_content_chars" yaml:"max_content_chars"`
}

type EnrichmentConfig struct {
	Enabled           bool     `json:"enabled" yaml:"enabled"`
	RoadmapBaseURL    string   `json:"roadmap_base_url" yaml:"roadmap_base_url"`
	WikipediaURL      string   `json:"wikipedia_url" yaml:"wikipedia_url"`
	ArxivURL          string   `json:"arxiv_url" yaml:"arxiv_url"`
	BraveURL          string   `json:"brave_url" yaml:"brave_url"`
	BraveAPIKeyEnv    string   `json:"brave_api_key_env" yaml:"brave_api_key_env"`
	Timeout           Duration `json:"timeout" yaml:"timeout"`
	CacheTTL          Duration `json:"cache_ttl" yaml:"cache_ttl"`
	MaxReferenceChars int      `json:"max_reference_chars" yaml:"max_reference_chars"`
}

type DatabaseConfig struct {
	Driver string `json:"driver" yaml:"driver"`
	DSN    string `json:"dsn" yaml:"dsn"`
}

type RedisConfig struct {
	Addr          string `json:"addr" yaml:"addr"`
	ChannelPrefix string `json:"channel_prefix" yaml:"channel_prefix"`
}

type ObjectStoreConfig struct {
	Endpoint     string `json:"endpoint" yaml:"endpoint"`
	Bucket       string `json:"bucket" yaml:"bucket"`
	AccessKeyEnv string `json:"access_key_env" yaml:"access_key_env"`
	SecretKeyEnv string `json:"secret_key_env" yaml:"secret_key_env"`
	UseSSL       bool   `json:"use_ssl" yaml:"use_ssl"`
}

type GatewayConfig struct {
	// BaseURL, when set, routes every generation call through a remote
	// /api/chat endpoint instead of the in-process router.
	BaseURL string   `json:"base_url" yaml:"base_url"`
	Timeout Duration `json:"timeout" yaml:"timeout"`
}

type Config struct {
	Env         string            `json:"env" yaml:"env"`
	HTTP        HTTPConfig        `json:"http" yaml:"http"`
	Tiers       TiersConfig       `json:"tiers" yaml:"tiers"`
	Generation  GenerationConfig  `json:"generation" yaml:"generation"`
	QA          QAConfig          `json:"qa" yaml:"qa"`
	Enrichment  EnrichmentConfig  `json:"enrichment" yaml:"enrichment"`
	Database    DatabaseConfig    `json:"database" yaml:"database"`
	Redis       RedisConfig       `json:"redis" yaml:"redis"`
	ObjectStore ObjectStoreConfig `json:"object_store" yaml:"object_store"`
	Gateway     GatewayConfig     `json:"gateway" yaml:"gateway"`
}
