package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

func (d *Duration) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		d.Duration = 0
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		u, err := strconv.Unquote(s)
		if err != nil {
			return err
		}
		return d.parse(u)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("duration must be a JSON string like \"5s\" or an int nanoseconds: %w", err)
	}
	d.Duration = time.Duration(n)
	return nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", node.Line)
	}
	if node.Tag == "!!int" {
		n, err := strconv.ParseInt(node.Value, 10, 64)
		if err != nil {
			return err
		}
		d.Duration = time.Duration(n)
		return nil
	}
	if node.Tag == "!!null" {
		d.Duration = 0
		return nil
	}
	return d.parse(node.Value)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Duration.String())
}

func (d *Duration) parse(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		d.Duration = 0
		return nil
	}
	dd, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = dd
	return nil
}

func defaultConfig() *Config {
	return &Config{
		Env: "development",
		HTTP: HTTPConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: Duration{Duration: 5 * time.Second},
			IdleTimeout:       Duration{Duration: 2 * time.Minute},
			ShutdownTimeout:   Duration{Duration: 15 * time.Second},
			MaxRequestBytes:   1 << 20,
		},
		Tiers: TiersConfig{
			Fast: []EndpointConfig{
				{Name: "groq", Type: EndpointOpenAI, BaseURL: "https://api.groq.com/openai/v1", Model: "llama-3.1-8b-instant", APIKeyEnv: "GROQ_API_KEY"},
				{Name: "huggingface", Type: EndpointOpenAI, BaseURL: "https://router.huggingface.co/v1", Model: "meta-llama/Meta-Llama-3-8B-Instruct", APIKeyEnv: "HUGGINGFACE_API_KEY"},
			},
			Powerful: []EndpointConfig{
				{Name: "groq-70b", Type: EndpointOpenAI, BaseURL: "https://api.groq.com/openai/v1", Model: "llama-3.3-70b-versatile", APIKeyEnv: "GROQ_API_KEY"},
				{
					Name: "openrouter", Type: EndpointOpenAI, BaseURL: "https://openrouter.ai/api/v1",
					Model: "meta-llama/llama-3.1-405b-instruct:free", APIKeyEnv: "OPENROUTER_API_KEY",
					Headers: map[string]string{"HTTP-Referer": "https://courseforge.app", "X-Title": "CourseForge"},
				},
				{Name: "google", Type: EndpointGemini, Model: "gemini-2.0-flash", APIKeyEnv: "GOOGLE_AI_API_KEY"},
			},
		},
		Generation: GenerationConfig{
			ContentDelay:   Duration{Duration: 10 * time.Second},
			ModuleStagger:  Duration{Duration: 2 * time.Second},
			MinModules:     2,
			MaxModules:     3,
			ChapterCount:   6,
			ApplyRevisions: true,
		},
		QA: QAConfig{
			Timeout:          Duration{Duration: 10 * time.Second},
			MinContentLength: 100,
			PassThreshold:    8,
			MaxContentChars:  7000,
		},
		Enrichment: EnrichmentConfig{
			Enabled:           true,
			RoadmapBaseURL:    "https://roadmap.sh",
			WikipediaURL:      "https://en.wikipedia.org/w/api.php",
			ArxivURL:          "https://export.arxiv.org/api/query",
			BraveURL:          "https://api.search.brave.com/res/v1/web/search",
			BraveAPIKeyEnv:    "BRAVE_API_KEY",
			Timeout:           Duration{Duration: 8 * time.Second},
			CacheTTL:          Duration{Duration: 24 * time.Hour},
			MaxReferenceChars: 4000,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "file:courseforge.db?_foreign_keys=on",
		},
		Redis: RedisConfig{
			ChannelPrefix: "courseforge:progress",
		},
		ObjectStore: ObjectStoreConfig{
			Bucket:       "courseforge",
			AccessKeyEnv: "MINIO_ACCESS_KEY",
			SecretKeyEnv: "MINIO_SECRET_KEY",
		},
		Gateway: GatewayConfig{
			Timeout: Duration{Duration: 2 * time.Minute},
		},
	}
}

// MockTiers replaces every tier with a single deterministic mock endpoint.
func MockTiers() TiersConfig {
	return TiersConfig{
		Fast:     []EndpointConfig{{Name: "mock-fast", Type: EndpointMock, Model: "mock-fast"}},
		Powerful: []EndpointConfig{{Name: "mock-powerful", Type: EndpointMock, Model: "mock-powerful"}},
	}
}

// Load reads .env (if present), the config file, and environment overrides,
// then validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return LoadFile(configPath())
}

// LoadFile is Load without the .env step. An empty path yields defaults.
func LoadFile(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := decode(path, b, cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
		}
	}
	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func configPath() string {
	if p := strings.TrimSpace(os.Getenv("CF_CONFIG_PATH")); p != "" {
		return p
	}
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}
	for _, name := range []string{"config.yaml", "config.yml", "config.json"} {
		p := filepath.Join(wd, "config", name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func decode(path string, b []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(b, cfg)
	default:
		return json.Unmarshal(b, cfg)
	}
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("LOG_MODE")); v != "" {
		cfg.Env = v
	}
	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		cfg.HTTP.Addr = ":" + v
	}
	if v := strings.TrimSpace(os.Getenv("CF_HTTP_ADDR")); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv("DB_DRIVER")); v != "" {
		cfg.Database.Driver = v
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		cfg.Database.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_ADDR")); v != "" {
		cfg.Redis.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv("MINIO_ENDPOINT")); v != "" {
		cfg.ObjectStore.Endpoint = v
	}
	if v := strings.TrimSpace(os.Getenv("CF_GATEWAY_URL")); v != "" {
		cfg.Gateway.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("CF_ENRICHMENT_ENABLED")); v != "" {
		cfg.Enrichment.Enabled = parseBool(v)
	}
	if parseBool(os.Getenv("CF_MOCK_PROVIDERS")) {
		cfg.Tiers = MockTiers()
	}
	envDuration("CF_CONTENT_DELAY", &cfg.Generation.ContentDelay)
	envDuration("CF_MODULE_STAGGER", &cfg.Generation.ModuleStagger)
	envDuration("CF_QA_TIMEOUT", &cfg.QA.Timeout)
}

func envDuration(name string, dst *Duration) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil && d >= 0 {
		dst.Duration = d
	}
}

// Validate normalizes the config in place and reports the first problem.
func (c *Config) Validate() error {
	if c.Env == "" {
		c.Env = "development"
	}
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.MaxRequestBytes <= 0 {
		c.HTTP.MaxRequestBytes = 1 << 20
	}
	if err := normalizeTier("fast", c.Tiers.Fast); err != nil {
		return err
	}
	if err := normalizeTier("powerful", c.Tiers.Powerful); err != nil {
		return err
	}

	g := &c.Generation
	if g.ContentDelay.Duration < 0 || g.ModuleStagger.Duration < 0 {
		return errors.New("generation delays must not be negative")
	}
	if g.MinModules <= 0 {
		g.MinModules = 2
	}
	if g.MaxModules <= 0 {
		g.MaxModules = 3
	}
	if g.MinModules > g.MaxModules {
		return fmt.Errorf("generation.min_modules=%d exceeds max_modules=%d", g.MinModules, g.MaxModules)
	}
	if g.ChapterCount <= 0 {
		g.ChapterCount = 6
	}

	q := &c.QA
	if q.Timeout.Duration <= 0 {
		return errors.New("qa.timeout must be positive")
	}
	if q.PassThreshold < 1 || q.PassThreshold > 10 {
		return fmt.Errorf("qa.pass_threshold=%d must be within 1..10", q.PassThreshold)
	}
	if q.MaxContentChars <= 0 {
		q.MaxContentChars = 7000
	}

	if c.Enrichment.Timeout.Duration <= 0 {
		c.Enrichment.Timeout = Duration{Duration: 8 * time.Second}
	}
	if c.Enrichment.MaxReferenceChars <= 0 {
		c.Enrichment.MaxReferenceChars = 4000
	}

	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	switch c.Database.Driver {
	case "postgres", "sqlite":
	case "":
		c.Database.Driver = "sqlite"
	default:
		return fmt.Errorf("database.driver=%q must be postgres or sqlite", c.Database.Driver)
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("database.dsn is required")
	}
	if c.Redis.ChannelPrefix == "" {
		c.Redis.ChannelPrefix = "courseforge:progress"
	}
	c.Gateway.BaseURL = strings.TrimRight(strings.TrimSpace(c.Gateway.BaseURL), "/")
	if c.Gateway.Timeout.Duration <= 0 {
		c.Gateway.Timeout = Duration{Duration: 2 * time.Minute}
	}
	return nil
}

func normalizeTier(tier string, eps []EndpointConfig) error {
	if len(eps) == 0 {
		return fmt.Errorf("tier %q must define at least one endpoint", tier)
	}
	seen := make(map[string]bool, len(eps))
	for i := range eps {
		ep := &eps[i]
		ep.Name = strings.TrimSpace(ep.Name)
		ep.Type = strings.ToLower(strings.TrimSpace(ep.Type))
		ep.BaseURL = strings.TrimRight(strings.TrimSpace(ep.BaseURL), "/")
		ep.Model = strings.TrimSpace(ep.Model)
		if ep.Name == "" {
			return fmt.Errorf("tier %q endpoint #%d missing name", tier, i+1)
		}
		if seen[ep.Name] {
			return fmt.Errorf("tier %q has duplicate endpoint %q", tier, ep.Name)
		}
		seen[ep.Name] = true

		switch ep.Type {
		case "openai_http":
			ep.Type = EndpointOAIHTTP
		case "openai_compat", "groq", "openrouter":
			ep.Type = EndpointOpenAI
		}
		switch ep.Type {
		case EndpointOAIHTTP:
			if ep.BaseURL == "" {
				return fmt.Errorf("endpoint %q (oai_http) missing base_url", ep.Name)
			}
		case EndpointOpenAI, EndpointAnthropic, EndpointGemini, EndpointMock:
		default:
			return fmt.Errorf("endpoint %q has unknown type %q", ep.Name, ep.Type)
		}
		if ep.Model == "" && ep.Type != EndpointMock {
			return fmt.Errorf("endpoint %q missing model", ep.Name)
		}
		if ep.Timeout.Duration < 0 {
			return fmt.Errorf("endpoint %q has negative timeout", ep.Name)
		}
		if ep.Timeout.Duration == 0 {
			ep.Timeout = Duration{Duration: 60 * time.Second}
		}
		if ep.Temperature == 0 {
			ep.Temperature = 0.7
		}
		if ep.MaxTokens <= 0 {
			ep.MaxTokens = 4096
		}
	}
	return nil
}

// Credential resolves the endpoint's API key from config or environment.
func (e EndpointConfig) Credential() string {
	if k := strings.TrimSpace(e.APIKey); k != "" {
		return k
	}
	if e.APIKeyEnv == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(e.APIKeyEnv))
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "t", "true", "y", "yes", "on":
		return true
	default:
		return false
	}
}
