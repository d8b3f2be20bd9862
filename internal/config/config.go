package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Engine backends selectable via engine.backend.
const (
	BackendKraken    = "kraken"
	BackendTesseract = "tesseract"
)

// Config captures the full configuration required to run the OCR pipeline.
type Config struct {
	IIIF       IIIFConfig       `yaml:"iiif"`
	Engine     EngineConfig     `yaml:"engine"`
	Fetch      FetchConfig      `yaml:"fetch"`
	Robots     RobotsConfig     `yaml:"robots"`
	Cache      CacheConfig      `yaml:"cache"`
	Output     OutputConfig     `yaml:"output"`
	Limits     LimitsConfig     `yaml:"limits"`
	Provenance ProvenanceConfig `yaml:"provenance"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// IIIFConfig holds the Image API request parameters applied to every page.
// Any change here changes the work identity of every page, so previously
// written records are not reused.
type IIIFConfig struct {
	Region   string `yaml:"region"`
	Size     string `yaml:"size"`
	Rotation string `yaml:"rotation"`
	Quality  string `yaml:"quality"`
	Format   string `yaml:"format"`
}

// EngineConfig selects and parameterises the recognition backend.
type EngineConfig struct {
	Backend          string   `yaml:"backend"`
	Model            string   `yaml:"model"`
	ModelAutoInstall bool     `yaml:"model_auto_install"`
	Languages        []string `yaml:"languages"`
}

// FetchConfig controls HTTP fetching of manifests and images.
type FetchConfig struct {
	UserAgent       string            `yaml:"user_agent"`
	Headers         map[string]string `yaml:"headers"`
	ProxyURL        string            `yaml:"proxy_url"`
	ManifestTimeout Duration          `yaml:"manifest_timeout"`
	ImageTimeout    Duration          `yaml:"image_timeout"`
	MaxBodyBytes    int64             `yaml:"max_body_bytes"`
	PerHostDelay    Duration          `yaml:"per_host_delay"`
	RateLimit       RateLimitConfig   `yaml:"rate_limit_per_host"`
}

// RateLimitConfig applies a token bucket per remote host.
type RateLimitConfig struct {
	Requests int      `yaml:"requests"`
	Window   Duration `yaml:"window"`
}

// Enabled reports whether per-host rate limiting is active.
func (r RateLimitConfig) Enabled() bool {
	return r.Requests > 0 && !r.Window.IsZero()
}

// RobotsConfig configures robots.txt handling for remote image servers.
type RobotsConfig struct {
	Respect   bool     `yaml:"respect"`
	Overrides []string `yaml:"overrides"`
	UserAgent string   `yaml:"user_agent"`
	CacheTTL  Duration `yaml:"cache_ttl"`
}

// CacheConfig locates the content-addressed image cache.
type CacheConfig struct {
	Dir string `yaml:"dir"`
}

// OutputConfig controls artifact placement and degraded-record policy.
type OutputConfig struct {
	Dir string `yaml:"dir"`
	// RecordFailures writes failed pages to the artifact with a populated
	// errors field instead of only logging them. Failed records are never
	// indexed for resume, so resubmission re-attempts them either way.
	RecordFailures bool `yaml:"record_failures"`
}

// LimitsConfig bounds work per manifest. MaxPages counts attempted pages;
// pages skipped via the resume index do not consume the budget.
type LimitsConfig struct {
	MaxPages int `yaml:"max_pages"`
}

// ProvenanceConfig carries optional identifiers copied into every record.
type ProvenanceConfig struct {
	SourceMetadataID string `yaml:"source_metadata_id"`
	ARK              string `yaml:"ark"`
}

// LoggingConfig selects log verbosity and format.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Structured bool   `yaml:"structured"`
}

// DefaultModel is the CATMuS Print Fondue Large model DOI, the default for
// the kraken backend.
const DefaultModel = "10.5281/zenodo.10592716"

// Default returns a Config populated with sensible defaults.
func Default() Config {
	return Config{
		IIIF: IIIFConfig{
			Region:   "full",
			Size:     "!3000,3000", // long-side constraint; good OCR/throughput tradeoff
			Rotation: "0",
			Quality:  "default",
			Format:   "jpg",
		},
		Engine: EngineConfig{
			Backend:          BackendKraken,
			Model:            DefaultModel,
			ModelAutoInstall: true,
		},
		Fetch: FetchConfig{
			UserAgent:       "barnacle/1.0",
			Headers:         map[string]string{},
			ManifestTimeout: DurationFrom(10 * time.Second),
			ImageTimeout:    DurationFrom(30 * time.Second),
			MaxBodyBytes:    32 * 1024 * 1024,
			PerHostDelay:    DurationFrom(250 * time.Millisecond),
		},
		Robots: RobotsConfig{
			Respect:   false,
			Overrides: []string{},
			UserAgent: "barnacle/1.0",
			CacheTTL:  DurationFrom(6 * time.Hour),
		},
		Cache: CacheConfig{
			Dir: ".barnacle-cache",
		},
		Output: OutputConfig{
			Dir: "runs/ocr",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Structured: true,
		},
	}
}

// Load reads, merges, and validates configuration from a YAML file.
func Load(path string) (*Config, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer fh.Close()
	return LoadFromReader(fh)
}

// LoadFromReader decodes configuration from an arbitrary reader.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := decodeYAML(r, &cfg); err != nil {
		return nil, err
	}
	cfg.normalise()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decodeYAML(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

// Validate enforces required invariants for the pipeline configuration.
func (c Config) Validate() error {
	switch c.Engine.Backend {
	case BackendKraken, BackendTesseract:
	default:
		return fmt.Errorf("engine.backend must be %q or %q (got %q)", BackendKraken, BackendTesseract, c.Engine.Backend)
	}
	if c.Engine.Backend == BackendKraken && c.Engine.Model == "" {
		return errors.New("engine.model must be set for the kraken backend")
	}
	for _, field := range []struct{ name, value string }{
		{"iiif.region", c.IIIF.Region},
		{"iiif.size", c.IIIF.Size},
		{"iiif.rotation", c.IIIF.Rotation},
		{"iiif.quality", c.IIIF.Quality},
		{"iiif.format", c.IIIF.Format},
	} {
		if field.value == "" {
			return fmt.Errorf("%s must be set", field.name)
		}
	}
	if c.Fetch.ManifestTimeout.Duration <= 0 {
		return errors.New("fetch.manifest_timeout must be > 0")
	}
	if c.Fetch.ImageTimeout.Duration <= 0 {
		return errors.New("fetch.image_timeout must be > 0")
	}
	if c.Fetch.MaxBodyBytes <= 0 {
		return fmt.Errorf("fetch.max_body_bytes must be > 0 (got %d)", c.Fetch.MaxBodyBytes)
	}
	if strings.TrimSpace(c.Fetch.UserAgent) == "" {
		return errors.New("fetch.user_agent must be set")
	}
	if rl := c.Fetch.RateLimit; rl.Requests < 0 {
		return fmt.Errorf("fetch.rate_limit_per_host.requests must be >= 0 (got %d)", rl.Requests)
	}
	if c.Robots.Respect && strings.TrimSpace(c.Robots.UserAgent) == "" {
		return errors.New("robots.user_agent must be set when robots.respect is true")
	}
	if strings.TrimSpace(c.Cache.Dir) == "" {
		return errors.New("cache.dir must be set")
	}
	if strings.TrimSpace(c.Output.Dir) == "" {
		return errors.New("output.dir must be set")
	}
	if c.Limits.MaxPages < 0 {
		return fmt.Errorf("limits.max_pages must be >= 0 (got %d)", c.Limits.MaxPages)
	}
	return nil
}

func (c *Config) normalise() {
	c.Engine.Backend = strings.ToLower(strings.TrimSpace(c.Engine.Backend))
	c.Engine.Model = strings.TrimSpace(c.Engine.Model)
	c.Fetch.UserAgent = strings.TrimSpace(c.Fetch.UserAgent)
	c.Robots.UserAgent = strings.TrimSpace(c.Robots.UserAgent)
	c.Cache.Dir = strings.TrimSpace(c.Cache.Dir)
	c.Output.Dir = strings.TrimSpace(c.Output.Dir)
	c.Provenance.SourceMetadataID = strings.TrimSpace(c.Provenance.SourceMetadataID)
	c.Provenance.ARK = strings.TrimSpace(c.Provenance.ARK)
	if c.Fetch.Headers == nil {
		c.Fetch.Headers = map[string]string{}
	}
	if len(c.Robots.Overrides) > 0 {
		c.Robots.Overrides = dedupeLower(c.Robots.Overrides)
	}
	if len(c.Engine.Languages) > 0 {
		cleaned := make([]string, 0, len(c.Engine.Languages))
		for _, lang := range c.Engine.Languages {
			lang = strings.TrimSpace(lang)
			if lang != "" {
				cleaned = append(cleaned, lang)
			}
		}
		c.Engine.Languages = cleaned
	}
}

func dedupeLower(values []string) []string {
	unique := make(map[string]struct{}, len(values))
	cleaned := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, ok := unique[v]; ok {
			continue
		}
		unique[v] = struct{}{}
		cleaned = append(cleaned, v)
	}
	sort.Strings(cleaned)
	return cleaned
}
