// Package config holds the phytovet configuration surface.
// Components receive one immutable *Config at construction and never read
// environment state directly; overrides are applied once at load time.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all phytovet configuration.
type Config struct {
	// Reference store (EPPO code tables)
	Store StoreConfig `yaml:"store"`

	// EPPO Global Database API client
	EPPO EPPOConfig `yaml:"eppo"`

	// Label normalization
	Normalize NormalizeConfig `yaml:"normalize"`

	// Candidate retrieval and scoring
	Retrieval RetrievalConfig `yaml:"retrieval"`

	// Fact validation
	Validation ValidationConfig `yaml:"validation"`

	// Answer generation
	Generation GenerationConfig `yaml:"generation"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// StoreConfig locates the SQLite reference database.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// EPPOConfig configures the EPPO API client and its disk cache.
type EPPOConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	CacheDir       string `yaml:"cache_dir"`
	RateLimitDelay string `yaml:"rate_limit_delay"`
	MaxRetries     int    `yaml:"max_retries"`
	RetryBackoff   string `yaml:"retry_backoff"`
	RequestTimeout string `yaml:"request_timeout"`
}

// NormalizeConfig configures label tokenization.
type NormalizeConfig struct {
	MinTokenLength int      `yaml:"min_token_length"`
	GenericTerms   []string `yaml:"generic_terms"`
	LocationTerms  []string `yaml:"location_terms"`

	// SymptomSynonyms maps a canonical symptom to its lexical variants.
	// Carried in the surface for operators tuning retrieval; no pipeline
	// stage consumes it yet.
	SymptomSynonyms map[string][]string `yaml:"symptom_synonyms"`
}

// RetrievalConfig configures candidate scoring and gating.
type RetrievalConfig struct {
	ConfidenceThreshold     float64  `yaml:"confidence_threshold"`
	MaxCandidates           int      `yaml:"max_candidates"`
	HostBonus               float64  `yaml:"host_bonus"`
	LocationBonusMultiplier float64  `yaml:"location_bonus_multiplier"`
	PreferredDTCode         string   `yaml:"preferred_dtcode"`
	SecondaryDTCodes        []string `yaml:"secondary_dtcodes"`
	DTCodeBonusPrimary      float64  `yaml:"dtcode_bonus_primary"`
	DTCodeBonusSecondary    float64  `yaml:"dtcode_bonus_secondary"`
	MaxScoreCap             float64  `yaml:"max_score_cap"`
}

// ValidationConfig configures the fact-overlap gate.
type ValidationConfig struct {
	MinTokenOverlap int `yaml:"min_token_overlap"`
}

// GenerationConfig configures the answer-synthesis provider.
type GenerationConfig struct {
	Provider    string  `yaml:"provider"` // groq, gemini
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	Timeout     string  `yaml:"timeout"`
}

// LoggingConfig configures the category file logger.
type LoggingConfig struct {
	DebugMode  bool   `yaml:"debug_mode"`
	Level      string `yaml:"level"` // debug, info, warn, error
	Dir        string `yaml:"dir"`
	JSONFormat bool   `yaml:"json_format"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Path: "eppocodes_all.sqlite",
		},

		EPPO: EPPOConfig{
			BaseURL:        "https://api.eppo.int/gd/v2",
			CacheDir:       ".eppo_cache",
			RateLimitDelay: "200ms",
			MaxRetries:     3,
			RetryBackoff:   "500ms",
			RequestTimeout: "30s",
		},

		Normalize: NormalizeConfig{
			MinTokenLength: 2,
			GenericTerms: []string{
				"of", "the", "and", "on", "in", "plant", "plants", "crop", "crops",
			},
			LocationTerms: []string{
				"leaf", "leaves", "stem", "stems", "fruit", "fruits", "root", "roots",
				"seed", "seeds", "flower", "flowers", "bark", "shoot", "branch",
			},
			SymptomSynonyms: map[string][]string{
				"blight": {"blight", "spot", "lesion", "necrosis"},
				"rust":   {"rust", "uredinia", "pustule"},
				"mosaic": {"mosaic", "mottle", "pattern", "variegation"},
				"rot":    {"rot", "decay", "decomposition"},
				"wilt":   {"wilt", "wilting", "droop", "collapse"},
				"curl":   {"curl", "curling", "distortion", "deformation"},
			},
		},

		Retrieval: RetrievalConfig{
			ConfidenceThreshold:     0.3,
			MaxCandidates:           50,
			HostBonus:               0.2,
			LocationBonusMultiplier: 0.3,
			PreferredDTCode:         "GAF",
			SecondaryDTCodes:        []string{"SFT"},
			DTCodeBonusPrimary:      0.15,
			DTCodeBonusSecondary:    0.05,
			MaxScoreCap:             1.5,
		},

		Validation: ValidationConfig{
			MinTokenOverlap: 1,
		},

		Generation: GenerationConfig{
			Provider:    "groq",
			Model:       "openai/gpt-oss-120b",
			BaseURL:     "https://api.groq.com/openai/v1",
			MaxTokens:   1024,
			Temperature: 0.3,
			Timeout:     "120s",
		},

		Logging: LoggingConfig{
			Level: "info",
			Dir:   filepath.Join(".phytovet", "logs"),
		},
	}
}

// Load loads configuration from a YAML file.
// A missing file is not an error: defaults plus environment overrides apply.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("EPPO_SQLITE_PATH"); path != "" {
		c.Store.Path = path
	}
	if dir := os.Getenv("EPPO_CACHE_DIR"); dir != "" {
		c.EPPO.CacheDir = dir
	}
	if key := os.Getenv("EPPO_API_KEY"); key != "" {
		c.EPPO.APIKey = key
	}

	// Generation keys in priority order: GROQ wins when both are set.
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Generation.APIKey = key
		c.Generation.Provider = "gemini"
	}
	if key := os.Getenv("GROQ_API_KEY"); key != "" {
		c.Generation.APIKey = key
		c.Generation.Provider = "groq"
	}
}

// GetRateLimitDelay returns the EPPO inter-request delay as a duration.
func (c *Config) GetRateLimitDelay() time.Duration {
	d, err := time.ParseDuration(c.EPPO.RateLimitDelay)
	if err != nil {
		return 200 * time.Millisecond
	}
	return d
}

// GetRetryBackoff returns the EPPO retry backoff base as a duration.
func (c *Config) GetRetryBackoff() time.Duration {
	d, err := time.ParseDuration(c.EPPO.RetryBackoff)
	if err != nil {
		return 500 * time.Millisecond
	}
	return d
}

// GetRequestTimeout returns the EPPO per-request timeout as a duration.
func (c *Config) GetRequestTimeout() time.Duration {
	d, err := time.ParseDuration(c.EPPO.RequestTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetGenerationTimeout returns the generation request timeout as a duration.
func (c *Config) GetGenerationTimeout() time.Duration {
	d, err := time.ParseDuration(c.Generation.Timeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}

// ValidProviders lists the supported generation providers.
var ValidProviders = []string{"groq", "gemini"}

// Validate checks that the configuration can drive a diagnosis run.
func (c *Config) Validate() error {
	if c.Store.Path == "" {
		return fmt.Errorf("reference database path not configured (set store.path or EPPO_SQLITE_PATH)")
	}
	if _, err := os.Stat(c.Store.Path); err != nil {
		return fmt.Errorf("reference database not found at %s", c.Store.Path)
	}
	if c.EPPO.APIKey == "" {
		return fmt.Errorf("EPPO API key not configured (set eppo.api_key or EPPO_API_KEY)")
	}
	if c.Generation.APIKey == "" {
		return fmt.Errorf("generation API key not configured (set generation.api_key, GROQ_API_KEY, or GEMINI_API_KEY)")
	}

	validProvider := false
	for _, p := range ValidProviders {
		if c.Generation.Provider == p {
			validProvider = true
			break
		}
	}
	if !validProvider {
		return fmt.Errorf("invalid generation provider: %s (valid: %v)", c.Generation.Provider, ValidProviders)
	}

	return nil
}
