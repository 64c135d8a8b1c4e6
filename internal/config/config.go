// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers defaults, an optional YAML file and THEHUB_* env vars.
// - External errors are wrapped with this package's sentinel kinds.
package config

import "runtime"

// Store drivers.
const (
	StoreYAML   = "yaml"
	StoreSQLite = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StoreDriver picks the configuration store: yaml or sqlite.
	StoreDriver string `koanf:"store_driver"`

	// StorePath is the YAML document or the SQLite database file.
	StorePath string `koanf:"store_path"`

	// SeedPath is a YAML document imported into SQLite on start. Optional.
	SeedPath string `koanf:"seed_path"`

	// Shopify Admin API access. Enrichment is off when the domain is empty.
	ShopifyDomain     string `koanf:"shopify_domain"`
	ShopifyToken      string `koanf:"shopify_token"`
	ShopifyAPIVersion string `koanf:"shopify_api_version"`

	// CatalogTimeoutMS bounds a single catalog lookup.
	CatalogTimeoutMS int `koanf:"catalog_timeout_ms"`

	// EnrichmentWorkers and EnrichmentQueueSize size the lookup pool.
	EnrichmentWorkers   int `koanf:"enrichment_workers"`
	EnrichmentQueueSize int `koanf:"enrichment_queue_size"`

	// CatalogCacheSize caps cached lookups; zero disables the cache.
	CatalogCacheSize int `koanf:"catalog_cache_size"`

	// CatalogCacheTTLSeconds is how long a cached lookup stays fresh.
	CatalogCacheTTLSeconds int `koanf:"catalog_cache_ttl_seconds"`

	// UnknownCategoryName labels blocks whose category is missing.
	UnknownCategoryName string `koanf:"unknown_category_name"`

	// ValidateRuleQuestions skips rules whose base question is missing or
	// declared with another type.
	ValidateRuleQuestions bool `koanf:"validate_rule_questions"`

	// CORSAllowedOrigins lists browser origins; "*" allows any.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		LogFormat:              "text",
		Addr:                   ":9080",
		StoreDriver:            StoreYAML,
		StorePath:              "configs/catalog.yaml",
		ShopifyAPIVersion:      "2024-04",
		CatalogTimeoutMS:       5000,
		EnrichmentWorkers:      runtime.NumCPU() * 2,
		EnrichmentQueueSize:    1024,
		CatalogCacheSize:       10_000,
		CatalogCacheTTLSeconds: 300,
		UnknownCategoryName:    "Categoría desconocida",
		ValidateRuleQuestions:  true,
		CORSAllowedOrigins:     []string{"*"},
	}
}
