// Package config defines the typed application configuration and loads it
// from Viper. Components take the typed sub-structs instead of reading
// Viper keys directly, which keeps them testable without global state.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the root application configuration.
type Config struct {
	Logging  LoggingConfig  `mapstructure:"logging"`
	Crawler  CrawlerConfig  `mapstructure:"crawler"`
	Taxonomy TaxonomyConfig `mapstructure:"taxonomy"`
	Resolver ResolverConfig `mapstructure:"resolver"`
	Render   RenderConfig   `mapstructure:"render"`
	Detector DetectorConfig `mapstructure:"detector"`
	Output   OutputConfig   `mapstructure:"output"`
	Store    StoreConfig    `mapstructure:"store"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Publish  PublishConfig  `mapstructure:"publish"`
	Ops      OpsConfig      `mapstructure:"ops"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
}

// LoggingConfig selects the logger profile.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// CrawlerConfig drives the advisory index walk.
type CrawlerConfig struct {
	IndexURL           string        `mapstructure:"index_url"`
	MaxPages           int           `mapstructure:"max_pages"`
	CutoffDate         string        `mapstructure:"cutoff_date"`
	Concurrency        int           `mapstructure:"concurrency"`
	UserAgent          string        `mapstructure:"user_agent"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
	RateLimitPerDomain int           `mapstructure:"rate_limit_per_domain"`
	RespectRobots      bool          `mapstructure:"respect_robots"`
	RunTimeout         time.Duration `mapstructure:"run_timeout"`
}

// Cutoff parses the configured cutoff date. Advisories published strictly
// before this date stop the crawl.
func (c CrawlerConfig) Cutoff() (time.Time, error) {
	t, err := time.Parse("2006-01-02", c.CutoffDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse crawler.cutoff_date %q: %w", c.CutoffDate, err)
	}
	return t, nil
}

// TaxonomyConfig points at the STIX bundles preloaded at startup.
type TaxonomyConfig struct {
	EnterpriseURL string `mapstructure:"enterprise_url"`
	MobileURL     string `mapstructure:"mobile_url"`
	ICSURL        string `mapstructure:"ics_url"`
}

// URLs returns the non-empty bundle URLs in load order.
func (c TaxonomyConfig) URLs() []string {
	urls := make([]string, 0, 3)
	for _, u := range []string{c.EnterpriseURL, c.MobileURL, c.ICSURL} {
		if u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// ResolverConfig drives the technique page fallback lookup.
type ResolverConfig struct {
	BaseURL         string `mapstructure:"base_url"`
	MaxRedirectHops int    `mapstructure:"max_redirect_hops"`
}

// RenderConfig drives the optional headless-browser escalation path.
type RenderConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxConcurrency int           `mapstructure:"max_concurrency"`
	DomainQPS      float64       `mapstructure:"domain_qps"`
}

// DetectorConfig tunes the JS-requirement heuristic.
type DetectorConfig struct {
	MinHTMLBytes int      `mapstructure:"min_html_bytes"`
	SelectorMust string   `mapstructure:"selector_must"`
	Keywords     []string `mapstructure:"keywords"`
}

// OutputConfig names the report files written at the end of a run.
type OutputConfig struct {
	Path        string `mapstructure:"path"`
	SummaryPath string `mapstructure:"summary_path"`
}

// StoreConfig selects the record store backend.
type StoreConfig struct {
	Provider string         `mapstructure:"provider"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// PostgresConfig carries pgx pool settings.
type PostgresConfig struct {
	DSN             string        `mapstructure:"dsn"`
	Table           string        `mapstructure:"table"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// ArchiveConfig selects where raw advisory HTML is kept.
type ArchiveConfig struct {
	Provider  string `mapstructure:"provider"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	LocalDir  string `mapstructure:"local_dir"`
	Prefix    string `mapstructure:"prefix"`
}

// PublishConfig selects the downstream record publisher.
type PublishConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	TopicID   string `mapstructure:"topic_id"`
}

// OpsConfig drives the optional operational HTTP endpoint.
type OpsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
	APIKey     string `mapstructure:"api_key"`
}

// IngestConfig drives the IOC feed directory walk.
type IngestConfig struct {
	Root       string `mapstructure:"root"`
	BaseURL    string `mapstructure:"base_url"`
	OutputPath string `mapstructure:"output_path"`
}

// Load unmarshals and validates the configuration from the given Viper.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations that cannot produce a sane run.
func (c Config) Validate() error {
	if c.Crawler.IndexURL == "" {
		return fmt.Errorf("crawler.index_url must not be empty")
	}
	if c.Crawler.MaxPages <= 0 {
		return fmt.Errorf("crawler.max_pages must be positive, got %d", c.Crawler.MaxPages)
	}
	if _, err := c.Crawler.Cutoff(); err != nil {
		return err
	}
	if c.Crawler.Concurrency <= 0 {
		return fmt.Errorf("crawler.concurrency must be positive, got %d", c.Crawler.Concurrency)
	}
	if c.Crawler.RequestTimeout <= 0 {
		return fmt.Errorf("crawler.request_timeout must be positive, got %s", c.Crawler.RequestTimeout)
	}
	if c.Crawler.RunTimeout < 0 {
		return fmt.Errorf("crawler.run_timeout must not be negative, got %s", c.Crawler.RunTimeout)
	}
	if len(c.Taxonomy.URLs()) == 0 {
		return fmt.Errorf("taxonomy must configure at least one bundle URL")
	}
	if c.Resolver.BaseURL == "" {
		return fmt.Errorf("resolver.base_url must not be empty")
	}
	if c.Resolver.MaxRedirectHops <= 0 {
		return fmt.Errorf("resolver.max_redirect_hops must be positive, got %d", c.Resolver.MaxRedirectHops)
	}
	if c.Render.Enabled {
		if c.Render.Timeout <= 0 {
			return fmt.Errorf("render.timeout must be positive, got %s", c.Render.Timeout)
		}
		if c.Render.MaxConcurrency <= 0 {
			return fmt.Errorf("render.max_concurrency must be positive, got %d", c.Render.MaxConcurrency)
		}
		if c.Render.DomainQPS <= 0 {
			return fmt.Errorf("render.domain_qps must be positive, got %f", c.Render.DomainQPS)
		}
	}
	if c.Output.Path == "" {
		return fmt.Errorf("output.path must not be empty")
	}
	switch c.Store.Provider {
	case "", "noop":
	case "postgres":
		if c.Store.Postgres.DSN == "" {
			return fmt.Errorf("store.postgres.dsn is required when store.provider is postgres")
		}
	default:
		return fmt.Errorf("unknown store.provider %q", c.Store.Provider)
	}
	switch c.Archive.Provider {
	case "", "noop", "memory":
	case "gcs":
		if c.Archive.GCSBucket == "" {
			return fmt.Errorf("archive.gcs_bucket is required when archive.provider is gcs")
		}
	case "local":
		if c.Archive.LocalDir == "" {
			return fmt.Errorf("archive.local_dir is required when archive.provider is local")
		}
	default:
		return fmt.Errorf("unknown archive.provider %q", c.Archive.Provider)
	}
	switch c.Publish.Provider {
	case "", "noop", "memory":
	case "pubsub":
		if c.Publish.ProjectID == "" || c.Publish.TopicID == "" {
			return fmt.Errorf("publish.project_id and publish.topic_id are required when publish.provider is pubsub")
		}
	default:
		return fmt.Errorf("unknown publish.provider %q", c.Publish.Provider)
	}
	if c.Ops.Enabled && c.Ops.ListenAddr == "" {
		return fmt.Errorf("ops.listen_addr is required when ops.enabled is true")
	}
	return nil
}
