// Package config is responsible for initializing the application's configuration.
// It uses the Viper library to read settings from a config file, environment
// variables, and command-line flags, providing a unified configuration system.
package config

import (
	"strings"

	"github.com/karlseb/ttpharvest/internal/logging"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// InitConfig initializes the application's configuration using Viper.
// It sets up default values, defines configuration search paths, and enables
// reading from environment variables. This function is designed to be called
// once at application startup so that configuration is loaded and available
// to all other packages. An explicit cfgFile path overrides the search paths.
func InitConfig(cfgFile string) {
	// --- Set Search Paths ---
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Define the name of the config file to look for (without extension).
		viper.SetConfigName("config")
		// Add paths where Viper should look for the config file.
		viper.AddConfigPath(".")                 // Current working directory
		viper.AddConfigPath("/etc/ttpharvest/")  // System-wide configuration
		viper.AddConfigPath("$HOME/.ttpharvest") // User-specific configuration
	}

	// --- Set Defaults ---
	// Sensible defaults for key configuration parameters. These are used if
	// the values are not provided in a config file or via environment variables.
	const defaultUA = "ttpharvest/1.0 (+https://github.com/karlseb/ttpharvest)"
	viper.SetDefault("logging.development", false)

	viper.SetDefault("crawler.index_url",
		"https://www.cisa.gov/news-events/cybersecurity-advisories?f%5B0%5D=advisory_type%3A94")
	viper.SetDefault("crawler.max_pages", 17)
	viper.SetDefault("crawler.cutoff_date", "2017-01-01")
	viper.SetDefault("crawler.concurrency", 4)
	viper.SetDefault("crawler.user_agent", defaultUA)
	viper.SetDefault("crawler.request_timeout", "30s")
	viper.SetDefault("crawler.rate_limit_per_domain", 2)
	viper.SetDefault("crawler.respect_robots", true)
	viper.SetDefault("crawler.run_timeout", "0s")

	viper.SetDefault("taxonomy.enterprise_url",
		"https://raw.githubusercontent.com/mitre/cti/master/enterprise-attack/enterprise-attack.json")
	viper.SetDefault("taxonomy.mobile_url",
		"https://raw.githubusercontent.com/mitre/cti/master/mobile-attack/mobile-attack.json")
	viper.SetDefault("taxonomy.ics_url",
		"https://raw.githubusercontent.com/mitre/cti/master/ics-attack/ics-attack.json")

	viper.SetDefault("resolver.base_url", "https://attack.mitre.org")
	viper.SetDefault("resolver.max_redirect_hops", 5)

	viper.SetDefault("render.enabled", false)
	viper.SetDefault("render.timeout", "15s")
	viper.SetDefault("render.max_concurrency", 2)
	viper.SetDefault("render.domain_qps", 0.5)

	viper.SetDefault("detector.min_html_bytes", 2000)
	viper.SetDefault("detector.selector_must", "h1,time")
	viper.SetDefault("detector.keywords", []string{
		"__NEXT_DATA__",
		"data-reactroot",
		"ng-app",
		"window.__APOLLO_STATE__",
	})

	viper.SetDefault("output.path", "out.json")
	viper.SetDefault("output.summary_path", "")

	viper.SetDefault("store.provider", "noop")
	viper.SetDefault("store.postgres.dsn", "")
	viper.SetDefault("store.postgres.table", "advisories")
	viper.SetDefault("store.postgres.max_conns", 4)
	viper.SetDefault("store.postgres.min_conns", 0)
	viper.SetDefault("store.postgres.max_conn_lifetime", "30m")

	viper.SetDefault("archive.provider", "noop")
	viper.SetDefault("archive.gcs_bucket", "")
	viper.SetDefault("archive.local_dir", "data/archive")
	viper.SetDefault("archive.prefix", "")

	viper.SetDefault("publish.provider", "noop")
	viper.SetDefault("publish.project_id", "")
	viper.SetDefault("publish.topic_id", "")

	viper.SetDefault("ops.enabled", false)
	viper.SetDefault("ops.listen_addr", ":8080")
	viper.SetDefault("ops.api_key", "")

	viper.SetDefault("ingest.root", "talos-iocs")
	viper.SetDefault("ingest.base_url",
		"https://raw.githubusercontent.com/Cisco-Talos/IOCs/refs/heads/main")
	viper.SetDefault("ingest.output_path", "")

	// --- Environment Variables ---
	// Enable Viper to read environment variables.
	viper.SetEnvPrefix("TTPHARVEST") // e.g., TTPHARVEST_CRAWLER_MAX_PAGES=5
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// --- Read Config File ---
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; this is not a fatal error if we can proceed
			// with defaults and environment variables.
			logging.L.Warn("Config file not found; using defaults and environment variables.")
		} else {
			// A real error occurred while parsing the config file.
			logging.L.Error("Error reading config file", zap.Error(err))
		}
	} else {
		logging.L.Info("Using config file", zap.String("path", viper.ConfigFileUsed()))
	}
}
