// Package config defines pipeline configuration structures and loading hooks.
//
// Conventions:
// - Defaults live in New; Load layers an optional YAML file and env vars on top.
// - External errors must be wrapped via this package's error helpers.
package config

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// DatabaseDir is the directory holding the JSON stores (ledgers,
	// identity mapping, processed set, credentials).
	DatabaseDir string `koanf:"database_dir"`

	// PlacementLimit is the worst final placement still considered for
	// scoring. Kept separate from the points table on purpose: the two
	// are coupled in practice (7th scores, 6th does not) but rule
	// changes should not touch extraction logic.
	PlacementLimit int `koanf:"placement_limit"`

	// GameLedgers maps a provider game id (decimal string) to the
	// ledger filename for that game. Unknown ids are unsupported and
	// the pipeline fails closed.
	GameLedgers map[string]string `koanf:"game_ledgers"`

	// IdentityPrefix is prepended to resolved identities in the report.
	IdentityPrefix string `koanf:"identity_prefix"`

	// ProbeURLPattern is the profile URL checked when a handle has no
	// mapping entry; %s is replaced with the candidate identity.
	ProbeURLPattern string `koanf:"probe_url_pattern"`

	// ProbeUserAgent is the User-Agent sent on existence probes.
	ProbeUserAgent string `koanf:"probe_user_agent"`

	// ProviderBaseURL overrides the bracket provider API base URL.
	ProviderBaseURL string `koanf:"provider_base_url"`

	// ChallongeUsername and ChallongeKey override the credentials file
	// when both are set (PODIUM_CHALLONGE_USERNAME / PODIUM_CHALLONGE_KEY).
	ChallongeUsername string `koanf:"challonge_username"`
	ChallongeKey      string `koanf:"challonge_key"`

	// MetricsFile, when set, receives a prometheus text-format dump of
	// the run's metrics.
	MetricsFile string `koanf:"metrics_file"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:       "info",
		DatabaseDir:    "database",
		PlacementLimit: 7,
		GameLedgers: map[string]string{
			"16869": "3ds.json",      // Smash Bros for 3DS
			"597":   "projectm.json", // Project M
			"394":   "melee.json",    // Smash Bros Melee
		},
		IdentityPrefix:  "/u/",
		ProbeURLPattern: "https://www.reddit.com/user/%s/about.json",
		ProbeUserAgent:  "podium-ranking-bot",
	}
}
