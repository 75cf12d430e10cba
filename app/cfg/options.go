package cfg

import "time"

// Options are the global command-line options. Options without a default tag
// fall back to the config document when left unset.
type Options struct {
	Config string `long:"config" short:"c" env:"EPGFETCH_CONFIG" description:"Path to the JSON or YAML config document"`

	// Store configuration
	DBHost string `long:"db-host" env:"DB_HOST" description:"Postgres host"`
	DBPort string `long:"db-port" env:"DB_PORT" description:"Postgres port"`
	DBName string `long:"db-name" env:"DB_NAME" description:"Postgres database name"`
	DBUser string `long:"db-user" env:"DB_USER" description:"Postgres user"`
	DBPass string `long:"db-password" env:"DB_PASSWORD" description:"Postgres password"`
	DBPath string `long:"db-path" env:"DB_PATH" description:"SQLite database file; selects the embedded store"`

	// Feed configuration
	Days              int           `long:"days" env:"EPG_FETCH_DAYS" description:"Number of days to fetch, starting today (default: 4)"`
	Mode              string        `long:"mode" env:"EPG_MODE" description:"Feed format: xml.gz or js.gz (default: xml.gz)"`
	EPGBaseURL        string        `long:"epg-base-url" env:"EPG_BASE_URL" description:"Feed provider base URL (default depends on mode)"`
	ChannelsFile      string        `long:"channels-file" env:"EPG_CHANNELS_FILE" description:"YAML file with the channel catalog"`
	Languages         []string      `long:"language" env:"EPG_LANGUAGES" env-delim:"," description:"Preferred text language, in order (default: no, en)"`
	UserAgent         string        `long:"user-agent" env:"USER_AGENT" default:"epgfetch/1.0" description:"User agent string for HTTP requests"`
	Delay             time.Duration `long:"delay" env:"EPG_FETCH_DELAY" default:"50ms" description:"Pause between feed requests"`
	Timeout           time.Duration `long:"timeout" env:"EPG_FETCH_TIMEOUT" default:"30s" description:"HTTP request timeout"`
	IgnoreFetchErrors bool          `long:"ignore-fetch-errors" env:"EPG_IGNORE_FETCH_ERRORS" description:"Skip dates whose feed cannot be fetched"`

	// Application metadata
	Timezone    string `long:"timezone" env:"TZ" default:"Local" description:"Timezone for programme timestamps (e.g., UTC, Europe/Oslo)"`
	Debug       bool   `long:"debug" env:"DEBUG" description:"Enable debug logging and the companion web port"`
	LogFormat   string `long:"log-format" env:"LOG_FORMAT" default:"text" choice:"text" choice:"json" description:"Log output format"`
	LogLevel    string `long:"log-level" env:"LOG_LEVEL" default:"info" description:"Log level: debug, info, warn, error"`
	Pushgateway string `long:"pushgateway" env:"PUSHGATEWAY_URL" description:"Prometheus Pushgateway URL for run metrics"`
	SentryDSN   string `long:"sentry-dsn" env:"SENTRY_DSN" description:"Sentry DSN for error reporting"`
}
