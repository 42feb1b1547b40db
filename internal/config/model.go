// internal/config/model.go
//
// Typed configuration model for the safari API.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from its overlay layers:
//
//   • optional `.env`                          – dotenv values,
//   • `conf/app.yaml`                          – primary static file,
//   • `SAFARI_`-prefixed environment overrides – highest precedence,
//   • platform variables (`POSTGRES_URL`, `DATABASE_URL`, `PORT`, …).
//
// Any value whose string begins with the prefix `vault:` is resolved
// through the Vault client after unmarshalling, so the rest of the app
// only ever sees plain strings.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.
//   • `Database.URL` may be empty.  The API then runs in degraded mode.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Oxford commas, two spaces after periods.  No em-dash.

package config

import "time"

//
// App section
//

// App carries identity and the public base URL.
type App struct {
	Name    string `koanf:"name"     validate:"required"`
	Env     string `koanf:"env"      validate:"oneof=development production test"`
	BaseURL string `koanf:"base_url" validate:"omitempty,url"`
}

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr   string        `koanf:"listen_addr"    validate:"required,hostname_port"`
	ForceHTTPS   bool          `koanf:"force_https"`
	TrustProxy   bool          `koanf:"trust_proxy"` // honour X-Forwarded-For / X-Real-IP
	ReadTimeout  time.Duration `koanf:"read_timeout"   validate:"gt=0"`
	WriteTimeout time.Duration `koanf:"write_timeout"  validate:"gt=0"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"   validate:"gt=0"`
	MaxBodyBytes int64         `koanf:"max_body_bytes" validate:"gt=0"`
}

//
// Database section
//

// Database holds the Postgres DSN and pool sizing.  An empty URL disables
// persistence entirely.
type Database struct {
	URL             string        `koanf:"url"`
	MaxOpen         int           `koanf:"max_open"          validate:"gte=1"`
	MaxIdle         int           `koanf:"max_idle"          validate:"gte=0"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnectRetries  int           `koanf:"connect_retries"   validate:"gte=0"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

// Enabled reports whether a DSN was configured.
func (d Database) Enabled() bool { return d.URL != "" }

//
// Auth section
//

// Auth configures admin bearer tokens.
type Auth struct {
	TokenSecret       string        `koanf:"token_secret"       validate:"omitempty,min=32"`
	TokenTTL          time.Duration `koanf:"token_ttl"          validate:"gt=0"`
	Issuer            string        `koanf:"issuer"             validate:"required"`
	AllowRegistration bool          `koanf:"allow_registration"`
}

//
// Content section
//

// Content limits what admins and visitors may upload.
type Content struct {
	MaxImageBytes int `koanf:"max_image_bytes" validate:"gt=0"`
}

//
// Rate limit section
//

// RateLimit sets per-IP request budgets for the public write paths.
type RateLimit struct {
	LoginPerMinute  int `koanf:"login_per_minute"  validate:"gte=1"`
	SubmitPerMinute int `koanf:"submit_per_minute" validate:"gte=1"`
}

//
// Notify section
//

// Notify configures staff notifications for new enquiries.
type Notify struct {
	WebhookURL string        `koanf:"webhook_url" validate:"omitempty,url"`
	Timeout    time.Duration `koanf:"timeout"     validate:"gt=0"`
}

//
// GeoIP section
//

// GeoIP points at an optional GeoLite2-City database.
type GeoIP struct {
	DBPath string `koanf:"db_path"`
}

//
// Log section
//

// Log controls the file logger.
type Log struct {
	Dir   string `koanf:"dir"`
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.
type Paths struct {
	Root string // SAFARI_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	App       App       `koanf:"app"`
	HTTP      HTTP      `koanf:"http"`
	Database  Database  `koanf:"database"`
	Auth      Auth      `koanf:"auth"`
	Content   Content   `koanf:"content"`
	RateLimit RateLimit `koanf:"rate_limit"`
	Notify    Notify    `koanf:"notify"`
	GeoIP     GeoIP     `koanf:"geoip"`
	Log       Log       `koanf:"log"`
	Paths     Paths     `koanf:"-"`
}

// Defaults returns the baseline every overlay is merged onto.
func Defaults() Config {
	return Config{
		App: App{Name: "safari-api", Env: "development"},
		HTTP: HTTP{
			ListenAddr:   ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
			MaxBodyBytes: 12 << 20,
		},
		Database: Database{
			MaxOpen:         15,
			MaxIdle:         5,
			ConnMaxLifetime: 30 * time.Minute,
			ConnectRetries:  3,
			AutoMigrate:     true,
		},
		Auth:      Auth{TokenTTL: 12 * time.Hour, Issuer: "safari-api"},
		Content:   Content{MaxImageBytes: 5 << 20},
		RateLimit: RateLimit{LoginPerMinute: 10, SubmitPerMinute: 5},
		Notify:    Notify{Timeout: 10 * time.Second},
		Log:       Log{Dir: "logs", Level: "info"},
	}
}
