package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"giftlist/cmd/internal/gift"
)

// Store backends accepted by GIFTLIST_STORE.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreREST     = "rest"
)

// Config contains all runtime configuration.
//
// Values are layered: built-in defaults, then the optional TOML file, then
// GIFTLIST_* environment variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	MaxHeaderBytes    int
	MaxBodyBytes      int

	// Store is memory|postgres|rest. Empty picks from the URLs below.
	Store string

	DatabaseURL string
	DBSchema    string
	DBMaxConns  int32
	DBMinConns  int32

	RESTURL     string
	RESTKey     string
	RESTTable   string
	RESTTimeout time.Duration

	// If true, /readyz returns 503 while only the memory store is configured.
	ReadinessRequireStore bool

	SessionMax    int
	SessionTTL    time.Duration
	SessionOutbox int
	Locale        string
	CookieSecure  bool

	WSAllowedOrigins []string
	WSOriginRequired bool
	WSDevInsecure    bool

	CORSAllowedOrigins   []string
	CORSAllowCredentials bool
	CORSMaxAgeSeconds    int
}

// DefaultConfig returns the development defaults.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:  "0.0.0.0:8080",
		LogLevel:  "info",
		LogFormat: "json",

		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ShutdownTimeout:   10 * time.Second,
		MaxHeaderBytes:    1 << 20,
		MaxBodyBytes:      16 << 10,

		DBSchema:   gift.DefaultSchema,
		DBMaxConns: 10,

		RESTTable:   "gifts",
		RESTTimeout: 10 * time.Second,

		SessionMax:    1024,
		SessionTTL:    24 * time.Hour,
		SessionOutbox: 32,

		WSAllowedOrigins: []string{"http://localhost", "http://127.0.0.1"},
		WSOriginRequired: true,

		CORSMaxAgeSeconds: 600,
	}
}

// LoadConfig builds Config from defaults, the TOML file at path (skipped when
// path is empty) and the environment.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if strings.TrimSpace(path) != "" {
		if err := applyConfigFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the runtime cannot start with.
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.HTTPAddr) == "" {
		errs = append(errs, errors.New("http addr is empty"))
	}
	switch c.Store {
	case "", StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("store=postgres requires GIFTLIST_DATABASE_URL"))
		}
	case StoreREST:
		if c.RESTURL == "" || c.RESTKey == "" {
			errs = append(errs, errors.New("store=rest requires GIFTLIST_REST_URL and GIFTLIST_REST_KEY"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store %q", c.Store))
	}
	if c.SessionMax <= 0 || c.SessionTTL <= 0 || c.SessionOutbox <= 0 {
		errs = append(errs, errors.New("session limits must be positive"))
	}
	if c.DBMinConns > c.DBMaxConns && c.DBMaxConns > 0 {
		errs = append(errs, errors.New("db min conns exceeds max conns"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// StoreBackend resolves the backend name, choosing from the configured URLs
// when Store is empty.
func (c Config) StoreBackend() string {
	if c.Store != "" {
		return c.Store
	}
	switch {
	case c.DatabaseURL != "":
		return StorePostgres
	case c.RESTURL != "":
		return StoreREST
	default:
		return StoreMemory
	}
}

func applyEnv(cfg *Config) {
	cfg.HTTPAddr = EnvString("GIFTLIST_HTTP_ADDR", cfg.HTTPAddr)
	cfg.LogLevel = EnvString("GIFTLIST_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = EnvString("GIFTLIST_LOG_FORMAT", cfg.LogFormat)

	cfg.ReadHeaderTimeout = EnvDuration("GIFTLIST_HTTP_READ_HEADER_TIMEOUT", cfg.ReadHeaderTimeout)
	cfg.ReadTimeout = EnvDuration("GIFTLIST_HTTP_READ_TIMEOUT", cfg.ReadTimeout)
	cfg.WriteTimeout = EnvDuration("GIFTLIST_HTTP_WRITE_TIMEOUT", cfg.WriteTimeout)
	cfg.IdleTimeout = EnvDuration("GIFTLIST_HTTP_IDLE_TIMEOUT", cfg.IdleTimeout)
	cfg.ShutdownTimeout = EnvDuration("GIFTLIST_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	cfg.MaxHeaderBytes = EnvInt("GIFTLIST_HTTP_MAX_HEADER_BYTES", cfg.MaxHeaderBytes)
	cfg.MaxBodyBytes = EnvInt("GIFTLIST_HTTP_MAX_BODY_BYTES", cfg.MaxBodyBytes)

	cfg.Store = strings.ToLower(EnvString("GIFTLIST_STORE", cfg.Store))

	cfg.DatabaseURL = EnvString("GIFTLIST_DATABASE_URL", cfg.DatabaseURL)
	cfg.DBSchema = EnvString("GIFTLIST_DB_SCHEMA", cfg.DBSchema)
	cfg.DBMaxConns = EnvInt32("GIFTLIST_DB_MAX_CONNS", cfg.DBMaxConns)
	cfg.DBMinConns = EnvInt32("GIFTLIST_DB_MIN_CONNS", cfg.DBMinConns)

	cfg.RESTURL = EnvString("GIFTLIST_REST_URL", cfg.RESTURL)
	cfg.RESTKey = EnvString("GIFTLIST_REST_KEY", cfg.RESTKey)
	cfg.RESTTable = EnvString("GIFTLIST_REST_TABLE", cfg.RESTTable)
	cfg.RESTTimeout = EnvDuration("GIFTLIST_REST_TIMEOUT", cfg.RESTTimeout)

	cfg.ReadinessRequireStore = EnvBool("GIFTLIST_READINESS_REQUIRE_STORE", cfg.ReadinessRequireStore)

	cfg.SessionMax = EnvInt("GIFTLIST_SESSION_MAX", cfg.SessionMax)
	cfg.SessionTTL = EnvDuration("GIFTLIST_SESSION_TTL", cfg.SessionTTL)
	cfg.SessionOutbox = EnvInt("GIFTLIST_SESSION_OUTBOX", cfg.SessionOutbox)
	cfg.Locale = EnvString("GIFTLIST_LOCALE", cfg.Locale)
	cfg.CookieSecure = EnvBool("GIFTLIST_COOKIE_SECURE", cfg.CookieSecure)

	cfg.WSAllowedOrigins = EnvCSV("GIFTLIST_WS_ALLOWED_ORIGINS", cfg.WSAllowedOrigins)
	cfg.WSOriginRequired = EnvBool("GIFTLIST_WS_ORIGIN_REQUIRED", cfg.WSOriginRequired)
	cfg.WSDevInsecure = EnvBool("GIFTLIST_WS_DEV_INSECURE", cfg.WSDevInsecure)

	cfg.CORSAllowedOrigins = EnvCSV("GIFTLIST_CORS_ALLOWED_ORIGINS", cfg.CORSAllowedOrigins)
	cfg.CORSAllowCredentials = EnvBool("GIFTLIST_CORS_ALLOW_CREDENTIALS", cfg.CORSAllowCredentials)
	cfg.CORSMaxAgeSeconds = EnvInt("GIFTLIST_CORS_MAX_AGE_SECONDS", cfg.CORSMaxAgeSeconds)
}

// fileConfig is the TOML layout. Nil fields were absent from the file.
type fileConfig struct {
	HTTP struct {
		Addr              *string   `toml:"addr"`
		ReadHeaderTimeout *duration `toml:"read_header_timeout"`
		ReadTimeout       *duration `toml:"read_timeout"`
		WriteTimeout      *duration `toml:"write_timeout"`
		IdleTimeout       *duration `toml:"idle_timeout"`
		ShutdownTimeout   *duration `toml:"shutdown_timeout"`
		MaxHeaderBytes    *int      `toml:"max_header_bytes"`
		MaxBodyBytes      *int      `toml:"max_body_bytes"`
	} `toml:"http"`

	Log struct {
		Level  *string `toml:"level"`
		Format *string `toml:"format"`
	} `toml:"log"`

	Store struct {
		Backend          *string   `toml:"backend"`
		DatabaseURL      *string   `toml:"database_url"`
		Schema           *string   `toml:"schema"`
		MaxConns         *int32    `toml:"max_conns"`
		MinConns         *int32    `toml:"min_conns"`
		RESTURL          *string   `toml:"rest_url"`
		RESTKey          *string   `toml:"rest_key"`
		RESTTable        *string   `toml:"rest_table"`
		RESTTimeout      *duration `toml:"rest_timeout"`
		ReadinessRequire *bool     `toml:"readiness_require"`
	} `toml:"store"`

	Session struct {
		Max          *int      `toml:"max"`
		TTL          *duration `toml:"ttl"`
		Outbox       *int      `toml:"outbox"`
		Locale       *string   `toml:"locale"`
		CookieSecure *bool     `toml:"cookie_secure"`
	} `toml:"session"`

	WS struct {
		AllowedOrigins []string `toml:"allowed_origins"`
		OriginRequired *bool    `toml:"origin_required"`
		DevInsecure    *bool    `toml:"dev_insecure"`
	} `toml:"ws"`

	CORS struct {
		AllowedOrigins   []string `toml:"allowed_origins"`
		AllowCredentials *bool    `toml:"allow_credentials"`
		MaxAgeSeconds    *int     `toml:"max_age_seconds"`
	} `toml:"cors"`
}

// duration decodes TOML strings like "15s".
type duration time.Duration

func (d *duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	if v <= 0 {
		return fmt.Errorf("duration must be positive: %q", b)
	}
	*d = duration(v)
	return nil
}

func applyConfigFile(cfg *Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer func() { _ = f.Close() }()

	var fc fileConfig
	if err := toml.NewDecoder(f).DisallowUnknownFields().Decode(&fc); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	fc.apply(cfg)
	return nil
}

func (fc fileConfig) apply(cfg *Config) {
	setString(&cfg.HTTPAddr, fc.HTTP.Addr)
	setDuration(&cfg.ReadHeaderTimeout, fc.HTTP.ReadHeaderTimeout)
	setDuration(&cfg.ReadTimeout, fc.HTTP.ReadTimeout)
	setDuration(&cfg.WriteTimeout, fc.HTTP.WriteTimeout)
	setDuration(&cfg.IdleTimeout, fc.HTTP.IdleTimeout)
	setDuration(&cfg.ShutdownTimeout, fc.HTTP.ShutdownTimeout)
	setValue(&cfg.MaxHeaderBytes, fc.HTTP.MaxHeaderBytes)
	setValue(&cfg.MaxBodyBytes, fc.HTTP.MaxBodyBytes)

	setString(&cfg.LogLevel, fc.Log.Level)
	setString(&cfg.LogFormat, fc.Log.Format)

	setString(&cfg.Store, fc.Store.Backend)
	setString(&cfg.DatabaseURL, fc.Store.DatabaseURL)
	setString(&cfg.DBSchema, fc.Store.Schema)
	setValue(&cfg.DBMaxConns, fc.Store.MaxConns)
	setValue(&cfg.DBMinConns, fc.Store.MinConns)
	setString(&cfg.RESTURL, fc.Store.RESTURL)
	setString(&cfg.RESTKey, fc.Store.RESTKey)
	setString(&cfg.RESTTable, fc.Store.RESTTable)
	setDuration(&cfg.RESTTimeout, fc.Store.RESTTimeout)
	setValue(&cfg.ReadinessRequireStore, fc.Store.ReadinessRequire)

	setValue(&cfg.SessionMax, fc.Session.Max)
	setDuration(&cfg.SessionTTL, fc.Session.TTL)
	setValue(&cfg.SessionOutbox, fc.Session.Outbox)
	setString(&cfg.Locale, fc.Session.Locale)
	setValue(&cfg.CookieSecure, fc.Session.CookieSecure)

	if fc.WS.AllowedOrigins != nil {
		cfg.WSAllowedOrigins = append([]string(nil), fc.WS.AllowedOrigins...)
	}
	setValue(&cfg.WSOriginRequired, fc.WS.OriginRequired)
	setValue(&cfg.WSDevInsecure, fc.WS.DevInsecure)

	if fc.CORS.AllowedOrigins != nil {
		cfg.CORSAllowedOrigins = append([]string(nil), fc.CORS.AllowedOrigins...)
	}
	setValue(&cfg.CORSAllowCredentials, fc.CORS.AllowCredentials)
	setValue(&cfg.CORSMaxAgeSeconds, fc.CORS.MaxAgeSeconds)
}

func setValue[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func setString(dst *string, v *string) {
	if v != nil && strings.TrimSpace(*v) != "" {
		*dst = strings.TrimSpace(*v)
	}
}

func setDuration(dst *time.Duration, v *duration) {
	if v != nil {
		*dst = time.Duration(*v)
	}
}
