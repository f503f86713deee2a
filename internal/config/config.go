package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// LoadMode selects how the loader avoids duplicate outages.
type LoadMode string

const (
	// LoadModeUpsert inserts with ON CONFLICT DO NOTHING on the unique reference_id.
	LoadModeUpsert LoadMode = "upsert"
	// LoadModeCheckThenInsert checks existence first, for stores without the unique index.
	LoadModeCheckThenInsert LoadMode = "check-then-insert"
)

// ReconcileMode selects what happens to outages that are already stored.
type ReconcileMode string

const (
	ReconcileNone    ReconcileMode = "none"
	ReconcileFillEnd ReconcileMode = "fill-end"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// Config holds all service settings, populated from environment variables.
type Config struct {
	DB DBConfig

	DataDir  string
	CleanCSV string

	HTTPTimeout    time.Duration
	UserAgent      string
	BrowserEnabled bool
	BrowserTimeout time.Duration
	ProviderURLs   ProviderURLs

	LoadMode          LoadMode
	ReconcileMode     ReconcileMode
	ProviderCacheSize int

	Schedule        string
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Publishing is disabled when KafkaBrokers is empty.
	KafkaBrokers []string
	KafkaTopic   string

	// The run lock is disabled when RedisURL is empty.
	RedisURL string
	LockKey  string
	LockTTL  time.Duration
}

// DBConfig holds the PostgreSQL connection settings.
type DBConfig struct {
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

// ProviderURLs are the upstream endpoints, overridable for mirrors and tests.
type ProviderURLs struct {
	NationalGrid         string
	UKPowerNetworks      string
	SSEN                 string
	SPEnergyNetworks     string
	NorthernPowergrid    string
	ElectricityNorthWest string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	httpTimeout, err := parsePositiveDuration("HTTP_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	browserTimeout, err := parsePositiveDuration("BROWSER_TIMEOUT", "60s")
	if err != nil {
		return nil, err
	}
	lockTTL, err := parsePositiveDuration("LOCK_TTL", "30m")
	if err != nil {
		return nil, err
	}

	dbPort, err := strconv.Atoi(sharedcfg.EnvOrDefault("DB_PORT", "5432"))
	if err != nil || dbPort <= 0 || dbPort > 65535 {
		return nil, errors.New("invalid DB_PORT")
	}

	cacheSize, err := strconv.Atoi(sharedcfg.EnvOrDefault("PROVIDER_CACHE_SIZE", "64"))
	if err != nil || cacheSize <= 0 {
		return nil, errors.New("invalid PROVIDER_CACHE_SIZE")
	}

	browserEnabled, err := strconv.ParseBool(sharedcfg.EnvOrDefault("BROWSER_ENABLED", "true"))
	if err != nil {
		return nil, errors.New("invalid BROWSER_ENABLED")
	}

	var brokers []string
	if v := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	cfg := &Config{
		DB: DBConfig{
			Host:     sharedcfg.EnvOrDefault("DB_HOST", "localhost"),
			Port:     dbPort,
			Name:     os.Getenv("DB_NAME"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			SSLMode:  sharedcfg.EnvOrDefault("DB_SSLMODE", "disable"),
		},
		DataDir:        sharedcfg.EnvOrDefault("DATA_DIR", "data"),
		CleanCSV:       sharedcfg.EnvOrDefault("CLEAN_CSV", "clean_power_outage_data.csv"),
		HTTPTimeout:    httpTimeout,
		UserAgent:      sharedcfg.EnvOrDefault("USER_AGENT", defaultUserAgent),
		BrowserEnabled: browserEnabled,
		BrowserTimeout: browserTimeout,
		ProviderURLs: ProviderURLs{
			NationalGrid:         sharedcfg.EnvOrDefault("NATIONAL_GRID_URL", "https://connecteddata.nationalgrid.co.uk/dataset/d6672e1e-c684-4cea-bb78-c7e5248b62a2/resource/292f788f-4339-455b-8cc0-153e14509d4d/download/power_outage_ext.csv"),
			UKPowerNetworks:      sharedcfg.EnvOrDefault("UK_POWER_NETWORKS_URL", "https://ukpowernetworks.opendatasoft.com/api/explore/v2.1/catalog/datasets/ukpn-live-faults/records?limit=100"),
			SSEN:                 sharedcfg.EnvOrDefault("SSEN_URL", "http://api.sse.com/powerdistribution/network/v3/api/faults"),
			SPEnergyNetworks:     sharedcfg.EnvOrDefault("SP_ENERGY_NETWORKS_URL", "https://www.spenergynetworks.co.uk/pages/power_cuts_list.aspx"),
			NorthernPowergrid:    sharedcfg.EnvOrDefault("NORTHERN_POWERGRID_URL", "https://power.northernpowergrid.com/Powercuts/map"),
			ElectricityNorthWest: sharedcfg.EnvOrDefault("ELECTRICITY_NORTH_WEST_URL", "https://www.enwl.co.uk/power-cuts/power-cuts-power-cuts-live-power-cut-information-fault-list/fault-list/?postcodeOrReferenceNumber="),
		},
		LoadMode:          LoadMode(sharedcfg.EnvOrDefault("LOAD_MODE", string(LoadModeUpsert))),
		ReconcileMode:     ReconcileMode(sharedcfg.EnvOrDefault("RECONCILE_MODE", string(ReconcileNone))),
		ProviderCacheSize: cacheSize,
		Schedule:          strings.TrimSpace(os.Getenv("SCHEDULE")),
		HTTPAddr:          sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:          sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:         sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:   shutdownTimeout,
		KafkaBrokers:      brokers,
		KafkaTopic:        sharedcfg.EnvOrDefault("KAFKA_TOPIC", "outages-inserted"),
		RedisURL:          os.Getenv("REDIS_URL"),
		LockKey:           sharedcfg.EnvOrDefault("LOCK_KEY", "power-outage-etl:run"),
		LockTTL:           lockTTL,
	}

	switch cfg.LoadMode {
	case LoadModeUpsert, LoadModeCheckThenInsert:
	default:
		return nil, fmt.Errorf("invalid LOAD_MODE %q", cfg.LoadMode)
	}
	switch cfg.ReconcileMode {
	case ReconcileNone, ReconcileFillEnd:
	default:
		return nil, fmt.Errorf("invalid RECONCILE_MODE %q", cfg.ReconcileMode)
	}
	if cfg.DataDir == "" {
		return nil, errors.New("DATA_DIR is required")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// Validate checks the settings needed to reach the database.
func (c DBConfig) Validate() error {
	var missing []string
	if c.Host == "" {
		missing = append(missing, "DB_HOST")
	}
	if c.Name == "" {
		missing = append(missing, "DB_NAME")
	}
	if c.User == "" {
		missing = append(missing, "DB_USER")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s required", strings.Join(missing, ", "))
	}
	return nil
}

// DSN renders the settings as a postgres:// connection URL.
func (c DBConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

// CleanPath returns the clean dataset path. A relative CLEAN_CSV is placed
// under DATA_DIR.
func (c *Config) CleanPath() string {
	if filepath.IsAbs(c.CleanCSV) {
		return c.CleanCSV
	}
	return filepath.Join(c.DataDir, c.CleanCSV)
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}
