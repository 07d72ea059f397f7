package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"atm-engine/internal/core/domain"

	"github.com/spf13/viper"
	"golang.org/x/text/currency"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Bank        BankConfig        `mapstructure:"bank"`
	ATM         AtmConfig         `mapstructure:"atm"`
	Admin       AdminConfig       `mapstructure:"admin"`
	JWT         JWTConfig         `mapstructure:"jwt"`
	Idempotency IdempotencyConfig `mapstructure:"idempotency"`
	Log         LogConfig         `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// BankConfig points at the card-issuing bank's authorization API.
type BankConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	APIKey       string        `mapstructure:"api_key"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
}

// AtmConfig describes the machine: its currency and the cassette load it
// starts with when no persisted deposit exists.
type AtmConfig struct {
	Currency string `mapstructure:"currency"`
	// InitialDeposit maps a banknote face value ("100") to a note count.
	InitialDeposit map[string]int `mapstructure:"initial_deposit"`
	PersistDeposit bool           `mapstructure:"persist_deposit"`
}

// Unit parses the configured ISO currency code.
func (a AtmConfig) Unit() (currency.Unit, error) {
	return domain.ParseCurrency(a.Currency)
}

// InitialPacks converts InitialDeposit into banknote packs of the configured
// currency, highest denomination first.
func (a AtmConfig) InitialPacks() ([]domain.BanknotesPack, error) {
	unit, err := a.Unit()
	if err != nil {
		return nil, err
	}

	packs := make([]domain.BanknotesPack, 0, len(a.InitialDeposit))
	for face, count := range a.InitialDeposit {
		value, err := strconv.ParseInt(strings.TrimSpace(face), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("initial deposit denomination %q: %w", face, domain.ErrUnknownBanknote)
		}
		b, err := domain.ParseBanknote(unit, value)
		if err != nil {
			return nil, fmt.Errorf("initial deposit denomination %q: %w", face, err)
		}
		p, err := domain.NewBanknotesPack(count, b)
		if err != nil {
			return nil, fmt.Errorf("initial deposit denomination %q: %w", face, err)
		}
		packs = append(packs, p)
	}
	sort.SliceStable(packs, func(i, j int) bool {
		return packs[i].Denomination.Value() > packs[j].Denomination.Value()
	})
	return packs, nil
}

// AdminConfig holds the single operator account allowed to manage the deposit.
type AdminConfig struct {
	Username     string `mapstructure:"username"`
	PasswordHash string `mapstructure:"password_hash"` // argon2id encoded
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

type IdempotencyConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: ATM_.
// Nested keys use underscore: ATM_DATABASE_HOST, ATM_BANK_BASE_URL, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "atm")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("bank.base_url", "http://localhost:9090")
	v.SetDefault("bank.api_key", "")
	v.SetDefault("bank.timeout", "5s")
	v.SetDefault("bank.max_retries", 2)
	v.SetDefault("bank.retry_backoff", "200ms")
	v.SetDefault("atm.currency", "PLN")
	v.SetDefault("atm.initial_deposit", map[string]int{})
	v.SetDefault("atm.persist_deposit", true)
	v.SetDefault("admin.username", "operator")
	v.SetDefault("admin.password_hash", "")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "1h")
	v.SetDefault("jwt.issuer", "atm-engine")
	v.SetDefault("idempotency.ttl", "24h")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// ATM_BANK_BASE_URL -> bank.base_url
	v.SetEnvPrefix("ATM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// env vars alone are enough to run
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
