package config

import (
	"fmt"
	"github.com/ilyakaznacheev/cleanenv"
	"os"
	"time"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

const (
	defaultInviteSecret = "change-me-invite-secret"
	defaultAuthSecret   = "change-me-access-secret"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Env      string         `yaml:"env" env:"ENV" env-default:"dev"`
	Server   HTTPServer     `yaml:"server" env-prefix:"SERVER_"`
	Storage  StorageConfig  `yaml:"storage" env-prefix:"STORAGE_"`
	Postgres PostgresConfig `yaml:"postgres" env-prefix:"PG_"`
	SQLite   SQLiteConfig   `yaml:"sqlite" env-prefix:"SQLITE_"`
	Invite   InviteConfig   `yaml:"invite" env-prefix:"INVITE_"`
	Auth     AuthConfig     `yaml:"auth" env-prefix:"AUTH_"`
	SMTP     SMTPConfig     `yaml:"smtp" env-prefix:"SMTP_"`
	Capacity CapacityConfig `yaml:"capacity" env-prefix:"CAPACITY_"`
	Team     TeamConfig     `yaml:"team" env-prefix:"TEAM_"`
}

type HTTPServer struct {
	Port        string        `yaml:"port" env:"PORT" env-default:"8080"`
	Timeout     time.Duration `yaml:"timeout" env:"TIMEOUT" env-default:"5s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"IDLE_TIMEOUT" env-default:"60s"`
}

type StorageConfig struct {
	Driver string `yaml:"driver" env:"DRIVER" env-default:"postgres"`
}

type PostgresConfig struct {
	Host     string `yaml:"host" env:"HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"PORT" env-default:"5432"`
	User     string `yaml:"user" env:"USER" env-default:"postgres"`
	Password string `yaml:"password" env:"PASSWORD" env-default:"postgres"`
	DbName   string `yaml:"dbname" env:"DBNAME" env-default:"teams_db"`
	SslMode  string `yaml:"sslmode" env:"SSLMODE" env-default:"disable"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DbName, c.SslMode)
}

type SQLiteConfig struct {
	Path string `yaml:"path" env:"PATH" env-default:"teams.db"`
}

type InviteConfig struct {
	Secret      string `yaml:"secret" env:"SECRET" env-default:"change-me-invite-secret"`
	TTLDays     int    `yaml:"ttl_days" env:"TTL_DAYS" env-default:"30"`
	LinkBaseURL string `yaml:"link_base_url" env:"LINK_BASE_URL" env-default:"https://yumo.org/invite/"`
}

type AuthConfig struct {
	Secret string `yaml:"secret" env:"SECRET" env-default:"change-me-access-secret"`
}

// SMTPConfig configures invitation delivery. An empty Host switches the
// service to a notifier that only logs.
type SMTPConfig struct {
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT" env-default:"587"`
	User     string `yaml:"user" env:"USER"`
	Password string `yaml:"password" env:"PASSWORD"`
	From     string `yaml:"from" env:"FROM" env-default:"no-reply@yumo.org"`
}

type CapacityConfig struct {
	FreeTeams int `yaml:"free_teams" env:"FREE_TEAMS" env-default:"1"`
	ProTeams  int `yaml:"pro_teams" env:"PRO_TEAMS" env-default:"100"`
	FreeTasks int `yaml:"free_tasks" env:"FREE_TASKS" env-default:"6"`
	ProTasks  int `yaml:"pro_tasks" env:"PRO_TASKS" env-default:"999999"`
}

type TeamConfig struct {
	LastAdminPolicy string `yaml:"last_admin_policy" env:"LAST_ADMIN_POLICY" env-default:"allow"`
}

// Load reads CONFIG_PATH when set and the environment otherwise. Environment
// variables override values from the file.
func Load() (*Config, error) {
	var cfg Config

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read config from environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err.Error())
	}

	return cfg
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	switch c.Team.LastAdminPolicy {
	case "allow", "reject", "promote":
	default:
		return fmt.Errorf("unknown last admin policy %q", c.Team.LastAdminPolicy)
	}

	if c.Invite.TTLDays <= 0 {
		return fmt.Errorf("invite ttl must be positive, got %d", c.Invite.TTLDays)
	}

	// Placeholder secrets are published with the source.
	if c.Env == EnvProd {
		if c.Invite.Secret == "" || c.Invite.Secret == defaultInviteSecret {
			return fmt.Errorf("INVITE_SECRET must be set in %s", EnvProd)
		}
		if c.Auth.Secret == "" || c.Auth.Secret == defaultAuthSecret {
			return fmt.Errorf("AUTH_SECRET must be set in %s", EnvProd)
		}
	}

	return nil
}
