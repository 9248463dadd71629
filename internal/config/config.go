// Package config loads runtime settings from an optional config.yaml and the
// environment. Environment variables use the SECTION_KEY form, for example
// LICENSE_SECRET_KEY_HEX or DATABASE_DRIVER.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var ErrConfig = errors.New("invalid configuration")

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	AppEnv     string `mapstructure:"APP_ENV"`
	AppName    string `mapstructure:"APP_NAME"`
	AppVersion string `mapstructure:"APP_VERSION"`
	Server     struct {
		Addr string `mapstructure:"ADDR"`
	} `mapstructure:"HTTP_SERVER"`
	Database  DatabaseConfig  `mapstructure:"DATABASE"`
	License   LicenseConfig   `mapstructure:"LICENSE"`
	Admin     AdminConfig     `mapstructure:"ADMIN"`
	SheetSync SheetSyncConfig `mapstructure:"SHEET_SYNC"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"DRIVER"`
	// Path is the sqlite file; DSN is used for postgres.
	Path string `mapstructure:"PATH"`
	DSN  string `mapstructure:"DSN"`
}

type LicenseConfig struct {
	SecretKeyHex string `mapstructure:"SECRET_KEY_HEX"`
	Footer       string `mapstructure:"FOOTER"`

	// SecretKey is decoded from SecretKeyHex by Load.
	SecretKey []byte `mapstructure:"-"`
}

type AdminConfig struct {
	Username  string        `mapstructure:"USERNAME"`
	Password  string        `mapstructure:"PASSWORD"`
	JWTSecret string        `mapstructure:"JWT_SECRET"`
	TokenTTL  time.Duration `mapstructure:"TOKEN_TTL"`
}

type SheetSyncConfig struct {
	Enable         bool   `mapstructure:"ENABLE"`
	CredentialPath string `mapstructure:"CREDENTIAL_PATH"`
	SpreadsheetID  string `mapstructure:"SPREADSHEET_ID"`
	SheetName      string `mapstructure:"SHEET_NAME"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_NAME", "License Server")
	v.SetDefault("APP_VERSION", "1.0.0")
	v.SetDefault("HTTP_SERVER.ADDR", ":8000")
	v.SetDefault("DATABASE.DRIVER", DriverSQLite)
	v.SetDefault("DATABASE.PATH", "data/licenses.db")
	v.SetDefault("DATABASE.DSN", "")
	v.SetDefault("LICENSE.SECRET_KEY_HEX", "")
	v.SetDefault("LICENSE.FOOTER", "license-v1")
	v.SetDefault("ADMIN.USERNAME", "admin")
	v.SetDefault("ADMIN.PASSWORD", "")
	v.SetDefault("ADMIN.JWT_SECRET", "")
	v.SetDefault("ADMIN.TOKEN_TTL", 24*time.Hour)
	v.SetDefault("SHEET_SYNC.ENABLE", false)
	v.SetDefault("SHEET_SYNC.CREDENTIAL_PATH", "")
	v.SetDefault("SHEET_SYNC.SPREADSHEET_ID", "")
	v.SetDefault("SHEET_SYNC.SHEET_NAME", "Licenses")
}

// Load reads config.yaml from dir (if present) and overlays the environment.
func Load(dir string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir != "" {
		v.AddConfigPath(dir)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func (c *Config) validate() error {
	key, err := hex.DecodeString(c.License.SecretKeyHex)
	if err != nil || len(key) != 32 {
		return fmt.Errorf("%w: LICENSE.SECRET_KEY_HEX must be 32 bytes of hex", ErrConfig)
	}
	c.License.SecretKey = key

	if c.License.Footer == "" {
		return fmt.Errorf("%w: LICENSE.FOOTER must not be empty", ErrConfig)
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("%w: DATABASE.PATH is required for sqlite", ErrConfig)
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("%w: DATABASE.DSN is required for postgres", ErrConfig)
		}
	default:
		return fmt.Errorf("%w: unsupported DATABASE.DRIVER %q", ErrConfig, c.Database.Driver)
	}

	if c.Admin.Username == "" || c.Admin.Password == "" {
		return fmt.Errorf("%w: ADMIN.USERNAME and ADMIN.PASSWORD are required", ErrConfig)
	}
	if c.Admin.JWTSecret == "" {
		return fmt.Errorf("%w: ADMIN.JWT_SECRET is required", ErrConfig)
	}
	if c.Admin.TokenTTL <= 0 {
		return fmt.Errorf("%w: ADMIN.TOKEN_TTL must be positive", ErrConfig)
	}

	if c.SheetSync.Enable && (c.SheetSync.CredentialPath == "" || c.SheetSync.SpreadsheetID == "") {
		return fmt.Errorf("%w: SHEET_SYNC needs CREDENTIAL_PATH and SPREADSHEET_ID", ErrConfig)
	}
	return nil
}
