/*
Package config reads the application configuration through Viper.

PURPOSE:
  Settings come from environment variables, with an optional local .env
  file for development. Every knob has a default that works for a single
  shop on one machine, so a bare `counterbook` start needs no setup.

KNOBS:
  APP_ENV, LOG_LEVEL                   ambient behavior
  HTTP_HOST, HTTP_PORT                 listen address
  DB_PATH                              SQLite snapshot file
  BACKUP_DIR                           where exported backups land
  ALLOW_NEGATIVE_STOCK                 sales may oversell (default true)
  STRICT_PRODUCT_REFS                  unknown line products reject the
                                       whole document (default false)
*/
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/counterbook/pos-engine/ledger"
)

// Config groups the application settings.
type Config struct {
	App     AppConfig
	HTTP    HTTPConfig
	Store   StoreConfig
	Posting PostingConfig
}

// AppConfig holds the ambient settings.
type AppConfig struct {
	Env      string // development, production
	Name     string
	LogLevel string
}

// HTTPConfig holds the listen address.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr returns the host:port listen address.
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StoreConfig holds the on-device persistence paths.
type StoreConfig struct {
	DBPath    string
	BackupDir string
}

// PostingConfig holds the posting policy toggles.
type PostingConfig struct {
	AllowNegativeStock bool
	StrictProductRefs  bool
}

// Policy converts the toggles into the engine's posting policy.
func (c PostingConfig) Policy() ledger.PostingPolicy {
	return ledger.PostingPolicy{
		AllowNegativeStock: c.AllowNegativeStock,
		StrictProductRefs:  c.StrictProductRefs,
	}
}

// Load reads configuration from environment variables, with an optional
// .env file. Environment variables win.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // a missing file is fine

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_NAME", "counterbook")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("HTTP_HOST", "127.0.0.1")
	v.SetDefault("HTTP_PORT", 8080)
	v.SetDefault("DB_PATH", "./counterbook.db")
	v.SetDefault("BACKUP_DIR", ".")
	v.SetDefault("ALLOW_NEGATIVE_STOCK", true)
	v.SetDefault("STRICT_PRODUCT_REFS", false)

	cfg := &Config{
		App: AppConfig{
			Env:      v.GetString("APP_ENV"),
			Name:     v.GetString("APP_NAME"),
			LogLevel: v.GetString("LOG_LEVEL"),
		},
		HTTP: HTTPConfig{
			Host: v.GetString("HTTP_HOST"),
			Port: v.GetInt("HTTP_PORT"),
		},
		Store: StoreConfig{
			DBPath:    v.GetString("DB_PATH"),
			BackupDir: v.GetString("BACKUP_DIR"),
		},
		Posting: PostingConfig{
			AllowNegativeStock: v.GetBool("ALLOW_NEGATIVE_STOCK"),
			StrictProductRefs:  v.GetBool("STRICT_PRODUCT_REFS"),
		},
	}
	return cfg, nil
}
