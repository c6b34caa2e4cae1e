package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/ledgercore/ledgerd/internal/core/ports"
	"github.com/ledgercore/ledgerd/internal/infrastructure/db"
)

// EnvReplacer replaces `-` to `_`.
// This is used to map keys like `db-type` to environment variables like
// `LEDGERD_DB_TYPE`.
var envReplacer = strings.NewReplacer("-", "_")

func init() {
	viper.SetEnvPrefix("LEDGERD")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(envReplacer)
}

type supportedType map[string]struct{}

func (t supportedType) String() string {
	types := make([]string, 0, len(t))
	for tt := range t {
		types = append(types, tt)
	}
	return strings.Join(types, " | ")
}

func (t supportedType) supports(typeStr string) bool {
	_, ok := t[typeStr]
	return ok
}

var supportedDbs = supportedType{
	"badger":   {},
	"inmemory": {},
}

type Config struct {
	Datadir  string
	DbType   string
	LogLevel int

	repoManager ports.RepoManager
}

func LoadConfig() (*Config, error) {
	viper.SetDefault("datadir", defaultDatadir())
	viper.SetDefault("db-type", "badger")
	viper.SetDefault("log-level", int(log.InfoLevel))

	cfg := &Config{
		Datadir:  viper.GetString("datadir"),
		DbType:   viper.GetString("db-type"),
		LogLevel: viper.GetInt("log-level"),
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %s", err)
	}

	log.SetLevel(log.Level(cfg.LogLevel))
	return cfg, nil
}

func (c *Config) validate() error {
	if !supportedDbs.supports(c.DbType) {
		return fmt.Errorf("db type not supported, must be one of: %s", supportedDbs)
	}
	if c.DbType == "badger" {
		if err := makeDirectoryIfNotExists(c.Datadir); err != nil {
			return fmt.Errorf("failed to create datadir: %s", err)
		}
	}
	return nil
}

// RepoManager opens (once) and returns the configured data store.
func (c *Config) RepoManager() (ports.RepoManager, error) {
	if c.repoManager != nil {
		return c.repoManager, nil
	}

	var storeConfig []interface{}
	if c.DbType == "badger" {
		storeConfig = []interface{}{c.Datadir, badgerLogger()}
	}
	svc, err := db.NewService(db.ServiceConfig{
		DataStoreType:   c.DbType,
		DataStoreConfig: storeConfig,
	})
	if err != nil {
		return nil, err
	}
	c.repoManager = svc
	return svc, nil
}

func defaultDatadir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ledgerd"
	}
	return filepath.Join(home, ".ledgerd")
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}

func badgerLogger() interface{} {
	// badger logging is noisy at default levels, keep it off unless
	// tracing.
	if log.GetLevel() >= log.TraceLevel {
		return log.StandardLogger()
	}
	return nil
}
