package app

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/artificialadnaan/trocksynchubv3-sub001/internal/config"
)

// Config holds the CLI configuration loaded from flags, environment
// variables, .env files, and the config file.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool

	// Config file
	ConfigFile string

	// Sync hub configuration
	StateDir      string
	Pair          string
	SourceSystem  string
	TargetSystem  string
	SourceKind    string
	TargetKind    string
	BatchSize     int
	Retention     time.Duration
	StageTable    string
	CreateMissing bool

	// Logging configuration
	LogLevel  string
	LogFormat string
}

// LoadConfig loads configuration from all sources in order of precedence:
// command-line flags (applied later by cobra), environment variables,
// .env files, the config file, then defaults.
func LoadConfig() (*Config, error) {
	loadEnvFiles()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	configFile := viper.GetString("config")
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.AddConfigPath(".")
			viper.SetConfigType("yaml")
			viper.SetConfigName(".synchub")
		}
	}
	// Missing config file is fine; everything has a default.
	_ = viper.ReadInConfig()

	c := &Config{
		Verbose: viper.GetBool("verbose"),
		Quiet:   viper.GetBool("quiet"),
		NoColor: viper.GetBool("no-color"),

		ConfigFile: viper.ConfigFileUsed(),

		StateDir:      config.StateDir(),
		Pair:          config.Pair(),
		SourceSystem:  getOrDefault("source_system", "pm"),
		TargetSystem:  getOrDefault("target_system", "crm"),
		SourceKind:    getOrDefault("source_kind", "project"),
		TargetKind:    getOrDefault("target_kind", "company"),
		BatchSize:     config.BatchSize(),
		Retention:     config.Retention(),
		StageTable:    config.StageTablePath(),
		CreateMissing: viper.GetBool("create_missing"),

		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "auto"),
	}
	return c, nil
}

// UpdateFromFlags applies parsed cobra flag values, which take precedence
// over every other source.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// loadEnvFiles loads environment variables from .env files; .env.local
// overrides .env.
func loadEnvFiles() {
	for _, envFile := range []string{".env", ".env.local"} {
		_ = godotenv.Load(envFile)
	}
}

func getOrDefault(key, fallback string) string {
	if v := config.GetString(key); v != "" {
		return v
	}
	return fallback
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
