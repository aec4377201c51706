package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	ServerPort       string        `yaml:"server_port"`
	DatabaseType     string        `yaml:"database_type"`
	DatabaseURL      string        `yaml:"database_url"`
	DatabasePath     string        `yaml:"database_path"`
	SessionDuration  time.Duration `yaml:"session_duration"`
	RememberDuration time.Duration `yaml:"remember_duration"`
	StaticFilesPath  string        `yaml:"static_path"`
	TemplatesPath    string        `yaml:"templates_path"`
	CSRFSecret       string        `yaml:"csrf_secret"`
	RememberSecret   string        `yaml:"remember_secret"`
	AppBaseURL       string        `yaml:"app_base_url"`
	MetricsEnabled   bool          `yaml:"metrics_enabled"`
	Debug            bool          `yaml:"debug"`

	// Amazon SES; email is disabled when SESFromEmail is empty
	AWSRegion    string `yaml:"aws_region"`
	SESFromEmail string `yaml:"ses_from_email"`
	SESFromName  string `yaml:"ses_from_name"`
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first if present, and a YAML
// file named by BABYLOG_CONFIG overrides the environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: failed to load .env file: %v", err)
	}

	cfg := &Config{
		ServerPort:       getEnv("PORT", "8080"),
		DatabaseType:     getEnv("DB_TYPE", "sqlite"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		DatabasePath:     getEnv("DB_PATH", "./babylog.db"),
		SessionDuration:  getEnvDuration("SESSION_DURATION", 24*time.Hour),
		RememberDuration: getEnvDuration("REMEMBER_DURATION", 30*24*time.Hour),
		StaticFilesPath:  getEnv("STATIC_PATH", "./static"),
		TemplatesPath:    getEnv("TEMPLATES_PATH", ""),
		CSRFSecret:       getEnv("CSRF_SECRET", ""),
		RememberSecret:   getEnv("REMEMBER_SECRET", ""),
		AppBaseURL:       getEnv("APP_BASE_URL", "http://localhost:8080"),
		MetricsEnabled:   getEnvBool("METRICS_ENABLED", true),
		Debug:            getEnvBool("DEBUG", false),
		AWSRegion:        getEnv("AWS_REGION", "us-east-1"),
		SESFromEmail:     getEnv("SES_FROM_EMAIL", ""),
		SESFromName:      getEnv("SES_FROM_NAME", "Babylog"),
	}

	if path := os.Getenv("BABYLOG_CONFIG"); path != "" {
		if err := cfg.MergeFile(path); err != nil {
			log.Printf("Warning: failed to read config file %s: %v", path, err)
		}
	}

	cfg.CSRFSecret = secretOrRandom("CSRF_SECRET", cfg.CSRFSecret)
	cfg.RememberSecret = secretOrRandom("REMEMBER_SECRET", cfg.RememberSecret)

	return cfg
}

// secretOrRandom returns secret, or a random per-process value when it is
// empty. Tokens signed with a random secret do not survive a restart.
func secretOrRandom(name, secret string) string {
	if secret != "" {
		return secret
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		log.Fatalf("Failed to generate %s: %v", name, err)
	}
	log.Printf("Warning: %s is not set; using a random secret for this process", name)
	return hex.EncodeToString(buf)
}

// MergeFile overlays values from a YAML file onto the config. Keys missing
// from the file keep their current value.
func (c *Config) MergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
