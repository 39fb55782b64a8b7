// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/screendata/mihcsme/internal/errors"
	"github.com/screendata/mihcsme/internal/validation"
)

// Config holds the application configuration.
type Config struct {
	App    AppConfig
	Logger LoggerConfig
	OMERO  OMEROConfig
	Sync   SyncConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string `json:"env" validate:"oneof=development staging production"`
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string `json:"log_level" validate:"oneof=debug info warn error"`
}

// OMEROConfig holds the OMERO server connection settings. Credentials
// are not required at load time: commands that only touch local files
// run without them.
type OMEROConfig struct {
	Host     string `json:"omero_host"`
	Port     int    `json:"omero_port" validate:"gte=1,lte=65535"`
	User     string `json:"omero_user"`
	Password string `json:"-"`
	Group    string `json:"omero_group"`
	Secure   bool   `json:"omero_secure"`
	Timeout  time.Duration
}

// SyncConfig holds annotation namespace settings.
type SyncConfig struct {
	NamespaceBase string `json:"namespace" validate:"required,max=128"`
}

// LoadConfig parses args against the given flag set and loads
// configuration with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig(fs *flag.FlagSet, args []string) (*Config, error) {
	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")

	host := fs.String("host", "", "OMERO server hostname")
	port := fs.String("port", "", "OMERO server port (default: 4080)")
	user := fs.String("user", "", "OMERO username")
	password := fs.String("password", "", "OMERO password")
	group := fs.String("group", "", "OMERO group to work in (default: user's default group)")
	secure := fs.String("secure", "", "Use HTTPS to reach the server (default: false)")
	timeout := fs.String("timeout", "", "HTTP timeout for server calls (default: 30s)")

	namespace := fs.String("namespace", "", "Annotation namespace base (default: MIHCSME)")
	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, errors.Wrap(err, errors.CodeValidation, "invalid arguments")
	}

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		OMERO: OMEROConfig{
			Host:     getConfigValue(*host, "OMERO_HOST", ""),
			Port:     getIntConfigValue(*port, "OMERO_PORT", 4080),
			User:     getConfigValue(*user, "OMERO_USER", ""),
			Password: getConfigValue(*password, "OMERO_PASSWORD", ""),
			Group:    getConfigValue(*group, "OMERO_GROUP", ""),
			Secure:   getBoolConfigValue(*secure, "OMERO_SECURE", false),
		},
		Sync: SyncConfig{
			NamespaceBase: getConfigValue(*namespace, "MIHCSME_NAMESPACE", "MIHCSME"),
		},
	}

	timeoutStr := getConfigValue(*timeout, "OMERO_TIMEOUT", "30s")
	timeoutDuration, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, errors.Validationf("invalid timeout %q: %v", timeoutStr, err)
	}
	cfg.OMERO.Timeout = timeoutDuration

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the statically checkable config values.
func (c *Config) Validate() error {
	c.Logger.Level = strings.ToLower(c.Logger.Level)
	return validation.New().Validate(c)
}

// RequireCredentials checks that the fields needed to open a server
// session are present. Commands that never touch the server skip this.
func (c *Config) RequireCredentials() error {
	var missing []string
	if c.OMERO.Host == "" {
		missing = append(missing, "host")
	}
	if c.OMERO.User == "" {
		missing = append(missing, "user")
	}
	if c.OMERO.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return errors.Validationf("missing OMERO connection settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		value = strings.Trim(value, `"'`)

		// Env vars set in the process take precedence over .env file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
