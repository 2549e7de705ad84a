// Package config defines the runtime settings of the relay server, their
// defaults, environment overrides and validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cyberinferno/simplechat/logger"
)

// DefaultPort is the port the relay listens on when none is configured.
const DefaultPort = 5555

// Config holds the relay server settings.
type Config struct {
	// Name identifies the service in log entries and log file names.
	Name string
	// Host is the interface to bind; empty binds all interfaces.
	Host string
	// Port is the initial listening port.
	Port int
	// LogLevel is a zerolog level name.
	LogLevel string
	// LogDir enables daily-rotated log files in this directory when set.
	LogDir string
	// MaxLineLength bounds a single inbound line.
	MaxLineLength int
	// WriteTimeout bounds a single outbound line write.
	WriteTimeout time.Duration
	// KickCooldown refuses hosts kicked for protocol violations for this long; 0 disables it.
	KickCooldown time.Duration
	// CooldownRedisAddr shares the cooldown list through Redis when set.
	CooldownRedisAddr string
	// ShutdownTimeout bounds waiting for connection goroutines on exit.
	ShutdownTimeout time.Duration
}

// Default returns a Config populated with default values for all settings.
func Default() Config {
	return Config{
		Name:            "simplechat",
		Port:            DefaultPort,
		LogLevel:        "info",
		MaxLineLength:   4096,
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}

// FromEnv returns the defaults overridden by CHAT_* environment variables.
// Malformed numeric values keep the default.
func FromEnv() Config {
	cfg := Default()

	if name := os.Getenv("CHAT_NAME"); name != "" {
		cfg.Name = name
	}

	if host := os.Getenv("CHAT_HOST"); host != "" {
		cfg.Host = host
	}

	if port := os.Getenv("CHAT_PORT"); port != "" {
		cfg.Port = parseIntValue(port, cfg.Port)
	}

	if level := os.Getenv("CHAT_LOG_LEVEL"); level != "" {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(level))
	}

	if dir := os.Getenv("CHAT_LOG_DIR"); dir != "" {
		cfg.LogDir = dir
	}

	if size := os.Getenv("CHAT_MAX_LINE_LENGTH"); size != "" {
		cfg.MaxLineLength = parseIntValue(size, cfg.MaxLineLength)
	}

	if timeout := os.Getenv("CHAT_WRITE_TIMEOUT"); timeout != "" {
		cfg.WriteTimeout = parseDuration(timeout, cfg.WriteTimeout)
	}

	if cooldown := os.Getenv("CHAT_KICK_COOLDOWN"); cooldown != "" {
		cfg.KickCooldown = parseDuration(cooldown, cfg.KickCooldown)
	}

	if addr := os.Getenv("CHAT_COOLDOWN_REDIS_ADDR"); addr != "" {
		cfg.CooldownRedisAddr = addr
	}

	if timeout := os.Getenv("CHAT_SHUTDOWN_TIMEOUT"); timeout != "" {
		cfg.ShutdownTimeout = parseDuration(timeout, cfg.ShutdownTimeout)
	}

	return cfg
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error

	if c.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}

	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range 0-65535", c.Port))
	}

	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	if c.MaxLineLength <= 0 {
		errs = append(errs, errors.New("max line length must be positive"))
	}

	if c.WriteTimeout < 0 || c.KickCooldown < 0 || c.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("durations must not be negative"))
	}

	return errors.Join(errs...)
}

func parseIntValue(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && parsed >= 0 {
		return parsed
	}

	return defaultValue
}

func parseDuration(value string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && d >= 0 {
		return d
	}

	if seconds, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
