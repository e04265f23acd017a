// Package config loads kbnsheet settings from a YAML file, the environment
// and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nconklindev/kbnsheet/internal/converter"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for a config file.
const DefaultPath = "kbnsheet.yaml"

const dateLayout = "2006-01-02"

// Config holds all kbnsheet configuration.
type Config struct {
	HeaderRows    int    `yaml:"header_rows"`
	Delimiter     string `yaml:"delimiter"`
	Encoding      string `yaml:"encoding"`
	LazyQuotes    bool   `yaml:"lazy_quotes"`
	SheetName     string `yaml:"sheet_name"`
	MaxListLength int    `yaml:"max_list_length"`

	// DateFallback is "text" (keep the original field) or "default"
	// (write DefaultDate).
	DateFallback string `yaml:"date_fallback"`
	DefaultDate  string `yaml:"default_date"`

	Logging LoggingConfig `yaml:"logging"`
	Server  ServerConfig  `yaml:"server"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json, console
	File   string `yaml:"file"`   // TUI log destination
}

// ServerConfig configures the HTTP conversion endpoint.
type ServerConfig struct {
	Addr           string `yaml:"addr"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		HeaderRows:    converter.DefaultHeaderRows,
		Delimiter:     string(converter.DefaultDelimiter),
		Encoding:      converter.DefaultEncoding,
		SheetName:     "Sheet1",
		MaxListLength: converter.DefaultMaxListLength,
		DateFallback:  "text",
		DefaultDate:   converter.DefaultFallbackDate.Format(dateLayout),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Server: ServerConfig{
			Addr:           ":8080",
			MaxUploadBytes: 64 << 20,
		},
	}
}

// Load loads configuration from a YAML file and applies environment
// overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides reads KBNSHEET_* variables over the file values. Every
// key has one: the upper-cased yaml name, with LOG_ for logging keys and
// ADDR / MAX_UPLOAD_BYTES for the server.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("KBNSHEET_HEADER_ROWS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("KBNSHEET_HEADER_ROWS: %w", err)
		}
		c.HeaderRows = n
	}
	if v := os.Getenv("KBNSHEET_DELIMITER"); v != "" {
		c.Delimiter = v
	}
	if v := os.Getenv("KBNSHEET_ENCODING"); v != "" {
		c.Encoding = v
	}
	if v := os.Getenv("KBNSHEET_SHEET_NAME"); v != "" {
		c.SheetName = v
	}
	if v := os.Getenv("KBNSHEET_MAX_LIST_LENGTH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("KBNSHEET_MAX_LIST_LENGTH: %w", err)
		}
		c.MaxListLength = n
	}
	if v := os.Getenv("KBNSHEET_DATE_FALLBACK"); v != "" {
		c.DateFallback = v
	}
	if v := os.Getenv("KBNSHEET_DEFAULT_DATE"); v != "" {
		c.DefaultDate = v
	}
	if v := os.Getenv("KBNSHEET_LAZY_QUOTES"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("KBNSHEET_LAZY_QUOTES: %w", err)
		}
		c.LazyQuotes = b
	}
	if v := os.Getenv("KBNSHEET_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("KBNSHEET_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("KBNSHEET_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
	if v := os.Getenv("KBNSHEET_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("KBNSHEET_MAX_UPLOAD_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("KBNSHEET_MAX_UPLOAD_BYTES: %w", err)
		}
		c.Server.MaxUploadBytes = n
	}
	return nil
}

// Validate checks the values the converter cannot default itself.
func (c *Config) Validate() error {
	if c.HeaderRows < 0 {
		return fmt.Errorf("header_rows must not be negative, got %d", c.HeaderRows)
	}
	if _, err := c.delimiter(); err != nil {
		return err
	}
	if c.MaxListLength <= 0 || c.MaxListLength > 255 {
		return fmt.Errorf("max_list_length must be in [1, 255], got %d", c.MaxListLength)
	}
	if _, err := c.dateFallback(); err != nil {
		return err
	}
	if _, err := time.Parse(dateLayout, c.DefaultDate); err != nil {
		return fmt.Errorf("default_date: %w", err)
	}
	return nil
}

// ConverterOptions translates the configuration into converter options.
func (c *Config) ConverterOptions(logger *zap.Logger) (converter.Options, error) {
	if err := c.Validate(); err != nil {
		return converter.Options{}, err
	}

	delim, _ := c.delimiter()
	fallback, _ := c.dateFallback()
	defaultDate, _ := time.Parse(dateLayout, c.DefaultDate)

	return converter.Options{
		HeaderRows:    c.HeaderRows,
		Delimiter:     delim,
		Encoding:      c.Encoding,
		LazyQuotes:    c.LazyQuotes,
		SheetName:     c.SheetName,
		MaxListLength: c.MaxListLength,
		DateFallback:  fallback,
		DefaultDate:   defaultDate,
		Logger:        logger,
	}, nil
}

func (c *Config) delimiter() (rune, error) {
	d := c.Delimiter
	if d == `\t` || strings.EqualFold(d, "tab") {
		return '\t', nil
	}
	if utf8.RuneCountInString(d) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", d)
	}
	r, _ := utf8.DecodeRuneInString(d)
	return r, nil
}

func (c *Config) dateFallback() (converter.DateFallback, error) {
	switch strings.ToLower(c.DateFallback) {
	case "", "text":
		return converter.DateFallbackText, nil
	case "default":
		return converter.DateFallbackDefault, nil
	default:
		return 0, fmt.Errorf("date_fallback must be text or default, got %q", c.DateFallback)
	}
}
