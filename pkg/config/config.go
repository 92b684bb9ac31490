package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the GoPro cloud downloader
type Config struct {
	// GoPro API settings
	API APIConfig `yaml:"api" json:"api"`

	// Download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Dedup store settings
	Store StoreConfig `yaml:"store" json:"store"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// APIConfig holds GoPro API settings
type APIConfig struct {
	BaseURL   string        `yaml:"base_url" json:"base_url"`
	PerPage   int           `yaml:"per_page" json:"per_page"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
	UserAgent string        `yaml:"user_agent" json:"user_agent"`
}

// DownloadConfig holds download-specific configuration
type DownloadConfig struct {
	ChunkSize int           `yaml:"chunk_size" json:"chunk_size"`
	MediaType string        `yaml:"media_type" json:"media_type"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	Directory     string `yaml:"directory" json:"directory"`
	ArchiveSuffix string `yaml:"archive_suffix" json:"archive_suffix"`
}

// StoreConfig holds dedup store configuration
type StoreConfig struct {
	Path string `yaml:"path" json:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:   "https://api.gopro.com",
			PerPage:   30,
			Timeout:   30 * time.Second,
			UserAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
		},
		Download: DownloadConfig{
			ChunkSize: 8192,
			MediaType: "all",
			Timeout:   10 * time.Minute,
		},
		Output: OutputConfig{
			Directory:     "downloads",
			ArchiveSuffix: "GoPro",
		},
		Store: StoreConfig{
			Path: "gopro_media_db.json",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if baseURL := os.Getenv("GOPRODL_BASE_URL"); baseURL != "" {
		c.API.BaseURL = baseURL
	}
	if userAgent := os.Getenv("GOPRODL_USER_AGENT"); userAgent != "" {
		c.API.UserAgent = userAgent
	}
	if perPage := os.Getenv("GOPRODL_PER_PAGE"); perPage != "" {
		var val int
		fmt.Sscanf(perPage, "%d", &val)
		if val > 0 {
			c.API.PerPage = val
		}
	}
	if chunkSize := os.Getenv("GOPRODL_CHUNK_SIZE"); chunkSize != "" {
		var val int
		fmt.Sscanf(chunkSize, "%d", &val)
		if val > 0 {
			c.Download.ChunkSize = val
		}
	}
	if mediaType := os.Getenv("GOPRODL_MEDIA_TYPE"); mediaType != "" {
		c.Download.MediaType = mediaType
	}
	if outputDir := os.Getenv("GOPRODL_OUTPUT_DIR"); outputDir != "" {
		c.Output.Directory = outputDir
	}
	if storePath := os.Getenv("GOPRODL_STORE_PATH"); storePath != "" {
		c.Store.Path = storePath
	}
	if logLevel := os.Getenv("GOPRODL_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	// Check in order of precedence
	locations := []string{
		".goprodl.yaml",
		".goprodl.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "goprodl", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "goprodl", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".goprodl.yaml"),
		filepath.Join(os.Getenv("HOME"), ".goprodl.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("API base URL is required"))
	}
	if c.API.PerPage <= 0 {
		errs = append(errs, errors.New("per-page must be positive"))
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, errors.New("API timeout must be positive"))
	}

	if c.Download.ChunkSize <= 0 {
		errs = append(errs, errors.New("chunk size must be positive"))
	}
	switch strings.ToLower(c.Download.MediaType) {
	case "all", "videos", "photos":
	default:
		errs = append(errs, errors.New("media type must be one of Videos, Photos or all"))
	}

	if c.Output.Directory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if c.Store.Path == "" {
		errs = append(errs, errors.New("store path is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if perPage, ok := flags["per-page"].(int); ok && perPage > 0 {
		c.API.PerPage = perPage
	}
	if chunkSize, ok := flags["chunk-size"].(int); ok && chunkSize > 0 {
		c.Download.ChunkSize = chunkSize
	}
	if mediaType, ok := flags["media-type"].(string); ok && mediaType != "" {
		c.Download.MediaType = mediaType
	}
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.Directory = outputDir
	}
	if storePath, ok := flags["store"].(string); ok && storePath != "" {
		c.Store.Path = storePath
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".goprodl.env"))

	// Start with defaults
	config := DefaultConfig()

	// Load from config file
	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Override with command line flags
	config.MergeCommandLineFlags(flags)

	// Validate final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
