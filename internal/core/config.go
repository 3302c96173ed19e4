package core

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jo-hoe/fingerprint-enhancer/internal/backend/cache"
	"github.com/jo-hoe/fingerprint-enhancer/internal/backend/commandstructure"
	"github.com/jo-hoe/fingerprint-enhancer/internal/backend/database"
	"github.com/jo-hoe/fingerprint-enhancer/internal/backend/enhancement"
	"gopkg.in/yaml.v3"
)

const (
	defaultPort           = 8080
	defaultLogLevel       = "info"
	defaultThumbnailWidth = 100
)

// CommandConfig represents a generic command configuration
type CommandConfig struct {
	Name   string         `yaml:"name"`
	Params map[string]any `yaml:",inline"`
}

type Database struct {
	Type             string `yaml:"type"`
	ConnectionString string `yaml:"connectionString"`
}

type Cache struct {
	Type     string        `yaml:"type"`
	Address  string        `yaml:"address"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type ServiceConfig struct {
	Port           int             `yaml:"port"`
	LogLevel       string          `yaml:"logLevel"`
	ThumbnailWidth int             `yaml:"thumbnailWidth"`
	Database       Database        `yaml:"database"`
	Cache          Cache           `yaml:"cache"`
	Commands       []CommandConfig `yaml:"commands"`
}

// DefaultConfig returns an in-memory configuration running the default enhancement pipeline
func DefaultConfig() *ServiceConfig {
	config := &ServiceConfig{}
	config.applyDefaults()
	return config
}

// LoadConfig loads configuration from the specified YAML file
func LoadConfig(configPath string) (*ServiceConfig, error) {
	// Read the config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	// Parse YAML
	var config ServiceConfig
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}
	config.applyDefaults()

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", configPath, err)
	}

	return &config, nil
}

// SlogLevel converts LogLevel to a slog.Level, falling back to info
func (c *ServiceConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// PipelineCommands converts the configured commands for the command registry.
// An empty list selects the default enhancement pipeline.
func (c *ServiceConfig) PipelineCommands() []commandstructure.CommandConfig {
	configs := make([]commandstructure.CommandConfig, 0, len(c.Commands))
	for _, command := range c.Commands {
		configs = append(configs, commandstructure.CommandConfig{Name: command.Name, Params: command.Params})
	}
	return configs
}

func (c *ServiceConfig) applyDefaults() {
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.ThumbnailWidth == 0 {
		c.ThumbnailWidth = defaultThumbnailWidth
	}
	if c.Database.Type == "" {
		c.Database.Type = database.SQLiteType
	}
	if c.Database.ConnectionString == "" {
		c.Database.ConnectionString = ":memory:"
	}
	if c.Cache.Type == "" {
		c.Cache.Type = cache.NoopType
	}
}

func (c *ServiceConfig) validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d is out of range", c.Port)
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("invalid logLevel %q: %w", c.LogLevel, err)
	}
	if c.ThumbnailWidth < 0 {
		return fmt.Errorf("thumbnailWidth must be positive, got %d", c.ThumbnailWidth)
	}
	if c.Database.Type != database.SQLiteType {
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}
	switch c.Cache.Type {
	case cache.NoopType, cache.RedisType:
	default:
		return fmt.Errorf("unsupported cache type: %s", c.Cache.Type)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache ttl must not be negative, got %s", c.Cache.TTL)
	}

	// Validate commands
	if err := validateCommands(c.Commands); err != nil {
		return fmt.Errorf("invalid command configuration: %w", err)
	}
	if err := enhancement.CheckCommandConfigs(c.PipelineCommands()); err != nil {
		return fmt.Errorf("invalid command configuration: %w", err)
	}
	return nil
}

// validateCommands ensures all command configurations have required fields
func validateCommands(commands []CommandConfig) error {
	seenNames := make(map[string]bool)

	for i, cmd := range commands {
		// Validate name is not empty
		if cmd.Name == "" {
			return fmt.Errorf("command at index %d has empty name", i)
		}

		// Validate name is unique
		if seenNames[cmd.Name] {
			return fmt.Errorf("duplicate command name: %s", cmd.Name)
		}
		seenNames[cmd.Name] = true

		if !commandstructure.DefaultRegistry.IsRegistered(cmd.Name) {
			return fmt.Errorf("unknown command at index %d: %s (registered: %s)", i, cmd.Name,
				strings.Join(commandstructure.DefaultRegistry.GetRegisteredNames(), ", "))
		}
	}

	return nil
}
