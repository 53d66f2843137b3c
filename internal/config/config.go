package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"  validate:"required"`
	Logging LoggingConfig `mapstructure:"logging" validate:"required"`
	Queue   QueueConfig   `mapstructure:"queue"   validate:"required"`
}

// ServerConfig contains the HTTP server settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"             validate:"required,gt=0,lt=65536"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// QueueConfig contains the task manager settings.
type QueueConfig struct {
	// Timezone is the IANA zone used for task timestamps.
	Timezone        string `mapstructure:"timezone"         validate:"required,timezone"`
	DuplicatePolicy string `mapstructure:"duplicate_policy" validate:"required,oneof=reject overwrite"`
}
