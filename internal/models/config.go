package models

import "time"

// Config represents the application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Auth     AuthConfig
	Worker   WorkerConfig
	Billing  BillingConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
	CreateDemoUsers bool
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// AuthConfig holds session token settings
type AuthConfig struct {
	SigningKey  string
	TokenExpiry time.Duration
}

// WorkerConfig holds settlement effect worker settings
type WorkerConfig struct {
	PollingInterval time.Duration
	CleanupInterval time.Duration
	RetentionWindow time.Duration
	MaxAttempts     int
	BatchSize       int
}

// BillingConfig holds billing settings
type BillingConfig struct {
	PlansFile string
}
