package config

import (
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - database.go: Database and cache configuration
//   - upstream.go: Upstream catalog client configuration
//   - services.go: Service mode and worker configuration
//   - observability.go: Metrics and notification configuration
type AppConfig struct {
	// IsDev controls development mode behavior (seed data, relaxed upstream checks, etc.)
	// Set DEV=true or APP_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// Database configuration
	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`
	Cache    CacheConfig

	// Upstream catalog client configuration
	Upstream UpstreamConfig

	// Service mode configuration
	Services string `env:"SERVICES" envDefault:"sync-worker"`

	// Sync worker pool configuration
	SyncWorker SyncWorkerConfig

	// Sync pipeline configuration
	Sync SyncConfig

	// Scheduler configuration
	Scheduler SchedulerConfig

	// Validator configuration
	Validator ValidatorConfig

	// Auto-fix configuration
	AutoFix AutoFixConfig

	// Reaper configuration
	Reaper ReaperConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	// Sanitize upstream client configuration
	c.Upstream.Sanitize()

	// Sanitize sync worker, pipeline, scheduler, validator, auto-fix, and reaper configs
	c.SyncWorker.Sanitize()
	c.Sync.Sanitize()
	c.Scheduler.Sanitize()
	c.Validator.Sanitize()
	c.AutoFix.Sanitize()
	c.Reaper.Sanitize()
	c.Observability.Sanitize()

	// Check APP_ENV for dev mode
	c.detectDevMode()
}

// detectDevMode checks both DEV and APP_ENV environment variables.
// This is called by Sanitize() to ensure IsDev is set correctly.
// APP_ENV is checked as a fallback (common in deploy manifests).
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		appEnv := strings.ToLower(os.Getenv("APP_ENV"))
		c.IsDev = appEnv == "development" || appEnv == "dev"
	}
}

// GetEnabledServices returns the enabled services based on the Services field.
func (c *AppConfig) GetEnabledServices() (map[ServiceMode]bool, error) {
	return ParseServices(c.Services)
}

// IsSyncWorkerEnabled returns true if the sync worker service is enabled.
func (c *AppConfig) IsSyncWorkerEnabled() bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[ServiceModeSyncWorker]
}

// IsSchedulerEnabled returns true if the scheduler service is enabled.
func (c *AppConfig) IsSchedulerEnabled() bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[ServiceModeScheduler]
}

// IsReaperEnabled returns true if the reaper service is enabled.
func (c *AppConfig) IsReaperEnabled() bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[ServiceModeReaper]
}

// IsValidatorEnabled returns true if the validator service is enabled.
func (c *AppConfig) IsValidatorEnabled() bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[ServiceModeValidator]
}
