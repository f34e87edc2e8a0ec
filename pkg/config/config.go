package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration values
type Config struct {
	Port    string `env:"PORT" envDefault:"8080"`
	GinMode string `env:"GIN_MODE" envDefault:"release"`

	// Form backend receiving both wizard submissions
	FormBackendURL    string        `env:"FORM_BACKEND_URL" envDefault:"http://localhost:8888/"`
	SubmitTimeout     time.Duration `env:"SUBMIT_TIMEOUT" envDefault:"15s"`
	SubmitMaxAttempts uint          `env:"SUBMIT_MAX_ATTEMPTS" envDefault:"3"`

	// Wizard behaviour
	TransitionDelay      time.Duration `env:"TRANSITION_DELAY" envDefault:"2s"`
	MaxUploadSize        int64         `env:"MAX_UPLOAD_SIZE" envDefault:"10485760"`
	MaxFilesPerCategory  int           `env:"MAX_FILES_PER_CATEGORY" envDefault:"10"`
	UploadMemoryLimit    int64         `env:"UPLOAD_MEMORY_LIMIT" envDefault:"268435456"`
	RequireSignagePhotos bool          `env:"REQUIRE_SIGNAGE_PHOTOS" envDefault:"false"`

	// Sessions and lead tokens
	SessionCookieName string        `env:"SESSION_COOKIE_NAME" envDefault:"verify_session"`
	SessionTTL        time.Duration `env:"SESSION_TTL" envDefault:"2h"`
	SecureCookies     bool          `env:"SECURE_COOKIES" envDefault:"true"`
	LeadTokenSecret   string        `env:"LEAD_TOKEN_SECRET"`
	LeadTokenTTL      time.Duration `env:"LEAD_TOKEN_TTL" envDefault:"24h"`

	// Edge. With no trusted proxies the client IP is the socket peer.
	AllowedOrigin    string   `env:"ALLOWED_ORIGIN" envDefault:"*"`
	TrustedProxies   []string `env:"TRUSTED_PROXIES" envSeparator:","`
	SubmitRatePerSec float64  `env:"SUBMIT_RATE_PER_SEC" envDefault:"1"`
	SubmitRateBurst  int      `env:"SUBMIT_RATE_BURST" envDefault:"10"`

	// Analytics and page copy
	GtagID           string `env:"GTAG_ID" envDefault:"AW-17503097114"`
	ConversionSendTo string `env:"CONVERSION_SEND_TO" envDefault:"AW-17503097114/S1P6CPCSx40bEJqikJpB"`
	SupportPhone     string `env:"SUPPORT_PHONE" envDefault:"(888) 401-4221"`
}

// LoadConfig reads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values the env tags cannot express.
func (c *Config) Validate() error {
	var errs []error
	if c.FormBackendURL == "" {
		errs = append(errs, errors.New("FORM_BACKEND_URL must not be empty"))
	}
	if len(c.LeadTokenSecret) < 32 {
		errs = append(errs, errors.New("LEAD_TOKEN_SECRET must be at least 32 bytes"))
	}
	if c.MaxUploadSize <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_SIZE must be positive"))
	}
	if c.MaxFilesPerCategory <= 0 {
		errs = append(errs, errors.New("MAX_FILES_PER_CATEGORY must be positive"))
	}
	if c.UploadMemoryLimit < c.MaxUploadSize {
		errs = append(errs, errors.New("UPLOAD_MEMORY_LIMIT must be at least MAX_UPLOAD_SIZE"))
	}
	if c.SubmitTimeout <= 0 {
		errs = append(errs, errors.New("SUBMIT_TIMEOUT must be positive"))
	}
	if c.SubmitMaxAttempts == 0 {
		errs = append(errs, errors.New("SUBMIT_MAX_ATTEMPTS must be at least 1"))
	}
	if c.TransitionDelay < 0 {
		errs = append(errs, errors.New("TRANSITION_DELAY must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
