package account

import "time"

// Config holds the account module settings, loaded from the
// environment via pkg/config.
type Config struct {
	// BaseURL prefixes links embedded in outbound emails.
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8080"`

	// SupportEmail receives error alert emails from the recovery
	// middleware.
	SupportEmail string `env:"SUPPORT_EMAIL,required"`

	AuthCookieName  string        `env:"AUTH_COOKIE_NAME" envDefault:"auth_key"`
	AuthExpiresDays int           `env:"AUTH_EXPIRES_DAYS" envDefault:"30"`
	ResetTokenTTL   time.Duration `env:"RESET_TOKEN_TTL" envDefault:"1h"`

	// RetentionDays is how long an auth record may go untouched before
	// the sweeper deletes it.
	RetentionDays int `env:"AUTH_RETENTION_DAYS" envDefault:"30"`

	IdentityCacheSize int `env:"IDENTITY_CACHE_SIZE" envDefault:"128"`

	LoginRateLimit  int           `env:"LOGIN_RATE_LIMIT" envDefault:"10"`
	LoginRateWindow time.Duration `env:"LOGIN_RATE_WINDOW" envDefault:"5m"`
}
