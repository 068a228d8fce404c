package session

// Config controls the session cookie.
type Config struct {
	CookieName string `env:"SESSION_COOKIE_NAME" envDefault:"session"`
	// ExpiresDays bounds both the browser cookie lifetime and the signed
	// payload's accepted age.
	ExpiresDays int `env:"SESSION_EXPIRES_DAYS" envDefault:"30"`
	// InsecureCookies drops the Secure flag for plain-HTTP development.
	InsecureCookies bool `env:"SESSION_INSECURE_COOKIES" envDefault:"false"`
}

func DefaultConfig() Config {
	return Config{
		CookieName:  "session",
		ExpiresDays: 30,
	}
}
