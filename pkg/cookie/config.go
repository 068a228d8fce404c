package cookie

import "strings"

// Config builds a Manager from the environment. Secrets are comma separated
// with the newest first, so rotation is an env change plus a restart.
type Config struct {
	Secrets string `env:"COOKIE_SECRETS,required"`
	Domain  string `env:"COOKIE_DOMAIN"`
	Secure  bool   `env:"COOKIE_SECURE" envDefault:"true"`
}

func NewFromConfig(cfg Config, opts ...Option) (*Manager, error) {
	var secrets []string
	for _, s := range strings.Split(cfg.Secrets, ",") {
		if s = strings.TrimSpace(s); s != "" {
			secrets = append(secrets, s)
		}
	}

	base := make([]Option, 0, 2+len(opts))
	if cfg.Domain != "" {
		base = append(base, WithDomain(cfg.Domain))
	}
	base = append(base, WithSecure(cfg.Secure))
	base = append(base, opts...)

	return New(secrets, base...)
}
