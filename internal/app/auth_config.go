package app

import (
	"strings"

	"github.com/qualitrack/qualitrack/internal/auth"
)

// JWTServiceConfig converts AuthConfig into the parameters expected by the JWT service.
func (c AuthConfig) JWTServiceConfig() auth.JWTConfig {
	ttl := c.JWT.TTL
	if ttl <= 0 {
		ttl = auth.DefaultAccessTokenTTL
	}

	return auth.JWTConfig{
		Secret:         c.JWT.Secret,
		Issuer:         strings.TrimSpace(c.JWT.Issuer),
		AccessTokenTTL: ttl,
	}
}

// BootstrapAdminEnabled reports whether an administrator should be seeded on start-up.
func (c AuthConfig) BootstrapAdminEnabled() bool {
	return strings.TrimSpace(c.BootstrapAdmin.Username) != ""
}
