package config

import (
	"fmt"
	"time"
)

// ServerApp holds server-side application settings derived from the shared
// structured config.
type ServerApp struct {
	// PasswordHashKey is the secret pepper used when hashing passwords.
	PasswordHashKey string
	// TokenSignKey signs and verifies JWT tokens.
	TokenSignKey string
	// TokenIssuer is the "iss" claim of issued tokens.
	TokenIssuer string
	// TokenDuration is how long issued tokens stay valid.
	TokenDuration time.Duration
	// Version is the semantic version of the running server.
	Version string
}

// ServerConfig is the top-level server configuration assembled from
// [StructuredConfig].
type ServerConfig struct {
	// App contains token and security settings.
	App ServerApp
	// Server contains listen address and request timeout.
	Server Server
	// Storage contains the record database settings.
	Storage struct {
		DB DB
	}
}

// GetServerConfig builds and validates a server-specific config view from
// the merged structured configuration.
func GetServerConfig() (*ServerConfig, error) {
	cfg, err := GetStructuredConfig()
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}

	serverCfg := &ServerConfig{
		App: ServerApp{
			PasswordHashKey: cfg.App.PasswordHashKey,
			TokenSignKey:    cfg.App.TokenSignKey,
			TokenIssuer:     cfg.App.TokenIssuer,
			TokenDuration:   cfg.App.TokenDuration,
			Version:         cfg.App.Version,
		},
		Server: cfg.Server,
	}
	serverCfg.Storage.DB = cfg.Storage.DB

	if serverCfg.App.TokenDuration <= 0 {
		serverCfg.App.TokenDuration = 720 * time.Hour
	}
	if serverCfg.Server.RequestTimeout <= 0 {
		serverCfg.Server.RequestTimeout = 30 * time.Second
	}

	return serverCfg, serverCfg.validate()
}
