package config

import "strings"

// Environment names
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// NormalizeEnvironment lower-cases an environment name; empty means development
func NormalizeEnvironment(env string) string {
	env = strings.ToLower(strings.TrimSpace(env))
	if env == "" {
		return EnvDevelopment
	}
	return env
}

// IsProductionLike reports whether env enforces production configuration
// (staging or production).
func IsProductionLike(env string) bool {
	switch NormalizeEnvironment(env) {
	case EnvStaging, EnvProduction:
		return true
	default:
		return false
	}
}

// IsProductionLike reports whether the server runs in staging or production
func (c ServerConfig) IsProductionLike() bool {
	return IsProductionLike(c.Environment)
}

// IsDevelopment reports whether the server runs in development
func (c ServerConfig) IsDevelopment() bool {
	return NormalizeEnvironment(c.Environment) == EnvDevelopment
}
