package config

import (
	"time"

	"github.com/joho/godotenv"
)

type Config interface {
	EnvConfig
	StorageConfig
	SessionConfig
	SecurityConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetLogFormat() string
	GetMaxBodyBytes() int64
}

type StorageConfig interface {
	GetSessionBackend() string
	GetSessionDir() string
	GetRedisAddress() string
	GetRedisPrefix() string
	GetCredentialBackend() string
	GetUsersFile() string
	GetUsersDB() string
}

type SessionConfig interface {
	GetSessionTTL() time.Duration
	GetCookieName() string
	GetCookieMaxAge() int
	GetCookieSecure() bool
	GetLegacyCookies() []string
	GetSweepSchedule() string
}

type SecurityConfig interface {
	GetMinPasswordLength() int
}

type mainConfig struct {
	EnvVars
	Storage
	Session
	Security
}

// New returns the environment backed configuration. Values in .env and .env.local
// are loaded first; variables already set in the process environment win.
func New() Config {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")
	return mainConfig{}
}
