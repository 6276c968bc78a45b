package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	portEnvVar    = "PORT"
	appNameVar    = "APP_NAME"
	logLevelVar   = "LOG_LEVEL"
	logFormatVar  = "LOG_FORMAT"
	maxBodyVar    = "MAX_BODY_BYTES"
	sessionDirVar = "SESSION_DIR"
	usersFileVar  = "USERS_FILE"
)

const defaultMaxBodyBytes = 1 << 20

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Session Auth")
}

func (EnvVars) GetEnv() string {
	return GetEnv("ENV", "DEV")
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, "info")
}

func (EnvVars) GetLogFormat() string {
	return GetEnv(logFormatVar, "json")
}

func (EnvVars) GetMaxBodyBytes() int64 {
	return int64(GetEnvInt(maxBodyVar, defaultMaxBodyBytes))
}

type Storage struct{}

var _ StorageConfig = Storage{}

// GetSessionBackend is either "file" or "redis".
func (Storage) GetSessionBackend() string {
	return strings.ToLower(GetEnv("SESSION_BACKEND", "file"))
}

func (Storage) GetSessionDir() string {
	return GetEnv(sessionDirVar, "./sessions")
}

func (Storage) GetRedisAddress() string {
	return GetEnv("REDIS_ADDRESS", "localhost:6379")
}

func (Storage) GetRedisPrefix() string {
	return GetEnv("REDIS_PREFIX", "sessionauth:")
}

// GetCredentialBackend is either "file" or "bolt".
func (Storage) GetCredentialBackend() string {
	return strings.ToLower(GetEnv("CREDENTIAL_BACKEND", "file"))
}

func (Storage) GetUsersFile() string {
	return GetEnv(usersFileVar, "./users.json")
}

func (Storage) GetUsersDB() string {
	return GetEnv("USERS_DB", "./users.db")
}

type Session struct{}

var _ SessionConfig = Session{}

func (Session) GetSessionTTL() time.Duration {
	return GetEnvDuration("SESSION_TTL", 30*time.Minute)
}

func (Session) GetCookieName() string {
	return GetEnv("COOKIE_NAME", "SESSIONID")
}

// GetCookieMaxAge is in seconds.
func (Session) GetCookieMaxAge() int {
	return GetEnvInt("COOKIE_MAX_AGE", 3600)
}

func (Session) GetCookieSecure() bool {
	return GetEnvBool("COOKIE_SECURE", false)
}

// GetLegacyCookies lists cookie names that are cleared when a client still sends them.
func (Session) GetLegacyCookies() []string {
	raw := GetEnv("LEGACY_COOKIES", "")
	if raw == "" {
		return nil
	}
	var names []string
	for _, name := range strings.Split(raw, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func (Session) GetSweepSchedule() string {
	return GetEnv("SWEEP_SCHEDULE", "@every 10m")
}

type Security struct{}

var _ SecurityConfig = Security{}

func (Security) GetMinPasswordLength() int {
	return GetEnvInt("MIN_PASSWORD_LENGTH", 4)
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetEnvInt(envVar string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(envVar))
	if err != nil {
		return defaultValue
	}
	return value
}

func GetEnvBool(envVar string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(envVar))
	if err != nil {
		return defaultValue
	}
	return value
}

// GetEnvDuration accepts Go durations ("30m") or a plain number of seconds.
func GetEnvDuration(envVar string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(envVar)
	if raw == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
