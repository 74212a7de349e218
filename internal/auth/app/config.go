package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/meridianwealth/authgate/pkg/jwtx"
)

type Config struct {
	Issuer string // Issuer claim for session tokens

	DatabaseFile string // Path to SQLite database file (default: ./authgate.db)
	PepperFile   string // Path to file containing pepper for credential hashing (default: ./pepper)
	SigningKey   string // Optional: path to Ed25519 PKCS8 PEM; ephemeral key when unset

	SessionTTL time.Duration // Session token lifetime (default: 12h)

	// Orchestrator defaults. Sourced once here; never read from the
	// environment mid-request.
	SkipIPChecks bool // Bypass the verified-location check (dev/test only)
	AllowPIN     bool // Permit PIN as the primary factor where configured
	AuthDebug    bool // Log per-step auth decisions at debug level

	// Backdoor authority. Disabled by default; the email list bounds which
	// identities may ever be used through it.
	BackdoorEnabled bool
	BackdoorEmails  []string

	// Session guard.
	DisableSessionGuard bool   // Bypass the guard entirely (dev/test only)
	LandingRoute        string // Authenticated landing route (default: /dashboard)
	FallbackCountry     string // Country assumed when the edge resolved none (default: US)

	DeviceTracking bool // Derive device fingerprints for the audit trail
	CookieSecure   bool // Mark the session cookie Secure

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
	LoginEventRetention  time.Duration // Audit trail retention (default: 90 days)
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:       getEnvOrDefault("AUTH_ISSUER", "authgate"),
		DatabaseFile: getEnvOrDefault("AUTH_DATABASE_FILE", "authgate.db"),
		PepperFile:   getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),
		SigningKey:   os.Getenv("AUTH_SIGNING_KEY_FILE"),

		SessionTTL: getEnvDurationOrDefault("AUTH_SESSION_TTL", jwtx.DefaultSessionTTL),

		SkipIPChecks: getEnvBoolOrDefault("AUTH_SKIP_IP_CHECKS", false),
		AllowPIN:     getEnvBoolOrDefault("AUTH_ALLOW_PIN", false),
		AuthDebug:    getEnvBoolOrDefault("AUTH_DEBUG", false),

		BackdoorEnabled: getEnvBoolOrDefault("AUTH_BACKDOOR_ENABLED", false),
		BackdoorEmails:  splitList(os.Getenv("AUTH_BACKDOOR_EMAILS")),

		DisableSessionGuard: getEnvBoolOrDefault("AUTH_DISABLE_SESSION_GUARD", false),
		LandingRoute:        getEnvOrDefault("AUTH_LANDING_ROUTE", "/dashboard"),
		FallbackCountry:     strings.ToUpper(getEnvOrDefault("AUTH_FALLBACK_COUNTRY", "US")),

		DeviceTracking: getEnvBoolOrDefault("AUTH_DEVICE_TRACKING", true),
		CookieSecure:   getEnvBoolOrDefault("AUTH_COOKIE_SECURE", true),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
		LoginEventRetention:  getEnvDurationOrDefault("LOGIN_EVENT_RETENTION", 90*24*time.Hour),
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if boolValue, err := strconv.ParseBool(value); err == nil {
		return boolValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	return defaultValue
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
