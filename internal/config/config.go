package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultConnection names the identity provider's username/password database.
	DefaultConnection = "Username-Password-Authentication"
	// DefaultClaimNamespace prefixes application-defined claims on the ID token.
	DefaultClaimNamespace = "https://a24press.com/"
)

// Config aggregates runtime configuration for the pressgate BFF.
type Config struct {
	Environment    string
	HTTPPort       int
	LogLevel       string
	LogFormat      string
	AllowedOrigins []string
	FrontendURL    string

	DataStore        string
	DatabaseURL      string
	DatabaseMaxConns int

	AuthDomain          string
	AuthClientID        string
	AuthClientSecret    string
	AuthConnection      string
	AuthClaimNamespace  string
	AuthRedirectURL     string
	AuthCallbackURL     string
	AuthLogoutReturnURL string

	SessionTTL time.Duration
	PageTTL    time.Duration
}

// Load reads configuration from environment variables with sensible defaults for local development.
// Missing identity provider settings degrade to empty strings; calls to the provider fail later.
func Load() (Config, error) {
	databaseURL, err := getEnvOrFile("DATABASE_URL", "/run/secrets/pressgate_database_url")
	if err != nil {
		return Config{}, err
	}

	clientSecret, err := getEnvOrFile("AUTH_CLIENT_SECRET", "/run/secrets/pressgate_auth_client_secret")
	if err != nil {
		return Config{}, err
	}

	frontendURL := strings.TrimSuffix(getEnv("FRONTEND_URL", "http://localhost:5173"), "/")

	cfg := Config{
		Environment:    getEnv("APP_ENV", "development"),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:      strings.ToLower(getEnv("LOG_FORMAT", "text")),
		AllowedOrigins: parseCSV(getEnv("ALLOWED_ORIGINS", frontendURL)),
		FrontendURL:    frontendURL,
		DataStore:      strings.ToLower(getEnv("DATA_STORE", "memory")),
		DatabaseURL:    databaseURL,

		AuthDomain:          normalizeDomain(os.Getenv("AUTH_DOMAIN")),
		AuthClientID:        strings.TrimSpace(os.Getenv("AUTH_CLIENT_ID")),
		AuthClientSecret:    strings.TrimSpace(clientSecret),
		AuthConnection:      getEnv("AUTH_CONNECTION", DefaultConnection),
		AuthClaimNamespace:  getEnv("AUTH_CLAIM_NAMESPACE", DefaultClaimNamespace),
		AuthRedirectURL:     getEnv("AUTH_REDIRECT_URL", frontendURL+"/"),
		AuthLogoutReturnURL: getEnv("AUTH_LOGOUT_RETURN_URL", frontendURL+"/"),
	}

	portValue := getEnv("PORT", getEnv("HTTP_PORT", "8080"))
	port, err := strconv.Atoi(portValue)
	if err != nil {
		return Config{}, fmt.Errorf("invalid port %q: %w", portValue, err)
	}
	cfg.HTTPPort = port
	cfg.AuthCallbackURL = getEnv("AUTH_CALLBACK_URL", fmt.Sprintf("http://localhost:%d/api/auth/callback", port))

	if raw := os.Getenv("DATABASE_MAX_CONNS"); raw != "" {
		maxConns, err := strconv.Atoi(raw)
		if err != nil || maxConns < 1 {
			return Config{}, fmt.Errorf("invalid DATABASE_MAX_CONNS %q: must be a positive integer", raw)
		}
		cfg.DatabaseMaxConns = maxConns
	}

	if cfg.SessionTTL, err = parseDuration("SESSION_TTL", "12h"); err != nil {
		return Config{}, err
	}
	if cfg.PageTTL, err = parseDuration("PAGE_TTL", "30m"); err != nil {
		return Config{}, err
	}

	if cfg.DataStore == "postgres" && cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATA_STORE is postgres but DATABASE_URL is not set")
	}

	if !cfg.IsDevelopment() {
		if len(cfg.AllowedOrigins) == 0 {
			return Config{}, fmt.Errorf("ALLOWED_ORIGINS must define at least one origin")
		}
		for _, origin := range cfg.AllowedOrigins {
			if strings.Contains(origin, "*") {
				return Config{}, fmt.Errorf("ALLOWED_ORIGINS cannot contain wildcard entries outside development")
			}
		}
	}

	return cfg, nil
}

// HTTPAddress returns the address the HTTP server should bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// UseInMemoryStore returns true if delegated sessions should be kept in process memory.
func (c Config) UseInMemoryStore() bool {
	return c.DataStore == "memory"
}

// IsDevelopment reports whether the service runs with local development defaults.
func (c Config) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, "development")
}

// IdentityConfigured reports whether both identity provider settings were supplied.
func (c Config) IdentityConfigured() bool {
	return c.AuthDomain != "" && c.AuthClientID != ""
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// normalizeDomain accepts either "tenant.auth0.com" or "https://tenant.auth0.com/".
func normalizeDomain(value string) string {
	value = strings.TrimSpace(value)
	value = strings.TrimPrefix(value, "https://")
	value = strings.TrimPrefix(value, "http://")
	return strings.TrimSuffix(value, "/")
}

func parseDuration(key, fallback string) (time.Duration, error) {
	raw := getEnv(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", key, raw)
	}
	return d, nil
}

func parseCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnvOrFile(key, defaultPath string) (string, error) {
	if value := os.Getenv(key); value != "" {
		return value, nil
	}

	fileKey := key + "_FILE"
	if path := os.Getenv(fileKey); path != "" {
		return readSecret(path, fileKey)
	}

	if defaultPath != "" {
		return readSecret(defaultPath, key)
	}

	return "", nil
}

func readSecret(path, name string) (string, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("config: reading %s (%s): %w", name, path, err)
	}

	value := strings.TrimSpace(string(contents))
	if value == "" {
		return "", fmt.Errorf("config: %s (%s) is empty", name, path)
	}
	return value, nil
}
