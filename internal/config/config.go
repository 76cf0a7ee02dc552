// Package config loads server settings from the environment, after reading an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every server setting.
type Config struct {
	MongoURI      string
	MongoDatabase string

	JWTSecret    string
	JWTKeys      map[string]string // kid -> secret, from JWT_KEYS
	JWTActiveKID string
	TokenTTL     time.Duration

	GRPCPort string
	HTTPPort string

	RateLimitRPM     int // Register and Login
	SendRateLimitRPM int // SendMessage

	TLSCert    string
	TLSKey     string
	RequireTLS bool

	ValkeyAddr      string
	ProfileCacheTTL time.Duration

	CloudinaryURL string

	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubscriber string

	WatchChangeStreams bool
	CORSOrigins        []string
}

// Load reads .env (if present) and the environment. Malformed values fall
// back to their defaults; Validate reports missing required settings.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read .env: %w", err)
	}

	keys, err := parseKeys(os.Getenv("JWT_KEYS"))
	if err != nil {
		return nil, err
	}

	return &Config{
		MongoURI:      os.Getenv("MONGODB_URI"),
		MongoDatabase: getEnv("MONGODB_DATABASE", "campus_chat"),

		JWTSecret:    os.Getenv("JWT_SECRET"),
		JWTKeys:      keys,
		JWTActiveKID: os.Getenv("JWT_ACTIVE_KID"),
		TokenTTL:     getDuration("TOKEN_TTL", 24*time.Hour),

		GRPCPort: getEnv("PORT", "50051"),
		HTTPPort: getEnv("HTTP_PORT", "8080"),

		RateLimitRPM:     getInt("RATE_LIMIT_RPM", 10),
		SendRateLimitRPM: getInt("SEND_RATE_LIMIT_RPM", 120),

		TLSCert:    os.Getenv("TLS_CERT"),
		TLSKey:     os.Getenv("TLS_KEY"),
		RequireTLS: getBool("REQUIRE_TLS", false),

		ValkeyAddr:      os.Getenv("VALKEY_ADDR"),
		ProfileCacheTTL: getDuration("PROFILE_CACHE_TTL", 5*time.Minute),

		CloudinaryURL: os.Getenv("CLOUDINARY_URL"),

		VAPIDPublicKey:  os.Getenv("VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("VAPID_PRIVATE_KEY"),
		VAPIDSubscriber: getEnv("VAPID_SUBSCRIBER", "admin@example.com"),

		WatchChangeStreams: getBool("WATCH_CHANGE_STREAMS", false),
		CORSOrigins:        splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
	}, nil
}

// Validate returns an error naming the first missing or inconsistent setting.
func (c *Config) Validate() error {
	switch {
	case c.MongoURI == "":
		return errors.New("MONGODB_URI must be set")
	case c.JWTSecret == "" && len(c.JWTKeys) == 0:
		return errors.New("either JWT_SECRET or JWT_KEYS must be set")
	case len(c.JWTKeys) > 0 && c.JWTKeys[c.JWTActiveKID] == "":
		return fmt.Errorf("JWT_ACTIVE_KID %q is not one of JWT_KEYS", c.JWTActiveKID)
	case (c.TLSCert == "") != (c.TLSKey == ""):
		return errors.New("TLS_CERT and TLS_KEY must be set together")
	case c.RequireTLS && c.TLSCert == "":
		return errors.New("REQUIRE_TLS is true but TLS_CERT/TLS_KEY are not configured")
	case (c.VAPIDPublicKey == "") != (c.VAPIDPrivateKey == ""):
		return errors.New("VAPID_PUBLIC_KEY and VAPID_PRIVATE_KEY must be set together")
	}
	return nil
}

// PushEnabled reports whether web push is configured.
func (c *Config) PushEnabled() bool { return c.VAPIDPrivateKey != "" }

// parseKeys parses "kid:secret,kid2:secret2".
func parseKeys(v string) (map[string]string, error) {
	if v == "" {
		return nil, nil
	}
	keys := map[string]string{}
	for _, p := range strings.Split(v, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		kid, secret, ok := strings.Cut(p, ":")
		if !ok || kid == "" || secret == "" {
			return nil, fmt.Errorf("invalid JWT_KEYS entry: %q", p)
		}
		keys[kid] = secret
	}
	return keys, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("config: ignoring invalid %s=%q", key, v)
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("config: ignoring invalid %s=%q", key, v)
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("config: ignoring invalid %s=%q", key, v)
		return fallback
	}
	return d
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
