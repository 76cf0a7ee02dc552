package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// chdirTemp runs the test in an empty directory so no stray .env is read.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("JWT_SECRET", "s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.GRPCPort != "50051" || cfg.HTTPPort != "8080" || cfg.MongoDatabase != "campus_chat" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.RateLimitRPM != 10 || cfg.SendRateLimitRPM != 120 || cfg.TokenTTL != 24*time.Hour || cfg.ProfileCacheTTL != 5*time.Minute {
		t.Fatalf("unexpected numeric defaults %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Fatalf("unexpected cors default %v", cfg.CORSOrigins)
	}
	if cfg.PushEnabled() {
		t.Fatalf("push should be disabled without VAPID keys")
	}
}

func TestLoad_ParsesOverrides(t *testing.T) {
	chdirTemp(t)
	t.Setenv("MONGODB_URI", "mongodb://db")
	t.Setenv("JWT_KEYS", "k1:one, k2:two")
	t.Setenv("JWT_ACTIVE_KID", "k2")
	t.Setenv("RATE_LIMIT_RPM", "30")
	t.Setenv("SEND_RATE_LIMIT_RPM", "nope")
	t.Setenv("PROFILE_CACHE_TTL", "30s")
	t.Setenv("WATCH_CHANGE_STREAMS", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.JWTKeys["k1"] != "one" || cfg.JWTKeys["k2"] != "two" {
		t.Fatalf("unexpected keys %v", cfg.JWTKeys)
	}
	if cfg.RateLimitRPM != 30 || cfg.SendRateLimitRPM != 120 {
		t.Fatalf("unexpected limits %d %d", cfg.RateLimitRPM, cfg.SendRateLimitRPM)
	}
	if cfg.ProfileCacheTTL != 30*time.Second || !cfg.WatchChangeStreams {
		t.Fatalf("unexpected values %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", cfg.CORSOrigins)
	}
}

func TestLoad_ReadsDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("MONGODB_URI=mongodb://from-dotenv\nJWT_SECRET=dot\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	// godotenv never overrides variables that are already set
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("MONGODB_URI", "") // restores the original value afterwards
	os.Unsetenv("MONGODB_URI")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MongoURI != "mongodb://from-dotenv" || cfg.JWTSecret != "from-env" {
		t.Fatalf("unexpected values %q %q", cfg.MongoURI, cfg.JWTSecret)
	}
}

func TestLoad_RejectsMalformedKeys(t *testing.T) {
	chdirTemp(t)
	t.Setenv("JWT_KEYS", "k1")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "JWT_KEYS") {
		t.Fatalf("expected JWT_KEYS error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{MongoURI: "mongodb://x", JWTSecret: "s"}
	}
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing mongo", func(c *Config) { c.MongoURI = "" }, "MONGODB_URI"},
		{"missing jwt", func(c *Config) { c.JWTSecret = "" }, "JWT_SECRET"},
		{"bad kid", func(c *Config) { c.JWTKeys = map[string]string{"a": "b"}; c.JWTActiveKID = "z" }, "JWT_ACTIVE_KID"},
		{"half tls", func(c *Config) { c.TLSCert = "cert.pem" }, "TLS_CERT"},
		{"require tls", func(c *Config) { c.RequireTLS = true }, "REQUIRE_TLS"},
		{"half vapid", func(c *Config) { c.VAPIDPublicKey = "pub" }, "VAPID"},
	}
	for _, c := range cases {
		cfg := base()
		c.mutate(cfg)
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), c.want) {
			t.Fatalf("%s: expected error mentioning %s, got %v", c.name, c.want, err)
		}
	}
}
