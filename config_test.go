package authgate

import (
	"testing"
	"time"
)

func validTestConfig() Config {
	cfg := DefaultConfig()
	cfg.Session.Secret = testSessionSecret
	return cfg
}

func TestDefaultConfigValidatesWithSecret(t *testing.T) {
	cfg := validTestConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config with secret must validate: %v", err)
	}

	if cfg.Session.TTL != time.Hour {
		t.Fatalf("session TTL: %v", cfg.Session.TTL)
	}
	if cfg.Verification.TokenTTL != 24*time.Hour || cfg.Verification.Cooldown != 3*time.Minute {
		t.Fatalf("verification defaults: %+v", cfg.Verification)
	}
	if cfg.PasswordReset.TokenTTL != 4*time.Hour || cfg.PasswordReset.Cooldown != 3*time.Minute {
		t.Fatalf("reset defaults: %+v", cfg.PasswordReset)
	}
	if cfg.Cookie.Name != "session" || !cfg.Cookie.Secure {
		t.Fatalf("cookie defaults: %+v", cfg.Cookie)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"short secret", func(c *Config) { c.Session.Secret = []byte("short") }},
		{"zero session ttl", func(c *Config) { c.Session.TTL = 0 }},
		{"huge leeway", func(c *Config) { c.Session.Leeway = 5 * time.Minute }},
		{"zero verification ttl", func(c *Config) { c.Verification.TokenTTL = 0 }},
		{"negative cooldown", func(c *Config) { c.PasswordReset.Cooldown = -time.Minute }},
		{"cooldown exceeds ttl", func(c *Config) {
			c.Verification.TokenTTL = time.Minute
			c.Verification.Cooldown = 2 * time.Minute
		}},
		{"empty cookie name", func(c *Config) { c.Cookie.Name = "" }},
		{"rate limit without budget", func(c *Config) {
			c.RateLimit.Enabled = true
			c.RateLimit.MaxRequests = 0
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validTestConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestCloneConfigDetachesSecret(t *testing.T) {
	cfg := validTestConfig()
	clone := cloneConfig(cfg)
	clone.Session.Secret[0] ^= 0xff

	if cfg.Session.Secret[0] == clone.Session.Secret[0] {
		t.Fatal("clone must not share the secret slice")
	}
}

func TestBuilderRequirements(t *testing.T) {
	if _, err := New().Build(); err == nil {
		t.Fatal("missing secret and provider must fail")
	}

	up := newMockUserProvider()
	if _, err := New().WithSessionSecret(testSessionSecret).Build(); err == nil {
		t.Fatal("missing provider must fail")
	}

	cfg := validTestConfig()
	cfg.RateLimit.Enabled = true
	if _, err := New().WithConfig(cfg).WithUserProvider(up).Build(); err == nil {
		t.Fatal("rate limiting without redis must fail")
	}

	engine, err := New().WithSessionSecret(testSessionSecret).WithUserProvider(up).Build()
	if err != nil {
		t.Fatalf("minimal build failed: %v", err)
	}
	engine.Close()
}

func TestBuilderIsSingleUse(t *testing.T) {
	b := New().WithSessionSecret(testSessionSecret).WithUserProvider(newMockUserProvider())

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("first build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	if _, err := b.Build(); err == nil {
		t.Fatal("second build must fail")
	}
}
