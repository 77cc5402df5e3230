package authgate

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/nmscott14/authgate/internal/rate"
	"github.com/nmscott14/authgate/password"
	"github.com/nmscott14/authgate/session"
)

// Builder assembles an [Engine]. Construction is allocation-only; no I/O
// happens until the first Engine method call.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	userProvider UserProvider
	mailer       Mailer
	auditSink    AuditSink

	built bool
}

// New starts a builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithSessionSecret sets the process-wide signing secret without replacing
// the rest of the configuration.
func (b *Builder) WithSessionSecret(secret []byte) *Builder {
	b.config.Session.Secret = append([]byte(nil), secret...)
	return b
}

// WithRedis supplies the Redis client backing the optional per-IP request
// limiter. Leaving it unset disables that limiter; the per-user cooldown is
// unaffected.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserProvider describes the withuserprovider operation and its observable behavior.
func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

// WithMailer describes the withmailer operation and its observable behavior.
func (b *Builder) WithMailer(m Mailer) *Builder {
	b.mailer = m
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and returns a ready [Engine].
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.userProvider == nil {
		return nil, errors.New("user provider required")
	}
	if cfg.RateLimit.Enabled && b.redis == nil {
		return nil, errors.New("request rate limiting requires redis client")
	}

	codec, err := session.NewCodec(session.Config{
		Secret: cfg.Session.Secret,
		Issuer: cfg.Session.Issuer,
		Leeway: cfg.Session.Leeway,
		Now:    cfg.Now,
	})
	if err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	mailer := b.mailer
	if mailer == nil {
		mailer = NoOpMailer{}
	}

	var requestLimiter *rate.Limiter
	if cfg.RateLimit.Enabled {
		requestLimiter = rate.New(b.redis, rate.Config{
			MaxRequests: cfg.RateLimit.MaxRequests,
			Window:      cfg.RateLimit.Window,
		})
	}

	engine := &Engine{
		config:         cfg,
		codec:          codec,
		passwordHash:   hasher,
		userProvider:   b.userProvider,
		mailer:         mailer,
		requestLimiter: requestLimiter,
		audit:          newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:        NewMetrics(cfg.Metrics),
	}

	b.built = true
	return engine, nil
}
