package backupcodes

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/Vexary/backupcodes/codeset"
)

// Builder defines a public type used by backupcodes APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	store   codeset.Store
	history codeset.HistoryStore
	scorer  RiskScorer

	auditSink AuditSink

	built bool
}

// New describes the new operation and its observable behavior.
//
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis describes the withredis operation and its observable behavior.
//
// WithRedis does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithEncryptionKey describes the withencryptionkey operation and its observable behavior.
//
// WithEncryptionKey does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithEncryptionKey(key []byte) *Builder {
	b.config.Crypto.EncryptionKey = cloneBytes(key)
	return b
}

// WithStore overrides the bundled Redis store with a caller-supplied
// [codeset.Store]. When set, a Redis client is no longer required unless
// history persistence is enabled without WithHistoryStore.
func (b *Builder) WithStore(store codeset.Store) *Builder {
	b.store = store
	return b
}

// WithHistoryStore overrides the bundled Redis history store.
func (b *Builder) WithHistoryStore(history codeset.HistoryStore) *Builder {
	b.history = history
	return b
}

// WithRiskScorer describes the withriskscorer operation and its observable behavior.
//
// WithRiskScorer does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRiskScorer(scorer RiskScorer) *Builder {
	b.scorer = scorer
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = true
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
//
// WithLatencyHistograms does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Manager, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store := b.store
	history := b.history
	if store == nil || history == nil {
		if b.redis == nil {
			if store == nil {
				return nil, errors.New("redis client required unless a store is injected")
			}
			// custom store without redis: history stays disabled
		} else {
			if store == nil {
				store = codeset.NewRedisStore(b.redis, cfg.Store.RedisPrefix)
			}
			if history == nil {
				history = codeset.NewRedisHistoryStore(
					b.redis,
					cfg.Store.RedisPrefix,
					cfg.Store.HistoryLimit,
					cfg.Store.HistoryExpiry,
				)
			}
		}
	}

	encoder, err := NewEncoder(cfg.Crypto)
	if err != nil {
		return nil, err
	}

	scorer := b.scorer
	if scorer == nil {
		scorer = NewHeuristicScorer(cfg.Risk)
	}

	manager := &Manager{
		config:  cloneConfig(cfg),
		store:   store,
		history: history,
		encoder: encoder,
		scorer:  scorer,
		audit:   newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics: NewMetrics(cfg.Metrics),
	}

	b.built = true

	return manager, nil
}
