package backupcodes

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

func newTestRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

// managerTestConfig keeps bcrypt at the minimum cost so test suites stay fast.
func managerTestConfig() Config {
	cfg := defaultConfig()
	cfg.Crypto.HashCost = bcrypt.MinCost
	cfg.Codes.TotalCodes = 5
	return cfg
}

func newTestManager(t *testing.T, mutate func(*Config)) (*Manager, func()) {
	t.Helper()

	cfg := managerTestConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	mr, rdb := newTestRedis(t)
	manager, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		Build()
	if err != nil {
		mr.Close()
		t.Fatalf("Build failed: %v", err)
	}

	return manager, func() {
		manager.Close()
		mr.Close()
	}
}
