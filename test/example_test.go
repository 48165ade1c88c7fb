package test

import (
	"context"
	"time"

	backupcodes "github.com/Vexary/backupcodes"
	"github.com/redis/go-redis/v9"
)

// ExampleNew demonstrates manager construction with production-style dependencies.
func ExampleNew() {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})

	manager, _ := backupcodes.New().
		WithRedis(rdb).
		WithEncryptionKey(make([]byte, 32)).
		WithMetricsEnabled(true).
		Build()
	_ = manager
}

// ExampleManager_Generate shows issuing a fresh backup code set for an owner.
func ExampleManager_Generate() {
	var manager *backupcodes.Manager
	result, err := manager.Generate(context.Background(), "user-123", false)
	if err != nil {
		_ = err
	}
	_ = result
}

// ExampleManager_Verify shows a typical verification call with attempt context
// and structured error handling.
func ExampleManager_Verify() {
	var manager *backupcodes.Manager
	result, err := manager.Verify(context.Background(), "user-123", "ABCD-EFGH", backupcodes.AttemptContext{
		At:     time.Now(),
		Origin: "203.0.113.9",
		Device: "cli",
	})
	if err != nil {
		_ = err
	}
	_ = result
}

// ExampleManager_MetricsSnapshot shows how to read in-process metrics counters.
func ExampleManager_MetricsSnapshot() {
	var manager *backupcodes.Manager
	snapshot := manager.MetricsSnapshot()
	_ = snapshot
}
