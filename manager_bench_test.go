package backupcodes

import (
	"context"
	"fmt"
	"testing"
)

func BenchmarkGenerate(b *testing.B) {
	manager, done := newBenchmarkManager(b)
	defer done()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := manager.Generate(context.Background(), "u1", true); err != nil {
			b.Fatalf("generate failed: %v", err)
		}
	}
}

func BenchmarkVerifyMiss(b *testing.B) {
	manager, done := newBenchmarkManager(b)
	defer done()

	if _, err := manager.Generate(context.Background(), "u1", false); err != nil {
		b.Fatalf("generate failed: %v", err)
	}
	attempt := daytimeAttempt()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		res, err := manager.Verify(context.Background(), "u1", "ZZZZ-ZZZZ", attempt)
		if err != nil {
			b.Fatalf("verify failed: %v", err)
		}
		if res.Valid {
			b.Fatal("expected miss")
		}
	}
}

func BenchmarkVerifyHit(b *testing.B) {
	manager, done := newBenchmarkManager(b)
	defer done()

	attempt := daytimeAttempt()
	var codes []string

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if len(codes) == 0 {
			b.StopTimer()
			result, err := manager.Generate(context.Background(), "u1", true)
			if err != nil {
				b.Fatalf("generate failed: %v", err)
			}
			codes = result.Codes
			b.StartTimer()
		}
		code := codes[len(codes)-1]
		codes = codes[:len(codes)-1]

		res, err := manager.Verify(context.Background(), "u1", code, attempt)
		if err != nil {
			b.Fatalf("verify failed: %v", err)
		}
		if !res.Valid {
			b.Fatal("expected hit")
		}
	}
}

func BenchmarkStatus(b *testing.B) {
	manager, done := newBenchmarkManager(b)
	defer done()

	for i := 0; i < 100; i++ {
		if _, err := manager.Generate(context.Background(), fmt.Sprintf("owner-%d", i), false); err != nil {
			b.Fatalf("generate failed: %v", err)
		}
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := manager.Status(context.Background(), fmt.Sprintf("owner-%d", i%100)); err != nil {
			b.Fatalf("status failed: %v", err)
		}
	}
}

func newBenchmarkManager(tb testing.TB) (*Manager, func()) {
	tb.Helper()

	mr, rdb := newTestRedis(tb)
	cfg := managerTestConfig()
	cfg.Codes.TotalCodes = 10
	cfg.Store.HistoryLimit = 0

	manager, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		Build()
	if err != nil {
		mr.Close()
		tb.Fatalf("Build failed: %v", err)
	}

	return manager, func() {
		manager.Close()
		_ = rdb.Close()
		mr.Close()
	}
}
