package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	backupcodes "github.com/Vexary/backupcodes"
)

type ownerState struct {
	ownerID string
	codes   []string
	mu      sync.Mutex
}

// popCode hands out one unconsumed plaintext code, or "" when exhausted.
func (s *ownerState) popCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.codes) == 0 {
		return ""
	}
	code := s.codes[len(s.codes)-1]
	s.codes = s.codes[:len(s.codes)-1]
	return code
}

func main() {
	var (
		owners      = flag.Int("owners", 5000, "number of owners to seed")
		codesPer    = flag.Int("codes", 10, "codes per owner")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 50000, "operations per phase (status + verify)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "bc", "code set key prefix")
	)
	flag.Parse()

	if *owners <= 0 || *codesPer <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "owners, codes, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := backupcodes.Config{
		Codes: backupcodes.CodesConfig{
			TotalCodes:            *codesPer,
			CodeLength:            8,
			RegenerationThreshold: 2,
			Alphabet:              backupcodes.CodeAlphabet,
		},
		// MinCost keeps the seed phase measuring store throughput rather
		// than bcrypt hashing.
		Crypto: backupcodes.CryptoConfig{HashCost: bcrypt.MinCost},
		Risk: backupcodes.RiskConfig{
			DayStartHour: 6,
			DayEndHour:   22,
		},
		Store: backupcodes.StoreConfig{RedisPrefix: *prefix},
	}

	manager, err := backupcodes.New().
		WithConfig(cfg).
		WithRedis(client).
		WithMetricsEnabled(true).
		WithLatencyHistograms(true).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "manager build failed: %v\n", err)
		os.Exit(1)
	}
	defer manager.Close()

	states := make([]ownerState, *owners)
	fmt.Printf("seeding %d owners with %d codes each...\n", *owners, *codesPer)
	startSeed := time.Now()
	for i := 0; i < *owners; i++ {
		ownerID := fmt.Sprintf("owner-%d", i)
		result, err := manager.Generate(ctx, ownerID, false)
		if err != nil {
			fmt.Fprintf(os.Stderr, "seed generate failed: %v\n", err)
			os.Exit(1)
		}
		states[i] = ownerState{ownerID: ownerID, codes: result.Codes}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	statusStats := runStatusPhase(ctx, manager, states, *ops, *concurrency)
	verifyStats := runVerifyPhase(ctx, manager, states, *ops, *concurrency)

	fmt.Println("---- results ----")
	printStats("status", statusStats)
	printStats("verify", verifyStats)

	snap := manager.MetricsSnapshot()
	fmt.Printf("counters: used=%d missed=%d generated=%d\n",
		snap.Counters[backupcodes.MetricCodeUsed],
		snap.Counters[backupcodes.MetricCodeVerificationFailed],
		snap.Counters[backupcodes.MetricCodesGenerated],
	)
}

func runStatusPhase(ctx context.Context, manager *backupcodes.Manager, states []ownerState, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				idx := r.Intn(len(states))
				t0 := time.Now()
				_, err := manager.Status(ctx, states[idx].ownerID)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

func runVerifyPhase(ctx context.Context, manager *backupcodes.Manager, states []ownerState, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	attempt := backupcodes.AttemptContext{
		At:     time.Now(),
		Origin: "loadtest",
		Device: "loadtest",
	}

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*6151))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				idx := r.Intn(len(states))
				state := &states[idx]

				// exhausted owners keep exercising the miss path
				code := state.popCode()
				expectValid := code != ""
				if code == "" {
					code = "ZZZZ-ZZZZ"
				}

				t0 := time.Now()
				result, err := manager.Verify(ctx, state.ownerID, code, attempt)
				d := time.Since(t0)
				if err != nil || result.Valid != expectValid {
					atomic.AddInt64(&failures, 1)
				}

				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
