// Command magicauth-loadtest drives the Redis token store with concurrent
// lookups, supersessions and consume races, and reports latency
// percentiles. Every token is consumed by several workers at once; the run
// fails if any token is consumed more than once.
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

	"github.com/MrEthical07/magicAuth"
	"github.com/MrEthical07/magicAuth/internal/token"
	"github.com/MrEthical07/magicAuth/store/redisstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type tokenState struct {
	id    string
	hash  string
	email string
}

func main() {
	var (
		tokens      = flag.Int("tokens", 20000, "number of tokens to seed")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 100000, "operations per lookup and issue phase")
		racers      = flag.Int("racers", 4, "concurrent consumers per token")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "lt:", "token key prefix")
	)
	flag.Parse()

	if *tokens <= 0 || *concurrency <= 0 || *ops <= 0 || *racers <= 0 {
		fmt.Fprintln(os.Stderr, "tokens, concurrency, ops, and racers must be > 0")
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

	store := redisstore.New(client, redisstore.Config{Prefix: *prefix})
	codec := token.NewCodec(32, time.Now)

	states := make([]tokenState, *tokens)
	fmt.Printf("seeding %d tokens...\n", *tokens)
	startSeed := time.Now()
	for i := 0; i < *tokens; i++ {
		raw, err := codec.Generate()
		if err != nil {
			fmt.Fprintf(os.Stderr, "generate failed: %v\n", err)
			os.Exit(1)
		}
		email := fmt.Sprintf("user-%d@loadtest.local", i)
		rec, err := store.Create(ctx, magicAuth.NewVerificationToken{
			TokenHash: token.Hash(raw),
			Email:     email,
			ExpiresAt: time.Now().Add(15 * time.Minute),
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "create failed: %v\n", err)
			os.Exit(1)
		}
		states[i] = tokenState{id: rec.ID, hash: rec.TokenHash, email: email}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	lookupStats := runLookupPhase(ctx, store, states, *ops, *concurrency)
	consumeStats, doubles := runConsumePhase(ctx, store, states, *racers, *concurrency)
	issueStats := runIssuePhase(ctx, store, codec, *ops, *concurrency)

	fmt.Println("---- results ----")
	printStats("lookup", lookupStats)
	printStats("consume", consumeStats)
	printStats("issue", issueStats)

	if doubles > 0 {
		fmt.Fprintf(os.Stderr, "FAIL: %d tokens consumed more than once\n", doubles)
		os.Exit(1)
	}
}

func runLookupPhase(ctx context.Context, store *redisstore.Tokens, states []tokenState, ops, concurrency int) phaseStats {
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
				_, err := store.FindByHash(ctx, states[idx].hash)
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

// runConsumePhase has racers workers consume each token. It returns the
// number of tokens that more than one worker won.
func runConsumePhase(ctx context.Context, store *redisstore.Tokens, states []tokenState, racers, concurrency int) (phaseStats, int64) {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		doubles   int64
		wins      = make([]int32, len(states))
		ops       = len(states) * racers
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				idx := i / racers
				t0 := time.Now()
				ok, err := store.MarkUsedIfUnused(ctx, states[idx].id)
				d := time.Since(t0)
				switch {
				case err != nil:
					atomic.AddInt64(&failures, 1)
				case ok:
					if atomic.AddInt32(&wins[idx], 1) > 1 {
						atomic.AddInt64(&doubles, 1)
					}
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures), doubles
}

// runIssuePhase mirrors issuance: supersede then create, over a small set
// of addresses so supersession has work to do.
func runIssuePhase(ctx context.Context, store *redisstore.Tokens, codec *token.Codec, ops, concurrency int) phaseStats {
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
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*6151))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				email := fmt.Sprintf("issuer-%d@loadtest.local", r.Intn(1000))
				raw, err := codec.Generate()
				if err != nil {
					atomic.AddInt64(&failures, 1)
					continue
				}
				t0 := time.Now()
				_, err = store.ReplaceUnused(ctx, magicAuth.NewVerificationToken{
					TokenHash: token.Hash(raw),
					Email:     email,
					ExpiresAt: time.Now().Add(15 * time.Minute),
				})
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
