// Command matchauth-loadtest drives a running matchauth server: it logs in a few
// sessions, rotates their refresh tokens concurrently and then races parallel
// rotations of one token to check that exactly one of them wins.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
)

type tokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	RefreshNonce string `json:"refreshNonce"`
}

type chain struct {
	mu   sync.Mutex
	pair tokenPair
}

func main() {
	var (
		baseURL     = flag.String("url", "http://localhost:8080", "matchauth server base url")
		username    = flag.String("username", "demo", "principal to log in as")
		password    = flag.String("password", "demo-password-123", "password of the principal")
		sessions    = flag.Int("sessions", 4, "number of sessions (refresh chains) to open")
		concurrency = flag.Int("concurrency", 32, "number of concurrent workers")
		ops         = flag.Int("ops", 2000, "refresh rotations to perform")
		racers      = flag.Int("race", 8, "concurrent rotations of a single token in the race phase")
	)
	flag.Parse()

	if *sessions <= 0 || *concurrency <= 0 || *ops <= 0 || *racers <= 1 {
		fmt.Fprintln(os.Stderr, "sessions, concurrency and ops must be > 0, race must be > 1")
		os.Exit(2)
	}

	ctx := context.Background()
	client := resty.New().
		SetBaseURL(*baseURL).
		SetTimeout(10*time.Second).
		SetHeader("Content-Type", "application/json")

	chains := make([]*chain, 0, *sessions)
	fmt.Printf("opening %d sessions as %q...\n", *sessions, *username)
	for i := 0; i < *sessions; i++ {
		pair, err := login(ctx, client, *username, *password)
		if err != nil {
			fmt.Fprintf(os.Stderr, "login %d failed: %v\n", i, err)
			os.Exit(1)
		}
		chains = append(chains, &chain{pair: pair})
	}

	rotateStats := runRotatePhase(ctx, client, chains, *ops, *concurrency)
	winners, losers := runRacePhase(ctx, client, chains[0], *racers)

	fmt.Println("---- results ----")
	printStats("refresh", rotateStats)
	fmt.Printf("race: racers=%d winners=%d rejected=%d\n", *racers, winners, losers)
	if winners != 1 {
		fmt.Fprintln(os.Stderr, "expected exactly one winning rotation")
		os.Exit(1)
	}
}

func login(ctx context.Context, client *resty.Client, username, password string) (tokenPair, error) {
	var pair tokenPair
	resp, err := client.R().
		SetContext(ctx).
		SetHeader("X-Forwarded-For", randomIP()).
		SetBody(map[string]string{"username": username, "password": password}).
		SetResult(&pair).
		Post("/auth/login")
	if err != nil {
		return tokenPair{}, err
	}
	if resp.StatusCode() != http.StatusOK {
		return tokenPair{}, fmt.Errorf("status %d: %s", resp.StatusCode(), resp.String())
	}
	if pair.RefreshToken == "" {
		return tokenPair{}, errors.New("login requires mfa; use a principal without mfa")
	}
	return pair, nil
}

func rotate(ctx context.Context, client *resty.Client, current tokenPair) (tokenPair, int, error) {
	var next tokenPair
	resp, err := client.R().
		SetContext(ctx).
		SetHeader("X-Forwarded-For", randomIP()).
		SetBody(map[string]string{"refreshToken": current.RefreshToken, "refreshNonce": current.RefreshNonce}).
		SetResult(&next).
		Post("/auth/refresh")
	if err != nil {
		return tokenPair{}, 0, err
	}
	return next, resp.StatusCode(), nil
}

// runRotatePhase rotates random chains. A chain is locked for the duration of one
// rotation so each request presents its current token.
func runRotatePhase(ctx context.Context, client *resty.Client, chains []*chain, ops, concurrency int) phaseStats {
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
				c := chains[r.Intn(len(chains))]

				c.mu.Lock()
				t0 := time.Now()
				next, status, err := rotate(ctx, client, c.pair)
				d := time.Since(t0)
				if err == nil && status == http.StatusOK {
					c.pair = next
				} else {
					atomic.AddInt64(&failures, 1)
				}
				c.mu.Unlock()

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

// runRacePhase presents the same refresh token from racers goroutines at once.
func runRacePhase(ctx context.Context, client *resty.Client, c *chain, racers int) (winners, losers int64) {
	c.mu.Lock()
	current := c.pair
	c.mu.Unlock()

	var (
		wg    sync.WaitGroup
		ready = make(chan struct{})
	)
	for range racers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-ready
			_, status, err := rotate(ctx, client, current)
			if err == nil && status == http.StatusOK {
				atomic.AddInt64(&winners, 1)
				return
			}
			atomic.AddInt64(&losers, 1)
		}()
	}
	close(ready)
	wg.Wait()
	return winners, losers
}

// randomIP spreads load over the per-IP limiters. The server only honours it when
// started with -trust-proxy; otherwise every request counts against the loader's address.
func randomIP() string {
	return fmt.Sprintf("10.%d.%d.%d", rand.Intn(256), rand.Intn(256), 1+rand.Intn(254))
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
