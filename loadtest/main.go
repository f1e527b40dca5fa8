package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"classroom/client"
	"classroom/pkg/constraints"
	"classroom/pkg/logger"
)

// Configuration
var (
	baseURL  = flag.String("url", "http://localhost:8000", "API base URL")
	username = flag.String("user", "aluno1", "Login username")
	password = flag.String("password", "Senha@123", "Login password")
	totalVUs = flag.Int("c", 200, "Concurrent requests per round")
	rounds   = flag.Int("rounds", 5, "Rounds; each round starts with a stale access token")
	waitTTL  = flag.Duration("wait", 0, "Wait this long for the access token to expire instead of corrupting it")
)

// Metrics
var (
	refreshOnWire int64
	okCount       int64
	errCount      int64
	latencySum    int64 // milliseconds
)

// countingObserver tallies session-layer events reported by the SDK.
type countingObserver struct {
	started, coalesced, retried, expired atomic.Int64
}

func (o *countingObserver) RefreshStarted()      { o.started.Add(1) }
func (o *countingObserver) RefreshCoalesced()    { o.coalesced.Add(1) }
func (o *countingObserver) RefreshFinished(bool) {}
func (o *countingObserver) RequestRetried()      { o.retried.Add(1) }
func (o *countingObserver) SessionExpired()      { o.expired.Add(1) }

// wireCounter counts refresh calls as they leave the process.
type wireCounter struct {
	base http.RoundTripper
}

func (w wireCounter) RoundTrip(req *http.Request) (*http.Response, error) {
	if strings.HasPrefix(req.URL.Path, constraints.RefreshPrefix) {
		atomic.AddInt64(&refreshOnWire, 1)
	}
	return w.base.RoundTrip(req)
}

func main() {
	flag.Parse()
	logger.InitLogger("prod")
	defer logger.Sync()

	fmt.Printf("🚀 Starting Refresh Storm Test\n")
	fmt.Printf("   Target: %s\n", *baseURL)
	fmt.Printf("   VUs: %d x %d rounds\n", *totalVUs, *rounds)

	base := http.DefaultTransport.(*http.Transport).Clone()
	base.MaxIdleConns = *totalVUs
	base.MaxConnsPerHost = *totalVUs

	obs := &countingObserver{}
	c := client.NewClient(*baseURL, client.NewMemoryTokenStore(), client.Options{
		Base:     wireCounter{base: base},
		Observer: obs,
	})
	sess := client.NewSession(c)
	ctx := context.Background()

	if err := sess.Login(ctx, *username, *password); err != nil {
		fmt.Printf("login failed: %v\n", err)
		os.Exit(1)
	}

	for r := 1; r <= *rounds; r++ {
		if err := staleAccess(ctx, c); err != nil {
			fmt.Printf("round %d: %v\n", r, err)
			os.Exit(1)
		}

		before := atomic.LoadInt64(&refreshOnWire)
		start := time.Now()
		var wg sync.WaitGroup
		for i := 0; i < *totalVUs; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				runRequest(ctx, c)
			}()
		}
		wg.Wait()

		fmt.Printf("[round %d] refresh calls: %d | elapsed: %v\n",
			r, atomic.LoadInt64(&refreshOnWire)-before, time.Since(start).Round(time.Millisecond))
	}

	total := atomic.LoadInt64(&okCount) + atomic.LoadInt64(&errCount)
	avgLat := float64(0)
	if total > 0 {
		avgLat = float64(atomic.LoadInt64(&latencySum)) / float64(total)
	}
	fmt.Println("✅ Done")
	fmt.Printf("   Requests: %d ok / %d failed | Avg Latency: %.2f ms\n", atomic.LoadInt64(&okCount), atomic.LoadInt64(&errCount), avgLat)
	fmt.Printf("   Refresh calls on the wire: %d (expected %d)\n", atomic.LoadInt64(&refreshOnWire), *rounds)
	fmt.Printf("   Coalesced waiters: %d | Retried requests: %d | Sessions expired: %d\n",
		obs.coalesced.Load(), obs.retried.Load(), obs.expired.Load())
}

// staleAccess makes the next request fail with 401, either by waiting out the
// access token or by replacing it with garbage.
func staleAccess(ctx context.Context, c *client.Client) error {
	if *waitTTL > 0 {
		time.Sleep(*waitTTL)
		return nil
	}
	c.Transport().SetDefaultToken("")
	return c.Store().SetAccess(ctx, "stale-access-token")
}

func runRequest(ctx context.Context, c *client.Client) {
	start := time.Now()
	_, err := c.Classes(ctx)
	atomic.AddInt64(&latencySum, time.Since(start).Milliseconds())
	if err != nil {
		atomic.AddInt64(&errCount, 1)
		return
	}
	atomic.AddInt64(&okCount, 1)
}
