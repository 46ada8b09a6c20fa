// Loadtest drives concurrent traffic against a running blog and reports
// throughput, status codes and latency percentiles per path.
//
// Usage:
//
//	go run ./scripts/loadtest -base http://localhost:8080 -paths /,/posts/1,/feed.xml -concurrency 20 -requests 2000
//	go run ./scripts/loadtest -base http://localhost:8080 -comment 1 -requests 50 -out summary.json
//
// With -comment, every request posts a comment to that post id from one
// of -clients fake source addresses, which exercises the rate limiter.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
)

type pathStats struct {
	Count     int64
	Statuses  map[int]int64
	Latencies []time.Duration
}

type pathSummary struct {
	Total    int64         `json:"total"`
	Statuses map[int]int64 `json:"statuses"`
	P50      float64       `json:"p50_ms"`
	P90      float64       `json:"p90_ms"`
	P99      float64       `json:"p99_ms"`
}

func main() {
	var (
		base        = flag.String("base", "http://localhost:8080", "Blog base URL")
		paths       = flag.String("paths", "/,/posts,/feed.xml", "Comma separated paths to GET in rotation")
		comment     = flag.Int64("comment", 0, "Post comments to this post id instead of reading")
		clients     = flag.Int("clients", 5, "Fake client addresses sent in X-Forwarded-For")
		concurrency = flag.Int("concurrency", 10, "Number of concurrent workers")
		requests    = flag.Int("requests", 100, "Total number of requests to send")
		timeout     = flag.Duration("timeout", 10*time.Second, "Per-request timeout")
		outJSON     = flag.String("out", "", "Write JSON summary to this file (optional)")
	)
	flag.Parse()

	targets := strings.Split(*paths, ",")
	if *comment > 0 {
		targets = []string{fmt.Sprintf("/posts/%d/comments", *comment)}
	}

	client := &http.Client{
		Timeout: *timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	var (
		mutex   sync.Mutex
		stats   = make(map[string]*pathStats)
		failed  atomic.Int64
		jobs    = make(chan int)
		wg      sync.WaitGroup
		started = time.Now()
	)

	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				path := targets[idx%len(targets)]
				req, err := newRequest(*base, path, *comment > 0, idx)
				if err != nil {
					failed.Add(1)
					continue
				}
				req.Header.Set("X-Forwarded-For", fmt.Sprintf("192.168.1.%d", idx%*clients+1))

				start := time.Now()
				resp, err := client.Do(req)
				dur := time.Since(start)
				if err != nil {
					failed.Add(1)
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()

				mutex.Lock()
				s, ok := stats[path]
				if !ok {
					s = &pathStats{Statuses: make(map[int]int64)}
					stats[path] = s
				}
				s.Count++
				s.Statuses[resp.StatusCode]++
				s.Latencies = append(s.Latencies, dur)
				mutex.Unlock()
			}
		}()
	}

	for i := 0; i < *requests; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	elapsed := time.Since(started)

	fmt.Println("--- Load Test Summary ---")
	fmt.Printf("Target: %s  Requests: %s  Concurrency: %d\n", *base, humanize.Comma(int64(*requests)), *concurrency)
	fmt.Printf("Duration: %v  Throughput: %.2f req/s  Transport failures: %d\n",
		elapsed.Round(time.Millisecond), float64(*requests)/elapsed.Seconds(), failed.Load())

	report := make(map[string]pathSummary, len(stats))
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, path := range keys {
		s := stats[path]
		sort.Slice(s.Latencies, func(i, j int) bool { return s.Latencies[i] < s.Latencies[j] })

		summary := pathSummary{
			Total:    s.Count,
			Statuses: s.Statuses,
			P50:      percentile(s.Latencies, 0.50),
			P90:      percentile(s.Latencies, 0.90),
			P99:      percentile(s.Latencies, 0.99),
		}
		report[path] = summary

		fmt.Printf("\n%s  total=%d  p50=%.1fms p90=%.1fms p99=%.1fms\n", path, s.Count, summary.P50, summary.P90, summary.P99)
		codes := make([]int, 0, len(s.Statuses))
		for code := range s.Statuses {
			codes = append(codes, code)
		}
		sort.Ints(codes)
		for _, code := range codes {
			fmt.Printf("  %d %-22s %d\n", code, http.StatusText(code), s.Statuses[code])
		}
	}

	if *outJSON != "" {
		if err := writeJSON(*outJSON, report); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write summary: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\nWrote JSON summary to %s\n", *outJSON)
	}

	if failed.Load() > 0 {
		os.Exit(2)
	}
}

func newRequest(base, path string, comment bool, idx int) (*http.Request, error) {
	target := strings.TrimSuffix(base, "/") + path
	if !comment {
		return http.NewRequest(http.MethodGet, target, nil)
	}

	form := url.Values{
		"author": {fmt.Sprintf("loadtest-%d", idx)},
		"body":   {fmt.Sprintf("comment %d", idx)},
	}
	req, err := http.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req, nil
}

// percentile expects sorted latencies and returns milliseconds.
func percentile(sorted []time.Duration, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	d := sorted[int(float64(len(sorted)-1)*p)]
	return float64(d.Microseconds()) / 1000
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
