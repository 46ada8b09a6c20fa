package metrics

import (
	"sort"
	"sync"
	"time"
)

const maxSamples = 1000

type Metrics struct {
	mutex         sync.RWMutex
	requests      map[string]int64
	responseTimes map[string][]time.Duration
	statusCodes   map[string]map[int]int64
	failures      map[string]map[string]int64
	healthy       bool
	published     int64
	startTime     time.Time
}

type Snapshot struct {
	TotalRequests     int64                      `json:"total_requests"`
	Uptime            time.Duration              `json:"uptime"`
	Strategies        map[string]StrategyMetrics `json:"strategies"`
	Repository        string                     `json:"repository"`
	RepositoryHealthy bool                       `json:"repository_healthy"`
	PostsPublished    int64                      `json:"posts_published"`
	Breakers          map[string]string          `json:"breakers,omitempty"`
}

type StrategyMetrics struct {
	Requests    int64            `json:"requests"`
	AvgResponse time.Duration    `json:"avg_response"`
	P50Response time.Duration    `json:"p50_response"`
	P95Response time.Duration    `json:"p95_response"`
	P99Response time.Duration    `json:"p99_response"`
	StatusCodes map[int]int64    `json:"status_codes"`
	Failures    map[string]int64 `json:"failures,omitempty"`
}

func NewMetrics() *Metrics {
	return &Metrics{
		requests:      make(map[string]int64),
		responseTimes: make(map[string][]time.Duration),
		statusCodes:   make(map[string]map[int]int64),
		failures:      make(map[string]map[string]int64),
		startTime:     time.Now(),
	}
}

func (m *Metrics) IncrementRequests(strategy string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.requests[strategy]++
}

func (m *Metrics) RecordResponse(strategy string, duration time.Duration, statusCode int) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.responseTimes[strategy] = append(m.responseTimes[strategy], duration)

	if len(m.responseTimes[strategy]) > maxSamples {
		m.responseTimes[strategy] = m.responseTimes[strategy][1:]
	}

	if m.statusCodes[strategy] == nil {
		m.statusCodes[strategy] = make(map[int]int64)
	}
	m.statusCodes[strategy][statusCode]++
}

func (m *Metrics) RecordFailure(strategy, kind string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.failures[strategy] == nil {
		m.failures[strategy] = make(map[string]int64)
	}
	m.failures[strategy][kind]++
}

func (m *Metrics) UpdateHealthStatus(healthy bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.healthy = healthy
}

func (m *Metrics) AddPublished(n int) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.published += int64(n)
}

func (m *Metrics) Snapshot(driver string) Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		Uptime:            time.Since(m.startTime),
		Strategies:        make(map[string]StrategyMetrics),
		Repository:        driver,
		RepositoryHealthy: m.healthy,
		PostsPublished:    m.published,
	}

	names := make(map[string]bool)
	for name := range m.requests {
		names[name] = true
	}
	for name := range m.responseTimes {
		names[name] = true
	}
	for name := range m.failures {
		names[name] = true
	}

	for name := range names {
		snap.TotalRequests += m.requests[name]

		sm := StrategyMetrics{
			Requests:    m.requests[name],
			StatusCodes: copyCounts(m.statusCodes[name]),
			Failures:    copyCounts(m.failures[name]),
		}

		durations := m.responseTimes[name]
		if len(durations) > 0 {
			sorted := make([]time.Duration, len(durations))
			copy(sorted, durations)
			sort.Slice(sorted, func(i, j int) bool {
				return sorted[i] < sorted[j]
			})

			sm.AvgResponse = average(sorted)
			sm.P50Response = percentile(sorted, 0.50)
			sm.P95Response = percentile(sorted, 0.95)
			sm.P99Response = percentile(sorted, 0.99)
		}

		snap.Strategies[name] = sm
	}

	return snap
}

func copyCounts[K comparable](src map[K]int64) map[K]int64 {
	if src == nil {
		return nil
	}
	dst := make(map[K]int64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}
