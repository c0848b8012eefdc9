// Package stats aggregates per-operation request metrics for the mock
// server.
package stats

import (
	"sort"
	"sync"
	"time"
)

// OperationStat is a snapshot of one operation's counters.
type OperationStat struct {
	Method            string    `json:"method"`
	Path              string    `json:"path"`
	TotalRequests     int64     `json:"totalRequests"`
	TotalErrors       int64     `json:"totalErrors"`
	AvgResponseTimeMs float64   `json:"avgResponseTimeMs"`
	MinResponseTimeMs float64   `json:"minResponseTimeMs"`
	MaxResponseTimeMs float64   `json:"maxResponseTimeMs"`
	LastRequestTime   time.Time `json:"lastRequestTime"`
}

// Snapshot is the aggregate view returned to clients.
type Snapshot struct {
	TotalRequests     int64           `json:"totalRequests"`
	TotalErrors       int64           `json:"totalErrors"`
	RequestsPerSecond float64         `json:"requestsPerSecond"`
	AvgResponseTimeMs float64         `json:"avgResponseTimeMs"`
	StartTime         time.Time       `json:"startTime"`
	Uptime            string          `json:"uptime"`
	Operations        []OperationStat `json:"operations"`
}

type operationCounter struct {
	method        string
	path          string
	requests      int64
	errors        int64
	totalTimeNs   int64
	minTimeNs     int64
	maxTimeNs     int64
	lastRequestAt time.Time
}

// Collector collects and aggregates statistics
type Collector struct {
	mu         sync.RWMutex
	startTime  time.Time
	operations map[string]*operationCounter
}

// NewCollector creates a new statistics collector
func NewCollector() *Collector {
	return &Collector{
		startTime:  time.Now(),
		operations: make(map[string]*operationCounter),
	}
}

// Record records one served request. Statuses of 500 and above count as
// errors.
func (c *Collector) Record(method, path string, status int, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := method + " " + path
	op, ok := c.operations[key]
	if !ok {
		op = &operationCounter{
			method:    method,
			path:      path,
			minTimeNs: duration.Nanoseconds(),
		}
		c.operations[key] = op
	}

	ns := duration.Nanoseconds()
	op.requests++
	op.totalTimeNs += ns
	op.lastRequestAt = time.Now()
	if ns < op.minTimeNs {
		op.minTimeNs = ns
	}
	if ns > op.maxTimeNs {
		op.maxTimeNs = ns
	}
	if status >= 500 {
		op.errors++
	}
}

// Snapshot returns the aggregate statistics, operations sorted by request
// count descending.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var totalRequests, totalErrors, totalTimeNs int64
	ops := make([]OperationStat, 0, len(c.operations))
	for _, op := range c.operations {
		stat := OperationStat{
			Method:            op.method,
			Path:              op.path,
			TotalRequests:     op.requests,
			TotalErrors:       op.errors,
			MinResponseTimeMs: float64(op.minTimeNs) / 1e6,
			MaxResponseTimeMs: float64(op.maxTimeNs) / 1e6,
			LastRequestTime:   op.lastRequestAt,
		}
		if op.requests > 0 {
			stat.AvgResponseTimeMs = float64(op.totalTimeNs) / float64(op.requests) / 1e6
		}
		ops = append(ops, stat)
		totalRequests += op.requests
		totalErrors += op.errors
		totalTimeNs += op.totalTimeNs
	}

	sort.Slice(ops, func(i, j int) bool {
		if ops[i].TotalRequests != ops[j].TotalRequests {
			return ops[i].TotalRequests > ops[j].TotalRequests
		}
		return ops[i].Path < ops[j].Path
	})

	snap := Snapshot{
		TotalRequests: totalRequests,
		TotalErrors:   totalErrors,
		StartTime:     c.startTime,
		Uptime:        time.Since(c.startTime).Round(time.Second).String(),
		Operations:    ops,
	}
	if totalRequests > 0 {
		snap.AvgResponseTimeMs = float64(totalTimeNs) / float64(totalRequests) / 1e6
	}
	if uptime := time.Since(c.startTime).Seconds(); uptime > 0 {
		snap.RequestsPerSecond = float64(totalRequests) / uptime
	}
	return snap
}

// Reset resets all statistics
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.startTime = time.Now()
	c.operations = make(map[string]*operationCounter)
}
