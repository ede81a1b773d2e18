package health

import (
	"context"
	"encoding/json"
	"runtime"
	"strconv"
	"time"

	"ecotrack-backend/internal/middleware"
	"ecotrack-backend/internal/realtime"

	"github.com/redis/go-redis/v9"
)

// DBPinger is satisfied by *sql.DB. If nil, the database is reported as disconnected.
type DBPinger interface {
	PingContext(ctx context.Context) error
}

// StatsSource reports realtime connection counts. *realtime.Hub satisfies it.
type StatsSource interface {
	Stats() realtime.Stats
}

// Report is the body of /health/json.
type Report struct {
	Status       string               `json:"status"`
	Runtime      RuntimeInfo          `json:"runtime"`
	Traffic      TrafficInfo          `json:"traffic"`
	Realtime     *realtime.Stats      `json:"realtime,omitempty"`
	Dependencies map[string]DepStatus `json:"dependencies"`
}

type RuntimeInfo struct {
	UptimeSeconds int64      `json:"uptimeSeconds"`
	Memory        MemoryInfo `json:"memory"`
	Goroutines    int        `json:"goroutines"`
	Platform      string     `json:"platform"`
	GoVersion     string     `json:"goVersion"`
}

type MemoryInfo struct {
	AllocMB  int `json:"allocMb"`
	HeapUsed int `json:"heapUsedMb"`
}

type TrafficInfo struct {
	TotalRequests   int         `json:"totalRequests"`
	SuccessCount    int         `json:"successCount"`
	FailedCount     int         `json:"failedCount"`
	SuccessRate     string      `json:"successRate"`
	AvgResponseTime interface{} `json:"avgResponseTime"`
	LastRequest     interface{} `json:"lastRequest"`
}

type DepStatus struct {
	Status string `json:"status"`
	PingMs *int64 `json:"pingMs"`
}

func ping(ctx context.Context, fn func(context.Context) error) DepStatus {
	start := time.Now()
	if err := fn(ctx); err != nil {
		return DepStatus{Status: "error"}
	}
	ms := time.Since(start).Milliseconds()
	return DepStatus{Status: "connected", PingMs: &ms}
}

// Collect gathers dependency status, request counters kept by
// middleware.HealthMarker, and realtime connection counts.
func Collect(ctx context.Context, rdb *redis.Client, db DBPinger, hub StatsSource) Report {
	r := Report{Dependencies: make(map[string]DepStatus)}

	r.Dependencies["database"] = DepStatus{Status: "disconnected"}
	if db != nil {
		r.Dependencies["database"] = ping(ctx, db.PingContext)
	}

	r.Dependencies["redis"] = DepStatus{Status: "disconnected"}
	r.Traffic = TrafficInfo{AvgResponseTime: 0, SuccessRate: "100"}
	startMs := time.Now().UnixMilli()
	if rdb != nil {
		r.Dependencies["redis"] = ping(ctx, func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
		if r.Dependencies["redis"].Status == "connected" {
			startMs = readTraffic(ctx, rdb, &r.Traffic, startMs)
		}
	}

	if hub != nil {
		st := hub.Stats()
		r.Realtime = &st
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	uptime := (time.Now().UnixMilli() - startMs) / 1000
	if uptime < 0 {
		uptime = 0
	}
	r.Runtime = RuntimeInfo{
		UptimeSeconds: uptime,
		Memory:        MemoryInfo{AllocMB: int(m.Alloc / 1024 / 1024), HeapUsed: int(m.HeapInuse / 1024 / 1024)},
		Goroutines:    runtime.NumGoroutine(),
		Platform:      runtime.GOOS + " (" + runtime.GOARCH + ")",
		GoVersion:     runtime.Version(),
	}

	r.Status = "issue"
	if r.Dependencies["database"].Status == "connected" && r.Dependencies["redis"].Status == "connected" {
		r.Status = "ok"
	}
	return r
}

// readTraffic fills t from the Redis counters and returns the recorded start
// time, seeding it when absent.
func readTraffic(ctx context.Context, rdb *redis.Client, t *TrafficInfo, startMs int64) int64 {
	vals, err := rdb.MGet(ctx, middleware.KeyReqTotal, middleware.KeyReqErrors, middleware.KeyResTime,
		middleware.KeyResCount, middleware.KeyStartTime, middleware.KeyLastReq).Result()
	if err != nil {
		return startMs
	}
	str := func(i int) string {
		s, _ := vals[i].(string)
		return s
	}

	if v, err := strconv.ParseInt(str(4), 10, 64); err == nil {
		startMs = v
	} else {
		rdb.SetNX(ctx, middleware.KeyStartTime, startMs, 0)
	}

	t.TotalRequests, _ = strconv.Atoi(str(0))
	t.FailedCount, _ = strconv.Atoi(str(1))
	t.SuccessCount = t.TotalRequests - t.FailedCount
	if t.TotalRequests > 0 {
		t.SuccessRate = strconv.FormatFloat(float64(t.SuccessCount)/float64(t.TotalRequests)*100, 'f', 1, 64)
	}
	sum, _ := strconv.ParseFloat(str(2), 64)
	count, _ := strconv.Atoi(str(3))
	if count > 0 {
		t.AvgResponseTime = strconv.FormatFloat(sum/float64(count), 'f', 2, 64)
	}
	if raw := str(5); raw != "" {
		var last map[string]interface{}
		if json.Unmarshal([]byte(raw), &last) == nil {
			t.LastRequest = last
		}
	}
	return startMs
}
