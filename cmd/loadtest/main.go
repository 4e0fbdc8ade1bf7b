// Утилита нагрузочного тестирования REST API сервиса. Прогоняет
// сценарий "создать заказ -> оплатить -> вернуть часть" с заданной
// конкуррентностью и печатает JSON-отчёт с латентностями.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

type loadMode string

const (
	modeCreate          loadMode = "create"
	modeCreatePay       loadMode = "create-pay"
	modeCreatePayRefund loadMode = "create-pay-refund"
)

type config struct {
	baseURL     string
	total       int
	concurrency int
	timeout     time.Duration
	mode        loadMode
	method      string
	refundMinor int64
	outputPath  string
}

type latencySummary struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

type endpointReport struct {
	Calls     int64          `json:"calls"`
	Success   int64          `json:"success"`
	Failed    int64          `json:"failed"`
	ErrorRate float64        `json:"error_rate"`
	Statuses  map[string]int `json:"statuses"`
	LatencyMs latencySummary `json:"latency_ms"`
}

type report struct {
	StartedAt        time.Time                 `json:"started_at"`
	DurationSeconds  float64                   `json:"duration_seconds"`
	TotalScenarios   int64                     `json:"total_scenarios"`
	SuccessScenarios int64                     `json:"success_scenarios"`
	FailedScenarios  int64                     `json:"failed_scenarios"`
	ErrorRate        float64                   `json:"error_rate"`
	RPS              float64                   `json:"rps"`
	Endpoints        map[string]endpointReport `json:"endpoints"`
}

type endpointStats struct {
	calls     int64
	success   int64
	failed    int64
	statuses  map[string]int
	latencies []float64
}

type collector struct {
	mu        sync.Mutex
	endpoints map[string]*endpointStats
}

func newCollector() *collector {
	return &collector{endpoints: make(map[string]*endpointStats)}
}

func (c *collector) record(endpoint string, latency time.Duration, status int, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats, found := c.endpoints[endpoint]
	if !found {
		stats = &endpointStats{statuses: make(map[string]int)}
		c.endpoints[endpoint] = stats
	}

	stats.calls++
	if ok {
		stats.success++
	} else {
		stats.failed++
	}
	stats.statuses[fmt.Sprintf("%d", status)]++
	stats.latencies = append(stats.latencies, float64(latency.Microseconds())/1000.0)
}

func (c *collector) buildReport() map[string]endpointReport {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make(map[string]endpointReport, len(c.endpoints))
	for endpoint, stats := range c.endpoints {
		errorRate := 0.0
		if stats.calls > 0 {
			errorRate = float64(stats.failed) / float64(stats.calls)
		}
		result[endpoint] = endpointReport{
			Calls:     stats.calls,
			Success:   stats.success,
			Failed:    stats.failed,
			ErrorRate: errorRate,
			Statuses:  stats.statuses,
			LatencyMs: summarize(stats.latencies),
		}
	}
	return result
}

func summarize(latencies []float64) latencySummary {
	if len(latencies) == 0 {
		return latencySummary{}
	}

	sorted := make([]float64, len(latencies))
	copy(sorted, latencies)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}

	return latencySummary{
		Min: sorted[0],
		Max: sorted[len(sorted)-1],
		Avg: sum / float64(len(sorted)),
		P50: percentile(sorted, 50),
		P95: percentile(sorted, 95),
		P99: percentile(sorted, 99),
	}
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100.0*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

type runner struct {
	cfg       config
	client    *http.Client
	collector *collector
	branchID  string
	menuID    string
}

func (r *runner) call(ctx context.Context, method, path string, body any, out any) (int, error) {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.cfg.baseURL+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := r.client.Do(req)
	latency := time.Since(start)

	endpoint := method + " " + routePattern(path)
	if err != nil {
		r.collector.record(endpoint, latency, 0, false)
		return 0, err
	}
	defer resp.Body.Close()

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	r.collector.record(endpoint, latency, resp.StatusCode, ok)

	if out != nil && ok {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	}
	if !ok {
		return resp.StatusCode, fmt.Errorf("%s -> %d", endpoint, resp.StatusCode)
	}
	return resp.StatusCode, nil
}

// routePattern нормализует путь, чтобы в отчёте не было по строке на
// каждый идентификатор заказа.
func routePattern(path string) string {
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if len(part) > 20 {
			parts[i] = "{id}"
		}
	}
	return strings.Join(parts, "/")
}

// seed создаёт филиал и позицию меню, которые разделяют все сценарии.
func (r *runner) seed(ctx context.Context) error {
	var branch struct {
		ID string `json:"id"`
	}
	if _, err := r.call(ctx, http.MethodPost, "/branches", map[string]any{
		"name":     "Loadtest Branch",
		"location": "1 Loadtest Street",
	}, &branch); err != nil {
		return fmt.Errorf("create branch: %w", err)
	}
	r.branchID = branch.ID

	var item struct {
		ID string `json:"id"`
	}
	if _, err := r.call(ctx, http.MethodPost, "/menu-items", map[string]any{
		"branch_id":   r.branchID,
		"name":        "Loadtest Thali",
		"price_minor": 10000,
		"category":    "MAIN_COURSE",
		"diet_type":   "VEG",
		"menu_type":   "LUNCH",
		"available":   true,
	}, &item); err != nil {
		return fmt.Errorf("create menu item: %w", err)
	}
	r.menuID = item.ID
	return nil
}

func (r *runner) scenario(ctx context.Context, n int) error {
	var created struct {
		ID         string `json:"id"`
		TotalMinor int64  `json:"total_minor"`
	}
	if _, err := r.call(ctx, http.MethodPost, "/orders", map[string]any{
		"customer_name":  fmt.Sprintf("loadtest-%d", n),
		"branch_id":      r.branchID,
		"delivery_minor": 2000,
		"items": []map[string]any{
			{"menu_item_id": r.menuID, "qty": 2},
		},
	}, &created); err != nil {
		return err
	}
	if r.cfg.mode == modeCreate {
		return nil
	}

	if _, err := r.call(ctx, http.MethodPost, "/payments/"+created.ID, map[string]any{
		"method": r.cfg.method,
	}, nil); err != nil {
		return err
	}
	if r.cfg.mode == modeCreatePay {
		return nil
	}

	refund := r.cfg.refundMinor
	if refund <= 0 || refund > created.TotalMinor {
		refund = created.TotalMinor / 4
	}
	_, err := r.call(ctx, http.MethodPost, "/payments/"+created.ID+"/refund", map[string]any{
		"amount_minor": refund,
	}, nil)
	return err
}

func main() {
	cfg, err := readConfig()
	if err != nil {
		fail("%v", err)
	}

	ctx := context.Background()
	r := &runner{
		cfg:       cfg,
		client:    &http.Client{Timeout: cfg.timeout},
		collector: newCollector(),
	}

	if err := r.seed(ctx); err != nil {
		fail("seed failed: %v", err)
	}

	startedAt := time.Now()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int64
		failed  int64
	)

	jobs := make(chan int)
	for w := 0; w < cfg.concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := range jobs {
				if err := r.scenario(ctx, n); err != nil {
					mu.Lock()
					failed++
					mu.Unlock()
					continue
				}
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	for n := 0; n < cfg.total; n++ {
		jobs <- n
	}
	close(jobs)
	wg.Wait()

	duration := time.Since(startedAt)
	total := success + failed
	errorRate := 0.0
	if total > 0 {
		errorRate = float64(failed) / float64(total)
	}

	result := report{
		StartedAt:        startedAt.UTC(),
		DurationSeconds:  duration.Seconds(),
		TotalScenarios:   total,
		SuccessScenarios: success,
		FailedScenarios:  failed,
		ErrorRate:        errorRate,
		RPS:              float64(total) / duration.Seconds(),
		Endpoints:        r.collector.buildReport(),
	}

	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fail("encode report: %v", err)
	}
	fmt.Println(string(encoded))

	if cfg.outputPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.outputPath), 0o755); err != nil {
			fail("create report dir: %v", err)
		}
		if err := os.WriteFile(cfg.outputPath, encoded, 0o644); err != nil {
			fail("write report: %v", err)
		}
	}

	if failed > 0 {
		os.Exit(1)
	}
}

func readConfig() (config, error) {
	var (
		cfg     config
		modeRaw string
	)

	flag.StringVar(&cfg.baseURL, "addr", "http://localhost:8080", "base URL of the service HTTP API")
	flag.IntVar(&cfg.total, "total", 100, "number of scenarios to run")
	flag.IntVar(&cfg.concurrency, "concurrency", 8, "number of concurrent workers")
	flag.DurationVar(&cfg.timeout, "timeout", 10*time.Second, "per-request timeout")
	flag.StringVar(&modeRaw, "mode", string(modeCreatePay), "scenario: create|create-pay|create-pay-refund")
	flag.StringVar(&cfg.method, "method", "UPI", "payment method for charges")
	flag.Int64Var(&cfg.refundMinor, "refund-minor", 0, "refund amount in minor units (0 = quarter of the total)")
	flag.StringVar(&cfg.outputPath, "output", "", "optional path for the JSON report")
	flag.Parse()

	cfg.baseURL = strings.TrimRight(cfg.baseURL, "/")
	cfg.mode = loadMode(modeRaw)

	switch cfg.mode {
	case modeCreate, modeCreatePay, modeCreatePayRefund:
	default:
		return config{}, fmt.Errorf("unsupported mode: %s", modeRaw)
	}
	if cfg.total <= 0 {
		return config{}, fmt.Errorf("total must be > 0")
	}
	if cfg.concurrency <= 0 {
		return config{}, fmt.Errorf("concurrency must be > 0")
	}
	return cfg, nil
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
