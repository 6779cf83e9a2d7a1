// Command loadtest нагружает HTTP API order-service и проверяет уникальность выданных id.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	ordersPath     = "/api/v1/orders"
	scenarioMethod = "scenario"
	methodCreate   = "POST /api/v1/orders"
	methodGet      = "GET /api/v1/orders/{id}"
	codeTransport  = "transport_error"
)

type loadMode string

const (
	modeCreate    loadMode = "create"
	modeCreateGet loadMode = "create-get"
)

type config struct {
	baseURL     string
	total       int
	totalSet    bool
	duration    time.Duration
	concurrency int
	connections int
	timeout     time.Duration
	mode        loadMode
	userTag     string
	productID   string
	quantity    int
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

type methodReport struct {
	Calls     int64            `json:"calls"`
	Success   int64            `json:"success"`
	Failed    int64            `json:"failed"`
	ErrorRate float64          `json:"error_rate"`
	Codes     map[string]int64 `json:"codes"`
	LatencyMs latencySummary   `json:"latency_ms"`
}

type report struct {
	StartedAt         time.Time               `json:"started_at"`
	DurationSeconds   float64                 `json:"duration_seconds"`
	TotalScenarios    int64                   `json:"total_scenarios"`
	SuccessScenarios  int64                   `json:"success_scenarios"`
	FailedScenarios   int64                   `json:"failed_scenarios"`
	ErrorRate         float64                 `json:"error_rate"`
	RPS               float64                 `json:"rps"`
	UniqueOrderIDs    int64                   `json:"unique_order_ids"`
	DuplicateOrderIDs int64                   `json:"duplicate_order_ids"`
	ScenarioLatencyMs latencySummary          `json:"scenario_latency_ms"`
	Methods           map[string]methodReport `json:"methods"`
}

type methodStats struct {
	calls     int64
	success   int64
	failed    int64
	codes     map[string]int64
	latencies []float64
}

// collector агрегирует результаты запросов и выданные сервисом id заказов.
type collector struct {
	mu         sync.Mutex
	methods    map[string]*methodStats
	orderIDs   map[string]struct{}
	duplicates int64
}

func newCollector() *collector {
	return &collector{
		methods:  make(map[string]*methodStats),
		orderIDs: make(map[string]struct{}),
	}
}

func (c *collector) record(method string, latency time.Duration, code string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats, found := c.methods[method]
	if !found {
		stats = &methodStats{codes: make(map[string]int64)}
		c.methods[method] = stats
	}

	stats.calls++
	if ok {
		stats.success++
	} else {
		stats.failed++
	}
	stats.codes[code]++
	stats.latencies = append(stats.latencies, float64(latency.Microseconds())/1000.0)
}

// trackOrderID запоминает id и возвращает false, если он уже встречался.
func (c *collector) trackOrderID(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, seen := c.orderIDs[id]; seen {
		c.duplicates++
		return false
	}
	c.orderIDs[id] = struct{}{}
	return true
}

func (c *collector) buildReport(startedAt time.Time, duration time.Duration) report {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := report{
		StartedAt:         startedAt.UTC(),
		DurationSeconds:   duration.Seconds(),
		UniqueOrderIDs:    int64(len(c.orderIDs)),
		DuplicateOrderIDs: c.duplicates,
		Methods:           make(map[string]methodReport, len(c.methods)),
	}

	if scenario := c.methods[scenarioMethod]; scenario != nil {
		result.TotalScenarios = scenario.calls
		result.SuccessScenarios = scenario.success
		result.FailedScenarios = scenario.failed
		result.ErrorRate = ratio(scenario.failed, scenario.calls)
		result.ScenarioLatencyMs = buildLatencySummary(scenario.latencies)
	}
	if duration > 0 {
		result.RPS = float64(result.TotalScenarios) / duration.Seconds()
	}

	for name, stats := range c.methods {
		codesCopy := make(map[string]int64, len(stats.codes))
		for code, count := range stats.codes {
			codesCopy[code] = count
		}
		result.Methods[name] = methodReport{
			Calls:     stats.calls,
			Success:   stats.success,
			Failed:    stats.failed,
			ErrorRate: ratio(stats.failed, stats.calls),
			Codes:     codesCopy,
			LatencyMs: buildLatencySummary(stats.latencies),
		}
	}

	return result
}

func parseConfig(args []string) (config, error) {
	fs := flag.NewFlagSet("loadtest", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var cfg config
	var modeValue, timeoutValue, durationValue string

	fs.StringVar(&cfg.baseURL, "url", "http://localhost:3000", "order-service base URL")
	fs.IntVar(&cfg.total, "total", 400, "total scenarios in count mode; with -duration only a cap when set explicitly")
	fs.StringVar(&durationValue, "duration", "0s", "optional time-based run duration (e.g. 1m)")
	fs.IntVar(&cfg.concurrency, "concurrency", 40, "number of concurrent workers")
	fs.IntVar(&cfg.connections, "connections", 20, "max idle keep-alive connections to the service")
	fs.StringVar(&timeoutValue, "timeout", "5s", "per-request timeout")
	fs.StringVar(&modeValue, "mode", string(modeCreate), "load mode: create | create-get")
	fs.StringVar(&cfg.userTag, "user", "user-123", "user id sent with every order")
	fs.StringVar(&cfg.productID, "product", "prod-1", "product id of the single order item")
	fs.IntVar(&cfg.quantity, "quantity", 1, "item quantity")
	fs.StringVar(&cfg.outputPath, "output", "", "optional JSON report output file path")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	timeout, err := time.ParseDuration(strings.TrimSpace(timeoutValue))
	if err != nil {
		return cfg, fmt.Errorf("parse timeout: %w", err)
	}
	cfg.timeout = timeout

	duration, err := time.ParseDuration(strings.TrimSpace(durationValue))
	if err != nil {
		return cfg, fmt.Errorf("parse duration: %w", err)
	}
	cfg.duration = duration

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "total" {
			cfg.totalSet = true
		}
	})

	if cfg.mode, err = parseMode(modeValue); err != nil {
		return cfg, err
	}
	cfg.baseURL = strings.TrimRight(strings.TrimSpace(cfg.baseURL), "/")

	switch {
	case cfg.baseURL == "":
		return cfg, errors.New("url is required")
	case cfg.duration < 0:
		return cfg, errors.New("duration must be >= 0")
	case cfg.duration == 0 && cfg.total <= 0:
		return cfg, errors.New("total must be > 0 when duration is not set")
	case cfg.duration > 0 && cfg.totalSet && cfg.total <= 0:
		return cfg, errors.New("total must be > 0 when explicitly set with duration")
	case cfg.concurrency <= 0:
		return cfg, errors.New("concurrency must be > 0")
	case cfg.connections <= 0:
		return cfg, errors.New("connections must be > 0")
	case cfg.timeout <= 0:
		return cfg, errors.New("timeout must be > 0")
	case strings.TrimSpace(cfg.userTag) == "":
		return cfg, errors.New("user is required")
	case strings.TrimSpace(cfg.productID) == "":
		return cfg, errors.New("product is required")
	}

	return cfg, nil
}

func parseMode(value string) (loadMode, error) {
	switch mode := loadMode(strings.TrimSpace(value)); mode {
	case modeCreate, modeCreateGet:
		return mode, nil
	default:
		return "", fmt.Errorf("unsupported mode: %s", value)
	}
}

func main() {
	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	result := run(cfg)
	printReport(os.Stdout, result, cfg)

	if cfg.outputPath != "" {
		if err := writeJSONReport(cfg.outputPath, result); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "failed to write report: %v\n", err)
			os.Exit(1)
		}
	}

	if result.FailedScenarios > 0 || result.DuplicateOrderIDs > 0 {
		os.Exit(1)
	}
}

func newHTTPClient(cfg config) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = cfg.connections
	transport.MaxIdleConnsPerHost = cfg.connections
	return &http.Client{Transport: transport}
}

// run выполняет нагрузку и возвращает отчёт.
func run(cfg config) report {
	client := newHTTPClient(cfg)
	defer client.CloseIdleConnections()

	startedAt := time.Now()
	col := newCollector()
	jobs := make(chan int, cfg.concurrency*2)

	var wg sync.WaitGroup
	for worker := 0; worker < cfg.concurrency; worker++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for index := range jobs {
				_ = runScenario(client, cfg, index, col)
			}
		}()
	}

	dispatchJobs(jobs, cfg)
	wg.Wait()

	return col.buildReport(startedAt, time.Since(startedAt))
}

func dispatchJobs(jobs chan<- int, cfg config) {
	defer close(jobs)

	if cfg.duration <= 0 {
		for i := 0; i < cfg.total; i++ {
			jobs <- i
		}
		return
	}

	timer := time.NewTimer(cfg.duration)
	defer timer.Stop()

	for i := 0; ; i++ {
		if cfg.totalSet && i >= cfg.total {
			return
		}

		select {
		case <-timer.C:
			return
		case jobs <- i:
		}
	}
}

type orderItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type createOrderRequest struct {
	UserID string      `json:"userId"`
	Items  []orderItem `json:"items"`
}

type orderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func runScenario(client *http.Client, cfg config, index int, col *collector) (err error) {
	start := time.Now()
	defer func() {
		code := "ok"
		if err != nil {
			code = "failed"
		}
		col.record(scenarioMethod, time.Since(start), code, err == nil)
	}()

	created, err := callCreateOrder(client, cfg, col)
	if err != nil {
		return err
	}
	if created.ID == "" {
		return errors.New("create response returned empty order id")
	}
	if !col.trackOrderID(created.ID) {
		return fmt.Errorf("duplicate order id %q (scenario %d)", created.ID, index)
	}

	if cfg.mode == modeCreate {
		return nil
	}

	fetched, err := callGetOrder(client, cfg, created.ID, col)
	if err != nil {
		return err
	}
	if fetched.ID != created.ID {
		return fmt.Errorf("get returned order %q, want %q", fetched.ID, created.ID)
	}
	return nil
}

func callCreateOrder(client *http.Client, cfg config, col *collector) (orderResponse, error) {
	body, err := json.Marshal(createOrderRequest{
		UserID: cfg.userTag,
		Items:  []orderItem{{ProductID: cfg.productID, Quantity: cfg.quantity}},
	})
	if err != nil {
		return orderResponse{}, err
	}
	return doJSON(client, cfg.timeout, http.MethodPost, cfg.baseURL+ordersPath, body, http.StatusCreated, methodCreate, col)
}

func callGetOrder(client *http.Client, cfg config, id string, col *collector) (orderResponse, error) {
	return doJSON(client, cfg.timeout, http.MethodGet, cfg.baseURL+ordersPath+"/"+id, nil, http.StatusOK, methodGet, col)
}

func doJSON(
	client *http.Client,
	timeout time.Duration,
	method, url string,
	body []byte,
	wantStatus int,
	metricName string,
	col *collector,
) (orderResponse, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return orderResponse{}, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		col.record(metricName, time.Since(start), codeTransport, false)
		return orderResponse{}, err
	}
	defer resp.Body.Close()

	var out orderResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&out)
	ok := resp.StatusCode == wantStatus && decodeErr == nil
	col.record(metricName, time.Since(start), strconv.Itoa(resp.StatusCode), ok)

	if resp.StatusCode != wantStatus {
		return out, fmt.Errorf("%s: unexpected status %d", metricName, resp.StatusCode)
	}
	if decodeErr != nil {
		return out, fmt.Errorf("%s: decode response: %w", metricName, decodeErr)
	}
	return out, nil
}

func writeJSONReport(path string, result report) error {
	cleanPath := filepath.Clean(path)
	if cleanPath == "." || cleanPath == string(filepath.Separator) {
		return errors.New("output path must point to a file")
	}
	if cleanPath == ".." || strings.HasPrefix(cleanPath, ".."+string(filepath.Separator)) {
		return fmt.Errorf("output path must be inside current directory: %s", path)
	}

	// #nosec G304 -- path is an explicit CLI output parameter for local load-test reports.
	file, err := os.Create(cleanPath)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func printReport(w io.Writer, result report, cfg config) {
	_, _ = fmt.Fprintln(w, "Load test summary")
	_, _ = fmt.Fprintf(w, "mode=%s run=%s total=%d success=%d failed=%d error_rate=%.4f\n",
		cfg.mode, runTarget(cfg),
		result.TotalScenarios, result.SuccessScenarios, result.FailedScenarios, result.ErrorRate,
	)
	_, _ = fmt.Fprintf(w, "order ids: unique=%d duplicates=%d\n", result.UniqueOrderIDs, result.DuplicateOrderIDs)
	_, _ = fmt.Fprintf(w, "duration=%.2fs rps=%.2f\n", result.DurationSeconds, result.RPS)
	_, _ = fmt.Fprintf(w, "scenario latency ms: min=%.2f avg=%.2f p50=%.2f p95=%.2f p99=%.2f max=%.2f\n",
		result.ScenarioLatencyMs.Min,
		result.ScenarioLatencyMs.Avg,
		result.ScenarioLatencyMs.P50,
		result.ScenarioLatencyMs.P95,
		result.ScenarioLatencyMs.P99,
		result.ScenarioLatencyMs.Max,
	)

	names := make([]string, 0, len(result.Methods))
	for name := range result.Methods {
		if name != scenarioMethod {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		stats := result.Methods[name]
		_, _ = fmt.Fprintf(w, "%s: calls=%d success=%d failed=%d error_rate=%.4f p95=%.2fms\n",
			name, stats.Calls, stats.Success, stats.Failed, stats.ErrorRate, stats.LatencyMs.P95)
	}
}

func runTarget(cfg config) string {
	if cfg.duration <= 0 {
		return fmt.Sprintf("count:%d", cfg.total)
	}
	if cfg.totalSet {
		return fmt.Sprintf("duration:%s,max-total:%d", cfg.duration, cfg.total)
	}
	return fmt.Sprintf("duration:%s", cfg.duration)
}

func buildLatencySummary(values []float64) latencySummary {
	if len(values) == 0 {
		return latencySummary{}
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	var sum float64
	for _, value := range sorted {
		sum += value
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

// percentile считает линейную интерполяцию между соседними рангами.
func percentile(sorted []float64, p float64) float64 {
	switch len(sorted) {
	case 0:
		return 0
	case 1:
		return sorted[0]
	}

	rank := (p / 100.0) * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}

	weight := rank - float64(lower)
	return sorted[lower] + (sorted[upper]-sorted[lower])*weight
}

func ratio(failed, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(failed) / float64(total)
}
