package obscheck

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/otp-auth-service/internal/tools/common"
	"github.com/sandeepkv93/otp-auth-service/internal/tools/loadgen"
)

type options struct {
	envFile         string
	baseURL         string
	otlpEndpoint    string
	grafanaURL      string
	grafanaUser     string
	grafanaPassword string
	serviceName     string
	window          time.Duration
	trafficDuration time.Duration
	settle          time.Duration
	ci              bool
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{Use: "obscheck", Short: "Verify the service is ready and its telemetry is flowing"}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "path to env file")
	cmd.PersistentFlags().StringVar(&opts.baseURL, "base-url", "http://localhost:8080", "API base URL for traffic")
	cmd.PersistentFlags().StringVar(&opts.otlpEndpoint, "otlp-endpoint", "", "OTLP collector host:port (defaults to OTEL_EXPORTER_OTLP_ENDPOINT)")
	cmd.PersistentFlags().StringVar(&opts.grafanaURL, "grafana-url", "", "Grafana base URL; empty skips exemplar, trace and log correlation")
	cmd.PersistentFlags().StringVar(&opts.grafanaUser, "grafana-user", "admin", "Grafana username")
	cmd.PersistentFlags().StringVar(&opts.grafanaPassword, "grafana-password", "admin", "Grafana password")
	cmd.PersistentFlags().StringVar(&opts.serviceName, "service-name", "", "OTel service name (defaults to OTEL_SERVICE_NAME)")
	cmd.PersistentFlags().DurationVar(&opts.window, "window", 20*time.Minute, "query lookback window")
	cmd.PersistentFlags().DurationVar(&opts.trafficDuration, "traffic-duration", 6*time.Second, "how long to generate traffic")
	cmd.PersistentFlags().DurationVar(&opts.settle, "settle", 8*time.Second, "wait after traffic for telemetry export")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	cmd.AddCommand(newRunCommand(opts))
	return cmd
}

func newRunCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Generate traffic and validate readiness, OTLP reachability and exemplar->trace->log correlation",
		RunE: func(cmd *cobra.Command, args []string) error {
			runOpts := common.RunOptions{Tool: "obscheck", Command: "run", CI: opts.ci, Timeout: 3 * time.Minute, ExitCode: 4}
			return common.Execute(runOpts, func(ctx context.Context) ([]string, error) {
				if err := opts.applyConfigDefaults(); err != nil {
					return nil, err
				}
				return Check(ctx, *opts)
			})
		},
	}
}

func (o *options) applyConfigDefaults() error {
	if o.otlpEndpoint != "" && o.serviceName != "" {
		return nil
	}
	cfg, err := common.LoadConfig(o.envFile)
	if err != nil {
		return err
	}
	if o.otlpEndpoint == "" {
		o.otlpEndpoint = cfg.OTELExporterOTLPEndpoint
	}
	if o.serviceName == "" {
		o.serviceName = cfg.OTELServiceName
	}
	return nil
}

// Check runs every stage in order and stops at the first failure, returning the details
// gathered so far.
func Check(ctx context.Context, opts options) ([]string, error) {
	lgRes, err := loadgen.Run(ctx, loadgen.Config{
		BaseURL:     opts.baseURL,
		Profile:     "mixed",
		Duration:    opts.trafficDuration,
		RPS:         20,
		Concurrency: 6,
		Seed:        42,
	})
	if err != nil {
		return nil, err
	}
	details := []string{fmt.Sprintf("traffic generated total=%d failures=%d", lgRes.TotalRequests, lgRes.Failures)}

	checks, err := verifyReadiness(ctx, opts.baseURL)
	if err != nil {
		return details, err
	}
	details = append(details, "readiness: ok ("+strings.Join(checks, ", ")+")")

	if opts.otlpEndpoint != "" {
		if err := verifyOTLPReachable(ctx, opts.otlpEndpoint); err != nil {
			return details, err
		}
		details = append(details, "otlp collector reachable: "+opts.otlpEndpoint)
	}

	if opts.grafanaURL == "" {
		return append(details, "grafana correlation: skipped"), nil
	}
	select {
	case <-time.After(opts.settle):
	case <-ctx.Done():
		return details, ctx.Err()
	}

	traceID, err := fetchTraceIDFromExemplar(ctx, opts)
	if err != nil {
		return details, err
	}
	details = append(details, "exemplar trace_id="+traceID)

	if err := verifyTempoTrace(ctx, opts, traceID); err != nil {
		return details, err
	}
	details = append(details, "tempo trace lookup: ok")

	if err := verifyLokiTraceLogs(ctx, opts, traceID); err != nil {
		return details, err
	}
	return append(details, "loki trace correlation: ok"), nil
}

type readinessPayload struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
	Checks  []struct {
		Name    string `json:"name"`
		Healthy bool   `json:"healthy"`
	} `json:"checks"`
}

func verifyReadiness(ctx context.Context, baseURL string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/health/ready", nil)
	if err != nil {
		return nil, err
	}
	resp, err := (&http.Client{Timeout: 5 * time.Second}).Do(req)
	if err != nil {
		return nil, fmt.Errorf("readiness request: %w", err)
	}
	defer resp.Body.Close()
	var payload readinessPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode readiness: %w", err)
	}
	names := make([]string, 0, len(payload.Checks))
	var unhealthy []string
	for _, c := range payload.Checks {
		names = append(names, c.Name)
		if !c.Healthy {
			unhealthy = append(unhealthy, c.Name)
		}
	}
	if resp.StatusCode != http.StatusOK || !payload.Success {
		return names, fmt.Errorf("service not ready: status=%d unhealthy=%s", resp.StatusCode, strings.Join(unhealthy, ","))
	}
	return names, nil
}

func verifyOTLPReachable(ctx context.Context, endpoint string) error {
	addr := endpoint
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		addr = u.Host
	}
	conn, err := (&net.Dialer{Timeout: 3 * time.Second}).DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("otlp collector unreachable at %s: %w", addr, err)
	}
	return conn.Close()
}

func grafanaGET(ctx context.Context, opts options, path string) ([]byte, error) {
	u, err := url.Parse(strings.TrimRight(opts.grafanaURL, "/") + path)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(opts.grafanaUser, opts.grafanaPassword)
	resp, err := (&http.Client{Timeout: 20 * time.Second}).Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("grafana request failed: %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

func fetchTraceIDFromExemplar(ctx context.Context, opts options) (string, error) {
	start := time.Now().Add(-opts.window).Unix()
	end := time.Now().Unix()
	path := fmt.Sprintf("/api/datasources/proxy/1/api/v1/query_exemplars?query=auth_request_duration_seconds_bucket&start=%d&end=%d", start, end)
	body, err := grafanaGET(ctx, opts, path)
	if err != nil {
		return "", err
	}
	var payload struct {
		Data []struct {
			Exemplars []struct {
				Labels map[string]string `json:"labels"`
			} `json:"exemplars"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", err
	}
	for _, series := range payload.Data {
		for _, e := range series.Exemplars {
			if tid := e.Labels["trace_id"]; len(tid) == 32 {
				return tid, nil
			}
		}
	}
	return "", fmt.Errorf("no trace_id exemplar found")
}

func verifyTempoTrace(ctx context.Context, opts options, traceID string) error {
	body, err := grafanaGET(ctx, opts, "/api/datasources/proxy/3/api/traces/"+traceID)
	if err != nil {
		return err
	}
	var payload struct {
		Batches []json.RawMessage `json:"batches"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return err
	}
	if len(payload.Batches) == 0 {
		return fmt.Errorf("tempo trace has no batches")
	}
	return nil
}

func verifyLokiTraceLogs(ctx context.Context, opts options, traceID string) error {
	nowNS := time.Now().UnixNano()
	startNS := nowNS - int64(opts.window)
	q := url.QueryEscape(fmt.Sprintf("{service_name=%q} |= \"trace_id=%s\"", opts.serviceName, traceID))
	path := fmt.Sprintf("/api/datasources/proxy/2/loki/api/v1/query_range?query=%s&start=%d&end=%d&limit=1&direction=backward", q, startNS, nowNS)
	body, err := grafanaGET(ctx, opts, path)
	if err != nil {
		return err
	}
	var payload struct {
		Data struct {
			Result []json.RawMessage `json:"result"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return err
	}
	if len(payload.Data.Result) == 0 {
		return fmt.Errorf("no correlated loki logs found for trace_id %s", traceID)
	}
	return nil
}
