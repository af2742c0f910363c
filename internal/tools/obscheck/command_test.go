package obscheck

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const traceID = "0123456789abcdef0123456789abcdef"

func apiServer(ready bool) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/health/ready":
			if ready {
				_, _ = w.Write([]byte(`{"success":true,"message":"ready","status":"ready","checks":[{"name":"db","healthy":true}]}`))
				return
			}
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"success":false,"message":"dependencies are not ready","code":"DEPENDENCY_UNREADY","status":"unready","checks":[{"name":"db","healthy":false}]}`))
		default:
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"success":false}`))
		}
	}))
}

func grafanaServer(t *testing.T, withLogs bool) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, pass, ok := r.BasicAuth(); !ok || user != "admin" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch {
		case strings.HasSuffix(r.URL.Path, "/query_exemplars"):
			if r.URL.Query().Get("query") != "auth_request_duration_seconds_bucket" {
				t.Errorf("unexpected exemplar query %q", r.URL.Query().Get("query"))
			}
			_, _ = w.Write([]byte(`{"data":[{"exemplars":[{"labels":{"trace_id":"short"}},{"labels":{"trace_id":"` + traceID + `"}}]}]}`))
		case strings.HasSuffix(r.URL.Path, "/api/traces/"+traceID):
			_, _ = w.Write([]byte(`{"batches":[{}]}`))
		case strings.HasSuffix(r.URL.Path, "/query_range"):
			if !strings.Contains(r.URL.Query().Get("query"), `service_name="otp-auth-service"`) {
				t.Errorf("unexpected loki query %q", r.URL.Query().Get("query"))
			}
			if withLogs {
				_, _ = w.Write([]byte(`{"data":{"result":[{}]}}`))
				return
			}
			_, _ = w.Write([]byte(`{"data":{"result":[]}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func baseOptions(apiURL string) options {
	return options{
		baseURL:         apiURL,
		grafanaUser:     "admin",
		grafanaPassword: "secret",
		serviceName:     "otp-auth-service",
		window:          time.Minute,
		trafficDuration: 200 * time.Millisecond,
	}
}

func TestCheckFullCorrelation(t *testing.T) {
	api := apiServer(true)
	defer api.Close()
	grafana := grafanaServer(t, true)
	defer grafana.Close()
	collector, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer func() { _ = collector.Close() }()

	opts := baseOptions(api.URL)
	opts.grafanaURL = grafana.URL
	opts.otlpEndpoint = collector.Addr().String()

	details, err := Check(context.Background(), opts)
	if err != nil {
		t.Fatalf("check: %v (details %v)", err, details)
	}
	joined := strings.Join(details, "\n")
	for _, want := range []string{"readiness: ok (db)", "otlp collector reachable", "exemplar trace_id=" + traceID, "tempo trace lookup: ok", "loki trace correlation: ok"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("missing %q in %v", want, details)
		}
	}
}

func TestCheckSkipsGrafanaWhenUnset(t *testing.T) {
	api := apiServer(true)
	defer api.Close()

	details, err := Check(context.Background(), baseOptions(api.URL))
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if details[len(details)-1] != "grafana correlation: skipped" {
		t.Fatalf("expected grafana skipped, got %v", details)
	}
}

func TestCheckFailsWhenUnready(t *testing.T) {
	api := apiServer(false)
	defer api.Close()

	_, err := Check(context.Background(), baseOptions(api.URL))
	if err == nil || !strings.Contains(err.Error(), "unhealthy=db") {
		t.Fatalf("expected readiness failure naming db, got %v", err)
	}
}

func TestCheckFailsWithoutCorrelatedLogs(t *testing.T) {
	api := apiServer(true)
	defer api.Close()
	grafana := grafanaServer(t, false)
	defer grafana.Close()

	opts := baseOptions(api.URL)
	opts.grafanaURL = grafana.URL
	details, err := Check(context.Background(), opts)
	if err == nil || !strings.Contains(err.Error(), "no correlated loki logs") {
		t.Fatalf("expected loki failure, got %v", err)
	}
	if !strings.Contains(strings.Join(details, "\n"), "tempo trace lookup: ok") {
		t.Fatalf("expected earlier stages reported, got %v", details)
	}
}

func TestVerifyOTLPReachableAcceptsURL(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	if err := verifyOTLPReachable(context.Background(), "http://"+addr); err != nil {
		t.Fatalf("expected reachable: %v", err)
	}
	_ = ln.Close()
	if err := verifyOTLPReachable(context.Background(), addr); err == nil {
		t.Fatal("expected closed port to be unreachable")
	}
}
