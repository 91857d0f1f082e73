package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/scheddev/sched-go/internal/api/router"
	"github.com/scheddev/sched-go/internal/demo"
	"github.com/scheddev/sched-go/pkg/logging"
)

func TestSetupMetricsExposesSchedulerMetrics(t *testing.T) {
	handler, _ := setupMetrics()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "sched_session_stale_fetches_total") {
		t.Fatalf("expected stale fetch counter to be exported")
	}
}

func TestMockServiceCallsShowUpOnMetrics(t *testing.T) {
	metricsHandler, sm := setupMetrics()
	logger := logging.NewWithWriter("error", &strings.Builder{})
	r := router.New(&router.Config{
		Logger:         logger,
		MockService:    demo.NewMockService("secret", logger, demo.WithServiceMetrics(sm)),
		MetricsHandler: metricsHandler,
	})

	tokenReq := httptest.NewRequest(http.MethodPost, "/v1/auth/token", strings.NewReader("client_id=c&grant_type=client_id_grant"))
	tokenReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	tokenRR := httptest.NewRecorder()
	r.ServeHTTP(tokenRR, tokenReq)
	if tokenRR.Code != http.StatusOK {
		t.Fatalf("expected token status 200, got %d", tokenRR.Code)
	}

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	want := `sched_gateway_requests_total{call="auth_token",status="ok"} 1`
	if !strings.Contains(rr.Body.String(), want) {
		t.Fatalf("expected %q in metrics output", want)
	}
}
