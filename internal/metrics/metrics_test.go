package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordContractCall(t *testing.T) {
	m := New()
	m.RecordContractCall("token", "mint", "transact", nil, time.Millisecond)
	m.RecordContractCall("token", "mint", "transact", errors.New("boom"), time.Millisecond)
	m.RecordContractCall("token", "mint", "transact", nil, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.contractCalls.WithLabelValues("token", "mint", "transact", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.contractCalls.WithLabelValues("token", "mint", "transact", "error")))
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New()
	m.RecordHTTPRequest("GET", "/api/status", "200", time.Millisecond)
	m.RecordRateLimited()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `dsc_gateway_http_requests_total{method="GET",path="/api/status",status="200"} 1`)
	assert.Contains(t, body, "dsc_gateway_http_rate_limited_total 1")
}
