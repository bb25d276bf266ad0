package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_IndependentRegistries(t *testing.T) {
	a, b := New(), New()

	a.Payments.WithLabelValues("transfer").Inc()
	a.Payments.WithLabelValues("transfer").Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(a.Payments.WithLabelValues("transfer")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Payments.WithLabelValues("transfer")))
}

func TestMetrics_HandlerExposesCounters(t *testing.T) {
	m := New()
	m.BillingsOverdue.Add(3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "rental_billings_marked_overdue_total 3")
}
