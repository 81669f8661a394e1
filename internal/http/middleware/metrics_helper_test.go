package middleware

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func counterValue(t *testing.T, method, path, status string) float64 {
	t.Helper()
	c, err := httpReqs.GetMetricWithLabelValues(method, path, status)
	if err != nil {
		t.Fatalf("labels: %v", err)
	}
	return testutil.ToFloat64(c)
}
