package telemetry

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GrantScanner/internal/domain"
)

func TestRecorderCounters(t *testing.T) {
	t.Parallel()

	r := NewRecorder()
	r.RecordProcessed(domain.CategoryApproved)
	r.RecordProcessed(domain.CategoryApproved)
	r.RecordProcessed(domain.CategoryStale)
	r.RecordSkipped()

	assert.Equal(t, 2.0, testutil.ToFloat64(r.processed.WithLabelValues("APPROVED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.processed.WithLabelValues("STALE")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.processed.WithLabelValues("REJECTED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.skipped))
}

func TestRecorderRefresh(t *testing.T) {
	t.Parallel()

	r := NewRecorder()
	at := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	r.RecordRefresh(at, nil)
	r.RecordRefresh(at.Add(time.Hour), errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(r.refreshes.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.refreshes.WithLabelValues("error")))
	assert.Equal(t, float64(at.Unix()), testutil.ToFloat64(r.lastRun))
}

func TestRecorderHandler(t *testing.T) {
	t.Parallel()

	r := NewRecorder()
	r.RecordSkipped()

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "grantscanner_proposals_skipped_total 1")
	assert.Contains(t, string(body), `grantscanner_proposals_processed_total{category="PENDING"} 0`)
}
