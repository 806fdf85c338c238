package monitoring

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campuswiki/backend/internal/domain"
	"campuswiki/backend/internal/moderation"
)

func TestRecordModeration(t *testing.T) {
	m := NewMetrics()

	m.RecordModeration(moderation.ModerationResult{
		Action:      moderation.ActionReject,
		SpamScore:   85,
		ContentType: domain.ContentWiki,
		FilterViolations: []moderation.FilterViolation{
			{Type: moderation.ViolationHateSpeech, Severity: moderation.SeverityHigh},
			{Type: moderation.ViolationPersonalInfo, Severity: moderation.SeverityHigh},
		},
		Reputation: moderation.ReputationSummary{Fallback: moderation.FallbackTimeout},
	}, 3*time.Millisecond)
	m.RecordModeration(moderation.ModerationResult{Action: moderation.ActionApprove}, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ModerationDecisions.WithLabelValues("reject", "wiki")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ModerationDecisions.WithLabelValues("approve", "unknown")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FilterViolations.WithLabelValues("hate_speech", "high")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReputationFallbacks.WithLabelValues("timeout")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ReputationFallbacks))
}

func TestRecordCounters(t *testing.T) {
	m := NewMetrics()

	m.RecordPanic()
	m.RecordRateLimitBlock("ip")
	m.RecordRateLimitBlock("ip")
	m.RecordConfigReload(true)
	m.RecordConfigReload(false)
	m.RecordSubmissionStored("flagged")
	m.RecordError("store", "submission")
	m.RecordHTTPRequest("POST", "/v1/moderation/check", "200", 10*time.Millisecond, 512)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.PanicsTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RateLimitBlocks.WithLabelValues("ip")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConfigReloads.WithLabelValues("rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SubmissionsStored.WithLabelValues("flagged")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "/v1/moderation/check", "200")))
}

func TestHTTPHandler(t *testing.T) {
	m := NewMetrics()
	m.RecordPanic()

	// 两个实例互不冲突
	other := NewMetrics()
	other.RecordPanic()

	rec := httptest.NewRecorder()
	m.HTTPHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "campuswiki_panics_total 1")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestUpdateDatabasePoolNil(t *testing.T) {
	m := NewMetrics()
	assert.NotPanics(t, func() { m.UpdateDatabasePool(nil) })
}
