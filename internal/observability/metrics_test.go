package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestRecordWorkoutMutation verifies the mutation counter is labelled by operation.
func TestRecordWorkoutMutation(t *testing.T) {
	before := testutil.ToFloat64(workoutMutations.WithLabelValues("delete"))
	RecordWorkoutMutation("delete")
	RecordWorkoutMutation("delete")
	if got := testutil.ToFloat64(workoutMutations.WithLabelValues("delete")) - before; got != 2 {
		t.Errorf("delete mutations = %v, want 2", got)
	}
}

// TestRecordScoreCorrections verifies corrections accumulate.
func TestRecordScoreCorrections(t *testing.T) {
	before := testutil.ToFloat64(scoreDrift)
	RecordScoreCorrections(3)
	if got := testutil.ToFloat64(scoreDrift) - before; got != 3 {
		t.Errorf("corrections = %v, want 3", got)
	}
}

// TestHandlerExposesMetrics verifies the /metrics handler renders registered series.
func TestHandlerExposesMetrics(t *testing.T) {
	RecordStoreError("list_workouts")
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "liftscore_store_errors_total") {
		t.Error("metrics output missing liftscore_store_errors_total")
	}
}
