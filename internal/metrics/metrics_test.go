package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_LabelsByPattern(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	handler := Middleware(mux)

	for _, id := range []string{"1", "2"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/"+id, nil))
		assert.Equal(t, http.StatusTeapot, rec.Code)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(httpRequests.WithLabelValues("GET", "GET /items/{id}", "418")))
}

func TestMiddleware_Flushes(t *testing.T) {
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		f, ok := w.(http.Flusher)
		require.True(t, ok)
		_, _ = w.Write([]byte("data"))
		f.Flush()
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stream", nil))
	assert.True(t, rec.Flushed)
}

func TestRecorders(t *testing.T) {
	RecordAnalysis("completed")
	assert.Equal(t, 1.0, testutil.ToFloat64(analyses.WithLabelValues("completed")))

	before := testutil.ToFloat64(creditsDeducted)
	RecordCredits(2)
	RecordCredits(-1)
	assert.Equal(t, before+2, testutil.ToFloat64(creditsDeducted))

	RecordUpload("pdf")
	assert.Equal(t, 1.0, testutil.ToFloat64(uploads.WithLabelValues("pdf")))

	ObserveLLMRequest("test-model", 1500*time.Millisecond, nil)
	ObserveLLMRequest("test-model", time.Second, errors.New("boom"))
	assert.Equal(t, 2, testutil.CollectAndCount(llmDuration))
}

func TestHandler_ExposesCollectors(t *testing.T) {
	RecordUpload("docx")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "resume_uploads_total"))
}
