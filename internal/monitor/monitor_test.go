package monitor

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandleHealth(t *testing.T) {
	s := NewServer(":0")
	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()

	s.handleHealth(w, req)

	assert.Equal(t, 200, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestHandleProgress(t *testing.T) {
	s := NewServer(":0")
	s.Progress.Set(3, 10, "enumerating")

	req := httptest.NewRequest("GET", "/progress", nil)
	w := httptest.NewRecorder()
	s.handleProgress(w, req)

	assert.JSONEq(t, `{"vessel":3,"total":10,"phase":"enumerating"}`, w.Body.String())
}

func TestHandleMetrics(t *testing.T) {
	s := NewServer(":0")
	s.Counters.AddVesselsProcessed(4)
	s.Counters.AddTriplesEnumerated(120)

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	s.handleMetrics(w, req)

	assert.Contains(t, w.Body.String(), "relicsort_vessels_processed_total 4")
	assert.Contains(t, w.Body.String(), "relicsort_triples_enumerated_total 120")
}
