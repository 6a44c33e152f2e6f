package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestTimeoutPassesThroughFastHandler(t *testing.T) {
	h := Timeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"job_id":"job-1","status":"queued"}`))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ingest", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}
	if rec.Body.String() != `{"job_id":"job-1","status":"queued"}` {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestTimeoutSlowHandlerGets504(t *testing.T) {
	release := make(chan struct{})
	lateWrite := make(chan error, 1)
	h := Timeout(20*time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		// This write happens after the deadline; it must be rejected, not
		// race the timeout response.
		_, err := w.Write([]byte("late body"))
		lateWrite <- err
	}))

	rec := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ingest", nil))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("middleware did not respond after the deadline")
	}
	if rec.Code != http.StatusGatewayTimeout {
		t.Fatalf("status = %d, want 504", rec.Code)
	}
	if rec.Body.String() != `{"error":"request timeout"}` {
		t.Errorf("body = %q", rec.Body.String())
	}

	close(release)
	select {
	case err := <-lateWrite:
		if err != http.ErrHandlerTimeout {
			t.Errorf("late write error = %v, want http.ErrHandlerTimeout", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("detached handler never finished")
	}
}

func TestTimeoutHandlerStatusPreserved(t *testing.T) {
	h := Timeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"validation failed"}`))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ingest", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
