package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) result {
	t.Helper()
	var res result
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return res
}

func TestHealthz_AlwaysOK(t *testing.T) {
	h := New(Checker{Name: "broken", Check: func(context.Context) error {
		return errors.New("down")
	}})

	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if res := decode(t, rec); res.Status != "ok" {
		t.Errorf("body status = %q, want ok", res.Status)
	}
}

func TestReadyz_AllPass(t *testing.T) {
	h := New(
		Checker{Name: "extractor", Check: func(context.Context) error { return nil }},
		Checker{Name: "feedback", Check: func(context.Context) error { return nil }},
	)

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	res := decode(t, rec)
	if res.Status != "ok" {
		t.Errorf("body status = %q, want ok", res.Status)
	}
	if res.Checks["extractor"] != "ok" || res.Checks["feedback"] != "ok" {
		t.Errorf("checks = %v", res.Checks)
	}
}

func TestReadyz_OneFails(t *testing.T) {
	h := New(
		Checker{Name: "extractor", Check: func(context.Context) error { return nil }},
		Checker{Name: "feedback", Check: func(context.Context) error {
			return errors.New("connection refused")
		}},
	)

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	res := decode(t, rec)
	if res.Status != "fail" {
		t.Errorf("body status = %q, want fail", res.Status)
	}
	if res.Checks["feedback"] != "fail: connection refused" {
		t.Errorf("feedback check = %q", res.Checks["feedback"])
	}
	if res.Checks["extractor"] != "ok" {
		t.Errorf("extractor check = %q", res.Checks["extractor"])
	}
}

func TestReadyz_NoCheckers(t *testing.T) {
	rec := httptest.NewRecorder()
	New().Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestRegister_Routes(t *testing.T) {
	mux := http.NewServeMux()
	New().Register(mux)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /healthz = %d, want 405", rec.Code)
	}
}
