package graphqlhttp

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	schemamap "github.com/hanpama/schemamap"
)

func newTestHandler(t *testing.T, opts ...Option) *Handler {
	t.Helper()
	reg := schemamap.NewRegistry()
	err := reg.Bind(
		schemamap.Query("hello", func() string { return "world" }),
		schemamap.Query("whoami", func(bag *schemamap.ContextBag) string {
			v, _ := bag.Get("x-user")
			s, _ := v.(string)
			return s
		}),
	)
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	svc, err := schemamap.NewService(`type Query { hello: String whoami: String }`, reg, nil)
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	return New(svc, opts...)
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) *schemamap.Response {
	t.Helper()
	var res schemamap.Response
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return &res
}

func TestPostQuery(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest("POST", "/", bytes.NewBufferString(`{"query":"{ hello }"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	res := decodeResponse(t, w)
	data := res.Data.(map[string]any)
	if data["hello"] != "world" {
		t.Fatalf("unexpected data: %v", res.Data)
	}
}

func TestGetQuery(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest("GET", "/?query={hello}", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	res := decodeResponse(t, w)
	if res.Data.(map[string]any)["hello"] != "world" {
		t.Fatalf("unexpected data: %v", res.Data)
	}
}

func TestBatchedRequests(t *testing.T) {
	h := newTestHandler(t)

	body := `[{"query":"{ hello }"},{"query":"{ hello }"}]`
	req := httptest.NewRequest("POST", "/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var out []*schemamap.Response
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode batch: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 responses, got %d", len(out))
	}
}

func TestBagHeaders(t *testing.T) {
	h := newTestHandler(t, WithBagHeaders("X-User"))

	req := httptest.NewRequest("POST", "/", bytes.NewBufferString(`{"query":"{ whoami }"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User", "alice")
	req.Header.Set("X-Other", "nope")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	res := decodeResponse(t, w)
	if res.Data.(map[string]any)["whoami"] != "alice" {
		t.Fatalf("header not seeded into bag: %v", res.Data)
	}
}

func TestBagHeadersDefaultEmpty(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest("POST", "/", bytes.NewBufferString(`{"query":"{ whoami }"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User", "alice")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	res := decodeResponse(t, w)
	if got := res.Data.(map[string]any)["whoami"]; got != "" && got != nil {
		t.Fatalf("header should not be forwarded by default: %v", got)
	}
}

func TestCORSAndPreflight(t *testing.T) {
	h := newTestHandler(t, WithCORS("*"))

	req := httptest.NewRequest("POST", "/", bytes.NewBufferString(`{"query":"{ hello }"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "http://example.com")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing CORS header")
	}

	pre := httptest.NewRequest("OPTIONS", "/", nil)
	pre.Header.Set("Origin", "http://example.com")
	pre.Header.Set("Access-Control-Request-Headers", "X-User")
	pw := httptest.NewRecorder()
	h.ServeHTTP(pw, pre)
	if pw.Code != http.StatusNoContent {
		t.Fatalf("preflight status %d", pw.Code)
	}
	if pw.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("preflight missing CORS header")
	}
	if pw.Header().Get("Access-Control-Allow-Headers") != "X-User" {
		t.Fatalf("preflight missing allow headers")
	}
}

func TestMaxBodyBytes(t *testing.T) {
	h := newTestHandler(t, WithMaxBodyBytes(10))

	req := httptest.NewRequest("POST", "/", bytes.NewBufferString(`{"query":"1234567890"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 got %d", w.Code)
	}
}

func TestMalformedRequests(t *testing.T) {
	h := newTestHandler(t)

	cases := []struct {
		name string
		req  *http.Request
		want int
	}{
		{"missing query", httptest.NewRequest("POST", "/", strings.NewReader(`{}`)), http.StatusBadRequest},
		{"invalid json", httptest.NewRequest("POST", "/", strings.NewReader(`{`)), http.StatusBadRequest},
		{"empty batch", httptest.NewRequest("POST", "/", strings.NewReader(`[]`)), http.StatusBadRequest},
		{"bad method", httptest.NewRequest("PUT", "/", nil), http.StatusMethodNotAllowed},
		{"missing get query", httptest.NewRequest("GET", "/", nil), http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, tc.req)
			if w.Code != tc.want {
				t.Fatalf("expected %d got %d", tc.want, w.Code)
			}
		})
	}
}
