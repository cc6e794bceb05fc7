package api

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/synheart/synheart-physio/internal/catalog"
	"github.com/synheart/synheart-physio/internal/export"
	"github.com/synheart/synheart-physio/internal/models"
)

func newTestServer(token string, gzipOK bool, writer export.Writer) *Server {
	return NewServer(Config{Host: "127.0.0.1", Port: 8787, Token: token, AcceptGzip: gzipOK}, nil, nil, writer)
}

func simulateRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/v1/simulate", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer test-token")
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) simulateResponse {
	t.Helper()
	var resp simulateResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response JSON: %v\n%s", err, rr.Body.String())
	}
	return resp
}

func TestHandleSimulate_Preset(t *testing.T) {
	var buf bytes.Buffer
	server := newTestServer("test-token", false, export.NewStdoutWriter(&buf, export.FormatNDJSON))

	rr := serve(server, simulateRequest(`{"preset":"relaxed","seed":42,"duration":2}`))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	resp := decode(t, rr)
	if resp.Receipt.Preset != "relaxed" || resp.Receipt.Seed != 42 {
		t.Errorf("unexpected receipt: %+v", resp.Receipt)
	}
	if resp.Receipt.Samples["ecg"] != 2000 || resp.Receipt.Samples["eeg"] != 500 || resp.Receipt.Samples["eda"] != 500 {
		t.Errorf("unexpected sample counts: %v", resp.Receipt.Samples)
	}
	if resp.Bundle == nil || resp.Bundle.EEG.Len() != 500 {
		t.Fatal("expected traces in response")
	}
	if resp.Summary != nil {
		t.Error("summary should only be sent on request")
	}

	exports, err := export.ReadJSON(&buf)
	if err != nil {
		t.Fatalf("expected bundle to be exported: %v", err)
	}
	if exports[0].RunID != resp.Receipt.RunID {
		t.Errorf("export run id %s does not match receipt %s", exports[0].RunID, resp.Receipt.RunID)
	}

	if server.GetStats().TotalRuns != 1 {
		t.Errorf("expected 1 run, got %+v", server.GetStats())
	}
}

func TestHandleSimulate_CustomSummary(t *testing.T) {
	server := newTestServer("test-token", false, nil)

	rr := serve(server, simulateRequest(`{"custom":{"label":"flow","heart_rate":72,"frequencies":[12],"scr_number":3},"seed":1,"include":"summary"}`))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	resp := decode(t, rr)
	if resp.Bundle != nil {
		t.Error("summary responses must not carry traces")
	}
	if resp.Summary == nil || resp.Summary.Preset != "flow" {
		t.Fatalf("unexpected summary: %+v", resp.Summary)
	}
	if resp.Summary.DominantFrequency != 12 {
		t.Errorf("expected 12 Hz dominant rhythm, got %v", resp.Summary.DominantFrequency)
	}
}

func TestHandleSimulate_InvalidToken(t *testing.T) {
	server := newTestServer("test-token", false, nil)

	req := simulateRequest(`{"preset":"relaxed"}`)
	req.Header.Set("Authorization", "Bearer wrong-token")
	if rr := serve(server, req); rr.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rr.Code)
	}

	req = simulateRequest(`{"preset":"relaxed"}`)
	req.Header.Del("Authorization")
	if rr := serve(server, req); rr.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rr.Code)
	}

	if server.GetStats().TotalErrors != 2 {
		t.Errorf("expected 2 errors, got %d", server.GetStats().TotalErrors)
	}
}

func TestHandleSimulate_NoTokenConfigured(t *testing.T) {
	server := newTestServer("", false, nil)

	req := simulateRequest(`{"preset":"focused","duration":1}`)
	req.Header.Del("Authorization")
	if rr := serve(server, req); rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestHandleSimulate_BadRequests(t *testing.T) {
	server := newTestServer("test-token", false, nil)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"invalid json", "not valid json", http.StatusBadRequest},
		{"missing preset", `{}`, http.StatusBadRequest},
		{"preset and custom", `{"preset":"relaxed","custom":{"label":"x"}}`, http.StatusBadRequest},
		{"unknown preset", `{"preset":"sleepy"}`, http.StatusNotFound},
		{"negative duration", `{"preset":"relaxed","duration":-1}`, http.StatusUnprocessableEntity},
		{"zero heart rate", `{"custom":{"label":"flat","heart_rate":0,"frequencies":[10]},"duration":1}`, http.StatusUnprocessableEntity},
		{"duration too long", `{"preset":"relaxed","duration":1e300}`, http.StatusUnprocessableEntity},
		{"duration beyond sample limit", `{"preset":"focused","duration":1e6}`, http.StatusUnprocessableEntity},
		{"heart rate faster than sampling", `{"custom":{"label":"x","heart_rate":6e7,"frequencies":[10]},"duration":1}`, http.StatusUnprocessableEntity},
		{"more responses than samples", `{"custom":{"label":"x","heart_rate":70,"frequencies":[10],"scr_number":1000000},"duration":1}`, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(server, simulateRequest(tt.body))
			if rr.Code != tt.want {
				t.Errorf("expected status %d, got %d: %s", tt.want, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestHandleSimulate_WrongMethodAndContentType(t *testing.T) {
	server := newTestServer("test-token", false, nil)

	if rr := serve(server, httptest.NewRequest(http.MethodGet, "/v1/simulate", nil)); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", rr.Code)
	}

	req := simulateRequest(`{"preset":"relaxed"}`)
	req.Header.Set("Content-Type", "text/plain")
	if rr := serve(server, req); rr.Code != http.StatusUnsupportedMediaType {
		t.Errorf("expected status 415, got %d", rr.Code)
	}
}

func TestHandleSimulate_Idempotency(t *testing.T) {
	server := newTestServer("test-token", false, nil)

	req := simulateRequest(`{"preset":"stressed","duration":1}`)
	req.Header.Set("Idempotency-Key", "abc")
	first := decode(t, serve(server, req))

	req = simulateRequest(`{"preset":"stressed","duration":1}`)
	req.Header.Set("Idempotency-Key", "abc")
	second := decode(t, serve(server, req))

	if first.Receipt.RunID != second.Receipt.RunID || first.Receipt.Seed != second.Receipt.Seed {
		t.Errorf("replayed request should return the original run: %+v vs %+v", first.Receipt, second.Receipt)
	}
	if first.Receipt.Duplicate || !second.Receipt.Duplicate {
		t.Errorf("duplicate flag wrong: first=%v second=%v", first.Receipt.Duplicate, second.Receipt.Duplicate)
	}

	stats := server.GetStats()
	if stats.TotalRuns != 1 || stats.TotalDuplicates != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestHandleSimulate_IdempotentReplayRegenerates(t *testing.T) {
	server := newTestServer("test-token", false, nil)

	send := func() simulateResponse {
		req := simulateRequest(`{"custom":{"label":"calm","heart_rate":64,"frequencies":[9],"scr_number":1},"duration":2}`)
		req.Header.Set("Idempotency-Key", "same-run")
		return decode(t, serve(server, req))
	}
	first := send()
	second := send()

	if first.Bundle == nil || second.Bundle == nil {
		t.Fatal("both responses should carry the bundle")
	}
	if !second.Receipt.Duplicate {
		t.Error("second response should be marked duplicate")
	}
	if second.Receipt.RunID != first.Receipt.RunID || second.Receipt.CreatedAt != first.Receipt.CreatedAt {
		t.Errorf("receipt changed on replay: %+v vs %+v", first.Receipt, second.Receipt)
	}
	if diff := cmp.Diff(first.Bundle, second.Bundle); diff != "" {
		t.Errorf("replayed bundle differs (-first +second):\n%s", diff)
	}

	cached, ok := server.idempotent.Get("same-run")
	if !ok {
		t.Fatal("run should be cached")
	}
	if cached.request.Seed == nil || *cached.request.Seed != first.Receipt.Seed {
		t.Errorf("cached request should pin seed %d, got %v", first.Receipt.Seed, cached.request.Seed)
	}
}

func TestHandleSimulate_Gzip(t *testing.T) {
	var compressed bytes.Buffer
	gz := gzip.NewWriter(&compressed)
	gz.Write([]byte(`{"preset":"relaxed","duration":1}`))
	gz.Close()

	newReq := func() *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/v1/simulate", bytes.NewReader(compressed.Bytes()))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer test-token")
		req.Header.Set("Content-Encoding", "gzip")
		return req
	}

	if rr := serve(newTestServer("test-token", true, nil), newReq()); rr.Code != http.StatusOK {
		t.Errorf("expected status 200 with gzip enabled, got %d: %s", rr.Code, rr.Body.String())
	}
	if rr := serve(newTestServer("test-token", false, nil), newReq()); rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 with gzip disabled, got %d", rr.Code)
	}
}

func TestHandlePresets(t *testing.T) {
	registry, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	server := NewServer(Config{}, nil, registry, nil)

	rr := serve(server, httptest.NewRequest(http.MethodGet, "/v1/presets", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var body struct {
		Presets []struct {
			Name     string   `json:"name"`
			Builtin  bool     `json:"builtin"`
			Warnings []string `json:"warnings"`
		} `json:"presets"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(body.Presets) < 3 || body.Presets[0].Name != "relaxed" || !body.Presets[0].Builtin {
		t.Errorf("unexpected presets: %+v", body.Presets)
	}
}

func TestHealthAndRoot(t *testing.T) {
	server := newTestServer("", false, nil)

	if rr := serve(server, httptest.NewRequest(http.MethodGet, "/health", nil)); rr.Code != http.StatusOK {
		t.Errorf("health: expected 200, got %d", rr.Code)
	}
	if rr := serve(server, httptest.NewRequest(http.MethodGet, "/", nil)); rr.Code != http.StatusOK {
		t.Errorf("root: expected 200, got %d", rr.Code)
	}
	if rr := serve(server, httptest.NewRequest(http.MethodGet, "/nope", nil)); rr.Code != http.StatusNotFound {
		t.Errorf("unknown path: expected 404, got %d", rr.Code)
	}
}

func TestIdempotencyStoreEvicts(t *testing.T) {
	store := NewIdempotencyStore(2)
	store.Put("a", models.Receipt{RunID: "a"}, models.SimulateRequest{Preset: "relaxed"})
	store.Put("b", models.Receipt{RunID: "b"}, models.SimulateRequest{Preset: "relaxed"})
	store.Put("c", models.Receipt{RunID: "c"}, models.SimulateRequest{Preset: "relaxed"})

	if store.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", store.Len())
	}
	if _, ok := store.Get("c"); !ok {
		t.Error("newest entry should be kept")
	}
}
