package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"docqa/internal/domain"
)

type stubInvoker struct {
	result    domain.Result
	threshold float64
	lastQuery string
	lastHist  []domain.Message
}

func (s *stubInvoker) Invoke(ctx context.Context, query string, history []domain.Message) domain.Result {
	s.lastQuery = query
	s.lastHist = history
	return s.result
}

func (s *stubInvoker) Threshold() float64 { return s.threshold }

type stubStats struct {
	stats domain.IndexStats
}

func (s *stubStats) Stats() domain.IndexStats { return s.stats }

func newTestServer(inv *stubInvoker, st *stubStats) *httptest.Server {
	return httptest.NewServer(New(inv, st, nil))
}

func postAsk(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url+"/ask", "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestAskAnswerResponse(t *testing.T) {
	inv := &stubInvoker{
		threshold: 0.9,
		result: domain.Result{
			Answer: "Refunds take 14 days.",
			Chunks: []domain.Chunk{
				{ID: "a", Source: "refunds.md", Text: "..."},
				{ID: "b", Source: "terms.md", Text: "..."},
			},
			Distances: []float64{0.51234567, 1.2},
		},
	}
	ts := newTestServer(inv, &stubStats{})
	defer ts.Close()

	resp := postAsk(t, ts.URL, map[string]any{"query": "how long do refunds take?"})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body askResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "completed" {
		t.Errorf("expected completed, got %s", body.Status)
	}
	if body.Answer != "Refunds take 14 days." {
		t.Errorf("unexpected answer %q", body.Answer)
	}
	if body.NeedsClarification {
		t.Error("answer path must not flag clarification")
	}
	if len(body.Steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(body.Steps))
	}
	if body.Steps[0].Step != "retrieve" || body.Steps[0].DocsFound == nil || *body.Steps[0].DocsFound != 2 {
		t.Errorf("unexpected retrieve step: %+v", body.Steps[0])
	}
	if body.Steps[1].Step != "decision" || body.Steps[1].Clarify == nil || *body.Steps[1].Clarify {
		t.Errorf("unexpected decision step: %+v", body.Steps[1])
	}
	if body.Steps[2].Step != "answer" {
		t.Errorf("expected answer terminal step, got %s", body.Steps[2].Step)
	}
	if len(body.Documents) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(body.Documents))
	}
	if body.Documents[0].Source != "refunds.md" || body.Documents[0].Score != 0.5123 {
		t.Errorf("unexpected first document: %+v", body.Documents[0])
	}
	if inv.lastQuery != "how long do refunds take?" {
		t.Errorf("query not forwarded, got %q", inv.lastQuery)
	}
}

func TestAskClarifyResponse(t *testing.T) {
	inv := &stubInvoker{
		threshold: 0.9,
		result: domain.Result{
			Answer:             "Could you be more specific?",
			NeedsClarification: true,
		},
	}
	ts := newTestServer(inv, &stubStats{})
	defer ts.Close()

	resp := postAsk(t, ts.URL, map[string]any{"query": "off topic"})
	defer resp.Body.Close()

	var body askResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if !body.NeedsClarification {
		t.Error("expected clarification flag")
	}
	if body.Steps[2].Step != "clarify" {
		t.Errorf("expected clarify terminal step, got %s", body.Steps[2].Step)
	}
	if len(body.Documents) != 0 {
		t.Errorf("expected no documents, got %d", len(body.Documents))
	}
}

func TestAskRejectsBlankQuery(t *testing.T) {
	ts := newTestServer(&stubInvoker{}, &stubStats{})
	defer ts.Close()

	resp := postAsk(t, ts.URL, map[string]any{"query": "   "})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestAskRejectsInvalidJSON(t *testing.T) {
	ts := newTestServer(&stubInvoker{}, &stubStats{})
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/ask", "application/json", bytes.NewReader([]byte("{not json")))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestAskForwardsHistory(t *testing.T) {
	inv := &stubInvoker{}
	ts := newTestServer(inv, &stubStats{})
	defer ts.Close()

	resp := postAsk(t, ts.URL, map[string]any{
		"query": "follow-up",
		"history": []map[string]string{
			{"role": "user", "content": "first"},
			{"role": "assistant", "content": "reply"},
		},
	})
	resp.Body.Close()

	if len(inv.lastHist) != 2 {
		t.Fatalf("expected 2 history messages, got %d", len(inv.lastHist))
	}
	if inv.lastHist[0].Role != domain.RoleUser || inv.lastHist[0].Content != "first" {
		t.Errorf("unexpected first history message: %+v", inv.lastHist[0])
	}
}

func TestStatsEndpoint(t *testing.T) {
	st := &stubStats{stats: domain.IndexStats{
		Status:         domain.StatusReady,
		Documents:      3,
		TotalChunks:    42,
		EmbeddingModel: "text-embedding-3-small",
		TopK:           2,
	}}
	ts := newTestServer(&stubInvoker{threshold: 0.9}, st)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/stats")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ready" {
		t.Errorf("expected ready, got %v", body["status"])
	}
	if body["total_chunks"] != float64(42) {
		t.Errorf("expected 42 chunks, got %v", body["total_chunks"])
	}
	if body["distance_threshold"] != 0.9 {
		t.Errorf("expected threshold 0.9, got %v", body["distance_threshold"])
	}
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(&stubInvoker{}, &stubStats{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	ts := newTestServer(&stubInvoker{}, &stubStats{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/ask")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
}
