package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func fakeOpenAI(t *testing.T, content string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing auth header")
		}
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		})
	}))
}

func newTestEnricher(t *testing.T, baseURL string) *Enricher {
	t.Helper()
	client, err := NewClient(Config{APIKey: "test-key", BaseURL: baseURL}, zap.NewNop())
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	return NewEnricher(client, zap.NewNop())
}

func TestEnricher_RewritesMessage(t *testing.T) {
	server := fakeOpenAI(t, "Biscuit's rabies shot is due in a week, time to book the vet!", http.StatusOK)
	defer server.Close()

	enricher := newTestEnricher(t, server.URL)
	got, err := enricher.Enrich(context.Background(), "Rabies vaccination",
		`Upcoming: "Rabies vaccination" is due in 7 days.`, "l1")
	if err != nil {
		t.Fatalf("enrich failed: %v", err)
	}
	if got != "Biscuit's rabies shot is due in a week, time to book the vet!" {
		t.Errorf("got %q", got)
	}
}

func TestEnricher_EmptyCompletionIsError(t *testing.T) {
	server := fakeOpenAI(t, "   ", http.StatusOK)
	defer server.Close()

	enricher := newTestEnricher(t, server.URL)
	if _, err := enricher.Enrich(context.Background(), "Checkup", "msg", "l2"); err == nil {
		t.Fatal("expected error for empty completion")
	}
}

func TestEnricher_APIErrorPropagates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"message": "rate limited", "type": "rate_limit"},
		})
	}))
	defer server.Close()

	enricher := newTestEnricher(t, server.URL)
	if _, err := enricher.Enrich(context.Background(), "Checkup", "msg", "final"); err == nil {
		t.Fatal("expected error from API failure")
	}
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	if _, err := NewClient(Config{}, zap.NewNop()); err == nil {
		t.Fatal("expected error without api key")
	}
}
