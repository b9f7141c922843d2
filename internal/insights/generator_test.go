package insights

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGenerate_SendsPromptAndReturnsContent(t *testing.T) {
	var gotAuth string
	var gotBody map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"message":{"content":"### Summary:\nAll good.\n"}}]}`)
	}))
	defer srv.Close()

	g := NewGenerator("sk-test")
	g.baseURL = srv.URL
	g.httpClient = srv.Client()

	text, err := g.Generate(context.Background(), "Total Sessions: 10", ProfileContext{})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != "### Summary:\nAll good.\n" {
		t.Errorf("text = %q", text)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotBody["model"] != defaultModel {
		t.Errorf("model = %v", gotBody["model"])
	}
	if gotBody["temperature"] != float64(1) {
		t.Errorf("temperature = %v", gotBody["temperature"])
	}
	if gotBody["max_tokens"] != float64(maxTokens) {
		t.Errorf("max_tokens = %v", gotBody["max_tokens"])
	}
}

func TestBuildPrompt_BusinessContext(t *testing.T) {
	p := BuildPrompt("Total Sessions: 10", ProfileContext{
		BusinessName:        "Acme",
		BusinessDescription: "Widgets for everyone",
		Goals:               []string{"grow traffic", "improve conversion"},
	})
	if !strings.Contains(p, "Business context: Acme, Widgets for everyone") {
		t.Errorf("prompt missing business context:\n%s", p)
	}
	if !strings.Contains(p, "ranked goals: grow traffic, improve conversion") {
		t.Errorf("prompt missing goals:\n%s", p)
	}
	if strings.ContainsRune(p, '—') {
		t.Error("business context must use a plain separator, not an em-dash")
	}
}

func TestGenerate_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	g := NewGenerator("sk-test")
	g.baseURL = srv.URL
	g.httpClient = srv.Client()

	_, err := g.Generate(context.Background(), "data", ProfileContext{})
	if !errors.Is(err, ErrGeneration) {
		t.Fatalf("expected ErrGeneration, got %v", err)
	}
}

func TestGenerate_TransportError(t *testing.T) {
	g := NewGenerator("sk-test")
	g.baseURL = "http://127.0.0.1:1" // nothing listens here

	_, err := g.Generate(context.Background(), "data", ProfileContext{})
	if !errors.Is(err, ErrGeneration) {
		t.Fatalf("expected ErrGeneration, got %v", err)
	}
}

func TestGenerate_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	g := NewGenerator("sk-test")
	g.baseURL = srv.URL
	g.httpClient = srv.Client()

	_, err := g.Generate(context.Background(), "data", ProfileContext{})
	if !errors.Is(err, ErrGeneration) {
		t.Fatalf("expected ErrGeneration, got %v", err)
	}
}
