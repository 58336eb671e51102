package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenAI_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Error("missing or wrong Authorization header")
		}
		resp := openaiResponse{
			Choices: []openaiChoice{
				{Message: openaiMessage{Role: "assistant", Content: "review text"}},
			},
			Usage: openaiUsage{TotalTokens: 42},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	o := &OpenAI{apiKey: "test-key", model: "gpt-4o", apiURL: server.URL, client: server.Client()}

	resp, err := o.Generate(context.Background(), Request{Prompt: "review this"})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if resp.Content != "review text" {
		t.Errorf("Content = %q, want %q", resp.Content, "review text")
	}
	if resp.Provider != "openai" {
		t.Errorf("Provider = %q, want openai", resp.Provider)
	}
	if resp.TokensUsed != 42 {
		t.Errorf("TokensUsed = %d, want 42", resp.TokensUsed)
	}
}

func TestOpenAI_Temperature(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req openaiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if req.Temperature == nil || *req.Temperature != 0.3 {
			t.Errorf("Temperature = %v, want 0.3", req.Temperature)
		}
		resp := openaiResponse{
			Choices: []openaiChoice{{Message: openaiMessage{Content: "ok"}}},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	o := &OpenAI{apiKey: "k", apiURL: server.URL, client: server.Client()}

	if _, err := o.Generate(context.Background(), Request{Prompt: "x", Temperature: 0.3}); err != nil {
		t.Fatalf("Generate error: %v", err)
	}
}

func TestOpenAI_AuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(403)
		w.Write([]byte(`{"error":"forbidden"}`))
	}))
	defer server.Close()

	o := &OpenAI{apiKey: "bad", apiURL: server.URL, client: server.Client()}

	_, err := o.Generate(context.Background(), Request{Prompt: "x"})
	if !IsAuthError(err) {
		t.Fatalf("expected AuthError, got %v", err)
	}
}

func TestOpenAI_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(openaiResponse{})
	}))
	defer server.Close()

	o := &OpenAI{apiKey: "k", apiURL: server.URL, client: server.Client()}

	_, err := o.Generate(context.Background(), Request{Prompt: "x"})
	var re *ResponseError
	if !errors.As(err, &re) {
		t.Fatalf("expected ResponseError, got %v", err)
	}
}

func TestOpenAI_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	o := &OpenAI{apiKey: "k", apiURL: server.URL, client: &http.Client{}}

	_, err := o.Generate(context.Background(), Request{Prompt: "x"})
	var ne *NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
}
