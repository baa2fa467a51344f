package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestResponder(t *testing.T, handler http.HandlerFunc) *ChatResponder {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewChatResponder(NewOpenAICompatibleClient(time.Second), ChatConfig{
		BaseURL:     srv.URL,
		APIKey:      "test-key",
		Model:       "llama-3.3-70b-versatile",
		Temperature: 0.3,
	})
}

func TestRespondSuccess(t *testing.T) {
	r := newTestResponder(t, func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", req.URL.Path)
		}
		var body struct {
			Model       string        `json:"model"`
			Temperature float64       `json:"temperature"`
			Messages    []ChatMessage `json:"messages"`
		}
		_ = json.NewDecoder(req.Body).Decode(&body)
		if body.Model != "llama-3.3-70b-versatile" || body.Temperature != 0.3 || len(body.Messages) != 2 {
			t.Errorf("unexpected body %+v", body)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"Transformers use attention."}}]}`))
	})

	reply := r.Respond(context.Background(), []ChatMessage{
		{Role: "system", Content: "ctx"},
		{Role: "user", Content: "what do transformers use?"},
	})
	if !reply.OK() || reply.Content() != "Transformers use attention." {
		t.Fatalf("reply = %+v", reply)
	}
}

func TestRespondFailuresYieldApology(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}},
		{"no choices", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"choices":[]}`))
		}},
		{"empty content", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  "}}]}`))
		}},
		{"timeout", func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(1500 * time.Millisecond)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply := newTestResponder(t, tt.handler).Respond(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}})
			if reply.OK() {
				t.Fatal("expected failure")
			}
			if reply.Content() != ApologyMessage {
				t.Fatalf("content = %q", reply.Content())
			}
		})
	}
}

func TestEmptyCompletionError(t *testing.T) {
	reply := newTestResponder(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":""}}]}`))
	}).Respond(context.Background(), nil)
	if !errors.Is(reply.Err, ErrEmptyCompletion) {
		t.Fatalf("err = %v", reply.Err)
	}
}

func TestCompleteReportsProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limit reached","type":"tokens"}}`))
	}))
	t.Cleanup(srv.Close)

	_, err := NewOpenAICompatibleClient(time.Second).Complete(context.Background(), ChatConfig{BaseURL: srv.URL + "/"}, nil)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("err = %v, want *StatusError", err)
	}
	if statusErr.StatusCode != http.StatusTooManyRequests || statusErr.Message != "rate limit reached" {
		t.Fatalf("status error = %+v", statusErr)
	}
}

func TestCompleteOmitsAuthorizationWithoutKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "" {
			t.Errorf("authorization = %q, want none", got)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"},"finish_reason":"stop"}]}`))
	}))
	t.Cleanup(srv.Close)

	text, err := NewOpenAICompatibleClient(time.Second).Complete(context.Background(), ChatConfig{BaseURL: srv.URL, Model: "local"}, nil)
	if err != nil || text != "ok" {
		t.Fatalf("text = %q, err = %v", text, err)
	}
}
