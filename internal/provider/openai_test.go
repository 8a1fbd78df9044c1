package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/parley/parley/internal/model"
)

// fakeUpstream serves the OpenAI-compatible chat completion wire format.
func fakeUpstream(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(Config{
		APIKey:      "test-key",
		BaseURL:     srv.URL + "/v1",
		Model:       "test-model",
		MaxTokens:   100,
		Temperature: 0.7,
	})
}

func completionJSON(content string) string {
	body, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   "test-model",
		"choices": []map[string]any{
			{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
	})
	return string(body)
}

func TestClient_Complete(t *testing.T) {
	var gotReq struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
		MaxTokens int `json:"max_tokens"`
	}

	client := fakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionJSON("Hello there!"))
	})

	messages := []*model.Message{
		{Role: model.RoleUser, Content: "Hi"},
	}

	content, err := client.Complete(context.Background(), messages)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if content != "Hello there!" {
		t.Errorf("content: got %q, want %q", content, "Hello there!")
	}

	if gotReq.Model != "test-model" {
		t.Errorf("model: got %q", gotReq.Model)
	}
	if gotReq.MaxTokens != 100 {
		t.Errorf("max_tokens: got %d, want 100", gotReq.MaxTokens)
	}
	// System prompt leads, then the transcript
	if len(gotReq.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(gotReq.Messages))
	}
	if gotReq.Messages[0].Role != "system" {
		t.Errorf("first message role: got %q, want system", gotReq.Messages[0].Role)
	}
	if gotReq.Messages[1].Role != "user" || gotReq.Messages[1].Content != "Hi" {
		t.Errorf("transcript not forwarded: %+v", gotReq.Messages[1])
	}
}

func TestClient_Complete_EmptyContent(t *testing.T) {
	client := fakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionJSON(""))
	})

	_, err := client.Complete(context.Background(), []*model.Message{
		{Role: model.RoleUser, Content: "Hi"},
	})
	if !errors.Is(err, ErrEmptyCompletion) {
		t.Fatalf("expected ErrEmptyCompletion, got %v", err)
	}
}

func TestClient_Complete_NoChoices(t *testing.T) {
	client := fakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"x","object":"chat.completion","choices":[]}`)
	})

	_, err := client.Complete(context.Background(), []*model.Message{
		{Role: model.RoleUser, Content: "Hi"},
	})
	if !errors.Is(err, ErrEmptyCompletion) {
		t.Fatalf("expected ErrEmptyCompletion, got %v", err)
	}
}

func TestClient_Complete_UpstreamError(t *testing.T) {
	client := fakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":{"message":"boom"}}`)
	})

	_, err := client.Complete(context.Background(), []*model.Message{
		{Role: model.RoleUser, Content: "Hi"},
	})
	if err == nil {
		t.Fatal("expected error for upstream 500")
	}
}

func TestClient_Complete_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(250 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionJSON("too late"))
	}))
	t.Cleanup(srv.Close)

	client := NewClient(Config{
		APIKey:  "test-key",
		BaseURL: srv.URL + "/v1",
		Model:   "test-model",
		Timeout: 25 * time.Millisecond,
	})

	_, err := client.Complete(context.Background(), []*model.Message{
		{Role: model.RoleUser, Content: "Hi"},
	})
	if err == nil {
		t.Fatal("expected timeout error for slow upstream")
	}
}

func TestClient_StreamCompletion(t *testing.T) {
	client := fakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		chunks := []string{"Hel", "", "lo"}
		for _, c := range chunks {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", c)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	stream, err := client.StreamCompletion(context.Background(), []*model.Message{
		{Role: model.RoleUser, Content: "Hi"},
	})
	if err != nil {
		t.Fatalf("StreamCompletion failed: %v", err)
	}
	defer stream.Close()

	var got []string
	for {
		fragment, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Recv failed: %v", err)
		}
		got = append(got, fragment)
	}

	// Empty deltas are skipped
	want := []string{"Hel", "lo"}
	if len(got) != len(want) {
		t.Fatalf("fragments: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("fragment %d: got %q, want %q", i, got[i], want[i])
		}
	}
}
