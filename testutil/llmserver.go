package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// LLMServer is an httptest server speaking the subset of the OpenAI API
// used here: chat completions, model listing and embeddings.
type LLMServer struct {
	*httptest.Server

	mu       sync.Mutex
	reply    string
	status   int
	rawBody  string
	models   []string
	requests []map[string]interface{}
}

// NewLLMServer starts a server replying to chat completions with reply.
func NewLLMServer(t *testing.T, reply string) *LLMServer {
	t.Helper()
	s := &LLMServer{reply: reply, status: http.StatusOK}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", s.handleChat)
	mux.HandleFunc("/v1/models", s.handleModels)
	mux.HandleFunc("/v1/embeddings", s.handleEmbeddings)
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// BaseURL returns the OpenAI-style base URL ("<server>/v1").
func (s *LLMServer) BaseURL() string {
	return s.URL + "/v1"
}

// SetReply changes the completion text.
func (s *LLMServer) SetReply(reply string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reply = reply
}

// SetStatus makes chat completions fail with status.
func (s *LLMServer) SetStatus(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

// SetRawBody makes chat completions return body verbatim with status 200.
func (s *LLMServer) SetRawBody(body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rawBody = body
}

// SetModels sets the ids reported by /v1/models.
func (s *LLMServer) SetModels(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.models = ids
}

// Requests returns the decoded chat completion request bodies seen so far.
func (s *LLMServer) Requests() []map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]interface{}, len(s.requests))
	copy(out, s.requests)
	return out
}

func (s *LLMServer) handleChat(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	_ = json.NewDecoder(r.Body).Decode(&body)

	s.mu.Lock()
	s.requests = append(s.requests, body)
	reply, status, raw := s.reply, s.status, s.rawBody
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if status != http.StatusOK {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":{"message":"model not loaded","type":"server_error"}}`))
		return
	}
	if raw != "" {
		_, _ = w.Write([]byte(raw))
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   body["model"],
		"choices": []map[string]interface{}{
			{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": reply},
				"finish_reason": "stop",
			},
		},
	})
}

func (s *LLMServer) handleModels(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	ids := append([]string(nil), s.models...)
	s.mu.Unlock()

	data := make([]map[string]interface{}, len(ids))
	for i, id := range ids {
		data[i] = map[string]interface{}{"id": id, "object": "model", "owned_by": "test"}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"object": "list", "data": data})
}

func (s *LLMServer) handleEmbeddings(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Input []string `json:"input"`
		Model string   `json:"model"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	data := make([]map[string]interface{}, len(body.Input))
	for i, text := range body.Input {
		data[i] = map[string]interface{}{
			"object":    "embedding",
			"index":     i,
			"embedding": LetterEmbedding(text),
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"object": "list",
		"data":   data,
		"model":  body.Model,
	})
}

// LetterEmbedding is a deterministic 26-dimension letter-frequency vector,
// enough to make texts sharing words rank close to each other.
func LetterEmbedding(text string) []float32 {
	vec := make([]float32, 26)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			vec[r-'a']++
		}
	}
	return vec
}
