package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/sjlee-edu/mathtutor/internal/model"
)

// newTestServer serves a minimal chat-completion response and counts calls.
func newTestServer(t *testing.T, content string, calls *atomic.Int64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(srv *httptest.Server) *Client {
	return New(srv.URL, "test-key", Config{
		FeedbackModel:     "gpt-4o-mini",
		VisionModel:       "gpt-4o",
		HintModel:         "gpt-4.1",
		FeedbackMaxTokens: 300,
		HintMaxTokens:     100,
	})
}

func TestAnalyzeImageCachesByBytes(t *testing.T) {
	var calls atomic.Int64
	srv := newTestServer(t, "  학생은 x=3이라고 풀었습니다.  ", &calls)
	c := newTestClient(srv)

	img := model.ImageUpload{Data: []byte("fake-png-bytes"), MIME: "image/png"}

	first, err := c.AnalyzeImage(context.Background(), img)
	if err != nil {
		t.Fatalf("AnalyzeImage: %v", err)
	}
	if first != "학생은 x=3이라고 풀었습니다." {
		t.Errorf("expected trimmed analysis, got %q", first)
	}

	second, err := c.AnalyzeImage(context.Background(), img)
	if err != nil {
		t.Fatalf("AnalyzeImage cached: %v", err)
	}
	if second != first {
		t.Errorf("cache must return identical text: %q vs %q", second, first)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("identical image must not re-call the API, got %d calls", got)
	}

	// Different MIME for the same bytes is a different key.
	if _, err := c.AnalyzeImage(context.Background(), model.ImageUpload{Data: []byte("fake-png-bytes"), MIME: "image/jpeg"}); err != nil {
		t.Fatalf("AnalyzeImage other mime: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("different mime should miss the cache, got %d calls", got)
	}
}

func TestFeedbackAndHint(t *testing.T) {
	var calls atomic.Int64
	srv := newTestServer(t, "잘 했어요.\n\n다음 단계도 시도해보세요.", &calls)
	c := newTestClient(srv)

	got, err := c.Feedback(context.Background(), "instruction", "combined", nil)
	if err != nil {
		t.Fatalf("Feedback: %v", err)
	}
	if !strings.HasPrefix(got, "잘 했어요.") {
		t.Errorf("unexpected feedback: %q", got)
	}

	hint, err := c.Hint(context.Background(), "some prompt")
	if err != nil {
		t.Fatalf("Hint: %v", err)
	}
	if hint == "" {
		t.Error("expected non-empty hint")
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 API calls, got %d", calls.Load())
	}
}

func TestFeedbackSurfacesTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)
	c := newTestClient(srv)

	if _, err := c.Feedback(context.Background(), "i", "c", nil); err == nil {
		t.Error("expected error from failing endpoint")
	}
	if _, err := c.Hint(context.Background(), "p"); err == nil {
		t.Error("expected error from failing endpoint")
	}
	if _, err := c.AnalyzeImage(context.Background(), model.ImageUpload{Data: []byte("x"), MIME: "image/png"}); err == nil {
		t.Error("expected error from failing endpoint")
	}
}

func TestAnalyzeImageErrorNotCached(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if fail.Load() {
			http.Error(w, "temporary", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"role": "assistant", "content": "ok"}}},
		})
	}))
	t.Cleanup(srv.Close)
	c := newTestClient(srv)

	img := model.ImageUpload{Data: []byte("y"), MIME: "image/png"}
	if _, err := c.AnalyzeImage(context.Background(), img); err == nil {
		t.Fatal("expected first call to fail")
	}

	fail.Store(false)
	got, err := c.AnalyzeImage(context.Background(), img)
	if err != nil {
		t.Fatalf("AnalyzeImage retry: %v", err)
	}
	if got != "ok" {
		t.Errorf("expected fresh analysis after failure, got %q", got)
	}
}

func TestDataURI(t *testing.T) {
	uri := dataURI(model.ImageUpload{Data: []byte{1, 2, 3}, MIME: "image/jpeg"})
	if !strings.HasPrefix(uri, "data:image/jpeg;base64,") {
		t.Errorf("unexpected data URI prefix: %q", uri)
	}

	// Missing MIME defaults to PNG, matching the upload widget's fallback.
	uri = dataURI(model.ImageUpload{Data: []byte{1}})
	if !strings.HasPrefix(uri, "data:image/png;base64,") {
		t.Errorf("expected png fallback, got %q", uri)
	}
}
