package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testConfig(endpoint string) Config {
	cfg := DefaultConfig()
	cfg.BaseURL = endpoint
	return cfg
}

// recordingSink keeps every Write as a separate increment.
type recordingSink struct {
	writes []string
}

func (s *recordingSink) Write(p []byte) (int, error) {
	s.writes = append(s.writes, string(p))
	return len(p), nil
}

func sseChunk(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []any{map[string]any{"delta": map[string]any{"content": content}}},
	})
	return "data: " + string(b) + "\n\n"
}

func sseServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestStream_AccumulatesAndForwardsInOrder(t *testing.T) {
	var got ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		flusher := w.(http.Flusher)
		for _, frag := range []string{"Hello", " ", "World"} {
			fmt.Fprint(w, sseChunk(frag))
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.APIKey = "k"
	cfg.ReasoningEffort = "low"
	sink := &recordingSink{}

	text, err := NewClient(cfg, NoopObserver{}).Stream(context.Background(), "m1", "hi", sink)
	require.NoError(t, err)
	assert.Equal(t, "Hello World", text)
	assert.Equal(t, []string{"Hello", " ", "World"}, sink.writes)

	assert.Equal(t, "m1", got.Model)
	assert.True(t, got.Stream)
	assert.Equal(t, 1.0, got.Temperature)
	assert.Equal(t, "low", got.ReasoningEffort)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "hi", got.Messages[0].Content)
}

func TestStream_NoAuthHeaderWithoutKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		var raw map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		_, has := raw["reasoning_effort"]
		assert.False(t, has)
		fmt.Fprint(w, sseChunk("ok")+"data: [DONE]\n")
	}))
	defer srv.Close()

	text, err := NewClient(testConfig(srv.URL), nil).Stream(context.Background(), "m", "p", nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
}

func TestStream_EmptyDeltasAreZeroLength(t *testing.T) {
	body := `data: {"choices":[{"delta":{"role":"assistant"}}]}` + "\n" +
		`data: {"choices":[]}` + "\n" +
		sseChunk("x") +
		": keep-alive comment\n" +
		"data: [DONE]\n"
	srv := sseServer(t, http.StatusOK, body)

	sink := &recordingSink{}
	text, err := NewClient(testConfig(srv.URL), nil).Stream(context.Background(), "m", "p", sink)
	require.NoError(t, err)
	assert.Equal(t, "x", text)
	assert.Equal(t, []string{"x"}, sink.writes)
}

func TestStream_EndsWithoutDoneMarker(t *testing.T) {
	srv := sseServer(t, http.StatusOK, sseChunk("a")+sseChunk("b"))
	text, err := NewClient(testConfig(srv.URL), nil).Stream(context.Background(), "m", "p", nil)
	require.NoError(t, err)
	assert.Equal(t, "ab", text)
}

func TestStream_NoDataLines_ParsesErrorBody(t *testing.T) {
	srv := sseServer(t, http.StatusNotFound, `{"error":{"message":"model 'zz' not found"}}`)

	_, err := NewClient(testConfig(srv.URL), nil).Stream(context.Background(), "zz", "p", nil)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "model 'zz' not found", apiErr.Message)
}

func TestStream_NoDataLines_StringError(t *testing.T) {
	srv := sseServer(t, http.StatusInternalServerError, `{"error":"boom"}`)

	_, err := NewClient(testConfig(srv.URL), nil).Stream(context.Background(), "m", "p", nil)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "boom", apiErr.Message)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
}

func TestStream_NoDataLines_Generic(t *testing.T) {
	srv := sseServer(t, http.StatusOK, "")

	_, err := NewClient(testConfig(srv.URL), nil).Stream(context.Background(), "m", "p", nil)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "empty or invalid response from API", apiErr.Message)
	assert.Equal(t, http.StatusOK, apiErr.Status)
}

func TestStream_ErrorEventMidStream(t *testing.T) {
	srv := sseServer(t, http.StatusOK, sseChunk("part")+`data: {"error":{"message":"overloaded"}}`+"\n")

	sink := &recordingSink{}
	text, err := NewClient(testConfig(srv.URL), nil).Stream(context.Background(), "m", "p", sink)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "overloaded", apiErr.Message)
	assert.Equal(t, "part", text)
	assert.Equal(t, []string{"part"}, sink.writes)
}

func TestStream_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Timeout = 50 * time.Millisecond

	var captured LLMCallEvent
	obs := &captureObserver{fn: func(e LLMCallEvent) { captured = e }}
	_, err := NewClient(cfg, obs).Stream(context.Background(), "m", "p", nil)

	var netErr *NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Equal(t, CodeTimeout, netErr.Code)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.False(t, captured.Success)
	assert.Equal(t, "TIMEOUT", captured.ErrorCode)
}

func TestStream_ConnectionRefused(t *testing.T) {
	_, err := NewClient(testConfig("http://127.0.0.1:1"), nil).Stream(context.Background(), "m", "p", nil)

	var netErr *NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Equal(t, CodeConnect, netErr.Code)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestStream_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient(testConfig("http://127.0.0.1:1"), nil).Stream(ctx, "m", "p", nil)
	assert.ErrorIs(t, err, context.Canceled)
	var netErr *NetworkError
	assert.False(t, errors.As(err, &netErr))
}

func TestComplete_ReadsMessageContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"English\nextra"}}]}`)
	}))
	defer srv.Close()

	text, err := NewClient(testConfig(srv.URL), nil).Complete(context.Background(), "m", "p")
	require.NoError(t, err)
	assert.Equal(t, "English\nextra", text)
}

func TestComplete_MissingContentIsEmpty(t *testing.T) {
	srv := sseServer(t, http.StatusOK, `{"choices":[]}`)
	text, err := NewClient(testConfig(srv.URL), nil).Complete(context.Background(), "m", "p")
	require.NoError(t, err)
	assert.Equal(t, "", text)
}

func TestCall_ClassifiesStatus(t *testing.T) {
	srv := sseServer(t, http.StatusUnauthorized, `{"error":{"message":"key sk-secret invalid"}}`)

	_, err := NewClient(testConfig(srv.URL), nil).Call(context.Background(), "m", "p", nil, false)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Unauthorized", apiErr.Message)
	assert.NotContains(t, err.Error(), "sk-secret")
}

func TestCall_StreamDelegates(t *testing.T) {
	srv := sseServer(t, http.StatusOK, sseChunk("s")+"data: [DONE]\n")
	sink := &recordingSink{}

	text, err := NewClient(testConfig(srv.URL), nil).Call(context.Background(), "m", "p", sink, true)
	require.NoError(t, err)
	assert.Equal(t, "s", text)
	assert.Equal(t, []string{"s"}, sink.writes)
}

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		fmt.Fprint(w, `{"object":"list","data":[{"id":"llama3.2"},{"id":"qwen2.5"}]}`)
	}))
	defer srv.Close()

	var captured LLMCallEvent
	obs := &captureObserver{fn: func(e LLMCallEvent) { captured = e }}
	ids, err := NewClient(testConfig(srv.URL), obs).ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"llama3.2", "qwen2.5"}, ids)
	assert.Equal(t, "models", captured.Op)
	assert.True(t, captured.Success)
}

func TestListModels_ServerError(t *testing.T) {
	srv := sseServer(t, http.StatusBadGateway, "upstream down")
	_, err := NewClient(testConfig(srv.URL), nil).ListModels(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, KindServerError, apiErr.Kind)
}

func TestLogObserver(t *testing.T) {
	obs := NewLogObserver(zaptest.NewLogger(t))
	obs.OnCallComplete(LLMCallEvent{Op: "stream", Model: "m", Success: true})
	obs.OnCallComplete(LLMCallEvent{Op: "stream", Model: "m", ErrorCode: "TIMEOUT"})
}

func TestReadEventStream_LongLine(t *testing.T) {
	big := strings.Repeat("z", 200*1024)
	text, err := readEventStream(strings.NewReader(sseChunk(big)+"data: [DONE]\n"), http.StatusOK, nil)
	require.NoError(t, err)
	assert.Equal(t, big, text)
}

type captureObserver struct {
	fn func(LLMCallEvent)
}

func (o *captureObserver) OnCallComplete(e LLMCallEvent) { o.fn(e) }
