package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// LLMClient talks to an OpenAI-compatible chat completions API.
type LLMClient interface {
	// Stream sends prompt with stream=true, forwarding each fragment to sink
	// as it arrives. Returns the concatenated completion.
	Stream(ctx context.Context, model, prompt string, sink io.Writer) (string, error)

	// Complete performs a single non-streaming round trip without status
	// classification. A missing content field yields "".
	Complete(ctx context.Context, model, prompt string) (string, error)

	// Call classifies the HTTP status before decoding, or delegates to
	// Stream when stream is true.
	Call(ctx context.Context, model, prompt string, sink io.Writer, stream bool) (string, error)

	// ListModels returns the ids reported by GET /models.
	ListModels(ctx context.Context) ([]string, error)
}

type openAIClient struct {
	cfg      Config
	http     *http.Client
	observer Observer
}

// NewClient creates an LLMClient for the endpoint in cfg.
func NewClient(cfg Config, observer Observer) LLMClient {
	if observer == nil {
		observer = NoopObserver{}
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConfig().ConnectTimeout
	}
	return &openAIClient{
		cfg: cfg,
		http: &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout: cfg.ConnectTimeout,
				}).DialContext,
			},
		},
		observer: observer,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the JSON body sent to POST /chat/completions.
type ChatRequest struct {
	Model           string        `json:"model"`
	Messages        []chatMessage `json:"messages"`
	Stream          bool          `json:"stream"`
	Temperature     float64       `json:"temperature"`
	ReasoningEffort string        `json:"reasoning_effort,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Error json.RawMessage `json:"error,omitempty"`
}

type modelsResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

func (c *openAIClient) newChatRequest(model, prompt string, stream bool) ChatRequest {
	return ChatRequest{
		Model:           model,
		Messages:        []chatMessage{{Role: "user", Content: prompt}},
		Stream:          stream,
		Temperature:     Temperature,
		ReasoningEffort: c.cfg.ReasoningEffort,
	}
}

func (c *openAIClient) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, r)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	return req, nil
}

func (c *openAIClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.cfg.Timeout)
}

func (c *openAIClient) observe(op, model string, start time.Time, chars int, err error) {
	c.observer.OnCallComplete(LLMCallEvent{
		Op:        op,
		Model:     model,
		LatencyMs: time.Since(start).Milliseconds(),
		Chars:     chars,
		Success:   err == nil,
		ErrorCode: errorCode(err),
	})
}

func (c *openAIClient) Stream(ctx context.Context, model, prompt string, sink io.Writer) (text string, err error) {
	start := time.Now()
	defer func() { c.observe("stream", model, start, len(text), err) }()

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodPost, "/chat/completions", c.newChatRequest(model, prompt, true))
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", networkError(err)
	}
	defer resp.Body.Close()

	return readEventStream(resp.Body, resp.StatusCode, sink)
}

// readEventStream consumes SSE data lines until [DONE] or EOF. Every
// fragment is written to sink before the next line is read, and the returned
// text is exactly what was forwarded.
func readEventStream(body io.Reader, status int, sink io.Writer) (string, error) {
	var (
		acc     strings.Builder
		raw     strings.Builder
		sawData bool
	)

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		payload, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			if !sawData {
				raw.WriteString(line)
				raw.WriteByte('\n')
			}
			continue
		}
		if payload == "[DONE]" {
			sawData = true
			break
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			if !sawData {
				raw.WriteString(payload)
				raw.WriteByte('\n')
			}
			continue
		}
		if len(chunk.Error) > 0 && string(chunk.Error) != "null" {
			msg := errorMessage(`{"error":` + string(chunk.Error) + `}`)
			if msg == "" {
				msg = "error event in stream"
			}
			return acc.String(), &APIError{Status: status, Kind: KindUnknown, Message: msg}
		}
		sawData = true
		if len(chunk.Choices) == 0 {
			continue
		}
		frag := chunk.Choices[0].Delta.Content
		if frag == "" {
			continue
		}
		acc.WriteString(frag)
		if sink != nil {
			if _, err := io.WriteString(sink, frag); err != nil {
				return acc.String(), fmt.Errorf("writing to sink: %w", err)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return acc.String(), networkError(err)
	}

	if !sawData {
		msg := errorMessage(raw.String())
		if msg == "" {
			msg = "empty or invalid response from API"
		}
		return "", &APIError{Status: status, Kind: KindUnknown, Message: msg}
	}
	return acc.String(), nil
}

// roundTrip performs one non-streaming POST and returns the body and status.
func (c *openAIClient) roundTrip(ctx context.Context, model, prompt string) (string, int, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodPost, "/chat/completions", c.newChatRequest(model, prompt, false))
	if err != nil {
		return "", 0, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", 0, networkError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", resp.StatusCode, networkError(err)
	}
	return string(body), resp.StatusCode, nil
}

func decodeCompletion(body string, status int) (string, error) {
	var resp chatResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return "", &APIError{Status: status, Kind: KindUnknown, Message: "invalid JSON in response"}
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *openAIClient) Complete(ctx context.Context, model, prompt string) (text string, err error) {
	start := time.Now()
	defer func() { c.observe("complete", model, start, len(text), err) }()

	body, status, err := c.roundTrip(ctx, model, prompt)
	if err != nil {
		return "", err
	}
	return decodeCompletion(body, status)
}

func (c *openAIClient) Call(ctx context.Context, model, prompt string, sink io.Writer, stream bool) (text string, err error) {
	if stream {
		return c.Stream(ctx, model, prompt, sink)
	}

	start := time.Now()
	defer func() { c.observe("complete", model, start, len(text), err) }()

	body, status, err := c.roundTrip(ctx, model, prompt)
	if err != nil {
		return "", err
	}
	if err := Classify(body, status); err != nil {
		return "", err
	}
	return decodeCompletion(body, status)
}

func (c *openAIClient) ListModels(ctx context.Context) (ids []string, err error) {
	start := time.Now()
	defer func() { c.observe("models", "", start, 0, err) }()

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodGet, "/models", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, networkError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, networkError(err)
	}
	if err := Classify(string(body), resp.StatusCode); err != nil {
		return nil, err
	}

	var models modelsResponse
	if err := json.Unmarshal(body, &models); err != nil {
		return nil, &APIError{Status: resp.StatusCode, Kind: KindUnknown, Message: "invalid JSON in models response"}
	}
	ids = make([]string, 0, len(models.Data))
	for _, m := range models.Data {
		ids = append(ids, m.ID)
	}
	return ids, nil
}
