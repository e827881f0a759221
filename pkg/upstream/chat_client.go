package upstream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Chunk is one streamed fragment of an assistant response. Done marks the
// final chunk; Err reports a mid-stream failure.
type Chunk struct {
	Text string
	Done bool
	Err  error
}

// ChatClient talks to the external chat backend: session management and the
// chunked message stream.
type ChatClient struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func NewChatClient(baseURL, apiKey string) *ChatClient {
	return &ChatClient{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type createSessionRequest struct {
	AnalysisID string `json:"analysis_id"`
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
}

func (c *ChatClient) CreateSession(ctx context.Context, analysisID string) (string, error) {
	body, _ := json.Marshal(createSessionRequest{AnalysisID: analysisID})

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/sessions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	c.setHeaders(httpReq)

	resp, err := c.Client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("chat backend unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("chat backend returned status %d", resp.StatusCode)
	}

	var out createSessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode session response: %w", err)
	}
	return out.SessionID, nil
}

type sendMessageRequest struct {
	Message string `json:"message"`
	Stream  bool   `json:"stream"`
}

type streamChunkPayload struct {
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// StreamMessage sends a user message and returns the chunked assistant
// response. The channel closes after the Done chunk or an error chunk.
func (c *ChatClient) StreamMessage(ctx context.Context, sessionID, messageText string) (<-chan Chunk, error) {
	body, _ := json.Marshal(sendMessageRequest{Message: messageText, Stream: true})

	url := fmt.Sprintf("%s/v1/sessions/%s/messages", c.BaseURL, sessionID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	c.setHeaders(httpReq)

	// Streaming responses outlive the default client timeout.
	client := &http.Client{}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("chat backend unreachable: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("chat backend returned status %d", resp.StatusCode)
	}

	chunks := make(chan Chunk)
	go func() {
		defer close(chunks)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}
			var payload streamChunkPayload
			if err := json.Unmarshal(line, &payload); err != nil {
				c.emit(ctx, chunks, Chunk{Err: fmt.Errorf("malformed stream chunk: %w", err)})
				return
			}
			if !c.emit(ctx, chunks, Chunk{Text: payload.Text, Done: payload.Done}) {
				return
			}
			if payload.Done {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			c.emit(ctx, chunks, Chunk{Err: fmt.Errorf("stream interrupted: %w", err)})
			return
		}
		// Stream ended without a Done marker; treat as complete.
		c.emit(ctx, chunks, Chunk{Done: true})
	}()
	return chunks, nil
}

func (c *ChatClient) emit(ctx context.Context, out chan<- Chunk, chunk Chunk) bool {
	select {
	case out <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *ChatClient) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
}
