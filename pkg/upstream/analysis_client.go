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

// AnalysisClient talks to the external analysis backend: job creation, the
// ordered status feed, and the final observation payload.
type AnalysisClient struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func NewAnalysisClient(baseURL, apiKey string) *AnalysisClient {
	return &AnalysisClient{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type CreateJobRequest struct {
	Platform string   `json:"platform"`
	PostURLs []string `json:"post_urls"`
}

type CreateJobResponse struct {
	AnalysisID string `json:"analysis_id"`
}

// StatusEvent is one entry of the backend's status feed. Events arrive in
// order; the stage "analysis_complete" is terminal.
type StatusEvent struct {
	ID                 string    `json:"id"`
	Stage              string    `json:"stage"`
	Message            string    `json:"message"`
	ActionableMessage  *string   `json:"actionable_message,omitempty"`
	ProgressPercentage int       `json:"progress_percentage"`
	IsError            bool      `json:"is_error"`
	CreatedAt          time.Time `json:"created_at"`
}

type Observation struct {
	Caption         string          `json:"caption"`
	Visual          string          `json:"visual"`
	Engagement      string          `json:"engagement"`
	PlatformSignals string          `json:"platform_signals"`
	Result          json.RawMessage `json:"result,omitempty"`
}

func (c *AnalysisClient) CreateJob(ctx context.Context, req *CreateJobRequest) (*CreateJobResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/analyses", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	c.setHeaders(httpReq)

	resp, err := c.Client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("analysis backend unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("analysis backend returned status %d", resp.StatusCode)
	}

	var out CreateJobResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode job response: %w", err)
	}
	return &out, nil
}

// StreamStatus subscribes to the backend's status feed for one analysis. The
// returned channel closes after the terminal event, a decode failure, or ctx
// cancellation. The feed is newline-delimited JSON.
func (c *AnalysisClient) StreamStatus(ctx context.Context, analysisID string) (<-chan StatusEvent, error) {
	url := fmt.Sprintf("%s/v1/analyses/%s/events", c.BaseURL, analysisID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(httpReq)

	// No client timeout here: the feed stays open for the lifetime of the
	// pipeline run. Cancellation comes from ctx.
	client := &http.Client{}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("status feed unreachable: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("status feed returned status %d", resp.StatusCode)
	}

	events := make(chan StatusEvent)
	go func() {
		defer close(events)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}
			var ev StatusEvent
			if err := json.Unmarshal(line, &ev); err != nil {
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return events, nil
}

func (c *AnalysisClient) FetchObservation(ctx context.Context, analysisID string) (*Observation, error) {
	url := fmt.Sprintf("%s/v1/analyses/%s/observation", c.BaseURL, analysisID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(httpReq)

	resp, err := c.Client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("analysis backend unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("observation fetch returned status %d", resp.StatusCode)
	}

	var out Observation
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode observation: %w", err)
	}
	return &out, nil
}

func (c *AnalysisClient) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
}
