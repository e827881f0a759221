package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalysisClient_CreateJob(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/analyses", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req CreateJobRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "instagram", req.Platform)
		assert.Len(t, req.PostURLs, 2)

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(CreateJobResponse{AnalysisID: "job-1"})
	}))
	defer srv.Close()

	client := NewAnalysisClient(srv.URL, "test-key")
	res, err := client.CreateJob(context.Background(), &CreateJobRequest{
		Platform: "instagram",
		PostURLs: []string{"https://instagram.com/p/A", "https://instagram.com/p/B"},
	})
	require.NoError(t, err)
	assert.Equal(t, "job-1", res.AnalysisID)
}

func TestAnalysisClient_CreateJob_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewAnalysisClient(srv.URL, "")
	_, err := client.CreateJob(context.Background(), &CreateJobRequest{Platform: "x"})
	assert.Error(t, err)
}

func TestAnalysisClient_StreamStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/analyses/job-1/events", r.URL.Path)

		flusher := w.(http.Flusher)
		events := []StatusEvent{
			{Stage: "queued", Message: "Queued", ProgressPercentage: 5},
			{Stage: "fetching_post", Message: "Fetching", ProgressPercentage: 30},
			{Stage: "analysis_complete", Message: "Done", ProgressPercentage: 100},
		}
		for _, ev := range events {
			data, _ := json.Marshal(ev)
			fmt.Fprintf(w, "%s\n", data)
			flusher.Flush()
		}
	}))
	defer srv.Close()

	client := NewAnalysisClient(srv.URL, "")
	feed, err := client.StreamStatus(context.Background(), "job-1")
	require.NoError(t, err)

	var stages []string
	for ev := range feed {
		stages = append(stages, ev.Stage)
	}
	assert.Equal(t, []string{"queued", "fetching_post", "analysis_complete"}, stages)
}

func TestAnalysisClient_StreamStatus_ContextCancel(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		fmt.Fprintln(w, `{"stage":"queued","message":"Queued","progress_percentage":5}`)
		flusher.Flush()
		<-release // hold the stream open
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	client := NewAnalysisClient(srv.URL, "")
	feed, err := client.StreamStatus(ctx, "job-1")
	require.NoError(t, err)

	ev := <-feed
	assert.Equal(t, "queued", ev.Stage)

	cancel()
	select {
	case _, open := <-feed:
		assert.False(t, open)
	case <-time.After(2 * time.Second):
		t.Fatal("feed did not close after cancellation")
	}
}

func TestAnalysisClient_FetchObservation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/analyses/job-1/observation", r.URL.Path)
		json.NewEncoder(w).Encode(Observation{
			Caption:         "Caption text",
			Visual:          "Visual text",
			Engagement:      "Engagement text",
			PlatformSignals: "Signals text",
		})
	}))
	defer srv.Close()

	client := NewAnalysisClient(srv.URL, "")
	obs, err := client.FetchObservation(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, "Caption text", obs.Caption)
	assert.Equal(t, "Signals text", obs.PlatformSignals)
}
