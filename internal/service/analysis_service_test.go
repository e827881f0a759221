package service

import (
	"context"
	"testing"
	"time"

	"postlens-be/internal/constant"
	"postlens-be/internal/dto"
	"postlens-be/internal/websocket"
	"postlens-be/pkg/upstream"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePostURLs_CommaSeparated(t *testing.T) {
	urls, err := ParsePostURLs(&dto.CreateAnalysisRequest{
		PostURLsRaw: "https://instagram.com/p/ABC, https://x.com/u/status/123",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://instagram.com/p/ABC", "https://x.com/u/status/123"}, urls)
}

func TestParsePostURLs_MergesListAndRaw(t *testing.T) {
	urls, err := ParsePostURLs(&dto.CreateAnalysisRequest{
		PostURLs:    []string{"https://youtube.com/watch?v=a"},
		PostURLsRaw: " https://youtube.com/watch?v=b ,, ",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://youtube.com/watch?v=a", "https://youtube.com/watch?v=b"}, urls)
}

func TestParsePostURLs_Empty(t *testing.T) {
	_, err := ParsePostURLs(&dto.CreateAnalysisRequest{PostURLsRaw: " , , "})
	assert.ErrorIs(t, err, ErrNoPostURLs)
}

func TestParsePostURLs_RejectsNonHTTP(t *testing.T) {
	_, err := ParsePostURLs(&dto.CreateAnalysisRequest{
		PostURLs: []string{"ftp://instagram.com/p/ABC"},
	})
	assert.Error(t, err)
}

func newAnalysisServiceForTest(backend *fakeAnalysisBackend) (IAnalysisService, *fakeAnalysisRepo, *fakeStatusRepo) {
	analysisRepo := newFakeAnalysisRepo()
	statusRepo := &fakeStatusRepo{}
	hub := websocket.NewHub(nil, nopLogger{})
	svc := NewAnalysisService(analysisRepo, statusRepo, &fakeBillingRepo{}, backend, hub, nil, nopLogger{})
	return svc, analysisRepo, statusRepo
}

func TestCreateAnalysis_RejectsUnknownPlatform(t *testing.T) {
	svc, _, _ := newAnalysisServiceForTest(&fakeAnalysisBackend{jobID: "up-1"})

	_, err := svc.CreateAnalysis(context.Background(), uuid.New(), &dto.CreateAnalysisRequest{
		Platform: "tiktok",
		PostURLs: []string{"https://tiktok.com/@a/video/1"},
	})
	assert.ErrorIs(t, err, ErrUnsupportedPlatform)
}

func TestCreateAnalysis_EnforcesMonthlyLimit(t *testing.T) {
	backend := &fakeAnalysisBackend{jobID: "up-1"}
	analysisRepo := newFakeAnalysisRepo()
	analysisRepo.count = freeAnalysisLimit
	hub := websocket.NewHub(nil, nopLogger{})
	svc := NewAnalysisService(analysisRepo, &fakeStatusRepo{}, &fakeBillingRepo{}, backend, hub, nil, nopLogger{})

	_, err := svc.CreateAnalysis(context.Background(), uuid.New(), &dto.CreateAnalysisRequest{
		Platform: constant.PlatformInstagram,
		PostURLs: []string{"https://instagram.com/p/ABC"},
	})
	assert.ErrorIs(t, err, ErrAnalysisLimit)
}

func TestCreateAnalysis_RunsPipelineToCompletion(t *testing.T) {
	backend := &fakeAnalysisBackend{
		jobID: "up-42",
		events: []upstream.StatusEvent{
			{Stage: constant.StageQueued, Message: "Queued", ProgressPercentage: 5},
			{Stage: constant.StageFetchingPost, Message: "Fetching post", ProgressPercentage: 25},
			// Out-of-order percentage from the backend must not move the bar back.
			{Stage: constant.StageVisualAnalysis, Message: "Analyzing visuals", ProgressPercentage: 20},
			{Stage: constant.StageObservation, Message: "Writing observation", ProgressPercentage: 80},
			{Stage: constant.StageComplete, Message: "Done", ProgressPercentage: 100},
		},
		observation: &upstream.Observation{
			Caption:    "A caption about the post.",
			Visual:     "Strong colors.",
			Engagement: "High early engagement.",
		},
	}
	svc, analysisRepo, statusRepo := newAnalysisServiceForTest(backend)

	userID := uuid.New()
	res, err := svc.CreateAnalysis(context.Background(), userID, &dto.CreateAnalysisRequest{
		Platform: constant.PlatformInstagram,
		PostURLs: []string{"https://instagram.com/p/ABC"},
	})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, constant.StageQueued, res.Stage)

	// The monitor goroutine drains the feed and finalizes the record.
	require.Eventually(t, func() bool {
		a, _ := analysisRepo.FindByID(context.Background(), res.Id)
		return a != nil && a.Stage == constant.StageComplete
	}, 2*time.Second, 10*time.Millisecond)

	a, err := analysisRepo.FindByID(context.Background(), res.Id)
	require.NoError(t, err)
	assert.Equal(t, 100, a.Progress)
	assert.Equal(t, "up-42", a.UpstreamID)
	assert.Equal(t, "A caption about the post.", a.Caption)
	assert.Equal(t, "Strong colors.", a.Visual)
	assert.Equal(t, "High early engagement.", a.Engagement)

	// Stored progress is monotonic even when the feed regresses.
	events := statusRepo.snapshot()
	require.Len(t, events, 5)
	prev := -1
	for _, ev := range events {
		assert.GreaterOrEqual(t, ev.ProgressPercentage, prev)
		prev = ev.ProgressPercentage
	}
	// The visual_analysis event arrived with 20% but holds the 25% high-water mark.
	assert.Equal(t, 25, events[2].ProgressPercentage)
}

func TestCreateAnalysis_FailedJobRecordsFailure(t *testing.T) {
	backend := &fakeAnalysisBackend{
		jobID: "up-9",
		events: []upstream.StatusEvent{
			{Stage: constant.StageQueued, Message: "Queued", ProgressPercentage: 5},
			{Stage: constant.StageFailed, Message: "Post not found", ProgressPercentage: 5, IsError: true},
		},
	}
	svc, analysisRepo, _ := newAnalysisServiceForTest(backend)

	res, err := svc.CreateAnalysis(context.Background(), uuid.New(), &dto.CreateAnalysisRequest{
		Platform: constant.PlatformX,
		PostURLs: []string{"https://x.com/u/status/1"},
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		a, _ := analysisRepo.FindByID(context.Background(), res.Id)
		return a != nil && a.Stage == constant.StageFailed
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCreateAnalysis_FeedEndingWithoutTerminalStageFails(t *testing.T) {
	backend := &fakeAnalysisBackend{
		jobID: "up-3",
		events: []upstream.StatusEvent{
			{Stage: constant.StageQueued, Message: "Queued", ProgressPercentage: 5},
			{Stage: constant.StageFetchingPost, Message: "Fetching post", ProgressPercentage: 30},
			// Feed closes here without analysis_complete or analysis_failed.
		},
	}
	svc, analysisRepo, _ := newAnalysisServiceForTest(backend)

	res, err := svc.CreateAnalysis(context.Background(), uuid.New(), &dto.CreateAnalysisRequest{
		Platform: constant.PlatformInstagram,
		PostURLs: []string{"https://instagram.com/p/ABC"},
	})
	require.NoError(t, err)

	// The record must not sit on fetching_post forever.
	require.Eventually(t, func() bool {
		a, _ := analysisRepo.FindByID(context.Background(), res.Id)
		return a != nil && a.Stage == constant.StageFailed
	}, 2*time.Second, 10*time.Millisecond)
}

func TestGetAnalysis_ScopedToOwner(t *testing.T) {
	backend := &fakeAnalysisBackend{jobID: "up-7"}
	svc, _, _ := newAnalysisServiceForTest(backend)

	owner := uuid.New()
	res, err := svc.CreateAnalysis(context.Background(), owner, &dto.CreateAnalysisRequest{
		Platform: constant.PlatformYouTube,
		PostURLs: []string{"https://youtube.com/watch?v=x"},
	})
	require.NoError(t, err)

	_, err = svc.GetAnalysis(context.Background(), uuid.New(), res.Id)
	assert.ErrorIs(t, err, ErrAnalysisNotFound)

	detail, err := svc.GetAnalysis(context.Background(), owner, res.Id)
	require.NoError(t, err)
	assert.Equal(t, res.Id, detail.Id)
}
