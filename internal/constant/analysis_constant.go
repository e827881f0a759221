package constant

// Supported post platforms.
const (
	PlatformInstagram = "instagram"
	PlatformX         = "x"
	PlatformYouTube   = "youtube"
)

func IsSupportedPlatform(p string) bool {
	switch p {
	case PlatformInstagram, PlatformX, PlatformYouTube:
		return true
	}
	return false
}

// Pipeline stages as reported by the analysis backend. StageComplete is the
// terminal stage; everything after it is ignored.
const (
	StageQueued         = "queued"
	StageFetchingPost   = "fetching_post"
	StageVisualAnalysis = "visual_analysis"
	StageEngagement     = "engagement_analysis"
	StageObservation    = "generating_observation"
	StageComplete       = "analysis_complete"
	StageFailed         = "analysis_failed"
)
