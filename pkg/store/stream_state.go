package store

// StreamState tracks one in-flight assistant response for a user's page
// session. PendingUserMessage holds the optimistic entry so it can be rolled
// back verbatim if the transport fails.
type StreamState struct {
	UserID             string  `json:"user_id"`
	SessionID          string  `json:"session_id"` // empty until lazily created
	PendingUserMessage *string `json:"pending_user_message"`
	IsStreaming        bool    `json:"is_streaming"`
	PartialText        string  `json:"partial_text"`
}
