package model

// StreamFrame is the envelope for everything pushed over the websocket:
// status events, reveal progress, chat chunks, and broadcast signals.
type StreamFrame struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Frame types understood by the web client.
const (
	FrameStatusEvent  = "status_event"
	FrameRevealStart  = "reveal_section_start"
	FrameRevealUnit   = "reveal_progress"
	FrameRevealDone   = "reveal_complete"
	FrameChatChunk    = "chat_chunk"
	FrameChatComplete = "chat_complete"
	FrameChatError    = "chat_error"
	FrameSignal       = "signal"
	FrameNotification = "notification"
)
