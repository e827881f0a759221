package signal

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Topics mirror the page-level broadcast signals the web client relies on.
// Delivery is FIFO per topic within one process.
const (
	TopicMessagesLoaded = "messages_loaded"
	TopicMessageSending = "message_sending"
	TopicMessageError   = "message_error"
	TopicTypingProgress = "typing_progress"
)

// MessagesLoaded toggles suggestion chips: HasMessages false means the
// transcript is empty beyond the greeting.
type MessagesLoaded struct {
	UserID      string `json:"user_id"`
	SessionID   string `json:"session_id"`
	HasMessages bool   `json:"has_messages"`
}

// MessageSending starts the optimistic transcript entry and the stream render.
type MessageSending struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Draft     string `json:"draft"`
}

// MessageError instructs the transcript renderer to remove its optimistic
// entry; Draft is restored into the input field verbatim.
type MessageError struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Draft     string `json:"draft"`
	Reason    string `json:"reason"`
}

// TypingProgress drives auto-scroll while text is being revealed.
type TypingProgress struct {
	UserID    string `json:"user_id"`
	Source    string `json:"source"` // "chat" or "observation"
	SectionID string `json:"section_id,omitempty"`
	UnitIndex int    `json:"unit_index"`
	Displayed string `json:"displayed"`
}

// Bus is the in-process typed pub/sub used for cross-component signaling.
type Bus struct {
	pubSub *gochannel.GoChannel
}

func NewBus(logger watermill.LoggerAdapter) *Bus {
	return &Bus{
		// Publish blocks until subscribers ack; without it each message is
		// dispatched on its own goroutine and per-topic order is lost.
		pubSub: gochannel.NewGoChannel(gochannel.Config{
			BlockPublishUntilSubscriberAck: true,
		}, logger),
	}
}

func (b *Bus) publish(topic string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return b.pubSub.Publish(topic, message.NewMessage(watermill.NewUUID(), data))
}

func (b *Bus) MessagesLoaded(sig MessagesLoaded) error {
	return b.publish(TopicMessagesLoaded, sig)
}

func (b *Bus) MessageSending(sig MessageSending) error {
	return b.publish(TopicMessageSending, sig)
}

func (b *Bus) MessageError(sig MessageError) error {
	return b.publish(TopicMessageError, sig)
}

func (b *Bus) TypingProgress(sig TypingProgress) error {
	return b.publish(TopicTypingProgress, sig)
}

// Subscribe returns the raw message stream for a topic. Consumers must Ack
// each message; messages on one topic arrive in publish order.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.pubSub.Subscribe(ctx, topic)
}

func (b *Bus) Close() error {
	return b.pubSub.Close()
}

// Decode unmarshals a signal payload into the given struct.
func Decode(msg *message.Message, into interface{}) error {
	return json.Unmarshal(msg.Payload, into)
}
