package constant

const (
	ChatMessageRoleUser  = "user"
	ChatMessageRoleModel = "model"
)

// ChatGreetingMessage seeds every new session so the transcript is never
// empty on first load.
const ChatGreetingMessage = "Hi! Ask me anything about this analysis."
