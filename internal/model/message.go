package model

// NotificationKind discriminates notification payloads.
type NotificationKind string

const (
	NotificationChat NotificationKind = "chat"
	NotificationLike NotificationKind = "like"
)

// Notification is the visible part of a push message.
type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// PlatformHints are delivery options forwarded to device platforms.
type PlatformHints struct {
	Priority  string `json:"priority"`
	ChannelID string `json:"channelId"`
	Sound     string `json:"sound"`
}

// MulticastMessage is one payload addressed to many destination tokens.
type MulticastMessage struct {
	Tokens        []string          `json:"tokens"`
	Notification  Notification      `json:"notification"`
	Data          map[string]string `json:"data"`
	PlatformHints PlatformHints     `json:"platformHints"`
}

// SendError is the gateway's classification of a failed delivery.
type SendError struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// SendResponse is the verdict for one token.
type SendResponse struct {
	Success bool       `json:"success"`
	Error   *SendError `json:"error,omitempty"`
}

// BatchResponse holds one verdict per token, in request order.
type BatchResponse struct {
	Responses []SendResponse `json:"responses"`
}

// SuccessCount returns the number of successful verdicts.
func (b *BatchResponse) SuccessCount() int {
	n := 0
	for _, r := range b.Responses {
		if r.Success {
			n++
		}
	}
	return n
}

// FailureCount returns the number of failed verdicts.
func (b *BatchResponse) FailureCount() int {
	return len(b.Responses) - b.SuccessCount()
}
