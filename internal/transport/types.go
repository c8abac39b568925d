package transport

import "context"

// EventKind discriminates inbound host events. The monitor reacts to meta
// ticks and group messages; the remaining kinds exist so a host adapter can
// surface its full event stream without the core guessing at shapes.
type EventKind string

const (
	EventMeta           EventKind = "meta"
	EventGroupMessage   EventKind = "group_message"
	EventPrivateMessage EventKind = "private_message"
	EventGroupNotice    EventKind = "group_notice"
	EventRequest        EventKind = "request"
	EventResponse       EventKind = "response"
)

type Event struct {
	Kind     EventKind
	Message  *Message
	Notice   *GroupNotice
	Request  *Request
	Response *Response
}

// Message is a chat message. GroupID is zero for private messages.
type Message struct {
	ID           int
	GroupID      int64
	FromID       int64
	FromUsername string
	Text         string
	IsGroup      bool
}

type GroupNotice struct {
	GroupID    int64
	FromID     int64
	OperatorID int64
	Type       string
}

type Request struct {
	Type   string
	FromID int64
}

// Response is an acknowledgement for an earlier outbound call.
type Response struct {
	Echo   string
	Status string
}

type SendOptions struct {
	// ReplyTo references the message being answered (0 = plain send).
	ReplyTo        int
	DisablePreview bool
}

// Sender is the outbound half of the host transport. Sends are
// fire-and-forget from the caller's point of view: errors are for logging,
// never for propagation.
type Sender interface {
	SendToGroup(ctx context.Context, groupID int64, text string, opt *SendOptions) error
	SendToUser(ctx context.Context, userID int64, text string, opt *SendOptions) error
}

// Adapter binds a concrete host transport: it pushes inbound events into
// out and accepts outbound sends. Start must not block; Stop must honor ctx.
type Adapter interface {
	Sender

	Start(ctx context.Context, out chan<- Event) error
	Stop(ctx context.Context) error
}
