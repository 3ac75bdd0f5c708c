package models

// Role values for conversation entries.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents one conversation entry.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SourceKind classifies where an inbound event came from.
type SourceKind string

const (
	SourceUser  SourceKind = "user"
	SourceGroup SourceKind = "group"
	SourceRoom  SourceKind = "room"
)

// InboundEvent is a normalized text message event from the platform.
// Mentions holds the user IDs referenced by structured @-mentions, if any.
type InboundEvent struct {
	Source     SourceKind
	SenderID   string
	GroupID    string // group or room ID, empty for direct chat
	Text       string
	Mentions   []string
	ReplyToken string
}

// ConversationKey returns the identity history is routed by: the sender in
// direct chat, the shared group/room in multi-party chat.
func (e *InboundEvent) ConversationKey() string {
	if e.Source == SourceUser || e.GroupID == "" {
		return e.SenderID
	}
	return e.GroupID
}

// PushTarget returns the identity push messages are addressed to.
func (e *InboundEvent) PushTarget() string {
	if e.GroupID != "" {
		return e.GroupID
	}
	return e.SenderID
}

// ReplyKind tags an outbound reply descriptor.
type ReplyKind string

const (
	ReplyText  ReplyKind = "text"
	ReplyImage ReplyKind = "image"
	ReplyAudio ReplyKind = "audio"
)

// Reply is an outbound message descriptor handed to the platform adapter.
type Reply struct {
	Kind       ReplyKind
	Text       string
	ImageURL   string
	PreviewURL string
	AudioURL   string
	DurationMS int
}

// TextReply builds a text reply descriptor.
func TextReply(text string) Reply {
	return Reply{Kind: ReplyText, Text: text}
}

// ImageReply builds an image reply descriptor.
func ImageReply(original, preview string) Reply {
	return Reply{Kind: ReplyImage, ImageURL: original, PreviewURL: preview}
}

// AudioReply builds an audio reply descriptor.
func AudioReply(url string, durationMS int) Reply {
	return Reply{Kind: ReplyAudio, AudioURL: url, DurationMS: durationMS}
}

// BotIdentity is the bot's own profile, fetched once at startup and used for
// mention matching. A nil identity means the fetch failed and mention checks
// never match.
type BotIdentity struct {
	UserID      string
	BasicID     string
	DisplayName string
}

// SearchResult is one entry returned by the search collaborator.
type SearchResult struct {
	Title   string
	Link    string
	Snippet string
}
