package model

import "time"

// DefaultConversationTitle is used when a conversation is created without one.
const DefaultConversationTitle = "New Conversation"

// Conversation represents a conversation owned by a single user.
type Conversation struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	PersonaID *int64    `json:"personaId,omitempty"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Message is an immutable entry in a conversation.
type Message struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversationId"`
	Content        string    `json:"content"`
	AudioURL       *string   `json:"audioUrl,omitempty"`
	IsUserMessage  bool      `json:"isUserMessage"`
	CreatedAt      time.Time `json:"createdAt"`
}

// CreateConversationRequest represents POST /api/conversations.
type CreateConversationRequest struct {
	PersonaID *int64 `json:"personaId,omitempty"`
	Title     string `json:"title,omitempty"`
}

// RecentConversationResponse is returned by GET /api/conversations/recent.
// Both fields are omitted when the user has no conversations.
type RecentConversationResponse struct {
	Conversation *Conversation `json:"conversation,omitempty"`
	Messages     []Message     `json:"messages,omitempty"`
}

// MessageRequest represents POST /api/messages.
type MessageRequest struct {
	ConversationID int64   `json:"conversationId"`
	Content        string  `json:"content"`
	IsUserMessage  *bool   `json:"isUserMessage,omitempty"`
	AudioURL       *string `json:"audioUrl,omitempty"`
	PersonaMood    Mood    `json:"personaMood,omitempty"`
	Voice          Voice   `json:"voice,omitempty"`
}

// PostMessageResponse is returned by POST /api/messages: the stored message
// plus, for user messages, the AI reply and its synthesized audio. AudioURL
// shadows the embedded message's field in JSON; for a stored assistant
// message it carries that message's own URL.
type PostMessageResponse struct {
	Message
	AIMessage *Message `json:"aiMessage,omitempty"`
	AudioURL  string   `json:"audioUrl,omitempty"`
}

// TurnResponse is the result of a completed conversational turn.
type TurnResponse struct {
	UserMessage   Message `json:"userMessage"`
	AIMessage     Message `json:"aiMessage"`
	AudioURL      string  `json:"audioUrl"`
	ReplyDegraded bool    `json:"replyDegraded,omitempty"`
	AudioDegraded bool    `json:"audioDegraded,omitempty"`
}
