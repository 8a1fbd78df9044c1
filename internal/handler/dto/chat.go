package dto

import (
	"time"

	"github.com/parley/parley/internal/model"
)

// CreateChatRequest represents the request body for creating a chat.
type CreateChatRequest struct {
	Title string `json:"title,omitempty"`
}

// RenameChatRequest represents the request body for renaming a chat.
type RenameChatRequest struct {
	Title string `json:"title"`
}

// SendMessageRequest represents the request body for appending a message
// to an existing chat.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// ChatMessage is one role-tagged element of a submitted exchange.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest represents the request body for a completion
// exchange. ChatID is empty when the client wants a fresh chat; UserID
// must match the verified principal on the buffered route.
type CompletionRequest struct {
	Messages []ChatMessage `json:"messages"`
	UserID   string        `json:"user_id,omitempty"`
	ChatID   string        `json:"chat_id,omitempty"`
}

// CreateChatResponse acknowledges a newly created chat. Clients read
// only the id from it.
type CreateChatResponse struct {
	ChatID string `json:"chat_id"`
}

// ChatResponse represents a chat in API responses.
type ChatResponse struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MessageResponse represents a persisted message in API responses.
type MessageResponse struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// CompletionResponse represents a buffered completion reply. This route
// predates the envelope convention and keeps its bare shape.
type CompletionResponse struct {
	Content string `json:"content"`
	ChatID  string `json:"chat_id"`
}

// ExchangeResponse pairs the persisted user turn with the assistant
// reply for the append-turn route. Field names match the original API.
type ExchangeResponse struct {
	UserMessage *MessageResponse `json:"userMessage"`
	AIResponse  *MessageResponse `json:"aiResponse"`
}

// ToModelMessages converts submitted exchange elements to domain
// messages. Validation happens downstream.
func ToModelMessages(msgs []ChatMessage) []*model.Message {
	out := make([]*model.Message, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, &model.Message{
			Role:    model.Role(msg.Role),
			Content: msg.Content,
		})
	}
	return out
}

// ToChatResponse converts a Chat model to ChatResponse DTO.
func ToChatResponse(chat *model.Chat) *ChatResponse {
	return &ChatResponse{
		ID:        chat.ID,
		OwnerID:   chat.OwnerID,
		Title:     chat.Title,
		CreatedAt: chat.CreatedAt,
		UpdatedAt: chat.UpdatedAt,
	}
}

// ToChatListResponse converts a slice of chats, keeping order.
func ToChatListResponse(chats []*model.Chat) []ChatResponse {
	out := make([]ChatResponse, 0, len(chats))
	for _, chat := range chats {
		out = append(out, *ToChatResponse(chat))
	}
	return out
}

// ToMessageResponse converts a Message model to MessageResponse DTO.
func ToMessageResponse(msg *model.Message) *MessageResponse {
	return &MessageResponse{
		ID:        msg.ID,
		ChatID:    msg.ChatID,
		Role:      string(msg.Role),
		Content:   msg.Content,
		Timestamp: msg.Timestamp,
	}
}

// ToMessageListResponse converts a slice of messages, keeping order.
func ToMessageListResponse(msgs []*model.Message) []MessageResponse {
	out := make([]MessageResponse, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, *ToMessageResponse(msg))
	}
	return out
}
