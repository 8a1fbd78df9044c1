package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/parley/parley/internal/metrics"
	"github.com/parley/parley/internal/model"
	"github.com/parley/parley/internal/provider"
	"github.com/parley/parley/internal/repository"
)

const (
	// maxTitleLength caps auto-derived chat titles.
	maxTitleLength = 50
	// streamErrorPrefix marks an in-band fault on an open fragment stream.
	streamErrorPrefix = "[ERROR] Failed to generate response: "
	// persistTimeout bounds post-stream writes that outlive the request.
	persistTimeout = 10 * time.Second
)

// ChatStore is the persistence surface the chat service needs.
type ChatStore interface {
	CreateChat(ctx context.Context, chat *model.Chat) error
	GetChatByID(ctx context.Context, id string) (*model.Chat, error)
	ListChatsByOwner(ctx context.Context, ownerID string) ([]*model.Chat, error)
	UpdateChatTitle(ctx context.Context, id, title string) error
	DeleteChatCascade(ctx context.Context, id string) error
	CreateMessage(ctx context.Context, msg *model.Message) error
	ListMessagesByChat(ctx context.Context, chatID string) ([]*model.Message, error)
}

// UsagePublisher records completion usage out of band.
type UsagePublisher interface {
	PublishAsync(ctx context.Context, event *model.UsageEvent)
}

// ChatService orchestrates chats, transcripts, and completions.
type ChatService struct {
	store     ChatStore
	completer provider.Completer
	usage     UsagePublisher
	metrics   metrics.Recorder
	logger    *slog.Logger
}

// NewChatService creates a new ChatService.
func NewChatService(store ChatStore, completer provider.Completer, usage UsagePublisher, recorder metrics.Recorder, logger *slog.Logger) *ChatService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatService{
		store:     store,
		completer: completer,
		usage:     usage,
		metrics:   recorder,
		logger:    logger,
	}
}

// CreateChat creates an empty chat for the principal.
func (s *ChatService) CreateChat(ctx context.Context, principal *model.Principal, title string) (*model.Chat, error) {
	if principal == nil || principal.SubjectID == "" {
		return nil, ErrForbidden
	}

	title = strings.TrimSpace(title)
	if title == "" {
		title = model.DefaultChatTitle
	}

	now := time.Now().UTC()
	chat := &model.Chat{
		ID:        uuid.NewString(),
		OwnerID:   principal.SubjectID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.CreateChat(ctx, chat); err != nil {
		return nil, fmt.Errorf("create chat: %w", err)
	}

	s.metrics.IncChatCreated()

	return chat, nil
}

// ListChats returns the principal's chats, most recently active first.
func (s *ChatService) ListChats(ctx context.Context, principal *model.Principal) ([]*model.Chat, error) {
	if principal == nil || principal.SubjectID == "" {
		return nil, ErrForbidden
	}
	return s.store.ListChatsByOwner(ctx, principal.SubjectID)
}

// GetChat returns a chat the principal owns.
func (s *ChatService) GetChat(ctx context.Context, principal *model.Principal, chatID string) (*model.Chat, error) {
	chat, err := s.store.GetChatByID(ctx, chatID)
	if err != nil {
		if errors.Is(err, repository.ErrChatNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, err
	}

	if err := Authorize(principal, chat.OwnerID); err != nil {
		return nil, err
	}

	return chat, nil
}

// RenameChat changes a chat's title.
func (s *ChatService) RenameChat(ctx context.Context, principal *model.Principal, chatID, title string) (*model.Chat, error) {
	if _, err := s.GetChat(ctx, principal, chatID); err != nil {
		return nil, err
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyContent
	}

	if err := s.store.UpdateChatTitle(ctx, chatID, title); err != nil {
		if errors.Is(err, repository.ErrChatNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, err
	}

	s.metrics.IncChatRenamed()

	return s.store.GetChatByID(ctx, chatID)
}

// DeleteChat removes a chat and its messages.
func (s *ChatService) DeleteChat(ctx context.Context, principal *model.Principal, chatID string) error {
	if _, err := s.GetChat(ctx, principal, chatID); err != nil {
		return err
	}

	if err := s.store.DeleteChatCascade(ctx, chatID); err != nil {
		if errors.Is(err, repository.ErrChatNotFound) {
			return ErrChatNotFound
		}
		return err
	}

	s.metrics.IncChatDeleted()

	return nil
}

// ListMessages returns a chat's transcript in chronological order.
func (s *ChatService) ListMessages(ctx context.Context, principal *model.Principal, chatID string) ([]*model.Message, error) {
	if _, err := s.GetChat(ctx, principal, chatID); err != nil {
		return nil, err
	}
	return s.store.ListMessagesByChat(ctx, chatID)
}

// TurnResult is the outcome of a buffered exchange. UserMessage is nil
// when the submitted sequence did not end with a user turn.
type TurnResult struct {
	ChatID      string
	Created     bool // true when this exchange created the chat
	UserMessage *model.Message
	Reply       *model.Message
}

// SubmitTurn runs one buffered exchange. The submitted messages are the
// whole provider context for this call; history already stored for the
// chat is not re-sent, which bounds token cost at the price of
// conversational memory. The trailing user message is persisted before
// the provider is contacted, so a provider fault never loses user input.
// An empty chat ID starts a new chat titled from the first user message.
func (s *ChatService) SubmitTurn(ctx context.Context, principal *model.Principal, chatID string, messages []*model.Message) (*TurnResult, error) {
	prompt, err := s.validateExchange(messages)
	if err != nil {
		return nil, err
	}

	chat, created, err := s.resolveChat(ctx, principal, chatID, titleFromMessages(messages))
	if err != nil {
		return nil, err
	}

	userMsg, err := s.persistTrailingUserTurn(ctx, chat.ID, messages)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	reply, err := s.completer.Complete(ctx, prompt)
	s.metrics.ObserveCompletionDuration(time.Since(start))
	if err != nil {
		s.metrics.IncCompletion("error")
		if errors.Is(err, provider.ErrEmptyCompletion) {
			return nil, ErrEmptyCompletion
		}
		return nil, fmt.Errorf("%w: %s", ErrUpstream, err)
	}
	s.metrics.IncCompletion("success")

	assistantMsg := newMessage(chat.ID, model.RoleAssistant, reply)
	if err := s.store.CreateMessage(ctx, assistantMsg); err != nil {
		return nil, fmt.Errorf("persist assistant turn: %w", err)
	}
	s.metrics.IncTurnPersisted(string(model.RoleAssistant))

	s.publishUsage(ctx, chat, model.ModeBuffered, prompt, reply, 1, time.Since(start))

	return &TurnResult{
		ChatID:      chat.ID,
		Created:     created,
		UserMessage: userMsg,
		Reply:       assistantMsg,
	}, nil
}

// TurnStream carries fragments of one streamed exchange. The channel
// closes when the reply is complete or the stream faulted; a fault is
// delivered in band as a final marker fragment.
type TurnStream struct {
	ChatID    string
	Created   bool
	Fragments <-chan string
}

// SubmitTurnStream runs one streamed exchange. The user turn persists
// before the first fragment; the assistant turn persists when the
// stream drains, including partial replies after a disconnect.
func (s *ChatService) SubmitTurnStream(ctx context.Context, principal *model.Principal, chatID string, messages []*model.Message) (*TurnStream, error) {
	prompt, err := s.validateExchange(messages)
	if err != nil {
		return nil, err
	}

	chat, created, err := s.resolveChat(ctx, principal, chatID, titleFromMessages(messages))
	if err != nil {
		return nil, err
	}

	if _, err := s.persistTrailingUserTurn(ctx, chat.ID, messages); err != nil {
		return nil, err
	}

	start := time.Now()
	stream, err := s.completer.StreamCompletion(ctx, prompt)
	if err != nil {
		s.metrics.IncCompletion("error")
		return nil, fmt.Errorf("%w: %s", ErrUpstream, err)
	}

	fragments := make(chan string, 16)
	go s.pumpStream(ctx, stream, fragments, chat, prompt, start)

	return &TurnStream{
		ChatID:    chat.ID,
		Created:   created,
		Fragments: fragments,
	}, nil
}

// pumpStream forwards fragments until the upstream finishes or faults,
// then persists whatever reply accumulated.
func (s *ChatService) pumpStream(ctx context.Context, stream provider.Stream, fragments chan<- string, chat *model.Chat, prompt []*model.Message, start time.Time) {
	defer close(fragments)
	defer stream.Close()

	var reply strings.Builder
	count := 0
	failed := false

	for {
		fragment, err := stream.Recv()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				failed = true
				s.deliver(ctx, fragments, streamErrorPrefix+err.Error())
				s.logger.Error("completion stream faulted",
					slog.String("chat_id", chat.ID),
					slog.String("error", err.Error()))
			}
			break
		}

		reply.WriteString(fragment)
		count++

		if !s.deliver(ctx, fragments, fragment) {
			// Client went away; stop pulling so the upstream
			// request cancels, then persist the partial reply.
			break
		}
	}

	if failed {
		s.metrics.IncCompletion("error")
	} else {
		s.metrics.IncCompletion("success")
	}
	s.metrics.ObserveCompletionDuration(time.Since(start))

	if reply.Len() == 0 {
		return
	}

	// The request context may already be cancelled; the reply still
	// has to land in storage.
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	assistantMsg := newMessage(chat.ID, model.RoleAssistant, reply.String())
	if err := s.store.CreateMessage(persistCtx, assistantMsg); err != nil {
		s.logger.Error("failed to persist streamed reply",
			slog.String("chat_id", chat.ID),
			slog.String("error", err.Error()))
		return
	}
	s.metrics.IncTurnPersisted(string(model.RoleAssistant))

	s.publishUsage(persistCtx, chat, model.ModeStreaming, prompt, reply.String(), count, time.Since(start))
}

// deliver sends a fragment unless the consumer is gone.
func (s *ChatService) deliver(ctx context.Context, fragments chan<- string, fragment string) bool {
	select {
	case fragments <- fragment:
		return true
	case <-ctx.Done():
		return false
	}
}

// TransientStream streams a completion with no persistence.
// Used for unauthenticated clients.
func (s *ChatService) TransientStream(ctx context.Context, messages []*model.Message) (*TurnStream, error) {
	prompt, err := s.validateExchange(messages)
	if err != nil {
		return nil, err
	}

	stream, err := s.completer.StreamCompletion(ctx, prompt)
	if err != nil {
		s.metrics.IncCompletion("error")
		return nil, fmt.Errorf("%w: %s", ErrUpstream, err)
	}

	fragments := make(chan string, 16)
	go func() {
		defer close(fragments)
		defer stream.Close()

		for {
			fragment, err := stream.Recv()
			if err != nil {
				if !errors.Is(err, io.EOF) {
					s.deliver(ctx, fragments, streamErrorPrefix+err.Error())
					s.metrics.IncCompletion("error")
					return
				}
				s.metrics.IncCompletion("success")
				return
			}
			if !s.deliver(ctx, fragments, fragment) {
				return
			}
		}
	}()

	return &TurnStream{Fragments: fragments}, nil
}

// validateExchange filters the submitted messages down to the
// provider-facing prompt. Elements with an unknown role or blank content
// are dropped silently.
func (s *ChatService) validateExchange(messages []*model.Message) ([]*model.Message, error) {
	if len(messages) == 0 {
		return nil, ErrNoMessages
	}

	prompt := make([]*model.Message, 0, len(messages))
	for _, msg := range messages {
		if msg == nil || !msg.Role.IsPersistable() {
			continue
		}
		if strings.TrimSpace(msg.Content) == "" {
			continue
		}
		prompt = append(prompt, msg)
	}

	if len(prompt) == 0 {
		return nil, ErrEmptyContent
	}

	return prompt, nil
}

// persistTrailingUserTurn writes the last submitted message as a user
// turn when it has the user role. An exchange ending on an assistant
// message persists nothing here.
func (s *ChatService) persistTrailingUserTurn(ctx context.Context, chatID string, messages []*model.Message) (*model.Message, error) {
	last := messages[len(messages)-1]
	if last == nil || last.Role != model.RoleUser || strings.TrimSpace(last.Content) == "" {
		return nil, nil
	}

	userMsg := newMessage(chatID, model.RoleUser, last.Content)
	if err := s.store.CreateMessage(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("persist user turn: %w", err)
	}
	s.metrics.IncTurnPersisted(string(model.RoleUser))

	return userMsg, nil
}

// resolveChat loads and authorizes an existing chat, or creates one with
// the given title when chatID is empty.
func (s *ChatService) resolveChat(ctx context.Context, principal *model.Principal, chatID, title string) (*model.Chat, bool, error) {
	if chatID != "" {
		chat, err := s.GetChat(ctx, principal, chatID)
		return chat, false, err
	}

	chat, err := s.CreateChat(ctx, principal, title)
	if err != nil {
		return nil, false, err
	}
	return chat, true, nil
}

// titleFromMessages names a new chat after the first user message.
func titleFromMessages(messages []*model.Message) string {
	for _, msg := range messages {
		if msg != nil && msg.Role == model.RoleUser && strings.TrimSpace(msg.Content) != "" {
			return deriveTitle(msg.Content)
		}
	}
	return model.DefaultChatTitle
}

// deriveTitle truncates opening-message content into a title.
func deriveTitle(content string) string {
	content = strings.TrimSpace(content)
	if content == "" {
		return model.DefaultChatTitle
	}

	runes := []rune(content)
	if len(runes) > maxTitleLength {
		return string(runes[:maxTitleLength])
	}
	return content
}

// newMessage builds a persistable message with a time-sortable ID.
func newMessage(chatID string, role model.Role, content string) *model.Message {
	return &model.Message{
		ID:        ulid.Make().String(),
		ChatID:    chatID,
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// publishUsage emits a usage event when a publisher is wired.
func (s *ChatService) publishUsage(ctx context.Context, chat *model.Chat, mode string, prompt []*model.Message, reply string, fragmentCount int, latency time.Duration) {
	if s.usage == nil {
		return
	}

	promptChars := 0
	for _, msg := range prompt {
		promptChars += len(msg.Content)
	}

	s.usage.PublishAsync(ctx, &model.UsageEvent{
		EventID:         ulid.Make().String(),
		ChatID:          chat.ID,
		OwnerID:         chat.OwnerID,
		Mode:            mode,
		PromptChars:     promptChars,
		CompletionChars: len(reply),
		Fragments:       fragmentCount,
		LatencyMs:       latency.Milliseconds(),
		OccurredAt:      time.Now().UTC(),
	})
}
