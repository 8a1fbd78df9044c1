package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"
	"github.com/parley/parley/internal/auth"
	"github.com/parley/parley/internal/model"
	"github.com/parley/parley/internal/provider"
	"github.com/parley/parley/internal/repository"
	"github.com/parley/parley/internal/service"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memStore is an in-memory ChatStore and AccountStore for handler tests.
type memStore struct {
	mu       sync.Mutex
	accounts map[string]*model.Account
	chats    map[string]*model.Chat
	messages map[string][]*model.Message
}

func newMemStore() *memStore {
	return &memStore{
		accounts: make(map[string]*model.Account),
		chats:    make(map[string]*model.Chat),
		messages: make(map[string][]*model.Message),
	}
}

func (m *memStore) UpsertAccount(ctx context.Context, account *model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.accounts[account.SubjectID]; ok {
		account.CreatedAt = existing.CreatedAt
	}
	cp := *account
	m.accounts[account.SubjectID] = &cp
	return nil
}

func (m *memStore) GetAccount(ctx context.Context, subjectID string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[subjectID]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	cp := *account
	return &cp, nil
}

func (m *memStore) CreateChat(ctx context.Context, chat *model.Chat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *chat
	m.chats[chat.ID] = &cp
	return nil
}

func (m *memStore) GetChatByID(ctx context.Context, id string) (*model.Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	chat, ok := m.chats[id]
	if !ok {
		return nil, repository.ErrChatNotFound
	}
	cp := *chat
	return &cp, nil
}

func (m *memStore) ListChatsByOwner(ctx context.Context, ownerID string) ([]*model.Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Chat
	for _, chat := range m.chats {
		if chat.OwnerID == ownerID {
			cp := *chat
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (m *memStore) UpdateChatTitle(ctx context.Context, id, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	chat, ok := m.chats[id]
	if !ok {
		return repository.ErrChatNotFound
	}
	chat.Title = title
	chat.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *memStore) DeleteChatCascade(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.chats[id]; !ok {
		return repository.ErrChatNotFound
	}
	delete(m.chats, id)
	delete(m.messages, id)
	return nil
}

func (m *memStore) CreateMessage(ctx context.Context, msg *model.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	chat, ok := m.chats[msg.ChatID]
	if !ok {
		return repository.ErrChatNotFound
	}
	cp := *msg
	m.messages[msg.ChatID] = append(m.messages[msg.ChatID], &cp)
	if msg.Timestamp.After(chat.UpdatedAt) {
		chat.UpdatedAt = msg.Timestamp
	}
	return nil
}

func (m *memStore) ListMessagesByChat(ctx context.Context, chatID string) ([]*model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.messages[chatID]
	out := make([]*model.Message, 0, len(msgs))
	for _, msg := range msgs {
		cp := *msg
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memStore) messageCount(chatID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages[chatID])
}

func (m *memStore) seedChat(ownerID, title string) *model.Chat {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	chat := &model.Chat{
		ID:        ulid.Make().String(),
		OwnerID:   ownerID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.chats[chat.ID] = chat
	return chat
}

// stubCompleter returns scripted replies.
type stubCompleter struct {
	reply     string
	fragments []string
	err       error
}

func (c *stubCompleter) Complete(ctx context.Context, transcript []*model.Message) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	return c.reply, nil
}

func (c *stubCompleter) StreamCompletion(ctx context.Context, transcript []*model.Message) (provider.Stream, error) {
	if c.err != nil {
		return nil, c.err
	}
	return &stubStream{fragments: c.fragments}, nil
}

type stubStream struct {
	fragments []string
	pos       int
}

func (s *stubStream) Recv() (string, error) {
	if s.pos >= len(s.fragments) {
		return "", io.EOF
	}
	fragment := s.fragments[s.pos]
	s.pos++
	return fragment, nil
}

func (s *stubStream) Close() error { return nil }

// withPrincipal injects a fixed principal, standing in for the auth
// middleware. A nil principal leaves the request anonymous.
func withPrincipal(p *model.Principal) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p != nil {
				r = r.WithContext(auth.ContextWithPrincipal(r.Context(), p))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// newTestRouter wires the full API surface over in-memory dependencies.
func newTestRouter(principal *model.Principal, store *memStore, completer *stubCompleter) http.Handler {
	logger := discardLogger()
	chatSvc := service.NewChatService(store, completer, nil, nil, logger)
	accountSvc := service.NewAccountService(store, nil)

	chats := NewChatHandler(chatSvc, logger)
	completions := NewCompletionHandler(chatSvc, logger)
	accounts := NewAccountHandler(accountSvc, logger)

	r := chi.NewRouter()
	r.Use(withPrincipal(principal))
	r.Post("/api/auth/sync", accounts.Sync)
	r.Get("/api/user/{uid}", accounts.Get)
	r.Get("/api/chats", chats.List)
	r.Post("/api/chats", chats.Create)
	r.Get("/api/chats/{id}", chats.Get)
	r.Patch("/api/chats/{id}", chats.Rename)
	r.Delete("/api/chats/{id}", chats.Delete)
	r.Get("/api/chats/{id}/messages", chats.ListMessages)
	r.Post("/api/chats/{id}/messages", chats.SendMessage)
	r.Post("/api/chat", completions.Complete)
	r.Post("/api/chat/stream", completions.Stream)
	return r
}
