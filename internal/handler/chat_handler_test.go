package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/parley/parley/internal/model"
)

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return body
}

func TestChatHandler_CreateAndList(t *testing.T) {
	owner := &model.Principal{SubjectID: "user-1", Email: "u@example.com"}
	store := newMemStore()
	router := newTestRouter(owner, store, &stubCompleter{})

	req := httptest.NewRequest(http.MethodPost, "/api/chats", strings.NewReader(`{"title":"Trip planning"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("create status: got %d, want 201", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	if body["success"] != true {
		t.Error("expected success envelope")
	}
	data := body["data"].(map[string]any)
	chatID, _ := data["chat_id"].(string)
	if chatID == "" {
		t.Fatalf("chat_id missing from create response: %v", data)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/chats", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("list status: got %d, want 200", rec.Code)
	}
	body = decodeEnvelope(t, rec)
	chats := body["data"].([]any)
	if len(chats) != 1 {
		t.Fatalf("chat count: got %d, want 1", len(chats))
	}
	listed := chats[0].(map[string]any)
	if listed["id"] != chatID {
		t.Errorf("listed id: got %v, want %s", listed["id"], chatID)
	}
	if listed["title"] != "Trip planning" {
		t.Errorf("title: got %v", listed["title"])
	}
	if listed["user_id"] != "user-1" {
		t.Errorf("user_id: got %v", listed["user_id"])
	}
}

func TestChatHandler_CreateEmptyTitleDefaults(t *testing.T) {
	owner := &model.Principal{SubjectID: "user-1"}
	router := newTestRouter(owner, newMemStore(), &stubCompleter{})

	req := httptest.NewRequest(http.MethodPost, "/api/chats", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201", rec.Code)
	}
	chatID, _ := decodeEnvelope(t, rec)["data"].(map[string]any)["chat_id"].(string)
	if chatID == "" {
		t.Fatal("chat_id missing from create response")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/chats/"+chatID, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("get status: got %d, want 200", rec.Code)
	}
	data := decodeEnvelope(t, rec)["data"].(map[string]any)
	if data["title"] != model.DefaultChatTitle {
		t.Errorf("title: got %v, want %q", data["title"], model.DefaultChatTitle)
	}
}

func TestChatHandler_Rename(t *testing.T) {
	owner := &model.Principal{SubjectID: "user-1"}
	store := newMemStore()
	chat := store.seedChat("user-1", "Old title")
	router := newTestRouter(owner, store, &stubCompleter{})

	req := httptest.NewRequest(http.MethodPatch, "/api/chats/"+chat.ID, strings.NewReader(`{"title":"New title"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200: %s", rec.Code, rec.Body.String())
	}
	data := decodeEnvelope(t, rec)["data"].(map[string]any)
	if data["title"] != "New title" {
		t.Errorf("title: got %v", data["title"])
	}
}

func TestChatHandler_RenameBlankTitle(t *testing.T) {
	owner := &model.Principal{SubjectID: "user-1"}
	store := newMemStore()
	chat := store.seedChat("user-1", "Old title")
	router := newTestRouter(owner, store, &stubCompleter{})

	req := httptest.NewRequest(http.MethodPatch, "/api/chats/"+chat.ID, strings.NewReader(`{"title":"  "}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rec.Code)
	}
}

func TestChatHandler_ForeignChatForbidden(t *testing.T) {
	owner := &model.Principal{SubjectID: "user-1"}
	store := newMemStore()
	foreign := store.seedChat("user-2", "Someone else's")
	router := newTestRouter(owner, store, &stubCompleter{})

	for _, tc := range []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodGet, "/api/chats/" + foreign.ID, ""},
		{http.MethodPatch, "/api/chats/" + foreign.ID, `{"title":"Hijacked"}`},
		{http.MethodDelete, "/api/chats/" + foreign.ID, ""},
		{http.MethodGet, "/api/chats/" + foreign.ID + "/messages", ""},
	} {
		var reader *strings.Reader
		if tc.body != "" {
			reader = strings.NewReader(tc.body)
		} else {
			reader = strings.NewReader("")
		}
		req := httptest.NewRequest(tc.method, tc.path, reader)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Errorf("%s %s: got %d, want 403", tc.method, tc.path, rec.Code)
		}
	}
}

func TestChatHandler_DeleteRemovesMessages(t *testing.T) {
	owner := &model.Principal{SubjectID: "user-1"}
	store := newMemStore()
	chat := store.seedChat("user-1", "Doomed")
	router := newTestRouter(owner, store, &stubCompleter{})

	req := httptest.NewRequest(http.MethodDelete, "/api/chats/"+chat.ID, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/chats/"+chat.ID, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("deleted chat lookup: got %d, want 404", rec.Code)
	}
}

func TestChatHandler_SendMessage(t *testing.T) {
	owner := &model.Principal{SubjectID: "user-1"}
	store := newMemStore()
	chat := store.seedChat("user-1", "Ongoing")
	router := newTestRouter(owner, store, &stubCompleter{reply: "Noted."})

	req := httptest.NewRequest(http.MethodPost, "/api/chats/"+chat.ID+"/messages", strings.NewReader(`{"content":"Remember this"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200: %s", rec.Code, rec.Body.String())
	}
	data := decodeEnvelope(t, rec)["data"].(map[string]any)
	userMsg := data["userMessage"].(map[string]any)
	aiMsg := data["aiResponse"].(map[string]any)
	if userMsg["role"] != "user" || userMsg["content"] != "Remember this" {
		t.Errorf("user message: got %v", userMsg)
	}
	if aiMsg["role"] != "assistant" || aiMsg["content"] != "Noted." {
		t.Errorf("reply: got %v", aiMsg)
	}
	if got := store.messageCount(chat.ID); got != 2 {
		t.Errorf("persisted messages: got %d, want 2", got)
	}
}

func TestChatHandler_SendMessageUnknownChat(t *testing.T) {
	owner := &model.Principal{SubjectID: "user-1"}
	router := newTestRouter(owner, newMemStore(), &stubCompleter{reply: "x"})

	req := httptest.NewRequest(http.MethodPost, "/api/chats/missing/messages", strings.NewReader(`{"content":"hello"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want 404", rec.Code)
	}
}

func TestChatHandler_UnknownChatNotFound(t *testing.T) {
	owner := &model.Principal{SubjectID: "user-1"}
	router := newTestRouter(owner, newMemStore(), &stubCompleter{})

	req := httptest.NewRequest(http.MethodGet, "/api/chats/no-such-chat", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want 404", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	if body["success"] != false {
		t.Error("expected failure envelope")
	}
	if body["message"] != "Chat not found" {
		t.Errorf("message: got %v", body["message"])
	}
}

func TestChatHandler_InvalidJSON(t *testing.T) {
	owner := &model.Principal{SubjectID: "user-1"}
	router := newTestRouter(owner, newMemStore(), &stubCompleter{})

	req := httptest.NewRequest(http.MethodPost, "/api/chats", strings.NewReader(`{not json`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rec.Code)
	}
}

func TestAccountHandler_SyncAndGet(t *testing.T) {
	owner := &model.Principal{SubjectID: "user-1", Email: "u@example.com", DisplayName: "Pat"}
	store := newMemStore()
	router := newTestRouter(owner, store, &stubCompleter{})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/sync", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("sync status: got %d, want 200: %s", rec.Code, rec.Body.String())
	}
	data := decodeEnvelope(t, rec)["data"].(map[string]any)
	if data["uid"] != "user-1" || data["email"] != "u@example.com" {
		t.Errorf("synced account: got %v", data)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/user/user-1", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("get status: got %d, want 200", rec.Code)
	}
}

func TestAccountHandler_GetForeignForbidden(t *testing.T) {
	owner := &model.Principal{SubjectID: "user-1"}
	router := newTestRouter(owner, newMemStore(), &stubCompleter{})

	req := httptest.NewRequest(http.MethodGet, "/api/user/user-2", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status: got %d, want 403", rec.Code)
	}
}
