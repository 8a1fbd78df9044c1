package service

import (
	"context"
	"errors"
	"testing"

	"github.com/parley/parley/internal/model"
)

func TestSyncAccount_CreatesAndRefreshes(t *testing.T) {
	store := newFakeStore()
	svc := NewAccountService(store, nil)

	principal := &model.Principal{
		SubjectID:   "user-1",
		Email:       "first@example.com",
		DisplayName: "First",
	}

	account, err := svc.SyncAccount(context.Background(), principal)
	if err != nil {
		t.Fatalf("SyncAccount failed: %v", err)
	}
	if account.Email != "first@example.com" {
		t.Errorf("email: got %q", account.Email)
	}
	firstCreated := account.CreatedAt

	// Second sync with refreshed profile
	principal.Email = "second@example.com"
	principal.DisplayName = "Second"

	account, err = svc.SyncAccount(context.Background(), principal)
	if err != nil {
		t.Fatalf("SyncAccount (second) failed: %v", err)
	}
	if account.Email != "second@example.com" {
		t.Errorf("email not refreshed: got %q", account.Email)
	}
	if account.DisplayName != "Second" {
		t.Errorf("display name not refreshed: got %q", account.DisplayName)
	}
	if !account.CreatedAt.Equal(firstCreated) {
		t.Errorf("created_at changed on re-sync: %v vs %v", account.CreatedAt, firstCreated)
	}
}

func TestSyncAccount_RequiresPrincipal(t *testing.T) {
	svc := NewAccountService(newFakeStore(), nil)

	if _, err := svc.SyncAccount(context.Background(), nil); !errors.Is(err, ErrForbidden) {
		t.Errorf("nil principal: expected ErrForbidden, got %v", err)
	}
	if _, err := svc.SyncAccount(context.Background(), &model.Principal{}); !errors.Is(err, ErrForbidden) {
		t.Errorf("empty subject: expected ErrForbidden, got %v", err)
	}
}

func TestGetAccount_OwnRecordOnly(t *testing.T) {
	store := newFakeStore()
	svc := NewAccountService(store, nil)

	principal := &model.Principal{SubjectID: "user-1", Email: "me@example.com"}
	if _, err := svc.SyncAccount(context.Background(), principal); err != nil {
		t.Fatalf("SyncAccount failed: %v", err)
	}

	account, err := svc.GetAccount(context.Background(), principal, "user-1")
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if account.SubjectID != "user-1" {
		t.Errorf("subject: got %q", account.SubjectID)
	}

	// Reading someone else's record is refused before any lookup
	_, err = svc.GetAccount(context.Background(), principal, "user-2")
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}

func TestGetAccount_NotFound(t *testing.T) {
	svc := NewAccountService(newFakeStore(), nil)

	principal := &model.Principal{SubjectID: "ghost"}
	_, err := svc.GetAccount(context.Background(), principal, "ghost")
	if !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("expected ErrAccountNotFound, got %v", err)
	}
}
