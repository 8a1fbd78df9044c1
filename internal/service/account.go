package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/parley/parley/internal/metrics"
	"github.com/parley/parley/internal/model"
	"github.com/parley/parley/internal/repository"
)

// AccountStore is the persistence surface the account service needs.
type AccountStore interface {
	UpsertAccount(ctx context.Context, account *model.Account) error
	GetAccount(ctx context.Context, subjectID string) (*model.Account, error)
}

// AccountService handles account sync and lookup.
type AccountService struct {
	store   AccountStore
	metrics metrics.Recorder
}

// NewAccountService creates a new AccountService.
func NewAccountService(store AccountStore, recorder metrics.Recorder) *AccountService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &AccountService{
		store:   store,
		metrics: recorder,
	}
}

// SyncAccount records a verified principal as an account. Profile fields
// refresh on every sync; created_at is stamped once by the store.
func (s *AccountService) SyncAccount(ctx context.Context, principal *model.Principal) (*model.Account, error) {
	if principal == nil || principal.SubjectID == "" {
		return nil, ErrForbidden
	}

	now := time.Now().UTC()
	account := &model.Account{
		SubjectID:   principal.SubjectID,
		Email:       principal.Email,
		DisplayName: principal.DisplayName,
		PhotoURL:    principal.PhotoURL,
		CreatedAt:   now,
		LastLogin:   now,
	}

	if err := s.store.UpsertAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("sync account: %w", err)
	}

	// Read back so created_at reflects the first sync, not this one
	stored, err := s.store.GetAccount(ctx, principal.SubjectID)
	if err != nil {
		return nil, fmt.Errorf("read back account: %w", err)
	}

	return stored, nil
}

// GetAccount returns a subject's own account record. A principal can
// only read the account matching its subject ID.
func (s *AccountService) GetAccount(ctx context.Context, principal *model.Principal, subjectID string) (*model.Account, error) {
	if err := Authorize(principal, subjectID); err != nil {
		return nil, err
	}

	account, err := s.store.GetAccount(ctx, subjectID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	return account, nil
}
