package service

import (
	"errors"
	"testing"

	"github.com/parley/parley/internal/model"
)

func TestAuthorize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		principal *model.Principal
		ownerID   string
		wantErr   error
	}{
		{
			name:      "owner matches",
			principal: &model.Principal{SubjectID: "user-1"},
			ownerID:   "user-1",
			wantErr:   nil,
		},
		{
			name:      "owner differs",
			principal: &model.Principal{SubjectID: "user-1"},
			ownerID:   "user-2",
			wantErr:   ErrForbidden,
		},
		{
			name:      "nil principal",
			principal: nil,
			ownerID:   "user-1",
			wantErr:   ErrForbidden,
		},
		{
			name:      "empty subject",
			principal: &model.Principal{},
			ownerID:   "",
			wantErr:   ErrForbidden,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := Authorize(tt.principal, tt.ownerID)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Authorize() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
