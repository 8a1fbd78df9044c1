package service

import "github.com/parley/parley/internal/model"

// Authorize checks that a principal owns a resource. Every chat read,
// write, and delete goes through this guard before touching storage.
func Authorize(principal *model.Principal, ownerID string) error {
	if principal == nil || principal.SubjectID == "" {
		return ErrForbidden
	}
	if principal.SubjectID != ownerID {
		return ErrForbidden
	}
	return nil
}
