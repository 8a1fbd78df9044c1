package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/parley/parley/internal/model"
)

// Verification errors.
var (
	// ErrInvalidToken indicates the credential was rejected by the identity provider.
	ErrInvalidToken = errors.New("invalid authentication token")
)

// Verifier turns an opaque bearer credential into a verified principal.
type Verifier interface {
	Verify(ctx context.Context, token string) (*model.Principal, error)
}

// HTTPVerifier verifies credentials against an external identity endpoint.
// The endpoint receives {"token": "..."} and answers 200 with the principal
// claims, or 401 for a bad/expired credential.
type HTTPVerifier struct {
	verifyURL string
	client    *http.Client
}

// NewHTTPVerifier creates a verifier for the given endpoint.
func NewHTTPVerifier(verifyURL string, timeout time.Duration) *HTTPVerifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPVerifier{
		verifyURL: verifyURL,
		client:    &http.Client{Timeout: timeout},
	}
}

// verifyRequest is the payload sent to the identity endpoint.
type verifyRequest struct {
	Token string `json:"token"`
}

// Verify exchanges a bearer token for a verified principal.
func (v *HTTPVerifier) Verify(ctx context.Context, token string) (*model.Principal, error) {
	body, err := json.Marshal(verifyRequest{Token: token})
	if err != nil {
		return nil, fmt.Errorf("marshal verify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity verifier unreachable: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// Verified below
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusBadRequest:
		return nil, ErrInvalidToken
	default:
		return nil, fmt.Errorf("identity verifier returned status %d", resp.StatusCode)
	}

	var principal model.Principal
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&principal); err != nil {
		return nil, fmt.Errorf("decode verifier response: %w", err)
	}

	if principal.SubjectID == "" {
		return nil, ErrInvalidToken
	}

	return &principal, nil
}
