package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tendapos/auth-service/internal/models"
	"github.com/tendapos/auth-service/internal/utils/httpclient"
)

// AuthBackend is the password-based session-issuing primitive this service
// bridges phone identities into. It exposes exactly two operations:
// register/overwrite a password credential for an identity, and exchange a
// credential pair for a session.
type AuthBackend interface {
	UpsertPasswordUser(ctx context.Context, userID, email, password string) error
	SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error)
}

// HTTPAuthBackend talks to the hosted auth service's admin and token
// endpoints. The service key authorizes admin calls and is never exposed to
// clients.
type HTTPAuthBackend struct {
	baseURL    string
	serviceKey string
	client     *http.Client
}

// NewHTTPAuthBackend creates a backend client with a bounded request timeout.
func NewHTTPAuthBackend(baseURL, serviceKey string, timeout time.Duration) *HTTPAuthBackend {
	return &HTTPAuthBackend{
		baseURL:    baseURL,
		serviceKey: serviceKey,
		client:     httpclient.New(timeout),
	}
}

type upsertUserRequest struct {
	ID           string `json:"id,omitempty"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	EmailConfirm bool   `json:"email_confirm"`
}

type passwordGrantRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpsertPasswordUser updates the credential pair for an existing identity,
// creating the identity on first login.
func (b *HTTPAuthBackend) UpsertPasswordUser(ctx context.Context, userID, email, password string) error {
	payload := upsertUserRequest{Email: email, Password: password, EmailConfirm: true}

	status, _, err := b.do(ctx, http.MethodPut, fmt.Sprintf("/admin/users/%s", userID), payload)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		payload.ID = userID
		status, _, err = b.do(ctx, http.MethodPost, "/admin/users", payload)
		if err != nil {
			return err
		}
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("auth backend user upsert failed with status %d", status)
	}
	return nil
}

// SignInWithPassword exchanges the credential pair for a session token pair.
func (b *HTTPAuthBackend) SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error) {
	status, body, err := b.do(ctx, http.MethodPost, "/token?grant_type=password", passwordGrantRequest{
		Email:    email,
		Password: password,
	})
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("auth backend sign-in failed with status %d", status)
	}

	var session models.Session
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("failed to decode auth backend session: %w", err)
	}
	if session.AccessToken == "" {
		return nil, fmt.Errorf("auth backend returned empty access token")
	}
	return &session, nil
}

func (b *HTTPAuthBackend) do(ctx context.Context, method, path string, payload interface{}) (int, []byte, error) {
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to marshal auth backend request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, bytes.NewBuffer(jsonBody))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create auth backend request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.serviceKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to reach auth backend: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read auth backend response: %w", err)
	}
	return resp.StatusCode, body, nil
}
