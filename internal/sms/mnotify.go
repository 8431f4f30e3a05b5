package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tendapos/auth-service/internal/utils/httpclient"
)

const mnotifyDefaultBaseURL = "https://api.mnotify.com/api"

// MnotifyProvider sends messages through the mNotify bulk SMS API (Ghana).
type MnotifyProvider struct {
	baseURL  string
	apiKey   string
	senderID string
	client   *http.Client
}

type mnotifyRequest struct {
	Recipient  []string `json:"recipient"`
	Sender     string   `json:"sender"`
	Message    string   `json:"message"`
	IsSchedule string   `json:"is_schedule"`
}

type mnotifyResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewMnotifyProvider builds the Ghana provider. An empty baseURL selects the
// production API.
func NewMnotifyProvider(baseURL, apiKey, senderID string, timeout time.Duration) *MnotifyProvider {
	if baseURL == "" {
		baseURL = mnotifyDefaultBaseURL
	}
	return &MnotifyProvider{
		baseURL:  baseURL,
		apiKey:   apiKey,
		senderID: senderID,
		client:   httpclient.New(timeout),
	}
}

func (p *MnotifyProvider) Name() string { return "mnotify" }

// Send delivers one message. mNotify reports success as status "success"
// with code "2000".
func (p *MnotifyProvider) Send(ctx context.Context, phone, message string) error {
	body, err := json.Marshal(mnotifyRequest{
		Recipient:  []string{phone},
		Sender:     p.senderID,
		Message:    message,
		IsSchedule: "false",
	})
	if err != nil {
		return fmt.Errorf("failed to marshal mnotify request: %w", err)
	}

	url := fmt.Sprintf("%s/sms/quick?key=%s", p.baseURL, p.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create mnotify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send mnotify request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read mnotify response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("mnotify request failed with status %d", resp.StatusCode)
	}

	var parsed mnotifyResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return fmt.Errorf("failed to decode mnotify response: %w", err)
	}
	if parsed.Status != "success" {
		return fmt.Errorf("mnotify rejected message: code=%s message=%s", parsed.Code, parsed.Message)
	}

	return nil
}
