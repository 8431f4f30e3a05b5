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

const termiiDefaultBaseURL = "https://api.ng.termii.com/api"

// TermiiProvider sends messages through the Termii messaging API (Nigeria).
type TermiiProvider struct {
	baseURL  string
	apiKey   string
	senderID string
	client   *http.Client
}

type termiiRequest struct {
	To      string `json:"to"`
	From    string `json:"from"`
	SMS     string `json:"sms"`
	Type    string `json:"type"`
	Channel string `json:"channel"`
	APIKey  string `json:"api_key"`
}

type termiiResponse struct {
	Code      string `json:"code"`
	MessageID string `json:"message_id"`
	Message   string `json:"message"`
}

// NewTermiiProvider builds the Nigeria provider. An empty baseURL selects
// the production API.
func NewTermiiProvider(baseURL, apiKey, senderID string, timeout time.Duration) *TermiiProvider {
	if baseURL == "" {
		baseURL = termiiDefaultBaseURL
	}
	return &TermiiProvider{
		baseURL:  baseURL,
		apiKey:   apiKey,
		senderID: senderID,
		client:   httpclient.New(timeout),
	}
}

func (p *TermiiProvider) Name() string { return "termii" }

// Send delivers one message. Termii reports success as code "ok".
func (p *TermiiProvider) Send(ctx context.Context, phone, message string) error {
	body, err := json.Marshal(termiiRequest{
		To:      phone,
		From:    p.senderID,
		SMS:     message,
		Type:    "plain",
		Channel: "generic",
		APIKey:  p.apiKey,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal termii request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/sms/send", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create termii request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send termii request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read termii response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("termii request failed with status %d", resp.StatusCode)
	}

	var parsed termiiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return fmt.Errorf("failed to decode termii response: %w", err)
	}
	if parsed.Code != "ok" {
		return fmt.Errorf("termii rejected message: code=%s message=%s", parsed.Code, parsed.Message)
	}

	return nil
}
