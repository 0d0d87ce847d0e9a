package delivery

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/serialagent/gateway/internal/config"
)

// webhookPayload is the JSON body posted to a configured webhook target.
type webhookPayload struct {
	ScheduleID string `json:"schedule_id,omitempty"`
	RunID      string `json:"run_id,omitempty"`
	Content    string `json:"content"`
	SentAt     string `json:"sent_at"`
}

// sendWebhook POSTs content to cfg.URL, HMAC-signing the body when a signing
// secret is configured so the receiver can verify authenticity (spec §4.6
// "Webhook deliveries are signed"), grounded on the HTTP client construction
// idiom used throughout the tools package (explicit timeout, context-scoped
// request).
func sendWebhook(ctx context.Context, cfg config.WebhookTargetConfig, content string, scheduleID, runID string) error {
	body, err := json.Marshal(webhookPayload{
		ScheduleID: scheduleID,
		RunID:      runID,
		Content:    content,
		SentAt:     time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("webhook: marshal payload: %w", err)
	}

	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if cfg.SigningSecret != "" {
		mac := hmac.New(sha256.New, []byte(cfg.SigningSecret))
		mac.Write(body)
		req.Header.Set("X-SerialAgent-Signature", "sha256="+hex.EncodeToString(mac.Sum(nil)))
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook: target returned status %d", resp.StatusCode)
	}
	return nil
}
