// Package webhook implements the Webhook collaborator's dispatch
// contract consumed by the Job Executor (C11): a narrow
// dispatch(workspace_id, event, payload) call, fire-and-forget. Each
// call makes a single delivery attempt; a failed delivery is not
// retried.
//
// Grounded on other_examples' project-jarvis send_worker.go for the
// HMAC-SHA256 signing idiom (hmac.New(sha256.New, secret) over the
// request body, hex-encoded) — the same construction, applied to a
// webhook body signature instead of a tracking-link signature.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"
)

// Envelope is the signed JSON body delivered to the configured
// webhook endpoint.
type Envelope struct {
	WorkspaceID string `json:"workspace_id"`
	Event       string `json:"event"`
	Payload     any    `json:"payload"`
	Timestamp   int64  `json:"timestamp"`
}

// Dispatcher sends signed webhook deliveries. Core callers invoke
// Dispatch exactly once per completed verify job; a failed delivery
// is reported to the caller and not retried.
type Dispatcher struct {
	endpoint string
	secret   string
	client   *http.Client
	now      func() int64
}

// New builds a Dispatcher posting to endpoint, signing with secret. An
// empty endpoint makes Dispatch a no-op, for deployments that have not
// configured a webhook. One endpoint serves every workspace.
func New(endpoint, secret string, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{
		endpoint: endpoint,
		secret:   secret,
		client:   &http.Client{Timeout: timeout},
		now:      func() int64 { return time.Now().Unix() },
	}
}

// Dispatch sends event+payload for workspaceID. Delivery errors are
// returned to the caller for logging but never block or fail the job
// that triggered them.
func (d *Dispatcher) Dispatch(ctx context.Context, workspaceID, event string, payload any) error {
	if d == nil || d.endpoint == "" {
		return nil
	}

	env := Envelope{WorkspaceID: workspaceID, Event: event, Payload: payload, Timestamp: d.now()}
	body, err := json.Marshal(env)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Signature", d.sign(body))

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}

func (d *Dispatcher) sign(body []byte) string {
	h := hmac.New(sha256.New, []byte(d.secret))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
