// Package websearch implements the Web Mention Checker (C6): a
// pluggable lookup of whether a candidate address appears in public
// search results, used to enrich (never demote) the winning
// candidate's confidence.
package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Provider identifies a supported search backend.
type Provider string

const (
	Bing   Provider = "bing"
	Serper Provider = "serper"
)

// DefaultTimeout is the fixed per-call deadline.
const DefaultTimeout = 3 * time.Second

// CheckMentioned reports whether email appears to be mentioned in
// public web pages, via the configured provider. A missing provider
// or key, or any transport/HTTP error, yields (false, reason) rather
// than an error — the web check is additive and never fails a
// verification.
func CheckMentioned(ctx context.Context, email string, provider Provider, apiKey string, deadline time.Duration) (bool, string) {
	apiKey = strings.TrimSpace(apiKey)
	if provider == "" {
		return false, "not configured"
	}
	if apiKey == "" {
		return false, "not configured"
	}
	if deadline <= 0 {
		deadline = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	switch provider {
	case Bing:
		return checkBing(ctx, email, apiKey)
	case Serper:
		return checkSerper(ctx, email, apiKey)
	default:
		return false, fmt.Sprintf("provider %q not supported", provider)
	}
}

func checkBing(ctx context.Context, email, apiKey string) (bool, string) {
	q := url.QueryEscape(fmt.Sprintf("%q", email))
	endpoint := fmt.Sprintf("https://api.bing.microsoft.com/v7.0/search?q=%s&count=1", q)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, err.Error()
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", apiKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false, transportError(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return false, fmt.Sprintf("HTTP error Bing: %d", resp.StatusCode)
	}

	var body struct {
		WebPages struct {
			TotalEstimatedMatches int `json:"totalEstimatedMatches"`
		} `json:"webPages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, "invalid response from Bing"
	}
	return body.WebPages.TotalEstimatedMatches > 0, ""
}

func checkSerper(ctx context.Context, email, apiKey string) (bool, string) {
	payload, _ := json.Marshal(struct {
		Q   string `json:"q"`
		Num int    `json:"num"`
	}{Q: fmt.Sprintf("%q", email), Num: 1})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://google.serper.dev/search", bytes.NewReader(payload))
	if err != nil {
		return false, err.Error()
	}
	req.Header.Set("X-API-KEY", apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false, transportError(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return false, fmt.Sprintf("HTTP error Serper: %d", resp.StatusCode)
	}

	var body struct {
		Organic []json.RawMessage `json:"organic"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, "invalid response from Serper"
	}
	return len(body.Organic) > 0, ""
}

func transportError(err error) string {
	if strings.Contains(err.Error(), "context deadline exceeded") {
		return "Timeout connecting to provider"
	}
	return fmt.Sprintf("Request error: %v", err)
}
