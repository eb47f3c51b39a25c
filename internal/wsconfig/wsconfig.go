// Package wsconfig implements the Workspace Config Resolver (C10): a
// key-value override table merged with system defaults, with typed
// parsing per recognized key. Unrecognized keys are ignored so adding
// a new setting never requires a schema change.
//
// Grounded on the teacher's config.go pattern of
// "parse with a fallback to a safe default on any error" (this
// package applies that pattern per-key instead of per-file).
package wsconfig

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/yourusername/mailverify/internal/candidates"
)

// Entry is one WorkspaceConfigEntry row: a workspace-scoped key with
// an always-string value.
type Entry struct {
	Workspace string
	Key       string
	Value     string
}

// Store loads the raw override entries for a workspace. The executor
// and API server supply a Postgres-backed implementation; tests supply
// an in-memory one.
type Store interface {
	ListEntries(ctx context.Context, workspaceID string) ([]Entry, error)
}

// Recognized keys.
const (
	KeySMTPTimeoutSeconds    = "smtp_timeout_seconds"
	KeyDNSTimeoutSeconds     = "dns_timeout_seconds"
	KeyEnabledPatternIndices = "enabled_pattern_indices"
	KeySMTPMailFrom          = "smtp_mail_from"
	KeyWebSearchProvider     = "web_search_provider"
	KeyWebSearchAPIKey       = "web_search_api_key"
	KeyAllowNoLastname       = "allow_no_lastname"
	KeyCustomPatterns        = "custom_patterns"
)

// Resolved is the fully-typed, post-validation configuration for one
// workspace.
type Resolved struct {
	SMTPTimeoutSeconds    int
	DNSTimeoutSeconds     float64
	EnabledPatternIndices []int
	SMTPMailFrom          string
	WebSearchProvider     string
	WebSearchAPIKey       string
	AllowNoLastname       bool
	CustomPatterns        []string
}

// Defaults returns the system defaults applied when a workspace has no
// override, or when an override fails validation.
func Defaults() Resolved {
	return Resolved{
		SMTPTimeoutSeconds:    5,
		DNSTimeoutSeconds:     5.0,
		EnabledPatternIndices: candidates.DefaultEnabledIndices(),
		SMTPMailFrom:          "noreply@mailcheck.local",
		WebSearchProvider:     "",
		WebSearchAPIKey:       "",
		AllowNoLastname:       false,
		CustomPatterns:        nil,
	}
}

// Resolve loads workspaceID's overrides from store and merges them
// onto Defaults(), key by key. A store error or an empty workspace ID
// both yield the system defaults rather than failing the caller — a
// missing config override set is a normal, not an exceptional, state.
func Resolve(ctx context.Context, workspaceID string, store Store) Resolved {
	cfg := Defaults()
	if store == nil || workspaceID == "" {
		return cfg
	}
	entries, err := store.ListEntries(ctx, workspaceID)
	if err != nil {
		return cfg
	}
	for _, e := range entries {
		applyEntry(&cfg, e.Key, e.Value)
	}
	return cfg
}

func applyEntry(cfg *Resolved, key, value string) {
	switch key {
	case KeySMTPTimeoutSeconds:
		if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			cfg.SMTPTimeoutSeconds = clampInt(n, 1, 30)
		}
	case KeyDNSTimeoutSeconds:
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			cfg.DNSTimeoutSeconds = clampFloat(f, 1, 30)
		}
	case KeyEnabledPatternIndices:
		var raw []int
		if err := json.Unmarshal([]byte(value), &raw); err == nil {
			if idx := validPatternIndices(raw); idx != nil {
				cfg.EnabledPatternIndices = idx
			}
		}
	case KeySMTPMailFrom:
		if v := strings.TrimSpace(value); v != "" {
			cfg.SMTPMailFrom = v
		}
	case KeyWebSearchProvider:
		v := strings.TrimSpace(value)
		if v == "bing" || v == "serper" || v == "" {
			cfg.WebSearchProvider = v
		}
	case KeyWebSearchAPIKey:
		cfg.WebSearchAPIKey = value
	case KeyAllowNoLastname:
		cfg.AllowNoLastname = parseBool(value)
	case KeyCustomPatterns:
		var raw []string
		if err := json.Unmarshal([]byte(value), &raw); err == nil {
			cfg.CustomPatterns = validCustomPatterns(raw)
		}
	}
}

func validPatternIndices(raw []int) []int {
	seen := make(map[int]struct{})
	var out []int
	for _, n := range raw {
		if n < 0 || n >= candidates.BankSize() {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	if len(out) < 5 {
		return nil
	}
	return out
}

func validCustomPatterns(raw []string) []string {
	var out []string
	for _, p := range raw {
		if len(out) >= candidates.MaxCustomPatterns {
			break
		}
		if candidates.ValidateCustomPattern(p) {
			out = append(out, p)
		}
	}
	return out
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes":
		return true
	default:
		return false
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// PublicView is the API-facing shape: the web search key masked to
// its last 4 characters, and enabled pattern indices annotated with
// their human-readable template labels.
type PublicView struct {
	SMTPTimeoutSeconds    int      `json:"smtp_timeout_seconds"`
	DNSTimeoutSeconds     float64  `json:"dns_timeout_seconds"`
	EnabledPatternIndices []int    `json:"enabled_pattern_indices"`
	EnabledPatternLabels  []string `json:"enabled_pattern_labels"`
	SMTPMailFrom          string   `json:"smtp_mail_from"`
	WebSearchProvider     string   `json:"web_search_provider"`
	WebSearchAPIKeyMasked string   `json:"web_search_api_key_masked"`
	AllowNoLastname       bool     `json:"allow_no_lastname"`
	CustomPatterns        []string `json:"custom_patterns"`
}

// ToPublicView renders r for an API response, masking the API key.
func (r Resolved) ToPublicView() PublicView {
	return PublicView{
		SMTPTimeoutSeconds:    r.SMTPTimeoutSeconds,
		DNSTimeoutSeconds:     r.DNSTimeoutSeconds,
		EnabledPatternIndices: r.EnabledPatternIndices,
		EnabledPatternLabels:  candidates.Labels(r.EnabledPatternIndices),
		SMTPMailFrom:          r.SMTPMailFrom,
		WebSearchProvider:     r.WebSearchProvider,
		WebSearchAPIKeyMasked: maskKey(r.WebSearchAPIKey),
		AllowNoLastname:       r.AllowNoLastname,
		CustomPatterns:        r.CustomPatterns,
	}
}

func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}
