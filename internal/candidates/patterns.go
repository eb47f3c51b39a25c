// Package candidates implements the Candidate Generator (C7): turns a
// lead's first/last name and domain into an ordered, deduplicated list
// of email addresses to probe, following a fixed bank of naming
// patterns plus any workspace-specific custom patterns.
//
// Grounded on original_source's email_patterns.py (the
// slugify/pattern-substitution/dedup pipeline).
package candidates

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// pattern is a naming template using {first}, {last}, {f}, {l} and
// {domain} placeholders, substituted by name.
type pattern struct {
	index    int
	template string
}

// bank is the fixed, ordered pattern set of ten patterns, indexed
// 0-9 so workspaces can enable a subset by index.
var bank = []pattern{
	{0, "{first}@{domain}"},
	{1, "{last}@{domain}"},
	{2, "{first}.{last}@{domain}"},
	{3, "{f}.{last}@{domain}"},
	{4, "{f}{last}@{domain}"},
	{5, "{first}{last}@{domain}"},
	{6, "{last}.{first}@{domain}"},
	{7, "{last}{f}@{domain}"},
	{8, "{first}_{last}@{domain}"},
	{9, "{last}_{first}@{domain}"},
}

// genericPatterns is used when a lead has no last name and the
// workspace allows generating candidates anyway (allow_no_lastname).
var genericPatterns = []string{
	"{first}@{domain}",
	"info@{domain}",
	"contact@{domain}",
	"contacto@{domain}",
	"hello@{domain}",
	"hola@{domain}",
}

// MaxCandidates bounds the final candidate list regardless of how many
// patterns are enabled or supplied.
const MaxCandidates = 15

// MaxCustomPatterns is the per-workspace cap on custom_patterns.
const MaxCustomPatterns = 20

// MaxCustomPatternLength is the per-pattern character cap.
const MaxCustomPatternLength = 100

// DefaultEnabledIndices is used when a workspace has not overridden
// enabled_pattern_indices: every bank pattern, in bank order.
func DefaultEnabledIndices() []int {
	return []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
}

// BankSize is the number of patterns in the fixed bank.
func BankSize() int {
	return len(bank)
}

// Labels returns the template strings for the given bank indices, in
// the order given, skipping any index outside [0, BankSize). Used by
// the workspace config resolver to render human-readable pattern
// labels in API responses.
func Labels(indices []int) []string {
	out := make([]string, 0, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= len(bank) {
			continue
		}
		out = append(out, bank[idx].template)
	}
	return out
}

// Options controls candidate generation for one workspace/lead pair.
type Options struct {
	EnabledIndices  []int
	CustomPatterns  []string
	AllowNoLastname bool
}

// Generate returns the ordered, deduplicated candidate list for
// firstName/lastName at domain, per opts. An empty domain always
// yields no candidates. A missing last name yields no candidates
// unless opts.AllowNoLastname is set, in which case genericPatterns is
// used instead of the indexed bank.
func Generate(firstName, lastName, domain string, opts Options) []string {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return nil
	}

	first := slugify(firstName)
	last := slugify(lastName)

	var rendered []string
	switch {
	case last == "" && !opts.AllowNoLastname:
		return nil
	case last == "":
		for _, tmpl := range genericPatterns {
			if strings.Contains(tmpl, "{first}") && first == "" {
				continue
			}
			rendered = append(rendered, render(tmpl, first, last, domain))
		}
	default:
		indices := opts.EnabledIndices
		if len(indices) == 0 {
			indices = DefaultEnabledIndices()
		}
		for _, idx := range indices {
			if idx < 0 || idx >= len(bank) {
				continue
			}
			tmpl := bank[idx].template
			if first == "" && (strings.Contains(tmpl, "{first}") || strings.Contains(tmpl, "{f}")) {
				continue
			}
			rendered = append(rendered, render(tmpl, first, last, domain))
		}
		for _, custom := range opts.CustomPatterns {
			if first == "" && (strings.Contains(custom, "{first}") || strings.Contains(custom, "{f}")) {
				continue
			}
			rendered = append(rendered, render(custom, first, last, domain))
		}
	}

	return dedupTruncate(rendered, MaxCandidates)
}

// ValidateCustomPattern reports whether a workspace-supplied custom
// pattern meets the engine's shape requirements: it must reference
// the literal placeholder "@{domain}" and stay within the length cap.
// It does not enforce the per-workspace count cap — callers check that
// against the full list.
func ValidateCustomPattern(p string) bool {
	if len(p) == 0 || len(p) > MaxCustomPatternLength {
		return false
	}
	return strings.Contains(p, "@{domain}")
}

func render(tmpl, first, last, domain string) string {
	r := strings.NewReplacer(
		"{first}", first,
		"{last}", last,
		"{f}", firstInitial(first),
		"{l}", firstInitial(last),
		"{domain}", domain,
	)
	return strings.ToLower(r.Replace(tmpl))
}

func firstInitial(s string) string {
	if s == "" {
		return ""
	}
	return s[:1]
}

func dedupTruncate(in []string, max int) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, c := range in {
		if c == "" || strings.HasPrefix(c, "@") {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
		if len(out) >= max {
			break
		}
	}
	return out
}

// slugify lowercases name, strips diacritics (ñ -> n, é -> e, ...) via
// Unicode NFD decomposition and combining-mark removal, and drops
// everything outside [a-z0-9].
func slugify(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	decomposed := norm.NFD.String(name)

	var b strings.Builder
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
