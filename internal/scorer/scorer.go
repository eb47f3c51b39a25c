// Package scorer implements the Scorer (C8): a pure signal -> (score,
// status, reason) decision function. It takes no network action and
// performs no I/O; every input it reads was already gathered by C1-C6.
//
// Follows the shape of original_source's verifier.py scoring (a base
// score plus additive bonuses, then exclusive branches); the
// SPF/DMARC/provider bonuses and the smtp_blocked branch have no
// counterpart there.
package scorer

import (
	"strings"

	"github.com/yourusername/mailverify/internal/provider"
)

// Status is the closed set of verification outcomes, ordered by
// status_rank for candidate comparison.
type Status string

const (
	StatusInvalid Status = "invalid"
	StatusUnknown Status = "unknown"
	StatusRisky   Status = "risky"
	StatusValid   Status = "valid"
)

// Rank returns status_rank: invalid=0, unknown=1, risky=2, valid=3.
func (s Status) Rank() int {
	switch s {
	case StatusInvalid:
		return 0
	case StatusUnknown:
		return 1
	case StatusRisky:
		return 2
	case StatusValid:
		return 3
	default:
		return 0
	}
}

// Signals bundles every input the scorer consults for one candidate.
type Signals struct {
	MXFound       bool
	SPFPresent    bool
	DMARCPresent  bool
	Provider      provider.Tag
	SMTPBlocked   bool
	SMTPAttempted bool
	AcceptedAny   bool
	CatchAll      *bool // nil: not probed
	DetailAny     string
}

// Verdict is the scorer's pure output.
type Verdict struct {
	Score  int
	Status Status
	Reason string
}

// MalformedAddress returns the early-termination verdict for an
// address that fails basic shape checks, before the scorer proper is
// consulted.
func MalformedAddress() Verdict {
	return Verdict{Score: 0, Status: StatusInvalid, Reason: "Malformed email address"}
}

// Disposable returns the early-termination verdict for a domain on the
// disposable-provider list.
func Disposable() Verdict {
	return Verdict{Score: 0, Status: StatusInvalid, Reason: "Disposable email domain"}
}

// NoMX returns the early-termination verdict for a domain whose MX
// lookup failed outright (as opposed to simply returning zero
// records, which Score handles as MXFound=false).
func NoMX() Verdict {
	return Verdict{Score: 5, Status: StatusInvalid, Reason: "No MX records (or DNS failed)"}
}

// Score applies the engine's branch logic to produce the final
// verdict for one fully-probed candidate.
func Score(s Signals) Verdict {
	score := 35
	var reasons []string

	if s.MXFound {
		score += 20
		reasons = append(reasons, "MX found")
	}
	if s.SPFPresent {
		score += 10
		reasons = append(reasons, "SPF present")
	}
	if s.DMARCPresent {
		score += 10
		reasons = append(reasons, "DMARC present")
	}
	if provider.Boosts(s.Provider) {
		score += 10
		reasons = append(reasons, "known provider ("+string(s.Provider)+")")
	}

	var status Status

	switch {
	case s.SMTPBlocked:
		score, status, reasons = scoreBlocked(s, score, reasons)
	case s.SMTPAttempted:
		score, status, reasons = scoreAttempted(s, score, reasons)
	default:
		if s.MXFound {
			status = StatusRisky
		} else {
			status = StatusUnknown
		}
		reasons = append(reasons, "SMTP not attempted")
	}

	score = clamp(score)
	return Verdict{Score: score, Status: status, Reason: strings.Join(reasons, " | ")}
}

func scoreBlocked(s Signals, score int, reasons []string) (int, Status, []string) {
	reasons = append(reasons, "SMTP outbound appears blocked")
	hasOtherSignal := s.SPFPresent || s.DMARCPresent || s.Provider != provider.Other
	switch {
	case s.MXFound && hasOtherSignal:
		return score, StatusRisky, reasons
	case s.MXFound:
		if score < 50 {
			score = 50
		}
		return score, StatusRisky, reasons
	default:
		return score, StatusUnknown, reasons
	}
}

func scoreAttempted(s Signals, score int, reasons []string) (int, Status, []string) {
	catchAll := s.CatchAll != nil && *s.CatchAll

	if catchAll {
		score -= 10
		reasons = append(reasons, "domain appears to be catch-all")
	}

	switch {
	case s.AcceptedAny && !catchAll:
		score += 25
		return score, StatusValid, append(reasons, "RCPT accepted")
	case s.AcceptedAny && catchAll:
		score += 10
		return score, StatusRisky, reasons
	case containsAny(s.DetailAny, "SMTP error", "Temporary", "Timeout"):
		return score, StatusUnknown, append(reasons, "inconclusive SMTP response")
	default:
		score = score - 30
		if score < 5 {
			score = 5
		}
		return score, StatusInvalid, append(reasons, "RCPT rejected")
	}
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func containsAny(haystack string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
