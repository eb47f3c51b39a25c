// Package verify implements the Verifier (C9): orchestrates C1-C8 for
// a single candidate address, then for a full candidate set, selecting
// the best result. This is the engine's core.
//
// Grounded on original_source's verifier.py (the per-domain
// memoization of MX/SPF/DMARC/provider/catch-all, and the two-host cap
// on SMTP probing).
package verify

import (
	"context"
	"strings"
	"time"

	"github.com/yourusername/mailverify/internal/candidates"
	"github.com/yourusername/mailverify/internal/catchall"
	"github.com/yourusername/mailverify/internal/disposable"
	"github.com/yourusername/mailverify/internal/dnsprobe"
	"github.com/yourusername/mailverify/internal/provider"
	"github.com/yourusername/mailverify/internal/scorer"
	"github.com/yourusername/mailverify/internal/smtpprobe"
	"github.com/yourusername/mailverify/internal/verifylog"
	"github.com/yourusername/mailverify/internal/websearch"
)

// Sentinel is the subset of the SMTP-Blocked Sentinel (C4) the
// verifier needs: a read of the shared flag, and a way to feed new
// timeout observations back into it.
type Sentinel interface {
	IsBlocked(ctx context.Context) bool
	smtpprobe.BlockedReporter
}

// nopSentinel never reports blocked and discards timeout events, for
// callers (tests, stateless single-address checks) that don't wire a
// real one.
type nopSentinel struct{}

func (nopSentinel) IsBlocked(context.Context) bool        { return false }
func (nopSentinel) RecordTimeout(context.Context, string) {}

// NopSentinel is the zero-value Sentinel implementation.
var NopSentinel Sentinel = nopSentinel{}

// Config bundles the per-request settings the verifier consults to
// avoid threading a dozen scalar parameters through every call.
type Config struct {
	MailFrom     string
	SMTPDeadline time.Duration
	DNSDeadline  time.Duration

	WebProvider websearch.Provider
	WebAPIKey   string
	WebDeadline time.Duration

	CandidateOpts candidates.Options
}

// UsageFunc is invoked exactly once per web-search call attempted, so
// the caller can meter paid API usage.
type UsageFunc func()

// Result mirrors VerifyResult: everything a caller needs
// to render or persist one candidate's verdict.
type Result struct {
	Email         string
	Status        scorer.Status
	Reason        string
	Score         int
	MXFound       bool
	SPFPresent    bool
	DMARCPresent  bool
	CatchAll      *bool
	SMTPAttempted bool
	SMTPBlocked   bool
	SMTPCodeMsg   string
	Provider      provider.Tag
	WebMentioned  bool
	Signals       []string
}

// domainInfo is the per-domain memoized probe state shared by every
// candidate at that domain.
type domainInfo struct {
	mxHosts      []string
	mxErr        error
	spf, dmarc   bool
	tag          provider.Tag
	catchAll     *bool
	catchAllNote string
	smtpBlocked  bool
}

func probeDomain(ctx context.Context, domain string, cfg Config, sink verifylog.Sink, sentinel Sentinel) domainInfo {
	sink.Emit(verifylog.VerifyDomain, map[string]any{"domain": domain})

	var info domainInfo
	info.smtpBlocked = sentinel.IsBlocked(ctx)

	mxRecords, err := dnsprobe.MXLookup(ctx, domain, cfg.DNSDeadline)
	if err != nil {
		info.mxErr = err
		sink.Emit(verifylog.VerifyMXNotFound, map[string]any{"domain": domain})
		return info
	}
	hosts := make([]string, len(mxRecords))
	for i, r := range mxRecords {
		hosts[i] = r.Exchange
	}
	info.mxHosts = hosts
	sink.Emit(verifylog.VerifyMXRecords, map[string]any{"domain": domain, "count": len(hosts)})

	info.spf, info.dmarc = dnsprobe.CheckSPFDMARC(ctx, domain, cfg.DNSDeadline)
	sink.Emit(verifylog.DebugDNSSPFDMARC, map[string]any{"spf": info.spf, "dmarc": info.dmarc})

	info.tag = provider.Detect(hosts)
	sink.Emit(verifylog.DebugProviderDetected, map[string]any{"provider": string(info.tag)})

	if !info.smtpBlocked {
		res := catchall.Detect(ctx, hosts, domain, cfg.MailFrom, catchall.Deadlines{SMTP: cfg.SMTPDeadline, DNS: cfg.DNSDeadline}, sentinel)
		if res.SMTPAttempted {
			v := res.CatchAll
			info.catchAll = &v
		}
		info.catchAllNote = res.Reason
		sink.Emit(verifylog.DebugCatchallResult, map[string]any{"catch_all": res.CatchAll, "attempted": res.SMTPAttempted})
	}

	return info
}

// VerifyEmail runs the full single-candidate sequence: malformed/
// disposable shortcuts, then (using the already-resolved domain
// signals) an SMTP RCPT probe across at most the first two MX hosts,
// stopping on the first 2xx or clear rejection, then scoring.
func VerifyEmail(ctx context.Context, address string, info domainInfo, cfg Config, sink verifylog.Sink, sentinel Sentinel) Result {
	email := strings.ToLower(strings.TrimSpace(address))
	sink.Emit(verifylog.VerifyCandidate, map[string]any{"email": email})

	local, domain, ok := splitAddress(email)
	if !ok {
		return resultFromVerdict(email, scorer.MalformedAddress(), info)
	}
	_ = local

	if disposable.Is(domain) {
		sink.Emit(verifylog.DebugDisposableDomain, map[string]any{"domain": domain})
		return resultFromVerdict(email, scorer.Disposable(), info)
	}

	if info.mxErr != nil {
		return resultFromVerdict(email, scorer.NoMX(), info)
	}

	sig := scorer.Signals{
		MXFound:      len(info.mxHosts) > 0,
		SPFPresent:   info.spf,
		DMARCPresent: info.dmarc,
		Provider:     info.tag,
		SMTPBlocked:  info.smtpBlocked,
		CatchAll:     info.catchAll,
	}

	var codeMsg string
	if !info.smtpBlocked {
		hosts := info.mxHosts
		if len(hosts) > 2 {
			hosts = hosts[:2]
		}
		for _, host := range hosts {
			res := smtpprobe.ProbeRCPT(ctx, host, email, cfg.MailFrom, cfg.SMTPDeadline, cfg.DNSDeadline, sentinel)
			sig.SMTPAttempted = true
			sig.DetailAny = res.Detail
			codeMsg = res.Short
			sink.Emit(verifylog.DebugSMTPRCPTResult, map[string]any{"host": host, "accepted": res.Accepted, "detail": res.Detail})
			if res.Accepted {
				sig.AcceptedAny = true
				break
			}
			if !isInconclusive(res.Detail) {
				break
			}
		}
	} else {
		sink.Emit(verifylog.DebugSMTPBlocked, map[string]any{"domain": domain})
	}

	verdict := scorer.Score(sig)
	result := resultFromVerdict(email, verdict, info)
	result.SMTPAttempted = sig.SMTPAttempted
	result.SMTPCodeMsg = codeMsg
	sink.Emit(verifylog.VerifyCandidate, map[string]any{"email": email, "status": string(result.Status), "score": result.Score})
	return result
}

func isInconclusive(detail string) bool {
	return strings.Contains(detail, "SMTP error") || strings.Contains(detail, "Temporary") || strings.Contains(detail, "Timeout")
}

func resultFromVerdict(email string, v scorer.Verdict, info domainInfo) Result {
	return Result{
		Email:        email,
		Status:       v.Status,
		Reason:       v.Reason,
		Score:        v.Score,
		MXFound:      len(info.mxHosts) > 0,
		SPFPresent:   info.spf,
		DMARCPresent: info.dmarc,
		CatchAll:     info.catchAll,
		SMTPBlocked:  info.smtpBlocked,
		Provider:     info.tag,
		Signals:      signalList(info),
	}
}

func signalList(info domainInfo) []string {
	return []string{
		boolSignal("mx", len(info.mxHosts) > 0),
		boolSignal("spf", info.spf),
		boolSignal("dmarc", info.dmarc),
		"provider=" + string(info.tag),
		boolSignal("smtp_blocked", info.smtpBlocked),
	}
}

func boolSignal(name string, v bool) string {
	if v {
		return name + "=true"
	}
	return name + "=false"
}

func splitAddress(email string) (local, domain string, ok bool) {
	if strings.ContainsAny(email, " \t\n") {
		return "", "", false
	}
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "", "", false
	}
	local, domain = email[:at], email[at+1:]
	if local == "" || domain == "" || !strings.Contains(domain, ".") {
		return "", "", false
	}
	return local, domain, true
}

// VerifyAndPickBest implements verify_and_pick_best:
// generate candidates, verify each exactly once, track the
// lexicographically-best (score, status_rank) result with ties kept
// on the earlier candidate, then optionally enrich the winner with a
// web-mention check.
func VerifyAndPickBest(ctx context.Context, firstName, lastName, domain string, cfg Config, sink verifylog.Sink, sentinel Sentinel, usage UsageFunc) ([]string, string, *Result, map[string]Result) {
	if sentinel == nil {
		sentinel = NopSentinel
	}

	cands := candidates.Generate(firstName, lastName, domain, cfg.CandidateOpts)
	sink.Emit(verifylog.VerifyGeneratingCandidates, map[string]any{"count": len(cands)})
	if len(cands) == 0 {
		sink.Emit(verifylog.VerifyNoEmailFound, map[string]any{"domain": domain})
		return nil, "", nil, map[string]Result{}
	}

	sink.Emit(verifylog.VerifyCheckingMailServer, map[string]any{"domain": domain})
	info := probeDomain(ctx, domain, cfg, sink, sentinel)

	probeResults := make(map[string]Result, len(cands))
	var bestEmail string
	var best *Result

	for _, c := range cands {
		res := VerifyEmail(ctx, c, info, cfg, sink, sentinel)
		probeResults[c] = res
		if best == nil || dominates(res, *best) {
			r := res
			best = &r
			bestEmail = c
		}
	}

	if best != nil && bestEmail != "" && cfg.WebProvider != "" && cfg.WebAPIKey != "" {
		sink.Emit(verifylog.DebugWebSearching, map[string]any{"email": bestEmail})
		if usage != nil {
			usage()
		}
		found, reason := websearch.CheckMentioned(ctx, bestEmail, cfg.WebProvider, cfg.WebAPIKey, cfg.WebDeadline)
		best.Signals = append(best.Signals, boolSignal("web", found))
		if found {
			best.WebMentioned = true
			best.Reason += " | Email found in public sources."
			sink.Emit(verifylog.DebugWebFound, map[string]any{"email": bestEmail})
		} else {
			sink.Emit(verifylog.DebugWebNotFound, map[string]any{"email": bestEmail, "reason": reason})
		}
		probeResults[bestEmail] = *best
	}

	sink.Emit(verifylog.VerifyCompleted, map[string]any{"best": bestEmail, "score": best.Score})
	return cands, bestEmail, best, probeResults
}

// dominates reports whether candidate strictly beats current under
// the (score, status_rank) lexicographic order.
func dominates(candidate, current Result) bool {
	if candidate.Score != current.Score {
		return candidate.Score > current.Score
	}
	return candidate.Status.Rank() > current.Status.Rank()
}
