// Package executor implements the long-running worker loop that
// pulls verification tasks off the queue, runs them to completion
// through the verifier, and persists progress, results, and the
// structured log trail transactionally.
//
// Grounded on original_source's tasks/verify.py for its step-by-step
// commit-phase shape and soft/hard time-limit handling. The
// worker-loop skeleton (poll, one job at a time, graceful shutdown)
// follows the teacher's services/verifier/main.go HTTP server's
// signal-handling idiom, adapted from request-serving to
// queue-consuming.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/yourusername/mailverify/internal/candidates"
	"github.com/yourusername/mailverify/internal/dnsprobe"
	"github.com/yourusername/mailverify/internal/jobqueue"
	"github.com/yourusername/mailverify/internal/scorer"
	"github.com/yourusername/mailverify/internal/sentinel"
	"github.com/yourusername/mailverify/internal/store"
	"github.com/yourusername/mailverify/internal/verify"
	"github.com/yourusername/mailverify/internal/verifylog"
	"github.com/yourusername/mailverify/internal/webhook"
	"github.com/yourusername/mailverify/internal/websearch"
	"github.com/yourusername/mailverify/internal/wsconfig"
)

const (
	// SoftTimeLimit and HardTimeLimit are the per-job soft/hard bounds:
	// a job running past SoftTimeLimit is marked failed with a timeout
	// reason; HardTimeLimit bounds the context the worker loop gives it.
	SoftTimeLimit = 600 * time.Second
	HardTimeLimit = 660 * time.Second

	maxReasonLen = 500
)

// Store is the subset of *store.Store the executor needs: job and
// lead lifecycle, verification log, usage metering, and (via
// wsconfig.Store) workspace config entries. *store.Store satisfies
// this directly; tests supply an in-memory fake.
type Store interface {
	wsconfig.Store
	GetJobByJobID(ctx context.Context, workspaceID, jobID string) (*store.Job, error)
	TransitionRunning(ctx context.Context, id int64) error
	GetLead(ctx context.Context, id int64) (*store.Lead, error)
	InsertVerificationLog(ctx context.Context, leadID, jobID int64, mxHosts []string, probeResults map[string]store.ProbeResultRow, bestEmail, bestStatus string, bestConfidence int) error
	UpdateLeadVerification(ctx context.Context, id int64, u store.VerificationUpdate) error
	FinishJob(ctx context.Context, id int64, status store.JobStatus, progress int, result any, errMsg string) error
	AppendJobLogLines(ctx context.Context, jobID int64, records []verifylog.Record) error
	IncrementUsage(ctx context.Context, workspaceID, period, kind string, delta int) error
}

// Executor runs verification jobs pulled from the queue. MailFrom is
// the MAIL FROM address used only when the resolved workspace config
// has an empty smtp_mail_from; wsconfig.Defaults always supplies a
// non-empty value, so a workspace without an override probes with
// that default rather than with MailFrom.
type Executor struct {
	Store    Store
	Queue    *jobqueue.Queue
	Sentinel *sentinel.Sentinel
	Webhook  *webhook.Dispatcher
	MailFrom string
}

// Run polls the queue until ctx is cancelled, processing one task to
// completion at a time (prefetch of exactly one job).
func (e *Executor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		task, ok, err := e.Queue.Dequeue(ctx, 5*time.Second)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Printf("executor: dequeue error: %v", err)
			continue
		}
		if !ok {
			continue
		}

		jobCtx, cancel := context.WithTimeout(ctx, HardTimeLimit)
		e.ProcessTask(jobCtx, task)
		cancel()
	}
}

// ProcessTask runs the job executor's nine steps for a single task:
// load job, transition to running, load lead, resolve config, verify
// with a soft time limit, persist the verification log, update the
// lead, finish the job, then meter usage and dispatch the webhook.
// A panic anywhere in steps 3-9 (runVerification) is recovered and
// turned into a failed job with an ERROR_GENERIC log line and a truncated
// reason, rather than crashing the worker goroutine.
func (e *Executor) ProcessTask(ctx context.Context, task jobqueue.Task) {
	sink := &verifylog.CapturingSink{}

	// Step 1: load job, bail on missing/cancelled (idempotent no-op).
	job, err := e.Store.GetJobByJobID(ctx, task.WorkspaceID, task.JobID)
	if err != nil || job == nil {
		return
	}
	if job.Status == store.JobCancelled || job.Status == store.JobSucceeded ||
		job.Status == store.JobFailed {
		return
	}

	// Step 2: queued -> running.
	if err := e.Store.TransitionRunning(ctx, job.ID); err != nil {
		log.Printf("executor: transition running failed for job %s: %v", job.JobID, err)
		return
	}
	sink.Emit(verifylog.JobStarted, nil)
	sink.Emit(verifylog.JobStartingVerification, nil)
	sink.Emit(verifylog.DebugWorkerProcessing, map[string]any{"job_id": job.JobID})
	e.flush(ctx, job.ID, sink)

	defer func() {
		if r := recover(); r != nil {
			sink.Emit(verifylog.ErrorGeneric, map[string]any{"error": fmt.Sprintf("%v", r)})
			e.finishFailed(ctx, job.ID, sink, fmt.Sprintf("Unexpected error: %v", r))
		}
	}()

	e.runVerification(ctx, job, task, sink)
}

// runVerification carries out steps 3-9 of ProcessTask. Split out so
// ProcessTask's deferred recover covers the whole verification and
// persistence chain, not just the call into the verifier.
func (e *Executor) runVerification(ctx context.Context, job *store.Job, task jobqueue.Task, sink *verifylog.CapturingSink) {
	// Step 3: load lead.
	leadID, ok := parseLeadID(task.LeadID)
	if !ok {
		e.fail(ctx, job.ID, sink, verifylog.ErrorLeadNotFound, "Lead not found")
		return
	}
	lead, err := e.Store.GetLead(ctx, leadID)
	if err != nil {
		e.fail(ctx, job.ID, sink, verifylog.ErrorLeadNotFound, "Lead not found")
		return
	}
	if lead.OptOut {
		e.fail(ctx, job.ID, sink, verifylog.ErrorLeadOptedOut, "Lead has opted out")
		return
	}
	sink.Emit(verifylog.DebugLeadLoaded, map[string]any{"lead_id": lead.ID})

	// Step 4: resolve workspace config.
	cfg := wsconfig.Resolve(ctx, task.WorkspaceID, e.Store)
	sink.Emit(verifylog.DebugConfig, map[string]any{
		"smtp_timeout_seconds": cfg.SMTPTimeoutSeconds,
		"dns_timeout_seconds":  cfg.DNSTimeoutSeconds,
	})

	mailFrom := e.MailFrom
	if cfg.SMTPMailFrom != "" {
		mailFrom = cfg.SMTPMailFrom
	}

	vcfg := verify.Config{
		MailFrom:     mailFrom,
		SMTPDeadline: time.Duration(cfg.SMTPTimeoutSeconds) * time.Second,
		DNSDeadline:  time.Duration(cfg.DNSTimeoutSeconds * float64(time.Second)),
		WebProvider:  websearchProvider(cfg.WebSearchProvider),
		WebAPIKey:    cfg.WebSearchAPIKey,
		WebDeadline:  3 * time.Second,
		CandidateOpts: candidatesOptions(cfg),
	}

	// Step 5: soft time limit around verification.
	softCtx, softCancel := context.WithTimeout(ctx, SoftTimeLimit)
	defer softCancel()

	usage := func() {}
	cands, bestEmail, best, probeResults := verify.VerifyAndPickBest(
		softCtx, lead.FirstName, lead.LastName, lead.Domain, vcfg, sink, e.Sentinel, usage)

	if softCtx.Err() != nil {
		sink.Emit(verifylog.JobTimeout, nil)
		e.finishFailed(ctx, job.ID, sink, "Execution time exceeded (timeout)")
		return
	}

	// Step 6: separate mx_lookup for the VerificationLog, best-effort.
	mxHosts := mxHostsForLog(ctx, lead.Domain, vcfg.DNSDeadline)
	probeRows := toProbeRows(probeResults)
	bestStatus := "unknown"
	bestConfidence := 0
	if best != nil {
		bestStatus = string(best.Status)
		bestConfidence = best.Score
	}
	if err := e.Store.InsertVerificationLog(ctx, lead.ID, job.ID, mxHosts, probeRows, bestEmail, bestStatus, bestConfidence); err != nil {
		log.Printf("executor: insert verification log failed for job %s: %v", job.JobID, err)
	}

	// Step 7: update Lead verification fields.
	update := store.VerificationUpdate{Candidates: cands}
	if best != nil {
		update.BestEmail = bestEmail
		update.Status = string(best.Status)
		update.Confidence = best.Score
		update.MXFound = best.MXFound
		update.CatchAll = best.CatchAll != nil && *best.CatchAll
		update.SMTPCheck = best.SMTPAttempted
		update.Notes = best.Reason
		update.WebMentioned = best.WebMentioned
	} else {
		update.Status = "unknown"
	}
	if err := e.Store.UpdateLeadVerification(ctx, lead.ID, update); err != nil {
		log.Printf("executor: update lead failed for job %s: %v", job.JobID, err)
	}

	// Step 8: complete the job.
	if bestEmail != "" {
		sink.Emit(verifylog.VerifyCompleted, map[string]any{"best": bestEmail})
	} else {
		sink.Emit(verifylog.VerifyNoEmailFound, nil)
	}
	sink.Emit(verifylog.JobCompleted, nil)
	result := map[string]any{
		"lead_id":              lead.ID,
		"email_best":           bestEmail,
		"verification_status":  update.Status,
	}
	if err := e.Store.FinishJob(ctx, job.ID, store.JobSucceeded, 100, result, ""); err != nil {
		log.Printf("executor: finish job failed for job %s: %v", job.JobID, err)
	}
	e.flush(ctx, job.ID, sink)

	// Step 9: usage + webhook.
	period := currentPeriod()
	if err := e.Store.IncrementUsage(ctx, task.WorkspaceID, period, "verify", 1); err != nil {
		log.Printf("executor: increment usage failed for job %s: %v", job.JobID, err)
	}
	if e.Webhook != nil {
		payload := map[string]any{
			"job_id":               job.JobID,
			"lead_id":              lead.ID,
			"email_best":           bestEmail,
			"verification_status":  update.Status,
			"confidence_score":     update.Confidence,
		}
		if err := e.Webhook.Dispatch(ctx, task.WorkspaceID, "verification.completed", payload); err != nil {
			log.Printf("executor: webhook dispatch failed for job %s: %v", job.JobID, err)
		}
	}
}

func (e *Executor) fail(ctx context.Context, jobID int64, sink *verifylog.CapturingSink, code verifylog.Code, reason string) {
	sink.Emit(code, nil)
	e.finishFailed(ctx, jobID, sink, reason)
}

func (e *Executor) finishFailed(ctx context.Context, jobID int64, sink *verifylog.CapturingSink, reason string) {
	if len(reason) > maxReasonLen {
		reason = reason[:maxReasonLen]
	}
	if err := e.Store.FinishJob(ctx, jobID, store.JobFailed, 100, nil, reason); err != nil {
		log.Printf("executor: finish failed job %d: %v", jobID, err)
	}
	e.flush(ctx, jobID, sink)
}

func (e *Executor) flush(ctx context.Context, jobID int64, sink *verifylog.CapturingSink) {
	if err := e.Store.AppendJobLogLines(ctx, jobID, sink.Records); err != nil {
		log.Printf("executor: append log lines for job %d: %v", jobID, err)
	}
	sink.Records = nil
}

func parseLeadID(s string) (int64, bool) {
	var n int64
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// mxHostsForLog performs a separate mx lookup purely for the
// VerificationLog's record: a failure here
// is logged but never fails the job.
func mxHostsForLog(ctx context.Context, domain string, deadline time.Duration) []string {
	records, err := dnsprobe.MXLookup(ctx, domain, deadline)
	if err != nil {
		log.Printf("executor: mx lookup for verification log failed for %s: %v", domain, err)
		return nil
	}
	hosts := make([]string, len(records))
	for i, r := range records {
		hosts[i] = r.Exchange
	}
	return hosts
}

func toProbeRows(probeResults map[string]verify.Result) map[string]store.ProbeResultRow {
	out := make(map[string]store.ProbeResultRow, len(probeResults))
	for email, r := range probeResults {
		out[email] = store.ProbeResultRow{
			Accepted: r.Status == scorer.StatusValid,
			Detail:   r.Reason,
			Status:   string(r.Status),
			Score:    r.Score,
		}
	}
	return out
}

func currentPeriod() string {
	return time.Now().UTC().Format("2006-01")
}

func websearchProvider(p string) websearch.Provider {
	return websearch.Provider(p)
}

func candidatesOptions(cfg wsconfig.Resolved) candidates.Options {
	return candidates.Options{
		EnabledIndices:  cfg.EnabledPatternIndices,
		CustomPatterns:  cfg.CustomPatterns,
		AllowNoLastname: cfg.AllowNoLastname,
	}
}
