// Package store is the Postgres persistence layer backing the Job
// Executor (C11) and the Workspace Config Resolver (C10): Job, Lead,
// JobLogLine, VerificationLog and WorkspaceConfigEntry, matching the
// field names of the system this engine's job executor was distilled
// from.
//
// The teacher repo has no durable store (Redis there is cache-only),
// so this package is grounded instead on the other_examples pgxpool
// worker (Jeffreasy-LaventeCareAuthSystems' cmd/emailworker) for the
// pool-and-raw-SQL style, and on jordigilh-kubernaut's datastorage
// suite for the pgx/v5 API surface. Workspace identifiers, and lead
// identifiers as they appear on a Job, are opaque strings, matching how
// every other component in this engine treats "workspace identifier
// derived from the auth collaborator". Inside this package a lead is
// addressed by its int64 row ID (GetLead, UpdateLeadVerification,
// InsertVerificationLog).
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yourusername/mailverify/internal/verifylog"
	"github.com/yourusername/mailverify/internal/wsconfig"
)

// ErrNotFound is returned when a lookup by id/job_id finds no row.
var ErrNotFound = errors.New("store: not found")

// JobStatus is the closed set of Job.status values.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// Job mirrors the Job row.
type Job struct {
	ID          int64
	WorkspaceID string
	LeadID      string
	JobID       string
	Kind        string
	Status      JobStatus
	Progress    int
	Result      json.RawMessage
	Error       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Lead mirrors the Lead row's naming fields and opt-out flag.
type Lead struct {
	ID        int64
	FirstName string
	LastName  string
	Domain    string
	OptOut    bool
}

// Store wraps a Postgres connection pool with the queries the engine
// needs. Every method takes a context and is safe for concurrent use
// (pgxpool.Pool is).
type Store struct {
	pool *pgxpool.Pool
}

// New opens a pool against databaseURL. Callers should defer Close.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}

// GetJobByJobID loads a Job by its opaque UUID string, scoped to
// workspaceID. Returns ErrNotFound when absent.
func (s *Store) GetJobByJobID(ctx context.Context, workspaceID, jobID string) (*Job, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, workspace_id, COALESCE(lead_id, ''), job_id, kind, status, progress,
		       COALESCE(result, 'null'), error, created_at, updated_at
		FROM jobs
		WHERE job_id = $1 AND workspace_id = $2
	`, jobID, workspaceID)

	var j Job
	var result []byte
	if err := row.Scan(&j.ID, &j.WorkspaceID, &j.LeadID, &j.JobID, &j.Kind, &j.Status,
		&j.Progress, &result, &j.Error, &j.CreatedAt, &j.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	j.Result = result
	return &j, nil
}

// InsertJob creates a new queued Job row for leadID and returns its
// opaque job_id string. Jobs are created by the caller immediately
// before enqueuing; the executor is the sole writer after creation.
func (s *Store) InsertJob(ctx context.Context, workspaceID, leadID, kind string) (jobID string, err error) {
	jobID = uuid.NewString()
	var leadArg any
	if leadID != "" {
		leadArg = leadID
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO jobs (workspace_id, lead_id, job_id, kind, status, progress, error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, '', now(), now())
	`, workspaceID, leadArg, jobID, kind, JobQueued)
	if err != nil {
		return "", err
	}
	return jobID, nil
}

// TransitionRunning moves a job from queued to running, progress=10.
func (s *Store) TransitionRunning(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE jobs SET status = $2, progress = 10, updated_at = now()
		WHERE id = $1
	`, id, JobRunning)
	return err
}

// FinishJob writes the job's terminal state: status, progress, the
// JSON result blob, and an error string (empty on success).
func (s *Store) FinishJob(ctx context.Context, id int64, status JobStatus, progress int, result any, errMsg string) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		resultJSON = []byte("null")
	}
	_, err = s.pool.Exec(ctx, `
		UPDATE jobs SET status = $2, progress = $3, result = $4, error = $5, updated_at = now()
		WHERE id = $1
	`, id, status, progress, resultJSON, errMsg)
	return err
}

// AppendJobLogLines writes a batch of structured log records for a
// job inside a single transaction, preserving their dense sequence
// numbers.
func (s *Store) AppendJobLogLines(ctx context.Context, jobID int64, records []verifylog.Record) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, r := range records {
		if _, err := tx.Exec(ctx, `
			INSERT INTO job_log_lines (job_id, seq, message, level, visibility, created_at)
			VALUES ($1, $2, $3, $4, $5, now())
		`, jobID, r.Seq, r.Message(), r.Level, r.Visibility); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// JobLogRow is one JobLogLine as read back for the job poll API:
// message is the raw JSON log record string, not decoded, so the
// API layer can pass it through untouched.
type JobLogRow struct {
	Seq        int
	Message    string
	Level      verifylog.Level
	Visibility verifylog.Visibility
	CreatedAt  time.Time
}

// GetJobLogLines loads a job's log trail in sequence order.
func (s *Store) GetJobLogLines(ctx context.Context, jobID int64) ([]JobLogRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT seq, message, level, visibility, created_at FROM job_log_lines
		WHERE job_id = $1 ORDER BY seq ASC
	`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []JobLogRow
	for rows.Next() {
		var r JobLogRow
		if err := rows.Scan(&r.Seq, &r.Message, &r.Level, &r.Visibility, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetLead loads a Lead's naming fields and opt-out flag.
func (s *Store) GetLead(ctx context.Context, id int64) (*Lead, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, first_name, last_name, domain, opt_out FROM leads WHERE id = $1
	`, id)
	var l Lead
	if err := row.Scan(&l.ID, &l.FirstName, &l.LastName, &l.Domain, &l.OptOut); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}

// VerificationUpdate bundles the Lead fields the job executor writes
// on completion.
type VerificationUpdate struct {
	Candidates   []string
	BestEmail    string
	Status       string
	Confidence   int
	MXFound      bool
	CatchAll     bool
	SMTPCheck    bool
	Notes        string
	WebMentioned bool
}

// UpdateLeadVerification writes u's fields onto the Lead row.
func (s *Store) UpdateLeadVerification(ctx context.Context, id int64, u VerificationUpdate) error {
	candidatesJSON, err := json.Marshal(u.Candidates)
	if err != nil {
		candidatesJSON = []byte("[]")
	}
	_, err = s.pool.Exec(ctx, `
		UPDATE leads SET
			email_candidates = $2,
			email_best = $3,
			verification_status = $4,
			confidence_score = $5,
			mx_found = $6,
			catch_all = $7,
			smtp_check = $8,
			notes = $9,
			web_mentioned = $10,
			updated_at = now()
		WHERE id = $1
	`, id, candidatesJSON, u.BestEmail, u.Status, u.Confidence, u.MXFound, u.CatchAll, u.SMTPCheck, u.Notes, u.WebMentioned)
	return err
}

// ProbeResultRow is one entry of a VerificationLog's probe_results map.
type ProbeResultRow struct {
	Accepted bool   `json:"accepted"`
	Detail   string `json:"detail"`
	Status   string `json:"status"`
	Score    int    `json:"score"`
}

// InsertVerificationLog writes an immutable VerificationLog row.
// jobID is optional (0 means none).
func (s *Store) InsertVerificationLog(ctx context.Context, leadID, jobID int64, mxHosts []string, probeResults map[string]ProbeResultRow, bestEmail, bestStatus string, bestConfidence int) error {
	mxJSON, _ := json.Marshal(mxHosts)
	probeJSON, err := json.Marshal(probeResults)
	if err != nil {
		probeJSON = []byte("{}")
	}
	var jobArg any
	if jobID != 0 {
		jobArg = jobID
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO verification_logs (lead_id, job_id, mx_hosts, probe_results, best_email, best_status, best_confidence, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
	`, leadID, jobArg, mxJSON, probeJSON, bestEmail, bestStatus, bestConfidence)
	return err
}

// ListEntries implements wsconfig.Store: loads every config override
// row for a workspace.
func (s *Store) ListEntries(ctx context.Context, workspaceID string) ([]wsconfig.Entry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT workspace_id, key, value FROM workspace_config_entries WHERE workspace_id = $1
	`, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []wsconfig.Entry
	for rows.Next() {
		var e wsconfig.Entry
		if err := rows.Scan(&e.Workspace, &e.Key, &e.Value); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// UpsertEntry sets a single workspace config key, matching the unique
// (workspace_id, key) constraint.
func (s *Store) UpsertEntry(ctx context.Context, workspaceID, key, value string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO workspace_config_entries (workspace_id, key, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (workspace_id, key) DO UPDATE SET value = EXCLUDED.value
	`, workspaceID, key, value)
	return err
}

// DeleteEntry removes a workspace's override for key, so the resolver
// falls back to the system default.
func (s *Store) DeleteEntry(ctx context.Context, workspaceID, key string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM workspace_config_entries WHERE workspace_id = $1 AND key = $2
	`, workspaceID, key)
	return err
}

// IncrementUsage bumps the counter for (workspaceID, period, kind) by
// delta. period is an opaque caller-chosen key, e.g.
// "2026-07"; kind is typically "verify".
func (s *Store) IncrementUsage(ctx context.Context, workspaceID, period, kind string, delta int) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO usage_counters (workspace_id, period, kind, count)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (workspace_id, period, kind) DO UPDATE SET count = usage_counters.count + EXCLUDED.count
	`, workspaceID, period, kind, delta)
	return err
}
