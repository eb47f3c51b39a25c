// Command apiserver is the stateless HTTP API: it serves synchronous
// verification requests directly, and creates+enqueues jobs for
// lead-bound requests that the worker (cmd/worker) later processes.
//
// Grounded on the teacher's services/verifier/main.go (mux.Router,
// CORS+logging middleware, graceful shutdown on SIGINT/SIGTERM).
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"

	"github.com/yourusername/mailverify/internal/candidates"
	"github.com/yourusername/mailverify/internal/config"
	"github.com/yourusername/mailverify/internal/jobqueue"
	"github.com/yourusername/mailverify/internal/sentinel"
	"github.com/yourusername/mailverify/internal/store"
	"github.com/yourusername/mailverify/internal/verify"
	"github.com/yourusername/mailverify/internal/verifylog"
	"github.com/yourusername/mailverify/internal/websearch"
	"github.com/yourusername/mailverify/internal/wsconfig"
)

type server struct {
	router *mux.Router
	cfg    *config.Config
	db     *store.Store
	queue  *jobqueue.Queue
	sent   *sentinel.Sentinel
}

type verifyStatelessRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Domain    string `json:"domain"`
}

type verifyStatelessResponse struct {
	Candidates []string      `json:"candidates"`
	Best       string        `json:"best"`
	BestResult *verify.Result `json:"best_result"`
}

func main() {
	cfg, err := config.Load(getEnv("CONFIG_PATH", "config/config.yaml"))
	if err != nil {
		log.Printf("warning: could not load config file, using defaults: %v", err)
		cfg = config.DefaultConfig()
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: 0})
	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	log.Println("connected to redis")

	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	srv := &server{
		router: mux.NewRouter(),
		cfg:    cfg,
		db:     db,
		queue:  jobqueue.New(rdb),
		sent:   sentinel.New(rdb, sentinel.DefaultConfig()),
	}
	srv.setupRoutes()

	addr := fmt.Sprintf(":%s", cfg.ServerPort)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      srv.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("mailverify API starting on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}
	log.Println("server exited")
}

func (s *server) setupRoutes() {
	api := s.router.PathPrefix("/v1").Subrouter()
	api.HandleFunc("/verify", s.handleVerifyStateless).Methods("POST", "OPTIONS")
	api.HandleFunc("/leads/{id}/verify", s.handleVerifyLead).Methods("POST", "OPTIONS")
	api.HandleFunc("/jobs/{job_id}", s.handleJobPoll).Methods("GET")
	api.HandleFunc("/workspaces/{id}/config", s.handleConfigGet).Methods("GET")
	api.HandleFunc("/workspaces/{id}/config", s.handleConfigPut).Methods("PUT")

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	s.router.Use(corsMiddleware)
	s.router.Use(loggingMiddleware)
}

func (s *server) handleVerifyStateless(w http.ResponseWriter, r *http.Request) {
	var req verifyStatelessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.Domain == "" {
		http.Error(w, "domain is required", http.StatusBadRequest)
		return
	}

	workspaceID := workspaceFromRequest(r)
	wscfg := wsconfig.Resolve(r.Context(), workspaceID, s.db)
	vcfg := verifyConfigFromWorkspace(wscfg)

	cands, best, result, _ := verify.VerifyAndPickBest(r.Context(), req.FirstName, req.LastName, req.Domain, vcfg, verifylog.NopSink{}, s.sent, nil)

	writeJSON(w, http.StatusOK, verifyStatelessResponse{Candidates: cands, Best: best, BestResult: result})
}

func (s *server) handleVerifyLead(w http.ResponseWriter, r *http.Request) {
	leadID := mux.Vars(r)["id"]
	workspaceID := workspaceFromRequest(r)

	jobID, err := s.db.InsertJob(r.Context(), workspaceID, leadID, "verify")
	if err != nil {
		http.Error(w, fmt.Sprintf("could not create job: %v", err), http.StatusInternalServerError)
		return
	}
	if err := s.queue.Enqueue(r.Context(), jobqueue.Task{WorkspaceID: workspaceID, LeadID: leadID, JobID: jobID}); err != nil {
		http.Error(w, fmt.Sprintf("could not enqueue job: %v", err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

func (s *server) handleJobPoll(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["job_id"]
	workspaceID := workspaceFromRequest(r)
	privileged := r.Header.Get("X-Privileged") == "true"

	job, err := s.db.GetJobByJobID(r.Context(), workspaceID, jobID)
	if err != nil {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}

	lines, err := s.db.GetJobLogLines(r.Context(), job.ID)
	if err != nil {
		http.Error(w, fmt.Sprintf("could not load log lines: %v", err), http.StatusInternalServerError)
		return
	}

	type logEntry struct {
		CreatedAt time.Time `json:"created_at"`
		Message   string    `json:"message"`
	}
	var entries []logEntry
	var messages []string
	for _, l := range lines {
		if !privileged && l.Visibility != verifylog.VisibilityPublic {
			continue
		}
		entries = append(entries, logEntry{CreatedAt: l.CreatedAt, Message: l.Message})
		messages = append(messages, l.Message)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"job_id":      job.JobID,
		"status":      job.Status,
		"progress":    job.Progress,
		"result":      json.RawMessage(job.Result),
		"error":       job.Error,
		"log_lines":   messages,
		"log_entries": entries,
	})
}

func (s *server) handleConfigGet(w http.ResponseWriter, r *http.Request) {
	workspaceID := mux.Vars(r)["id"]
	cfg := wsconfig.Resolve(r.Context(), workspaceID, s.db)
	writeJSON(w, http.StatusOK, cfg.ToPublicView())
}

func (s *server) handleConfigPut(w http.ResponseWriter, r *http.Request) {
	workspaceID := mux.Vars(r)["id"]

	var body map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	for key, raw := range body {
		var s2 string
		if err := json.Unmarshal(raw, &s2); err != nil {
			s2 = string(raw)
		}
		if isEmptyOverride(raw) {
			if err := s.db.DeleteEntry(r.Context(), workspaceID, key); err != nil {
				http.Error(w, fmt.Sprintf("could not delete %s: %v", key, err), http.StatusInternalServerError)
				return
			}
			continue
		}
		if err := s.db.UpsertEntry(r.Context(), workspaceID, key, s2); err != nil {
			http.Error(w, fmt.Sprintf("could not set %s: %v", key, err), http.StatusInternalServerError)
			return
		}
	}

	cfg := wsconfig.Resolve(r.Context(), workspaceID, s.db)
	writeJSON(w, http.StatusOK, cfg.ToPublicView())
}

// isEmptyOverride reports whether a PUT field value means "delete the
// override": JSON null, empty string, or an empty array.
func isEmptyOverride(raw json.RawMessage) bool {
	trimmed := string(raw)
	return trimmed == "null" || trimmed == `""` || trimmed == "[]"
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func verifyConfigFromWorkspace(cfg wsconfig.Resolved) verify.Config {
	return verify.Config{
		MailFrom:     cfg.SMTPMailFrom,
		SMTPDeadline: time.Duration(cfg.SMTPTimeoutSeconds) * time.Second,
		DNSDeadline:  time.Duration(cfg.DNSTimeoutSeconds * float64(time.Second)),
		WebProvider:  websearch.Provider(cfg.WebSearchProvider),
		WebAPIKey:    cfg.WebSearchAPIKey,
		WebDeadline:  websearch.DefaultTimeout,
		CandidateOpts: candidatesOptionsFrom(cfg),
	}
}

func candidatesOptionsFrom(cfg wsconfig.Resolved) candidates.Options {
	return candidates.Options{
		EnabledIndices:  cfg.EnabledPatternIndices,
		CustomPatterns:  cfg.CustomPatterns,
		AllowNoLastname: cfg.AllowNoLastname,
	}
}

func workspaceFromRequest(r *http.Request) string {
	return r.Header.Get("X-Workspace-ID")
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Workspace-ID, X-Privileged")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %v", r.Method, r.URL.Path, time.Since(start))
	})
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
