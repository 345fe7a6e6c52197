package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"strandviz/internal/codec"
	"strandviz/internal/config"
	"strandviz/internal/domain"
	"strandviz/internal/generate"
	"strandviz/internal/runner"
	sqlitestore "strandviz/internal/store/sqlite"
)

type app struct {
	cfg       config.Config
	store     *sqlitestore.Store
	generator *generate.Generator
	runner    *runner.Runner
}

func main() {
	configPath := flag.String("config", "", "path to config.toml (default: ~/.strandviz/config.toml)")
	addrFlag := flag.String("addr", "", "http listen address override")
	dbPathFlag := flag.String("db", "", "sqlite database path override")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	addr := firstNonEmpty(*addrFlag, cfg.Server.Addr, ":8090")
	dbPath := firstNonEmpty(*dbPathFlag, cfg.Server.DBPath, "data/strandviz.db")
	dbPath = filepath.Clean(dbPath)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		log.Fatalf("create db directory: %v", err)
	}

	store, err := sqlitestore.Open(dbPath)
	if err != nil {
		log.Fatalf("open sqlite store: %v", err)
	}
	defer func() {
		_ = store.Close()
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := store.Migrate(ctx); err != nil {
		log.Fatalf("migrate sqlite: %v", err)
	}

	a := &app{
		cfg:       cfg,
		store:     store,
		generator: generate.New(),
		runner: runner.New(runner.Config{
			MinStepDelay: durationMS(cfg.Runner.MinStepDelayMS, 200*time.Millisecond),
			MaxStepDelay: durationMS(cfg.Runner.MaxStepDelayMS, 800*time.Millisecond),
			FailureRate:  cfg.Runner.FailureRate,
		}, store, log.Default()),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/config", a.handleConfig)
	mux.HandleFunc("/api/generate", a.handleGenerate)
	mux.HandleFunc("/api/execute", a.handleExecute)
	mux.HandleFunc("/api/import", a.handleImport)
	mux.HandleFunc("/api/metrics", a.handleMetrics)
	mux.HandleFunc("/api/logs", a.handleLogs)
	mux.HandleFunc("/api/workflows", a.handleWorkflows)
	mux.HandleFunc("/api/workflows/", a.handleWorkflowByID)

	server := &http.Server{
		Addr:              addr,
		Handler:           loggingMiddleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Printf("strandviz server started addr=%s db=%s", addr, dbPath)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("http server failed: %v", err)
	}
}

func (a *app) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *app) handleConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"path": a.cfg.Path,
		"raw":  a.cfg.Raw,
	})
}

func (a *app) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Description  string `json:"description"`
		WorkflowType string `json:"workflowType"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid json body: %w", err))
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("description is required"))
		return
	}

	wf := a.generator.Build(req.Description, req.WorkflowType)
	if err := a.store.SaveWorkflow(r.Context(), wf); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, wf)
}

func (a *app) handleExecute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		WorkflowID string `json:"workflowId"`
		Mode       string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid json body: %w", err))
		return
	}
	if strings.TrimSpace(req.WorkflowID) == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("workflowId is required"))
		return
	}

	wf, err := a.store.GetWorkflow(r.Context(), req.WorkflowID)
	if err != nil {
		if errors.Is(err, sqlitestore.ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	result, err := a.runner.Run(r.Context(), wf, domain.ExecutionMode(firstNonEmpty(req.Mode, "sequential")))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleImport accepts a workflow document in any supported codec format
// and stores it like a generated one. Documents without an id get a fresh
// one.
func (a *app) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	format := strings.TrimSpace(r.URL.Query().Get("format"))
	importer, err := codec.ImporterForFormat(format)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	wf, err := importer.Parse(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(wf.Agents) == 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("workflow has no agents"))
		return
	}
	if strings.TrimSpace(wf.ID) == "" {
		wf.ID = uuid.NewString()
	}
	if err := a.store.SaveWorkflow(r.Context(), wf); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, wf)
}

func (a *app) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	metrics, err := a.store.ListAllAgentMetrics(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, metrics)
}

func (a *app) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	limit := queryInt(r, "limit", 100)
	logs, err := a.store.ListAllLogs(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (a *app) handleWorkflows(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	workflows, err := a.store.ListWorkflows(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, workflows)
}

func (a *app) handleWorkflowByID(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.TrimPrefix(r.URL.Path, "/api/workflows/")
	parts := strings.Split(trimmed, "/")
	workflowID := parts[0]
	if workflowID == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("workflow id is required"))
		return
	}

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			wf, err := a.store.GetWorkflow(r.Context(), workflowID)
			if err != nil {
				writeError(w, statusForStoreError(err), err)
				return
			}
			writeJSON(w, http.StatusOK, wf)
		case http.MethodDelete:
			if err := a.store.DeleteWorkflow(r.Context(), workflowID); err != nil {
				writeError(w, statusForStoreError(err), err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"status": "deleted", "workflow_id": workflowID})
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	action := parts[1]
	switch action {
	case "metrics":
		metrics, err := a.store.ListAgentMetrics(r.Context(), workflowID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, metrics)
	case "executions":
		executions, err := a.store.ListExecutions(r.Context(), workflowID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, executions)
	case "logs":
		limit := queryInt(r, "limit", 200)
		logs, err := a.store.ListLogs(r.Context(), workflowID, limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, logs)
	case "export":
		wf, err := a.store.GetWorkflow(r.Context(), workflowID)
		if err != nil {
			writeError(w, statusForStoreError(err), err)
			return
		}
		format := strings.TrimSpace(r.URL.Query().Get("format"))
		exporter, err := codec.ForFormat(format)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		switch exporter.Format() {
		case "yaml":
			w.Header().Set("Content-Type", "application/yaml")
		default:
			w.Header().Set("Content-Type", "application/json")
		}
		w.WriteHeader(http.StatusOK)
		if err := exporter.Export(wf, w); err != nil {
			log.Printf("export workflow %s failed: %v", workflowID, err)
		}
	default:
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown action: %s", action))
	}
}

func statusForStoreError(err error) int {
	if errors.Is(err, sqlitestore.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]any{
		"error": err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func durationMS(v int, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return time.Duration(v) * time.Millisecond
}

func queryInt(r *http.Request, key string, def int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}
