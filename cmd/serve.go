package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/CEOAOVA/controlnotdev-sub000/internal/config"
	"github.com/CEOAOVA/controlnotdev-sub000/internal/intake"
	"github.com/CEOAOVA/controlnotdev-sub000/internal/model"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the intake HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newIntakeRouter(env.Pipeline, cfg),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			_ = srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// intakeServer holds the live sessions. A session is mutated under its own
// lock; the pipeline itself is stateless across sessions.
type intakeServer struct {
	pipeline *intake.Pipeline
	cfg      *config.Config
	validate *validator.Validate

	mu       sync.RWMutex
	sessions map[string]*sessionEntry
}

type sessionEntry struct {
	mu sync.Mutex
	s  *intake.Session

	// cancel stops the background extraction. It sits behind its own mutex,
	// not entry.mu, because the extraction goroutine holds entry.mu for the
	// whole call and reset/back must be able to cancel it from outside.
	cancelMu sync.Mutex
	cancel   context.CancelFunc
}

func (e *sessionEntry) setCancel(cancel context.CancelFunc) {
	e.cancelMu.Lock()
	e.cancel = cancel
	e.cancelMu.Unlock()
}

// cancelInFlight stops the background extraction, if one is running.
func (e *sessionEntry) cancelInFlight() {
	e.cancelMu.Lock()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.cancelMu.Unlock()
}

// newIntakeRouter builds the HTTP surface over a pipeline.
func newIntakeRouter(p *intake.Pipeline, cfg *config.Config) http.Handler {
	srv := &intakeServer{
		pipeline: p,
		cfg:      cfg,
		validate: validator.New(),
		sessions: make(map[string]*sessionEntry),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/intake/sessions", func(r chi.Router) {
		r.Post("/", srv.handleCreate)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", srv.handleStatus)
			r.Post("/advance", srv.handleAdvance)
			r.Post("/back", srv.handleBack)
			r.Post("/reset", srv.handleReset)
			r.Post("/fields", srv.handleSetField)
			r.Post("/preview", srv.handlePreview)
			r.Post("/generate", srv.handleGenerate)
		})
	})

	return r
}

func (srv *intakeServer) entry(w http.ResponseWriter, r *http.Request) *sessionEntry {
	id := chi.URLParam(r, "id")
	srv.mu.RLock()
	entry := srv.sessions[id]
	srv.mu.RUnlock()
	if entry == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown session %s", id))
		return nil
	}
	return entry
}

// handleCreate receives the multipart upload, transmits it, and starts the
// extraction in the background. The client polls the status endpoint to see
// the stage flip to edit.
func (srv *intakeServer) handleCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	s := srv.pipeline.NewSession()
	s.DocumentType = r.FormValue("document_type")
	s.TemplateID = r.FormValue("template_id")

	if err := readUploadedFiles(s, r); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := srv.pipeline.Upload(r.Context(), s); err != nil {
		writeError(w, http.StatusUnprocessableEntity, s.LastError)
		return
	}

	entry := &sessionEntry{s: s}
	srv.mu.Lock()
	srv.sessions[s.RunID] = entry
	srv.mu.Unlock()

	// Extraction outlives the upload request. The stage is captured before
	// the goroutine starts because the goroutine mutates the session; only
	// the goroutine may touch s from here on.
	stage := string(s.Stage)
	ctx, cancel := context.WithCancel(context.Background())
	entry.setCancel(cancel)
	go func() {
		defer entry.cancelInFlight()
		entry.mu.Lock()
		defer entry.mu.Unlock()
		if err := srv.pipeline.Extract(ctx, s); err != nil {
			zap.L().Error("extraction failed", zap.String("run_id", s.RunID), zap.Error(err))
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{
		"run_id": s.RunID,
		"stage":  stage,
	})
}

// readUploadedFiles moves multipart files into the session, reading the
// category out of the files[<category>] form key. Buckets follow the default
// category order, then any extra categories sorted.
func readUploadedFiles(s *intake.Session, r *http.Request) error {
	byCategory := make(map[string][]*multipart.FileHeader)
	for key, headers := range r.MultipartForm.File {
		category, ok := parseCategoryKey(key)
		if !ok {
			continue
		}
		byCategory[category] = append(byCategory[category], headers...)
	}
	if len(byCategory) == 0 {
		return eris.New("no files provided (expected files[<category>] parts)")
	}

	order := make([]string, 0, len(byCategory))
	seen := make(map[string]bool, len(byCategory))
	for _, c := range model.DefaultCategories {
		if _, ok := byCategory[c]; ok {
			order = append(order, c)
			seen[c] = true
		}
	}
	var rest []string
	for c := range byCategory {
		if !seen[c] {
			rest = append(rest, c)
		}
	}
	sort.Strings(rest)
	order = append(order, rest...)

	for _, category := range order {
		for _, h := range byCategory[category] {
			f, err := h.Open()
			if err != nil {
				return eris.Wrapf(err, "open uploaded file %s", h.Filename)
			}
			content, err := io.ReadAll(f)
			_ = f.Close()
			if err != nil {
				return eris.Wrapf(err, "read uploaded file %s", h.Filename)
			}
			s.Files.Add(category, model.File{
				Name:        h.Filename,
				ContentType: h.Header.Get("Content-Type"),
				Content:     content,
			})
		}
	}
	return nil
}

func parseCategoryKey(key string) (string, bool) {
	if !strings.HasPrefix(key, "files[") || !strings.HasSuffix(key, "]") {
		return "", false
	}
	category := key[len("files[") : len(key)-1]
	return category, category != ""
}

func (srv *intakeServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	entry := srv.entry(w, r)
	if entry == nil {
		return
	}
	entry.mu.Lock()
	status := entry.s.Status()
	entry.mu.Unlock()
	writeJSON(w, http.StatusOK, status)
}

func (srv *intakeServer) handleAdvance(w http.ResponseWriter, r *http.Request) {
	entry := srv.entry(w, r)
	if entry == nil {
		return
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if err := srv.pipeline.Advance(r.Context(), entry.s); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entry.s.Status())
}

func (srv *intakeServer) handleBack(w http.ResponseWriter, r *http.Request) {
	entry := srv.entry(w, r)
	if entry == nil {
		return
	}
	entry.cancelInFlight()
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if err := srv.pipeline.Back(r.Context(), entry.s); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entry.s.Status())
}

func (srv *intakeServer) handleReset(w http.ResponseWriter, r *http.Request) {
	entry := srv.entry(w, r)
	if entry == nil {
		return
	}

	var req struct {
		Confirmed bool `json:"confirmed"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	// Abandoning the workflow stops its in-flight extraction first, so the
	// session lock frees up instead of waiting out the service call.
	entry.cancelInFlight()
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if err := srv.pipeline.Reset(r.Context(), entry.s, req.Confirmed); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entry.s.Status())
}

type setFieldRequest struct {
	Name  string `json:"name" validate:"required"`
	Value any    `json:"value"`
}

func (srv *intakeServer) handleSetField(w http.ResponseWriter, r *http.Request) {
	entry := srv.entry(w, r)
	if entry == nil {
		return
	}

	var req setFieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := srv.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if err := entry.s.SetField(req.Name, req.Value); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	stats := entry.s.Completion()
	writeJSON(w, http.StatusOK, map[string]any{
		"completion": stats,
		"dirty":      entry.s.Dirty(),
	})
}

func (srv *intakeServer) handlePreview(w http.ResponseWriter, r *http.Request) {
	entry := srv.entry(w, r)
	if entry == nil {
		return
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	preview, err := srv.pipeline.PreviewFill(r.Context(), entry.s)
	if err != nil {
		writeError(w, http.StatusBadGateway, entry.s.LastError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"preview":         preview,
		"approval":        srv.pipeline.Approval(preview),
		"missing_display": intake.MissingForDisplay(preview, srv.cfg.Intake.MissingDisplayCap),
	})
}

type generateRequest struct {
	OutputFilename string `json:"output_filename"`
	Email          string `json:"email" validate:"omitempty,email"`
	Subject        string `json:"subject"`
	Body           string `json:"body"`
}

func (srv *intakeServer) handleGenerate(w http.ResponseWriter, r *http.Request) {
	entry := srv.entry(w, r)
	if entry == nil {
		return
	}

	var req generateRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	if err := srv.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	result, err := srv.pipeline.Generate(r.Context(), entry.s, req.OutputFilename)
	if err != nil {
		writeError(w, http.StatusBadGateway, entry.s.LastError)
		return
	}

	resp := map[string]any{"result": result}
	if req.Email != "" {
		subject := req.Subject
		if subject == "" {
			subject = fmt.Sprintf("Documento generado: %s", result.Filename)
		}
		if err := srv.pipeline.SendEmail(r.Context(), entry.s, req.Email, subject, req.Body); err != nil {
			// The document exists; delivery is reported separately.
			resp["delivery_error"] = err.Error()
		} else {
			resp["delivered_to"] = req.Email
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
