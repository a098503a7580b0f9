package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// maxUploadBytes bounds a single ingestion request (32 MB).
const maxUploadBytes = 32 << 20

// ProcessedLog is the tracker surface the status endpoint reads, satisfied
// by *tracker.Tracker.
type ProcessedLog interface {
	IsProcessed(ctx context.Context, documentID string) (bool, error)
	Processed(ctx context.Context) ([]string, error)
}

// IngestionHandler handles paper upload and ingestion status endpoints.
type IngestionHandler struct {
	queue     IngestionQueue
	tracker   ProcessedLog
	papersDir string
	logger    *slog.Logger
}

// NewIngestionHandler creates an ingestion handler. Uploaded papers are
// saved under papersDir before their jobs are queued.
func NewIngestionHandler(queue IngestionQueue, tracker ProcessedLog, papersDir string, logger *slog.Logger) *IngestionHandler {
	return &IngestionHandler{queue: queue, tracker: tracker, papersDir: papersDir, logger: logger}
}

// RegisterRoutes registers ingestion routes on the given mux.
func (h *IngestionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/ingest/file", h.ingestFile)
	mux.HandleFunc("POST /api/ingest/files", h.ingestFiles)
	mux.HandleFunc("GET /api/ingest/status", h.status)
}

// IngestionResponse reports how many uploads were queued.
type IngestionResponse struct {
	Message       string   `json:"message"`
	FilesAccepted int      `json:"files_accepted"`
	Filenames     []string `json:"filenames"`
}

// IngestionStatusResponse summarizes ingestion progress.
type IngestionStatusResponse struct {
	TotalPapersInDirectory int      `json:"total_papers_in_directory"`
	TotalPapersProcessed   int      `json:"total_papers_processed"`
	ProcessedFiles         []string `json:"processed_files"`
}

// ingestFile accepts a single uploaded paper and queues it. Already
// processed papers are skipped, not failed.
func (h *IngestionHandler) ingestFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "expected multipart form with a file field")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "file field is required")
		return
	}
	defer file.Close() //nolint:errcheck // read-only upload

	accepted, err := h.accept(r.Context(), file, header)
	if err != nil {
		h.logger.Error("accepting upload", "file", header.Filename, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not accept the uploaded file")
		return
	}
	if !accepted {
		writeJSON(w, http.StatusOK, IngestionResponse{
			Message:       fmt.Sprintf("File %q has already been processed and was skipped.", header.Filename),
			FilesAccepted: 0,
			Filenames:     []string{},
		})
		return
	}

	writeJSON(w, http.StatusAccepted, IngestionResponse{
		Message:       fmt.Sprintf("File %q was accepted and dispatched for processing.", header.Filename),
		FilesAccepted: 1,
		Filenames:     []string{header.Filename},
	})
}

// ingestFiles accepts a batch of uploads. One bad file never fails the
// batch; the response counts what was queued.
func (h *IngestionHandler) ingestFiles(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "expected multipart form with file fields")
		return
	}
	if r.MultipartForm == nil || len(r.MultipartForm.File["files"]) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "files field is required")
		return
	}

	var acceptedNames []string
	for _, header := range r.MultipartForm.File["files"] {
		file, err := header.Open()
		if err != nil {
			h.logger.Warn("opening upload, skipping", "file", header.Filename, "error", err)
			continue
		}
		accepted, err := h.accept(r.Context(), file, header)
		_ = file.Close()
		if err != nil {
			h.logger.Warn("accepting upload, skipping", "file", header.Filename, "error", err)
			continue
		}
		if accepted {
			acceptedNames = append(acceptedNames, header.Filename)
		}
	}

	if len(acceptedNames) == 0 {
		writeJSON(w, http.StatusOK, IngestionResponse{
			Message:       "All submitted files were duplicates and were skipped.",
			FilesAccepted: 0,
			Filenames:     []string{},
		})
		return
	}

	writeJSON(w, http.StatusAccepted, IngestionResponse{
		Message:       fmt.Sprintf("Accepted %d new file(s). They have been dispatched for background processing.", len(acceptedNames)),
		FilesAccepted: len(acceptedNames),
		Filenames:     acceptedNames,
	})
}

// accept saves an upload under the papers directory and queues its job.
// Returns false when the document was already processed.
func (h *IngestionHandler) accept(ctx context.Context, file multipart.File, header *multipart.FileHeader) (bool, error) {
	name, err := sanitizeFilename(header.Filename)
	if err != nil {
		return false, err
	}

	done, err := h.tracker.IsProcessed(ctx, name)
	if err != nil {
		return false, fmt.Errorf("checking completion log: %w", err)
	}
	if done {
		h.logger.Warn("duplicate upload skipped", "file", name)
		return false, nil
	}

	content, err := io.ReadAll(file)
	if err != nil {
		return false, fmt.Errorf("reading upload: %w", err)
	}

	// Keep a copy of the paper so status and forced re-ingestion can see it.
	if err := os.MkdirAll(h.papersDir, 0o750); err != nil {
		return false, fmt.Errorf("creating papers directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(h.papersDir, name), content, 0o644); err != nil {
		return false, fmt.Errorf("saving upload: %w", err)
	}

	jobID, err := h.queue.Submit(ctx, name, string(content))
	if err != nil {
		return false, fmt.Errorf("queueing document: %w", err)
	}
	h.logger.Info("queued document for ingestion", "file", name, "job", jobID)
	return true, nil
}

// status summarizes ingestion progress from the papers directory and the
// completion log.
func (h *IngestionHandler) status(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(h.papersDir)
	if err != nil && !os.IsNotExist(err) {
		h.logger.Error("reading papers directory", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not read the papers directory")
		return
	}

	total := 0
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".md") {
			total++
		}
	}

	processed, err := h.tracker.Processed(r.Context())
	if err != nil {
		h.logger.Error("reading completion log", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not read the completion log")
		return
	}
	if processed == nil {
		processed = []string{}
	}

	writeJSON(w, http.StatusOK, IngestionStatusResponse{
		TotalPapersInDirectory: total,
		TotalPapersProcessed:   len(processed),
		ProcessedFiles:         processed,
	})
}

// sanitizeFilename rejects uploads whose names would escape the papers
// directory.
func sanitizeFilename(name string) (string, error) {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\\") {
		return "", errors.New("invalid filename")
	}
	return name, nil
}
