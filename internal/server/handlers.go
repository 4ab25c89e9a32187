package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/beatframe/beatframe-api/internal/batch"
	"github.com/beatframe/beatframe-api/internal/scene"
)

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service            *batch.Service
	validator          *validator.Validate
	logger             *slog.Logger
	enableAsyncProcess bool
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithAsyncProcessing enables or disables background processing.
// When disabled, CreateBatch only creates the batch and returns immediately
// without starting background processing.
func WithAsyncProcessing(enabled bool) HandlerOption {
	return func(h *Handlers) {
		h.enableAsyncProcess = enabled
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service *batch.Service, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		service:            service,
		validator:          validator.New(),
		logger:             logger,
		enableAsyncProcess: true, // Default to enabled
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// CreateBatch handles POST /batches requests.
func (h *Handlers) CreateBatch(w http.ResponseWriter, r *http.Request) {
	var req CreateBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}

	// Validate request
	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	input := toBatchRequest(req)

	// Create batch first (synchronously)
	created, err := h.service.CreateBatch(r.Context())
	if err != nil {
		h.logger.Error("failed to create batch",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to create batch", "BATCH_CREATION_FAILED")
		return
	}

	// Start processing in background with a detached context
	// Use context.WithoutCancel to prevent cancellation when the request ends
	if h.enableAsyncProcess {
		go func(ctx context.Context, b *batch.Batch, inp batch.Request) {
			if processErr := h.service.Process(ctx, b, inp); processErr != nil {
				h.logger.Error("background processing failed",
					slog.String("batch_id", b.ID),
					slog.String("error", processErr.Error()),
				)
			}
		}(context.WithoutCancel(r.Context()), created, input)
	}

	h.logger.Info("batch created",
		slog.String("batch_id", created.ID),
		slog.Int("scenes", len(req.Scenes)),
		slog.Bool("push_to_s3", req.PushToS3),
	)

	writeJSON(w, http.StatusAccepted, CreateBatchResponse{
		ID:     created.ID,
		Status: string(created.Status),
	})
}

// GetBatch handles GET /batches/{id} requests.
func (h *Handlers) GetBatch(w http.ResponseWriter, r *http.Request) {
	batchID := r.PathValue("id")
	if batchID == "" {
		writeError(w, http.StatusBadRequest, "batch ID is required", "MISSING_BATCH_ID")
		return
	}

	found, err := h.service.GetBatch(r.Context(), batchID)
	if err != nil {
		if errors.Is(err, batch.ErrBatchNotFound) {
			writeError(w, http.StatusNotFound, "batch not found", "BATCH_NOT_FOUND")
			return
		}
		h.logger.Error("failed to get batch",
			slog.String("batch_id", batchID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get batch", "BATCH_FETCH_FAILED")
		return
	}

	writeJSON(w, http.StatusOK, toBatchResponse(found))
}

// ListBatches handles GET /batches requests.
func (h *Handlers) ListBatches(w http.ResponseWriter, r *http.Request) {
	batches, err := h.service.ListBatches(r.Context())
	if err != nil {
		h.logger.Error("failed to list batches",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list batches", "BATCH_LIST_FAILED")
		return
	}

	out := make([]BatchSummaryResponse, 0, len(batches))
	for _, b := range batches {
		out = append(out, BatchSummaryResponse{ID: b.ID, Status: string(b.Status)})
	}
	writeJSON(w, http.StatusOK, out)
}

// CancelBatch handles POST /batches/{id}/cancel requests.
func (h *Handlers) CancelBatch(w http.ResponseWriter, r *http.Request) {
	batchID := r.PathValue("id")
	if batchID == "" {
		writeError(w, http.StatusBadRequest, "batch ID is required", "MISSING_BATCH_ID")
		return
	}

	err := h.service.Cancel(r.Context(), batchID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, CancelBatchResponse{
			ID:     batchID,
			Status: "CANCELLING",
		})
	case errors.Is(err, batch.ErrBatchNotFound):
		writeError(w, http.StatusNotFound, "batch not found", "BATCH_NOT_FOUND")
	case errors.Is(err, batch.ErrBatchNotCancellable):
		writeError(w, http.StatusConflict, "batch is not cancellable", "BATCH_NOT_CANCELLABLE")
	default:
		h.logger.Error("failed to cancel batch",
			slog.String("batch_id", batchID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to cancel batch", "BATCH_CANCEL_FAILED")
	}
}

// toBatchRequest converts the HTTP DTO into the domain batch request.
func toBatchRequest(req CreateBatchRequest) batch.Request {
	scenes := make([]scene.Scene, len(req.Scenes))
	for i, sr := range req.Scenes {
		sc := scene.Scene{
			Index:                i,
			Prompt:               sr.Prompt,
			SkipGlobalReferences: sr.SkipGlobalReferences,
			LipSyncEnabled:       sr.LipSync,
		}
		if sr.LeadingAnchor != "" {
			sc.LeadingAnchor = &scene.ImageRef{Path: sr.LeadingAnchor}
		}
		if sr.TrailingAnchor != "" {
			sc.TrailingAnchor = &scene.ImageRef{Path: sr.TrailingAnchor}
		}
		for _, ref := range sr.ReferenceImages {
			sc.ReferenceImages = append(sc.ReferenceImages, scene.ImageRef{Path: ref})
		}
		scenes[i] = sc
	}

	var globals []scene.ImageRef
	for _, ref := range req.GlobalReferences {
		globals = append(globals, scene.ImageRef{Path: ref})
	}

	return batch.Request{
		Scenes:           scenes,
		TimingPath:       req.TimingPath,
		TimingKind:       req.TimingKind,
		AudioTrack:       req.AudioTrack,
		GlobalReferences: globals,
		DisableAutoLink:  req.DisableAutoLink,
		FailFast:         req.FailFast,
		PushToS3:         req.PushToS3,
	}
}

// toBatchResponse converts a batch snapshot into the HTTP DTO.
func toBatchResponse(b *batch.Batch) BatchResponse {
	resp := BatchResponse{
		ID:     b.ID,
		Status: string(b.Status),
		Error:  b.Error,
	}

	for _, wng := range b.Warnings {
		resp.Warnings = append(resp.Warnings, WarningResponse{
			SceneIndex: wng.SceneIndex,
			Message:    wng.Message,
		})
	}

	if b.Report != nil {
		for _, e := range b.Report.Entries {
			resp.Scenes = append(resp.Scenes, SceneResultResponse{
				SceneIndex: e.SceneIndex,
				State:      string(e.State),
				ResultPath: e.ResultPath,
				ResultURL:  e.ResultURL,
				ErrorKind:  string(e.ErrorKind),
				Error:      e.ErrorMsg,
				Attempts:   e.Attempts,
			})
		}
	}

	return resp
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
