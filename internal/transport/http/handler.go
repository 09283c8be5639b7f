package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"video-processing-service/internal/entity"
	"video-processing-service/internal/logging"
	"video-processing-service/internal/repository/postgresql"
	"video-processing-service/internal/service"
)

// Pipeline is the processing port (implementation: service.Pipeline).
type Pipeline interface {
	ProcessVideo(ctx context.Context, ev service.Event) (*service.Result, error)
	ProcessThumbnail(ctx context.Context, ev service.Event) (*service.Result, error)
}

type Handler struct {
	pipeline Pipeline
	jobSvc   *service.JobService
	log      *slog.Logger
}

func NewHandler(pipeline Pipeline, jobSvc *service.JobService, logger *slog.Logger) *Handler {
	return &Handler{pipeline: pipeline, jobSvc: jobSvc, log: logging.WithComponent(logger, "http")}
}

type processTexts struct {
	ok        string
	missing   string
	duplicate string
	failed    string
}

var (
	videoTexts = processTexts{
		ok:        "Processing finished successfully",
		missing:   "Bad Request: missing filename.",
		duplicate: "Bad Request: video already processing or processed.",
		failed:    "Processing failed: ",
	}
	thumbnailTexts = processTexts{
		ok:        "Thumbnail processed and uploaded successfully.",
		missing:   "Bad Request: missing image filename.",
		duplicate: "Bad Request: thumbnail already processing or processed.",
		failed:    "Thumbnail processing failed: ",
	}
)

type pushMessage struct {
	Data string `json:"data" example:"eyJuYW1lIjoidXNlcjEyMy0xNzAwMDAwMDAwMDAwLm1wNCJ9"`
}

type pushBody struct {
	Message pushMessage `json:"message"`
}

// ProcessVideo godoc
// @Summary Process an uploaded video
// @Description Claims the job, transcodes the raw upload to every configured resolution, uploads the results and marks the record processed.
// @Tags processing
// @Accept json
// @Produce plain
// @Param request body pushBody true "push message; data is base64 of {\"name\": \"<object name>\"}"
// @Success 200 {string} string "Processing finished successfully"
// @Failure 400 {string} string
// @Failure 500 {string} string
// @Router /process-video [post]
func (h *Handler) ProcessVideo(w http.ResponseWriter, r *http.Request) {
	h.process(w, r, videoTexts, h.pipeline.ProcessVideo)
}

// ProcessThumbnail godoc
// @Summary Process an uploaded thumbnail
// @Description Claims the job, resizes and crops the raw image, uploads the result and marks the record processed.
// @Tags processing
// @Accept json
// @Produce plain
// @Param request body pushBody true "push message; data is base64 of {\"name\": \"<object name>\"}"
// @Success 200 {string} string "Thumbnail processed and uploaded successfully."
// @Failure 400 {string} string
// @Failure 500 {string} string
// @Router /process-thumbnail [post]
func (h *Handler) ProcessThumbnail(w http.ResponseWriter, r *http.Request) {
	h.process(w, r, thumbnailTexts, h.pipeline.ProcessThumbnail)
}

func (h *Handler) process(w http.ResponseWriter, r *http.Request, texts processTexts, run func(context.Context, service.Event) (*service.Result, error)) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeText(w, http.StatusBadRequest, texts.missing)
		return
	}
	ev, err := service.DecodePushBody(body)
	if err != nil {
		h.log.Info("reject event", "path", r.URL.Path, "reason", err)
		writeText(w, http.StatusBadRequest, texts.missing)
		return
	}

	// a disconnecting caller must not kill a half-finished job
	_, err = run(context.WithoutCancel(r.Context()), ev)

	var (
		ve  *service.ValidationError
		dup *service.DuplicateJobError
	)
	switch {
	case err == nil:
		writeText(w, http.StatusOK, texts.ok)
	case errors.As(err, &ve):
		writeText(w, http.StatusBadRequest, texts.missing)
	case errors.As(err, &dup):
		writeText(w, http.StatusBadRequest, texts.duplicate)
	default:
		writeText(w, http.StatusInternalServerError, texts.failed+err.Error())
	}
}

// writeServiceErr maps service and repository errors for the JSON API.
func (h *Handler) writeServiceErr(w http.ResponseWriter, err error) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		writeErr(w, http.StatusBadRequest, ve.Reason)
	case errors.Is(err, postgresql.ErrNotFound):
		writeErr(w, http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrQueueDisabled), errors.Is(err, service.ErrSigningDisabled):
		writeErr(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.log.Error("request failed", "error", err)
		writeErr(w, http.StatusInternalServerError, "internal error")
	}
}

type listResp struct {
	Items []*entity.JobRecord `json:"items"`
}

// ListVideos godoc
// @Summary List latest videos
// @Tags videos
// @Produce json
// @Param limit query int false "max items (default 10)"
// @Success 200 {object} listResp
// @Failure 400 {object} apiError
// @Failure 500 {object} apiError
// @Router /videos [get]
func (h *Handler) ListVideos(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeErr(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	items, err := h.jobSvc.ListVideos(r.Context(), limit)
	if err != nil {
		h.writeServiceErr(w, err)
		return
	}
	if items == nil {
		items = []*entity.JobRecord{}
	}
	writeJSON(w, http.StatusOK, listResp{Items: items})
}

// GetVideo godoc
// @Summary Get a video record
// @Tags videos
// @Produce json
// @Param id path string true "video id (upload name without extension)"
// @Success 200 {object} entity.JobRecord
// @Failure 404 {object} apiError
// @Router /videos/{id} [get]
func (h *Handler) GetVideo(w http.ResponseWriter, r *http.Request) {
	h.getRecord(w, r, entity.KindVideo)
}

// GetThumbnail godoc
// @Summary Get a thumbnail record
// @Tags thumbnails
// @Produce json
// @Param id path string true "thumbnail id"
// @Success 200 {object} entity.JobRecord
// @Failure 404 {object} apiError
// @Router /thumbnails/{id} [get]
func (h *Handler) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	h.getRecord(w, r, entity.KindThumbnail)
}

func (h *Handler) getRecord(w http.ResponseWriter, r *http.Request, kind entity.MediaKind) {
	rec, err := h.jobSvc.GetRecord(r.Context(), kind, chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type metadataDTO struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

// SaveMetadata godoc
// @Summary Save video title and description
// @Description Merges the given fields into the video record; processing status is left alone.
// @Tags videos
// @Accept json
// @Produce json
// @Param id path string true "video id"
// @Param request body metadataDTO true "fields to merge"
// @Success 204
// @Failure 400 {object} apiError
// @Failure 500 {object} apiError
// @Router /videos/{id}/metadata [put]
func (h *Handler) SaveMetadata(w http.ResponseWriter, r *http.Request) {
	var dto metadataDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}

	err := h.jobSvc.SaveMetadata(r.Context(), chi.URLParam(r, "id"), service.MetadataRequest{
		Title:       dto.Title,
		Description: dto.Description,
	})
	if err != nil {
		h.writeServiceErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type linkThumbnailDTO struct {
	ThumbnailID string `json:"thumbnailId"`
}

// LinkThumbnail godoc
// @Summary Attach a thumbnail to a video
// @Tags videos
// @Accept json
// @Produce json
// @Param id path string true "video id"
// @Param request body linkThumbnailDTO true "thumbnail id or file name"
// @Success 204
// @Failure 400 {object} apiError
// @Failure 500 {object} apiError
// @Router /videos/{id}/thumbnail [put]
func (h *Handler) LinkThumbnail(w http.ResponseWriter, r *http.Request) {
	var dto linkThumbnailDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.jobSvc.LinkThumbnail(r.Context(), chi.URLParam(r, "id"), dto.ThumbnailID); err != nil {
		h.writeServiceErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type uploadURLDTO struct {
	UID           string `json:"uid"`
	FileType      string `json:"fileType" enums:"video,thumbnail"`
	FileExtension string `json:"fileExtension" example:"mp4"`
}

// IssueUploadURL godoc
// @Summary Get a signed upload URL
// @Description Names a new upload and returns a v4 signed PUT URL for the raw bucket of its type.
// @Tags uploads
// @Accept json
// @Produce json
// @Param request body uploadURLDTO true "uploader and file type"
// @Success 200 {object} service.UploadURL
// @Failure 400 {object} apiError
// @Failure 503 {object} apiError
// @Router /uploads/url [post]
func (h *Handler) IssueUploadURL(w http.ResponseWriter, r *http.Request) {
	var dto uploadURLDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}

	out, err := h.jobSvc.IssueUploadURL(r.Context(), service.UploadURLRequest{
		UID:           dto.UID,
		FileType:      entity.MediaKind(dto.FileType),
		FileExtension: dto.FileExtension,
	})
	if err != nil {
		h.writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type enqueueResp struct {
	ID string `json:"id"`
}

// EnqueueEvent godoc
// @Summary Queue an event for the pull workers
// @Description Validates the push message and hands it to the delivery queue instead of processing inline.
// @Tags processing
// @Accept json
// @Produce json
// @Param kind path string true "video or thumbnail"
// @Param request body pushBody true "push message"
// @Success 202 {object} enqueueResp
// @Failure 400 {object} apiError
// @Failure 503 {object} apiError
// @Router /jobs/{kind} [post]
func (h *Handler) EnqueueEvent(w http.ResponseWriter, r *http.Request) {
	var dto pushBody
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}

	id, err := h.jobSvc.EnqueueEvent(r.Context(), entity.MediaKind(chi.URLParam(r, "kind")), dto.Message.Data)
	if err != nil {
		h.writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, enqueueResp{ID: id})
}
