// Package httpx provides the HTTP API for submitting downloads and polling their progress.
package httpx

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/target/mediafetch/internal/domain/model"
	"github.com/target/mediafetch/internal/domain/platform"
	apperrors "github.com/target/mediafetch/internal/errors"
	"github.com/target/mediafetch/internal/service"
)

const (
	infoFailureMessage    = "Unable to fetch content information. This might be due to network restrictions or the content being private/unavailable."
	infoFailureSuggestion = "Retry in a moment, or check that the URL is correct and the content is public."
)

// DownloadHandlers provides HTTP handlers for download jobs.
type DownloadHandlers struct {
	Svc *service.DownloadService
}

type downloadRequest struct {
	URL    string `json:"url"`
	Format string `json:"format,omitempty"`
}

type downloadAccepted struct {
	ID       string             `json:"id"`
	Status   model.JobStatus    `json:"status"`
	Platform model.PlatformKind `json:"platform"`
}

// Submit handles POST /api/download.
func (h *DownloadHandlers) Submit(w http.ResponseWriter, r *http.Request) {
	var req downloadRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	id, err := h.Svc.SubmitDownload(r.Context(), req.URL, req.Format)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	resp := downloadAccepted{ID: id, Status: model.JobStatusQueued, Platform: platform.Classify(req.URL)}
	if job, err := h.Svc.GetStatus(r.Context(), id); err == nil {
		resp.Status = job.Status
		resp.Platform = job.Platform
	}
	WriteJSON(w, http.StatusAccepted, resp)
}

// Progress handles GET /api/progress/{id}.
func (h *DownloadHandlers) Progress(w http.ResponseWriter, r *http.Request) {
	job, err := h.Svc.GetStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// File handles GET /api/download_file/{id} and streams the artifact as an attachment.
func (h *DownloadHandlers) File(w http.ResponseWriter, r *http.Request) {
	art, err := h.Svc.FetchArtifact(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteAppError(w, err)
		return
	}
	defer art.Content.Close()

	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": art.Filename}))
	w.Header().Set("Content-Type", contentTypeFor(art.Filename))

	var modTime time.Time
	if art.Job.FinishedAt != nil {
		modTime = *art.Job.FinishedAt
	}
	http.ServeContent(w, r, art.Filename, modTime, art.Content)
}

// mediaTypes covers containers the extractors produce; mime's table varies by host.
var mediaTypes = map[string]string{ //nolint:gochecknoglobals // read-only lookup
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".ts":   "video/mp2t",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

func contentTypeFor(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ct, ok := mediaTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

type infoRequest struct {
	URL string `json:"url"`
}

type infoResponse struct {
	Platform model.PlatformKind `json:"platform"`
	Info     *model.ContentInfo `json:"info"`
}

// Info handles POST /api/info.
func (h *DownloadHandlers) Info(w http.ResponseWriter, r *http.Request) {
	var req infoRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	info, err := h.Svc.QueryInfo(r.Context(), req.URL)
	if err != nil {
		if apperrors.IsExtraction(err) {
			h.writeInfoFailure(w, err)
			return
		}
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, infoResponse{Platform: platform.Classify(req.URL), Info: info})
}

func (h *DownloadHandlers) writeInfoFailure(w http.ResponseWriter, err error) {
	message := infoFailureMessage
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Cause != nil {
		message = fmt.Sprintf("%s Error: %s", infoFailureMessage, appErr.Cause.Error())
	}
	WriteJSON(w, http.StatusBadGateway, map[string]string{
		"error":      string(apperrors.ErrCodeExtraction),
		"message":    message,
		"suggestion": infoFailureSuggestion,
	})
}

type jobsResponse struct {
	Jobs  []*model.Job  `json:"jobs"`
	Stats service.Stats `json:"stats"`
}

// List handles GET /api/jobs.
func (h *DownloadHandlers) List(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, jobsResponse{
		Jobs:  h.Svc.ListJobs(r.Context()),
		Stats: h.Svc.Stats(),
	})
}

// Cancel handles DELETE /api/jobs/{id}.
func (h *DownloadHandlers) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.CancelJob(r.Context(), r.PathValue("id")); err != nil {
		WriteAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type platformEntry struct {
	ID   model.PlatformKind `json:"id"`
	Name string             `json:"name"`
}

type platformsResponse struct {
	Platforms []platformEntry `json:"platforms"`
	Formats   []string        `json:"formats"`
}

// Platforms handles GET /api/platforms.
func (h *DownloadHandlers) Platforms(w http.ResponseWriter, _ *http.Request) {
	kinds := h.Svc.Platforms()
	out := platformsResponse{
		Platforms: make([]platformEntry, 0, len(kinds)),
		Formats:   model.KnownFormatHints(),
	}
	for _, kind := range kinds {
		out.Platforms = append(out.Platforms, platformEntry{ID: kind, Name: kind.DisplayName()})
	}
	WriteJSON(w, http.StatusOK, out)
}
