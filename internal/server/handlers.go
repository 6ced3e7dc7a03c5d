package server

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/fpang/photo-variator/internal/imageio"
	"github.com/fpang/photo-variator/internal/jobs"
)

// multipartMemory is how much of an upload ParseMultipartForm keeps in RAM.
const multipartMemory = 8 << 20

// GET /api/health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"go":      runtime.Version(),
		"jobs":    s.jobs.Len(),
	})
}

// POST /api/variations (multipart: image, mode, count, seed)
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes())
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d MB", s.cfg.MaxUploadMB))
			return
		}
		httpError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		httpError(w, http.StatusBadRequest, "missing image field")
		return
	}
	defer file.Close()

	modeName := s.cfg.Mode
	if v := strings.TrimSpace(r.FormValue("mode")); v != "" {
		modeName = v
	}
	mode, err := s.cfg.ParseMode(modeName)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	count := s.cfg.Count
	if v := strings.TrimSpace(r.FormValue("count")); v != "" {
		count, err = strconv.Atoi(v)
		if err != nil {
			httpError(w, http.StatusBadRequest, "count must be an integer")
			return
		}
	}
	if count < 1 || count > s.cfg.MaxCount {
		httpError(w, http.StatusBadRequest, fmt.Sprintf("count must be in [1, %d]", s.cfg.MaxCount))
		return
	}

	var seed *uint64
	if v := strings.TrimSpace(r.FormValue("seed")); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			httpError(w, http.StatusBadRequest, "seed must be an unsigned integer")
			return
		}
		seed = &n
	}

	src, err := imageio.Decode(file)
	if err != nil {
		log.Warn().Err(err).Str("filename", header.Filename).Msg("Rejected upload")
		httpError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	job := s.jobs.Start(src.Image, mode, count, seed)
	job.SetLabel(strings.TrimSuffix(filepath.Base(header.Filename), filepath.Ext(header.Filename)))

	log.Debug().
		Str("job", job.ID()).
		Str("format", src.Format).
		Int("width", src.Width).
		Int("height", src.Height).
		Str("camera", strings.TrimSpace(src.Metadata.CameraMake+" "+src.Metadata.CameraModel)).
		Msg("Upload decoded")

	respondJSON(w, http.StatusAccepted, map[string]string{
		"id":     job.ID(),
		"status": string(job.Status()),
	})
}

// GET /api/variations/{id}
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.Get(chi.URLParam(r, "id"))
	if err != nil {
		jobError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, job.Snapshot())
}

// DELETE /api/variations/{id}
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.Cancel(chi.URLParam(r, "id"))
	if err != nil {
		jobError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, job.Snapshot())
}

// GET /api/variations/{id}/images/{n}
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	job, n, ok := s.jobAndIndex(w, r)
	if !ok {
		return
	}
	data, err := job.Image(n)
	if err != nil {
		jobError(w, err)
		return
	}
	writePNG(w, data)
}

// GET /api/variations/{id}/thumbnails/{n}
func (s *Server) handleThumbnail(w http.ResponseWriter, r *http.Request) {
	job, n, ok := s.jobAndIndex(w, r)
	if !ok {
		return
	}
	data, err := job.Thumbnail(n, s.cfg.ThumbnailMax)
	if err != nil {
		jobError(w, err)
		return
	}
	writePNG(w, data)
}

// GET /api/variations/{id}/archive
func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.Get(chi.URLParam(r, "id"))
	if err != nil {
		jobError(w, err)
		return
	}
	if url := job.ArchiveURL(); url != "" {
		http.Redirect(w, r, url, http.StatusFound)
		return
	}

	data, err := job.Archive(s.cfg.ArchiveOptions())
	if err != nil {
		jobError(w, err)
		return
	}
	name := job.ArchiveName()

	if s.publisher != nil {
		_, url, err := s.publisher.Publish(r.Context(), job.ID(), name, data)
		if err == nil {
			job.SetArchiveURL(url)
			http.Redirect(w, r, url, http.StatusFound)
			return
		}
		log.Warn().Err(err).Str("job", job.ID()).Msg("Archive publish failed, streaming instead")
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) jobAndIndex(w http.ResponseWriter, r *http.Request) (*jobs.Job, int, bool) {
	job, err := s.jobs.Get(chi.URLParam(r, "id"))
	if err != nil {
		jobError(w, err)
		return nil, 0, false
	}
	n, err := jobs.ParseIndex(chi.URLParam(r, "n"))
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return nil, 0, false
	}
	return job, n, true
}
