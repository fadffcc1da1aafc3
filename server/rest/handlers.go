package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/lucasjordaoreal/UltraDownloader/server/common"
	"github.com/lucasjordaoreal/UltraDownloader/server/internal/compress"
	"github.com/lucasjordaoreal/UltraDownloader/server/internal/downloader"
	"github.com/lucasjordaoreal/UltraDownloader/server/internal/jobs"
)

// Non-standard but widely understood "client closed request" code used
// for user-cancelled jobs.
const statusClientClosedRequest = 499

const maxUploadBytes = 4 << 30

type Handler struct {
	service *Service
}

type downloadRequest struct {
	URL        string   `json:"url"`
	URLs       []string `json:"urls"`
	Format     string   `json:"format"`
	Quality    int      `json:"quality"`
	Resolution string   `json:"resolution"`
	TargetDir  string   `json:"target_dir"`
	Filename   string   `json:"filename"`
}

func (r downloadRequest) options() downloader.Options {
	return downloader.Options{
		Format:     r.Format,
		Quality:    r.Quality,
		Resolution: r.Resolution,
		TargetDir:  r.TargetDir,
		Filename:   r.Filename,
	}
}

type cancelRequest struct {
	ID string `json:"id"`
}

func (h *Handler) Download() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		var req downloadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		id, err := h.service.Exec(req.URL, req.options())
		if err != nil {
			writeError(w, err)
			return
		}

		json.NewEncoder(w).Encode(map[string]string{"id": id})
	}
}

func (h *Handler) Queue() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		var req downloadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		id, err := h.service.ExecQueue(req.URLs, req.options())
		if err != nil {
			writeError(w, err)
			return
		}

		json.NewEncoder(w).Encode(map[string]any{
			"id":    id,
			"count": len(req.URLs),
		})
	}
}

// Compress accepts a multipart upload and blocks until the transcode
// completes. The job id travels in a header so the client can cancel a
// request still in flight.
func (h *Handler) Compress() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "missing file upload", http.StatusBadRequest)
			return
		}
		defer file.Close()

		req := compress.Request{
			Filename: header.Filename,
			File:     file,
			Options:  compressOptions(r),
		}

		id, result, err := h.service.ExecCompress(r.Context(), req)
		w.Header().Set("X-Job-Id", id)

		if err != nil {
			writeError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	}
}

func compressOptions(r *http.Request) compress.Options {
	strength := 40
	if v := r.FormValue("compression"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			strength = n
		}
	}
	sizeCap, _ := strconv.ParseBool(r.FormValue("size_cap"))

	return compress.Options{
		Strength:     strength,
		SizeCap:      sizeCap,
		Resolution:   r.FormValue("resolution"),
		HardwareMode: r.FormValue("hardware_mode"),
		TargetDir:    r.FormValue("target_dir"),
		CustomName:   r.FormValue("custom_name"),
	}
}

func (h *Handler) Cancel() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		var req cancelRequest
		// an empty body means "cancel everything"
		json.NewDecoder(r.Body).Decode(&req)
		defer r.Body.Close()

		json.NewEncoder(w).Encode(map[string]bool{
			"canceled": h.service.Cancel(req.ID),
		})
	}
}

func (h *Handler) Free() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		free, err := h.service.FreeSpace()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		json.NewEncoder(w).Encode(map[string]uint64{"free_space": free})
	}
}

// writeError maps the error taxonomy onto status codes: bad input is the
// client's fault, a cancel is the client's intent, the rest is ours.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, jobs.ErrCancelled):
		http.Error(w, err.Error(), statusClientClosedRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
