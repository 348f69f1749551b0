package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/docoutline/internal/pipeline"
)

type submitResponse struct {
	Jobs []jobEntry `json:"jobs"`
}

type jobEntry struct {
	JobID    string             `json:"job_id"`
	DocID    string             `json:"doc_id"`
	Filename string             `json:"filename"`
	Status   pipeline.JobStatus `json:"status"`
	PollURL  string             `json:"poll_url"`
}

// handleSubmitJobs queues one job per uploaded file. Every file is
// validated before any job is queued.
func (s *Server) handleSubmitJobs(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*10+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "no files provided", http.StatusBadRequest)
		return
	}

	uploads := make([]upload, 0, len(files))
	for _, fh := range files {
		up, err := s.readUpload(fh)
		if err != nil {
			var ue *uploadError
			if errors.As(err, &ue) {
				jsonError(w, fh.Filename+": "+ue.msg, ue.status)
				return
			}
			jsonError(w, err.Error(), http.StatusInternalServerError)
			return
		}
		uploads = append(uploads, up)
	}

	var resp submitResponse
	for _, up := range uploads {
		job := pipeline.NewJob(up.filename, up.data)
		if err := s.orchestrator.Submit(job); err != nil {
			s.log.Warn("job rejected", "job_id", job.ID, "error", err)
			jsonError(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		resp.Jobs = append(resp.Jobs, jobEntry{
			JobID:    job.ID,
			DocID:    job.DocID,
			Filename: up.filename,
			Status:   pipeline.StatusQueued,
			PollURL:  "/api/jobs/" + job.ID,
		})
	}

	writeJSON(w, http.StatusAccepted, resp)
}

// handleJobStatus returns the current state of a job.
func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

// handleJobResult returns the outline of a finished job, or 409 while the
// job is still running.
func (s *Server) handleJobResult(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	res, ok := job.Result()
	if !ok {
		snap := job.Snapshot()
		if snap.Status.Done() {
			jsonError(w, "job finished without a result", http.StatusGone)
			return
		}
		jsonError(w, "job not finished: "+string(snap.Status), http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
