package api

import (
	"errors"
	"net/http"

	"github.com/dgallion1/docoutline/internal/doctree"
	"github.com/dgallion1/docoutline/internal/outline"
)

type outlineResponse struct {
	Result doctree.Result  `json:"result"`
	Report *outline.Report `json:"report,omitempty"`
	Pages  int             `json:"pages"`
}

// handleOutline outlines one uploaded file synchronously. The body is the
// result document itself unless ?report=true asks for the diagnostics too.
// A file that cannot be opened answers 422 with the error-shaped result.
func (s *Server) handleOutline(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["file"]
	if len(files) != 1 {
		jsonError(w, "exactly one file field is required", http.StatusBadRequest)
		return
	}

	up, err := s.readUpload(files[0])
	if err != nil {
		var ue *uploadError
		if errors.As(err, &ue) {
			jsonError(w, ue.msg, ue.status)
			return
		}
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	out := s.orchestrator.Worker().Outline(up.filename, up.data)
	code := http.StatusOK
	if out.Err != nil {
		s.log.Warn("outline open failed", "filename", up.filename, "error", out.Err)
		code = http.StatusUnprocessableEntity
	}

	if r.URL.Query().Get("report") != "true" {
		writeJSON(w, code, out.Result)
		return
	}
	resp := outlineResponse{Result: out.Result, Pages: out.Pages}
	if out.Err == nil {
		resp.Report = &out.Report
	}
	writeJSON(w, code, resp)
}
