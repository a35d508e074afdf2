package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"docshell/internal/intercept"
	"docshell/internal/logging"
	"docshell/internal/recent"
	"docshell/internal/session"
)

const maxUploadBytes = 256 << 20

type openURLRequest struct {
	URL      string `json:"url"`
	FileType string `json:"fileType"`
	FileName string `json:"fileName"`
}

type openPathRequest struct {
	Path     string `json:"path"`
	FileType string `json:"fileType"`
	FileName string `json:"fileName"`
}

// requireJSON rejects requests whose body is not declared as JSON. Browsers
// cannot send that content type cross-site without a CORS preflight, so
// routes that reach local files or the network are not open to simple
// form posts from arbitrary pages.
func (s *Server) requireJSON(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || mediaType != "application/json" {
			s.writeError(w, http.StatusUnsupportedMediaType, "content type must be application/json")
			return
		}
		next(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "docshell"})
}

func (s *Server) handleBlob(w http.ResponseWriter, r *http.Request) {
	s.blobs.ServeBlob(w, mux.Vars(r)["id"])
}

func (s *Server) handleDocument(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.ctrl.Document())
}

func (s *Server) handleUser(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.ctrl.User())
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := session.OpenOptions{FileType: q.Get("type"), FileName: q.Get("name")}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}
	if len(data) == 0 {
		s.writeError(w, http.StatusBadRequest, "empty document")
		return
	}
	s.open(w, r, session.BytesSource{FileName: opts.FileName, Data: data}, opts)
}

func (s *Server) handleOpenPath(w http.ResponseWriter, r *http.Request) {
	var req openPathRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	path := strings.TrimSpace(req.Path)
	if path == "" {
		s.writeError(w, http.StatusBadRequest, "path is required")
		return
	}
	if s.recent != nil {
		if _, err := s.recent.Add(r.Context(), path); err != nil {
			s.logger.Warn("recent file not recorded", logging.String("path", path), logging.Error(err))
		}
	}
	s.open(w, r, session.FileSource{Path: path}, session.OpenOptions{FileType: req.FileType, FileName: req.FileName})
}

func (s *Server) open(w http.ResponseWriter, r *http.Request, src session.Source, opts session.OpenOptions) {
	opened, err := s.ctrl.Open(r.Context(), src, opts)
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, opened)
}

func (s *Server) handleNew(w http.ResponseWriter, r *http.Request) {
	opened, err := s.ctrl.OpenNew(r.URL.Query().Get("type"))
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, opened)
}

func (s *Server) handleOpenURL(w http.ResponseWriter, r *http.Request) {
	var req openURLRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	opened, err := s.ctrl.OpenURL(r.Context(), req.URL, session.OpenOptions{FileType: req.FileType, FileName: req.FileName})
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, opened)
}

func (s *Server) handleRecentList(w http.ResponseWriter, r *http.Request) {
	if s.recent == nil {
		s.writeJSON(w, http.StatusOK, []*recent.Record{})
		return
	}
	records, err := s.recent.List(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []*recent.Record{}
	}
	s.writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleRecentRemove(w http.ResponseWriter, r *http.Request) {
	id, ok := s.recentID(w, r)
	if !ok {
		return
	}
	if err := s.recent.Remove(r.Context(), id); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRecentOpen(w http.ResponseWriter, r *http.Request) {
	id, ok := s.recentID(w, r)
	if !ok {
		return
	}
	data, rec, err := s.recent.Reopen(r.Context(), id)
	switch {
	case errors.Is(err, recent.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, recent.ErrUnavailable):
		s.writeError(w, http.StatusGone, err.Error())
		return
	case err != nil:
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	opened, err := s.ctrl.Open(r.Context(), session.BytesSource{FileName: rec.Name, Data: data}, session.OpenOptions{FileType: rec.FileType})
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, opened)
}

func (s *Server) recentID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	if s.recent == nil {
		s.writeError(w, http.StatusNotFound, "recent files disabled")
		return 0, false
	}
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

// handleIntercepted answers editor requests through the middleware chain.
// Unclaimed requests are 404s.
func (s *Server) handleIntercepted(w http.ResponseWriter, r *http.Request) {
	req, err := intercept.FromHTTP(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	resp := s.registry.Dispatch(r.Context(), req)
	if resp == nil {
		http.NotFound(w, r)
		return
	}
	if err := resp.Write(w); err != nil {
		s.logger.Debug("write intercepted response", logging.Error(err))
	}
}

func (s *Server) writeSessionError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrValidation), errors.Is(err, session.ErrNoTemplate):
		status = http.StatusBadRequest
	case errors.Is(err, session.ErrSource):
		status = http.StatusUnprocessableEntity
	}
	s.writeError(w, status, err.Error())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
