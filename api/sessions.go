package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/openclaw/qrstudio/payload"
	"github.com/openclaw/qrstudio/render"
	"github.com/openclaw/qrstudio/session"
)

// maxLogoUpload bounds multipart logo uploads.
const maxLogoUpload = 5 << 20

var errInvalidBody = errors.New("invalid request body")

// awaitTimeout bounds how long a request waits for a session to settle.
const awaitTimeout = 15 * time.Second

type sessionResponse struct {
	ID    string        `json:"id"`
	State session.State `json:"state"`
	Code  codeResponse  `json:"code"`
}

// lookup resolves the {id} path parameter to a session, writing a 404 when
// it does not exist.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id := chi.URLParam(r, "id")
	sess, ok := s.Sessions.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return sess, true
}

// respondSession writes the session state and code. Unless wait=false is
// given it first waits for the latest render chain to finish.
func (s *Server) respondSession(w http.ResponseWriter, r *http.Request, sess *session.Session, status int) {
	if r.URL.Query().Get("wait") != "false" {
		ctx, cancel := context.WithTimeout(r.Context(), awaitTimeout)
		defer cancel()
		if _, err := sess.Await(ctx); errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			s.Log.Warn("session still rendering", "session", sess.ID)
		}
	}
	code, st, err := sess.Current()
	writeJSON(w, status, sessionResponse{
		ID:    sess.ID,
		State: sess.State(),
		Code:  newCodeResponse(code, st, err),
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.Sessions.Create()
	s.respondSession(w, r, sess, http.StatusCreated)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.respondSession(w, r, sess, http.StatusOK)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !s.Sessions.Delete(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleSessionInput merges the body into the current form. A "kind" key
// switches the active kind; other keys are form fields.
func (s *Server) handleSessionInput(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	err = sess.EditInput(func(kind *payload.Kind, form *payload.Form) error {
		edit := struct {
			Kind *payload.Kind `json:"kind"`
			*payload.Form
		}{Kind: kind, Form: form}
		if err := json.Unmarshal(body, &edit); err != nil {
			return errInvalidBody
		}
		return nil
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondSession(w, r, sess, http.StatusOK)
}

// handleSessionOptions merges the body into the current render options. The
// "logo_size" key sets the logo diameter percentage.
func (s *Server) handleSessionOptions(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	err = sess.EditSettings(func(opts *render.Options, logoPercent *int) error {
		edit := struct {
			*render.Options
			LogoSize *int `json:"logo_size"`
		}{Options: opts, LogoSize: logoPercent}
		if err := json.Unmarshal(body, &edit); err != nil {
			return errInvalidBody
		}
		return nil
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondSession(w, r, sess, http.StatusOK)
}

func (s *Server) handleSessionLogo(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if err := r.ParseMultipartForm(maxLogoUpload); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse multipart form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("logo")
	if err != nil {
		writeError(w, http.StatusBadRequest, "logo is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxLogoUpload))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read logo")
		return
	}

	if v := r.FormValue("size"); v != "" {
		percent, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "size must be an integer")
			return
		}
		if err := sess.SetLogoSize(percent); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if err := sess.SetLogo(data); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.Log.Debug("logo uploaded", "session", sess.ID, "filename", header.Filename,
		"mimetype", http.DetectContentType(data), "size", len(data))
	s.respondSession(w, r, sess, http.StatusOK)
}

func (s *Server) handleSessionRemoveLogo(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	sess.RemoveLogo()
	s.respondSession(w, r, sess, http.StatusOK)
}

func (s *Server) handleSessionReset(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	sess.Reset()
	s.respondSession(w, r, sess, http.StatusOK)
}

func (s *Server) handleSessionDownload(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), awaitTimeout)
	defer cancel()
	code, _ := sess.Await(ctx)
	if code == nil {
		writeError(w, http.StatusNotFound, "nothing to download")
		return
	}

	st := sess.State()
	s.writeArtifact(w, code)
	s.recordExport(sess.ID, string(st.Kind), code, st.HasLogo)
}
