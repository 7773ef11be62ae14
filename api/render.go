package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/openclaw/qrstudio/export"
	"github.com/openclaw/qrstudio/payload"
	"github.com/openclaw/qrstudio/render"
	"github.com/openclaw/qrstudio/session"
	"github.com/openclaw/qrstudio/store"
)

// maxRenderBody bounds JSON render requests, which may carry a base64 logo.
const maxRenderBody = 8 << 20

type renderRequest struct {
	Kind     payload.Kind   `json:"kind"`
	Input    payload.Form   `json:"input"`
	Options  render.Options `json:"options"`
	Logo     []byte         `json:"logo,omitempty"`
	LogoSize int            `json:"logo_size"`
}

type codeResponse struct {
	Status      string `json:"status"`
	Payload     string `json:"payload,omitempty"`
	Format      string `json:"format,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	DataURL     string `json:"data_url,omitempty"`
	SVG         string `json:"svg,omitempty"`
	Error       string `json:"error,omitempty"`
	// ErrorSource names the image that failed to load, if any.
	ErrorSource string `json:"error_source,omitempty"`
}

func newCodeResponse(code *render.Code, status session.Status, err error) codeResponse {
	resp := codeResponse{Status: string(status)}
	if err != nil {
		resp.Error = err.Error()
		var loadErr *render.ImageLoadError
		if errors.As(err, &loadErr) {
			resp.ErrorSource = loadErr.Source
		}
	}
	if code == nil {
		return resp
	}
	resp.Payload = code.Payload
	resp.Format = string(code.Format)
	resp.ContentType = code.Format.ContentType()
	resp.Width = code.Width
	resp.Height = code.Height
	if code.Format.IsRaster() {
		resp.DataURL = code.DataURL()
	} else {
		resp.SVG = code.SVG
	}
	return resp
}

// decodeRenderRequest reads a render request on top of the server defaults
// so omitted fields keep their default values.
func (s *Server) decodeRenderRequest(w http.ResponseWriter, r *http.Request) (*renderRequest, error) {
	req := &renderRequest{
		Kind:     payload.KindText,
		Input:    payload.DefaultForm(),
		Options:  s.Defaults.Options,
		LogoSize: s.Defaults.LogoPercent,
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRenderBody)).Decode(req); err != nil {
		return nil, errors.New("invalid request body")
	}
	if _, err := payload.ParseKind(string(req.Kind)); err != nil {
		return nil, err
	}
	if err := req.Input.Validate(); err != nil {
		return nil, err
	}
	if err := req.Options.Validate(); err != nil {
		return nil, err
	}
	if len(req.Logo) > 0 {
		if err := render.ValidateLogoPercent(req.LogoSize); err != nil {
			return nil, err
		}
	}
	return req, nil
}

// renderRequestCode runs one render chain for req. A nil code with a nil
// error means the input is incomplete.
func (s *Server) renderRequestCode(ctx context.Context, req *renderRequest) (*render.Code, error) {
	text, ok := payload.Format(req.Input.Input(req.Kind))
	if !ok {
		return nil, nil
	}
	var logo *render.Logo
	if len(req.Logo) > 0 {
		logo = &render.Logo{Data: req.Logo, SizePercent: req.LogoSize}
	}
	return s.Renderer.Render(ctx, text, req.Options, logo)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeRenderRequest(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	code, err := s.renderRequestCode(r.Context(), req)
	switch {
	case err != nil:
		s.Log.Warn("render failed", "error", err, "kind", req.Kind, "format", req.Options.Format)
		writeJSON(w, http.StatusUnprocessableEntity, newCodeResponse(nil, session.StatusFailed, err))
	case code == nil:
		writeJSON(w, http.StatusOK, newCodeResponse(nil, session.StatusEmpty, nil))
	default:
		writeJSON(w, http.StatusOK, newCodeResponse(code, session.StatusReady, nil))
	}
}

func (s *Server) handleRenderDownload(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeRenderRequest(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	code, err := s.renderRequestCode(r.Context(), req)
	if err != nil {
		s.Log.Warn("render failed", "error", err, "kind", req.Kind, "format", req.Options.Format)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if code == nil {
		writeError(w, http.StatusNotFound, "nothing to download")
		return
	}

	s.writeArtifact(w, code)
	s.recordExport("", string(req.Kind), code, len(req.Logo) > 0)
}

// writeArtifact sends code as a file attachment.
func (s *Server) writeArtifact(w http.ResponseWriter, code *render.Code) {
	data := code.Bytes()
	w.Header().Set("Content-Type", code.Format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(code)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// recordExport logs a download to the export log and webhook, if configured.
func (s *Server) recordExport(sessionID, kind string, code *render.Code, hasLogo bool) {
	e := &store.Export{
		SessionID: sessionID,
		Kind:      kind,
		Format:    string(code.Format),
		Bytes:     len(code.Bytes()),
		HasLogo:   hasLogo && code.Format.IsRaster(),
		CreatedAt: time.Now(),
	}
	if s.Exports != nil {
		if err := s.Exports.Record(e); err != nil {
			s.Log.Error("failed to record export", "error", err)
		}
	}
	if s.Webhook != nil && s.Webhook.Enabled() {
		go func() {
			if err := s.Webhook.Send(e); err != nil {
				s.Log.Error("failed to send export webhook", "error", err, "export_id", e.ID)
			}
		}()
	}
	s.Log.Info("code exported", "kind", kind, "format", e.Format, "bytes", e.Bytes, "session", sessionID)
}

func (s *Server) handleListExports(w http.ResponseWriter, r *http.Request) {
	if s.Exports == nil {
		writeError(w, http.StatusNotFound, "export log is disabled")
		return
	}
	exports, err := s.Exports.List(queryInt(r, "limit", 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if exports == nil {
		exports = []store.Export{}
	}
	writeJSON(w, http.StatusOK, exports)
}
