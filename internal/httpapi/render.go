package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/docsmith/docsmith/internal/apperr"
	"github.com/docsmith/docsmith/internal/blobstore"
	"github.com/docsmith/docsmith/internal/docmodel"
	"github.com/docsmith/docsmith/internal/rendering"
)

type renderRequest struct {
	Format  string `json:"format"`
	StyleID string `json:"style_id,omitempty"`
	Proxy   bool   `json:"proxy,omitempty"`
}

// handleRender implements POST /render/{session_id_or_alias}: the same
// render algorithm the render_graph-adjacent "get_document" tool uses,
// exposed as a plain HTTP verb. Non-proxy responses carry the rendered
// bytes directly with their format's Content-Type; proxy responses carry
// a JSON descriptor.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	group, err := s.gate.RequireAuth(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, apperr.New(apperr.InvalidArguments, "failed to read request body", "retry with a valid JSON body"))
		return
	}
	defer r.Body.Close()

	var req renderRequest
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, apperr.New(apperr.InvalidArguments, "malformed JSON body: "+err.Error(), "send a JSON object with a \"format\" field"))
			return
		}
	}
	if req.Format == "" {
		writeError(w, apperr.New(apperr.InvalidArguments, "\"format\" is required", "send one of html, pdf, markdown"))
		return
	}

	identifier := r.PathValue("id")
	session, err := s.sessions.ResolveIdentifier(r.Context(), docmodel.Group(group), identifier)
	if err != nil {
		writeError(w, err)
		return
	}
	if !session.HasGlobalParameters() {
		writeError(w, apperr.New(apperr.SessionNotReady,
			"global parameters not set; call set_global_parameters before rendering",
			"call set_global_parameters, then retry the render"))
		return
	}

	result, err := s.engine.RenderDocument(r.Context(), session, rendering.Format(req.Format), req.StyleID, req.Proxy)
	if err != nil {
		writeError(w, err)
		return
	}

	if result.Proxied {
		data := map[string]any{"proxy_guid": result.ProxyGUID, "format": result.Format}
		if s.publicBaseURL != "" {
			data["download_url"] = s.publicBaseURL + "/proxy/" + result.ProxyGUID
		}
		writeSuccess(w, data)
		return
	}

	w.Header().Set("Content-Type", result.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Content)
}

// handleProxyRetrieval implements GET /proxy/{proxy_guid}. The blob's
// group comes only from its own stored metadata — Get is called with an
// empty group filter so it never returns ErrGroupMismatch itself — and
// is compared here against the caller's authenticated group, so a
// mismatch can be surfaced as an explicit 403 rather than folded into
// the indistinguishable-not-found policy used elsewhere.
func (s *Server) handleProxyRetrieval(w http.ResponseWriter, r *http.Request) {
	group, err := s.gate.RequireAuth(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	guid := r.PathValue("guid")
	data, md, err := s.blobs.Get(guid, "")
	if errors.Is(err, blobstore.ErrNotFound) {
		writeError(w, apperr.New(apperr.ImageNotFound,
			fmt.Sprintf("no blob found for %q", guid),
			"verify the proxy_guid and retry"))
		return
	}
	if err != nil {
		writeError(w, apperr.Unexpected(err))
		return
	}
	if md.Group != group {
		writeError(w, apperr.New(apperr.AccessDenied,
			fmt.Sprintf("blob %q belongs to a different group", guid),
			"use a token authorized for the owning group").
			WithDetails(map[string]any{"resource_group": md.Group}))
		return
	}

	w.Header().Set("Content-Type", contentTypeForFormat(md.Format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
