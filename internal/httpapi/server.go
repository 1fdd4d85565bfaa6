// Package httpapi implements the plain-HTTP surface alongside the MCP
// tool-call surface: discovery GETs, document rendering, proxy-document
// retrieval, and stock-image serving. It shares the domain collaborators
// (assets.Catalogue, sessionmgr.Manager, rendering.Engine, plot.Service,
// blobstore.Store) and the auth.Gate with the MCP surface, generalising
// internal/mcp/http.go's transport-wrapper pattern from a single JSON-RPC
// endpoint to a small set of REST-ish routes.
package httpapi

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/docsmith/docsmith/internal/assets"
	"github.com/docsmith/docsmith/internal/auth"
	"github.com/docsmith/docsmith/internal/blobstore"
	"github.com/docsmith/docsmith/internal/plot"
	"github.com/docsmith/docsmith/internal/rendering"
	"github.com/docsmith/docsmith/internal/sessionmgr"
)

// Server holds everything the HTTP surface needs to answer a request.
type Server struct {
	catalogue     *assets.Catalogue
	sessions      *sessionmgr.Manager
	engine        *rendering.Engine
	plots         *plot.Service
	blobs         *blobstore.Store
	gate          *auth.Gate
	stockImageDir string
	publicBaseURL string
	cors          string
	logger        *slog.Logger
}

// NewServer builds a Server. stockImageDir is the directory GET
// /images/{path} serves from; publicBaseURL, when non-empty, is
// prefixed onto a proxy_guid to populate download_url.
func NewServer(
	catalogue *assets.Catalogue,
	sessions *sessionmgr.Manager,
	engine *rendering.Engine,
	plots *plot.Service,
	blobs *blobstore.Store,
	gate *auth.Gate,
	stockImageDir, publicBaseURL, corsOrigins string,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		catalogue:     catalogue,
		sessions:      sessions,
		engine:        engine,
		plots:         plots,
		blobs:         blobs,
		gate:          gate,
		stockImageDir: stockImageDir,
		publicBaseURL: publicBaseURL,
		cors:          corsOrigins,
		logger:        logger,
	}
}

// Handler returns the mux routing every HTTP-surface endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /ping", s.withCORS(s.handlePing))
	mux.HandleFunc("GET /templates", s.withCORS(s.handleListTemplates))
	mux.HandleFunc("GET /templates/{id}", s.withCORS(s.handleGetTemplate))
	mux.HandleFunc("GET /templates/{id}/fragments", s.withCORS(s.handleListTemplateFragments))
	mux.HandleFunc("GET /fragments/{id}", s.withCORS(s.handleGetFragment))
	mux.HandleFunc("GET /styles", s.withCORS(s.handleListStyles))

	mux.HandleFunc("POST /render/{id}", s.withCORS(s.handleRender))
	mux.HandleFunc("GET /proxy/{guid}", s.withCORS(s.handleProxyRetrieval))

	mux.HandleFunc("GET /images", s.withCORS(s.handleListStockImages))
	mux.HandleFunc("GET /images/{path...}", s.withCORS(s.handleGetStockImage))

	return mux
}

// withCORS sets the configured CORS headers on every response and
// short-circuits preflight OPTIONS requests, mirroring HTTPServer.setCORS
// in internal/mcp/http.go.
func (s *Server) withCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" {
			if s.cors == "*" {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else {
				for _, allowed := range strings.Split(s.cors, ",") {
					if strings.TrimSpace(allowed) == origin {
						w.Header().Set("Access-Control-Allow-Origin", origin)
						break
					}
				}
			}
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Auth-Token")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next(w, r)
	}
}
