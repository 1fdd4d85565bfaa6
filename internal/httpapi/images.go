package httpapi

import (
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/docsmith/docsmith/internal/apperr"
)

// recognizedStockExtensions maps a lowercase file extension to the
// Content-Type served for it; any other extension is rejected outright,
// per the "serves only recognised image content-types" rule.
var recognizedStockExtensions = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
}

// contentTypeForFormat covers both the image extensions above and the
// three document formats RenderDocument produces.
func contentTypeForFormat(format string) string {
	switch strings.ToLower(format) {
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	case "svg":
		return "image/svg+xml"
	case "html":
		return "text/html"
	case "markdown", "md":
		return "text/markdown"
	case "pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

func (s *Server) handleListStockImages(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(s.stockImageDir)
	if err != nil {
		writeSuccess(w, map[string]any{"images": []string{}})
		return
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := recognizedStockExtensions[strings.ToLower(filepath.Ext(e.Name()))]; ok {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	writeSuccess(w, map[string]any{"images": names})
}

// handleGetStockImage serves a single file from the stock image
// directory. The requested path is cleaned and re-joined under the
// directory; any resolution that escapes it (via "..", an absolute
// path, or a symlink-free traversal) is rejected as not found rather
// than revealing the directory's layout.
func (s *Server) handleGetStockImage(w http.ResponseWriter, r *http.Request) {
	requested := r.PathValue("path")
	root := filepath.Clean(s.stockImageDir)
	resolved := filepath.Join(root, filepath.Clean("/"+requested))

	if resolved != root && !strings.HasPrefix(resolved, root+string(os.PathSeparator)) {
		writeError(w, apperr.New(apperr.ImageNotFound, "image not found", "list available images via GET /images"))
		return
	}

	contentType, ok := recognizedStockExtensions[strings.ToLower(filepath.Ext(resolved))]
	if !ok {
		writeError(w, apperr.New(apperr.InvalidImageContentType,
			"requested path is not a recognised image type",
			"request one of png, jpg, jpeg, gif, webp, svg"))
		return
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		writeError(w, apperr.New(apperr.ImageNotFound, "image not found", "list available images via GET /images"))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
