package plot

import (
	"context"
	"encoding/base64"
	"log/slog"

	"github.com/docsmith/docsmith/internal/apperr"
	"github.com/docsmith/docsmith/internal/blobstore"
)

// Result is what RenderGraph hands back to its caller: either the raw
// (optionally base64-encoded) image bytes, or a proxy GUID when the
// caller asked to keep the payload out of the response body.
type Result struct {
	ContentType string
	ImageBytes  []byte
	Base64      string
	Proxied     bool
	ProxyGUID   string
}

// Service wires GraphParams validation, theme resolution, and the
// configured GraphRenderer together with a PlotStore for persistence.
type Service struct {
	renderer GraphRenderer
	plots    *blobstore.PlotStore
	logger   *slog.Logger
}

// New builds a Service. A nil renderer defaults to SVGRenderer{}; a nil
// logger defaults to slog.Default().
func New(renderer GraphRenderer, plots *blobstore.PlotStore, logger *slog.Logger) *Service {
	if renderer == nil {
		renderer = SVGRenderer{}
	}
	if plots == nil {
		panic("plot: New requires a non-nil PlotStore")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{renderer: renderer, plots: plots, logger: logger}
}

// formatFromContentType maps a renderer's content type back to the
// short format token BlobStore/PlotStore key their metadata on.
func formatFromContentType(contentType string) string {
	switch contentType {
	case "image/svg+xml":
		return "svg"
	case "image/png":
		return "png"
	case "image/jpeg":
		return "jpg"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	default:
		return "bin"
	}
}

// RenderGraph validates params, renders the chart, and always persists
// it into the plot catalogue (so it is retrievable by GUID/alias via
// GetImage even when the caller also wants the bytes inline). When
// params.Proxy is set the response omits the bytes in favour of the
// GUID; otherwise the bytes (optionally base64-encoded per
// params.ReturnBase64) are returned directly.
func (s *Service) RenderGraph(ctx context.Context, group string, params GraphParams) (*Result, error) {
	params.Normalize()
	if err := params.Validate(); err != nil {
		return nil, err
	}

	imageBytes, contentType, err := s.renderer.Render(ctx, params)
	if err != nil {
		if _, isAppErr := err.(*apperr.Error); isAppErr {
			return nil, err
		}
		return nil, apperr.New(apperr.RenderError, err.Error(), "check the chart parameters and retry")
	}

	guid, err := s.plots.SaveImage(imageBytes, formatFromContentType(contentType), group, params.Alias)
	if err != nil {
		return nil, apperr.New(apperr.PlotStorageNotInitialized,
			"rendered image could not be stored: "+err.Error(), "retry the request")
	}

	s.logger.Info("plot rendered", "kind", params.Kind, "theme", params.Theme, "group", group, "guid", guid)

	result := &Result{ContentType: contentType}
	if params.Proxy {
		result.Proxied = true
		result.ProxyGUID = guid
		return result, nil
	}

	result.ImageBytes = imageBytes
	if params.ReturnBase64 {
		result.Base64 = base64.StdEncoding.EncodeToString(imageBytes)
	}
	return result, nil
}

// GetImage resolves identifier (GUID or alias) within group.
func (s *Service) GetImage(identifier, group string) ([]byte, string, error) {
	data, format, err := s.plots.GetImage(identifier, group)
	if err != nil {
		if err == blobstore.ErrNotFound {
			return nil, "", apperr.New(apperr.ImageNotFound,
				"no image found for the given identifier", "check the GUID or alias and retry")
		}
		return nil, "", err
	}
	return data, format, nil
}

// GetImageAsDataURI resolves identifier and returns it as an inline
// data: URI for embedding in rendered HTML/PDF.
func (s *Service) GetImageAsDataURI(identifier, group string) (string, error) {
	uri, err := s.plots.GetImageAsDataURI(identifier, group)
	if err != nil {
		if err == blobstore.ErrNotFound {
			return "", apperr.New(apperr.ImageNotFound,
				"no image found for the given identifier", "check the GUID or alias and retry")
		}
		return "", err
	}
	return uri, nil
}

// ListImages returns every plot-image GUID visible to group.
func (s *Service) ListImages(group string) []string {
	return s.plots.ListImages(group)
}
