package validation

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/docsmith/docsmith/internal/apperr"
)

// allowedImageContentTypes are the MIME types an image fragment's
// source_url may resolve to.
var allowedImageContentTypes = map[string]struct{}{
	"image/png":     {},
	"image/jpeg":    {},
	"image/jpg":     {},
	"image/gif":     {},
	"image/webp":    {},
	"image/svg+xml": {},
}

const (
	defaultMaxImageSizeMB = 10
	defaultImageTimeout   = 10 * time.Second
)

// ImageURLValidator validates image URLs when a fragment is added, not
// when the document is rendered, so the caller gets immediate feedback
// about accessibility, content-type, and size.
type ImageURLValidator struct {
	httpClient  *http.Client
	maxSizeBytes int64
}

// NewImageURLValidator builds a validator with its own connection-pooled
// client; maxSizeMB and timeout fall back to the reference defaults
// (10MB, 10s) when zero.
func NewImageURLValidator(maxSizeMB int, timeout time.Duration) *ImageURLValidator {
	if maxSizeMB <= 0 {
		maxSizeMB = defaultMaxImageSizeMB
	}
	if timeout <= 0 {
		timeout = defaultImageTimeout
	}
	transport := &http.Transport{
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
	}
	return &ImageURLValidator{
		httpClient:   &http.Client{Timeout: timeout, Transport: transport},
		maxSizeBytes: int64(maxSizeMB) * 1024 * 1024,
	}
}

// SetHTTPClientForTesting overrides the validator's HTTP client; exported
// for collaborators in other packages that need to point it at an
// httptest server in their own tests.
func (v *ImageURLValidator) SetHTTPClientForTesting(client *http.Client) {
	v.httpClient = client
}

// ImageInfo is what a successful ValidateImageURLDetailed call learned
// about the URL, for the caller to attach to fragment parameters.
type ImageInfo struct {
	ContentType   string
	ContentLength int64
}

// ValidateImageURL checks url for scheme, reachability, content-type,
// and size, preferring a HEAD request and falling back to a plain GET
// (whose body is not read) when the server rejects HEAD or the HEAD
// request fails.
func (v *ImageURLValidator) ValidateImageURL(ctx context.Context, url string, requireHTTPS bool) *apperr.Error {
	_, err := v.ValidateImageURLDetailed(ctx, url, requireHTTPS)
	return err
}

// ValidateImageURLDetailed is ValidateImageURL plus the resolved
// content-type and declared content-length, used by add_image_fragment
// to populate its fragment parameters.
func (v *ImageURLValidator) ValidateImageURLDetailed(ctx context.Context, url string, requireHTTPS bool) (ImageInfo, *apperr.Error) {
	if requireHTTPS && !strings.HasPrefix(url, "https://") {
		return ImageInfo{}, apperr.New(apperr.InvalidImageURL,
			"image URL must use HTTPS protocol (require_https=true)",
			"use an HTTPS URL or set require_https=false")
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return ImageInfo{}, apperr.New(apperr.InvalidImageURL,
			"image URL must use HTTP or HTTPS protocol",
			"provide a valid HTTP or HTTPS URL")
	}

	resp, err := v.doWithFallback(ctx, http.MethodHead, url)
	if err != nil {
		return ImageInfo{}, classifyTransportError(err, v.httpClient.Timeout)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ImageInfo{}, apperr.New(apperr.ImageURLNotAccessible,
			"image URL returned a non-200 status",
			"verify the URL is correct and accessible; test it in a browser").
			WithDetails(map[string]any{"status_code": resp.StatusCode})
	}

	contentType := strings.ToLower(strings.TrimSpace(strings.SplitN(resp.Header.Get("Content-Type"), ";", 2)[0]))
	if _, ok := allowedImageContentTypes[contentType]; !ok {
		return ImageInfo{}, apperr.New(apperr.InvalidImageContentType,
			"URL does not return a recognised image content-type",
			"ensure the URL points to an image file (png, jpeg, gif, webp, or svg)").
			WithDetails(map[string]any{"content_type": contentType})
	}

	var length int64
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		if n, err := strconv.ParseInt(cl, 10, 64); err == nil {
			length = n
			if n > v.maxSizeBytes {
				return ImageInfo{}, apperr.New(apperr.ImageTooLarge,
					"image size exceeds the maximum allowed size",
					"use a smaller image or compress it before uploading").
					WithDetails(map[string]any{"content_length": n, "max_size_bytes": v.maxSizeBytes})
			}
		}
	}
	return ImageInfo{ContentType: contentType, ContentLength: length}, nil
}

// EmbedAsDataURI is a best-effort follow-up to a successful
// ValidateImageURL call: it downloads the bytes and returns a base64
// data URI for inline HTML/PDF embedding. Unlike ValidateImageURL, a
// failure here is never fatal to the caller's operation — add_image_fragment
// degrades to URL-only mode rather than rejecting the fragment, matching
// the reference implementation's "log a warning, keep the original
// image_url" behaviour when the embed download itself fails.
func (v *ImageURLValidator) EmbedAsDataURI(ctx context.Context, url, contentType string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := v.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("embed download: status %d", resp.StatusCode)
	}

	limited := io.LimitReader(resp.Body, v.maxSizeBytes+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return "", err
	}
	if int64(len(data)) > v.maxSizeBytes {
		return "", fmt.Errorf("embed download: exceeded %d byte limit", v.maxSizeBytes)
	}

	if contentType == "" {
		contentType = "image/png"
	}
	encoded := base64.StdEncoding.EncodeToString(data)
	return fmt.Sprintf("data:%s;base64,%s", contentType, encoded), nil
}

// doWithFallback issues a HEAD request, and when the server rejects HEAD
// (405/501) or drops the connection, retries with a streamed GET whose
// body is never read past the headers by the caller.
func (v *ImageURLValidator) doWithFallback(ctx context.Context, method, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := v.httpClient.Do(req)
	if err == nil && resp.StatusCode != http.StatusMethodNotAllowed && resp.StatusCode != http.StatusNotImplemented {
		return resp, nil
	}
	if resp != nil {
		resp.Body.Close()
	}

	getReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return v.httpClient.Do(getReq)
}

func classifyTransportError(err error, timeout time.Duration) *apperr.Error {
	var netErr net.Error
	if ne, ok := err.(net.Error); ok {
		netErr = ne
	}
	if netErr != nil && netErr.Timeout() {
		return apperr.New(apperr.ImageURLTimeout,
			"image URL validation timed out",
			"check whether the URL is slow or unreachable; try a different URL").
			WithDetails(map[string]any{"timeout_seconds": timeout.Seconds()})
	}
	return apperr.New(apperr.ImageValidationError,
		"error accessing image URL",
		"verify the URL is accessible and try again")
}

// DrainAndClose discards up to maxSizeBytes+1 bytes of body (enough to
// confirm the response really is no larger than maxSizeBytes) and
// closes it, returning an error when the body is larger.
func DrainAndClose(body io.ReadCloser, maxSizeBytes int64) error {
	defer body.Close()
	_, err := io.CopyN(io.Discard, body, maxSizeBytes+1)
	if err == io.EOF {
		return nil
	}
	if err == nil {
		return fmt.Errorf("body exceeds %d byte limit", maxSizeBytes)
	}
	return err
}
