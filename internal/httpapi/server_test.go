package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docsmith/docsmith/internal/assets"
	"github.com/docsmith/docsmith/internal/auth"
	"github.com/docsmith/docsmith/internal/blobstore"
	"github.com/docsmith/docsmith/internal/docmodel"
	"github.com/docsmith/docsmith/internal/plot"
	"github.com/docsmith/docsmith/internal/rendering"
	"github.com/docsmith/docsmith/internal/sessionmgr"
	"github.com/docsmith/docsmith/internal/sessionstore"
	"github.com/docsmith/docsmith/internal/values"
)

type groupVerifier struct{ groups []string }

func (g groupVerifier) VerifyToken(ctx context.Context, token string) (auth.TokenInfo, error) {
	return auth.TokenInfo{Groups: g.groups}, nil
}

const outerSource = `<html><body>{{range .Fragments}}{{.}}{{end}}</body></html>`
const paragraphSource = `<p>{{.text}}</p>`

func newTestServer(t *testing.T, verifier auth.Verifier) (*Server, docmodel.Group, *docmodel.Session) {
	t.Helper()
	group := docmodel.Group("alpha")

	cat := assets.NewCatalogue()
	cat.Templates.Register(docmodel.Template{
		ID:          "report",
		Group:       group,
		Name:        "Report",
		OuterSource: outerSource,
		Fragments: map[string]docmodel.FragmentType{
			"paragraph": {ID: "paragraph", Name: "Paragraph", InnerSource: paragraphSource},
		},
	})
	cat.Styles.Register(docmodel.Style{ID: "default", Group: group, Name: "Default", Default: true})
	cat.Fragments.Register(docmodel.Fragment{ID: "standalone", Group: group, Name: "Standalone", InnerSource: paragraphSource})

	sessionDir := t.TempDir()
	sessionStore, err := sessionstore.Open(sessionDir)
	require.NoError(t, err)
	manager := sessionmgr.New(sessionStore, cat, nil)

	session, err := manager.CreateSession(context.Background(), group, "report", "")
	require.NoError(t, err)
	_, err = manager.SetGlobalParameters(context.Background(), group, session.SessionID, values.Map{})
	require.NoError(t, err)
	_, _, err = manager.AddFragment(context.Background(), group, session.SessionID, "paragraph", values.Map{"text": "hello"}, "end")
	require.NoError(t, err)
	session, err = manager.GetSession(context.Background(), group, session.SessionID)
	require.NoError(t, err)

	blobs, err := blobstore.Open(t.TempDir())
	require.NoError(t, err)
	engine := rendering.New(cat, blobs, nil, nil, nil)
	plots := plot.New(nil, blobstore.NewPlotStore(blobs), nil)

	gate := auth.New(verifier)
	stockDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(stockDir, "logo.png"), []byte("fake-png-bytes"), 0o644))

	srv := NewServer(cat, manager, engine, plots, blobs, gate, stockDir, "", "*", nil)
	return srv, group, session
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestPing_NoAuthRequired(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	require.Equal(t, "success", env["status"])
}

func TestListTemplates_NoAuth(t *testing.T) {
	srv, _, _ := newTestServer(t, groupVerifier{groups: []string{"alpha"}})
	req := httptest.NewRequest(http.MethodGet, "/templates", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestGetTemplate_UnknownReturns404(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/templates/does-not-exist", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
	env := decodeEnvelope(t, rec)
	require.Equal(t, "TEMPLATE_NOT_FOUND", env["error_code"])
}

func TestRender_RequiresAuth(t *testing.T) {
	srv, _, session := newTestServer(t, groupVerifier{groups: []string{"alpha"}})
	req := httptest.NewRequest(http.MethodPost, "/render/"+session.SessionID, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRender_HTMLInline(t *testing.T) {
	srv, _, session := newTestServer(t, groupVerifier{groups: []string{"alpha"}})
	body := `{"format":"html"}`
	req := httptest.NewRequest(http.MethodPost, "/render/"+session.SessionID, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/html", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Body.String(), "hello")
}

func TestRender_ProxyThenRetrieve_GroupMismatchIsAccessDenied(t *testing.T) {
	verifier := &switchableVerifier{groups: []string{"alpha"}}
	srv, _, session := newTestServer(t, verifier)

	body := `{"format":"html","proxy":true}`
	req := httptest.NewRequest(http.MethodPost, "/render/"+session.SessionID, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	data := env["data"].(map[string]any)
	guid := data["proxy_guid"].(string)
	require.NotEmpty(t, guid)

	// Wrong group: 403 ACCESS_DENIED.
	verifier.groups = []string{"beta"}
	req2 := httptest.NewRequest(http.MethodGet, "/proxy/"+guid, nil)
	req2.Header.Set("Authorization", "Bearer tok")
	rec2 := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec2, req2)
	require.Equal(t, http.StatusForbidden, rec2.Code)
	env2 := decodeEnvelope(t, rec2)
	require.Equal(t, "ACCESS_DENIED", env2["error_code"])

	// Right group: 200 with the exact rendered bytes.
	verifier.groups = []string{"alpha"}
	req3 := httptest.NewRequest(http.MethodGet, "/proxy/"+guid, nil)
	req3.Header.Set("Authorization", "Bearer tok")
	rec3 := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec3, req3)
	require.Equal(t, http.StatusOK, rec3.Code)
	require.Contains(t, rec3.Body.String(), "hello")
}

type switchableVerifier struct{ groups []string }

func (v *switchableVerifier) VerifyToken(ctx context.Context, token string) (auth.TokenInfo, error) {
	return auth.TokenInfo{Groups: v.groups}, nil
}

func TestListStockImages(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/images", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	data := env["data"].(map[string]any)
	images := data["images"].([]any)
	require.Contains(t, images, "logo.png")
}

func TestGetStockImage_PathTraversalRejected(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/images/../../etc/passwd", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.NotEqual(t, http.StatusOK, rec.Code)
}

func TestGetStockImage_Success(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/images/logo.png", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "image/png", rec.Header().Get("Content-Type"))
}

func TestGetFragment_StandaloneFound(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/fragments/standalone", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

