package rendering

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docsmith/docsmith/internal/assets"
	"github.com/docsmith/docsmith/internal/auth"
	"github.com/docsmith/docsmith/internal/blobstore"
	"github.com/docsmith/docsmith/internal/dispatch"
	"github.com/docsmith/docsmith/internal/docmodel"
	"github.com/docsmith/docsmith/internal/mcp"
	"github.com/docsmith/docsmith/internal/rendering"
	"github.com/docsmith/docsmith/internal/sessionmgr"
	"github.com/docsmith/docsmith/internal/sessionstore"
	"github.com/docsmith/docsmith/internal/values"
)

const outerSource = `<html><head><style>{{.CSS}}</style></head><body><h1>{{.GlobalParams.title}}</h1>{{range .Fragments}}{{.}}{{end}}</body></html>`
const paragraphSource = `<p>{{.text}}</p>`

func newTestRegistry(t *testing.T) (*mcp.Registry, *sessionmgr.Manager, docmodel.Group) {
	t.Helper()
	// The dispatcher in these tests is built with a nil auth.Verifier,
	// which always resolves every call to auth.PublicGroup: the
	// fixture catalogue must be registered under that same group for
	// tool calls to see it.
	group := docmodel.Group(auth.PublicGroup)

	cat := assets.NewCatalogue()
	cat.Templates.Register(docmodel.Template{
		ID:          "report",
		Group:       group,
		Name:        "Report",
		OuterSource: outerSource,
		GlobalParameters: docmodel.ParameterSchema{
			{Name: "title", Type: values.KindString, Required: true},
		},
		Fragments: map[string]docmodel.FragmentType{
			"paragraph": {ID: "paragraph", Name: "Paragraph", InnerSource: paragraphSource},
		},
	})
	cat.Styles.Register(docmodel.Style{ID: "default", Group: group, Name: "Default", CSS: "body{}", Default: true})

	store, err := sessionstore.Open(t.TempDir())
	require.NoError(t, err)
	manager := sessionmgr.New(store, cat, nil)

	blobs, err := blobstore.Open(t.TempDir())
	require.NoError(t, err)
	engine := rendering.New(cat, blobs, nil, nil, nil)

	registry := mcp.NewRegistry()
	dispatcher := dispatch.New(auth.New(nil))
	Register(registry, dispatcher, manager, engine)
	return registry, manager, group
}

func callTool(t *testing.T, registry *mcp.Registry, name string, args string) map[string]any {
	t.Helper()
	tool := registry.Get(name)
	require.NotNil(t, tool, "tool %q not registered", name)
	result, err := tool.Execute(context.Background(), json.RawMessage(args))
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), &out))
	return out
}

func TestGetDocument_HTML(t *testing.T) {
	registry, manager, group := newTestRegistry(t)

	session, err := manager.CreateSession(context.Background(), group, "report", "")
	require.NoError(t, err)
	_, err = manager.SetGlobalParameters(context.Background(), group, session.SessionID, values.Map{"title": "Q3 Results"})
	require.NoError(t, err)
	_, _, err = manager.AddFragment(context.Background(), group, session.SessionID, "paragraph", values.Map{"text": "Revenue grew."}, "end")
	require.NoError(t, err)

	env := callTool(t, registry, "get_document", `{"session_id":"`+session.SessionID+`"}`)
	require.Equal(t, "success", env["status"], env)
	data := env["data"].(map[string]any)
	require.Contains(t, data["content"].(string), "Q3 Results")
	require.False(t, data["proxied"].(bool))
}

func TestGetDocument_NotReadyWithoutGlobalParameters(t *testing.T) {
	registry, manager, group := newTestRegistry(t)

	session, err := manager.CreateSession(context.Background(), group, "report", "")
	require.NoError(t, err)

	env := callTool(t, registry, "get_document", `{"session_id":"`+session.SessionID+`"}`)
	require.Equal(t, "error", env["status"])
	require.Equal(t, "SESSION_NOT_READY", env["error_code"])
}

func TestGetDocument_Proxy(t *testing.T) {
	registry, manager, group := newTestRegistry(t)

	session, err := manager.CreateSession(context.Background(), group, "report", "")
	require.NoError(t, err)
	_, err = manager.SetGlobalParameters(context.Background(), group, session.SessionID, values.Map{"title": "Q3"})
	require.NoError(t, err)

	env := callTool(t, registry, "get_document", `{"session_id":"`+session.SessionID+`","proxy":true}`)
	require.Equal(t, "success", env["status"], env)
	data := env["data"].(map[string]any)
	require.True(t, data["proxied"].(bool))
	require.NotEmpty(t, data["proxy_guid"])
}
