package sessions

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docsmith/docsmith/internal/assets"
	"github.com/docsmith/docsmith/internal/auth"
	"github.com/docsmith/docsmith/internal/dispatch"
	"github.com/docsmith/docsmith/internal/docmodel"
	"github.com/docsmith/docsmith/internal/mcp"
	"github.com/docsmith/docsmith/internal/sessionmgr"
	"github.com/docsmith/docsmith/internal/sessionstore"
	"github.com/docsmith/docsmith/internal/values"
)

func newTestRegistry(t *testing.T) (*mcp.Registry, *sessionmgr.Manager, docmodel.Group) {
	t.Helper()
	// The dispatcher in these tests is built with a nil auth.Verifier,
	// which always resolves every call to auth.PublicGroup: the
	// fixture catalogue must be registered under that same group for
	// tool calls to see it.
	group := docmodel.Group(auth.PublicGroup)

	cat := assets.NewCatalogue()
	cat.Templates.Register(docmodel.Template{
		ID:    "report",
		Group: group,
		Name:  "Report",
		GlobalParameters: docmodel.ParameterSchema{
			{Name: "title", Type: values.KindString, Required: true},
		},
	})

	store, err := sessionstore.Open(t.TempDir())
	require.NoError(t, err)
	manager := sessionmgr.New(store, cat, nil)

	registry := mcp.NewRegistry()
	dispatcher := dispatch.New(auth.New(nil))
	Register(registry, dispatcher, manager)
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

func TestCreateDocumentSession(t *testing.T) {
	registry, _, _ := newTestRegistry(t)
	env := callTool(t, registry, "create_document_session", `{"template_id":"report"}`)
	require.Equal(t, "success", env["status"])
	data := env["data"].(map[string]any)
	require.NotEmpty(t, data["session_id"])
	require.False(t, data["parameters_set"].(bool))
}

func TestCreateDocumentSession_UnknownTemplate(t *testing.T) {
	registry, _, _ := newTestRegistry(t)
	env := callTool(t, registry, "create_document_session", `{"template_id":"nope"}`)
	require.Equal(t, "error", env["status"])
	require.Equal(t, "TEMPLATE_NOT_FOUND", env["error_code"])
}

func TestGetSessionStatus_ByAlias(t *testing.T) {
	registry, _, _ := newTestRegistry(t)
	created := callTool(t, registry, "create_document_session", `{"template_id":"report","alias":"q3"}`)
	require.Equal(t, "success", created["status"])

	status := callTool(t, registry, "get_session_status", `{"session_id":"q3"}`)
	require.Equal(t, "success", status["status"])
	data := status["data"].(map[string]any)
	require.Equal(t, "q3", data["alias"])
}

func TestListActiveSessions(t *testing.T) {
	registry, _, _ := newTestRegistry(t)
	callTool(t, registry, "create_document_session", `{"template_id":"report"}`)
	callTool(t, registry, "create_document_session", `{"template_id":"report"}`)

	env := callTool(t, registry, "list_active_sessions", `{}`)
	data := env["data"].(map[string]any)
	require.Len(t, data["sessions"].([]any), 2)
}

func TestAbortDocumentSession(t *testing.T) {
	registry, manager, group := newTestRegistry(t)
	created := callTool(t, registry, "create_document_session", `{"template_id":"report"}`)
	sessionID := created["data"].(map[string]any)["session_id"].(string)

	env := callTool(t, registry, "abort_document_session", `{"session_id":"`+sessionID+`"}`)
	require.Equal(t, "success", env["status"])

	_, err := manager.GetSession(context.Background(), group, sessionID)
	require.Error(t, err)
}
