package discovery

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
)

func newTestRegistry(t *testing.T) (*mcp.Registry, docmodel.Group) {
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
		Fragments: map[string]docmodel.FragmentType{
			"paragraph": {ID: "paragraph", Name: "Paragraph"},
		},
	})
	cat.Styles.Register(docmodel.Style{ID: "default", Group: group, Name: "Default", Default: true})
	cat.Fragments.Register(docmodel.Fragment{ID: "standalone", Group: group, Name: "Standalone"})

	registry := mcp.NewRegistry()
	dispatcher := dispatch.New(auth.New(nil))
	Register(registry, dispatcher, cat)
	return registry, group
}

func callTool(t *testing.T, registry *mcp.Registry, name string, args string) map[string]any {
	t.Helper()
	tool := registry.Get(name)
	require.NotNil(t, tool, "tool %q not registered", name)
	result, err := tool.Execute(context.Background(), json.RawMessage(args))
	require.NoError(t, err)
	require.NotEmpty(t, result.Content)
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), &out))
	return out
}

func TestPing(t *testing.T) {
	registry, _ := newTestRegistry(t)
	env := callTool(t, registry, "ping", `{}`)
	require.Equal(t, "success", env["status"])
}

func TestListTemplates(t *testing.T) {
	registry, _ := newTestRegistry(t)
	env := callTool(t, registry, "list_templates", `{}`)
	data := env["data"].(map[string]any)
	templates := data["templates"].([]any)
	require.Len(t, templates, 1)
}

func TestGetTemplateDetails_Unknown(t *testing.T) {
	registry, _ := newTestRegistry(t)
	env := callTool(t, registry, "get_template_details", `{"template_id":"nope"}`)
	require.Equal(t, "error", env["status"])
	require.Equal(t, "TEMPLATE_NOT_FOUND", env["error_code"])
}

func TestGetTemplateDetails_Found(t *testing.T) {
	registry, _ := newTestRegistry(t)
	env := callTool(t, registry, "get_template_details", `{"template_id":"report"}`)
	require.Equal(t, "success", env["status"])
	data := env["data"].(map[string]any)
	require.Equal(t, "report", data["template_id"])
}

func TestListThemes(t *testing.T) {
	registry, _ := newTestRegistry(t)
	env := callTool(t, registry, "list_themes", `{}`)
	data := env["data"].(map[string]any)
	require.NotEmpty(t, data["themes"])
}

func TestListHandlers(t *testing.T) {
	registry, _ := newTestRegistry(t)
	env := callTool(t, registry, "list_handlers", `{}`)
	data := env["data"].(map[string]any)
	formats := data["formats"].([]any)
	require.Contains(t, formats, "html")
	require.Contains(t, formats, "pdf")
	require.Contains(t, formats, "markdown")
}
