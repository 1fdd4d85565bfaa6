package plot

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docsmith/docsmith/internal/auth"
	"github.com/docsmith/docsmith/internal/blobstore"
	"github.com/docsmith/docsmith/internal/dispatch"
	"github.com/docsmith/docsmith/internal/mcp"
	"github.com/docsmith/docsmith/internal/plot"
)

func newTestRegistry(t *testing.T) *mcp.Registry {
	t.Helper()
	blobs, err := blobstore.Open(t.TempDir())
	require.NoError(t, err)
	service := plot.New(plot.SVGRenderer{}, blobstore.NewPlotStore(blobs), nil)

	registry := mcp.NewRegistry()
	dispatcher := dispatch.New(auth.New(nil))
	Register(registry, dispatcher, service)
	return registry
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

func TestRenderGraph_Proxy(t *testing.T) {
	registry := newTestRegistry(t)
	env := callTool(t, registry, "render_graph", `{
		"kind":"line",
		"title":"Revenue",
		"series":[{"name":"2024","y":[1,2,3]}],
		"proxy":true
	}`)
	require.Equal(t, "success", env["status"], env)
	data := env["data"].(map[string]any)
	require.True(t, data["proxied"].(bool))
	require.NotEmpty(t, data["plot_guid"])
}

func TestRenderGraph_InvalidKind(t *testing.T) {
	registry := newTestRegistry(t)
	env := callTool(t, registry, "render_graph", `{
		"kind":"pie",
		"series":[{"name":"2024","y":[1,2,3]}]
	}`)
	require.Equal(t, "error", env["status"])
	require.Equal(t, "INVALID_GRAPH_PARAMS", env["error_code"])
}

func TestGetImage_AndListImages(t *testing.T) {
	registry := newTestRegistry(t)
	rendered := callTool(t, registry, "render_graph", `{
		"kind":"bar",
		"series":[{"name":"2024","y":[1,2,3]}],
		"proxy":true
	}`)
	guid := rendered["data"].(map[string]any)["plot_guid"].(string)

	env := callTool(t, registry, "get_image", `{"identifier":"`+guid+`"}`)
	require.Equal(t, "success", env["status"])
	data := env["data"].(map[string]any)
	require.Contains(t, data["data_uri"].(string), "data:")

	list := callTool(t, registry, "list_images", `{}`)
	images := list["data"].(map[string]any)["images"].([]any)
	require.Contains(t, images, guid)
}

func TestGetImage_Unknown(t *testing.T) {
	registry := newTestRegistry(t)
	env := callTool(t, registry, "get_image", `{"identifier":"does-not-exist"}`)
	require.Equal(t, "error", env["status"])
}
