package assets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docsmith/docsmith/internal/docmodel"
	"github.com/docsmith/docsmith/internal/values"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoad_TemplatesFragmentsStyles(t *testing.T) {
	root := t.TempDir()

	writeFile(t, filepath.Join(root, "templates", "finance", "news_email", "schema.yaml"), `
id: news_email
name: News Email
description: A short weekly digest.
outer_source: outer.html.tmpl
global_parameters:
  - name: title
    type: string
    required: true
fragments:
  news:
    name: News Item
    parameters:
      - name: summary
        type: string
        required: true
    inner_source: fragments/news.html.tmpl
`)
	writeFile(t, filepath.Join(root, "templates", "finance", "news_email", "outer.html.tmpl"), "<html>{{.Title}}</html>")
	writeFile(t, filepath.Join(root, "templates", "finance", "news_email", "fragments", "news.html.tmpl"), "<p>{{.Summary}}</p>")

	writeFile(t, filepath.Join(root, "fragments", "public", "callout", "schema.yaml"), `
id: callout
name: Callout
parameters:
  - name: body
    type: string
    required: true
inner_source: inner.html.tmpl
`)
	writeFile(t, filepath.Join(root, "fragments", "public", "callout", "inner.html.tmpl"), "<div>{{.Body}}</div>")

	writeFile(t, filepath.Join(root, "styles", "public", "default", "schema.yaml"), `
id: default
name: Default
default: true
css_file: style.css
`)
	writeFile(t, filepath.Join(root, "styles", "public", "default", "style.css"), "body { margin: 0; }")

	cat := NewCatalogue()
	require.NoError(t, Load(Layout{Root: root}, cat))

	tmpl, ok := cat.Templates.Get(docmodel.Group("finance"), "news_email")
	require.True(t, ok)
	require.Equal(t, "News Email", tmpl.Name)
	require.Equal(t, "<html>{{.Title}}</html>", tmpl.OuterSource)
	require.Contains(t, tmpl.Fragments, "news")
	require.Equal(t, "<p>{{.Summary}}</p>", tmpl.Fragments["news"].InnerSource)

	frag, ok := cat.Fragments.Get(docmodel.Group("public"), "callout")
	require.True(t, ok)
	require.Equal(t, "<div>{{.Body}}</div>", frag.InnerSource)

	style, ok := cat.Styles.Default(docmodel.Group("public"))
	require.True(t, ok)
	require.Equal(t, "default", style.ID)

	require.Len(t, cat.Templates.List(docmodel.Group("finance")), 1)
	require.Empty(t, cat.Templates.List(docmodel.Group("other")))
}

func TestLoad_RejectsIDMismatch(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "templates", "finance", "news_email", "schema.yaml"), `
id: something_else
name: News Email
outer_source: outer.html.tmpl
`)
	writeFile(t, filepath.Join(root, "templates", "finance", "news_email", "outer.html.tmpl"), "<html></html>")

	cat := NewCatalogue()
	err := Load(Layout{Root: root}, cat)
	require.Error(t, err)
	require.Contains(t, err.Error(), "schema.id")
}

func TestLoad_RejectsGroupMismatch(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "templates", "finance", "news_email", "schema.yaml"), `
id: news_email
group: other_group
name: News Email
outer_source: outer.html.tmpl
`)
	writeFile(t, filepath.Join(root, "templates", "finance", "news_email", "outer.html.tmpl"), "<html></html>")

	cat := NewCatalogue()
	err := Load(Layout{Root: root}, cat)
	require.Error(t, err)
	require.Contains(t, err.Error(), "schema.group")
}

func TestTemplateRegistry_DuplicatePanics(t *testing.T) {
	reg := NewTemplateRegistry()
	reg.Register(docmodel.Template{ID: "a", Group: "public"})
	require.Panics(t, func() {
		reg.Register(docmodel.Template{ID: "a", Group: "public"})
	})
}

func TestValidateParameters(t *testing.T) {
	schema := docmodel.ParameterSchema{
		{Name: "title", Type: values.KindString, Required: true},
		{Name: "count", Type: values.KindInteger, Required: false},
	}

	t.Run("valid", func(t *testing.T) {
		ok, errs := ValidateParameters("t1", schema, values.Map{"title": "hi", "count": float64(3)})
		require.True(t, ok)
		require.Empty(t, errs)
	})

	t.Run("missing required", func(t *testing.T) {
		ok, errs := ValidateParameters("t1", schema, values.Map{"count": float64(3)})
		require.False(t, ok)
		require.NotEmpty(t, errs)
	})

	t.Run("unexpected key rejected", func(t *testing.T) {
		ok, errs := ValidateParameters("t1", schema, values.Map{"title": "hi", "bogus": true})
		require.False(t, ok)
		require.NotEmpty(t, errs)
	})

	t.Run("wrong type rejected", func(t *testing.T) {
		ok, errs := ValidateParameters("t1", schema, values.Map{"title": 42})
		require.False(t, ok)
		require.NotEmpty(t, errs)
	})
}
