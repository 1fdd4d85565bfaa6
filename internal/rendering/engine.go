// Package rendering implements the RenderingEngine: assembling a
// session's fragments into HTML against its template and style, then
// optionally transcoding to PDF or Markdown and/or persisting the
// result into the blob store as a proxy document.
package rendering

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"

	"github.com/docsmith/docsmith/internal/apperr"
	"github.com/docsmith/docsmith/internal/assets"
	"github.com/docsmith/docsmith/internal/blobstore"
	"github.com/docsmith/docsmith/internal/docmodel"
	"github.com/docsmith/docsmith/internal/values"
)

// Format is one of the three output formats RenderDocument supports.
type Format string

const (
	FormatHTML     Format = "html"
	FormatPDF      Format = "pdf"
	FormatMarkdown Format = "markdown"
)

// PDFTranscoder converts rendered HTML to PDF bytes. It is treated as
// an external collaborator per the specification; StubPDFTranscoder
// ships a deterministic default so the path is exercised without a
// native PDF dependency.
type PDFTranscoder interface {
	HTMLToPDF(html string) ([]byte, error)
}

// MarkdownTranscoder converts rendered HTML to Markdown text. Same
// external-collaborator treatment as PDFTranscoder.
type MarkdownTranscoder interface {
	HTMLToMarkdown(html string) (string, error)
}

// Result is what RenderDocument returns: either inline content or,
// when proxy mode was requested, a stored-blob descriptor.
type Result struct {
	SessionID   string
	Format      Format
	StyleID     string
	ContentType string
	Content     []byte // present unless Proxied
	Proxied     bool
	ProxyGUID   string
}

// Engine renders sessions to documents.
type Engine struct {
	catalogue *assets.Catalogue
	blobs     *blobstore.Store
	pdf       PDFTranscoder
	markdown  MarkdownTranscoder
	logger    *slog.Logger
}

// New builds an Engine. pdf/markdown may be nil, in which case the
// deterministic stub transcoders are used.
func New(catalogue *assets.Catalogue, blobs *blobstore.Store, pdf PDFTranscoder, markdown MarkdownTranscoder, logger *slog.Logger) *Engine {
	if pdf == nil {
		pdf = StubPDFTranscoder{}
	}
	if markdown == nil {
		markdown = StubMarkdownTranscoder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{catalogue: catalogue, blobs: blobs, pdf: pdf, markdown: markdown, logger: logger}
}

// RenderDocument implements the four-step HTML algorithm, then
// transcodes to the requested format, then optionally proxies the
// result into the blob store.
func (e *Engine) RenderDocument(ctx context.Context, session *docmodel.Session, format Format, styleID string, proxy bool) (*Result, error) {
	style, err := e.resolveStyle(session.Group, styleID)
	if err != nil {
		return nil, err
	}

	html, tableAlignments, err := e.renderHTML(session, style)
	if err != nil {
		return nil, err
	}

	var content []byte
	var contentType string
	switch format {
	case FormatHTML, "":
		content = []byte(html)
		contentType = "text/html; charset=utf-8"
	case FormatPDF:
		pdfBytes, err := e.pdf.HTMLToPDF(html)
		if err != nil {
			return nil, apperr.New(apperr.RenderFailed,
				fmt.Sprintf("PDF conversion failed: %s", err),
				"retry; if the failure persists, report it with the session_id").
				WithDetails(map[string]any{"transcoder_error": err.Error()})
		}
		content = pdfBytes
		contentType = "application/pdf"
	case FormatMarkdown:
		md, err := e.markdown.HTMLToMarkdown(html)
		if err != nil {
			return nil, apperr.New(apperr.RenderFailed,
				fmt.Sprintf("Markdown conversion failed: %s", err),
				"retry; if the failure persists, report it with the session_id").
				WithDetails(map[string]any{"transcoder_error": err.Error()})
		}
		md = applyGFMAlignment(md, tableAlignments)
		content = []byte(md)
		contentType = "text/markdown; charset=utf-8"
	default:
		return nil, apperr.New(apperr.InvalidOperation,
			fmt.Sprintf("unsupported output format: %s", format),
			"use html, pdf, or markdown")
	}

	result := &Result{
		SessionID:   session.SessionID,
		Format:      format,
		StyleID:     style.ID,
		ContentType: contentType,
		Content:     content,
	}

	if proxy {
		guid, err := e.blobs.Save(content, string(format), string(session.Group), map[string]any{
			"artefact_type": string(docmodel.ArtefactDocument),
			"format":        string(format),
		})
		if err != nil {
			return nil, apperr.Unexpected(err)
		}
		result.Proxied = true
		result.ProxyGUID = guid
		result.Content = nil
	}

	e.logger.Info("session rendered", "session_id", session.SessionID, "format", format, "style_id", style.ID, "proxy", proxy)
	return result, nil
}

func (e *Engine) resolveStyle(group docmodel.Group, styleID string) (docmodel.Style, error) {
	if styleID != "" {
		style, ok := e.catalogue.Styles.Get(group, styleID)
		if !ok {
			return docmodel.Style{}, apperr.New(apperr.RenderFailed,
				fmt.Sprintf("style %q not found", styleID),
				"list available styles and retry with a valid style_id")
		}
		return style, nil
	}
	style, ok := e.catalogue.Styles.Default(group)
	if !ok {
		return docmodel.Style{}, apperr.New(apperr.RenderFailed,
			"no styles available for this group",
			"register at least one style, marking one as default")
	}
	return style, nil
}

// outerData is the template data the outer (document) source renders
// against.
type outerData struct {
	GlobalParams values.Map
	Fragments    []template.HTML
	CSS          template.CSS
}

// renderHTML implements steps 2-4 of the algorithm: fetch outer
// source + style CSS, render every fragment in order, render the
// outer source. It also returns, in document order, the column
// alignments of every table fragment rendered, for the Markdown
// path's GFM post-processing.
func (e *Engine) renderHTML(session *docmodel.Session, style docmodel.Style) (string, [][]string, error) {
	tmpl, ok := e.catalogue.Templates.Get(session.Group, session.TemplateID)
	if !ok {
		return "", nil, apperr.New(apperr.RenderFailed,
			fmt.Sprintf("template %q not found", session.TemplateID),
			"the session's template is no longer registered")
	}

	rendered := make([]template.HTML, 0, len(session.Fragments))
	var tableAlignments [][]string
	for _, instance := range session.Fragments {
		fragType, ok := tmpl.Fragments[instance.FragmentID]
		if !ok {
			return "", nil, apperr.New(apperr.RenderFailed,
				fmt.Sprintf("fragment %q no longer declared by template %q", instance.FragmentID, tmpl.ID),
				"remove the stale fragment instance and re-add it")
		}

		if instance.FragmentID == docmodel.TableFragmentID {
			html, alignments, err := renderTableFragment(instance.Parameters)
			if err != nil {
				return "", nil, err
			}
			rendered = append(rendered, template.HTML(html))
			tableAlignments = append(tableAlignments, alignments)
			continue
		}

		html, err := renderFragmentTemplate(fragType.InnerSource, instance.Parameters)
		if err != nil {
			return "", nil, apperr.New(apperr.RenderFailed,
				fmt.Sprintf("fragment %q failed to render: %s", instance.FragmentID, err),
				"check the fragment's parameters against its schema").
				WithDetails(map[string]any{"fragment_instance_guid": instance.FragmentInstanceGUID})
		}
		rendered = append(rendered, template.HTML(html))
	}

	outerTmpl, err := template.New("document").Parse(tmpl.OuterSource)
	if err != nil {
		return "", nil, apperr.New(apperr.RenderFailed,
			fmt.Sprintf("outer template failed to parse: %s", err), "report this to the template's author")
	}

	var buf bytes.Buffer
	data := outerData{
		GlobalParams: session.GlobalParameters,
		Fragments:    rendered,
		CSS:          template.CSS(style.CSS),
	}
	if err := outerTmpl.Execute(&buf, data); err != nil {
		return "", nil, apperr.New(apperr.RenderFailed,
			fmt.Sprintf("outer template failed to render: %s", err), "report this to the template's author")
	}

	return buf.String(), tableAlignments, nil
}

func renderFragmentTemplate(source string, parameters values.Map) (string, error) {
	tmpl, err := template.New("fragment").Parse(source)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, map[string]any(parameters)); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// GetImageDataURI is a small convenience passthrough used by fragment
// templates that embed a plot image inline rather than by URL.
func GetImageDataURI(plots *blobstore.PlotStore, identifier, group string) (string, error) {
	return plots.GetImageAsDataURI(identifier, group)
}
